package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// HTTPClient sends captured audio to the transcription service as a
// multipart upload.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

type HTTPClientConfig struct {
	BaseURL string
	APIKey  string        // optional bearer token
	Timeout time.Duration // defaults to 60s
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type transcriptionResponse struct {
	Transcription string  `json:"transcription"`
	Confidence    float64 `json:"confidence"`
	Language      string  `json:"language"`
}

func (c *HTTPClient) Transcribe(ctx context.Context, audioPath, language, contextTag string) (Result, error) {
	if c.baseURL == "" {
		return Result{}, fmt.Errorf("transcription service URL not configured")
	}

	audio, err := os.Open(audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("open audio file: %w", err)
	}
	defer func() { _ = audio.Close() }()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return Result{}, fmt.Errorf("write audio data: %w", err)
	}

	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			return Result{}, fmt.Errorf("write language field: %w", err)
		}
	}
	if contextTag != "" {
		if err := writer.WriteField("context", contextTag); err != nil {
			return Result{}, fmt.Errorf("write context field: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &buf)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("transcription API status %d: %s", resp.StatusCode, string(body))
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("parse response: %w", err)
	}

	result := Result{
		Text:       parsed.Transcription,
		Confidence: parsed.Confidence,
		Language:   parsed.Language,
	}
	if result.Confidence == 0 {
		result.Confidence = 1 // service omits confidence when it has none
	}
	if result.Language == "" {
		result.Language = language
	}
	return result, nil
}
