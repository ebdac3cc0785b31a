package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClient dispatches to the Peera assistant backend.
type httpClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func newHTTPClient(baseURL, apiKey string) (*httpClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("peera assistant URL is required")
	}
	return &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *httpClient) Dispatch(ctx context.Context, text string) (Response, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Response{}, fmt.Errorf("marshal dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("dispatch request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read dispatch response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("assistant API status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed Response
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Response{}, fmt.Errorf("parse dispatch response: %w", err)
	}
	if parsed.Text == "" {
		return Response{}, fmt.Errorf("assistant returned an empty response")
	}
	return parsed, nil
}
