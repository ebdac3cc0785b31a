// Package transcribe is the upload-and-transcribe boundary: captured audio
// goes out as a multipart request and comes back as text.
package transcribe

import "context"

// Result is the transcription of one audio clip, immutable once returned.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

type Transcriber interface {
	// Transcribe uploads the audio file at audioPath together with a
	// language tag and a free-form context tag.
	Transcribe(ctx context.Context, audioPath, language, contextTag string) (Result, error)
}
