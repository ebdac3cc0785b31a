package transcribe

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Canned is an offline transcription table for development and tests: it
// picks a fixed phrase by audio size. This is NOT a production transcriber;
// it exists so the pipeline stays exercisable without the transcription
// service, and it must be enabled explicitly in configuration.
type Canned struct {
	phrases  []string
	language string
}

var defaultCannedPhrases = []string{
	"schedule a meeting title project sync time 2 PM tomorrow",
	"I spent $12.50 on lunch today",
	"go to the settings screen",
	"what is on my calendar today",
}

func NewCanned(phrases []string, language string) *Canned {
	if len(phrases) == 0 {
		phrases = defaultCannedPhrases
	}
	if language == "" {
		language = "en-US"
	}
	return &Canned{phrases: phrases, language: language}
}

func (c *Canned) Transcribe(_ context.Context, audioPath, _, _ string) (Result, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("stat audio file: %w", err)
	}

	// Deterministic pick so repeated runs of the same clip agree.
	phrase := c.phrases[int(info.Size())%len(c.phrases)]
	return Result{Text: phrase, Confidence: 0.5, Language: c.language}, nil
}

// WithFallback returns a Transcriber that tries primary first and falls back
// to secondary when it fails, logging the failover.
func WithFallback(primary, secondary Transcriber) Transcriber {
	return fallbackTranscriber{primary: primary, secondary: secondary}
}

type fallbackTranscriber struct {
	primary   Transcriber
	secondary Transcriber
}

func (f fallbackTranscriber) Transcribe(ctx context.Context, audioPath, language, contextTag string) (Result, error) {
	result, err := f.primary.Transcribe(ctx, audioPath, language, contextTag)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return Result{}, err
	}

	log.Printf("warning: transcription failed, using fallback: %v", err)
	return f.secondary.Transcribe(ctx, audioPath, language, contextTag)
}
