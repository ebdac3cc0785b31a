// Package assistant is the remote dispatch boundary: transcribed text goes
// out, a natural-language response comes back.
package assistant

import (
	"context"
	"fmt"
)

// Response is the assistant's answer to one dispatched command. Action and
// Data are optional hints the UI may act on; only Text drives speech output.
type Response struct {
	Text   string         `json:"response"`
	Action string         `json:"action,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

type Client interface {
	Dispatch(ctx context.Context, text string) (Response, error)
}

// systemPrompt frames the LLM-backed providers as the Peera assistant. The
// peera provider talks to the real backend and does not use it.
const systemPrompt = "You are Peera, a voice-driven personal assistant for " +
	"expenses and calendar management. Answer in one or two short spoken " +
	"sentences suitable for text-to-speech output."

type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
}

func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// NewClient builds a dispatch client for the given provider: "peera" posts
// to the Peera backend, while "openai", "anthropic" and "gemini" wrap the
// corresponding LLM behind the assistant prompt.
func NewClient(provider, apiKey, model string, opts ...Option) (Client, error) {
	o := &clientOptions{}
	for _, opt := range opts {
		opt(o)
	}

	switch provider {
	case "peera":
		return newHTTPClient(o.baseURL, apiKey)
	case "openai":
		return newOpenAIClient(apiKey, model, o)
	case "anthropic":
		return newAnthropicClient(apiKey, model, o)
	case "gemini":
		return newGeminiClient(apiKey, model, o)
	default:
		return nil, fmt.Errorf("unknown assistant provider %q: supported providers are peera, openai, anthropic, gemini", provider)
	}
}
