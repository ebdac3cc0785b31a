package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Writer appends finished interactions to a per-day markdown journal. It is
// a plain-text companion to the sqlite history so users can grep or sync
// their command log without tooling.
type Writer struct {
	dir string
	mu  sync.Mutex
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Append(rec Interaction) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", w.dir, err)
	}

	date := rec.StartedAt.Format("2006-01-02")
	path := filepath.Join(w.dir, date+".md")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, formatMarkdown(rec)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func formatMarkdown(rec Interaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- **%s**", rec.StartedAt.Format("15:04:05"))
	if rec.IntentAction != "" {
		fmt.Fprintf(&b, " `%s`", rec.IntentAction)
	}
	if rec.Transcription != "" {
		fmt.Fprintf(&b, " %q", rec.Transcription)
	}
	if rec.Outcome == OutcomeFailed {
		fmt.Fprintf(&b, " (failed: %s)", rec.FailureReason)
		return b.String()
	}
	if rec.ResponseText != "" {
		fmt.Fprintf(&b, ": %s", rec.ResponseText)
	}
	return b.String()
}
