package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func sampleInteraction(id string, startedAt time.Time) Interaction {
	return Interaction{
		ID:             id,
		StartedAt:      startedAt,
		EndedAt:        startedAt.Add(5 * time.Second),
		Outcome:        OutcomeCompleted,
		Transcription:  "Schedule a meeting with John tomorrow at 2 PM",
		Confidence:     0.93,
		Language:       "en-US",
		IntentAction:   "create_event",
		IntentSlots:    `{"action":"create_event","title":"meeting with John"}`,
		ResponseText:   "Done, I scheduled it.",
		ResponseAction: "create_event",
	}
}

func TestSQLitePragmas(t *testing.T) {
	store := newTestSQLiteStore(t)

	var mode string
	if err := store.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode failed: %v", err)
	}
	if mode != "wal" {
		t.Fatalf("expected journal_mode wal, got %q", mode)
	}

	var timeout int
	if err := store.DB().QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("PRAGMA busy_timeout failed: %v", err)
	}
	if timeout < 5000 {
		t.Fatalf("expected busy_timeout >= 5000, got %d", timeout)
	}
}

func TestSQLiteSaveAndGet(t *testing.T) {
	store := newTestSQLiteStore(t)

	startedAt := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	rec := sampleInteraction("int-1", startedAt)
	if err := store.SaveInteraction(rec); err != nil {
		t.Fatalf("SaveInteraction failed: %v", err)
	}

	got, err := store.GetInteraction("int-1")
	if err != nil {
		t.Fatalf("GetInteraction failed: %v", err)
	}
	if got.Transcription != rec.Transcription {
		t.Fatalf("expected transcription %q, got %q", rec.Transcription, got.Transcription)
	}
	if got.IntentAction != "create_event" {
		t.Fatalf("expected intent action create_event, got %q", got.IntentAction)
	}
	if !got.StartedAt.Equal(startedAt) {
		t.Fatalf("expected started_at %v, got %v", startedAt, got.StartedAt)
	}
	if got.Outcome != OutcomeCompleted {
		t.Fatalf("expected outcome completed, got %q", got.Outcome)
	}

	byDate, err := store.GetInteractionsByDate("2026-08-26")
	if err != nil {
		t.Fatalf("GetInteractionsByDate failed: %v", err)
	}
	if len(byDate) != 1 {
		t.Fatalf("expected 1 interaction for date, got %d", len(byDate))
	}

	dates, err := store.GetDates()
	if err != nil {
		t.Fatalf("GetDates failed: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2026-08-26" {
		t.Fatalf("expected dates [2026-08-26], got %#v", dates)
	}
}

func TestSQLiteSaveFailedInteraction(t *testing.T) {
	store := newTestSQLiteStore(t)

	startedAt := time.Date(2026, 8, 26, 11, 0, 0, 0, time.UTC)
	rec := Interaction{
		ID:            "int-failed",
		StartedAt:     startedAt,
		EndedAt:       startedAt.Add(3 * time.Second),
		Outcome:       OutcomeFailed,
		FailureReason: "transcription_failure",
	}
	if err := store.SaveInteraction(rec); err != nil {
		t.Fatalf("SaveInteraction failed: %v", err)
	}

	got, err := store.GetInteraction("int-failed")
	if err != nil {
		t.Fatalf("GetInteraction failed: %v", err)
	}
	if got.Outcome != OutcomeFailed || got.FailureReason != "transcription_failure" {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Transcription != "" {
		t.Fatalf("expected empty transcription, got %q", got.Transcription)
	}
}

func TestSQLiteSaveRequiresID(t *testing.T) {
	store := newTestSQLiteStore(t)

	if err := store.SaveInteraction(Interaction{StartedAt: time.Now()}); err == nil {
		t.Fatal("expected error for missing id, got nil")
	}
}

func TestSQLiteGetMissingInteraction(t *testing.T) {
	store := newTestSQLiteStore(t)

	if _, err := store.GetInteraction("nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSQLiteDateOrdering(t *testing.T) {
	store := newTestSQLiteStore(t)

	for i, day := range []int{24, 26, 25} {
		startedAt := time.Date(2026, 8, day, 9, 0, 0, 0, time.UTC)
		if err := store.SaveInteraction(sampleInteraction(fmt.Sprintf("int-%d", i), startedAt)); err != nil {
			t.Fatalf("SaveInteraction failed: %v", err)
		}
	}

	dates, err := store.GetDates()
	if err != nil {
		t.Fatalf("GetDates failed: %v", err)
	}
	want := []string{"2026-08-26", "2026-08-25", "2026-08-24"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d", len(want), len(dates))
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("date %d: expected %q, got %q", i, want[i], dates[i])
		}
	}
}

func TestSQLiteConcurrentAccess(t *testing.T) {
	store := newTestSQLiteStore(t)

	startedAt := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_ = store.SaveInteraction(sampleInteraction(fmt.Sprintf("int-%d", idx), startedAt.Add(time.Duration(idx)*time.Second)))
			_, _ = store.GetDates()
		}(i)
	}
	wg.Wait()

	byDate, err := store.GetInteractionsByDate("2026-08-26")
	if err != nil {
		t.Fatalf("GetInteractionsByDate failed: %v", err)
	}
	if len(byDate) != 20 {
		t.Fatalf("expected 20 interactions, got %d", len(byDate))
	}
}
