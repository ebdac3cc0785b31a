package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Interaction is one finished voice pipeline run, successful or not.
type Interaction struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	Outcome        string    `json:"outcome"`
	Transcription  string    `json:"transcription,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
	Language       string    `json:"language,omitempty"`
	IntentAction   string    `json:"intent_action,omitempty"`
	IntentSlots    string    `json:"intent_slots,omitempty"`
	ResponseText   string    `json:"response_text,omitempty"`
	ResponseAction string    `json:"response_action,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "peera-voice.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS interactions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			outcome TEXT NOT NULL,
			transcription TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			language TEXT NOT NULL DEFAULT '',
			intent_action TEXT NOT NULL DEFAULT '',
			intent_slots TEXT NOT NULL DEFAULT '',
			response_text TEXT NOT NULL DEFAULT '',
			response_action TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT ''
		);
	`); err != nil {
		return fmt.Errorf("create interactions table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_interactions_started_at ON interactions(started_at)"); err != nil {
		return fmt.Errorf("create interactions index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) SaveInteraction(rec Interaction) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("interaction id is required")
	}
	if rec.Outcome == "" {
		rec.Outcome = OutcomeCompleted
	}

	_, err := s.db.Exec(
		`INSERT INTO interactions(
			id, started_at, ended_at, outcome,
			transcription, confidence, language,
			intent_action, intent_slots,
			response_text, response_action, failure_reason
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.EndedAt.UTC().Format(time.RFC3339Nano),
		rec.Outcome,
		strings.TrimSpace(rec.Transcription),
		rec.Confidence,
		rec.Language,
		rec.IntentAction,
		rec.IntentSlots,
		rec.ResponseText,
		rec.ResponseAction,
		rec.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("save interaction %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetInteraction(id string) (Interaction, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, ended_at, outcome, transcription, confidence, language,
		        intent_action, intent_slots, response_text, response_action, failure_reason
		 FROM interactions WHERE id = ?`,
		id,
	)

	rec, err := scanInteraction(row.Scan)
	if err != nil {
		return Interaction{}, fmt.Errorf("query interaction %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) GetInteractionsByDate(date string) ([]Interaction, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, ended_at, outcome, transcription, confidence, language,
		        intent_action, intent_slots, response_text, response_action, failure_reason
		 FROM interactions
		 WHERE substr(started_at, 1, 10) = ?
		 ORDER BY started_at DESC`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("query interactions by date %s: %w", date, err)
	}
	defer func() { _ = rows.Close() }()

	interactions := make([]Interaction, 0, 16)
	for rows.Next() {
		rec, err := scanInteraction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interactions = append(interactions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interaction rows: %w", err)
	}

	return interactions, nil
}

func (s *SQLiteStore) GetDates() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT substr(started_at, 1, 10) AS date FROM interactions ORDER BY date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates rows: %w", err)
	}

	return dates, nil
}

func scanInteraction(scan func(...any) error) (Interaction, error) {
	var rec Interaction
	var startedAt, endedAt string
	if err := scan(
		&rec.ID, &startedAt, &endedAt, &rec.Outcome,
		&rec.Transcription, &rec.Confidence, &rec.Language,
		&rec.IntentAction, &rec.IntentSlots,
		&rec.ResponseText, &rec.ResponseAction, &rec.FailureReason,
	); err != nil {
		return Interaction{}, err
	}

	parsedStart, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("parse started_at: %w", err)
	}
	rec.StartedAt = parsedStart

	parsedEnd, err := time.Parse(time.RFC3339Nano, endedAt)
	if err != nil {
		return Interaction{}, fmt.Errorf("parse ended_at: %w", err)
	}
	rec.EndedAt = parsedEnd

	return rec, nil
}
