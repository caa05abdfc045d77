// Package tracker keeps a queryable SQLite archive of screened requests
// and blocked prompts, alongside the append-only CSV audit trail.
package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/promptgate-ai/promptgate/pkg/models"
)

// Tracker records and queries request usage and adversarial events.
type Tracker interface {
	// Record stores one usage record.
	Record(ctx context.Context, rec models.UsageRecord) error
	// RecordAdversarial stores one blocked-prompt event.
	RecordAdversarial(ctx context.Context, ev models.AdversarialEvent) error
	// Summary returns aggregated usage, optionally filtered by model.
	Summary(ctx context.Context, model string) ([]models.UsageSummary, error)
	// TotalCost returns the summed estimated cost since a given time.
	TotalCost(ctx context.Context, since time.Time) (float64, error)
	// RecentAdversarial returns the newest blocked-prompt events.
	RecentAdversarial(ctx context.Context, limit int) ([]models.AdversarialEvent, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createUsageTable = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	model TEXT NOT NULL,
	technique TEXT NOT NULL DEFAULT '',
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	total_tokens INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	success INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_usage_model_time ON usage_records(model, created_at);
`

const createAdversarialTable = `
CREATE TABLE IF NOT EXISTS adversarial_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	patterns TEXT NOT NULL,
	pattern_count INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_adversarial_time ON adversarial_events(created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createUsageTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage table: %w", err)
	}
	if _, err := db.Exec(createAdversarialTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate adversarial table: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores one usage record.
func (t *SQLiteTracker) Record(ctx context.Context, rec models.UsageRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO usage_records
		 (model, technique, prompt_tokens, completion_tokens, total_tokens, latency_ms, cost_usd, success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Model, rec.Technique, rec.PromptTokens, rec.CompletionTokens,
		rec.TotalTokens, rec.LatencyMs, rec.CostUSD, rec.Success, created,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// RecordAdversarial stores one blocked-prompt event.
func (t *SQLiteTracker) RecordAdversarial(ctx context.Context, ev models.AdversarialEvent) error {
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO adversarial_events (question, patterns, pattern_count, created_at)
		 VALUES (?, ?, ?, ?)`,
		ev.Question, ev.Patterns, ev.PatternCount, created,
	)
	if err != nil {
		return fmt.Errorf("record adversarial event: %w", err)
	}
	return nil
}

// Summary returns aggregated usage grouped by model.
func (t *SQLiteTracker) Summary(ctx context.Context, model string) ([]models.UsageSummary, error) {
	query := `SELECT model, COUNT(*),
		SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
		SUM(prompt_tokens), SUM(total_tokens), SUM(cost_usd)
		FROM usage_records`
	var args []any
	if model != "" {
		query += ` WHERE model = ?`
		args = append(args, model)
	}
	query += ` GROUP BY model ORDER BY model`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var s models.UsageSummary
		if err := rows.Scan(&s.Model, &s.RequestCount, &s.Failures, &s.TotalPrompt, &s.TotalTokens, &s.TotalCostUSD); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// TotalCost returns the summed estimated cost since a given time.
func (t *SQLiteTracker) TotalCost(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM usage_records WHERE created_at >= ?`,
		since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total cost: %w", err)
	}
	return total, nil
}

// RecentAdversarial returns the newest blocked-prompt events.
func (t *SQLiteTracker) RecentAdversarial(ctx context.Context, limit int) ([]models.AdversarialEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, question, patterns, pattern_count, created_at
		 FROM adversarial_events ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent adversarial: %w", err)
	}
	defer rows.Close()

	var events []models.AdversarialEvent
	for rows.Next() {
		var ev models.AdversarialEvent
		if err := rows.Scan(&ev.ID, &ev.Question, &ev.Patterns, &ev.PatternCount, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan adversarial event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
