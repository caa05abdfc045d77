// Package audit persists request metrics, error records, and adversarial
// detection events to three append-only CSV tables. Every field is
// sanitized before writing so that each logical record occupies exactly
// one physical line and no absolute filesystem path is ever stored.
package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/promptgate-ai/promptgate/pkg/metrics"
)

const (
	metricsFile     = "metrics.csv"
	errorsFile      = "errors.csv"
	adversarialFile = "adversarial.csv"

	// missingField marks optional fields that were not supplied.
	missingField = "N/A"
)

var (
	metricsHeader = []string{
		"timestamp", "model", "latency_ms", "tokens_prompt",
		"tokens_completion", "tokens_total", "cost_usd",
		"prompt_technique", "success",
	}
	errorsHeader = []string{
		"timestamp", "error_type", "error_message", "model",
		"user_question", "stack_trace",
	}
	adversarialHeader = []string{
		"timestamp", "user_question", "detected_patterns", "pattern_count",
	}
)

// Stats holds data-row counts per destination file, header excluded.
type Stats struct {
	MetricsCount     int `json:"metrics_entries"`
	ErrorCount       int `json:"error_entries"`
	AdversarialCount int `json:"adversarial_entries"`
}

// Logger appends sanitized rows to the three audit tables. A single
// mutex serializes all appends; log writes are infrequent relative to
// request processing, so one coarse lock is enough.
type Logger struct {
	dir  string
	root string // project root used for path redaction

	mu sync.Mutex

	metricsPath     string
	errorsPath      string
	adversarialPath string
}

// New creates the log directory if needed and writes the header row to
// each table that does not exist yet. Pre-existing files are never
// truncated or re-headered.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	root, err := os.Getwd()
	if err != nil {
		root = ""
	}

	l := &Logger{
		dir:             dir,
		root:            root,
		metricsPath:     filepath.Join(dir, metricsFile),
		errorsPath:      filepath.Join(dir, errorsFile),
		adversarialPath: filepath.Join(dir, adversarialFile),
	}

	for _, init := range []struct {
		path   string
		header []string
	}{
		{l.metricsPath, metricsHeader},
		{l.errorsPath, errorsHeader},
		{l.adversarialPath, adversarialHeader},
	} {
		if err := l.ensureHeader(init.path, init.header); err != nil {
			return nil, err
		}
	}

	return l, nil
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
	defaultErr    error
)

// Default returns the process-wide logger, creating it on first call.
// The directory argument is only consulted on that first call; later
// callers share the same instance for the lifetime of the process.
func Default(dir string) (*Logger, error) {
	defaultOnce.Do(func() {
		defaultLogger, defaultErr = New(dir)
	})
	return defaultLogger, defaultErr
}

func (l *Logger) ensureHeader(path string, header []string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return l.appendRow(path, header)
}

// appendRow sanitizes every field and appends one CSV record. The write
// happens under the logger mutex so concurrent callers never interleave
// partial rows.
func (l *Logger) appendRow(path string, row []string) error {
	sanitized := make([]string, len(row))
	for i, field := range row {
		sanitized[i] = l.sanitizeField(field)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", filepath.Base(path), err)
	}

	w := csv.NewWriter(f)
	writeErr := w.Write(sanitized)
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}

	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("append log %s: %w", filepath.Base(path), writeErr)
	}
	return nil
}

// LogMetrics appends one row to metrics.csv.
func (l *Logger) LogMetrics(model string, latencyMs, promptTokens, completionTokens, totalTokens int, costUSD float64, technique string, success bool) error {
	row := []string{
		timestamp(),
		model,
		strconv.Itoa(latencyMs),
		strconv.Itoa(promptTokens),
		strconv.Itoa(completionTokens),
		strconv.Itoa(totalTokens),
		strconv.FormatFloat(costUSD, 'f', -1, 64),
		technique,
		strconv.FormatBool(success),
	}
	return l.appendRow(l.metricsPath, row)
}

// LogTracker appends a metrics row taken from a finished Tracker.
func (l *Logger) LogTracker(t *metrics.Tracker, technique string, success bool) error {
	return l.LogMetrics(
		t.Model(), t.LatencyMs(),
		t.PromptTokens(), t.CompletionTokens(), t.TotalTokens(),
		t.Cost(), technique, success,
	)
}

// LogError appends one row to errors.csv. Empty optional fields (model,
// userQuestion, stackTrace) are stored as "N/A", never left blank.
func (l *Logger) LogError(errorType, errorMessage, model, userQuestion, stackTrace string) error {
	row := []string{
		timestamp(),
		errorType,
		errorMessage,
		orMissing(model),
		orMissing(userQuestion),
		orMissing(stackTrace),
	}
	return l.appendRow(l.errorsPath, row)
}

// LogAdversarial appends one row to adversarial.csv with the pattern
// descriptions joined by " | " and a count equal to their number.
func (l *Logger) LogAdversarial(userQuestion string, patterns []string) error {
	row := []string{
		timestamp(),
		userQuestion,
		strings.Join(patterns, " | "),
		strconv.Itoa(len(patterns)),
	}
	return l.appendRow(l.adversarialPath, row)
}

// Stats re-reads each table and returns its data-row count. Only rows
// that reached disk are counted.
func (l *Logger) Stats() (Stats, error) {
	var s Stats
	var err error
	if s.MetricsCount, err = countDataRows(l.metricsPath); err != nil {
		return Stats{}, err
	}
	if s.ErrorCount, err = countDataRows(l.errorsPath); err != nil {
		return Stats{}, err
	}
	if s.AdversarialCount, err = countDataRows(l.adversarialPath); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func countDataRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open log %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read log %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	return len(records) - 1, nil
}

// timestamp returns the current local time in ISO-8601 form.
func timestamp() string {
	return time.Now().Format("2006-01-02T15:04:05.000000")
}

func orMissing(s string) string {
	if s == "" {
		return missingField
	}
	return s
}
