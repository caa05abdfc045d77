package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/promptgate-ai/promptgate/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, models.UsageRecord{
		Model: "openai/gpt-4", Technique: "few_shot",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		LatencyMs: 320, CostUSD: 0.006, Success: true, CreatedAt: now,
	})
	_ = tr.Record(ctx, models.UsageRecord{
		Model: "openai/gpt-4", Technique: "few_shot",
		PromptTokens: 200, CompletionTokens: 0, TotalTokens: 200,
		LatencyMs: 150, CostUSD: 0.006, Success: false, CreatedAt: now,
	})

	summaries, err := tr.Summary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	if s.RequestCount != 2 || s.Failures != 1 {
		t.Errorf("expected 2 requests with 1 failure, got %d/%d", s.RequestCount, s.Failures)
	}
	if s.TotalTokens != 350 {
		t.Errorf("expected 350 total tokens, got %d", s.TotalTokens)
	}
}

func TestSummaryModelFilter(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	_ = tr.Record(ctx, models.UsageRecord{Model: "a", TotalTokens: 1, Success: true})
	_ = tr.Record(ctx, models.UsageRecord{Model: "b", TotalTokens: 1, Success: true})

	summaries, err := tr.Summary(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].Model != "a" {
		t.Errorf("expected only model a, got %v", summaries)
	}
}

func TestTotalCost(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_ = tr.Record(ctx, models.UsageRecord{
			Model: "m", CostUSD: 0.01, Success: true, CreatedAt: now,
		})
	}

	total, err := tr.TotalCost(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if total < 0.029 || total > 0.031 {
		t.Errorf("expected ~0.03, got %g", total)
	}
}

func TestRecordAdversarialAndRecent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		_ = tr.RecordAdversarial(ctx, models.AdversarialEvent{
			Question:     "bad question",
			Patterns:     "Prompt injection: p",
			PatternCount: 1,
			CreatedAt:    now.Add(time.Duration(i) * time.Second),
		})
	}

	events, err := tr.RecentAdversarial(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].PatternCount != 1 || events[0].Question != "bad question" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestRecentAdversarialEmpty(t *testing.T) {
	tr := newTestTracker(t)

	events, err := tr.RecentAdversarial(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}
