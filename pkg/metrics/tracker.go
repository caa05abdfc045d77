// Package metrics measures wall-clock latency and estimated USD cost for
// upstream generation calls. Each in-flight request owns its own Tracker,
// so no synchronization is needed.
package metrics

import (
	"math"
	"time"
)

// Tracker records timing and token usage for a single upstream call.
type Tracker struct {
	model   string
	pricing *PricingTable

	startTime time.Time
	endTime   time.Time

	promptTokens     int
	completionTokens int
	totalTokens      int
}

// NewTracker creates a Tracker for the given model using built-in pricing.
func NewTracker(model string) *Tracker {
	return NewTrackerWithPricing(model, DefaultPricingTable())
}

// NewTrackerWithPricing creates a Tracker using a custom pricing table.
func NewTrackerWithPricing(model string, table *PricingTable) *Tracker {
	return &Tracker{model: model, pricing: table}
}

// Start records the wall-clock start time.
func (t *Tracker) Start() {
	t.startTime = time.Now()
}

// Stop records the wall-clock end time. Calling Stop without Start leaves
// latency at zero rather than producing an error.
func (t *Tracker) Stop() {
	t.endTime = time.Now()
}

// SetTokenUsage stores token counts from the provider response.
func (t *Tracker) SetTokenUsage(prompt, completion, total int) {
	t.promptTokens = prompt
	t.completionTokens = completion
	t.totalTokens = total
}

// LatencyMs returns elapsed time in whole milliseconds, or 0 if either
// timestamp is missing.
func (t *Tracker) LatencyMs() int {
	if t.startTime.IsZero() || t.endTime.IsZero() {
		return 0
	}
	return int(math.Round(t.endTime.Sub(t.startTime).Seconds() * 1000))
}

// Cost returns the estimated USD cost rounded to 5 decimal places, using
// the pricing entry for the tracker's model or the default entry.
func (t *Tracker) Cost() float64 {
	p := t.pricing.Lookup(t.model)
	cost := float64(t.promptTokens)/1000*p.PromptPricePer1K +
		float64(t.completionTokens)/1000*p.CompletionPricePer1K
	return math.Round(cost*1e5) / 1e5
}

// Model returns the model identifier the tracker was created with.
func (t *Tracker) Model() string { return t.model }

// PromptTokens returns the recorded prompt token count.
func (t *Tracker) PromptTokens() int { return t.promptTokens }

// CompletionTokens returns the recorded completion token count.
func (t *Tracker) CompletionTokens() int { return t.completionTokens }

// TotalTokens returns the recorded total token count.
func (t *Tracker) TotalTokens() int { return t.totalTokens }

// Summary returns the compact metrics view attached to responses.
func (t *Tracker) Summary() map[string]any {
	return map[string]any{
		"latency_ms":   t.LatencyMs(),
		"tokens_total": t.totalTokens,
		"cost_usd":     t.Cost(),
	}
}

// Full returns the complete metrics view including per-side token counts.
func (t *Tracker) Full() map[string]any {
	return map[string]any{
		"latency_ms":        t.LatencyMs(),
		"tokens_total":      t.totalTokens,
		"tokens_prompt":     t.promptTokens,
		"tokens_completion": t.completionTokens,
		"cost_usd":          t.Cost(),
		"model":             t.model,
	}
}
