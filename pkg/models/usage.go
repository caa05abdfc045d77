package models

import "time"

// UsageRecord tracks one screened request in the usage archive.
type UsageRecord struct {
	ID               int64     `json:"id"`
	Model            string    `json:"model"`
	Technique        string    `json:"technique"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        int       `json:"latency_ms"`
	CostUSD          float64   `json:"cost_usd"`
	Success          bool      `json:"success"`
	CreatedAt        time.Time `json:"created_at"`
}

// AdversarialEvent records one blocked request in the usage archive.
type AdversarialEvent struct {
	ID           int64     `json:"id"`
	Question     string    `json:"question"`
	Patterns     string    `json:"patterns"`
	PatternCount int       `json:"pattern_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageSummary aggregates usage across requests for one model.
type UsageSummary struct {
	Model        string  `json:"model"`
	RequestCount int     `json:"request_count"`
	Failures     int     `json:"failures"`
	TotalPrompt  int     `json:"total_prompt"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}
