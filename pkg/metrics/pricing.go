package metrics

// ModelPricing holds USD rates per 1K tokens for one model.
type ModelPricing struct {
	PromptPricePer1K     float64 `yaml:"prompt_price_per_1k" json:"prompt_price_per_1k"`
	CompletionPricePer1K float64 `yaml:"completion_price_per_1k" json:"completion_price_per_1k"`
}

// DefaultPricingKey is the table entry used for models without their own.
const DefaultPricingKey = "default"

// Approximate OpenRouter rates, USD per 1K tokens.
func builtinPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"openai/gpt-3.5-turbo":      {PromptPricePer1K: 0.0005, CompletionPricePer1K: 0.0015},
		"openai/gpt-4":              {PromptPricePer1K: 0.03, CompletionPricePer1K: 0.06},
		"openai/gpt-4-turbo":        {PromptPricePer1K: 0.01, CompletionPricePer1K: 0.03},
		"anthropic/claude-3-haiku":  {PromptPricePer1K: 0.00025, CompletionPricePer1K: 0.00125},
		"anthropic/claude-3-sonnet": {PromptPricePer1K: 0.003, CompletionPricePer1K: 0.015},
		"anthropic/claude-3-opus":   {PromptPricePer1K: 0.015, CompletionPricePer1K: 0.075},
		"meta-llama/llama-3-8b":     {PromptPricePer1K: 0.0001, CompletionPricePer1K: 0.0001},
		DefaultPricingKey:           {PromptPricePer1K: 0.001, CompletionPricePer1K: 0.002},
	}
}

// PricingTable maps model identifiers to rates. Lookups for unknown
// models resolve to the default entry, never an error.
type PricingTable struct {
	entries map[string]ModelPricing
}

// DefaultPricingTable returns the built-in table.
func DefaultPricingTable() *PricingTable {
	return &PricingTable{entries: builtinPricing()}
}

// NewPricingTable returns the built-in table with overrides merged on
// top. Overriding the "default" key changes the fallback rate.
func NewPricingTable(overrides map[string]ModelPricing) *PricingTable {
	entries := builtinPricing()
	for model, p := range overrides {
		entries[model] = p
	}
	return &PricingTable{entries: entries}
}

// Lookup returns rates for a model, falling back to the default entry.
func (t *PricingTable) Lookup(model string) ModelPricing {
	if p, ok := t.entries[model]; ok {
		return p
	}
	return t.entries[DefaultPricingKey]
}
