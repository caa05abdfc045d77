package models

// RuleCategory classifies an adversarial detection rule.
type RuleCategory string

const (
	CategoryInjection        RuleCategory = "injection"
	CategorySensitiveInfo    RuleCategory = "sensitive_info"
	CategoryRoleManipulation RuleCategory = "role_manipulation"
)

// Label returns the human-readable category label used in audit rows.
func (c RuleCategory) Label() string {
	switch c {
	case CategoryInjection:
		return "Prompt injection"
	case CategorySensitiveInfo:
		return "Sensitive info request"
	case CategoryRoleManipulation:
		return "Role manipulation"
	default:
		return string(c)
	}
}

// MatchedRule identifies a single detection rule that fired.
type MatchedRule struct {
	Category RuleCategory `json:"category"`
	Pattern  string       `json:"pattern"`
}

// Description returns the "<label>: <pattern>" form stored in the
// adversarial log.
func (m MatchedRule) Description() string {
	return m.Category.Label() + ": " + m.Pattern
}

// DetectionResult is the outcome of screening one input. It is immutable
// once produced; callers log it or act on it, never mutate it.
type DetectionResult struct {
	Adversarial bool          `json:"adversarial"`
	Matches     []MatchedRule `json:"matches,omitempty"`
}

// Descriptions returns match descriptions in evaluation order.
func (r DetectionResult) Descriptions() []string {
	out := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = m.Description()
	}
	return out
}
