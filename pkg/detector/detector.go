// Package detector screens free-text input for adversarial intent using
// curated regular-expression rule tables. Detection is deterministic and
// stateless: the same input always yields the same result, and no state is
// carried between calls.
package detector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/promptgate-ai/promptgate/pkg/models"
)

// SentinelMessage is the fixed payload returned to callers in place of
// any generation output when input is flagged.
const SentinelMessage = "Detected adversarial prompt"

// rule is one compiled detection pattern.
type rule struct {
	category models.RuleCategory
	pattern  string
	re       *regexp.Regexp
}

// Detector evaluates input text against all rules in all categories.
// It holds no mutable state and is safe for concurrent use.
type Detector struct {
	rules []rule
}

// New creates a Detector with the built-in rule tables.
func New() *Detector {
	d, err := NewWithRules(nil)
	if err != nil {
		// Built-in patterns are compile-checked by tests; an error here
		// means a broken table, not bad input.
		panic(err)
	}
	return d
}

// NewWithRules creates a Detector with the built-in tables plus extra
// patterns appended per category. Extra patterns come from configuration
// and may fail to compile.
func NewWithRules(extra map[models.RuleCategory][]string) (*Detector, error) {
	var rules []rule
	for _, table := range builtinTables() {
		patterns := table.patterns
		patterns = append(patterns, extra[table.category]...)
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("compile %s rule %q: %w", table.category, p, err)
			}
			rules = append(rules, rule{category: table.category, pattern: p, re: re})
		}
	}
	return &Detector{rules: rules}, nil
}

// Detect scans the lower-cased input against every rule in every category.
// All matches are collected, not just the first, so audit rows carry the
// complete picture of what fired.
func (d *Detector) Detect(text string) models.DetectionResult {
	lower := strings.ToLower(text)

	var matches []models.MatchedRule
	for _, r := range d.rules {
		if r.re.MatchString(lower) {
			matches = append(matches, models.MatchedRule{
				Category: r.category,
				Pattern:  r.pattern,
			})
		}
	}

	return models.DetectionResult{
		Adversarial: len(matches) > 0,
		Matches:     matches,
	}
}

// SafeResponse returns the sentinel payload callers send instead of
// generation output when input is adversarial.
func SafeResponse() map[string]any {
	return map[string]any{"error": SentinelMessage}
}
