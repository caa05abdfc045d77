package detector

import "github.com/promptgate-ai/promptgate/pkg/models"

// ruleTable is an ordered list of patterns belonging to one category.
type ruleTable struct {
	category models.RuleCategory
	patterns []string
}

// builtinTables returns the built-in detection rule tables in evaluation
// order. Patterns are matched against lower-cased input, so they are
// written lower-case.
func builtinTables() []ruleTable {
	return []ruleTable{
		{
			category: models.CategoryInjection,
			patterns: []string{
				`ignore\s+.*?\binstructions?\b`,
				`forget\s+.*?\binstructions?\b`,
				`disregard\s+.*?\binstructions?\b`,
				`override\s+.*?\binstructions?\b`,
				`new\s+instructions?:`,
				`system\s+prompt`,
				`reveal\s+(your\s+)?(system|instructions?|prompt)`,
				`show\s+(me\s+)?(your\s+)?(system|instructions?|prompt)`,
				`what\s+(are|is)\s+(your\s+)?(system|instructions?|prompt)`,
			},
		},
		{
			category: models.CategorySensitiveInfo,
			patterns: []string{
				`(api|secret|private)\s+key`,
				`password`,
				`credentials?`,
				`access\s+token`,
				`authentication\s+token`,
				`database\s+connection`,
				`env(ironment)?\s+variable`,
			},
		},
		{
			category: models.CategoryRoleManipulation,
			patterns: []string{
				`you\s+are\s+now`,
				`act\s+as\s+(a\s+)?`,
				`pretend\s+(to\s+be|you\s+are)`,
				`simulate\s+(a\s+)?`,
				`roleplay\s+as`,
			},
		},
	}
}
