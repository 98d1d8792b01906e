// Package command classifies free-text user commands into intents and
// implements the model-backed edit-field path. Text may come from typing
// or speech transcription; the interpreter does not care which.
package command

import (
	"strings"
)

// IntentKind tags a classified command.
type IntentKind int

const (
	// IntentUnknown means no keyword rule matched.
	IntentUnknown IntentKind = iota
	// IntentSearchCompetitor requests a competitor new-price search.
	IntentSearchCompetitor
	// IntentSearchUsed requests a used-marketplace price search.
	IntentSearchUsed
	// IntentUpdateAll requests a competitor refresh of every product.
	IntentUpdateAll
	// IntentEdit requests a model-proposed field mutation.
	IntentEdit
)

func (k IntentKind) String() string {
	switch k {
	case IntentSearchCompetitor:
		return "search_competitor"
	case IntentSearchUsed:
		return "search_used"
	case IntentUpdateAll:
		return "update_all"
	case IntentEdit:
		return "edit"
	default:
		return "unknown"
	}
}

// Intent is the classified command, retaining the raw text for the edit
// path.
type Intent struct {
	Kind IntentKind
	Raw  string
}

// Keyword tables, matched in order. Edit verbs outrank search keywords
// except for the explicit update-all phrasing.
var (
	updateAllKeywords  = []string{"update all", "refresh all", "обновить все"}
	editKeywords       = []string{"change", "set ", "update ", "rename", "измени", "установи"}
	usedKeywords       = []string{"used", "second-hand", "secondhand", "avito", "marketplace", "б/у", "авито"}
	competitorKeywords = []string{"competitor", "competitors", "search price", "find price", "price search", "поиск цен", "найди цену"}
)

// Interpret classifies a command by ordered keyword matching on the
// lower-cased text.
func Interpret(text string) Intent {
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)
	if lower == "" {
		return Intent{Kind: IntentUnknown, Raw: raw}
	}

	if containsAny(lower, updateAllKeywords) {
		return Intent{Kind: IntentUpdateAll, Raw: raw}
	}
	if containsAny(lower, editKeywords) {
		return Intent{Kind: IntentEdit, Raw: raw}
	}
	if containsAny(lower, usedKeywords) {
		return Intent{Kind: IntentSearchUsed, Raw: raw}
	}
	if containsAny(lower, competitorKeywords) {
		return Intent{Kind: IntentSearchCompetitor, Raw: raw}
	}
	return Intent{Kind: IntentUnknown, Raw: raw}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
