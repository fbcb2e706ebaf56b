package cluster

import (
	"strings"
	"unicode"
)

// stopWords is the static stop list §4.3 removes from keyword sets.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "with": true,
	"this": true, "from": true, "have": true, "has": true, "are": true,
	"was": true, "were": true, "will": true, "would": true, "could": true,
	"should": true, "about": true, "into": true, "over": true, "after": true,
	"before": true, "their": true, "they": true, "its": true, "his": true,
	"her": true, "but": true, "not": true, "all": true, "can": true,
	"been": true, "than": true, "then": true, "when": true, "what": true,
	"which": true, "who": true, "whom": true, "also": true, "more": true,
	"most": true, "some": true, "such": true, "only": true, "other": true,
	"said": true, "says": true, "new": true, "how": true, "why": true,
}

// ExtractKeywords lower-cases title+excerpt, splits on non-alphanumerics,
// drops stop words, and keeps tokens of length >= 3 or purely-numeric
// tokens of length >= 2, per §4.3 step 1.
func ExtractKeywords(title, excerpt string) []string {
	combined := title + " " + excerpt
	tokens := splitAlnum(strings.ToLower(combined))

	seen := make(map[string]bool)
	var keywords []string
	for _, tok := range tokens {
		if tok == "" || stopWords[tok] {
			continue
		}
		if isNumeric(tok) {
			if len(tok) < 2 {
				continue
			}
		} else if len(tok) < 3 {
			continue
		}
		if !seen[tok] {
			seen[tok] = true
			keywords = append(keywords, tok)
		}
	}
	return keywords
}

// ExtractEntities collects tokens (or runs of tokens) from the original
// title that begin uppercase and are not sentence-initial, per §4.3 step 2.
// Consecutive capitalised words are merged into one multi-token entity
// (e.g. "European Central Bank").
func ExtractEntities(title string) []string {
	words := strings.Fields(title)
	var entities []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			entities = append(entities, strings.Join(current, " "))
			current = nil
		}
	}

	for i, w := range words {
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed == "" {
			flush()
			continue
		}
		if i == 0 {
			// Sentence-initial capitalisation doesn't count as an entity signal.
			continue
		}
		if isCapitalized(trimmed) {
			current = append(current, trimmed)
		} else {
			flush()
		}
	}
	flush()
	return entities
}

// NormalizeTitle lower-cases, strips punctuation, and collapses whitespace,
// per §4.3 step 3.
func NormalizeTitle(title string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func isCapitalized(s string) bool {
	r := []rune(s)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

func splitAlnum(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
