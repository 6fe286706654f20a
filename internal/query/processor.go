// Package query parses free-text search queries into normalized tokens and phrases.
package query

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/notevault/vaultindex/internal/models"
)

// stopwords are filtered from queries; they carry no ranking signal.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "about": true,
	"and": true, "or": true, "but": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "do": true, "does": true, "did": true,
	"what": true, "which": true, "who": true, "how": true, "when": true, "where": true,
	"will": true, "would": true, "can": true, "could": true, "should": true,
	"have": true, "has": true, "had": true,
	"i": true, "you": true, "we": true, "they": true, "my": true, "your": true,
}

// negations would be caught by the stopword filter but materially change query
// semantics, so they are always preserved.
var negations = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "except": true,
}

var phraseRegex = regexp.MustCompile(`"([^"]+)"`)

// Processor tokenizes queries for the title/term-boost stage of ranking.
type Processor struct{}

// NewProcessor creates a query processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Process parses q into tokens, quoted phrases, and expanded tokens.
// Double-quoted spans are extracted verbatim (case preserved) and inserted into
// the token sequence as single multi-word units. Stopwords are removed, with
// negation words kept. ExpandedTokens equals Tokens; synonym expansion is out
// of scope.
func (p *Processor) Process(q string) *models.ProcessedQuery {
	result := &models.ProcessedQuery{
		Tokens:  []string{},
		Phrases: []string{},
	}

	remaining := q
	for _, match := range phraseRegex.FindAllStringSubmatch(q, -1) {
		phrase := strings.TrimSpace(match[1])
		if phrase == "" {
			continue
		}
		result.Phrases = append(result.Phrases, phrase)
		result.Tokens = append(result.Tokens, phrase)
	}
	remaining = phraseRegex.ReplaceAllString(remaining, " ")

	for _, word := range strings.Fields(remaining) {
		token := normalizeToken(word)
		if token == "" {
			continue
		}
		if stopwords[token] && !negations[token] {
			continue
		}
		result.Tokens = append(result.Tokens, token)
	}

	result.ExpandedTokens = result.Tokens
	return result
}

// normalizeToken lowercases a token and strips punctuation from its edges,
// keeping internal punctuation like hyphens.
func normalizeToken(token string) string {
	token = strings.ToLower(token)
	return strings.TrimFunc(token, func(r rune) bool {
		return unicode.IsPunct(r) && r != '-' && r != '_'
	})
}

// NormalizeTitle normalizes a filename for term matching: extension removed,
// common separators replaced with spaces, lowercased.
func NormalizeTitle(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		filename = filename[:idx]
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	filename = strings.ReplaceAll(filename, ".", " ")
	return strings.ToLower(strings.TrimSpace(filename))
}
