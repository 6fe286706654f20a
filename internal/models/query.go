package models

// ProcessedQuery is the output of query processing: normalized tokens, quoted
// phrases (case preserved), and the expanded token list. No synonym expansion
// is performed, so ExpandedTokens always equals Tokens.
type ProcessedQuery struct {
	Tokens         []string `json:"tokens"`
	Phrases        []string `json:"phrases"`
	ExpandedTokens []string `json:"expanded_tokens"`
}
