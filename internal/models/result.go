package models

// SearchResult is a single ranked hit. Score is the fused score; the component
// scores are kept so a ranking can be audited by the caller.
type SearchResult struct {
	Path         string  `json:"path"`
	Score        float64 `json:"score"`
	BaseScore    float64 `json:"base_score"`
	TitleScore   float64 `json:"title_score"`
	RecencyScore float64 `json:"recency_score"`
	ChunkIndex   int     `json:"chunk_index"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	Total     int            `json:"total"`
	QueryTime int64          `json:"query_time_ms"`
	Query     string         `json:"query"`
}
