package models

// SearchResult is a single ranked chunk hit.
type SearchResult struct {
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Similarity float64   `json:"similarity"`
	Document   *Document `json:"document"`
	Rank       int       `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query,omitempty"`
}
