package core

// SearchResult represents one retrieved memory item with its fused relevance
// score as reported by the memory server.
type SearchResult struct {
	ID      string
	Content string
	Score   float64
}
