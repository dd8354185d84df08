package model

// ScoredChunk is a similarity hit returned by the vector search.
type ScoredChunk struct {
	ChunkID   string  `json:"chunk_id"`
	PageID    string  `json:"page_id"`
	PageTitle string  `json:"page_title"`
	Ordinal   int     `json:"ordinal"`
	Content   string  `json:"content"`
	Score     float64 `json:"score"`
}

// ContextChunk is one chunk inside an expanded context window.
type ContextChunk struct {
	Ordinal int    `json:"ordinal"`
	Content string `json:"content"`
}

// ContextWindow is the per-page retrieval result: the hit and its
// sequential neighbors merged into one ordinal-ordered run of text.
type ContextWindow struct {
	PageID    string         `json:"page_id"`
	PageTitle string         `json:"page_title"`
	Score     float64        `json:"score"`
	Chunks    []ContextChunk `json:"chunks"`
}
