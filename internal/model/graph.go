package model

// PageMeta is the Page node payload persisted alongside its chunks.
type PageMeta struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt int64  `json:"updated_at"`
}

// Chunk is one ordered segment of a page's text, the unit of embedding
// and retrieval. Ordinals are contiguous from zero within a page.
type Chunk struct {
	ID         string    `json:"id"`
	PageID     string    `json:"page_id"`
	Ordinal    int       `json:"ordinal"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	Embedding  []float32 `json:"embedding,omitempty"`
}
