package model

// SourcePage is a page as served by the upstream page content store.
// Text is already stripped to plain text.
type SourcePage struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	UpdatedAt int64  `json:"updated_at"`
}
