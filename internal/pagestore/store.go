package pagestore

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/pagenook/notegraph/internal/model"
	"github.com/pagenook/notegraph/internal/pkg/dbutil"
)

// Store is the upstream page content collaborator. The indexer only reads
// from it; page CRUD lives elsewhere.
type Store interface {
	ListPages(ctx context.Context, userID string) ([]model.SourcePage, error)
}

// SQLStore reads pages from the shared source_pages table. Editor content
// is stored as HTML and stripped to plain text on the way out.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) ListPages(ctx context.Context, userID string) ([]model.SourcePage, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "mtime desc",
	}
	query, args, err := builder.BuildSelect("source_pages", where, []string{"id", "user_id", "title", "content", "mtime"})
	if err != nil {
		return nil, err
	}
	query, args = dbutil.Finalize(query, args)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pages []model.SourcePage
	for rows.Next() {
		var page model.SourcePage
		var content string
		if err := rows.Scan(&page.ID, &page.UserID, &page.Title, &content, &page.UpdatedAt); err != nil {
			return nil, err
		}
		page.Text = StripHTML(content)
		pages = append(pages, page)
	}
	return pages, rows.Err()
}
