package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/pagenook/notegraph/internal/model"
	"github.com/pagenook/notegraph/internal/pkg/dbutil"
	appErr "github.com/pagenook/notegraph/internal/pkg/errors"
)

// GraphRepo owns the persisted knowledge graph: user, page and chunk nodes
// plus the next-chunk edges. Writes go through a GraphSession holding a
// dedicated connection for the lifetime of one build job.
type GraphRepo struct {
	db *sql.DB
}

func NewGraphRepo(db *sql.DB) *GraphRepo {
	return &GraphRepo{db: db}
}

// Acquire pins one connection for a build job. The caller must Close it on
// every exit path.
func (r *GraphRepo) Acquire(ctx context.Context) (*GraphSession, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %v", appErr.ErrGraphWrite, err)
	}
	return &GraphSession{conn: conn}, nil
}

// RemoveUserSubgraph deletes a user node and everything reachable from it.
// Account deletion calls this; page and chunk rows go with the cascade.
func (r *GraphRepo) RemoveUserSubgraph(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM graph_users WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("%w: remove user subgraph: %v", appErr.ErrGraphWrite, err)
	}
	return nil
}

type GraphSession struct {
	conn *sql.Conn
}

func (s *GraphSession) Close() error {
	return s.conn.Close()
}

// ReplacePageChunks rewrites one page's subgraph in a single transaction:
// merge user and page, drop the page's old chunks and edges, insert the new
// chunk chain. Replaying the same content yields the same subgraph; a failed
// transaction leaves the prior state intact.
func (s *GraphSession) ReplacePageChunks(ctx context.Context, userID string, page model.PageMeta, chunks []model.Chunk) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", appErr.ErrGraphWrite, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO graph_users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("%w: merge user: %v", appErr.ErrGraphWrite, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO graph_pages (id, user_id, title, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, updated_at = EXCLUDED.updated_at
	`, page.ID, userID, page.Title, page.UpdatedAt); err != nil {
		return fmt.Errorf("%w: merge page: %v", appErr.ErrGraphWrite, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM graph_chunks WHERE page_id = $1`, page.ID); err != nil {
		return fmt.Errorf("%w: clear chunks: %v", appErr.ErrGraphWrite, err)
	}

	prevID := ""
	for _, chunk := range chunks {
		id := uuid.NewString()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO graph_chunks (id, page_id, ordinal, content, token_count, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, page.ID, chunk.Ordinal, chunk.Content, chunk.TokenCount, pgvector.NewVector(chunk.Embedding)); err != nil {
			if dbutil.IsConflict(err) {
				return fmt.Errorf("%w: duplicate ordinal %d on page %s", appErr.ErrGraphWrite, chunk.Ordinal, page.ID)
			}
			return fmt.Errorf("%w: insert chunk %d: %v", appErr.ErrGraphWrite, chunk.Ordinal, err)
		}
		if prevID != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO graph_chunk_edges (from_chunk, to_chunk) VALUES ($1, $2)
			`, prevID, id); err != nil {
				return fmt.Errorf("%w: link chunk %d: %v", appErr.ErrGraphWrite, chunk.Ordinal, err)
			}
		}
		prevID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", appErr.ErrGraphWrite, err)
	}
	return nil
}

// RemovePage prunes a page no longer present upstream. Chunks and edges
// follow via cascade.
func (s *GraphSession) RemovePage(ctx context.Context, pageID string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM graph_pages WHERE id = $1`, pageID); err != nil {
		return fmt.Errorf("%w: remove page: %v", appErr.ErrGraphWrite, err)
	}
	return nil
}

// ListPageIDs returns the pages currently indexed for a user.
func (s *GraphSession) ListPageIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM graph_pages WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list pages: %v", appErr.ErrGraphWrite, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan page id: %v", appErr.ErrGraphWrite, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
