package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/pagenook/notegraph/internal/model"
)

// SearchRepo serves the read-only retrieval queries. It holds no write
// locks and can run concurrently with builds.
type SearchRepo struct {
	db *sql.DB
}

func NewSearchRepo(db *sql.DB) *SearchRepo {
	return &SearchRepo{db: db}
}

// TopChunks returns the topK most similar chunks among those reachable from
// the user through its pages. The user filter lives in the query itself;
// rows for other tenants are never even scanned into the result.
func (r *SearchRepo) TopChunks(ctx context.Context, userID string, embedding []float32, topK int) ([]model.ScoredChunk, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.page_id, p.title, c.ordinal, c.content,
		       1 - (c.embedding <=> $2) AS score
		FROM graph_chunks c
		JOIN graph_pages p ON p.id = c.page_id
		WHERE p.user_id = $1
		ORDER BY c.embedding <=> $2
		LIMIT $3
	`, userID, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []model.ScoredChunk
	for rows.Next() {
		var hit model.ScoredChunk
		if err := rows.Scan(&hit.ChunkID, &hit.PageID, &hit.PageTitle, &hit.Ordinal, &hit.Content, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// NeighborWindow walks the next-chunk chain up to radius hops in both
// directions from a hit and returns the window, hit included, in ordinal
// order. The chain never crosses pages, so the window stays on the hit's page.
func (r *SearchRepo) NeighborWindow(ctx context.Context, chunkID string, radius int) ([]model.ContextChunk, error) {
	if radius < 0 {
		radius = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		WITH RECURSIVE forward AS (
			SELECT c.id, c.ordinal, c.content, 0 AS depth
			FROM graph_chunks c WHERE c.id = $1
			UNION ALL
			SELECT c.id, c.ordinal, c.content, f.depth + 1
			FROM forward f
			JOIN graph_chunk_edges e ON e.from_chunk = f.id
			JOIN graph_chunks c ON c.id = e.to_chunk
			WHERE f.depth < $2
		), backward AS (
			SELECT c.id, c.ordinal, c.content, 0 AS depth
			FROM graph_chunks c WHERE c.id = $1
			UNION ALL
			SELECT c.id, c.ordinal, c.content, b.depth + 1
			FROM backward b
			JOIN graph_chunk_edges e ON e.to_chunk = b.id
			JOIN graph_chunks c ON c.id = e.from_chunk
			WHERE b.depth < $2
		)
		SELECT DISTINCT ordinal, content
		FROM (SELECT ordinal, content FROM forward
		      UNION ALL
		      SELECT ordinal, content FROM backward) w
		ORDER BY ordinal
	`, chunkID, radius)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var window []model.ContextChunk
	for rows.Next() {
		var chunk model.ContextChunk
		if err := rows.Scan(&chunk.Ordinal, &chunk.Content); err != nil {
			return nil, err
		}
		window = append(window, chunk)
	}
	return window, rows.Err()
}

// CountChunks reports how many chunks a page currently has. Used by the
// maintenance CLI to sanity-check a finished build.
func (r *SearchRepo) CountChunks(ctx context.Context, pageID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM graph_chunks WHERE page_id = $1`, pageID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}
