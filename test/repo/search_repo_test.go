package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagenook/notegraph/internal/model"
	"github.com/pagenook/notegraph/internal/repo"
	"github.com/pagenook/notegraph/test/testutil"
)

// axisChunks builds chunks whose embeddings lie on distinct axes so cosine
// distance ranks them deterministically against an axis-aligned query.
func axisChunks(axes ...int) []model.Chunk {
	chunks := make([]model.Chunk, 0, len(axes))
	for i, axis := range axes {
		emb := make([]float32, 768)
		emb[axis] = 1
		chunks = append(chunks, model.Chunk{
			Ordinal:    i,
			Content:    "content",
			TokenCount: 1,
			Embedding:  emb,
		})
	}
	return chunks
}

func axisQuery(axis int) []float32 {
	q := make([]float32, 768)
	q[axis] = 1
	return q
}

func seedUserPage(t *testing.T, graph *repo.GraphRepo, userID, pageID string, chunks []model.Chunk) {
	t.Helper()
	ctx := context.Background()
	session, err := graph.Acquire(ctx)
	require.NoError(t, err)
	defer session.Close()
	page := model.PageMeta{ID: pageID, Title: pageID, UpdatedAt: 1}
	require.NoError(t, session.ReplacePageChunks(ctx, userID, page, chunks))
}

func TestSearchRepoTopChunksTenantIsolation(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	graph := repo.NewGraphRepo(db)
	ctx := context.Background()
	require.NoError(t, graph.RemoveUserSubgraph(ctx, "search-user"))
	require.NoError(t, graph.RemoveUserSubgraph(ctx, "other-user"))

	seedUserPage(t, graph, "search-user", "search-page", axisChunks(0, 1, 2))
	seedUserPage(t, graph, "other-user", "other-page", axisChunks(0))

	search := repo.NewSearchRepo(db)
	hits, err := search.TopChunks(ctx, "search-user", axisQuery(0), 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	// Exact-match axis ranks first with cosine similarity 1.
	require.Equal(t, "search-page", hits[0].PageID)
	require.Equal(t, 0, hits[0].Ordinal)
	require.InDelta(t, 1.0, hits[0].Score, 1e-6)
	for _, hit := range hits {
		require.Equal(t, "search-page", hit.PageID)
	}

	hits, err = search.TopChunks(ctx, "search-user", axisQuery(1), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, 1, hits[0].Ordinal)
}

func TestSearchRepoNeighborWindow(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	graph := repo.NewGraphRepo(db)
	ctx := context.Background()
	require.NoError(t, graph.RemoveUserSubgraph(ctx, "window-user"))
	seedUserPage(t, graph, "window-user", "window-page", axisChunks(0, 1, 2, 3, 4, 5))

	search := repo.NewSearchRepo(db)
	hits, err := search.TopChunks(ctx, "window-user", axisQuery(3), 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, 3, hits[0].Ordinal)

	window, err := search.NeighborWindow(ctx, hits[0].ChunkID, 2)
	require.NoError(t, err)
	require.Len(t, window, 5)
	for i, chunk := range window {
		require.Equal(t, i+1, chunk.Ordinal)
	}

	// Radius zero keeps only the hit itself.
	window, err = search.NeighborWindow(ctx, hits[0].ChunkID, 0)
	require.NoError(t, err)
	require.Len(t, window, 1)
	require.Equal(t, 3, window[0].Ordinal)

	// A window near the chain head truncates instead of wrapping.
	hits, err = search.TopChunks(ctx, "window-user", axisQuery(0), 1)
	require.NoError(t, err)
	window, err = search.NeighborWindow(ctx, hits[0].ChunkID, 2)
	require.NoError(t, err)
	require.Len(t, window, 3)
	require.Equal(t, 0, window[0].Ordinal)
}

func TestSearchRepoCountChunks(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	graph := repo.NewGraphRepo(db)
	ctx := context.Background()
	require.NoError(t, graph.RemoveUserSubgraph(ctx, "count-user"))
	seedUserPage(t, graph, "count-user", "count-page", axisChunks(0, 1))

	search := repo.NewSearchRepo(db)
	n, err := search.CountChunks(ctx, "count-page")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
