package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/pagenook/notegraph/internal/model"
	appErr "github.com/pagenook/notegraph/internal/pkg/errors"
)

type searchStore interface {
	TopChunks(ctx context.Context, userID string, embedding []float32, topK int) ([]model.ScoredChunk, error)
	NeighborWindow(ctx context.Context, chunkID string, radius int) ([]model.ContextChunk, error)
}

// RetrievalService answers context-aware queries: nearest chunks for the
// user, expanded along the next-chunk chain into per-page windows. It is
// read-only and safe to run alongside builds.
type RetrievalService struct {
	search        searchStore
	newEmbedder   EmbedderFactory
	cache         *expirable.LRU[string, []float32]
	defaultTopK   int
	defaultRadius int
}

func NewRetrievalService(search searchStore, factory EmbedderFactory, topK, radius int) *RetrievalService {
	if topK <= 0 {
		topK = 5
	}
	if radius < 0 {
		radius = 0
	}
	return &RetrievalService{
		search:        search,
		newEmbedder:   factory,
		cache:         expirable.NewLRU[string, []float32](4096, nil, 2*time.Hour),
		defaultTopK:   topK,
		defaultRadius: radius,
	}
}

// Retrieve embeds the query, finds the user's topK nearest chunks and
// expands each hit neighborRadius hops along its page's chunk chain.
// Windows from hits on the same page are merged, deduplicated and kept in
// ordinal order; each window carries its best hit's score.
//
// Zero topK and zero neighborRadius mean "use the configured default", so
// callers omitting the JSON fields get the configured behavior. A negative
// neighborRadius is the explicit opt-out that disables expansion.
func (s *RetrievalService) Retrieve(ctx context.Context, userID, query string, topK, neighborRadius int, credential string) ([]model.ContextWindow, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(query) == "" {
		return nil, appErr.ErrInvalid
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}
	if neighborRadius == 0 {
		neighborRadius = s.defaultRadius
	} else if neighborRadius < 0 {
		neighborRadius = 0
	}
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID))

	embedding, err := s.queryEmbedding(ctx, query, credential)
	if err != nil {
		logger.Error("embed query failed", zap.Error(err))
		return nil, err
	}

	hits, err := s.search.TopChunks(ctx, userID, embedding, topK)
	if err != nil {
		logger.Error("similarity search failed", zap.Error(err))
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	type accum struct {
		title  string
		score  float64
		chunks map[int]string
	}
	pages := make(map[string]*accum)
	order := make([]string, 0, len(hits))
	for _, hit := range hits {
		window, err := s.search.NeighborWindow(ctx, hit.ChunkID, neighborRadius)
		if err != nil {
			logger.Error("context expansion failed", zap.String("chunk_id", hit.ChunkID), zap.Error(err))
			return nil, err
		}
		acc, ok := pages[hit.PageID]
		if !ok {
			acc = &accum{title: hit.PageTitle, chunks: make(map[int]string)}
			pages[hit.PageID] = acc
			order = append(order, hit.PageID)
		}
		if hit.Score > acc.score {
			acc.score = hit.Score
		}
		for _, chunk := range window {
			acc.chunks[chunk.Ordinal] = chunk.Content
		}
	}

	windows := make([]model.ContextWindow, 0, len(pages))
	for _, pageID := range order {
		acc := pages[pageID]
		ordinals := make([]int, 0, len(acc.chunks))
		for ordinal := range acc.chunks {
			ordinals = append(ordinals, ordinal)
		}
		sort.Ints(ordinals)
		chunks := make([]model.ContextChunk, 0, len(ordinals))
		for _, ordinal := range ordinals {
			chunks = append(chunks, model.ContextChunk{Ordinal: ordinal, Content: acc.chunks[ordinal]})
		}
		windows = append(windows, model.ContextWindow{
			PageID:    pageID,
			PageTitle: acc.title,
			Score:     acc.score,
			Chunks:    chunks,
		})
	}
	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].Score > windows[j].Score
	})
	logger.Debug("retrieval done", zap.Int("hits", len(hits)), zap.Int("windows", len(windows)))
	return windows, nil
}

func (s *RetrievalService) queryEmbedding(ctx context.Context, query, credential string) ([]float32, error) {
	embedder, err := s.newEmbedder(credential)
	if err != nil {
		return nil, err
	}
	key := s.cacheKey(embedder.ModelName(), query)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}
	embedding, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, embedding)
	return embedding, nil
}

func (s *RetrievalService) cacheKey(modelName, query string) string {
	hash := sha256.Sum256([]byte(query))
	return modelName + ":" + hex.EncodeToString(hash[:])
}
