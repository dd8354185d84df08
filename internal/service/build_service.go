package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/pagenook/notegraph/internal/ai"
	"github.com/pagenook/notegraph/internal/chunker"
	"github.com/pagenook/notegraph/internal/model"
	"github.com/pagenook/notegraph/internal/pagestore"
	appErr "github.com/pagenook/notegraph/internal/pkg/errors"
	"github.com/pagenook/notegraph/internal/repo"
	"github.com/pagenook/notegraph/internal/taskqueue"
)

// Embedder is the slice of the embedding client the services need.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// EmbedderFactory builds an embedding client around a caller-supplied
// provider credential. Credentials are used for the one run and never stored.
type EmbedderFactory func(credential string) (Embedder, error)

// GraphSession is one build job's pinned handle on the graph store.
type GraphSession interface {
	ReplacePageChunks(ctx context.Context, userID string, page model.PageMeta, chunks []model.Chunk) error
	RemovePage(ctx context.Context, pageID string) error
	ListPageIDs(ctx context.Context, userID string) ([]string, error)
	Close() error
}

type GraphStore interface {
	Acquire(ctx context.Context) (GraphSession, error)
}

// GraphStoreFromRepo adapts the concrete repo to the session interface.
func GraphStoreFromRepo(r *repo.GraphRepo) GraphStore {
	return graphStoreAdapter{repo: r}
}

type graphStoreAdapter struct {
	repo *repo.GraphRepo
}

func (a graphStoreAdapter) Acquire(ctx context.Context) (GraphSession, error) {
	return a.repo.Acquire(ctx)
}

type statusStore interface {
	TryStart(ctx context.Context, userID string) (*model.BuildStatus, bool, error)
	Get(ctx context.Context, userID string) (*model.BuildStatus, error)
	SetStep(ctx context.Context, userID, step, details string) error
	SetCompleted(ctx context.Context, userID string) error
	SetError(ctx context.Context, userID, message string) error
}

type submitter interface {
	Submit(task taskqueue.Task) error
}

// BuildService is the per-user index build state machine. A trigger flips
// the status record from a terminal state to building with a guarded
// update, hands the run to the worker pool and returns immediately.
type BuildService struct {
	status      statusStore
	graph       GraphStore
	pages       pagestore.Store
	splitter    *chunker.Chunker
	newEmbedder EmbedderFactory
	queue       submitter
}

func NewBuildService(status *repo.StatusRepo, graph *repo.GraphRepo, pages pagestore.Store,
	splitter *chunker.Chunker, factory EmbedderFactory, queue *taskqueue.Pool) *BuildService {
	return &BuildService{
		status:      status,
		graph:       GraphStoreFromRepo(graph),
		pages:       pages,
		splitter:    splitter,
		newEmbedder: factory,
		queue:       queue,
	}
}

// Trigger starts a build for the user unless one is already running, in
// which case the current record comes back unchanged and no second job
// starts. The caller is acknowledged before any indexing work happens.
func (s *BuildService) Trigger(ctx context.Context, userID, credential string) (*model.BuildStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErr.ErrInvalid
	}
	record, acquired, err := s.status.TryStart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return record, nil
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		if err := s.status.SetError(ctx, userID, appErr.ErrBadCredential.Error()); err != nil {
			return nil, err
		}
		return s.status.Get(ctx, userID)
	}
	task := taskqueue.Task{
		Name: "rag_build:" + userID,
		Run: func(taskCtx context.Context) error {
			return s.runBuild(taskCtx, userID, credential)
		},
	}
	if err := s.queue.Submit(task); err != nil {
		if serr := s.status.SetError(ctx, userID, "build not scheduled: "+err.Error()); serr != nil {
			return nil, serr
		}
		return nil, err
	}
	return record, nil
}

// Status returns the pollable record; unknown users read as idle.
func (s *BuildService) Status(ctx context.Context, userID string) (*model.BuildStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, appErr.ErrInvalid
	}
	return s.status.Get(ctx, userID)
}

// RunForUser drives one build synchronously. The maintenance CLI uses it;
// the HTTP trigger goes through the queue instead.
func (s *BuildService) RunForUser(ctx context.Context, userID, credential string) error {
	if strings.TrimSpace(userID) == "" {
		return appErr.ErrInvalid
	}
	_, acquired, err := s.status.TryStart(ctx, userID)
	if err != nil {
		return err
	}
	if !acquired {
		return appErr.ErrBuildRunning
	}
	if strings.TrimSpace(credential) == "" {
		_ = s.status.SetError(ctx, userID, appErr.ErrBadCredential.Error())
		return appErr.ErrBadCredential
	}
	return s.runBuild(ctx, userID, strings.TrimSpace(credential))
}

func (s *BuildService) runBuild(ctx context.Context, userID, credential string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID))
	if err := s.buildIndex(ctx, userID, credential); err != nil {
		logger.Error("index build failed", zap.Error(err))
		if serr := s.status.SetError(ctx, userID, err.Error()); serr != nil {
			logger.Error("record build error failed", zap.Error(serr))
		}
		return err
	}
	if err := s.status.SetCompleted(ctx, userID); err != nil {
		logger.Error("record build completion failed", zap.Error(err))
		return err
	}
	logger.Info("index build completed")
	return nil
}

func (s *BuildService) buildIndex(ctx context.Context, userID, credential string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("user_id", userID))
	embedder, err := s.newEmbedder(credential)
	if err != nil {
		return err
	}

	session, err := s.graph.Acquire(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	s.step(ctx, userID, "loading pages", "")
	pages, err := s.pages.ListPages(ctx, userID)
	if err != nil {
		return err
	}
	indexed, err := session.ListPageIDs(ctx, userID)
	if err != nil {
		return err
	}

	current := make(map[string]struct{}, len(pages))
	for i, page := range pages {
		current[page.ID] = struct{}{}
		chunks := s.splitter.Split(page.Text)
		s.step(ctx, userID, "embedding page",
			fmt.Sprintf("%s (%d/%d, %d chunks)", page.Title, i+1, len(pages), len(chunks)))
		if len(chunks) > 0 {
			texts := make([]string, 0, len(chunks))
			for _, chunk := range chunks {
				texts = append(texts, chunk.Content)
			}
			vectors, err := embedder.EmbedTexts(ctx, texts, ai.TaskTypeDocument)
			if err != nil {
				return err
			}
			for j := range chunks {
				chunks[j].PageID = page.ID
				chunks[j].Embedding = vectors[j]
			}
		}
		meta := model.PageMeta{ID: page.ID, Title: page.Title, UpdatedAt: page.UpdatedAt}
		if err := session.ReplacePageChunks(ctx, userID, meta, chunks); err != nil {
			return err
		}
		s.step(ctx, userID, "page indexed",
			fmt.Sprintf("%s (%d/%d)", page.Title, i+1, len(pages)))
		logger.Debug("page indexed", zap.String("page_id", page.ID), zap.Int("chunks", len(chunks)))
	}

	for _, pageID := range indexed {
		if _, ok := current[pageID]; ok {
			continue
		}
		if err := session.RemovePage(ctx, pageID); err != nil {
			return err
		}
		s.step(ctx, userID, "pruned removed page", pageID)
	}
	return nil
}

func (s *BuildService) step(ctx context.Context, userID, step, details string) {
	if err := s.status.SetStep(ctx, userID, step, details); err != nil {
		logutil.GetLogger(ctx).Warn("publish progress failed",
			zap.String("user_id", userID), zap.String("step", step), zap.Error(err))
	}
}
