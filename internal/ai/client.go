package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	appErr "github.com/pagenook/notegraph/internal/pkg/errors"
)

const (
	// Task types understood by the embedding provider.
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

type ClientConfig struct {
	Model             string
	Dimension         int
	BatchSize         int
	MaxAttempts       int
	Timeout           time.Duration
	Concurrency       int
	RequestsPerMinute int
	RetryBaseDelay    time.Duration
}

// Client drives an embedding provider with batching, a per-call timeout,
// proactive rate limiting and bounded exponential-backoff retries for
// transient failures. Credential and rejection failures are never retried.
type Client struct {
	provider IEmbedProvider
	cfg      ClientConfig
	limiter  *rate.Limiter
}

func NewClient(provider IEmbedProvider, cfg ClientConfig) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}
	return &Client{provider: provider, cfg: cfg, limiter: limiter}
}

func (c *Client) ModelName() string {
	return c.cfg.Model
}

// EmbedTexts embeds every text and returns vectors in input order.
// Batches run with bounded concurrency; one failed batch fails the call.
func (c *Client) EmbedTexts(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		g.Go(func() error {
			vectors, err := c.embedBatch(gctx, texts[start:end], taskType)
			if err != nil {
				return err
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedQuery embeds a single retrieval query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedBatch(ctx, []string{text}, TaskTypeQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.cfg.RetryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		vectors, err := c.provider.EmbedBatch(callCtx, c.cfg.Model, texts, taskType)
		cancel()
		if err == nil {
			if err := c.checkVectors(texts, vectors); err != nil {
				return nil, err
			}
			return vectors, nil
		}
		// A call that outlived its own deadline counts as transient even
		// when the provider did not classify it.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %v", appErr.ErrProviderThrottled, err)
		}
		if !appErr.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: retries exhausted after %d attempts: %v",
		appErr.ErrProviderRejected, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) checkVectors(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: expected %d vectors, got %d", appErr.ErrProviderRejected, len(texts), len(vectors))
	}
	if c.cfg.Dimension > 0 {
		for _, v := range vectors {
			if len(v) != c.cfg.Dimension {
				return fmt.Errorf("%w: expected dimension %d, got %d", appErr.ErrProviderRejected, c.cfg.Dimension, len(v))
			}
		}
	}
	return nil
}
