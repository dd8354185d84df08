package ai

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/pagenook/notegraph/internal/pkg/errors"
)

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	failures []error
	dim      int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.failures) > 0 {
		err := p.failures[0]
		p.failures = p.failures[1:]
		if err != nil {
			return nil, err
		}
	}
	dim := p.dim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec := make([]float32, dim)
		vec[0] = float32(len(text))
		out = append(out, vec)
	}
	return out, nil
}

func testConfig() ClientConfig {
	return ClientConfig{
		Model:          "test-embed",
		Dimension:      4,
		BatchSize:      2,
		MaxAttempts:    3,
		Timeout:        time.Second,
		Concurrency:    2,
		RetryBaseDelay: time.Millisecond,
	}
}

func TestEmbedTextsBatchingKeepsOrder(t *testing.T) {
	provider := &fakeProvider{}
	client := NewClient(provider, testConfig())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := client.EmbedTexts(context.Background(), texts, TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		require.Equal(t, float32(len(text)), vectors[i][0])
	}
	// 5 texts with batch size 2 -> 3 provider calls.
	require.Equal(t, 3, provider.calls)
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	client := NewClient(&fakeProvider{}, testConfig())
	vectors, err := client.EmbedTexts(context.Background(), nil, TaskTypeDocument)
	require.NoError(t, err)
	require.Nil(t, vectors)
}

func TestEmbedBatchRetriesTransient(t *testing.T) {
	provider := &fakeProvider{failures: []error{
		fmt.Errorf("%w: 429", appErr.ErrProviderThrottled),
		fmt.Errorf("%w: 429", appErr.ErrProviderThrottled),
	}}
	client := NewClient(provider, testConfig())

	vectors, err := client.EmbedTexts(context.Background(), []string{"x"}, TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Equal(t, 3, provider.calls)
}

func TestEmbedBatchRetriesExhaustedEscalate(t *testing.T) {
	provider := &fakeProvider{failures: []error{
		fmt.Errorf("%w: 429", appErr.ErrProviderThrottled),
		fmt.Errorf("%w: 429", appErr.ErrProviderThrottled),
		fmt.Errorf("%w: 429", appErr.ErrProviderThrottled),
	}}
	client := NewClient(provider, testConfig())

	_, err := client.EmbedTexts(context.Background(), []string{"x"}, TaskTypeDocument)
	require.Error(t, err)
	require.True(t, appErr.IsFatalBuild(err))
	require.Equal(t, 3, provider.calls)
}

func TestEmbedBatchBadCredentialNoRetry(t *testing.T) {
	provider := &fakeProvider{failures: []error{appErr.ErrBadCredential}}
	client := NewClient(provider, testConfig())

	_, err := client.EmbedQuery(context.Background(), "x")
	require.ErrorIs(t, err, appErr.ErrBadCredential)
	require.Equal(t, 1, provider.calls)
}

func TestEmbedBatchRejectionNoRetry(t *testing.T) {
	provider := &fakeProvider{failures: []error{
		fmt.Errorf("%w: invalid model", appErr.ErrProviderRejected),
	}}
	client := NewClient(provider, testConfig())

	_, err := client.EmbedQuery(context.Background(), "x")
	require.ErrorIs(t, err, appErr.ErrProviderRejected)
	require.Equal(t, 1, provider.calls)
}

func TestEmbedBatchDimensionCheck(t *testing.T) {
	provider := &fakeProvider{dim: 3}
	client := NewClient(provider, testConfig())

	_, err := client.EmbedQuery(context.Background(), "x")
	require.ErrorIs(t, err, appErr.ErrProviderRejected)
}
