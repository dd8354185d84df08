package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/pagenook/notegraph/internal/pkg/errors"
)

func newOpenAITestProvider(server *httptest.Server) *openAIEmbedProvider {
	return &openAIEmbedProvider{
		apiKey:  "test-key",
		baseURL: server.URL,
		client:  server.Client(),
	}
}

func TestOpenAIEmbedBatchOrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []string{"alpha", "beta"}, req.Input)
		// Respond out of order; the provider must restore input order.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1}},
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}))
	defer server.Close()

	provider := newOpenAITestProvider(server)
	vectors, err := provider.EmbedBatch(context.Background(), "text-embedding-3-small", []string{"alpha", "beta"}, "")
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestOpenAIEmbedBatchStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, appErr.ErrBadCredential},
		{http.StatusForbidden, appErr.ErrBadCredential},
		{http.StatusTooManyRequests, appErr.ErrProviderThrottled},
		{http.StatusServiceUnavailable, appErr.ErrProviderThrottled},
		{http.StatusBadRequest, appErr.ErrProviderRejected},
	}
	for _, tc := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		provider := newOpenAITestProvider(server)
		_, err := provider.EmbedBatch(context.Background(), "m", []string{"x"}, "")
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
		server.Close()
	}
}

func TestOpenAIEmbedBatchEmptyKey(t *testing.T) {
	provider := &openAIEmbedProvider{client: http.DefaultClient}
	_, err := provider.EmbedBatch(context.Background(), "m", []string{"x"}, "")
	require.ErrorIs(t, err, appErr.ErrBadCredential)
}
