package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func genWords(n int) string {
	words := make([]string, 0, n)
	for i := 0; i < n; i++ {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	return strings.Join(words, " ")
}

func TestSplitEmptyText(t *testing.T) {
	c := New(Config{ChunkSize: 100})
	require.Empty(t, c.Split(""))
	require.Empty(t, c.Split("   \n\t  "))
}

func TestSplitOrdinalsContiguous(t *testing.T) {
	tests := []struct {
		name       string
		words      int
		chunkSize  int
		overlap    int
		wantChunks int
	}{
		{name: "300 words no overlap", words: 300, chunkSize: 100, overlap: 0, wantChunks: 3},
		{name: "400 words no overlap", words: 400, chunkSize: 100, overlap: 0, wantChunks: 4},
		{name: "single short page", words: 5, chunkSize: 100, overlap: 0, wantChunks: 1},
		{name: "exact boundary", words: 100, chunkSize: 100, overlap: 20, wantChunks: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{ChunkSize: tt.chunkSize, Overlap: tt.overlap})
			chunks := c.Split(genWords(tt.words))
			require.Len(t, chunks, tt.wantChunks)
			for i, ch := range chunks {
				require.Equal(t, i, ch.Ordinal)
				require.NotEmpty(t, ch.Content)
			}
		})
	}
}

func TestSplitNeverBreaksWords(t *testing.T) {
	text := genWords(257)
	c := New(Config{ChunkSize: 50, Overlap: 10})
	seen := map[string]struct{}{}
	for _, w := range strings.Fields(text) {
		seen[w] = struct{}{}
	}
	for _, ch := range c.Split(text) {
		for _, w := range strings.Fields(ch.Content) {
			_, ok := seen[w]
			require.True(t, ok, "chunk emitted a fragment %q not present in the input", w)
		}
	}
}

func TestSplitOverlapRepeatsTail(t *testing.T) {
	c := New(Config{ChunkSize: 10, Overlap: 3})
	chunks := c.Split(genWords(30))
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Content)
		cur := strings.Fields(chunks[i].Content)
		tail := prev[len(prev)-3:]
		require.Equal(t, tail, cur[:3])
	}
}

func TestSplitCoversAllWords(t *testing.T) {
	words := strings.Fields(genWords(123))
	c := New(Config{ChunkSize: 40, Overlap: 0})
	var got []string
	for _, ch := range c.Split(strings.Join(words, " ")) {
		got = append(got, strings.Fields(ch.Content)...)
	}
	require.Equal(t, words, got)
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 2, EstimateTokens("hello world"))
	require.Equal(t, 1, EstimateTokens("."))
	// CJK counts per character on top of the field count.
	require.Equal(t, 3, EstimateTokens("你好"))
}
