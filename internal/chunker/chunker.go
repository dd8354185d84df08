package chunker

import (
	"strings"

	"github.com/pagenook/notegraph/internal/model"
)

// Config controls how page text is split. Sizes are counted in words;
// splitting therefore never lands inside a word.
type Config struct {
	ChunkSize int
	Overlap   int
}

type Chunker struct {
	cfg Config
}

func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 200
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = 0
	}
	return &Chunker{cfg: cfg}
}

// Split turns plain page text into ordered chunks with contiguous ordinals
// starting at zero. Empty or whitespace-only text yields no chunks. When
// overlap is configured the tail of chunk i is repeated at the head of
// chunk i+1; ordinals still advance by one per chunk.
func (c *Chunker) Split(text string) []model.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.cfg.ChunkSize - c.cfg.Overlap
	var chunks []model.Chunk
	ordinal := 0
	for start := 0; start < len(words); start += step {
		end := start + c.cfg.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		content := strings.Join(words[start:end], " ")
		chunks = append(chunks, model.Chunk{
			Ordinal:    ordinal,
			Content:    content,
			TokenCount: EstimateTokens(content),
		})
		ordinal++
		if end == len(words) {
			break
		}
	}
	return chunks
}

// EstimateTokens counts words for latin text and characters for CJK,
// which tracks provider token accounting closely enough for budgeting.
func EstimateTokens(text string) int {
	count := 0
	for _, r := range text {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(text))
	if count == 0 && len(text) > 0 {
		return 1
	}
	return count
}
