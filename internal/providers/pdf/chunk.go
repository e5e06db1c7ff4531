package pdf

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tk     *tiktoken.Tiktoken
	tkOnce sync.Once
)

func getTokenizer() *tiktoken.Tiktoken {
	tkOnce.Do(func() {
		var err error
		tk, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			panic("failed to load cl100k_base tokenizer: " + err.Error())
		}
	})
	return tk
}

type ChunkerConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultChunkerConfig sizes chunks for embedding models with a 512-token
// context.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:     400,
		OverlapTokens: 50,
	}
}

// ChunkText splits text into overlapping token windows. Overlap keeps
// sentences that straddle a boundary retrievable from either side.
func ChunkText(text string, cfg ChunkerConfig) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	enc := getTokenizer()
	tokens := enc.Encode(text, nil, nil)

	if len(tokens) <= cfg.MaxTokens {
		return []string{text}
	}

	step := cfg.MaxTokens - cfg.OverlapTokens
	if step <= 0 {
		step = cfg.MaxTokens
	}

	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + cfg.MaxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		chunk := strings.TrimSpace(enc.Decode(tokens[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(tokens) {
			break
		}
	}

	return chunks
}
