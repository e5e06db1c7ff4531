package pdf

import (
	"strings"
	"testing"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name string
		text string
		cfg  ChunkerConfig
		want int
	}{
		{
			name: "empty input",
			text: "",
			cfg:  DefaultChunkerConfig(),
			want: 0,
		},
		{
			name: "whitespace only",
			text: "   \n\t   ",
			cfg:  DefaultChunkerConfig(),
			want: 0,
		},
		{
			name: "short text is one chunk",
			text: "Returns are accepted within 30 days.",
			cfg:  DefaultChunkerConfig(),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkText(tt.text, tt.cfg)
			if len(got) != tt.want {
				t.Errorf("ChunkText() produced %d chunks, want %d", len(got), tt.want)
			}
			if tt.want == 1 && got[0] != strings.TrimSpace(tt.text) {
				t.Errorf("single chunk should be the trimmed input, got %q", got[0])
			}
		})
	}
}

func TestChunkTextOverlap(t *testing.T) {
	// Enough words to force several windows at a tiny chunk size.
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)
	cfg := ChunkerConfig{MaxTokens: 32, OverlapTokens: 8}

	chunks := ChunkText(text, cfg)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Each consecutive pair shares the overlap region.
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])/2:]
		if !strings.Contains(text, tail) {
			t.Errorf("chunk %d tail %q not found in source", i-1, tail)
		}
	}
}

func TestChunkTextDegenerateOverlap(t *testing.T) {
	// Overlap >= max would loop forever without the step fallback.
	text := strings.Repeat("word ", 100)
	chunks := ChunkText(text, ChunkerConfig{MaxTokens: 10, OverlapTokens: 10})
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
}
