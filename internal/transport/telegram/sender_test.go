package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitHTMLShortText(t *testing.T) {
	chunks := splitHTML("hello", 100)
	assert.Equal(t, []string{"hello"}, chunks)
}

func TestSplitHTMLPrefersNewlines(t *testing.T) {
	text := strings.Repeat("line one\n", 20)
	chunks := splitHTML(text, 50)

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 50)
	}
	// Breaks land on line boundaries, so no chunk starts mid-word.
	for _, chunk := range chunks[1:] {
		assert.True(t, strings.HasPrefix(chunk, "line"), "chunk %q should start at a line", chunk)
	}
}

func TestSplitHTMLNoNewlines(t *testing.T) {
	text := strings.Repeat("a", 120)
	chunks := splitHTML(text, 50)

	assert.Len(t, chunks, 3)
	assert.Equal(t, 50, len(chunks[0]))
	assert.Equal(t, 50, len(chunks[1]))
	assert.Equal(t, 20, len(chunks[2]))
}
