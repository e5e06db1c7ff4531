// Package rag handles knowledge-base ingestion and retrieval over the shared
// vector index.
package rag

import (
	"context"
	"fmt"

	"github.com/pocketkart/pocketbot/internal/core"
	"github.com/pocketkart/pocketbot/pkg/log"
	"github.com/pocketkart/pocketbot/pkg/retry"
)

// DefaultTopK is how many snippets a retrieval query returns unless the
// caller asks for more.
const DefaultTopK = 4

type Service struct {
	embedder core.Embedder
	index    core.VectorIndex
	retrier  *retry.Retrier
}

func NewService(embedder core.Embedder, index core.VectorIndex) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		retrier:  retry.NewDefaultRetrier(),
	}
}

// Document is one ingestable knowledge-base entry, already split into chunks.
type Document struct {
	ID     string
	Title  string
	URL    string
	Chunks []string
}

// Ingest embeds every chunk in one batch call and upserts them as
// "{documentId}-{index}" records. Re-ingesting the same document id with the
// same chunk count overwrites in place. Embedding and upserts retry with
// backoff; ingestion is an offline path where a transient failure is worth
// waiting out.
func (s *Service) Ingest(ctx context.Context, doc Document) (int, error) {
	if len(doc.Chunks) == 0 {
		return 0, nil
	}

	var vecs [][]float32
	err := s.retrier.Do(ctx, func() error {
		var embedErr error
		vecs, embedErr = s.embedder.Embed(ctx, doc.Chunks)
		return embedErr
	})
	if err != nil {
		return 0, fmt.Errorf("embed document %q: %w", doc.ID, err)
	}

	for i, chunk := range doc.Chunks {
		rec := core.VectorRecord{
			ID:     fmt.Sprintf("%s-%d", doc.ID, i),
			Values: vecs[i],
			Metadata: core.Metadata{
				"type":       "document",
				"documentId": doc.ID,
				"title":      doc.Title,
				"url":        doc.URL,
				"chunk":      chunk,
			},
		}
		err := s.retrier.Do(ctx, func() error {
			return s.index.Upsert(ctx, rec)
		})
		if err != nil {
			return i, fmt.Errorf("upsert chunk %d of %q: %w", i, doc.ID, err)
		}
	}

	log.FromCtx(ctx).Info().
		Str("document_id", doc.ID).
		Int("chunks", len(doc.Chunks)).
		Msg("document ingested")
	return len(doc.Chunks), nil
}

// Query embeds the text and returns up to topK snippets ordered by score.
// topK <= 0 falls back to DefaultTopK. Matches without a "type" metadata key
// are reported as "document".
func (s *Service) Query(ctx context.Context, text string, topK int) ([]core.Snippet, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.index.Query(ctx, vecs[0], topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	snippets := make([]core.Snippet, 0, len(matches))
	for _, m := range matches {
		typ := m.Metadata.Str("type")
		if typ == "" {
			typ = "document"
		}
		snippets = append(snippets, core.Snippet{
			ID:    m.ID,
			Score: m.Score,
			Chunk: m.Metadata.Str("chunk"),
			Title: m.Metadata.Str("title"),
			URL:   m.Metadata.Str("url"),
			Type:  typ,
		})
	}
	return snippets, nil
}
