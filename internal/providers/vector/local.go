package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pocketkart/pocketbot/internal/core"
)

// Local is a flat JSON-file backend for small corpora and demo deployments.
// Every query is an exhaustive O(n) cosine scan over the stored vectors —
// there is no index structure. Writes are read-modify-write over the whole
// file: the mutex serializes them within this process, but a second process
// on the same file is a last-write-wins race.
type Local struct {
	mu   sync.Mutex
	path string
}

type localStore struct {
	Vectors []core.VectorRecord `json:"vectors"`
}

func NewLocal(path string) *Local {
	return &Local{path: path}
}

func (l *Local) load() (*localStore, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &localStore{Vectors: []core.VectorRecord{}}, nil
		}
		return nil, fmt.Errorf("failed to read vector store: %w", err)
	}

	var store localStore
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("failed to decode vector store: %w", err)
	}
	return &store, nil
}

func (l *Local) save(store *localStore) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create vector store directory: %w", err)
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode vector store: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write vector store: %w", err)
	}
	return nil
}

func (l *Local) Upsert(ctx context.Context, rec core.VectorRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	store, err := l.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range store.Vectors {
		if store.Vectors[i].ID == rec.ID {
			store.Vectors[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		store.Vectors = append(store.Vectors, rec)
	}

	return l.save(store)
}

func (l *Local) Query(ctx context.Context, vector []float32, topK int) ([]core.VectorMatch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	store, err := l.load()
	if err != nil {
		return nil, err
	}

	matches := make([]core.VectorMatch, 0, len(store.Vectors))
	for _, rec := range store.Vectors {
		matches = append(matches, core.VectorMatch{
			ID:       rec.ID,
			Score:    CosineSimilarity(vector, rec.Values),
			Metadata: rec.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (l *Local) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	store, err := l.load()
	if err != nil {
		return err
	}

	kept := store.Vectors[:0]
	for _, rec := range store.Vectors {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	store.Vectors = kept

	return l.save(store)
}

// CosineSimilarity returns dot(a,b) / (|a| * |b|), and 0 when either vector
// has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	var dot, magA, magB float64
	for i, v := range a {
		av := float64(v)
		var bv float64
		if i < len(b) {
			bv = float64(b[i])
		}
		dot += av * bv
		magA += av * av
	}
	for _, v := range b {
		magB += float64(v) * float64(v)
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
