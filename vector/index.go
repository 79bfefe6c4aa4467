// Package vector provides the embedding vectorizer and an in-memory
// nearest-neighbor index over document chunks. The index shares state via
// immutable snapshots: readers never block, and a rebuild publishes a new
// snapshot with one atomic pointer swap.
package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/graphclinic/gdmrag/model"
)

// Entry is one indexed chunk.
type Entry struct {
	ChunkID   int
	Vector    []float32
	Text      string
	Source    string
	Truncated bool
}

// Match is one search result.
type Match struct {
	ChunkID int
	Score   float64
	Text    string
	Source  string
}

// snapshot is an immutable view of the index. Entries keep insertion order,
// which breaks score ties deterministically.
type snapshot struct {
	entries      []Entry
	dim          int
	modelVersion string
}

// Index is a cosine-similarity search index. All vectors in one index
// belong to the same embedding model version; mixed-version comparisons are
// rejected at the retriever level.
type Index struct {
	mu     sync.Mutex // serializes writers only
	active atomic.Pointer[snapshot]
}

// NewIndex creates an empty index for the given dimension and model version.
func NewIndex(dim int, modelVersion string) *Index {
	idx := &Index{}
	idx.active.Store(&snapshot{dim: dim, modelVersion: modelVersion})
	return idx
}

// ModelVersion returns the embedding model version the index was built with.
func (i *Index) ModelVersion() string {
	return i.active.Load().modelVersion
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	return len(i.active.Load().entries)
}

// Add indexes a chunk incrementally. Writers copy the active snapshot, so
// in-flight searches keep their consistent view.
func (i *Index) Add(entry Entry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	current := i.active.Load()
	if len(entry.Vector) != current.dim {
		return fmt.Errorf("%w: vector dimension %d does not match index dimension %d",
			model.ErrEncoding, len(entry.Vector), current.dim)
	}

	entries := make([]Entry, len(current.entries), len(current.entries)+1)
	copy(entries, current.entries)
	entries = append(entries, entry)

	i.active.Store(&snapshot{
		entries:      entries,
		dim:          current.dim,
		modelVersion: current.modelVersion,
	})

	return nil
}

// Rebuild replaces the whole index with a fresh snapshot. No in-flight read
// ever observes a partially rebuilt index.
func (i *Index) Rebuild(entries []Entry, modelVersion string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	dim := i.active.Load().dim
	for _, entry := range entries {
		if len(entry.Vector) != dim {
			return fmt.Errorf("%w: vector dimension %d does not match index dimension %d",
				model.ErrEncoding, len(entry.Vector), dim)
		}
	}

	rebuilt := make([]Entry, len(entries))
	copy(rebuilt, entries)

	i.active.Store(&snapshot{
		entries:      rebuilt,
		dim:          dim,
		modelVersion: modelVersion,
	})

	return nil
}

// Search returns the k nearest chunks by descending cosine similarity.
// Ties are broken by chunk insertion order. Scores are clamped to [0,1].
func (i *Index) Search(vec []float32, k int) ([]Match, error) {
	current := i.active.Load()
	if len(vec) != current.dim {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
			model.ErrEncoding, len(vec), current.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	matches := make([]Match, 0, len(current.entries))
	for _, entry := range current.entries {
		matches = append(matches, Match{
			ChunkID: entry.ChunkID,
			Score:   cosineSimilarity(vec, entry.Vector),
			Text:    entry.Text,
			Source:  entry.Source,
		})
	}

	// Stable sort preserves insertion order within equal scores.
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}

	return matches, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, clamped
// to [0,1]. Sentence embeddings essentially never point in opposite
// directions, so the negative range carries no ranking signal.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity < 0 {
		return 0
	}
	if similarity > 1 {
		return 1
	}
	return similarity
}
