package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/lumenlearn/teachsim/schema"
)

// MemoryStore is the in-process knowledge index. Reads are lock-free against
// an immutable snapshot; upserts copy-on-write behind a single writer mutex,
// so concurrent readers never block and never see a partial strategy.
type MemoryStore struct {
	writeMu    sync.Mutex
	snapshot   atomic.Pointer[[]schema.Strategy]
	dimensions int
}

// NewMemoryStore creates an empty index. dimensions fixes the vector size;
// pass 0 to adopt the dimension of the first upserted strategy.
func NewMemoryStore(dimensions int) *MemoryStore {
	m := &MemoryStore{dimensions: dimensions}
	empty := make([]schema.Strategy, 0)
	m.snapshot.Store(&empty)
	return m
}

// Upsert implements Store. The strategy is validated, deep-copied and
// appended to a fresh snapshot.
func (m *MemoryStore) Upsert(ctx context.Context, s schema.Strategy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if m.dimensions == 0 {
		m.dimensions = len(s.Vector)
	}
	if err := schema.ValidateStrategy(s, m.dimensions); err != nil {
		return fmt.Errorf("upsert strategy %s: %w", s.ID, err)
	}

	// Copy the vector so later caller mutations cannot reach the snapshot.
	vec := make([]float32, len(s.Vector))
	copy(vec, s.Vector)
	s.Vector = vec

	cur := *m.snapshot.Load()
	next := make([]schema.Strategy, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, s)
	m.snapshot.Store(&next)
	return nil
}

// Query implements Store. It ranks the snapshot taken at invocation time;
// upserts racing with the query are invisible to it.
func (m *MemoryStore) Query(ctx context.Context, vector []float32, filters Filters, k int) ([]schema.StrategyMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 5
	}

	snap := *m.snapshot.Load()
	matches := make([]schema.StrategyMatch, 0, k)
	for _, s := range snap {
		if !filters.Match(s) {
			continue
		}
		sim := Cosine(vector, s.Vector)
		// Hand out a vector copy; results must not alias the snapshot.
		vec := make([]float32, len(s.Vector))
		copy(vec, s.Vector)
		s.Vector = vec
		matches = append(matches, schema.StrategyMatch{
			Strategy:   s,
			Similarity: sim,
			Score:      sim * s.Effectiveness,
		})
	}
	if len(matches) == 0 {
		return []schema.StrategyMatch{}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		// Equal scores break by earliest created_at for stable replay.
		if !matches[i].Strategy.CreatedAt.Equal(matches[j].Strategy.CreatedAt) {
			return matches[i].Strategy.CreatedAt.Before(matches[j].Strategy.CreatedAt)
		}
		return matches[i].Strategy.ID < matches[j].Strategy.ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count implements Store.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(*m.snapshot.Load()), nil
}

// Dimensions returns the fixed vector dimension, 0 until the first upsert
// when constructed without one.
func (m *MemoryStore) Dimensions() int {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.dimensions
}
