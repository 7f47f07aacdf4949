package index

import (
	"context"
	"math"

	"github.com/lumenlearn/teachsim/schema"
)

// Filters narrows a query to strategies carrying matching tags. Zero-valued
// fields are ignored.
type Filters struct {
	Subject       schema.Subject
	BehaviorTag   schema.BehaviorTag
	LearningStyle schema.LearningStyle
}

// Match reports whether strategy s passes every set filter.
func (f Filters) Match(s schema.Strategy) bool {
	if f.Subject != "" && s.Subject != f.Subject {
		return false
	}
	if f.BehaviorTag != "" && s.BehaviorTag != f.BehaviorTag {
		return false
	}
	if f.LearningStyle != "" && s.LearningStyle != f.LearningStyle {
		return false
	}
	return true
}

// Store is the knowledge index contract: append-biased writes, filtered
// nearest-neighbor reads ranked by cosine similarity weighted by
// effectiveness. A query that matches nothing returns an empty slice, not
// an error. Readers never observe a partially written strategy.
type Store interface {
	// Upsert appends a strategy. Vectors are never updated in place.
	Upsert(ctx context.Context, s schema.Strategy) error
	// Query returns up to k strategies ranked by cosine(vector, s.vector) *
	// s.effectiveness descending, ties broken by earliest created_at.
	Query(ctx context.Context, vector []float32, filters Filters, k int) ([]schema.StrategyMatch, error)
	// Count returns the number of stored strategies.
	Count(ctx context.Context) (int, error)
}

// Cosine computes cosine similarity between two vectors. Mismatched or
// zero-norm inputs score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
