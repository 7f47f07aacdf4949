package updater

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"testing"
	"time"

	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/embedding"
	"github.com/lumenlearn/teachsim/index"
	"github.com/lumenlearn/teachsim/schema"
)

const stubDims = 32

type stubEmbedder struct {
	unavailable bool
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.unavailable {
		return nil, fmt.Errorf("stub offline: %w", embedding.ErrUnavailable)
	}
	vec := make([]float32, stubDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%stubDims]++
	}
	return vec, nil
}

func (s *stubEmbedder) Dimensions() int { return stubDims }

func testConfig() config.UpdaterConfig {
	return config.UpdaterConfig{
		MinOverall:     0.8,
		DedupThreshold: 0.95,
		MaxTokens:      0, // keep the tokenizer out of unit tests
	}
}

func goodTurn(text string) schema.TeacherTurn {
	return schema.TeacherTurn{
		Text:      text,
		Timestamp: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Scenario: schema.Scenario{
			Subject:       schema.SubjectMath,
			TimeOfDay:     schema.TimeMorning,
			Topic:         "subtraction",
			LearningStyle: schema.StyleVisual,
		},
		StateBefore: schema.StudentState{
			Phase:         schema.PhaseFrustrated,
			LearningStyle: schema.StyleVisual,
		},
	}
}

func TestConsider_StoresHighScoringTurn(t *testing.T) {
	store := index.NewMemoryStore(stubDims)
	u, err := New(&stubEmbedder{}, store, testConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	d, err := u.Consider(context.Background(), goodTurn("let me show you with base-10 blocks"),
		schema.EvaluationResult{Overall: 0.85})
	if err != nil {
		t.Fatalf("consider: %v", err)
	}
	if !d.Stored || d.Reason != ReasonStored || d.StrategyID == "" {
		t.Fatalf("expected stored decision, got %+v", d)
	}

	n, _ := store.Count(context.Background())
	if n != 1 {
		t.Fatalf("index size = %d, want 1", n)
	}

	// The stored strategy carries the turn's context tags and score.
	matches, err := store.Query(context.Background(), mustEmbed(t, "let me show you with base-10 blocks"), index.Filters{}, 1)
	if err != nil || len(matches) != 1 {
		t.Fatalf("query stored strategy: %v (%d matches)", err, len(matches))
	}
	s := matches[0].Strategy
	if s.Subject != schema.SubjectMath || s.BehaviorTag != schema.BehaviorFrustration || s.LearningStyle != schema.StyleVisual {
		t.Fatalf("tags not carried: %+v", s)
	}
	if s.Effectiveness != 0.85 {
		t.Fatalf("effectiveness = %v, want 0.85", s.Effectiveness)
	}
}

func TestConsider_SkipsBelowMinimum(t *testing.T) {
	store := index.NewMemoryStore(stubDims)
	u, _ := New(&stubEmbedder{}, store, testConfig())

	d, err := u.Consider(context.Background(), goodTurn("decent response"), schema.EvaluationResult{Overall: 0.79})
	if err != nil {
		t.Fatalf("consider: %v", err)
	}
	if d.Stored || d.Reason != ReasonBelowMinimum {
		t.Fatalf("expected below-minimum skip, got %+v", d)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("index should stay empty, got %d", n)
	}
}

func TestConsider_SkipsDegradedEvaluations(t *testing.T) {
	store := index.NewMemoryStore(stubDims)
	u, _ := New(&stubEmbedder{}, store, testConfig())

	d, err := u.Consider(context.Background(), goodTurn("great response"),
		schema.EvaluationResult{Overall: 0.9, Degraded: true})
	if err != nil {
		t.Fatalf("consider: %v", err)
	}
	if d.Stored || d.Reason != ReasonDegraded {
		t.Fatalf("expected degraded skip, got %+v", d)
	}
}

func TestConsider_DeduplicatesNearIdenticalTurns(t *testing.T) {
	store := index.NewMemoryStore(stubDims)
	u, _ := New(&stubEmbedder{}, store, testConfig())
	ctx := context.Background()
	result := schema.EvaluationResult{Overall: 0.9}

	first, err := u.Consider(ctx, goodTurn("let me show you with blocks"), result)
	if err != nil || !first.Stored {
		t.Fatalf("first consider: %v %+v", err, first)
	}
	second, err := u.Consider(ctx, goodTurn("let me show you with blocks"), result)
	if err != nil {
		t.Fatalf("second consider: %v", err)
	}
	if second.Stored || second.Reason != ReasonDuplicate {
		t.Fatalf("expected duplicate skip, got %+v", second)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Fatalf("index size = %d, want exactly 1", n)
	}
}

func TestConsider_EmbedUnavailableIsASkipNotAnError(t *testing.T) {
	store := index.NewMemoryStore(stubDims)
	u, _ := New(&stubEmbedder{unavailable: true}, store, testConfig())

	d, err := u.Consider(context.Background(), goodTurn("great response"), schema.EvaluationResult{Overall: 0.9})
	if err != nil {
		t.Fatalf("consider: %v", err)
	}
	if d.Stored || d.Reason != ReasonEmbedFailed {
		t.Fatalf("expected embed-failed skip, got %+v", d)
	}
}

func TestConsider_EmptyResponse(t *testing.T) {
	store := index.NewMemoryStore(stubDims)
	u, _ := New(&stubEmbedder{}, store, testConfig())

	turn := goodTurn("")
	d, err := u.Consider(context.Background(), turn, schema.EvaluationResult{Overall: 0.9})
	if err != nil {
		t.Fatalf("consider: %v", err)
	}
	if d.Stored || d.Reason != ReasonEmptyResponse {
		t.Fatalf("expected empty-response skip, got %+v", d)
	}
}

func mustEmbed(t *testing.T, text string) []float32 {
	t.Helper()
	vec, err := (&stubEmbedder{}).Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	return vec
}
