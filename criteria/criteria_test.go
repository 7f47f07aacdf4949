package criteria

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"testing"
	"time"

	"github.com/lumenlearn/teachsim/embedding"
	"github.com/lumenlearn/teachsim/index"
	"github.com/lumenlearn/teachsim/schema"
)

const stubDims = 32

// stubEmbedder maps text to a deterministic bag-of-words vector so tests can
// control similarity without a live provider.
type stubEmbedder struct {
	unavailable bool
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.unavailable {
		return nil, fmt.Errorf("stub offline: %w", embedding.ErrUnavailable)
	}
	return bagOfWords(text), nil
}

func (s *stubEmbedder) Dimensions() int { return stubDims }

func bagOfWords(text string) []float32 {
	vec := make([]float32, stubDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%stubDims]++
	}
	return vec
}

func seededStore(t *testing.T, texts ...schema.Strategy) *index.MemoryStore {
	t.Helper()
	store := index.NewMemoryStore(stubDims)
	for _, s := range texts {
		if len(s.Vector) == 0 {
			s.Vector = bagOfWords(s.Text)
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now()
		}
		if err := store.Upsert(context.Background(), s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func mathVisualScenario() schema.Scenario {
	return schema.Scenario{
		Subject:       schema.SubjectMath,
		TimeOfDay:     schema.TimeMorning,
		Topic:         "two-digit subtraction",
		LearningStyle: schema.StyleVisual,
	}
}

func TestEvaluate_EmptyIndexScoresNeutral(t *testing.T) {
	store := index.NewMemoryStore(stubDims)
	ev := NewSubjectEvaluator(&stubEmbedder{}, store, 3)

	res := ev.Evaluate(context.Background(), Request{
		Response: "let's break down the problem step by step",
		Scenario: mathVisualScenario(),
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Score != NeutralScore {
		t.Fatalf("empty index should score %v, got %v", NeutralScore, res.Score)
	}
	if !res.InsufficientData {
		t.Fatal("expected InsufficientData flag")
	}
}

func TestEvaluate_DegradesToRuleOnlyWhenEmbedderDown(t *testing.T) {
	store := seededStore(t, schema.Strategy{
		ID: "s1", Text: "break the problem into smaller steps",
		Subject: schema.SubjectMath, BehaviorTag: schema.BehaviorAttention,
		LearningStyle: schema.StyleVisual, Effectiveness: 0.9,
	})
	ev := NewSubjectEvaluator(&stubEmbedder{unavailable: true}, store, 3)

	hit := ev.Evaluate(context.Background(), Request{
		Response: "let's go step by step through it",
		Scenario: mathVisualScenario(),
	})
	if !hit.Degraded {
		t.Fatal("expected degraded result")
	}
	if hit.Score != 0.75 {
		t.Fatalf("degraded rule hit should score 0.75, got %v", hit.Score)
	}

	miss := ev.Evaluate(context.Background(), Request{
		Response: "just read the next chapter quietly",
		Scenario: mathVisualScenario(),
	})
	if !miss.Degraded || miss.Score != 0 {
		t.Fatalf("degraded rule miss should score 0, got %v (degraded=%v)", miss.Score, miss.Degraded)
	}
}

func TestEvaluate_BlendsRuleAndRetrieval(t *testing.T) {
	// The seeded strategy shares most words with the response, so the top
	// match carries a high weighted-cosine score.
	store := seededStore(t, schema.Strategy{
		ID: "s1", Text: "break down the subtraction into small steps with blocks",
		Subject: schema.SubjectMath, BehaviorTag: schema.BehaviorAttention,
		LearningStyle: schema.StyleVisual, Effectiveness: 1.0,
	})
	ev := NewSubjectEvaluator(&stubEmbedder{}, store, 3)

	res := ev.Evaluate(context.Background(), Request{
		Response: "break down the subtraction into small steps with blocks",
		Scenario: mathVisualScenario(),
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	// Rule term 1.0, retrieval term ~1.0: blended score near 1.
	if res.Score < 0.95 {
		t.Fatalf("expected near-perfect score, got %v", res.Score)
	}
	if len(res.Matched) == 0 || res.Matched[0].Strategy.ID != "s1" {
		t.Fatalf("expected s1 matched, got %+v", res.Matched)
	}
}

func TestEvaluate_SuggestedComesFromBeyondTopK(t *testing.T) {
	strategies := make([]schema.Strategy, 0, 4)
	for i := 0; i < 3; i++ {
		strategies = append(strategies, schema.Strategy{
			ID: fmt.Sprintf("top%d", i), Text: "count the blocks together slowly",
			Subject: schema.SubjectMath, BehaviorTag: schema.BehaviorAttention,
			LearningStyle: schema.StyleVisual, Effectiveness: 0.9,
			CreatedAt: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	strategies = append(strategies, schema.Strategy{
		ID: "reserve", Text: "use base-10 manipulatives on the desk",
		Subject: schema.SubjectMath, BehaviorTag: schema.BehaviorAttention,
		LearningStyle: schema.StyleVisual, Effectiveness: 0.95,
		CreatedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	store := seededStore(t, strategies...)
	ev := NewSubjectEvaluator(&stubEmbedder{}, store, 3)

	res := ev.Evaluate(context.Background(), Request{
		Response: "count the blocks together slowly",
		Scenario: mathVisualScenario(),
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Matched) != 3 {
		t.Fatalf("expected 3 matched, got %d", len(res.Matched))
	}
	if res.Suggested == nil || res.Suggested.ID != "reserve" {
		t.Fatalf("expected reserve suggested, got %+v", res.Suggested)
	}
}

func TestBehaviorEvaluator_FilterFollowsStudentPhase(t *testing.T) {
	frustration := schema.Strategy{
		ID: "f", Text: "you can do this take your time",
		Subject: schema.SubjectMath, BehaviorTag: schema.BehaviorFrustration,
		LearningStyle: schema.StyleVisual, Effectiveness: 0.9,
	}
	attention := schema.Strategy{
		ID: "a", Text: "eyes on me please pay attention",
		Subject: schema.SubjectMath, BehaviorTag: schema.BehaviorAttention,
		LearningStyle: schema.StyleVisual, Effectiveness: 0.9,
	}
	store := seededStore(t, frustration, attention)
	ev := NewBehaviorEvaluator(&stubEmbedder{}, store, 3)

	res := ev.Evaluate(context.Background(), Request{
		Response: "you can do this take your time",
		Scenario: mathVisualScenario(),
		State:    schema.StudentState{Phase: schema.PhaseFrustrated},
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	for _, m := range res.Matched {
		if m.Strategy.BehaviorTag != schema.BehaviorFrustration {
			t.Fatalf("frustrated student matched %s strategy %s", m.Strategy.BehaviorTag, m.Strategy.ID)
		}
	}
	if res.Score < 0.95 {
		t.Fatalf("expected high behavior score, got %v", res.Score)
	}
}

func TestStyleEvaluator_StatePreferredOverScenario(t *testing.T) {
	auditory := schema.Strategy{
		ID: "aud", Text: "listen while i say the sounds",
		Subject: schema.SubjectReading, BehaviorTag: schema.BehaviorAttention,
		LearningStyle: schema.StyleAuditory, Effectiveness: 0.9,
	}
	store := seededStore(t, auditory)
	ev := NewStyleEvaluator(&stubEmbedder{}, store, 3)

	res := ev.Evaluate(context.Background(), Request{
		Response: "listen while i say the sounds",
		Scenario: mathVisualScenario(),
		State:    schema.StudentState{LearningStyle: schema.StyleAuditory},
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Matched) == 0 || res.Matched[0].Strategy.ID != "aud" {
		t.Fatalf("state learning style should drive the filter, got %+v", res.Matched)
	}
}

func TestContainsAny(t *testing.T) {
	if !containsAny("Let's BREAK DOWN the problem", []string{"break down"}) {
		t.Fatal("case-insensitive substring match failed")
	}
	if containsAny("keep reading", []string{"break down"}) {
		t.Fatal("unexpected marker hit")
	}
}
