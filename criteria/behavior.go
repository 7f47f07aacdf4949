package criteria

import (
	"context"

	"github.com/lumenlearn/teachsim/embedding"
	"github.com/lumenlearn/teachsim/index"
	"github.com/lumenlearn/teachsim/schema"
)

// BehaviorEvaluator scores behavioral management: de-escalation language
// for frustrated students, refocusing language for drifting attention.
// It carries the heaviest weight together with subject support.
type BehaviorEvaluator struct {
	base
}

// NewBehaviorEvaluator creates the behavioral-management evaluator.
func NewBehaviorEvaluator(embed embedding.Provider, store index.Store, topK int) *BehaviorEvaluator {
	return &BehaviorEvaluator{base: newBase(embed, store, topK)}
}

// Criterion implements Evaluator.
func (e *BehaviorEvaluator) Criterion() schema.Criterion { return schema.CriterionBehavior }

// Evaluate implements Evaluator. The behavior tag is derived from the
// student's current phase, not the scenario: a frustrated student needs
// de-escalation regardless of how the scenario was seeded.
func (e *BehaviorEvaluator) Evaluate(ctx context.Context, req Request) Result {
	tag := req.State.BehaviorContext()
	ret := e.retrieve(ctx, req.Response, index.Filters{BehaviorTag: tag})
	rule := containsAny(req.Response, behaviorMarkers[tag])
	return e.score(schema.CriterionBehavior, rule, ret)
}
