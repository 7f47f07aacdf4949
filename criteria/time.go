package criteria

import (
	"context"

	"github.com/lumenlearn/teachsim/embedding"
	"github.com/lumenlearn/teachsim/index"
	"github.com/lumenlearn/teachsim/schema"
)

// TimeEvaluator scores whether the response suits the scenario's time of
// day: structuring language in the morning, movement language after lunch,
// short varied tasks late in the afternoon.
type TimeEvaluator struct {
	base
}

// NewTimeEvaluator creates the time-appropriateness evaluator.
func NewTimeEvaluator(embed embedding.Provider, store index.Store, topK int) *TimeEvaluator {
	return &TimeEvaluator{base: newBase(embed, store, topK)}
}

// Criterion implements Evaluator.
func (e *TimeEvaluator) Criterion() schema.Criterion { return schema.CriterionTime }

// Evaluate implements Evaluator. The index is filtered by the scenario's
// subject so time strategies stay on topic.
func (e *TimeEvaluator) Evaluate(ctx context.Context, req Request) Result {
	ret := e.retrieve(ctx, req.Response, index.Filters{Subject: req.Scenario.Subject})
	rule := containsAny(req.Response, timeMarkers[req.Scenario.TimeOfDay])
	return e.score(schema.CriterionTime, rule, ret)
}
