package criteria

import (
	"context"

	"github.com/lumenlearn/teachsim/embedding"
	"github.com/lumenlearn/teachsim/index"
	"github.com/lumenlearn/teachsim/schema"
)

// StyleEvaluator scores alignment with the student's learning style:
// show/draw language for visual learners, tell/discuss for auditory,
// try/build for kinesthetic.
type StyleEvaluator struct {
	base
}

// NewStyleEvaluator creates the learning-style alignment evaluator.
func NewStyleEvaluator(embed embedding.Provider, store index.Store, topK int) *StyleEvaluator {
	return &StyleEvaluator{base: newBase(embed, store, topK)}
}

// Criterion implements Evaluator.
func (e *StyleEvaluator) Criterion() schema.Criterion { return schema.CriterionStyle }

// Evaluate implements Evaluator.
func (e *StyleEvaluator) Evaluate(ctx context.Context, req Request) Result {
	style := req.Scenario.LearningStyle
	if req.State.LearningStyle != "" {
		style = req.State.LearningStyle
	}
	ret := e.retrieve(ctx, req.Response, index.Filters{LearningStyle: style})
	rule := containsAny(req.Response, styleMarkers[style])
	return e.score(schema.CriterionStyle, rule, ret)
}
