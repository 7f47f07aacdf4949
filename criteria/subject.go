package criteria

import (
	"context"

	"github.com/lumenlearn/teachsim/embedding"
	"github.com/lumenlearn/teachsim/index"
	"github.com/lumenlearn/teachsim/schema"
)

// SubjectEvaluator scores subject-specific pedagogy: step-by-step work and
// manipulatives for math, phonics and comprehension moves for reading.
type SubjectEvaluator struct {
	base
}

// NewSubjectEvaluator creates the subject-support evaluator.
func NewSubjectEvaluator(embed embedding.Provider, store index.Store, topK int) *SubjectEvaluator {
	return &SubjectEvaluator{base: newBase(embed, store, topK)}
}

// Criterion implements Evaluator.
func (e *SubjectEvaluator) Criterion() schema.Criterion { return schema.CriterionSubject }

// Evaluate implements Evaluator.
func (e *SubjectEvaluator) Evaluate(ctx context.Context, req Request) Result {
	ret := e.retrieve(ctx, req.Response, index.Filters{Subject: req.Scenario.Subject})
	rule := containsAny(req.Response, subjectMarkers[req.Scenario.Subject])
	return e.score(schema.CriterionSubject, rule, ret)
}
