package aggregate

import (
	"context"
	"fmt"

	"github.com/lumenlearn/teachsim/common/logger"
	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/criteria"
	"github.com/lumenlearn/teachsim/schema"
)

// Weights maps each criterion to its share of the overall score. The four
// shares must sum to exactly 1.0 (enforced by config validation).
type Weights map[schema.Criterion]float64

// WeightsFromConfig builds the weight table from configuration.
func WeightsFromConfig(cfg config.CriteriaConfig) Weights {
	return Weights{
		schema.CriterionTime:     cfg.TimeWeight,
		schema.CriterionStyle:    cfg.StyleWeight,
		schema.CriterionBehavior: cfg.BehaviorWeight,
		schema.CriterionSubject:  cfg.SubjectWeight,
	}
}

// DefaultWeights is the original weighting scheme: behavior and subject
// support carry more than time and style.
func DefaultWeights() Weights {
	return Weights{
		schema.CriterionTime:     0.20,
		schema.CriterionStyle:    0.20,
		schema.CriterionBehavior: 0.30,
		schema.CriterionSubject:  0.30,
	}
}

// SafeEvaluate runs one evaluator and converts a panic into a Result error
// so a single broken criterion can never abort the turn.
func SafeEvaluate(ctx context.Context, ev criteria.Evaluator, req criteria.Request) (res criteria.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("aggregate: evaluator %s panicked: %v", ev.Criterion(), r)
			res = criteria.Result{
				Criterion: ev.Criterion(),
				Err:       fmt.Errorf("evaluator %s panicked: %v", ev.Criterion(), r),
			}
		}
	}()
	return ev.Evaluate(ctx, req)
}

// Combine folds the per-criterion results into the overall score. A failed
// criterion is recorded as 0 with a warning and the remaining weights are
// renormalized, so the failure is surfaced without sinking the turn.
func Combine(results []criteria.Result, weights Weights) (schema.EvaluationResult, error) {
	if len(results) == 0 {
		return schema.EvaluationResult{}, fmt.Errorf("no criterion results to combine")
	}

	out := schema.EvaluationResult{
		PerCriterion: make(map[schema.Criterion]float64, len(results)),
	}

	var weighted, activeWeight float64
	for _, r := range results {
		w, ok := weights[r.Criterion]
		if !ok {
			return schema.EvaluationResult{}, fmt.Errorf("no weight configured for criterion %s", r.Criterion)
		}
		if r.Err != nil {
			out.PerCriterion[r.Criterion] = 0
			out.Warnings = append(out.Warnings, fmt.Sprintf("criterion %s failed: %v", r.Criterion, r.Err))
			continue
		}
		score := schema.Clamp01(r.Score)
		out.PerCriterion[r.Criterion] = score
		out.Matched = append(out.Matched, r.Matched...)
		weighted += w * score
		activeWeight += w
		if r.Degraded {
			out.Degraded = true
		}
	}

	if activeWeight == 0 {
		// Every evaluator failed; surface it loudly and score the turn 0.
		out.Overall = 0
		return out, nil
	}
	out.Overall = schema.Clamp01(weighted / activeWeight)

	strengths, suggestions := BuildFeedback(results)
	out.Strengths = strengths
	out.Suggestions = suggestions
	return out, nil
}
