package aggregate

import (
	"fmt"

	"github.com/lumenlearn/teachsim/criteria"
	"github.com/lumenlearn/teachsim/schema"
)

const (
	strengthThreshold   = 0.8
	suggestionThreshold = 0.6
	snippetLimit        = 96
)

var criterionLabels = map[schema.Criterion]string{
	schema.CriterionTime:     "time-of-day pacing",
	schema.CriterionStyle:    "learning-style alignment",
	schema.CriterionBehavior: "behavior management",
	schema.CriterionSubject:  "subject support",
}

// BuildFeedback renders deterministic strength and suggestion lines from the
// per-criterion results. Criteria at or above 0.8 yield a strength naming the
// best matched strategy; criteria below 0.6 yield a suggestion naming an
// unused high-effectiveness strategy when retrieval produced one. Iteration
// follows a fixed criterion order so repeated turns render identical feedback.
func BuildFeedback(results []criteria.Result) (strengths, suggestions []string) {
	byCriterion := make(map[schema.Criterion]criteria.Result, len(results))
	for _, r := range results {
		byCriterion[r.Criterion] = r
	}

	order := []schema.Criterion{
		schema.CriterionTime,
		schema.CriterionStyle,
		schema.CriterionBehavior,
		schema.CriterionSubject,
	}
	for _, c := range order {
		r, ok := byCriterion[c]
		if !ok || r.Err != nil {
			continue
		}
		label := criterionLabels[c]
		switch {
		case r.Score >= strengthThreshold:
			if len(r.Matched) > 0 {
				strengths = append(strengths, fmt.Sprintf(
					"Strong %s: your response mirrors %q.", label, snippet(r.Matched[0].Strategy.Text)))
			} else {
				strengths = append(strengths, fmt.Sprintf("Strong %s.", label))
			}
		case r.Score < suggestionThreshold:
			switch {
			case r.InsufficientData:
				suggestions = append(suggestions, fmt.Sprintf(
					"Could not assess %s: %s.", label, criteria.InsufficientDataSuggestion))
			case r.Suggested != nil:
				suggestions = append(suggestions, fmt.Sprintf(
					"To improve %s, try an approach like %q.", label, snippet(r.Suggested.Text)))
			default:
				suggestions = append(suggestions, fmt.Sprintf(
					"Work on %s: your response did not match any known strategy for this situation.", label))
			}
		}
	}
	return strengths, suggestions
}

func snippet(text string) string {
	if len(text) <= snippetLimit {
		return text
	}
	return text[:snippetLimit] + "..."
}
