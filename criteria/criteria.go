package criteria

import (
	"context"
	"strings"

	"github.com/lumenlearn/teachsim/common/logger"
	"github.com/lumenlearn/teachsim/embedding"
	"github.com/lumenlearn/teachsim/index"
	"github.com/lumenlearn/teachsim/schema"
)

// NeutralScore is returned when the index has no reference strategies for a
// criterion's filter. Not an error: the evaluator simply has nothing to
// compare against.
const NeutralScore = 0.5

// InsufficientDataSuggestion is the canonical suggestion attached to a
// neutral score.
const InsufficientDataSuggestion = "insufficient reference data"

// suggestionPool is how many extra candidates are fetched beyond the top-k
// so a suggestion can reference a strategy that was not matched.
const suggestionPool = 5

// degradedScale discounts a rule-only score when retrieval was unavailable:
// the result is valid but carries less evidence.
const degradedScale = 0.75

// Request carries everything an evaluator needs for one turn.
type Request struct {
	Response string
	Scenario schema.Scenario
	State    schema.StudentState
}

// Result is one criterion's verdict for a turn.
type Result struct {
	Criterion schema.Criterion
	// Score is bounded to [0,1].
	Score float64
	// Matched are the retrieved strategies backing the score, best first.
	Matched []schema.StrategyMatch
	// Suggested is the highest-effectiveness strategy that was not matched,
	// if any; feedback references it when the score is low.
	Suggested *schema.Strategy
	// Degraded is set when the embedding provider was unavailable and the
	// score is rule-based only.
	Degraded bool
	// InsufficientData is set when the filtered index was empty.
	InsufficientData bool
	// Err records an unexpected failure. The aggregator converts it into a
	// zero score plus a warning rather than aborting the turn.
	Err error
}

// Evaluator scores a teacher response on a single criterion.
type Evaluator interface {
	Criterion() schema.Criterion
	Evaluate(ctx context.Context, req Request) Result
}

// base holds the retrieval plumbing shared by all four evaluators.
type base struct {
	embed embedding.Provider
	store index.Store
	topK  int
}

func newBase(embed embedding.Provider, store index.Store, topK int) base {
	if topK <= 0 {
		topK = 3
	}
	return base{embed: embed, store: store, topK: topK}
}

// retrieval is the outcome of the shared retrieve step.
type retrieval struct {
	matched   []schema.StrategyMatch
	suggested *schema.Strategy
	degraded  bool
	empty     bool
	err       error
}

// retrieve embeds the response and queries the index under filters. An
// unavailable embedder degrades to rule-only; an empty result is flagged,
// not failed.
func (b base) retrieve(ctx context.Context, text string, filters index.Filters) retrieval {
	if b.embed == nil {
		return retrieval{degraded: true}
	}
	vec, err := b.embed.Embed(ctx, text)
	if err != nil {
		if embedding.IsUnavailable(err) {
			logger.Warnf("criteria: embedding unavailable, degrading to rule-only: %v", err)
			return retrieval{degraded: true}
		}
		return retrieval{err: err}
	}

	raw, err := b.store.Query(ctx, vec, filters, b.topK+suggestionPool)
	if err != nil {
		return retrieval{err: err}
	}
	if len(raw) == 0 {
		return retrieval{empty: true}
	}

	matched := raw
	if len(matched) > b.topK {
		matched = matched[:b.topK]
	}
	var suggested *schema.Strategy
	best := -1.0
	for _, m := range raw[len(matched):] {
		if m.Strategy.Effectiveness > best {
			best = m.Strategy.Effectiveness
			s := m.Strategy
			suggested = &s
		}
	}
	return retrieval{matched: matched, suggested: suggested}
}

// score combines the binary rule check with the best retrieval match. The
// blend follows the original scorer: a marker hit carries half the weight,
// grounded evidence the other half.
func (b base) score(crit schema.Criterion, rule bool, ret retrieval) Result {
	res := Result{
		Criterion: crit,
		Matched:   ret.matched,
		Suggested: ret.suggested,
		Degraded:  ret.degraded,
		Err:       ret.err,
	}
	if ret.err != nil {
		return res
	}

	ruleTerm := 0.0
	if rule {
		ruleTerm = 1.0
	}
	switch {
	case ret.degraded:
		res.Score = schema.Clamp01(degradedScale * ruleTerm)
	case ret.empty:
		res.Score = NeutralScore
		res.InsufficientData = true
	default:
		retrTerm := schema.Clamp01(ret.matched[0].Score)
		res.Score = schema.Clamp01(0.5*ruleTerm + 0.5*retrTerm)
	}
	return res
}

// containsAny reports whether text (lowercased) contains any of the markers.
func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
