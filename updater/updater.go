// Package updater feeds high-scoring teacher responses back into the
// knowledge index so the reference corpus grows from real sessions.
package updater

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"github.com/lumenlearn/teachsim/common/logger"
	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/embedding"
	"github.com/lumenlearn/teachsim/index"
	"github.com/lumenlearn/teachsim/schema"
)

// Decision records what the updater did with one turn and why. Reason is a
// stable machine-readable token, not prose.
type Decision struct {
	Stored     bool   `json:"stored"`
	Reason     string `json:"reason"`
	StrategyID string `json:"strategy_id,omitempty"`
}

const (
	ReasonStored        = "stored"
	ReasonBelowMinimum  = "below_minimum_score"
	ReasonDegraded      = "evaluation_degraded"
	ReasonDuplicate     = "near_duplicate"
	ReasonEmbedFailed   = "embedding_unavailable"
	ReasonEmptyResponse = "empty_response"
)

// Updater decides whether an evaluated turn becomes a stored strategy.
type Updater struct {
	embed embedding.Provider
	store index.Store
	cfg   config.UpdaterConfig

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// New builds an updater. The token encoder is loaded on first use so an
// unreachable vocabulary source degrades truncation instead of failing
// construction.
func New(embed embedding.Provider, store index.Store, cfg config.UpdaterConfig) (*Updater, error) {
	if embed == nil || store == nil {
		return nil, fmt.Errorf("updater: embed provider and store are required")
	}
	return &Updater{embed: embed, store: store, cfg: cfg}, nil
}

// Consider applies the storage gate to one evaluated turn. Turns below the
// minimum overall score, turns scored under degraded retrieval, and turns
// whose nearest same-context neighbor sits at or above the dedup threshold
// are all skipped. A skip is a normal decision, never an error.
func (u *Updater) Consider(ctx context.Context, turn schema.TeacherTurn, result schema.EvaluationResult) (Decision, error) {
	if turn.Text == "" {
		return Decision{Reason: ReasonEmptyResponse}, nil
	}
	if result.Overall < u.cfg.MinOverall {
		return Decision{Reason: ReasonBelowMinimum}, nil
	}
	if result.Degraded {
		// A degraded turn was scored mostly from rule checks; its overall
		// score is not trustworthy enough to promote into the corpus.
		return Decision{Reason: ReasonDegraded}, nil
	}

	text := u.truncate(turn.Text)
	vec, err := u.embed.Embed(ctx, text)
	if err != nil {
		if embedding.IsUnavailable(err) {
			logger.Warnf("updater: skipping turn, embedding unavailable: %v", err)
			return Decision{Reason: ReasonEmbedFailed}, nil
		}
		return Decision{}, fmt.Errorf("updater: embed candidate: %w", err)
	}

	filters := index.Filters{
		Subject:       turn.Scenario.Subject,
		BehaviorTag:   turn.StateBefore.BehaviorContext(),
		LearningStyle: styleOf(turn),
	}
	nearest, err := u.store.Query(ctx, vec, filters, 1)
	if err != nil {
		return Decision{}, fmt.Errorf("updater: dedup query: %w", err)
	}
	if len(nearest) > 0 && nearest[0].Similarity >= u.cfg.DedupThreshold {
		logger.Debugf("updater: near duplicate of %s (similarity %.4f)", nearest[0].Strategy.ID, nearest[0].Similarity)
		return Decision{Reason: ReasonDuplicate}, nil
	}

	s := schema.Strategy{
		ID:            uuid.NewString(),
		Text:          text,
		Subject:       filters.Subject,
		BehaviorTag:   filters.BehaviorTag,
		LearningStyle: filters.LearningStyle,
		Effectiveness: result.Overall,
		Vector:        vec,
		CreatedAt:     turnTime(turn),
	}
	if err := u.store.Upsert(ctx, s); err != nil {
		return Decision{}, fmt.Errorf("updater: store strategy: %w", err)
	}
	logger.Infof("updater: stored strategy %s (overall %.2f)", s.ID, result.Overall)
	return Decision{Stored: true, Reason: ReasonStored, StrategyID: s.ID}, nil
}

// truncate bounds the candidate text to the configured token budget so one
// very long response cannot dominate the index. When the encoder cannot be
// loaded the text is kept whole.
func (u *Updater) truncate(text string) string {
	if u.cfg.MaxTokens <= 0 {
		return text
	}
	u.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(u.cfg.Encoding)
		if err != nil {
			logger.Warnf("updater: load encoding %q: %v, skipping token bound", u.cfg.Encoding, err)
			return
		}
		u.enc = enc
	})
	if u.enc == nil {
		return text
	}
	tokens := u.enc.Encode(text, nil, nil)
	if len(tokens) <= u.cfg.MaxTokens {
		return text
	}
	return u.enc.Decode(tokens[:u.cfg.MaxTokens])
}

func styleOf(turn schema.TeacherTurn) schema.LearningStyle {
	if turn.StateBefore.LearningStyle != "" {
		return turn.StateBefore.LearningStyle
	}
	return turn.Scenario.LearningStyle
}

func turnTime(turn schema.TeacherTurn) time.Time {
	if !turn.Timestamp.IsZero() {
		return turn.Timestamp
	}
	return time.Now().UTC()
}
