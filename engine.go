// Package teachsim evaluates free-text teacher responses against a corpus of
// teaching strategies and drives a simulated student through a training
// session. The engine glues retrieval-backed criterion scoring, weighted
// aggregation, the student state machine and the knowledge updater behind a
// single facade.
package teachsim

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlearn/teachsim/aggregate"
	"github.com/lumenlearn/teachsim/analysis"
	"github.com/lumenlearn/teachsim/common/logger"
	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/criteria"
	"github.com/lumenlearn/teachsim/embedding"
	"github.com/lumenlearn/teachsim/index"
	"github.com/lumenlearn/teachsim/metrics"
	"github.com/lumenlearn/teachsim/schema"
	"github.com/lumenlearn/teachsim/session"
	"github.com/lumenlearn/teachsim/student"
	"github.com/lumenlearn/teachsim/updater"
)

// ErrSessionTerminated is returned when a turn is submitted to a session
// that already ended in escalation.
var ErrSessionTerminated = errors.New("session terminated")

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// maxAdviceItems caps how many analyzer lines are appended per list.
const maxAdviceItems = 2

// Session is one trainee's conversation with the simulated student. Turn
// submission is serialized per session; concurrent submits queue on the
// session mutex.
type Session struct {
	ID       string
	Scenario schema.Scenario

	mu         sync.Mutex
	state      schema.StudentState
	turn       int
	lowStreak  int
	terminated bool
}

// State returns a copy of the current student state.
func (s *Session) State() schema.StudentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Terminated reports whether the session ended in escalation.
func (s *Session) Terminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// TurnOutcome is everything one submitted response produces.
type TurnOutcome struct {
	Turn       int                     `json:"turn"`
	Result     schema.EvaluationResult `json:"result"`
	State      schema.StudentState     `json:"state"`
	Narration  string                  `json:"narration"`
	Updater    updater.Decision        `json:"updater"`
	Terminated bool                    `json:"terminated,omitempty"`
}

// Engine wires the evaluation pipeline. Safe for concurrent use; writes to
// the knowledge index are serialized by the updater path.
type Engine struct {
	cfg        *config.Config
	embed      embedding.Provider
	store      index.Store
	evaluators []criteria.Evaluator
	weights    aggregate.Weights
	updater    *updater.Updater
	analyzer   analysis.Analyzer
	history    session.Store

	mu       sync.Mutex
	sessions map[string]*Session
}

// New builds an engine from configuration, constructing the embedding
// provider, index backend and history store it names.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var embed embedding.Provider
	switch cfg.Embedding.Provider {
	case "openai":
		embed = embedding.NewOpenAI(cfg.Embedding)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.TimeoutMs > 0 {
		embed = embedding.WithTimeout(embed, time.Duration(cfg.Embedding.TimeoutMs)*time.Millisecond)
	}
	if cfg.Embedding.CacheSize > 0 {
		embed = embedding.WithCache(embed, nil, cfg.Embedding.CacheSize,
			time.Duration(cfg.Embedding.CacheTTLSeconds)*time.Second)
	}

	var store index.Store
	switch cfg.Index.Provider {
	case "memory":
		store = index.NewMemoryStore(cfg.Embedding.Dimensions)
	case "milvus":
		ms, err := index.NewMilvusStore(ctx, cfg.Index, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("connect milvus: %w", err)
		}
		store = ms
	default:
		return nil, fmt.Errorf("unknown index provider: %s", cfg.Index.Provider)
	}

	var history session.Store
	if cfg.Session.StorePath != "" {
		hs, err := session.NewSQLiteStore(cfg.Session.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		history = hs
	} else {
		history = session.NewMemoryStore()
	}

	var analyzer analysis.Analyzer
	if cfg.Analysis != nil && cfg.Analysis.Endpoint != "" {
		a, err := analysis.NewHTTP(cfg.Analysis)
		if err != nil {
			return nil, err
		}
		analyzer = a
	}

	return newEngine(cfg, embed, store, history, analyzer)
}

// newEngine assembles an engine from pre-built components. Tests use it to
// inject deterministic embedders and stores.
func newEngine(cfg *config.Config, embed embedding.Provider, store index.Store, history session.Store, analyzer analysis.Analyzer) (*Engine, error) {
	upd, err := updater.New(embed, store, cfg.Updater)
	if err != nil {
		return nil, err
	}
	topK := cfg.Criteria.TopK
	return &Engine{
		cfg:   cfg,
		embed: embed,
		store: store,
		evaluators: []criteria.Evaluator{
			criteria.NewTimeEvaluator(embed, store, topK),
			criteria.NewStyleEvaluator(embed, store, topK),
			criteria.NewBehaviorEvaluator(embed, store, topK),
			criteria.NewSubjectEvaluator(embed, store, topK),
		},
		weights:  aggregate.WeightsFromConfig(cfg.Criteria),
		updater:  upd,
		analyzer: analyzer,
		history:  history,
		sessions: make(map[string]*Session),
	}, nil
}

// StartSession validates the scenario and opens a session with a student
// state derived from it.
func (e *Engine) StartSession(scenario schema.Scenario) (*Session, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		ID:       uuid.NewString(),
		Scenario: scenario,
		state:    student.InitialState(scenario, e.cfg.Student),
	}
	e.mu.Lock()
	e.sessions[s.ID] = s
	e.mu.Unlock()
	logger.Infof("session %s started: %s/%s/%s", s.ID, scenario.Subject, scenario.TimeOfDay, scenario.LearningStyle)
	return s, nil
}

func (e *Engine) session(id string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Submit evaluates one teacher response in a session. Scoring failures in a
// single criterion, analyzer errors and updater skips are all absorbed: the
// only hard failures are an unknown session, a terminated session and a
// history write error.
func (e *Engine) Submit(ctx context.Context, sessionID, response string) (*TurnOutcome, error) {
	sess, err := e.session(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.terminated {
		return nil, fmt.Errorf("%w: %s", ErrSessionTerminated, sessionID)
	}

	total := metrics.StartTimer()
	sess.turn++
	turn := schema.TeacherTurn{
		Text:        response,
		Timestamp:   time.Now().UTC(),
		Scenario:    sess.Scenario,
		StateBefore: sess.state,
	}
	req := criteria.Request{Response: response, Scenario: sess.Scenario, State: sess.state}

	results := make([]criteria.Result, 0, len(e.evaluators))
	critMetrics := make(map[schema.Criterion]metrics.CriterionMetrics, len(e.evaluators))
	for _, ev := range e.evaluators {
		t := metrics.StartTimer()
		res := aggregate.SafeEvaluate(ctx, ev, req)
		results = append(results, res)
		critMetrics[res.Criterion] = metrics.CriterionMetrics{
			Score:     res.Score,
			LatencyMs: t.ElapsedMs(),
			Degraded:  res.Degraded,
			Failed:    res.Err != nil,
		}
	}

	result, err := aggregate.Combine(results, e.weights)
	if err != nil {
		return nil, err
	}
	e.enrich(ctx, turn, &result)

	next, narration := student.Next(sess.state, result.Overall, turnSeed(sessionID, sess.turn))
	phaseBefore := sess.state.Phase
	sess.state = next

	if result.Overall < student.PoorScore {
		sess.lowStreak++
	} else {
		sess.lowStreak = 0
	}
	lowLimit := e.cfg.Session.LowScoreLimit
	if lowLimit > 0 && sess.lowStreak >= lowLimit {
		sess.terminated = true
		sess.state.Phase = schema.PhaseEscalating
		narration = "The student shoves their chair back and refuses to continue. The session is over."
	}

	decision, uerr := e.updater.Consider(ctx, turn, result)
	if uerr != nil {
		logger.Errorf("updater failed for session %s turn %d: %v", sessionID, sess.turn, uerr)
		result.Warnings = append(result.Warnings, fmt.Sprintf("knowledge update failed: %v", uerr))
	}

	rec := session.TurnRecord{
		SessionID:    sessionID,
		Turn:         sess.turn,
		Response:     response,
		Overall:      result.Overall,
		PerCriterion: result.PerCriterion,
		Suggestions:  result.Suggestions,
		PhaseBefore:  phaseBefore,
		PhaseAfter:   sess.state.Phase,
		Narration:    narration,
		CreatedAt:    turn.Timestamp,
	}
	if err := e.history.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	size, _ := e.store.Count(ctx)
	metrics.Emit(metrics.TurnMetrics{
		SessionID:     sessionID,
		Turn:          sess.turn,
		Overall:       result.Overall,
		Criteria:      critMetrics,
		StudentPhase:  sess.state.Phase.String(),
		UpdaterReason: decision.Reason,
		IndexSize:     size,
		TotalMs:       total.ElapsedMs(),
		Degraded:      result.Degraded,
	})

	return &TurnOutcome{
		Turn:       sess.turn,
		Result:     result,
		State:      sess.state,
		Narration:  narration,
		Updater:    decision,
		Terminated: sess.terminated,
	}, nil
}

// enrich appends analyzer advice to the template feedback. Analyzer failures
// only log; the template lines always survive.
func (e *Engine) enrich(ctx context.Context, turn schema.TeacherTurn, result *schema.EvaluationResult) {
	if e.analyzer == nil {
		return
	}
	advice, err := e.analyzer.Analyze(ctx, turn, *result)
	if err != nil {
		logger.Warnf("analysis unavailable, keeping template feedback: %v", err)
		return
	}
	result.Strengths = append(result.Strengths, capStrings(advice.Strengths, maxAdviceItems)...)
	result.Suggestions = append(result.Suggestions, capStrings(advice.Suggestions, maxAdviceItems)...)
}

func capStrings(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}

// Summary builds the end-of-session report from persisted history.
func (e *Engine) Summary(ctx context.Context, sessionID string) (session.Summary, error) {
	if _, err := e.session(sessionID); err != nil {
		return session.Summary{}, err
	}
	records, err := e.history.List(ctx, sessionID)
	if err != nil {
		return session.Summary{}, err
	}
	return session.Summarize(sessionID, records), nil
}

// EndSession forgets a session. Its history stays in the store.
func (e *Engine) EndSession(sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	delete(e.sessions, sessionID)
	return nil
}

// Seed embeds and stores bootstrap strategies. Entries that already carry a
// vector are stored as-is.
func (e *Engine) Seed(ctx context.Context, strategies []schema.Strategy) error {
	for i, s := range strategies {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if len(s.Vector) == 0 {
			vec, err := e.embed.Embed(ctx, s.Text)
			if err != nil {
				return fmt.Errorf("seed strategy %d: %w", i, err)
			}
			s.Vector = vec
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now().UTC()
		}
		if err := e.store.Upsert(ctx, s); err != nil {
			return fmt.Errorf("seed strategy %d: %w", i, err)
		}
	}
	return nil
}

// KnowledgeStats reports the current index size.
func (e *Engine) KnowledgeStats(ctx context.Context) (int, error) {
	return e.store.Count(ctx)
}

// Close releases the history store and flushes logs.
func (e *Engine) Close() error {
	logger.Sync()
	return e.history.Close()
}

// turnSeed derives a stable per-turn seed so replaying a session reproduces
// the same student behavior.
func turnSeed(sessionID string, turn int) int64 {
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	h.Write([]byte{byte(turn), byte(turn >> 8), byte(turn >> 16), byte(turn >> 24)})
	return int64(h.Sum64())
}
