// Package metrics emits per-turn observability records as structured log
// lines. No collector backend is assumed; the JSON lines are grep-friendly.
package metrics

import (
	"encoding/json"
	"time"

	"github.com/lumenlearn/teachsim/common/logger"
	"github.com/lumenlearn/teachsim/schema"
)

// CriterionMetrics captures one evaluator's contribution to a turn.
type CriterionMetrics struct {
	Score     float64 `json:"score"`
	LatencyMs int64   `json:"latency_ms"`
	Degraded  bool    `json:"degraded,omitempty"`
	Failed    bool    `json:"failed,omitempty"`
}

// TurnMetrics is the full observability record for one evaluated turn.
type TurnMetrics struct {
	SessionID     string                                `json:"session_id,omitempty"`
	Turn          int                                   `json:"turn"`
	Overall       float64                               `json:"overall"`
	Criteria      map[schema.Criterion]CriterionMetrics `json:"criteria"`
	StudentPhase  string                                `json:"student_phase"`
	UpdaterReason string                                `json:"updater_reason,omitempty"`
	IndexSize     int                                   `json:"index_size"`
	TotalMs       int64                                 `json:"total_ms"`
	Degraded      bool                                  `json:"degraded,omitempty"`
}

// Timer measures one span in milliseconds.
type Timer struct{ start time.Time }

func StartTimer() Timer { return Timer{start: time.Now()} }

func (t Timer) ElapsedMs() int64 { return time.Since(t.start).Milliseconds() }

// Emit writes the record as a single JSON log line.
func Emit(m TurnMetrics) {
	data, err := json.Marshal(m)
	if err != nil {
		logger.Warnf("metrics: marshal turn record: %v", err)
		return
	}
	logger.Infof("turn_metrics %s", string(data))
}
