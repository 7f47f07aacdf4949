// Package analysis enriches template feedback with observations from an
// external language model. The engine treats it as strictly optional: any
// failure leaves the template feedback untouched.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lumenlearn/teachsim/common/httpx"
	"github.com/lumenlearn/teachsim/common/logger"
	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/schema"
)

// Advice is the analyzer's contribution to turn feedback.
type Advice struct {
	Strengths   []string `json:"strengths"`
	Suggestions []string `json:"suggestions"`
}

// Analyzer produces free-form coaching advice for one evaluated turn.
type Analyzer interface {
	Analyze(ctx context.Context, turn schema.TeacherTurn, result schema.EvaluationResult) (Advice, error)
}

// HTTPAnalyzer calls an Ollama-compatible generate endpoint and asks the
// model for JSON advice.
type HTTPAnalyzer struct {
	endpoint string
	model    string
	client   *httpx.Client
}

// NewHTTP builds an analyzer from configuration.
func NewHTTP(cfg *config.AnalysisConfig) (*HTTPAnalyzer, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("analysis: endpoint not configured")
	}
	return &HTTPAnalyzer{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		client:   httpx.NewFromConfig(cfg.HTTP),
	}, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Analyze posts the turn context and parses the model's JSON reply. The
// response body is capped so a misbehaving endpoint cannot exhaust memory.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, turn schema.TeacherTurn, result schema.EvaluationResult) (Advice, error) {
	body, err := json.Marshal(generateRequest{
		Model:  a.model,
		Prompt: buildPrompt(turn, result),
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return Advice{}, fmt.Errorf("analysis: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Advice{}, fmt.Errorf("analysis: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return Advice{}, fmt.Errorf("analysis: call endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Advice{}, fmt.Errorf("analysis: endpoint returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Advice{}, fmt.Errorf("analysis: read response: %w", err)
	}
	var gen generateResponse
	if err := json.Unmarshal(raw, &gen); err != nil {
		return Advice{}, fmt.Errorf("analysis: parse envelope: %w", err)
	}
	var advice Advice
	if err := json.Unmarshal([]byte(gen.Response), &advice); err != nil {
		logger.Debugf("analysis: model returned non-JSON advice: %q", gen.Response)
		return Advice{}, fmt.Errorf("analysis: parse advice: %w", err)
	}
	return advice, nil
}

func buildPrompt(turn schema.TeacherTurn, result schema.EvaluationResult) string {
	var b strings.Builder
	b.WriteString("You are a teaching coach. A teacher responded to a ")
	b.WriteString(string(turn.Scenario.Subject))
	b.WriteString(" scenario (")
	b.WriteString(string(turn.Scenario.TimeOfDay))
	b.WriteString(", ")
	b.WriteString(string(turn.Scenario.LearningStyle))
	b.WriteString(" learner, topic: ")
	b.WriteString(turn.Scenario.Topic)
	b.WriteString(") with a ")
	b.WriteString(turn.StateBefore.Phase.String())
	b.WriteString(" student.\n\nTeacher response: ")
	b.WriteString(turn.Text)
	fmt.Fprintf(&b, "\n\nOverall score: %.2f. Per-criterion:", result.Overall)
	for c, s := range result.PerCriterion {
		fmt.Fprintf(&b, " %s=%.2f", c, s)
	}
	b.WriteString("\n\nReply with JSON only: {\"strengths\": [...], \"suggestions\": [...]}. ")
	b.WriteString("At most two items per list, each one short sentence.")
	return b.String()
}
