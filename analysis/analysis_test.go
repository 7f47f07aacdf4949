package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/schema"
)

func testTurn() schema.TeacherTurn {
	return schema.TeacherTurn{
		Text: "let's draw the problem together",
		Scenario: schema.Scenario{
			Subject:       schema.SubjectMath,
			TimeOfDay:     schema.TimeMorning,
			Topic:         "subtraction",
			LearningStyle: schema.StyleVisual,
		},
		StateBefore: schema.StudentState{Phase: schema.PhaseFrustrated},
	}
}

func TestHTTPAnalyzer_Analyze(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Format string `json:"format"`
			Stream bool   `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Prompt
		if req.Stream {
			t.Error("streaming must be disabled")
		}
		advice, _ := json.Marshal(map[string][]string{
			"strengths":   {"warm tone"},
			"suggestions": {"name the next step"},
		})
		_ = json.NewEncoder(w).Encode(map[string]string{"response": string(advice)})
	}))
	defer srv.Close()

	a, err := NewHTTP(&config.AnalysisConfig{Endpoint: srv.URL, Model: "llama3"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	advice, err := a.Analyze(context.Background(), testTurn(), schema.EvaluationResult{Overall: 0.7})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(advice.Strengths) != 1 || advice.Strengths[0] != "warm tone" {
		t.Fatalf("unexpected strengths: %v", advice.Strengths)
	}
	if len(advice.Suggestions) != 1 || advice.Suggestions[0] != "name the next step" {
		t.Fatalf("unexpected suggestions: %v", advice.Suggestions)
	}
	if !strings.Contains(gotPrompt, "let's draw the problem together") {
		t.Fatalf("prompt missing teacher response: %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "frustrated") {
		t.Fatalf("prompt missing student phase: %q", gotPrompt)
	}
}

func TestHTTPAnalyzer_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a, err := NewHTTP(&config.AnalysisConfig{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Analyze(context.Background(), testTurn(), schema.EvaluationResult{}); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestHTTPAnalyzer_NonJSONAdvice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "sure, here are my thoughts..."})
	}))
	defer srv.Close()

	a, err := NewHTTP(&config.AnalysisConfig{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := a.Analyze(context.Background(), testTurn(), schema.EvaluationResult{}); err == nil {
		t.Fatal("expected parse error for non-JSON advice")
	}
}

func TestNewHTTP_RequiresEndpoint(t *testing.T) {
	if _, err := NewHTTP(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewHTTP(&config.AnalysisConfig{}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}
