package teachsim

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lumenlearn/teachsim/config"
	"github.com/lumenlearn/teachsim/schema"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// NewServer builds the engine and exposes it as an MCP tool server. The
// trainee-facing application drives a whole session through these tools.
func NewServer(ctx context.Context, cfg *config.Config) (*server.MCPServer, *Engine, error) {
	engine, err := New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	s := server.NewMCPServer(
		"teachsim",
		Version,
		server.WithInstructions("Teacher-training simulator: start a classroom scenario, submit teacher responses for multi-criteria evaluation, and track the simulated student."),
	)

	s.AddTool(
		mcp.NewToolWithRawSchema("start-session", "Open a training session for a classroom scenario and return the initial student state", startSessionSchema()),
		handleStartSession(engine),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("evaluate-response", "Score a teacher response against the knowledge base and advance the simulated student", evaluateResponseSchema()),
		handleEvaluateResponse(engine),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("session-summary", "Summarize a session: average score, best response, recurring suggestions", sessionSummarySchema()),
		handleSessionSummary(engine),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("end-session", "Close a session and discard its in-memory state", endSessionSchema()),
		handleEndSession(engine),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema("knowledge-stats", "Report the number of strategies in the knowledge index", knowledgeStatsSchema()),
		handleKnowledgeStats(engine),
	)

	return s, engine, nil
}

func startSessionSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"subject": {"type": "string", "enum": ["math", "reading", "science", "social_studies"]},
			"time_of_day": {"type": "string", "enum": ["morning", "after_lunch", "late_afternoon"]},
			"topic": {"type": "string", "description": "Lesson topic, e.g. two-digit subtraction"},
			"learning_style": {"type": "string", "enum": ["visual", "auditory", "kinesthetic"]}
		},
		"required": ["subject", "time_of_day", "topic", "learning_style"]
	}`)
}

func evaluateResponseSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"session_id": {"type": "string"},
			"response": {"type": "string", "description": "The teacher's free-text response to the student"}
		},
		"required": ["session_id", "response"]
	}`)
}

func sessionSummarySchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"session_id": {"type": "string"}},
		"required": ["session_id"]
	}`)
}

func endSessionSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {"session_id": {"type": "string"}},
		"required": ["session_id"]
	}`)
}

func knowledgeStatsSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func stringArg(req mcp.CallToolRequest, key string) (string, error) {
	v, ok := req.GetArguments()[key]
	if !ok {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %s must be a non-empty string", key)
	}
	return s, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func handleStartSession(e *Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var scenario schema.Scenario
		topic, err := stringArg(req, "topic")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		subject, err := stringArg(req, "subject")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tod, err := stringArg(req, "time_of_day")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		style, err := stringArg(req, "learning_style")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		scenario.Topic = topic
		scenario.Subject = schema.Subject(subject)
		scenario.TimeOfDay = schema.TimeOfDay(tod)
		scenario.LearningStyle = schema.LearningStyle(style)

		sess, err := e.StartSession(scenario)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"session_id": sess.ID,
			"scenario":   sess.Scenario,
			"state":      sess.State(),
		})
	}
}

func handleEvaluateResponse(e *Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := stringArg(req, "session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		response, err := stringArg(req, "response")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		outcome, err := e.Submit(ctx, sessionID, response)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(outcome)
	}
}

func handleSessionSummary(e *Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := stringArg(req, "session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		summary, err := e.Summary(ctx, sessionID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(summary)
	}
}

func handleEndSession(e *Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := stringArg(req, "session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := e.EndSession(sessionID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]string{"status": "ended", "session_id": sessionID})
	}
}

func handleKnowledgeStats(e *Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		count, err := e.KnowledgeStats(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]int{"strategies": count})
	}
}
