package relay

import "github.com/g023/g023-OllamaMan-sub000/pkg/llm"

// Event names written to the client, in the order they may occur:
// start, then any number of token and tool_call, at most one complete, at
// most one error, and finally done.
const (
	EventStart    = "start"
	EventToken    = "token"
	EventToolCall = "tool_call"
	EventComplete = "complete"
	EventError    = "error"
	EventDone     = "done"
)

// EventSink receives relay events in order. Each event must reach the client
// before Send returns. An error means the client is gone.
type EventSink interface {
	Send(event string, data any) error
}

type StartEvent struct {
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}

type TokenEvent struct {
	Content string `json:"content"`
}

type ToolCallEvent struct {
	ToolCalls []llm.ToolCall `json:"tool_calls"`
}

// Telemetry mirrors llm.Metrics but always serializes every field, as null
// when the inference server did not report it.
type Telemetry struct {
	TotalDuration      *int64 `json:"total_duration"`
	LoadDuration       *int64 `json:"load_duration"`
	PromptEvalCount    *int64 `json:"prompt_eval_count"`
	PromptEvalDuration *int64 `json:"prompt_eval_duration"`
	EvalCount          *int64 `json:"eval_count"`
	EvalDuration       *int64 `json:"eval_duration"`
}

func telemetryFrom(m llm.Metrics) Telemetry {
	return Telemetry{
		TotalDuration:      m.TotalDuration,
		LoadDuration:       m.LoadDuration,
		PromptEvalCount:    m.PromptEvalCount,
		PromptEvalDuration: m.PromptEvalDuration,
		EvalCount:          m.EvalCount,
		EvalDuration:       m.EvalDuration,
	}
}

type CompleteEvent struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Telemetry
}

type ErrorEvent struct {
	Error string `json:"error"`
}

type DoneEvent struct {
	Done bool `json:"done"`
}
