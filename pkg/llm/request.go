package llm

import "encoding/json"

// ChatRequest is the payload sent to the inference server's /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`    // Model name (e.g., "llama3", "mistral")
	Messages []Message `json:"messages"` // Conversation history
	Stream   bool      `json:"stream"`   // NDJSON streaming when true

	// Generation options, restricted to the recognized keys (see CoerceOptions)
	Options map[string]any `json:"options,omitempty"`

	// Keep model loaded
	KeepAlive string `json:"keep_alive,omitempty"` // How long to keep model in memory

	// Tool definitions for function calling
	Tools []Tool `json:"tools,omitempty"`

	// Structured output: "json" or a JSON schema object
	Format json.RawMessage `json:"format,omitempty"`
}

// Tool represents a tool definition for function calling.
type Tool struct {
	Type     string       `json:"type"` // Always "function"
	Function ToolFunction `json:"function"`
}

// ToolFunction describes a callable function and its JSON schema parameters.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}
