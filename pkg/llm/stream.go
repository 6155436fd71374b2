package llm

// StreamChunk represents a single NDJSON object in a streaming response.
type StreamChunk struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`

	DoneReason string `json:"done_reason,omitempty"`

	// Upstream-reported failure mid-stream
	Error string `json:"error,omitempty"`

	// Final chunk includes metrics
	Metrics
}
