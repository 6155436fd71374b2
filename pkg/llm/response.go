package llm

// Metrics are the timing and token counters reported by the inference server
// on its final chunk. Fields are nil when the server did not report them.
type Metrics struct {
	TotalDuration      *int64 `json:"total_duration,omitempty"`       // Total time in nanoseconds
	LoadDuration       *int64 `json:"load_duration,omitempty"`        // Model load time
	PromptEvalCount    *int64 `json:"prompt_eval_count,omitempty"`    // Tokens in prompt
	PromptEvalDuration *int64 `json:"prompt_eval_duration,omitempty"` // Prompt processing time
	EvalCount          *int64 `json:"eval_count,omitempty"`           // Generated tokens
	EvalDuration       *int64 `json:"eval_duration,omitempty"`        // Generation time
}

// Map flattens the reported metrics into a map, omitting missing values.
func (m Metrics) Map() map[string]any {
	out := make(map[string]any)
	set := func(k string, v *int64) {
		if v != nil {
			out[k] = *v
		}
	}
	set("total_duration", m.TotalDuration)
	set("load_duration", m.LoadDuration)
	set("prompt_eval_count", m.PromptEvalCount)
	set("prompt_eval_duration", m.PromptEvalDuration)
	set("eval_count", m.EvalCount)
	set("eval_duration", m.EvalDuration)
	return out
}

// ChatResponse represents a non-streaming chat completion response.
type ChatResponse struct {
	Model     string  `json:"model"`      // Model that generated the response
	CreatedAt string  `json:"created_at"` // Response timestamp as reported upstream
	Message   Message `json:"message"`    // The assistant's response
	Done      bool    `json:"done"`       // Whether generation is complete

	DoneReason string `json:"done_reason,omitempty"`

	Metrics
}
