package llm

// Message roles accepted by the inference server.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single message in a conversation.
type Message struct {
	Role      string     `json:"role"`                 // "system", "user", "assistant", "tool"
	Content   string     `json:"content"`              // The message content
	Images    []string   `json:"images,omitempty"`     // Optional base64-encoded images (for multimodal)
	ToolCalls []ToolCall `json:"tool_calls,omitempty"` // Tool invocations requested by the assistant
}

// ToolCall represents a tool invocation emitted by the model.
type ToolCall struct {
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction holds the invoked function name and its arguments.
type ToolCallFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NewTextMessage creates a plain text message for the given role.
func NewTextMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}
