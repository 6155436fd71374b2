package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
)

// ChatRequest is the body clients send to the console's chat endpoints.
type ChatRequest struct {
	Model    string         `json:"model" validate:"required"`
	Messages []Message      `json:"messages" validate:"min=1,dive"`
	Options  map[string]any `json:"options,omitempty"`

	// System is prepended as a system message unless the conversation
	// already opens with one.
	System string `json:"system,omitempty"`

	// Images are base64 blobs attached to the last user message.
	Images []string `json:"images,omitempty"`

	Tools  []llm.Tool      `json:"tools,omitempty"`
	Format json.RawMessage `json:"format,omitempty"`
}

// Message is an inbound message. Content is a pointer so that a missing or
// null content can be told apart from an empty string.
type Message struct {
	Role      string         `json:"role" validate:"required,oneof=system user assistant tool"`
	Content   *string        `json:"content" validate:"required"`
	Images    []string       `json:"images,omitempty"`
	ToolCalls []llm.ToolCall `json:"tool_calls,omitempty"`
}

// LLM converts m into the wire message sent upstream.
func (m Message) LLM() llm.Message {
	out := llm.Message{Role: m.Role, Images: m.Images, ToolCalls: m.ToolCalls}
	if m.Content != nil {
		out.Content = *m.Content
	}
	return out
}

// ValidationError describes why a ChatRequest was rejected. The message is
// qualified with the offending field, e.g. "Messages must contain at least one
// message".
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks req and returns a *ValidationError describing the first
// problem found.
func Validate(req *ChatRequest) error {
	if req == nil {
		return &ValidationError{Field: "Request", Message: "Request body is required"}
	}

	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "Request", Message: err.Error()}
	}
	return describe(verrs[0])
}

func describe(fe validator.FieldError) *ValidationError {
	// Namespace is "ChatRequest.Messages[0].Role"; drop the type name.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Field() == "Messages" {
			msg = "Messages must contain at least one message"
		} else {
			msg = fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		}
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s (got %q)", field,
			strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	default:
		msg = fmt.Sprintf("%s failed the %q check", field, fe.Tag())
	}

	return &ValidationError{Field: field, Message: msg}
}
