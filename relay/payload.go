package relay

import (
	"bytes"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
)

// BuildPayload turns a validated request into the body sent to the inference
// server's /api/chat endpoint.
func BuildPayload(req *ChatRequest, keepAlive string) *llm.ChatRequest {
	messages := make([]llm.Message, 0, len(req.Messages)+1)
	if req.System != "" && (len(req.Messages) == 0 || req.Messages[0].Role != llm.RoleSystem) {
		messages = append(messages, llm.NewTextMessage(llm.RoleSystem, req.System))
	}
	for _, m := range req.Messages {
		messages = append(messages, m.LLM())
	}

	if len(req.Images) > 0 {
		attachImages(messages, req.Images)
	}

	payload := &llm.ChatRequest{
		Model:     req.Model,
		Messages:  messages,
		Stream:    true,
		Options:   llm.CoerceOptions(req.Options),
		KeepAlive: keepAlive,
	}
	if len(req.Tools) > 0 {
		payload.Tools = req.Tools
	}
	if hasFormat(req.Format) {
		payload.Format = req.Format
	}
	return payload
}

// attachImages gives images to the last user message, unless that message
// already carries its own.
func attachImages(messages []llm.Message, images []string) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llm.RoleUser {
			continue
		}
		if len(messages[i].Images) == 0 {
			messages[i].Images = images
		}
		return
	}
}

func hasFormat(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", `""`, "{}":
		return false
	}
	return true
}
