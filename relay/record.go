package relay

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

const (
	chatEndpoint = "/api/chat"

	// responsePreviewLen caps the assistant text copied into the API log.
	responsePreviewLen = 500
)

// exchange is what an exchange produced, for bookkeeping.
type exchange struct {
	content   string
	toolCalls []llm.ToolCall
	metrics   llm.Metrics
	err       error
	aborted   bool
	duration  time.Duration
}

// record stores the conversation, when there is something to store and
// history is enabled, and always writes one API log entry. Failures are
// logged and never reach the client.
func (r *Relay) record(ctx context.Context, t target, req *ChatRequest, payload *llm.ChatRequest, x exchange, out *Outcome) {
	durationMs := x.duration.Milliseconds()

	if x.content != "" && x.err == nil && t.historyEnabled() && r.conversations != nil {
		messages := make(storage.JSONMessages, 0, len(req.Messages)+1)
		for _, m := range req.Messages {
			messages = append(messages, m.LLM())
		}
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   x.content,
			ToolCalls: x.toolCalls,
		})

		metadata := storage.JSONMap(x.metrics.Map())
		metadata["duration_ms"] = durationMs
		if x.aborted {
			metadata["aborted"] = true
		}

		id, err := r.conversations.Append(ctx, &storage.Conversation{
			Model:    req.Model,
			Messages: messages,
			Metadata: metadata,
		})
		if err != nil {
			r.logger.Error("failed to store conversation", zap.String("model", req.Model), zap.Error(err))
		} else {
			out.ConversationID = id
			r.logger.Debug("conversation stored", zap.String("id", id))
		}
	}

	if r.logs == nil {
		return
	}

	entry := &storage.APILog{
		Endpoint: chatEndpoint,
		Method:   "POST",
		Request: storage.JSONMap{
			"model":         payload.Model,
			"message_count": len(payload.Messages),
			"stream":        payload.Stream,
		},
		DurationMs: &durationMs,
	}
	switch {
	case x.err != nil:
		msg := errorMessage(x.err)
		entry.Error = &msg
	case x.aborted:
		msg := "client disconnected"
		entry.Error = &msg
		if x.content != "" {
			preview := truncate(x.content, responsePreviewLen)
			entry.Response = &preview
		}
	default:
		preview := truncate(x.content, responsePreviewLen)
		entry.Response = &preview
	}

	if err := r.logs.Append(ctx, entry); err != nil {
		r.logger.Error("failed to write api log", zap.Error(err))
	}
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
