package relay

import (
	"context"

	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
)

// ChatResult is the reply to a non-streaming exchange.
type ChatResult struct {
	Model     string      `json:"model"`
	CreatedAt string      `json:"created_at"`
	Message   llm.Message `json:"message"`
	Telemetry
	DurationMs     int64  `json:"duration_ms"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Chat runs one non-streaming exchange. A rejected request returns a
// *ValidationError without contacting upstream; a transport failure returns
// the *upstream.ClientError after it has been logged.
func (r *Relay) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	started := r.now()
	t := r.resolve(ctx)
	payload := BuildPayload(req, t.keepAlive)

	r.logger.Debug("relaying chat",
		zap.String("model", req.Model),
		zap.Int("message_count", len(payload.Messages)),
		zap.String("upstream", t.baseURL),
	)

	resp, err := r.client.Chat(ctx, t.baseURL, payload)
	duration := r.now().Sub(started)
	out := &Outcome{Duration: duration, Err: err}

	if err != nil {
		r.record(context.WithoutCancel(ctx), t, req, payload, exchange{err: err, duration: duration}, out)
		r.logger.Warn("chat failed", zap.String("model", req.Model), zap.Error(err))
		return nil, err
	}

	r.record(context.WithoutCancel(ctx), t, req, payload, exchange{
		content:   resp.Message.Content,
		toolCalls: resp.Message.ToolCalls,
		metrics:   resp.Metrics,
		duration:  duration,
	}, out)

	msg := resp.Message
	if msg.Role == "" {
		msg.Role = llm.RoleAssistant
	}

	return &ChatResult{
		Model:          resp.Model,
		CreatedAt:      resp.CreatedAt,
		Message:        msg,
		Telemetry:      telemetryFrom(resp.Metrics),
		DurationMs:     duration.Milliseconds(),
		ConversationID: out.ConversationID,
	}, nil
}
