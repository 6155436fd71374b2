package proxy

import (
	"bufio"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
	"github.com/g023/g023-OllamaMan-sub000/pkg/sse"
	"github.com/g023/g023-OllamaMan-sub000/pkg/upstream"
	"github.com/g023/g023-OllamaMan-sub000/relay"
)

// handleChatStream relays a chat exchange as Server-Sent Events. Validation
// and upstream failures are reported in-band as an error event; the response
// status is always 200 once the body has been decoded.
func (p *Proxy) handleChatStream(c *fiber.Ctx) error {
	var req relay.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		p.logger.Debug("failed to parse chat request", zap.Error(err))
		metrics.Add(metricBadRequests, 1)
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	for k, v := range sse.Headers {
		c.Set(k, v)
	}

	// The writer runs after the handler returns, so it must not touch c.
	ctx := p.ctx
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		out := p.relay.Stream(ctx, &req, sse.NewWriter(w))
		countOutcome(out)
		if out.Aborted {
			p.logger.Info("client disconnected mid-stream",
				zap.String("model", req.Model),
				zap.Int("content_len", len(out.Content)),
			)
		}
	}))

	return nil
}

// handleChat runs a non-streaming exchange and returns the final message with
// its telemetry.
func (p *Proxy) handleChat(c *fiber.Ctx) error {
	var req relay.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		p.logger.Debug("failed to parse chat request", zap.Error(err))
		metrics.Add(metricBadRequests, 1)
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	res, err := p.relay.Chat(c.UserContext(), &req)
	metrics.Add(metricChats, 1)
	if err != nil {
		metrics.Add(metricExchangeErrors, 1)
		return c.Status(chatErrorStatus(err)).JSON(llm.ErrorResponse{Error: chatErrorMessage(err)})
	}

	return c.JSON(res)
}

func chatErrorStatus(err error) int {
	if relay.IsValidationError(err) {
		return fiber.StatusBadRequest
	}

	var ce *upstream.ClientError
	if errors.As(err, &ce) {
		switch ce.Type {
		case upstream.ErrTypeHTTPStatus:
			if ce.StatusCode >= 400 && ce.StatusCode < 500 {
				return ce.StatusCode
			}
			return fiber.StatusBadGateway
		case upstream.ErrTypeTimeout:
			return fiber.StatusGatewayTimeout
		default:
			return fiber.StatusBadGateway
		}
	}
	return fiber.StatusInternalServerError
}

func chatErrorMessage(err error) string {
	var ce *upstream.ClientError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
