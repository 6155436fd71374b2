package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
	"github.com/g023/g023-OllamaMan-sub000/pkg/ndjson"
	"github.com/g023/g023-OllamaMan-sub000/pkg/upstream"
)

// Outcome summarizes a finished exchange.
type Outcome struct {
	Content        string
	ToolCalls      []llm.ToolCall
	Completed      bool // upstream sent done=true
	Aborted        bool // the client went away mid-stream
	ConversationID string
	Duration       time.Duration

	// Err is the validation or transport error reported to the client, if any.
	Err error
}

// emitter forwards events to the sink until the first failed write, after
// which the exchange is treated as abandoned by the client.
type emitter struct {
	sink   EventSink
	cancel context.CancelFunc
	failed bool
}

func (e *emitter) send(event string, data any) {
	if e.failed {
		return
	}
	if err := e.sink.Send(event, data); err != nil {
		e.failed = true
		e.cancel()
	}
}

// Stream runs one streaming exchange, writing events to sink. It always
// finishes the event sequence with done and never returns an error to the
// caller; failures are reported through the error event and the Outcome.
//
// A request that fails validation gets error and done only: upstream is not
// contacted, so no API log entry is written. Every other invocation writes
// exactly one.
func (r *Relay) Stream(ctx context.Context, req *ChatRequest, sink EventSink) *Outcome {
	if err := Validate(req); err != nil {
		sink.Send(EventError, ErrorEvent{Error: err.Error()})
		sink.Send(EventDone, DoneEvent{Done: true})
		return &Outcome{Err: err}
	}

	started := r.now()
	t := r.resolve(ctx)
	payload := BuildPayload(req, t.keepAlive)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e := &emitter{sink: sink, cancel: cancel}
	e.send(EventStart, StartEvent{Model: req.Model, Timestamp: started.UTC().Format(time.RFC3339Nano)})

	r.logger.Debug("relaying chat stream",
		zap.String("model", req.Model),
		zap.Int("message_count", len(payload.Messages)),
		zap.String("upstream", t.baseURL),
	)

	var (
		content   strings.Builder
		toolCalls []llm.ToolCall
		final     *llm.StreamChunk
		streamErr error
	)

	handle := func(chunks []llm.StreamChunk) {
		for i := range chunks {
			if final != nil {
				// Anything after done=true would land after complete.
				return
			}
			chunk := &chunks[i]
			if chunk.Error != "" && streamErr == nil {
				streamErr = errors.New(chunk.Error)
			}
			if len(chunk.Message.ToolCalls) > 0 {
				toolCalls = append(toolCalls, chunk.Message.ToolCalls...)
				e.send(EventToolCall, ToolCallEvent{ToolCalls: chunk.Message.ToolCalls})
			}
			if chunk.Message.Content != "" {
				content.WriteString(chunk.Message.Content)
				e.send(EventToken, TokenEvent{Content: chunk.Message.Content})
			}
			if chunk.Done {
				final = chunk
				e.send(EventComplete, CompleteEvent{
					Model:     chunk.Model,
					CreatedAt: chunk.CreatedAt,
					Telemetry: telemetryFrom(chunk.Metrics),
				})
			}
		}
	}

	var (
		status   int
		received int64
	)
	if !e.failed {
		stream, err := r.client.StreamChat(streamCtx, t.baseURL, payload)
		if err != nil {
			streamErr = err
		} else {
			parser := ndjson.NewParser[llm.StreamChunk]()
			// Stop reading once the client is gone or upstream has finished;
			// Close aborts the upstream request.
			for !e.failed && final == nil {
				chunk, err := stream.Next()
				if err != nil {
					break
				}
				handle(parser.Feed(chunk))
			}
			if err := stream.Err(); err != nil && streamErr == nil {
				streamErr = err
			}
			if !e.failed && final == nil {
				handle(parser.Flush())
			}
			status, received = stream.StatusCode(), stream.BytesRead()
			stream.Close()

			if n := parser.Dropped(); n > 0 {
				r.logger.Debug("dropped malformed upstream lines", zap.Int("count", n))
			}
		}
	}

	out := &Outcome{
		Content:   content.String(),
		ToolCalls: toolCalls,
		Completed: final != nil,
		Aborted:   e.failed || ctx.Err() != nil,
	}

	// A cancellation caused by the client leaving is not an upstream failure.
	if out.Aborted && (streamErr == nil || upstream.IsCanceled(streamErr)) {
		streamErr = nil
	}
	out.Err = streamErr

	if streamErr != nil {
		e.send(EventError, ErrorEvent{Error: errorMessage(streamErr)})
	}
	e.send(EventDone, DoneEvent{Done: true})
	out.Duration = r.now().Sub(started)

	var metrics llm.Metrics
	if final != nil {
		metrics = final.Metrics
	}
	r.record(context.WithoutCancel(ctx), t, req, payload, exchange{
		content:   out.Content,
		toolCalls: toolCalls,
		metrics:   metrics,
		err:       streamErr,
		aborted:   out.Aborted,
		duration:  out.Duration,
	}, out)

	if streamErr != nil {
		r.logger.Warn("chat stream failed",
			zap.String("model", req.Model),
			zap.Int("upstream_status", status),
			zap.Int64("bytes_read", received),
			zap.Error(streamErr),
		)
	} else {
		r.logger.Debug("chat stream finished",
			zap.String("model", req.Model),
			zap.Bool("aborted", out.Aborted),
			zap.Int("upstream_status", status),
			zap.Int64("bytes_read", received),
			zap.String("content_preview", truncate(out.Content, 200)),
			zap.Duration("duration", out.Duration),
		)
	}

	return out
}

// errorMessage returns the text shown to the user for err.
func errorMessage(err error) string {
	var ce *upstream.ClientError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
