// Package sse writes Server-Sent Events frames.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Headers are the response headers an SSE endpoint must send. Buffering is
// disabled end to end so each event reaches the client as soon as it is written.
var Headers = map[string]string{
	"Content-Type":      "text/event-stream",
	"Cache-Control":     "no-cache",
	"Connection":        "keep-alive",
	"X-Accel-Buffering": "no",
}

// ErrClosed is returned by Send after the writer has failed or been closed.
var ErrClosed = errors.New("sse: writer closed")

// Writer encodes events as `event: <name>\ndata: <json>\n\n` frames and
// flushes after every frame.
//
// Once a write fails the Writer latches the error and every subsequent Send
// returns it, so a disconnected client is detected exactly once.
type Writer struct {
	w     io.Writer
	flush func() error
	mu    sync.Mutex
	err   error
	sent  int
}

// NewWriter wraps w. Buffered writers (*bufio.Writer, http.Flusher) are
// flushed after each event; writers without buffering (such as an
// io.PipeWriter) need no flush.
func NewWriter(w io.Writer) *Writer {
	s := &Writer{w: w}
	switch f := w.(type) {
	case interface{ Flush() error }:
		s.flush = f.Flush
	case http.Flusher:
		s.flush = func() error {
			f.Flush()
			return nil
		}
	}
	return s
}

// Send writes a single event with data encoded as JSON.
func (s *Writer) Send(event string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal %s payload: %w", event, err)
	}

	frame := make([]byte, 0, len(event)+len(body)+16)
	frame = append(frame, "event: "...)
	frame = append(frame, event...)
	frame = append(frame, "\ndata: "...)
	frame = append(frame, body...)
	frame = append(frame, "\n\n"...)

	return s.write(frame)
}

// Sent returns the number of events successfully written.
func (s *Writer) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Err returns the latched write error, if any.
func (s *Writer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Writer) write(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if s.w == nil {
		s.err = ErrClosed
		return s.err
	}

	if _, err := s.w.Write(frame); err != nil {
		s.err = fmt.Errorf("sse: write: %w", err)
		return s.err
	}
	if s.flush != nil {
		if err := s.flush(); err != nil {
			s.err = fmt.Errorf("sse: flush: %w", err)
			return s.err
		}
	}

	s.sent++
	return nil
}
