// Package ndjson decodes newline-delimited JSON that arrives in arbitrary
// network chunks.
package ndjson

import (
	"bytes"
	"encoding/json"
)

// DefaultMaxLineSize bounds the pending partial line. A line that grows past
// it without a newline is discarded.
const DefaultMaxLineSize = 16 * 1024 * 1024

// Parser is a stateful, single-writer NDJSON decoder. Chunk boundaries never
// need to align with line boundaries: the trailing partial line of each chunk
// is buffered until the rest of it arrives.
//
// Lines that fail to decode into T are dropped silently.
type Parser[T any] struct {
	pending     []byte
	maxLineSize int
	dropped     int
}

// NewParser creates a Parser with the default line size limit.
func NewParser[T any]() *Parser[T] {
	return &Parser[T]{maxLineSize: DefaultMaxLineSize}
}

// SetMaxLineSize changes the pending line limit. Values <= 0 disable the limit.
func (p *Parser[T]) SetMaxLineSize(n int) {
	p.maxLineSize = n
}

// Feed appends chunk to the pending buffer and decodes every complete line.
// The last segment after the final newline is kept for the next call.
func (p *Parser[T]) Feed(chunk []byte) []T {
	if len(chunk) == 0 {
		return nil
	}

	p.pending = append(p.pending, chunk...)

	var out []T
	for {
		idx := bytes.IndexByte(p.pending, '\n')
		if idx < 0 {
			break
		}

		line := p.pending[:idx]
		p.pending = p.pending[idx+1:]

		if v, ok := p.decode(line); ok {
			out = append(out, v)
		}
	}

	if p.maxLineSize > 0 && len(p.pending) > p.maxLineSize {
		p.pending = nil
		p.dropped++
	}

	// Release the consumed prefix so the backing array does not grow forever.
	if len(p.pending) == 0 {
		p.pending = nil
	} else {
		p.pending = append([]byte(nil), p.pending...)
	}

	return out
}

// Flush decodes whatever remains in the pending buffer as a final line and
// resets the parser. It is meant for end-of-stream, when no newline will follow.
func (p *Parser[T]) Flush() []T {
	line := p.pending
	p.pending = nil

	if v, ok := p.decode(line); ok {
		return []T{v}
	}
	return nil
}

// Pending returns the number of buffered bytes awaiting a newline.
func (p *Parser[T]) Pending() int {
	return len(p.pending)
}

// Dropped returns how many lines were discarded, either because they did not
// decode or because they exceeded the line size limit.
func (p *Parser[T]) Dropped() int {
	return p.dropped
}

func (p *Parser[T]) decode(line []byte) (T, bool) {
	var v T

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return v, false
	}

	if err := json.Unmarshal(line, &v); err != nil {
		p.dropped++
		return v, false
	}
	return v, true
}
