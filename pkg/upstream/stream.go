package upstream

import (
	"errors"
	"io"
)

// Stream is a pull-based view of a streaming response body. Each call to Next
// returns the bytes that arrived since the previous call, without waiting for
// a full line or the full body.
type Stream struct {
	body   io.ReadCloser
	buf    []byte
	target string
	status int

	bytesRead int64
	done      error // io.EOF on clean end, otherwise the classified failure
	final     error
}

// Next blocks until more bytes arrive and returns them. The returned slice is
// only valid until the next call. At the end of the stream Next returns
// io.EOF; a transport failure is returned as *ClientError. Once Next has
// returned an error it keeps returning it.
func (s *Stream) Next() ([]byte, error) {
	for {
		if s.done != nil {
			return nil, s.done
		}

		n, err := s.body.Read(s.buf)
		if err != nil {
			s.finish(err)
		}
		if n > 0 {
			s.bytesRead += int64(n)
			return s.buf[:n], nil
		}
	}
}

// Err returns the final transport outcome: nil while the stream is open or
// after a clean end, otherwise the *ClientError that ended it.
func (s *Stream) Err() error {
	return s.final
}

// StatusCode returns the upstream HTTP status.
func (s *Stream) StatusCode() int {
	return s.status
}

// BytesRead returns how many body bytes have been delivered so far.
func (s *Stream) BytesRead() int64 {
	return s.bytesRead
}

// Close releases the connection. Closing before the end of the body aborts
// the upstream request.
func (s *Stream) Close() error {
	if s.done == nil {
		s.done = io.EOF
	}
	return s.body.Close()
}

func (s *Stream) finish(err error) {
	if errors.Is(err, io.EOF) {
		s.done = io.EOF
		return
	}
	ce := classify(err, s.target)
	s.done = ce
	s.final = ce
}
