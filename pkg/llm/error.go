// Package llm provides the wire representations of the inference server's chat
// API: messages, upstream payloads, streamed chunks and final responses.
package llm

// ErrorResponse represents an error body, both from the inference server and
// from the console's own HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}
