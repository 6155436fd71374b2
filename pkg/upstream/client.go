// Package upstream provides the HTTP client for the inference server's chat API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
)

const (
	// DefaultConnectTimeout bounds dialing and the TLS handshake.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultRequestTimeout bounds the whole exchange, body included.
	// Generation on large models can run for many minutes.
	DefaultRequestTimeout = 1800 * time.Second

	// DefaultReadSize is the maximum size of a chunk returned by Stream.Next.
	DefaultReadSize = 32 * 1024

	chatPath = "/api/chat"

	// maxErrorBody caps how much of a non-2xx body is read for the error message.
	maxErrorBody = 8 * 1024
)

// Config holds the client's timeouts.
type Config struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	ReadSize       int
}

// Client talks to the inference server. It is safe for concurrent use; every
// call takes the target base URL so the caller can resolve it per request.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client. Zero config values fall back to the defaults.
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.ReadSize <= 0 {
		config.ReadSize = DefaultReadSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: config.ConnectTimeout,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		// Compression would make the transport buffer NDJSON chunks.
		DisableCompression: true,
	}

	return &Client{
		config: config,
		logger: logger,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout,
		},
	}
}

// Config returns the effective client configuration.
func (c *Client) Config() Config {
	return c.config
}

// StreamChat posts payload with stream=true and returns the open response
// stream. A non-2xx status or a failure to connect is returned as *ClientError
// before any bytes are read. The caller must Close the stream.
func (c *Client) StreamChat(ctx context.Context, baseURL string, payload *llm.ChatRequest) (*Stream, error) {
	payload.Stream = true

	target := strings.TrimRight(baseURL, "/")
	httpResp, err := c.post(ctx, target, payload)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("upstream stream opened",
		zap.String("url", target+chatPath),
		zap.Int("status", httpResp.StatusCode),
	)

	return &Stream{
		body:   httpResp.Body,
		buf:    make([]byte, c.config.ReadSize),
		target: target,
		status: httpResp.StatusCode,
	}, nil
}

// Chat posts payload with stream=false and decodes the single JSON response.
func (c *Client) Chat(ctx context.Context, baseURL string, payload *llm.ChatRequest) (*llm.ChatResponse, error) {
	payload.Stream = false

	target := strings.TrimRight(baseURL, "/")
	httpResp, err := c.post(ctx, target, payload)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classify(err, target)
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Code:    "EBADRESPONSE",
			Message: "Ollama returned an invalid response",
			Cause:   err,
		}
	}

	return &resp, nil
}

// post sends payload to {target}/api/chat and checks the status code.
func (c *Client) post(ctx context.Context, target string, payload *llm.ChatRequest) (*http.Response, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	upstreamURL := target + chatPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &ClientError{
			Type:    ErrTypeConnection,
			Code:    "EBADURL",
			Message: "invalid Ollama address " + target,
			Cause:   err,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if payload.Stream {
		httpReq.Header.Set("Accept", "application/x-ndjson")
	}

	c.logger.Debug("forwarding request to upstream",
		zap.String("url", upstreamURL),
		zap.String("model", payload.Model),
		zap.Bool("stream", payload.Stream),
		zap.Int("body_size", len(reqBody)),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(err, target)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		defer httpResp.Body.Close()
		return nil, statusError(httpResp, target)
	}

	return httpResp, nil
}

// statusError builds a ClientError from a non-2xx response, preferring the
// server's own {"error": "..."} message.
func statusError(httpResp *http.Response, target string) *ClientError {
	body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))

	detail := strings.TrimSpace(string(body))
	var errResp llm.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		detail = errResp.Error
	}
	if detail == "" {
		detail = http.StatusText(httpResp.StatusCode)
	}

	return &ClientError{
		Type:       ErrTypeHTTPStatus,
		Code:       "HTTP_" + strconv.Itoa(httpResp.StatusCode),
		Message:    fmt.Sprintf("Ollama at %s returned %d: %s", target, httpResp.StatusCode, detail),
		StatusCode: httpResp.StatusCode,
	}
}

// BaseURL builds the inference server base URL from a host and port. The host
// may carry a scheme ("https://gpu-box") and may already include a port, in
// which case port is ignored.
func BaseURL(host string, port int) string {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "localhost"
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}

	u, err := url.Parse(host)
	if err != nil {
		return strings.TrimRight(host, "/")
	}

	if u.Port() == "" && port > 0 {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	}

	return strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/")
}
