// Package relay drives a chat exchange with the inference server: it validates
// the client's request, streams the reply back as events while accumulating
// it, and records the exchange in the conversation history and the API call
// log.
package relay

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
	"github.com/g023/g023-OllamaMan-sub000/pkg/upstream"
)

// Upstream is the inference server client.
type Upstream interface {
	StreamChat(ctx context.Context, baseURL string, payload *llm.ChatRequest) (*upstream.Stream, error)
	Chat(ctx context.Context, baseURL string, payload *llm.ChatRequest) (*llm.ChatResponse, error)
}

// SettingsProvider returns the current runtime overrides. It is read once per
// exchange.
type SettingsProvider interface {
	GetAll(ctx context.Context) (map[string]string, error)
}

// ConversationWriter stores a completed exchange and returns its ID.
type ConversationWriter interface {
	Append(ctx context.Context, c *storage.Conversation) (string, error)
}

// APILogWriter records one call to the inference server.
type APILogWriter interface {
	Append(ctx context.Context, l *storage.APILog) error
}

// Defaults apply when the settings store has no override.
type Defaults struct {
	Host          string
	Port          int
	KeepAlive     string
	RetentionDays int
}

// Options wires a Relay to its collaborators.
type Options struct {
	Client        Upstream
	Settings      SettingsProvider
	Conversations ConversationWriter
	Logs          APILogWriter
	Defaults      Defaults
	Logger        *zap.Logger
}

// Relay runs chat exchanges. It is safe for concurrent use; every exchange
// owns its own parser and accumulator.
type Relay struct {
	client        Upstream
	settings      SettingsProvider
	conversations ConversationWriter
	logs          APILogWriter
	logger        *zap.Logger

	defaults atomic.Pointer[Defaults]
	now      func() time.Time
}

// New creates a Relay.
func New(opts Options) *Relay {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Relay{
		client:        opts.Client,
		settings:      opts.Settings,
		conversations: opts.Conversations,
		logs:          opts.Logs,
		logger:        logger,
		now:           time.Now,
	}
	r.SetDefaults(opts.Defaults)
	return r
}

// SetDefaults replaces the fallback values used when the settings store has
// no override. Exchanges already running keep the values they started with.
func (r *Relay) SetDefaults(d Defaults) {
	r.defaults.Store(&d)
}

// Defaults returns the current fallback values.
func (r *Relay) Defaults() Defaults {
	return *r.defaults.Load()
}

// target is the per-exchange snapshot of where and how to call upstream.
type target struct {
	baseURL       string
	keepAlive     string
	retentionDays int
}

// historyEnabled reports whether completed exchanges should be stored.
func (t target) historyEnabled() bool {
	return t.retentionDays != 0
}

func (r *Relay) resolve(ctx context.Context) target {
	d := r.Defaults()
	host, port, keepAlive, retention := d.Host, d.Port, d.KeepAlive, d.RetentionDays

	if r.settings != nil {
		settings, err := r.settings.GetAll(ctx)
		if err != nil {
			r.logger.Warn("reading settings failed, using defaults", zap.Error(err))
		}

		if v := strings.TrimSpace(settings[storage.SettingOllamaHost]); v != "" {
			host = v
		}
		if v, err := strconv.Atoi(strings.TrimSpace(settings[storage.SettingOllamaPort])); err == nil && v > 0 && v <= 65535 {
			port = v
		}
		if v := strings.TrimSpace(settings[storage.SettingKeepAlive]); v != "" {
			keepAlive = v
		}
		if v, err := strconv.Atoi(strings.TrimSpace(settings[storage.SettingHistoryRetention])); err == nil {
			retention = v
		}
	}

	return target{
		baseURL:       upstream.BaseURL(host, port),
		keepAlive:     keepAlive,
		retentionDays: retention,
	}
}
