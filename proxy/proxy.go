// Package proxy serves the console's HTTP API: the streaming chat relay,
// conversation history, runtime settings and the upstream call log.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
	"github.com/g023/g023-OllamaMan-sub000/relay"
)

// Proxy is the console HTTP server. It relays chat requests to the inference
// server and exposes the stored history, settings and call log.
type Proxy struct {
	config        Config
	settings      *storage.SettingsStore
	conversations *storage.ConversationStore
	logs          *storage.APILogStore
	relay         *relay.Relay
	logger        *zap.Logger
	server        *fiber.App

	ctx     context.Context
	cancel  context.CancelFunc
	janitor sync.WaitGroup
}

// New creates a new Proxy backed by db that reaches the inference server
// through client.
func New(config Config, db *storage.DB, client relay.Upstream, logger *zap.Logger) (*Proxy, error) {
	if db == nil {
		return nil, errors.New("proxy requires a database")
	}
	if client == nil {
		return nil, errors.New("proxy requires an upstream client")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	p := &Proxy{
		config:        config,
		settings:      storage.NewSettingsStore(db),
		conversations: storage.NewConversationStore(db),
		logs:          storage.NewAPILogStore(db),
		logger:        logger,
		server:        app,
		ctx:           ctx,
		cancel:        cancel,
	}
	p.relay = relay.New(relay.Options{
		Client:        client,
		Settings:      p.settings,
		Conversations: p.conversations,
		Logs:          p.logs,
		Defaults:      config.Defaults,
		Logger:        logger.Named("relay"),
	})

	app.Use(fiberrecover.New())
	app.Use(p.logRequests)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Post("/chat/stream", p.handleChatStream)
	app.Post("/chat", p.handleChat)

	app.Get("/settings", p.handleGetSettings)
	app.Put("/settings", p.handlePutSettings)

	app.Get("/conversations", p.handleListConversations)
	app.Get("/conversations/search", p.handleSearchConversations)
	app.Get("/conversations/:id", p.handleGetConversation)
	app.Patch("/conversations/:id", p.handleUpdateConversation)
	app.Delete("/conversations/:id", p.handleDeleteConversation)

	app.Get("/logs", p.handleListLogs)
	app.Delete("/logs", p.handleClearLogs)

	app.Get("/debug/vars", varsHandler())

	return p, nil
}

// Run starts the history janitor and serves on the configured address until
// Close is called.
func (p *Proxy) Run() error {
	p.logger.Info("starting console server",
		zap.String("listen", p.config.ListenAddr),
		zap.String("upstream_host", p.config.Defaults.Host),
		zap.Int("upstream_port", p.config.Defaults.Port),
	)

	p.startJanitor()
	return p.server.Listen(p.config.ListenAddr)
}

// SetDefaults swaps the fallback upstream target and history policy, e.g.
// after the config file changed.
func (p *Proxy) SetDefaults(d relay.Defaults) {
	p.relay.SetDefaults(d)
	p.logger.Info("defaults updated",
		zap.String("upstream_host", d.Host),
		zap.Int("upstream_port", d.Port),
		zap.Int("retention_days", d.RetentionDays),
	)
}

// Close stops the janitor, cancels in-flight exchanges and shuts the server
// down. The database is left open for its owner to close.
func (p *Proxy) Close() error {
	p.cancel()
	p.janitor.Wait()
	if err := p.server.Shutdown(); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// logRequests logs each request at debug level once it has been handled.
func (p *Proxy) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	p.logger.Debug("http request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	return err
}

// storeError maps a storage error onto an HTTP response.
func (p *Proxy) storeError(c *fiber.Ctx, err error) error {
	var notFound storage.ErrNotFound
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: notFound.Error()})
	}

	p.logger.Error("storage error", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "internal error"})
}
