package servecmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/cmd/ollamaman/dbpath"
	"github.com/g023/g023-OllamaMan-sub000/pkg/config"
	"github.com/g023/g023-OllamaMan-sub000/pkg/logger"
	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
	"github.com/g023/g023-OllamaMan-sub000/pkg/upstream"
	"github.com/g023/g023-OllamaMan-sub000/proxy"
	"github.com/g023/g023-OllamaMan-sub000/relay"
)

const serveLongDesc string = `Run the console server.

Chat requests are relayed to the Ollama server and streamed back as
Server-Sent Events. Conversations, settings and the API call log are
kept in a local SQLite database.

Configuration is read from ~/.ollamaman/config.toml (or --config) and
reloaded when the file changes. Flags override the file.

Examples:
  ollamaman serve
  ollamaman serve --listen :9000 --upstream-host gpu-box --upstream-port 11434
  ollamaman serve --db /tmp/ollamaman.db --debug`

const serveShortDesc string = "Run the console server"

type serveCommander struct {
	configPath   string
	listen       string
	upstreamHost string
	upstreamPort int
	dbPath       string
	debug        bool
}

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to config file (default ~/.ollamaman/config.toml)")
	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", config.DefaultListen, "Address to listen on")
	cmd.Flags().StringVar(&cmder.upstreamHost, "upstream-host", config.DefaultUpstreamHost, "Ollama host")
	cmd.Flags().IntVar(&cmder.upstreamPort, "upstream-port", config.DefaultUpstreamPort, "Ollama port")
	cmd.Flags().StringVarP(&cmder.dbPath, "db", "d", "", "Path to SQLite database (default ~/.ollamaman/ollamaman.db)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

// resolveConfigPath returns --config, or the default location.
func (c *serveCommander) resolveConfigPath() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	return config.DefaultPath()
}

// loadConfig reads the config file and applies any flags set on the command
// line on top of it.
func (c *serveCommander) loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.applyFlags(cmd, cfg)
	return cfg, nil
}

func (c *serveCommander) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = c.listen
	}
	if flags.Changed("upstream-host") {
		cfg.Upstream.Host = c.upstreamHost
	}
	if flags.Changed("upstream-port") {
		cfg.Upstream.Port = c.upstreamPort
	}
	if flags.Changed("db") {
		cfg.Storage.DBPath = c.dbPath
	}
	if flags.Changed("debug") {
		cfg.Debug = c.debug
	}
}

func defaultsFrom(cfg *config.Config) relay.Defaults {
	return relay.Defaults{
		Host:          cfg.Upstream.Host,
		Port:          cfg.Upstream.Port,
		KeepAlive:     cfg.Upstream.KeepAlive,
		RetentionDays: cfg.History.RetentionDays,
	}
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	configPath, err := c.resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, err := c.loadConfig(cmd, configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()

	dbPath, err := dbpath.ResolveDBPath(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("could not resolve database path: %w", err)
	}

	db, err := storage.Open(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("could not open database %s: %w", dbPath, err)
	}
	defer db.Close()
	log.Info("using SQLite storage", zap.String("path", dbPath))

	client := upstream.NewClient(upstream.Config{
		ConnectTimeout: cfg.Upstream.ConnectTimeout,
		RequestTimeout: cfg.Upstream.RequestTimeout,
	}, logger.Named(log, "upstream"))

	p, err := proxy.New(proxy.Config{
		ListenAddr:      cfg.Listen,
		Defaults:        defaultsFrom(cfg),
		JanitorInterval: cfg.History.JanitorInterval,
	}, db, client, log)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		err := config.Watch(ctx, configPath, logger.Named(log, "config"), func(next *config.Config) {
			c.applyFlags(cmd, next)
			p.SetDefaults(defaultsFrom(next))
		})
		if err != nil {
			log.Warn("config hot reload disabled", zap.Error(err))
		}
	}()

	if err := serveUntilDone(ctx, stop, p, log); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// server is the part of the proxy that serveUntilDone drives.
type server interface {
	Run() error
	Close() error
}

// serveUntilDone runs srv until ctx is done, then closes it. It returns only
// after Close has finished, so in-flight exchanges are recorded before the
// caller releases the database.
func serveUntilDone(ctx context.Context, stop context.CancelFunc, srv server, log *zap.Logger) error {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-ctx.Done()
		log.Info("shutting down")
		if err := srv.Close(); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	err := srv.Run()
	stop()
	<-closed

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
