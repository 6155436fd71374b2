package servecmder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/g023/g023-OllamaMan-sub000/pkg/config"
	"github.com/g023/g023-OllamaMan-sub000/relay"
)

var _ = Describe("Serve Command", func() {
	var configPath string

	BeforeEach(func() {
		configPath = filepath.Join(GinkgoT().TempDir(), "config.toml")
		Expect(os.WriteFile(configPath, []byte(`
listen = ":7000"

[upstream]
host = "from-file"
port = 1234
keep_alive = "1h"

[history]
retention_days = -1
`), 0o600)).To(Succeed())
	})

	loadWithArgs := func(args ...string) (*config.Config, *serveCommander) {
		cmder := &serveCommander{}
		cmd := newServeCmd(cmder)

		Expect(cmd.ParseFlags(args)).To(Succeed())
		cfg, err := cmder.loadConfig(cmd, configPath)
		Expect(err).NotTo(HaveOccurred())
		return cfg, cmder
	}

	It("uses the config file when no flags are given", func() {
		cfg, _ := loadWithArgs()

		Expect(cfg.Listen).To(Equal(":7000"))
		Expect(cfg.Upstream.Host).To(Equal("from-file"))
		Expect(cfg.Upstream.Port).To(Equal(1234))
		Expect(cfg.Debug).To(BeFalse())
	})

	It("lets flags override the config file", func() {
		cfg, _ := loadWithArgs("--upstream-host", "gpu-box", "--db", "/tmp/x.db", "--debug")

		Expect(cfg.Listen).To(Equal(":7000"))
		Expect(cfg.Upstream.Host).To(Equal("gpu-box"))
		Expect(cfg.Upstream.Port).To(Equal(1234))
		Expect(cfg.Storage.DBPath).To(Equal("/tmp/x.db"))
		Expect(cfg.Debug).To(BeTrue())
	})

	It("maps the config onto relay defaults", func() {
		cfg, _ := loadWithArgs("--upstream-port", "9999")

		Expect(defaultsFrom(cfg)).To(Equal(relay.Defaults{
			Host:          "from-file",
			Port:          9999,
			KeepAlive:     "1h",
			RetentionDays: -1,
		}))
	})

	It("prefers --config over the default location", func() {
		_, cmder := loadWithArgs("--config", "/etc/ollamaman.toml")

		path, err := cmder.resolveConfigPath()
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/etc/ollamaman.toml"))
	})

	It("registers the documented flags", func() {
		cmd := NewServeCmd()
		for _, name := range []string{"config", "listen", "upstream-host", "upstream-port", "db", "debug"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})
})

// drainingServer stops accepting as soon as Close starts, but finishes
// in-flight work only after a delay.
type drainingServer struct {
	runErr   error
	stopped  chan struct{}
	drained  atomic.Bool
	closings atomic.Int32
}

func newDrainingServer(runErr error) *drainingServer {
	return &drainingServer{runErr: runErr, stopped: make(chan struct{})}
}

func (s *drainingServer) Run() error {
	if s.runErr != nil {
		return s.runErr
	}
	<-s.stopped
	return nil
}

func (s *drainingServer) Close() error {
	s.closings.Add(1)
	close(s.stopped)
	time.Sleep(100 * time.Millisecond)
	s.drained.Store(true)
	return nil
}

var _ = Describe("serveUntilDone", func() {
	It("returns only after Close has finished draining", func() {
		ctx, cancel := context.WithCancel(context.Background())
		srv := newDrainingServer(nil)

		done := make(chan error, 1)
		go func() { done <- serveUntilDone(ctx, cancel, srv, zap.NewNop()) }()

		cancel()
		Eventually(done, 2*time.Second).Should(Receive(BeNil()))
		Expect(srv.drained.Load()).To(BeTrue())
		Expect(srv.closings.Load()).To(Equal(int32(1)))
	})

	It("closes and reports the error when Run fails on its own", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		srv := newDrainingServer(errors.New("address already in use"))

		err := serveUntilDone(ctx, cancel, srv, zap.NewNop())

		Expect(err).To(MatchError("address already in use"))
		Expect(srv.drained.Load()).To(BeTrue())
	})
})
