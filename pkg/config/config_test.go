package config_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/g023/g023-OllamaMan-sub000/pkg/config"
)

func writeConfig(path, body string) {
	Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
}

var _ = Describe("Load", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("returns defaults when the file does not exist", func() {
		cfg, err := config.Load(filepath.Join(dir, "missing.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))
	})

	It("returns defaults for an empty path", func() {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Upstream.Port).To(Equal(config.DefaultUpstreamPort))
	})

	It("overlays file values on the defaults", func() {
		path := filepath.Join(dir, "config.toml")
		writeConfig(path, `
listen = ":9090"

[upstream]
host = "gpu-box"
request_timeout = "10m"

[history]
retention_days = 0
`)

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Listen).To(Equal(":9090"))
		Expect(cfg.Upstream.Host).To(Equal("gpu-box"))
		Expect(cfg.Upstream.Port).To(Equal(config.DefaultUpstreamPort))
		Expect(cfg.Upstream.RequestTimeout).To(Equal(10 * time.Minute))
		Expect(cfg.Upstream.ConnectTimeout).To(Equal(config.DefaultConnectTimeout))
		Expect(cfg.History.RetentionDays).To(Equal(0))
		Expect(cfg.History.JanitorInterval).To(Equal(config.DefaultJanitorInterval))
	})

	It("rejects malformed TOML", func() {
		path := filepath.Join(dir, "config.toml")
		writeConfig(path, "listen = \n")

		_, err := config.Load(path)
		Expect(err).To(HaveOccurred())
	})

	It("rejects an out-of-range port", func() {
		path := filepath.Join(dir, "config.toml")
		writeConfig(path, "[upstream]\nport = 70000\n")

		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("upstream.port")))
	})
})

var _ = Describe("Watch", func() {
	It("delivers the reloaded config after the file changes", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "config.toml")
		writeConfig(path, "[upstream]\nhost = \"before\"\n")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		reloaded := make(chan *config.Config, 4)
		done := make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, path, nil, func(cfg *config.Config) { reloaded <- cfg })
		}()

		// Keep rewriting until the watcher has registered and picked a change up.
		Eventually(func() string {
			writeConfig(path, "[upstream]\nhost = \"after\"\n")
			select {
			case cfg := <-reloaded:
				return cfg.Upstream.Host
			case <-time.After(500 * time.Millisecond):
				return ""
			}
		}, 5*time.Second).Should(Equal("after"))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
})
