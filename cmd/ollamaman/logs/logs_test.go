package logscmder

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

var _ = Describe("Logs Command", func() {
	var (
		ctx    context.Context
		dbPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "ollamaman.db")

		db, err := storage.Open(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		store := storage.NewAPILogStore(db)
		failure := "cannot connect to Ollama"
		duration := int64(120)
		Expect(store.Append(ctx, &storage.APILog{
			Endpoint:  "/api/chat",
			Method:    "POST",
			Request:   storage.JSONMap{"model": "old-model"},
			Error:     &failure,
			CreatedAt: time.Now().Add(-48 * time.Hour),
		})).To(Succeed())
		Expect(store.Append(ctx, &storage.APILog{
			Endpoint:   "/api/chat",
			Method:     "POST",
			Request:    storage.JSONMap{"model": "llama3"},
			DurationMs: &duration,
		})).To(Succeed())
	})

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := NewLogsCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--db", dbPath}, args...))
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	It("lists entries", func() {
		out, err := execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("llama3"))
		Expect(out).To(ContainSubstring("120ms"))
		Expect(out).To(ContainSubstring("error: cannot connect to Ollama"))
	})

	It("prunes old entries", func() {
		out, err := execute("--prune", "24h")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Deleted 1 log entries"))

		out, err = execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(ContainSubstring("old-model"))
	})

	It("clears every entry", func() {
		out, err := execute("--clear")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Deleted 2 log entries"))

		out, err = execute()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No log entries"))
	})

	It("rejects --clear together with --prune", func() {
		_, err := execute("--clear", "--prune", "1h")
		Expect(err).To(HaveOccurred())
	})
})
