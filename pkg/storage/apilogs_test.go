package storage_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/g023/g023-OllamaMan-sub000/pkg/storage"
)

var _ = Describe("APILogStore", func() {
	var (
		db   *storage.DB
		logs *storage.APILogStore
		ctx  context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = storage.Open(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		logs = storage.NewAPILogStore(db)
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	It("appends and lists the newest entries first", func() {
		response := "Hello!"
		duration := int64(42)
		first := &storage.APILog{
			Endpoint:   "/api/chat",
			Method:     "POST",
			Request:    storage.JSONMap{"model": "llama3", "message_count": 1},
			Response:   &response,
			DurationMs: &duration,
		}
		Expect(logs.Append(ctx, first)).To(Succeed())
		Expect(first.ID).To(BeNumerically(">", 0))

		failure := "cannot connect"
		second := &storage.APILog{Endpoint: "/api/chat", Method: "POST", Error: &failure}
		Expect(logs.Append(ctx, second)).To(Succeed())

		list, err := logs.List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(2))

		Expect(list[0].ID).To(Equal(second.ID))
		Expect(*list[0].Error).To(Equal("cannot connect"))
		Expect(list[0].Response).To(BeNil())
		Expect(list[0].DurationMs).To(BeNil())

		Expect(list[1].Request).To(HaveKeyWithValue("model", "llama3"))
		Expect(*list[1].Response).To(Equal("Hello!"))
		Expect(*list[1].DurationMs).To(Equal(int64(42)))
	})

	It("limits the number of entries returned", func() {
		for range 5 {
			Expect(logs.Append(ctx, &storage.APILog{Endpoint: "/api/chat", Method: "POST"})).To(Succeed())
		}

		list, err := logs.List(ctx, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(3))
	})

	It("clears every entry", func() {
		Expect(logs.Append(ctx, &storage.APILog{Endpoint: "/api/chat", Method: "POST"})).To(Succeed())
		Expect(logs.Append(ctx, &storage.APILog{Endpoint: "/api/chat", Method: "POST"})).To(Succeed())

		n, err := logs.Clear(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(2)))

		list, err := logs.List(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(BeEmpty())
	})

	It("prunes entries older than the cutoff", func() {
		old := &storage.APILog{Endpoint: "/api/chat", Method: "POST", CreatedAt: time.Now().Add(-72 * time.Hour)}
		Expect(logs.Append(ctx, old)).To(Succeed())
		Expect(logs.Append(ctx, &storage.APILog{Endpoint: "/api/chat", Method: "POST"})).To(Succeed())

		n, err := logs.PruneBefore(ctx, time.Now().Add(-time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})
})
