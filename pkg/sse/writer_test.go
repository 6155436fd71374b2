package sse_test

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/g023/g023-OllamaMan-sub000/pkg/sse"
)

type failingWriter struct {
	writes int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, errors.New("broken pipe")
}

var _ = Describe("Writer", func() {
	It("encodes events as SSE frames", func() {
		var buf bytes.Buffer
		w := sse.NewWriter(&buf)

		Expect(w.Send("token", map[string]string{"content": "Hel"})).To(Succeed())
		Expect(w.Send("done", map[string]bool{"done": true})).To(Succeed())

		Expect(buf.String()).To(Equal(
			"event: token\ndata: {\"content\":\"Hel\"}\n\n" +
				"event: done\ndata: {\"done\":true}\n\n",
		))
		Expect(w.Sent()).To(Equal(2))
	})

	It("flushes after each event when the writer supports it", func() {
		rec := httptest.NewRecorder()
		w := sse.NewWriter(rec)

		Expect(w.Send("start", map[string]string{"model": "llama3"})).To(Succeed())

		Expect(rec.Flushed).To(BeTrue())
		Expect(rec.Body.String()).To(ContainSubstring("event: start\n"))
	})

	It("flushes a bufio.Writer so each event leaves the buffer", func() {
		var buf bytes.Buffer
		bw := bufio.NewWriterSize(&buf, 4096)
		w := sse.NewWriter(bw)

		Expect(w.Send("token", map[string]string{"content": "x"})).To(Succeed())
		Expect(bw.Buffered()).To(BeZero())
		Expect(buf.String()).To(Equal("event: token\ndata: {\"content\":\"x\"}\n\n"))
	})

	It("latches a flush failure", func() {
		fw := &failingWriter{}
		w := sse.NewWriter(bufio.NewWriter(fw))

		Expect(w.Send("token", map[string]string{"content": "x"})).To(MatchError(ContainSubstring("flush")))
		Expect(w.Err()).To(HaveOccurred())
	})

	It("latches the first write error", func() {
		fw := &failingWriter{}
		w := sse.NewWriter(fw)

		err := w.Send("token", map[string]string{"content": "x"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("broken pipe"))

		Expect(w.Send("done", map[string]bool{"done": true})).To(MatchError(err))
		Expect(fw.writes).To(Equal(1))
		Expect(w.Err()).To(MatchError(err))
		Expect(w.Sent()).To(Equal(0))
	})

	It("reports a closed pipe as an error", func() {
		pr, pw := io.Pipe()
		pr.Close()

		w := sse.NewWriter(pw)
		Expect(w.Send("token", map[string]string{"content": "x"})).To(MatchError(ContainSubstring("closed pipe")))
	})

	It("fails on payloads that cannot be marshaled", func() {
		var buf bytes.Buffer
		w := sse.NewWriter(&buf)

		Expect(w.Send("bad", func() {})).To(HaveOccurred())
		Expect(buf.Len()).To(Equal(0))
		Expect(w.Err()).NotTo(HaveOccurred())
	})
})
