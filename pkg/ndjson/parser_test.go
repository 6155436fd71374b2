package ndjson_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
	"github.com/g023/g023-OllamaMan-sub000/pkg/ndjson"
)

var _ = Describe("Parser", func() {
	var parser *ndjson.Parser[map[string]any]

	BeforeEach(func() {
		parser = ndjson.NewParser[map[string]any]()
	})

	It("decodes every complete line in a chunk", func() {
		out := parser.Feed([]byte("{\"a\":1}\n{\"b\":2}\n"))

		Expect(out).To(HaveLen(2))
		Expect(out[0]).To(HaveKeyWithValue("a", float64(1)))
		Expect(out[1]).To(HaveKeyWithValue("b", float64(2)))
		Expect(parser.Pending()).To(Equal(0))
	})

	It("reassembles an object split across chunks", func() {
		first := parser.Feed([]byte("{\"a\":1}\n{\"b\":2"))
		Expect(first).To(HaveLen(1))
		Expect(first[0]).To(HaveKeyWithValue("a", float64(1)))

		second := parser.Feed([]byte("}\n"))
		Expect(second).To(HaveLen(1))
		Expect(second[0]).To(HaveKeyWithValue("b", float64(2)))
	})

	It("handles a line delivered one byte at a time", func() {
		var out []map[string]any
		for _, b := range []byte("{\"msg\":\"hello\"}\n") {
			out = append(out, parser.Feed([]byte{b})...)
		}

		Expect(out).To(HaveLen(1))
		Expect(out[0]).To(HaveKeyWithValue("msg", "hello"))
	})

	It("skips empty lines", func() {
		out := parser.Feed([]byte("\n\n{\"a\":1}\n\r\n\n"))

		Expect(out).To(HaveLen(1))
	})

	It("drops malformed lines without failing the rest", func() {
		out := parser.Feed([]byte("{\"a\":1}\nnot json\n{\"b\":\n{\"c\":3}\n"))

		Expect(out).To(HaveLen(2))
		Expect(out[0]).To(HaveKeyWithValue("a", float64(1)))
		Expect(out[1]).To(HaveKeyWithValue("c", float64(3)))
		Expect(parser.Dropped()).To(Equal(2))
	})

	It("never re-emits consumed objects", func() {
		Expect(parser.Feed([]byte("{\"a\":1}\n"))).To(HaveLen(1))

		Expect(parser.Feed([]byte(""))).To(BeEmpty())
		Expect(parser.Feed(nil)).To(BeEmpty())
		Expect(parser.Flush()).To(BeEmpty())
	})

	It("emits each object exactly once when a partial line is completed later", func() {
		Expect(parser.Feed([]byte("{\"a\":"))).To(BeEmpty())
		Expect(parser.Feed([]byte("1}"))).To(BeEmpty())

		out := parser.Feed([]byte("\n"))
		Expect(out).To(HaveLen(1))
		Expect(parser.Feed([]byte("\n"))).To(BeEmpty())
	})

	Describe("Flush", func() {
		It("decodes a trailing line without newline", func() {
			Expect(parser.Feed([]byte("{\"a\":1}\n{\"b\":2}"))).To(HaveLen(1))

			out := parser.Flush()
			Expect(out).To(HaveLen(1))
			Expect(out[0]).To(HaveKeyWithValue("b", float64(2)))
			Expect(parser.Pending()).To(Equal(0))
		})

		It("drops an incomplete trailing line", func() {
			parser.Feed([]byte("{\"b\":"))

			Expect(parser.Flush()).To(BeEmpty())
			Expect(parser.Pending()).To(Equal(0))
		})
	})

	Describe("line size limit", func() {
		It("discards a pending line that exceeds the limit", func() {
			parser.SetMaxLineSize(8)

			Expect(parser.Feed([]byte("{\"long\":\"aaaaaaaaaaaa"))).To(BeEmpty())
			Expect(parser.Pending()).To(Equal(0))
			Expect(parser.Dropped()).To(Equal(1))

			out := parser.Feed([]byte("{\"a\":1}\n"))
			Expect(out).To(HaveLen(1))
		})
	})

	Describe("typed decoding", func() {
		It("decodes stream chunks", func() {
			p := ndjson.NewParser[llm.StreamChunk]()
			out := p.Feed([]byte(`{"model":"llama3","message":{"role":"assistant","content":"Hel"},"done":false}` + "\n"))

			Expect(out).To(HaveLen(1))
			Expect(out[0].Model).To(Equal("llama3"))
			Expect(out[0].Message.Content).To(Equal("Hel"))
			Expect(out[0].Done).To(BeFalse())
		})
	})
})
