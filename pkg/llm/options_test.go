package llm_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/g023/g023-OllamaMan-sub000/pkg/llm"
)

var _ = Describe("CoerceOptions", func() {
	It("returns nil for empty input", func() {
		Expect(llm.CoerceOptions(nil)).To(BeNil())
		Expect(llm.CoerceOptions(map[string]any{})).To(BeNil())
	})

	It("drops unrecognized keys", func() {
		opts := llm.CoerceOptions(map[string]any{
			"temperature": 0.5,
			"mirostat":    1,
			"stop":        []any{"\n"},
		})

		Expect(opts).To(HaveLen(1))
		Expect(opts).To(HaveKeyWithValue("temperature", 0.5))
	})

	It("returns nil when only unrecognized keys are present", func() {
		Expect(llm.CoerceOptions(map[string]any{"mirostat": 2})).To(BeNil())
	})

	It("coerces integer keys from floats and strings", func() {
		opts := llm.CoerceOptions(map[string]any{
			"num_predict": 128.9,
			"num_ctx":     "4096",
			"top_k":       float64(40),
			"seed":        "42.0",
		})

		Expect(opts).To(HaveKeyWithValue("num_predict", 128))
		Expect(opts).To(HaveKeyWithValue("num_ctx", 4096))
		Expect(opts).To(HaveKeyWithValue("top_k", 40))
		Expect(opts).To(HaveKeyWithValue("seed", 42))
	})

	It("coerces float keys from strings and ints", func() {
		opts := llm.CoerceOptions(map[string]any{
			"temperature":    "0.7",
			"top_p":          1,
			"repeat_penalty": 1.1,
		})

		Expect(opts).To(HaveKeyWithValue("temperature", 0.7))
		Expect(opts).To(HaveKeyWithValue("top_p", 1.0))
		Expect(opts).To(HaveKeyWithValue("repeat_penalty", 1.1))
	})

	It("drops values that cannot be converted", func() {
		opts := llm.CoerceOptions(map[string]any{
			"temperature": "warm",
			"top_k":       true,
			"num_ctx":     nil,
			"seed":        7,
		})

		Expect(opts).To(Equal(map[string]any{"seed": 7}))
	})

	It("serializes integer options without a fractional part", func() {
		opts := llm.CoerceOptions(map[string]any{"num_predict": 256.0})

		data, err := json.Marshal(opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"num_predict":256}`))
	})
})

var _ = Describe("Metrics", func() {
	It("omits missing values when flattened", func() {
		evalCount := int64(12)
		m := llm.Metrics{EvalCount: &evalCount}

		Expect(m.Map()).To(Equal(map[string]any{"eval_count": int64(12)}))
	})

	It("decodes telemetry embedded in a stream chunk", func() {
		var chunk llm.StreamChunk
		line := `{"model":"llama3","message":{"role":"assistant","content":""},"done":true,"total_duration":500,"eval_count":3}`
		Expect(json.Unmarshal([]byte(line), &chunk)).To(Succeed())

		Expect(chunk.Done).To(BeTrue())
		Expect(chunk.TotalDuration).NotTo(BeNil())
		Expect(*chunk.TotalDuration).To(Equal(int64(500)))
		Expect(*chunk.EvalCount).To(Equal(int64(3)))
		Expect(chunk.LoadDuration).To(BeNil())
	})
})
