package llm

import (
	"math"
	"strconv"
	"strings"
)

type optionKind int

const (
	floatOption optionKind = iota
	intOption
)

// recognizedOptions are the tuning keys forwarded to the inference server.
// Anything else in a client's options map is dropped.
var recognizedOptions = map[string]optionKind{
	"temperature":    floatOption,
	"top_p":          floatOption,
	"repeat_penalty": floatOption,
	"num_predict":    intOption,
	"num_ctx":        intOption,
	"top_k":          intOption,
	"seed":           intOption,
}

// CoerceOptions restricts opts to the recognized keys and converts each value
// to the type the inference server expects. Values that cannot be converted are
// dropped. Returns nil when nothing survives.
func CoerceOptions(opts map[string]any) map[string]any {
	if len(opts) == 0 {
		return nil
	}

	out := make(map[string]any, len(opts))
	for key, raw := range opts {
		kind, ok := recognizedOptions[key]
		if !ok {
			continue
		}

		f, ok := toFloat(raw)
		if !ok {
			continue
		}

		switch kind {
		case floatOption:
			out[key] = f
		case intOption:
			out[key] = int(math.Trunc(f))
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
