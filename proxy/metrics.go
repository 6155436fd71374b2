package proxy

import (
	"expvar"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/g023/g023-OllamaMan-sub000/relay"
)

// Counter names published under the "ollamaman" expvar map.
const (
	metricStreams        = "chat_streams"
	metricChats          = "chat_requests"
	metricAborts         = "client_aborts"
	metricExchangeErrors = "exchange_errors"
	metricBadRequests    = "bad_requests"
)

// metrics is process-wide: expvar names cannot be published twice.
var metrics = expvar.NewMap("ollamaman")

// varsHandler serves every published expvar, including the counters above
// and the runtime's memstats.
func varsHandler() fiber.Handler {
	return adaptor.HTTPHandler(expvar.Handler())
}

// countOutcome records how a streamed exchange ended.
func countOutcome(out *relay.Outcome) {
	metrics.Add(metricStreams, 1)
	switch {
	case out.Aborted:
		metrics.Add(metricAborts, 1)
	case out.Err != nil:
		metrics.Add(metricExchangeErrors, 1)
	}
}
