package responder

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler returns the prometheus scrape endpoint for the responder's
// counters. Embedders mount it wherever their HTTP surface lives.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
