package utils

import (
	"net/http"
	"strconv"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "net/http/pprof"
)

// RunPerfEndpoint serves pprof and pipeline metrics at port, blocks until the server fails.
// Port <= 0 disables the endpoint
func RunPerfEndpoint(port int) {
	if port <= 0 {
		goapp.Log.Info().Msg("no debug.port provided, skip perf endpoint")
		return
	}
	goapp.Log.Info().Int("port", port).Msg("Starting debug http endpoint")
	http.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+strconv.Itoa(port), nil); err != nil {
		goapp.Log.Error().Err(err).Msg("can't start debug endpoint")
	}
}
