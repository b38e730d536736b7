package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robhughadams/FakeSMTP/mlog"
)

// Serve starts the prometheus metrics HTTP listener on addr, in its own
// goroutine. Errors are logged, not fatal: the receiver keeps working
// without metrics.
func Serve(addr string, elog mlog.Log) {
	log := mlog.New("metrics", elog.Logger)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Print("metrics listener", slog.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorx("metrics listener", err)
		}
	}()
}
