package controllers

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "feed",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of feed API requests broken down by route and result.",
	}, []string{"route", "result"})

	feedAPILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "feed",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for feed API requests.",
		Buckets: []float64{
			0.001, 0.002, 0.005,
			0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10,
		},
	}, []string{"route", "result"})
)

type statusRecordingResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecordingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecordingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecordingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecordingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

func (w *statusRecordingResponseWriter) Push(target string, opts *http.PushOptions) error {
	p, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return p.Push(target, opts)
}

// InstrumentAPI records request counts and latency per mux route.
func InstrumentAPI() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecordingResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			result := "2xx"
			switch {
			case rec.status >= 500:
				result = "5xx"
			case rec.status >= 400:
				result = "4xx"
			}

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			feedAPIRequests.WithLabelValues(route, result).Inc()
			feedAPILatency.WithLabelValues(route, result).Observe(time.Since(start).Seconds())
		})
	}
}
