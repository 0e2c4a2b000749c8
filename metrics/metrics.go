package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rigado/bleosc"
)

const (
	metricPrefix = "bleosc_"

	resultIgnored     = "ignored"
	resultDecoded     = "decoded"
	resultDecodeError = "decode_error"
	resultClosed      = "closed"

	resultSent   = "sent"
	resultFailed = "failed"
)

// Metrics holds the bridge collectors.
type Metrics struct {
	registry *prometheus.Registry

	events           *prometheus.CounterVec
	messages         *prometheus.CounterVec
	writeErrors      prometheus.Counter
	mirrorErrors     prometheus.Counter
	fieldsPerPayload prometheus.Histogram
}

// New registers the bridge collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_total",
				Help: "Advertisements handled by result",
			},
			[]string{"result"},
		),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "messages_total",
				Help: "Outbound messages by result",
			},
			[]string{"result"},
		),
		writeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "write_errors_total",
				Help: "Queued messages the transport failed to write",
			},
		),
		mirrorErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "mirror_errors_total",
				Help: "Messages one sink failed to send while another delivered them",
			},
		),
		fieldsPerPayload: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "fields_per_payload",
				Help:    "Fields decoded per accepted advertisement",
				Buckets: []float64{0, 1, 2, 4, 8, 16},
			},
		),
	}
	m.registry.MustRegister(m.events, m.messages, m.writeErrors, m.mirrorErrors, m.fieldsPerPayload)
	return m
}

// Observe records the outcome of one event. It is a bleosc.Observer.
func (m *Metrics) Observe(_ bleosc.Event, o bleosc.Outcome) {
	switch {
	case errors.Is(o.Err, bleosc.ErrClosed):
		m.events.WithLabelValues(resultClosed).Inc()
		return
	case !o.Accepted:
		m.events.WithLabelValues(resultIgnored).Inc()
		return
	case o.Err != nil:
		m.events.WithLabelValues(resultDecodeError).Inc()
		return
	}

	m.events.WithLabelValues(resultDecoded).Inc()
	m.fieldsPerPayload.Observe(float64(o.Fields))
	m.messages.WithLabelValues(resultSent).Add(float64(o.Sent))
	m.messages.WithLabelValues(resultFailed).Add(float64(o.Failed))
}

// WriteFailed records a message lost after the sink accepted it.
func (m *Metrics) WriteFailed(_ string, _ error) {
	m.writeErrors.Inc()
}

// MirrorFailed records a message that reached some sinks but not all.
func (m *Metrics) MirrorFailed(_ string, _ error) {
	m.mirrorErrors.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "metrics listen %s", addr)
	}
	return nil
}
