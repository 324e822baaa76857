package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder reports engine metrics using Prometheus primitives.
type PrometheusRecorder struct {
	invocations *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	rounds      *prometheus.HistogramVec
	sessions    *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	inFlight    prometheus.Gauge
}

func NewPrometheusRecorder(registry *prometheus.Registry) (*PrometheusRecorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	r := &PrometheusRecorder{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conclave_invocations_total",
			Help: "Total worker invocations by mode and status",
		}, []string{"mode", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conclave_invocation_duration_seconds",
			Help:    "Worker invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		rounds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conclave_round_duration_seconds",
			Help:    "Fan-out round duration in seconds by mode and phase",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"mode", "phase"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conclave_sessions_total",
			Help: "Terminal session outcomes by mode and status",
		}, []string{"mode", "status"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conclave_tokens_total",
			Help: "Token usage by mode and direction",
		}, []string{"mode", "direction"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conclave_invocations_in_flight",
			Help: "Currently running worker invocations",
		}),
	}

	for _, collector := range []prometheus.Collector{r.invocations, r.durations, r.rounds, r.sessions, r.tokens, r.inFlight} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveInvocation(mode string, status string, duration time.Duration) {
	r.invocations.WithLabelValues(mode, status).Inc()
	r.durations.WithLabelValues(mode).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveRound(mode string, phase string, duration time.Duration) {
	r.rounds.WithLabelValues(mode, phase).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveSession(mode string, status string) {
	r.sessions.WithLabelValues(mode, status).Inc()
}

func (r *PrometheusRecorder) AddTokens(mode string, inputTokens, outputTokens int64) {
	if inputTokens > 0 {
		r.tokens.WithLabelValues(mode, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		r.tokens.WithLabelValues(mode, "output").Add(float64(outputTokens))
	}
}

func (r *PrometheusRecorder) SetInFlight(n int) {
	r.inFlight.Set(float64(n))
}

// StartServer exposes the registry over HTTP at /metrics on addr.
func StartServer(addr string, registry *prometheus.Registry) (*http.Server, error) {
	if addr == "" {
		addr = ":9187"
	}
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics endpoint %q: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: mux,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	return srv, nil
}

// StopServer gracefully shuts down a server started by StartServer.
func StopServer(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
