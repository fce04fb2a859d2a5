package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total HTTP requests by status code",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_http_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_http_in_flight",
		Help: "In-flight HTTP requests",
	})
	WebhookOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_webhook_outcomes_total",
			Help: "Webhook requests by outcome",
		}, []string{"outcome"},
	)
	Verdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_verdicts_total",
			Help: "Filter verdicts by scope and label or reason",
		}, []string{"scope", "label"},
	)
	SinkCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_sink_calls_total",
			Help: "Downstream sink calls by sink and outcome",
		}, []string{"sink", "outcome"},
	)
	SinkLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_sink_call_duration_seconds",
		Help:    "Downstream sink call latency seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, WebhookOutcomes, Verdicts, SinkCalls, SinkLatency)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

// ObserveVerdict counts a filter decision. label is the classification for
// in-scope verdicts and the reason otherwise.
func ObserveVerdict(inScope bool, label string) {
	scope := "out"
	if inScope {
		scope = "in"
	}
	Verdicts.WithLabelValues(scope, label).Inc()
}

func ObserveSink(sink string, err error, took time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	SinkCalls.WithLabelValues(sink, outcome).Inc()
	SinkLatency.WithLabelValues(sink).Observe(took.Seconds())
}

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
