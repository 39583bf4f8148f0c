package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eviltwitter_api_requests_total",
		Help: "Backend requests by endpoint and status class",
	}, []string{"endpoint", "status"})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eviltwitter_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	APIDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eviltwitter_api_request_duration_seconds",
		Help:    "Backend request duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eviltwitter_store_errors_total",
		Help: "Store actions that ended in an error",
	}, []string{"store", "action"})
	StaleResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eviltwitter_stale_responses_total",
		Help: "Responses discarded because a newer request was issued",
	}, []string{"store"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eviltwitter_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eviltwitter_command_errors_total",
		Help: "CLI command failures",
	}, []string{"cmd"})
	SyncRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eviltwitter_timeline_sync_runs_total",
		Help: "Timeline sync passes",
	})
	SyncErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eviltwitter_timeline_sync_errors_total",
		Help: "Timeline sync passes that failed",
	})
	SyncedTweets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eviltwitter_timeline_synced_tweets_total",
		Help: "Tweets received by timeline sync",
	})
)

func init() {
	prometheus.MustRegister(APIRequests, APIRetries, APIDuration, StoreErrors, StaleResponses, CommandRuns, CommandErrors,
		SyncRuns, SyncErrors, SyncedTweets)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveRequest records one finished backend call.
func ObserveRequest(endpoint string, status int, start time.Time) {
	APIRequests.WithLabelValues(endpoint, statusClass(status)).Inc()
	APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncStoreError(store, action string) { StoreErrors.WithLabelValues(store, action).Inc() }

func IncStale(store string) { StaleResponses.WithLabelValues(store).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

func statusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
