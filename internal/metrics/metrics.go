package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event source
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "holderscan",
		Subsystem: "source",
		Name:      "rpc_calls_total",
		Help:      "Total eth_getLogs calls by outcome",
	}, []string{"network", "status"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "holderscan",
		Subsystem: "source",
		Name:      "rate_limit_waits_total",
		Help:      "Total RPC calls delayed by the token bucket",
	}, []string{"network"})

	TransfersFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "holderscan",
		Subsystem: "source",
		Name:      "transfers_fetched_total",
		Help:      "Total transfer events decoded from logs",
	}, []string{"network"})

	RPCLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "holderscan",
		Subsystem: "source",
		Name:      "rpc_duration_seconds",
		Help:      "eth_getLogs call duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"network"})

	// Fetcher
	FetcherWavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "holderscan",
		Subsystem: "fetcher",
		Name:      "waves_total",
		Help:      "Total waves of concurrent sub-range fetches completed",
	})

	FetcherErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "holderscan",
		Subsystem: "fetcher",
		Name:      "errors_total",
		Help:      "Total fetches aborted after retry exhaustion",
	})

	// Cache
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "holderscan",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by result (hit, extend, miss, unavailable)",
	}, []string{"network", "result"})

	// Pipeline
	HoldersComputed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "holderscan",
		Subsystem: "pipeline",
		Name:      "holders",
		Help:      "Holders reported by the last run per network/token",
	}, []string{"network", "token"})
)
