package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	transferCounter       *prometheus.CounterVec
	offlineSyncCounter    *prometheus.CounterVec
	swapVolumeCounter     *prometheus.CounterVec
	arithmeticDefectGauge prometheus.Counter
	conservationCounter   *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		transferCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transfers_total",
			Help: "Online transfer outcomes",
		}, []string{"result"})

		offlineSyncCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_offline_syncs_total",
			Help: "Offline transaction sync outcomes",
		}, []string{"result"})

		swapVolumeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_swap_volume_minor_units",
			Help: "Cumulative swapped input volume per pool currency pair",
		}, []string{"pair"})

		arithmeticDefectGauge = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_arithmetic_defects_total",
			Help: "Checked arithmetic failures that should be unreachable",
		})

		conservationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_conservation_violations_total",
			Help: "Number of times reconciliation found a conservation breach",
		}, []string{"currency"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			transferCounter,
			offlineSyncCounter,
			swapVolumeCounter,
			arithmeticDefectGauge,
			conservationCounter,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementTransfer(result string) {
	if transferCounter == nil {
		return
	}
	transferCounter.WithLabelValues(result).Inc()
}

func IncrementOfflineSync(result string) {
	if offlineSyncCounter == nil {
		return
	}
	offlineSyncCounter.WithLabelValues(result).Inc()
}

func AddSwapVolume(pair string, amountIn uint64) {
	if swapVolumeCounter == nil {
		return
	}
	swapVolumeCounter.WithLabelValues(pair).Add(float64(amountIn))
}

func IncrementArithmeticDefect() {
	if arithmeticDefectGauge == nil {
		return
	}
	arithmeticDefectGauge.Inc()
}

func IncrementConservationViolation(currency string) {
	if conservationCounter == nil {
		return
	}
	conservationCounter.WithLabelValues(currency).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
