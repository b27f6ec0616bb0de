package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"PullbackScanner/internal/model"
)

// Metrics holds the Prometheus collectors for scans. It satisfies
// scanner.Observer.
type Metrics struct {
	ScansTotal   prometheus.Counter
	ScanDuration prometheus.Histogram
	Results      *prometheus.CounterVec
	LastRun      *prometheus.GaugeVec
	LastRunTime  prometheus.Gauge
	MarketOK     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_scans_total",
			Help: "Completed scan passes.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_scan_duration_seconds",
			Help:    "Wall time of one scan pass.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		Results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_results_total",
			Help: "Classified tickers by category.",
		}, []string{"category"}),
		LastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scanner_last_run_results",
			Help: "Tickers per category in the latest scan.",
		}, []string{"category"}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_last_run_timestamp_seconds",
			Help: "Unix time the latest scan finished.",
		}),
		MarketOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_market_filter_ok",
			Help: "1 when the market filter allowed BUY signals in the latest scan.",
		}),
	}
	reg.MustRegister(m.ScansTotal, m.ScanDuration, m.Results, m.LastRun, m.LastRunTime, m.MarketOK)
	return m
}

func (m *Metrics) ObserveResult(res model.ScanResult) {
	m.Results.WithLabelValues(string(res.Category)).Inc()
}

func (m *Metrics) ObserveRun(run *model.ScanRun, elapsed time.Duration) {
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(elapsed.Seconds())
	for _, c := range model.Categories {
		m.LastRun.WithLabelValues(string(c)).Set(float64(run.Count(c)))
	}
	m.LastRunTime.Set(float64(run.FinishedAt.Unix()))
	if run.MarketOK {
		m.MarketOK.Set(1)
	} else {
		m.MarketOK.Set(0)
	}
}
