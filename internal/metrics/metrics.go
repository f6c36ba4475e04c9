package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine counters on a private registry. The engine has no
// listening surface, so the registry is exported to a node-exporter textfile
// after each run. All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	fetches     *prometheus.CounterVec
	crawlURLs   *prometheus.CounterVec
	ledgerRows  *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastRun     prometheus.Gauge
	budget      *prometheus.GaugeVec
}

// New registers the stockwatch collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_fetches_total",
				Help: "Product page fetches by outcome",
			},
			[]string{"outcome"},
		),
		crawlURLs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_crawl_urls_total",
				Help: "URLs per storefront and final crawl bucket",
			},
			[]string{"country", "brand", "bucket"},
		),
		ledgerRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockwatch_ledger_rows_total",
				Help: "Ledger row attempts by ledger and result",
			},
			[]string{"ledger", "result"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockwatch_run_duration_seconds",
				Help:    "Duration of a full stock check run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockwatch_last_run_timestamp_seconds",
				Help: "Unix time of the last completed stock check run",
			},
		),
		budget: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockwatch_request_budget",
				Help: "Daily request budget usage at the end of the last run",
			},
			[]string{"state"},
		),
	}

	m.Registry.MustRegister(m.fetches, m.crawlURLs, m.ledgerRows, m.runDuration, m.lastRun, m.budget)
	return m
}

// ObserveFetch counts one fetch outcome: ok, timeout, http_error, not_product, circuit_open
func (m *Metrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

// ObserveCrawl counts the final crawl buckets of one storefront
func (m *Metrics) ObserveCrawl(country, brand string, in, out, skipped int) {
	if m == nil {
		return
	}
	m.crawlURLs.WithLabelValues(country, brand, "in_stock").Add(float64(in))
	m.crawlURLs.WithLabelValues(country, brand, "out_of_stock").Add(float64(out))
	m.crawlURLs.WithLabelValues(country, brand, "skipped").Add(float64(skipped))
}

// ObserveLedger counts rows per ledger: written, unchanged, failed
func (m *Metrics) ObserveLedger(ledger, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ledgerRows.WithLabelValues(ledger, result).Add(float64(n))
}

// ObserveRun records a finished run
func (m *Metrics) ObserveRun(seconds float64, finishedUnix float64) {
	if m == nil {
		return
	}
	m.runDuration.Observe(seconds)
	m.lastRun.Set(finishedUnix)
}

// ObserveBudget records the used and remaining daily request budget
func (m *Metrics) ObserveBudget(used, remaining int) {
	if m == nil {
		return
	}
	m.budget.WithLabelValues("used").Set(float64(used))
	m.budget.WithLabelValues("remaining").Set(float64(remaining))
}

// WriteTextfile exports the registry in the text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
