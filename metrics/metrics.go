// Package metrics bundles the Prometheus collectors for the harvester.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the harvester counters on a dedicated registry.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      prometheus.Counter
	RequestDuration    prometheus.Histogram
	FetchErrorsTotal   *prometheus.CounterVec
	RetriesTotal       prometheus.Counter
	ItemsTotal         prometheus.Counter
	ItemsSkippedTotal  prometheus.Counter
	RowsWrittenTotal   prometheus.Counter
	DuplicateRowsTotal prometheus.Counter
	ImagesStoredTotal  prometheus.Counter
}

// New constructs and registers all metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvester_requests_total",
		Help: "Total HTTP requests issued by the harvester.",
	})
	requestDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvester_request_duration_seconds",
		Help:    "HTTP request latency for harvester requests.",
		Buckets: prometheus.DefBuckets,
	})
	fetchErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvester_fetch_errors_total",
		Help: "Total fetch failures by classification.",
	}, []string{"kind"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvester_retries_total",
		Help: "Total retry attempts issued by the fetcher.",
	})
	items := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvester_items_total",
		Help: "Total items extracted.",
	})
	itemsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvester_items_skipped_total",
		Help: "Total items skipped after per-item failures.",
	})
	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvester_rows_written_total",
		Help: "Total rows appended to category stores.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvester_duplicate_rows_total",
		Help: "Total appends suppressed by the idempotence check.",
	})
	images := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvester_images_stored_total",
		Help: "Total images downloaded and re-encoded.",
	})

	registry.MustRegister(requests, requestDuration, fetchErrors, retries, items, itemsSkipped, rows, duplicates, images)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		FetchErrorsTotal:   fetchErrors,
		RetriesTotal:       retries,
		ItemsTotal:         items,
		ItemsSkippedTotal:  itemsSkipped,
		RowsWrittenTotal:   rows,
		DuplicateRowsTotal: duplicates,
		ImagesStoredTotal:  images,
	}
}

// IncRequest increments the request counter.
func (m *Metrics) IncRequest() {
	if m == nil {
		return
	}
	m.RequestsTotal.Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncFetchError increments the fetch error counter for a kind label.
func (m *Metrics) IncFetchError(kind string) {
	if m == nil {
		return
	}
	m.FetchErrorsTotal.WithLabelValues(kind).Inc()
}

// IncRetries increments the retry counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncItems increments the extracted item counter.
func (m *Metrics) IncItems() {
	if m == nil {
		return
	}
	m.ItemsTotal.Inc()
}

// IncItemsSkipped increments the skipped item counter.
func (m *Metrics) IncItemsSkipped() {
	if m == nil {
		return
	}
	m.ItemsSkippedTotal.Inc()
}

// IncRowsWritten increments the appended row counter.
func (m *Metrics) IncRowsWritten() {
	if m == nil {
		return
	}
	m.RowsWrittenTotal.Inc()
}

// IncDuplicateRows increments the suppressed duplicate counter.
func (m *Metrics) IncDuplicateRows() {
	if m == nil {
		return
	}
	m.DuplicateRowsTotal.Inc()
}

// IncImagesStored increments the stored image counter.
func (m *Metrics) IncImagesStored() {
	if m == nil {
		return
	}
	m.ImagesStoredTotal.Inc()
}
