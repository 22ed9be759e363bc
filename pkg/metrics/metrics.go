package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	QueriesTotal      *prometheus.CounterVec // status: completed, no_results, failed, blocked
	QueryDuration     prometheus.Histogram
	QueriesInQueue    prometheus.Gauge
	ContactsTotal     *prometheus.CounterVec // outcome: inserted, duplicate, failed
	ListingsSkipped   prometheus.Counter
	BrowserRestarts   *prometheus.CounterVec // reason: memory, rotation, blocked, disconnected
	Cooldowns         *prometheus.CounterVec // kind: scheduled, blocked
	ResidentMemoryMB  prometheus.Gauge
	NavigationRetries prometheus.Counter

	initOnce sync.Once
)

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests to the status server.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of status server HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_queries_total",
			Help: "Total number of processed queries by final status.",
		},
		[]string{"status"},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_query_duration_seconds",
			Help:    "Wall time spent on a single query.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	QueriesInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_queries_in_queue",
			Help: "Current number of queries waiting in the queue.",
		},
	)

	ContactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_contacts_total",
			Help: "Contacts handed to the store by insert outcome.",
		},
		[]string{"outcome"},
	)

	ListingsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_listings_skipped_total",
			Help: "Listings skipped because they could not be opened.",
		},
	)

	BrowserRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_browser_restarts_total",
			Help: "Browser session restarts by reason.",
		},
		[]string{"reason"},
	)

	Cooldowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_cooldowns_total",
			Help: "Cooldown pauses by kind.",
		},
		[]string{"kind"},
	)

	ResidentMemoryMB = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_resident_memory_megabytes",
			Help: "Resident memory of the scraper and its browser at the last check.",
		},
	)

	NavigationRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_navigation_retries_total",
			Help: "Navigation attempts that failed and were retried.",
		},
	)
}
