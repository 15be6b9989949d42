package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	ActorsRegistered prometheus.Counter
	TendersCreated   prometheus.Counter
	TendersCancelled prometheus.Counter
	TendersAwarded   prometheus.Counter
	BidsPlaced       prometheus.Counter
	RelayPublished   prometheus.Counter
	CloseDuration    prometheus.Histogram
}

// New creates and registers all Prometheus metrics. Call once per process;
// promauto panics on duplicate registration.
func New() *Metrics {
	return &Metrics{
		ActorsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tender_ledger_actors_registered_total",
			Help: "Total number of actors registered",
		}),
		TendersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tender_ledger_tenders_created_total",
			Help: "Total number of tenders created",
		}),
		TendersCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tender_ledger_tenders_cancelled_total",
			Help: "Total number of tenders cancelled",
		}),
		TendersAwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tender_ledger_tenders_awarded_total",
			Help: "Total number of tenders closed with an award",
		}),
		BidsPlaced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tender_ledger_bids_placed_total",
			Help: "Total number of bids accepted",
		}),
		RelayPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tender_ledger_relay_events_published_total",
			Help: "Total number of ledger events published to the broker",
		}),
		CloseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tender_ledger_close_duration_seconds",
			Help:    "Time spent inside the close-and-award critical section",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
