package datasync

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelSlice  = "slice"
	labelResult = "result"
	labelState  = "state"

	resultOK        = "ok"
	resultError     = "error"
	resultDiscarded = "discarded"
)

type Metrics struct {
	Fetches     *prometheus.CounterVec
	Latency     *prometheus.HistogramVec
	Cycles      prometheus.Counter
	StaleSlices prometheus.Gauge
	Discounts   *prometheus.GaugeVec
}

// NewMetrics builds the sync metrics and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_sync_fetch_total",
				Help: "Catalog slice fetches by outcome",
			},
			[]string{labelSlice, labelResult},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_sync_fetch_duration_seconds",
				Help:    "Catalog slice fetch latency including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{labelSlice},
		),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_sync_cycles_total",
			Help: "Completed sync cycles",
		}),
		StaleSlices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_sync_stale_slices",
			Help: "Slices whose consecutive fetch failures reached the stale threshold",
		}),
		Discounts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalog_sync_discounts",
				Help: "Discount ids by lifecycle state",
			},
			[]string{labelState},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Fetches, m.Latency, m.Cycles, m.StaleSlices, m.Discounts)
	}
	return m
}
