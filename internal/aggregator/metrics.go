package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors fed by the Aggregator.
type Metrics struct {
	LinesTotal        *prometheus.CounterVec
	UnrecognizedTotal prometheus.Counter
	LastTimestamp     *prometheus.GaugeVec
	Dropped           prometheus.GaugeFunc
}

// NewMetrics creates the collectors and registers them with reg.
// dropped is sampled at scrape time.
func NewMetrics(reg prometheus.Registerer, dropped func() int64) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LinesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fwloom",
			Subsystem: "decode",
			Name:      "lines_total",
			Help:      "Total number of decoded firmware log lines by severity.",
		}, []string{"severity"}),
		UnrecognizedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fwloom",
			Subsystem: "decode",
			Name:      "unrecognized_total",
			Help:      "Total number of records whose event id is missing from the schema.",
		}),
		LastTimestamp: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fwloom",
			Subsystem: "decode",
			Name:      "last_timestamp_ticks",
			Help:      "Extended 64-bit device timestamp of the latest line per source.",
		}, []string{"source"}),
		Dropped: f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "fwloom",
			Subsystem: "hub",
			Name:      "dropped_lines",
			Help:      "Lines dropped for slow consumers since start.",
		}, func() float64 { return float64(dropped()) }),
	}
}
