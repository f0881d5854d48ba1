package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the link-level counters exported during long runs.
type Metrics struct {
	FramesTotal      prometheus.Counter
	BitErrorsTotal   prometheus.Counter
	CRCFailuresTotal prometheus.Counter
	DecodeSeconds    prometheus.Histogram
}

// NewMetrics registers the simulation collectors with reg. Pass a fresh
// registry in tests to keep runs isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ltesim",
			Name:      "frames_total",
			Help:      "Transmitted frames.",
		}),
		BitErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ltesim",
			Name:      "bit_errors_total",
			Help:      "Payload bit errors after decoding.",
		}),
		CRCFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ltesim",
			Name:      "crc_failures_total",
			Help:      "Frames whose transport-block CRC failed.",
		}),
		DecodeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ltesim",
			Name:      "decode_seconds",
			Help:      "Wall time of the receive chain per frame.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}
}
