package monitoring

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds Prometheus counters for a batch of tracked recordings.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	recordingsTotal    prometheus.Counter
	framesTotal        *prometheus.CounterVec
	lowConfidenceTotal prometheus.Counter
	lapsTotal          prometheus.Counter
	lapsCompletedTotal prometheus.Counter
}

// NewMetrics creates and registers the tracker metrics on a private
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	recordingsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lapalign_recordings_total",
		Help: "Total number of recordings tracked",
	})
	framesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lapalign_frames_total",
		Help: "Total number of frames processed, by outcome reason",
	}, []string{"reason"})
	lowConfidenceTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lapalign_low_confidence_frames_total",
		Help: "Total number of frames whose match was flagged low confidence",
	})
	lapsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lapalign_laps_total",
		Help: "Total number of laps segmented",
	})
	lapsCompletedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lapalign_laps_completed_total",
		Help: "Total number of laps that reached completion before the next reset",
	})

	registry.MustRegister(
		recordingsTotal,
		framesTotal,
		lowConfidenceTotal,
		lapsTotal,
		lapsCompletedTotal,
	)

	return &Metrics{
		registry:           registry,
		recordingsTotal:    recordingsTotal,
		framesTotal:        framesTotal,
		lowConfidenceTotal: lowConfidenceTotal,
		lapsTotal:          lapsTotal,
		lapsCompletedTotal: lapsCompletedTotal,
	}
}

// ObserveFrame counts one processed frame.
func (m *Metrics) ObserveFrame(reason string, lowConfidence bool) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(reason).Inc()
	if lowConfidence {
		m.lowConfidenceTotal.Inc()
	}
}

// ObserveRecording counts one finished recording and its laps.
func (m *Metrics) ObserveRecording(laps, completed int) {
	if m == nil {
		return
	}
	m.recordingsTotal.Inc()
	m.lapsTotal.Add(float64(laps))
	m.lapsCompletedTotal.Add(float64(completed))
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText writes the current values in the text exposition format,
// for pickup by a node_exporter textfile collector.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
