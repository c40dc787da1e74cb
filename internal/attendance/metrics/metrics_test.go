package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncRejection("outside_fence")
		m.IncRecorded("ENTRADA", "universal")
		m.ObserveStage("commit", time.Now())
	})
}

func TestCounters(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())
	m.IncRejection("outside_fence")
	m.IncRejection("outside_fence")
	m.IncRecorded("ENTRADA", "universal")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Rejections.WithLabelValues("outside_fence")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues("ENTRADA", "universal")))
}
