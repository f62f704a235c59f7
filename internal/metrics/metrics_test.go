package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCollectorNeverPanics(t *testing.T) {
	c := &Collector{enabled: false}
	c.SetQueueDepth("s1", 10, 200)
	c.RecordUnderrun("s1")
	c.RecordDecodeRetry("s1")
	c.RecordDecodeError("network_disconnected")
	c.RecordGraphRebuild("s1")
	c.RecordEQClamp("31")
	c.RecordSessionStarted()
	c.RecordSessionStopped("stop")
	c.RecordDriftRamp()
}

func TestNewCollectorRegistersAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newCollector(reg)
	require.True(t, c.enabled)

	c.SetQueueDepth("sess-1", 42, 200)
	c.RecordUnderrun("sess-1")
	c.RecordSessionStarted()

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, fam := range families {
		if fam.GetName() == "streamcore_renderer_queue_depth" {
			found = true
			require.Len(t, fam.Metric, 1)
			assert.Equal(t, float64(42), fam.Metric[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found, "expected streamcore_renderer_queue_depth to be registered")
}

func TestGetReturnsDisabledWhenUninitialized(t *testing.T) {
	global.Store(nil)
	c := Get()
	assert.False(t, c.enabled)
}
