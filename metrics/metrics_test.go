package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zfxlabs/subzero/metrics"
)

func TestNewRegistersEveryInstrumentExactlyOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	s, err := metrics.New(registry)
	require.NoError(t, err)
	require.NotNil(t, s)

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 15)
}

func TestNewFailsOnDoubleRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := metrics.New(registry)
	require.NoError(t, err)

	_, err = metrics.New(registry)
	assert.Error(t, err)
}

func TestCounterIncrementsAreObservable(t *testing.T) {
	registry := prometheus.NewRegistry()
	s, err := metrics.New(registry)
	require.NoError(t, err)

	s.HailAccepted.Inc()
	s.HailAccepted.Inc()

	var m dto.Metric
	require.NoError(t, s.HailAccepted.Write(&m))
	assert.Equal(t, float64(2), m.GetCounter().GetValue())
}
