package telemetry

import (
	"context"
	"testing"

	"github.com/abgdnv/stockledger/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), "ledger", config.TelemetryConfig{Enabled: false})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewMeterProvider_ExportsToRegistry(t *testing.T) {
	// given
	registry := prometheus.NewRegistry()
	mp, err := NewMeterProvider("ledger", registry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := mp.Meter("test").Int64Counter("ledger_test_events")
	require.NoError(t, err)

	// when
	counter.Add(context.Background(), 3)
	families, err := registry.Gather()

	// then
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
		if mf.GetName() == "ledger_test_events_total" {
			require.NotEmpty(t, mf.GetMetric())
			assert.Equal(t, float64(3), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.Contains(t, names, "ledger_test_events_total")
}
