package api

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/witverse/internal/identity"
	"github.com/dharsanguruparan/witverse/internal/pipeline"
	"github.com/dharsanguruparan/witverse/internal/remote/remotetest"
	"github.com/dharsanguruparan/witverse/internal/wizard"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func newTestRegistry(ttl time.Duration) (*registry, prometheus.Gauge) {
	p := pipeline.New(remotetest.NewObjectStore(), &remotetest.AppRecorder{})
	factory := func(ctx context.Context, id string, provider identity.Provider) (*wizard.Controller, error) {
		return wizard.New(ctx, provider, p, wizard.WithLogger(quietLogger()))
	}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "sessions"})
	return newRegistry(ttl, factory, gauge, quietLogger()), gauge
}

func TestRegistrySweepsIdleSessions(t *testing.T) {
	r, gauge := newTestRegistry(time.Hour)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	defer r.closeAll()

	idle, err := r.create(context.Background(), nil)
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	busy, err := r.create(context.Background(), &identity.Identity{ID: "dev-1"})
	require.NoError(t, err)
	assert.Equal(t, float64(2), gaugeValue(t, gauge))

	now = now.Add(45 * time.Minute)
	_, ok := r.get(busy.id)
	require.True(t, ok)

	assert.Equal(t, 1, r.sweep())
	_, ok = r.get(idle.id)
	assert.False(t, ok)
	_, ok = r.get(busy.id)
	assert.True(t, ok)
	assert.Equal(t, float64(1), gaugeValue(t, gauge))
}

func TestRegistryCreateSignsIn(t *testing.T) {
	r, _ := newTestRegistry(time.Hour)
	defer r.closeAll()
	s, err := r.create(context.Background(), &identity.Identity{ID: "dev-1"})
	require.NoError(t, err)
	assert.True(t, s.wizard.Status().SignedIn)

	assert.True(t, r.remove(s.id))
	assert.False(t, r.remove(s.id))
	assert.Zero(t, r.len())
}
