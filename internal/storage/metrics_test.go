package storage

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInstrument_CountsOutcomes(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	b := Instrument(tempLocal(t), m)

	require.NoError(t, b.Write(ctx, "a", []byte("x")))
	_, err := b.Read(ctx, "a")
	require.NoError(t, err)
	_, err = b.Read(ctx, "missing")
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("local", "write", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("local", "read", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("local", "read", "not_found")))

	n, err := testutil.GatherAndCount(reg, "folio_storage_operation_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestInstrument_PreservesMover(t *testing.T) {
	b := Instrument(tempLocal(t), NewMetrics(nil))
	_, ok := b.(Mover)
	require.True(t, ok, "local backend should stay a Mover")

	r, _ := newTestRemote(t)
	b = Instrument(r, NewMetrics(nil))
	_, ok = b.(Mover)
	require.False(t, ok, "remote backend is not a Mover")
}

func TestInstrument_NilMetricsIsPassthrough(t *testing.T) {
	l := tempLocal(t)
	require.Same(t, Backend(l), Instrument(l, nil))
}
