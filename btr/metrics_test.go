package btr

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestReserveMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	tree, vol := newTestTree(t, 1000)
	nr := newTestReserve(t, ReserveConfig{Registerer: reg})
	ctx := WithOwner(context.Background(), NewOwnerID())
	var a, b ReserveHandle

	withTreeLock(tree, func() {
		require.NoError(t, nr.ReserveSpace(ctx, tree, MakeOps(1, 0), &a))
		require.NoError(t, nr.ReserveSpace(ctx, tree, MakeOps(10, 0), &b))
	})
	m := nr.metrics
	require.Equal(t, 1.0, testutil.ToFloat64(m.inserts))
	require.Equal(t, 1.0, testutil.ToFloat64(m.merges))
	require.Equal(t, 1.0, testutil.ToFloat64(m.entries))
	require.Equal(t, 1.0, testutil.ToFloat64(m.extensions))

	withTreeLock(tree, func() {
		nr.ReleaseReserve(ctx, tree, &a)
	})
	require.Equal(t, 1.0, testutil.ToFloat64(m.deletes))
	require.Equal(t, 0.0, testutil.ToFloat64(m.entries))

	_, err := vol.Allocate(vol.FreeBlocks())
	require.NoError(t, err)
	withTreeLock(tree, func() {
		err = nr.ReserveSpace(ctx, tree, MakeOps(100, 0), nil)
	})
	require.ErrorIs(t, err, ErrOutOfSpace)
	require.Equal(t, 1.0, testutil.ToFloat64(m.outOfSpace))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 6, n)
}

func TestMetricsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	require.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.inserted()
		m.deleted()
		m.merged()
		m.extended()
		m.refused()
	})
}
