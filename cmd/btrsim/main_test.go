package main

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wilhasse/hfs-go/btr"
	"github.com/wilhasse/hfs-go/fsp"
)

func testSimConfig() simConfig {
	return simConfig{
		blocks:    4096,
		blockSize: 4096,
		nodeSize:  8192,
		clump:     1 << 16,
		depth:     3,
		workers:   4,
		batches:   20,
		inserts:   4,
		deletes:   4,
		logLevel:  "NOOP",
	}
}

func TestRunLeavesNothingReserved(t *testing.T) {
	require.NoError(t, run(testSimConfig()))
}

func TestRunDeleteHeavyBatches(t *testing.T) {
	cfg := testSimConfig()
	cfg.inserts, cfg.deletes = 1, 6
	require.NoError(t, run(cfg))

	cfg.inserts = 0
	require.NoError(t, run(cfg))
}

func TestRunWorkerGivesBackOnlyWhatItTook(t *testing.T) {
	vol, err := fsp.NewVolume(4096, 1024)
	require.NoError(t, err)
	tree, err := btr.NewTree(simTree, vol, 4096, 16*4096)
	require.NoError(t, err)
	tree.SetDepth(2)
	nr, err := btr.NewNodeReserve(btr.ReserveConfig{Policy: fsp.DefaultReservePolicy})
	require.NoError(t, err)

	cfg := testSimConfig()
	cfg.batches = 5
	free := tree.FreeNodes
	res, err := runWorker(nr, tree, btr.MakeOps(2, 3), cfg)
	require.NoError(t, err)
	require.Equal(t, 5, res.done)
	require.Equal(t, free, tree.FreeNodes)
	require.Equal(t, uint32(0), tree.ReservedNodes)
	require.Equal(t, 0, nr.Ledger().Len())
}

func TestValidateFlags(t *testing.T) {
	cfg := testSimConfig()
	require.NoError(t, validate(cfg))
	cfg.inserts = 1 << 16
	require.Error(t, validate(cfg))
	cfg = testSimConfig()
	cfg.workers = 0
	require.Error(t, validate(cfg))
}
