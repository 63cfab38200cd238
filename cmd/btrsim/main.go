// Command btrsim drives concurrent catalog batches against one B-tree and
// reports the node accounting left behind.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	stdsync "sync"

	"github.com/cockroachdb/errors"
	"github.com/wilhasse/hfs-go/api"
	"github.com/wilhasse/hfs-go/btr"
	"github.com/wilhasse/hfs-go/cat"
	"github.com/wilhasse/hfs-go/fsp"
)

const simTree btr.TreeID = 4

type simConfig struct {
	blocks    uint
	blockSize uint
	nodeSize  uint
	clump     uint64
	depth     uint
	workers   int
	batches   int
	inserts   uint
	deletes   uint
	logLevel  string
}

type workerResult struct {
	done    int
	refused int
}

func main() {
	var cfg simConfig
	flag.UintVar(&cfg.blocks, "blocks", 16384, "Volume size in blocks")
	flag.UintVar(&cfg.blockSize, "block-size", 4096, "Volume block size in bytes")
	flag.UintVar(&cfg.nodeSize, "node-size", 8192, "B-tree node size in bytes")
	flag.Uint64Var(&cfg.clump, "clump", 1<<20, "Tree growth increment in bytes")
	flag.UintVar(&cfg.depth, "depth", 3, "Tree height")
	flag.IntVar(&cfg.workers, "workers", 8, "Concurrent callers")
	flag.IntVar(&cfg.batches, "batches", 100, "Batches per caller")
	flag.UintVar(&cfg.inserts, "inserts", 4, "Inserts per batch")
	flag.UintVar(&cfg.deletes, "deletes", 4, "Deletes per batch")
	flag.StringVar(&cfg.logLevel, "log-level", "INFO", "Log level")
	flag.Parse()

	if err := validate(cfg); err != nil {
		exitErr("invalid flags", err)
	}
	if err := run(cfg); err != nil {
		exitErr("simulation failed", err)
	}
}

func validate(cfg simConfig) error {
	switch {
	case cfg.inserts > 0xffff || cfg.deletes > 0xffff:
		return errors.Newf("batch of %d inserts and %d deletes exceeds 65535", cfg.inserts, cfg.deletes)
	case cfg.depth > 0xffff:
		return errors.Newf("depth %d too large", cfg.depth)
	case cfg.workers <= 0 || cfg.batches < 0:
		return errors.New("need at least one worker")
	case cfg.blocks > 0xffffffff || cfg.blockSize > 0xffffffff || cfg.nodeSize > 0xffffffff:
		return errors.New("volume geometry out of range")
	}
	return nil
}

func run(cfg simConfig) error {
	vol, err := fsp.NewVolume(uint32(cfg.blockSize), uint32(cfg.blocks))
	if err != nil {
		return err
	}
	engine := api.NewEngine()
	if code := engine.Config().Set(api.CfgLogLevel, cfg.logLevel); code != api.DB_SUCCESS {
		return errors.Wrap(code, "set log level")
	}
	if code := engine.Startup(vol); code != api.DB_SUCCESS {
		return errors.Wrap(code, "startup")
	}

	tree, code := engine.CreateTree(simTree, uint32(cfg.nodeSize), cfg.clump)
	if code != api.DB_SUCCESS {
		engine.Shutdown()
		return errors.Wrap(code, "create tree")
	}
	tree.Lock.Lock()
	tree.SetDepth(uint16(cfg.depth))
	tree.Lock.Unlock()

	ops := btr.MakeOps(uint16(cfg.inserts), uint16(cfg.deletes))
	results := make([]workerResult, cfg.workers)
	errs := make([]error, cfg.workers)
	var wg stdsync.WaitGroup
	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			results[w], errs[w] = runWorker(engine.Reserve(), tree, ops, cfg)
		}(w)
	}
	wg.Wait()

	var done, refused int
	for w := range results {
		if errs[w] != nil {
			engine.Shutdown()
			return errors.Wrapf(errs[w], "worker %d", w)
		}
		done += results[w].done
		refused += results[w].refused
	}

	tree.Lock.Lock()
	fmt.Printf("tree %d: depth %d, %d nodes of %d bytes, %d free, %d reserved, %d map\n",
		tree.ID, tree.Depth, tree.TotalNodes, tree.NodeSize, tree.FreeNodes, tree.ReservedNodes, tree.MapNodes)
	reserved := tree.ReservedNodes
	tree.Lock.Unlock()
	fmt.Printf("volume: %d of %d blocks free\n", vol.FreeBlocks(), vol.AllocLimit())
	fmt.Printf("batches: %d done, %d refused\n", done, refused)
	for _, name := range api.StatusNames() {
		var v int64
		if engine.StatusGetI64(name, &v) == api.DB_SUCCESS {
			fmt.Printf("%s: %d\n", name, v)
		}
	}

	if code := engine.Shutdown(); code != api.DB_SUCCESS {
		return errors.Wrap(code, "shutdown")
	}
	if reserved != 0 {
		return errors.Newf("%d nodes still reserved", reserved)
	}
	return vol.Validate()
}

// runWorker runs the batches of one caller. A batch consumes a node per
// insert it reserved for, and gives one back per delete, up to the nodes
// it took.
func runWorker(nr *btr.NodeReserve, tree *btr.Tree, ops btr.Ops, cfg simConfig) (workerResult, error) {
	var res workerResult
	ctx := btr.WithOwner(context.Background(), btr.NewOwnerID())
	for i := 0; i < cfg.batches; i++ {
		var cookie cat.Cookie
		err := cat.Preflight(ctx, nr, tree, ops, &cookie)
		if errors.Is(err, btr.ErrOutOfSpace) {
			res.refused++
			continue
		}
		if err != nil {
			return res, err
		}
		if n := uint32(ops.Inserts()); n > 0 {
			if err := cat.AllocNodes(ctx, nr, tree, n); err != nil {
				cat.Postflight(ctx, nr, tree, &cookie)
				return res, err
			}
		}
		if n := uint32(min(ops.Deletes(), ops.Inserts())); n > 0 {
			tree.Lock.Lock()
			err := tree.FreeNodesBack(n)
			tree.Lock.Unlock()
			if err != nil {
				cat.Postflight(ctx, nr, tree, &cookie)
				return res, err
			}
		}
		cat.Postflight(ctx, nr, tree, &cookie)
		res.done++
	}
	return res, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
