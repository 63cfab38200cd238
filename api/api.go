// Package api is the storage engine facade for the B-tree node reserve:
// configuration, startup and shutdown, tree registration and status.
package api

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wilhasse/hfs-go/btr"
	"github.com/wilhasse/hfs-go/fsp"
)

// Engine owns the node reserve service and the trees of one volume.
type Engine struct {
	mu       sync.Mutex
	cfg      *Config
	started  bool
	log      btr.Logger
	volume   *fsp.Volume
	reserve  *btr.NodeReserve
	registry *prometheus.Registry
	trees    map[btr.TreeID]*btr.Tree
}

// NewEngine returns an engine with the default configuration.
func NewEngine() *Engine {
	return &Engine{cfg: NewConfig()}
}

// Config returns the engine's variable registry.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Startup builds the node reserve for vol from the configuration.
func (e *Engine) Startup(vol *fsp.Volume) ErrCode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return DB_ERROR
	}
	if vol == nil {
		return DB_INVALID_INPUT
	}

	var level string
	var maxReserve, percent uint64
	var metrics bool
	for name, out := range map[string]any{
		CfgLogLevel:        &level,
		CfgMaxReserveBytes: &maxReserve,
		CfgReservePercent:  &percent,
		CfgMetricsEnabled:  &metrics,
	} {
		if err := e.cfg.Get(name, out); err != DB_SUCCESS {
			return err
		}
	}

	e.log = LoggerInit(level)
	var reg *prometheus.Registry
	var registerer prometheus.Registerer
	if metrics {
		reg = prometheus.NewRegistry()
		registerer = reg
	}
	reserve, err := btr.NewNodeReserve(btr.ReserveConfig{
		Policy: fsp.ReservePolicy{
			Percent:         uint32(percent),
			MaxReserveBytes: maxReserve,
		},
		Log:        e.log,
		Registerer: registerer,
	})
	if err != nil {
		e.log.Errorf("api: node reserve setup failed: %v", err)
		return FromError(err)
	}
	e.volume = vol
	e.reserve = reserve
	e.registry = reg
	e.trees = map[btr.TreeID]*btr.Tree{}
	e.started = true
	e.cfg.setStarted(true)
	e.log.Infof("api: started on volume of %d blocks of %d bytes, %d free",
		vol.AllocLimit(), vol.BlockSize(), vol.FreeBlocks())
	return DB_SUCCESS
}

// Shutdown stops the engine. Reservations still outstanding are reported
// as stale and make Shutdown fail, though the engine still stops.
func (e *Engine) Shutdown() ErrCode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return DB_ERROR
	}
	code := DB_SUCCESS
	if n := e.reserve.Ledger().Len(); n > 0 {
		e.log.Errorf("api: %d stale node reserves at shutdown", n)
		code = DB_ERROR
	}
	e.started = false
	e.cfg.setStarted(false)
	e.reserve = nil
	e.trees = nil
	e.volume = nil
	e.registry = nil
	LoggerShutdown()
	return code
}

// CreateTree creates and registers a B-tree file on the engine's volume.
func (e *Engine) CreateTree(id btr.TreeID, nodeSize uint32, clumpSize uint64) (*btr.Tree, ErrCode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil, DB_ERROR
	}
	if _, ok := e.trees[id]; ok {
		return nil, DB_INVALID_INPUT
	}
	tree, err := btr.NewTree(id, e.volume, nodeSize, clumpSize)
	if err != nil {
		e.log.Infof("api: create tree %d: %v", id, err)
		return nil, FromError(err)
	}
	e.trees[id] = tree
	return tree, DB_SUCCESS
}

// Tree returns a registered tree.
func (e *Engine) Tree(id btr.TreeID) *btr.Tree {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trees[id]
}

// Reserve returns the node reserve service, or nil before Startup.
func (e *Engine) Reserve() *btr.NodeReserve {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reserve
}

// Registry returns the metrics registry, nil when metrics are disabled.
func (e *Engine) Registry() *prometheus.Registry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry
}
