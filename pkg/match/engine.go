package match

import (
	"context"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map"
	"github.com/sirupsen/logrus"

	"github.com/fleetward/fleetward/pkg/target"
)

// EngineConfig controls one Engine.
type EngineConfig struct {
	// Maxflight bounds parallel minion evaluations per pass.
	Maxflight int
	// RangeTimeout bounds one range-cluster lookup.
	RangeTimeout time.Duration
	// Ranges expands R@ queries; nil leaves them matching nothing.
	Ranges RangeExpander
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Maxflight:    DefaultMaxflight,
		RangeTimeout: 5 * time.Second,
	}
}

// Engine ties the parser, the nodegroup table and the matcher backends
// together for the coordinator: one SelectTargets call per dispatch.
//
// The nodegroup table is the only shared mutable state; it is swapped
// atomically on reload, so an in-flight resolution always reads one
// consistent snapshot. Parses of literal expression strings are
// memoized; resolution and compilation run fresh per call since
// nodegroup definitions and range membership may change between
// dispatches.
type Engine struct {
	log    logrus.FieldLogger
	cfg    EngineConfig
	groups atomic.Pointer[target.Nodegroups]
	cache  cmap.ConcurrentMap // expression string -> target.Node
}

// NewEngine builds an engine with an empty nodegroup table.
func NewEngine(cfg EngineConfig, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Maxflight <= 0 {
		cfg.Maxflight = DefaultMaxflight
	}
	if cfg.RangeTimeout <= 0 {
		cfg.RangeTimeout = 5 * time.Second
	}
	e := &Engine{log: log, cfg: cfg, cache: cmap.New()}
	empty := target.Nodegroups{}
	e.groups.Store(&empty)
	return e
}

// SetNodegroups swaps in a new nodegroup table. In-flight passes keep
// the snapshot they started with.
func (e *Engine) SetNodegroups(g target.Nodegroups) {
	copied := make(target.Nodegroups, len(g))
	for name, def := range g {
		copied[name] = def
	}
	e.groups.Store(&copied)
}

// Nodegroups returns the current table snapshot. Callers must not
// mutate it.
func (e *Engine) Nodegroups() target.Nodegroups {
	return *e.groups.Load()
}

// CachedParses reports how many distinct expressions have been parsed.
func (e *Engine) CachedParses() int { return e.cache.Count() }

func (e *Engine) parse(expr string) (target.Node, error) {
	if v, ok := e.cache.Get(expr); ok {
		return v.(target.Node), nil
	}
	n, err := target.Parse(expr)
	if err != nil {
		return nil, err
	}
	e.cache.Set(expr, n)
	return n, nil
}

// Compile parses (memoized), resolves against the current nodegroup
// snapshot, and compiles an expression.
func (e *Engine) Compile(ctx context.Context, expr string) (*CompiledExpr, error) {
	n, err := e.parse(expr)
	if err != nil {
		return nil, err
	}
	resolved, err := target.Resolve(n, e.Nodegroups(), e.log)
	if err != nil {
		return nil, err
	}
	c := &Compiler{Log: e.log, Ranges: e.cfg.Ranges, RangeTimeout: e.cfg.RangeTimeout}
	return c.Compile(ctx, resolved)
}

// SelectTargets computes the matched-minion set for one dispatch.
func (e *Engine) SelectTargets(ctx context.Context, expr string, fleet []*Snapshot) ([]string, error) {
	ce, err := e.Compile(ctx, expr)
	if err != nil {
		return nil, err
	}
	return ce.Assemble(ctx, fleet, e.cfg.Maxflight)
}
