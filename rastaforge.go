// Package rastaforge is the public entry point of the stochastic
// raster-program optimiser (spec.md §1). It wires the nine internal
// components into one Optimizer: construct with New, start workers with
// Start, read back the evolving best solution at any time, and Stop
// when done. Grounded on the teacher's machine.go top-level type that
// owns every chip and exposes Run/Stop to main.go.
package rastaforge

import (
	"context"
	"sync"

	"github.com/zaynotley/rastaforge/internal/accept"
	"github.com/zaynotley/rastaforge/internal/colordist"
	"github.com/zaynotley/rastaforge/internal/config"
	"github.com/zaynotley/rastaforge/internal/dual"
	"github.com/zaynotley/rastaforge/internal/emulator"
	"github.com/zaynotley/rastaforge/internal/evaluator"
	"github.com/zaynotley/rastaforge/internal/rasterr"
	"github.com/zaynotley/rastaforge/internal/raster"
	"github.com/zaynotley/rastaforge/internal/scripting"
	"github.com/zaynotley/rastaforge/internal/worker"
)

// Optimizer owns the whole run: the fixed inputs (target, palette,
// error table, on/off map, cycle table), the shared GlobalState, and
// (when enabled) the dual-frame coordinator.
type Optimizer struct {
	cfg    config.Config
	target *raster.TargetImage
	pal    raster.Palette
	onoff  *raster.OnOffMap
	cycles emulator.CycleTable

	state        *worker.GlobalState
	stateB       *worker.GlobalState // non-nil only when cfg.DualMode
	dual         *dual.Coordinator
	schedule     worker.DualSchedule
	acceptParams worker.AcceptParams
	hooks        *scripting.Hooks
	scorer       emulator.Scorer

	onAutosave func(*raster.Picture)

	cancel context.CancelFunc
	wg     sync.WaitGroup
	runErr error
}

// Options bundles the inputs consumed at construction (spec.md §6
// "Consumed").
type Options struct {
	Target   *raster.TargetImage
	Palette  raster.Palette
	OnOff    *raster.OnOffMap // nil means "everything enabled"
	Metric   colordist.Metric
	Config   config.Config
	Script   string // optional Lua source; empty disables hooks
	Autosave func(*raster.Picture)
}

// New validates opts.Config and constructs an Optimizer ready for
// Start. It does not spawn any goroutine.
func New(opts Options) (*Optimizer, error) {
	if opts.Target == nil {
		return nil, rasterr.Config("target image is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	o := &Optimizer{
		cfg:        opts.Config,
		target:     opts.Target,
		pal:        opts.Palette,
		onoff:      opts.OnOff,
		cycles:     emulator.DefaultCycleTable(),
		onAutosave: opts.Autosave,
	}

	if opts.Script != "" {
		hooks, err := scripting.Load(opts.Script)
		if err != nil {
			return nil, err
		}
		o.hooks = hooks
	}

	errTable := raster.BuildErrorTable(opts.Target, opts.Palette, opts.Metric)
	scorer := emulator.SingleFrameScorer{Table: errTable}
	o.scorer = scorer

	seed := raster.NewSeedPicture(opts.Target, opts.Palette, opts.Metric)
	if opts.OnOff != nil {
		evaluator.ApplyOnOffMap(seed, opts.OnOff)
	}

	seedEval := evaluator.New(o.cycles, scorer, opts.Target.Height, int(opts.Config.CacheSize))
	seedResult, err := seedEval.Evaluate(seed, 1)
	if err != nil {
		return nil, err
	}

	o.acceptParams = worker.AcceptParams{
		Mode:             opts.Config.Optimizer,
		L:                opts.Config.Solutions,
		ColorMax:         colorMax(opts.Metric),
		UnstuckAfter:     opts.Config.UnstuckAfter,
		UnstuckDriftNorm: opts.Config.UnstuckDriftNorm,
	}
	core := o.acceptParams.Build(opts.Target.Height, seedResult.TotalError)

	o.state = worker.NewGlobalState(seed, seedResult.TotalError, core, opts.Config.MaxEvals, opts.Config.SavePeriod)

	if opts.Config.DualMode {
		o.schedule = worker.DualSchedule{
			FirstDualSteps:    opts.Config.FirstDualSteps,
			AlteringDualSteps: opts.Config.AlteringDualSteps,
		}
		tables := dual.BuildTables(opts.Palette, opts.Target, opts.Config.FlickerLumaTol, opts.Config.FlickerChromaTol)
		o.dual = dual.NewCoordinator(tables, opts.Target.Height, opts.Config.AfterDualSteps == config.AfterDualCopy)

		seedB := raster.NewSeedPicture(opts.Target, opts.Palette, opts.Metric)
		if opts.OnOff != nil {
			evaluator.ApplyOnOffMap(seedB, opts.OnOff)
		}
		seedBResult, err := seedEval.Evaluate(seedB, 1)
		if err != nil {
			return nil, err
		}
		coreB := o.acceptParams.Build(opts.Target.Height, seedBResult.TotalError)
		o.stateB = worker.NewGlobalState(seedB, seedBResult.TotalError, coreB, opts.Config.MaxEvals, opts.Config.SavePeriod)
	}

	return o, nil
}

// colorMax bounds the plateau-drift scaling term (spec.md §4.7): the
// Euclidean metric's natural scale is squared-byte distance (max
// 3*255^2), every other metric's outputs are kept roughly in the same
// order of magnitude by construction, so one constant suffices for all
// four.
func colorMax(metric colordist.Metric) float64 {
	return 3 * 255 * 255
}

// Start launches cfg.Threads worker goroutines and returns immediately;
// the run continues until Stop is called, max_evals is reached, or a
// worker returns an invariant-violation error (observable via Wait).
func (o *Optimizer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel

	workers := make([]*worker.Worker, o.cfg.Threads)
	for i := range workers {
		seed := o.cfg.InitialSeed + uint64(i)*0x9e3779b97f4a7c15
		workers[i] = worker.New(i, o.cfg.Threads, o.state, o.stateB, o.dual, o.schedule, o.acceptParams,
			o.cycles, o.scorer, o.target.Height, o.cfg.CacheSize, seed, o.target, o.pal, o.onAutosave)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runErr = worker.RunAll(ctx, workers)
	}()
}

// Stop signals every worker to exit and blocks until they have.
func (o *Optimizer) Stop() error {
	o.state.Stop()
	if o.stateB != nil {
		o.stateB.Stop()
	}
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	o.hooks.Close()
	return o.runErr
}

// Wait blocks until the run finishes on its own (max_evals reached or a
// worker error), without requesting a stop.
func (o *Optimizer) Wait() error {
	o.wg.Wait()
	return o.runErr
}

// Best returns the current global-best picture's painted rows, sprite
// memory, and scoring counters (spec.md §6 "Exposed").
func (o *Optimizer) Best() (colorRows [][raster.Width]uint8, targetRows [][raster.Width]raster.Register, sprites raster.SpriteMemory, evaluations, lastImprovement uint64, cost float64) {
	return o.state.Visualisation()
}

// MutationStats returns per-operator attempt/success counts.
func (o *Optimizer) MutationStats() (attempts, successes [10]int) {
	return o.state.MutationStats()
}

// BestB returns track B's current best, mirroring Best, when dual-frame
// mode is enabled; ok is false (and every other return zero) otherwise.
func (o *Optimizer) BestB() (colorRows [][raster.Width]uint8, targetRows [][raster.Width]raster.Register, sprites raster.SpriteMemory, evaluations, lastImprovement uint64, cost float64, ok bool) {
	if o.stateB == nil {
		return nil, nil, raster.SpriteMemory{}, 0, 0, 0, false
	}
	colorRows, targetRows, sprites, evaluations, lastImprovement, cost = o.stateB.Visualisation()
	return colorRows, targetRows, sprites, evaluations, lastImprovement, cost, true
}

// MutationStatsB mirrors MutationStats for track B; ok is false when
// dual-frame mode is disabled.
func (o *Optimizer) MutationStatsB() (attempts, successes [10]int, ok bool) {
	if o.stateB == nil {
		return [10]int{}, [10]int{}, false
	}
	attempts, successes = o.stateB.MutationStats()
	return attempts, successes, true
}
