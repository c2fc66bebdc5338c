package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/zaynotley/rastaforge/internal/accept"
	"github.com/zaynotley/rastaforge/internal/dual"
	"github.com/zaynotley/rastaforge/internal/emulator"
	"github.com/zaynotley/rastaforge/internal/evaluator"
	"github.com/zaynotley/rastaforge/internal/mutate"
	"github.com/zaynotley/rastaforge/internal/raster"
)

// DualSchedule is the subset of config.Config the worker loop needs to
// drive the dual-frame phase schedule (spec.md §4.9 "Phase schedule"):
// how many evaluations each bootstrap phase runs for, and how often
// ALTERNATING flips focus between the two tracks.
type DualSchedule struct {
	FirstDualSteps    uint64
	AlteringDualSteps uint64
}

// AcceptParams are the acceptance-core construction parameters needed
// to rebuild a track's acceptance history from a freshly measured cost,
// since the GlobalState holding that history only ever stores the live
// *accept.Core, not the parameters it was built from.
type AcceptParams struct {
	Mode             accept.Mode
	L                int
	ColorMax         float64
	UnstuckAfter     int
	UnstuckDriftNorm float64
}

// Build constructs a fresh *accept.Core from these parameters, seeded
// to seedCost for a height-line picture.
func (p AcceptParams) Build(height int, seedCost float64) *accept.Core {
	return accept.New(p.Mode, p.L, seedCost, raster.Width, height, p.ColorMax, p.UnstuckAfter, p.UnstuckDriftNorm)
}

// Worker is one goroutine's private state: its own evaluator (arena +
// caches), its own mutation engine, and the region of lines it is
// biased toward mutating (spec.md §4.8 "thread-local evaluator ...
// thread-local RNG"). touch is this worker's own monotonic evaluation
// counter, used only as the recency stamp in its own per-line caches --
// it never needs to be shared across workers since each worker's
// evaluator owns a disjoint set of caches.
//
// When dual-frame mode is enabled, a Worker additionally owns a second
// evaluator/mutation-engine pair for track B and consults the shared
// dual.Coordinator every iteration to decide which track it is
// currently advancing (spec.md §4.9, component C9).
type Worker struct {
	id      int
	height  int
	touch   uint64
	onFirst [2]bool // index 0 = track A, 1 = track B

	stateA, stateB *GlobalState
	evalA, evalB   *evaluator.Evaluator
	mutA, mutB     *mutate.Engine

	dualC        *dual.Coordinator
	schedule     DualSchedule
	acceptParams AcceptParams
	singleScorer emulator.Scorer

	cacheBudget int64

	onAutosave  func(pic *raster.Picture)
	autosaveSem *semaphore.Weighted
}

// New constructs worker id of count workers total, owning region
// [regionStart,regionEnd) of a height-line picture. coordinator is nil
// unless dual-frame mode is enabled; when non-nil, stateB must also be
// non-nil and schedule/acceptParams must describe the run's phase
// timing and acceptance-core shape.
func New(id, count int, stateA, stateB *GlobalState, coordinator *dual.Coordinator, schedule DualSchedule, acceptParams AcceptParams,
	cycles emulator.CycleTable, scorer emulator.Scorer, height int, cacheBudget int64, rngSeed uint64,
	target *raster.TargetImage, pal raster.Palette, onAutosave func(*raster.Picture)) *Worker {
	regionSize := height / count
	start := id * regionSize
	end := start + regionSize
	if id == count-1 {
		end = height
	}
	w := &Worker{
		id:           id,
		height:       height,
		stateA:       stateA,
		stateB:       stateB,
		evalA:        evaluator.New(cycles, scorer, height, int(cacheBudget/8)),
		mutA:         mutate.New(rngSeed, start, end, height, &cycles, target, pal),
		dualC:        coordinator,
		schedule:     schedule,
		acceptParams: acceptParams,
		singleScorer: scorer,
		cacheBudget:  cacheBudget,
		onAutosave:   onAutosave,
	}
	w.onFirst[0] = true
	if coordinator != nil {
		w.evalB = evaluator.New(cycles, scorer, height, int(cacheBudget/8))
		// distinct RNG stream for track B's mutations
		w.mutB = mutate.New(rngSeed^0x9e3779b97f4a7c15, start, end, height, &cycles, target, pal)
		w.onFirst[1] = true
	}
	return w
}

// Run executes the worker loop (spec.md §4.8) until the shared state is
// marked finished.
func (w *Worker) Run(ctx context.Context) error {
	for !w.finished() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		track, state, ev, mut, scorer := w.currentTrack()

		// 1. cache-pressure check
		if ev.ArenaUsage() > w.cacheBudget {
			w.runCachePressurePolicy(ev, state)
		}

		// 2. snapshot shared best
		candidate := state.Snapshot()

		if w.onFirst[track] {
			// 3. first iteration of this track: evaluate verbatim to seed baseline
			w.onFirst[track] = false
		} else {
			mut.Mutate(candidate)
		}

		w.touch++
		ev.SetScorer(scorer)
		res, err := ev.Evaluate(candidate, w.touch)
		if err != nil {
			return err
		}

		becameBest, shouldStop := state.Submit(Report{
			Candidate:     candidate,
			Cost:          res.TotalError,
			PaintedColor:  res.PaintedColor,
			PaintedTarget: res.PaintedTarget,
			Sprites:       res.Sprites,
			MutationOp:    -1,
		})
		mut.SetStuck(state.AcceptanceStuck())

		if becameBest && track == 0 {
			w.maybeAutosave(candidate)
		}
		if shouldStop {
			return nil
		}

		if w.dualC != nil {
			w.advanceDualSchedule()
		}
	}
	return nil
}

func (w *Worker) finished() bool {
	if w.dualC == nil {
		return w.stateA.Finished()
	}
	return w.stateA.Finished() || w.stateB.Finished()
}

// currentTrack resolves which track (0=A, 1=B) this worker should
// spend its next iteration on, per the coordinator's current phase
// (spec.md §4.9 "Phase schedule"): BOOTSTRAP_A always drives A against
// the target image directly; BOOTSTRAP_B and ALTERNATING both drive
// whichever track is focused, scored against the other track's frozen
// rows.
func (w *Worker) currentTrack() (track int, state *GlobalState, ev *evaluator.Evaluator, mut *mutate.Engine, scorer emulator.Scorer) {
	if w.dualC == nil {
		return 0, w.stateA, w.evalA, w.mutA, w.singleScorer
	}
	dualScorer := dual.DualFrameScorer{Tables: w.dualC.Tables, Opposite: w.dualC.Frozen}
	switch w.dualC.Phase() {
	case dual.BootstrapA:
		return 0, w.stateA, w.evalA, w.mutA, w.singleScorer
	case dual.BootstrapB:
		return 1, w.stateB, w.evalB, w.mutB, dualScorer
	default: // Alternating
		if w.dualC.FocusB() {
			return 1, w.stateB, w.evalB, w.mutB, dualScorer
		}
		return 0, w.stateA, w.evalA, w.mutA, dualScorer
	}
}

// advanceDualSchedule checks whether the current phase has run long
// enough to move to the next one, or (in ALTERNATING) whether the step
// counter just crossed a focus-flip threshold, and performs whichever
// transition applies. At most one racing worker actually performs each
// transition, via dual.Coordinator's compare-and-swap phase change.
func (w *Worker) advanceDualSchedule() {
	switch w.dualC.Phase() {
	case dual.BootstrapA:
		if w.stateA.Evals() >= w.schedule.FirstDualSteps && w.dualC.TryEnterBootstrapB() {
			w.onEnterBootstrapB()
		}
	case dual.BootstrapB:
		if w.stateB.Evals() >= w.schedule.FirstDualSteps && w.dualC.TryEnterAlternating() {
			// ALTERNATING always starts focused on A (FocusB's zero value).
			w.onFocusChange(false)
		}
	case dual.Alternating:
		if w.dualC.Step(w.schedule.AlteringDualSteps) {
			w.onFocusChange(w.dualC.FocusB())
		}
	}
}

// onEnterBootstrapB freezes A's current best for B to score against,
// turns on COMPLEMENT_VALUE_DUAL for both tracks' mutation engines now
// that a valid opposite frame exists, and -- if AFTER_DUAL_COPY is
// configured -- seeds B's program from a copy of A's current best
// instead of leaving it at its independently-seeded starting picture.
// Either way B's acceptance core is rebuilt from a dual-scored cost.
func (w *Worker) onEnterBootstrapB() {
	w.dualC.Frozen.Publish(w.stateA.PaintedRows())

	scorer := dual.DualFrameScorer{Tables: w.dualC.Tables, Opposite: w.dualC.Frozen}
	w.mutA.EnableDual(scorer.Cost)
	w.mutB.EnableDual(scorer.Cost)

	if w.dualC.AfterCopy {
		w.rebaselineFrom(w.stateA, w.stateB, w.evalB, scorer)
	} else {
		w.reseed(w.stateB, w.evalB, scorer)
	}
}

// onFocusChange freezes the track that just lost focus and reseeds the
// newly focused track's acceptance history against a freshly measured
// cost under the new (dual) objective, per spec.md §8 invariant 6.
func (w *Worker) onFocusChange(nowFocusB bool) {
	scorer := dual.DualFrameScorer{Tables: w.dualC.Tables, Opposite: w.dualC.Frozen}
	if nowFocusB {
		w.dualC.Frozen.Publish(w.stateA.PaintedRows())
		w.reseed(w.stateB, w.evalB, scorer)
	} else {
		w.dualC.Frozen.Publish(w.stateB.PaintedRows())
		w.reseed(w.stateA, w.evalA, scorer)
	}
}

func (w *Worker) reseed(state *GlobalState, ev *evaluator.Evaluator, scorer emulator.Scorer) {
	candidate := state.Snapshot()
	ev.SetScorer(scorer)
	res, err := ev.Evaluate(candidate, w.touch)
	if err != nil {
		return
	}
	state.ReseedAcceptance(w.acceptParams.Build(w.height, res.TotalError), res.TotalError)
}

func (w *Worker) rebaselineFrom(src, dst *GlobalState, ev *evaluator.Evaluator, scorer emulator.Scorer) {
	candidate := src.Snapshot()
	ev.SetScorer(scorer)
	res, err := ev.Evaluate(candidate, w.touch)
	if err != nil {
		return
	}
	dst.Rebaseline(candidate, res.TotalError, res.PaintedColor, res.PaintedTarget, res.Sprites, w.acceptParams.Build(w.height, res.TotalError))
}

// maybeAutosave fires the autosave callback if one is pending, holding
// a one-slot semaphore so at most one worker's autosave write runs at a
// time across the whole pool (spec.md §5 suspension point, generalised
// from the dual-frame pointer-publish mutex to any opportunistic
// writer).
func (w *Worker) maybeAutosave(pic *raster.Picture) {
	if w.onAutosave == nil || w.autosaveSem == nil {
		return
	}
	if !w.stateA.ConsumeAutosavePending() {
		return
	}
	if !w.autosaveSem.TryAcquire(1) {
		return
	}
	defer w.autosaveSem.Release(1)
	w.onAutosave(pic)
}

// runCachePressurePolicy applies spec.md §4.3's two-stage eviction: a
// partial LRU clear of the least-recently-touched quarter of lines,
// then (if that wasn't enough) a full mass clear and re-intern.
func (w *Worker) runCachePressurePolicy(ev *evaluator.Evaluator, state *GlobalState) {
	ages := ev.LineCacheAges()
	evictCount := len(ages) / 4
	if evictCount > 0 {
		order := lruOrder(ages)
		ev.ClearLines(order[:evictCount])
	}
	if ev.ArenaUsage() > w.cacheBudget {
		ev.MassClear(state.Snapshot())
	}
}

func lruOrder(ages []uint64) []int {
	idx := make([]int, len(ages))
	for i := range idx {
		idx[i] = i
	}
	// insertion sort by ascending age: evictCount is always a small
	// fraction of a modest line count (H <= 240), so O(n^2) here is
	// cheaper than pulling in a sort import for a one-shot policy pass.
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && ages[idx[j]] < ages[idx[j-1]]; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	return idx
}

// RunAll launches every worker under an errgroup and blocks until all
// return: either the shared state was told to stop, or one worker
// returned an invariant-violation error, which cancels the rest.
// Grounded on the teacher's use of golang.org/x/sync/errgroup to
// supervise a fixed pool of goroutines with first-error propagation.
func RunAll(ctx context.Context, workers []*Worker) error {
	g, ctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(1)
	for _, wk := range workers {
		wk.autosaveSem = sem
		wk := wk
		g.Go(func() error {
			return wk.Run(ctx)
		})
	}
	return g.Wait()
}
