// Package worker implements the worker driver (spec.md §4.8, component
// C8): per-goroutine evaluator+mutator+RNG, a mutex-protected shared
// GlobalState, and the cache-pressure/autosave/cancellation policy tying
// them together. Grounded on the teacher's audio_mixer.go fan-in loop
// (N goroutines feeding one mutex-protected mix buffer, a condition
// variable signalling the UI) and on golang.org/x/sync's errgroup for
// supervised goroutine lifetimes (also used by IntuitionAmiga-IntuitionEngine).
package worker

import (
	"sync"
	"time"

	"github.com/zaynotley/rastaforge/internal/accept"
	"github.com/zaynotley/rastaforge/internal/raster"
)

// GlobalState is the single mutex-protected aggregate every worker
// touches on every evaluation (spec.md §3 "Global state (single-frame)").
type GlobalState struct {
	mu sync.Mutex
	cv *sync.Cond

	best      *raster.Picture
	bestCost  float64
	evals     uint64
	lastImprovementEval uint64

	acceptance *accept.Core

	mutationAttempts [10]int
	mutationSuccess  [10]int

	paintedColor  [][raster.Width]uint8
	paintedTarget [][raster.Width]raster.Register
	sprites       raster.SpriteMemory

	finished          bool
	improvementPending bool
	autosavePending   bool

	maxEvals   uint64
	savePeriod int64 // <0: every 30s; 0: never; >0: every N evaluations; see checkAutosaveLocked
	lastAutosaveEval uint64
	lastAutosaveAt   time.Time
}

// NewGlobalState seeds state with an initial picture and its already
// measured cost, and constructs the acceptance core.
func NewGlobalState(initial *raster.Picture, initialCost float64, acceptance *accept.Core, maxEvals uint64, savePeriod int64) *GlobalState {
	g := &GlobalState{
		best:       initial,
		bestCost:   initialCost,
		acceptance: acceptance,
		maxEvals:   maxEvals,
		savePeriod: savePeriod,
		lastAutosaveAt: time.Time{},
	}
	g.cv = sync.NewCond(&g.mu)
	return g
}

// BestCostRelaxed reads the best cost without the mutex (spec.md §5
// "Outside the mutex, workers read the best cost through a relaxed
// load"). Go has no standalone atomic float64 load below an explicit
// atomic.Value wrapper, and this field changes rarely enough that a
// short lock here is not the contended path the spec worries about;
// the mutex is still taken, but held only for the duration of a single
// field read.
func (g *GlobalState) BestCostRelaxed() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bestCost
}

// Snapshot returns a deep copy of the current global best, safe for a
// worker to mutate privately. Every line's CacheKey is nulled in the
// copy: the best's keys are handles into the arena of whichever worker
// interned them (possibly since mass-cleared), so the caller's Evaluate
// re-interns every line against its own sequence cache.
func (g *GlobalState) Snapshot() *raster.Picture {
	g.mu.Lock()
	defer g.mu.Unlock()
	pic := g.best.Clone()
	for _, line := range pic.Lines {
		line.CacheKey = 0
	}
	return pic
}

// Report is what a worker hands back after evaluating one candidate.
type Report struct {
	Candidate     *raster.Picture
	Cost          float64
	PaintedColor  [][raster.Width]uint8
	PaintedTarget [][raster.Width]raster.Register
	Sprites       raster.SpriteMemory
	MutationOp    int // operator index to count in the mutation stats, or -1 to count none (Worker.Run always passes -1)
}

// Submit runs the acceptance core against r, under the mutex, per
// spec.md §4.8 step 5. It reports whether a new global best was
// published and whether the run should stop (finished or max_evals hit).
func (g *GlobalState) Submit(r Report) (becameBest, shouldStop bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.evals++
	accepted, improved := g.acceptance.Apply(r.Cost)
	if r.MutationOp >= 0 {
		g.mutationAttempts[r.MutationOp]++
		if accepted {
			g.mutationSuccess[r.MutationOp]++
		}
	}

	if (improved && r.Cost < g.bestCost) || (g.evals == 1) {
		g.best = r.Candidate
		g.bestCost = r.Cost
		g.paintedColor = r.PaintedColor
		g.paintedTarget = r.PaintedTarget
		g.sprites = r.Sprites
		g.lastImprovementEval = g.evals
		g.acceptance.ResetImprovementGap()
		g.improvementPending = true
		becameBest = true
	} else {
		g.acceptance.NoteEvaluation()
	}

	if g.checkAutosaveLocked() {
		g.autosavePending = true
	}
	if g.maxEvals > 0 && g.evals >= g.maxEvals {
		g.finished = true
	}
	shouldStop = g.finished

	g.cv.Broadcast()
	return becameBest, shouldStop
}

func (g *GlobalState) checkAutosaveLocked() bool {
	switch {
	case g.savePeriod < 0:
		if time.Since(g.lastAutosaveAt) >= 30*time.Second {
			g.lastAutosaveAt = time.Now()
			return true
		}
		return false
	case g.savePeriod == 0:
		return false
	default:
		if g.evals-g.lastAutosaveEval >= uint64(g.savePeriod) {
			g.lastAutosaveEval = g.evals
			return true
		}
		return false
	}
}

// ConsumeAutosavePending reports and clears the autosave-pending flag.
func (g *GlobalState) ConsumeAutosavePending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	pending := g.autosavePending
	g.autosavePending = false
	return pending
}

// Stop marks the run finished and wakes every waiter (spec.md §5
// "Cancellation / timeouts").
func (g *GlobalState) Stop() {
	g.mu.Lock()
	g.finished = true
	g.mu.Unlock()
	g.cv.Broadcast()
}

// Finished reports whether the run has been told to stop.
func (g *GlobalState) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.finished
}

// WaitForUpdate blocks until the next broadcast on the state's condition
// variable -- sent by every Submit (each evaluation, improving or not)
// and by Stop -- or until deadline passes, matching the UI thread's condition-variable
// wait with a deadline (spec.md §5 suspension point (b)).
func (g *GlobalState) WaitForUpdate(deadline time.Duration) {
	timer := time.AfterFunc(deadline, func() {
		g.mu.Lock()
		g.cv.Broadcast()
		g.mu.Unlock()
	})
	defer timer.Stop()

	g.mu.Lock()
	before := g.evals
	if g.evals == before && !g.finished {
		g.cv.Wait()
	}
	g.mu.Unlock()
}

// Visualisation returns the best solution's painted rows and sprite
// memory for the UI/CLI to render.
func (g *GlobalState) Visualisation() (colorRows [][raster.Width]uint8, targetRows [][raster.Width]raster.Register, sprites raster.SpriteMemory, evals, lastImprovement uint64, cost float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paintedColor, g.paintedTarget, g.sprites, g.evals, g.lastImprovementEval, g.bestCost
}

// Evals returns the number of evaluations submitted so far, used by the
// dual-frame schedule to decide when a bootstrap phase has run long
// enough to advance (spec.md §4.9 "Phase schedule").
func (g *GlobalState) Evals() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evals
}

// PaintedRows returns a copy of the current best's painted colour rows,
// the shape the dual-frame coordinator freezes into its FrozenFrame for
// the opposite track to score against.
func (g *GlobalState) PaintedRows() []raster.PaintedRow {
	g.mu.Lock()
	defer g.mu.Unlock()
	rows := make([]raster.PaintedRow, len(g.paintedColor))
	for i, r := range g.paintedColor {
		rows[i] = raster.PaintedRow(r)
	}
	return rows
}

// ReseedAcceptance replaces the acceptance core in place, used whenever
// a track's scoring objective changes underneath it (a dual-mode phase
// or focus transition) without its tracked best candidate itself
// changing (spec.md §8 invariant 6: "immediately reseed acceptance
// history against a freshly measured dual baseline").
func (g *GlobalState) ReseedAcceptance(core *accept.Core, cost float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acceptance = core
	g.bestCost = cost
}

// Rebaseline replaces the tracked best wholesale along with a freshly
// built acceptance core, used when AFTER_DUAL_COPY seeds one track's
// program from the other's current best at the BOOTSTRAP_B transition
// (spec.md §4.9).
func (g *GlobalState) Rebaseline(pic *raster.Picture, cost float64, paintedColor [][raster.Width]uint8, paintedTarget [][raster.Width]raster.Register, sprites raster.SpriteMemory, core *accept.Core) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.best = pic
	g.bestCost = cost
	g.paintedColor = paintedColor
	g.paintedTarget = paintedTarget
	g.sprites = sprites
	g.acceptance = core
}

// AcceptanceStuck reports whether the acceptance core's plateau gap has
// crossed unstuck_after, the signal the mutation engine widens its
// batches and up-weights exploratory operators on.
func (g *GlobalState) AcceptanceStuck() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acceptance.Stuck()
}

// MutationStats returns a snapshot of per-operator attempt/success
// counts (spec.md §6 "Per-mutation accepted-improvement counts").
func (g *GlobalState) MutationStats() (attempts, successes [10]int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mutationAttempts, g.mutationSuccess
}
