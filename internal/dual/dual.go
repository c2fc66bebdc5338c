// Package dual implements the dual-frame coordinator (spec.md §4.9,
// component C9): alternating optimisation of two raster programs A and
// B whose perceptually blended YUV output is scored against the
// target, with a temporal-flicker penalty discouraging a pixel pair
// that would visibly strobe across frames. Grounded on the teacher's
// video_antic.go double-buffering of a front/back playfield buffer
// (store-release/acquire-load around a buffer-index swap), adapted
// from a display frame flip to a frozen-frame optimisation flip.
package dual

import (
	"sync/atomic"

	"github.com/zaynotley/rastaforge/internal/colordist"
	"github.com/zaynotley/rastaforge/internal/raster"
)

// Phase names where the coordinator is in its three-stage schedule
// (spec.md §4.9 "Phase schedule").
type Phase int

const (
	BootstrapA Phase = iota
	BootstrapB
	Alternating
)

// PairTables precomputes the 128x128 blended-sum and absolute-diff
// tables for one YUV component, built once from the fixed palette
// (spec.md §4.9 "Pair tables").
type PairTables struct {
	sum  [128][128]float64
	diff [128][128]float64
}

func buildPairTables(comp [128]float64) *PairTables {
	t := &PairTables{}
	for a := 0; a < 128; a++ {
		for b := 0; b < 128; b++ {
			t.sum[a][b] = 0.5 * (comp[a] + comp[b])
			d := comp[a] - comp[b]
			if d < 0 {
				d = -d
			}
			t.diff[a][b] = d
		}
	}
	return t
}

// Tables bundles the Y/U/V pair tables and the target image's own Y/U/V
// planes, everything the dual distance formula needs besides the two
// live palette indices.
type Tables struct {
	Y, U, V *PairTables

	targetY, targetU, targetV []float64

	lambdaLuma, lambdaChroma float64
}

// BuildTables precomputes every table in spec.md §4.9 from the fixed
// palette and target image. lumaTol/chromaTol are the operator-supplied
// flicker tolerances in [0,1]; weight = (1-tol)*baseline, with baseline
// fixed at 1.0 so a tolerance of 1 disables the flicker term entirely.
func BuildTables(pal raster.Palette, target *raster.TargetImage, lumaTol, chromaTol float64) *Tables {
	var palY, palU, palV [128]float64
	for i, c := range pal {
		y, u, v := colordist.YUV(c)
		palY[i], palU[i], palV[i] = y, u, v
	}

	n := target.Height * raster.Width
	ty := make([]float64, n)
	tu := make([]float64, n)
	tv := make([]float64, n)
	for i, px := range target.Pixels {
		y, u, v := colordist.YUV(px)
		ty[i], tu[i], tv[i] = y, u, v
	}

	return &Tables{
		Y: buildPairTables(palY), U: buildPairTables(palU), V: buildPairTables(palV),
		targetY: ty, targetU: tu, targetV: tv,
		lambdaLuma:   1 - lumaTol,
		lambdaChroma: 1 - chromaTol,
	}
}

// Distance computes the dual blended distance at pixel (x,y) between
// self-frame index a and the opposite frozen frame's index b
// (spec.md §4.9's "Dual distance" formula).
func (t *Tables) Distance(x, y int, a, b uint8) float64 {
	i := y*raster.Width + x
	dy := t.Y.sum[a][b] - t.targetY[i]
	du := t.U.sum[a][b] - t.targetU[i]
	dv := t.V.sum[a][b] - t.targetV[i]
	diffY := t.Y.diff[a][b]
	diffU := t.U.diff[a][b]
	diffV := t.V.diff[a][b]
	return dy*dy + du*du + dv*dv +
		t.lambdaLuma*diffY*diffY +
		t.lambdaChroma*(diffU*diffU+diffV*diffV)
}

// FrozenFrame is the lock-free double-buffered view of the opposite
// frame's painted rows (spec.md §4.9 "lock-free pointer array"): two
// row-pointer arrays, an atomic index selecting which is active.
// Writers populate the inactive slot then release-store the index;
// readers acquire-load the index before indexing.
type FrozenFrame struct {
	buffers [2][]raster.PaintedRow
	active  atomic.Int32
}

// NewFrozenFrame returns a FrozenFrame with both buffers set to rows.
func NewFrozenFrame(rows []raster.PaintedRow) *FrozenFrame {
	f := &FrozenFrame{}
	cp := append([]raster.PaintedRow(nil), rows...)
	f.buffers[0] = cp
	f.buffers[1] = append([]raster.PaintedRow(nil), rows...)
	return f
}

// Publish writes rows into the currently inactive buffer and flips the
// active index, per spec.md §7's "transient cache inconsistency" note:
// a reader racing this call sees either the old or the new buffer in
// full, never a torn mix.
func (f *FrozenFrame) Publish(rows []raster.PaintedRow) {
	next := 1 - f.active.Load()
	f.buffers[next] = append([]raster.PaintedRow(nil), rows...)
	f.active.Store(next)
}

// Rows returns the currently active row set. If the frame was never
// published to, it returns an empty, non-nil slice rather than
// propagating an error, matching the "transient cache inconsistency"
// fallback in spec.md §7.
func (f *FrozenFrame) Rows() []raster.PaintedRow {
	idx := f.active.Load()
	rows := f.buffers[idx]
	if rows == nil {
		return []raster.PaintedRow{}
	}
	return rows
}

// Coordinator tracks the phase schedule and the two generation counters
// bumped whenever a frame's best improves or the phase flips, both of
// which every worker must observe to invalidate its dual evaluation
// caches (spec.md §4.9 "ALTERNATING").
type Coordinator struct {
	phase   atomic.Int32
	focusB  atomic.Bool
	genA    atomic.Uint64
	genB    atomic.Uint64
	step    atomic.Uint64
	Tables  *Tables
	Frozen  *FrozenFrame
	AfterCopy bool
}

// NewCoordinator starts a Coordinator in BOOTSTRAP_A.
func NewCoordinator(tables *Tables, height int, afterCopy bool) *Coordinator {
	c := &Coordinator{Tables: tables, AfterCopy: afterCopy}
	c.phase.Store(int32(BootstrapA))
	c.Frozen = NewFrozenFrame(make([]raster.PaintedRow, height))
	return c
}

// Phase returns the current schedule phase.
func (c *Coordinator) Phase() Phase { return Phase(c.phase.Load()) }

// FocusB reports which frame workers should currently be mutating
// during ALTERNATING (false = A, true = B).
func (c *Coordinator) FocusB() bool { return c.focusB.Load() }

// TryEnterBootstrapB attempts the BOOTSTRAP_A -> BOOTSTRAP_B transition,
// succeeding for exactly one caller among however many workers race to
// observe the FIRST_DUAL_STEPS threshold at once.
func (c *Coordinator) TryEnterBootstrapB() bool {
	return c.phase.CompareAndSwap(int32(BootstrapA), int32(BootstrapB))
}

// TryEnterAlternating attempts the BOOTSTRAP_B -> ALTERNATING transition,
// succeeding for exactly one caller. Per spec.md §8 invariant 6, the
// winning caller must immediately reseed acceptance history against a
// freshly measured dual baseline before any further submissions.
func (c *Coordinator) TryEnterAlternating() bool {
	if c.phase.CompareAndSwap(int32(BootstrapB), int32(Alternating)) {
		c.step.Store(0)
		return true
	}
	return false
}

// Step increments the ALTERNATING step counter and flips focus when it
// crosses alteringSteps, returning true exactly once per flip (only the
// worker observing the threshold crossing performs the flip).
func (c *Coordinator) Step(alteringSteps uint64) (flipped bool) {
	n := c.step.Add(1)
	if alteringSteps == 0 {
		return false
	}
	if n%alteringSteps == 0 {
		if c.focusB.Load() {
			c.focusB.Store(false)
			c.genA.Add(1)
		} else {
			c.focusB.Store(true)
			c.genB.Add(1)
		}
		return true
	}
	return false
}

// Generation returns (gen_A, gen_B), used by a worker to detect whether
// its cached dual evaluation state is stale.
func (c *Coordinator) Generation() (genA, genB uint64) { return c.genA.Load(), c.genB.Load() }

// DualFrameScorer adapts Tables to emulator.Scorer, scoring a candidate
// pixel against the opposite frame's current frozen value instead of
// against the target image directly (spec.md §4.9's blended objective).
// The zero value is unusable; build one with Tables and Opposite set.
type DualFrameScorer struct {
	Tables   *Tables
	Opposite *FrozenFrame
}

// Cost implements emulator.Scorer.
func (s DualFrameScorer) Cost(x, y int, paletteIdx uint8) float64 {
	rows := s.Opposite.Rows()
	var opp uint8
	if y < len(rows) {
		opp = rows[y][x]
	}
	return s.Tables.Distance(x, y, paletteIdx, opp)
}
