// Package mutate implements the neighbour-generation engine (spec.md
// §4.6, component C6): a family of typed single-line edits, chosen by
// self-tuning per-operator weights, applied in batches to a worker's
// private candidate picture. Grounded on the teacher's cpu6502.go
// instruction-dispatch switch (one case per opcode) for the operator
// table shape, and on original_source/src/Mutation.cpp for which edits
// exist and their gating rules (re-expressed in Go idiom, not
// translated).
package mutate

import (
	"github.com/zaynotley/rastaforge/internal/colordist"
	"github.com/zaynotley/rastaforge/internal/raster"
)

// Operator names one kind of single-line edit.
type Operator int

const (
	CopyLineToNext Operator = iota
	PushBackToPrev
	SwapWithPrev
	AddInstruction
	RemoveInstruction
	SwapInstruction
	ChangeTarget
	ChangeValue
	ChangeValueToColor
	ComplementValueDual
	numOperators
)

func (op Operator) String() string {
	switch op {
	case CopyLineToNext:
		return "COPY_LINE_TO_NEXT"
	case PushBackToPrev:
		return "PUSH_BACK_TO_PREV"
	case SwapWithPrev:
		return "SWAP_WITH_PREV"
	case AddInstruction:
		return "ADD_INSTRUCTION"
	case RemoveInstruction:
		return "REMOVE_INSTRUCTION"
	case SwapInstruction:
		return "SWAP_INSTRUCTION"
	case ChangeTarget:
		return "CHANGE_TARGET"
	case ChangeValue:
		return "CHANGE_VALUE"
	case ChangeValueToColor:
		return "CHANGE_VALUE_TO_COLOR"
	case ComplementValueDual:
		return "COMPLEMENT_VALUE_DUAL"
	default:
		return "?"
	}
}

// exploratoryOperators are up-weighted while the walk is stuck on a
// plateau (spec.md §4.6 "double the weight of a short allow-list").
var exploratoryOperators = [...]Operator{AddInstruction, RemoveInstruction, SwapWithPrev}

// DualPixelCost is supplied by the dual-frame coordinator so
// COMPLEMENT_VALUE_DUAL can score a self-frame palette choice against
// the opposite frame's frozen pixel, without this package depending on
// internal/dual (spec.md §4.9's pair-YUV lookup stays behind this seam).
type DualPixelCost func(x, y int, selfIdx uint8) float64

// Engine applies neighbour edits to a candidate picture for one worker.
// Not safe for concurrent use; each worker owns one.
type Engine struct {
	rng *RNG

	regionStart, regionEnd int // this worker's assigned line slice [start,end)
	height                 int

	weights [numOperators]float64
	attempt [numOperators]int
	success [numOperators]int

	stuck        bool
	dualEnabled  bool
	dualCost     DualPixelCost
	cycles       cycleLookup
	target       *raster.TargetImage
	pal          raster.Palette
}

// cycleLookup maps an instruction's schedule position to a screen
// column, used by CHANGE_VALUE_TO_COLOR to find which target pixel an
// instruction's store is "responsible for". The mutation engine only
// needs the forward offset table, not the full emulator.
type cycleLookup interface {
	SafeOffset(cycle int) int
}

// New returns an Engine for the worker owning lines [regionStart,regionEnd)
// of a height-line picture, seeded with rngSeed.
func New(rngSeed uint64, regionStart, regionEnd, height int, cycles cycleLookup, target *raster.TargetImage, pal raster.Palette) *Engine {
	e := &Engine{
		rng:         NewRNG(rngSeed),
		regionStart: regionStart,
		regionEnd:   regionEnd,
		height:      height,
		cycles:      cycles,
		target:      target,
		pal:         pal,
	}
	for i := range e.weights {
		e.weights[i] = 1.0 / float64(numOperators)
	}
	return e
}

// EnableDual turns on COMPLEMENT_VALUE_DUAL, using cost to score a
// candidate self-frame palette index against the frozen opposite frame.
func (e *Engine) EnableDual(cost DualPixelCost) {
	e.dualEnabled = true
	e.dualCost = cost
}

// SetStuck records whether the walk has been on a plateau long enough
// to widen mutation batches and up-weight exploratory operators
// (spec.md §4.6 steps 3-4 and "self-tuning weights").
func (e *Engine) SetStuck(stuck bool) { e.stuck = stuck }

// Mutate applies one full neighbour-generation pass to pic in place,
// per spec.md §4.6 steps 1-5, and returns the set of lines whose
// CacheKey was nulled so the caller can re-intern them.
func (e *Engine) Mutate(pic *raster.Picture) (dirty []int) {
	dirtySet := make(map[int]struct{}, 8)
	mark := func(y int) { dirtySet[y] = struct{}{} }

	// 1. register perturbation
	if e.rng.Chance(1, 10) {
		e.perturbRegister(pic)
	}

	// 2. pick the target line
	y := e.pickLine()

	// 3. batch of single mutations
	ninsn := len(pic.Lines[y].Instructions)
	batch := minInt(3+ninsn/5, 8)
	if e.stuck {
		batch += 5 + e.rng.Intn(10)
	}
	for i := 0; i < batch; i++ {
		e.applyOne(pic, y, mark)
	}

	// 4. drifting cursor chain
	chainProb, chainLen := 1, 20
	if e.stuck {
		chainProb, chainLen = 1, 5
	}
	if e.rng.Chance(chainProb, chainLen) {
		steps := 10
		if e.stuck {
			steps = 30
		}
		cursor := y
		for i := 0; i < steps; i++ {
			cursor = e.driftCursor(cursor)
			e.applyOne(pic, cursor, mark)
		}
	}

	// 5. re-hash every touched line (nulling its CacheKey) so the caller
	// can re-intern it
	for dy := range dirtySet {
		pic.Lines[dy].Rehash()
		dirty = append(dirty, dy)
	}
	return dirty
}

func (e *Engine) perturbRegister(pic *raster.Picture) {
	reg := raster.Register(e.rng.Intn(raster.NumRegisters - 1))
	if reg == raster.COLBAK {
		return
	}
	pic.InitialRegisters[reg] = perturbByte(pic.InitialRegisters[reg], e.rng)
}

// pickLine chooses a line to mutate: 80% inside this worker's region,
// otherwise anywhere in the picture (spec.md §4.6 step 2).
func (e *Engine) pickLine() int {
	if e.rng.Chance(8, 10) && e.regionEnd > e.regionStart {
		return e.regionStart + e.rng.Intn(e.regionEnd-e.regionStart)
	}
	return e.rng.Intn(e.height)
}

func (e *Engine) driftCursor(y int) int {
	step := e.rng.Intn(3) - 1 // -1, 0, +1
	y += step
	if y < 0 {
		y = 0
	}
	if y >= e.height {
		y = e.height - 1
	}
	return y
}

// applyOne picks one weighted operator, applies it to line y if its
// gating allows, and records success/attempt counts for that operator
// (spec.md "self-tuning weights": w_i = 0.1 + 0.9*succ_i/att_i).
func (e *Engine) applyOne(pic *raster.Picture, y int, mark func(int)) {
	op := e.pickOperator()
	applied := e.apply(op, pic, y, mark)
	e.attempt[op]++
	if applied {
		e.success[op]++
		mark(y)
	}
	if e.attempt[op]%64 == 0 {
		e.retune(op)
	}
}

func (e *Engine) retune(op Operator) {
	w := 0.1 + 0.9*float64(e.success[op])/float64(e.attempt[op])
	if w < 0.1 {
		w = 0.1
	}
	e.weights[op] = w
}

func (e *Engine) pickOperator() Operator {
	var total float64
	var adjusted [numOperators]float64
	for i := Operator(0); i < numOperators; i++ {
		w := e.weights[i]
		if e.stuck && isExploratory(i) {
			w *= 2
		}
		adjusted[i] = w
		total += w
	}
	r := e.rng.Float64() * total
	for i := Operator(0); i < numOperators; i++ {
		r -= adjusted[i]
		if r <= 0 {
			return i
		}
	}
	return numOperators - 1
}

func isExploratory(op Operator) bool {
	for _, x := range exploratoryOperators {
		if x == op {
			return true
		}
	}
	return false
}

// apply dispatches a single operator against line y, reporting whether
// its gating condition allowed it to run.
func (e *Engine) apply(op Operator, pic *raster.Picture, y int, mark func(int)) bool {
	line := pic.Lines[y]
	switch op {
	case CopyLineToNext:
		if y >= e.height-1 {
			return false
		}
		pic.Lines[y] = pic.Lines[y+1].Clone()
		return true

	case PushBackToPrev:
		if y == 0 || len(line.Instructions) == 0 {
			return false
		}
		prev := pic.Lines[y-1]
		in := line.Instructions[e.rng.Intn(len(line.Instructions))]
		if prev.Cycles+in.Op.Cycles() > raster.FreeCycles {
			return false
		}
		prev.Instructions = append(prev.Instructions, in)
		mark(y - 1)
		return true

	case SwapWithPrev:
		if y == 0 {
			return false
		}
		pic.Lines[y-1], pic.Lines[y] = pic.Lines[y], pic.Lines[y-1]
		mark(y - 1)
		return true

	case AddInstruction:
		opc := raster.LDA
		if e.rng.Intn(2) == 0 {
			opc = [3]raster.Opcode{raster.LDA, raster.LDX, raster.LDY}[e.rng.Intn(3)]
		} else {
			opc = [3]raster.Opcode{raster.STA, raster.STX, raster.STY}[e.rng.Intn(3)]
		}
		if line.Cycles+opc.Cycles() > raster.FreeCycles {
			return false
		}
		in := raster.Instruction{Op: opc, Value: e.randomValue(y), Target: raster.Register(e.rng.Intn(raster.NumRegisters))}
		idx := e.rng.Intn(len(line.Instructions) + 1)
		line.Instructions = append(line.Instructions, raster.Instruction{})
		copy(line.Instructions[idx+1:], line.Instructions[idx:])
		line.Instructions[idx] = in
		return true

	case RemoveInstruction:
		if line.Cycles <= 4 || len(line.Instructions) == 0 {
			return false
		}
		idx := e.rng.Intn(len(line.Instructions))
		line.Instructions = append(line.Instructions[:idx], line.Instructions[idx+1:]...)
		return true

	case SwapInstruction:
		if len(line.Instructions) <= 2 {
			return false
		}
		i := e.rng.Intn(len(line.Instructions))
		j := e.rng.Intn(len(line.Instructions))
		if i == j {
			return false
		}
		line.Instructions[i], line.Instructions[j] = line.Instructions[j], line.Instructions[i]
		return true

	case ChangeTarget:
		if len(line.Instructions) == 0 {
			return false
		}
		idx := e.rng.Intn(len(line.Instructions))
		line.Instructions[idx].Target = raster.Register(e.rng.Intn(raster.NumRegisters))
		return true

	case ChangeValue:
		if len(line.Instructions) == 0 {
			return false
		}
		idx := e.rng.Intn(len(line.Instructions))
		if e.rng.Chance(1, 10) {
			line.Instructions[idx].Value = e.randomValue(y)
		} else {
			line.Instructions[idx].Value = perturbByte(line.Instructions[idx].Value, e.rng)
		}
		return true

	case ChangeValueToColor:
		if len(line.Instructions) == 0 {
			return false
		}
		idx := e.rng.Intn(len(line.Instructions))
		x, yy := e.instructionScreenPos(line, idx, y)
		idx8 := e.nearestColorIndex(x, yy)
		line.Instructions[idx].Value = raster.RegisterValue(idx8)
		return true

	case ComplementValueDual:
		if !e.dualEnabled || len(line.Instructions) == 0 {
			return false
		}
		idx := e.rng.Intn(len(line.Instructions))
		x, yy := e.instructionScreenPos(line, idx, y)
		best, bestCost := uint8(0), e.dualCost(x, yy, 0)
		for s := 1; s < 128; s++ {
			c := e.dualCost(x, yy, uint8(s))
			if c < bestCost {
				best, bestCost = uint8(s), c
			}
		}
		line.Instructions[idx].Value = raster.RegisterValue(best)
		return true
	}
	return false
}

// randomValue picks a fresh store value: uniform over even bytes (the
// odd bit of a colour register is unused), the line's nearest-colour
// pixel, or a uniformly random palette entry -- matching spec.md's
// three-way ADD_INSTRUCTION value source.
func (e *Engine) randomValue(y int) uint8 {
	switch e.rng.Intn(3) {
	case 0:
		return uint8(e.rng.Intn(128)) << 1
	case 1:
		x := e.rng.Intn(raster.Width)
		return raster.RegisterValue(e.nearestColorIndex(x, y))
	default:
		return uint8(e.rng.Intn(128)) << 1
	}
}

// instructionScreenPos walks idx's position in the line's schedule into
// a screen column via the cycle table, then randomly drifts the row by
// spec.md's "drift into following lines" rule.
func (e *Engine) instructionScreenPos(line *raster.RasterLine, idx, y int) (x, outY int) {
	cyc := 0
	for i := 0; i < idx; i++ {
		cyc += line.Instructions[i].Op.Cycles()
	}
	x = e.cycles.SafeOffset(cyc)
	if x < 0 {
		x = 0
	}
	if x >= raster.Width {
		x = raster.Width - 1
	}
	outY = y
	if e.rng.Chance(1, 4) && outY < e.height-1 {
		outY++
	}
	return x, outY
}

func (e *Engine) nearestColorIndex(x, y int) uint8 {
	px := e.target.At(x, y)
	dist := colordist.Func(colordist.Euclidean)
	best, bestDist := uint8(0), dist(px, e.pal[0])
	for c := 1; c < 128; c++ {
		d := dist(px, e.pal[c])
		if d < bestDist {
			best, bestDist = uint8(c), d
		}
	}
	return best
}

func perturbByte(v uint8, r *RNG) uint8 {
	delta := 1
	if r.Intn(2) == 0 {
		delta = 16
	}
	if r.Intn(2) == 0 {
		delta = -delta
	}
	nv := int(v) + delta
	if nv < 0 {
		nv = 0
	}
	if nv > 255 {
		nv = 255
	}
	return uint8(nv)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
