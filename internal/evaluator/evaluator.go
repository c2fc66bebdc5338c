// Package evaluator implements the candidate evaluator (spec.md §4.5,
// component C5): iterating the line emulator over a whole picture,
// probing/filling the per-line caches, and accumulating total error.
// Grounded on the teacher's program_executor.go iteration-over-lines
// style (a CPU's Execute loop stepping through instructions and
// checking a per-step cache), adapted from instruction-level to
// line-level granularity.
package evaluator

import (
	"github.com/zaynotley/rastaforge/internal/arena"
	"github.com/zaynotley/rastaforge/internal/emulator"
	"github.com/zaynotley/rastaforge/internal/linecache"
	"github.com/zaynotley/rastaforge/internal/raster"
	"github.com/zaynotley/rastaforge/internal/seqcache"
)

// Result is the outcome of evaluating a whole candidate picture.
type Result struct {
	TotalError    float64
	PaintedColor  [][raster.Width]uint8
	PaintedTarget [][raster.Width]raster.Register
	Sprites       raster.SpriteMemory
}

// Evaluator owns one worker's private caches: a sequence cache and one
// line-result cache per scanline, both backed by one shared arena each
// (spec.md §4.8: "the arena is per-worker").
type Evaluator struct {
	emu    *emulator.Emulator
	scorer emulator.Scorer
	seq    *seqcache.Cache
	lines  []*linecache.Cache
	height int

	seqArena  arena.Resettable
	lineArena arena.Resettable
}

// New constructs an Evaluator for a height-line picture, using cycles
// for timing and scorer for per-pixel cost. cacheCapacityHint sizes the
// initial arena allocation (spec.md config option cache_size governs the
// budget the caller checks ArenaUsage against, not this hint).
func New(cycles emulator.CycleTable, scorer emulator.Scorer, height int, cacheCapacityHint int) *Evaluator {
	seqArena := seqcache.NewArena(cacheCapacityHint)
	lineArena := linecache.NewArena(cacheCapacityHint)
	lines := make([]*linecache.Cache, height)
	for i := range lines {
		lines[i] = linecache.New(lineArena)
	}
	return &Evaluator{
		emu:       emulator.New(cycles),
		scorer:    scorer,
		seq:       seqcache.New(seqArena),
		lines:     lines,
		height:    height,
		seqArena:  seqArena,
		lineArena: lineArena,
	}
}

// SetScorer swaps the per-pixel cost function, used by the dual-frame
// coordinator when it rebuilds a worker's scorer after a phase flip.
func (ev *Evaluator) SetScorer(scorer emulator.Scorer) { ev.scorer = scorer }

// Evaluate runs the whole picture in display order, threading the exit
// register state of each line into the entry state of the next.
// Mutation only nulls the CacheKey of the lines it touched, so every
// other line's Intern call returns its existing identity and typically
// hits its per-line cache (spec.md §4.5).
func (ev *Evaluator) Evaluate(pic *raster.Picture, touch uint64) (Result, error) {
	result := Result{
		PaintedColor:  make([][raster.Width]uint8, len(pic.Lines)),
		PaintedTarget: make([][raster.Width]raster.Register, len(pic.Lines)),
		Sprites:       raster.NewSpriteMemory(len(pic.Lines)),
	}

	entry := raster.CPUState{Mem: pic.InitialRegisters}
	var total float64
	for y, line := range pic.Lines {
		seqID := ev.seq.Intern(line)
		key := linecache.Key{Entry: entry, Seq: seqID}
		cache := ev.lines[y]

		var res linecache.Result
		if cached, ok := cache.Find(key, touch); ok {
			res = cached
		} else {
			var err error
			res, err = ev.emu.RunLine(line, entry, y, ev.scorer, raster.SpriteLineMasks{})
			if err != nil {
				return Result{}, err
			}
			cache.Insert(key, res, touch)
		}

		total += res.TotalError
		result.PaintedColor[y] = res.PaintedColor
		result.PaintedTarget[y] = res.PaintedTarget
		result.Sprites[y] = res.Sprites
		entry = res.Exit
	}
	result.TotalError = total
	return result, nil
}

// InvalidateLine clears only line y's per-line cache, wiping a single
// line's memo without a full mass clear.
func (ev *Evaluator) InvalidateLine(y int) { ev.lines[y].Clear() }

// ArenaUsage reports the combined byte watermark of both backing arenas,
// used by the worker's cache-pressure policy.
func (ev *Evaluator) ArenaUsage() int64 { return ev.seqArena.Size() + ev.lineArena.Size() }

// LineCacheAges returns, for every line, the evaluation counter at which
// its cache was last touched -- the recency signal the worker's LRU
// eviction policy ranks lines by (spec.md §4.3).
func (ev *Evaluator) LineCacheAges() []uint64 {
	ages := make([]uint64, len(ev.lines))
	for i, c := range ev.lines {
		ages[i] = c.LastTouch()
	}
	return ages
}

// ClearLines clears the named per-line caches only (partial LRU eviction).
func (ev *Evaluator) ClearLines(ys []int) {
	for _, y := range ys {
		ev.lines[y].Clear()
	}
}

// MassClear clears every per-line cache, the sequence cache, and both
// backing arenas, then re-interns best's sequences so the next
// evaluation doesn't pay for cold identity misses on the line the
// worker is about to resume from (spec.md §4.3 "full mass clear" branch
// and §4.8 step 6).
func (ev *Evaluator) MassClear(best *raster.Picture) {
	for _, c := range ev.lines {
		c.Clear()
	}
	ev.seq.Reset()
	ev.seqArena.Clear()
	ev.lineArena.Clear()
	if best != nil {
		for _, line := range best.Lines {
			line.CacheKey = 0
			ev.seq.Intern(line)
		}
	}
}

// ApplyOnOffMap rewrites pic in place so that any store instruction
// targeting a register disabled on its line is silently promoted to the
// no-write sentinel, and zeroes any initial register disabled on line 0
// (spec.md §4.4 "On/off rewrite"). Called once, before the first
// evaluation of a freshly loaded or freshly seeded picture.
func ApplyOnOffMap(pic *raster.Picture, onoff *raster.OnOffMap) {
	if onoff == nil {
		return
	}
	for reg := raster.Register(0); int(reg) < raster.NumRegisters-1; reg++ {
		if !onoff.Enabled(0, reg) {
			pic.InitialRegisters[reg] = 0
		}
	}
	for y, line := range pic.Lines {
		changed := false
		for i, in := range line.Instructions {
			if !in.Op.IsStore() || in.Target == raster.HITCLR {
				continue
			}
			if !onoff.Enabled(y, in.Target) {
				line.Instructions[i].Target = raster.HITCLR
				changed = true
			}
		}
		if changed {
			line.Rehash()
		}
	}
}
