// Package emulator implements the deterministic, cycle-scheduled
// execution of one scanline (spec.md §4.4, component C4): instruction
// retirement against a precomputed cycle-offset table, sprite
// shift-register tracking with horizontal-position latency hazards, and
// per-pixel colour-register selection with sprite-over-playfield
// priority. Grounded on the teacher's video_antic.go GTIA/ANTIC register
// model (COLPF/COLBK/COLPM/HPOSP) and its scanline-oriented rendering
// loop, and on original_source/src/core/Evaluator.cpp's pixel loop for
// the sprite shift/hazard/restart algorithm (re-expressed here, not
// translated line-for-line).
package emulator

import (
	"github.com/zaynotley/rastaforge/internal/linecache"
	"github.com/zaynotley/rastaforge/internal/raster"
	"github.com/zaynotley/rastaforge/internal/rasterr"
)

const (
	spriteScreenColorCycleStart = 48
	spriteSize                  = 32 // pixels one sprite shift register spans (8 quad-slots x 4)
	maxRestartsPerLine          = 32 // one per sprite-memory bit (4 sprites x 8 slots)
	hazardWindow                = 6  // colour clocks
	hazardPenalty               = 100000.0

	// spritesVisibleLeft/Right bound the HPOS values an on-screen sprite
	// can occupy; a reposition landing outside this range never needs
	// the hazard penalty since nothing of it would be visible anyway.
	spritesVisibleLeft  = spriteScreenColorCycleStart - spriteSize
	spritesVisibleRight = spriteScreenColorCycleStart + raster.Width - 1
)

// Scorer supplies the per-pixel cost of painting palette index paletteIdx
// at (x,y). The single-frame emulator uses a raster.ErrorTable-backed
// Scorer; the dual-frame coordinator (internal/dual) supplies one that
// minimises against the blended YUV objective instead, per spec.md §4.9.
type Scorer interface {
	Cost(x, y int, paletteIdx uint8) float64
}

// SingleFrameScorer adapts a raster.ErrorTable to the Scorer interface.
type SingleFrameScorer struct {
	Table *raster.ErrorTable
}

func (s SingleFrameScorer) Cost(x, y int, paletteIdx uint8) float64 {
	return s.Table.At(paletteIdx, x, y)
}

// Emulator runs raster lines against a fixed cycle-offset table. Stateless
// between calls: all per-line state lives on the stack of RunLine.
type Emulator struct {
	Cycles CycleTable
}

// New returns an Emulator using the given cycle table.
func New(cycles CycleTable) *Emulator { return &Emulator{Cycles: cycles} }

type spriteShift struct {
	active    bool
	startedAt int
}

// RunLine executes line starting from entry register state, restarting
// (per spec.md §4.4 step 3 / §8 invariant 7) up to 32 times as sprite
// decisions are committed into the returned result's sprite masks.
// initialMasks seeds any sprite-memory bits already decided for this
// line by a prior caller (always zero on the first evaluation of a
// freshly mutated line).
func (e *Emulator) RunLine(line *raster.RasterLine, entry raster.CPUState, y int, scorer Scorer, initialMasks raster.SpriteLineMasks) (linecache.Result, error) {
	if line.Cycles > raster.FreeCycles {
		return linecache.Result{}, rasterr.Invariant("line %d: %d cycles exceeds budget %d", y, line.Cycles, raster.FreeCycles)
	}
	masks := initialMasks
	for attempt := 0; attempt <= maxRestartsPerLine; attempt++ {
		res, sprite, bit, needsRestart := e.attempt(line, entry, y, scorer, masks)
		if !needsRestart {
			res.Sprites = masks
			return res, nil
		}
		masks.Set(sprite, bit)
	}
	return linecache.Result{}, rasterr.Invariant("line %d: exceeded %d sprite-decision restarts", y, maxRestartsPerLine)
}

func (e *Emulator) attempt(line *raster.RasterLine, entry raster.CPUState, y int, scorer Scorer, masks raster.SpriteLineMasks) (res linecache.Result, restartSprite, restartBit int, needsRestart bool) {
	a, x, yy := entry.A, entry.X, entry.Y
	mem := entry.Mem
	cycle := 0
	insnIdx := 0
	var lineError float64
	var shifts [4]spriteShift
	for i := range shifts {
		shifts[i].startedAt = -1000
	}

	for screenX := -spriteScreenColorCycleStart; screenX < 176; screenX++ {
		// 1. sprite shift starts: any sprite whose HPOS equals this column
		// begins a fresh 32-pixel shift from here.
		for s := 0; s < 4; s++ {
			hpos := int(mem[raster.HPOSP0+raster.Register(s)])
			if hpos == screenX {
				shifts[s].active = true
				shifts[s].startedAt = screenX
			}
		}

		// 2. instruction retirement: retire everything scheduled to
		// complete at or before this column.
		for insnIdx < len(line.Instructions) && e.Cycles.SafeOffset(cycle) <= screenX {
			in := line.Instructions[insnIdx]
			switch in.Op {
			case raster.LDA:
				a = in.Value
			case raster.LDX:
				x = in.Value
			case raster.LDY:
				yy = in.Value
			case raster.NOP:
				// no effect
			case raster.STA, raster.STX, raster.STY:
				if in.Target != raster.HITCLR {
					var v uint8
					switch in.Op {
					case raster.STA:
						v = a
					case raster.STX:
						v = x
					case raster.STY:
						v = yy
					}
					if in.Target.IsSpriteHPos() {
						s := in.Target.SpriteIndex()
						if masks[s] != 0 {
							writeX := e.Cycles.SafeOffset(cycle)
							oldX := int(mem[in.Target])
							newX := int(v)
							if oldX != newX && newX >= spritesVisibleLeft && newX <= spritesVisibleRight {
								if hazardAhead(oldX, writeX) {
									lineError += hazardPenalty
								}
								if hazardAhead(newX, writeX) {
									lineError += hazardPenalty
								}
							}
						}
					}
					mem[in.Target] = v
				}
			}
			cycle += in.Op.Cycles()
			insnIdx++
		}

		// 3 & 4. pixel selection + error accumulation (on-screen only).
		if screenX >= 0 && screenX < raster.Width {
			reg, idx, sprite, bit, mustDecide := selectRegister(screenX, y, mem, masks, shifts, scorer)
			lineError += scorer.Cost(screenX, y, idx)
			res.PaintedColor[screenX] = idx
			res.PaintedTarget[screenX] = reg
			if mustDecide {
				return res, sprite, bit, true
			}
		}
	}

	res.TotalError = lineError
	res.Exit = raster.CPUState{A: a, X: x, Y: yy, Mem: mem}
	return res, 0, 0, false
}

// hazardAhead reports whether spritePos sits strictly within the hazard
// window ahead of writeX: the HPOS write lands too late for the
// 5-to-6 colour-clock sprite-position latency to settle before that
// column is shifted out, so the old or new position still shows a
// visible seam on real hardware (original_source's "too late to
// prevent/change display" check). A spritePos at or behind writeX, or
// more than hazardWindow columns ahead, is unaffected.
func hazardAhead(spritePos, writeX int) bool {
	d := spritePos - writeX
	return d > 0 && d <= hazardWindow
}

// selectRegister picks the register that best explains target pixel
// (x,y): the four playfield registers are always candidates; the
// highest-priority sprite (0 beats 1 beats 2 beats 3) currently shifting
// over this pixel is also a candidate unless its quad-slot bit is
// already decided lit, in which case hardware priority forces it
// regardless of distance. mustDecide is true only the first time a
// sprite wins an undecided bit, signalling the caller to commit the bit
// and restart the line.
func selectRegister(x, y int, mem raster.RegisterState, masks raster.SpriteLineMasks, shifts [4]spriteShift, scorer Scorer) (reg raster.Register, idx uint8, sprite, bit int, mustDecide bool) {
	type candidate struct {
		reg  raster.Register
		idx  uint8
		cost float64
	}
	idxOf := func(r raster.Register) uint8 { return raster.PaletteIndex(mem[r]) }
	best := candidate{reg: raster.COLBAK, idx: idxOf(raster.COLBAK), cost: scorer.Cost(x, y, idxOf(raster.COLBAK))}
	for _, r := range [3]raster.Register{raster.COLOR0, raster.COLOR1, raster.COLOR2} {
		c := candidate{reg: r, idx: idxOf(r), cost: scorer.Cost(x, y, idxOf(r))}
		if c.cost < best.cost {
			best = c
		}
	}

	topSprite, topBit := -1, -1
	for s := 0; s < 4; s++ {
		if !shifts[s].active {
			continue
		}
		rel := x - shifts[s].startedAt
		if rel < 0 || rel >= spriteSize {
			continue
		}
		b := rel >> 2
		if b < 0 || b >= 8 {
			continue
		}
		topSprite, topBit = s, b
		break // priority 0..3: first active sprite found wins
	}

	if topSprite < 0 {
		return best.reg, best.idx, 0, 0, false
	}

	spriteReg := raster.COLPM0 + raster.Register(topSprite)
	spriteIdx := idxOf(spriteReg)

	if masks.IsSet(topSprite, topBit) {
		return spriteReg, spriteIdx, 0, 0, false
	}

	if spriteCost := scorer.Cost(x, y, spriteIdx); spriteCost <= best.cost {
		return spriteReg, spriteIdx, topSprite, topBit, true
	}
	return best.reg, best.idx, 0, 0, false
}
