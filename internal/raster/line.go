package raster

import "github.com/zaynotley/rastaforge/internal/arena"

// FreeCycles is the per-line CPU-cycle budget (spec.md §3 invariant).
const FreeCycles = 53

// RasterLine is an ordered sequence of instructions executed during one
// scanline, plus the bookkeeping the evaluator and caches need: a
// precomputed cycle total, a stable structural hash, and the interned
// sequence identity (null whenever the line was mutated since the last
// evaluation).
type RasterLine struct {
	Instructions []Instruction
	Cycles       int
	Hash         uint32
	CacheKey     arena.Handle // zero means "not yet interned"
}

// NewRasterLine returns an empty line (zero cycles, zero instructions).
func NewRasterLine() *RasterLine {
	return &RasterLine{Instructions: make([]Instruction, 0, 16)}
}

// Rehash recomputes Cycles and Hash from Instructions and nulls CacheKey,
// matching spec.md §4.6 step 5 ("re-intern every line whose cache_key
// became null"). Callers must invoke this after any structural edit.
func (l *RasterLine) Rehash() {
	cycles := 0
	var h uint32
	for _, in := range l.Instructions {
		cycles += in.Op.Cycles()
		h += in.hash()
		h = (h >> 27) | (h << 5)
	}
	l.Cycles = cycles
	l.Hash = h
	l.CacheKey = 0
}

// Clone deep-copies the line (instructions slice), used by the mutation
// engine when working on a private candidate copy of the shared best.
func (l *RasterLine) Clone() *RasterLine {
	cp := &RasterLine{
		Instructions: append([]Instruction(nil), l.Instructions...),
		Cycles:       l.Cycles,
		Hash:         l.Hash,
		CacheKey:     l.CacheKey,
	}
	return cp
}

// Picture is the 13-byte initial register snapshot plus H raster lines
// (spec.md §3 "raster picture").
type Picture struct {
	InitialRegisters RegisterState
	Lines            []*RasterLine
}

// NewPicture returns a picture with h empty lines and a zeroed register
// snapshot.
func NewPicture(h int) *Picture {
	p := &Picture{Lines: make([]*RasterLine, h)}
	for y := range p.Lines {
		p.Lines[y] = NewRasterLine()
		p.Lines[y].Rehash()
	}
	return p
}

// Clone deep-copies the whole picture, used every time a worker snapshots
// the shared global best into a private candidate (spec.md §4.8 step 2).
func (p *Picture) Clone() *Picture {
	cp := &Picture{
		InitialRegisters: p.InitialRegisters,
		Lines:            make([]*RasterLine, len(p.Lines)),
	}
	for y, l := range p.Lines {
		cp.Lines[y] = l.Clone()
	}
	return cp
}
