package raster

import "github.com/zaynotley/rastaforge/internal/colordist"

// Width is the fixed display width in pixels (spec.md §3: "W is fixed
// at 160").
const Width = 160

// MaxHeight bounds the display height (spec.md §3: "H <= 240").
const MaxHeight = 240

// Palette is a fixed 128-entry RGB colour table. A value stored in a
// colour register is the palette index shifted left by one (the
// hardware's luma/chroma byte); PaletteIndex/RegisterValue convert
// between the two representations.
type Palette [128]colordist.RGB

// RegisterValue returns the byte a store instruction would need to
// write to select palette index idx (0..127).
func RegisterValue(idx uint8) uint8 { return idx << 1 }

// PaletteIndex extracts the palette index (0..127) from a register
// value previously produced by RegisterValue.
func PaletteIndex(regValue uint8) uint8 { return regValue >> 1 }

// TargetImage is the H x Width RGB image the optimiser is fitting.
type TargetImage struct {
	Height int
	Pixels []colordist.RGB // row-major, len == Height*Width
}

// NewTargetImage allocates a blank target image of the given height.
func NewTargetImage(height int) *TargetImage {
	return &TargetImage{Height: height, Pixels: make([]colordist.RGB, height*Width)}
}

// At returns the target pixel at (x,y).
func (t *TargetImage) At(x, y int) colordist.RGB { return t.Pixels[y*Width+x] }

// ErrorTable is the precomputed palette_error[c][y*W+x] distance table:
// for every palette colour c and every target pixel, the scalar distance
// under the active metric. Built once at optimiser construction and
// never mutated afterwards (spec.md §3).
type ErrorTable struct {
	Height int
	Metric colordist.Metric
	// errs[c] is a Height*Width row-major slice of distances to
	// palette colour c.
	errs [128][]float32
}

// BuildErrorTable computes the full palette_error table for a target
// image against a palette under the given metric.
func BuildErrorTable(target *TargetImage, pal Palette, metric colordist.Metric) *ErrorTable {
	dist := colordist.Func(metric)
	t := &ErrorTable{Height: target.Height, Metric: metric}
	n := target.Height * Width
	for c := 0; c < 128; c++ {
		row := make([]float32, n)
		pc := pal[c]
		for i, px := range target.Pixels {
			row[i] = float32(dist(px, pc))
		}
		t.errs[c] = row
	}
	return t
}

// At returns palette_error[c][y*W+x].
func (t *ErrorTable) At(c uint8, x, y int) float64 {
	return float64(t.errs[c][y*Width+x])
}

// OnOffMap is an H x NumRegisters enable map; false disables writes to
// that target on that line (spec.md §3: "stores silently promoted to
// NOPs"). A nil *OnOffMap means "everything enabled" everywhere.
type OnOffMap struct {
	Height int
	enable []bool // row-major Height*NumRegisters
}

// NewOnOffMap returns a map with everything enabled.
func NewOnOffMap(height int) *OnOffMap {
	m := &OnOffMap{Height: height, enable: make([]bool, height*NumRegisters)}
	for i := range m.enable {
		m.enable[i] = true
	}
	return m
}

// Enabled reports whether reg may be written on line y. A nil receiver
// means "always enabled".
func (m *OnOffMap) Enabled(y int, reg Register) bool {
	if m == nil {
		return true
	}
	if int(reg) >= NumRegisters {
		return true
	}
	return m.enable[y*NumRegisters+int(reg)]
}

// Set toggles whether reg may be written on line y.
func (m *OnOffMap) Set(y int, reg Register, on bool) {
	m.enable[y*NumRegisters+int(reg)] = on
}

// SpriteLineMasks is the 4x8 lit-slot bitmap for one scanline: for each
// of the four sprites, which of the eight quad-pixel slots have been
// painted. Populated by the emulator, never by the program (spec.md §3).
type SpriteLineMasks [4]uint8

// Set marks quad-slot bit (0..7) of sprite (0..3) as lit.
func (m *SpriteLineMasks) Set(sprite, bit int) { m[sprite] |= 1 << uint(bit) }

// IsSet reports whether quad-slot bit of sprite is lit.
func (m SpriteLineMasks) IsSet(sprite, bit int) bool { return m[sprite]&(1<<uint(bit)) != 0 }

// SpriteMemory is the H x 4 x 8 bit sprite memory for a whole picture.
type SpriteMemory []SpriteLineMasks

// NewSpriteMemory allocates zeroed sprite memory for height lines.
func NewSpriteMemory(height int) SpriteMemory { return make(SpriteMemory, height) }

// PaintedRow is one scanline's painted palette-index row, the unit the
// dual-frame coordinator's frozen-frame pointer array holds (spec.md
// §4.9): the opposite frame's already-decided colour per pixel, read by
// the emulator's register-selection step as the dual distance's "b".
type PaintedRow [Width]uint8
