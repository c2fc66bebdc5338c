package raster

import "github.com/zaynotley/rastaforge/internal/colordist"

// NewSeedPicture builds the initial picture that rastaforge.New seeds
// each track with before any worker has run: for each line, four
// evenly spaced columns are sampled, each mapped to its nearest
// palette colour, and emitted as a load/store pair (LDA/STA, LDX/STX,
// LDY/STY, LDA/STA) into COLOR0, COLOR1, COLOR2 and COLBAK in turn,
// stopping early if the next pair would exceed FreeCycles. Grounded on
// original_source/src/raster/RasterProgramGenerator.cpp's
// CreateRandomRasterPicture, simplified from "random sampled column"
// to "evenly spaced column, nearest colour" so the seed is
// deterministic given a fixed target and palette (no RNG dependency at
// construction time).
func NewSeedPicture(target *TargetImage, pal Palette, metric colordist.Metric) *Picture {
	pic := NewPicture(target.Height)
	dist := colordist.Func(metric)
	regs := [4]Register{COLOR0, COLOR1, COLOR2, COLBAK}
	opPairs := [4][2]Opcode{{LDA, STA}, {LDX, STX}, {LDY, STY}, {LDA, STA}}

	for y := 0; y < target.Height; y++ {
		line := pic.Lines[y]
		for slot := 0; slot < 4; slot++ {
			x := (slot*2 + 1) * Width / 8
			idx := nearestPaletteIndex(target.At(x, y), pal, dist)
			value := RegisterValue(idx)
			loadOp, storeOp := opPairs[slot][0], opPairs[slot][1]
			if line.Cycles+loadOp.Cycles()+storeOp.Cycles() > FreeCycles {
				break
			}
			line.Instructions = append(line.Instructions,
				Instruction{Op: loadOp, Value: value},
				Instruction{Op: storeOp, Value: value, Target: regs[slot]},
			)
		}
		line.Rehash()
	}
	return pic
}

func nearestPaletteIndex(px colordist.RGB, pal Palette, dist func(target, candidate colordist.RGB) float64) uint8 {
	best, bestDist := uint8(0), dist(px, pal[0])
	for c := 1; c < 128; c++ {
		d := dist(px, pal[c])
		if d < bestDist {
			best, bestDist = uint8(c), d
		}
	}
	return best
}
