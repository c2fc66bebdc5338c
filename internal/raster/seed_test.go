package raster

import (
	"testing"

	"github.com/zaynotley/rastaforge/internal/colordist"
)

func TestNewSeedPictureRespectsCycleBudget(t *testing.T) {
	target := NewTargetImage(4)
	var pal Palette
	for i := range pal {
		pal[i] = colordist.RGB{R: uint8(i), G: uint8(i), B: uint8(i)}
	}

	pic := NewSeedPicture(target, pal, colordist.Euclidean)
	for y, l := range pic.Lines {
		if l.Cycles > FreeCycles {
			t.Fatalf("line %d: seed picture exceeds cycle budget: %d > %d", y, l.Cycles, FreeCycles)
		}
		if l.CacheKey.Valid() {
			t.Fatalf("line %d: a freshly seeded line must not already carry a cache identity", y)
		}
	}
}

func TestNewSeedPictureIsDeterministic(t *testing.T) {
	target := NewTargetImage(4)
	var pal Palette
	for i := range pal {
		pal[i] = colordist.RGB{R: uint8(i * 2), G: uint8(i), B: uint8(255 - i)}
	}

	a := NewSeedPicture(target, pal, colordist.Euclidean)
	b := NewSeedPicture(target, pal, colordist.Euclidean)
	for y := range a.Lines {
		if a.Lines[y].Hash != b.Lines[y].Hash {
			t.Fatalf("line %d: seeding the same target/palette twice produced different programs", y)
		}
	}
}

func TestNearestPaletteIndexPicksExactMatch(t *testing.T) {
	var pal Palette
	for i := range pal {
		pal[i] = colordist.RGB{R: uint8(i), G: 0, B: 0}
	}
	dist := colordist.Func(colordist.Euclidean)
	idx := nearestPaletteIndex(colordist.RGB{R: 42, G: 0, B: 0}, pal, dist)
	if idx != 42 {
		t.Fatalf("nearestPaletteIndex = %d, want 42", idx)
	}
}
