package mutate

import (
	"testing"

	"github.com/zaynotley/rastaforge/internal/emulator"
	"github.com/zaynotley/rastaforge/internal/raster"
)

func newTestEngine(seed uint64, height int) *Engine {
	target := raster.NewTargetImage(height)
	var pal raster.Palette
	table := emulator.DefaultCycleTable()
	return New(seed, 0, height, height, &table, target, pal)
}

func TestRNGIntnIsWithinBounds(t *testing.T) {
	r := NewRNG(1)
	for i := 0; i < 1000; i++ {
		if v := r.Intn(7); v < 0 || v >= 7 {
			t.Fatalf("Intn(7) = %d, out of range", v)
		}
	}
}

func TestRNGIsDeterministicForAFixedSeed(t *testing.T) {
	a := NewRNG(42)
	b := NewRNG(42)
	for i := 0; i < 50; i++ {
		if a.Intn(1000) != b.Intn(1000) {
			t.Fatalf("two RNGs seeded identically diverged at draw %d", i)
		}
	}
}

func TestRNGZeroSeedIsReplaced(t *testing.T) {
	r := NewRNG(0)
	if r.state == 0 {
		t.Fatalf("zero seed must be replaced with a nonzero fixed constant")
	}
}

func TestMutateStaysWithinCycleBudgetAndDoesNotPanic(t *testing.T) {
	pic := raster.NewPicture(8)
	e := newTestEngine(7, 8)

	for i := 0; i < 200; i++ {
		e.Mutate(pic)
	}

	for y, line := range pic.Lines {
		if line.Cycles > raster.FreeCycles {
			t.Fatalf("line %d exceeded the cycle budget after mutation: %d > %d", y, line.Cycles, raster.FreeCycles)
		}
	}
}

func TestMutateReturnsOnlyLinesItDirtied(t *testing.T) {
	pic := raster.NewPicture(4)
	e := newTestEngine(3, 4)

	dirty := e.Mutate(pic)
	for _, y := range dirty {
		if y < 0 || y >= 4 {
			t.Fatalf("Mutate reported an out-of-range dirty line: %d", y)
		}
		if pic.Lines[y].CacheKey != 0 {
			t.Fatalf("line %d was reported dirty but its CacheKey was not nulled by Rehash", y)
		}
	}
}

func TestSetStuckIsRecordedAndPickOperatorStaysInRange(t *testing.T) {
	e := newTestEngine(11, 4)
	e.SetStuck(true)
	if !e.stuck {
		t.Fatalf("SetStuck(true) did not record stuck state")
	}
	op := e.pickOperator()
	if op < 0 || op >= numOperators {
		t.Fatalf("pickOperator returned out-of-range operator %v", op)
	}
}

func TestComplementValueDualRequiresEnableDual(t *testing.T) {
	pic := raster.NewPicture(2)
	pic.Lines[0].Instructions = append(pic.Lines[0].Instructions, raster.Instruction{Op: raster.LDA})
	pic.Lines[0].Rehash()
	e := newTestEngine(5, 2)

	applied := e.apply(ComplementValueDual, pic, 0, func(int) {})
	if applied {
		t.Fatalf("COMPLEMENT_VALUE_DUAL must not apply before EnableDual is called")
	}

	e.EnableDual(func(x, y int, idx uint8) float64 { return float64(idx) })
	applied = e.apply(ComplementValueDual, pic, 0, func(int) {})
	if !applied {
		t.Fatalf("COMPLEMENT_VALUE_DUAL should apply once dual scoring is enabled")
	}
	if pic.Lines[0].Instructions[0].Value != 0 {
		t.Errorf("with an increasing cost function, COMPLEMENT_VALUE_DUAL should pick index 0, got %v", pic.Lines[0].Instructions[0].Value)
	}
}

func TestOperatorStringCoversEveryOperator(t *testing.T) {
	for op := Operator(0); op < numOperators; op++ {
		if op.String() == "?" {
			t.Errorf("Operator %d has no name in String()", op)
		}
	}
}
