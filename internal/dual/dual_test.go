package dual

import (
	"testing"

	"github.com/zaynotley/rastaforge/internal/colordist"
	"github.com/zaynotley/rastaforge/internal/raster"
)

func smallTables(height int) *Tables {
	var pal raster.Palette
	target := raster.NewTargetImage(height)
	return BuildTables(pal, target, 0.2, 0.3)
}

func TestDistanceIsZeroWhenPairMatchesBlackTarget(t *testing.T) {
	// The zero-value target image and zero-value palette both decode to
	// black (Y=U=V=0), so a self-pair of index 0 against index 0 should
	// score a perfect zero: both the sum-vs-target and diff terms vanish.
	tables := smallTables(4)
	if got := tables.Distance(0, 0, 0, 0); got != 0 {
		t.Errorf("Distance(0,0,0,0) = %v, want 0", got)
	}
}

func TestDistancePenalizesFlickerBetweenDifferentIndices(t *testing.T) {
	var pal raster.Palette
	pal[0] = colordist.RGB{R: 0, G: 0, B: 0}
	pal[1] = colordist.RGB{R: 255, G: 255, B: 255}
	target := raster.NewTargetImage(2)
	tables := BuildTables(pal, target, 0, 0)

	same := tables.Distance(0, 0, 0, 0)
	flicker := tables.Distance(0, 0, 0, 1)
	if flicker <= same {
		t.Errorf("a mismatched pair (flicker) should cost more than a matched pair: flicker=%v same=%v", flicker, same)
	}
}

func TestFlickerToleranceOfOneDisablesPenalty(t *testing.T) {
	var pal raster.Palette
	pal[0] = colordist.RGB{R: 0, G: 0, B: 0}
	pal[1] = colordist.RGB{R: 255, G: 255, B: 255}
	target := raster.NewTargetImage(2)
	tables := BuildTables(pal, target, 1, 1)

	if tables.lambdaLuma != 0 || tables.lambdaChroma != 0 {
		t.Fatalf("a tolerance of 1 must zero the flicker weight: lambdaLuma=%v lambdaChroma=%v", tables.lambdaLuma, tables.lambdaChroma)
	}
}

func TestFrozenFramePublishThenReadRoundTrips(t *testing.T) {
	f := NewFrozenFrame(make([]raster.PaintedRow, 2))
	var rows [2]raster.PaintedRow
	rows[0][5] = 9
	rows[1][10] = 3

	f.Publish(rows[:])
	got := f.Rows()
	if got[0][5] != 9 || got[1][10] != 3 {
		t.Fatalf("Rows() after Publish did not return the published data")
	}
}

func TestFrozenFrameRowsNeverNil(t *testing.T) {
	f := &FrozenFrame{}
	rows := f.Rows()
	if rows == nil {
		t.Fatalf("Rows() on a never-published frame must return a non-nil empty slice")
	}
	if len(rows) != 0 {
		t.Fatalf("Rows() on a never-published frame = %d rows, want 0", len(rows))
	}
}

func TestCoordinatorPhaseTransitions(t *testing.T) {
	c := NewCoordinator(smallTables(2), 2, false)
	if c.Phase() != BootstrapA {
		t.Fatalf("NewCoordinator should start in BootstrapA, got %v", c.Phase())
	}
	if !c.TryEnterBootstrapB() {
		t.Fatalf("TryEnterBootstrapB should succeed from BootstrapA")
	}
	if c.Phase() != BootstrapB {
		t.Fatalf("Phase() after TryEnterBootstrapB = %v, want BootstrapB", c.Phase())
	}
	if c.TryEnterBootstrapB() {
		t.Fatalf("a second TryEnterBootstrapB call must fail once already in BootstrapB")
	}
	if !c.TryEnterAlternating() {
		t.Fatalf("TryEnterAlternating should succeed from BootstrapB")
	}
	if c.Phase() != Alternating {
		t.Fatalf("Phase() after TryEnterAlternating = %v, want Alternating", c.Phase())
	}
	if c.TryEnterAlternating() {
		t.Fatalf("a second TryEnterAlternating call must fail once already in Alternating")
	}
}

func TestCoordinatorStepFlipsFocusAtThreshold(t *testing.T) {
	c := NewCoordinator(smallTables(2), 2, false)
	c.TryEnterBootstrapB()
	c.TryEnterAlternating()
	if c.FocusB() {
		t.Fatalf("FocusB should start false (focused on A)")
	}

	for i := 0; i < 4; i++ {
		if c.Step(5) {
			t.Fatalf("Step flipped before crossing the threshold at step %d", i+1)
		}
	}
	if !c.Step(5) {
		t.Fatalf("Step did not flip on crossing the threshold")
	}
	if !c.FocusB() {
		t.Fatalf("first flip should move focus to B")
	}
	genA, genB := c.Generation()
	if genB != 1 || genA != 0 {
		t.Fatalf("Generation() after first flip = (%d,%d), want (0,1)", genA, genB)
	}
}

func TestCoordinatorStepZeroThresholdNeverFlips(t *testing.T) {
	c := NewCoordinator(smallTables(2), 2, false)
	c.TryEnterBootstrapB()
	c.TryEnterAlternating()
	for i := 0; i < 100; i++ {
		if c.Step(0) {
			t.Fatalf("Step(0) must never flip")
		}
	}
}

func TestDualFrameScorerCostUsesOppositeFrame(t *testing.T) {
	tables := smallTables(1)
	frozen := NewFrozenFrame(make([]raster.PaintedRow, 1))
	var rows [1]raster.PaintedRow
	rows[0][0] = 1
	frozen.Publish(rows[:])

	scorer := DualFrameScorer{Tables: tables, Opposite: frozen}
	direct := tables.Distance(0, 0, 0, 1)
	got := scorer.Cost(0, 0, 0)
	if got != direct {
		t.Errorf("DualFrameScorer.Cost = %v, want %v (Distance against the published opposite index)", got, direct)
	}
}
