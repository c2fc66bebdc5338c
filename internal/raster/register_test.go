package raster

import "testing"

func TestSpriteIndex(t *testing.T) {
	for i := 0; i < 4; i++ {
		c := COLPM0 + Register(i)
		if idx := c.SpriteIndex(); idx != i {
			t.Errorf("%v.SpriteIndex() = %d, want %d", c, idx, i)
		}
		h := HPOSP0 + Register(i)
		if idx := h.SpriteIndex(); idx != i {
			t.Errorf("%v.SpriteIndex() = %d, want %d", h, idx, i)
		}
	}
	if COLOR0.SpriteIndex() != -1 {
		t.Errorf("COLOR0.SpriteIndex() should be -1")
	}
	if HITCLR.SpriteIndex() != -1 {
		t.Errorf("HITCLR.SpriteIndex() should be -1")
	}
}

func TestIsSpriteColorAndHPos(t *testing.T) {
	if !COLPM2.IsSpriteColor() || COLPM2.IsSpriteHPos() {
		t.Errorf("COLPM2 classification wrong")
	}
	if !HPOSP3.IsSpriteHPos() || HPOSP3.IsSpriteColor() {
		t.Errorf("HPOSP3 classification wrong")
	}
	if COLOR0.IsSpriteColor() || COLOR0.IsSpriteHPos() {
		t.Errorf("COLOR0 should be neither")
	}
}

func TestNumRealTargetsExcludesHITCLR(t *testing.T) {
	if NumRealTargets != int(HITCLR) {
		t.Fatalf("NumRealTargets = %d, want %d", NumRealTargets, int(HITCLR))
	}
	if NumRegisters != NumRealTargets+1 {
		t.Fatalf("NumRegisters = %d, want %d", NumRegisters, NumRealTargets+1)
	}
}
