package seqcache

import (
	"testing"

	"github.com/zaynotley/rastaforge/internal/raster"
)

func buildLine(insns ...raster.Instruction) *raster.RasterLine {
	l := raster.NewRasterLine()
	l.Instructions = append(l.Instructions, insns...)
	l.Rehash()
	return l
}

func TestInternSharesIdentityForEqualSequences(t *testing.T) {
	c := New(NewArena(64))
	a := buildLine(raster.Instruction{Op: raster.LDA, Value: 1}, raster.Instruction{Op: raster.STA, Target: raster.COLOR0})
	b := buildLine(raster.Instruction{Op: raster.LDA, Value: 1}, raster.Instruction{Op: raster.STA, Target: raster.COLOR0})

	ha := c.Intern(a)
	hb := c.Intern(b)
	if ha != hb {
		t.Fatalf("two structurally identical lines got different identities: %v vs %v", ha, hb)
	}
}

func TestInternDistinguishesDifferentSequences(t *testing.T) {
	c := New(NewArena(64))
	a := buildLine(raster.Instruction{Op: raster.LDA, Value: 1})
	b := buildLine(raster.Instruction{Op: raster.LDA, Value: 2})

	if c.Intern(a) == c.Intern(b) {
		t.Fatalf("lines with different instructions got the same identity")
	}
}

func TestInternIsIdempotentViaCacheKey(t *testing.T) {
	c := New(NewArena(64))
	a := buildLine(raster.Instruction{Op: raster.NOP})

	h1 := c.Intern(a)
	h2 := c.Intern(a)
	if h1 != h2 {
		t.Fatalf("re-interning the same *RasterLine without mutation changed identity")
	}
}

func TestRehashForcesReintern(t *testing.T) {
	c := New(NewArena(64))
	a := buildLine(raster.Instruction{Op: raster.LDA, Value: 1})
	h1 := c.Intern(a)

	a.Instructions[0].Value = 2
	a.Rehash() // nulls CacheKey
	h2 := c.Intern(a)

	if h1 == h2 {
		t.Fatalf("mutated line interned to its old identity")
	}
}

func TestResetDropsAllIdentities(t *testing.T) {
	arn := NewArena(64)
	c := New(arn)
	a := buildLine(raster.Instruction{Op: raster.LDA, Value: 7})
	c.Intern(a)

	c.Reset()
	arn.Clear()
	a.CacheKey = 0 // caller's cooperative-invalidation responsibility

	h := c.Intern(a)
	if !h.Valid() {
		t.Fatalf("interning after Reset should still produce a valid handle")
	}
}
