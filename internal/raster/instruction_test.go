package raster

import "testing"

func TestOpcodeCycles(t *testing.T) {
	cases := []struct {
		op   Opcode
		want int
	}{
		{LDA, 2}, {LDX, 2}, {LDY, 2}, {NOP, 2},
		{STA, 4}, {STX, 4}, {STY, 4},
	}
	for _, c := range cases {
		if got := c.op.Cycles(); got != c.want {
			t.Errorf("%v.Cycles() = %d, want %d", c.op, got, c.want)
		}
	}
}

func TestOpcodeIsStoreIsLoad(t *testing.T) {
	for _, op := range []Opcode{LDA, LDX, LDY} {
		if !op.IsLoad() || op.IsStore() {
			t.Errorf("%v: IsLoad/IsStore wrong", op)
		}
	}
	for _, op := range []Opcode{STA, STX, STY} {
		if op.IsLoad() || !op.IsStore() {
			t.Errorf("%v: IsLoad/IsStore wrong", op)
		}
	}
	if NOP.IsLoad() || NOP.IsStore() {
		t.Errorf("NOP should be neither a load nor a store")
	}
}

func TestInstructionHashDistinguishesFields(t *testing.T) {
	a := Instruction{Op: STA, Value: 1, Target: COLOR0}
	b := Instruction{Op: STA, Value: 2, Target: COLOR0}
	c := Instruction{Op: STA, Value: 1, Target: COLOR1}
	if a.hash() == b.hash() {
		t.Errorf("differing Value produced equal hashes")
	}
	if a.hash() == c.hash() {
		t.Errorf("differing Target produced equal hashes")
	}
}
