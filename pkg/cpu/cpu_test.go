package cpu

import "testing"

func newTestCPU(program []byte, loadAddr uint16) *CPU {
	mem := NewMemory()
	mem.Load(loadAddr, program)
	c := NewCPU(mem)
	c.Reg.SetPC(loadAddr)
	return c
}

func TestScenario1_LdAddA(t *testing.T) {
	c := newTestCPU([]byte{0x3E, 0x0F, 0x87}, 0)
	bus := NullBus{}

	if t1 := c.Step(bus); t1 != 7 {
		t.Fatalf("LD A,0x0F = %d T-states, want 7", t1)
	}
	if t2 := c.Step(bus); t2 != 4 {
		t.Fatalf("ADD A,A = %d T-states, want 4", t2)
	}
	if a := c.Reg.Get8(A); a != 0x1E {
		t.Fatalf("A = %#02x, want 0x1E", a)
	}
	if f := c.Reg.Get8(F) &^ (Flag3 | Flag5); f != FlagH {
		t.Fatalf("F masked = %#02x, want HF", f)
	}
}

func TestScenario2_SubChain(t *testing.T) {
	c := newTestCPU([]byte{0x3E, 0x04, 0x06, 0x01, 0x97, 0x90}, 0)
	bus := NullBus{}
	for i := 0; i < 4; i++ {
		c.Step(bus)
	}
	if a := c.Reg.Get8(A); a != 0xFF {
		t.Fatalf("A = %#02x, want 0xFF", a)
	}
	want := FlagS | FlagH | FlagN | FlagC
	if f := c.Reg.Get8(F) &^ (Flag3 | Flag5); f != want {
		t.Fatalf("F masked = %#02x, want %#02x", f, want)
	}
}

func TestScenario3_LDIR(t *testing.T) {
	program := []byte{0x21, 0x00, 0x10, 0x11, 0x00, 0x20, 0x01, 0x03, 0x00, 0xED, 0xB0}
	c := newTestCPU(program, 0)
	c.Mem.Load(0x1000, []byte{1, 2, 3})
	bus := NullBus{}

	for i := 0; i < 3; i++ {
		c.Step(bus)
	}
	total := 0
	for c.Reg.Get16(BC) != 0 {
		total += c.Step(bus)
	}
	if total != 21+21+16 {
		t.Fatalf("LDIR T-states = %d, want %d", total, 21+21+16)
	}
	if bc := c.Reg.Get16(BC); bc != 0 {
		t.Fatalf("BC = %#04x, want 0", bc)
	}
	got := c.Mem.Slice(0x2000, 3)
	want := []byte{1, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("memory[0x2000+%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestScenario4_DJNZLoop(t *testing.T) {
	program := []byte{0x06, 0x03, 0x97, 0x3C, 0x10, 0xFD, 0x00}
	c := newTestCPU(program, 0x0204)
	bus := NullBus{}
	for !(c.Reg.Get8(B) == 0 && c.Reg.PC() == 0x020A) {
		c.Step(bus)
		if c.Reg.PC() == 0x0211 { // safety net, never reached on success
			t.Fatal("DJNZ loop ran away")
		}
	}
	if a := c.Reg.Get8(A); a != 3 {
		t.Fatalf("A = %d, want 3", a)
	}
	if b := c.Reg.Get8(B); b != 0 {
		t.Fatalf("B = %d, want 0", b)
	}
	if pc := c.Reg.PC(); pc != 0x020A {
		t.Fatalf("PC = %#04x, want 0x020A", pc)
	}
}

func TestScenario5_CallRet(t *testing.T) {
	program := []byte{0xCD, 0x0A, 0x02, 0xCD, 0x0A, 0x02, 0xC9}
	c := newTestCPU(program, 0x0204)
	c.Reg.Set16(SP, 0)
	bus := NullBus{}

	c.Step(bus) // first CALL
	if sp := c.Reg.Get16(SP); sp != 0xFFFE {
		t.Fatalf("SP after CALL = %#04x, want 0xFFFE", sp)
	}
	if ret := c.Mem.R16(0xFFFE); ret != 0x0207 {
		t.Fatalf("pushed return addr = %#04x, want 0x0207", ret)
	}

	c.Reg.SetPC(0x020A) // land on the RET at the end of program
	c.Step(bus)
	if pc := c.Reg.PC(); pc != 0x0207 {
		t.Fatalf("PC after RET = %#04x, want 0x0207", pc)
	}
	if sp := c.Reg.Get16(SP); sp != 0x0000 {
		t.Fatalf("SP after RET = %#04x, want 0x0000", sp)
	}
}

func TestScenario6_IndexedLoad(t *testing.T) {
	program := []byte{0xDD, 0x21, 0x00, 0x20, 0xDD, 0x36, 0x02, 0x33}
	c := newTestCPU(program, 0)
	bus := NullBus{}

	if t1 := c.Step(bus); t1 != 14 {
		t.Fatalf("LD IX,nn = %d T-states, want 14", t1)
	}
	if ix := c.Reg.Get16(IX); ix != 0x2000 {
		t.Fatalf("IX = %#04x, want 0x2000", ix)
	}
	if t2 := c.Step(bus); t2 != 19 {
		t.Fatalf("LD (IX+2),n = %d T-states, want 19", t2)
	}
	if v := c.Mem.R8(0x2002); v != 0x33 {
		t.Fatalf("mem[0x2002] = %#02x, want 0x33", v)
	}
}

func TestScenario7_Neg(t *testing.T) {
	c := newTestCPU([]byte{0x3E, 0x01, 0xED, 0x44}, 0)
	bus := NullBus{}
	if t1 := c.Step(bus); t1 != 7 {
		t.Fatalf("LD A,1 = %d T-states, want 7", t1)
	}
	if t2 := c.Step(bus); t2 != 8 {
		t.Fatalf("NEG = %d T-states, want 8", t2)
	}
	if a := c.Reg.Get8(A); a != 0xFF {
		t.Fatalf("A = %#02x, want 0xFF", a)
	}
	want := FlagS | FlagH | FlagN | FlagC
	if f := c.Reg.Get8(F) &^ (Flag3 | Flag5); f != want {
		t.Fatalf("F masked = %#02x, want %#02x", f, want)
	}
}

func TestScenario8_RLCAxTwo(t *testing.T) {
	c := newTestCPU([]byte{0x3E, 0xA0, 0x07, 0x07}, 0)
	bus := NullBus{}
	c.Step(bus)
	if t1 := c.Step(bus); t1 != 4 {
		t.Fatalf("RLCA = %d T-states, want 4", t1)
	}
	if t2 := c.Step(bus); t2 != 4 {
		t.Fatalf("RLCA = %d T-states, want 4", t2)
	}
	if a := c.Reg.Get8(A); a != 0x82 {
		t.Fatalf("A = %#02x, want 0x82", a)
	}
}

func TestHaltHoldsPC(t *testing.T) {
	c := newTestCPU([]byte{0x76}, 0x0100)
	bus := NullBus{}
	c.Step(bus)
	if !c.Halt {
		t.Fatal("HALT should set the halt latch")
	}
	if pc := c.Reg.PC(); pc != 0x0100 {
		t.Fatalf("PC after HALT = %#04x, want 0x0100 (held)", pc)
	}
	t2 := c.Step(bus)
	if t2 != 4 {
		t.Fatalf("repeated HALT step = %d T-states, want 4", t2)
	}
	if pc := c.Reg.PC(); pc != 0x0100 {
		t.Fatalf("PC after repeated HALT = %#04x, want still 0x0100", pc)
	}
}

func TestEIDefersOneInstruction(t *testing.T) {
	c := newTestCPU([]byte{0xFB, 0x00, 0x00}, 0)
	c.Reg.Set16(SP, 0x4000)
	c.Reg.IM = 1
	bus := NullBus{}
	c.RaiseINT()

	c.Step(bus) // EI itself: IFF1/2 set, INT not yet checked against them
	if !c.IFF1 {
		t.Fatal("EI should set IFF1")
	}
	if c.Reg.PC() != 1 {
		t.Fatalf("PC after EI = %#04x, want 1", c.Reg.PC())
	}

	c.Step(bus) // the instruction right after EI is immune to the pending INT
	if c.Reg.PC() != 2 {
		t.Fatalf("the instruction after EI should run normally (immune), PC=%#04x, want 2", c.Reg.PC())
	}

	c.Step(bus) // only now is the deferral lifted and the INT accepted
	if c.Reg.PC() != 0x0038 {
		t.Fatalf("pending INT should now vector to 0x0038 (IM1), PC=%#04x", c.Reg.PC())
	}
}

// TestIndexPrefixTiming walks the rest of the DD-prefixed forms not
// covered by scenario 6: IX-as-plain-register ops only pay for the
// prefix fetch itself (base+4), while (IX+d) memory-operand forms pay
// the extra displacement-read cost on top of that.
func TestIndexPrefixTiming(t *testing.T) {
	bus := NullBus{}

	t.Run("PUSH IX", func(t *testing.T) {
		c := newTestCPU([]byte{0xDD, 0xE5}, 0)
		c.Reg.Set16(SP, 0x4000)
		c.Reg.Set16(IX, 0x1234)
		if got := c.Step(bus); got != 15 {
			t.Fatalf("PUSH IX = %d T-states, want 15", got)
		}
		if v := c.Mem.R16(0x3FFE); v != 0x1234 {
			t.Fatalf("pushed IX = %#04x, want 0x1234", v)
		}
	})

	t.Run("ADD IX,BC", func(t *testing.T) {
		c := newTestCPU([]byte{0xDD, 0x09}, 0)
		c.Reg.Set16(BC, 0x0001)
		c.Reg.Set16(IX, 0x0002)
		if got := c.Step(bus); got != 15 {
			t.Fatalf("ADD IX,BC = %d T-states, want 15", got)
		}
		if v := c.Reg.Get16(IX); v != 0x0003 {
			t.Fatalf("IX = %#04x, want 0x0003", v)
		}
	})

	t.Run("INC (IX+d)", func(t *testing.T) {
		c := newTestCPU([]byte{0xDD, 0x34, 0x01, 0x00}, 0)
		c.Reg.Set16(IX, 0x0002)
		if got := c.Step(bus); got != 23 {
			t.Fatalf("INC (IX+d) = %d T-states, want 23", got)
		}
		if v := c.Mem.R8(0x0003); v != 1 {
			t.Fatalf("mem[IX+1] = %d, want 1", v)
		}
	})

	t.Run("RLC (IX+d)", func(t *testing.T) {
		c := newTestCPU([]byte{0xDD, 0xCB, 0x00, 0x06}, 0)
		c.Reg.Set16(IX, 0x0010)
		c.Mem.W8(0x0010, 0x80)
		if got := c.Step(bus); got != 23 {
			t.Fatalf("RLC (IX+d) = %d T-states, want 23", got)
		}
		if v := c.Mem.R8(0x0010); v != 0x01 {
			t.Fatalf("mem[IX+0] = %#02x, want 0x01", v)
		}
	})

	t.Run("BIT b,(IX+d)", func(t *testing.T) {
		c := newTestCPU([]byte{0xDD, 0xCB, 0x00, 0x46}, 0)
		c.Reg.Set16(IX, 0x0010)
		c.Mem.W8(0x0010, 0x80)
		if got := c.Step(bus); got != 20 {
			t.Fatalf("BIT 0,(IX+d) = %d T-states, want 20", got)
		}
		if f := c.Reg.Get8(F) & FlagZ; f == 0 {
			t.Fatalf("BIT 0 of 0x80 should be set (bit 0 clear), F&ZF=%#02x", f)
		}
	})
}
