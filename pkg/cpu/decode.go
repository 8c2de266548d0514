package cpu

// fetchByte reads the byte at PC and advances PC, without the R bump an
// M1 opcode fetch gets — used for immediate operands and displacements.
func (c *CPU) fetchByte() uint8 {
	v := c.Mem.R8(c.Reg.PC())
	c.Reg.IncPC(1)
	return v
}

// fetchWord reads a little-endian 16-bit immediate at PC, advancing PC
// by two.
func (c *CPU) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(hi)<<8 | uint16(lo)
}

// fetchAndExecute is the top of the Decoder/Executor (C5): it consumes
// any DD/FD prefix chain, the CB or ED sub-prefix, and dispatches to the
// opcode's handler, returning total T-states including prefix overhead.
func (c *CPU) fetchAndExecute(bus BusPort) int {
	op := c.fetchOpcode()
	extra := 0
	indexed := 0 // 0 = none, 1 = IX, 2 = IY

	for op == 0xDD || op == 0xFD {
		if op == 0xDD {
			c.Reg.PatchIX()
			indexed = 1
		} else {
			c.Reg.PatchIY()
			indexed = 2
		}
		extra += 4
		op = c.fetchOpcode()
	}

	var t int
	switch op {
	case 0xCB:
		if indexed != 0 {
			t = c.execIndexedCB(bus)
		} else {
			t = c.execCB(bus)
		}
	case 0xED:
		if indexed != 0 {
			c.Reg.Unpatch()
			indexed = 0
		}
		t = c.execED(bus)
	default:
		t = c.execOpcode(op, bus)
	}

	if indexed != 0 {
		c.Reg.Unpatch()
	}
	return t + extra
}

// memOperandAddr resolves the effective address of the "(HL)" operand
// slot (register field value 6), reading and consuming the displacement
// byte from PC when an index prefix is active, and latching WZ.
func (c *CPU) memOperandAddr() uint16 {
	if idx := c.Reg.IndexedMode(); idx != 0 {
		d := signed8(c.fetchByte())
		base := int32(c.Reg.R16SP(2))
		addr := uint16(base + d)
		c.Reg.Set16(WZ, addr)
		return addr
	}
	return c.Reg.Get16(HL)
}

// readR8 reads an 8-bit operand selected by a 3-bit field through m_r,
// resolving field 6 as the (HL)/(IX+d)/(IY+d) memory operand.
func (c *CPU) readR8(z int) uint8 {
	if z == fHLInd {
		return c.Mem.R8(c.memOperandAddr())
	}
	return c.Reg.R8(z)
}

// writeR8 writes an 8-bit operand selected by a 3-bit field.
func (c *CPU) writeR8(z int, v uint8) {
	if z == fHLInd {
		c.Mem.W8(c.memOperandAddr(), v)
		return
	}
	c.Reg.SetR8(z, v)
}

// condTrue evaluates one of the eight condition codes against F.
func (c *CPU) condTrue(cc int) bool {
	f := c.Reg.Get8(F)
	switch cc {
	case 0:
		return f&FlagZ == 0 // NZ
	case 1:
		return f&FlagZ != 0 // Z
	case 2:
		return f&FlagC == 0 // NC
	case 3:
		return f&FlagC != 0 // C
	case 4:
		return f&FlagP == 0 // PO
	case 5:
		return f&FlagP != 0 // PE
	case 6:
		return f&FlagS == 0 // P
	default:
		return f&FlagS != 0 // M
	}
}

// execOpcode dispatches one fully-resolved (non-prefix) opcode byte
// against its octal factoring: (x,y,z) = (op>>6, (op>>3)&7, op&7).
func (c *CPU) execOpcode(op uint8, bus BusPort) int {
	x := int(op >> 6)
	y := int((op >> 3) & 7)
	z := int(op & 7)
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		return c.execX0(y, z, p, q, bus)
	case 1:
		return c.execLDorHalt(y, z)
	case 2:
		return c.execALUGroup(y, z)
	default:
		return c.execX3(y, z, p, q, bus)
	}
}

// execLDorHalt implements "01 yyy zzz" (LD r,r', HALT when y=z=6).
func (c *CPU) execLDorHalt(y, z int) int {
	if y == fHLInd && z == fHLInd {
		c.Halt = true
		c.Reg.DecPC(1)
		return 4
	}
	switch {
	case z == fHLInd:
		v := c.Mem.R8(c.memOperandAddr())
		c.Reg.SetR8i(y, v)
		if c.Reg.IndexedMode() != 0 {
			return 15
		}
		return 7
	case y == fHLInd:
		v := c.Reg.R8i(z)
		c.Mem.W8(c.memOperandAddr(), v)
		if c.Reg.IndexedMode() != 0 {
			return 15
		}
		return 7
	default:
		c.Reg.SetR8(y, c.Reg.R8(z))
		return 4
	}
}

// execALUGroup implements "10 yyy zzz" (ALU r).
func (c *CPU) execALUGroup(y, z int) int {
	operand := c.readR8(z)
	c.aluApply(y, operand)
	if z == fHLInd {
		if c.Reg.IndexedMode() != 0 {
			return 15
		}
		return 7
	}
	return 4
}

// execX0 implements the "00 yyy zzz" block: NOP/EX/DJNZ/JR family (z=0),
// LD rp,nn / ADD HL,rp (z=1), indirect loads (z=2), INC/DEC rp (z=3),
// INC/DEC r8 (z=4/5), LD r8,n (z=6), and the accumulator/flag ops (z=7).
func (c *CPU) execX0(y, z, p, q int, bus BusPort) int {
	switch z {
	case 0:
		return c.execX0Z0(y)
	case 1:
		if q == 0 {
			v := c.fetchWord()
			c.Reg.SetR16SP(p, v)
			return 10
		}
		hl := c.Reg.R16SP(2)
		rp := c.Reg.R16SP(p)
		res, f := Add16(hl, rp, c.Reg.Get8(F))
		c.Reg.SetR16SP(2, res)
		c.Reg.Set8(F, f)
		c.Reg.Set16(WZ, hl+1)
		return 11
	case 2:
		return c.execX0Z2(p, q)
	case 3:
		v := c.Reg.R16SP(p)
		if q == 0 {
			c.Reg.SetR16SP(p, v+1)
		} else {
			c.Reg.SetR16SP(p, v-1)
		}
		return 6
	case 4:
		if y == fHLInd {
			addr := c.memOperandAddr()
			res, f := Inc8(c.Mem.R8(addr), c.Reg.Get8(F))
			c.Mem.W8(addr, res)
			c.Reg.Set8(F, f)
			if c.Reg.IndexedMode() != 0 {
				return 19
			}
			return 11
		}
		res, f := Inc8(c.Reg.R8(y), c.Reg.Get8(F))
		c.Reg.SetR8(y, res)
		c.Reg.Set8(F, f)
		return 4
	case 5:
		if y == fHLInd {
			addr := c.memOperandAddr()
			res, f := Dec8(c.Mem.R8(addr), c.Reg.Get8(F))
			c.Mem.W8(addr, res)
			c.Reg.Set8(F, f)
			if c.Reg.IndexedMode() != 0 {
				return 19
			}
			return 11
		}
		res, f := Dec8(c.Reg.R8(y), c.Reg.Get8(F))
		c.Reg.SetR8(y, res)
		c.Reg.Set8(F, f)
		return 4
	case 6:
		if y == fHLInd {
			addr := c.memOperandAddr()
			n := c.fetchByte()
			c.Mem.W8(addr, n)
			if c.Reg.IndexedMode() != 0 {
				return 15
			}
			return 10
		}
		n := c.fetchByte()
		c.Reg.SetR8(y, n)
		return 7
	default:
		return c.execAccumOp(y)
	}
}

// execX0Z0 implements NOP(0), EX AF,AF'(1), DJNZ(2), JR(3), JR cc(4..7).
func (c *CPU) execX0Z0(y int) int {
	switch y {
	case 0:
		return 4
	case 1:
		c.Reg.Swap(AF, AF_)
		return 4
	case 2:
		d := signed8(c.fetchByte())
		b := c.Reg.Get8(B) - 1
		c.Reg.Set8(B, b)
		if b != 0 {
			target := uint16(int32(c.Reg.PC()) + d)
			c.Reg.SetPC(target)
			c.Reg.Set16(WZ, target)
			return 13
		}
		return 8
	case 3:
		d := signed8(c.fetchByte())
		target := uint16(int32(c.Reg.PC()) + d)
		c.Reg.SetPC(target)
		c.Reg.Set16(WZ, target)
		return 12
	default:
		cc := y - 4
		d := signed8(c.fetchByte())
		if c.condTrue(cc) {
			target := uint16(int32(c.Reg.PC()) + d)
			c.Reg.SetPC(target)
			c.Reg.Set16(WZ, target)
			return 12
		}
		return 7
	}
}

// execX0Z2 implements LD (rp),A / LD A,(rp) / LD (nn),HL / LD HL,(nn) /
// LD (nn),A / LD A,(nn), selected by p (0..3) and q (0/1).
func (c *CPU) execX0Z2(p, q int) int {
	a := c.Reg.Get8(A)
	switch p {
	case 0:
		addr := c.Reg.Get16(BC)
		if q == 0 {
			c.Mem.W8(addr, a)
		} else {
			c.Reg.Set8(A, c.Mem.R8(addr))
		}
		c.Reg.Set16(WZ, addr+1)
		return 7
	case 1:
		addr := c.Reg.Get16(DE)
		if q == 0 {
			c.Mem.W8(addr, a)
		} else {
			c.Reg.Set8(A, c.Mem.R8(addr))
		}
		c.Reg.Set16(WZ, addr+1)
		return 7
	case 2:
		addr := c.fetchWord()
		if q == 0 {
			c.Mem.W16(addr, c.Reg.R16SP(2))
		} else {
			c.Reg.SetR16SP(2, c.Mem.R16(addr))
		}
		c.Reg.Set16(WZ, addr+1)
		return 16
	default:
		addr := c.fetchWord()
		if q == 0 {
			c.Mem.W8(addr, a)
		} else {
			c.Reg.Set8(A, c.Mem.R8(addr))
		}
		c.Reg.Set16(WZ, addr+1)
		return 13
	}
}

// execAccumOp implements "00 yyy 111": RLCA/RRCA/RLA/RRA/DAA/CPL/SCF/CCF.
// The rotate-on-A forms keep SF/ZF/PF from oldF and take XF/YF from the
// rotated result, unlike the full-flags CB rotates.
func (c *CPU) execAccumOp(y int) int {
	a := c.Reg.Get8(A)
	f := c.Reg.Get8(F)
	switch y {
	case 0: // RLCA
		cf := a >> 7
		res := (a << 1) | cf
		c.Reg.Set8(A, res)
		c.Reg.Set8(F, (f&(FlagS|FlagZ|FlagP))|(res&(Flag3|Flag5))|cf)
	case 1: // RRCA
		cf := a & 1
		res := (a >> 1) | (cf << 7)
		c.Reg.Set8(A, res)
		c.Reg.Set8(F, (f&(FlagS|FlagZ|FlagP))|(res&(Flag3|Flag5))|cf)
	case 2: // RLA
		cf := a >> 7
		res := (a << 1) | (f & FlagC)
		c.Reg.Set8(A, res)
		c.Reg.Set8(F, (f&(FlagS|FlagZ|FlagP))|(res&(Flag3|Flag5))|cf)
	case 3: // RRA
		cf := a & 1
		res := (a >> 1) | ((f & FlagC) << 7)
		c.Reg.Set8(A, res)
		c.Reg.Set8(F, (f&(FlagS|FlagZ|FlagP))|(res&(Flag3|Flag5))|cf)
	case 4: // DAA
		res, nf := Daa(a, f)
		c.Reg.Set8(A, res)
		c.Reg.Set8(F, nf)
	case 5: // CPL
		res := a ^ 0xFF
		c.Reg.Set8(A, res)
		c.Reg.Set8(F, (f&(FlagS|FlagZ|FlagP|FlagC))|FlagH|FlagN|(res&(Flag3|Flag5)))
	case 6: // SCF
		c.Reg.Set8(F, (f&(FlagS|FlagZ|FlagP))|FlagC|(a&(Flag3|Flag5)))
	case 7: // CCF
		c.Reg.Set8(F, (f&(FlagS|FlagZ|FlagP))|bsel(f&FlagC != 0, FlagH, 0)|(a&(Flag3|Flag5))|bsel(f&FlagC != 0, 0, FlagC))
	}
	return 4
}

// execX3 implements the "11 yyy zzz" block: RET cc/POP/JP family, I/O,
// EX/DI/EI, CALL family, ALU n, RST.
func (c *CPU) execX3(y, z, p, q int, bus BusPort) int {
	switch z {
	case 0:
		if c.condTrue(y) {
			c.Reg.SetPC(c.pop16())
			return 11
		}
		return 5
	case 1:
		return c.execX3Z1(p, q)
	case 2:
		addr := c.fetchWord()
		if c.condTrue(y) {
			c.Reg.SetPC(addr)
		}
		c.Reg.Set16(WZ, addr)
		return 10
	case 3:
		return c.execX3Z3(y, bus)
	case 4:
		addr := c.fetchWord()
		c.Reg.Set16(WZ, addr)
		if c.condTrue(y) {
			c.push16(c.Reg.PC())
			c.Reg.SetPC(addr)
			return 17
		}
		return 10
	case 5:
		if q == 0 {
			c.push16(c.Reg.R16AF(p))
			return 11
		}
		// q==1: p selects DD/ED/FD prefix (handled in fetchAndExecute) or
		// CALL nn (p==0).
		addr := c.fetchWord()
		c.Reg.Set16(WZ, addr)
		c.push16(c.Reg.PC())
		c.Reg.SetPC(addr)
		return 17
	case 6:
		n := c.fetchByte()
		c.aluApply(y, n)
		return 7
	default:
		c.push16(c.Reg.PC())
		c.Reg.SetPC(uint16(y) * 8)
		c.Reg.Set16(WZ, uint16(y)*8)
		return 11
	}
}

func (c *CPU) execX3Z1(p, q int) int {
	if q == 0 {
		c.Reg.SetR16AF(p, c.pop16())
		return 10
	}
	switch p {
	case 0:
		c.Reg.SetPC(c.pop16())
		return 10
	case 1:
		c.Reg.Swap(BC, BC_)
		c.Reg.Swap(DE, DE_)
		c.Reg.Swap(HL, HL_)
		return 4
	case 2:
		c.Reg.SetPC(c.Reg.R16SP(2))
		return 4
	default:
		c.Reg.Set16(SP, c.Reg.R16SP(2))
		return 6
	}
}

func (c *CPU) execX3Z3(y int, bus BusPort) int {
	switch y {
	case 0:
		addr := c.fetchWord()
		c.Reg.SetPC(addr)
		return 10
	case 2:
		n := c.fetchByte()
		port := uint16(c.Reg.Get8(A))<<8 | uint16(n)
		bus.Out(port, c.Reg.Get8(A))
		c.Reg.Set16(WZ, (uint16(c.Reg.Get8(A))<<8|uint16(n))+1)
		return 11
	case 3:
		n := c.fetchByte()
		port := uint16(c.Reg.Get8(A))<<8 | uint16(n)
		c.Reg.Set8(A, bus.In(port))
		c.Reg.Set16(WZ, port+1)
		return 11
	case 4:
		sp := c.Reg.Get16(SP)
		v := c.Mem.R16(sp)
		c.Mem.W16(sp, c.Reg.R16SP(2))
		c.Reg.SetR16SP(2, v)
		c.Reg.Set16(WZ, v)
		return 19
	case 5:
		c.Reg.Swap(DE, HL)
		return 4
	case 6:
		c.IFF1 = false
		c.IFF2 = false
		return 4
	default:
		c.EnableInterrupt = true
		c.IFF1 = true
		c.IFF2 = true
		return 4
	}
}

