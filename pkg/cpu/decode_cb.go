package cpu

// execCB implements the plain (unindexed) CB prefix: rotate/shift, BIT,
// RES, SET, operating on r8i(z) or (HL) when z=6.
func (c *CPU) execCB(bus BusPort) int {
	op := c.fetchOpcode()
	x := int(op >> 6)
	y := int((op >> 3) & 7)
	z := int(op & 7)

	if z == fHLInd {
		addr := c.Reg.Get16(HL)
		v := c.Mem.R8(addr)
		switch x {
		case 0:
			res, f := rotOrShift(y, v, c.Reg.Get8(F))
			c.Mem.W8(addr, res)
			c.Reg.Set8(F, f)
		case 1:
			c.Reg.Set16(WZ, addr)
			f := BitIndirect(v, uint8(y), c.Reg.Get8(F), uint8(addr>>8))
			c.Reg.Set8(F, f)
			return 12
		case 2:
			c.Mem.W8(addr, v&^(1<<uint(y)))
		default:
			c.Mem.W8(addr, v|(1<<uint(y)))
		}
		return 15
	}

	v := c.Reg.R8i(z)
	switch x {
	case 0:
		res, f := rotOrShift(y, v, c.Reg.Get8(F))
		c.Reg.SetR8i(z, res)
		c.Reg.Set8(F, f)
	case 1:
		f := Bit8(v, uint8(y), c.Reg.Get8(F))
		c.Reg.Set8(F, f)
	case 2:
		c.Reg.SetR8i(z, v&^(1<<uint(y)))
	default:
		c.Reg.SetR8i(z, v|(1<<uint(y)))
	}
	return 8
}

// execIndexedCB implements DD CB d op / FD CB d op: the displacement
// byte precedes the final op byte, unlike every other prefixed form —
// the decoder must not advance over op before reading d. Register-field
// results of non-BIT operations also write back to the matching 8-bit
// register (undocumented "CB with register copy" behavior), except when
// z=6, which only ever addresses memory.
func (c *CPU) execIndexedCB(bus BusPort) int {
	d := signed8(c.fetchByte())
	op := c.fetchOpcode()
	base := int32(c.Reg.R16SP(2))
	addr := uint16(base + d)
	c.Reg.Set16(WZ, addr)

	x := int(op >> 6)
	y := int((op >> 3) & 7)
	z := int(op & 7)

	v := c.Mem.R8(addr)
	switch x {
	case 0:
		res, f := rotOrShift(y, v, c.Reg.Get8(F))
		c.Mem.W8(addr, res)
		c.Reg.Set8(F, f)
		if z != fHLInd {
			c.Reg.SetR8i(z, res)
		}
	case 1:
		f := BitIndirect(v, uint8(y), c.Reg.Get8(F), uint8(addr>>8))
		c.Reg.Set8(F, f)
	case 2:
		res := v &^ (1 << uint(y))
		c.Mem.W8(addr, res)
		if z != fHLInd {
			c.Reg.SetR8i(z, res)
		}
	default:
		res := v | (1 << uint(y))
		c.Mem.W8(addr, res)
		if z != fHLInd {
			c.Reg.SetR8i(z, res)
		}
	}
	if x == 1 {
		return 16
	}
	return 19
}
