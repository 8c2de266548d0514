package cpu

// Interrupt state lives directly on CPU as the NMIPending/IntPending
// flags and the IFF1/IFF2 fields, with the interrupt mode in Reg.IM;
// this file holds the acceptance rules and the host-facing raise API.

// RaiseNMI latches a non-maskable interrupt for acceptance on the next
// Step. NMI acceptance ignores IFF1 (it cannot be masked) but clears it.
func (c *CPU) RaiseNMI() { c.NMIPending = true }

// RaiseINT latches a maskable interrupt for acceptance on the next Step,
// subject to IFF1 and the EI one-instruction deferral.
func (c *CPU) RaiseINT() { c.IntPending = true }

// acceptNMI pushes PC, jumps to 0x0066, clears IFF1 only (IFF2 is
// preserved so the handler can restore interrupt state on RETN), and
// clears halt. 11 T-states.
func (c *CPU) acceptNMI() int {
	if c.Halt {
		c.Reg.IncPC(1)
		c.Halt = false
	}
	c.push16(c.Reg.PC())
	c.Reg.SetPC(0x0066)
	c.IFF1 = false
	return 11
}

// acceptINT implements maskable-interrupt acceptance for IM 0/1/2; both
// NMI and INT acceptance clear the halt latch and, if halted, advance PC
// past the HALT opcode so execution resumes at the following instruction.
func (c *CPU) acceptINT(bus BusPort) int {
	if c.Halt {
		c.Reg.IncPC(1)
		c.Halt = false
	}
	c.IFF1 = false
	c.IFF2 = false

	switch c.Reg.IM {
	case 0:
		// The device supplies an opcode byte on the data bus; the core
		// executes it directly (in practice almost always RST 38h).
		op := bus.INTData()
		c.execOpcode(op, bus)
		return 13
	case 1:
		c.push16(c.Reg.PC())
		c.Reg.SetPC(0x0038)
		return 13
	default: // IM 2
		data := bus.INTData()
		vecAddr := uint16(c.Reg.I)<<8 | uint16(data&0xFE)
		target := c.Mem.R16(vecAddr)
		c.push16(c.Reg.PC())
		c.Reg.SetPC(target)
		c.Reg.Set16(WZ, target)
		return 19
	}
}
