package cpu

// CPU bundles a RegisterFile and a Memory image with the interrupt and
// halt runtime state, and exposes the single synchronous Step entry
// point that runs one instruction or accepts one pending interrupt.
type CPU struct {
	Reg *RegisterFile
	Mem *Memory

	IFF1 bool
	IFF2 bool

	Halt bool

	// EnableInterrupt implements EI's one-instruction acceptance deferral:
	// EI sets it true; the NEXT Step clears it before checking for INT.
	EnableInterrupt bool

	NMIPending bool
	IntPending bool
}

// NewCPU returns a CPU wired to the given memory image, registers zeroed.
func NewCPU(mem *Memory) *CPU {
	return &CPU{Reg: NewRegisterFile(), Mem: mem}
}

// Reset drives the power-on/reset state: PC=0, IM=0, I=0, R=0, WZ=0,
// interrupts disabled.
func (c *CPU) Reset() {
	c.Reg.Reset()
	c.IFF1 = false
	c.IFF2 = false
	c.Halt = false
	c.EnableInterrupt = false
	c.NMIPending = false
	c.IntPending = false
}

// Step fetches, decodes, and executes one instruction (or accepts one
// pending interrupt) and returns the T-states consumed.
func (c *CPU) Step(bus BusPort) int {
	if c.NMIPending {
		c.NMIPending = false
		return c.acceptNMI()
	}

	deferred := c.EnableInterrupt
	c.EnableInterrupt = false

	if c.IntPending && c.IFF1 && !deferred {
		c.IntPending = false
		return c.acceptINT(bus)
	}

	return c.fetchAndExecute(bus)
}

// push16 pushes a 16-bit value onto the stack, high byte at the higher
// address per the Z80's downward-growing stack convention.
func (c *CPU) push16(v uint16) {
	sp := c.Reg.Get16(SP) - 2
	c.Reg.Set16(SP, sp)
	c.Mem.W16(sp, v)
}

// pop16 pops a 16-bit value off the stack.
func (c *CPU) pop16() uint16 {
	sp := c.Reg.Get16(SP)
	v := c.Mem.R16(sp)
	c.Reg.Set16(SP, sp+2)
	return v
}

// fetchOpcode performs the M1 cycle: read mem[PC], advance PC, bump R.
func (c *CPU) fetchOpcode() uint8 {
	op := c.Mem.R8(c.Reg.PC())
	c.Reg.IncPC(1)
	c.Reg.BumpR()
	return op
}
