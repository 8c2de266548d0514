package cpu

// aluApply performs the 8-bit ALU operation selected by the 3-bit `y`
// field (ADD,ADC,SUB,SBC,AND,XOR,OR,CP) against A and operand, writing A
// and F except for CP, which only sets flags.
func (c *CPU) aluApply(y int, operand uint8) {
	a := c.Reg.Get8(A)
	f := c.Reg.Get8(F)
	var res, nf uint8
	switch y {
	case 0: // ADD
		res, nf = Add8(a, operand)
	case 1: // ADC
		res, nf = Adc8(a, operand, f)
	case 2: // SUB
		res, nf = Sub8(a, operand)
	case 3: // SBC
		res, nf = Sbc8(a, operand, f)
	case 4: // AND
		res, nf = And8(a, operand)
	case 5: // XOR
		res, nf = Xor8(a, operand)
	case 6: // OR
		res, nf = Or8(a, operand)
	case 7: // CP
		nf = Cp8(a, operand)
		c.Reg.Set8(F, nf)
		return
	}
	c.Reg.Set8(A, res)
	c.Reg.Set8(F, nf)
}

// rotOrShift applies the CB-style rotate/shift selected by `y` to v,
// returning the new value and flags. y: 0=RLC 1=RRC 2=RL 3=RR 4=SLA
// 5=SRA 6=SLL 7=SRL.
func rotOrShift(y int, v, oldF uint8) (uint8, uint8) {
	switch y {
	case 0:
		return Rlc8(v)
	case 1:
		return Rrc8(v)
	case 2:
		return Rl8(v, oldF)
	case 3:
		return Rr8(v, oldF)
	case 4:
		return Sla8(v)
	case 5:
		return Sra8(v)
	case 6:
		return Sll8(v)
	default:
		return Srl8(v)
	}
}

// signed8 reinterprets v as a two's-complement displacement.
func signed8(v uint8) int32 { return int32(int8(v)) }
