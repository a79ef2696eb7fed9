package cpu

// execJal implements JAL: rd = pc+4, pc += imm (spec §4.5).
func execJal(ctx *Context, insn uint32) error {
	target := ctx.PC() + immJ(insn)
	if target%2 != 0 {
		return TrapVal(InstructionAddressMisaligned, target)
	}
	ctx.SetReg(rd(insn), ctx.PC()+4)
	ctx.SetPC(target)
	return nil
}

// execJalr implements JALR: rd = pc+4, pc = (rs1+imm) & ^1 (spec §4.5).
// The link register is computed before the write to rd so that JALR x1,x1
// (rd==rs1) behaves correctly.
func execJalr(ctx *Context, insn uint32) error {
	target := (ctx.Reg(rs1(insn)) + immI(insn)) &^ 1
	if target%2 != 0 {
		return TrapVal(InstructionAddressMisaligned, target)
	}
	link := ctx.PC() + 4
	ctx.SetPC(target)
	ctx.SetReg(rd(insn), link)
	return nil
}

// execBranch implements BEQ, BNE, BLT, BGE, BLTU, BGEU (spec §4.5): pc is
// only updated when the condition holds, leaving the step loop's default
// pc+4 advance to take effect otherwise.
func execBranch(ctx *Context, insn uint32) error {
	a := ctx.Reg(rs1(insn))
	b := ctx.Reg(rs2(insn))

	var taken bool
	switch funct3(insn) {
	case 0b000: // BEQ
		taken = a == b
	case 0b001: // BNE
		taken = a != b
	case 0b100: // BLT
		taken = int64(a) < int64(b)
	case 0b101: // BGE
		taken = int64(a) >= int64(b)
	case 0b110: // BLTU
		taken = a < b
	case 0b111: // BGEU
		taken = a >= b
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}

	if !taken {
		return nil
	}

	target := ctx.PC() + immB(insn)
	if target%2 != 0 {
		return TrapVal(InstructionAddressMisaligned, target)
	}
	ctx.SetPC(target)
	return nil
}
