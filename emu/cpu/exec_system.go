package cpu

// execSystem implements the SYSTEM opcode: CSRRW/CSRRS/CSRRC and their
// immediate forms, plus ECALL/EBREAK and the privileged return
// instructions (spec §4.7, §4.10).
func execSystem(ctx *Context, insn uint32) error {
	switch funct3(insn) {
	case 0b000:
		return execPrivileged(ctx, insn)
	case 0b001:
		return execCSR(ctx, insn, csrOpWrite, ctx.Reg(rs1(insn)))
	case 0b010:
		return execCSR(ctx, insn, csrOpSet, ctx.Reg(rs1(insn)))
	case 0b011:
		return execCSR(ctx, insn, csrOpClear, ctx.Reg(rs1(insn)))
	case 0b101:
		return execCSR(ctx, insn, csrOpWrite, uint64(rs1(insn)))
	case 0b110:
		return execCSR(ctx, insn, csrOpSet, uint64(rs1(insn)))
	case 0b111:
		return execCSR(ctx, insn, csrOpClear, uint64(rs1(insn)))
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}
}

type csrOp int

const (
	csrOpWrite csrOp = iota
	csrOpSet
	csrOpClear
)

// execCSR implements the six CSRRx/CSRRxI forms. A destination of x0 and
// CSRRS/CSRRC with rs1==x0 both suppress the read or write side effect
// per the architectural "no side effect" rule, which matters for
// write-1-to-clear style CSRs; this core has none, so the distinction is
// only behaviorally visible as "don't bother reading/writing."
func execCSR(ctx *Context, insn uint32, op csrOp, operand uint64) error {
	csr := uint16(immI(insn) & 0xfff)
	file := ctx.CSR()

	rdIdx := rd(insn)
	rs1Idx := rs1(insn)

	readNeeded := rdIdx != 0
	writeNeeded := true
	if op != csrOpWrite && rs1Idx == 0 {
		writeNeeded = false
	}

	var old uint64
	var err error
	if readNeeded || writeNeeded {
		old, err = file.Read(csr, false)
		if err != nil {
			return err
		}
	}

	if writeNeeded {
		var newVal uint64
		switch op {
		case csrOpWrite:
			newVal = operand
		case csrOpSet:
			newVal = old | operand
		case csrOpClear:
			newVal = old &^ operand
		}
		if err := file.Write(csr, newVal, false); err != nil {
			return err
		}
	}

	if readNeeded {
		ctx.SetReg(rdIdx, old)
	}
	return nil
}

// execPrivileged implements ECALL, EBREAK, MRET, SRET, and WFI, all
// sharing funct3==0 with rd==rs1==x0 (spec §4.10).
func execPrivileged(ctx *Context, insn uint32) error {
	switch funct12(insn) {
	case 0x000: // ECALL
		switch ctx.CSR().Priv {
		case Machine:
			return Trap(EnvironmentCallFromMMode)
		case Supervisor:
			return Trap(EnvironmentCallFromSMode)
		default:
			return Trap(EnvironmentCallFromUMode)
		}
	case 0x001: // EBREAK
		return Trap(Breakpoint)
	case 0x302: // MRET
		return execMret(ctx)
	case 0x102: // SRET
		return execSret(ctx)
	case 0x105: // WFI: treated as a no-op, spec carries no idle/power state
		return nil
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}
}

func funct12(insn uint32) uint32 { return insn >> 20 }

// execMret returns from a machine-mode trap: restores MIE from MPIE,
// sets MPIE, restores privilege from MPP (then resets MPP to U), and
// jumps to MEPC (spec §4.10, trap/return symmetry).
func execMret(ctx *Context) error {
	f := ctx.CSR()
	mstatus, _ := f.Read(csrMstatus, true)

	mpp := Privilege((mstatus & mstatusMPP) >> mstatusMPPShift)
	mpie := mstatus&mstatusMPIE != 0

	newStatus := mstatus &^ (mstatusMIE | mstatusMPIE | mstatusMPP)
	if mpie {
		newStatus |= mstatusMIE
	}
	newStatus |= mstatusMPIE
	if mpp != Machine {
		newStatus &^= mstatusMPRV
	}
	_ = f.Write(csrMstatus, newStatus, true)

	f.Priv = mpp
	epc, _ := f.Read(csrMepc, true)
	ctx.SetPC(epc)
	return nil
}

// execSret returns from a supervisor-mode trap: restores SIE from SPIE,
// sets SPIE, restores privilege from SPP (then resets SPP to U), and
// jumps to SEPC.
func execSret(ctx *Context) error {
	f := ctx.CSR()
	if f.Priv == Machine && f.mstatus&mstatusTSR != 0 {
		return Trap(IllegalInstruction)
	}

	mstatus, _ := f.Read(csrMstatus, true)
	spp := Privilege((mstatus & mstatusSPP) >> 8)
	spie := mstatus&mstatusSPIE != 0

	newStatus := mstatus &^ (mstatusSIE | mstatusSPIE | mstatusSPP)
	if spie {
		newStatus |= mstatusSIE
	}
	newStatus |= mstatusSPIE
	if spp != Machine {
		newStatus &^= mstatusMPRV
	}
	_ = f.Write(csrMstatus, newStatus, true)

	f.Priv = spp
	epc, _ := f.Read(csrSepc, true)
	ctx.SetPC(epc)
	return nil
}
