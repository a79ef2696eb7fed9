package cpu

// interruptCause bits, used only as mcause/scause payloads; the interrupt
// bit (bit 63) is set by DeliverTrap.
const (
	interruptBit uint64 = 1 << 63

	causeSSI uint64 = 1
	causeMSI uint64 = 3
	causeSTI uint64 = 5
	causeMTI uint64 = 7
	causeSEI uint64 = 9
	causeMEI uint64 = 11
)

// interruptPriority lists interrupt cause codes in the architectural
// priority order used to pick among several pending-and-enabled
// interrupts (highest first), per the privileged spec's interrupt
// priority rule referenced in spec §4.10.
var interruptPriority = []uint64{causeMEI, causeMSI, causeMTI, causeSEI, causeSSI, causeSTI}

var causeToMIPBit = map[uint64]uint64{
	causeMEI: mipMEIP,
	causeMSI: mipMSIP,
	causeMTI: mipMTIP,
	causeSEI: mipSEIP,
	causeSSI: mipSSIP,
	causeSTI: mipSTIP,
}

// PendingInterrupt scans MIP & MIE in priority order and returns the
// highest-priority interrupt cause that is both pending and enabled for
// the current privilege level, or ok=false if none should be taken (spec
// §4.10). Global interrupt enablement is gated by MSTATUS.MIE/SIE
// depending on whether the interrupt would be taken in machine or a
// lower mode.
func PendingInterrupt(ctx *Context) (cause uint64, ok bool) {
	f := ctx.CSR()
	pending := f.mip & f.mie
	if pending == 0 {
		return 0, false
	}

	for _, c := range interruptPriority {
		bit := causeToMIPBit[c]
		if pending&bit == 0 {
			continue
		}
		delegatedToS := f.mideleg&bit != 0
		if delegatedToS {
			// A trap taken into a stricter privilege level than the
			// hart currently holds is never masked by that level's
			// enable bit; only Supervisor-in-Supervisor is gated here.
			if f.Priv == Supervisor && f.mstatus&mstatusSIE == 0 {
				continue
			}
		} else {
			if f.Priv == Machine && f.mstatus&mstatusMIE == 0 {
				continue
			}
		}
		return c, true
	}
	return 0, false
}

// DeliverTrap delivers either a synchronous exception (cause from
// Exception.Kind, interrupt bit clear) or an asynchronous interrupt
// (isInterrupt true, interrupt bit set) according to delegation (spec
// §4.10): delegated traps go to Supervisor via stvec/sepc/scause/stval
// and clear/set SIE/SPIE/SPP; non-delegated traps go to Machine via
// mtvec/mepc/mcause/mtval and clear/set MIE/MPIE/MPP. Delegation from
// Machine mode is never honored, matching the privileged architecture.
func DeliverTrap(ctx *Context, cause uint64, isInterrupt bool, tval uint64) {
	f := ctx.CSR()
	full := cause
	if isInterrupt {
		full |= interruptBit
	}

	// A trap drops any outstanding LR reservation: the handler runs
	// arbitrary code before any matching SC, so forward progress on the
	// reservation can't be guaranteed across it.
	ctx.Memory().ClearReservation(ctx.HartID())

	delegated := f.Priv != Machine
	if delegated {
		if isInterrupt {
			delegated = f.mideleg&(uint64(1)<<cause) != 0
		} else {
			delegated = f.medeleg&(uint64(1)<<cause) != 0
		}
	}

	if delegated {
		deliverToSupervisor(ctx, f, full, tval)
	} else {
		deliverToMachine(ctx, f, full, tval)
	}
}

func deliverToMachine(ctx *Context, f *CSRFile, cause, tval uint64) {
	f.mepc = ctx.PC()
	f.mcause = cause
	f.mtval = tval

	mpie := f.mstatus&mstatusMIE != 0
	f.mstatus &^= mstatusMIE | mstatusMPIE | mstatusMPP
	if mpie {
		f.mstatus |= mstatusMPIE
	}
	f.mstatus |= uint64(f.Priv) << mstatusMPPShift

	f.Priv = Machine
	ctx.SetPC(trapTarget(f.mtvec, cause))
}

func deliverToSupervisor(ctx *Context, f *CSRFile, cause, tval uint64) {
	f.sepc = ctx.PC()
	f.scause = cause
	f.stval = tval

	sie := f.mstatus&mstatusSIE != 0
	f.mstatus &^= mstatusSIE | mstatusSPIE | mstatusSPP
	if sie {
		f.mstatus |= mstatusSPIE
	}
	if f.Priv == Supervisor {
		f.mstatus |= mstatusSPP
	}

	f.Priv = Supervisor
	ctx.SetPC(trapTarget(f.stvec, cause))
}

// trapTarget resolves a tvec CSR into the actual handler address: mode
// bits [1:0] select direct (0, always base) or vectored (1, base +
// 4*cause for interrupts only) delivery.
func trapTarget(tvec, cause uint64) uint64 {
	base := tvec &^ 0x3
	mode := tvec & 0x3
	if mode == 1 && cause&interruptBit != 0 {
		return base + 4*(cause&^interruptBit)
	}
	return base
}
