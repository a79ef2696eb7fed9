package cpu

import "testing"

func TestDeliverTrapMachineDirectMode(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.SetPC(0x2000)
	ctx.CSR().mtvec = 0x8000 // direct mode, mode bits clear

	DeliverTrap(ctx, EnvironmentCallFromMMode.Cause(), false, 0)

	if ctx.CSR().mepc != 0x2000 {
		t.Errorf("mepc = %#x, want 0x2000", ctx.CSR().mepc)
	}
	if ctx.CSR().mcause != EnvironmentCallFromMMode.Cause() {
		t.Errorf("mcause = %d, want %d", ctx.CSR().mcause, EnvironmentCallFromMMode.Cause())
	}
	if ctx.PC() != 0x8000 {
		t.Errorf("pc = %#x, want 0x8000 (direct mode)", ctx.PC())
	}
}

func TestDeliverTrapVectoredMode(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.SetPC(0x2000)
	ctx.CSR().mtvec = 0x8000 | 1 // vectored mode

	DeliverTrap(ctx, 7, true, 0) // MTI interrupt, cause=7

	want := uint64(0x8000) + 4*7
	if ctx.PC() != want {
		t.Errorf("pc = %#x, want %#x (vectored)", ctx.PC(), want)
	}
}

func TestDeliverTrapDelegatedToSupervisor(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.CSR().Priv = Supervisor
	ctx.CSR().medeleg = 1 << EnvironmentCallFromSMode.Cause()
	ctx.CSR().stvec = 0x9000
	ctx.SetPC(0x3000)

	DeliverTrap(ctx, EnvironmentCallFromSMode.Cause(), false, 0)

	if ctx.CSR().Priv != Supervisor {
		t.Errorf("priv = %v, want Supervisor", ctx.CSR().Priv)
	}
	if ctx.CSR().sepc != 0x3000 {
		t.Errorf("sepc = %#x, want 0x3000", ctx.CSR().sepc)
	}
	if ctx.PC() != 0x9000 {
		t.Errorf("pc = %#x, want 0x9000", ctx.PC())
	}
}

func TestDeliverTrapFromMachineNeverDelegates(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.CSR().Priv = Machine
	ctx.CSR().medeleg = ^uint64(0) // delegate everything
	ctx.CSR().mtvec = 0x8000
	ctx.SetPC(0x3000)

	DeliverTrap(ctx, IllegalInstruction.Cause(), false, 0)

	if ctx.CSR().Priv != Machine {
		t.Errorf("priv = %v, want Machine (delegation never applies from M-mode)", ctx.CSR().Priv)
	}
	if ctx.PC() != 0x8000 {
		t.Errorf("pc = %#x, want 0x8000", ctx.PC())
	}
}

func TestPendingInterruptRespectsMIEGate(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.CSR().Priv = Machine
	ctx.PostInterrupt(mipMEIP)
	ctx.CSR().mie = mipMEIP

	if _, ok := PendingInterrupt(ctx); ok {
		t.Fatalf("PendingInterrupt: want false with mstatus.MIE clear")
	}

	ctx.CSR().mstatus |= mstatusMIE
	cause, ok := PendingInterrupt(ctx)
	if !ok {
		t.Fatalf("PendingInterrupt: want true with mstatus.MIE set")
	}
	if cause != causeMEI {
		t.Errorf("cause = %d, want causeMEI (%d)", cause, causeMEI)
	}
}

func TestDeliverTrapDropsReservation(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.Memory().SetReservation(ctx.HartID(), 0x4000)

	DeliverTrap(ctx, IllegalInstruction.Cause(), false, 0)

	if ctx.Memory().CheckReservation(ctx.HartID(), 0x4000) {
		t.Errorf("reservation survived a trap, want it dropped")
	}
}

func TestPendingInterruptPriorityPicksHighest(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.CSR().Priv = Machine
	ctx.CSR().mstatus |= mstatusMIE
	ctx.PostInterrupt(mipSTIP | mipMEIP)
	ctx.CSR().mie = mipSTIP | mipMEIP

	cause, ok := PendingInterrupt(ctx)
	if !ok {
		t.Fatalf("PendingInterrupt: want true")
	}
	if cause != causeMEI {
		t.Errorf("cause = %d, want causeMEI (%d) to win over causeSTI", cause, causeMEI)
	}
}
