package core

import (
	"testing"
	"time"

	"github.com/rv64emu/rv64emu/emu/cpu"
	dev "github.com/rv64emu/rv64emu/emu/device"
	mem "github.com/rv64emu/rv64emu/emu/memory"
)

// addiForever builds a tiny loop: ADDI x1, x1, 1; JAL x0, -4 (back to the
// ADDI), so the run loop has something to execute indefinitely without
// ever trapping.
func addiForever() []uint32 {
	addi := uint32(1)<<20 | 1<<15 | 0<<12 | 1<<7 | 0b0010011
	// JAL x0, -4: imm[20|10:1|11|19:12] encoded for -4.
	jalImm := int32(-4)
	u := uint32(jalImm)
	jalWord := (u & (1 << 20)) << (31 - 20)
	jalWord |= (u & 0x7fe) << (21 - 1)
	jalWord |= (u & (1 << 11)) << (20 - 11)
	jalWord |= u & 0xff000
	jalWord |= 0 << 7 // rd = x0
	jalWord |= 0b1101111
	return []uint32{addi, jalWord}
}

func newTestCore(t *testing.T) *Core {
	t.Helper()
	code := addiForever()
	ram := dev.NewRAM(4096)
	for i, w := range code {
		if err := ram.WriteWord(uint64(i*4), w); err != nil {
			t.Fatalf("seeding instruction %d: %v", i, err)
		}
	}
	unit := mem.NewUnit()
	if err := unit.AddRegion(0, ram); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	ctx := cpu.NewContext(0, 0, unit)
	return NewCore(ctx)
}

func TestStartStopRunsAndHalts(t *testing.T) {
	c := newTestCore(t)
	c.Start()
	if !c.Running() {
		t.Fatalf("Running() = false immediately after Start")
	}

	time.Sleep(20 * time.Millisecond)
	c.Stop()

	if c.Running() {
		t.Errorf("Running() = true after Stop")
	}
	if c.Context().Reg(1) == 0 {
		t.Errorf("x1 = 0, want the loop to have incremented it")
	}
}

func TestStartIsNoOpWhenAlreadyRunning(t *testing.T) {
	c := newTestCore(t)
	c.Start()
	defer c.Stop()

	c.Start() // must not deadlock or spawn a second loop
	if !c.Running() {
		t.Fatalf("Running() = false after redundant Start")
	}
}

func TestStopIsNoOpWhenNotRunning(t *testing.T) {
	c := newTestCore(t)
	c.Stop() // must not block or panic
	if c.Running() {
		t.Errorf("Running() = true for a core that was never started")
	}
}

func TestBreakpointHaltsRunLoop(t *testing.T) {
	c := newTestCore(t)
	c.SetBreakpoint(0)
	c.Start()

	deadline := time.After(500 * time.Millisecond)
	for c.Running() {
		select {
		case <-deadline:
			t.Fatalf("run loop did not stop at breakpoint in time")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if c.Context().PC() != 0 {
		t.Errorf("PC = %#x, want 0 (stopped at breakpoint)", c.Context().PC())
	}
}

func TestClearBreakpointAllowsContinuing(t *testing.T) {
	c := newTestCore(t)
	c.SetBreakpoint(4)
	c.ClearBreakpoint(4)
	c.Start()
	time.Sleep(10 * time.Millisecond)

	if !c.Running() {
		t.Errorf("Running() = false, want the loop still running past the cleared breakpoint")
	}
	c.Stop()
}

func TestStepExecutesExactlyOneInstruction(t *testing.T) {
	c := newTestCore(t)
	if exc := c.Step(); exc != nil {
		t.Fatalf("Step: unexpected trap %v", exc)
	}
	if got := c.Context().Reg(1); got != 1 {
		t.Errorf("x1 after one step = %d, want 1", got)
	}
	if got := c.Context().PC(); got != 4 {
		t.Errorf("PC after one step = %#x, want 4", got)
	}
}
