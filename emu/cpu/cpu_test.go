package cpu

import (
	"testing"

	dev "github.com/rv64emu/rv64emu/emu/device"
	mem "github.com/rv64emu/rv64emu/emu/memory"
)

func newTestContext(t *testing.T, code []uint32) *Context {
	t.Helper()
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
	return NewContext(0, 0, unit)
}

// encodeR builds an R-type word: funct7 rs2 rs1 funct3 rd opcode.
func encodeR(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(opcode, funct3, rd, rs1 uint32, imm int32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeJ(opcode, rd uint32, imm int32) uint32 {
	u := uint32(imm)
	word := (u & (1 << 20)) << (31 - 20)
	word |= (u & 0x7fe) << (21 - 1)
	word |= (u & (1 << 11)) << (20 - 11)
	word |= u & 0xff000
	word |= rd << 7
	word |= opcode
	return word
}

func TestExecOpAdd(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.SetReg(1, 10)
	ctx.SetReg(2, 32)
	insn := encodeR(opOp, 0b000, 0, 3, 1, 2)
	if err := Execute(ctx, insn); err != nil {
		t.Fatalf("ADD: %v", err)
	}
	if got := ctx.Reg(3); got != 42 {
		t.Errorf("ADD: rd = %d, want 42", got)
	}
}

func TestExecOpSraArithmeticShift(t *testing.T) {
	ctx := newTestContext(t, nil)
	minus8 := int64(-8)
	ctx.SetReg(1, uint64(minus8))
	ctx.SetReg(2, 1)
	insn := encodeR(opOp, 0b101, 0b0100000, 3, 1, 2)
	if err := Execute(ctx, insn); err != nil {
		t.Fatalf("SRA: %v", err)
	}
	if got := int64(ctx.Reg(3)); got != -4 {
		t.Errorf("SRA: rd = %d, want -4", got)
	}
}

func TestExecOpImmSltSigned(t *testing.T) {
	ctx := newTestContext(t, nil)
	minus1 := int64(-1)
	ctx.SetReg(1, uint64(minus1))
	insn := encodeI(opOpImm, 0b010, 2, 1, 0)
	if err := Execute(ctx, insn); err != nil {
		t.Fatalf("SLTI: %v", err)
	}
	if got := ctx.Reg(2); got != 1 {
		t.Errorf("SLTI: rd = %d, want 1 (-1 < 0)", got)
	}
}

func TestExecJalLinksAndJumps(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.SetPC(0x100)
	insn := encodeJ(opJal, 1, 16)
	if err := Execute(ctx, insn); err != nil {
		t.Fatalf("JAL: %v", err)
	}
	if got := ctx.Reg(1); got != 0x104 {
		t.Errorf("JAL: link = %#x, want 0x104", got)
	}
	if got := ctx.PC(); got != 0x110 {
		t.Errorf("JAL: pc = %#x, want 0x110", got)
	}
}

func TestLRSCRoundTrip(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.SetReg(1, 0x40)
	ctx.SetReg(2, 0xdeadbeef)

	lr := encodeR(opAMO, 0b010, amoLR<<2, 3, 1, 0)
	if err := Execute(ctx, lr); err != nil {
		t.Fatalf("LR.W: %v", err)
	}

	sc := encodeR(opAMO, 0b010, amoSC<<2, 4, 1, 2)
	if err := Execute(ctx, sc); err != nil {
		t.Fatalf("SC.W: %v", err)
	}
	if got := ctx.Reg(4); got != 0 {
		t.Errorf("SC.W after LR.W: rd = %d, want 0 (success)", got)
	}
	v, err := ctx.Memory().ReadWord(0x40)
	if err != nil || v != 0xdeadbeef {
		t.Errorf("SC.W did not store: v=%#x err=%v", v, err)
	}
}

func TestSCWithoutReservationFails(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.SetReg(1, 0x40)
	ctx.SetReg(2, 0x1)

	sc := encodeR(opAMO, 0b010, amoSC<<2, 4, 1, 2)
	if err := Execute(ctx, sc); err != nil {
		t.Fatalf("SC.W: %v", err)
	}
	if got := ctx.Reg(4); got != 1 {
		t.Errorf("SC.W without reservation: rd = %d, want 1 (failure)", got)
	}
}

func TestAMOAddMisalignedTraps(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.SetReg(1, 0x41) // not word-aligned
	insn := encodeR(opAMO, 0b010, amoAdd<<2, 3, 1, 2)
	err := Execute(ctx, insn)
	exc, ok := AsException(err)
	if !ok {
		t.Fatalf("AMOADD.W misaligned: want Exception, got %v", err)
	}
	if exc.Kind != LoadAddressMisaligned {
		t.Errorf("AMOADD.W misaligned: kind = %v, want LoadAddressMisaligned", exc.Kind)
	}
}

func TestECALLFromMachineModeTraps(t *testing.T) {
	ctx := newTestContext(t, nil)
	insn := encodeI(opSystem, 0, 0, 0, 0)
	err := Execute(ctx, insn)
	exc, ok := AsException(err)
	if !ok {
		t.Fatalf("ECALL: want Exception, got %v", err)
	}
	if exc.Kind != EnvironmentCallFromMMode {
		t.Errorf("ECALL: kind = %v, want EnvironmentCallFromMMode", exc.Kind)
	}
}

func TestDivByZero(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.SetReg(1, 17)
	ctx.SetReg(2, 0)
	insn := encodeR(opOp, 0b100, 0b0000001, 3, 1, 2) // DIV
	if err := Execute(ctx, insn); err != nil {
		t.Fatalf("DIV: %v", err)
	}
	if got := ctx.Reg(3); got != ^uint64(0) {
		t.Errorf("DIV by zero: rd = %#x, want all-ones", got)
	}
}

func TestDivOverflow(t *testing.T) {
	ctx := newTestContext(t, nil)
	intMin, minus1 := int64(-1)<<63, int64(-1)
	ctx.SetReg(1, uint64(intMin))
	ctx.SetReg(2, uint64(minus1))
	insn := encodeR(opOp, 0b100, 0b0000001, 3, 1, 2) // DIV
	if err := Execute(ctx, insn); err != nil {
		t.Fatalf("DIV: %v", err)
	}
	if got := ctx.Reg(3); got != uint64(intMin) {
		t.Errorf("DIV overflow: rd = %#x, want INT64_MIN", got)
	}
}

func TestRemByZeroReturnsDividend(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.SetReg(1, 123)
	ctx.SetReg(2, 0)
	insn := encodeR(opOp, 0b110, 0b0000001, 3, 1, 2) // REM
	if err := Execute(ctx, insn); err != nil {
		t.Fatalf("REM: %v", err)
	}
	if got := ctx.Reg(3); got != 123 {
		t.Errorf("REM by zero: rd = %d, want 123", got)
	}
}

func TestStepAdvancesPCByFourOnNonControlFlow(t *testing.T) {
	ctx := newTestContext(t, []uint32{encodeR(opOp, 0, 0, 1, 0, 0)}) // ADD x1, x0, x0
	if exc := Step(ctx); exc != nil {
		t.Fatalf("Step: %v", exc)
	}
	if got := ctx.PC(); got != 4 {
		t.Errorf("PC after ADD = %#x, want 4", got)
	}
}

func TestStepDeliversIllegalInstructionTrap(t *testing.T) {
	ctx := newTestContext(t, []uint32{0}) // all-zero word is not a valid opcode encoding we dispatch
	exc := Step(ctx)
	if exc == nil {
		t.Fatalf("Step: want illegal-instruction exception, got nil")
	}
	if exc.Kind != IllegalInstruction {
		t.Errorf("Step: kind = %v, want IllegalInstruction", exc.Kind)
	}
	if got := ctx.PC(); got != ctx.CSR().mtvec {
		t.Errorf("PC after trap = %#x, want mtvec %#x", got, ctx.CSR().mtvec)
	}
	if got := ctx.CSR().mcause; got != IllegalInstruction.Cause() {
		t.Errorf("mcause = %d, want %d", got, IllegalInstruction.Cause())
	}
}

func TestCSRWriteReadPrivilegeGating(t *testing.T) {
	ctx := newTestContext(t, nil)
	ctx.CSR().Priv = Supervisor

	// CSRRW writing MSTATUS (Machine-only) from Supervisor mode must trap.
	insn := encodeI(opSystem, 0b001, 0, 1, int32(csrMstatus))
	err := Execute(ctx, insn)
	exc, ok := AsException(err)
	if !ok || exc.Kind != IllegalInstruction {
		t.Fatalf("CSRRW mstatus from S-mode: want IllegalInstruction, got %v", err)
	}
}

func TestSstatusProjectsMstatus(t *testing.T) {
	f := NewCSRFile(0)
	f.Priv = Machine
	if err := f.Write(csrMstatus, mstatusSPP|mstatusFS, true); err != nil {
		t.Fatalf("Write mstatus: %v", err)
	}
	v, err := f.Read(csrSstatus, true)
	if err != nil {
		t.Fatalf("Read sstatus: %v", err)
	}
	if v&mstatusSPP == 0 {
		t.Errorf("sstatus missing SPP projected from mstatus")
	}
	if v&mstatusSD == 0 {
		t.Errorf("sstatus missing SD, FS=dirty should set it")
	}
}
