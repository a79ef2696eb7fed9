package memory

import (
	"testing"

	dev "github.com/rv64emu/rv64emu/emu/device"
)

func TestAddRegionRejectsOverlap(t *testing.T) {
	u := NewUnit()
	if err := u.AddRegion(0, dev.NewRAM(0x1000)); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if err := u.AddRegion(0x800, dev.NewRAM(0x1000)); err == nil {
		t.Fatalf("AddRegion: want overlap error, got nil")
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	u := NewUnit()
	if err := u.AddRegion(0x1000, dev.NewRAM(0x1000)); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}

	if err := u.WriteDouble(0x1000, 0x0123456789abcdef); err != nil {
		t.Fatalf("WriteDouble: %v", err)
	}
	v, err := u.ReadDouble(0x1000)
	if err != nil {
		t.Fatalf("ReadDouble: %v", err)
	}
	if v != 0x0123456789abcdef {
		t.Errorf("ReadDouble: got %#x, want 0x0123456789abcdef", v)
	}

	if err := u.WriteByte(0x1008, 0x11); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if err := u.WriteByte(0x1009, 0x22); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if err := u.WriteByte(0x100a, 0x33); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if err := u.WriteByte(0x100b, 0x44); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	word, err := u.ReadWord(0x1008)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if word != 0x44332211 {
		t.Errorf("ReadWord little-endian recompose: got %#x, want 0x44332211", word)
	}
}

func TestRouteRejectsOutOfRange(t *testing.T) {
	u := NewUnit()
	if err := u.AddRegion(0x1000, dev.NewRAM(0x100)); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if _, err := u.ReadByte(0x2000); err == nil {
		t.Fatalf("ReadByte out of range: want error, got nil")
	}
	if _, err := u.ReadWord(0x10fe); err == nil {
		t.Fatalf("ReadWord spilling past region end: want error, got nil")
	}
}

func TestReservationLifecycle(t *testing.T) {
	u := NewUnit()
	u.SetReservation(0, 0x1000)
	if !u.CheckReservation(0, 0x1000) {
		t.Fatalf("CheckReservation: want true after SetReservation")
	}
	u.ClearReservationsForAddr(0x1000)
	if u.CheckReservation(0, 0x1000) {
		t.Fatalf("CheckReservation: want false after ClearReservationsForAddr")
	}
}

func TestClearReservationDropsRegardlessOfAddr(t *testing.T) {
	u := NewUnit()
	u.SetReservation(1, 0x2000)
	u.ClearReservation(1)
	if u.CheckReservation(1, 0x2000) {
		t.Fatalf("CheckReservation: want false after ClearReservation")
	}
}

func TestSizeSumsAllRegions(t *testing.T) {
	u := NewUnit()
	if err := u.AddRegion(0, dev.NewRAM(0x1000)); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if err := u.AddRegion(0x2000, dev.NewRAM(0x100)); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if got := u.Size(); got != 0x1100 {
		t.Errorf("Size = %#x, want 0x1100", got)
	}
}

func TestAMOWordReadModifyWrite(t *testing.T) {
	u := NewUnit()
	if err := u.AddRegion(0, dev.NewRAM(0x1000)); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	if err := u.WriteWord(0x40, 10); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	old, err := u.AMOWord(0x40, func(cur uint32) uint32 { return cur + 5 })
	if err != nil {
		t.Fatalf("AMOWord: %v", err)
	}
	if old != 10 {
		t.Errorf("AMOWord old = %d, want 10", old)
	}
	v, _ := u.ReadWord(0x40)
	if v != 15 {
		t.Errorf("AMOWord result = %d, want 15", v)
	}
}

func TestFramebufferIsSecondRegionShape(t *testing.T) {
	u := NewUnit()
	fb := dev.NewFramebuffer(4, 2, 3) // 3 bytes per pixel; the 5-byte bulk write below is not a multiple of 4
	if err := u.AddRegion(0x9000, fb); err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	buf := []byte{1, 2, 3, 4, 5}
	if err := u.Write(0x9000, buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := make([]byte, len(buf))
	if err := u.Read(0x9000, out); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range buf {
		if out[i] != buf[i] {
			t.Errorf("byte %d: got %d want %d", i, out[i], buf[i])
		}
	}
}
