package device

import (
	"bytes"
	"testing"
)

func TestRAMScalarRoundTrip(t *testing.T) {
	r := NewRAM(16)
	if err := r.WriteWord(4, 0xdeadbeef); err != nil {
		t.Fatalf("WriteWord: %v", err)
	}
	v, err := r.ReadWord(4)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if v != 0xdeadbeef {
		t.Errorf("ReadWord = %#x, want 0xdeadbeef", v)
	}
}

func TestRAMOutOfRangeAccess(t *testing.T) {
	r := NewRAM(4)
	if _, err := r.ReadWord(2); err == nil {
		t.Fatalf("ReadWord spanning past end: want error, got nil")
	}
	if err := r.WriteByte(4, 1); err == nil {
		t.Fatalf("WriteByte at size: want error, got nil")
	}
}

func TestNewRAMFromImageGrowsToFitImage(t *testing.T) {
	image := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	r := NewRAMFromImage(4, image)
	if r.Size() != 8 {
		t.Fatalf("Size = %d, want 8 (grown to fit image)", r.Size())
	}
	v, err := r.ReadDouble(0)
	if err != nil {
		t.Fatalf("ReadDouble: %v", err)
	}
	if v != 0x0807060504030201 {
		t.Errorf("ReadDouble = %#x, want little-endian image bytes", v)
	}
}

func TestFramebufferKindAndBulk(t *testing.T) {
	fb := NewFramebuffer(2, 2, 4)
	if fb.Kind() != KindMMIO {
		t.Errorf("Kind = %v, want KindMMIO", fb.Kind())
	}
	if fb.Width() != 2 {
		t.Errorf("Width = %d, want 2", fb.Width())
	}
	if fb.Height() != 2 {
		t.Errorf("Height = %d, want 2", fb.Height())
	}
	if fb.Stride() != 8 {
		t.Errorf("Stride = %d, want 8", fb.Stride())
	}
	buf := []byte{1, 2, 3, 4}
	if err := fb.WriteBulk(0, buf); err != nil {
		t.Fatalf("WriteBulk: %v", err)
	}
	out := make([]byte, 4)
	if err := fb.ReadBulk(0, out); err != nil {
		t.Fatalf("ReadBulk: %v", err)
	}
	if !bytes.Equal(out, buf) {
		t.Errorf("ReadBulk = %v, want %v", out, buf)
	}
}

func TestUARTTransmitsFirstByte(t *testing.T) {
	var buf bytes.Buffer
	u := NewUART(&buf)
	if err := u.WriteByte(0, 'A'); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	if err := u.WriteByte(4, 'Z'); err != nil { // non-zero offset: no-op
		t.Fatalf("WriteByte: %v", err)
	}
	if got := buf.String(); got != "A" {
		t.Errorf("UART output = %q, want %q", got, "A")
	}
}
