// Package device defines the uniform interface every memory-mapped region
// must implement, plus the concrete RAM and framebuffer devices used to
// back a guest's physical address space.
package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrOutOfRange is returned by a Device when an access falls outside the
// region's reported size.
var ErrOutOfRange = errors.New("device: access out of range")

// Kind classifies a region for the debugger and for device probing.
type Kind int

const (
	KindRAM Kind = iota
	KindMMIO
)

func (k Kind) String() string {
	if k == KindRAM {
		return "RAM"
	}
	return "MMIO"
}

// Device is implemented by anything that can be registered as a region in
// the memory unit. All scalar accesses are little-endian and region-local:
// offset 0 is the first byte of the region, regardless of where the region
// is mapped in the physical address space.
type Device interface {
	Size() uint64
	Kind() Kind

	ReadByte(off uint64) (uint8, error)
	ReadHalf(off uint64) (uint16, error)
	ReadWord(off uint64) (uint32, error)
	ReadDouble(off uint64) (uint64, error)

	WriteByte(off uint64, v uint8) error
	WriteHalf(off uint64, v uint16) error
	WriteWord(off uint64, v uint32) error
	WriteDouble(off uint64, v uint64) error

	ReadBulk(off uint64, buf []byte) error
	WriteBulk(off uint64, buf []byte) error
}

func checkWindow(size, off, n uint64) error {
	if off > size || n > size-off {
		return fmt.Errorf("%w: offset %#x length %d size %#x", ErrOutOfRange, off, n, size)
	}
	return nil
}

// RAM is a flat byte-addressed region backed by a byte slice.
type RAM struct {
	bytes []byte
}

// NewRAM allocates a zero-filled RAM device of the given size.
func NewRAM(size uint64) *RAM {
	return &RAM{bytes: make([]byte, size)}
}

// NewRAMFromImage allocates a RAM device sized to at least len(image) and
// copies the image into it starting at offset 0.
func NewRAMFromImage(size uint64, image []byte) *RAM {
	if uint64(len(image)) > size {
		size = uint64(len(image))
	}
	r := &RAM{bytes: make([]byte, size)}
	copy(r.bytes, image)
	return r
}

func (r *RAM) Size() uint64 { return uint64(len(r.bytes)) }
func (r *RAM) Kind() Kind   { return KindRAM }

func (r *RAM) ReadByte(off uint64) (uint8, error) {
	if err := checkWindow(r.Size(), off, 1); err != nil {
		return 0, err
	}
	return r.bytes[off], nil
}

func (r *RAM) ReadHalf(off uint64) (uint16, error) {
	if err := checkWindow(r.Size(), off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.bytes[off:]), nil
}

func (r *RAM) ReadWord(off uint64) (uint32, error) {
	if err := checkWindow(r.Size(), off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.bytes[off:]), nil
}

func (r *RAM) ReadDouble(off uint64) (uint64, error) {
	if err := checkWindow(r.Size(), off, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.bytes[off:]), nil
}

func (r *RAM) WriteByte(off uint64, v uint8) error {
	if err := checkWindow(r.Size(), off, 1); err != nil {
		return err
	}
	r.bytes[off] = v
	return nil
}

func (r *RAM) WriteHalf(off uint64, v uint16) error {
	if err := checkWindow(r.Size(), off, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(r.bytes[off:], v)
	return nil
}

func (r *RAM) WriteWord(off uint64, v uint32) error {
	if err := checkWindow(r.Size(), off, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(r.bytes[off:], v)
	return nil
}

func (r *RAM) WriteDouble(off uint64, v uint64) error {
	if err := checkWindow(r.Size(), off, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(r.bytes[off:], v)
	return nil
}

func (r *RAM) ReadBulk(off uint64, buf []byte) error {
	if err := checkWindow(r.Size(), off, uint64(len(buf))); err != nil {
		return err
	}
	copy(buf, r.bytes[off:off+uint64(len(buf))])
	return nil
}

func (r *RAM) WriteBulk(off uint64, buf []byte) error {
	if err := checkWindow(r.Size(), off, uint64(len(buf))); err != nil {
		return err
	}
	copy(r.bytes[off:off+uint64(len(buf))], buf)
	return nil
}

// Framebuffer is a simple linear RGB framebuffer device: a fixed-stride
// byte buffer with no side effects on access, classified as MMIO so the
// debugger and memory-unit tests have a second region shape to exercise
// alongside RAM. Modelled on the original emulator's simple_fb device.
type Framebuffer struct {
	width, height int
	bpp           int // bytes per pixel
	bytes         []byte
}

// NewFramebuffer allocates a framebuffer of width x height pixels at the
// given bytes-per-pixel (e.g. 4 for RGBA8888).
func NewFramebuffer(width, height, bpp int) *Framebuffer {
	return &Framebuffer{
		width:  width,
		height: height,
		bpp:    bpp,
		bytes:  make([]byte, width*height*bpp),
	}
}

func (f *Framebuffer) Size() uint64 { return uint64(len(f.bytes)) }
func (f *Framebuffer) Kind() Kind   { return KindMMIO }
func (f *Framebuffer) Width() int   { return f.width }
func (f *Framebuffer) Height() int  { return f.height }
func (f *Framebuffer) Stride() int  { return f.width * f.bpp }

func (f *Framebuffer) ReadByte(off uint64) (uint8, error) {
	if err := checkWindow(f.Size(), off, 1); err != nil {
		return 0, err
	}
	return f.bytes[off], nil
}

func (f *Framebuffer) ReadHalf(off uint64) (uint16, error) {
	if err := checkWindow(f.Size(), off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(f.bytes[off:]), nil
}

func (f *Framebuffer) ReadWord(off uint64) (uint32, error) {
	if err := checkWindow(f.Size(), off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(f.bytes[off:]), nil
}

func (f *Framebuffer) ReadDouble(off uint64) (uint64, error) {
	if err := checkWindow(f.Size(), off, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(f.bytes[off:]), nil
}

func (f *Framebuffer) WriteByte(off uint64, v uint8) error {
	if err := checkWindow(f.Size(), off, 1); err != nil {
		return err
	}
	f.bytes[off] = v
	return nil
}

func (f *Framebuffer) WriteHalf(off uint64, v uint16) error {
	if err := checkWindow(f.Size(), off, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(f.bytes[off:], v)
	return nil
}

func (f *Framebuffer) WriteWord(off uint64, v uint32) error {
	if err := checkWindow(f.Size(), off, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(f.bytes[off:], v)
	return nil
}

func (f *Framebuffer) WriteDouble(off uint64, v uint64) error {
	if err := checkWindow(f.Size(), off, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(f.bytes[off:], v)
	return nil
}

func (f *Framebuffer) ReadBulk(off uint64, buf []byte) error {
	if err := checkWindow(f.Size(), off, uint64(len(buf))); err != nil {
		return err
	}
	copy(buf, f.bytes[off:off+uint64(len(buf))])
	return nil
}

func (f *Framebuffer) WriteBulk(off uint64, buf []byte) error {
	if err := checkWindow(f.Size(), off, uint64(len(buf))); err != nil {
		return err
	}
	copy(f.bytes[off:off+uint64(len(buf))], buf)
	return nil
}

// UART is a single-register transmit-only serial console: a byte written
// at offset 0 is copied to out, nothing else is backed by storage. It
// exposes just enough of the classic 8250 register map (one register) to
// let firmware print boot messages, not a full 16550 implementation.
type UART struct {
	out io.Writer
}

// NewUART returns a UART device whose transmitted bytes are written to out.
func NewUART(out io.Writer) *UART {
	return &UART{out: out}
}

func (u *UART) Size() uint64 { return 8 }
func (u *UART) Kind() Kind   { return KindMMIO }

func (u *UART) ReadByte(off uint64) (uint8, error) {
	if err := checkWindow(u.Size(), off, 1); err != nil {
		return 0, err
	}
	return 0, nil
}

func (u *UART) ReadHalf(off uint64) (uint16, error) {
	if err := checkWindow(u.Size(), off, 2); err != nil {
		return 0, err
	}
	return 0, nil
}

func (u *UART) ReadWord(off uint64) (uint32, error) {
	if err := checkWindow(u.Size(), off, 4); err != nil {
		return 0, err
	}
	return 0, nil
}

func (u *UART) ReadDouble(off uint64) (uint64, error) {
	if err := checkWindow(u.Size(), off, 8); err != nil {
		return 0, err
	}
	return 0, nil
}

func (u *UART) WriteByte(off uint64, v uint8) error {
	if err := checkWindow(u.Size(), off, 1); err != nil {
		return err
	}
	if off == 0 {
		_, _ = u.out.Write([]byte{v})
	}
	return nil
}

func (u *UART) WriteHalf(off uint64, v uint16) error {
	return u.WriteByte(off, uint8(v))
}

func (u *UART) WriteWord(off uint64, v uint32) error {
	return u.WriteByte(off, uint8(v))
}

func (u *UART) WriteDouble(off uint64, v uint64) error {
	return u.WriteByte(off, uint8(v))
}

func (u *UART) ReadBulk(off uint64, buf []byte) error {
	if err := checkWindow(u.Size(), off, uint64(len(buf))); err != nil {
		return err
	}
	for i := range buf {
		buf[i] = 0
	}
	return nil
}

func (u *UART) WriteBulk(off uint64, buf []byte) error {
	if err := checkWindow(u.Size(), off, uint64(len(buf))); err != nil {
		return err
	}
	if off == 0 && len(buf) > 0 {
		_, _ = u.out.Write(buf[:1])
	}
	return nil
}
