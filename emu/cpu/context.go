package cpu

import (
	mem "github.com/rv64emu/rv64emu/emu/memory"
)

// Context is one hart's architectural state: the integer and floating
// register files, program counter, hart id, owned CSR file, and a shared
// handle to the memory unit (spec §3).
type Context struct {
	x    [32]uint64 // integer registers, x[0] hard-wired to zero
	f    [32]uint64 // floating registers, holding the raw bit pattern
	pc   uint64
	hart uint64
	csr  *CSRFile
	mem  *mem.Unit
}

// NewContext constructs a hart context with the given entrypoint PC and a
// shared memory handle. Construction does not touch memory; the caller is
// responsible for loading an image into the memory unit beforehand (spec
// §6: the loader writes the image before the core runs).
func NewContext(hart uint64, entrypoint uint64, memory *mem.Unit) *Context {
	return &Context{
		pc:   entrypoint,
		hart: hart,
		csr:  NewCSRFile(hart),
		mem:  memory,
	}
}

// HartID returns the hart identifier.
func (c *Context) HartID() uint64 { return c.hart }

// PC returns the current program counter.
func (c *Context) PC() uint64 { return c.pc }

// SetPC overwrites the program counter. Used by the debugger and by the
// trap handler.
func (c *Context) SetPC(pc uint64) { c.pc = pc }

// Memory returns the shared memory unit handle.
func (c *Context) Memory() *mem.Unit { return c.mem }

// CSR returns the owned CSR file.
func (c *Context) CSR() *CSRFile { return c.csr }

// Reg reads integer register idx. Indices outside 0..32 read as zero;
// callers that decode register fields from a 5-bit instruction field
// never produce an out-of-range index, so this only matters for
// debug/host callers.
func (c *Context) Reg(idx uint32) uint64 {
	if idx >= 32 {
		return 0
	}
	return c.x[idx]
}

// SetReg writes integer register idx. Writes to x0 are discarded and
// out-of-range indices are rejected as no-ops (spec §3 invariant).
func (c *Context) SetReg(idx uint32, val uint64) {
	if idx == 0 || idx >= 32 {
		return
	}
	c.x[idx] = val
}

// FReg reads the raw bit pattern of floating register idx.
func (c *Context) FReg(idx uint32) uint64 {
	if idx >= 32 {
		return 0
	}
	return c.f[idx]
}

// SetFReg writes the raw bit pattern of floating register idx. Unlike
// integer registers there is no f0 special case; every FP instruction
// that targets a register also marks FS dirty (spec §4.9).
func (c *Context) SetFReg(idx uint32, val uint64) {
	if idx >= 32 {
		return
	}
	c.f[idx] = val
	c.csr.SetFSDirty()
}

// SetRegister is the public debugger/host-facing setter named in spec §6:
// writes to x0 or out-of-range indices are no-ops.
func (c *Context) SetRegister(idx int, val uint64) {
	if idx < 0 || idx >= 32 {
		return
	}
	c.SetReg(uint32(idx), val)
}

// PostInterrupt ORs the given MIP bits into the CSR file, latching a
// pending external/timer/software interrupt (spec §4.10 open question:
// MIP must persist writes from the platform, not just from CSR
// instructions).
func (c *Context) PostInterrupt(bits uint64) {
	c.csr.mip |= bits
}

// ClearInterrupt clears the given MIP bits.
func (c *Context) ClearInterrupt(bits uint64) {
	c.csr.mip &^= bits
}
