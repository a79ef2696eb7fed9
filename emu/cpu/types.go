// Package cpu implements the RV64IMA execution core: register files,
// CSR file, decoder, per-instruction semantics, and the privileged trap
// machinery.
package cpu

import "fmt"

// Privilege is one of the three RISC-V privilege levels. The numeric
// values match the architectural encoding and are used to gate CSR
// access (spec §3, §4.7).
type Privilege uint8

const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Machine    Privilege = 3
)

func (p Privilege) String() string {
	switch p {
	case User:
		return "U"
	case Supervisor:
		return "S"
	case Machine:
		return "M"
	default:
		return fmt.Sprintf("Privilege(%d)", uint8(p))
	}
}

// ExceptionKind is the closed set of architectural exceptions the core
// can raise (spec §3).
type ExceptionKind int

const (
	InstructionAddressMisaligned ExceptionKind = iota
	InstructionAccessFault
	IllegalInstruction
	Breakpoint
	LoadAddressMisaligned
	LoadAccessFault
	StoreAddressMisaligned
	StoreAccessFault
	EnvironmentCallFromUMode
	EnvironmentCallFromSMode
	EnvironmentCallFromMMode
	InstructionPageFault
	LoadPageFault
	StorePageFault
)

// exceptionCause maps each ExceptionKind to its architectural mcause/
// scause exception code. This is not the enum's ordinal: the
// architectural numbering reserves code 10 (between ecall-from-S and
// ecall-from-M) and code 14 (between the page faults), per the scenario
// in spec §8 that pins ECALL-from-M to cause 11.
var exceptionCause = [...]uint64{
	InstructionAddressMisaligned: 0,
	InstructionAccessFault:       1,
	IllegalInstruction:           2,
	Breakpoint:                   3,
	LoadAddressMisaligned:        4,
	LoadAccessFault:              5,
	StoreAddressMisaligned:       6,
	StoreAccessFault:             7,
	EnvironmentCallFromUMode:     8,
	EnvironmentCallFromSMode:     9,
	EnvironmentCallFromMMode:     11,
	InstructionPageFault:         12,
	LoadPageFault:                13,
	StorePageFault:               15,
}

// Cause returns the architectural mcause/scause value for the exception
// (interrupt bit clear, low bits the exception code).
func (e ExceptionKind) Cause() uint64 {
	return exceptionCause[e]
}

func (e ExceptionKind) String() string {
	names := [...]string{
		"instruction-address-misaligned",
		"instruction-access-fault",
		"illegal-instruction",
		"breakpoint",
		"load-address-misaligned",
		"load-access-fault",
		"store-address-misaligned",
		"store-access-fault",
		"environment-call-from-u-mode",
		"environment-call-from-s-mode",
		"environment-call-from-m-mode",
		"instruction-page-fault",
		"load-page-fault",
		"store-page-fault",
	}
	if int(e) < 0 || int(e) >= len(names) {
		return fmt.Sprintf("exception(%d)", int(e))
	}
	return names[e]
}

// Exception is the error type every handler returns on a guest-visible
// fault. Tval carries the architectural xtval payload (faulting address
// or instruction bits, depending on the exception).
type Exception struct {
	Kind ExceptionKind
	Tval uint64
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s (tval=%#x)", e.Kind, e.Tval)
}

// Trap wraps an ExceptionKind into an *Exception error.
func Trap(kind ExceptionKind) error {
	return &Exception{Kind: kind}
}

// TrapVal wraps an ExceptionKind with a tval payload.
func TrapVal(kind ExceptionKind, tval uint64) error {
	return &Exception{Kind: kind, Tval: tval}
}

// AsException extracts the *Exception from err, if any.
func AsException(err error) (*Exception, bool) {
	e, ok := err.(*Exception)
	return e, ok
}
