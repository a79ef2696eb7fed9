package cpu

import "math"

// fflags bits (spec §4.9).
const (
	fflagNX uint8 = 1 << 0 // inexact
	fflagUF uint8 = 1 << 1 // underflow
	fflagOF uint8 = 1 << 2 // overflow
	fflagDZ uint8 = 1 << 3 // divide by zero
	fflagNV uint8 = 1 << 4 // invalid
)

// rm encodings (spec §4.9, funct3 field on R-type FP instructions).
const (
	rmRNE uint32 = 0b000
	rmRTZ uint32 = 0b001
	rmRDN uint32 = 0b010
	rmRUP uint32 = 0b011
	rmRMM uint32 = 0b100
	rmDYN uint32 = 0b111
)

// execLoadFP implements FLW/FLD (spec §4.9): loads store the IEEE bit
// pattern into the register file unchanged, never a numeric conversion.
func execLoadFP(ctx *Context, insn uint32) error {
	addr := ctx.Reg(rs1(insn)) + immI(insn)
	mem := ctx.Memory()

	switch funct3(insn) {
	case 0b010: // FLW
		v, err := mem.ReadWord(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		// single-precision values are NaN-boxed in the upper 32 bits.
		ctx.SetFReg(rd(insn), 0xffffffff00000000|uint64(v))
	case 0b011: // FLD
		v, err := mem.ReadDouble(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		ctx.SetFReg(rd(insn), v)
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}
	return nil
}

// execStoreFP implements FSW/FSD, storing the raw IEEE bit pattern.
func execStoreFP(ctx *Context, insn uint32) error {
	addr := ctx.Reg(rs1(insn)) + immS(insn)
	mem := ctx.Memory()
	v := ctx.FReg(rs2(insn))

	var err error
	switch funct3(insn) {
	case 0b010: // FSW
		err = mem.WriteWord(addr, uint32(v))
	case 0b011: // FSD
		err = mem.WriteDouble(addr, v)
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}
	if err != nil {
		return TrapVal(StoreAccessFault, addr)
	}
	return nil
}

// roundingMode resolves the effective rounding mode for an FP
// instruction: its own rm field, falling back to frm when rm==rmDYN
// (dynamic rounding, spec §4.9).
func roundingMode(ctx *Context, insn uint32) uint32 {
	rm := funct3(insn)
	if rm == rmDYN {
		frm, _ := ctx.CSR().Read(csrFrm, true)
		return uint32(frm)
	}
	return rm
}

// applyRoundingMode re-rounds an already-computed float64 result per rm.
// RNE needs no adjustment: Go's float64/float32 arithmetic already rounds
// to nearest-even. The other static modes are applied as a post-step,
// matching the reference model's apply_rounding_mode.
func applyRoundingMode(v float64, rm uint32) float64 {
	switch rm {
	case rmRTZ:
		return math.Trunc(v)
	case rmRDN:
		return math.Floor(v)
	case rmRUP:
		return math.Ceil(v)
	case rmRMM:
		return math.Round(v)
	default: // rmRNE and any reserved encoding
		return v
	}
}

func isSubnormal64(v float64) bool {
	bits := math.Float64bits(v)
	exp := (bits >> 52) & 0x7ff
	frac := bits & (1<<52 - 1)
	return exp == 0 && frac != 0
}

func isSubnormal32(v float32) bool {
	bits := math.Float32bits(v)
	exp := (bits >> 23) & 0xff
	frac := bits & (1<<23 - 1)
	return exp == 0 && frac != 0
}

// updateFPFlags ORs NV/OF/UF into fflags by comparing the result's
// classification against its operands' (spec §4.9): NV when the result is
// NaN but no operand was, OF when the result is infinite but no operand
// was, UF when the result is subnormal. Mirrors update_fp_flags from the
// reference model. double selects the precision the classification is
// done at: single-precision ops narrow result and operands to float32
// first so a double-precision-range value doesn't mask a real subnormal
// or overflow at single precision.
func updateFPFlags(ctx *Context, double bool, result float64, operands ...float64) {
	r := result
	ops := operands
	subnormal := isSubnormal64(r)
	if !double {
		r = float64(float32(result))
		ops = make([]float64, len(operands))
		for i, o := range operands {
			ops[i] = float64(float32(o))
		}
		subnormal = isSubnormal32(float32(r))
	}

	var operandNaN, operandInf bool
	for _, o := range ops {
		if math.IsNaN(o) {
			operandNaN = true
		}
		if math.IsInf(o, 0) {
			operandInf = true
		}
	}

	var flags uint8
	if math.IsNaN(r) && !operandNaN {
		flags |= fflagNV
	}
	if math.IsInf(r, 0) && !operandInf {
		flags |= fflagOF
	}
	if subnormal {
		flags |= fflagUF
	}
	if flags != 0 {
		ctx.CSR().RaiseFFlags(flags)
	}
}

func isDouble(insn uint32) bool { return funct2(insn) == 0b01 }

func f64FromReg(ctx *Context, idx uint32, double bool) float64 {
	bits := ctx.FReg(idx)
	if double {
		return math.Float64frombits(bits)
	}
	return float64(math.Float32frombits(uint32(bits)))
}

func regFromF64(ctx *Context, idx uint32, v float64, double bool) {
	if double {
		ctx.SetFReg(idx, math.Float64bits(v))
		return
	}
	bits := uint64(math.Float32bits(float32(v)))
	ctx.SetFReg(idx, 0xffffffff00000000|bits)
}

// execOpFP implements the OP-FP opcode: FADD/FSUB/FMUL/FDIV/FSQRT/FMIN/
// FMAX/FCVT/FMV/FCMP/FSGNJ for single and double precision (spec §4.9).
// The arithmetic ops (FADD/FSUB/FMUL/FDIV/FSQRT) honor the encoded rm via
// applyRoundingMode and raise NV/DZ/OF/UF through updateFPFlags; exact
// IEEE-754 rounding and NaN-payload fidelity are still not modeled (spec
// §1 Non-goals), only rm-sensitive selection and the sticky flag bits.
func execOpFP(ctx *Context, insn uint32) error {
	double := isDouble(insn)
	f5 := funct5(insn)

	switch f5 {
	case 0b00000: // FADD
		a, b := f64FromReg(ctx, rs1(insn), double), f64FromReg(ctx, rs2(insn), double)
		v := applyRoundingMode(a+b, roundingMode(ctx, insn))
		updateFPFlags(ctx, double, v, a, b)
		regFromF64(ctx, rd(insn), v, double)
	case 0b00001: // FSUB
		a, b := f64FromReg(ctx, rs1(insn), double), f64FromReg(ctx, rs2(insn), double)
		v := applyRoundingMode(a-b, roundingMode(ctx, insn))
		updateFPFlags(ctx, double, v, a, b)
		regFromF64(ctx, rd(insn), v, double)
	case 0b00010: // FMUL
		a, b := f64FromReg(ctx, rs1(insn), double), f64FromReg(ctx, rs2(insn), double)
		v := applyRoundingMode(a*b, roundingMode(ctx, insn))
		updateFPFlags(ctx, double, v, a, b)
		regFromF64(ctx, rd(insn), v, double)
	case 0b00011: // FDIV
		a, b := f64FromReg(ctx, rs1(insn), double), f64FromReg(ctx, rs2(insn), double)
		if b == 0 {
			ctx.CSR().RaiseFFlags(fflagDZ)
		}
		v := applyRoundingMode(a/b, roundingMode(ctx, insn))
		updateFPFlags(ctx, double, v, a, b)
		regFromF64(ctx, rd(insn), v, double)
	case 0b01011: // FSQRT
		a := f64FromReg(ctx, rs1(insn), double)
		if a < 0 {
			ctx.CSR().RaiseFFlags(fflagNV)
		}
		v := applyRoundingMode(math.Sqrt(a), roundingMode(ctx, insn))
		updateFPFlags(ctx, double, v, a)
		regFromF64(ctx, rd(insn), v, double)
	case 0b00101: // FMIN/FMAX
		a, b := f64FromReg(ctx, rs1(insn), double), f64FromReg(ctx, rs2(insn), double)
		var v float64
		if funct3(insn) == 0 {
			v = math.Min(a, b)
		} else {
			v = math.Max(a, b)
		}
		updateFPFlags(ctx, double, v, a, b)
		regFromF64(ctx, rd(insn), v, double)
	case 0b10100: // FEQ/FLT/FLE
		a, b := f64FromReg(ctx, rs1(insn), double), f64FromReg(ctx, rs2(insn), double)
		var result bool
		switch funct3(insn) {
		case 0b010: // FEQ
			result = a == b
		case 0b001: // FLT
			result = a < b
		case 0b000: // FLE
			result = a <= b
		default:
			return TrapVal(IllegalInstruction, uint64(insn))
		}
		ctx.SetReg(rd(insn), boolToU64(result))
	case 0b00100: // FSGNJ/FSGNJN/FSGNJX
		a := f64FromReg(ctx, rs1(insn), double)
		b := f64FromReg(ctx, rs2(insn), double)
		mag := math.Abs(a)
		var v float64
		switch funct3(insn) {
		case 0b000: // FSGNJ
			v = math.Copysign(mag, b)
		case 0b001: // FSGNJN
			v = math.Copysign(mag, -b)
		case 0b010: // FSGNJX
			if math.Signbit(a) != math.Signbit(b) {
				v = -mag
			} else {
				v = mag
			}
		default:
			return TrapVal(IllegalInstruction, uint64(insn))
		}
		regFromF64(ctx, rd(insn), v, double)
	case 0b11000: // FCVT.W/WU/L/LU.S/D (float to int)
		return execFCVTToInt(ctx, insn, double)
	case 0b11010: // FCVT.S/D.W/WU/L/LU (int to float)
		return execFCVTFromInt(ctx, insn, double)
	case 0b11100: // FMV.X.W/D, FCLASS
		return execFMVToInt(ctx, insn, double)
	case 0b11110: // FMV.W/D.X
		ctx.SetFReg(rd(insn), ctx.Reg(rs1(insn)))
	case 0b00110: // FSGNJ... reserved slot unused, defensive default
		return TrapVal(IllegalInstruction, uint64(insn))
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}
	return nil
}

func execFCVTToInt(ctx *Context, insn uint32, double bool) error {
	v := f64FromReg(ctx, rs1(insn), double)
	signed := rs2(insn)&1 == 0
	wide := rs2(insn)&2 != 0

	if math.IsNaN(v) {
		ctx.CSR().RaiseFFlags(fflagNV)
		v = 0
	}

	var result uint64
	switch {
	case wide && signed:
		result = uint64(int64(v))
	case wide && !signed:
		result = uint64(v)
	case !wide && signed:
		result = signExtend(uint64(uint32(int32(v))), 32)
	default:
		result = signExtend(uint64(uint32(v)), 32)
	}
	ctx.SetReg(rd(insn), result)
	return nil
}

func execFCVTFromInt(ctx *Context, insn uint32, double bool) error {
	x := ctx.Reg(rs1(insn))
	signed := rs2(insn)&1 == 0
	wide := rs2(insn)&2 != 0

	var v float64
	switch {
	case wide && signed:
		v = float64(int64(x))
	case wide && !signed:
		v = float64(x)
	case !wide && signed:
		v = float64(int32(uint32(x)))
	default:
		v = float64(uint32(x))
	}
	regFromF64(ctx, rd(insn), v, double)
	return nil
}

func execFMVToInt(ctx *Context, insn uint32, double bool) error {
	if funct3(insn) == 0b001 { // FCLASS
		ctx.SetReg(rd(insn), fclass(f64FromReg(ctx, rs1(insn), double)))
		return nil
	}
	// FMV.X.W / FMV.X.D: raw bit move, no format conversion.
	bits := ctx.FReg(rs1(insn))
	if !double {
		bits = signExtend(bits&0xffffffff, 32)
	}
	ctx.SetReg(rd(insn), bits)
	return nil
}

func fclass(v float64) uint64 {
	switch {
	case math.IsNaN(v):
		return 1 << 9 // quiet NaN (no signaling/quiet distinction modeled)
	case math.IsInf(v, -1):
		return 1 << 0
	case math.IsInf(v, 1):
		return 1 << 7
	case v == 0 && math.Signbit(v):
		return 1 << 3
	case v == 0:
		return 1 << 4
	case math.Signbit(v):
		return 1 << 1
	default:
		return 1 << 6
	}
}

// execFMA implements the fused multiply-add family FMADD/FMSUB/FNMSUB/
// FNMADD (spec §4.9), computed without an intermediate rounding step by
// relying on float64 for the single-precision case, then rounded per rm
// and checked for NV/OF/UF the same way the non-fused ops are.
func execFMA(ctx *Context, insn uint32, op uint32) error {
	double := isDouble(insn)
	a := f64FromReg(ctx, rs1(insn), double)
	b := f64FromReg(ctx, rs2(insn), double)
	c := f64FromReg(ctx, rs3(insn), double)

	var v float64
	switch op {
	case opMadd:
		v = a*b + c
	case opMsub:
		v = a*b - c
	case opNmsub:
		v = -(a*b) + c
	case opNmadd:
		v = -(a*b) - c
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}
	v = applyRoundingMode(v, roundingMode(ctx, insn))
	updateFPFlags(ctx, double, v, a, b, c)
	regFromF64(ctx, rd(insn), v, double)
	return nil
}
