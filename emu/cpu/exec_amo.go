package cpu

// AMO funct5 values (bits [31:27]), spec §4.8.
const (
	amoLR      uint32 = 0b00010
	amoSC      uint32 = 0b00011
	amoSwap    uint32 = 0b00001
	amoAdd     uint32 = 0b00000
	amoXor     uint32 = 0b00100
	amoAnd     uint32 = 0b01100
	amoOr      uint32 = 0b01000
	amoMin     uint32 = 0b10000
	amoMax     uint32 = 0b10100
	amoMinu    uint32 = 0b11000
	amoMaxu    uint32 = 0b11100
)

// execAMO implements LR.W/D, SC.W/D, and the AMO read-modify-write family
// (spec §4.8). funct3 selects word (010) or doubleword (011) width.
func execAMO(ctx *Context, insn uint32) error {
	addr := ctx.Reg(rs1(insn))
	op := funct5(insn)

	switch funct3(insn) {
	case 0b010: // word
		if addr%4 != 0 {
			return TrapVal(LoadAddressMisaligned, addr)
		}
		return execAMOWord(ctx, insn, addr, op)
	case 0b011: // doubleword
		if addr%8 != 0 {
			return TrapVal(LoadAddressMisaligned, addr)
		}
		return execAMODouble(ctx, insn, addr, op)
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}
}

func execAMOWord(ctx *Context, insn uint32, addr uint64, op uint32) error {
	mem := ctx.Memory()

	if op == amoLR {
		v, err := mem.ReadWord(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		mem.SetReservation(ctx.HartID(), addr)
		ctx.SetReg(rd(insn), signExtend(uint64(v), 32))
		return nil
	}

	if op == amoSC {
		if !mem.CheckReservation(ctx.HartID(), addr) {
			ctx.SetReg(rd(insn), 1) // failure
			return nil
		}
		rs2v := uint32(ctx.Reg(rs2(insn)))
		if err := mem.WriteWord(addr, rs2v); err != nil {
			return TrapVal(StoreAccessFault, addr)
		}
		mem.ClearReservationsForAddr(addr)
		ctx.SetReg(rd(insn), 0) // success
		return nil
	}

	rs2v := uint32(ctx.Reg(rs2(insn)))
	old, err := mem.AMOWord(addr, func(cur uint32) uint32 { return amoCombineWord(op, cur, rs2v) })
	if err != nil {
		return TrapVal(StoreAccessFault, addr)
	}
	mem.ClearReservationsForAddr(addr)
	ctx.SetReg(rd(insn), signExtend(uint64(old), 32))
	return nil
}

func execAMODouble(ctx *Context, insn uint32, addr uint64, op uint32) error {
	mem := ctx.Memory()

	if op == amoLR {
		v, err := mem.ReadDouble(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		mem.SetReservation(ctx.HartID(), addr)
		ctx.SetReg(rd(insn), v)
		return nil
	}

	if op == amoSC {
		if !mem.CheckReservation(ctx.HartID(), addr) {
			ctx.SetReg(rd(insn), 1)
			return nil
		}
		rs2v := ctx.Reg(rs2(insn))
		if err := mem.WriteDouble(addr, rs2v); err != nil {
			return TrapVal(StoreAccessFault, addr)
		}
		mem.ClearReservationsForAddr(addr)
		ctx.SetReg(rd(insn), 0)
		return nil
	}

	rs2v := ctx.Reg(rs2(insn))
	old, err := mem.AMODouble(addr, func(cur uint64) uint64 { return amoCombineDouble(op, cur, rs2v) })
	if err != nil {
		return TrapVal(StoreAccessFault, addr)
	}
	mem.ClearReservationsForAddr(addr)
	ctx.SetReg(rd(insn), old)
	return nil
}

func amoCombineWord(op uint32, cur, val uint32) uint32 {
	switch op {
	case amoSwap:
		return val
	case amoAdd:
		return cur + val
	case amoXor:
		return cur ^ val
	case amoAnd:
		return cur & val
	case amoOr:
		return cur | val
	case amoMin:
		if int32(cur) < int32(val) {
			return cur
		}
		return val
	case amoMax:
		if int32(cur) > int32(val) {
			return cur
		}
		return val
	case amoMinu:
		if cur < val {
			return cur
		}
		return val
	case amoMaxu:
		if cur > val {
			return cur
		}
		return val
	default:
		return cur
	}
}

func amoCombineDouble(op uint32, cur, val uint64) uint64 {
	switch op {
	case amoSwap:
		return val
	case amoAdd:
		return cur + val
	case amoXor:
		return cur ^ val
	case amoAnd:
		return cur & val
	case amoOr:
		return cur | val
	case amoMin:
		if int64(cur) < int64(val) {
			return cur
		}
		return val
	case amoMax:
		if int64(cur) > int64(val) {
			return cur
		}
		return val
	case amoMinu:
		if cur < val {
			return cur
		}
		return val
	case amoMaxu:
		if cur > val {
			return cur
		}
		return val
	default:
		return cur
	}
}
