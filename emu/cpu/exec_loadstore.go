package cpu

// execLoad implements LB, LH, LW, LD, LBU, LHU, LWU (spec §4.6). Memory
// access faults are translated to LoadAccessFault; the memory unit itself
// has no alignment requirement, so misalignment is not raised here.
func execLoad(ctx *Context, insn uint32) error {
	addr := ctx.Reg(rs1(insn)) + immI(insn)
	mem := ctx.Memory()

	var val uint64
	switch funct3(insn) {
	case 0b000: // LB
		v, err := mem.ReadByte(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		val = signExtend(uint64(v), 8)
	case 0b001: // LH
		v, err := mem.ReadHalf(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		val = signExtend(uint64(v), 16)
	case 0b010: // LW
		v, err := mem.ReadWord(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		val = signExtend(uint64(v), 32)
	case 0b011: // LD
		v, err := mem.ReadDouble(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		val = v
	case 0b100: // LBU
		v, err := mem.ReadByte(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		val = uint64(v)
	case 0b101: // LHU
		v, err := mem.ReadHalf(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		val = uint64(v)
	case 0b110: // LWU
		v, err := mem.ReadWord(addr)
		if err != nil {
			return TrapVal(LoadAccessFault, addr)
		}
		val = uint64(v)
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}

	ctx.SetReg(rd(insn), val)
	return nil
}

// execStore implements SB, SH, SW, SD (spec §4.6). A successful store
// clears any reservation held by another hart on the written address,
// satisfying the LR/SC monitor invariant (spec §4.8).
func execStore(ctx *Context, insn uint32) error {
	addr := ctx.Reg(rs1(insn)) + immS(insn)
	val := ctx.Reg(rs2(insn))
	mem := ctx.Memory()

	var err error
	switch funct3(insn) {
	case 0b000: // SB
		err = mem.WriteByte(addr, uint8(val))
	case 0b001: // SH
		err = mem.WriteHalf(addr, uint16(val))
	case 0b010: // SW
		err = mem.WriteWord(addr, uint32(val))
	case 0b011: // SD
		err = mem.WriteDouble(addr, val)
	default:
		return TrapVal(IllegalInstruction, uint64(insn))
	}
	if err != nil {
		return TrapVal(StoreAccessFault, addr)
	}

	mem.ClearReservationsForAddr(addr)
	return nil
}
