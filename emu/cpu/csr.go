package cpu

// CSR addresses used by this core (spec §3 and §4.7). Unlisted CSRs are
// rejected as illegal instructions rather than silently ignored, unlike
// some reference emulators that return zero for anything unrecognised.
const (
	csrFflags uint16 = 0x001
	csrFrm    uint16 = 0x002
	csrFcsr   uint16 = 0x003

	csrCycle   uint16 = 0xC00
	csrTime    uint16 = 0xC01
	csrInstret uint16 = 0xC02

	csrSstatus    uint16 = 0x100
	csrSie        uint16 = 0x104
	csrStvec      uint16 = 0x105
	csrScounteren uint16 = 0x106
	csrSscratch   uint16 = 0x140
	csrSepc       uint16 = 0x141
	csrScause     uint16 = 0x142
	csrStval      uint16 = 0x143
	csrSip        uint16 = 0x144
	csrSatp       uint16 = 0x180
	csrScontext   uint16 = 0x5A8
	csrSstateen0  uint16 = 0x10C
	csrSstateen1  uint16 = 0x10D
	csrSstateen2  uint16 = 0x10E
	csrSstateen3  uint16 = 0x10F

	csrMvendorid uint16 = 0xF11
	csrMarchid   uint16 = 0xF12
	csrMimpid    uint16 = 0xF13
	csrMhartid   uint16 = 0xF14

	csrMstatus    uint16 = 0x300
	csrMisa       uint16 = 0x301
	csrMedeleg    uint16 = 0x302
	csrMideleg    uint16 = 0x303
	csrMie        uint16 = 0x304
	csrMtvec      uint16 = 0x305
	csrMcounteren uint16 = 0x306

	csrMscratch uint16 = 0x340
	csrMepc     uint16 = 0x341
	csrMcause   uint16 = 0x342
	csrMtval    uint16 = 0x343
	csrMip      uint16 = 0x344

	csrMcycle   uint16 = 0xB00
	csrMinstret uint16 = 0xB02
)

// MSTATUS bit layout (shared with SSTATUS projection).
const (
	mstatusSIE  uint64 = 1 << 1
	mstatusMIE  uint64 = 1 << 3
	mstatusSPIE uint64 = 1 << 5
	mstatusUBE  uint64 = 1 << 6
	mstatusMPIE uint64 = 1 << 7
	mstatusSPP  uint64 = 1 << 8
	mstatusMPP  uint64 = 3 << 11
	mstatusFS   uint64 = 3 << 13
	mstatusXS   uint64 = 3 << 15
	mstatusMPRV uint64 = 1 << 17
	mstatusSUM  uint64 = 1 << 18
	mstatusMXR  uint64 = 1 << 19
	mstatusTVM  uint64 = 1 << 20
	mstatusTW   uint64 = 1 << 21
	mstatusTSR  uint64 = 1 << 22
	mstatusSBE  uint64 = 1 << 36
	mstatusSD   uint64 = 1 << 63

	mstatusMPPShift = 11

	// sstatusMask is the set of MSTATUS bits visible through SSTATUS
	// (spec §3 invariant (i), §4.7).
	sstatusMask = mstatusSIE | mstatusSPIE | mstatusUBE | mstatusSPP |
		mstatusSBE | mstatusFS | mstatusXS | mstatusSD

	// mstatusWritable is the set of MSTATUS bits a direct MSTATUS write
	// may change; FS/XS/SD are handled specially below.
	mstatusWritable = mstatusSIE | mstatusMIE | mstatusSPIE | mstatusUBE |
		mstatusMPIE | mstatusSPP | mstatusMPP | mstatusFS | mstatusMPRV |
		mstatusSUM | mstatusMXR | mstatusTVM | mstatusTW | mstatusTSR | mstatusSBE
)

// MIP/MIE bit layout.
const (
	mipUSIP uint64 = 1 << 0
	mipSSIP uint64 = 1 << 1
	mipMSIP uint64 = 1 << 3
	mipUTIP uint64 = 1 << 4
	mipSTIP uint64 = 1 << 5
	mipMTIP uint64 = 1 << 7
	mipUEIP uint64 = 1 << 8
	mipSEIP uint64 = 1 << 9
	mipMEIP uint64 = 1 << 11

	// sipWritable is the subset of SIP bits software may set directly,
	// before intersecting with mideleg (spec §4.7).
	sipWritable = mipUSIP | mipSSIP
)

// CSRFile holds one hart's control/status register file and current
// privilege level. SSTATUS/SIE/SIP are views computed on demand over
// MSTATUS/MIE/MIP rather than duplicated state (spec §3 invariant (i),
// design note in spec §9).
type CSRFile struct {
	Priv Privilege

	mstatus uint64
	misa    uint64
	medeleg uint64
	mideleg uint64
	mie     uint64
	mtvec   uint64
	mcounteren uint64

	mscratch uint64
	mepc     uint64
	mcause   uint64
	mtval    uint64
	mip      uint64

	mcycle   uint64
	minstret uint64

	stvec      uint64
	scounteren uint64
	sscratch   uint64
	sepc       uint64
	scause     uint64
	stval      uint64
	satp       uint64
	scontext   uint64
	sstateen   [4]uint64

	fflags uint8
	frm    uint8

	hartID uint64
}

// misa bits for the extensions this core implements: I, M, A, S, U, and
// partial F/D.
const misaRV64IMASU = (2 << 62) | // MXL = 2 (64-bit)
	(1 << 8) | // I
	(1 << 12) | // M
	(1 << 0) | // A
	(1 << 18) | // S
	(1 << 20) | // U
	(1 << 5) | // F
	(1 << 3) // D

// NewCSRFile returns a CSR file reset to the architectural power-on state
// for the given hart, starting in Machine mode.
func NewCSRFile(hartID uint64) *CSRFile {
	return &CSRFile{
		Priv:   Machine,
		misa:   misaRV64IMASU,
		hartID: hartID,
	}
}

func csrPrivilege(csr uint16) Privilege {
	switch (csr >> 8) & 0x3 {
	case 0:
		return User
	case 1:
		return Supervisor
	default:
		return Machine
	}
}

func csrReadOnly(csr uint16) bool {
	return (csr>>10)&0x3 == 0x3
}

// Read returns the CSR value. override bypasses the privilege check, for
// use by trap delivery which must update xEPC/xCAUSE/xSTATUS regardless
// of the trapped privilege (spec §4.7).
func (c *CSRFile) Read(csr uint16, override bool) (uint64, error) {
	if !override && c.Priv < csrPrivilege(csr) {
		return 0, Trap(IllegalInstruction)
	}

	switch csr {
	case csrFflags:
		return uint64(c.fflags), nil
	case csrFrm:
		return uint64(c.frm), nil
	case csrFcsr:
		return uint64(c.fflags) | uint64(c.frm)<<5, nil

	case csrCycle, csrMcycle:
		return c.mcycle, nil
	case csrTime:
		return c.mcycle, nil
	case csrInstret, csrMinstret:
		return c.minstret, nil

	case csrSstatus:
		return c.mstatus & sstatusMask, nil
	case csrSie:
		return c.mie & c.mideleg, nil
	case csrStvec:
		return c.stvec, nil
	case csrScounteren:
		return c.scounteren, nil
	case csrSscratch:
		return c.sscratch, nil
	case csrSepc:
		return c.sepc, nil
	case csrScause:
		return c.scause, nil
	case csrStval:
		return c.stval, nil
	case csrSip:
		return c.mip & c.mideleg, nil
	case csrSatp:
		return c.satp, nil
	case csrScontext:
		return c.scontext, nil
	case csrSstateen0, csrSstateen1, csrSstateen2, csrSstateen3:
		return c.sstateen[csr-csrSstateen0], nil

	case csrMvendorid, csrMarchid, csrMimpid:
		return 0, nil
	case csrMhartid:
		return c.hartID, nil

	case csrMstatus:
		return c.mstatus, nil
	case csrMisa:
		return c.misa, nil
	case csrMedeleg:
		return c.medeleg, nil
	case csrMideleg:
		return c.mideleg, nil
	case csrMie:
		return c.mie, nil
	case csrMtvec:
		return c.mtvec, nil
	case csrMcounteren:
		return c.mcounteren, nil

	case csrMscratch:
		return c.mscratch, nil
	case csrMepc:
		return c.mepc, nil
	case csrMcause:
		return c.mcause, nil
	case csrMtval:
		return c.mtval, nil
	case csrMip:
		return c.mip, nil

	default:
		return 0, Trap(IllegalInstruction)
	}
}

// Write updates the CSR value, applying the per-CSR writable mask (spec
// §3 invariant (iii), §4.7). override bypasses the privilege check.
func (c *CSRFile) Write(csr uint16, val uint64, override bool) error {
	if !override {
		if c.Priv < csrPrivilege(csr) {
			return Trap(IllegalInstruction)
		}
		if csrReadOnly(csr) {
			return Trap(IllegalInstruction)
		}
	}

	switch csr {
	case csrFflags:
		c.fflags = uint8(val & 0x1f)
	case csrFrm:
		c.frm = uint8(val & 0x7)
	case csrFcsr:
		c.fflags = uint8(val & 0x1f)
		c.frm = uint8((val >> 5) & 0x7)

	case csrMcycle:
		c.mcycle = val
	case csrMinstret:
		c.minstret = val

	case csrSstatus:
		c.writeSstatus(val)
	case csrSie:
		c.mie = (c.mie &^ c.mideleg) | (val & c.mideleg)
	case csrStvec:
		c.stvec = val
	case csrScounteren:
		c.scounteren = val
	case csrSscratch:
		c.sscratch = val
	case csrSepc:
		c.sepc = val &^ 1
	case csrScause:
		c.scause = val
	case csrStval:
		c.stval = val
	case csrSip:
		c.mip = (c.mip &^ (sipWritable & c.mideleg)) | (val & sipWritable & c.mideleg)
	case csrSatp:
		if c.Priv == Supervisor && c.mstatus&mstatusTVM != 0 {
			return Trap(IllegalInstruction)
		}
		c.satp = val
	case csrScontext:
		c.scontext = val
	case csrSstateen0, csrSstateen1, csrSstateen2, csrSstateen3:
		c.sstateen[csr-csrSstateen0] = val

	case csrMisa:
		// Fixed at reset; writes are accepted and ignored.
	case csrMstatus:
		c.writeMstatus(val)
	case csrMedeleg:
		c.medeleg = val
	case csrMideleg:
		c.mideleg = val
	case csrMie:
		c.mie = val
	case csrMtvec:
		c.mtvec = val
	case csrMcounteren:
		c.mcounteren = val

	case csrMscratch:
		c.mscratch = val
	case csrMepc:
		c.mepc = val &^ 1
	case csrMcause:
		c.mcause = val
	case csrMtval:
		c.mtval = val
	case csrMip:
		c.mip = val

	default:
		return Trap(IllegalInstruction)
	}
	return nil
}

func (c *CSRFile) writeSstatus(val uint64) {
	c.mstatus = (c.mstatus &^ (sstatusMask &^ (mstatusXS | mstatusSD))) |
		(val & (sstatusMask &^ (mstatusXS | mstatusSD)))
	c.recomputeSD()
}

func (c *CSRFile) writeMstatus(val uint64) {
	c.mstatus = (c.mstatus &^ mstatusWritable) | (val & mstatusWritable)
	c.recomputeSD()
}

// recomputeSD keeps the SD summary bit consistent with FS/XS (spec §3
// invariant (ii)): SD = 1 iff FS==3 or XS==3.
func (c *CSRFile) recomputeSD() {
	fs := (c.mstatus & mstatusFS) >> 13
	xs := (c.mstatus & mstatusXS) >> 15
	if fs == 3 || xs == 3 {
		c.mstatus |= mstatusSD
	} else {
		c.mstatus &^= mstatusSD
	}
}

// SetFSDirty marks the FP register file dirty (FS=3), updating SD. Called
// by FP instructions that modify f-registers or fflags.
func (c *CSRFile) SetFSDirty() {
	c.mstatus = (c.mstatus &^ mstatusFS) | (3 << 13)
	c.recomputeSD()
}

// RaiseFFlags ORs the given sticky flag bits into fflags (spec §4.9).
func (c *CSRFile) RaiseFFlags(bits uint8) {
	c.fflags |= bits
	c.SetFSDirty()
}
