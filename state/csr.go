package state

// CSR enumerates the named machine-state scalars that live in the shadow
// region, in the fixed order that determines their shadow offset. The
// order matches the original machine's shadow_csr enumeration.
type CSR int

const (
	CSRPc CSR = iota
	CSRMvendorid
	CSRMarchid
	CSRMimpid
	CSRMcycle
	CSRMinstret
	CSRMstatus
	CSRMtvec
	CSRMscratch
	CSRMepc
	CSRMcause
	CSRMtval
	CSRMisa
	CSRMie
	CSRMip
	CSRMedeleg
	CSRMideleg
	CSRMcounteren
	CSRStvec
	CSRSscratch
	CSRSepc
	CSRScause
	CSRStval
	CSRSatp
	CSRScounteren
	CSRIlrsc
	CSRIflags

	csrCount
)

// RegistersBase is the shadow offset of x[0], and each CSR follows the
// 32-word register file at CSRBase.
const (
	RegistersBase = 0x000
	RegisterCount = 32
	CSRBase       = 0x100
)

// Offset returns the shadow-relative byte offset of the CSR.
func (c CSR) Offset() uint64 {
	return CSRBase + uint64(c)*8
}

// RegisterOffset returns the shadow-relative byte offset of x[i].
func RegisterOffset(i int) uint64 {
	return RegistersBase + uint64(i)*8
}

var csrNames = [...]string{
	CSRPc: "pc", CSRMvendorid: "mvendorid", CSRMarchid: "marchid", CSRMimpid: "mimpid",
	CSRMcycle: "mcycle", CSRMinstret: "minstret", CSRMstatus: "mstatus", CSRMtvec: "mtvec",
	CSRMscratch: "mscratch", CSRMepc: "mepc", CSRMcause: "mcause", CSRMtval: "mtval",
	CSRMisa: "misa", CSRMie: "mie", CSRMip: "mip", CSRMedeleg: "medeleg", CSRMideleg: "mideleg",
	CSRMcounteren: "mcounteren", CSRStvec: "stvec", CSRSscratch: "sscratch", CSRSepc: "sepc",
	CSRScause: "scause", CSRStval: "stval", CSRSatp: "satp", CSRScounteren: "scounteren",
	CSRIlrsc: "ilrsc", CSRIflags: "iflags",
}

// String returns the CSR's name, used in log and error messages.
func (c CSR) String() string {
	if int(c) < 0 || int(c) >= len(csrNames) {
		return "csr?"
	}
	return csrNames[c]
}

// immutable reports whether writes triggering a superfluous read must
// still not be logged as writes for this CSR (mvendorid/marchid/mimpid
// and misa never change after reset).
func (c CSR) immutable() bool {
	switch c {
	case CSRMvendorid, CSRMarchid, CSRMimpid, CSRMisa:
		return true
	default:
		return false
	}
}
