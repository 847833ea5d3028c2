// Package state holds the machine's architectural state (C4) and the
// projection that serialises it into the shadow page (C5).
package state

import (
	"github.com/creol-io/machine-emulator/pma"
)

// Vendor/architecture/implementation identifiers, fixed at reset like the
// original machine's machine_config defaults.
const (
	VendorID = 0x6361727465736920 // "cartesi " read as an ASCII id, kept for reset defaults
	ArchID   = 1
	ImplID   = 1
)

// misa extension bits (subset actually exercised: I, M, A, S, U) and the
// MXL=2 (64-bit) field shifted into the top two bits.
const (
	misaExtS = 1 << 18
	misaExtU = 1 << 20
	misaExtI = 1 << 8
	misaExtM = 1 << 12
	misaExtA = 1 << 0
	misaMXL2 = uint64(2) << 62
)

// State is the machine's entire architectural state: PC, x[0..31], all
// M/S-mode CSRs, CLINT/HTIF registers, iflags, and the PMA table. There
// is a single owner; Step and Run mutate it in place.
type State struct {
	PMA *pma.Table

	csrs   [csrCount]uint64
	x      [32]uint64
	iflags Iflags

	clintMtimecmp uint64

	htifTohost   uint64
	htifFromhost uint64
	htifIhalt    uint64
	htifIconsole uint64
	htifIyield   uint64

	brk bool
}

// New returns a state reset the way machine_config's constructor resets
// the processor: PC at ROM start, M-mode, no reservation, a 64-bit misa
// with S/U/I/M/A extensions, and the fixed vendor/arch/impl IDs.
func New(pmaTable *pma.Table) *State {
	s := &State{PMA: pmaTable}
	s.csrs[CSRPc] = pma.ROMStart
	s.csrs[CSRMvendorid] = VendorID
	s.csrs[CSRMarchid] = ArchID
	s.csrs[CSRMimpid] = ImplID
	s.csrs[CSRMisa] = misaMXL2 | misaExtS | misaExtU | misaExtI | misaExtM | misaExtA
	s.csrs[CSRIlrsc] = ^uint64(0)
	s.iflags = Iflags{PRV: PrvM}
	s.recomputeBrk()
	return s
}

// ReadX returns x[i]; x[0] always reads as zero.
func (s *State) ReadX(i int) uint64 {
	if i == 0 {
		return 0
	}
	return s.x[i]
}

// WriteX writes x[i]. Writes to x[0] are no-ops.
func (s *State) WriteX(i int, v uint64) {
	if i == 0 {
		return
	}
	s.x[i] = v
}

// ReadCSR returns the raw value of a named CSR, packing iflags on demand.
func (s *State) ReadCSR(c CSR) uint64 {
	if c == CSRIflags {
		return s.iflags.Pack()
	}
	return s.csrs[c]
}

// WriteCSR writes the raw value of a named CSR, unpacking iflags on
// demand and recomputing brk when mip/mie/iflags change.
func (s *State) WriteCSR(c CSR, v uint64) {
	if c == CSRIflags {
		s.SetIflags(UnpackIflags(v))
		return
	}
	if c.immutable() {
		return
	}
	s.csrs[c] = v
	if c == CSRMip || c == CSRMie {
		s.recomputeBrk()
	}
}

// Immutable reports whether c can never change after reset (used by the
// logging state-access to decide whether a write attempt should still
// produce a log entry).
func (c CSR) Immutable() bool { return c.immutable() }

func (s *State) ReadPC() uint64       { return s.csrs[CSRPc] }
func (s *State) WritePC(v uint64)     { s.csrs[CSRPc] = v }
func (s *State) ReadMvendorid() uint64 { return s.csrs[CSRMvendorid] }
func (s *State) ReadMarchid() uint64   { return s.csrs[CSRMarchid] }
func (s *State) ReadMimpid() uint64    { return s.csrs[CSRMimpid] }
func (s *State) ReadMcycle() uint64    { return s.csrs[CSRMcycle] }
func (s *State) WriteMcycle(v uint64) {
	if v < s.csrs[CSRMcycle] {
		panic("mcycle must be monotonically non-decreasing")
	}
	s.csrs[CSRMcycle] = v
}
func (s *State) ReadMinstret() uint64    { return s.csrs[CSRMinstret] }
func (s *State) WriteMinstret(v uint64)  { s.csrs[CSRMinstret] = v }
func (s *State) ReadMstatus() uint64     { return s.csrs[CSRMstatus] }
func (s *State) WriteMstatus(v uint64)   { s.csrs[CSRMstatus] = v }
func (s *State) ReadMtvec() uint64       { return s.csrs[CSRMtvec] }
func (s *State) WriteMtvec(v uint64)     { s.csrs[CSRMtvec] = v }
func (s *State) ReadMscratch() uint64    { return s.csrs[CSRMscratch] }
func (s *State) WriteMscratch(v uint64)  { s.csrs[CSRMscratch] = v }
func (s *State) ReadMepc() uint64        { return s.csrs[CSRMepc] }
func (s *State) WriteMepc(v uint64)      { s.csrs[CSRMepc] = v }
func (s *State) ReadMcause() uint64      { return s.csrs[CSRMcause] }
func (s *State) WriteMcause(v uint64)    { s.csrs[CSRMcause] = v }
func (s *State) ReadMtval() uint64       { return s.csrs[CSRMtval] }
func (s *State) WriteMtval(v uint64)     { s.csrs[CSRMtval] = v }
func (s *State) ReadMisa() uint64        { return s.csrs[CSRMisa] }
func (s *State) WriteMisa(v uint64)      { s.csrs[CSRMisa] = v }
func (s *State) ReadMie() uint64         { return s.csrs[CSRMie] }
func (s *State) WriteMie(v uint64)       { s.WriteCSR(CSRMie, v) }
func (s *State) ReadMip() uint64         { return s.csrs[CSRMip] }
func (s *State) WriteMip(v uint64)       { s.WriteCSR(CSRMip, v) }
func (s *State) ReadMedeleg() uint64     { return s.csrs[CSRMedeleg] }
func (s *State) WriteMedeleg(v uint64)   { s.csrs[CSRMedeleg] = v }
func (s *State) ReadMideleg() uint64     { return s.csrs[CSRMideleg] }
func (s *State) WriteMideleg(v uint64)   { s.csrs[CSRMideleg] = v }
func (s *State) ReadMcounteren() uint64  { return s.csrs[CSRMcounteren] }
func (s *State) WriteMcounteren(v uint64) { s.csrs[CSRMcounteren] = v }
func (s *State) ReadStvec() uint64       { return s.csrs[CSRStvec] }
func (s *State) WriteStvec(v uint64)     { s.csrs[CSRStvec] = v }
func (s *State) ReadSscratch() uint64    { return s.csrs[CSRSscratch] }
func (s *State) WriteSscratch(v uint64)  { s.csrs[CSRSscratch] = v }
func (s *State) ReadSepc() uint64        { return s.csrs[CSRSepc] }
func (s *State) WriteSepc(v uint64)      { s.csrs[CSRSepc] = v }
func (s *State) ReadScause() uint64      { return s.csrs[CSRScause] }
func (s *State) WriteScause(v uint64)    { s.csrs[CSRScause] = v }
func (s *State) ReadStval() uint64       { return s.csrs[CSRStval] }
func (s *State) WriteStval(v uint64)     { s.csrs[CSRStval] = v }
func (s *State) ReadSatp() uint64        { return s.csrs[CSRSatp] }
func (s *State) WriteSatp(v uint64)      { s.csrs[CSRSatp] = v }
func (s *State) ReadScounteren() uint64  { return s.csrs[CSRScounteren] }
func (s *State) WriteScounteren(v uint64) { s.csrs[CSRScounteren] = v }
func (s *State) ReadIlrsc() uint64       { return s.csrs[CSRIlrsc] }
func (s *State) WriteIlrsc(v uint64)     { s.csrs[CSRIlrsc] = v }

// ReadIflags/SetIflags give packed access to iflags; the per-field
// helpers below give the unpacked view the interpreter uses to test and
// mutate PRV/I/Y/H individually without reconstructing the whole word.
func (s *State) ReadIflags() uint64 { return s.iflags.Pack() }
func (s *State) SetIflags(f Iflags) {
	s.iflags = f
	s.recomputeBrk()
}

func (s *State) ReadIflagsH() bool { return s.iflags.H }
func (s *State) SetIflagsH()       { s.iflags.H = true; s.recomputeBrk() }

func (s *State) ReadIflagsY() bool { return s.iflags.Y }
func (s *State) SetIflagsY()       { s.iflags.Y = true; s.recomputeBrk() }
func (s *State) ResetIflagsY()     { s.iflags.Y = false; s.recomputeBrk() }

func (s *State) ReadIflagsI() bool { return s.iflags.I }
func (s *State) SetIflagsI()       { s.iflags.I = true }
func (s *State) ResetIflagsI()     { s.iflags.I = false }

func (s *State) ReadIflagsPRV() uint8   { return s.iflags.PRV }
func (s *State) WriteIflagsPRV(v uint8) { s.iflags.PRV = v & 0x3 }

// ReadCLINTMtimecmp/WriteCLINTMtimecmp expose the CLINT mtimecmp
// register. Writing it clears MIP.MTIP synchronously.
func (s *State) ReadCLINTMtimecmp() uint64 { return s.clintMtimecmp }
func (s *State) WriteCLINTMtimecmp(v uint64) {
	s.clintMtimecmp = v
	s.WriteMip(s.ReadMip() &^ MipMTIP)
}

// ReadMtime derives the CLINT mtime CSR from mcycle, per the fixed
// RTCFreqDiv ratio.
func (s *State) ReadMtime() uint64 {
	return s.ReadMcycle() / pma.RTCFreqDiv
}

// MipMTIP is the machine-timer-interrupt-pending bit of mip.
const MipMTIP = 1 << 7

// HTIF register accessors.
func (s *State) ReadHTIFTohost() uint64   { return s.htifTohost }
func (s *State) WriteHTIFTohost(v uint64) { s.htifTohost = v; s.recomputeBrk() }
func (s *State) ReadHTIFFromhost() uint64   { return s.htifFromhost }
func (s *State) WriteHTIFFromhost(v uint64) { s.htifFromhost = v }
func (s *State) ReadHTIFIhalt() uint64      { return s.htifIhalt }
func (s *State) WriteHTIFIhalt(v uint64)    { s.htifIhalt = v }
func (s *State) ReadHTIFIconsole() uint64   { return s.htifIconsole }
func (s *State) WriteHTIFIconsole(v uint64) { s.htifIconsole = v }
func (s *State) ReadHTIFIyield() uint64     { return s.htifIyield }
func (s *State) WriteHTIFIyield(v uint64)   { s.htifIyield = v; s.recomputeBrk() }

// Brk reports whether the interpreter's tight loop must break, per the
// derived-never-free invariant: it is recomputed after any change that
// could affect it, never stored independently of that logic.
func (s *State) Brk() bool { return s.brk }

func (s *State) brkFromIflagsY() bool {
	if !s.iflags.Y {
		return false
	}
	dev := s.htifTohost >> 56
	cmd := (s.htifTohost << 8) >> 56
	return dev == 2 && (s.htifIyield>>cmd)&1 != 0
}

func (s *State) recomputeBrk() {
	s.brk = (s.csrs[CSRMip]&s.csrs[CSRMie]) != 0 || s.iflags.H || s.brkFromIflagsY()
}

// IsDone reports whether mcycle has reached cyclesEnd.
func (s *State) IsDone(cyclesEnd uint64) bool {
	return s.ReadMcycle() >= cyclesEnd
}
