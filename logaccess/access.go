// Package logaccess implements the logging state-access: every read or
// write the interpreter performs through it is appended to an
// access.Log, optionally carrying a Merkle inclusion proof, following
// the check_read/check_write pattern of the original machine's
// step_state_access.
package logaccess

import (
	"github.com/creol-io/machine-emulator/access"
	"github.com/creol-io/machine-emulator/merkle"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
)

// Access wraps a machine state and a Merkle tree, recording every access
// it services. Every PMA region participates in the tree, including
// CLINT and HTIF: their device backings expose a Peek callback so their
// registers can be projected into pages and proven the same way RAM and
// the shadow projection are.
type Access struct {
	St   *state.State
	Tree *merkle.Tree

	LogType access.LogType
	log     access.Log
}

var _ access.StateAccess = (*Access)(nil)

func New(st *state.State, tree *merkle.Tree, lt access.LogType) *Access {
	return &Access{St: st, Tree: tree, LogType: lt}
}

// Log returns the access log recorded so far, stamped with the LogType
// this access was built with.
func (a *Access) Log() access.Log {
	l := a.log
	l.Type = a.LogType
	return l
}

func (a *Access) refreshShadow() {
	a.Tree.UpdatePage(pma.ShadowStart, state.Peek(a.St))
}

// refreshPage brings the tree's copy of the page containing addr in
// entry e up to date with current state, reading the page through the
// entry's backing: memory bytes, or device registers projected through
// Peek.
func (a *Access) refreshPage(e *pma.Entry, addr uint64) {
	pageStart := e.Start + ((addr - e.Start) &^ uint64(pma.PageSize-1))
	a.Tree.UpdatePage(pageStart, pageAt(e, pageStart))
}

// deviceProofBefore looks up the PMA entry backing a single named
// register (CLINT, HTIF) at addr, refreshes its tree page from current
// state, and returns a proof of its pre-mutation leaf.
func (a *Access) deviceProofBefore(addr uint64) *merkle.Proof {
	e, ok := a.St.PMA.Find(addr, 8)
	if !ok {
		return nil
	}
	a.refreshPage(e, addr)
	return a.proofBefore(addr, true)
}

func (a *Access) refreshDeviceRegister(addr uint64) {
	if e, ok := a.St.PMA.Find(addr, 8); ok {
		a.refreshPage(e, addr)
	}
}

// proofBefore returns the proof of addr's current leaf, to be attached
// to an access before the underlying state (and tree) is mutated. The
// original machine rolls the log's root hash forward from this "before"
// proof using the access's written value, so it must be captured before
// the write lands.
func (a *Access) proofBefore(addr uint64, proofable bool) *merkle.Proof {
	if !a.LogType.Proofs || !proofable {
		return nil
	}
	p := a.Tree.GetProof(addr, merkle.LeafLevel)
	return &p
}

func (a *Access) logRead(addr uint64, val uint64, proof *merkle.Proof) uint64 {
	a.log.Accesses = append(a.log.Accesses, access.WordAccess{
		Type: access.Read, Address: addr, Log2Size: merkle.LeafLevel, Read: val, Proof: proof,
	})
	return val
}

// logWrite appends the read-then-write pair the verifier needs: the
// pre-image word (with its proof) so a replayer can check the write
// against a known root, followed by the write itself.
func (a *Access) logWrite(addr uint64, before, after uint64, proof *merkle.Proof) {
	a.log.Accesses = append(a.log.Accesses,
		access.WordAccess{Type: access.Read, Address: addr, Log2Size: merkle.LeafLevel, Read: before, Proof: proof},
		access.WordAccess{Type: access.Write, Address: addr, Log2Size: merkle.LeafLevel, Read: before, Written: after, Proof: proof},
	)
}

func (a *Access) ReadX(reg int) uint64 {
	a.refreshShadow()
	addr := pma.ShadowStart + state.RegisterOffset(reg)
	proof := a.proofBefore(addr, true)
	return a.logRead(addr, a.St.ReadX(reg), proof)
}

// WriteX to x0 is never logged: the register cannot change and the
// original machine skips the access entirely rather than recording a
// no-op write.
func (a *Access) WriteX(reg int, val uint64) {
	if reg == 0 {
		return
	}
	a.refreshShadow()
	addr := pma.ShadowStart + state.RegisterOffset(reg)
	before := a.St.ReadX(reg)
	proof := a.proofBefore(addr, true)
	a.St.WriteX(reg, val)
	a.logWrite(addr, before, val, proof)
}

func (a *Access) ReadPC() uint64     { return a.ReadCSR(state.CSRPc) }
func (a *Access) WritePC(val uint64) { a.WriteCSR(state.CSRPc, val) }

func (a *Access) ReadCSR(c state.CSR) uint64 {
	a.refreshShadow()
	addr := pma.ShadowStart + c.Offset()
	proof := a.proofBefore(addr, true)
	return a.logRead(addr, a.St.ReadCSR(c), proof)
}

// WriteCSR to an immutable CSR emits no access at all: the write is a
// pure no-op, the same as a write to x[0].
func (a *Access) WriteCSR(c state.CSR, val uint64) {
	if c.Immutable() {
		return
	}
	a.refreshShadow()
	addr := pma.ShadowStart + c.Offset()
	before := a.St.ReadCSR(c)
	proof := a.proofBefore(addr, true)
	a.St.WriteCSR(c, val)
	a.logWrite(addr, before, val, proof)
}

func (a *Access) ReadIflagsPRV() uint8 { return a.St.ReadIflagsPRV() }
func (a *Access) WriteIflagsPRV(prv uint8) {
	f := state.Iflags{PRV: prv, I: a.St.ReadIflagsI(), Y: a.St.ReadIflagsY(), H: a.St.ReadIflagsH()}
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ReadIflagsH() bool { return a.St.ReadIflagsH() }
func (a *Access) SetIflagsH() {
	f := state.Iflags{PRV: a.St.ReadIflagsPRV(), I: a.St.ReadIflagsI(), Y: a.St.ReadIflagsY(), H: true}
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ReadIflagsY() bool { return a.St.ReadIflagsY() }
func (a *Access) SetIflagsY() {
	f := state.Iflags{PRV: a.St.ReadIflagsPRV(), I: a.St.ReadIflagsI(), Y: true, H: a.St.ReadIflagsH()}
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ResetIflagsY() {
	f := state.Iflags{PRV: a.St.ReadIflagsPRV(), I: a.St.ReadIflagsI(), Y: false, H: a.St.ReadIflagsH()}
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ReadIflagsI() bool { return a.St.ReadIflagsI() }
func (a *Access) SetIflagsI() {
	f := state.Iflags{PRV: a.St.ReadIflagsPRV(), I: true, Y: a.St.ReadIflagsY(), H: a.St.ReadIflagsH()}
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ResetIflagsI() {
	f := state.Iflags{PRV: a.St.ReadIflagsPRV(), I: false, Y: a.St.ReadIflagsY(), H: a.St.ReadIflagsH()}
	a.WriteCSR(state.CSRIflags, f.Pack())
}

func (a *Access) ReadCLINTMtimecmp() uint64 {
	addr := uint64(pma.CLINTStart + pma.CLINTMtimecmpRel)
	proof := a.deviceProofBefore(addr)
	return a.logRead(addr, a.St.ReadCLINTMtimecmp(), proof)
}

func (a *Access) WriteCLINTMtimecmp(val uint64) {
	addr := uint64(pma.CLINTStart + pma.CLINTMtimecmpRel)
	before := a.St.ReadCLINTMtimecmp()
	proof := a.deviceProofBefore(addr)
	a.St.WriteCLINTMtimecmp(val)
	a.refreshDeviceRegister(addr)
	a.logWrite(addr, before, val, proof)
}

func (a *Access) ReadHTIFTohost() uint64 {
	addr := uint64(pma.HTIFStart + pma.HTIFTohostRel)
	proof := a.deviceProofBefore(addr)
	return a.logRead(addr, a.St.ReadHTIFTohost(), proof)
}

func (a *Access) WriteHTIFTohost(val uint64) {
	addr := uint64(pma.HTIFStart + pma.HTIFTohostRel)
	before := a.St.ReadHTIFTohost()
	proof := a.deviceProofBefore(addr)
	a.St.WriteHTIFTohost(val)
	a.refreshDeviceRegister(addr)
	a.logWrite(addr, before, val, proof)
}

func (a *Access) ReadHTIFFromhost() uint64 {
	addr := uint64(pma.HTIFStart + pma.HTIFFromhostRel)
	proof := a.deviceProofBefore(addr)
	return a.logRead(addr, a.St.ReadHTIFFromhost(), proof)
}

func (a *Access) WriteHTIFFromhost(val uint64) {
	addr := uint64(pma.HTIFStart + pma.HTIFFromhostRel)
	before := a.St.ReadHTIFFromhost()
	proof := a.deviceProofBefore(addr)
	a.St.WriteHTIFFromhost(val)
	a.refreshDeviceRegister(addr)
	a.logWrite(addr, before, val, proof)
}

func (a *Access) ReadHTIFIhalt() uint64    { return a.St.ReadHTIFIhalt() }
func (a *Access) ReadHTIFIconsole() uint64 { return a.St.ReadHTIFIconsole() }
func (a *Access) ReadHTIFIyield() uint64   { return a.St.ReadHTIFIyield() }

func (a *Access) ReadPMAIstart(i int) uint64 {
	entries := a.St.PMA.Entries()
	if i < 0 || i >= len(entries) {
		return 0
	}
	a.refreshShadow()
	addr := pma.ShadowStart + state.PMATableBase + uint64(i)*16
	val := pma.PackIstart(entries[i].Start, entries[i].Flags)
	proof := a.proofBefore(addr, true)
	return a.logRead(addr, val, proof)
}

func (a *Access) ReadPMAIlength(i int) uint64 {
	entries := a.St.PMA.Entries()
	if i < 0 || i >= len(entries) {
		return 0
	}
	a.refreshShadow()
	addr := pma.ShadowStart + state.PMATableBase + uint64(i)*16 + 8
	proof := a.proofBefore(addr, true)
	return a.logRead(addr, entries[i].Length, proof)
}

// ReadMemory/WriteMemory log the aligned 8-byte word containing the
// requested access, applying a read-modify-write for sub-word sizes so
// every logged entry is a whole Merkle leaf.
func (a *Access) ReadMemory(paddr uint64, size int) (uint64, error) {
	e, ok := a.St.PMA.Find(paddr, uint64(size))
	if !ok {
		return 0, &pma.UnmappedError{Addr: paddr}
	}
	aligned := paddr &^ 7
	proofable := e.Memory != nil || (e.Device != nil && e.Device.Peek != nil)
	if proofable {
		a.refreshPage(e, aligned)
	}
	full, err := e.ReadWord(aligned, 8)
	if err != nil {
		return 0, err
	}
	proof := a.proofBefore(aligned, proofable)
	a.logRead(aligned, full, proof)
	if size == 8 {
		return full, nil
	}
	shift := (paddr - aligned) * 8
	mask := uint64(1)<<(uint(size)*8) - 1
	return (full >> shift) & mask, nil
}

func (a *Access) WriteMemory(paddr uint64, size int, val uint64) error {
	e, ok := a.St.PMA.Find(paddr, uint64(size))
	if !ok {
		return &pma.UnmappedError{Addr: paddr}
	}
	aligned := paddr &^ 7
	proofable := e.Memory != nil || (e.Device != nil && e.Device.Peek != nil)
	if proofable {
		a.refreshPage(e, aligned)
	}
	before, err := e.ReadWord(aligned, 8)
	if err != nil {
		return err
	}

	after := val
	if size != 8 {
		shift := (paddr - aligned) * 8
		mask := uint64(1)<<(uint(size)*8) - 1
		after = (before &^ (mask << shift)) | ((val & mask) << shift)
	}

	proof := a.proofBefore(aligned, proofable)
	if err := e.WriteWord(aligned, 8, after); err != nil {
		return err
	}
	if proofable {
		a.refreshPage(e, aligned)
	}
	a.logWrite(aligned, before, after, proof)
	return nil
}

func pageAt(e *pma.Entry, pageStart uint64) []byte {
	pageOffset := (pageStart - e.Start) / pma.PageSize
	data, ok := e.Peek(pageOffset)
	if !ok {
		return make([]byte, pma.PageSize)
	}
	if len(data) == pma.PageSize {
		return data
	}
	page := make([]byte, pma.PageSize)
	copy(page, data)
	return page
}

func (a *Access) PushBracket(t access.BracketType, text string) {
	a.log.Brackets = append(a.log.Brackets, access.Bracket{Type: t, Text: text, Note: len(a.log.Notes)})
}

func (a *Access) MakeScopedNote(text string) func() {
	idx := len(a.log.Notes)
	a.log.Notes = append(a.log.Notes, text)
	return func() {
		if idx < len(a.log.Notes) {
			a.log.Notes[idx] = a.log.Notes[idx] + " (end)"
		}
	}
}
