// Package replay implements the replay state-access (C11): given a
// completed access.Log and no real machine state, it drives the same
// interpreter code the logging state-access drove, checking each access
// against the log in order, verifying proofs when present, and rebuilding
// the root hash by folding writes forward. It never holds real machine
// state and never uses the native package's TLB-style shortcuts.
package replay

import (
	"github.com/creol-io/machine-emulator/access"
	"github.com/creol-io/machine-emulator/merkle"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
)

type mockEntry struct {
	start, length uint64
	flags         pma.Flags
}

func (m mockEntry) contains(paddr, size uint64) bool {
	if paddr < m.start {
		return false
	}
	return paddr-m.start <= m.length-size
}

// Access is the no-state replay implementation of access.StateAccess.
type Access struct {
	accesses     []access.WordAccess
	next         int
	oneBased     bool
	verifyProofs bool
	rootHash     merkle.Hash

	pmas []mockEntry
}

var _ access.StateAccess = (*Access)(nil)

// New builds a replayer over log. verifyProofs requires the log to carry
// proofs; oneBased makes error messages report 1-based access indices,
// matching a human-facing log dump.
func New(log access.Log, verifyProofs, oneBased bool) (*Access, error) {
	if verifyProofs && !log.Type.Proofs {
		return nil, &Error{Reason: "log has no proofs"}
	}
	a := &Access{
		accesses:     log.Accesses,
		oneBased:     oneBased,
		verifyProofs: verifyProofs,
	}
	if verifyProofs && len(log.Accesses) > 0 && log.Accesses[0].Proof != nil {
		a.rootHash = log.Accesses[0].Proof.RootHash
	}
	return a, nil
}

// Finish reports an error if the log has unconsumed accesses left, the
// same check the original machine performs at the end of a replay.
func (a *Access) Finish() error {
	if a.next != len(a.accesses) {
		return &Error{Reason: "too many word accesses in log"}
	}
	return nil
}

// RootHash returns the root hash reconstructed so far.
func (a *Access) RootHash() merkle.Hash { return a.rootHash }

func (a *Access) reportIndex() int {
	if a.oneBased {
		return a.next + 1
	}
	return a.next
}

func (a *Access) verifyProof(acc access.WordAccess, isWrite bool) error {
	p := acc.Proof
	if p == nil {
		return errf(a.reportIndex(), "access has no proof")
	}
	if p.Address != acc.Address {
		return errf(a.reportIndex(), "mismatch in access address and its proof address")
	}
	if a.rootHash != p.RootHash {
		return errf(a.reportIndex(), "mismatch in access root hash")
	}
	target := merkle.HashWord(acc.Read)
	if target != p.TargetHash {
		return errf(a.reportIndex(), "word value in access does not match target hash")
	}
	if merkle.Fold(p.Address, p.Log2Size, p.TargetHash, p.SiblingHashes) != p.RootHash {
		return errf(a.reportIndex(), "word value in access fails proof")
	}
	if isWrite {
		newTarget := merkle.HashWord(acc.Written)
		a.rootHash = merkle.Fold(p.Address, p.Log2Size, newTarget, p.SiblingHashes)
	}
	return nil
}

func (a *Access) checkRead(addr uint64, text string) uint64 {
	if a.next >= len(a.accesses) {
		panic(errf(a.reportIndex(), "too few word accesses in log"))
	}
	acc := a.accesses[a.next]
	if acc.Type != access.Read {
		panic(errf(a.reportIndex(), "expected access to read %s", text))
	}
	if acc.Address != addr {
		panic(errf(a.reportIndex(), "expected access to read %s at address 0x%x", text, addr))
	}
	if a.verifyProofs {
		if err := a.verifyProof(acc, false); err != nil {
			panic(err)
		}
	}
	a.next++
	return acc.Read
}

// checkWriteBefore consumes the read half of a write's read-then-write
// pair, returning the pre-image word.
func (a *Access) checkWriteBefore(addr uint64, text string) uint64 {
	return a.checkRead(addr, text)
}

// checkWriteAfter consumes the write half, checking the value the
// interpreter asked to write against the log and rolling the root hash
// forward when proofs are enabled.
func (a *Access) checkWriteAfter(addr uint64, val uint64, text string) {
	if a.next >= len(a.accesses) {
		panic(errf(a.reportIndex(), "too few word accesses in log"))
	}
	acc := a.accesses[a.next]
	if acc.Type != access.Write {
		panic(errf(a.reportIndex(), "expected access to write %s", text))
	}
	if acc.Address != addr {
		panic(errf(a.reportIndex(), "expected access to write %s at address 0x%x", text, addr))
	}
	if acc.Written != val {
		panic(errf(a.reportIndex(), "word value written in access does not match log"))
	}
	if a.verifyProofs {
		if err := a.verifyProof(acc, true); err != nil {
			panic(err)
		}
	}
	a.next++
}

// checkWrite is the common case: the value being written does not
// depend on the pre-image (full-word register/CSR/CLINT/HTIF writes).
func (a *Access) checkWrite(addr uint64, val uint64, text string) {
	a.checkWriteBefore(addr, text)
	a.checkWriteAfter(addr, val, text)
}

func (a *Access) ReadX(reg int) uint64 {
	return a.checkRead(pma.ShadowStart+state.RegisterOffset(reg), "x")
}

func (a *Access) WriteX(reg int, val uint64) {
	if reg == 0 {
		return
	}
	a.checkWrite(pma.ShadowStart+state.RegisterOffset(reg), val, "x")
}

func (a *Access) ReadPC() uint64     { return a.checkRead(pma.ShadowStart+state.CSRPc.Offset(), "pc") }
func (a *Access) WritePC(val uint64) { a.checkWrite(pma.ShadowStart+state.CSRPc.Offset(), val, "pc") }

func (a *Access) ReadCSR(c state.CSR) uint64 {
	return a.checkRead(pma.ShadowStart+c.Offset(), c.String())
}

func (a *Access) WriteCSR(c state.CSR, val uint64) {
	if c.Immutable() {
		return
	}
	a.checkWrite(pma.ShadowStart+c.Offset(), val, c.String())
}

func (a *Access) ReadIflagsPRV() uint8 {
	return state.UnpackIflags(a.ReadCSR(state.CSRIflags)).PRV
}
func (a *Access) WriteIflagsPRV(prv uint8) {
	f := state.UnpackIflags(a.ReadCSR(state.CSRIflags))
	f.PRV = prv
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ReadIflagsH() bool { return state.UnpackIflags(a.ReadCSR(state.CSRIflags)).H }
func (a *Access) SetIflagsH() {
	f := state.UnpackIflags(a.ReadCSR(state.CSRIflags))
	f.H = true
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ReadIflagsY() bool { return state.UnpackIflags(a.ReadCSR(state.CSRIflags)).Y }
func (a *Access) SetIflagsY() {
	f := state.UnpackIflags(a.ReadCSR(state.CSRIflags))
	f.Y = true
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ResetIflagsY() {
	f := state.UnpackIflags(a.ReadCSR(state.CSRIflags))
	f.Y = false
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ReadIflagsI() bool { return state.UnpackIflags(a.ReadCSR(state.CSRIflags)).I }
func (a *Access) SetIflagsI() {
	f := state.UnpackIflags(a.ReadCSR(state.CSRIflags))
	f.I = true
	a.WriteCSR(state.CSRIflags, f.Pack())
}
func (a *Access) ResetIflagsI() {
	f := state.UnpackIflags(a.ReadCSR(state.CSRIflags))
	f.I = false
	a.WriteCSR(state.CSRIflags, f.Pack())
}

func (a *Access) ReadCLINTMtimecmp() uint64 {
	return a.checkRead(pma.CLINTStart+pma.CLINTMtimecmpRel, "clint.mtimecmp")
}
func (a *Access) WriteCLINTMtimecmp(val uint64) {
	a.checkWrite(pma.CLINTStart+pma.CLINTMtimecmpRel, val, "clint.mtimecmp")
}

func (a *Access) ReadHTIFTohost() uint64 {
	return a.checkRead(pma.HTIFStart+pma.HTIFTohostRel, "htif.tohost")
}
func (a *Access) WriteHTIFTohost(val uint64) {
	a.checkWrite(pma.HTIFStart+pma.HTIFTohostRel, val, "htif.tohost")
}
func (a *Access) ReadHTIFFromhost() uint64 {
	return a.checkRead(pma.HTIFStart+pma.HTIFFromhostRel, "htif.fromhost")
}
func (a *Access) WriteHTIFFromhost(val uint64) {
	a.checkWrite(pma.HTIFStart+pma.HTIFFromhostRel, val, "htif.fromhost")
}

// ReadHTIFIhalt/Iconsole/Iyield are configuration masks fixed at machine
// construction; replay treats them as constants rather than logged
// accesses, matching the original's shadow_state fields that machine
// config, not instructions, ever write.
func (a *Access) ReadHTIFIhalt() uint64    { return 0 }
func (a *Access) ReadHTIFIconsole() uint64 { return 1 << 1 }
func (a *Access) ReadHTIFIyield() uint64   { return 1 << 1 }

func (a *Access) ReadPMAIstart(i int) uint64 {
	addr := pma.ShadowStart + state.PMATableBase + uint64(i)*16
	idx := a.reportIndex()
	istart := a.checkRead(addr, "pma.istart")
	start, flags := pma.UnpackIstart(istart)
	kinds := 0
	for _, set := range []bool{flags.M, flags.IO, flags.E} {
		if set {
			kinds++
		}
	}
	if kinds != 1 || flags.DID > pma.DriverHTIF {
		panic(errf(idx, "invalid istart in pma entry %d", i))
	}
	if i < len(a.pmas) {
		a.pmas[i].start, a.pmas[i].flags = start, flags
	} else {
		for len(a.pmas) < i {
			a.pmas = append(a.pmas, mockEntry{})
		}
		a.pmas = append(a.pmas, mockEntry{start: start, flags: flags})
	}
	return istart
}

func (a *Access) ReadPMAIlength(i int) uint64 {
	addr := pma.ShadowStart + state.PMATableBase + uint64(i)*16 + 8
	length := a.checkRead(addr, "pma.ilength")
	if i < len(a.pmas) {
		a.pmas[i].length = length
	}
	return length
}

func (a *Access) findMockEntry(paddr, size uint64) (*mockEntry, bool) {
	for i := range a.pmas {
		if a.pmas[i].contains(paddr, size) {
			return &a.pmas[i], true
		}
	}
	return nil, false
}

// ReadMemory/WriteMemory dispatch against the mock PMA table built from
// whatever istart/ilength accesses have been replayed so far; the
// interpreter must query the PMA table before touching memory, just as
// it does on the logging side, or replay has nothing to dispatch on.
func (a *Access) ReadMemory(paddr uint64, size int) (uint64, error) {
	aligned := paddr &^ 7
	if _, ok := a.findMockEntry(paddr, uint64(size)); !ok {
		return 0, &pma.UnmappedError{Addr: paddr}
	}
	full := a.checkRead(aligned, "memory")
	if size == 8 {
		return full, nil
	}
	shift := (paddr - aligned) * 8
	mask := uint64(1)<<(uint(size)*8) - 1
	return (full >> shift) & mask, nil
}

func (a *Access) WriteMemory(paddr uint64, size int, val uint64) error {
	aligned := paddr &^ 7
	e, ok := a.findMockEntry(paddr, uint64(size))
	if !ok {
		return &pma.UnmappedError{Addr: paddr}
	}
	if !e.flags.W {
		return &pma.PermissionError{Addr: paddr, Op: "write"}
	}
	before := a.checkWriteBefore(aligned, "memory")
	after := val
	if size != 8 {
		shift := (paddr - aligned) * 8
		mask := uint64(1)<<(uint(size)*8) - 1
		after = (before &^ (mask << shift)) | ((val & mask) << shift)
	}
	a.checkWriteAfter(aligned, after, "memory")
	return nil
}

func (a *Access) PushBracket(t access.BracketType, text string) {}
func (a *Access) MakeScopedNote(text string) func()             { return func() {} }
