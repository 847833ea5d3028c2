// Package native implements the fast state-access path (C7): the
// interpreter reads and writes machine state directly, with no logging
// and no proof computation. It is what Run uses; Step's logging path
// lives in package logaccess.
package native

import (
	"github.com/creol-io/machine-emulator/access"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
)

// Access is the direct, unlogged implementation of access.StateAccess.
type Access struct {
	St *state.State
}

var _ access.StateAccess = (*Access)(nil)

func New(st *state.State) *Access { return &Access{St: st} }

func (a *Access) ReadX(reg int) uint64      { return a.St.ReadX(reg) }
func (a *Access) WriteX(reg int, val uint64) { a.St.WriteX(reg, val) }

func (a *Access) ReadPC() uint64      { return a.St.ReadPC() }
func (a *Access) WritePC(val uint64)  { a.St.WritePC(val) }

func (a *Access) ReadCSR(c state.CSR) uint64      { return a.St.ReadCSR(c) }
func (a *Access) WriteCSR(c state.CSR, val uint64) { a.St.WriteCSR(c, val) }

func (a *Access) ReadIflagsPRV() uint8    { return a.St.ReadIflagsPRV() }
func (a *Access) WriteIflagsPRV(prv uint8) { a.St.WriteIflagsPRV(prv) }
func (a *Access) ReadIflagsH() bool       { return a.St.ReadIflagsH() }
func (a *Access) SetIflagsH()             { a.St.SetIflagsH() }
func (a *Access) ReadIflagsY() bool       { return a.St.ReadIflagsY() }
func (a *Access) SetIflagsY()             { a.St.SetIflagsY() }
func (a *Access) ResetIflagsY()           { a.St.ResetIflagsY() }
func (a *Access) ReadIflagsI() bool       { return a.St.ReadIflagsI() }
func (a *Access) SetIflagsI()             { a.St.SetIflagsI() }
func (a *Access) ResetIflagsI()           { a.St.ResetIflagsI() }

func (a *Access) ReadCLINTMtimecmp() uint64      { return a.St.ReadCLINTMtimecmp() }
func (a *Access) WriteCLINTMtimecmp(val uint64)  { a.St.WriteCLINTMtimecmp(val) }

func (a *Access) ReadHTIFTohost() uint64     { return a.St.ReadHTIFTohost() }
func (a *Access) WriteHTIFTohost(val uint64) { a.St.WriteHTIFTohost(val) }
func (a *Access) ReadHTIFFromhost() uint64   { return a.St.ReadHTIFFromhost() }
func (a *Access) WriteHTIFFromhost(val uint64) { a.St.WriteHTIFFromhost(val) }
func (a *Access) ReadHTIFIhalt() uint64      { return a.St.ReadHTIFIhalt() }
func (a *Access) ReadHTIFIconsole() uint64   { return a.St.ReadHTIFIconsole() }
func (a *Access) ReadHTIFIyield() uint64     { return a.St.ReadHTIFIyield() }

func (a *Access) ReadPMAIstart(i int) uint64 {
	entries := a.St.PMA.Entries()
	if i < 0 || i >= len(entries) {
		return 0
	}
	return pma.PackIstart(entries[i].Start, entries[i].Flags)
}

func (a *Access) ReadPMAIlength(i int) uint64 {
	entries := a.St.PMA.Entries()
	if i < 0 || i >= len(entries) {
		return 0
	}
	return entries[i].Length
}

func (a *Access) ReadMemory(paddr uint64, size int) (uint64, error) {
	e, ok := a.St.PMA.Find(paddr, uint64(size))
	if !ok {
		return 0, &pma.UnmappedError{Addr: paddr}
	}
	return e.ReadWord(paddr, size)
}

func (a *Access) WriteMemory(paddr uint64, size int, val uint64) error {
	e, ok := a.St.PMA.Find(paddr, uint64(size))
	if !ok {
		return &pma.UnmappedError{Addr: paddr}
	}
	return e.WriteWord(paddr, size, val)
}

// PushBracket and MakeScopedNote are no-ops on the fast path: annotation
// is only meaningful for a log meant to be read by a human or verifier.
func (a *Access) PushBracket(t access.BracketType, text string) {}
func (a *Access) MakeScopedNote(text string) func()             { return func() {} }
