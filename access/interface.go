// Package access defines the polymorphic state-access capability (C6)
// that the interpreter is written against, and the access-log entry
// types (C9) that a logging implementation of it produces.
//
// Every read or write the interpreter performs — register, CSR, CLINT,
// HTIF, PMA metadata, or memory word — goes through this interface, so
// the same interpreter code drives both the native fast path (native
// package) and the logging/replay paths (logaccess, replay packages)
// without modification.
package access

import "github.com/creol-io/machine-emulator/state"

// BracketType marks the start or end of a named region of an access log,
// used purely for human-readable annotation.
type BracketType int

const (
	BracketBegin BracketType = iota
	BracketEnd
)

// StateAccess is the capability surface the interpreter is written
// against. Implementations never share access instances across machines
// and are not safe for concurrent use.
type StateAccess interface {
	ReadX(reg int) uint64
	WriteX(reg int, val uint64)

	ReadPC() uint64
	WritePC(val uint64)

	ReadCSR(c state.CSR) uint64
	WriteCSR(c state.CSR, val uint64)

	ReadIflagsPRV() uint8
	WriteIflagsPRV(prv uint8)
	ReadIflagsH() bool
	SetIflagsH()
	ReadIflagsY() bool
	SetIflagsY()
	ResetIflagsY()
	ReadIflagsI() bool
	SetIflagsI()
	ResetIflagsI()

	ReadCLINTMtimecmp() uint64
	WriteCLINTMtimecmp(val uint64)

	ReadHTIFTohost() uint64
	WriteHTIFTohost(val uint64)
	ReadHTIFFromhost() uint64
	WriteHTIFFromhost(val uint64)
	ReadHTIFIhalt() uint64
	ReadHTIFIconsole() uint64
	ReadHTIFIyield() uint64

	// ReadPMAIstart/ReadPMAIlength expose the i-th PMA entry's packed
	// istart word and length, in pma.Table.Entries order, as the shadow
	// page's PMA table holds them.
	ReadPMAIstart(i int) uint64
	ReadPMAIlength(i int) uint64

	// ReadMemory/WriteMemory access a size-byte (1, 2, 4 or 8) aligned
	// word at the given physical address. Accesses that land in a
	// device region (CLINT, HTIF) reach the device through the PMA
	// entry's Read/Write callbacks; the caller does no routing of its own.
	ReadMemory(paddr uint64, size int) (uint64, error)
	WriteMemory(paddr uint64, size int, val uint64) error

	PushBracket(t BracketType, text string)
	MakeScopedNote(text string) func()
}
