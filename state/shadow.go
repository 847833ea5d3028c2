package state

import (
	"encoding/binary"

	"github.com/creol-io/machine-emulator/pma"
)

// PMATableBase is the shadow-relative byte offset of the first PMA
// entry's istart/ilength pair; each entry occupies 16 bytes.
const PMATableBase = 0x800

// allCSRs lists every named CSR in shadow order, used by Peek to walk
// the whole set without repeating the enumeration by hand.
var allCSRs = func() []CSR {
	cs := make([]CSR, 0, csrCount)
	for c := CSR(0); c < csrCount; c++ {
		cs = append(cs, c)
	}
	return cs
}()

// Peek serialises s into a single 4KiB shadow page the way the real
// shadow device would if read from physical memory: x[0..31] at
// RegistersBase, every named CSR at CSRBase, and the PMA table's
// istart/ilength pairs from PMATableBase onward. This is a pure
// projection, not persisted state, and is safe to call at any point in
// execution.
func Peek(s *State) []byte {
	page := make([]byte, pma.PageSize)

	for i := 0; i < RegisterCount; i++ {
		binary.LittleEndian.PutUint64(page[RegisterOffset(i):], s.ReadX(i))
	}

	for _, c := range allCSRs {
		binary.LittleEndian.PutUint64(page[c.Offset():], s.ReadCSR(c))
	}

	for i, e := range s.PMA.Entries() {
		off := PMATableBase + uint64(i)*16
		if int(off+16) > len(page) {
			break
		}
		istart := pma.PackIstart(e.Start, e.Flags)
		binary.LittleEndian.PutUint64(page[off:], istart)
		binary.LittleEndian.PutUint64(page[off+8:], e.Length)
	}

	return page
}

// PeekWord returns the little-endian 8-byte word at the given
// shadow-relative offset, as if read directly off the projected page.
func PeekWord(s *State, offset uint64) uint64 {
	page := Peek(s)
	if int(offset+8) > len(page) {
		return 0
	}
	return binary.LittleEndian.Uint64(page[offset:])
}
