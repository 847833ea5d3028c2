package machine

import (
	"encoding/binary"

	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
)

// clintBacking builds the CLINT device: reads of mtimecmp/mtime and
// writes of mtimecmp, addressable as either one 8-byte word or two
// 4-byte halves, matching the granularity a 32-bit or 64-bit store
// instruction can use.
func clintBacking(st *state.State) *pma.DeviceBacking {
	return &pma.DeviceBacking{
		Context: st,
		Name:    "CLINT",
		Peek:    clintPeek,
		Read: func(ctx pma.DeviceContext, offset uint64, size int) (uint64, bool) {
			s := ctx.(*state.State)
			switch {
			case offset == pma.CLINTMtimecmpRel && size == 8:
				return s.ReadCLINTMtimecmp(), true
			case offset == pma.CLINTMtimecmpRel && size == 4:
				return s.ReadCLINTMtimecmp() & 0xFFFFFFFF, true
			case offset == pma.CLINTMtimecmpRel+4 && size == 4:
				return s.ReadCLINTMtimecmp() >> 32, true
			case offset == pma.CLINTMtimeRel && size == 8:
				return s.ReadMtime(), true
			case offset == pma.CLINTMtimeRel && size == 4:
				return s.ReadMtime() & 0xFFFFFFFF, true
			case offset == pma.CLINTMtimeRel+4 && size == 4:
				return s.ReadMtime() >> 32, true
			default:
				return 0, false
			}
		},
		Write: func(ctx pma.DeviceContext, offset uint64, size int, val uint64) bool {
			s := ctx.(*state.State)
			switch {
			case offset == pma.CLINTMtimecmpRel && size == 8:
				s.WriteCLINTMtimecmp(val)
				return true
			case offset == pma.CLINTMtimecmpRel && size == 4:
				cur := s.ReadCLINTMtimecmp()
				s.WriteCLINTMtimecmp((cur &^ 0xFFFFFFFF) | (val & 0xFFFFFFFF))
				return true
			case offset == pma.CLINTMtimecmpRel+4 && size == 4:
				cur := s.ReadCLINTMtimecmp()
				s.WriteCLINTMtimecmp((cur & 0xFFFFFFFF) | (val << 32))
				return true
			default:
				// mtime is derived from mcycle and cannot be written directly.
				return false
			}
		},
	}
}

// clintPeek materialises the 4KiB page at pageOffset within the CLINT
// region so it can join the Merkle tree: mtimecmp and mtime fall on two
// different pages of the 768KiB region, and every other page is pristine
// zero.
func clintPeek(ctx pma.DeviceContext, pageOffset uint64) ([]byte, bool) {
	s := ctx.(*state.State)
	pageStart := pageOffset * pma.PageSize
	if pageStart >= pma.CLINTLength {
		return nil, false
	}
	page := make([]byte, pma.PageSize)
	if rel := pma.CLINTMtimecmpRel - pageStart; pageStart <= pma.CLINTMtimecmpRel && pma.CLINTMtimecmpRel+8 <= pageStart+pma.PageSize {
		binary.LittleEndian.PutUint64(page[rel:], s.ReadCLINTMtimecmp())
	}
	if rel := pma.CLINTMtimeRel - pageStart; pageStart <= pma.CLINTMtimeRel && pma.CLINTMtimeRel+8 <= pageStart+pma.PageSize {
		binary.LittleEndian.PutUint64(page[rel:], s.ReadMtime())
	}
	return page, true
}
