// Package pma describes the machine's physical address layout: the fixed
// base addresses of every shadow/device/RAM region (C1), the entry that
// describes one physical memory range (C2), and the table that resolves a
// physical address to its owning entry (C3).
package pma

// Physical address constants. All little-endian. Every piece of
// architectural state the interpreter can touch lives at a fixed offset
// within one of these regions.
const (
	ShadowStart = 0x000
	ShadowLength = PageSize

	ROMStart  = 0x1000
	ROMLength = 64 * 1024

	CLINTStart  = 0x02000000
	CLINTLength = 768 * 1024

	// Offsets of CLINT-visible CSRs relative to CLINTStart.
	CLINTMtimecmpRel = 0x4000
	CLINTMtimeRel    = 0xBFF8

	RTCFreqDiv  = 100
	ClockFreqHz = 1_000_000_000

	HTIFStart  = 0x40008000
	HTIFLength = PageSize

	// Offsets of HTIF-visible words relative to HTIFStart.
	HTIFTohostRel   = 0x0
	HTIFFromhostRel = 0x8

	RAMStart = 0x80000000

	// PageSize is the granularity of dirty-bit tracking and of the
	// shadow projection's single page.
	PageSize = 1 << 12

	// MaxEntries is the static capacity of a PMA table, matching the
	// original machine's compile-time bound.
	MaxEntries = 32
)

// DriverID discriminates the kind of backing behind a PMA entry, packed
// into istart bits 8-11. Numbering matches the normative istart wire
// format: 0=RAM, 1=flash, 2=shadow, 3=CLINT, 4=HTIF.
type DriverID uint8

const (
	DriverRAM DriverID = iota
	DriverFlash
	DriverShadow
	DriverCLINT
	DriverHTIF
)

// Flags describes the permission and kind bits of one PMA entry. Exactly
// one of M, IO, E must be set; this is checked at registration time and
// re-checked by the replayer when reconstructing a mock entry from a
// logged istart word.
type Flags struct {
	R, W, X bool
	IR, IW  bool
	M, IO, E bool
	DID     DriverID
}

// istart bit layout: since Start is always 4 KiB aligned, its low 12 bits
// are free for flags.
const (
	istartRShift  = 0
	istartWShift  = 1
	istartXShift  = 2
	istartIRShift = 3
	istartIWShift = 4
	istartMShift  = 5
	istartIOShift = 6
	istartEShift  = 7
	istartDIDShift = 8
	istartDIDMask  = 0xF
	istartStartMask = ^uint64(0xFFF)
)

func bit(v bool, shift uint) uint64 {
	if v {
		return 1 << shift
	}
	return 0
}

// PackIstart encodes start and flags into the istart shadow word.
func PackIstart(start uint64, f Flags) uint64 {
	return (start & istartStartMask) |
		bit(f.R, istartRShift) |
		bit(f.W, istartWShift) |
		bit(f.X, istartXShift) |
		bit(f.IR, istartIRShift) |
		bit(f.IW, istartIWShift) |
		bit(f.M, istartMShift) |
		bit(f.IO, istartIOShift) |
		bit(f.E, istartEShift) |
		(uint64(f.DID)&istartDIDMask)<<istartDIDShift
}

// UnpackIstart splits istart back into a start address and its flags.
func UnpackIstart(istart uint64) (start uint64, f Flags) {
	start = istart & istartStartMask
	f.R = istart&(1<<istartRShift) != 0
	f.W = istart&(1<<istartWShift) != 0
	f.X = istart&(1<<istartXShift) != 0
	f.IR = istart&(1<<istartIRShift) != 0
	f.IW = istart&(1<<istartIWShift) != 0
	f.M = istart&(1<<istartMShift) != 0
	f.IO = istart&(1<<istartIOShift) != 0
	f.E = istart&(1<<istartEShift) != 0
	f.DID = DriverID((istart >> istartDIDShift) & istartDIDMask)
	return start, f
}
