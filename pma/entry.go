package pma

import (
	"fmt"
	"os"
)

// DirtyBitmap is a double-buffered, one-bit-per-page dirty tracker. The
// interpreter marks pages dirty into the active buffer while a tree
// updater drains the previous generation; Swap flips which buffer is
// active and always hands back a zeroed inactive buffer.
type DirtyBitmap struct {
	bits   [2][]uint64
	active int
}

func newDirtyBitmap(pageCount uint64) *DirtyBitmap {
	words := (pageCount + 63) / 64
	return &DirtyBitmap{
		bits: [2][]uint64{make([]uint64, words), make([]uint64, words)},
	}
}

// Mark records pageIndex (relative to the entry's start) as dirty in the
// active buffer.
func (d *DirtyBitmap) Mark(pageIndex uint64) {
	if d == nil {
		return
	}
	w, b := pageIndex/64, pageIndex%64
	d.bits[d.active][w] |= 1 << b
}

// Swap returns the currently active buffer (for the tree updater to
// drain) and flips to the other buffer, which is zeroed before use.
func (d *DirtyBitmap) Swap() []uint64 {
	drained := d.bits[d.active]
	next := 1 - d.active
	for i := range d.bits[next] {
		d.bits[next][i] = 0
	}
	d.active = next
	return drained
}

// MemoryBacking is either anonymous host memory or a memory-mapped file.
type MemoryBacking struct {
	Data []byte

	// File is non-nil for file-backed memory; nil for anonymous memory.
	File *os.File
	// Shared marks a file-backed mapping as shared (writes persist) as
	// opposed to private (copy-on-write, discarded on teardown).
	Shared bool
}

// DeviceContext is the opaque handle a device backing carries to its
// callbacks. It is a non-owning reference: the PMA entry never controls
// the context's lifetime, the enclosing machine does.
type DeviceContext any

// DeviceBacking holds the read/write/peek callbacks of a memory-mapped IO
// region. Read and Write operate on aligned words up to 8 bytes; Peek
// materialises a whole page (used by the shadow driver's projection).
type DeviceBacking struct {
	Context DeviceContext
	Read    func(ctx DeviceContext, offset uint64, size int) (val uint64, ok bool)
	Write   func(ctx DeviceContext, offset uint64, size int, val uint64) (ok bool)
	Peek    func(ctx DeviceContext, pageOffset uint64) (page []byte, ok bool)
	Name    string
}

// Entry describes one disjoint range of the physical address space.
type Entry struct {
	Start  uint64
	Length uint64
	Flags  Flags

	Memory *MemoryBacking
	Device *DeviceBacking

	Dirty *DirtyBitmap
}

// Contains reports whether [paddr, paddr+size) lies entirely inside the
// entry.
func (e *Entry) Contains(paddr uint64, size uint64) bool {
	if paddr < e.Start {
		return false
	}
	end := paddr - e.Start
	return end <= e.Length-size
}

// ReadWord reads an aligned little-endian word of the given byte size
// (1, 2, 4 or 8) at paddr. It is the single access path used by both the
// native and logging state-access implementations.
func (e *Entry) ReadWord(paddr uint64, size int) (uint64, error) {
	if !e.Flags.R {
		return 0, &PermissionError{Addr: paddr, Op: "read"}
	}
	rel := paddr - e.Start
	switch {
	case e.Memory != nil:
		return readLE(e.Memory.Data[rel:rel+uint64(size)], size), nil
	case e.Device != nil:
		if e.Device.Read == nil {
			return 0, &PermissionError{Addr: paddr, Op: "read"}
		}
		v, ok := e.Device.Read(e.Device.Context, rel, size)
		if !ok {
			return 0, &PermissionError{Addr: paddr, Op: "read"}
		}
		return v, nil
	default:
		return 0, &UnmappedError{Addr: paddr}
	}
}

// WriteWord writes an aligned little-endian word of the given byte size
// at paddr, marking the covering page dirty for memory backings.
func (e *Entry) WriteWord(paddr uint64, size int, val uint64) error {
	if !e.Flags.W {
		return &PermissionError{Addr: paddr, Op: "write"}
	}
	rel := paddr - e.Start
	switch {
	case e.Memory != nil:
		writeLE(e.Memory.Data[rel:rel+uint64(size)], size, val)
		e.Dirty.Mark(rel / PageSize)
		return nil
	case e.Device != nil:
		if e.Device.Write == nil {
			return &PermissionError{Addr: paddr, Op: "write"}
		}
		if ok := e.Device.Write(e.Device.Context, rel, size, val); !ok {
			return &PermissionError{Addr: paddr, Op: "write"}
		}
		return nil
	default:
		return &UnmappedError{Addr: paddr}
	}
}

// Peek materialises page pageOffset (in units of PageSize, relative to
// Start) of the entry's backing. For memory backings this reads directly;
// for device backings it forwards to the driver's Peek callback (used by
// the shadow region to project machine state on demand).
func (e *Entry) Peek(pageOffset uint64) ([]byte, bool) {
	switch {
	case e.Memory != nil:
		start := pageOffset * PageSize
		if start >= uint64(len(e.Memory.Data)) {
			return nil, false
		}
		end := start + PageSize
		if end > uint64(len(e.Memory.Data)) {
			end = uint64(len(e.Memory.Data))
		}
		return e.Memory.Data[start:end], true
	case e.Device != nil:
		if e.Device.Peek == nil {
			return nil, false
		}
		return e.Device.Peek(e.Device.Context, pageOffset)
	default:
		return nil, false
	}
}

func readLE(b []byte, size int) uint64 {
	var v uint64
	for i := 0; i < size; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func writeLE(b []byte, size int, v uint64) {
	for i := 0; i < size; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// UnmappedError is a target fault: no PMA entry covers the address.
type UnmappedError struct {
	Addr uint64
}

func (e *UnmappedError) Error() string {
	return fmt.Sprintf("physical address 0x%x is not backed by any PMA entry", e.Addr)
}

// PermissionError is a target fault: the region exists but forbids the
// requested access.
type PermissionError struct {
	Addr uint64
	Op   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied for %s at physical address 0x%x", e.Op, e.Addr)
}
