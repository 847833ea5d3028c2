package pma

import (
	"fmt"
	"os"
	"sort"
	"syscall"
)

// ConfigError is a kind-1 error: fatal, raised at machine construction.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "pma configuration error: " + e.Reason
}

// Table is the ordered set of PMA entries for one machine. Entries are
// created once at construction and never reorganised at runtime; Find is
// a linear scan because the set is small. Every state-access backend
// calls it on each memory access; none keeps a TLB.
type Table struct {
	entries []*Entry
}

// NewTable returns an empty PMA table.
func NewTable() *Table {
	return &Table{}
}

// Entries returns the entries in table order: registration order until
// Finalize sorts them by start address. Index i backs shadow
// pma.istart[i]/pma.ilength[i].
func (t *Table) Entries() []*Entry {
	return t.entries
}

func alignedLen(length uint64) bool {
	return length != 0 && length%PageSize == 0
}

func (t *Table) overlaps(start, length uint64) bool {
	end := start + length
	for _, e := range t.entries {
		eEnd := e.Start + e.Length
		if start < eEnd && e.Start < end {
			return true
		}
	}
	return false
}

func (t *Table) register(e *Entry) error {
	if len(t.entries) >= MaxEntries {
		return &ConfigError{Reason: fmt.Sprintf("cannot register more than %d PMA entries", MaxEntries)}
	}
	if e.Start%PageSize != 0 {
		return &ConfigError{Reason: fmt.Sprintf("start 0x%x is not 4KiB aligned", e.Start)}
	}
	if !alignedLen(e.Length) {
		return &ConfigError{Reason: fmt.Sprintf("length 0x%x is not a nonzero multiple of 4KiB", e.Length)}
	}
	if t.overlaps(e.Start, e.Length) {
		return &ConfigError{Reason: fmt.Sprintf("range [0x%x, 0x%x) overlaps an existing entry", e.Start, e.Start+e.Length)}
	}
	kinds := 0
	for _, set := range []bool{e.Flags.M, e.Flags.IO, e.Flags.E} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return &ConfigError{Reason: fmt.Sprintf("range at 0x%x must set exactly one of M, IO, E", e.Start)}
	}
	t.entries = append(t.entries, e)
	return nil
}

// Finalize sorts entries by start address once, after every region has
// been registered and before the machine starts stepping. It must not be
// called again afterward: the table layout is fixed for the lifetime of
// the machine.
func (t *Table) Finalize() {
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].Start < t.entries[j].Start })
}

// RegisterRAM allocates anonymous zero-filled memory with default RWX
// flags.
func (t *Table) RegisterRAM(start, length uint64) (*Entry, error) {
	e := &Entry{
		Start:  start,
		Length: length,
		Flags:  Flags{R: true, W: true, X: true, IR: true, IW: true, M: true, DID: DriverRAM},
		Memory: &MemoryBacking{Data: make([]byte, length)},
		Dirty:  newDirtyBitmap(length / PageSize),
	}
	if err := t.register(e); err != nil {
		return nil, err
	}
	return e, nil
}

// RegisterROM allocates a read+execute-only anonymous region pre-filled
// with data (padded with zeros to length), used for the boot page.
func (t *Table) RegisterROM(start, length uint64, data []byte) (*Entry, error) {
	if uint64(len(data)) > length {
		return nil, &ConfigError{Reason: "rom image larger than its region"}
	}
	buf := make([]byte, length)
	copy(buf, data)
	e := &Entry{
		Start:  start,
		Length: length,
		Flags:  Flags{R: true, X: true, IR: true, M: true, DID: DriverRAM},
		Memory: &MemoryBacking{Data: buf},
		Dirty:  newDirtyBitmap(length / PageSize),
	}
	if err := t.register(e); err != nil {
		return nil, err
	}
	return e, nil
}

// RegisterFlash opens path and maps it as a length-byte memory region.
// The mapping is private (copy-on-write) unless shared is set. The file's
// size must equal length.
func (t *Table) RegisterFlash(start, length uint64, path string, shared bool) (*Entry, error) {
	flag := os.O_RDONLY
	if shared {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("cannot open flash backing %q: %v", path, err)}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &ConfigError{Reason: fmt.Sprintf("cannot stat flash backing %q: %v", path, err)}
	}
	if uint64(info.Size()) != length {
		f.Close()
		return nil, &ConfigError{Reason: fmt.Sprintf("flash backing %q has size %d, expected %d", path, info.Size(), length)}
	}
	mmapFlag := syscall.MAP_PRIVATE
	if shared {
		mmapFlag = syscall.MAP_SHARED
	}
	prot := syscall.PROT_READ
	if shared {
		prot |= syscall.PROT_WRITE
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(length), prot, mmapFlag)
	if err != nil {
		f.Close()
		return nil, &ConfigError{Reason: fmt.Sprintf("cannot map flash backing %q: %v", path, err)}
	}
	e := &Entry{
		Start:  start,
		Length: length,
		Flags:  Flags{R: true, W: shared, X: false, IR: true, IW: shared, M: true, DID: DriverFlash},
		Memory: &MemoryBacking{Data: data, File: f, Shared: shared},
		Dirty:  newDirtyBitmap(length / PageSize),
	}
	if err := t.register(e); err != nil {
		syscall.Munmap(data)
		f.Close()
		return nil, err
	}
	return e, nil
}

// RegisterMMIO registers a device region backed by driver callbacks.
func (t *Table) RegisterMMIO(start, length uint64, did DriverID, backing *DeviceBacking) (*Entry, error) {
	if length >= 1<<32 {
		return nil, &ConfigError{Reason: "device region length must fit in 32 bits"}
	}
	e := &Entry{
		Start:  start,
		Length: length,
		Flags:  Flags{R: true, W: true, IR: true, IW: true, IO: true, DID: did},
		Device: backing,
	}
	if err := t.register(e); err != nil {
		return nil, err
	}
	return e, nil
}

// RegisterShadow registers the special device region whose Peek callback
// materialises the shadow projection; direct reads and writes always
// fail, matching the original machine's shadow_read_error/write_error.
func (t *Table) RegisterShadow(start, length uint64, ctx DeviceContext, peek func(ctx DeviceContext, pageOffset uint64) ([]byte, bool)) (*Entry, error) {
	backing := &DeviceBacking{
		Context: ctx,
		Peek:    peek,
		Name:    "SHADOW",
	}
	e := &Entry{
		Start:  start,
		Length: length,
		Flags:  Flags{IO: true, DID: DriverShadow},
		Device: backing,
	}
	if err := t.register(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Find returns the entry covering [paddr, paddr+size), if any. Since
// ranges are disjoint, the first (and only) match wins.
func (t *Table) Find(paddr uint64, size uint64) (*Entry, bool) {
	for _, e := range t.entries {
		if e.Contains(paddr, size) {
			return e, true
		}
	}
	return nil, false
}

// Teardown releases every entry's backing.
func (t *Table) Teardown() error {
	var firstErr error
	for _, e := range t.entries {
		if e.Memory != nil && e.Memory.File != nil {
			if err := syscall.Munmap(e.Memory.Data); err != nil && firstErr == nil {
				firstErr = err
			}
			if err := e.Memory.File.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	t.entries = nil
	return firstErr
}
