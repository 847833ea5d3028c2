// Package boot assembles the fixed boot-page image written at ROM_START:
// a five-word hand-assembled trampoline that jumps into RAM, followed by
// a flattened-device-tree stub. It never compiles a general device tree;
// it emits the one fixed shape this machine's kernel expects.
package boot

import (
	"encoding/binary"

	"github.com/creol-io/machine-emulator/pma"
)

// FDTOffset is the byte offset of the device-tree stub within the boot
// page, chosen to leave room for the trampoline's five instructions.
const FDTOffset = 64

const fdtMagic = 0xD00DFEED

// encodeUType/encodeIType build the raw 32-bit U-type and I-type
// encodings of the five trampoline instructions by hand, the way a
// linker-free boot stub must.
func encodeUType(opcode, rd uint32, imm uint32) uint32 {
	return (imm &^ 0xFFF) | (rd << 7) | opcode
}

func encodeIType(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)<<20)&0xFFF00000 | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

// Trampoline returns the five 32-bit instructions RISC-V executes from
// ROM_START: it discovers where RAM begins relative to itself, loads a1
// with a pointer to the FDT stub, reads the hart ID into a0 (the calling
// convention the kernel expects), and jumps to RAM.
func Trampoline(ramStart, romStart uint64) [5]uint32 {
	return [5]uint32{
		encodeUType(0x17, 5, uint32(ramStart-romStart)),  // auipc t0, RAM_START-ROM_START
		encodeUType(0x17, 11, 0),                         // auipc a1, 0
		encodeIType(0x13, 11, 0, 11, int32(FDTOffset-4)), // addi a1, a1, fdt_offset-4
		encodeIType(0x73, 10, 2, 0, 0xF14&0xFFF),         // csrrs a0, mhartid, x0
		encodeIType(0x67, 0, 0, 5, 0),                    // jalr x0, 0(t0)
	}
}

// FDTStub is the fixed-shape device-tree byte ranges this machine's boot
// stub exposes: not a general DTB, just enough fields for the kernel to
// discover memory size, CLINT and HTIF addresses, and a CPU ISA string.
type FDTStub struct {
	RAMLength   uint64
	CLINTStart  uint64
	CLINTLength uint64
	HTIFStart   uint64
	HTIFLength  uint64
	ISA         string
}

// Encode serialises the stub as a small binary record prefixed with the
// standard FDT magic, so a boot-page dump still starts with a
// recognisable device-tree signature even though the body is fixed-shape
// rather than a compiled tree.
func (f FDTStub) Encode() []byte {
	isa := []byte(f.ISA)
	buf := make([]byte, 4+8*5+4+len(isa)+1)
	binary.BigEndian.PutUint32(buf[0:], fdtMagic)
	binary.LittleEndian.PutUint64(buf[4:], f.RAMLength)
	binary.LittleEndian.PutUint64(buf[12:], f.CLINTStart)
	binary.LittleEndian.PutUint64(buf[20:], f.CLINTLength)
	binary.LittleEndian.PutUint64(buf[28:], f.HTIFStart)
	binary.LittleEndian.PutUint64(buf[36:], f.HTIFLength)
	binary.LittleEndian.PutUint32(buf[44:], uint32(len(isa)))
	copy(buf[48:], isa)
	return buf
}

// BuildROM assembles the full boot page: the trampoline at offset 0, the
// FDT stub at FDTOffset, zero-filled elsewhere.
func BuildROM(ramLength uint64) []byte {
	rom := make([]byte, pma.ROMLength)
	tramp := Trampoline(pma.RAMStart, pma.ROMStart)
	for i, instr := range tramp {
		binary.LittleEndian.PutUint32(rom[i*4:], instr)
	}
	stub := FDTStub{
		RAMLength:   ramLength,
		CLINTStart:  pma.CLINTStart,
		CLINTLength: pma.CLINTLength,
		HTIFStart:   pma.HTIFStart,
		HTIFLength:  pma.HTIFLength,
		ISA:         "rv64ima",
	}
	copy(rom[FDTOffset:], stub.Encode())
	return rom
}
