package boot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creol-io/machine-emulator/pma"
)

func TestTrampolineOpcodes(t *testing.T) {
	tramp := Trampoline(pma.RAMStart, pma.ROMStart)

	opcode := func(instr uint32) uint32 { return instr & 0x7F }
	require.Equal(t, uint32(0x17), opcode(tramp[0])) // auipc
	require.Equal(t, uint32(0x17), opcode(tramp[1])) // auipc
	require.Equal(t, uint32(0x13), opcode(tramp[2])) // addi
	require.Equal(t, uint32(0x73), opcode(tramp[3])) // csrrs
	require.Equal(t, uint32(0x67), opcode(tramp[4])) // jalr

	// The csrrs reads mhartid (CSR 0xF14) into a0 (x10).
	csrAddr := tramp[3] >> 20
	rd := (tramp[3] >> 7) & 0x1F
	require.Equal(t, uint32(0xF14), csrAddr)
	require.Equal(t, uint32(10), rd)
}

func TestFDTStubEncodeStartsWithMagic(t *testing.T) {
	stub := FDTStub{RAMLength: 1 << 20, CLINTStart: pma.CLINTStart, CLINTLength: pma.CLINTLength,
		HTIFStart: pma.HTIFStart, HTIFLength: pma.HTIFLength, ISA: "rv64ima"}
	enc := stub.Encode()

	require.Equal(t, uint32(fdtMagic), binary.BigEndian.Uint32(enc[0:4]))
	require.Equal(t, stub.RAMLength, binary.LittleEndian.Uint64(enc[4:12]))
	require.Equal(t, stub.CLINTStart, binary.LittleEndian.Uint64(enc[12:20]))
	require.Equal(t, "rv64ima", string(enc[48:48+len("rv64ima")]))
}

func TestBuildROMPlacesTrampolineAndStub(t *testing.T) {
	rom := BuildROM(1 << 26)
	require.Len(t, rom, pma.ROMLength)

	tramp := Trampoline(pma.RAMStart, pma.ROMStart)
	for i, instr := range tramp {
		require.Equal(t, instr, binary.LittleEndian.Uint32(rom[i*4:]))
	}

	require.Equal(t, uint32(fdtMagic), binary.BigEndian.Uint32(rom[FDTOffset:FDTOffset+4]))
}

func TestBuildROMFitsWithinROMLength(t *testing.T) {
	rom := BuildROM(1 << 20)
	require.LessOrEqual(t, len(rom), pma.ROMLength)
}
