package interp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creol-io/machine-emulator/interp"
	"github.com/creol-io/machine-emulator/native"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
)

func newState(t *testing.T) (*state.State, *pma.Table) {
	t.Helper()
	table := pma.NewTable()
	_, err := table.RegisterRAM(pma.RAMStart, pma.PageSize)
	require.NoError(t, err)
	st := state.New(table)
	st.WritePC(pma.RAMStart)
	return st, table
}

func writeInstr(t *testing.T, table *pma.Table, addr uint64, instr uint32) {
	t.Helper()
	e, ok := table.Find(addr, 4)
	require.True(t, ok)
	require.NoError(t, e.WriteWord(addr, 4, uint64(instr)))
}

func encodeAddi(rd, rs1 int, imm int32) uint32 {
	return (uint32(imm)<<20)&0xFFF00000 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x13
}

func encodeCSRRS(rd, csr, rs1 int) uint32 {
	return uint32(csr)<<20 | uint32(rs1)<<15 | 2<<12 | uint32(rd)<<7 | 0x73
}

func TestMhartidReadsAsZero(t *testing.T) {
	st, table := newState(t)
	writeInstr(t, table, pma.RAMStart, encodeCSRRS(10, 0xF14, 0))

	a := &native.Access{St: st}
	require.NoError(t, interp.Step(a))
	require.Equal(t, uint64(0), st.ReadX(10))
}

func TestMhartidWriteIsIgnored(t *testing.T) {
	st, table := newState(t)
	// x1 = 5; csrrw x2, mhartid, x1 (funct3=1)
	instrs := []uint32{
		encodeAddi(1, 0, 5),
		uint32(0xF14)<<20 | 1<<15 | 1<<12 | 2<<7 | 0x73,
	}
	for i, instr := range instrs {
		writeInstr(t, table, pma.RAMStart+uint64(i*4), instr)
	}

	a := &native.Access{St: st}
	require.NoError(t, interp.Step(a))
	require.NoError(t, interp.Step(a))
	require.Equal(t, uint64(0), st.ReadX(2))
}

func TestIllegalInstructionDeliversTrapNotError(t *testing.T) {
	st, table := newState(t)
	writeInstr(t, table, pma.RAMStart, 0) // opcode 0 is not decoded

	st.WriteCSR(state.CSRMtvec, 0x900)
	a := &native.Access{St: st}
	require.NoError(t, interp.Step(a))

	require.Equal(t, uint64(0x900), st.ReadPC())
	require.Equal(t, uint64(interp.CauseIllegalInstruction), st.ReadCSR(state.CSRMcause))
}

func TestEcallDeliversTrapToMtvec(t *testing.T) {
	st, table := newState(t)
	ecall := uint32(0x73) // ecall: all other fields zero
	writeInstr(t, table, pma.RAMStart, ecall)
	st.WriteCSR(state.CSRMtvec, 0x1000)

	a := &native.Access{St: st}
	require.NoError(t, interp.Step(a))

	require.Equal(t, uint64(0x1000), st.ReadPC())
	require.Equal(t, uint64(interp.CauseECallFromMMode), st.ReadCSR(state.CSRMcause))
	require.Equal(t, uint64(pma.RAMStart), st.ReadCSR(state.CSRMepc))
}

func TestJalWritesLinkAndJumps(t *testing.T) {
	st, table := newState(t)
	// jal x1, 8: imm[10:1] field holds imm>>1, so offset=8 encodes as 4.
	jal := uint32(4)<<21 | 1<<7 | 0x6F
	writeInstr(t, table, pma.RAMStart, jal)

	a := &native.Access{St: st}
	require.NoError(t, interp.Step(a))

	require.Equal(t, uint64(pma.RAMStart+4), st.ReadX(1))
	require.Equal(t, uint64(pma.RAMStart+8), st.ReadPC())
}

func TestMinstretIncrementsEachStep(t *testing.T) {
	st, table := newState(t)
	writeInstr(t, table, pma.RAMStart, encodeAddi(0, 0, 0))

	a := &native.Access{St: st}
	require.NoError(t, interp.Step(a))
	require.Equal(t, uint64(1), st.ReadCSR(state.CSRMinstret))
}
