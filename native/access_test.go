package native_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creol-io/machine-emulator/interp"
	"github.com/creol-io/machine-emulator/native"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
)

func newTestState(t *testing.T) *state.State {
	t.Helper()
	table := pma.NewTable()
	_, err := table.RegisterRAM(pma.RAMStart, pma.PageSize)
	require.NoError(t, err)
	return state.New(table)
}

// encodeAddi hand-assembles addi rd, rs1, imm.
func encodeAddi(rd, rs1 int, imm int32) uint32 {
	return (uint32(imm)<<20)&0xFFF00000 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x13
}

func TestAddiExecutesAndAdvancesPC(t *testing.T) {
	st := newTestState(t)
	st.WritePC(pma.RAMStart)

	entry, ok := st.PMA.Find(pma.RAMStart, 4)
	require.True(t, ok)

	instr := encodeAddi(1, 0, 5) // addi x1, x0, 5
	require.NoError(t, entry.WriteWord(pma.RAMStart, 4, uint64(instr)))

	a := &native.Access{St: st}
	require.NoError(t, interp.Step(a))

	require.Equal(t, uint64(5), st.ReadX(1))
	require.Equal(t, uint64(pma.RAMStart+4), st.ReadPC())
}
