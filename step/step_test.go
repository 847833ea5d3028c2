package step_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creol-io/machine-emulator/access"
	"github.com/creol-io/machine-emulator/machine"
	"github.com/creol-io/machine-emulator/merkle"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
	"github.com/creol-io/machine-emulator/step"
)

func encodeAddi(rd, rs1 int, imm int32) uint32 {
	return (uint32(imm)<<20)&0xFFF00000 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x13
}

// newTestState builds a full machine (RAM, ROM, CLINT, HTIF and shadow
// all registered) rather than a bare RAM-only table, since the
// interpreter touches CLINT on every step via advanceClock and a
// proof-verified run needs every region it touches to be mapped.
func newTestState(t *testing.T) *state.State {
	t.Helper()
	m, err := machine.New(machine.Config{RAMLength: pma.PageSize})
	require.NoError(t, err)
	st := m.State
	st.WritePC(pma.RAMStart)

	entry, ok := st.PMA.Find(pma.RAMStart, 4)
	require.True(t, ok)
	require.NoError(t, entry.WriteWord(pma.RAMStart, 4, uint64(encodeAddi(1, 0, 5))))
	return st
}

func TestRunProducesLogAndAdvancesRoot(t *testing.T) {
	st := newTestState(t)
	tree := merkle.New()

	result, err := step.Run(st, tree, access.LogType{Proofs: true})
	require.NoError(t, err)

	require.Equal(t, uint64(5), st.ReadX(1))
	require.NotEqual(t, result.RootHashBefore, result.RootHashAfter)
	require.NotEmpty(t, result.Log.Accesses)
}

func TestVerifyReplaysLogToSameRoot(t *testing.T) {
	st := newTestState(t)
	tree := merkle.New()

	result, err := step.Run(st, tree, access.LogType{Proofs: true})
	require.NoError(t, err)

	rootAfter, err := step.Verify(result.Log, true, false)
	require.NoError(t, err)
	require.Equal(t, result.RootHashAfter, rootAfter)
}

func TestVerifyRejectsTamperedWrite(t *testing.T) {
	st := newTestState(t)
	tree := merkle.New()

	result, err := step.Run(st, tree, access.LogType{Proofs: true})
	require.NoError(t, err)

	tampered := result.Log
	for i := range tampered.Accesses {
		if tampered.Accesses[i].Type == access.Write {
			tampered.Accesses[i].Written ^= 1
			break
		}
	}

	_, err = step.Verify(tampered, true, false)
	require.Error(t, err)
}

func TestVerifyWithoutProofsStillChecksAccessSequence(t *testing.T) {
	st := newTestState(t)
	tree := merkle.New()

	result, err := step.Run(st, tree, access.LogType{Proofs: false})
	require.NoError(t, err)

	_, err = step.Verify(result.Log, false, false)
	require.NoError(t, err)
}
