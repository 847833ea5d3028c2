package logaccess_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creol-io/machine-emulator/access"
	"github.com/creol-io/machine-emulator/logaccess"
	"github.com/creol-io/machine-emulator/machine"
	"github.com/creol-io/machine-emulator/merkle"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
)

func newAccess(t *testing.T, lt access.LogType) (*logaccess.Access, *state.State) {
	t.Helper()
	table := pma.NewTable()
	_, err := table.RegisterRAM(pma.RAMStart, pma.PageSize)
	require.NoError(t, err)
	st := state.New(table)
	tree := merkle.New()
	return logaccess.New(st, tree, lt), st
}

func TestWriteXLogsReadThenWrite(t *testing.T) {
	a, _ := newAccess(t, access.LogType{Proofs: true})
	a.WriteX(1, 42)

	log := a.Log()
	require.Len(t, log.Accesses, 2)
	require.Equal(t, access.Read, log.Accesses[0].Type)
	require.Equal(t, access.Write, log.Accesses[1].Type)
	require.Equal(t, uint64(0), log.Accesses[1].Read)
	require.Equal(t, uint64(42), log.Accesses[1].Written)
	require.NotNil(t, log.Accesses[0].Proof)
}

func TestWriteX0IsNeverLogged(t *testing.T) {
	a, _ := newAccess(t, access.LogType{Proofs: true})
	a.WriteX(0, 0xFF)

	require.Empty(t, a.Log().Accesses)
}

func TestWriteImmutableCSRIsNeverLogged(t *testing.T) {
	a, _ := newAccess(t, access.LogType{Proofs: true})
	a.WriteCSR(state.CSRMvendorid, 0xFF)

	require.Empty(t, a.Log().Accesses)
}

func TestWriteMemorySubWordReadsModifiesAndWritesFullWord(t *testing.T) {
	a, st := newAccess(t, access.LogType{Proofs: true})

	err := a.WriteMemory(pma.RAMStart, 1, 0xAB)
	require.NoError(t, err)

	log := a.Log()
	require.Len(t, log.Accesses, 2)
	require.Equal(t, uint64(0xAB), log.Accesses[1].Written&0xFF)

	entry, ok := st.PMA.Find(pma.RAMStart, 8)
	require.True(t, ok)
	full, err := entry.ReadWord(pma.RAMStart, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(0xAB), full&0xFF)
}

func TestWithoutProofsNoProofIsAttached(t *testing.T) {
	a, _ := newAccess(t, access.LogType{Proofs: false})
	a.WriteX(1, 1)

	for _, acc := range a.Log().Accesses {
		require.Nil(t, acc.Proof)
	}
}

func TestHTIFAccessesCarryProofsWhenEnabled(t *testing.T) {
	m, err := machine.New(machine.Config{RAMLength: pma.PageSize})
	require.NoError(t, err)
	a := logaccess.New(m.State, merkle.New(), access.LogType{Proofs: true})

	a.WriteHTIFTohost(1)

	log := a.Log()
	require.Len(t, log.Accesses, 2)
	for _, acc := range log.Accesses {
		require.NotNil(t, acc.Proof)
	}
}

func TestCLINTMtimecmpAccessesCarryProofsWhenEnabled(t *testing.T) {
	m, err := machine.New(machine.Config{RAMLength: pma.PageSize})
	require.NoError(t, err)
	a := logaccess.New(m.State, merkle.New(), access.LogType{Proofs: true})

	a.WriteCLINTMtimecmp(7)

	log := a.Log()
	require.Len(t, log.Accesses, 2)
	for _, acc := range log.Accesses {
		require.NotNil(t, acc.Proof)
	}
}
