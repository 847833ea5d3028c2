package replay_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creol-io/machine-emulator/access"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/replay"
	"github.com/creol-io/machine-emulator/state"
)

func TestNewRejectsVerifyProofsWithoutProofLog(t *testing.T) {
	_, err := replay.New(access.Log{Type: access.LogType{Proofs: false}}, true, false)
	require.Error(t, err)
}

func TestReadXMatchesLoggedAddress(t *testing.T) {
	log := access.Log{Accesses: []access.WordAccess{
		{Type: access.Read, Address: pma.ShadowStart + state.RegisterOffset(1), Read: 5},
	}}
	a, err := replay.New(log, false, false)
	require.NoError(t, err)

	require.Equal(t, uint64(5), a.ReadX(1))
	require.NoError(t, a.Finish())
}

func TestReadXPanicsOnAddressMismatch(t *testing.T) {
	log := access.Log{Accesses: []access.WordAccess{
		{Type: access.Read, Address: pma.ShadowStart + state.RegisterOffset(2), Read: 5},
	}}
	a, err := replay.New(log, false, false)
	require.NoError(t, err)

	require.Panics(t, func() { a.ReadX(1) })
}

func TestWriteXConsumesReadThenWritePair(t *testing.T) {
	addr := pma.ShadowStart + state.RegisterOffset(1)
	log := access.Log{Accesses: []access.WordAccess{
		{Type: access.Read, Address: addr, Read: 0},
		{Type: access.Write, Address: addr, Read: 0, Written: 9},
	}}
	a, err := replay.New(log, false, false)
	require.NoError(t, err)

	a.WriteX(1, 9)
	require.NoError(t, a.Finish())
}

func TestWriteXPanicsWhenWrittenValueDiffersFromLog(t *testing.T) {
	addr := pma.ShadowStart + state.RegisterOffset(1)
	log := access.Log{Accesses: []access.WordAccess{
		{Type: access.Read, Address: addr, Read: 0},
		{Type: access.Write, Address: addr, Read: 0, Written: 9},
	}}
	a, err := replay.New(log, false, false)
	require.NoError(t, err)

	require.Panics(t, func() { a.WriteX(1, 10) })
}

func TestWriteX0IsNeverConsumedFromLog(t *testing.T) {
	a, err := replay.New(access.Log{}, false, false)
	require.NoError(t, err)

	a.WriteX(0, 0xFF)
	require.NoError(t, a.Finish())
}

func TestFinishErrorsOnUnconsumedAccesses(t *testing.T) {
	log := access.Log{Accesses: []access.WordAccess{
		{Type: access.Read, Address: pma.ShadowStart + state.RegisterOffset(1), Read: 0},
	}}
	a, err := replay.New(log, false, false)
	require.NoError(t, err)
	require.Error(t, a.Finish())
}

func TestWriteImmutableCSRIsNeverConsumedFromLog(t *testing.T) {
	a, err := replay.New(access.Log{}, false, false)
	require.NoError(t, err)

	a.WriteCSR(state.CSRMvendorid, 0xFFFF)
	require.NoError(t, a.Finish())
}

func TestReadMemoryUnmappedWithoutMockPMAEntry(t *testing.T) {
	a, err := replay.New(access.Log{}, false, false)
	require.NoError(t, err)

	_, err = a.ReadMemory(pma.RAMStart, 8)
	require.Error(t, err)
}
