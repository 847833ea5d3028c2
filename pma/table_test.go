package pma

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterRAMRoundTripsWords(t *testing.T) {
	table := NewTable()
	e, err := table.RegisterRAM(RAMStart, PageSize)
	require.NoError(t, err)

	require.NoError(t, e.WriteWord(RAMStart, 8, 0xDEADBEEFCAFEBABE))
	v, err := e.ReadWord(RAMStart, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(0xDEADBEEFCAFEBABE), v)
}

func TestRegisterRejectsOverlap(t *testing.T) {
	table := NewTable()
	_, err := table.RegisterRAM(RAMStart, PageSize)
	require.NoError(t, err)

	_, err = table.RegisterRAM(RAMStart, PageSize)
	require.Error(t, err)
}

func TestRegisterRejectsMisalignedStart(t *testing.T) {
	table := NewTable()
	_, err := table.RegisterRAM(RAMStart+1, PageSize)
	require.Error(t, err)
}

func TestRegisterRejectsUnalignedLength(t *testing.T) {
	table := NewTable()
	_, err := table.RegisterRAM(RAMStart, PageSize-1)
	require.Error(t, err)
}

func TestFindReturnsCoveringEntry(t *testing.T) {
	table := NewTable()
	_, err := table.RegisterRAM(RAMStart, PageSize)
	require.NoError(t, err)

	e, ok := table.Find(RAMStart+8, 8)
	require.True(t, ok)
	require.Equal(t, uint64(RAMStart), e.Start)

	_, ok = table.Find(RAMStart+PageSize, 8)
	require.False(t, ok)
}

func TestWriteWordMarksPageDirty(t *testing.T) {
	table := NewTable()
	e, err := table.RegisterRAM(RAMStart, 2*PageSize)
	require.NoError(t, err)

	require.NoError(t, e.WriteWord(RAMStart+PageSize, 8, 1))
	dirty := e.Dirty.Swap()
	require.Equal(t, uint64(1<<1), dirty[0])
}

func TestReadWordRejectsUnreadableEntry(t *testing.T) {
	table := NewTable()
	e, err := table.RegisterMMIO(HTIFStart, HTIFLength, DriverHTIF, &DeviceBacking{})
	require.NoError(t, err)

	_, err = e.ReadWord(HTIFStart, 8)
	require.Error(t, err)
}
