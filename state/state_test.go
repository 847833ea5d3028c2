package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creol-io/machine-emulator/pma"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	table := pma.NewTable()
	_, err := table.RegisterRAM(pma.RAMStart, pma.PageSize)
	require.NoError(t, err)
	return New(table)
}

func TestResetDefaults(t *testing.T) {
	s := newTestState(t)
	require.Equal(t, uint64(VendorID), s.ReadMvendorid())
	require.Equal(t, uint64(ArchID), s.ReadMarchid())
	require.Equal(t, uint64(ImplID), s.ReadMimpid())
	require.Equal(t, uint8(PrvM), s.ReadIflagsPRV())
	require.Equal(t, ^uint64(0), s.ReadIlrsc())
	require.False(t, s.Brk())
}

func TestX0AlwaysZero(t *testing.T) {
	s := newTestState(t)
	s.WriteX(0, 0xDEADBEEF)
	require.Equal(t, uint64(0), s.ReadX(0))
}

func TestRegisterFileRoundTrip(t *testing.T) {
	s := newTestState(t)
	for i := 1; i < 32; i++ {
		s.WriteX(i, uint64(i)*7)
	}
	for i := 1; i < 32; i++ {
		require.Equal(t, uint64(i)*7, s.ReadX(i))
	}
}

func TestImmutableCSRWritesAreNoOps(t *testing.T) {
	s := newTestState(t)
	before := s.ReadMvendorid()
	s.WriteCSR(CSRMvendorid, 0xFFFFFFFF)
	require.Equal(t, before, s.ReadMvendorid())

	beforeMisa := s.ReadMisa()
	s.WriteCSR(CSRMisa, 0)
	require.Equal(t, beforeMisa, s.ReadMisa())
}

func TestMcycleMustBeMonotonic(t *testing.T) {
	s := newTestState(t)
	s.WriteMcycle(10)
	require.Panics(t, func() { s.WriteMcycle(5) })
}

func TestBrkTracksPendingInterrupt(t *testing.T) {
	s := newTestState(t)
	require.False(t, s.Brk())
	s.WriteCSR(CSRMie, MipMTIP)
	s.WriteCSR(CSRMip, MipMTIP)
	require.True(t, s.Brk())
}

func TestBrkTracksHalt(t *testing.T) {
	s := newTestState(t)
	require.False(t, s.Brk())
	s.SetIflagsH()
	require.True(t, s.Brk())
}

func TestBrkTracksYieldWithMatchingIyield(t *testing.T) {
	s := newTestState(t)
	// device=2, cmd=0
	s.WriteHTIFIyield(1)
	s.WriteHTIFTohost(uint64(2) << 56)
	s.SetIflagsY()
	require.True(t, s.Brk())
}

func TestCLINTWriteClearsPendingTimerBit(t *testing.T) {
	s := newTestState(t)
	s.WriteCSR(CSRMip, MipMTIP)
	require.NotEqual(t, uint64(0), s.ReadMip()&MipMTIP)
	s.WriteCLINTMtimecmp(100)
	require.Equal(t, uint64(0), s.ReadMip()&MipMTIP)
}

func TestIflagsPackRoundTrip(t *testing.T) {
	f := Iflags{PRV: PrvS, I: true, Y: false, H: true}
	require.Equal(t, f, UnpackIflags(f.Pack()))
}

func TestIsDone(t *testing.T) {
	s := newTestState(t)
	require.False(t, s.IsDone(1))
	s.WriteMcycle(1)
	require.True(t, s.IsDone(1))
}

func TestPeekProjectsRegistersAndCSRs(t *testing.T) {
	s := newTestState(t)
	s.WriteX(5, 0xABCD)

	page := Peek(s)
	require.Equal(t, uint64(0xABCD), PeekWord(s, RegisterOffset(5)))
	require.Equal(t, s.ReadMvendorid(), PeekWord(s, CSRMvendorid.Offset()))
	require.Len(t, page, pma.PageSize)
}

func TestPeekProjectsPMAEntries(t *testing.T) {
	s := newTestState(t)
	entries := s.PMA.Entries()
	require.Len(t, entries, 1)

	istart := PeekWord(s, PMATableBase)
	length := PeekWord(s, PMATableBase+8)
	require.Equal(t, entries[0].Length, length)
	require.NotEqual(t, uint64(0), istart)
}
