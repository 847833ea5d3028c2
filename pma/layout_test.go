package pma

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackIstartRoundTrip(t *testing.T) {
	f := Flags{R: true, W: true, X: false, IR: true, IW: false, M: true, DID: DriverRAM}
	istart := PackIstart(RAMStart, f)

	start, got := UnpackIstart(istart)
	require.Equal(t, uint64(RAMStart), start)
	require.Equal(t, f, got)
}

func TestPackIstartDropsLowStartBits(t *testing.T) {
	istart := PackIstart(RAMStart|0xFFF, Flags{})
	start, _ := UnpackIstart(istart)
	require.Equal(t, uint64(RAMStart), start)
}

func TestPackIstartEncodesDeviceKindAndID(t *testing.T) {
	f := Flags{IO: true, DID: DriverHTIF}
	istart := PackIstart(HTIFStart, f)
	_, got := UnpackIstart(istart)
	require.True(t, got.IO)
	require.False(t, got.M)
	require.Equal(t, DriverHTIF, got.DID)
}
