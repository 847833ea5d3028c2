package machine

import (
	"encoding/binary"

	"github.com/creol-io/machine-emulator/pma"
)

// htifDev/htifCmd extract the device and command bytes packed into the
// top two bytes of a tohost word; the remaining 48 bits are payload.
func htifDev(tohost uint64) uint64  { return tohost >> 56 }
func htifCmd(tohost uint64) uint64  { return (tohost << 8) >> 56 }
func htifPayload(tohost uint64) uint64 { return tohost & 0xFFFFFFFFFFFF }

func htifPack(dev, cmd, payload uint64) uint64 {
	return (dev << 56) | (cmd << 48) | (payload & 0xFFFFFFFFFFFF)
}

// htifBacking builds the HTIF device: a tohost/fromhost mailbox pair
// where writing tohost can trigger a host-visible side effect (shutdown,
// console output, keyboard interrupt request) depending on the device
// and command bytes it encodes. Device-yield (device 2) has no side
// effect here beyond storing the word; state.State's brk derivation
// already reacts to it.
func htifBacking(m *Machine) *pma.DeviceBacking {
	return &pma.DeviceBacking{
		Context: m,
		Name:    "HTIF",
		Peek:    htifPeek,
		Read: func(ctx pma.DeviceContext, offset uint64, size int) (uint64, bool) {
			mm := ctx.(*Machine)
			if size != 8 {
				return 0, false
			}
			switch offset {
			case pma.HTIFTohostRel:
				return mm.State.ReadHTIFTohost(), true
			case pma.HTIFFromhostRel:
				return mm.State.ReadHTIFFromhost(), true
			default:
				return 0, false
			}
		},
		Write: func(ctx pma.DeviceContext, offset uint64, size int, val uint64) bool {
			mm := ctx.(*Machine)
			if size != 8 {
				return false
			}
			switch offset {
			case pma.HTIFTohostRel:
				mm.handleTohost(val)
				return true
			case pma.HTIFFromhostRel:
				mm.State.WriteHTIFFromhost(val)
				return true
			default:
				return false
			}
		},
	}
}

// handleTohost stores val into tohost and, if it matches a recognised
// device/command pair, performs the associated host action. Console
// commands acknowledge by clearing tohost (putchar also echoes a
// response on fromhost); a shutdown request leaves tohost set.
func (m *Machine) handleTohost(val uint64) {
	m.State.WriteHTIFTohost(val)

	dev, cmd, payload := htifDev(val), htifCmd(val), htifPayload(val)
	switch {
	case dev == 0 && cmd == 0 && payload&1 == 1:
		m.shutdown = true
		m.exitCode = payload
		m.State.SetIflagsH()
	case dev == 1 && cmd == 1:
		if m.console != nil {
			m.console.Write([]byte{byte(payload)})
		}
		m.State.WriteHTIFTohost(0)
		m.State.WriteHTIFFromhost(htifPack(1, 1, 0))
	case dev == 1 && cmd == 0:
		m.State.WriteHTIFTohost(0)
	}
}

// htifPeek materialises HTIF's single 4KiB page (tohost at offset 0,
// fromhost at offset 8) so it can join the Merkle tree.
func htifPeek(ctx pma.DeviceContext, pageOffset uint64) ([]byte, bool) {
	if pageOffset != 0 {
		return nil, false
	}
	mm := ctx.(*Machine)
	page := make([]byte, pma.PageSize)
	binary.LittleEndian.PutUint64(page[pma.HTIFTohostRel:], mm.State.ReadHTIFTohost())
	binary.LittleEndian.PutUint64(page[pma.HTIFFromhostRel:], mm.State.ReadHTIFFromhost())
	return page, true
}
