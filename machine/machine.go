// Package machine wires a state.State to a pma.Table with RAM, boot ROM,
// CLINT, HTIF and shadow regions registered against it, giving native,
// logging and replay state-accesses a single consistent view of memory
// mapped devices.
package machine

import (
	"io"

	"github.com/creol-io/machine-emulator/boot"
	"github.com/creol-io/machine-emulator/pma"
	"github.com/creol-io/machine-emulator/state"
)

// Config selects the RAM size and the console this machine's HTIF putchar
// device writes to.
type Config struct {
	RAMLength uint64
	Console   io.Writer
}

// Machine bundles the state and its owning PMA table, plus the small
// pieces of host-visible behaviour (console output, shutdown request)
// that the HTIF device callbacks need but that do not belong in
// architectural state.
type Machine struct {
	State *state.State

	console  io.Writer
	shutdown bool
	exitCode uint64
}

// ShutdownRequested reports whether the guest asked the host to halt via
// HTIF, and the exit code it passed.
func (m *Machine) ShutdownRequested() (bool, uint64) { return m.shutdown, m.exitCode }

// New builds a machine with RAM at pma.RAMStart, a boot ROM assembled by
// the boot package at pma.ROMStart, CLINT and HTIF device regions, and
// the shadow projection, all registered against a fresh state.State.
func New(cfg Config) (*Machine, error) {
	table := pma.NewTable()
	st := state.New(table)

	if _, err := table.RegisterRAM(pma.RAMStart, cfg.RAMLength); err != nil {
		return nil, err
	}
	if _, err := table.RegisterROM(pma.ROMStart, pma.ROMLength, boot.BuildROM(cfg.RAMLength)); err != nil {
		return nil, err
	}

	m := &Machine{State: st, console: cfg.Console}

	if _, err := table.RegisterMMIO(pma.CLINTStart, pma.CLINTLength, pma.DriverCLINT, clintBacking(st)); err != nil {
		return nil, err
	}
	if _, err := table.RegisterMMIO(pma.HTIFStart, pma.HTIFLength, pma.DriverHTIF, htifBacking(m)); err != nil {
		return nil, err
	}
	if _, err := table.RegisterShadow(pma.ShadowStart, pma.ShadowLength, st, shadowPeek); err != nil {
		return nil, err
	}
	table.Finalize()

	st.WritePC(pma.ROMStart)
	return m, nil
}

func shadowPeek(ctx pma.DeviceContext, pageOffset uint64) ([]byte, bool) {
	if pageOffset != 0 {
		return nil, false
	}
	return state.Peek(ctx.(*state.State)), true
}
