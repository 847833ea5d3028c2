package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/creol-io/machine-emulator/interp"
	"github.com/creol-io/machine-emulator/machine"
	"github.com/creol-io/machine-emulator/native"
)

// Run drives the machine natively (no logging, no Merkle tree) from the
// boot ROM until the guest requests shutdown via HTIF or max-cycles
// ticks elapse, whichever comes first.
func Run(ctx *cli.Context) error {
	l := Logger(os.Stderr, log.LevelInfo)
	m, err := machine.New(machine.Config{
		RAMLength: ctx.Uint64(RAMLengthFlag.Name),
		Console:   &ConsoleWriter{Log: l},
	})
	if err != nil {
		return fmt.Errorf("failed to build machine: %w", err)
	}

	a := &native.Access{St: m.State}
	maxCycles := ctx.Uint64(MaxCyclesFlag.Name)

	for !m.State.IsDone(maxCycles) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.State.ReadIflagsH() {
			_, code := m.ShutdownRequested()
			l.Info("guest requested shutdown", "code", HexU64(code))
			return nil
		}
		if err := interp.Step(a); err != nil {
			return fmt.Errorf("step failed at pc %s: %w", HexU64(m.State.ReadPC()), err)
		}
	}

	l.Warn("stopped without a shutdown request", "max-cycles", maxCycles, "pc", HexU64(m.State.ReadPC()))
	return nil
}

var RunCommand = &cli.Command{
	Name:  "run",
	Usage: "run the machine natively from the boot ROM until it halts",
	Action: Run,
	Flags: []cli.Flag{
		RAMLengthFlag,
		MaxCyclesFlag,
	},
}
