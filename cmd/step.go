package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/creol-io/machine-emulator/access"
	"github.com/creol-io/machine-emulator/interp"
	"github.com/creol-io/machine-emulator/machine"
	"github.com/creol-io/machine-emulator/merkle"
	"github.com/creol-io/machine-emulator/native"
	"github.com/creol-io/machine-emulator/step"
)

// Step advances a fresh machine natively by --at instructions, then
// takes exactly one logged step (with proofs when --proofs is set) and
// writes the resulting record
// to --output as JSON.
func Step(ctx *cli.Context) error {
	l := Logger(os.Stderr, log.LevelInfo)
	m, err := machine.New(machine.Config{
		RAMLength: ctx.Uint64(RAMLengthFlag.Name),
		Console:   &ConsoleWriter{Log: l},
	})
	if err != nil {
		return fmt.Errorf("failed to build machine: %w", err)
	}

	na := &native.Access{St: m.State}
	for i := uint64(0); i < ctx.Uint64(AtFlag.Name); i++ {
		if err := interp.Step(na); err != nil {
			return fmt.Errorf("failed to fast-forward to step %d: %w", i, err)
		}
	}

	tree := merkle.New()
	result, err := step.Run(m.State, tree, access.LogType{
		Proofs:      ctx.Bool(ProofsFlag.Name),
		Annotations: true,
	})
	if err != nil {
		return fmt.Errorf("logged step failed: %w", err)
	}

	f, err := os.Create(ctx.String(OutputFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write step record: %w", err)
	}

	l.Info("step recorded",
		"accesses", len(result.Log.Accesses),
		"root-before", result.RootHashBefore,
		"root-after", result.RootHashAfter,
	)
	return nil
}

var StepCommand = &cli.Command{
	Name:  "step",
	Usage: "take one logged, provable instruction step and write it to a file",
	Action: Step,
	Flags: []cli.Flag{
		RAMLengthFlag,
		AtFlag,
		OutputFlag,
		ProofsFlag,
	},
}
