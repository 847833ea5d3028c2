package cmd

import "github.com/urfave/cli/v2"

var (
	RAMLengthFlag = &cli.Uint64Flag{
		Name:  "ram",
		Usage: "RAM size in bytes",
		Value: 64 << 20,
	}
	MaxCyclesFlag = &cli.Uint64Flag{
		Name:  "max-cycles",
		Usage: "stop the run subcommand after this many mcycle ticks even if the guest never halts",
		Value: 1 << 30,
	}
	AtFlag = &cli.Uint64Flag{
		Name:  "at",
		Usage: "advance this many instructions natively before taking the logged step",
	}
	OutputFlag = &cli.StringFlag{
		Name:     "output",
		Usage:    "path to write the resulting step record to",
		Required: true,
	}
	InputFlag = &cli.StringFlag{
		Name:     "input",
		Usage:    "path to read a step record from",
		Required: true,
	}
	ProofsFlag = &cli.BoolFlag{
		Name:  "proofs",
		Usage: "attach Merkle inclusion proofs to every logged access",
		Value: true,
	}
	OneBasedFlag = &cli.BoolFlag{
		Name:  "one-based",
		Usage: "report access indices in verify errors starting from 1",
	}
)
