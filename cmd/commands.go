// Package cmd implements the run/step/verify command-line surface
// (C13): run drives the machine natively to completion, step takes one
// logged and provable instruction, verify replays a recorded step
// against no real machine state.
package cmd

import "github.com/urfave/cli/v2"

// Commands lists every subcommand this tool exposes.
var Commands = []*cli.Command{
	RunCommand,
	StepCommand,
	VerifyCommand,
}
