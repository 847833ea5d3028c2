package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/creol-io/machine-emulator/cmd"
)

func main() {
	app := cli.NewApp()
	app.Name = "riscv-machine"
	app.Usage = "deterministic RISC-V64 machine emulator with provable single-step execution"
	app.Description = "Runs a single-hart RISC-V64 machine to completion, or takes one instruction step under a Merkle-proven access log that can later be replayed and verified with no real machine state."
	app.Commands = cmd.Commands

	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		fmt.Fprintln(os.Stderr, "\r\nInterrupted, exiting...")
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		if errors.Is(err, ctx.Err()) {
			fmt.Fprintln(os.Stderr, "command interrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
