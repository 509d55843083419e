package main

import (
	"context"
	"os"

	"github.com/yndnr/regdesk-go/internal/cli/command"
	"github.com/yndnr/regdesk-go/internal/infra/shutdown"
)

func main() {
	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	app := command.App()
	if err := app.RunContext(ctx, os.Args); err != nil {
		stop()
		command.PrintError(os.Stderr, err)
		os.Exit(command.ExitCode(err))
	}
}
