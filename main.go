package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/kamal-hamza/lima-cli/cmd"
)

func main() {
	if err := fang.Execute(
		context.Background(),
		cmd.RootCmd(),
		fang.WithVersion(cmd.Version),
		fang.WithCommit(cmd.GitCommit),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
