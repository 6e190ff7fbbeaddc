package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "arcflow",
		Usage:                 "Operator tooling for arcflow workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			ValidateCommand(),
			NodesCommand(),
			ReplayCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
