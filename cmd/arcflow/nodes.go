package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	cli "github.com/urfave/cli/v3"

	"github.com/arcflow/arcflow/pkg/cmd"
	"github.com/arcflow/arcflow/pkg/log"
)

// NodesCommand lists every available node type with its config schema.
func NodesCommand() *cli.Command {
	return &cli.Command{
		Name:    "nodes",
		Aliases: []string{"n"},
		Usage:   "List available node types and their config schemas",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "plugins-path",
				Usage: "Path to the directory containing node plugins",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			registry := cmd.NewRegistry(log.WithModule("cli"), command.String("plugins-path"))

			output, err := json.MarshalIndent(registry.NodeTypes(), "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(output))

			return nil
		},
	}
}
