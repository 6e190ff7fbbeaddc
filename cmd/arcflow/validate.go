package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	cli "github.com/urfave/cli/v3"

	"github.com/arcflow/arcflow/pkg/cmd"
	"github.com/arcflow/arcflow/pkg/graph"
	"github.com/arcflow/arcflow/pkg/log"
	"github.com/arcflow/arcflow/pkg/models"
)

// ValidateCommand checks a workflow document offline: the full strict
// pipeline a publish would apply, without touching any store.
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate a workflow document without saving it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the workflow JSON document",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			data, err := os.ReadFile(command.String("file"))
			if err != nil {
				return err
			}

			var workflow models.Workflow
			if err := json.Unmarshal(data, &workflow); err != nil {
				return fmt.Errorf("failed to parse workflow document: %w", err)
			}

			registry := cmd.NewRegistry(log.WithModule("cli"), "")

			result := graph.Validate(&workflow, graph.Options{})
			result.Merge(registry.ValidateWorkflowNodes(&workflow))

			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(output))

			if !result.Valid {
				return errors.New("workflow document is invalid")
			}

			return nil
		},
	}
}
