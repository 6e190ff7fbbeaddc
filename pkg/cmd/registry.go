// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/arcflow/arcflow/pkg/registry"
)

// NewRegistry builds the node registry every binary shares: the built-in
// node set plus any factories loaded from shared-object plugins.
func NewRegistry(logger *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	if pluginsPath != "" {
		factories, err := reg.LoadNodePlugins(pluginsPath)
		if err != nil {
			panic(err)
		}

		for _, factory := range factories {
			reg.RegisterNode(factory)
		}
	}

	return reg
}
