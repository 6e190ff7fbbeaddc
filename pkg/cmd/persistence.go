package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arcflow/arcflow/pkg/persistence"
	"github.com/arcflow/arcflow/pkg/persistence/file"
	"github.com/arcflow/arcflow/pkg/persistence/postgresql"
)

// NewPersistence dispatches on the URL scheme: postgres:// selects the
// PostgreSQL store, anything else is treated as a filesystem root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgresql persistence: %w", err))
		}

		return store
	default:
		store, err := file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
		if err != nil {
			panic(fmt.Errorf("failed to initialize file persistence: %w", err))
		}

		return store
	}
}
