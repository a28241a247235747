package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/japaniel/kaikki/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database schema and a default kaikki.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				path = defaultConfig
			}
			written, err := writeDefaultConfig(path)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
			}

			conn, _, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Database initialized at %s\n", a.cfg.Database.DSN)
			return nil
		},
	}
}

// openDB connects to the configured sink and provisions the schema.
// Any failure here is fatal for the command.
func (a *app) openDB(ctx context.Context) (*sql.DB, *db.Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dialect, err := db.ParseDialect(a.cfg.Database.Driver)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Open(ctx, dialect, a.cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitDB(ctx, conn, dialect); err != nil {
		conn.Close()
		return nil, nil, err
	}
	store := db.NewStore(dialect)
	a.logger.Debug("database ready", zap.String("driver", string(store.Dialect())))
	return conn, store, nil
}
