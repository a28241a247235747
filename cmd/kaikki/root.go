package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries state shared by every subcommand for one invocation.
type app struct {
	configPath string
	verbose    bool

	cfg    *Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "kaikki",
		Short:         "Load kaikki.org wiktextract dictionary dumps into SQL",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath, cmd)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger, err = newLogger(a.verbose)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: ./kaikki.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("db", "", "database DSN (overrides database.dsn)")
	root.PersistentFlags().String("driver", "", "database driver: sqlite or postgres")

	root.AddCommand(
		newInitCmd(a),
		newIngestCmd(a),
		newStatusCmd(a),
		newFailuresCmd(a),
		newFetchCmd(a),
		newVersionCmd(),
	)
	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
