package cli

import (
	"fmt"

	"github.com/buildtall-systems/petstock/internal/config"
	"github.com/buildtall-systems/petstock/internal/db"
	"github.com/buildtall-systems/petstock/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger := logging.New(cfg.Verbose)
		defer func() { _ = logger.Sync() }()

		database, err := db.Open(cfg.Database.Path, db.WithLogger(logger))
		if err != nil {
			return err
		}
		defer func() { _ = database.Close() }()

		if err := database.Migrate(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", cfg.Database.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
