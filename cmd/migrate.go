package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/funscreener/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the reference ciq* schema (development and test fixtures)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := initPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		return db.Migrate(ctx, pool)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
