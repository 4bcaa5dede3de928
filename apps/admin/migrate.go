package main

import (
	"github.com/spf13/cobra"

	"github.com/trezcool/homeroom/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, down, status, up-to VERSION...)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return gooseRunFunc(cmd.Context(), cli.db.DB, cli.db.DriverName(), args[0], args[1:]...)
		},
	}
}
