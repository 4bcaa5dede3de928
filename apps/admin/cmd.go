package main

import (
	"context"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/transcript"
)

var (
	errHelp = errors.New("help provided")

	// commands act with full access
	adminActor = core.Actor{Name: "admin", IsAdmin: true}
)

type commandLine struct {
	db          *sqlx.DB
	out         io.Writer
	validate    *validator.Validate
	accounts    *account.Service
	transcripts *transcript.Service
	closeBus    func()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Homeroom administration tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.migrateCmd(),
		cli.addAccountCmd(),
		cli.syncCmd(),
		cli.gpaCmd(),
		cli.transcriptCmd(),
	)
	return root
}

// run executes the command line; args[0] is the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

// studentFlag registers the --student flag every transcript command needs.
func studentFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "student", "s", "", "the student's id")
	_ = cmd.MarkFlagRequired("student")
}
