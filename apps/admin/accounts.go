package main

import (
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/homeroom/core/account"
)

func (cli *commandLine) addAccountCmd() *cobra.Command {
	var (
		na      account.NewAccount
		isAdmin bool
	)
	cmd := &cobra.Command{
		Use:   "addaccount",
		Short: "Create an account, or reactivate and update an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if isAdmin {
				na.Roles = []string{account.RoleParent, account.RoleAdmin}
			}
			na.Clean()
			if err := cli.validate.Struct(na); err != nil {
				return err
			}
			created, err := cli.addAccount(cmd, na, isAdmin)
			if err != nil {
				return err
			}
			verb := "updated"
			if created {
				verb = "created"
			}
			color.New(color.FgGreen).Fprintf(cli.out, "account %s %s\n", na.Email, verb)
			return nil
		},
	}
	cmd.Flags().StringVarP(&na.Email, "email", "e", "", "the account's email")
	cmd.Flags().StringVarP(&na.Name, "name", "n", "", "the account holder's name")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant the admin role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// addAccount updates or creates an account.Account. Existing roles are kept unless isAdmin.
func (cli *commandLine) addAccount(cmd *cobra.Command, na account.NewAccount, isAdmin bool) (created bool, err error) {
	ctx := cmd.Context()
	acc, err := cli.accounts.GetByEmail(ctx, na.Email)
	if err != nil {
		if errors.Cause(err) != account.ErrNotFound {
			return false, err
		}
		_, err = cli.accounts.Create(ctx, na)
		return err == nil, errors.Wrap(err, "creating account")
	}

	active := true
	upd := account.UpdateAccount{Name: na.Name, IsActive: &active}
	if isAdmin {
		upd.Roles = na.Roles
	}
	_, err = cli.accounts.Update(ctx, acc, upd)
	return false, errors.Wrap(err, "updating account")
}
