package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

func (cli *commandLine) resetUserPassword(ctx context.Context, email, pwd string) error {
	if err := cli.svc.User.SetPassword(ctx, email, pwd); err != nil {
		return errors.Wrap(err, "resetting customer password")
	}
	fmt.Fprintf(cli.out, "Password of %s reset.\n", email)
	return nil
}

func (cli *commandLine) resetAdminPassword(ctx context.Context, login, pwd string) error {
	if err := cli.svc.Admin.ResetPassword(ctx, login, pwd); err != nil {
		return errors.Wrap(err, "resetting admin password")
	}
	fmt.Fprintf(cli.out, "Password of %s reset.\n", login)
	return nil
}
