package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/vistavoyage/voyage/core/admin"
)

// createAdmin bootstraps a back-office account, with no creator to check rights against.
func (cli *commandLine) createAdmin(ctx context.Context, na admin.NewAdmin) error {
	if na.FullName == "" {
		na.FullName = na.Username
	}
	adm, err := cli.svc.Admin.CreateUnchecked(ctx, na)
	if err != nil {
		return errors.Wrap(err, "creating admin")
	}
	fmt.Fprintf(cli.out, "Admin %s (%s) created with ID %s.\n", adm.Username, adm.Role, adm.ID)
	return nil
}
