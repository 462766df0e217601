package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/vistavoyage/voyage/apps/shared"
	"github.com/vistavoyage/voyage/core/admin"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db  *sqlx.DB
	svc *shared.Services
	out io.Writer
}

func newCommandLine(db *sqlx.DB, svc *shared.Services, out io.Writer) *commandLine {
	return &commandLine{db: db, svc: svc, out: out}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createadmin -username USERNAME -email EMAIL [-name NAME] [-role ROLE] - create a back-office account")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL | -username USERNAME - reset a customer's or an admin's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command against the database")
	fmt.Fprintln(cli.out, "  seed -file FILE - load destinations, trip types, activities, offers and packages from a YAML file")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "createadmin":
		cmd := cli.newFlagSet("createadmin")
		username := cmd.String("username", "", "The admin's username.")
		email := cmd.String("email", "", "The admin's email.")
		name := cmd.String("name", "", "The admin's full name. Defaults to the username.")
		role := cmd.String("role", admin.RoleSuperAdmin, "One of super_admin, admin or editor.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *username == "" || *email == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.createAdmin(ctx, admin.NewAdmin{
			Username: *username,
			Email:    *email,
			FullName: *name,
			Role:     *role,
			Password: pwd,
		})

	case "resetpassword":
		cmd := cli.newFlagSet("resetpassword")
		email := cmd.String("email", "", "The customer's email. The password will be prompted next.")
		username := cmd.String("username", "", "The admin's username or email. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if (*email == "") == (*username == "") {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		if *email != "" {
			return cli.resetUserPassword(ctx, *email, pwd)
		}
		return cli.resetAdminPassword(ctx, *username, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "seed":
		cmd := cli.newFlagSet("seed")
		file := cmd.String("file", "", "The YAML catalog to load.")
		if err := cmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *file == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.seedFile(ctx, *file)

	default:
		cli.printUsage()
		return errHelp
	}
}
