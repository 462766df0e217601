package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/apps/shared"
	"github.com/vistavoyage/voyage/core/admin"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/user"
	emailsvc "github.com/vistavoyage/voyage/services/email"
	sqlxrepos "github.com/vistavoyage/voyage/storage/database/sqlx"
	"github.com/vistavoyage/voyage/tests"
)

const testPassword = "Voyage#2024!"

type cliEnv struct {
	cli     *commandLine
	out     *bytes.Buffer
	usrRepo user.Repository
	admRepo admin.Repository
}

func setup(t *testing.T) *cliEnv {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	svc := shared.NewServices(db, conf, emailsvc.NewConsoleServiceMock(conf))
	t.Cleanup(svc.Cache.Close)

	var out bytes.Buffer
	return &cliEnv{
		cli:     newCommandLine(db, svc, &out),
		out:     &out,
		usrRepo: sqlxrepos.NewUserRepository(db),
		admRepo: sqlxrepos.NewAdminRepository(db),
	}
}

// mockPassword makes the password prompt return pwd.
func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (env *cliEnv) runTests(t *testing.T, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := env.cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				require.NoError(t, err)
				if check != nil {
					check(t, tt)
				}
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	env := setup(t)
	env.runTests(t, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "bad flag", args: []string{"seed", "-nope"}, wantErr: errHelp},
	}, nil)
	assert.Contains(t, env.out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(_ context.Context, command string, _ *sql.DB, _ string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	env.runTests(t, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "reviews", "sql"}},
	}, nil)
}

func Test_commandLine_migrateStatus(t *testing.T) {
	env := setup(t)
	// the real goose run against the migrated test database
	require.NoError(t, env.cli.run([]string{"admin", "migrate", "version"}))
}

func Test_commandLine_createAdmin(t *testing.T) {
	env := setup(t)
	testutil.CreateAdmin(t, env.admRepo, "boss", "boss@voyage.test", admin.RoleSuperAdmin, testPassword)

	env.runTests(t, []cliTest{
		{name: "no args", args: []string{"createadmin"}, wantErr: errHelp},
		{name: "no email", args: []string{"createadmin", "-username", "writer"}, pwd: testPassword, wantErr: errHelp},
		{name: "no password", args: []string{"createadmin", "-username", "writer", "-email", "writer@voyage.test"}, wantErr: errHelp},
		{
			name:    "taken",
			args:    []string{"createadmin", "-username", "BOSS", "-email", "other@voyage.test"},
			pwd:     testPassword,
			wantErr: admin.ErrAdminExists,
		},
		{
			name:       "bad role",
			args:       []string{"createadmin", "-username", "writer", "-email", "writer@voyage.test", "-role", "janitor"},
			pwd:        testPassword,
			wantErrStr: "role",
		},
		{
			name: "create",
			args: []string{"createadmin", "-username", "writer", "-email", "writer@voyage.test", "-role", admin.RoleEditor},
			pwd:  testPassword,
		},
	}, func(t *testing.T, tt cliTest) {
		adm, err := env.admRepo.GetAdminByLogin(context.Background(), "writer")
		require.NoError(t, err)
		assert.Equal(t, admin.RoleEditor, adm.Role)
		assert.Equal(t, "writer", adm.FullName)
		assert.NoError(t, adm.CheckPassword(testPassword))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	env := setup(t)
	usr := testutil.CreateUser(t, env.usrRepo, "Jane Traveller", "jane@voyage.test", testPassword, true)
	adm := testutil.CreateAdmin(t, env.admRepo, "boss", "boss@voyage.test", admin.RoleSuperAdmin, testPassword)

	const newPassword = "N3w#Passw0rd"
	env.runTests(t, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "both flags", args: []string{"resetpassword", "-email", usr.Email, "-username", adm.Username}, pwd: newPassword, wantErr: errHelp},
		{name: "no password", args: []string{"resetpassword", "-email", usr.Email}, wantErr: errHelp},
		{name: "unknown customer", args: []string{"resetpassword", "-email", "nobody@voyage.test"}, pwd: newPassword, wantErr: user.ErrNotFound},
		{name: "unknown admin", args: []string{"resetpassword", "-username", "nobody"}, pwd: newPassword, wantErr: admin.ErrNotFound},
		{name: "weak customer password", args: []string{"resetpassword", "-email", usr.Email}, pwd: "password", wantErrStr: "password"},
		{name: "short admin password", args: []string{"resetpassword", "-username", adm.Username}, pwd: "short", wantErr: admin.ErrShortPassword},
		{name: "customer", args: []string{"resetpassword", "-email", " JANE@voyage.test"}, pwd: newPassword},
		{name: "admin", args: []string{"resetpassword", "-username", adm.Email}, pwd: newPassword},
	}, nil)

	got, err := env.usrRepo.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword(newPassword))

	gotAdm, err := env.admRepo.GetAdminByID(context.Background(), adm.ID)
	require.NoError(t, err)
	assert.NoError(t, gotAdm.CheckPassword(newPassword))
}

const catalogYAML = `
destinations:
  - name: Maasai Mara
    country: Kenya
    best_time_to_visit: July to October
  - name: Zanzibar
    country: Tanzania
    city: Stone Town
trip_types:
  - name: Safari
    category: wildlife
activities:
  - name: Game Drive
    type: wildlife
    duration_hours: 4
    difficulty: easy
offers:
  - title: Early Bird
    discount_percentage: 15
    valid_from: 2020-01-01T00:00:00Z
    valid_until: 2099-01-01T00:00:00Z
packages:
  - title: Big Five Safari
    price: 1200
    duration_days: 5
    duration_nights: 4
    destination: maasai mara
    trip_type: Safari
    offer: Early Bird
    featured: true
    highlights: [Lions, Elephants]
    activities: [Game Drive]
`

func Test_commandLine_seed(t *testing.T) {
	env := setup(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(file, []byte(catalogYAML), 0o600))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("packages:\n  - title: Lost\n    price: 10\n    duration_days: 1\n    destination: Atlantis\n"), 0o600))

	env.runTests(t, []cliTest{
		{name: "no file", args: []string{"seed"}, wantErr: errHelp},
		{name: "missing file", args: []string{"seed", "-file", filepath.Join(dir, "nope.yaml")}, wantErrStr: "reading seed file"},
		{name: "unknown destination", args: []string{"seed", "-file", broken}, wantErrStr: `unknown destination "Atlantis"`},
		{name: "seed", args: []string{"seed", "-file", file}},
		{name: "seed again", args: []string{"seed", "-file", file}},
	}, nil)

	assert.Contains(t, env.out.String(), "Seeded catalog: 6 created, 0 already present.")
	assert.Contains(t, env.out.String(), "Seeded catalog: 0 created, 6 already present.")

	ctx := context.Background()
	dests, err := env.cli.svc.Destination.Query(ctx, destination.QueryFilter{}, seedPage, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, dests.Total)

	pkgs, err := env.cli.svc.Package.Query(ctx, tour.QueryFilter{}, seedPage, nil)
	require.NoError(t, err)
	require.Len(t, pkgs.Items, 1)
	pkg := pkgs.Items[0]
	assert.True(t, pkg.IsFeatured)
	assert.Equal(t, 1020.0, pkg.EffectivePrice)

	detail, err := env.cli.svc.Package.GetDetail(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maasai Mara", detail.Destination.Name)
	require.Len(t, detail.Activities, 1)
	assert.Equal(t, "Game Drive", detail.Activities[0].Name)
}
