package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/user"
	cachesvc "github.com/vistavoyage/voyage/services/cache"
	sqlxrepos "github.com/vistavoyage/voyage/storage/database/sqlx"
	"github.com/vistavoyage/voyage/tests"
)

const pwd = "Voyage#2024!"

func newService(t *testing.T, mod ...func(conf *core.Config)) (*user.Service, user.Repository) {
	t.Helper()
	conf := testutil.NewConfig(t)
	for _, m := range mod {
		m(conf)
	}
	db := testutil.PrepareDB(t, conf)
	cache := cachesvc.New(time.Minute, 0)
	t.Cleanup(cache.Close)
	validate, _ := testutil.NewValidator()
	repo := sqlxrepos.NewUserRepository(db)
	return user.NewService(repo, cache, nil, validate, conf), repo
}

func mockOTP(t *testing.T, code string) {
	t.Helper()
	orig := user.GenerateOTP
	user.GenerateOTP = func() (string, error) { return code, nil }
	t.Cleanup(func() { user.GenerateOTP = orig })
}

func TestService_Register(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	usr, err := svc.Register(ctx, user.NewUser{
		Email:    " Jane@Voyage.TEST ",
		FullName: "Jane Traveller",
		Password: pwd,
		City:     " Nairobi ",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@voyage.test", usr.Email)
	assert.Equal(t, "Nairobi", usr.City.String)
	assert.False(t, usr.Country.Valid)
	assert.True(t, usr.IsActive)
	assert.NotEqual(t, pwd, usr.PasswordHash)

	_, err = svc.Register(ctx, user.NewUser{Email: "JANE@voyage.test", FullName: "Jane Again", Password: pwd})
	assert.ErrorIs(t, err, user.ErrEmailExists)

	_, err = svc.Register(ctx, user.NewUser{Email: "john@voyage.test", FullName: "John", Password: pwd, PasswordConfirm: "nope"})
	assert.Error(t, err)
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, repo, "Jane Traveller", "jane@voyage.test", pwd, true)
	testutil.CreateUser(t, repo, "John Doe", "john@voyage.test", pwd, false)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "nobody@voyage.test", pwd: pwd, wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", email: "jane@voyage.test", pwd: "Wrong#2024!", wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", email: "john@voyage.test", pwd: pwd, wantErr: user.ErrAccountDeactivated},
		{name: "valid", email: " JANE@voyage.test", pwd: pwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, jane.ID, usr.ID)
			assert.True(t, usr.LastLoginAt.Valid)
		})
	}

	stored, err := repo.GetUserByID(ctx, jane.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastLoginAt.Valid)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, repo, "Jane Traveller", "jane@voyage.test", pwd, true)
	testutil.CreateUser(t, repo, "John Doe", "john@voyage.test", pwd, true)

	taken := "John@voyage.test"
	_, err := svc.UpdateProfile(ctx, jane, user.UpdateUser{Email: &taken})
	assert.ErrorIs(t, err, user.ErrEmailExists)

	same, country, empty := "jane@voyage.test", " Kenya ", ""
	usr, err := svc.UpdateProfile(ctx, jane, user.UpdateUser{Email: &same, Country: &country, Phone: &empty})
	require.NoError(t, err)
	assert.Equal(t, "Kenya", usr.Country.String)
	assert.False(t, usr.Phone.Valid)
	assert.Equal(t, "Jane Traveller", usr.FullName)
}

func TestService_passwordReset(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	testutil.CreateUser(t, repo, "Jane Traveller", "jane@voyage.test", pwd, true)
	testutil.CreateUser(t, repo, "John Doe", "john@voyage.test", pwd, false)
	mockOTP(t, "493027")

	// unknown and inactive accounts are not revealed
	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@voyage.test"))
	require.NoError(t, svc.RequestPasswordReset(ctx, "john@voyage.test"))
	_, err := svc.VerifyOTP(ctx, "john@voyage.test", "493027")
	assert.ErrorIs(t, err, user.ErrInvalidOTP)

	require.NoError(t, svc.RequestPasswordReset(ctx, " Jane@voyage.test"))
	_, err = svc.VerifyOTP(ctx, "jane@voyage.test", "000000")
	assert.ErrorIs(t, err, user.ErrInvalidOTP)

	sessionID, err := svc.VerifyOTP(ctx, "jane@voyage.test", " 493027 ")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)

	// a code is single use
	_, err = svc.VerifyOTP(ctx, "jane@voyage.test", "493027")
	assert.ErrorIs(t, err, user.ErrInvalidOTP)

	newPwd := "Safari#Nights9"
	err = svc.ResetPassword(ctx, user.ResetPassword{Email: "jane@voyage.test", SessionID: "wrong", Password: newPwd})
	assert.ErrorIs(t, err, user.ErrInvalidSession)

	// the policy applies: too similar to the name
	err = svc.ResetPassword(ctx, user.ResetPassword{Email: "jane@voyage.test", SessionID: sessionID, Password: "Jane#Traveller1"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, user.ErrInvalidSession)

	require.NoError(t, svc.ResetPassword(ctx, user.ResetPassword{Email: "jane@voyage.test", SessionID: sessionID, Password: newPwd}))
	_, err = svc.Authenticate(ctx, "jane@voyage.test", newPwd)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "jane@voyage.test", pwd)
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	// the session is closed
	err = svc.ResetPassword(ctx, user.ResetPassword{Email: "jane@voyage.test", SessionID: sessionID, Password: "Another#Pass7"})
	assert.ErrorIs(t, err, user.ErrInvalidSession)
}

func TestService_VerifyOTP_limits(t *testing.T) {
	svc, repo := newService(t, func(conf *core.Config) {
		conf.Auth.OTPMaxAttempts = 3
		conf.Auth.OTPTTL = 200 * time.Millisecond
	})
	ctx := context.Background()
	testutil.CreateUser(t, repo, "Jane Traveller", "jane@voyage.test", pwd, true)
	mockOTP(t, "111111")

	// too many wrong attempts burn the code
	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@voyage.test"))
	for i := 0; i < 3; i++ {
		_, err := svc.VerifyOTP(ctx, "jane@voyage.test", "222222")
		assert.ErrorIs(t, err, user.ErrInvalidOTP)
	}
	_, err := svc.VerifyOTP(ctx, "jane@voyage.test", "111111")
	assert.ErrorIs(t, err, user.ErrInvalidOTP)

	// codes expire
	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@voyage.test"))
	time.Sleep(300 * time.Millisecond)
	_, err = svc.VerifyOTP(ctx, "jane@voyage.test", "111111")
	assert.ErrorIs(t, err, user.ErrInvalidOTP)

	// a new request replaces the code
	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@voyage.test"))
	_, err = svc.VerifyOTP(ctx, "jane@voyage.test", "111111")
	assert.NoError(t, err)
}

func TestService_SetPassword(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	testutil.CreateUser(t, repo, "Jane Traveller", "jane@voyage.test", pwd, true)

	assert.Error(t, svc.SetPassword(ctx, "jane@voyage.test", "short"))
	assert.ErrorIs(t, svc.SetPassword(ctx, "nobody@voyage.test", "N3w#Passw0rd"), user.ErrNotFound)

	require.NoError(t, svc.SetPassword(ctx, "JANE@voyage.test", "N3w#Passw0rd"))
	_, err := svc.Authenticate(ctx, "jane@voyage.test", "N3w#Passw0rd")
	assert.NoError(t, err)
}
