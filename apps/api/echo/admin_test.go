package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/admin"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/user"
	"github.com/vistavoyage/voyage/tests"
)

func Test_adminAuthApi(t *testing.T) {
	env := setup(t)
	boss := env.createAdmin("boss", admin.RoleSuperAdmin)
	manager := env.createAdmin("manager", admin.RoleAdmin)
	jane := env.createUser("Jane Traveller", "jane@voyage.test", true)

	t.Run("login by username or email", func(t *testing.T) {
		for _, login := range []string{"boss", "BOSS@voyage.test"} {
			rec := env.do(http.MethodPost, "/api/v1/admin/auth/login", "",
				marshalObj(t, AdminLoginRequest{Username: login, Password: testPassword}))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var res AdminLoginResponse
			decode(t, rec, &res)
			assert.Equal(t, boss.ID, res.Admin.ID)
			assert.NotEmpty(t, res.AccessToken)
		}
	})

	bossToken, managerToken := env.adminToken(boss), env.adminToken(manager)
	newAdmin := func(username, role string) []byte {
		return marshalObj(t, admin.NewAdmin{
			Username: username,
			Email:    username + "@voyage.test",
			FullName: "New " + username,
			Role:     role,
			Password: testPassword,
		})
	}

	runHTTPTests(t, env, []httpTest{
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/v1/admin/auth/login",
			body:     marshalObj(t, AdminLoginRequest{Username: "boss", Password: "nope"}),
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: admin.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "customer token",
			method:   http.MethodGet,
			path:     "/api/v1/admin/auth/me",
			token:    env.userToken(jane),
			wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, errBadJWT),
		},
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/api/v1/admin/auth/me",
			token:    managerToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     "/api/v1/admin/auth/roles",
			token:    managerToken,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, admin.Roles),
		},
		{
			name:     "admins list needs super admin",
			method:   http.MethodGet,
			path:     "/api/v1/admin/auth/admins",
			token:    managerToken,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name:     "create needs super admin",
			method:   http.MethodPost,
			path:     "/api/v1/admin/auth/create",
			token:    managerToken,
			body:     newAdmin("writer", admin.RoleEditor),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/api/v1/admin/auth/create",
			token:    bossToken,
			body:     newAdmin("writer", admin.RoleEditor),
			wantCode: http.StatusCreated,
		},
		{
			name:     "create duplicate",
			method:   http.MethodPost,
			path:     "/api/v1/admin/auth/create",
			token:    bossToken,
			body:     newAdmin("writer", admin.RoleEditor),
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: admin.ErrAdminExists.Error()}),
		},
		{
			name:     "create invalid role",
			method:   http.MethodPost,
			path:     "/api/v1/admin/auth/create",
			token:    bossToken,
			body:     newAdmin("other", "janitor"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "admins list",
			method:   http.MethodGet,
			path:     "/api/v1/admin/auth/admins",
			token:    bossToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "change password wrong current",
			method:   http.MethodPost,
			path:     "/api/v1/admin/auth/change-password",
			token:    managerToken,
			body:     marshalObj(t, admin.ChangePassword{CurrentPassword: "nope", NewPassword: "An0ther#Pass"}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"current_password": "wrong password"}`),
		},
		{
			name:     "change password",
			method:   http.MethodPost,
			path:     "/api/v1/admin/auth/change-password",
			token:    managerToken,
			body:     marshalObj(t, admin.ChangePassword{CurrentPassword: testPassword, NewPassword: "An0ther#Pass"}),
			wantCode: http.StatusOK,
		},
	})

	t.Run("refresh and logout", func(t *testing.T) {
		tokens, err := env.server.admins.Issue(boss.Principal(), boss.Role)
		require.NoError(t, err)

		rec := env.do(http.MethodPost, "/api/v1/admin/auth/refresh", "", marshalObj(t, RefreshRequest{RefreshToken: tokens.RefreshToken}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rotated TokenPair
		decode(t, rec, &rotated)

		// a customer refresh token is not valid for admins
		usrTokens, err := env.server.users.Issue(jane.Principal(), "")
		require.NoError(t, err)
		rec = env.do(http.MethodPost, "/api/v1/admin/auth/refresh", "", marshalObj(t, RefreshRequest{RefreshToken: usrTokens.RefreshToken}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = env.do(http.MethodPost, "/api/v1/admin/auth/logout", rotated.AccessToken, marshalObj(t, LogoutRequest{RefreshToken: rotated.RefreshToken}))
		require.Equal(t, http.StatusOK, rec.Code)
		rec = env.do(http.MethodGet, "/api/v1/admin/auth/me", rotated.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// Test_adminApi_permissions checks the minimum role of every admin area.
func Test_adminApi_permissions(t *testing.T) {
	env := setup(t)
	tokens := map[string]string{
		admin.RoleEditor:     env.adminToken(env.createAdmin("writer", admin.RoleEditor)),
		admin.RoleAdmin:      env.adminToken(env.createAdmin("manager", admin.RoleAdmin)),
		admin.RoleSuperAdmin: env.adminToken(env.createAdmin("boss", admin.RoleSuperAdmin)),
	}

	areas := []struct {
		path    string
		minRole string
	}{
		{"/api/v1/admin/destinations", admin.RoleEditor},
		{"/api/v1/admin/trip-types", admin.RoleEditor},
		{"/api/v1/admin/activities", admin.RoleEditor},
		{"/api/v1/admin/offers", admin.RoleEditor},
		{"/api/v1/admin/packages", admin.RoleEditor},
		{"/api/v1/admin/blogs", admin.RoleEditor},
		{"/api/v1/admin/promo-codes", admin.RoleAdmin},
		{"/api/v1/admin/bookings", admin.RoleAdmin},
		{"/api/v1/admin/users", admin.RoleAdmin},
		{"/api/v1/admin/dashboard/stats", admin.RoleAdmin},
		{"/api/v1/admin/system/stats", admin.RoleAdmin},
	}

	for _, area := range areas {
		for _, role := range admin.AllRoles {
			want := http.StatusForbidden
			if admin.HasRole(role, area.minRole) {
				want = http.StatusOK
			}
			t.Run(area.path+" as "+role, func(t *testing.T) {
				rec := env.do(http.MethodGet, area.path, tokens[role])
				assert.Equal(t, want, rec.Code, rec.Body.String())
			})
		}
		t.Run(area.path+" anonymous", func(t *testing.T) {
			rec := env.do(http.MethodGet, area.path, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func Test_adminCatalogApi_destinations(t *testing.T) {
	env := setup(t)
	editor := env.createAdmin("writer", admin.RoleEditor)
	token := env.adminToken(editor)

	// warm the public cache
	rec := env.do(http.MethodGet, "/api/v1/user/destinations", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/admin/destinations", token, marshalObj(t, destination.Input{
		Name:    " Zanzibar ",
		Country: "Tanzania",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dest destination.Destination
	decode(t, rec, &dest)
	assert.Equal(t, "Zanzibar", dest.Name)
	assert.Equal(t, editor.ID, dest.CreatedBy.String)

	// the write invalidated the public cache
	rec = env.do(http.MethodGet, "/api/v1/user/destinations", "")
	var public core.Paginated[destination.Destination]
	decode(t, rec, &public)
	assert.Equal(t, 1, public.Total)

	inactive := false
	rec = env.do(http.MethodPut, "/api/v1/admin/destinations/"+dest.ID, token, marshalObj(t, destination.Input{
		Name:     "Zanzibar",
		Country:  "Tanzania",
		City:     "Stone Town",
		IsActive: &inactive,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &dest)
	assert.Equal(t, "Stone Town", dest.City)
	assert.False(t, dest.IsActive)

	rec = env.do(http.MethodGet, "/api/v1/user/destinations/"+dest.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	pkg := testutil.CreatePackage(t, env.pkgRepo, dest, "Spice Tour", 300)
	runHTTPTests(t, env, []httpTest{
		{
			name:     "invalid",
			method:   http.MethodPost,
			path:     "/api/v1/admin/destinations",
			token:    token,
			body:     []byte(`{"name": " "}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "in use",
			method:   http.MethodDelete,
			path:     "/api/v1/admin/destinations/" + dest.ID,
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: destination.ErrInUse.Error()}),
		},
		{
			name:     "delete package",
			method:   http.MethodDelete,
			path:     "/api/v1/admin/packages/" + pkg.ID,
			token:    token,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/api/v1/admin/destinations/" + dest.ID,
			token:    token,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     "/api/v1/admin/destinations/" + dest.ID,
			token:    token,
			wantCode: http.StatusNotFound,
		},
	})
}

func Test_adminCatalogApi_packages(t *testing.T) {
	env := setup(t)
	token := env.adminToken(env.createAdmin("writer", admin.RoleEditor))
	dest := testutil.CreateDestination(t, env.destRepo, "Maasai Mara", "Kenya", true)
	tt := testutil.CreateTripType(t, env.ttRepo, "Safari")
	act := testutil.CreateActivity(t, env.actRepo, "Game Drive", "wildlife", true)
	deal := testutil.CreateOffer(t, env.offerRepo, "Early Bird", 20)

	input := tour.Input{
		Title:          "Big Five Safari",
		Price:          1000,
		DurationDays:   5,
		DurationNights: 4,
		DestinationID:  dest.ID,
		TripTypeID:     tt.ID,
		OfferID:        deal.ID,
		Highlights:     []string{"Lions", "Elephants"},
		ActivityIDs:    []string{act.ID, act.ID},
	}

	rec := env.do(http.MethodPost, "/api/v1/admin/packages", token, marshalObj(t, input))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pkg tour.Package
	decode(t, rec, &pkg)
	assert.Equal(t, 800.0, pkg.EffectivePrice)
	assert.Equal(t, tour.DefaultGroupSize, pkg.MaxGroupSize)

	rec = env.do(http.MethodGet, "/api/v1/admin/packages/"+pkg.ID, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail tour.PackageDetail
	decode(t, rec, &detail)
	require.Len(t, detail.Activities, 1)
	assert.Equal(t, act.ID, detail.Activities[0].ID)

	bad := input
	bad.DestinationID = "unknown"
	runHTTPTests(t, env, []httpTest{
		{
			name:     "unknown destination",
			method:   http.MethodPost,
			path:     "/api/v1/admin/packages",
			token:    token,
			body:     marshalObj(t, bad),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"destination_id": "unknown destination"}`),
		},
		{
			name:     "toggle featured",
			method:   http.MethodPatch,
			path:     "/api/v1/admin/packages/" + pkg.ID + "/toggle-featured",
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "stats",
			method:   http.MethodGet,
			path:     "/api/v1/admin/packages/stats",
			token:    token,
			wantCode: http.StatusOK,
		},
	})

	rec = env.do(http.MethodGet, "/api/v1/user/packages/featured", "")
	var featured ItemsResponse[tour.Package]
	decode(t, rec, &featured)
	require.Len(t, featured.Items, 1)

	rec = env.do(http.MethodPatch, "/api/v1/admin/packages/"+pkg.ID+"/toggle-active", token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/api/v1/user/packages/featured", "")
	decode(t, rec, &featured)
	assert.Empty(t, featured.Items)
}

func Test_adminCatalogApi_lookups(t *testing.T) {
	env := setup(t)
	token := env.adminToken(env.createAdmin("writer", admin.RoleEditor))
	testutil.CreateActivity(t, env.actRepo, "Game Drive", "wildlife", true)
	testutil.CreateActivity(t, env.actRepo, "Snorkeling", "water", false)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "activity types",
			method:   http.MethodGet,
			path:     "/api/v1/admin/activities/types/list",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"items": ["water", "wildlife"]}`),
		},
		{
			name:     "difficulty levels",
			method:   http.MethodGet,
			path:     "/api/v1/admin/activities/difficulty-levels/list",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, newItemsResponse(core.Difficulties)),
		},
		{
			name:     "activity stats",
			method:   http.MethodGet,
			path:     "/api/v1/admin/activities/stats",
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "create trip type",
			method:   http.MethodPost,
			path:     "/api/v1/admin/trip-types",
			token:    token,
			body:     []byte(`{"name": "Honeymoon", "category": "romance"}`),
			wantCode: http.StatusCreated,
		},
		{
			name:     "duplicate trip type",
			method:   http.MethodPost,
			path:     "/api/v1/admin/trip-types",
			token:    token,
			body:     []byte(`{"name": "honeymoon"}`),
			wantCode: http.StatusConflict,
		},
		{
			name:     "current offers",
			method:   http.MethodGet,
			path:     "/api/v1/admin/offers/active/current",
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "expiring offers",
			method:   http.MethodGet,
			path:     "/api/v1/admin/offers/expiring/soon",
			token:    token,
			wantCode: http.StatusOK,
		},
	})
}

func Test_adminCatalogApi_promoCodes(t *testing.T) {
	env := setup(t)
	token := env.adminToken(env.createAdmin("manager", admin.RoleAdmin))

	rec := env.do(http.MethodPost, "/api/v1/admin/promo-codes", token, []byte(`{
		"code": "welcome15",
		"discount_type": "percentage",
		"discount_value": 15,
		"start_date": "2020-01-01T00:00:00Z",
		"expiry_date": "2099-01-01T00:00:00Z"
	}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	runHTTPTests(t, env, []httpTest{
		{
			name:     "duplicate code",
			method:   http.MethodPost,
			path:     "/api/v1/admin/promo-codes",
			token:    token,
			body:     []byte(`{"code": "WELCOME15", "discount_type": "fixed", "discount_value": 5, "start_date": "2020-01-01T00:00:00Z", "expiry_date": "2099-01-01T00:00:00Z"}`),
			wantCode: http.StatusConflict,
			wantData: marshalObj(t, httpErr{Error: promo.ErrCodeExists.Error()}),
		},
		{
			name:     "percentage over 100",
			method:   http.MethodPost,
			path:     "/api/v1/admin/promo-codes",
			token:    token,
			body:     []byte(`{"code": "TOOMUCH", "discount_type": "percentage", "discount_value": 150, "start_date": "2020-01-01T00:00:00Z", "expiry_date": "2099-01-01T00:00:00Z"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "check",
			method:   http.MethodGet,
			path:     "/api/v1/admin/promo-codes/validate/welcome15?amount=200",
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "check without amount",
			method:   http.MethodGet,
			path:     "/api/v1/admin/promo-codes/validate/welcome15",
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"amount": "amount must be a positive number"}`),
		},
		{
			name:     "stats",
			method:   http.MethodGet,
			path:     "/api/v1/admin/promo-codes/stats",
			token:    token,
			wantCode: http.StatusOK,
		},
	})
}

func Test_adminUsersApi(t *testing.T) {
	env := setup(t)
	token := env.adminToken(env.createAdmin("manager", admin.RoleAdmin))
	jane := env.createUser("Jane Traveller", "jane@voyage.test", true)
	env.createUser("John Doe", "john@voyage.test", true)

	rec := env.do(http.MethodGet, "/api/v1/admin/users?search=jane", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var res core.Paginated[user.User]
	decode(t, rec, &res)
	require.Len(t, res.Items, 1)
	assert.Equal(t, jane.ID, res.Items[0].ID)

	janeToken := env.userToken(jane)
	rec = env.do(http.MethodPatch, "/api/v1/admin/users/"+jane.ID+"/toggle-status", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled user.User
	decode(t, rec, &toggled)
	assert.False(t, toggled.IsActive)

	// deactivation applies to live tokens
	rec = env.do(http.MethodGet, "/api/v1/auth/profile", janeToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "detail",
			method:   http.MethodGet,
			path:     "/api/v1/admin/users/" + jane.ID,
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/api/v1/admin/users/" + jane.ID,
			token:    token,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     "/api/v1/admin/users/" + jane.ID,
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
	})
}

func Test_dashboardApi(t *testing.T) {
	env := setup(t)
	token := env.adminToken(env.createAdmin("manager", admin.RoleAdmin))
	jane := env.createUser("Jane Traveller", "jane@voyage.test", true)
	dest := testutil.CreateDestination(t, env.destRepo, "Maasai Mara", "Kenya", true)
	pkg := testutil.CreatePackage(t, env.pkgRepo, dest, "Big Five Safari", 1200)
	testutil.CreateBooking(t, env.bkRepo, jane, pkg, 2)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "stats",
			method:   http.MethodGet,
			path:     "/api/v1/admin/dashboard/stats",
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "revenue",
			method:   http.MethodGet,
			path:     "/api/v1/admin/dashboard/revenue?days=7",
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "recent",
			method:   http.MethodGet,
			path:     "/api/v1/admin/dashboard/recent?limit=5",
			token:    token,
			wantCode: http.StatusOK,
		},
		{
			name:     "system",
			method:   http.MethodGet,
			path:     "/api/v1/admin/system/stats",
			token:    token,
			wantCode: http.StatusOK,
		},
	})
}
