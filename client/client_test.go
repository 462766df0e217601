package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/tour"
)

// fakeAPI mimics the token handling of the real server.
type fakeAPI struct {
	srv *httptest.Server

	refreshCalls  int32
	profileHits   int32
	packageHits   int32
	lockedHits    int32
	bookingGate   chan struct{}
	bookingIn     chan struct{}
	mu            sync.Mutex
	loginRequired []string
}

const (
	userAccess   = "user-access-2"
	userRefresh  = "user-refresh-1"
	adminAccess  = "admin-access"
	badTokenBody = `{"error": "invalid or expired jwt"}`
)

func bearer(ctx echo.Context) string {
	return strings.TrimPrefix(ctx.Request().Header.Get("Authorization"), "Bearer ")
}

func newFakeAPI(t *testing.T) *fakeAPI {
	api := &fakeAPI{bookingGate: make(chan struct{}), bookingIn: make(chan struct{}, 1)}
	e := echo.New()
	e.HideBanner = true

	unauthorized := func(ctx echo.Context) error {
		return ctx.JSONBlob(http.StatusUnauthorized, []byte(badTokenBody))
	}

	e.GET("/api/v1/health", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": "test"})
	})
	e.POST("/api/v1/auth/refresh", func(ctx echo.Context) error {
		atomic.AddInt32(&api.refreshCalls, 1)
		var req refreshRequest
		if err := ctx.Bind(&req); err != nil || req.RefreshToken != userRefresh {
			return unauthorized(ctx)
		}
		time.Sleep(20 * time.Millisecond) // let concurrent callers pile up
		return ctx.JSON(http.StatusOK, echo.Map{"access_token": userAccess, "refresh_token": "user-refresh-2", "token_type": "bearer"})
	})
	e.POST("/api/v1/auth/login", func(ctx echo.Context) error {
		return ctx.JSONBlob(http.StatusUnauthorized, []byte(`{"error": "invalid email or password"}`))
	})
	e.GET("/api/v1/auth/profile", func(ctx echo.Context) error {
		atomic.AddInt32(&api.profileHits, 1)
		if bearer(ctx) != userAccess {
			return unauthorized(ctx)
		}
		return ctx.JSON(http.StatusOK, echo.Map{"id": "u1", "email": "jane@voyage.test"})
	})
	e.GET("/api/v1/user/locked", func(ctx echo.Context) error {
		atomic.AddInt32(&api.lockedHits, 1)
		return unauthorized(ctx)
	})
	e.GET("/api/v1/user/packages", func(ctx echo.Context) error {
		atomic.AddInt32(&api.packageHits, 1)
		return ctx.JSON(http.StatusOK, echo.Map{"items": []echo.Map{{"id": "p1", "title": "Safari"}}, "total": 1, "page": 1, "limit": 12, "total_pages": 1})
	})
	e.POST("/api/v1/admin/packages", func(ctx echo.Context) error {
		if bearer(ctx) != adminAccess {
			return unauthorized(ctx)
		}
		return ctx.JSON(http.StatusCreated, echo.Map{"id": "p2", "title": "Gorillas"})
	})
	e.GET("/api/v1/admin/auth/me", func(ctx echo.Context) error {
		if bearer(ctx) != adminAccess {
			return unauthorized(ctx)
		}
		return ctx.JSON(http.StatusOK, echo.Map{"id": "a1", "username": "boss"})
	})
	e.POST("/api/v1/user/bookings", func(ctx echo.Context) error {
		api.bookingIn <- struct{}{}
		<-api.bookingGate
		return ctx.JSON(http.StatusCreated, echo.Map{"id": "b1", "status": "pending"})
	})
	e.GET("/api/v1/user/slow", func(ctx echo.Context) error {
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Request().Context().Done():
		}
		return ctx.NoContent(http.StatusOK)
	})
	e.GET("/api/v1/user/fields", func(ctx echo.Context) error {
		return ctx.JSONBlob(http.StatusBadRequest, []byte(`{"email": "email must be a valid email address", "password": "password is required"}`))
	})

	api.srv = httptest.NewServer(e)
	t.Cleanup(api.srv.Close)
	return api
}

func (api *fakeAPI) client(opts ...Option) *Client {
	hook := WithLoginRequired(func(scope Scope, msg string) {
		api.mu.Lock()
		defer api.mu.Unlock()
		api.loginRequired = append(api.loginRequired, string(scope)+": "+msg)
	})
	return New(api.srv.URL, append([]Option{hook}, opts...)...)
}

func TestScopeOf(t *testing.T) {
	tests := []struct {
		path string
		want Scope
	}{
		{"/api/v1/admin/packages", ScopeAdmin},
		{"/api/v1/admin/auth/login", ScopeAdmin},
		{"/api/v1/user/packages", ScopeUser},
		{"/api/v1/auth/profile", ScopeUser},
		{"/api/v1/administrators", ScopeUser},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScopeOf(tt.path), tt.path)
	}
}

func Test_splitPath(t *testing.T) {
	tests := []struct {
		path, area, collection string
	}{
		{"/api/v1/admin/packages/42/toggle-active", "/api/v1/admin", "packages"},
		{"/api/v1/user/my-blogs", "/api/v1/user", "my-blogs"},
		{"/api/v1/auth/profile", "/api/v1/auth", "profile"},
		{"/api/v1/health", "/api/v1/health", ""},
	}
	for _, tt := range tests {
		area, collection := splitPath(tt.path)
		assert.Equal(t, tt.area, area, tt.path)
		assert.Equal(t, tt.collection, collection, tt.path)
	}
}

func TestClient_refreshAndRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshed once", func(t *testing.T) {
		api := newFakeAPI(t)
		c := api.client()
		require.NoError(t, c.SetTokens(ScopeUser, Tokens{AccessToken: "expired", RefreshToken: userRefresh}))

		usr, err := c.Auth.Profile(ctx)
		require.NoError(t, err)
		assert.Equal(t, "jane@voyage.test", usr.Email)
		assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshCalls))
		assert.EqualValues(t, 2, atomic.LoadInt32(&api.profileHits))
		assert.Empty(t, api.loginRequired)

		tokens, err := c.tokens.Get(ScopeUser)
		require.NoError(t, err)
		assert.Equal(t, Tokens{AccessToken: userAccess, RefreshToken: "user-refresh-2"}, tokens)
	})

	t.Run("concurrent 401s share one refresh", func(t *testing.T) {
		api := newFakeAPI(t)
		c := api.client()
		require.NoError(t, c.SetTokens(ScopeUser, Tokens{AccessToken: "expired", RefreshToken: userRefresh}))

		var wg sync.WaitGroup
		errs := make([]error, 8)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = c.do(ctx, http.MethodGet, "/api/v1/auth/profile", nil, nil, nil)
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshCalls))
	})

	t.Run("refresh fails", func(t *testing.T) {
		api := newFakeAPI(t)
		c := api.client()
		require.NoError(t, c.SetTokens(ScopeUser, Tokens{AccessToken: "expired", RefreshToken: "revoked"}))

		_, err := c.Auth.Profile(ctx)
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusUnauthorized))
		assert.Equal(t, []string{"user: session expired"}, api.loginRequired)
		assert.False(t, c.IsAuthenticated(ScopeUser))
	})

	t.Run("no token", func(t *testing.T) {
		api := newFakeAPI(t)
		c := api.client()

		_, err := c.Auth.Profile(ctx)
		assert.True(t, IsStatus(err, http.StatusUnauthorized))
		assert.Equal(t, []string{"user: login required"}, api.loginRequired)
		assert.EqualValues(t, 0, atomic.LoadInt32(&api.refreshCalls))
	})

	t.Run("no second retry", func(t *testing.T) {
		api := newFakeAPI(t)
		c := api.client()
		require.NoError(t, c.SetTokens(ScopeUser, Tokens{AccessToken: "expired", RefreshToken: userRefresh}))

		err := c.do(ctx, http.MethodGet, "/api/v1/user/locked", nil, nil, nil)
		assert.True(t, IsStatus(err, http.StatusUnauthorized))
		assert.EqualValues(t, 2, atomic.LoadInt32(&api.lockedHits))
		assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshCalls))
	})

	t.Run("bad credentials do not refresh", func(t *testing.T) {
		api := newFakeAPI(t)
		c := api.client()
		require.NoError(t, c.SetTokens(ScopeUser, Tokens{AccessToken: "expired", RefreshToken: userRefresh}))

		_, err := c.Auth.Login(ctx, "jane@voyage.test", "nope")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "invalid email or password", apiErr.Message)
		assert.EqualValues(t, 0, atomic.LoadInt32(&api.refreshCalls))
		assert.Empty(t, api.loginRequired)
	})
}

func TestClient_scopes(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client()
	ctx := context.Background()
	require.NoError(t, c.SetTokens(ScopeUser, Tokens{AccessToken: userAccess}))

	// the customer token is never sent to admin routes
	_, err := c.AdminAuth.Me(ctx)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, []string{"admin: login required"}, api.loginRequired)

	require.NoError(t, c.SetTokens(ScopeAdmin, Tokens{AccessToken: adminAccess}))
	adm, err := c.AdminAuth.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "boss", adm.Username)

	usr, err := c.Auth.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", usr.ID)
}

func TestClient_cache(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client()
	ctx := context.Background()
	require.NoError(t, c.SetTokens(ScopeAdmin, Tokens{AccessToken: adminAccess}))

	for i := 0; i < 3; i++ {
		pkgs, err := c.Packages.List(ctx, nil)
		require.NoError(t, err)
		require.Len(t, pkgs.Items, 1)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.packageHits))

	_, err := c.Packages.List(ctx, &ListOptions{Page: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&api.packageHits), "other query, other entry")

	// an admin mutation clears the public collection too
	pkg, err := c.Admin.Packages.Create(ctx, tour.Input{Title: "Gorillas"})
	require.NoError(t, err)
	assert.Equal(t, "p2", pkg.ID)

	_, err = c.Packages.List(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&api.packageHits))

	// logging out drops the cached reads of the scope
	require.NoError(t, c.ClearTokens(ScopeUser))
	_, err = c.Packages.List(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, atomic.LoadInt32(&api.packageHits))
}

func TestClient_duplicateSubmit(t *testing.T) {
	api := newFakeAPI(t)
	c := api.client()
	ctx := context.Background()
	nb := booking.NewBooking{PackageID: "p1", Travelers: 2, TravelDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	done := make(chan error, 1)
	go func() {
		_, err := c.Bookings.Create(ctx, nb)
		done <- err
	}()
	<-api.bookingIn

	_, err := c.Bookings.Create(ctx, nb)
	assert.ErrorIs(t, err, ErrDuplicateSubmit)

	close(api.bookingGate)
	require.NoError(t, <-done)

	// released once answered
	go func() { <-api.bookingIn }()
	_, err = c.Bookings.Create(ctx, nb)
	assert.NoError(t, err)
}

func TestClient_errors(t *testing.T) {
	ctx := context.Background()

	t.Run("field errors", func(t *testing.T) {
		api := newFakeAPI(t)
		err := api.client().do(ctx, http.MethodGet, "/api/v1/user/fields", nil, nil, nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, "validation error", apiErr.Message)
		assert.Equal(t, map[string]string{
			"email":    "email must be a valid email address",
			"password": "password is required",
		}, apiErr.Errors)
	})

	t.Run("timeout", func(t *testing.T) {
		api := newFakeAPI(t)
		err := api.client(WithTimeout(50*time.Millisecond)).do(ctx, http.MethodGet, "/api/v1/user/slow", nil, nil, nil)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusRequestTimeout, apiErr.Status)
		assert.Equal(t, "request timeout", apiErr.Message)
	})

	t.Run("transport", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(url).Health.Check(ctx)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, StatusTransport, apiErr.Status)
		assert.Error(t, apiErr.Unwrap())
	})
}

func Test_parseError(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantErrors map[string]string
	}{
		{"error key", http.StatusNotFound, `{"error": "package not found"}`, "package not found", nil},
		{"detail key", http.StatusForbidden, `{"detail": "not allowed"}`, "not allowed", nil},
		{"field list", http.StatusBadRequest, `{"tags": ["too many", "too long"]}`, "validation error", map[string]string{"tags": "too many, too long"}},
		{"plain text", http.StatusBadGateway, `upstream down`, "upstream down", nil},
		{"empty", http.StatusInternalServerError, ``, "Internal Server Error", nil},
		{"map on server error", http.StatusServiceUnavailable, `{"status": "unavailable"}`, "Service Unavailable", map[string]string{"status": "unavailable"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.status, err.Status)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, tt.wantErrors, err.Errors)
		})
	}
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voyage", "tokens.json")
	store := NewFileTokenStore(path)

	tokens, err := store.Get(ScopeUser)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	require.NoError(t, store.Set(ScopeUser, Tokens{AccessToken: "ua", RefreshToken: "ur"}))
	require.NoError(t, store.Set(ScopeAdmin, Tokens{AccessToken: "aa", RefreshToken: "ar"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// a fresh store reads what the first one wrote
	other := NewFileTokenStore(path)
	tokens, err = other.Get(ScopeAdmin)
	require.NoError(t, err)
	assert.Equal(t, Tokens{AccessToken: "aa", RefreshToken: "ar"}, tokens)

	require.NoError(t, other.Clear(ScopeAdmin))
	tokens, err = store.Get(ScopeAdmin)
	require.NoError(t, err)
	assert.Empty(t, tokens)
	tokens, err = store.Get(ScopeUser)
	require.NoError(t, err)
	assert.Equal(t, "ua", tokens.AccessToken)

	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	_, err = store.Get(ScopeUser)
	assert.Error(t, err)
}
