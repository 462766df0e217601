package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/activity"
	"github.com/vistavoyage/voyage/core/admin"
	"github.com/vistavoyage/voyage/core/blog"
	"github.com/vistavoyage/voyage/core/booking"
	"github.com/vistavoyage/voyage/core/dashboard"
	"github.com/vistavoyage/voyage/core/destination"
	"github.com/vistavoyage/voyage/core/offer"
	"github.com/vistavoyage/voyage/core/promo"
	"github.com/vistavoyage/voyage/core/tour"
	"github.com/vistavoyage/voyage/core/triptype"
	"github.com/vistavoyage/voyage/core/user"
	cachesvc "github.com/vistavoyage/voyage/services/cache"
	emailsvc "github.com/vistavoyage/voyage/services/email"
	logsvc "github.com/vistavoyage/voyage/services/logger"
	mediasvc "github.com/vistavoyage/voyage/services/media"
	sqlxrepos "github.com/vistavoyage/voyage/storage/database/sqlx"
	"github.com/vistavoyage/voyage/tests"
)

const testPassword = "Voyage#2024!"

// testEnv is a server backed by a fresh sqlite database.
type testEnv struct {
	t      *testing.T
	conf   *core.Config
	db     *sqlx.DB
	cache  *cachesvc.Cache
	server *server

	usrRepo   user.Repository
	admRepo   admin.Repository
	destRepo  destination.Repository
	ttRepo    triptype.Repository
	actRepo   activity.Repository
	offerRepo offer.Repository
	pkgRepo   tour.Repository
	promoRepo promo.Repository
	bkRepo    booking.Repository
	blogRepo  blog.Repository
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	validate, translator := testutil.NewValidator()
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("TEST "), conf)
	cache := cachesvc.New(conf.Cache.DefaultTTL, time.Hour)
	t.Cleanup(cache.Close)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	env := &testEnv{
		t:         t,
		conf:      conf,
		db:        db,
		cache:     cache,
		usrRepo:   sqlxrepos.NewUserRepository(db),
		admRepo:   sqlxrepos.NewAdminRepository(db),
		destRepo:  sqlxrepos.NewDestinationRepository(db),
		ttRepo:    sqlxrepos.NewTripTypeRepository(db),
		actRepo:   sqlxrepos.NewActivityRepository(db),
		offerRepo: sqlxrepos.NewOfferRepository(db),
		pkgRepo:   sqlxrepos.NewPackageRepository(db),
		promoRepo: sqlxrepos.NewPromoRepository(db),
		bkRepo:    sqlxrepos.NewBookingRepository(db),
		blogRepo:  sqlxrepos.NewBlogRepository(db),
	}

	usrSvc := user.NewService(env.usrRepo, cache, mailSvc, validate, conf)
	destSvc := destination.NewService(env.destRepo, cache, validate)
	ttSvc := triptype.NewService(env.ttRepo, cache, validate)
	actSvc := activity.NewService(env.actRepo, cache, validate)
	offerSvc := offer.NewService(env.offerRepo, cache, validate)
	pkgSvc := tour.NewService(db, env.pkgRepo, destSvc, ttSvc, offerSvc, actSvc, cache, validate)
	promoSvc := promo.NewService(env.promoRepo, validate)
	bkSvc := booking.NewService(db, env.bkRepo, pkgSvc, promoSvc, offerSvc, usrSvc, mailSvc, validate)
	blogSvc := blog.NewService(env.blogRepo, validate)
	dashSvc := dashboard.NewService(db, sqlxrepos.NewDashboardRepository(db), dashboard.Sources{
		Packages:   pkgSvc,
		Activities: actSvc,
		Offers:     offerSvc,
		PromoCodes: promoSvc,
		Bookings:   bkSvc,
		Blogs:      blogSvc,
	}, cache, conf)

	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DB:             db,
		Cache:          cache,
		UserSvc:        usrSvc,
		AdminSvc:       admin.NewService(env.admRepo, validate),
		DestinationSvc: destSvc,
		TripTypeSvc:    ttSvc,
		ActivitySvc:    actSvc,
		OfferSvc:       offerSvc,
		PackageSvc:     pkgSvc,
		PromoSvc:       promoSvc,
		BookingSvc:     bkSvc,
		BlogSvc:        blogSvc,
		DashboardSvc:   dashSvc,
		MediaSvc:       mediasvc.NewService(conf),
		DisableReqLogs: true,
	})
	env.server = srv.(*server)
	t.Cleanup(func() { _ = srv.Close() })
	return env
}

func (env *testEnv) createUser(name, email string, isActive bool) user.User {
	return testutil.CreateUser(env.t, env.usrRepo, name, email, testPassword, isActive)
}

func (env *testEnv) createAdmin(username, role string) admin.Admin {
	return testutil.CreateAdmin(env.t, env.admRepo, username, username+"@voyage.test", role, testPassword)
}

func (env *testEnv) userToken(usr user.User) string {
	env.t.Helper()
	tokens, err := env.server.users.Issue(usr.Principal(), "")
	require.NoError(env.t, err)
	return tokens.AccessToken
}

func (env *testEnv) adminToken(adm admin.Admin) string {
	env.t.Helper()
	tokens, err := env.server.admins.Issue(adm.Principal(), adm.Role)
	require.NoError(env.t, err)
	return tokens.AccessToken
}

// do serves the request and returns the recorder.
func (env *testEnv) do(method, path, token string, body ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, body...)
	env.server.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errBadToken     = httpErr{Error: "invalid or expired token"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
