package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

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
	mediasvc "github.com/vistavoyage/voyage/services/media"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DB             core.DB
		Cache          core.Cache
		UserSvc        *user.Service
		AdminSvc       *admin.Service
		DestinationSvc *destination.Service
		TripTypeSvc    *triptype.Service
		ActivitySvc    *activity.Service
		OfferSvc       *offer.Service
		PackageSvc     *tour.Service
		PromoSvc       *promo.Service
		BookingSvc     *booking.Service
		BlogSvc        *blog.Service
		DashboardSvc   *dashboard.Service
		MediaSvc       *mediasvc.Service
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		users    *tokenIssuer
		admins   *tokenIssuer
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	auth := deps.Conf.Auth
	s.users = newTokenIssuer(ScopeUser, auth.SecretKey, auth.AccessTokenTTL, auth.RefreshTokenTTL, deps.Cache)
	s.admins = newTokenIssuer(ScopeAdmin, auth.AdminSecretKey, auth.AdminAccessTokenTTL, auth.AdminRefreshTokenTTL, deps.Cache)

	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: conf.Server.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if conf.Server.BodyLimit != "" {
		s.app.Use(middleware.BodyLimit(conf.Server.BodyLimit))
	}

	s.app.HTTPErrorHandler = s.newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.Static("/media", s.deps.MediaSvc.Dir())

	v1 := s.app.Group("/api/v1")
	v1.GET("/health", s.health)

	s.registerAccountAPI(v1.Group("/auth"))
	s.registerCatalogAPI(v1.Group("/user"))
	s.registerBookingAPI(v1.Group("/user/bookings", s.users.middleware()...))
	s.registerBlogAPI(v1.Group("/user"))

	s.registerAdminAuthAPI(v1.Group("/admin/auth"))
	ag := v1.Group("/admin", s.admins.middleware()...)
	s.registerDashboardAPI(ag)
	s.registerAdminCatalogAPI(ag)
	s.registerAdminBookingAPI(ag)
	s.registerAdminBlogAPI(ag)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to VistaVoyage API!")
}

func (s *server) health(ctx echo.Context) error {
	status := "ok"
	code := http.StatusOK
	if err := s.deps.DB.PingContext(ctx.Request().Context()); err != nil {
		s.deps.Logger.Error("health: database ping failed", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, echo.Map{"status": status, "build": s.deps.Conf.Build})
}
