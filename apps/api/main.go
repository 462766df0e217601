package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/vistavoyage/voyage/apps/api/echo"
	"github.com/vistavoyage/voyage/apps/shared"
	"github.com/vistavoyage/voyage/assets"
	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/user"
	emailsvc "github.com/vistavoyage/voyage/services/email"
	logsvc "github.com/vistavoyage/voyage/services/logger"
	mediasvc "github.com/vistavoyage/voyage/services/media"
	"github.com/vistavoyage/voyage/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("API : "), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("DB : "), conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if err = core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf, logger); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	user.LoadCommonPasswords(assets.FS, assets.CommonPasswordsFile, logger)

	mailSvc := emailsvc.NewService(conf, logger, logsvc.NewStdLogger("EMAIL : "))
	svc := shared.NewServices(db, conf, mailSvc)
	cache := svc.Cache
	defer cache.Close()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("cache_entries", expvar.Func(func() interface{} { return cache.Len() }))

	if conf.Server.DebugAddress != "" {
		go func() {
			if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       svc.Validate,
		Translator:     svc.Translator,
		DB:             db,
		Cache:          cache,
		UserSvc:        svc.User,
		AdminSvc:       svc.Admin,
		DestinationSvc: svc.Destination,
		TripTypeSvc:    svc.TripType,
		ActivitySvc:    svc.Activity,
		OfferSvc:       svc.Offer,
		PackageSvc:     svc.Package,
		PromoSvc:       svc.Promo,
		BookingSvc:     svc.Booking,
		BlogSvc:        svc.Blog,
		DashboardSvc:   svc.Dashboard,
		MediaSvc:       mediasvc.NewService(conf),
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				os.Exit(1)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	if err = database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
