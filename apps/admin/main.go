package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/vistavoyage/voyage/apps/shared"
	"github.com/vistavoyage/voyage/assets"
	"github.com/vistavoyage/voyage/core"
	"github.com/vistavoyage/voyage/core/user"
	emailsvc "github.com/vistavoyage/voyage/services/email"
	logsvc "github.com/vistavoyage/voyage/services/logger"
	"github.com/vistavoyage/voyage/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("ADMIN : "), conf)
	logger.Enable(!conf.Debug)

	db, err := openDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	user.LoadCommonPasswords(assets.FS, assets.CommonPasswordsFile, logger)
	svc := shared.NewServices(db, conf, emailsvc.NewService(conf, logger, logsvc.NewStdLogger("EMAIL : ")))

	cli := newCommandLine(db, svc, os.Stdout)
	err = cli.run(os.Args)

	svc.Cache.Close()
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func openDB(conf *core.Config) (*sqlx.DB, error) {
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
		return nil, err
	}
	return db, nil
}
