package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/trezcool/nutridash/core"
	"github.com/trezcool/nutridash/core/calendar"
	"github.com/trezcool/nutridash/core/dashboard"
	"github.com/trezcool/nutridash/core/timeframe"
	emailsvc "github.com/trezcool/nutridash/services/email"
	logsvc "github.com/trezcool/nutridash/services/logger"
	"github.com/trezcool/nutridash/storage/database"
	dummydb "github.com/trezcool/nutridash/storage/database/dummy"
	sqlxrepos "github.com/trezcool/nutridash/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)

	cal, err := calendar.New(conf.Calendar.Holidays)
	errAndDie(err)

	// set up DB
	var (
		db    *sql.DB
		store dashboard.Store
	)
	switch conf.Database.Engine {
	case "memory":
		mem, err := dummydb.Open()
		errAndDie(err)
		store = dummydb.NewDashboardRepository(mem)
	default:
		xdb, err := database.Open(context.Background(), conf)
		errAndDie(err)
		defer xdb.Close()
		db = xdb.DB
		store = sqlxrepos.NewDashboardRepository(xdb, conf.Calendar.Location())
	}

	resolver := timeframe.NewResolver(cal, conf.Calendar.EpochYear)
	mailer := emailsvc.NewConsoleService(conf, appLogger)
	if !conf.Debug {
		mailer = emailsvc.NewSendgridService(conf, appLogger)
	}

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db,
		cal:      cal,
		resolver: resolver,
		store:    store,
		dashSvc:  dashboard.NewService(store, resolver, appLogger, conf),
		mailer:   mailer,
		out:      os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
