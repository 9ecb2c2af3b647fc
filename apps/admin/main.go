package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/pulseed/pulseed/core"
	logsvc "github.com/pulseed/pulseed/services/logger"
	"github.com/pulseed/pulseed/storage/database"
	sqlxrepos "github.com/pulseed/pulseed/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(false)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := newCommandLine(db, sqlxrepos.NewTeacherRepository(sqlx.NewDb(db, conf.Database.Engine)), svcLogger)
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
