package main

import (
	"log"
	"os"

	"github.com/elimusoft/elimu/core"
	logsvc "github.com/elimusoft/elimu/services/logger"
	"github.com/elimusoft/elimu/storage/database"
	sqlxrepos "github.com/elimusoft/elimu/storage/database/sqlx"
)

var logger core.Logger

func main() {
	defer os.Exit(0)

	logger = logsvc.NewStdLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile))

	conf, err := core.NewConfig()
	errAndDie(err)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
