package main

import (
	"log"
	"os"

	"github.com/trezcool/enrollment/core"
	"github.com/trezcool/enrollment/core/seed"
	"github.com/trezcool/enrollment/storage/database"
	sqlxrepos "github.com/trezcool/enrollment/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	// start CLI
	tx := database.NewTransactor(db)
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:      db.DB,
		tx:      tx,
		usrRepo: usrRepo,
		seeder:  seed.NewSeeder(tx, usrRepo, sqlxrepos.NewCourseRepository(db), sqlxrepos.NewEnrollmentRepository(db)),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
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
