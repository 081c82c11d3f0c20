package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
	"github.com/trezcool/quizdesk/fs"
	"github.com/trezcool/quizdesk/services/email"
	"github.com/trezcool/quizdesk/services/logger"
	"github.com/trezcool/quizdesk/storage/database"
	"github.com/trezcool/quizdesk/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)

	cat, err := catalog.Load(appfs.FS, appfs.BanksDir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading quiz banks: %v", err), err)
	}

	cli := commandLine{
		conf:     conf,
		out:      os.Stdout,
		catalog:  cat,
		validate: validate,
	}

	// set up DB
	if needsDB(os.Args) {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func() { _ = db.Close() }()

		var mailSvc core.EmailService
		if conf.Debug {
			mailSvc = emailsvc.NewConsoleService(conf, logger)
		} else {
			mailSvc = emailsvc.NewSendgridService(conf, logger)
		}
		cli.db = db.DB
		cli.classroomSvc = classroom.NewService(sqlxrepos.NewClassroomRepository(db), mailSvc, logger)
	}

	// start CLI
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			if vErr, ok := core.TranslateErrors(err, translator).(*core.ValidationError); ok && vErr.Fields != nil {
				for field, msg := range vErr.FieldMap() {
					logger.Info(fmt.Sprintf("%s: %s", field, msg))
				}
			} else {
				logger.Error(fmt.Sprintf("error: %v", err), err)
			}
		}
		os.Exit(1)
	}
}
