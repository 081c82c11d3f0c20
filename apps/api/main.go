package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/quizdesk/apps/api/echo"
	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
	"github.com/trezcool/quizdesk/core/dashboard"
	"github.com/trezcool/quizdesk/core/play"
	"github.com/trezcool/quizdesk/fs"
	"github.com/trezcool/quizdesk/services/email"
	"github.com/trezcool/quizdesk/services/logger"
	"github.com/trezcool/quizdesk/services/sessionstore"
	"github.com/trezcool/quizdesk/storage/database"
	"github.com/trezcool/quizdesk/storage/database/inmem"
	sqlxrepos "github.com/trezcool/quizdesk/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	healthChecks := make(map[string]echoapi.HealthCheck)

	// set up DB
	var repo classroom.Repository
	if conf.Database.Engine == "inmem" {
		memDB, err := inmemdb.Open()
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening in-memory database: %v", err), err)
		}
		repo = inmemdb.NewClassroomRepository(memDB)
		logger.Warn("Using the in-memory database: classroom data is lost on restart")
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Fatal("Failed to close", err)
			}
		}()
		repo = sqlxrepos.NewClassroomRepository(db)
		healthChecks["database"] = db.PingContext
	}

	// set up the session store
	var store play.SessionStore
	if conf.Redis.Disabled {
		store = sessionstore.NewMemoryStore(conf.Redis.SessionTTL)
	} else {
		redisStore := sessionstore.NewRedisStore(sessionstore.NewRedisClient(conf), conf.Redis.SessionTTL)
		defer func() {
			if err := redisStore.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing redis: %v", err), err)
			}
		}()
		store = redisStore
		healthChecks["sessions"] = redisStore.Ping
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	cat, err := catalog.Load(appfs.FS, appfs.BanksDir)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading quiz banks: %v", err), err)
	}
	classroomSvc := classroom.NewService(repo, mailSvc, logger)
	playSvc := play.NewService(cat, store, classroomSvc, logger)
	dashboardSvc := dashboard.NewService(repo, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)
	logger.Info(fmt.Sprintf("Loaded %d quiz banks", cat.Len()))

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewInt("banks").Set(int64(cat.Len()))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			PlaySvc:      playSvc,
			ClassroomSvc: classroomSvc,
			DashboardSvc: dashboardSvc,
			HealthChecks: healthChecks,
			Validate:     validate,
			Translator:   translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
