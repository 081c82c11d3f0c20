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

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/classroom"
	"github.com/trezcool/quizdesk/core/dashboard"
	"github.com/trezcool/quizdesk/core/play"
)

type (
	// HealthCheck reports whether a backing service answers.
	HealthCheck func(ctx context.Context) error

	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		PlaySvc      *play.Service
		ClassroomSvc classroom.Service
		DashboardSvc *dashboard.Service
		HealthChecks map[string]HealthCheck // name -> check, e.g. "database", "redis"
		Validate     *validator.Validate
		Translator   ut.Translator
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
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/health", s.health)

	v1 := s.app.Group("/v1")
	jwtCfg := newJWTConfig(conf)
	jwt := middleware.JWTWithConfig(jwtCfg)

	registerQuizAPI(v1, s.deps.PlaySvc)
	optCfg := jwtCfg
	optCfg.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	registerSessionAPI(v1, middleware.JWTWithConfig(optCfg), s.deps.PlaySvc, s.deps.Validate)
	registerClassroomAPI(v1, jwt, s.deps.ClassroomSvc, s.deps.Validate)

	// browsers cannot set headers on websocket requests: the live socket reads the token from the query
	jwtCfg.TokenLookup = "query:token"
	registerDashboardAPI(v1, jwt, middleware.JWTWithConfig(jwtCfg), s.deps.DashboardSvc, s.deps.Logger, conf)
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
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

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

type healthResponse struct {
	Status   string            `json:"status"`
	Build    string            `json:"build"`
	Services map[string]string `json:"services"`
}

func (s *server) health(ctx echo.Context) error {
	res := healthResponse{Status: "ok", Build: s.deps.Conf.Build, Services: make(map[string]string, len(s.deps.HealthChecks))}
	code := http.StatusOK
	for name, check := range s.deps.HealthChecks {
		if err := check(ctx.Request().Context()); err != nil {
			res.Services[name] = err.Error()
			res.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		res.Services[name] = "ok"
	}
	return ctx.JSON(code, res)
}
