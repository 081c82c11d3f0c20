package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/dashboard"
)

const liveWriteWait = 10 * time.Second

type dashboardApi struct {
	svc      *dashboard.Service
	logger   core.Logger
	interval time.Duration
	upgrader websocket.Upgrader
}

func registerDashboardAPI(
	g *echo.Group,
	jwt, liveJWT echo.MiddlewareFunc,
	svc *dashboard.Service,
	logger core.Logger,
	conf *core.Config,
) {
	frontend := strings.TrimSuffix(conf.FrontendBaseURL, "/")
	api := dashboardApi{
		svc:      svc,
		logger:   logger,
		interval: conf.Server.LiveRefreshInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == frontend || strings.HasSuffix(origin, "://"+r.Host)
			},
		},
	}
	if api.interval <= 0 {
		api.interval = 30 * time.Second
	}

	dg := g.Group("/dashboard")
	dg.GET("/overview", api.overview, jwt, teacherMiddleware)
	dg.GET("/students/:id", api.studentReport, jwt, teacherMiddleware)
	dg.GET("/trends", api.trends, jwt, teacherMiddleware)
	dg.GET("/live", api.live, liveJWT, teacherMiddleware)
}

func (api *dashboardApi) overview(ctx echo.Context) error {
	ov, err := api.svc.Overview(ctx.Request().Context(), teacherID(ctx))
	if err != nil {
		return errors.Wrap(err, "building overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *dashboardApi) studentReport(ctx echo.Context) error {
	rep, err := api.svc.StudentReport(ctx.Request().Context(), teacherID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building student report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *dashboardApi) trends(ctx echo.Context) error {
	weeks, err := queryInt(ctx, "weeks", dashboard.DefaultWeeks)
	if err != nil {
		return err
	}
	tr, err := api.svc.Trends(ctx.Request().Context(), teacherID(ctx), weeks)
	if err != nil {
		return errors.Wrap(err, "building trends")
	}
	return ctx.JSON(http.StatusOK, tr)
}

// live pushes a dashboard.Snapshot every interval until the client goes away.
func (api *dashboardApi) live(ctx echo.Context) error {
	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	defer func() { _ = conn.Close() }()

	tid := teacherID(ctx)
	watchCtx, cancel := context.WithCancel(ctx.Request().Context())
	defer cancel()

	// the client never talks: reading only notices when it leaves
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	err = api.svc.Watch(watchCtx, tid, api.interval, func(snap dashboard.Snapshot) error {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		return conn.WriteJSON(snap)
	})
	if err == nil || err == context.Canceled || watchCtx.Err() != nil ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return nil
	}
	api.logger.Warn(fmt.Sprintf("live dashboard closed: %v", err), err, core.Person{ID: tid})
	return nil
}
