package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/play"
)

type quizApi struct {
	svc *play.Service
}

func registerQuizAPI(g *echo.Group, svc *play.Service) {
	api := quizApi{svc: svc}

	qg := g.Group("/quizzes")
	qg.GET("", api.query)
	qg.GET("/:id", api.retrieve)
}

func (api *quizApi) query(ctx echo.Context) error {
	filter := new(catalog.Filter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Summary{})
	}
	filter.Clean()

	entries := api.svc.Catalog().List(*filter)
	res := make([]catalog.Summary, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Summary())
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	entry, err := api.svc.Catalog().Get(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz bank")
	}
	return ctx.JSON(http.StatusOK, entry.Summary())
}
