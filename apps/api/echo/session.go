package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/play"
	"github.com/trezcool/quizdesk/core/quiz"
)

type (
	startSessionRequest struct {
		BankID string `json:"bank_id" validate:"required"`
	}

	// selectRequest picks an option by position or by its text.
	selectRequest struct {
		Option *int    `json:"option" validate:"required_without=Value,omitempty,gte=0"`
		Value  *string `json:"value" validate:"required_without=Option"`
	}
)

func (r *startSessionRequest) Validate(validate *validator.Validate) error {
	r.BankID = core.CleanString(r.BankID, true /* lower */)
	return validate.Struct(r)
}

func (r *selectRequest) Validate(validate *validator.Validate) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Option != nil && r.Value != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "option", Error: "send either option or value"})
	}
	return nil
}

func (r selectRequest) choice() quiz.Choice {
	if r.Option != nil {
		return quiz.OptionIndex(*r.Option)
	}
	return quiz.OptionValue(*r.Value)
}

type sessionApi struct {
	svc      *play.Service
	validate *validator.Validate
}

// optionalJWT lets the session routes be used anonymously; a token, when sent, must be valid.
func registerSessionAPI(g *echo.Group, optionalJWT echo.MiddlewareFunc, svc *play.Service, validate *validator.Validate) {
	api := sessionApi{svc: svc, validate: validate}

	sg := g.Group("/sessions")
	sg.POST("", api.start, optionalJWT)

	dg := sg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/select", api.selectOption)
	dg.POST("/submit", api.submit)
	dg.POST("/advance", api.advance)
	dg.POST("/reset", api.reset)
	dg.DELETE("", api.destroy)
}

func (api *sessionApi) start(ctx echo.Context) error {
	var data startSessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to startSessionRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Start(ctx.Request().Context(), data.BankID, sessionStudentID(ctx))
	if err != nil {
		return errors.Wrap(err, "starting quiz session")
	}
	return ctx.JSON(http.StatusCreated, v)
}

// sessionStudentID is the subject of a student token; other callers play anonymously and nothing is recorded.
func sessionStudentID(ctx echo.Context) string {
	claims, err := getContextClaims(ctx)
	if err != nil || !claims.IsStudent {
		return ""
	}
	return claims.Subject
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	v, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz session")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *sessionApi) selectOption(ctx echo.Context) error {
	var data selectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to selectRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Select(ctx.Request().Context(), ctx.Param("id"), data.choice())
	if err != nil {
		return errors.Wrap(err, "selecting option")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *sessionApi) submit(ctx echo.Context) error {
	v, err := api.svc.Submit(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "submitting answer")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *sessionApi) advance(ctx echo.Context) error {
	v, err := api.svc.Advance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "advancing quiz session")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *sessionApi) reset(ctx echo.Context) error {
	v, err := api.svc.Reset(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "resetting quiz session")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting quiz session")
	}
	return ctx.NoContent(http.StatusNoContent)
}
