package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/quizdesk/core"
	"github.com/trezcool/quizdesk/core/catalog"
	"github.com/trezcool/quizdesk/core/classroom"
)

type classroomApi struct {
	svc      classroom.Service
	validate *validator.Validate
}

func registerClassroomAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc classroom.Service, validate *validator.Validate) {
	api := classroomApi{svc: svc, validate: validate}

	stg := g.Group("/students", jwt)
	stg.GET("", api.queryStudents, teacherMiddleware)
	stg.POST("", api.createStudent, adminMiddleware())

	ag := g.Group("/assignments", jwt, teacherMiddleware)
	ag.GET("", api.queryAssignments)
	ag.POST("", api.createAssignment)
	ag.POST("/by-class", api.createClassAssignment)
	ag.DELETE("", api.destroyAssignments)
	ag.GET("/:id", api.retrieveAssignment)
	ag.PUT("/:id", api.updateAssignment)
	ag.DELETE("/:id", api.destroyAssignment)

	sg := g.Group("/submissions", jwt)
	sg.GET("", api.querySubmissions, teacherMiddleware)
	sg.PUT("/:id/grade", api.grade, teacherMiddleware)
	sg.POST("/:id/submit", api.submit, studentMiddleware)
}

// Students

func (api *classroomApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.Students(ctx.Request().Context(), teacherID(ctx))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classroomApi) createStudent(ctx echo.Context) error {
	var data classroom.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	stu, err := api.svc.AddStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding student")
	}
	return ctx.JSON(http.StatusCreated, stu)
}

// Assignments

func (api *classroomApi) queryAssignments(ctx echo.Context) error {
	filter := classroom.AssignmentFilter{
		Search:    ctx.QueryParam("search"),
		Subject:   catalog.Subject(ctx.QueryParam("subject")),
		ClassName: ctx.QueryParam("class_name"),
	}
	var err error
	if filter.DueFrom, err = queryTime(ctx, "due_from"); err != nil {
		return err
	}
	if filter.DueTo, err = queryTime(ctx, "due_to"); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	assignments, err := api.svc.Assignments(ctx.Request().Context(), teacherID(ctx), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *classroomApi) createAssignment(ctx echo.Context) error {
	var data classroom.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.CreateAssignment(ctx.Request().Context(), teacherID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *classroomApi) createClassAssignment(ctx echo.Context) error {
	var data classroom.NewClassAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.CreateClassAssignment(ctx.Request().Context(), teacherID(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating class assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *classroomApi) retrieveAssignment(ctx echo.Context) error {
	a, err := api.svc.GetAssignment(ctx.Request().Context(), teacherID(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *classroomApi) updateAssignment(ctx echo.Context) error {
	var data classroom.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.UpdateAssignment(ctx.Request().Context(), teacherID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *classroomApi) destroyAssignment(ctx echo.Context) error {
	if err := api.svc.DeleteAssignments(ctx.Request().Context(), teacherID(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) destroyAssignments(ctx echo.Context) error {
	ids := queryList(ctx, "id")
	if len(ids) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "id", Error: "this field is required"})
	}
	if err := api.svc.DeleteAssignments(ctx.Request().Context(), teacherID(ctx), ids...); err != nil {
		return errors.Wrap(err, "deleting assignments")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Submissions

func (api *classroomApi) querySubmissions(ctx echo.Context) error {
	filter := new(classroom.SubmissionFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []classroom.Submission{})
	}
	filter.Clean()

	subs, err := api.svc.Submissions(ctx.Request().Context(), teacherID(ctx), *filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *classroomApi) grade(ctx echo.Context) error {
	var data classroom.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), teacherID(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *classroomApi) submit(ctx echo.Context) error {
	var data classroom.SubmitWork
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitWork")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sub, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting work")
	}
	return ctx.JSON(http.StatusOK, sub)
}
