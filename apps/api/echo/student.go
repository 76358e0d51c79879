package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/student"
)

type studentApi struct {
	svc *student.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *student.Service) {
	api := studentApi{svc: svc}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, staffMiddleware())

	// detail endpoints
	dg := sg.Group("/:id")
	dg.GET("", api.retrieve, studentAccessMiddleware(true))
	dg.GET("/academic-year", api.academicYear, studentAccessMiddleware(true))
	dg.GET("/promotions", api.promotions, studentAccessMiddleware(true))
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	filter := student.QueryFilter{
		Search:    ctx.QueryParam("search"),
		ClassName: ctx.QueryParam("class"),
		Ordering:  ord.Orderings,
	}
	if active := ctx.QueryParam("active"); active != "" {
		b, err := strconv.ParseBool(active)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "active", Error: "must be true or false"})
		}
		filter.ActiveOnly = b
	}

	students, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) academicYear(ctx echo.Context) error {
	now := academic.NowFunc()
	if date := ctx.QueryParam("date"); date != "" {
		t, err := core.ParseDate(date)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "date", Error: "must be a date like 2025-01-31"})
		}
		now = t
	}

	res, err := api.svc.CurrentYear(ctx.Request().Context(), ctx.Param("id"), now)
	if err != nil {
		return errors.Wrap(err, "resolving student academic year")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) promotions(ctx echo.Context) error {
	history, err := api.svc.PromotionHistory(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting promotion history")
	}
	if history == nil {
		history = academic.PromotionHistory{}
	}
	return ctx.JSON(http.StatusOK, history)
}
