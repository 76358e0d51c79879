package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
)

type academicApi struct {
	validate *validator.Validate
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, validate *validator.Validate) {
	api := academicApi{validate: validate}

	yg := g.Group("/academic-years", jwt)
	yg.GET("", api.options)
	yg.GET("/:year", api.retrieve)
}

// Handlers

func (api *academicApi) options(ctx echo.Context) error {
	var data YearOptionsRequest
	if err := data.Bind(ctx); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	years := academic.AcademicYearOptions(data.Before, data.After)
	opts := make([]string, 0, len(years))
	for _, y := range years {
		opts = append(opts, academic.FormatAcademicYear(y, data.Short))
	}

	return ctx.JSON(http.StatusOK, YearResponse{
		Current: academic.CurrentAcademicYear(academic.NowFunc()),
		Options: opts,
	})
}

func (api *academicApi) retrieve(ctx echo.Context) error {
	year, err := academic.Parse(ctx.Param("year"))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "year", Error: "must be an academic year like 2025-2026"})
	}

	from, to := year.Bounds()
	return ctx.JSON(http.StatusOK, YearDetailResponse{
		Year:     year,
		Previous: academic.PreviousAcademicYear(year),
		Next:     academic.NextAcademicYear(year),
		Short:    academic.FormatAcademicYear(year, true),
		Start:    core.NewDate(from),
		End:      core.NewDate(to.AddDate(0, 0, -1)),
	})
}
