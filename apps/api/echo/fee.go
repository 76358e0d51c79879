package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
)

type feeApi struct {
	svc        *fee.Service
	studentSvc *student.Service
	validate   *validator.Validate
}

func registerFeeAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *fee.Service,
	studentSvc *student.Service,
	validate *validator.Validate,
) {
	api := feeApi{
		svc:        svc,
		studentSvc: studentSvc,
		validate:   validate,
	}

	g.GET("/students/:id/fees", api.studentStatus, jwt, studentAccessMiddleware(false))

	fg := g.Group("/fees", jwt)
	fg.GET("/defaulters", api.defaulters, adminMiddleware())
	fg.GET("/summary", api.summary, adminMiddleware())
	fg.POST("/reminders", api.remind, adminMiddleware(core.FeeManagerRoles...))
}

func (api *feeApi) bindQuery(ctx echo.Context) (FeeQueryRequest, error) {
	var data FeeQueryRequest
	data.BindQuery(ctx)
	if err := data.Validate(api.validate); err != nil {
		return data, err
	}
	return data, nil
}

// Handlers

// studentStatus defaults to the academic year the student is in, promotions included.
func (api *feeApi) studentStatus(ctx echo.Context) error {
	data, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}

	year := data.AcademicYear()
	if data.Year == "" {
		res, err := api.studentSvc.CurrentYear(ctx.Request().Context(), ctx.Param("id"), data.Date())
		if err != nil {
			return errors.Wrap(err, "resolving student academic year")
		}
		year = res.Year
	}

	status, err := api.svc.StudentStatus(ctx.Request().Context(), ctx.Param("id"), year, data.Date())
	if err != nil {
		return errors.Wrap(err, "getting fee status")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *feeApi) defaulters(ctx echo.Context) error {
	data, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}

	defaulters, err := api.svc.Defaulters(ctx.Request().Context(), data.AcademicYear(), data.Date())
	if err != nil {
		return errors.Wrap(err, "listing defaulters")
	}
	return ctx.JSON(http.StatusOK, defaulters)
}

func (api *feeApi) summary(ctx echo.Context) error {
	data, err := api.bindQuery(ctx)
	if err != nil {
		return err
	}

	sum, err := api.svc.Summary(ctx.Request().Context(), data.AcademicYear(), data.Date())
	if err != nil {
		return errors.Wrap(err, "summarizing fees")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *feeApi) remind(ctx echo.Context) error {
	var data FeeQueryRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeeQueryRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sent, err := api.svc.RemindDefaulters(ctx.Request().Context(), data.AcademicYear(), data.Date())
	if err != nil {
		return errors.Wrap(err, "reminding defaulters")
	}
	return ctx.JSON(http.StatusOK, RemindersResponse{Sent: sent})
}
