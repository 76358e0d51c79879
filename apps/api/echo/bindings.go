package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
)

var (
	orderingParam = "ordering"

	defaultYearsBefore = 2
	defaultYearsAfter  = 1
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryInt parses an integer query param, returning def when it is absent.
func queryInt(ctx echo.Context, name string, def int) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be a whole number"})
	}
	return n, nil
}

// queryBool parses a boolean query param, returning false when it is absent.
func queryBool(ctx echo.Context, name string) (bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be true or false"})
	}
	return b, nil
}

type YearOptionsRequest struct {
	Before int  `query:"before" validate:"min=0,max=50"`
	After  int  `query:"after" validate:"min=0,max=50"`
	Short  bool `query:"short"`
}

func (r *YearOptionsRequest) Bind(ctx echo.Context) (err error) {
	if r.Before, err = queryInt(ctx, "before", defaultYearsBefore); err != nil {
		return err
	}
	if r.After, err = queryInt(ctx, "after", defaultYearsAfter); err != nil {
		return err
	}
	r.Short, err = queryBool(ctx, "short")
	return err
}

func (r YearOptionsRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

// FeeQueryRequest selects the academic year and the date fees are evaluated on.
// Year and AsOf are optional in query strings; the JSON form is used by POST bodies.
type FeeQueryRequest struct {
	Year string `json:"year" query:"year" validate:"omitempty,academicyear"`
	AsOf string `json:"as_of" query:"as_of" validate:"omitempty,notblank"`

	year academic.Year
	asOf time.Time
}

func (r *FeeQueryRequest) BindQuery(ctx echo.Context) {
	r.Year = ctx.QueryParam("year")
	r.AsOf = ctx.QueryParam("as_of")
}

func (r *FeeQueryRequest) Validate(validate *validator.Validate) error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	r.asOf = academic.NowFunc()
	if r.AsOf != "" {
		t, err := core.ParseDate(r.AsOf)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "as_of", Error: "must be a date like 2025-01-31"})
		}
		r.asOf = t
	}
	r.year = academic.CurrentAcademicYear(r.asOf)
	if r.Year != "" {
		y, err := academic.Parse(r.Year)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "year", Error: "year must be an academic year like 2025-2026"})
		}
		r.year = y
	}
	return nil
}

// AcademicYear returns the requested year, or the calendar year containing AsOf.
// It must be called after Validate.
func (r FeeQueryRequest) AcademicYear() academic.Year {
	return r.year
}

// Date returns the evaluation date. It must be called after Validate.
func (r FeeQueryRequest) Date() time.Time {
	return r.asOf
}

type (
	YearResponse struct {
		Current academic.Year `json:"current"`
		Options []string      `json:"options"`
	}

	YearDetailResponse struct {
		Year     academic.Year `json:"year"`
		Previous academic.Year `json:"previous"`
		Next     academic.Year `json:"next"`
		Short    string        `json:"short"`
		Start    core.Date     `json:"start"`
		End      core.Date     `json:"end"`
	}

	RemindersResponse struct {
		Sent int `json:"sent"`
	}
)
