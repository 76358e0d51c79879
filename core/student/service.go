// Package student reads students and resolves the academic year they are in.
package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
)

var (
	// errors
	ErrNotFound        = errors.New("student not found")
	ErrInvalidOrdering = errors.New("invalid ordering field")
)

type (
	Repository interface {
		// GetStudent returns ErrNotFound when no student has the id.
		GetStudent(ctx context.Context, id string) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		// GetPromotionHistory returns the promotion ledger of a student in insertion order, reverted records included.
		GetPromotionHistory(ctx context.Context, studentID string) (academic.PromotionHistory, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Student, error) {
	for _, ord := range filter.Ordering {
		if !OrderingFields[ord.Field] {
			return nil, core.NewValidationError(
				ErrInvalidOrdering,
				core.FieldError{Field: "ordering", Error: "cannot order by " + ord.Field},
			)
		}
	}
	filter.Search = core.CleanString(filter.Search, true /* lower */)
	filter.ClassName = core.CleanString(filter.ClassName)
	return svc.repo.QueryStudents(ctx, filter)
}

// CurrentYear resolves the academic year the student is in at `now`, taking promotions into account.
func (svc *Service) CurrentYear(ctx context.Context, id string, now time.Time) (YearResolution, error) {
	std, err := svc.Get(ctx, id)
	if err != nil {
		return YearResolution{}, err
	}

	history, err := svc.repo.GetPromotionHistory(ctx, std.ID)
	if err != nil {
		return YearResolution{}, errors.Wrap(err, "loading promotion history")
	}

	calendarYear := academic.CurrentAcademicYear(now)
	res := YearResolution{
		StudentID:    std.ID,
		CalendarYear: calendarYear,
		Year:         academic.ResolveStudentYear(history, calendarYear),
	}
	if promo, ok := history.ActivePromotion(calendarYear); ok {
		res.Promoted = true
		res.Promotion = &promo
	}
	return res, nil
}

// PromotionHistory returns the student's full promotion ledger.
func (svc *Service) PromotionHistory(ctx context.Context, id string) (academic.PromotionHistory, error) {
	std, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := svc.repo.GetPromotionHistory(ctx, std.ID)
	return history, errors.Wrap(err, "loading promotion history")
}
