package student

import (
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
)

type (
	Student struct {
		ID              string    `json:"id" db:"id"`
		AdmissionNumber string    `json:"admission_number" db:"admission_number"`
		Name            string    `json:"name" db:"name"`
		Email           string    `json:"email,omitempty" db:"email"`
		ClassName       string    `json:"class_name" db:"class_name"`
		Section         string    `json:"section,omitempty" db:"section"`
		GuardianName    string    `json:"guardian_name,omitempty" db:"guardian_name"`
		GuardianEmail   string    `json:"guardian_email,omitempty" db:"guardian_email"`
		IsActive        bool      `json:"is_active" db:"is_active"`
		AdmittedAt      time.Time `json:"admitted_at" db:"admitted_at"`
	}

	// QueryFilter is ANDed by the record sources.
	QueryFilter struct {
		// Search does a case-insensitive match on one of Student.Name, Student.AdmissionNumber or Student.Email.
		Search    string
		ClassName string
		IDs       []string
		// ActiveOnly skips students that left the school.
		ActiveOnly bool
		Ordering   []core.DBOrdering
	}

	// YearResolution explains how a student's current academic year was derived.
	YearResolution struct {
		StudentID    string                    `json:"student_id"`
		CalendarYear academic.Year             `json:"calendar_year"`
		Year         academic.Year             `json:"year"`
		Promoted     bool                      `json:"promoted"`
		Promotion    *academic.PromotionRecord `json:"promotion,omitempty"`
	}
)

// OrderingFields are the fields students can be sorted by.
var OrderingFields = map[string]bool{
	"name":             true,
	"admission_number": true,
	"class_name":       true,
	"admitted_at":      true,
}

func (s Student) HasGuardianEmail() bool {
	return s.GuardianEmail != ""
}
