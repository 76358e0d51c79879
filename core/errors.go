package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/academic"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// OrphanRecordError is returned when a record points at a student the records backend does not know.
// The backend is out of sync and the API shuts down rather than serve partial fee data.
type OrphanRecordError struct {
	Record       string
	StudentID    string
	AcademicYear academic.Year
}

func NewOrphanRecordError(record, studentID string, year academic.Year) error {
	return &OrphanRecordError{Record: record, StudentID: studentID, AcademicYear: year}
}

func (e OrphanRecordError) Error() string {
	return fmt.Sprintf("%s of %s references unknown student %q", e.Record, e.AcademicYear, e.StudentID)
}

// IsShutdown reports whether err leaves the records backend in a state the services cannot work with.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*OrphanRecordError)
	return ok
}
