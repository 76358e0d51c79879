// Package sqlxrepos reads the records backend's Postgres tables.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/student"
)

const (
	studentColumns   = `id, admission_number, name, email, class_name, section, guardian_name, guardian_email, is_active, admitted_at`
	promotionColumns = `id, student_id, academic_year, promotion_type, from_class, to_class, reverted, recorded_at`
)

type (
	studentRow struct {
		ID              string      `db:"id"`
		AdmissionNumber string      `db:"admission_number"`
		Name            string      `db:"name"`
		Email           null.String `db:"email"`
		ClassName       null.String `db:"class_name"`
		Section         null.String `db:"section"`
		GuardianName    null.String `db:"guardian_name"`
		GuardianEmail   null.String `db:"guardian_email"`
		IsActive        bool        `db:"is_active"`
		AdmittedAt      null.Time   `db:"admitted_at"`
	}

	promotionRow struct {
		ID            string      `db:"id"`
		StudentID     string      `db:"student_id"`
		AcademicYear  string      `db:"academic_year"`
		PromotionType string      `db:"promotion_type"`
		FromClass     null.String `db:"from_class"`
		ToClass       null.String `db:"to_class"`
		Reverted      bool        `db:"reverted"`
		RecordedAt    time.Time   `db:"recorded_at"`
	}

	studentRepository struct {
		db *sqlx.DB
	}
)

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:              r.ID,
		AdmissionNumber: r.AdmissionNumber,
		Name:            r.Name,
		Email:           r.Email.String,
		ClassName:       r.ClassName.String,
		Section:         r.Section.String,
		GuardianName:    r.GuardianName.String,
		GuardianEmail:   r.GuardianEmail.String,
		IsActive:        r.IsActive,
		AdmittedAt:      r.AdmittedAt.Time,
	}
}

func (r promotionRow) toRecord() academic.PromotionRecord {
	return academic.PromotionRecord{
		ID:            r.ID,
		StudentID:     r.StudentID,
		AcademicYear:  academic.Year(r.AcademicYear),
		PromotionType: academic.PromotionType(r.PromotionType),
		FromClass:     r.FromClass.String,
		ToClass:       r.ToClass.String,
		Reverted:      r.Reverted,
		RecordedAt:    r.RecordedAt,
	}
}

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

// isID reports whether id can be a primary key of the records backend (UUIDs).
func isID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if !isID(id) {
		return student.Student{}, student.ErrNotFound
	}

	var row studentRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "selecting student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, "(LOWER(name) LIKE ? OR LOWER(admission_number) LIKE ? OR LOWER(email) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if filter.ClassName != "" {
		conds = append(conds, "class_name = ?")
		args = append(args, filter.ClassName)
	}
	if filter.ActiveOnly {
		conds = append(conds, "is_active")
	}
	if filter.IDs != nil {
		ids := make([]string, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			if isID(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return []student.Student{}, nil
		}
		conds = append(conds, "id IN (?)")
		args = append(args, ids)
	}

	q := `SELECT ` + studentColumns + ` FROM students`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY ` + orderBy(filter.Ordering)

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "expanding student ids")
	}

	var rows []studentRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) GetPromotionHistory(ctx context.Context, studentID string) (academic.PromotionHistory, error) {
	if !isID(studentID) {
		return academic.PromotionHistory{}, nil
	}

	var rows []promotionRow
	err := repo.db.SelectContext(
		ctx, &rows,
		`SELECT `+promotionColumns+` FROM student_promotions WHERE student_id = $1 ORDER BY recorded_at, id`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting promotions")
	}
	history := make(academic.PromotionHistory, 0, len(rows))
	for _, r := range rows {
		history = append(history, r.toRecord())
	}
	return history, nil
}

// orderBy turns orderings into an ORDER BY clause, skipping unknown fields. Ties are broken by id.
func orderBy(orderings []core.DBOrdering) string {
	clauses := make([]string, 0, len(orderings)+1)
	for _, ord := range orderings {
		if student.OrderingFields[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		clauses = append(clauses, "name ASC")
	}
	return strings.Join(append(clauses, "id ASC"), ", ")
}
