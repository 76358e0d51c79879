package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/student"
)

type studentRepository struct {
	students   *studentTable
	promotions *promotionTable
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{students: db.student, promotions: db.promotion}
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	if std, ok := repo.students.table[id]; ok {
		return std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	var ids map[string]bool
	if filter.IDs != nil {
		ids = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}

	students := make([]student.Student, 0, len(repo.students.table))
	for _, std := range repo.students.table {
		if ids != nil && !ids[std.ID] {
			continue
		}
		if filter.ClassName != "" && std.ClassName != filter.ClassName {
			continue
		}
		if filter.ActiveOnly && !std.IsActive {
			continue
		}
		if filter.Search != "" && !matches(std, filter.Search) {
			continue
		}
		students = append(students, std)
	}

	sortStudents(students, filter.Ordering)
	return students, nil
}

func (repo *studentRepository) GetPromotionHistory(_ context.Context, studentID string) (academic.PromotionHistory, error) {
	repo.promotions.RLock()
	defer repo.promotions.RUnlock()

	history := make(academic.PromotionHistory, 0)
	for _, r := range repo.promotions.rows {
		if r.StudentID == studentID {
			history = append(history, r)
		}
	}
	return history, nil
}

// matches does a case-insensitive match of search, already lowered, on name, admission number or email.
func matches(std student.Student, search string) bool {
	for _, v := range []string{std.Name, std.AdmissionNumber, std.Email} {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}

func sortStudents(students []student.Student, orderings []core.DBOrdering) {
	ords := make([]core.DBOrdering, 0, len(orderings)+2)
	ords = append(ords, orderings...)
	if len(ords) == 0 {
		ords = append(ords, core.DBOrdering{Field: "name", Ascending: true})
	}
	ords = append(ords, core.DBOrdering{Field: "id", Ascending: true})

	sort.SliceStable(students, func(i, j int) bool {
		for _, ord := range ords {
			c := compareField(students[i], students[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareField(a, b student.Student, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "admission_number":
		return strings.Compare(a.AdmissionNumber, b.AdmissionNumber)
	case "class_name":
		return strings.Compare(a.ClassName, b.ClassName)
	case "admitted_at":
		switch {
		case a.AdmittedAt.Before(b.AdmittedAt):
			return -1
		case a.AdmittedAt.After(b.AdmittedAt):
			return 1
		}
		return 0
	case "id":
		return strings.Compare(a.ID, b.ID)
	}
	return 0
}
