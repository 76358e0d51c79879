package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/fee"
)

type feeRepository struct {
	structures *feeStructureTable
	payments   *paymentTable
}

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{structures: db.feeStructure, payments: db.payment}
}

func (repo *feeRepository) GetFeeStructure(_ context.Context, studentID string, year academic.Year) (fee.FeeStructure, error) {
	repo.structures.RLock()
	defer repo.structures.RUnlock()

	for _, fs := range repo.structures.rows {
		if fs.StudentID == studentID && fs.AcademicYear == year {
			return fs, nil
		}
	}
	return fee.FeeStructure{}, fee.ErrNotFound
}

func (repo *feeRepository) QueryFeeStructures(_ context.Context, year academic.Year) ([]fee.FeeStructure, error) {
	repo.structures.RLock()
	defer repo.structures.RUnlock()

	structures := make([]fee.FeeStructure, 0)
	for _, fs := range repo.structures.rows {
		if fs.AcademicYear == year {
			structures = append(structures, fs)
		}
	}
	sort.SliceStable(structures, func(i, j int) bool { return structures[i].StudentID < structures[j].StudentID })
	return structures, nil
}

func (repo *feeRepository) ListPayments(_ context.Context, studentID string, year academic.Year) ([]fee.Payment, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	payments := make([]fee.Payment, 0)
	for _, p := range repo.payments.rows {
		if p.StudentID == studentID && p.AcademicYear == year {
			payments = append(payments, p)
		}
	}
	return payments, nil
}
