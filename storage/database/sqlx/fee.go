package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/fee"
)

const (
	feeStructureColumns = `id, student_id, academic_year, total_fee, discount, discount_percentage, due_date, late_fee_per_day`
	paymentColumns      = `id, student_id, academic_year, amount_paid, late_fee, paid_at, status, payment_method, receipt_url`
)

type (
	feeStructureRow struct {
		ID                 string       `db:"id"`
		StudentID          string       `db:"student_id"`
		AcademicYear       string       `db:"academic_year"`
		TotalFee           float64      `db:"total_fee"`
		Discount           null.Float64 `db:"discount"`
		DiscountPercentage null.Float64 `db:"discount_percentage"`
		DueDate            null.Time    `db:"due_date"`
		LateFeePerDay      null.Float64 `db:"late_fee_per_day"`
	}

	feeItemRow struct {
		FeeStructureID string  `db:"fee_structure_id"`
		Category       string  `db:"category"`
		Amount         float64 `db:"amount"`
	}

	paymentRow struct {
		ID            string       `db:"id"`
		StudentID     string       `db:"student_id"`
		AcademicYear  string       `db:"academic_year"`
		AmountPaid    float64      `db:"amount_paid"`
		LateFee       null.Float64 `db:"late_fee"`
		PaidAt        null.Time    `db:"paid_at"`
		Status        string       `db:"status"`
		PaymentMethod null.String  `db:"payment_method"`
		ReceiptURL    null.String  `db:"receipt_url"`
	}

	feeRepository struct {
		db *sqlx.DB
	}
)

func (r feeStructureRow) toStructure() fee.FeeStructure {
	return fee.FeeStructure{
		ID:                 r.ID,
		StudentID:          r.StudentID,
		AcademicYear:       academic.Year(r.AcademicYear),
		TotalFee:           r.TotalFee,
		Discount:           r.Discount.Float64,
		DiscountPercentage: r.DiscountPercentage.Float64,
		DueDate:            core.NewDate(r.DueDate.Time),
		LateFeePerDay:      r.LateFeePerDay.Float64,
	}
}

func (r paymentRow) toPayment() fee.Payment {
	return fee.Payment{
		ID:           r.ID,
		StudentID:    r.StudentID,
		AcademicYear: academic.Year(r.AcademicYear),
		AmountPaid:   r.AmountPaid,
		LateFee:      r.LateFee.Float64,
		PaidAt:       core.NewDate(r.PaidAt.Time),
		Status:       fee.PaymentState(r.Status),
		Method:       fee.PaymentMethod(r.PaymentMethod.String),
		ReceiptURL:   r.ReceiptURL.String,
	}
}

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{db: db}
}

// withBreakdowns loads the fee_structure_items of structures.
func (repo *feeRepository) withBreakdowns(ctx context.Context, structures []fee.FeeStructure) error {
	if len(structures) == 0 {
		return nil
	}
	ids := make([]string, 0, len(structures))
	byID := make(map[string]int, len(structures))
	for i, fs := range structures {
		ids = append(ids, fs.ID)
		byID[fs.ID] = i
	}

	q, args, err := sqlx.In(
		`SELECT fee_structure_id, category, amount FROM fee_structure_items WHERE fee_structure_id IN (?) ORDER BY category`,
		ids,
	)
	if err != nil {
		return errors.Wrap(err, "expanding fee structure ids")
	}
	var items []feeItemRow
	if err = repo.db.SelectContext(ctx, &items, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "selecting fee structure items")
	}
	for _, it := range items {
		i, ok := byID[it.FeeStructureID]
		if !ok {
			continue
		}
		if structures[i].Breakdown == nil {
			structures[i].Breakdown = make(map[string]float64)
		}
		structures[i].Breakdown[it.Category] += it.Amount
	}
	return nil
}

func (repo *feeRepository) GetFeeStructure(ctx context.Context, studentID string, year academic.Year) (fee.FeeStructure, error) {
	if !isID(studentID) {
		return fee.FeeStructure{}, fee.ErrNotFound
	}

	var row feeStructureRow
	err := repo.db.GetContext(
		ctx, &row,
		`SELECT `+feeStructureColumns+` FROM fee_structures WHERE student_id = $1 AND academic_year = $2`,
		studentID, string(year),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return fee.FeeStructure{}, fee.ErrNotFound
		}
		return fee.FeeStructure{}, errors.Wrap(err, "selecting fee structure")
	}

	structures := []fee.FeeStructure{row.toStructure()}
	if err = repo.withBreakdowns(ctx, structures); err != nil {
		return fee.FeeStructure{}, err
	}
	return structures[0], nil
}

func (repo *feeRepository) QueryFeeStructures(ctx context.Context, year academic.Year) ([]fee.FeeStructure, error) {
	var rows []feeStructureRow
	err := repo.db.SelectContext(
		ctx, &rows,
		`SELECT `+feeStructureColumns+` FROM fee_structures WHERE academic_year = $1 ORDER BY student_id`,
		string(year),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting fee structures")
	}

	structures := make([]fee.FeeStructure, 0, len(rows))
	for _, r := range rows {
		structures = append(structures, r.toStructure())
	}
	if err = repo.withBreakdowns(ctx, structures); err != nil {
		return nil, err
	}
	return structures, nil
}

func (repo *feeRepository) ListPayments(ctx context.Context, studentID string, year academic.Year) ([]fee.Payment, error) {
	if !isID(studentID) {
		return []fee.Payment{}, nil
	}

	var rows []paymentRow
	err := repo.db.SelectContext(
		ctx, &rows,
		`SELECT `+paymentColumns+` FROM fee_payments WHERE student_id = $1 AND academic_year = $2 ORDER BY created_at, id`,
		studentID, string(year),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting payments")
	}
	payments := make([]fee.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.toPayment())
	}
	return payments, nil
}
