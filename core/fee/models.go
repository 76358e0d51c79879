package fee

import (
	"math"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/student"
)

// PaymentStatus is the derived state of a fee structure.
type PaymentStatus string

const (
	Paid          PaymentStatus = "Paid"
	PartiallyPaid PaymentStatus = "Partially Paid"
	Unpaid        PaymentStatus = "Unpaid"
)

// PaymentState is the state of a single payment as recorded by the records backend.
type PaymentState string

const (
	PaymentPaid                PaymentState = "paid"
	PaymentPendingVerification PaymentState = "pending_verification"
	PaymentFailed              PaymentState = "failed"
)

type PaymentMethod string

const (
	MethodOnline  PaymentMethod = "online"
	MethodOffline PaymentMethod = "offline"
	MethodCash    PaymentMethod = "cash"
)

type (
	// FeeStructure is what a student owes for one academic year.
	// Zero Discount, LateFeePerDay or DueDate mean "not set".
	FeeStructure struct {
		ID                 string             `json:"id" db:"id"`
		StudentID          string             `json:"student_id" db:"student_id"`
		AcademicYear       academic.Year      `json:"academic_year" db:"academic_year"`
		TotalFee           float64            `json:"total_fee" db:"total_fee"`
		Breakdown          map[string]float64 `json:"breakdown,omitempty" db:"-"`
		Discount           float64            `json:"discount,omitempty" db:"discount"`
		DiscountPercentage float64            `json:"discount_percentage,omitempty" db:"discount_percentage"`
		DueDate            core.Date          `json:"due_date" db:"due_date"`
		LateFeePerDay      float64            `json:"late_fee_per_day,omitempty" db:"late_fee_per_day"`
	}

	Payment struct {
		ID           string        `json:"id" db:"id"`
		StudentID    string        `json:"student_id" db:"student_id"`
		AcademicYear academic.Year `json:"academic_year" db:"academic_year"`
		AmountPaid   float64       `json:"amount_paid" db:"amount_paid"`
		LateFee      float64       `json:"late_fee,omitempty" db:"late_fee"`
		PaidAt       core.Date     `json:"paid_at" db:"paid_at"`
		Status       PaymentState  `json:"status" db:"status"`
		Method       PaymentMethod `json:"payment_method" db:"payment_method"`
		ReceiptURL   string        `json:"receipt_url,omitempty" db:"receipt_url"`
	}

	// Status is derived from a FeeStructure and its payments; it is never stored.
	Status struct {
		StudentID           string        `json:"student_id"`
		AcademicYear        academic.Year `json:"academic_year"`
		AsOf                time.Time     `json:"as_of"`
		DueDate             core.Date     `json:"due_date"`
		TotalFee            float64       `json:"total_fee"`
		Discount            float64       `json:"discount"`
		EffectiveFee        float64       `json:"effective_fee"`
		TotalPaid           float64       `json:"total_paid"`
		PendingVerification float64       `json:"pending_verification"`
		Remaining           float64       `json:"remaining"`
		OverdueDays         int           `json:"overdue_days"`
		TotalLateFee        float64       `json:"total_late_fee"`
		TotalDue            float64       `json:"total_due"`
		PaymentStatus       PaymentStatus `json:"payment_status"`
		Payments            int           `json:"payments"`
		LastPayment         *Payment      `json:"last_payment,omitempty"`
	}

	// Defaulter is a student whose fees are Unpaid or Partially Paid.
	Defaulter struct {
		Student student.Student `json:"student"`
		Status  Status          `json:"status"`
	}

	// Summary aggregates the statuses of every student of an academic year.
	Summary struct {
		AcademicYear   academic.Year         `json:"academic_year"`
		AsOf           time.Time             `json:"as_of"`
		Students       int                   `json:"students"`
		Expected       float64               `json:"expected"`
		Collected      float64               `json:"collected"`
		Outstanding    float64               `json:"outstanding"`
		LateFees       float64               `json:"late_fees"`
		CollectionRate float64               `json:"collection_rate"` // collected / expected, 0 - 1
		ByStatus       map[PaymentStatus]int `json:"by_status"`
	}
)

// EffectiveDiscount is Discount when set, TotalFee × DiscountPercentage / 100 otherwise.
func (fs FeeStructure) EffectiveDiscount() float64 {
	if fs.Discount > 0 {
		return fs.Discount
	}
	if fs.DiscountPercentage > 0 {
		return roundCents(fs.TotalFee * fs.DiscountPercentage / 100)
	}
	return 0
}

// Validate checks the amounts of a fee structure as received from the records backend.
func (fs FeeStructure) Validate() error {
	var flds []core.FieldError
	if fs.TotalFee < 0 {
		flds = append(flds, core.FieldError{Field: "total_fee", Error: "must not be negative"})
	}
	if fs.Discount < 0 {
		flds = append(flds, core.FieldError{Field: "discount", Error: "must not be negative"})
	}
	if fs.DiscountPercentage < 0 || fs.DiscountPercentage > 100 {
		flds = append(flds, core.FieldError{Field: "discount_percentage", Error: "must be between 0 and 100"})
	}
	if fs.LateFeePerDay < 0 {
		flds = append(flds, core.FieldError{Field: "late_fee_per_day", Error: "must not be negative"})
	}
	if len(fs.Breakdown) > 0 {
		var sum float64
		for category, amount := range fs.Breakdown {
			if amount < 0 {
				flds = append(flds, core.FieldError{Field: "breakdown." + category, Error: "must not be negative"})
			}
			sum += amount
		}
		if math.Abs(sum-fs.TotalFee) >= 0.01 {
			flds = append(flds, core.FieldError{Field: "breakdown", Error: "categories must add up to total_fee"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(ErrInvalidStructure, flds...)
	}
	return nil
}

func (s Status) IsDefaulter() bool {
	return s.PaymentStatus == Unpaid || s.PaymentStatus == PartiallyPaid
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
