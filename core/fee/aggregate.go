package fee

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Aggregate derives the fee status of a structure from its payment history as of asOf.
// Every payment counts towards TotalPaid, whatever its state. Derived amounts never go below zero.
func Aggregate(structure FeeStructure, history []Payment, asOf time.Time) Status {
	st := Status{
		StudentID:    structure.StudentID,
		AcademicYear: structure.AcademicYear,
		AsOf:         asOf,
		DueDate:      structure.DueDate,
		TotalFee:     structure.TotalFee,
		Discount:     structure.EffectiveDiscount(),
		Payments:     len(history),
	}

	for _, p := range history {
		st.TotalPaid += p.AmountPaid
		if p.Status == PaymentPendingVerification {
			st.PendingVerification += p.AmountPaid
		}
	}
	st.TotalPaid = roundCents(st.TotalPaid)
	st.PendingVerification = roundCents(st.PendingVerification)
	if len(history) > 0 {
		last := history[len(history)-1]
		st.LastPayment = &last
	}

	st.EffectiveFee = roundCents(math.Max(0, st.TotalFee-st.Discount))
	st.Remaining = roundCents(math.Max(0, st.EffectiveFee-st.TotalPaid))

	switch {
	case st.Remaining == 0 && st.TotalPaid > 0:
		st.PaymentStatus = Paid
	case st.TotalPaid > 0 && st.TotalPaid < st.EffectiveFee:
		st.PaymentStatus = PartiallyPaid
	default:
		st.PaymentStatus = Unpaid
	}

	st.OverdueDays = OverdueDays(structure.DueDate.Time, asOf, st.Remaining)
	st.TotalLateFee = roundCents(float64(st.OverdueDays) * math.Max(0, structure.LateFeePerDay))
	st.TotalDue = roundCents(st.Remaining + st.TotalLateFee)
	return st
}

// OverdueDays counts the whole days between dueDate and asOf while something remains to be paid.
// A zero dueDate never becomes overdue.
func OverdueDays(dueDate, asOf time.Time, remaining float64) int {
	if remaining <= 0 || dueDate.IsZero() || !asOf.After(dueDate) {
		return 0
	}
	return int(asOf.Sub(dueDate) / day)
}
