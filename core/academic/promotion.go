package academic

import "time"

type PromotionType string

const (
	Promoted PromotionType = "promoted"
	Retained PromotionType = "retained"
	Demoted  PromotionType = "demoted"
)

// PromotionRecord is one entry of a student's promotion ledger.
// Corrections set Reverted rather than removing the record.
type PromotionRecord struct {
	ID            string        `json:"id" db:"id"`
	StudentID     string        `json:"student_id" db:"student_id"`
	AcademicYear  Year          `json:"academic_year" db:"academic_year"`
	PromotionType PromotionType `json:"promotion_type" db:"promotion_type"`
	FromClass     string        `json:"from_class,omitempty" db:"from_class"`
	ToClass       string        `json:"to_class,omitempty" db:"to_class"`
	Reverted      bool          `json:"reverted" db:"reverted"`
	RecordedAt    time.Time     `json:"recorded_at" db:"recorded_at"`
}

// IsActivePromotion reports whether the record promotes the student out of year.
func (r PromotionRecord) IsActivePromotion(year Year) bool {
	return r.AcademicYear == year && r.PromotionType == Promoted && !r.Reverted
}

// PromotionHistory is an append-only ledger, in the order the records were made.
type PromotionHistory []PromotionRecord

// Active returns the records that have not been reverted.
func (h PromotionHistory) Active() PromotionHistory {
	active := make(PromotionHistory, 0, len(h))
	for _, r := range h {
		if !r.Reverted {
			active = append(active, r)
		}
	}
	return active
}

// ActivePromotion finds a non-reverted promotion out of year.
func (h PromotionHistory) ActivePromotion(year Year) (PromotionRecord, bool) {
	for _, r := range h {
		if r.IsActivePromotion(year) {
			return r, true
		}
	}
	return PromotionRecord{}, false
}

// ResolveStudentYear returns the year after calendarYear when the student was promoted out of it,
// calendarYear otherwise.
func ResolveStudentYear(history []PromotionRecord, calendarYear Year) Year {
	if _, ok := PromotionHistory(history).ActivePromotion(calendarYear); ok {
		return NextAcademicYear(calendarYear)
	}
	return calendarYear
}
