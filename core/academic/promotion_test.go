package academic

import (
	"testing"
	"time"
)

func TestResolveStudentYear(t *testing.T) {
	freezeNow(t, date(2025, time.October, 1))

	const y Year = "2025-2026"
	promoted := PromotionRecord{AcademicYear: y, PromotionType: Promoted}
	reverted := PromotionRecord{AcademicYear: y, PromotionType: Promoted, Reverted: true}

	tests := []struct {
		name    string
		history []PromotionRecord
		year    Year
		want    Year
	}{
		{name: "nil history", year: y, want: y},
		{name: "empty history", history: []PromotionRecord{}, year: y, want: y},
		{name: "promoted", history: []PromotionRecord{promoted}, year: y, want: "2026-2027"},
		{name: "reverted promotion ignored", history: []PromotionRecord{reverted}, year: y, want: y},
		{
			name:    "reverted after a valid promotion",
			history: []PromotionRecord{reverted, promoted},
			year:    y,
			want:    "2026-2027",
		},
		{
			name:    "latest record does not win",
			history: []PromotionRecord{promoted, reverted},
			year:    y,
			want:    "2026-2027",
		},
		{
			name:    "duplicate promotions",
			history: []PromotionRecord{promoted, promoted},
			year:    y,
			want:    "2026-2027",
		},
		{
			name:    "other year",
			history: []PromotionRecord{{AcademicYear: "2024-2025", PromotionType: Promoted}},
			year:    y,
			want:    y,
		},
		{
			name:    "retained",
			history: []PromotionRecord{{AcademicYear: y, PromotionType: Retained}},
			year:    y,
			want:    y,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStudentYear(tt.history, tt.year); got != tt.want {
				t.Errorf("ResolveStudentYear() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPromotionHistory(t *testing.T) {
	h := PromotionHistory{
		{ID: "1", AcademicYear: "2023-2024", PromotionType: Promoted},
		{ID: "2", AcademicYear: "2024-2025", PromotionType: Promoted, Reverted: true},
		{ID: "3", AcademicYear: "2024-2025", PromotionType: Retained},
	}

	active := h.Active()
	if len(active) != 2 || active[0].ID != "1" || active[1].ID != "3" {
		t.Errorf("Active() = %+v", active)
	}
	if len(h) != 3 || !h[1].Reverted {
		t.Error("Active() modified the ledger")
	}

	if r, ok := h.ActivePromotion("2023-2024"); !ok || r.ID != "1" {
		t.Errorf("ActivePromotion(2023-2024) = %+v, %v", r, ok)
	}
	if _, ok := h.ActivePromotion("2024-2025"); ok {
		t.Error("ActivePromotion(2024-2025) found a reverted promotion")
	}
}
