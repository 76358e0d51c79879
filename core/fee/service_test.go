package fee

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/student"
)

const testYear academic.Year = "2024-2025"

type (
	fakeRepo struct {
		structures []FeeStructure
		payments   map[string][]Payment
		err        error
	}

	fakeStudents struct {
		students map[string]student.Student
	}

	fakeMail struct {
		mu   sync.Mutex
		sent []*core.EmailMessage
	}

	fakePublisher struct {
		events []core.Event
		err    error
	}
)

func (r *fakeRepo) GetFeeStructure(_ context.Context, studentID string, year academic.Year) (FeeStructure, error) {
	for _, fs := range r.structures {
		if fs.StudentID == studentID && fs.AcademicYear == year {
			return fs, nil
		}
	}
	return FeeStructure{}, ErrNotFound
}

func (r *fakeRepo) QueryFeeStructures(_ context.Context, year academic.Year) ([]FeeStructure, error) {
	var res []FeeStructure
	for _, fs := range r.structures {
		if fs.AcademicYear == year {
			res = append(res, fs)
		}
	}
	return res, nil
}

func (r *fakeRepo) ListPayments(_ context.Context, studentID string, year academic.Year) ([]Payment, error) {
	if r.err != nil {
		return nil, r.err
	}
	var res []Payment
	for _, p := range r.payments[studentID] {
		if p.AcademicYear == year {
			res = append(res, p)
		}
	}
	return res, nil
}

func (s *fakeStudents) GetStudent(_ context.Context, id string) (student.Student, error) {
	if std, ok := s.students[id]; ok {
		return std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (s *fakeStudents) QueryStudents(context.Context, student.QueryFilter) ([]student.Student, error) {
	return nil, nil
}

func (s *fakeStudents) GetPromotionHistory(context.Context, string) (academic.PromotionHistory, error) {
	return nil, nil
}

func (m *fakeMail) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}

func (p *fakePublisher) Publish(_ context.Context, events ...core.Event) error {
	p.events = append(p.events, events...)
	return p.err
}

func newTestService(t *testing.T, publisher core.EventPublisher) (*Service, *fakeRepo, *fakeMail) {
	t.Helper()

	due := core.NewDate(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	repo := &fakeRepo{
		structures: []FeeStructure{
			{StudentID: "s1", AcademicYear: testYear, TotalFee: 10000, Discount: 1000, DueDate: due, LateFeePerDay: 50},
			{StudentID: "s2", AcademicYear: testYear, TotalFee: 10000, DueDate: due, LateFeePerDay: 50},
			{StudentID: "s3", AcademicYear: testYear, TotalFee: 5000, DueDate: due},
			{StudentID: "s4", AcademicYear: testYear, TotalFee: 6000, DueDate: due},
			{StudentID: "s1", AcademicYear: "2023-2024", TotalFee: 9000},
		},
		payments: map[string][]Payment{
			"s1": {{StudentID: "s1", AcademicYear: testYear, AmountPaid: 5000, Status: PaymentPaid}},
			"s3": {{StudentID: "s3", AcademicYear: testYear, AmountPaid: 5000, Status: PaymentPaid}},
			"s4": {{StudentID: "s4", AcademicYear: testYear, AmountPaid: 1000, Status: PaymentPendingVerification}},
		},
	}
	students := &fakeStudents{students: map[string]student.Student{
		"s1": {ID: "s1", Name: "Amani", GuardianName: "Baraka", GuardianEmail: "baraka@test.test"},
		"s2": {ID: "s2", Name: "Neema", GuardianName: "Zawadi", GuardianEmail: "zawadi@test.test"},
		"s3": {ID: "s3", Name: "Juma"},
		"s4": {ID: "s4", Name: "Imani"},
	}}
	mailSvc := new(fakeMail)
	conf := &core.Config{Fees: core.FeesConfig{Workers: 2}}
	return NewService(conf, repo, students, mailSvc, publisher), repo, mailSvc
}

var testAsOf = time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC)

func TestService_StudentStatus(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		studentID  string
		year       academic.Year
		wantErr    error
		wantStatus PaymentStatus
		wantDue    float64
	}{
		{name: "partially paid", studentID: "s1", year: testYear, wantStatus: PartiallyPaid, wantDue: 4500},
		{name: "trimmed id", studentID: " s1 ", year: testYear, wantStatus: PartiallyPaid, wantDue: 4500},
		{name: "other year", studentID: "s1", year: "2023-2024", wantStatus: Unpaid, wantDue: 9000},
		{name: "paid", studentID: "s3", year: testYear, wantStatus: Paid},
		{name: "unknown student", studentID: "nope", year: testYear, wantErr: student.ErrNotFound},
		{name: "no fee structure", studentID: "s2", year: "2020-2021", wantErr: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := svc.StudentStatus(ctx, tt.studentID, tt.year, testAsOf)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("StudentStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if st.PaymentStatus != tt.wantStatus {
				t.Errorf("StudentStatus().PaymentStatus = %v, want %v", st.PaymentStatus, tt.wantStatus)
			}
			if st.TotalDue != tt.wantDue {
				t.Errorf("StudentStatus().TotalDue = %v, want %v", st.TotalDue, tt.wantDue)
			}
		})
	}
}

func TestService_Defaulters(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	defaulters, err := svc.Defaulters(context.Background(), testYear, testAsOf)
	if err != nil {
		t.Fatalf("Defaulters() error = %v", err)
	}

	// s2: 10000 + 10 days × 50; s4: 5000 left, no late fee; s1: 4000 + 500
	wantOrder := []string{"s2", "s4", "s1"}
	if len(defaulters) != len(wantOrder) {
		t.Fatalf("Defaulters() = %+v, want %v", defaulters, wantOrder)
	}
	for i, id := range wantOrder {
		if defaulters[i].Student.ID != id {
			t.Errorf("Defaulters()[%d] = %v, want %v", i, defaulters[i].Student.ID, id)
		}
		if !defaulters[i].Status.IsDefaulter() {
			t.Errorf("Defaulters()[%d] status = %v", i, defaulters[i].Status.PaymentStatus)
		}
	}
	if due := defaulters[0].Status.TotalDue; due != 10500 {
		t.Errorf("Defaulters()[0].TotalDue = %v, want 10500", due)
	}
}

func TestService_Defaulters_errors(t *testing.T) {
	svc, repo, _ := newTestService(t, nil)

	repo.err = errors.New("connection reset")
	if _, err := svc.Defaulters(context.Background(), testYear, testAsOf); err == nil {
		t.Error("Defaulters() error = nil, want repository error")
	}

	repo.err = nil
	repo.structures = append(repo.structures, FeeStructure{StudentID: "ghost", AcademicYear: testYear, TotalFee: 1})
	_, err := svc.Defaulters(context.Background(), testYear, testAsOf)
	if !core.IsShutdown(err) {
		t.Fatalf("Defaulters() error = %v, want shutdown error", err)
	}
	orphan, ok := errors.Cause(err).(*core.OrphanRecordError)
	if !ok {
		t.Fatalf("Defaulters() error = %T, want *core.OrphanRecordError", errors.Cause(err))
	}
	if orphan.StudentID != "ghost" || orphan.AcademicYear != testYear || orphan.Record != "fee structure" {
		t.Errorf("Defaulters() error = %+v", orphan)
	}
	if want := `fee structure of ` + testYear.String() + ` references unknown student "ghost"`; err.Error() != want {
		t.Errorf("Defaulters() error = %q, want %q", err.Error(), want)
	}
}

func TestService_Summary(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	sum, err := svc.Summary(context.Background(), testYear, testAsOf)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.Students != 4 {
		t.Errorf("Students = %d, want 4", sum.Students)
	}
	if sum.Expected != 30000 { // 9000 + 10000 + 5000 + 6000
		t.Errorf("Expected = %v, want 30000", sum.Expected)
	}
	if sum.Collected != 11000 {
		t.Errorf("Collected = %v, want 11000", sum.Collected)
	}
	if sum.Outstanding != 19000 {
		t.Errorf("Outstanding = %v, want 19000", sum.Outstanding)
	}
	if sum.LateFees != 1000 {
		t.Errorf("LateFees = %v, want 1000", sum.LateFees)
	}
	if sum.CollectionRate != 0.37 {
		t.Errorf("CollectionRate = %v, want 0.37", sum.CollectionRate)
	}
	want := map[PaymentStatus]int{Paid: 1, PartiallyPaid: 2, Unpaid: 1}
	for status, n := range want {
		if sum.ByStatus[status] != n {
			t.Errorf("ByStatus[%s] = %d, want %d", status, sum.ByStatus[status], n)
		}
	}
}

func TestService_RemindDefaulters(t *testing.T) {
	publisher := new(fakePublisher)
	svc, _, mailSvc := newTestService(t, publisher)

	sent, err := svc.RemindDefaulters(context.Background(), testYear, testAsOf)
	if err != nil {
		t.Fatalf("RemindDefaulters() error = %v", err)
	}
	if sent != 2 {
		t.Errorf("RemindDefaulters() = %d, want 2", sent)
	}
	if len(mailSvc.sent) != 2 {
		t.Fatalf("sent %d emails, want 2", len(mailSvc.sent))
	}
	if to := mailSvc.sent[0].To[0].Address; to != "zawadi@test.test" {
		t.Errorf("first reminder to %s, want zawadi@test.test", to)
	}
	if subj := mailSvc.sent[0].Subject; subj != "2024-25 fees reminder for Neema" {
		t.Errorf("Subject = %q", subj)
	}
	if len(publisher.events) != 3 {
		t.Errorf("published %d events, want 3", len(publisher.events))
	}
	for _, e := range publisher.events {
		if e.Type != EventDefaulter {
			t.Errorf("event type = %s, want %s", e.Type, EventDefaulter)
		}
	}

	publisher.err = errors.New("channel closed")
	if _, err := svc.RemindDefaulters(context.Background(), testYear, testAsOf); err == nil {
		t.Error("RemindDefaulters() error = nil, want publish error")
	}
}
