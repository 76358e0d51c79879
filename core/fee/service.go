// Package fee derives fee statuses from fee structures and payment histories.
package fee

import (
	"context"
	"net/mail"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/student"
)

const (
	EventDefaulter   = "fee.defaulter"
	reminderTemplate = "fee_reminder"
	defaultWorkers   = 8
)

var (
	// errors
	ErrNotFound         = errors.New("fee structure not found")
	ErrInvalidStructure = errors.New("invalid fee structure")
)

type (
	Repository interface {
		// GetFeeStructure returns ErrNotFound when the student has no fee structure for the year.
		GetFeeStructure(ctx context.Context, studentID string, year academic.Year) (FeeStructure, error)
		QueryFeeStructures(ctx context.Context, year academic.Year) ([]FeeStructure, error)
		// ListPayments returns the payments of a student for the year in insertion order.
		ListPayments(ctx context.Context, studentID string, year academic.Year) ([]Payment, error)
	}

	Service struct {
		repo      Repository
		students  student.Repository
		mailSvc   core.EmailService
		publisher core.EventPublisher
		workers   int
	}

	reminderData struct {
		Status
		StudentName  string
		GuardianName string
	}

	defaulterEvent struct {
		StudentID     string        `json:"student_id"`
		AcademicYear  academic.Year `json:"academic_year"`
		PaymentStatus PaymentStatus `json:"payment_status"`
		Remaining     float64       `json:"remaining"`
		OverdueDays   int           `json:"overdue_days"`
		TotalDue      float64       `json:"total_due"`
	}
)

// NewService returns a fee Service. publisher may be nil when no broker is configured.
func NewService(
	conf *core.Config,
	repo Repository,
	students student.Repository,
	mailSvc core.EmailService,
	publisher core.EventPublisher,
) *Service {
	workers := conf.Fees.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Service{
		repo:      repo,
		students:  students,
		mailSvc:   mailSvc,
		publisher: publisher,
		workers:   workers,
	}
}

func (svc *Service) status(ctx context.Context, structure FeeStructure, asOf time.Time) (Status, error) {
	payments, err := svc.repo.ListPayments(ctx, structure.StudentID, structure.AcademicYear)
	if err != nil {
		return Status{}, errors.Wrapf(err, "listing payments of student %s", structure.StudentID)
	}
	return Aggregate(structure, payments, asOf), nil
}

// StudentStatus returns the fee status of a student for an academic year.
func (svc *Service) StudentStatus(ctx context.Context, studentID string, year academic.Year, asOf time.Time) (Status, error) {
	std, err := svc.students.GetStudent(ctx, core.CleanString(studentID))
	if err != nil {
		return Status{}, err
	}

	structure, err := svc.repo.GetFeeStructure(ctx, std.ID, year)
	if err != nil {
		return Status{}, err
	}
	return svc.status(ctx, structure, asOf)
}

// statuses computes the status of every fee structure of the year, bounded by svc.workers.
func (svc *Service) statuses(ctx context.Context, year academic.Year, asOf time.Time) ([]Status, error) {
	structures, err := svc.repo.QueryFeeStructures(ctx, year)
	if err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}

	statuses := make([]Status, len(structures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(svc.workers)
	for i, structure := range structures {
		i, structure := i, structure
		g.Go(func() error {
			st, err := svc.status(gctx, structure, asOf)
			if err != nil {
				return err
			}
			statuses[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Defaulters lists the students with Unpaid or Partially Paid fees, largest TotalDue first.
func (svc *Service) Defaulters(ctx context.Context, year academic.Year, asOf time.Time) ([]Defaulter, error) {
	statuses, err := svc.statuses(ctx, year, asOf)
	if err != nil {
		return nil, err
	}

	defaulters := make([]Defaulter, 0)
	for _, st := range statuses {
		if !st.IsDefaulter() {
			continue
		}
		std, err := svc.students.GetStudent(ctx, st.StudentID)
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return nil, core.NewOrphanRecordError("fee structure", st.StudentID, st.AcademicYear)
			}
			return nil, errors.Wrapf(err, "getting student %s", st.StudentID)
		}
		defaulters = append(defaulters, Defaulter{Student: std, Status: st})
	}

	sort.SliceStable(defaulters, func(i, j int) bool {
		if defaulters[i].Status.TotalDue != defaulters[j].Status.TotalDue {
			return defaulters[i].Status.TotalDue > defaulters[j].Status.TotalDue
		}
		return defaulters[i].Student.Name < defaulters[j].Student.Name
	})
	return defaulters, nil
}

// Summary totals the fee statuses of an academic year.
func (svc *Service) Summary(ctx context.Context, year academic.Year, asOf time.Time) (Summary, error) {
	statuses, err := svc.statuses(ctx, year, asOf)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		AcademicYear: year,
		AsOf:         asOf,
		Students:     len(statuses),
		ByStatus:     map[PaymentStatus]int{Paid: 0, PartiallyPaid: 0, Unpaid: 0},
	}
	for _, st := range statuses {
		sum.Expected += st.EffectiveFee
		sum.Collected += st.TotalPaid
		sum.Outstanding += st.Remaining
		sum.LateFees += st.TotalLateFee
		sum.ByStatus[st.PaymentStatus]++
	}
	sum.Expected = roundCents(sum.Expected)
	sum.Collected = roundCents(sum.Collected)
	sum.Outstanding = roundCents(sum.Outstanding)
	sum.LateFees = roundCents(sum.LateFees)
	if sum.Expected > 0 {
		sum.CollectionRate = roundCents(sum.Collected / sum.Expected)
		if sum.CollectionRate > 1 {
			sum.CollectionRate = 1
		}
	}
	return sum, nil
}

// RemindDefaulters emails the guardian of every defaulter and publishes one EventDefaulter per defaulter.
// It returns the number of emails sent.
func (svc *Service) RemindDefaulters(ctx context.Context, year academic.Year, asOf time.Time) (int, error) {
	defaulters, err := svc.Defaulters(ctx, year, asOf)
	if err != nil {
		return 0, err
	}

	msgs := make([]*core.EmailMessage, 0, len(defaulters))
	events := make([]core.Event, 0, len(defaulters))
	for _, d := range defaulters {
		events = append(events, core.Event{
			Type:       EventDefaulter,
			OccurredAt: asOf,
			Payload: defaulterEvent{
				StudentID:     d.Student.ID,
				AcademicYear:  d.Status.AcademicYear,
				PaymentStatus: d.Status.PaymentStatus,
				Remaining:     d.Status.Remaining,
				OverdueDays:   d.Status.OverdueDays,
				TotalDue:      d.Status.TotalDue,
			},
		})

		if !d.Student.HasGuardianEmail() {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: d.Student.GuardianName, Address: d.Student.GuardianEmail}},
			Subject:      academic.FormatAcademicYear(year, true) + " fees reminder for " + d.Student.Name,
			TemplateName: reminderTemplate,
			TemplateData: reminderData{
				Status:       d.Status,
				StudentName:  d.Student.Name,
				GuardianName: d.Student.GuardianName,
			},
		})
	}

	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	if svc.publisher != nil && len(events) > 0 {
		if err := svc.publisher.Publish(ctx, events...); err != nil {
			return len(msgs), errors.Wrap(err, "publishing defaulter events")
		}
	}
	return len(msgs), nil
}
