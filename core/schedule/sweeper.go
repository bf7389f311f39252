package schedule

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/audit"
	"github.com/trezcool/ratiba/core/user"
)

var nowFunc = time.Now // mockable

// Sweeper is the recurring escalation pass: it finds booking requests left
// unassigned beyond the configured threshold, stamps them escalated exactly
// once, records an audit entry and notifies the tenant's admins.
type Sweeper struct {
	repo     Repository
	usrSvc   *user.Service
	auditSvc *audit.Service
	mailSvc  core.EmailService
	logger   core.Logger
	conf     core.EscalationConfig
}

func NewSweeper(
	repo Repository,
	usrSvc *user.Service,
	auditSvc *audit.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf core.EscalationConfig,
) *Sweeper {
	return &Sweeper{
		repo:     repo,
		usrSvc:   usrSvc,
		auditSvc: auditSvc,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

// RunOnce performs one idempotent escalation pass and returns the number of
// bookings escalated. A booking is eligible while it is still REQUESTED,
// unassigned and unescalated; repeated runs are safe because the
// escalatedAt guard re-surfaces only unmarked bookings. Per-booking errors
// are logged and skipped so one failure does not abort the rest of the
// pass; only a failed selection query fails the run.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := nowFunc().UTC().Add(-s.conf.Threshold)
	toEscalate, err := s.repo.QueryEscalatableBookings(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "querying escalatable bookings")
	}

	var count int
	for _, b := range toEscalate {
		if err := s.escalate(ctx, b); err != nil {
			if errors.Cause(err) == ErrBookingNotFound {
				continue // escalated or assigned by a concurrent pass in the meantime
			}
			s.logger.Error(fmt.Sprintf("escalating booking %s: %v", b.ID, err), err)
			continue
		}
		count++
	}
	return count, nil
}

// Run starts the recurring sweep and blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info(fmt.Sprintf("escalation sweep started (interval %s, threshold %s)", s.conf.SweepInterval, s.conf.Threshold))

	ticker := time.NewTicker(s.conf.SweepInterval)
	defer ticker.Stop()

	s.tick(ctx) // first pass right away
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			s.logger.Info("escalation sweep stopped")
			return
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	count, err := s.RunOnce(ctx)
	if err != nil {
		// swallowed: the next tick retries the full selection
		s.logger.Error(fmt.Sprintf("escalation sweep failed: %v", err), err)
		return
	}
	if count > 0 {
		s.logger.Info(fmt.Sprintf("escalation sweep: %d booking(s) escalated", count))
	}
}

func (s *Sweeper) escalate(ctx context.Context, b Booking) error {
	now := nowFunc().UTC()
	if err := s.repo.MarkBookingEscalated(ctx, b.TenantID, b.ID, now); err != nil {
		return err
	}

	// The booking stays marked even if audit or notification below fail:
	// re-escalating would be worse than a missed notification.
	err := s.auditSvc.Record(ctx, audit.Entry{
		TenantID:     b.TenantID,
		UserID:       b.StudentID, // actor for audit; effectively "system"
		Action:       audit.ActionBookingEscalate,
		ResourceType: "booking",
		ResourceID:   b.ID,
		AfterState: map[string]interface{}{
			"escalated_at": now.Format(time.RFC3339),
			"reason":       fmt.Sprintf("unassigned for more than %s", s.conf.Threshold),
		},
	})
	if err != nil {
		s.logger.Error(fmt.Sprintf("recording escalation of booking %s: %v", b.ID, err), err)
	}

	s.notifyAdmins(ctx, b, now)
	return nil
}

func (s *Sweeper) notifyAdmins(ctx context.Context, b Booking, now time.Time) {
	studentEmail := b.StudentID
	if student, err := s.usrSvc.GetByID(ctx, b.TenantID, b.StudentID); err == nil {
		studentEmail = student.Email
	}

	admins, err := s.usrSvc.QueryAdmins(ctx, b.TenantID)
	if err != nil {
		s.logger.Error(fmt.Sprintf("querying admins of tenant %s: %v", b.TenantID, err), err)
		return
	}

	elapsed := now.Sub(b.CreatedAt).Round(time.Minute)
	msgs := make([]*core.EmailMessage, 0, len(admins))
	for _, admin := range admins {
		msgs = append(msgs, &core.EmailMessage{
			To:      []mail.Address{{Address: admin.Email}},
			Subject: fmt.Sprintf("Booking escalation: %s", b.ID),
			BodyStr: fmt.Sprintf(
				"Booking %s (student: %s) has been unassigned for %s. Please assign an instructor.",
				b.ID, studentEmail, elapsed,
			),
		})
	}
	s.mailSvc.SendMessages(msgs...)
}
