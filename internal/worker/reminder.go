package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
	"github.com/jwalitptl/dental-scheduler/internal/service/notification"
	"github.com/jwalitptl/dental-scheduler/pkg/logger"
	"github.com/jwalitptl/dental-scheduler/pkg/metrics"
)

const (
	ResultSent    = "sent"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

var errAlreadyClaimed = errors.New("reminder already claimed")

// Notifier is the slice of the notification service the sweep needs.
type Notifier interface {
	Messages() *notification.Messages
	SendEmail(ctx context.Context, u *model.User, subject, text string) error
	Publish(ctx context.Context, n *model.Notification)
}

type UserLookup interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// SweepResult summarises one pass.
type SweepResult struct {
	Due     int
	Sent    int
	Skipped int
	Failed  int
}

// ReminderSweep sends the day-ahead reminder for upcoming appointments.
// Each appointment is claimed, notified and flagged in its own transaction,
// so concurrent sweeps never notify twice for the same appointment.
type ReminderSweep struct {
	appointments repository.AppointmentRepository
	uow          repository.UnitOfWork
	users        UserLookup
	notifier     Notifier
	interval     time.Duration
	lookahead    time.Duration
	logger       *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

type ReminderOptions struct {
	Interval  time.Duration
	Lookahead time.Duration
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func NewReminderSweep(
	appointments repository.AppointmentRepository,
	uow repository.UnitOfWork,
	users UserLookup,
	notifier Notifier,
	log *logger.Logger,
	opts ReminderOptions,
) *ReminderSweep {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Lookahead <= 0 {
		opts.Lookahead = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReminderSweep{
		appointments: appointments,
		uow:          uow,
		users:        users,
		notifier:     notifier,
		interval:     opts.Interval,
		lookahead:    opts.Lookahead,
		logger:       log,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
}

// Start sweeps immediately and then on every tick until ctx is cancelled.
// An in-flight sweep stops between appointments.
func (w *ReminderSweep) Start(ctx context.Context) {
	w.logger.Info("reminder sweep started", "interval", w.interval.String(), "lookahead", w.lookahead.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			w.logger.Info("reminder sweep stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *ReminderSweep) runOnce(ctx context.Context) {
	started := time.Now()
	res, err := w.Sweep(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		w.metrics.Sweep("cancelled", time.Since(started))
	case err != nil:
		w.metrics.Sweep("error", time.Since(started))
		w.logger.Error(err, "reminder sweep failed")
	default:
		w.metrics.Sweep("ok", time.Since(started))
		if res.Due > 0 {
			w.logger.Info("reminder sweep finished",
				"due", res.Due, "sent", res.Sent, "skipped", res.Skipped, "failed", res.Failed)
		}
	}
}

// Sweep handles every appointment starting within the lookahead. A failure
// on one appointment is counted and the rest are still processed.
func (w *ReminderSweep) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	now := w.now().UTC()
	due, err := w.appointments.ListDueReminders(ctx, now, now.Add(w.lookahead))
	if err != nil {
		return res, fmt.Errorf("failed to list due reminders: %w", err)
	}
	res.Due = len(due)

	for _, a := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch err := w.remind(ctx, a); {
		case err == nil:
			res.Sent++
			w.metrics.Reminder(ResultSent)
		case errors.Is(err, errAlreadyClaimed):
			res.Skipped++
			w.metrics.Reminder(ResultSkipped)
		default:
			res.Failed++
			w.metrics.Reminder(ResultFailed)
			w.logger.Warn(err, "failed to send reminder", "appointment_id", a.ID, "user_id", a.UserID)
		}
	}
	return res, nil
}

func (w *ReminderSweep) remind(ctx context.Context, a *model.Appointment) error {
	// Unknown users still get the inbox entry; lookup failures are retried next pass.
	u, err := w.users.Get(ctx, a.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to look up user: %w", err)
		}
		u = nil
	}

	messages := w.notifier.Messages()
	n := &model.Notification{
		UserID:    a.UserID,
		Message:   messages.Reminder(a.StartTime),
		CreatedAt: w.now().UTC(),
	}

	err = w.uow.WithinReminderTx(ctx, func(tx repository.ReminderTx) error {
		claimed, err := tx.LockDueReminder(ctx, a.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return errAlreadyClaimed
		}

		if err := tx.CreateNotification(ctx, n); err != nil {
			return err
		}
		if u.EmailAddress() != "" {
			subject, text := messages.ReminderEmail(u, a.StartTime)
			_ = w.notifier.SendEmail(ctx, u, subject, text)
		}
		return tx.MarkReminderSent(ctx, a.ID)
	})
	if err != nil {
		return err
	}

	w.notifier.Publish(ctx, n)
	return nil
}
