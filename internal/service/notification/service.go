package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dental-scheduler/internal/email"
	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/dental-scheduler/pkg/errors"
	"github.com/jwalitptl/dental-scheduler/pkg/logger"
	"github.com/jwalitptl/dental-scheduler/pkg/messaging"
	"github.com/jwalitptl/dental-scheduler/pkg/metrics"
)

const (
	defaultTake = 20
	maxTake     = 100

	EventCreated = "notification.created"
)

// UserLookup resolves recipients.
type UserLookup interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

type Service struct {
	repo     repository.NotificationRepository
	users    UserLookup
	emailSvc email.Service
	broker   messaging.Broker
	channel  string
	messages *Messages
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Options struct {
	Channel string
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func NewService(
	repo repository.NotificationRepository,
	users UserLookup,
	emailSvc email.Service,
	broker messaging.Broker,
	messages *Messages,
	log *logger.Logger,
	opts Options,
) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Channel == "" {
		opts.Channel = "notifications"
	}
	if broker == nil {
		broker = messaging.NoopBroker{}
	}
	return &Service{
		repo:     repo,
		users:    users,
		emailSvc: emailSvc,
		broker:   broker,
		channel:  opts.Channel,
		messages: messages,
		logger:   log,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
}

func (s *Service) Messages() *Messages { return s.messages }

// Notify stores an inbox entry and publishes it. Failures are logged and
// never returned: the triggering write has already committed.
func (s *Service) Notify(ctx context.Context, userID, message string) {
	n := &model.Notification{
		UserID:    userID,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn(err, "failed to store notification", "user_id", userID)
		return
	}
	s.Publish(ctx, n)
}

// Publish fans a stored notification out on the broker.
func (s *Service) Publish(ctx context.Context, n *model.Notification) {
	event := messaging.Message{
		ID:   uuid.NewString(),
		Type: EventCreated,
		Payload: model.NotificationEvent{
			EventID:        uuid.NewString(),
			NotificationID: n.ID,
			UserID:         n.UserID,
			Message:        n.Message,
			CreatedAt:      n.CreatedAt,
		},
	}
	if err := s.broker.Publish(ctx, s.channel, event); err != nil {
		s.metrics.Broker("failed")
		s.logger.Warn(err, "failed to publish notification", "notification_id", n.ID)
		return
	}
	s.metrics.Broker("published")
}

// SendEmail delivers to the user's address if there is one. The returned
// error is informational only.
func (s *Service) SendEmail(ctx context.Context, u *model.User, subject, text string) error {
	to := u.EmailAddress()
	if to == "" {
		return email.ErrNoRecipient
	}
	if err := s.emailSvc.Send(ctx, to, subject, text, ""); err != nil {
		s.logger.Warn(err, "failed to send email", "to", to, "subject", subject)
		return err
	}
	return nil
}

// lookup returns nil when the user cannot be resolved.
func (s *Service) lookup(ctx context.Context, userID string) *model.User {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn(err, "failed to look up user", "user_id", userID)
		}
		return nil
	}
	return u
}

func (s *Service) AppointmentBooked(ctx context.Context, a *model.Appointment) {
	s.Notify(ctx, a.UserID, s.messages.Booked(a.StartTime))
	if u := s.lookup(ctx, a.UserID); u != nil {
		subject, text := s.messages.BookedEmail(u, a.StartTime)
		_ = s.SendEmail(ctx, u, subject, text)
	}
}

func (s *Service) AppointmentAssigned(ctx context.Context, a *model.Appointment) {
	s.Notify(ctx, a.UserID, s.messages.Assigned(a.StartTime))
}

func (s *Service) AppointmentCancelled(ctx context.Context, a *model.Appointment) {
	s.Notify(ctx, a.UserID, s.messages.Cancelled(a.StartTime))
	if u := s.lookup(ctx, a.UserID); u != nil {
		subject, text := s.messages.CancelledEmail(a.StartTime)
		_ = s.SendEmail(ctx, u, subject, text)
	}
}

func (s *Service) AppointmentUpdated(ctx context.Context, a *model.Appointment) {
	s.Notify(ctx, a.UserID, s.messages.Updated(a.StartTime))
	if u := s.lookup(ctx, a.UserID); u != nil {
		subject, text := s.messages.UpdatedEmail(a.StartTime)
		_ = s.SendEmail(ctx, u, subject, text)
	}
}

// Inbox

func (s *Service) List(ctx context.Context, userID string, filters model.NotificationFilters) (*model.NotificationList, error) {
	if filters.Skip < 0 {
		filters.Skip = 0
	}
	switch {
	case filters.Take <= 0:
		filters.Take = defaultTake
	case filters.Take > maxTake:
		filters.Take = maxTake
	}

	items, err := s.repo.List(ctx, userID, &filters)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list notifications: %w", err))
	}
	return &model.NotificationList{Count: len(items), Items: items}, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return count, nil
}

func (s *Service) MarkRead(ctx context.Context, id int64, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("notification", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	if _, err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}
