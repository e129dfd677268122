package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
	apperrors "github.com/jwalitptl/dental-scheduler/pkg/errors"
	"github.com/jwalitptl/dental-scheduler/pkg/logger"
	"github.com/jwalitptl/dental-scheduler/pkg/messaging"
)

type fakeRepo struct {
	mu        sync.Mutex
	items     []*model.Notification
	createErr error
	lastList  model.NotificationFilters
}

func (r *fakeRepo) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	n.ID = int64(len(r.items) + 1)
	r.items = append(r.items, n)
	return nil
}

func (r *fakeRepo) List(_ context.Context, userID string, f *model.NotificationFilters) ([]*model.Notification, error) {
	r.lastList = *f
	var out []*model.Notification
	for _, n := range r.items {
		if n.UserID == userID && (!f.OnlyUnread || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeRepo) CountUnread(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) MarkRead(_ context.Context, id int64, userID string) error {
	for _, n := range r.items {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var changed int64
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

type fakeUsers map[string]*model.User

func (f fakeUsers) Get(_ context.Context, id string) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type sentMail struct{ to, subject, text string }

type fakeEmail struct {
	sent []sentMail
	err  error
}

func (f *fakeEmail) Send(_ context.Context, to, subject, text, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, text})
	return nil
}

type fakeBroker struct {
	messaging.NoopBroker
	published []interface{}
	err       error
}

func (b *fakeBroker) Publish(_ context.Context, _ string, msg interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, msg)
	return nil
}

func str(s string) *string { return &s }

var (
	oslo, _ = time.LoadLocation("Europe/Oslo")
	start   = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
)

func newTestService(repo *fakeRepo, mail *fakeEmail, broker *fakeBroker) *Service {
	users := fakeUsers{
		"kari": {ID: "kari", Email: str("kari@example.com"), FirstName: str("Kari")},
		"anon": {ID: "anon"},
	}
	return NewService(repo, users, mail, broker, NewMessages(oslo, "Clinic"), logger.Nop(), Options{
		Now: func() time.Time { return start.Add(-48 * time.Hour) },
	})
}

func TestAppointmentBooked_NotifiesAndEmails(t *testing.T) {
	repo, mail, broker := &fakeRepo{}, &fakeEmail{}, &fakeBroker{}
	svc := newTestService(repo, mail, broker)

	svc.AppointmentBooked(context.Background(), &model.Appointment{UserID: "kari", StartTime: start})

	require.Len(t, repo.items, 1)
	assert.Equal(t, "You have been given an appointment on Monday 02.06.2025 10:00.", repo.items[0].Message)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "kari@example.com", mail.sent[0].to)
	assert.Equal(t, "Hi Kari! Your appointment is confirmed: Monday 02.06.2025 10:00.", mail.sent[0].text)

	require.Len(t, broker.published, 1)
	msg := broker.published[0].(messaging.Message)
	assert.Equal(t, EventCreated, msg.Type)
	assert.Equal(t, int64(1), msg.Payload.(model.NotificationEvent).NotificationID)
}

func TestSideEffectFailuresAreSwallowed(t *testing.T) {
	repo := &fakeRepo{}
	mail := &fakeEmail{err: errors.New("smtp down")}
	broker := &fakeBroker{err: errors.New("redis down")}
	svc := newTestService(repo, mail, broker)

	assert.NotPanics(t, func() {
		svc.AppointmentCancelled(context.Background(), &model.Appointment{UserID: "kari", StartTime: start})
	})
	require.Len(t, repo.items, 1)
	assert.Contains(t, repo.items[0].Message, "cancelled")

	repo.createErr = errors.New("db down")
	svc.AppointmentUpdated(context.Background(), &model.Appointment{UserID: "kari", StartTime: start})
	assert.Len(t, repo.items, 1)
}

func TestNoEmailWithoutAddress(t *testing.T) {
	repo, mail := &fakeRepo{}, &fakeEmail{}
	svc := newTestService(repo, mail, &fakeBroker{})

	svc.AppointmentBooked(context.Background(), &model.Appointment{UserID: "anon", StartTime: start})
	svc.AppointmentBooked(context.Background(), &model.Appointment{UserID: "missing", StartTime: start})

	assert.Len(t, repo.items, 2)
	assert.Empty(t, mail.sent)
}

func TestAppointmentAssigned_NotificationOnly(t *testing.T) {
	repo, mail := &fakeRepo{}, &fakeEmail{}
	svc := newTestService(repo, mail, &fakeBroker{})

	svc.AppointmentAssigned(context.Background(), &model.Appointment{UserID: "kari", StartTime: start})

	require.Len(t, repo.items, 1)
	assert.Equal(t, "You've got an appointment at: Monday 02.06.2025 10:00", repo.items[0].Message)
	assert.Empty(t, mail.sent)
}

func TestInbox(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, &fakeEmail{}, &fakeBroker{})
	ctx := context.Background()

	svc.Notify(ctx, "kari", "one")
	svc.Notify(ctx, "kari", "two")
	svc.Notify(ctx, "ola", "other")

	list, err := svc.List(ctx, "kari", model.NotificationFilters{Take: 500})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, 100, repo.lastList.Take)

	_, err = svc.List(ctx, "kari", model.NotificationFilters{Skip: -3})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.lastList.Skip)
	assert.Equal(t, 20, repo.lastList.Take)

	require.NoError(t, svc.MarkRead(ctx, 1, "kari"))
	require.NoError(t, svc.MarkRead(ctx, 1, "kari"))
	count, err := svc.UnreadCount(ctx, "kari")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = svc.MarkRead(ctx, 3, "kari")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	require.NoError(t, svc.MarkAllRead(ctx, "kari"))
	count, _ = svc.UnreadCount(ctx, "kari")
	assert.Zero(t, count)
}

func TestReminderEmail(t *testing.T) {
	m := NewMessages(oslo, "Clinic")
	subject, text := m.ReminderEmail(&model.User{Email: str("kari@example.com")}, start)

	assert.Equal(t, "Reminder of your appointment at Clinic", subject)
	assert.Contains(t, text, "Hi kari@example.com!")
	assert.Contains(t, text, "on Monday 02.06.2025 at 10:00")
}
