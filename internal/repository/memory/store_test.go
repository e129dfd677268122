package memory

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
)

var t0 = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func TestProviderTx_RollbackDiscardsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinProviderTx(ctx, 1, func(tx repository.ProviderTx) error {
		require.NoError(t, tx.CreateAppointment(ctx, &model.Appointment{ProviderID: 1, StartTime: t0, EndTime: t0.Add(time.Hour)}))
		conflict, err := tx.HasAppointmentConflict(ctx, 1, t0, t0.Add(time.Hour), 0)
		require.NoError(t, err)
		assert.True(t, conflict, "own pending write is visible inside the tx")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, _ := s.Appointments().List(ctx, nil)
	assert.Empty(t, list)
}

func TestProviderTx_SerialisesSameProvider(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinProviderTx(ctx, 1, func(tx repository.ProviderTx) error {
				conflict, err := tx.HasAppointmentConflict(ctx, 1, t0, t0.Add(30*time.Minute), 0)
				if err != nil || conflict {
					return repository.ErrConflict
				}
				return tx.CreateAppointment(ctx, &model.Appointment{ProviderID: 1, StartTime: t0, EndTime: t0.Add(30 * time.Minute)})
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestProviderTx_UpdateKeepsConcurrentCancel(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := &model.Appointment{ProviderID: 1, StartTime: t0, EndTime: t0.Add(time.Hour), Status: model.AppointmentStatusScheduled}
	s.PutAppointment(a)

	err := s.WithinProviderTx(ctx, 1, func(tx repository.ProviderTx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, a.ID)
		require.NoError(t, err)
		current.StartTime = t0.Add(2 * time.Hour)
		current.EndTime = t0.Add(3 * time.Hour)
		require.NoError(t, tx.UpdateAppointmentSchedule(ctx, current, 1))

		_, err = s.Appointments().Cancel(ctx, a.ID)
		return err
	})
	require.NoError(t, err)

	got, _ := s.Appointments().Get(ctx, a.ID)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
	assert.Equal(t, t0.Add(2*time.Hour), got.StartTime)
}

func TestReminderTx_LockIsExclusive(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := &model.Appointment{UserID: "u1", ProviderID: 1, StartTime: t0, EndTime: t0.Add(time.Hour)}
	s.PutAppointment(a)

	err := s.WithinReminderTx(ctx, func(tx repository.ReminderTx) error {
		ok, err := tx.LockDueReminder(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, ok)

		// A second sweep sees the row as locked.
		_ = s.WithinReminderTx(ctx, func(other repository.ReminderTx) error {
			ok, err := other.LockDueReminder(ctx, a.ID)
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		})

		require.NoError(t, tx.CreateNotification(ctx, &model.Notification{UserID: "u1", Message: "reminder"}))
		return tx.MarkReminderSent(ctx, a.ID)
	})
	require.NoError(t, err)

	got, _ := s.Appointments().Get(ctx, a.ID)
	assert.True(t, got.Reminder24hSent)
	count, _ := s.Notifications().CountUnread(ctx, "u1")
	assert.Equal(t, 1, count)

	// Already sent.
	_ = s.WithinReminderTx(ctx, func(tx repository.ReminderTx) error {
		ok, err := tx.LockDueReminder(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

func TestNotificationRepo_Paging(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.Notifications()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &model.Notification{UserID: "u1", Message: string(rune('a' + i)), CreatedAt: t0.Add(time.Duration(i) * time.Minute)}))
	}

	page, err := repo.List(ctx, "u1", &model.NotificationFilters{Skip: 1, Take: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].Message)
	assert.Equal(t, "c", page[1].Message)

	page, _ = repo.List(ctx, "u1", &model.NotificationFilters{Skip: 10, Take: 2})
	assert.Empty(t, page)
}
