package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
)

func newMock(t *testing.T) (*BaseRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBaseRepository(sqlx.NewDb(db, "postgres")), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var (
	slotStart = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	slotEnd   = slotStart.Add(30 * time.Minute)
)

func newAppointment() *model.Appointment {
	return &model.Appointment{
		UserID:     "patient-1",
		ProviderID: 7,
		StartTime:  slotStart,
		EndTime:    slotEnd,
		Status:     model.AppointmentStatusScheduled,
		Version:    1,
		CreatedAt:  slotStart.Add(-24 * time.Hour),
	}
}

func bookWith(ctx context.Context, store *Store, a *model.Appointment) error {
	return store.WithinProviderTx(ctx, a.ProviderID, func(tx repository.ProviderTx) error {
		conflict, err := tx.HasAppointmentConflict(ctx, a.ProviderID, a.StartTime, a.EndTime, 0)
		if err != nil {
			return err
		}
		if conflict {
			return repository.ErrConflict
		}
		return tx.CreateAppointment(ctx, a)
	})
}

func TestStore_BookLocksProviderThenChecksThenInserts(t *testing.T) {
	base, mock := newMock(t)
	store := NewStore(base)

	mock.ExpectBegin()
	mock.ExpectExec(q("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("AND start_time < $3")).
		WithArgs(int64(7), model.AppointmentStatusCancelled, slotEnd, slotStart, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(q("INSERT INTO appointments")).
		WithArgs("patient-1", int64(7), slotStart, slotEnd, model.AppointmentStatusScheduled, "", 1, false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	a := newAppointment()
	require.NoError(t, bookWith(context.Background(), store, a))
	assert.Equal(t, int64(42), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BookConflictRollsBack(t *testing.T) {
	base, mock := newMock(t)
	store := NewStore(base)

	mock.ExpectBegin()
	mock.ExpectExec(q("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := bookWith(context.Background(), store, newAppointment())
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ExclusionViolationMapsToConflict(t *testing.T) {
	base, mock := newMock(t)
	store := NewStore(base)

	mock.ExpectBegin()
	mock.ExpectExec(q("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(q("INSERT INTO appointments")).
		WillReturnError(&pq.Error{Code: "23P01", Message: "conflicting key value violates exclusion constraint"})
	mock.ExpectRollback()

	err := bookWith(context.Background(), store, newAppointment())
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateScheduleStaleVersion(t *testing.T) {
	base, mock := newMock(t)
	store := NewStore(base)

	mock.ExpectBegin()
	mock.ExpectExec(q("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("WHERE id = $4 AND version = $5")).
		WithArgs(slotStart, slotEnd, "", int64(5), 3).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectRollback()

	a := newAppointment()
	a.ID = 5
	err := store.WithinProviderTx(context.Background(), 7, func(tx repository.ProviderTx) error {
		return tx.UpdateAppointmentSchedule(context.Background(), a, 3)
	})
	assert.ErrorIs(t, err, repository.ErrStaleVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateScheduleBumpsVersion(t *testing.T) {
	base, mock := newMock(t)
	store := NewStore(base)

	mock.ExpectBegin()
	mock.ExpectExec(q("pg_advisory_xact_lock")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("RETURNING version")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))
	mock.ExpectCommit()

	a := newAppointment()
	a.ID = 5
	err := store.WithinProviderTx(context.Background(), 7, func(tx repository.ProviderTx) error {
		return tx.UpdateAppointmentSchedule(context.Background(), a, 3)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, a.Version)
}

func TestStore_ReminderLockSkipsClaimedRow(t *testing.T) {
	base, mock := newMock(t)
	store := NewStore(base)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).
		WithArgs(int64(9), model.AppointmentStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	var locked bool
	err := store.WithinReminderTx(context.Background(), func(tx repository.ReminderTx) error {
		var err error
		locked, err = tx.LockDueReminder(context.Background(), 9)
		return err
	})
	require.NoError(t, err)
	assert.False(t, locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ReminderNotifiesThenFlipsFlag(t *testing.T) {
	base, mock := newMock(t)
	store := NewStore(base)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE SKIP LOCKED")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(q("INSERT INTO notifications")).
		WithArgs("patient-1", "reminder", false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectExec(q("SET reminder_24h_sent = TRUE")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinReminderTx(ctx, func(tx repository.ReminderTx) error {
		ok, err := tx.LockDueReminder(ctx, 9)
		if err != nil || !ok {
			return err
		}
		if err := tx.CreateNotification(ctx, &model.Notification{UserID: "patient-1", Message: "reminder", CreatedAt: slotStart}); err != nil {
			return err
		}
		return tx.MarkReminderSent(ctx, 9)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepository_GetNotFound(t *testing.T) {
	base, mock := newMock(t)
	repo := NewAppointmentRepository(base)

	mock.ExpectQuery(q("FROM appointments WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentRepository_ListAppliesFilters(t *testing.T) {
	base, mock := newMock(t)
	repo := NewAppointmentRepository(base)

	cols := []string{"id", "user_id", "provider_id", "start_time", "end_time", "status", "notes",
		"version", "reminder_24h_sent", "created_at"}
	mock.ExpectQuery(q("AND end_time >= $1 AND start_time <= $2 AND provider_id = $3 ORDER BY start_time")).
		WithArgs(slotStart, slotEnd, int64(7)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "patient-1", 7, slotStart, slotEnd, "Scheduled", "", 1, false, slotStart))

	list, err := repo.List(context.Background(), &model.AppointmentFilters{ProviderID: 7, From: slotStart, To: slotEnd})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.AppointmentStatusScheduled, list[0].Status)
}

func TestAppointmentRepository_DeleteMissing(t *testing.T) {
	base, mock := newMock(t)
	repo := NewAppointmentRepository(base)

	mock.ExpectExec(q("DELETE FROM appointments")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNotificationRepository_MarkReadOtherUser(t *testing.T) {
	base, mock := newMock(t)
	repo := NewNotificationRepository(base)

	mock.ExpectExec(q("UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2")).
		WithArgs(int64(5), "someone-else").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), 5, "someone-else")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNotificationRepository_ListUnreadPage(t *testing.T) {
	base, mock := newMock(t)
	repo := NewNotificationRepository(base)

	mock.ExpectQuery(q("AND is_read = FALSE ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3")).
		WithArgs("u1", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "message", "is_read", "created_at"}).
			AddRow(1, "u1", "hello", false, slotStart))

	items, err := repo.List(context.Background(), "u1", &model.NotificationFilters{Skip: 10, Take: 20, OnlyUnread: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].Message)
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))
	assert.ErrorIs(t, mapError(&pq.Error{Code: "23505"}), repository.ErrConflict)

	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapError(plain))
}

func TestMigrator_LoadSortsAndSkips(t *testing.T) {
	files := fstest.MapFS{
		"002_indexes.sql": {Data: []byte("CREATE INDEX x ON y (z);")},
		"001_init.sql":    {Data: []byte("CREATE TABLE y (z INT);")},
		"README.md":       {Data: []byte("docs")},
		"draft.sql":       {Data: []byte("SELECT 1;")},
	}

	migrations, err := NewMigratorFS(nil, files).Load()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "002_indexes.sql", migrations[1].Name)
}

func TestMigrator_EmbeddedSchema(t *testing.T) {
	migrations, err := NewMigrator(nil).Load()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Contains(t, migrations[0].SQL, "EXCLUDE USING gist")
}

func TestMigrator_UpSkipsApplied(t *testing.T) {
	base, mock := newMock(t)
	files := fstest.MapFS{
		"001_init.sql": {Data: []byte("CREATE TABLE a (id INT);")},
		"002_more.sql": {Data: []byte("CREATE TABLE b (id INT);")},
	}
	m := NewMigratorFS(base.GetDB(), files)

	mock.ExpectExec(q("CREATE TABLE IF NOT EXISTS schema_migrations")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT version, applied_at FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version", "applied_at"}).AddRow(1, slotStart))
	mock.ExpectBegin()
	mock.ExpectExec(q("CREATE TABLE b")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("INSERT INTO schema_migrations")).
		WithArgs(2, "002_more.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := m.Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
