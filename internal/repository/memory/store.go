// Package memory is a process-local implementation of the repository
// interfaces. Provider transactions are serialised with one mutex per
// provider, mirroring the advisory lock of the postgres store, and their
// writes become visible only on commit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
)

type Store struct {
	mu            sync.RWMutex
	seq           int64
	appointments  map[int64]*model.Appointment
	windows       map[int64]*model.AvailabilityWindow
	notifications map[int64]*model.Notification
	users         map[string]*model.User
	treatments    map[int64]*model.Treatment

	locksMu       sync.Mutex
	providerLocks map[int64]*sync.Mutex
	reminderLocks map[int64]bool
}

func New() *Store {
	return &Store{
		appointments:  make(map[int64]*model.Appointment),
		windows:       make(map[int64]*model.AvailabilityWindow),
		notifications: make(map[int64]*model.Notification),
		users:         make(map[string]*model.User),
		treatments:    make(map[int64]*model.Treatment),
		providerLocks: make(map[int64]*sync.Mutex),
		reminderLocks: make(map[int64]bool),
	}
}

var _ repository.UnitOfWork = (*Store)(nil)

func (s *Store) Appointments() repository.AppointmentRepository    { return appointmentRepo{s} }
func (s *Store) Availability() repository.AvailabilityRepository   { return availabilityRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Treatments() repository.TreatmentRepository       { return treatmentRepo{s} }

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Appointments:  s.Appointments(),
		Availability:  s.Availability(),
		Notifications: s.Notifications(),
		Users:         s.Users(),
		Treatments:    s.Treatments(),
		UnitOfWork:    s,
	}
}

// PutUser seeds the user directory.
func (s *Store) PutUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

// PutWindow inserts a window without overlap checks.
func (s *Store) PutWindow(w *model.AvailabilityWindow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = s.nextID()
	cp := *w
	s.windows[w.ID] = &cp
}

// PutAppointment inserts an appointment without conflict checks.
func (s *Store) PutAppointment(a *model.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID()
	if a.Version == 0 {
		a.Version = 1
	}
	cp := *a
	s.appointments[a.ID] = &cp
}

// nextID must be called with mu held.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) providerLock(providerID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.providerLocks[providerID]
	if !ok {
		l = &sync.Mutex{}
		s.providerLocks[providerID] = l
	}
	return l
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func (s *Store) WithinProviderTx(ctx context.Context, providerID int64, fn func(tx repository.ProviderTx) error) error {
	lock := s.providerLock(providerID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &providerTx{
		s:            s,
		appointments: make(map[int64]*model.Appointment),
		windows:      make(map[int64]*model.AvailabilityWindow),
		created:      make(map[int64]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type providerTx struct {
	s            *Store
	appointments map[int64]*model.Appointment
	windows      map[int64]*model.AvailabilityWindow
	created      map[int64]bool
}

// currentAppointments is the committed state overlaid with this tx's writes.
func (t *providerTx) currentAppointments() []*model.Appointment {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make([]*model.Appointment, 0, len(t.s.appointments)+len(t.appointments))
	for id, a := range t.s.appointments {
		if _, shadowed := t.appointments[id]; !shadowed {
			out = append(out, a)
		}
	}
	for _, a := range t.appointments {
		out = append(out, a)
	}
	return out
}

func (t *providerTx) currentWindows() []*model.AvailabilityWindow {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := make([]*model.AvailabilityWindow, 0, len(t.s.windows)+len(t.windows))
	for id, w := range t.s.windows {
		if _, shadowed := t.windows[id]; !shadowed {
			out = append(out, w)
		}
	}
	for _, w := range t.windows {
		out = append(out, w)
	}
	return out
}

func (t *providerTx) HasAppointmentConflict(_ context.Context, providerID int64, start, end time.Time, excludeID int64) (bool, error) {
	for _, a := range t.currentAppointments() {
		if a.ProviderID == providerID && a.ID != excludeID &&
			a.Status != model.AppointmentStatusCancelled &&
			overlaps(a.StartTime, a.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (t *providerTx) CreateAppointment(_ context.Context, a *model.Appointment) error {
	t.s.mu.Lock()
	a.ID = t.s.nextID()
	t.s.mu.Unlock()

	cp := *a
	t.appointments[a.ID] = &cp
	t.created[a.ID] = true
	return nil
}

func (t *providerTx) GetAppointmentForUpdate(_ context.Context, id int64) (*model.Appointment, error) {
	if a, ok := t.appointments[id]; ok {
		cp := *a
		return &cp, nil
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	a, ok := t.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (t *providerTx) UpdateAppointmentSchedule(ctx context.Context, a *model.Appointment, expectedVersion int) error {
	current, err := t.GetAppointmentForUpdate(ctx, a.ID)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return repository.ErrStaleVersion
	}
	current.StartTime = a.StartTime
	current.EndTime = a.EndTime
	current.Notes = a.Notes
	current.Version++
	a.Version = current.Version
	t.appointments[a.ID] = current
	return nil
}

func (t *providerTx) HasWindowOverlap(_ context.Context, providerID int64, start, end time.Time, excludeID int64) (bool, error) {
	for _, w := range t.currentWindows() {
		if w.ProviderID == providerID && w.ID != excludeID && overlaps(w.StartTime, w.EndTime, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (t *providerTx) CreateWindow(_ context.Context, w *model.AvailabilityWindow) error {
	t.s.mu.Lock()
	w.ID = t.s.nextID()
	t.s.mu.Unlock()

	cp := *w
	t.windows[w.ID] = &cp
	t.created[w.ID] = true
	return nil
}

func (t *providerTx) UpdateWindow(_ context.Context, w *model.AvailabilityWindow) error {
	t.s.mu.RLock()
	_, committed := t.s.windows[w.ID]
	t.s.mu.RUnlock()
	if _, pending := t.windows[w.ID]; !committed && !pending {
		return repository.ErrNotFound
	}
	cp := *w
	t.windows[w.ID] = &cp
	return nil
}

func (t *providerTx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for id, a := range t.appointments {
		if t.created[id] {
			t.s.appointments[id] = a
			continue
		}
		// Only schedule fields are written, as with the SQL update. Rows
		// deleted since they were read stay deleted.
		committed, ok := t.s.appointments[id]
		if !ok {
			continue
		}
		cp := *committed
		cp.StartTime, cp.EndTime, cp.Notes = a.StartTime, a.EndTime, a.Notes
		cp.Version = committed.Version + 1
		t.s.appointments[id] = &cp
	}
	for id, w := range t.windows {
		if _, ok := t.s.windows[id]; ok || t.created[id] {
			t.s.windows[id] = w
		}
	}
	return nil
}

func (s *Store) WithinReminderTx(ctx context.Context, fn func(tx repository.ReminderTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &reminderTx{s: s}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type reminderTx struct {
	s             *Store
	locked        []int64
	notifications []*model.Notification
	sent          []int64
}

func (t *reminderTx) LockDueReminder(_ context.Context, appointmentID int64) (bool, error) {
	t.s.locksMu.Lock()
	defer t.s.locksMu.Unlock()
	if t.s.reminderLocks[appointmentID] {
		return false, nil
	}

	t.s.mu.RLock()
	a, ok := t.s.appointments[appointmentID]
	due := ok && !a.Reminder24hSent && a.Status != model.AppointmentStatusCancelled
	t.s.mu.RUnlock()
	if !due {
		return false, nil
	}

	t.s.reminderLocks[appointmentID] = true
	t.locked = append(t.locked, appointmentID)
	return true, nil
}

func (t *reminderTx) CreateNotification(_ context.Context, n *model.Notification) error {
	t.s.mu.Lock()
	n.ID = t.s.nextID()
	t.s.mu.Unlock()

	cp := *n
	t.notifications = append(t.notifications, &cp)
	return nil
}

func (t *reminderTx) MarkReminderSent(_ context.Context, appointmentID int64) error {
	t.s.mu.RLock()
	_, ok := t.s.appointments[appointmentID]
	t.s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}
	t.sent = append(t.sent, appointmentID)
	return nil
}

func (t *reminderTx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, n := range t.notifications {
		t.s.notifications[n.ID] = n
	}
	for _, id := range t.sent {
		if a, ok := t.s.appointments[id]; ok {
			cp := *a
			cp.Reminder24hSent = true
			t.s.appointments[id] = &cp
		}
	}
	return nil
}

func (t *reminderTx) release() {
	t.s.locksMu.Lock()
	defer t.s.locksMu.Unlock()
	for _, id := range t.locked {
		delete(t.s.reminderLocks, id)
	}
}

func sortAppointments(list []*model.Appointment, desc bool) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].StartTime.Equal(list[j].StartTime) {
			if desc {
				return list[i].StartTime.After(list[j].StartTime)
			}
			return list[i].StartTime.Before(list[j].StartTime)
		}
		if desc {
			return list[i].ID > list[j].ID
		}
		return list[i].ID < list[j].ID
	})
}
