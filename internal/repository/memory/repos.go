package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jwalitptl/dental-scheduler/internal/model"
	"github.com/jwalitptl/dental-scheduler/internal/repository"
)

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Get(_ context.Context, id int64) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r appointmentRepo) collect(keep func(a *model.Appointment) bool) []*model.Appointment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Appointment{}
	for _, a := range r.s.appointments {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out
}

func (r appointmentRepo) List(_ context.Context, f *model.AppointmentFilters) ([]*model.Appointment, error) {
	if f == nil {
		f = &model.AppointmentFilters{}
	}
	out := r.collect(func(a *model.Appointment) bool {
		return (f.From.IsZero() || !a.EndTime.Before(f.From)) &&
			(f.To.IsZero() || !a.StartTime.After(f.To)) &&
			(f.ProviderID == 0 || a.ProviderID == f.ProviderID)
	})
	sortAppointments(out, false)
	return out, nil
}

func (r appointmentRepo) ListByUser(_ context.Context, userID string) ([]*model.Appointment, error) {
	out := r.collect(func(a *model.Appointment) bool { return a.UserID == userID })
	sortAppointments(out, true)
	return out, nil
}

func (r appointmentRepo) ListActiveOverlapping(_ context.Context, providerID int64, from, to time.Time) ([]*model.Appointment, error) {
	out := r.collect(func(a *model.Appointment) bool {
		return a.ProviderID == providerID &&
			a.Status != model.AppointmentStatusCancelled &&
			overlaps(a.StartTime, a.EndTime, from, to)
	})
	sortAppointments(out, false)
	return out, nil
}

func (r appointmentRepo) ListDueReminders(_ context.Context, from, to time.Time) ([]*model.Appointment, error) {
	out := r.collect(func(a *model.Appointment) bool {
		return a.Status != model.AppointmentStatusCancelled &&
			!a.Reminder24hSent &&
			a.StartTime.After(from) && !a.StartTime.After(to)
	})
	sortAppointments(out, false)
	return out, nil
}

func (r appointmentRepo) Cancel(_ context.Context, id int64) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	cp.Status = model.AppointmentStatusCancelled
	cp.Version++
	r.s.appointments[id] = &cp
	out := cp
	return &out, nil
}

func (r appointmentRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.appointments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.appointments, id)
	return nil
}

type availabilityRepo struct{ s *Store }

func (r availabilityRepo) Get(_ context.Context, id int64) (*model.AvailabilityWindow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.windows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (r availabilityRepo) collect(keep func(w *model.AvailabilityWindow) bool) []*model.AvailabilityWindow {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.AvailabilityWindow{}
	for _, w := range r.s.windows {
		if keep(w) {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r availabilityRepo) ListOverlapping(_ context.Context, providerID int64, from, to time.Time) ([]*model.AvailabilityWindow, error) {
	return r.collect(func(w *model.AvailabilityWindow) bool {
		return w.ProviderID == providerID && overlaps(w.StartTime, w.EndTime, from, to)
	}), nil
}

func (r availabilityRepo) ListWithin(_ context.Context, providerID int64, from, to time.Time) ([]*model.AvailabilityWindow, error) {
	return r.collect(func(w *model.AvailabilityWindow) bool {
		return w.ProviderID == providerID && !w.StartTime.Before(from) && !w.EndTime.After(to)
	}), nil
}

func (r availabilityRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.windows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.windows, id)
	return nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = r.s.nextID()
	cp := *n
	r.s.notifications[n.ID] = &cp
	return nil
}

func (r notificationRepo) List(_ context.Context, userID string, f *model.NotificationFilters) ([]*model.Notification, error) {
	r.s.mu.RLock()
	all := []*model.Notification{}
	for _, n := range r.s.notifications {
		if n.UserID == userID && (!f.OnlyUnread || !n.IsRead) {
			cp := *n
			all = append(all, &cp)
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if f.Skip >= len(all) {
		return []*model.Notification{}, nil
	}
	all = all[f.Skip:]
	if f.Take > 0 && f.Take < len(all) {
		all = all[:f.Take]
	}
	return all, nil
}

func (r notificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id int64, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (r notificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var changed int64
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Get(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type treatmentRepo struct{ s *Store }

func (r treatmentRepo) Create(_ context.Context, t *model.Treatment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.nextID()
	cp := *t
	r.s.treatments[t.ID] = &cp
	return nil
}

func (r treatmentRepo) Get(_ context.Context, id int64) (*model.Treatment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.treatments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r treatmentRepo) Update(_ context.Context, t *model.Treatment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.treatments[t.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *t
	r.s.treatments[t.ID] = &cp
	return nil
}

func (r treatmentRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.treatments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.treatments, id)
	return nil
}

func (r treatmentRepo) List(_ context.Context) ([]*model.Treatment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.Treatment{}
	for _, t := range r.s.treatments {
		cp := *t
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
