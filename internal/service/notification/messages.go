package notification

import (
	"fmt"
	"time"

	"github.com/jwalitptl/dental-scheduler/internal/model"
)

const (
	longLayout  = "Monday 02.01.2006 15:04"
	dateLayout  = "Monday 02.01.2006"
	clockLayout = "15:04"
)

// Messages renders patient-facing texts with times in the clinic's zone.
type Messages struct {
	loc    *time.Location
	clinic string
}

func NewMessages(loc *time.Location, clinic string) *Messages {
	if loc == nil {
		loc = time.UTC
	}
	return &Messages{loc: loc, clinic: clinic}
}

func (m *Messages) local(t time.Time) time.Time { return t.In(m.loc) }

func (m *Messages) Booked(start time.Time) string {
	return fmt.Sprintf("You have been given an appointment on %s.", m.local(start).Format(longLayout))
}

func (m *Messages) BookedEmail(u *model.User, start time.Time) (subject, text string) {
	return "Appointment confirmed",
		fmt.Sprintf("Hi %s! Your appointment is confirmed: %s.", u.GreetingName(), m.local(start).Format(longLayout))
}

func (m *Messages) Assigned(start time.Time) string {
	return fmt.Sprintf("You've got an appointment at: %s", m.local(start).Format(longLayout))
}

func (m *Messages) Cancelled(start time.Time) string {
	return fmt.Sprintf("Your appointment on %s has been cancelled.", m.local(start).Format(longLayout))
}

func (m *Messages) CancelledEmail(start time.Time) (subject, text string) {
	return "Appointment cancelled",
		fmt.Sprintf("Your appointment on %s has been cancelled.", m.local(start).Format(longLayout))
}

func (m *Messages) Updated(start time.Time) string {
	return fmt.Sprintf("Your appointment has been moved to %s.", m.local(start).Format(longLayout))
}

func (m *Messages) UpdatedEmail(start time.Time) (subject, text string) {
	return "Appointment updated",
		fmt.Sprintf("New time: %s.", m.local(start).Format(longLayout))
}

func (m *Messages) Reminder(start time.Time) string {
	return fmt.Sprintf("Reminder: you have an appointment tomorrow, %s.", m.local(start).Format(longLayout))
}

func (m *Messages) ReminderEmail(u *model.User, start time.Time) (subject, text string) {
	local := m.local(start)
	subject = fmt.Sprintf("Reminder of your appointment at %s", m.clinic)
	text = fmt.Sprintf("Hi %s!\n\n"+
		"This is a reminder that you have an appointment at %s on %s at %s.\n\n"+
		"If you cannot attend, please contact us as soon as possible.",
		u.GreetingName(), m.clinic, local.Format(dateLayout), local.Format(clockLayout))
	return subject, text
}
