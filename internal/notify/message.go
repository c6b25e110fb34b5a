package notify

import (
	"fmt"
	"strings"
	"time"
)

const clinicName = "Clínica Integral"

// Booking is the data shown to a patient about one appointment.
type Booking struct {
	PatientName      string
	ScheduledAt      time.Time
	PractitionerName string
	Specialty        string
	Reason           string
}

// ConfirmationMessage renders the notice sent right after a booking.
func ConfirmationMessage(b Booking) (subject, body string) {
	subject = "Appointment confirmation - " + clinicName

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hello %s,\n\n", b.PatientName)
	sb.WriteString("Your appointment has been booked.\n\n")
	fmt.Fprintf(&sb, "Date: %s\n", b.ScheduledAt.Format("02/01/2006"))
	fmt.Fprintf(&sb, "Time: %s\n", b.ScheduledAt.Format("15:04"))
	fmt.Fprintf(&sb, "Practitioner: %s\n", b.PractitionerName)
	fmt.Fprintf(&sb, "Reason: %s\n\n", b.Reason)
	sb.WriteString("Please be on time.\n")
	fmt.Fprintf(&sb, "Regards, %s.", clinicName)

	return subject, sb.String()
}

// ReminderMessage renders the day-before reminder.
func ReminderMessage(b Booking) (subject, body string) {
	subject = "Appointment reminder - " + clinicName

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hello %s,\n\n", b.PatientName)
	fmt.Fprintf(&sb, "This is a reminder of your appointment tomorrow (%s) at %s with %s.\n\n",
		b.ScheduledAt.Format("2006-01-02"), b.ScheduledAt.Format("15:04"), b.PractitionerName)
	fmt.Fprintf(&sb, "Specialty: %s\n", b.Specialty)
	fmt.Fprintf(&sb, "Reason: %s\n\n", b.Reason)
	sb.WriteString("Please arrive 10 minutes early.\n\n")
	fmt.Fprintf(&sb, "Regards,\n%s", clinicName)

	return subject, sb.String()
}
