// Package reminder sends day-before notices for upcoming appointments.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/notify"
)

// Finder returns appointments with start <= scheduled_at < end.
type Finder interface {
	FindInRange(ctx context.Context, start, end time.Time) ([]appointment.Appointment, error)
}

// Result summarises one reminder run.
type Result struct {
	Target   time.Time
	Selected int
	Sent     int
	Skipped  int
	Failed   int
}

type Job struct {
	store  Finder
	sender notify.Sender
	log    *zap.Logger
	loc    *time.Location
}

// NewJob builds a reminder job. The target day is computed in loc, the
// clinic's zone.
func NewJob(store Finder, sender notify.Sender, loc *time.Location, log *zap.Logger) *Job {
	if loc == nil {
		loc = time.UTC
	}
	return &Job{store: store, sender: sender, log: log, loc: loc}
}

// Target returns the calendar day whose appointments a run at tick reminds.
func (j *Job) Target(tick time.Time) time.Time {
	return appointment.DateOf(tick.In(j.loc)).AddDate(0, 0, 1)
}

// Run reminds every patient booked on the day after tick. Failures for a
// single appointment are logged and do not stop the run.
func (j *Job) Run(ctx context.Context, tick time.Time) (Result, error) {
	res := Result{Target: j.Target(tick)}
	start, end := appointment.DayBounds(res.Target)

	appts, err := j.store.FindInRange(ctx, start, end)
	if err != nil {
		return res, fmt.Errorf("find appointments for %s: %w", res.Target.Format(appointment.DateLayout), err)
	}
	res.Selected = len(appts)

	for _, a := range appts {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		recipient := strings.TrimSpace(a.PatientHandle)
		if !notify.IsEmailAddress(recipient) {
			res.Skipped++
			j.log.Debug("reminder skipped, no email address",
				zap.String("appointment_id", a.ID.String()),
			)
			continue
		}

		subject, body := notify.ReminderMessage(notify.Booking{
			PatientName:      a.PatientName,
			ScheduledAt:      a.ScheduledAt,
			PractitionerName: a.PractitionerName,
			Specialty:        a.PractitionerSpecialty,
			Reason:           a.Reason,
		})

		if err := j.sender.Send(ctx, recipient, subject, body); err != nil {
			res.Failed++
			j.log.Warn("failed to send reminder",
				zap.String("appointment_id", a.ID.String()),
				zap.String("recipient", recipient),
				zap.Error(err),
			)
			continue
		}
		res.Sent++
	}

	return res, nil
}
