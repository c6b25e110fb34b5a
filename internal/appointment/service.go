package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/notify"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentUpdated   = "APPOINTMENT_UPDATED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

const defaultNotifyTimeout = 10 * time.Second

type Service struct {
	repo          Repository
	directory     PractitionerDirectory
	guard         *Guard
	notifier      notify.Sender
	log           *zap.Logger
	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

func NewService(repo Repository, directory PractitionerDirectory, guard *Guard, notifier notify.Sender, log *zap.Logger) *Service {
	return &Service{
		repo:          repo,
		directory:     directory,
		guard:         guard,
		notifier:      notifier,
		log:           log,
		notifyTimeout: defaultNotifyTimeout,
	}
}

// Availability returns the free slots of a practitioner on date.
func (s *Service) Availability(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]TimeOfDay, error) {
	occupied, err := s.repo.FindOccupiedTimes(ctx, practitionerID, DateOf(date))
	if err != nil {
		return nil, storageErr("find occupied times", err)
	}
	return SubtractOccupied(CandidateSlots(), occupied), nil
}

func (s *Service) Practitioners(ctx context.Context) ([]Practitioner, error) {
	list, err := s.directory.ListPractitioners(ctx)
	if err != nil {
		return nil, storageErr("list practitioners", err)
	}
	return list, nil
}

// List returns the appointments visible to caller.
func (s *Service) List(ctx context.Context, caller Caller) ([]Appointment, error) {
	scope, err := ScopeFor(caller)
	if err != nil {
		return nil, err
	}

	all, err := s.repo.List(ctx, scope)
	if err != nil {
		return nil, storageErr("list appointments", err)
	}

	visible := make([]Appointment, 0, len(all))
	for i := range all {
		if CanSee(caller, &all[i]) {
			visible = append(visible, all[i])
		}
	}
	return visible, nil
}

// Create books an appointment for the calling patient. The booking is
// confirmed on write; the confirmation notice is sent in the background.
func (s *Service) Create(ctx context.Context, caller Caller, in CreateInput) (*Appointment, error) {
	if caller.Role != RolePatient {
		return nil, fmt.Errorf("%w: only patients can book appointments", ErrForbidden)
	}

	at := Civil(in.ScheduledAt)
	if err := ValidateBookingTime(&at); err != nil {
		return nil, err
	}

	var created *Appointment

	err := s.guard.Reserve(ctx, in.PractitionerID, at, nil, func(ctx context.Context) error {
		practitioner, err := s.directory.FindPractitioner(ctx, in.PractitionerID)
		if err != nil {
			return storageErr("load practitioner", err)
		}

		appt, err := s.repo.Save(ctx, &Appointment{
			PractitionerID:        practitioner.ID,
			ScheduledAt:           at,
			PatientName:           caller.Name,
			PatientHandle:         caller.Handle,
			Reason:                in.Reason,
			PractitionerName:      practitioner.Name,
			PractitionerSpecialty: practitioner.Specialty,
		})
		if err != nil {
			return storageErr("save appointment", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"practitioner_id": created.PractitionerID.String(),
		"scheduled_at":    created.ScheduledAt.Format(InstantLayout),
		"patient_handle":  created.PatientHandle,
	})
	s.sendConfirmation(ctx, *created)

	return created, nil
}

// Update applies a partial edit. A changed instant is validated and
// checked for conflicts against every appointment except this one.
// Ownership is not checked; the caller is only recorded in the event log.
func (s *Service) Update(ctx context.Context, caller Caller, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *existing
	if in.Reason != nil {
		next.Reason = *in.Reason
	}
	if in.OutcomeNote != nil {
		next.OutcomeNote = *in.OutcomeNote
	}
	if in.Attended != nil {
		next.Attended = *in.Attended
	}

	save := func(ctx context.Context) (*Appointment, error) {
		updated, err := s.repo.Update(ctx, &next)
		if err != nil {
			return nil, storageErr("update appointment", err)
		}
		return updated, nil
	}

	var updated *Appointment
	moved := in.ScheduledAt != nil && !Civil(*in.ScheduledAt).Equal(existing.ScheduledAt)

	if moved {
		at := Civil(*in.ScheduledAt)
		if err := ValidateBookingTime(&at); err != nil {
			return nil, err
		}
		next.ScheduledAt = at

		err = s.guard.Reserve(ctx, existing.PractitionerID, at, &existing.ID, func(ctx context.Context) error {
			var err error
			updated, err = save(ctx)
			return err
		})
	} else {
		updated, err = save(ctx)
	}
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"attended": updated.Attended, "by_role": string(caller.Role)}
	if moved {
		payload["from"] = existing.ScheduledAt.Format(InstantLayout)
		payload["to"] = updated.ScheduledAt.Format(InstantLayout)
	}
	s.logEvent(ctx, updated.ID, EventAppointmentUpdated, payload)

	return updated, nil
}

// Delete cancels an appointment. Any existing appointment is removed.
func (s *Service) Delete(ctx context.Context, caller Caller, id uuid.UUID) error {
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return storageErr("delete appointment", err)
	}
	if !deleted {
		return ErrAppointmentNotFound
	}

	s.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{
		"practitioner_id": existing.PractitionerID.String(),
		"scheduled_at":    existing.ScheduledAt.Format(InstantLayout),
		"by_role":         string(caller.Role),
	})
	return nil
}

// Stats summarises bookings per specialty and attendance. Admin only.
func (s *Service) Stats(ctx context.Context, caller Caller) (*Dashboard, error) {
	if caller.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: statistics are restricted to administrators", ErrForbidden)
	}

	specialties, err := s.repo.CountBySpecialty(ctx)
	if err != nil {
		return nil, storageErr("count by specialty", err)
	}
	attendance, err := s.repo.CountByAttendance(ctx)
	if err != nil {
		return nil, storageErr("count by attendance", err)
	}

	return &Dashboard{Specialties: specialties, Attendance: attendance}, nil
}

// Wait blocks until in-flight confirmation notices are done.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storageErr("load appointment", err)
	}
	return appt, nil
}

func (s *Service) sendConfirmation(ctx context.Context, appt Appointment) {
	// token subjects stand in for handles when no email claim is present
	recipient := strings.TrimSpace(appt.PatientHandle)
	if !notify.IsEmailAddress(recipient) {
		s.log.Debug("no email address for booking confirmation",
			zap.String("appointment_id", appt.ID.String()),
		)
		return
	}

	subject, body := notify.ConfirmationMessage(notify.Booking{
		PatientName:      appt.PatientName,
		ScheduledAt:      appt.ScheduledAt,
		PractitionerName: appt.PractitionerName,
		Specialty:        appt.PractitionerSpecialty,
		Reason:           appt.Reason,
	})

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()

		if err := s.notifier.Send(sendCtx, recipient, subject, body); err != nil {
			s.log.Warn("failed to send booking confirmation",
				zap.String("appointment_id", appt.ID.String()),
				zap.String("recipient", recipient),
				zap.Error(err),
			)
			return
		}
		s.log.Info("booking confirmation sent",
			zap.String("appointment_id", appt.ID.String()),
			zap.String("recipient", recipient),
		)
	}()
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
