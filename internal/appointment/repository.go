package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all appointment storage interactions needed by the
// service. Instants are civil times (see Civil).
type Repository interface {
	ConflictStore

	// Availability
	FindOccupiedTimes(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]TimeOfDay, error)

	// Save inserts a new appointment and assigns its ID. A duplicate
	// (practitioner, instant) pair must fail with ErrSlotConflict.
	Save(ctx context.Context, a *Appointment) (*Appointment, error)
	// Update overwrites the mutable fields of an existing appointment.
	Update(ctx context.Context, a *Appointment) (*Appointment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)

	List(ctx context.Context, scope ListScope) ([]Appointment, error)
	// FindInRange returns appointments with start <= scheduled_at < end.
	FindInRange(ctx context.Context, start, end time.Time) ([]Appointment, error)

	// Reporting
	CountBySpecialty(ctx context.Context) ([]Count, error)
	CountByAttendance(ctx context.Context) ([]Count, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// PractitionerDirectory is the read-only view of practitioner records.
type PractitionerDirectory interface {
	FindPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	ListPractitioners(ctx context.Context) ([]Practitioner, error)
}
