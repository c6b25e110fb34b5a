package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is one booked visit. PractitionerName and PractitionerSpecialty
// are copied from the directory at booking time and are never refreshed.
type Appointment struct {
	ID                    uuid.UUID
	PractitionerID        uuid.UUID
	ScheduledAt           time.Time
	PatientName           string
	PatientHandle         string
	Reason                string
	OutcomeNote           string
	Attended              bool
	PractitionerName      string
	PractitionerSpecialty string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Practitioner struct {
	ID        uuid.UUID
	Name      string
	Specialty string
	Email     string
}

type Role string

const (
	RoleAdmin        Role = "admin"
	RolePractitioner Role = "practitioner"
	RolePatient      Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePractitioner, RolePatient:
		return true
	}
	return false
}

// Caller is the identity attached to a request by the identity layer.
// It is trusted as-is. ID is the practitioner id for practitioners;
// Handle is the patient's contact address.
type Caller struct {
	Role   Role
	ID     uuid.UUID
	Name   string
	Handle string
}

type CreateInput struct {
	PractitionerID uuid.UUID
	ScheduledAt    time.Time
	Reason         string
}

// UpdateInput carries a partial edit; nil fields are left unchanged.
type UpdateInput struct {
	ScheduledAt *time.Time
	Reason      *string
	OutcomeNote *string
	Attended    *bool
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type Count struct {
	Label string `json:"label"`
	Total int64  `json:"total"`
}

type Dashboard struct {
	Specialties []Count `json:"specialties"`
	Attendance  []Count `json:"attendance"`
}
