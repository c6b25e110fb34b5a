package appointment

import (
	"fmt"

	"github.com/google/uuid"
)

// ListScope narrows a storage listing. Nil fields do not filter.
type ListScope struct {
	PractitionerID *uuid.UUID
	PatientHandle  *string
}

// CanSee reports whether caller may observe a.
func CanSee(caller Caller, a *Appointment) bool {
	switch caller.Role {
	case RoleAdmin:
		return true
	case RolePractitioner:
		return caller.ID != uuid.Nil && a.PractitionerID == caller.ID
	case RolePatient:
		return caller.Handle != "" && a.PatientHandle == caller.Handle
	default:
		return false
	}
}

// ScopeFor pushes the visibility rule of CanSee down to storage.
func ScopeFor(caller Caller) (ListScope, error) {
	switch caller.Role {
	case RoleAdmin:
		return ListScope{}, nil
	case RolePractitioner:
		id := caller.ID
		return ListScope{PractitionerID: &id}, nil
	case RolePatient:
		handle := caller.Handle
		return ListScope{PatientHandle: &handle}, nil
	default:
		return ListScope{}, fmt.Errorf("%w: unknown role %q", ErrForbidden, caller.Role)
	}
}
