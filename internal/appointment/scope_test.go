package appointment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanSee(t *testing.T) {
	drA, drB := uuid.New(), uuid.New()
	appt := &Appointment{PractitionerID: drA, PatientHandle: "ana@example.com"}

	cases := []struct {
		name   string
		caller Caller
		want   bool
	}{
		{"admin", Caller{Role: RoleAdmin}, true},
		{"own practitioner", Caller{Role: RolePractitioner, ID: drA}, true},
		{"other practitioner", Caller{Role: RolePractitioner, ID: drB}, false},
		{"practitioner without id", Caller{Role: RolePractitioner}, false},
		{"own patient", Caller{Role: RolePatient, Handle: "ana@example.com"}, true},
		{"other patient", Caller{Role: RolePatient, Handle: "bob@example.com"}, false},
		{"patient without handle", Caller{Role: RolePatient}, false},
		{"unknown role", Caller{Role: "receptionist"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanSee(tc.caller, appt))
		})
	}
}

func TestScopeFor(t *testing.T) {
	dr := uuid.New()

	scope, err := ScopeFor(Caller{Role: RoleAdmin})
	require.NoError(t, err)
	assert.Nil(t, scope.PractitionerID)
	assert.Nil(t, scope.PatientHandle)

	scope, err = ScopeFor(Caller{Role: RolePractitioner, ID: dr})
	require.NoError(t, err)
	require.NotNil(t, scope.PractitionerID)
	assert.Equal(t, dr, *scope.PractitionerID)

	scope, err = ScopeFor(Caller{Role: RolePatient, Handle: "ana@example.com"})
	require.NoError(t, err)
	require.NotNil(t, scope.PatientHandle)
	assert.Equal(t, "ana@example.com", *scope.PatientHandle)

	_, err = ScopeFor(Caller{Role: "guest"})
	assert.ErrorIs(t, err, ErrForbidden)
}
