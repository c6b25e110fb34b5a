package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("civil_instant", validateCivilInstant)
}

func validateCivilInstant(fl validator.FieldLevel) bool {
	_, err := appointment.ParseInstant(fl.Field().String(), time.UTC)
	return err == nil
}

type CreateAppointmentRequest struct {
	PractitionerID string `json:"practitioner_id" validate:"required,uuid"`
	ScheduledAt    string `json:"scheduled_at" validate:"required,civil_instant"`
	Reason         string `json:"reason" validate:"max=500"`
}

// UpdateAppointmentRequest is a partial edit: absent fields are left as is.
type UpdateAppointmentRequest struct {
	ScheduledAt *string `json:"scheduled_at" validate:"omitempty,civil_instant"`
	Reason      *string `json:"reason" validate:"omitempty,max=500"`
	OutcomeNote *string `json:"outcome_note" validate:"omitempty,max=2000"`
	Attended    *bool   `json:"attended"`
}

type AppointmentResponse struct {
	ID                    uuid.UUID `json:"id"`
	PractitionerID        uuid.UUID `json:"practitioner_id"`
	PractitionerName      string    `json:"practitioner_name"`
	PractitionerSpecialty string    `json:"practitioner_specialty"`
	ScheduledAt           string    `json:"scheduled_at"`
	PatientName           string    `json:"patient_name"`
	PatientHandle         string    `json:"patient_handle"`
	Reason                string    `json:"reason"`
	OutcomeNote           string    `json:"outcome_note"`
	Attended              bool      `json:"attended"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                    a.ID,
		PractitionerID:        a.PractitionerID,
		PractitionerName:      a.PractitionerName,
		PractitionerSpecialty: a.PractitionerSpecialty,
		ScheduledAt:           a.ScheduledAt.Format(appointment.InstantLayout),
		PatientName:           a.PatientName,
		PatientHandle:         a.PatientHandle,
		Reason:                a.Reason,
		OutcomeNote:           a.OutcomeNote,
		Attended:              a.Attended,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

type PractitionerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	Email     string    `json:"email,omitempty"`
}

type AvailabilityResponse struct {
	PractitionerID uuid.UUID               `json:"practitioner_id"`
	Date           string                  `json:"date"`
	Slots          []appointment.TimeOfDay `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst any) (code, details string, ok bool) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return "invalid_request_body", "could not parse JSON", false
	}
	if err := validate.Struct(dst); err != nil {
		return "validation_failed", formatValidationErrors(err), false
	}
	return "", "", true
}

func formatValidationErrors(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid UUID", field))
		case "civil_instant":
			msgs = append(msgs, fmt.Sprintf("%s must be formatted as %s", field, appointment.InstantLayout))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}
