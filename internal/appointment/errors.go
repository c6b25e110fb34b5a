package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrClosedDay    = errors.New("closed day")
	ErrOutOfHours   = errors.New("outside operating hours")
	ErrSlotConflict = errors.New("slot conflict")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrTransient    = errors.New("temporarily unavailable")

	ErrAppointmentNotFound  = fmt.Errorf("appointment %w", ErrNotFound)
	ErrPractitionerNotFound = fmt.Errorf("practitioner %w", ErrNotFound)
)

var domainErrors = []error{ErrClosedDay, ErrOutOfHours, ErrSlotConflict, ErrNotFound, ErrForbidden, ErrTransient}

// storageErr passes domain errors through untouched and marks everything
// else, context expiry included, as a transient infrastructure failure.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range domainErrors {
		if errors.Is(err, domain) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
