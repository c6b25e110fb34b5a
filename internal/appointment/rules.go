package appointment

import (
	"fmt"
	"time"
)

// Clinic operating window for bookings.
const (
	ClosedWeekday = time.Sunday
	OpeningHour   = 8
	ClosingHour   = 18 // last accepted hour value, inclusive
)

// ValidateBookingTime checks a proposed instant against the operating
// window. A nil instant means the caller is not changing the time.
func ValidateBookingTime(at *time.Time) error {
	if at == nil {
		return nil
	}

	if Weekday(*at) == ClosedWeekday {
		return fmt.Errorf("%w: the clinic is closed on %ss", ErrClosedDay, ClosedWeekday)
	}

	hour := TimeOf(*at).Hour
	if hour < OpeningHour || hour > ClosingHour {
		return fmt.Errorf("%w: bookings are accepted from %02d:00 to %02d:00, got %s",
			ErrOutOfHours, OpeningHour, ClosingHour, TimeOf(*at))
	}

	return nil
}
