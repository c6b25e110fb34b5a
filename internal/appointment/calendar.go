package appointment

import (
	"fmt"
	"time"
)

const (
	DateLayout    = "2006-01-02"
	InstantLayout = "2006-01-02T15:04:05"
)

// TimeOfDay is a wall clock reading with second precision.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// TimeOf extracts the time of day of t in its own location.
func TimeOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay{Hour: h, Minute: m, Second: s}
}

func (d TimeOfDay) secondsOfDay() int {
	return d.Hour*3600 + d.Minute*60 + d.Second
}

func (d TimeOfDay) Before(other TimeOfDay) bool {
	return d.secondsOfDay() < other.secondsOfDay()
}

func (d TimeOfDay) Add(dur time.Duration) TimeOfDay {
	total := d.secondsOfDay() + int(dur/time.Second)
	return TimeOfDay{Hour: total / 3600, Minute: (total % 3600) / 60, Second: total % 60}
}

// On places the time of day on the given calendar date.
func (d TimeOfDay) On(date time.Time) time.Time {
	y, m, day := date.Date()
	return time.Date(y, m, day, d.Hour, d.Minute, d.Second, 0, time.UTC)
}

// String renders HH:MM, or HH:MM:SS when seconds are set.
func (d TimeOfDay) String() string {
	if d.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", d.Hour, d.Minute, d.Second)
	}
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

func (d TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Civil reinterprets the wall clock reading of t as a zone-less clinic time.
// All scheduled instants are kept in this form so that storage and
// comparisons never shift them.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	h, min, s := t.Clock()
	return time.Date(y, m, d, h, min, s, 0, time.UTC)
}

// DateOf truncates t to the start of its calendar day in civil form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayBounds returns the half open range [start, end) covering date.
func DayBounds(date time.Time) (time.Time, time.Time) {
	start := DateOf(date)
	return start, start.AddDate(0, 0, 1)
}

func Weekday(t time.Time) time.Weekday {
	return t.Weekday()
}

func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be formatted as %s: %w", DateLayout, err)
	}
	return d, nil
}

// ParseInstant accepts a civil date-time with or without seconds. Zoned
// RFC 3339 values are converted to loc before the zone is dropped.
func ParseInstant(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{InstantLayout, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("instant must be formatted as %s: %w", InstantLayout, err)
	}
	if loc != nil {
		t = t.In(loc)
	}
	return Civil(t), nil
}
