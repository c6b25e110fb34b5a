package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateBookingTimeNilSkips(t *testing.T) {
	assert.NoError(t, ValidateBookingTime(nil))
}

func TestValidateBookingTimeRejectsSundays(t *testing.T) {
	// every hour of a Sunday, including ones that are also out of hours
	sunday := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24; h++ {
		at := sunday.Add(time.Duration(h) * time.Hour)
		err := ValidateBookingTime(&at)
		assert.ErrorIs(t, err, ErrClosedDay, "hour %d", h)
		assert.NotErrorIs(t, err, ErrOutOfHours)
	}
}

func TestValidateBookingTimeHours(t *testing.T) {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		at   time.Time
		want error
	}{
		{"before opening", monday.Add(7*time.Hour + 59*time.Minute), ErrOutOfHours},
		{"opening", monday.Add(8 * time.Hour), nil},
		{"midday", monday.Add(12*time.Hour + 30*time.Minute), nil},
		{"last hour", monday.Add(18 * time.Hour), nil},
		{"inside last hour", monday.Add(18*time.Hour + 45*time.Minute), nil},
		{"after closing", monday.Add(19 * time.Hour), ErrOutOfHours},
		{"midnight", monday, ErrOutOfHours},
		{"saturday", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBookingTime(&tc.at)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateBookingTimeExplainsRule(t *testing.T) {
	at := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	err := ValidateBookingTime(&at)
	assert.EqualError(t, err, "outside operating hours: bookings are accepted from 08:00 to 18:00, got 20:00")

	sunday := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	assert.EqualError(t, ValidateBookingTime(&sunday), "closed day: the clinic is closed on Sundays")
}
