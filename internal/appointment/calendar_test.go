package appointment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCivilKeepsWallClock(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	at := time.Date(2025, 3, 10, 9, 30, 15, 999, loc)

	civil := Civil(at)
	assert.Equal(t, time.UTC, civil.Location())
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 30, Second: 15}, TimeOf(civil))
	assert.Equal(t, 10, civil.Day())
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(time.Date(2025, 2, 1, 13, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), end)
}

func TestTimeOfDayFormatting(t *testing.T) {
	assert.Equal(t, "09:00", NewTimeOfDay(9, 0).String())
	assert.Equal(t, "09:00:30", TimeOfDay{Hour: 9, Second: 30}.String())

	data, err := json.Marshal([]TimeOfDay{NewTimeOfDay(9, 0), NewTimeOfDay(16, 30)})
	require.NoError(t, err)
	assert.JSONEq(t, `["09:00","16:30"]`, string(data))
}

func TestParseInstant(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)

	got, err := ParseInstant("2025-03-10T09:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), got)

	got, err = ParseInstant("2025-03-10T09:00:30", loc)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Second())

	got, err = ParseInstant("2025-03-10T12:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), got)

	_, err = ParseInstant("10/03/2025 09:00", loc)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, Weekday(d))

	_, err = ParseDate("2025-13-01")
	assert.Error(t, err)
}
