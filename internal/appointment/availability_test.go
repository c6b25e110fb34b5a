package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCandidateSlots(t *testing.T) {
	slots := CandidateSlots()

	require.Len(t, slots, 16)
	assert.Equal(t, "09:00", slots[0].String())
	assert.Equal(t, "16:30", slots[len(slots)-1].String())

	for i := 1; i < len(slots); i++ {
		gap := slots[i].On(time.Time{}).Sub(slots[i-1].On(time.Time{}))
		assert.Equal(t, 30*time.Minute, gap)
	}
}

func TestSubtractOccupied(t *testing.T) {
	candidates := CandidateSlots()

	t.Run("removes occupied and keeps order", func(t *testing.T) {
		occupied := []TimeOfDay{NewTimeOfDay(16, 30), NewTimeOfDay(9, 0), NewTimeOfDay(12, 0)}
		free := SubtractOccupied(candidates, occupied)

		require.Len(t, free, 13)
		assert.Equal(t, "09:30", free[0].String())
		assert.NotContains(t, free, NewTimeOfDay(12, 0))
		for i := 1; i < len(free); i++ {
			assert.True(t, free[i-1].Before(free[i]))
		}
	})

	t.Run("ignores times outside the window", func(t *testing.T) {
		occupied := []TimeOfDay{NewTimeOfDay(8, 0), NewTimeOfDay(17, 0), NewTimeOfDay(18, 30)}
		assert.Equal(t, candidates, SubtractOccupied(candidates, occupied))
	})

	t.Run("no rounding of near misses", func(t *testing.T) {
		occupied := []TimeOfDay{{Hour: 9, Minute: 0, Second: 30}, NewTimeOfDay(9, 15)}
		assert.Equal(t, candidates, SubtractOccupied(candidates, occupied))
	})

	t.Run("duplicates in occupied", func(t *testing.T) {
		occupied := []TimeOfDay{NewTimeOfDay(10, 0), NewTimeOfDay(10, 0)}
		assert.Len(t, SubtractOccupied(candidates, occupied), 15)
	})

	t.Run("fully booked", func(t *testing.T) {
		assert.Empty(t, SubtractOccupied(candidates, candidates))
	})
}

func TestServiceAvailability(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, store, NewGuard(store, nil, zap.NewNop()), &recordingSender{}, zap.NewNop())
	p := store.addPractitioner("Dr. Ruiz", "Cardiology")

	store.seed(Appointment{PractitionerID: p.ID, ScheduledAt: time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)})
	store.seed(Appointment{PractitionerID: p.ID, ScheduledAt: time.Date(2025, 3, 11, 11, 0, 0, 0, time.UTC)})
	store.seed(Appointment{PractitionerID: uuid.New(), ScheduledAt: time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)})

	free, err := svc.Availability(context.Background(), p.ID, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, free, 15)
	assert.NotContains(t, free, NewTimeOfDay(10, 30))
	assert.Contains(t, free, NewTimeOfDay(11, 0))

	t.Run("unknown practitioner gets every slot", func(t *testing.T) {
		free, err := svc.Availability(context.Background(), uuid.New(), time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Len(t, free, 16)
	})

	t.Run("storage failure is transient", func(t *testing.T) {
		store.failWith = errBoom
		defer func() { store.failWith = nil }()

		_, err := svc.Availability(context.Background(), p.ID, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
		assert.ErrorIs(t, err, ErrTransient)
	})
}
