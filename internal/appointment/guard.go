package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/clinic-scheduling/internal/redis"
)

// ConflictStore answers whether a (practitioner, instant) pair is taken.
type ConflictStore interface {
	ExistsConflict(ctx context.Context, practitionerID uuid.UUID, at time.Time, excludeID *uuid.UUID) (bool, error)
}

// SlotLocker serialises work on one (practitioner, instant) pair across
// processes. *redisclient.Locker implements it.
type SlotLocker interface {
	WithSlotLock(ctx context.Context, practitionerID uuid.UUID, at time.Time, fn func(ctx context.Context) error) error
}

// Guard keeps at most one appointment per practitioner and instant.
//
// The store's uniqueness constraint is the source of truth: writes passed to
// Reserve must report a violation as ErrSlotConflict. The existence check
// and the optional slot lock sit in front of it so that ordinary contention
// is resolved without a failed insert.
type Guard struct {
	store  ConflictStore
	locker SlotLocker
	log    *zap.Logger
}

// NewGuard builds a guard. locker may be nil.
func NewGuard(store ConflictStore, locker SlotLocker, log *zap.Logger) *Guard {
	return &Guard{store: store, locker: locker, log: log}
}

// Reserve checks that the slot is free, ignoring excludeID, and then runs
// write. Nothing is written when the slot is taken.
func (g *Guard) Reserve(ctx context.Context, practitionerID uuid.UUID, at time.Time, excludeID *uuid.UUID, write func(ctx context.Context) error) error {
	run := func(ctx context.Context) error {
		taken, err := g.store.ExistsConflict(ctx, practitionerID, at, excludeID)
		if err != nil {
			return storageErr("check slot conflict", err)
		}
		if taken {
			return conflictErr(practitionerID, at)
		}
		return write(ctx)
	}

	if g.locker == nil {
		return run(ctx)
	}

	err := g.locker.WithSlotLock(ctx, practitionerID, at, run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redisclient.ErrLockUnavailable):
		g.log.Warn("slot lock unavailable, relying on storage constraint",
			zap.String("practitioner_id", practitionerID.String()),
			zap.Time("scheduled_at", at),
			zap.Error(err),
		)
		return run(ctx)
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		// the holder is still writing; the unique constraint decides
		g.log.Debug("slot lock busy, relying on storage constraint",
			zap.String("practitioner_id", practitionerID.String()),
			zap.Time("scheduled_at", at),
		)
		return run(ctx)
	default:
		return storageErr("reserve slot", err)
	}
}

func conflictErr(practitionerID uuid.UUID, at time.Time) error {
	return fmt.Errorf("%w: practitioner %s already has an appointment at %s",
		ErrSlotConflict, practitionerID, at.Format("2006-01-02 15:04"))
}
