package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup. The appointments unique
// constraint backs the booking conflict guard and its name is matched in
// appointment.SlotConstraint.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS practitioners (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		specialty  TEXT,
		email      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id                     UUID PRIMARY KEY,
		practitioner_id        UUID NOT NULL,
		scheduled_at           TIMESTAMP NOT NULL,
		patient_name           TEXT NOT NULL DEFAULT '',
		patient_handle         TEXT NOT NULL DEFAULT '',
		reason                 TEXT NOT NULL DEFAULT '',
		outcome_note           TEXT NOT NULL DEFAULT '',
		attended               BOOLEAN NOT NULL DEFAULT false,
		practitioner_name      TEXT NOT NULL DEFAULT '',
		practitioner_specialty TEXT,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT appointments_practitioner_slot_key UNIQUE (practitioner_id, scheduled_at)
	)`,
	`CREATE INDEX IF NOT EXISTS appointments_scheduled_at_idx ON appointments (scheduled_at)`,
	`CREATE INDEX IF NOT EXISTS appointments_patient_handle_idx ON appointments (patient_handle)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		id             BIGSERIAL PRIMARY KEY,
		event_type     TEXT NOT NULL,
		appointment_id UUID,
		payload        JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables the service needs if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
