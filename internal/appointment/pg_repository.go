package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SlotConstraint is the unique constraint over (practitioner_id, scheduled_at).
const SlotConstraint = "appointments_practitioner_slot_key"

const pgUniqueViolation = "23505"

const appointmentColumns = `id, practitioner_id, scheduled_at, patient_name, patient_handle,
	reason, outcome_note, attended, practitioner_name, COALESCE(practitioner_specialty, ''),
	created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	var specialty, email *string

	err := row.Scan(&p.ID, &p.Name, &specialty, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}

	if specialty != nil {
		p.Specialty = *specialty
	}
	if email != nil {
		p.Email = *email
	}
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PractitionerID,
		&a.ScheduledAt,
		&a.PatientName,
		&a.PatientHandle,
		&a.Reason,
		&a.OutcomeNote,
		&a.Attended,
		&a.PractitionerName,
		&a.PractitionerSpecialty,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.ScheduledAt = Civil(a.ScheduledAt)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func collectCounts(rows pgx.Rows) ([]Count, error) {
	defer rows.Close()

	var result []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Label, &c.Total); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// mapWriteErr turns the slot uniqueness violation into ErrSlotConflict.
func mapWriteErr(a *Appointment, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == SlotConstraint {
		return conflictErr(a.PractitionerID, a.ScheduledAt)
	}
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Practitioner directory

func (r *PgRepository) FindPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, email
		FROM practitioners
		WHERE id = $1
	`, id)
	return scanPractitioner(row)
}

func (r *PgRepository) ListPractitioners(ctx context.Context) ([]Practitioner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, email
		FROM practitioners
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Appointments

func (r *PgRepository) FindOccupiedTimes(ctx context.Context, practitionerID uuid.UUID, date time.Time) ([]TimeOfDay, error) {
	start, end := DayBounds(date)

	rows, err := r.pool.Query(ctx, `
		SELECT scheduled_at
		FROM appointments
		WHERE practitioner_id = $1
		  AND scheduled_at >= $2
		  AND scheduled_at < $3
		ORDER BY scheduled_at
	`, practitionerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TimeOfDay
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, err
		}
		result = append(result, TimeOf(Civil(at)))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) ExistsConflict(ctx context.Context, practitionerID uuid.UUID, at time.Time, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE practitioner_id = $1
			  AND scheduled_at = $2
			  AND ($3::uuid IS NULL OR id <> $3::uuid)
		)
	`, practitionerID, Civil(at), excludeID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) Save(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, practitioner_id, scheduled_at, patient_name, patient_handle,
			reason, outcome_note, attended, practitioner_name, practitioner_specialty,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+appointmentColumns,
		id, a.PractitionerID, Civil(a.ScheduledAt), a.PatientName, a.PatientHandle,
		a.Reason, a.OutcomeNote, a.Attended, a.PractitionerName, nullableString(a.PractitionerSpecialty),
	)

	saved, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteErr(a, err)
	}
	return saved, nil
}

func (r *PgRepository) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET scheduled_at = $2,
		    reason = $3,
		    outcome_note = $4,
		    attended = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns,
		a.ID, Civil(a.ScheduledAt), a.Reason, a.OutcomeNote, a.Attended,
	)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, mapWriteErr(a, err)
	}
	return updated, nil
}

func (r *PgRepository) FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) List(ctx context.Context, scope ListScope) ([]Appointment, error) {
	var (
		conds []string
		args  []any
	)
	if scope.PractitionerID != nil {
		args = append(args, *scope.PractitionerID)
		conds = append(conds, fmt.Sprintf("practitioner_id = $%d", len(args)))
	}
	if scope.PatientHandle != nil {
		args = append(args, *scope.PatientHandle)
		conds = append(conds, fmt.Sprintf("patient_handle = $%d", len(args)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY scheduled_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindInRange(ctx context.Context, start, end time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE scheduled_at >= $1
		  AND scheduled_at < $2
		ORDER BY scheduled_at, id
	`, Civil(start), Civil(end))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CountBySpecialty(ctx context.Context) ([]Count, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT practitioner_specialty, COUNT(*)
		FROM appointments
		WHERE practitioner_specialty IS NOT NULL
		GROUP BY practitioner_specialty
		ORDER BY practitioner_specialty
	`)
	if err != nil {
		return nil, err
	}
	return collectCounts(rows)
}

func (r *PgRepository) CountByAttendance(ctx context.Context) ([]Count, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT CASE WHEN attended THEN 'attended' ELSE 'pending' END AS label, COUNT(*)
		FROM appointments
		GROUP BY label
		ORDER BY label
	`)
	if err != nil {
		return nil, err
	}
	return collectCounts(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
