package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logger"
	"github.com/hackgods/clinic-scheduling/internal/notify"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var reasons = []string{
	"Annual check-up",
	"Follow-up visit",
	"Chest pain",
	"Skin rash",
	"Back pain",
	"Headaches",
	"Prescription renewal",
	"Lab results review",
}

func main() {
	practitioners := flag.Int("practitioners", 20, "number of practitioners to create")
	bookings := flag.Int("appointments", 200, "number of booking attempts over the next two weeks")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	logg.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresConns)
	if err != nil {
		logg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logg.Fatal("migrate", zap.Error(err))
	}

	ids, err := seedPractitioners(ctx, pool, logg, *practitioners)
	if err != nil {
		logg.Fatal("seed practitioners", zap.Error(err))
	}

	// bookings go through the service so every rule applies; notices are
	// only logged
	repo := appointment.NewPgRepository(pool)
	svc := appointment.NewService(repo, repo, appointment.NewGuard(repo, nil, logg), notify.NewLogSender(zap.NewNop()), logg)
	seedAppointments(ctx, svc, logg, ids, *bookings)
	svc.Wait()

	logg.Info("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, logg *zap.Logger, count int) ([]uuid.UUID, error) {
	logg.Info("seeding practitioners", zap.Int("count", count))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, name, spec, gofakeit.Email())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logg.Info("practitioners seeded")
	return ids, nil
}

func seedAppointments(ctx context.Context, svc *appointment.Service, logg *zap.Logger, practitioners []uuid.UUID, attempts int) {
	if len(practitioners) == 0 {
		return
	}

	slots := appointment.CandidateSlots()
	today := appointment.DateOf(time.Now())

	var booked, conflicts, rejected int
	for i := 0; i < attempts; i++ {
		day := today.AddDate(0, 0, gofakeit.Number(1, 14))
		at := slots[gofakeit.Number(0, len(slots)-1)].On(day)

		patient := appointment.Caller{
			Role:   appointment.RolePatient,
			ID:     uuid.New(),
			Name:   gofakeit.Name(),
			Handle: gofakeit.Email(),
		}

		_, err := svc.Create(ctx, patient, appointment.CreateInput{
			PractitionerID: practitioners[gofakeit.Number(0, len(practitioners)-1)],
			ScheduledAt:    at,
			Reason:         gofakeit.RandomString(reasons),
		})
		switch {
		case err == nil:
			booked++
		case errors.Is(err, appointment.ErrSlotConflict):
			conflicts++
		case errors.Is(err, appointment.ErrClosedDay), errors.Is(err, appointment.ErrOutOfHours):
			rejected++
		default:
			logg.Warn("booking failed", zap.Error(err))
		}
	}

	logg.Info("appointments seeded",
		zap.Int("booked", booked),
		zap.Int("conflicts", conflicts),
		zap.Int("rejected", rejected),
	)
}
