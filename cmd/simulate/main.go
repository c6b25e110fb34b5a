package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/api"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/logger"
)

// SimConfig drives a contention run: every round fires Contenders
// concurrent bookings at one free slot of one practitioner.
type SimConfig struct {
	APIBaseURL string
	JWTSecret  []byte
	Rounds     int
	Contenders int
	Date       time.Time
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min95(len(latencies))]
	return avg, min, max, p50, p95
}

func min95(n int) int {
	idx := n * 95 / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	log     *zap.Logger
	booking OperationMetrics

	// rounds where more than one booking succeeded
	violations int64
	rounds     int64
}

func main() {
	_ = godotenv.Load()

	logg, err := logger.New(getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"))
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	cfg, err := loadConfig()
	if err != nil {
		logg.Fatal("invalid config", zap.Error(err))
	}

	logg.Info("simulator starting",
		zap.String("api", cfg.APIBaseURL),
		zap.Int("rounds", cfg.Rounds),
		zap.Int("contenders", cfg.Contenders),
		zap.String("date", cfg.Date.Format(appointment.DateLayout)),
	)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    logg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := sim.Run(ctx); err != nil {
		logg.Fatal("simulation failed", zap.Error(err))
	}
	sim.PrintReport()
}

func loadConfig() (SimConfig, error) {
	cfg := SimConfig{
		APIBaseURL: strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),
		Rounds:     getInt("SIM_ROUNDS", 20),
		Contenders: getInt("SIM_CONTENDERS", 25),
		Date:       nextWeekday(time.Now()),
	}

	if raw := os.Getenv("SIM_DATE"); raw != "" {
		d, err := appointment.ParseDate(raw)
		if err != nil {
			return cfg, fmt.Errorf("SIM_DATE: %w", err)
		}
		cfg.Date = d
	}
	if len(cfg.JWTSecret) == 0 {
		return cfg, fmt.Errorf("JWT_SECRET is required to sign simulated callers")
	}
	if cfg.Rounds <= 0 || cfg.Contenders <= 1 {
		return cfg, fmt.Errorf("SIM_ROUNDS must be > 0 and SIM_CONTENDERS > 1")
	}
	return cfg, nil
}

// nextWeekday returns the first open clinic day after now.
func nextWeekday(now time.Time) time.Time {
	d := appointment.DateOf(now).AddDate(0, 0, 1)
	for appointment.Weekday(d) == appointment.ClosedWeekday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// Run books rounds one after another, each against a slot that is free at
// the start of the round.
func (s *Simulator) Run(ctx context.Context) error {
	admin := appointment.Caller{Role: appointment.RoleAdmin, ID: uuid.New(), Name: "simulator"}
	practitioners, err := s.listPractitioners(ctx, admin)
	if err != nil {
		return err
	}
	if len(practitioners) == 0 {
		return fmt.Errorf("no practitioners found, run cmd/seed first")
	}

	for round := 0; round < s.config.Rounds; round++ {
		practitioner := practitioners[round%len(practitioners)]

		free, err := s.availability(ctx, admin, practitioner.ID)
		if err != nil {
			return err
		}
		if len(free) == 0 {
			s.log.Info("practitioner fully booked, skipping", zap.String("practitioner_id", practitioner.ID.String()))
			continue
		}

		at := free[gofakeit.Number(0, len(free)-1)].On(s.config.Date)
		s.contend(ctx, practitioner.ID, at)
	}
	return nil
}

func (s *Simulator) contend(ctx context.Context, practitionerID uuid.UUID, at time.Time) {
	var wg sync.WaitGroup
	var won int64
	start := make(chan struct{})

	for i := 0; i < s.config.Contenders; i++ {
		patient := appointment.Caller{
			Role:   appointment.RolePatient,
			ID:     uuid.New(),
			Name:   gofakeit.Name(),
			Handle: gofakeit.Email(),
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.book(ctx, patient, practitionerID, at) {
				atomic.AddInt64(&won, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	atomic.AddInt64(&s.rounds, 1)
	if won > 1 {
		atomic.AddInt64(&s.violations, 1)
		s.log.Error("double booking detected",
			zap.String("practitioner_id", practitionerID.String()),
			zap.String("scheduled_at", at.Format(appointment.InstantLayout)),
			zap.Int64("winners", won),
		)
	}
}

func (s *Simulator) book(ctx context.Context, patient appointment.Caller, practitionerID uuid.UUID, at time.Time) bool {
	body, _ := json.Marshal(api.CreateAppointmentRequest{
		PractitionerID: practitionerID.String(),
		ScheduledAt:    at.Format(appointment.InstantLayout),
		Reason:         "contention test",
	})

	req, err := s.newRequest(ctx, http.MethodPost, "/appointments", patient, bytes.NewReader(body))
	if err != nil {
		s.booking.Record(0, false, false)
		return false
	}

	started := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(started)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusCreated
		conflict = resp.StatusCode == http.StatusConflict
	}

	s.booking.Record(latency, success, conflict)
	return success
}

func (s *Simulator) listPractitioners(ctx context.Context, caller appointment.Caller) ([]api.PractitionerResponse, error) {
	var out []api.PractitionerResponse
	err := s.getJSON(ctx, "/practitioners", caller, &out)
	return out, err
}

func (s *Simulator) availability(ctx context.Context, caller appointment.Caller, practitionerID uuid.UUID) ([]appointment.TimeOfDay, error) {
	var resp struct {
		Slots []string `json:"slots"`
	}
	path := fmt.Sprintf("/practitioners/%s/availability?date=%s", practitionerID, s.config.Date.Format(appointment.DateLayout))
	if err := s.getJSON(ctx, path, caller, &resp); err != nil {
		return nil, err
	}

	slots := make([]appointment.TimeOfDay, 0, len(resp.Slots))
	for _, raw := range resp.Slots {
		t, err := time.Parse("15:04", raw)
		if err != nil {
			return nil, fmt.Errorf("parse slot %q: %w", raw, err)
		}
		slots = append(slots, appointment.TimeOf(t))
	}
	return slots, nil
}

func (s *Simulator) getJSON(ctx context.Context, path string, caller appointment.Caller, dst any) error {
	req, err := s.newRequest(ctx, http.MethodGet, path, caller, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (s *Simulator) newRequest(ctx context.Context, method, path string, caller appointment.Caller, body *bytes.Reader) (*http.Request, error) {
	tok, err := api.SignToken(s.config.JWTSecret, caller, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("CONTENTION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Date: %s\n", s.config.Date.Format(appointment.DateLayout))
	fmt.Printf("Rounds: %d\n", atomic.LoadInt64(&s.rounds))
	fmt.Printf("Contenders per round: %d\n", s.config.Contenders)
	fmt.Printf("Double bookings: %d\n", atomic.LoadInt64(&s.violations))
	fmt.Println()

	printOperationReport("Booking", &s.booking)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
