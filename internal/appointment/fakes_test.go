package appointment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// -- Mock storage --

type slotKey struct {
	practitionerID uuid.UUID
	at             time.Time
}

// memStore mirrors the database: Save and Update enforce the
// (practitioner, instant) uniqueness constraint atomically.
type memStore struct {
	mu            sync.Mutex
	appts         map[uuid.UUID]Appointment
	slots         map[slotKey]uuid.UUID
	practitioners map[uuid.UUID]Practitioner
	events        []EventLog

	// hooks
	beforeSave  func()
	existsCalls int
	failWith    error
}

func newMemStore() *memStore {
	return &memStore{
		appts:         make(map[uuid.UUID]Appointment),
		slots:         make(map[slotKey]uuid.UUID),
		practitioners: make(map[uuid.UUID]Practitioner),
	}
}

func (m *memStore) addPractitioner(name, specialty string) Practitioner {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Practitioner{ID: uuid.New(), Name: name, Specialty: specialty}
	m.practitioners[p.ID] = p
	return p
}

// seed inserts an appointment directly, bypassing every rule.
func (m *memStore) seed(a Appointment) Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.ScheduledAt = Civil(a.ScheduledAt)
	m.appts[a.ID] = a
	m.slots[slotKey{a.PractitionerID, a.ScheduledAt}] = a.ID
	return a
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appts)
}

func (m *memStore) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, ev := range m.events {
		out = append(out, ev.EventType)
	}
	return out
}

func (m *memStore) FindPractitioner(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	return &p, nil
}

func (m *memStore) ListPractitioners(_ context.Context) ([]Practitioner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Practitioner
	for _, p := range m.practitioners {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) FindOccupiedTimes(_ context.Context, practitionerID uuid.UUID, date time.Time) ([]TimeOfDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	start, end := DayBounds(date)
	var out []TimeOfDay
	for _, a := range m.sortedLocked() {
		if a.PractitionerID == practitionerID && !a.ScheduledAt.Before(start) && a.ScheduledAt.Before(end) {
			out = append(out, TimeOf(a.ScheduledAt))
		}
	}
	return out, nil
}

func (m *memStore) ExistsConflict(_ context.Context, practitionerID uuid.UUID, at time.Time, excludeID *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls++
	if m.failWith != nil {
		return false, m.failWith
	}
	id, ok := m.slots[slotKey{practitionerID, Civil(at)}]
	if !ok {
		return false, nil
	}
	if excludeID != nil && id == *excludeID {
		return false, nil
	}
	return true, nil
}

func (m *memStore) Save(_ context.Context, a *Appointment) (*Appointment, error) {
	if m.beforeSave != nil {
		m.beforeSave()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := slotKey{a.PractitionerID, Civil(a.ScheduledAt)}
	if _, taken := m.slots[key]; taken {
		return nil, conflictErr(a.PractitionerID, a.ScheduledAt)
	}

	saved := *a
	saved.ID = uuid.New()
	saved.ScheduledAt = key.at
	saved.CreatedAt = time.Now()
	saved.UpdatedAt = saved.CreatedAt
	m.appts[saved.ID] = saved
	m.slots[key] = saved.ID
	return &saved, nil
}

func (m *memStore) Update(_ context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.appts[a.ID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	key := slotKey{old.PractitionerID, Civil(a.ScheduledAt)}
	if id, taken := m.slots[key]; taken && id != a.ID {
		return nil, conflictErr(a.PractitionerID, a.ScheduledAt)
	}

	delete(m.slots, slotKey{old.PractitionerID, old.ScheduledAt})
	updated := old
	updated.ScheduledAt = key.at
	updated.Reason = a.Reason
	updated.OutcomeNote = a.OutcomeNote
	updated.Attended = a.Attended
	updated.UpdatedAt = time.Now()
	m.appts[a.ID] = updated
	m.slots[key] = a.ID
	return &updated, nil
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memStore) DeleteByID(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return false, nil
	}
	delete(m.appts, id)
	delete(m.slots, slotKey{a.PractitionerID, a.ScheduledAt})
	return true, nil
}

func (m *memStore) List(_ context.Context, scope ListScope) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.sortedLocked() {
		if scope.PractitionerID != nil && a.PractitionerID != *scope.PractitionerID {
			continue
		}
		if scope.PatientHandle != nil && a.PatientHandle != *scope.PatientHandle {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) FindInRange(_ context.Context, start, end time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.sortedLocked() {
		if !a.ScheduledAt.Before(start) && a.ScheduledAt.Before(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CountBySpecialty(_ context.Context) ([]Count, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := map[string]int64{}
	for _, a := range m.appts {
		if a.PractitionerSpecialty != "" {
			totals[a.PractitionerSpecialty]++
		}
	}
	return sortedCounts(totals), nil
}

func (m *memStore) CountByAttendance(_ context.Context) ([]Count, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals := map[string]int64{}
	for _, a := range m.appts {
		if a.Attended {
			totals["attended"]++
		} else {
			totals["pending"]++
		}
	}
	return sortedCounts(totals), nil
}

func (m *memStore) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) sortedLocked() []Appointment {
	out := make([]Appointment, 0, len(m.appts))
	for _, a := range m.appts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

func sortedCounts(totals map[string]int64) []Count {
	var out []Count
	for label, n := range totals {
		out = append(out, Count{Label: label, Total: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// -- Mock notifier --

type sentMessage struct {
	recipient, subject, body string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, recipient, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMessage{recipient, subject, body})
	return nil
}

func (r *recordingSender) messages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

// -- Mock lockers --

// localLocker serialises per slot within the process.
type localLocker struct {
	mu    sync.Mutex
	slots map[slotKey]*sync.Mutex
	calls int
}

func newLocalLocker() *localLocker {
	return &localLocker{slots: make(map[slotKey]*sync.Mutex)}
}

func (l *localLocker) WithSlotLock(ctx context.Context, practitionerID uuid.UUID, at time.Time, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.calls++
	key := slotKey{practitionerID, at}
	m, ok := l.slots[key]
	if !ok {
		m = &sync.Mutex{}
		l.slots[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type failingLocker struct {
	err error
}

func (f failingLocker) WithSlotLock(context.Context, uuid.UUID, time.Time, func(ctx context.Context) error) error {
	return f.err
}

var errBoom = errors.New("connection reset by peer")
