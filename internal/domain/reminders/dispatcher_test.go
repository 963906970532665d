package reminders_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"medirecord/internal/adapters/storage/memory"
	"medirecord/internal/domain/caregivers"
	"medirecord/internal/domain/medications"
	"medirecord/internal/domain/notifications"
	"medirecord/internal/domain/reminders"
	"medirecord/internal/domain/users"
	"medirecord/internal/metrics"
	"medirecord/internal/platform/logger"
)

// -------------------------
// Transporte de prueba
// -------------------------

type sentMessage struct {
	To   string
	Body string
}

type testTransport struct {
	mu   sync.Mutex
	sent []sentMessage
	// failFor hace fallar los envíos a estos teléfonos (ya normalizados).
	failFor map[string]bool
}

func newTestTransport() *testTransport {
	return &testTransport{failFor: map[string]bool{}}
}

func (t *testTransport) Deliver(ctx context.Context, toPhone, body string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failFor[toPhone] {
		return "", errors.New("provider down")
	}
	t.sent = append(t.sent, sentMessage{To: toPhone, Body: body})
	return "delivery-1", nil
}

func (t *testTransport) sentTo(phone string) []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]sentMessage, 0)
	for _, m := range t.sent {
		if m.To == phone {
			out = append(out, m)
		}
	}
	return out
}

// -------------------------
// Fixture
// -------------------------

type fixture struct {
	users      users.Repository
	medRepo    medications.Repository
	remRepo    reminders.Repository
	meds       *medications.Service
	caregivers *caregivers.Service
	notifier   *notifications.Service
	transport  *testTransport
	dispatcher *reminders.Dispatcher
	matcher    *reminders.Matcher
}

func newFixture(t *testing.T, window time.Duration) *fixture {
	t.Helper()

	userRepo := memory.NewUserRepo()
	for _, u := range []users.User{
		{ID: "patient-1", Name: "Ana", Email: "ana@example.com", Phone: "525512345678", Type: users.TypePatient},
		{ID: "caregiver-1", Name: "Luis", Email: "luis@example.com", Phone: "525587654321", Type: users.TypeCaregiver},
	} {
		if err := userRepo.Create(context.Background(), u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	cgSvc := caregivers.NewService(memory.NewCaregiverRepo(), userRepo)
	medRepo := memory.NewMedicationRepo()
	medSvc := medications.NewService(medRepo, cgSvc)
	remRepo := memory.NewReminderRepo()

	transport := newTestTransport()
	notifier := notifications.NewService(transport, logger.Nop{}, metrics.NewNopCollector(), "52", "")

	dispatcher := reminders.NewDispatcher(
		medRepo, remRepo, userRepo, notifier,
		logger.Nop{}, metrics.NewNopCollector(), window, time.UTC,
	)
	matcher := reminders.NewMatcher(
		remRepo, userRepo, medSvc, cgSvc, notifier,
		logger.Nop{}, metrics.NewNopCollector(), "52", time.UTC,
	)

	return &fixture{
		users:      userRepo,
		medRepo:    medRepo,
		remRepo:    remRepo,
		meds:       medSvc,
		caregivers: cgSvc,
		notifier:   notifier,
		transport:  transport,
		dispatcher: dispatcher,
		matcher:    matcher,
	}
}

func (f *fixture) addMedication(t *testing.T, name string, times ...string) []medications.ScheduleSlot {
	t.Helper()
	_, slots, err := f.meds.Create(context.Background(), "patient-1", "patient-1", medications.CreateInput{
		Name:  name,
		Dose:  "1 tableta",
		Times: times,
	})
	if err != nil {
		t.Fatalf("addMedication: %v", err)
	}
	return slots
}

func (f *fixture) linkCaregiver(t *testing.T) {
	t.Helper()
	l, err := f.caregivers.Request(context.Background(), "patient-1", "luis@example.com")
	if err != nil {
		t.Fatalf("Request link: %v", err)
	}
	if _, err := f.caregivers.Confirm(context.Background(), l.ID, "caregiver-1"); err != nil {
		t.Fatalf("Confirm link: %v", err)
	}
}

func countByStatus(outcomes []reminders.DispatchOutcome, status reminders.DispatchStatus) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// -------------------------
// Tests
// -------------------------

func TestDispatcher_Tick_SendsDueSlot(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.addMedication(t, "Metformina", "08:00")

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	outcomes := f.dispatcher.Tick(context.Background(), now)

	if countByStatus(outcomes, reminders.DispatchSent) != 1 {
		t.Fatalf("expected 1 sent, got %#v", outcomes)
	}

	msgs := f.transport.sentTo("525512345678")
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message to patient, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0].Body, "Metformina") || !strings.Contains(msgs[0].Body, "responda *SI*") {
		t.Fatalf("unexpected message body: %q", msgs[0].Body)
	}

	rl, err := f.remRepo.LatestSentByUser(context.Background(), "patient-1", reminders.DayOf(now))
	if err != nil {
		t.Fatalf("expected log registered: %v", err)
	}
	if rl.Status != reminders.LogStatusSent || rl.Token == "" {
		t.Fatalf("unexpected log: %#v", rl)
	}

	intakes, err := f.remRepo.ListIntakesByPatient(context.Background(), "patient-1", reminders.DayOf(now))
	if err != nil || len(intakes) != 1 {
		t.Fatalf("expected 1 intake, got %d err=%v", len(intakes), err)
	}
	if intakes[0].Status != reminders.IntakeStatusPending {
		t.Fatalf("expected pending intake, got %s", intakes[0].Status)
	}
}

func TestDispatcher_Tick_Idempotent(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.addMedication(t, "Metformina", "08:00")

	// dos ticks con el horario de las 08:00 dentro de la ventana
	now := time.Date(2026, 3, 10, 7, 50, 0, 0, time.UTC)
	f.dispatcher.Tick(context.Background(), now)
	outcomes := f.dispatcher.Tick(context.Background(), now.Add(time.Minute))

	if countByStatus(outcomes, reminders.DispatchSkipped) != 1 {
		t.Fatalf("expected 1 skipped on second tick, got %#v", outcomes)
	}
	if got := len(f.transport.sentTo("525512345678")); got != 1 {
		t.Fatalf("expected exactly 1 message after two ticks, got %d", got)
	}
}

func TestDispatcher_Tick_OutsideWindow(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.addMedication(t, "Metformina", "08:00")

	// 07:40 con ventana de 15: 08:00 todavía no vence
	outcomes := f.dispatcher.Tick(context.Background(), time.Date(2026, 3, 10, 7, 40, 0, 0, time.UTC))
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes before window, got %#v", outcomes)
	}

	// 08:01: el horario ya pasó y quedó fuera de [now, now+window)
	outcomes = f.dispatcher.Tick(context.Background(), time.Date(2026, 3, 10, 8, 1, 0, 0, time.UTC))
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes after slot time, got %#v", outcomes)
	}
}

func TestDispatcher_Tick_WindowClampsAtMidnight(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.addMedication(t, "Metformina", "00:05")

	// 23:55: la ventana cruza la medianoche pero se recorta; el horario de
	// las 00:05 se despacha en los ticks del día siguiente.
	outcomes := f.dispatcher.Tick(context.Background(), time.Date(2026, 3, 10, 23, 55, 0, 0, time.UTC))
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes across midnight, got %#v", outcomes)
	}

	outcomes = f.dispatcher.Tick(context.Background(), time.Date(2026, 3, 11, 0, 5, 0, 0, time.UTC))
	if countByStatus(outcomes, reminders.DispatchSent) != 1 {
		t.Fatalf("expected sent next day, got %#v", outcomes)
	}
}

func TestDispatcher_Tick_TransportFailureNotRolledBack(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.addMedication(t, "Metformina", "08:00")
	f.transport.failFor["525512345678"] = true

	now := time.Date(2026, 3, 10, 7, 50, 0, 0, time.UTC)
	outcomes := f.dispatcher.Tick(context.Background(), now)
	if countByStatus(outcomes, reminders.DispatchFailed) != 1 {
		t.Fatalf("expected 1 failed, got %#v", outcomes)
	}

	// el log quedó registrado: el siguiente tick, aún dentro de la
	// ventana, no reintenta
	outcomes = f.dispatcher.Tick(context.Background(), now.Add(time.Minute))
	if countByStatus(outcomes, reminders.DispatchSkipped) != 1 {
		t.Fatalf("expected skip after failed send, got %#v", outcomes)
	}
}

func TestDispatcher_Tick_FailureIsolatedPerSlot(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.addMedication(t, "Metformina", "08:00")

	// segundo paciente sin teléfono resoluble
	if err := f.users.Create(context.Background(), users.User{
		ID: "patient-2", Name: "Berta", Email: "berta@example.com", Type: users.TypePatient,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, _, err := f.meds.Create(context.Background(), "patient-2", "patient-2", medications.CreateInput{
		Name:  "Losartán",
		Times: []string{"08:00"},
	}); err != nil {
		t.Fatalf("create medication: %v", err)
	}

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	outcomes := f.dispatcher.Tick(context.Background(), now)

	if countByStatus(outcomes, reminders.DispatchSent) != 1 {
		t.Fatalf("expected healthy slot sent, got %#v", outcomes)
	}
	if countByStatus(outcomes, reminders.DispatchFailed) != 1 {
		t.Fatalf("expected phoneless patient to fail, got %#v", outcomes)
	}
}
