package reminders_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"medirecord/internal/domain/medications"
	"medirecord/internal/domain/reminders"
	"medirecord/internal/domain/users"
)

func TestMatcher_Confirm_HappyPath(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.linkCaregiver(t)
	f.addMedication(t, "Metformina", "08:00")

	sentAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	f.dispatcher.Tick(context.Background(), sentAt)

	res, err := f.matcher.HandleInbound(context.Background(), "525512345678", "Sí", sentAt.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("HandleInbound error: %v", err)
	}
	if res.Outcome != reminders.OutcomeConfirmed {
		t.Fatalf("expected confirmed, got %s", res.Outcome)
	}
	if res.Log.Status != reminders.LogStatusConfirmed || res.Log.ConfirmedAt == nil {
		t.Fatalf("expected confirmed log, got %#v", res.Log)
	}
	if res.Intake.Status != reminders.IntakeStatusTaken || res.Intake.TakenAt == nil {
		t.Fatalf("expected taken intake, got %#v", res.Intake)
	}

	// agradecimiento al paciente (además del recordatorio original)
	patientMsgs := f.transport.sentTo("525512345678")
	if len(patientMsgs) != 2 {
		t.Fatalf("expected reminder + thank-you, got %d messages", len(patientMsgs))
	}
	if !strings.Contains(patientMsgs[1].Body, "Gracias Ana") {
		t.Fatalf("unexpected thank-you: %q", patientMsgs[1].Body)
	}

	// aviso al cuidador confirmado
	cgMsgs := f.transport.sentTo("525587654321")
	if len(cgMsgs) != 1 {
		t.Fatalf("expected 1 caregiver notice, got %d", len(cgMsgs))
	}
	if !strings.Contains(cgMsgs[0].Body, "Ana ha confirmado la toma de Metformina") {
		t.Fatalf("unexpected caregiver notice: %q", cgMsgs[0].Body)
	}
}

func TestMatcher_LexiconVariants(t *testing.T) {
	accept := []string{"si", "Sí", "SI", "  ok  ", "LISTO", "tomado", "yes"}
	reject := []string{"no", "sip", "si claro", "ya casi", ""}

	for _, text := range accept {
		f := newFixture(t, 15*time.Minute)
		f.addMedication(t, "Metformina", "08:00")
		now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
		f.dispatcher.Tick(context.Background(), now)

		res, err := f.matcher.HandleInbound(context.Background(), "525512345678", text, now)
		if err != nil {
			t.Fatalf("HandleInbound(%q) error: %v", text, err)
		}
		if res.Outcome != reminders.OutcomeConfirmed {
			t.Fatalf("expected %q to confirm, got %s", text, res.Outcome)
		}
	}

	for _, text := range reject {
		f := newFixture(t, 15*time.Minute)
		f.addMedication(t, "Metformina", "08:00")
		now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
		f.dispatcher.Tick(context.Background(), now)

		res, err := f.matcher.HandleInbound(context.Background(), "525512345678", text, now)
		if err != nil {
			t.Fatalf("HandleInbound(%q) error: %v", text, err)
		}
		if res.Outcome != reminders.OutcomeUnrecognized {
			t.Fatalf("expected %q to be unrecognized, got %s", text, res.Outcome)
		}

		// sin cambios de estado
		rl, err := f.remRepo.LatestSentByUser(context.Background(), "patient-1", reminders.DayOf(now))
		if err != nil || rl.Status != reminders.LogStatusSent {
			t.Fatalf("expected log untouched, got %#v err=%v", rl, err)
		}
	}
}

func TestMatcher_NoPending(t *testing.T) {
	f := newFixture(t, 15*time.Minute)

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	res, err := f.matcher.HandleInbound(context.Background(), "525512345678", "si", now)
	if err != nil {
		t.Fatalf("HandleInbound error: %v", err)
	}
	if res.Outcome != reminders.OutcomeNoPending {
		t.Fatalf("expected no_pending, got %s", res.Outcome)
	}
}

func TestMatcher_UnknownSender(t *testing.T) {
	f := newFixture(t, 15*time.Minute)

	res, err := f.matcher.HandleInbound(context.Background(), "529999999999", "si", time.Now())
	if err != nil {
		t.Fatalf("HandleInbound error: %v", err)
	}
	if res.Outcome != reminders.OutcomeUnknownSender {
		t.Fatalf("expected unknown_sender, got %s", res.Outcome)
	}
}

func TestMatcher_MostRecentWins_ThenEarlier(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.addMedication(t, "Metformina", "08:00")
	f.addMedication(t, "Losartán", "08:20")

	t1 := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 10, 8, 20, 0, 0, time.UTC)
	f.dispatcher.Tick(context.Background(), t1)
	f.dispatcher.Tick(context.Background(), t2)

	// la primera confirmación aplica al recordatorio más reciente
	res, err := f.matcher.HandleInbound(context.Background(), "525512345678", "si", t2.Add(time.Minute))
	if err != nil || res.Outcome != reminders.OutcomeConfirmed {
		t.Fatalf("HandleInbound #1: outcome=%s err=%v", res.Outcome, err)
	}
	if res.Log.MedicationID == "" || res.Log.SentAt != t2 {
		t.Fatalf("expected latest log confirmed, got %#v", res.Log)
	}

	// la segunda confirma al anterior, que seguía enviado
	res2, err := f.matcher.HandleInbound(context.Background(), "525512345678", "si", t2.Add(2*time.Minute))
	if err != nil || res2.Outcome != reminders.OutcomeConfirmed {
		t.Fatalf("HandleInbound #2: outcome=%s err=%v", res2.Outcome, err)
	}
	if res2.Log.SentAt != t1 {
		t.Fatalf("expected earlier log confirmed second, got %#v", res2.Log)
	}

	// ya no queda nada que confirmar
	res3, err := f.matcher.HandleInbound(context.Background(), "525512345678", "si", t2.Add(3*time.Minute))
	if err != nil || res3.Outcome != reminders.OutcomeNoPending {
		t.Fatalf("HandleInbound #3: outcome=%s err=%v", res3.Outcome, err)
	}
}

func TestMatcher_LocalPhoneFallback(t *testing.T) {
	f := newFixture(t, 15*time.Minute)

	// usuario registrado con número local de 10 dígitos; el webhook manda el
	// número con código de país y el matcher debe resolverlo igual
	if err := f.users.Create(context.Background(), users.User{
		ID: "patient-3", Name: "Carmen", Email: "carmen@example.com",
		Phone: "5511122233", Type: users.TypePatient,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, _, err := f.meds.Create(context.Background(), "patient-3", "patient-3", medications.CreateInput{
		Name:  "Metformina",
		Times: []string{"08:00"},
	}); err != nil {
		t.Fatalf("create medication: %v", err)
	}

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	f.dispatcher.Tick(context.Background(), now)

	res, err := f.matcher.HandleInbound(context.Background(), "525511122233", "si", now)
	if err != nil {
		t.Fatalf("HandleInbound error: %v", err)
	}
	if res.Outcome != reminders.OutcomeConfirmed {
		t.Fatalf("expected confirmed via country-code phone, got %s", res.Outcome)
	}
}
