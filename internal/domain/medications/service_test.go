package medications

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	meds  map[string]Medication
	slots map[string]ScheduleSlot
}

func newTestRepo() *testRepo {
	return &testRepo{meds: map[string]Medication{}, slots: map[string]ScheduleSlot{}}
}

func (r *testRepo) Create(ctx context.Context, m Medication, slots []ScheduleSlot) error {
	if _, ok := r.meds[m.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.meds[m.ID] = m
	for _, s := range slots {
		r.slots[s.ID] = s
	}
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Medication, error) {
	m, ok := r.meds[id]
	if !ok {
		return Medication{}, ErrNotFound
	}
	return m, nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string) ([]Medication, error) {
	out := make([]Medication, 0)
	for _, m := range r.meds {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testRepo) Update(ctx context.Context, m Medication) error {
	if _, ok := r.meds[m.ID]; !ok {
		return ErrNotFound
	}
	r.meds[m.ID] = m
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.meds[id]; !ok {
		return ErrNotFound
	}
	delete(r.meds, id)
	for sid, s := range r.slots {
		if s.MedicationID == id {
			delete(r.slots, sid)
		}
	}
	return nil
}

func (r *testRepo) ListSlots(ctx context.Context, medicationID string) ([]ScheduleSlot, error) {
	out := make([]ScheduleSlot, 0)
	for _, s := range r.slots {
		if s.MedicationID == medicationID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *testRepo) GetSlot(ctx context.Context, id string) (ScheduleSlot, error) {
	s, ok := r.slots[id]
	if !ok {
		return ScheduleSlot{}, ErrNotFound
	}
	return s, nil
}

func (r *testRepo) ReplaceSlots(ctx context.Context, medicationID string, slots []ScheduleSlot) error {
	for sid, s := range r.slots {
		if s.MedicationID == medicationID {
			delete(r.slots, sid)
		}
	}
	for _, s := range slots {
		r.slots[s.ID] = s
	}
	return nil
}

func (r *testRepo) SetSlotActive(ctx context.Context, id string, active bool) error {
	s, ok := r.slots[id]
	if !ok {
		return ErrNotFound
	}
	s.Active = active
	r.slots[id] = s
	return nil
}

func (r *testRepo) ListDueSlots(ctx context.Context, day time.Weekday, from, to ClockTime) ([]DueSlot, error) {
	out := make([]DueSlot, 0)
	for _, s := range r.slots {
		if !s.Active {
			continue
		}
		min := s.At.MinuteOfDay()
		if min < from.MinuteOfDay() || min >= to.MinuteOfDay() {
			continue
		}
		out = append(out, DueSlot{Slot: s, Medication: r.meds[s.MedicationID]})
	}
	return out, nil
}

func (r *testRepo) ListActiveSlotsByPatient(ctx context.Context, patientID string) ([]DueSlot, error) {
	out := make([]DueSlot, 0)
	for _, s := range r.slots {
		if !s.Active {
			continue
		}
		m := r.meds[s.MedicationID]
		if m.PatientID != patientID {
			continue
		}
		out = append(out, DueSlot{Slot: s, Medication: m})
	}
	return out, nil
}

// testAccess simula vínculos confirmados paciente -> cuidador.
type testAccess struct {
	links map[string]map[string]bool
}

func newTestAccess() *testAccess {
	return &testAccess{links: map[string]map[string]bool{}}
}

func (a *testAccess) confirm(patientID, caregiverID string) {
	if a.links[patientID] == nil {
		a.links[patientID] = map[string]bool{}
	}
	a.links[patientID][caregiverID] = true
}

func (a *testAccess) HasConfirmedLink(ctx context.Context, patientID, caregiverID string) (bool, error) {
	return a.links[patientID][caregiverID], nil
}

// -------------------------
// Tests
// -------------------------

func TestService_Create_AutoSchedule(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, newTestAccess())

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, slots, err := svc.Create(context.Background(), "patient-1", "patient-1", CreateInput{
		Name:         "Metformina",
		Dose:         "850mg",
		Instructions: "tomar cada 12 horas",
		AutoSchedule: true,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if m.PatientID != "patient-1" || m.AddedBy != "patient-1" {
		t.Fatalf("unexpected ownership: %#v", m)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].At.String() != "08:00" || slots[1].At.String() != "20:00" {
		t.Fatalf("unexpected slot times: %v, %v", slots[0].At, slots[1].At)
	}
	for _, s := range slots {
		if !s.Active || s.Recurrence != RecurrenceDaily {
			t.Fatalf("expected active daily slot, got %#v", s)
		}
	}
}

func TestService_Create_AutoSchedule_NoMatch(t *testing.T) {
	svc := NewService(newTestRepo(), newTestAccess())

	_, _, err := svc.Create(context.Background(), "patient-1", "patient-1", CreateInput{
		Name:         "Ibuprofeno",
		Instructions: "según indicación médica",
		AutoSchedule: true,
	})
	if !errors.Is(err, ErrNoSchedule) {
		t.Fatalf("expected ErrNoSchedule, got %v", err)
	}
}

func TestService_Create_ManualTimes_Invalid(t *testing.T) {
	svc := NewService(newTestRepo(), newTestAccess())

	_, _, err := svc.Create(context.Background(), "patient-1", "patient-1", CreateInput{
		Name:  "Ibuprofeno",
		Times: []string{"25:99"},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_Create_CaregiverNeedsConfirmedLink(t *testing.T) {
	repo := newTestRepo()
	access := newTestAccess()
	svc := NewService(repo, access)

	in := CreateInput{Name: "Losartán", Times: []string{"08:00"}}

	if _, _, err := svc.Create(context.Background(), "caregiver-1", "patient-1", in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden without link, got %v", err)
	}

	access.confirm("patient-1", "caregiver-1")
	m, _, err := svc.Create(context.Background(), "caregiver-1", "patient-1", in)
	if err != nil {
		t.Fatalf("Create with confirmed link error: %v", err)
	}
	if m.AddedBy != "caregiver-1" {
		t.Fatalf("expected AddedBy caregiver-1, got %s", m.AddedBy)
	}
}

func TestService_Update_ReplacesSlots(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, newTestAccess())

	m, _, err := svc.Create(context.Background(), "patient-1", "patient-1", CreateInput{
		Name:  "Enalapril",
		Times: []string{"08:00", "20:00"},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	newName := "Enalapril 10mg"
	if _, err := svc.Update(context.Background(), "patient-1", m.ID, UpdateInput{
		Name:  &newName,
		Times: []string{"09:30"},
	}); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	slots, err := svc.ListSlots(context.Background(), "patient-1", m.ID)
	if err != nil {
		t.Fatalf("ListSlots error: %v", err)
	}
	if len(slots) != 1 || slots[0].At.String() != "09:30" {
		t.Fatalf("expected single 09:30 slot, got %#v", slots)
	}
}

func TestService_SetSlotActive(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, newTestAccess())

	_, slots, err := svc.Create(context.Background(), "patient-1", "patient-1", CreateInput{
		Name:  "Atorvastatina",
		Times: []string{"21:00"},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := svc.SetSlotActive(context.Background(), "intruder", slots[0].ID, false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}

	slot, err := svc.SetSlotActive(context.Background(), "patient-1", slots[0].ID, false)
	if err != nil {
		t.Fatalf("SetSlotActive error: %v", err)
	}
	if slot.Active {
		t.Fatalf("expected slot inactive")
	}

	due, err := repo.ListDueSlots(context.Background(), time.Monday, ClockTime{Hour: 21}, ClockTime{Hour: 21, Minute: 30})
	if err != nil {
		t.Fatalf("ListDueSlots error: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("inactive slot must not be due, got %d", len(due))
	}
}

func TestService_NextDose(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, newTestAccess())

	if _, _, err := svc.Create(context.Background(), "patient-1", "patient-1", CreateInput{
		Name:  "Metformina",
		Times: []string{"08:00", "20:00"},
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// 10:00 → la próxima es la de las 20:00
	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	due, found, err := svc.NextDose(context.Background(), "patient-1", "patient-1", at)
	if err != nil || !found {
		t.Fatalf("NextDose error: %v found=%v", err, found)
	}
	if due.Slot.At.String() != "20:00" {
		t.Fatalf("expected 20:00, got %s", due.Slot.At)
	}

	// 23:00 → ya no queda nada hoy, gira a la más temprana (08:00)
	at = time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	due, found, err = svc.NextDose(context.Background(), "patient-1", "patient-1", at)
	if err != nil || !found {
		t.Fatalf("NextDose error: %v found=%v", err, found)
	}
	if due.Slot.At.String() != "08:00" {
		t.Fatalf("expected wrap to 08:00, got %s", due.Slot.At)
	}
}
