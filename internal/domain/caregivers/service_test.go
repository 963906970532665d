package caregivers

import (
	"context"
	"errors"
	"testing"
	"time"

	"medirecord/internal/domain/users"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Link
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Link{}}
}

func (r *testRepo) Create(ctx context.Context, l Link) error {
	if _, ok := r.byID[l.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[l.ID] = l
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Link, error) {
	l, ok := r.byID[id]
	if !ok {
		return Link{}, ErrNotFound
	}
	return l, nil
}

func (r *testRepo) GetByPair(ctx context.Context, patientID, caregiverID string) (Link, error) {
	for _, l := range r.byID {
		if l.PatientID == patientID && l.CaregiverID == caregiverID {
			return l, nil
		}
	}
	return Link{}, ErrNotFound
}

func (r *testRepo) Update(ctx context.Context, l Link) error {
	if _, ok := r.byID[l.ID]; !ok {
		return ErrNotFound
	}
	r.byID[l.ID] = l
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) ListByPatient(ctx context.Context, patientID string) ([]Link, error) {
	out := make([]Link, 0)
	for _, l := range r.byID {
		if l.PatientID == patientID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *testRepo) ListByCaregiver(ctx context.Context, caregiverID string) ([]Link, error) {
	out := make([]Link, 0)
	for _, l := range r.byID {
		if l.CaregiverID == caregiverID {
			out = append(out, l)
		}
	}
	return out, nil
}

type testUserRepo struct {
	byID map[string]users.User
}

func newTestUserRepo(us ...users.User) *testUserRepo {
	r := &testUserRepo{byID: map[string]users.User{}}
	for _, u := range us {
		r.byID[u.ID] = u
	}
	return r
}

func (r *testUserRepo) Create(ctx context.Context, u users.User) error {
	r.byID[u.ID] = u
	return nil
}

func (r *testUserRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (r *testUserRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (r *testUserRepo) GetByPhone(ctx context.Context, phone string) (users.User, error) {
	for _, u := range r.byID {
		if u.Phone == phone {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

// -------------------------
// Tests
// -------------------------

func seedUsers() *testUserRepo {
	return newTestUserRepo(
		users.User{ID: "patient-1", Name: "Ana", Email: "ana@example.com", Phone: "5512345678", Type: users.TypePatient},
		users.User{ID: "caregiver-1", Name: "Luis", Email: "luis@example.com", Phone: "5587654321", Type: users.TypeCaregiver},
		users.User{ID: "caregiver-2", Name: "Marta", Email: "marta@example.com", Type: users.TypeCaregiver},
	)
}

func TestService_Request_CreatesUnconfirmed(t *testing.T) {
	svc := NewService(newTestRepo(), seedUsers())

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	l, err := svc.Request(context.Background(), "patient-1", "Luis@Example.com")
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if l.Confirmed {
		t.Fatalf("expected unconfirmed link")
	}
	if l.CaregiverID != "caregiver-1" || l.PatientID != "patient-1" {
		t.Fatalf("unexpected link: %#v", l)
	}
	if l.CreatedAt != now {
		t.Fatalf("expected CreatedAt = now")
	}
}

func TestService_Request_Errors(t *testing.T) {
	svc := NewService(newTestRepo(), seedUsers())

	if _, err := svc.Request(context.Background(), "patient-1", "nadie@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown email, got %v", err)
	}
	// el email pertenece a un paciente, no a un cuidador
	if _, err := svc.Request(context.Background(), "caregiver-1", "ana@example.com"); !errors.Is(err, ErrNotCaregiver) {
		t.Fatalf("expected ErrNotCaregiver, got %v", err)
	}

	if _, err := svc.Request(context.Background(), "patient-1", "luis@example.com"); err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if _, err := svc.Request(context.Background(), "patient-1", "luis@example.com"); !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected ErrAlreadyLinked on duplicate, got %v", err)
	}
}

func TestService_Confirm_OnlyInvitedCaregiver_AndIdempotent(t *testing.T) {
	svc := NewService(newTestRepo(), seedUsers())

	l, err := svc.Request(context.Background(), "patient-1", "luis@example.com")
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if _, err := svc.Confirm(context.Background(), l.ID, "caregiver-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another caregiver, got %v", err)
	}

	c1, err := svc.Confirm(context.Background(), l.ID, "caregiver-1")
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if !c1.Confirmed || c1.ConfirmedAt == nil {
		t.Fatalf("expected confirmed link, got %#v", c1)
	}

	// idempotente: segunda confirmación no falla ni cambia ConfirmedAt
	c2, err := svc.Confirm(context.Background(), l.ID, "caregiver-1")
	if err != nil {
		t.Fatalf("Confirm #2 error: %v", err)
	}
	if !c2.ConfirmedAt.Equal(*c1.ConfirmedAt) {
		t.Fatalf("expected ConfirmedAt unchanged")
	}
}

func TestService_Remove_OnlyPatient(t *testing.T) {
	svc := NewService(newTestRepo(), seedUsers())

	l, err := svc.Request(context.Background(), "patient-1", "luis@example.com")
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	if err := svc.Remove(context.Background(), l.ID, "caregiver-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for caregiver, got %v", err)
	}
	if err := svc.Remove(context.Background(), l.ID, "patient-1"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, err := svc.repo.GetByID(context.Background(), l.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected link gone, got %v", err)
	}
}

func TestService_ConfirmedCaregivers_FiltersUnconfirmed(t *testing.T) {
	svc := NewService(newTestRepo(), seedUsers())

	l1, err := svc.Request(context.Background(), "patient-1", "luis@example.com")
	if err != nil {
		t.Fatalf("Request #1 error: %v", err)
	}
	if _, err := svc.Request(context.Background(), "patient-1", "marta@example.com"); err != nil {
		t.Fatalf("Request #2 error: %v", err)
	}
	if _, err := svc.Confirm(context.Background(), l1.ID, "caregiver-1"); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}

	got, err := svc.ConfirmedCaregivers(context.Background(), "patient-1")
	if err != nil {
		t.Fatalf("ConfirmedCaregivers error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "caregiver-1" {
		t.Fatalf("expected only caregiver-1, got %#v", got)
	}

	ok, err := svc.HasConfirmedLink(context.Background(), "patient-1", "caregiver-1")
	if err != nil || !ok {
		t.Fatalf("expected confirmed link, got ok=%v err=%v", ok, err)
	}
	ok, err = svc.HasConfirmedLink(context.Background(), "patient-1", "caregiver-2")
	if err != nil || ok {
		t.Fatalf("expected unconfirmed link to not count, got ok=%v err=%v", ok, err)
	}
}
