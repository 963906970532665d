package caregivers

import (
	"context"
	"errors"
	"strings"
	"time"

	"medirecord/internal/domain/users"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("link not found")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyLinked = errors.New("caregiver already linked")
	// ErrNotCaregiver: el email resuelto no pertenece a una cuenta de cuidador.
	ErrNotCaregiver = errors.New("user is not a caregiver")
)

type Service struct {
	repo  Repository
	users users.Repository
	now   func() time.Time
}

func NewService(repo Repository, userRepo users.Repository) *Service {
	return &Service{
		repo:  repo,
		users: userRepo,
		now:   time.Now,
	}
}

// Request crea un vínculo sin confirmar: el paciente invita por email.
func (s *Service) Request(ctx context.Context, patientID, caregiverEmail string) (Link, error) {
	email := strings.TrimSpace(strings.ToLower(caregiverEmail))
	if strings.TrimSpace(patientID) == "" || email == "" {
		return Link{}, ErrInvalidInput
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Link{}, ErrNotFound
		}
		return Link{}, err
	}
	if u.Type != users.TypeCaregiver {
		return Link{}, ErrNotCaregiver
	}
	if u.ID == patientID {
		return Link{}, ErrInvalidInput
	}

	if _, err := s.repo.GetByPair(ctx, patientID, u.ID); err == nil {
		return Link{}, ErrAlreadyLinked
	} else if !errors.Is(err, ErrNotFound) {
		return Link{}, err
	}

	l := Link{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		CaregiverID: u.ID,
		Confirmed:   false,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return Link{}, err
	}
	return l, nil
}

// Confirm lo ejecuta el cuidador invitado. Idempotente.
func (s *Service) Confirm(ctx context.Context, linkID, caregiverID string) (Link, error) {
	l, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		return Link{}, err
	}
	if l.CaregiverID != caregiverID {
		return Link{}, ErrForbidden
	}
	if l.Confirmed {
		return l, nil
	}

	now := s.now()
	l.Confirmed = true
	l.ConfirmedAt = &now
	if err := s.repo.Update(ctx, l); err != nil {
		return Link{}, err
	}
	return l, nil
}

// Remove lo ejecuta el paciente dueño del vínculo.
func (s *Service) Remove(ctx context.Context, linkID, patientID string) error {
	l, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if l.PatientID != patientID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, linkID)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]Link, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByCaregiver(ctx context.Context, caregiverID string) ([]Link, error) {
	return s.repo.ListByCaregiver(ctx, caregiverID)
}

// ConfirmedCaregivers devuelve los usuarios cuidadores confirmados de un
// paciente; alimenta el fan-out de avisos.
func (s *Service) ConfirmedCaregivers(ctx context.Context, patientID string) ([]users.User, error) {
	links, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	out := make([]users.User, 0, len(links))
	for _, l := range links {
		if !l.Confirmed {
			continue
		}
		u, err := s.users.GetByID(ctx, l.CaregiverID)
		if err != nil {
			// tolera vínculos huérfanos: el aviso al resto no debe caerse
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// HasConfirmedLink implementa medications.CaregiverAccess.
func (s *Service) HasConfirmedLink(ctx context.Context, patientID, caregiverID string) (bool, error) {
	l, err := s.repo.GetByPair(ctx, patientID, caregiverID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return l.Confirmed, nil
}
