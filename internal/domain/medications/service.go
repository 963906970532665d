package medications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("medication not found")
	ErrForbidden    = errors.New("forbidden")
	// ErrNoSchedule: las instrucciones no produjeron horarios; el caller debe
	// pedir horas manuales.
	ErrNoSchedule = errors.New("no schedule derived from instructions")
)

// CaregiverAccess responde si un cuidador tiene vínculo confirmado con un
// paciente. Es un port para no importar el módulo caregivers (evita ciclos).
type CaregiverAccess interface {
	HasConfirmedLink(ctx context.Context, patientID, caregiverID string) (bool, error)
}

type Service struct {
	repo   Repository
	access CaregiverAccess
	now    func() time.Time
}

func NewService(repo Repository, access CaregiverAccess) *Service {
	return &Service{
		repo:   repo,
		access: access,
		now:    time.Now,
	}
}

type CreateInput struct {
	Name         string
	Dose         string
	Instructions string

	// AutoSchedule deriva horarios de Instructions; si no produce ninguno se
	// devuelve ErrNoSchedule. Con AutoSchedule en false se usan Times ("HH:MM").
	AutoSchedule bool
	Times        []string
}

func (s *Service) Create(ctx context.Context, actorID, patientID string, in CreateInput) (Medication, []ScheduleSlot, error) {
	if strings.TrimSpace(patientID) == "" || strings.TrimSpace(in.Name) == "" {
		return Medication{}, nil, ErrInvalidInput
	}
	if err := s.authorize(ctx, actorID, patientID); err != nil {
		return Medication{}, nil, err
	}

	times := in.Times
	if in.AutoSchedule {
		times = ParseInstructions(in.Instructions)
		if len(times) == 0 {
			return Medication{}, nil, ErrNoSchedule
		}
	}

	now := s.now()
	m := Medication{
		ID:           uuid.NewString(),
		PatientID:    patientID,
		Name:         strings.TrimSpace(in.Name),
		Dose:         strings.TrimSpace(in.Dose),
		Instructions: strings.TrimSpace(in.Instructions),
		AddedBy:      actorID,
		CreatedAt:    now,
	}

	slots, err := buildSlots(m.ID, times, now)
	if err != nil {
		return Medication{}, nil, err
	}

	if err := s.repo.Create(ctx, m, slots); err != nil {
		return Medication{}, nil, err
	}
	return m, slots, nil
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name         *string
	Dose         *string
	Instructions *string
	// Times reemplaza todos los horarios; nil los deja intactos.
	Times []string
}

func (s *Service) Update(ctx context.Context, actorID, medicationID string, in UpdateInput) (Medication, error) {
	m, err := s.getAuthorized(ctx, actorID, medicationID)
	if err != nil {
		return Medication{}, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Medication{}, ErrInvalidInput
		}
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Dose != nil {
		m.Dose = strings.TrimSpace(*in.Dose)
	}
	if in.Instructions != nil {
		m.Instructions = strings.TrimSpace(*in.Instructions)
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}

	if in.Times != nil {
		slots, err := buildSlots(m.ID, in.Times, s.now())
		if err != nil {
			return Medication{}, err
		}
		if err := s.repo.ReplaceSlots(ctx, m.ID, slots); err != nil {
			return Medication{}, err
		}
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, actorID, medicationID string) error {
	if _, err := s.getAuthorized(ctx, actorID, medicationID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, medicationID)
}

func (s *Service) GetByID(ctx context.Context, actorID, medicationID string) (Medication, error) {
	return s.getAuthorized(ctx, actorID, medicationID)
}

func (s *Service) ListByPatient(ctx context.Context, actorID, patientID string) ([]Medication, error) {
	if err := s.authorize(ctx, actorID, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListSlots(ctx context.Context, actorID, medicationID string) ([]ScheduleSlot, error) {
	if _, err := s.getAuthorized(ctx, actorID, medicationID); err != nil {
		return nil, err
	}
	return s.repo.ListSlots(ctx, medicationID)
}

func (s *Service) SetSlotActive(ctx context.Context, actorID, slotID string, active bool) (ScheduleSlot, error) {
	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return ScheduleSlot{}, err
	}
	if _, err := s.getAuthorized(ctx, actorID, slot.MedicationID); err != nil {
		return ScheduleSlot{}, err
	}
	if err := s.repo.SetSlotActive(ctx, slotID, active); err != nil {
		return ScheduleSlot{}, err
	}
	slot.Active = active
	return slot, nil
}

// NextDose devuelve el siguiente horario activo del paciente: el primero de
// hoy con hora >= now, o el más temprano del día (mañana) si ya no queda nada.
func (s *Service) NextDose(ctx context.Context, actorID, patientID string, now time.Time) (DueSlot, bool, error) {
	if err := s.authorize(ctx, actorID, patientID); err != nil {
		return DueSlot{}, false, err
	}

	due, err := s.repo.ListActiveSlotsByPatient(ctx, patientID)
	if err != nil {
		return DueSlot{}, false, err
	}
	if len(due) == 0 {
		return DueSlot{}, false, nil
	}

	cur := ClockOf(now).MinuteOfDay()
	var today, earliest *DueSlot
	for i := range due {
		d := due[i]
		min := d.Slot.At.MinuteOfDay()
		if earliest == nil || min < earliest.Slot.At.MinuteOfDay() {
			earliest = &due[i]
		}
		if min >= cur && (today == nil || min < today.Slot.At.MinuteOfDay()) {
			today = &due[i]
		}
	}
	if today != nil {
		return *today, true, nil
	}
	return *earliest, true, nil
}

// SlotWithMedication resuelve un horario junto con su medicamento, con el
// mismo chequeo de permisos que el resto de las operaciones. Lo usa el
// módulo de recordatorios.
func (s *Service) SlotWithMedication(ctx context.Context, actorID, slotID string) (ScheduleSlot, Medication, error) {
	slot, err := s.repo.GetSlot(ctx, slotID)
	if err != nil {
		return ScheduleSlot{}, Medication{}, err
	}
	m, err := s.getAuthorized(ctx, actorID, slot.MedicationID)
	if err != nil {
		return ScheduleSlot{}, Medication{}, err
	}
	return slot, m, nil
}

func (s *Service) getAuthorized(ctx context.Context, actorID, medicationID string) (Medication, error) {
	m, err := s.repo.GetByID(ctx, medicationID)
	if err != nil {
		return Medication{}, err
	}
	if err := s.authorize(ctx, actorID, m.PatientID); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// authorize: el propio paciente siempre; un tercero solo con vínculo de
// cuidador confirmado.
func (s *Service) authorize(ctx context.Context, actorID, patientID string) error {
	if strings.TrimSpace(actorID) == "" {
		return ErrForbidden
	}
	if actorID == patientID {
		return nil
	}
	ok, err := s.access.HasConfirmedLink(ctx, patientID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func buildSlots(medicationID string, times []string, now time.Time) ([]ScheduleSlot, error) {
	slots := make([]ScheduleSlot, 0, len(times))
	for _, raw := range times {
		at, err := ParseClock(raw)
		if err != nil {
			return nil, ErrInvalidInput
		}
		slots = append(slots, ScheduleSlot{
			ID:           uuid.NewString(),
			MedicationID: medicationID,
			At:           at,
			Recurrence:   RecurrenceDaily,
			Active:       true,
			CreatedAt:    now,
		})
	}
	return slots, nil
}
