package reminders

import (
	"context"
	"errors"
	"strings"
	"time"

	"medirecord/internal/domain/medications"
	"medirecord/internal/domain/notifications"
	"medirecord/internal/domain/users"
	"medirecord/internal/metrics"
	"medirecord/internal/platform/logger"

	"github.com/google/uuid"
)

var ErrForbidden = errors.New("forbidden")

// Service cubre las operaciones de recordatorios que no pasan por el
// dispatcher ni por el webhook: confirmación manual, historial y
// estadísticas.
type Service struct {
	repo       Repository
	meds       *medications.Service
	users      users.Repository
	caregivers CaregiverDirectory
	notifier   *notifications.Service
	log        logger.Logger
	metrics    *metrics.Collector

	now func() time.Time
	loc *time.Location
}

func NewService(
	repo Repository,
	meds *medications.Service,
	userRepo users.Repository,
	caregivers CaregiverDirectory,
	notifier *notifications.Service,
	log logger.Logger,
	m *metrics.Collector,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:       repo,
		meds:       meds,
		users:      userRepo,
		caregivers: caregivers,
		notifier:   notifier,
		log:        log,
		metrics:    m,
		now:        time.Now,
		loc:        loc,
	}
}

// RecordIntake registra una toma confirmada a mano (desde la app, no por
// WhatsApp). El permiso lo resuelve el módulo de medicamentos: paciente
// dueño o cuidador confirmado.
func (s *Service) RecordIntake(ctx context.Context, actorID, slotID string) (IntakeRecord, error) {
	slot, med, err := s.meds.SlotWithMedication(ctx, actorID, slotID)
	if err != nil {
		return IntakeRecord{}, err
	}

	now := s.now().In(s.loc)
	rec, err := s.repo.CreateIntake(ctx, IntakeRecord{
		ID:           uuid.NewString(),
		SlotID:       slot.ID,
		MedicationID: med.ID,
		PatientID:    med.PatientID,
		Status:       IntakeStatusTaken,
		Day:          DayOf(now),
		TakenAt:      &now,
		CreatedAt:    now,
	})
	if err != nil {
		return IntakeRecord{}, err
	}

	s.metrics.RecordConfirmation()
	s.log.Info("toma registrada manualmente", logger.Fields{
		"slot_id":    slot.ID,
		"patient_id": med.PatientID,
		"actor_id":   actorID,
	})

	patient, err := s.users.GetByID(ctx, med.PatientID)
	if err != nil {
		// la toma ya quedó registrada; sin paciente no hay a quién avisar
		s.log.Warn("paciente no resuelto para aviso", logger.Fields{
			"patient_id": med.PatientID,
			"error":      err.Error(),
		})
		return rec, nil
	}

	at := medications.ClockOf(now)
	if _, err := s.notifier.Send(ctx, patient.Phone, SelfConfirmationMessage(med.Name, at)); err != nil {
		s.log.Warn("confirmación al paciente fallida", logger.Fields{
			"patient_id": patient.ID,
			"error":      err.Error(),
		})
	}
	s.fanOut(ctx, patient, med, at)

	return rec, nil
}

func (s *Service) fanOut(ctx context.Context, patient users.User, med medications.Medication, at medications.ClockTime) {
	list, err := s.caregivers.ConfirmedCaregivers(ctx, patient.ID)
	if err != nil {
		s.log.Warn("no se pudieron listar cuidadores", logger.Fields{
			"patient_id": patient.ID,
			"error":      err.Error(),
		})
		return
	}

	msg := CaregiverNoticeMessage(patient.Name, med.Name, med.Dose, at)
	for _, c := range list {
		if strings.TrimSpace(c.Phone) == "" {
			continue
		}
		if _, err := s.notifier.Send(ctx, c.Phone, msg); err != nil {
			s.log.Warn("aviso a cuidador fallido", logger.Fields{
				"caregiver_id": c.ID,
				"error":        err.Error(),
			})
		}
	}
}

// IntakeView agrega a cada toma el nombre del medicamento y la hora del
// horario, para no obligar al cliente a resolverlos aparte.
type IntakeView struct {
	Intake         IntakeRecord
	MedicationName string
	Dose           string
	SlotTime       string
}

func (s *Service) History(ctx context.Context, actorID, patientID, day string) ([]IntakeView, error) {
	if err := s.authorize(ctx, actorID, patientID); err != nil {
		return nil, err
	}
	if day == "" {
		day = DayOf(s.now().In(s.loc))
	}

	records, err := s.repo.ListIntakesByPatient(ctx, patientID, day)
	if err != nil {
		return nil, err
	}

	out := make([]IntakeView, 0, len(records))
	for _, rec := range records {
		view := IntakeView{Intake: rec}
		if slot, med, err := s.meds.SlotWithMedication(ctx, patientID, rec.SlotID); err == nil {
			view.MedicationName = med.Name
			view.Dose = med.Dose
			view.SlotTime = slot.At.String()
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *Service) StatsFor(ctx context.Context, actorID, patientID string) (Stats, error) {
	if err := s.authorize(ctx, actorID, patientID); err != nil {
		return Stats{}, err
	}

	meds, err := s.meds.ListByPatient(ctx, patientID, patientID)
	if err != nil {
		return Stats{}, err
	}

	total, err := s.repo.CountTakenByPatient(ctx, patientID)
	if err != nil {
		return Stats{}, err
	}

	today, err := s.repo.ListIntakesByPatient(ctx, patientID, DayOf(s.now().In(s.loc)))
	if err != nil {
		return Stats{}, err
	}

	st := Stats{Medications: len(meds), TakenTotal: total}
	for _, rec := range today {
		switch rec.Status {
		case IntakeStatusTaken:
			st.TakenToday++
		case IntakeStatusPending:
			st.PendingToday++
		}
	}
	return st, nil
}

func (s *Service) authorize(ctx context.Context, actorID, patientID string) error {
	if strings.TrimSpace(actorID) == "" {
		return ErrForbidden
	}
	if actorID == patientID {
		return nil
	}
	list, err := s.caregivers.ConfirmedCaregivers(ctx, patientID)
	if err != nil {
		return err
	}
	for _, c := range list {
		if c.ID == actorID {
			return nil
		}
	}
	return ErrForbidden
}
