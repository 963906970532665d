package reminders

import (
	"context"
	"errors"
	"time"

	"medirecord/internal/domain/medications"
	"medirecord/internal/domain/notifications"
	"medirecord/internal/domain/users"
	"medirecord/internal/metrics"
	"medirecord/internal/platform/logger"

	"github.com/google/uuid"
)

// DueLister es lo único que el dispatcher necesita del módulo de
// medicamentos. La cota superior puede ser Hour=24 (fin de día exclusivo).
type DueLister interface {
	ListDueSlots(ctx context.Context, day time.Weekday, from, to medications.ClockTime) ([]medications.DueSlot, error)
}

// DispatchStatus resume qué pasó con un horario en un tick.
type DispatchStatus string

const (
	DispatchSent    DispatchStatus = "sent"
	DispatchSkipped DispatchStatus = "skipped"
	DispatchFailed  DispatchStatus = "failed"
)

type DispatchOutcome struct {
	SlotID       string
	MedicationID string
	PatientID    string
	Status       DispatchStatus
	Err          error
}

// Dispatcher recorre los horarios vencidos de cada tick y despacha a lo sumo
// un recordatorio por (horario, día). El registro en base ocurre antes del
// envío: un recordatorio cuyo mensaje falló cuenta como despachado y no se
// reintenta hasta el día siguiente, igual que una toma no confirmada queda
// pendiente sin vencimiento.
type Dispatcher struct {
	due      DueLister
	repo     Repository
	users    users.Repository
	notifier *notifications.Service
	log      logger.Logger
	metrics  *metrics.Collector

	// window define "vencido": now <= horario < now+window, sin cruzar la
	// medianoche.
	window time.Duration
	loc    *time.Location
}

func NewDispatcher(
	due DueLister,
	repo Repository,
	userRepo users.Repository,
	notifier *notifications.Service,
	log logger.Logger,
	m *metrics.Collector,
	window time.Duration,
	loc *time.Location,
) *Dispatcher {
	if window <= 0 {
		window = 15 * time.Minute
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		due:      due,
		repo:     repo,
		users:    userRepo,
		notifier: notifier,
		log:      log,
		metrics:  m,
		window:   window,
		loc:      loc,
	}
}

// Tick procesa una pasada. Las fallas por horario quedan en el outcome y no
// frenan al resto del lote.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) []DispatchOutcome {
	now = now.In(d.loc)
	from := medications.ClockOf(now)

	// La ventana se recorta a fin de día: los horarios de mañana temprano se
	// despachan en los ticks de mañana.
	toMinute := from.MinuteOfDay() + int(d.window/time.Minute)
	if toMinute > 24*60 {
		toMinute = 24 * 60
	}
	to := medications.ClockTime{Hour: toMinute / 60, Minute: toMinute % 60}

	due, err := d.due.ListDueSlots(ctx, now.Weekday(), from, to)
	if err != nil {
		d.log.Error("no se pudieron listar horarios vencidos", logger.Fields{
			"error": err.Error(),
		})
		return nil
	}

	outcomes := make([]DispatchOutcome, 0, len(due))
	for _, ds := range due {
		outcomes = append(outcomes, d.dispatch(ctx, ds, now))
	}
	return outcomes
}

func (d *Dispatcher) dispatch(ctx context.Context, ds medications.DueSlot, now time.Time) DispatchOutcome {
	out := DispatchOutcome{
		SlotID:       ds.Slot.ID,
		MedicationID: ds.Medication.ID,
		PatientID:    ds.Medication.PatientID,
	}

	patient, err := d.users.GetByID(ctx, ds.Medication.PatientID)
	if err != nil {
		out.Status, out.Err = DispatchFailed, err
		d.log.Error("paciente no resuelto para recordatorio", logger.Fields{
			"slot_id":    ds.Slot.ID,
			"patient_id": ds.Medication.PatientID,
			"error":      err.Error(),
		})
		d.metrics.RecordReminderFailed()
		return out
	}

	day := DayOf(now)
	rl := ReminderLog{
		ID:           uuid.NewString(),
		SlotID:       ds.Slot.ID,
		MedicationID: ds.Medication.ID,
		UserID:       patient.ID,
		Message:      ReminderMessage(patient.Name, ds.Medication, ds.Slot.At),
		Token:        uuid.NewString(),
		Status:       LogStatusSent,
		Day:          day,
		SentAt:       now,
	}
	intake := IntakeRecord{
		ID:           uuid.NewString(),
		SlotID:       ds.Slot.ID,
		MedicationID: ds.Medication.ID,
		PatientID:    patient.ID,
		Status:       IntakeStatusPending,
		Day:          day,
		CreatedAt:    now,
	}

	if err := d.repo.CreateDispatch(ctx, rl, intake); err != nil {
		if errors.Is(err, ErrAlreadyDispatched) {
			out.Status = DispatchSkipped
			return out
		}
		out.Status, out.Err = DispatchFailed, err
		d.log.Error("no se pudo registrar el despacho", logger.Fields{
			"slot_id": ds.Slot.ID,
			"error":   err.Error(),
		})
		d.metrics.RecordReminderFailed()
		return out
	}

	if _, err := d.notifier.Send(ctx, patient.Phone, rl.Message); err != nil {
		// el log ya quedó registrado; la falla de transporte no se revierte
		out.Status, out.Err = DispatchFailed, err
		d.metrics.RecordReminderFailed()
		return out
	}

	d.metrics.RecordReminderSent()
	d.log.Info("recordatorio despachado", logger.Fields{
		"slot_id":    ds.Slot.ID,
		"patient_id": patient.ID,
		"hora":       ds.Slot.At.String(),
	})
	out.Status = DispatchSent
	return out
}
