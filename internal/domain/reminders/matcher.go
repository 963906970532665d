package reminders

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"medirecord/internal/domain/medications"
	"medirecord/internal/domain/notifications"
	"medirecord/internal/domain/users"
	"medirecord/internal/metrics"
	"medirecord/internal/platform/logger"
)

// confirmRe acepta el mensaje completo, ya en minúsculas y sin espacios en
// los bordes. "si, ya" o "no" no confirman nada.
var confirmRe = regexp.MustCompile(`^(si|sí|yes|ok|listo|tomado)$`)

// CaregiverDirectory entrega los cuidadores confirmados de un paciente para
// el fan-out de avisos.
type CaregiverDirectory interface {
	ConfirmedCaregivers(ctx context.Context, patientID string) ([]users.User, error)
}

type Outcome string

const (
	OutcomeConfirmed     Outcome = "confirmed"
	OutcomeUnrecognized  Outcome = "unrecognized"
	OutcomeNoPending     Outcome = "no_pending"
	OutcomeUnknownSender Outcome = "unknown_sender"
)

type MatchResult struct {
	Outcome Outcome
	// Solo con OutcomeConfirmed:
	Log    ReminderLog
	Intake IntakeRecord
}

// Matcher interpreta respuestas entrantes de WhatsApp y las aplica al
// recordatorio enviado más reciente del remitente en el día.
type Matcher struct {
	repo       Repository
	users      users.Repository
	meds       *medications.Service
	caregivers CaregiverDirectory
	notifier   *notifications.Service
	log        logger.Logger
	metrics    *metrics.Collector

	countryCode string
	loc         *time.Location
}

func NewMatcher(
	repo Repository,
	userRepo users.Repository,
	meds *medications.Service,
	caregivers CaregiverDirectory,
	notifier *notifications.Service,
	log logger.Logger,
	m *metrics.Collector,
	countryCode string,
	loc *time.Location,
) *Matcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Matcher{
		repo:        repo,
		users:       userRepo,
		meds:        meds,
		caregivers:  caregivers,
		notifier:    notifier,
		log:         log,
		metrics:     m,
		countryCode: countryCode,
		loc:         loc,
	}
}

// HandleInbound procesa un mensaje entrante. Nunca devuelve error por
// decisiones de negocio (texto no reconocido, sin pendientes); el error
// queda para fallas de infraestructura.
func (m *Matcher) HandleInbound(ctx context.Context, senderPhone, text string, now time.Time) (MatchResult, error) {
	now = now.In(m.loc)

	if !confirmRe.MatchString(strings.ToLower(strings.TrimSpace(text))) {
		m.metrics.RecordWebhookEvent(string(OutcomeUnrecognized))
		m.log.Info("respuesta no reconocida", logger.Fields{"from": senderPhone})
		return MatchResult{Outcome: OutcomeUnrecognized}, nil
	}

	patient, err := m.resolveSender(ctx, senderPhone)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			m.metrics.RecordWebhookEvent(string(OutcomeUnknownSender))
			m.log.Warn("remitente sin cuenta", logger.Fields{"from": senderPhone})
			return MatchResult{Outcome: OutcomeUnknownSender}, nil
		}
		return MatchResult{}, err
	}

	rl, err := m.repo.LatestSentByUser(ctx, patient.ID, DayOf(now))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.metrics.RecordWebhookEvent(string(OutcomeNoPending))
			m.log.Info("confirmación sin recordatorio pendiente", logger.Fields{
				"patient_id": patient.ID,
			})
			return MatchResult{Outcome: OutcomeNoPending}, nil
		}
		return MatchResult{}, err
	}

	confirmed, intake, err := m.repo.Confirm(ctx, rl.ID, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// carrera: otro mensaje lo confirmó entre la búsqueda y el update
			m.metrics.RecordWebhookEvent(string(OutcomeNoPending))
			return MatchResult{Outcome: OutcomeNoPending}, nil
		}
		return MatchResult{}, err
	}

	m.metrics.RecordConfirmation()
	m.metrics.RecordWebhookEvent(string(OutcomeConfirmed))
	m.log.Info("toma confirmada", logger.Fields{
		"patient_id": patient.ID,
		"slot_id":    confirmed.SlotID,
		"log_id":     confirmed.ID,
	})

	// Agradecimiento al paciente y aviso a cuidadores. Son cortesías: si
	// fallan no se revierte la confirmación.
	if _, err := m.notifier.Send(ctx, patient.Phone, ThankYouMessage(patient.Name)); err != nil {
		m.log.Warn("no se pudo agradecer al paciente", logger.Fields{
			"patient_id": patient.ID,
			"error":      err.Error(),
		})
	}
	m.notifyCaregivers(ctx, patient, confirmed, now)

	return MatchResult{Outcome: OutcomeConfirmed, Log: confirmed, Intake: intake}, nil
}

// resolveSender busca el remitente por teléfono. Prueba los dígitos tal cual
// llegan y, si traen código de país, también el número local, porque los
// usuarios suelen registrarse con el formato corto.
func (m *Matcher) resolveSender(ctx context.Context, senderPhone string) (users.User, error) {
	digits := notifications.NormalizePhone(senderPhone, m.countryCode)
	if digits == "" {
		return users.User{}, users.ErrNotFound
	}

	u, err := m.users.GetByPhone(ctx, digits)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return users.User{}, err
	}

	if m.countryCode != "" && strings.HasPrefix(digits, m.countryCode) && len(digits) > len(m.countryCode) {
		return m.users.GetByPhone(ctx, digits[len(m.countryCode):])
	}
	return users.User{}, users.ErrNotFound
}

func (m *Matcher) notifyCaregivers(ctx context.Context, patient users.User, rl ReminderLog, now time.Time) {
	list, err := m.caregivers.ConfirmedCaregivers(ctx, patient.ID)
	if err != nil {
		m.log.Warn("no se pudieron listar cuidadores", logger.Fields{
			"patient_id": patient.ID,
			"error":      err.Error(),
		})
		return
	}
	if len(list) == 0 {
		return
	}

	med, err := m.meds.GetByID(ctx, patient.ID, rl.MedicationID)
	if err != nil {
		m.log.Warn("medicamento no resuelto para aviso", logger.Fields{
			"medication_id": rl.MedicationID,
			"error":         err.Error(),
		})
		return
	}

	msg := CaregiverNoticeMessage(patient.Name, med.Name, med.Dose, medications.ClockOf(now))
	for _, c := range list {
		if strings.TrimSpace(c.Phone) == "" {
			continue
		}
		if _, err := m.notifier.Send(ctx, c.Phone, msg); err != nil {
			m.log.Warn("aviso a cuidador fallido", logger.Fields{
				"caregiver_id": c.ID,
				"error":        err.Error(),
			})
		}
	}
}
