package reminders

import "time"

// DayLayout es la clave de calendario de logs y tomas. La deduplicación del
// dispatcher y la búsqueda del matcher operan por (slot, día).
const DayLayout = "2006-01-02"

func DayOf(t time.Time) string {
	return t.Format(DayLayout)
}

// LogStatus es el ciclo de vida de un recordatorio enviado.
type LogStatus string

const (
	LogStatusSent      LogStatus = "enviado"
	LogStatusConfirmed LogStatus = "confirmado"
)

// IntakeStatus es el ciclo de vida de una toma esperada.
type IntakeStatus string

const (
	IntakeStatusPending IntakeStatus = "pendiente"
	IntakeStatusTaken   IntakeStatus = "tomado"
)

// ReminderLog registra un recordatorio despachado por WhatsApp. Token viaja
// como referencia opaca; Status pasa a confirmado cuando el paciente
// responde.
type ReminderLog struct {
	ID           string
	SlotID       string
	MedicationID string
	// UserID es el paciente destinatario.
	UserID string

	Message string
	Token   string
	Status  LogStatus

	Day         string
	SentAt      time.Time
	ConfirmedAt *time.Time
}

// IntakeRecord es una toma esperada de un día. Nace pendiente junto con el
// recordatorio (o directamente tomada, en confirmación manual).
type IntakeRecord struct {
	ID           string
	SlotID       string
	MedicationID string
	PatientID    string

	Status IntakeStatus
	Day    string

	// TakenAt solo está presente con Status tomado.
	TakenAt   *time.Time
	CreatedAt time.Time
}

// Stats resume la adherencia de un paciente.
type Stats struct {
	Medications  int
	TakenTotal   int
	TakenToday   int
	PendingToday int
}
