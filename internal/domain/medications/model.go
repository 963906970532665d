package medications

import "time"

// Recurrence etiqueta la repetición de un horario. El motor de recordatorios
// solo ejercita "diario"; las otras quedan para la capa de edición manual.
type Recurrence string

const (
	RecurrenceDaily    Recurrence = "diario"
	RecurrenceWeekdays Recurrence = "entre_semana"
	RecurrenceCustom   Recurrence = "personalizado"
)

// Medication es un medicamento registrado para un paciente.
// PatientID es el dueño; AddedBy puede ser el propio paciente o un cuidador
// vinculado y confirmado.
type Medication struct {
	ID        string
	PatientID string

	Name         string
	Dose         string
	Instructions string

	AddedBy string

	CreatedAt time.Time
}

// ScheduleSlot es una hora diaria a la que se espera una toma.
type ScheduleSlot struct {
	ID           string
	MedicationID string

	At         ClockTime
	Recurrence Recurrence
	Active     bool

	CreatedAt time.Time
}

// DueSlot es un horario vencido junto con su medicamento, tal como lo
// consume el dispatcher.
type DueSlot struct {
	Slot       ScheduleSlot
	Medication Medication
}
