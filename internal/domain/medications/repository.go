package medications

import (
	"context"
	"time"
)

type Repository interface {
	// Create persiste el medicamento junto con sus horarios en una sola unidad.
	Create(ctx context.Context, m Medication, slots []ScheduleSlot) error
	GetByID(ctx context.Context, id string) (Medication, error)
	ListByPatient(ctx context.Context, patientID string) ([]Medication, error)
	Update(ctx context.Context, m Medication) error
	// Delete elimina el medicamento y sus horarios.
	Delete(ctx context.Context, id string) error

	ListSlots(ctx context.Context, medicationID string) ([]ScheduleSlot, error)
	GetSlot(ctx context.Context, id string) (ScheduleSlot, error)
	ReplaceSlots(ctx context.Context, medicationID string, slots []ScheduleSlot) error
	SetSlotActive(ctx context.Context, id string, active bool) error

	// ListDueSlots devuelve horarios activos con from <= hora < to para el día
	// indicado (la recurrencia entre_semana solo aplica de lunes a viernes).
	ListDueSlots(ctx context.Context, day time.Weekday, from, to ClockTime) ([]DueSlot, error)
	// ListActiveSlotsByPatient alimenta próxima-toma y estadísticas.
	ListActiveSlotsByPatient(ctx context.Context, patientID string) ([]DueSlot, error)
}
