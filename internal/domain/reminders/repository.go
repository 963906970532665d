package reminders

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("reminder not found")
	// ErrAlreadyDispatched: ya existe un log para (slot, día); el tick lo
	// trata como salto, no como falla.
	ErrAlreadyDispatched = errors.New("slot already dispatched today")
)

type Repository interface {
	// CreateDispatch inserta el log y su toma pendiente como unidad atómica,
	// solo si ningún log existe aún para (log.SlotID, log.Day).
	CreateDispatch(ctx context.Context, log ReminderLog, intake IntakeRecord) error

	GetLogByID(ctx context.Context, id string) (ReminderLog, error)
	// LatestSentByUser devuelve el log con estado enviado más reciente del
	// usuario en el día dado. ErrNotFound si no hay ninguno.
	LatestSentByUser(ctx context.Context, userID, day string) (ReminderLog, error)

	// Confirm marca el log como confirmado y la toma pendiente más reciente
	// de su (slot, día) como tomada, como unidad atómica. Un log ya
	// confirmado devuelve ErrNotFound.
	Confirm(ctx context.Context, logID string, at time.Time) (ReminderLog, IntakeRecord, error)

	// CreateIntake registra una toma fuera del flujo del dispatcher
	// (confirmación manual). Si ya hay una toma pendiente para (slot, día)
	// la marca tomada en vez de duplicar.
	CreateIntake(ctx context.Context, intake IntakeRecord) (IntakeRecord, error)

	ListIntakesByPatient(ctx context.Context, patientID, day string) ([]IntakeRecord, error)
	CountTakenByPatient(ctx context.Context, patientID string) (int, error)
}
