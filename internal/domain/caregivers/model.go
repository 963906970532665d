package caregivers

import "time"

// Link vincula un paciente con un cuidador. Nace sin confirmar cuando el
// paciente lo solicita; el cuidador lo confirma. Solo los vínculos
// confirmados otorgan permisos y reciben avisos.
type Link struct {
	ID          string
	PatientID   string
	CaregiverID string

	Confirmed   bool
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}
