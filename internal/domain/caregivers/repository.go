package caregivers

import "context"

type Repository interface {
	Create(ctx context.Context, l Link) error
	GetByID(ctx context.Context, id string) (Link, error)
	GetByPair(ctx context.Context, patientID, caregiverID string) (Link, error)
	Update(ctx context.Context, l Link) error
	Delete(ctx context.Context, id string) error

	ListByPatient(ctx context.Context, patientID string) ([]Link, error)
	ListByCaregiver(ctx context.Context, caregiverID string) ([]Link, error)
}
