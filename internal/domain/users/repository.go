package users

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

// Repository es el contrato de lectura sobre el store externo de usuarios.
// Create existe solo para seeding (tests, dev); el registro real vive fuera.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByPhone(ctx context.Context, phone string) (User, error)
}
