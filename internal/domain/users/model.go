package users

import "time"

// Type distingue los dos roles de la aplicación.
type Type string

const (
	TypePatient   Type = "paciente"
	TypeCaregiver Type = "cuidador"
)

// User pertenece al store de cuentas (colaborador externo). Este motor nunca
// lo crea ni lo muta; solo lo lee para resolver nombre y teléfono.
type User struct {
	ID    string
	Name  string
	Email string
	Phone string
	Type  Type

	CreatedAt time.Time
}
