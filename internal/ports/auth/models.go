package auth

// UserType distingue pacientes de cuidadores en las rutas que lo requieren.
type UserType string

const (
	UserTypePatient   UserType = "paciente"
	UserTypeCaregiver UserType = "cuidador"
)

// Claims representa la información extraída del token de sesión.
type Claims struct {
	UserID string
	Email  string
	Type   UserType
}
