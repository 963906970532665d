package auth

import "context"

// AuthVerifier resuelve un token de sesión a claims. La implementación real
// consulta el servicio de cuentas; en dev el middleware opera sin verifier.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
