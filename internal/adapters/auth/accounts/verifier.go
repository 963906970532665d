package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medirecord/internal/ports/auth"
)

var (
	ErrTokenEmpty = errors.New("token is empty")
)

// Verifier implementa auth.AuthVerifier contra el servicio de cuentas.
// No se integra automáticamente; se instancia desde main/router si hay URL.
type Verifier struct {
	client *Client
}

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil || !v.client.IsConfigured() {
		return auth.Claims{}, ErrAccountsNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	sess, err := v.client.VerifyToken(ctx, token)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("accounts verify failed: %w", err)
	}

	userID := strings.TrimSpace(sess.UserID)
	if userID == "" {
		return auth.Claims{}, errors.New("accounts session missing user id")
	}

	return auth.Claims{
		UserID: userID,
		Email:  strings.TrimSpace(sess.Email),
		Type:   auth.UserType(strings.TrimSpace(sess.Type)),
	}, nil
}
