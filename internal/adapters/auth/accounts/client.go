package accounts

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"medirecord/internal/platform/httpclient"
)

var (
	ErrAccountsNotConfigured = errors.New("accounts service not configured")
)

// Client habla con el servicio de cuentas/sesiones (colaborador externo).
// El motor de recordatorios no gestiona usuarios; solo valida tokens contra él.
type Client struct {
	http *httpclient.Client
}

// NewClient crea un cliente contra baseURL (p.ej. https://accounts.internal).
// baseURL vacío deja el cliente sin configurar.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return &Client{}, nil
	}
	hc, err := httpclient.NewWithBaseURL(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil
}

type sessionResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type"`
}

// VerifyToken consulta la sesión asociada al token.
func (c *Client) VerifyToken(ctx context.Context, token string) (sessionResponse, error) {
	if !c.IsConfigured() {
		return sessionResponse{}, ErrAccountsNotConfigured
	}

	var out sessionResponse
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}
	if err := c.http.DoJSON(ctx, http.MethodGet, "/sessions/me", headers, nil, &out); err != nil {
		return sessionResponse{}, err
	}
	return out, nil
}
