// Package whatsapp implementa notify.Transport sobre la Cloud API de Meta.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medirecord/internal/platform/httpclient"

	"golang.org/x/time/rate"
)

var ErrNotConfigured = errors.New("whatsapp: missing token or phone id")

// outboundRate acota los envíos salientes; la Cloud API castiga ráfagas.
const (
	outboundRate  = 10 // mensajes por segundo
	outboundBurst = 20
)

type Client struct {
	http    *httpclient.Client
	phoneID string
	token   string
	limiter *rate.Limiter
}

// New crea el transporte. baseURL apunta a la versión del Graph API
// (p.ej. https://graph.facebook.com/v20.0).
func New(baseURL, token, phoneID string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(phoneID) == "" {
		return nil, ErrNotConfigured
	}
	hc, err := httpclient.NewWithBaseURL(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		http:    hc,
		phoneID: phoneID,
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(outboundRate), outboundBurst),
	}, nil
}

type textPayload struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textContent `json:"text"`
}

type textContent struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *Client) Deliver(ctx context.Context, toPhone, body string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("whatsapp: rate limit wait: %w", err)
	}

	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               toPhone,
		Type:             "text",
		Text:             textContent{Body: body},
	}

	var resp sendResponse
	err := c.http.DoJSON(ctx, http.MethodPost, "/"+c.phoneID+"/messages", map[string]string{
		"Authorization": "Bearer " + c.token,
	}, payload, &resp)
	if err != nil {
		return "", fmt.Errorf("whatsapp: send to %s: %w", toPhone, err)
	}

	if len(resp.Messages) == 0 {
		// la API aceptó pero no devolvió ID; no es motivo para reintentar
		return "", nil
	}
	return resp.Messages[0].ID, nil
}
