// Package simulated es un notify.Transport que solo registra los mensajes.
// Se usa en dev y cuando faltan credenciales del proveedor real.
package simulated

import (
	"context"

	"medirecord/internal/platform/logger"

	"github.com/google/uuid"
)

type Transport struct {
	log logger.Logger
}

func New(log logger.Logger) *Transport {
	return &Transport{log: log}
}

func (t *Transport) Deliver(ctx context.Context, toPhone, body string) (string, error) {
	id := uuid.NewString()
	t.log.Info("envío simulado", logger.Fields{
		"to":          toPhone,
		"body":        body,
		"delivery_id": id,
	})
	return id, nil
}
