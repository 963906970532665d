package notifications

import (
	"context"
	"errors"
	"strings"

	"medirecord/internal/metrics"
	"medirecord/internal/platform/logger"
	"medirecord/internal/ports/notify"
)

var ErrEmptyRecipient = errors.New("empty recipient phone")

// Delivery es el resultado de un envío aceptado por el transporte.
type Delivery struct {
	ID string
	To string
}

// Service normaliza destinos, antepone el prefijo de la aplicación y delega
// en el transporte. Un intento por mensaje, sin reintentos: un recordatorio
// perdido se recupera en el siguiente tick, no aquí.
type Service struct {
	transport   notify.Transport
	log         logger.Logger
	metrics     *metrics.Collector
	countryCode string
	prefix      string
}

func NewService(transport notify.Transport, log logger.Logger, m *metrics.Collector, countryCode, prefix string) *Service {
	return &Service{
		transport:   transport,
		log:         log,
		metrics:     m,
		countryCode: countryCode,
		prefix:      prefix,
	}
}

func (s *Service) Send(ctx context.Context, phone, body string) (Delivery, error) {
	to := NormalizePhone(phone, s.countryCode)
	if to == "" {
		return Delivery{}, ErrEmptyRecipient
	}

	if s.prefix != "" && !strings.HasPrefix(body, s.prefix) {
		body = s.prefix + " " + body
	}

	id, err := s.transport.Deliver(ctx, to, body)
	if err != nil {
		s.metrics.RecordMessageFailed()
		s.log.Error("mensaje no entregado", logger.Fields{
			"to":    to,
			"error": err.Error(),
		})
		return Delivery{}, err
	}

	s.metrics.RecordMessageSent()
	s.log.Info("mensaje entregado", logger.Fields{
		"to":          to,
		"delivery_id": id,
	})
	return Delivery{ID: id, To: to}, nil
}
