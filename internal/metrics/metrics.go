// Package metrics expone los contadores Prometheus del motor de
// recordatorios y el handler de scrape.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector agrupa los contadores que tocan el dispatcher, el notificador
// y el webhook. Servicios y workers lo reciben inyectado.
type Collector struct {
	remindersSent   prometheus.Counter
	remindersFailed prometheus.Counter
	confirmations   prometheus.Counter
	webhookEvents   *prometheus.CounterVec
	messagesSent    *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		remindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medirecord_reminders_sent_total",
			Help: "Recordatorios de toma despachados.",
		}),
		remindersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medirecord_reminders_failed_total",
			Help: "Recordatorios cuyo envío falló.",
		}),
		confirmations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medirecord_confirmations_total",
			Help: "Tomas confirmadas (webhook o manuales).",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medirecord_webhook_events_total",
			Help: "Mensajes entrantes del webhook por resultado.",
		}, []string{"outcome"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medirecord_messages_sent_total",
			Help: "Mensajes salientes por resultado.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.remindersSent,
		c.remindersFailed,
		c.confirmations,
		c.webhookEvents,
		c.messagesSent,
	)

	return c
}

// NewNopCollector registra sobre un registry privado; útil en tests.
func NewNopCollector() *Collector {
	return NewCollector(prometheus.NewRegistry())
}

func (c *Collector) RecordReminderSent() { c.remindersSent.Inc() }

func (c *Collector) RecordReminderFailed() { c.remindersFailed.Inc() }

func (c *Collector) RecordConfirmation() { c.confirmations.Inc() }

// RecordWebhookEvent etiqueta por resultado: confirmed, unrecognized,
// no_pending, unknown_sender.
func (c *Collector) RecordWebhookEvent(outcome string) {
	c.webhookEvents.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordMessageSent() {
	c.messagesSent.WithLabelValues("ok").Inc()
}

func (c *Collector) RecordMessageFailed() {
	c.messagesSent.WithLabelValues("error").Inc()
}

// Handler devuelve el handler de scrape para montar en /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
