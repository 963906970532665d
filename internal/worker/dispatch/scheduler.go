// Package dispatch corre el ciclo periódico que revisa horarios vencidos y
// dispara los recordatorios por WhatsApp.
package dispatch

import (
	"context"
	"time"

	"medirecord/internal/domain/reminders"
	"medirecord/internal/platform/logger"
)

// Ticker abstrae al dispatcher de recordatorios para poder probar el ciclo
// sin armar el módulo completo.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) []reminders.DispatchOutcome
}

type Scheduler struct {
	dispatcher Ticker
	log        logger.Logger
	interval   time.Duration
}

func NewScheduler(dispatcher Ticker, log logger.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		dispatcher: dispatcher,
		log:        log,
		interval:   interval,
	}
}

// Start bloquea hasta que el contexto se cancele. Corre una pasada inmediata
// al arrancar y luego una por tick del intervalo configurado.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("scheduler de despacho iniciado", logger.Fields{
		"interval": s.interval.String(),
	})

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler de despacho detenido", nil)
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	outcomes := s.dispatcher.Tick(ctx, time.Now())

	var sent, skipped, failed int
	for _, out := range outcomes {
		switch out.Status {
		case reminders.DispatchSent:
			sent++
		case reminders.DispatchSkipped:
			skipped++
		case reminders.DispatchFailed:
			failed++
		}
	}

	if sent > 0 || failed > 0 {
		s.log.Info("pasada de despacho completada", logger.Fields{
			"sent":    sent,
			"skipped": skipped,
			"failed":  failed,
		})
	}
}
