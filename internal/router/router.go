package router

import (
	"net/http"

	"medirecord/internal/container"
	"medirecord/internal/domain/caregivers"
	"medirecord/internal/domain/medications"
	"medirecord/internal/domain/reminders"
	"medirecord/internal/metrics"
	"medirecord/internal/middleware"
	"medirecord/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)
}

func NewRouter(c *container.Container, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler(c.Registry))

	// El webhook queda fuera del middleware de auth: el proveedor no manda
	// tokens de sesión.
	reminders.RegisterWebhookRoutes(r, c.Matcher, c.Config.WebhookVerifyToken, c.Logger, nil)

	// Rutas autenticadas por módulo
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.AuthContext(opts.AuthVerifier))

		medications.RegisterRoutes(pr, c.Medications)
		caregivers.RegisterRoutes(pr, c.Caregivers)
		reminders.RegisterRoutes(pr, c.Reminders)
	})

	return r
}
