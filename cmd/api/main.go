package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medirecord/internal/adapters/auth/accounts"
	"medirecord/internal/config"
	"medirecord/internal/container"
	"medirecord/internal/platform/logger"
	"medirecord/internal/ports/auth"
	"medirecord/internal/router"
	"medirecord/internal/worker/dispatch"

	"github.com/joho/godotenv"
)

func main() {
	// .env es opcional; en producción las variables vienen del entorno.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewFromEnv()

	c, err := container.New(cfg, log)
	if err != nil {
		log.Error("no se pudo armar la aplicación", logger.Fields{"error": err.Error()})
		os.Exit(1)
	}
	defer c.Close()

	var verifier auth.AuthVerifier
	if cfg.AccountsURL != "" {
		client, err := accounts.NewClient(cfg.AccountsURL, 5*time.Second)
		if err != nil {
			log.Error("cliente de cuentas inválido", logger.Fields{"error": err.Error()})
			os.Exit(1)
		}
		verifier = accounts.NewVerifier(client)
		log.Info("verificación de tokens contra servicio de cuentas", logger.Fields{
			"url": cfg.AccountsURL,
		})
	} else {
		log.Warn("sin ACCOUNTS_URL: auth en modo dev con X-Debug-User-ID", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := dispatch.NewScheduler(c.Dispatcher, log, cfg.DispatchInterval)
	go scheduler.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(c, router.Options{AuthVerifier: verifier}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("servidor iniciado", logger.Fields{"addr": srv.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("señal de apagado recibida", nil)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("servidor caído", logger.Fields{"error": err.Error()})
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("apagado forzado", logger.Fields{"error": err.Error()})
	}
	log.Info("servidor detenido", nil)
}
