// Package container arma el grafo de dependencias de la aplicación: repos
// (memoria o Postgres según configuración), transporte de mensajes,
// servicios de dominio y el dispatcher.
package container

import (
	"database/sql"
	"fmt"

	"medirecord/internal/adapters/notify/simulated"
	"medirecord/internal/adapters/notify/whatsapp"
	"medirecord/internal/adapters/storage/memory"
	"medirecord/internal/adapters/storage/postgres"
	"medirecord/internal/config"
	"medirecord/internal/domain/caregivers"
	"medirecord/internal/domain/medications"
	"medirecord/internal/domain/notifications"
	"medirecord/internal/domain/reminders"
	"medirecord/internal/domain/users"
	"medirecord/internal/metrics"
	"medirecord/internal/platform/logger"
	"medirecord/internal/ports/notify"

	"github.com/prometheus/client_golang/prometheus"
)

type Container struct {
	Config   config.Config
	Logger   logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	DB *sql.DB

	Users         users.Repository
	Medications   *medications.Service
	Caregivers    *caregivers.Service
	Notifications *notifications.Service
	Reminders     *reminders.Service
	Dispatcher    *reminders.Dispatcher
	Matcher       *reminders.Matcher
}

func New(cfg config.Config, log logger.Logger) (*Container, error) {
	reg := prometheus.NewRegistry()
	mets := metrics.NewCollector(reg)

	c := &Container{
		Config:   cfg,
		Logger:   log,
		Registry: reg,
		Metrics:  mets,
	}

	var (
		userRepo users.Repository
		medRepo  medications.Repository
		cgRepo   caregivers.Repository
		remRepo  reminders.Repository
	)

	if cfg.DatabaseDSN != "" {
		db, err := postgres.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("abrir postgres: %w", err)
		}
		if err := postgres.RunMigrations(cfg.DatabaseDSN); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		c.DB = db
		userRepo = postgres.NewUsersRepo(db)
		medRepo = postgres.NewMedicationsRepo(db)
		cgRepo = postgres.NewCaregiversRepo(db)
		remRepo = postgres.NewRemindersRepo(db)
		log.Info("storage postgres listo", nil)
	} else {
		userRepo = memory.NewUserRepo()
		medRepo = memory.NewMedicationRepo()
		cgRepo = memory.NewCaregiverRepo()
		remRepo = memory.NewReminderRepo()
		log.Warn("sin DB_DSN: storage en memoria (solo dev)", nil)
	}

	transport, err := newTransport(cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	loc := cfg.Location()

	c.Users = userRepo
	c.Caregivers = caregivers.NewService(cgRepo, userRepo)
	c.Medications = medications.NewService(medRepo, c.Caregivers)
	c.Notifications = notifications.NewService(transport, log, mets, cfg.DefaultCountryCode, cfg.MessagePrefix)
	c.Reminders = reminders.NewService(remRepo, c.Medications, userRepo, c.Caregivers, c.Notifications, log, mets, loc)
	c.Dispatcher = reminders.NewDispatcher(medRepo, remRepo, userRepo, c.Notifications, log, mets, cfg.Lookahead, loc)
	c.Matcher = reminders.NewMatcher(remRepo, userRepo, c.Medications, c.Caregivers, c.Notifications, log, mets, cfg.DefaultCountryCode, loc)

	return c, nil
}

// newTransport elige WhatsApp real o el simulado. Sin credenciales, cae al
// simulado con un warning en vez de arrancar a medias.
func newTransport(cfg config.Config, log logger.Logger) (notify.Transport, error) {
	if cfg.SimulateSends {
		return simulated.New(log), nil
	}
	tr, err := whatsapp.New(cfg.WhatsAppAPIURL, cfg.WhatsAppToken, cfg.WhatsAppPhoneID, cfg.SendTimeout)
	if err != nil {
		if err == whatsapp.ErrNotConfigured {
			log.Warn("whatsapp sin credenciales: transporte simulado", nil)
			return simulated.New(log), nil
		}
		return nil, fmt.Errorf("transporte whatsapp: %w", err)
	}
	return tr, nil
}

func (c *Container) Close() {
	if c.DB != nil {
		_ = c.DB.Close()
		c.Logger.Info("conexión a base cerrada", nil)
	}
}
