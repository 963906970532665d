package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config reúne todo lo que el motor de recordatorios necesita del entorno.
// Los valores con semántica temporal quedan aquí como constantes nombradas,
// nunca inferidos en el código de negocio.
type Config struct {
	Port    string
	AppName string

	// Postgres. Vacío => repos in-memory (dev / tests).
	DatabaseDSN string

	// WhatsApp Cloud API.
	WhatsAppAPIURL  string
	WhatsAppToken   string
	WhatsAppPhoneID string
	// Token compartido con el proveedor para el handshake GET del webhook.
	WebhookVerifyToken string
	// Si true (o si faltan credenciales) se usa el transporte simulado.
	SimulateSends bool

	// Prefijo de todos los mensajes salientes.
	MessagePrefix string
	// Código de país por defecto para números de 10 dígitos.
	DefaultCountryCode string
	// Zona horaria de los horarios de los pacientes.
	Timezone string

	// Ventana de anticipación del dispatcher: un horario está "due" si cae
	// dentro de [now, now+lookahead) del mismo día.
	Lookahead time.Duration
	// Intervalo del ticker del dispatcher.
	DispatchInterval time.Duration
	// Timeout de cada intento de envío (un intento, sin reintentos).
	SendTimeout time.Duration

	// URL del servicio de cuentas para verificar tokens (opcional; si está
	// vacío el middleware queda en modo dev con X-Debug-User-ID).
	AccountsURL string
}

func Load() Config {
	return Config{
		Port:    getEnv("PORT", "8080"),
		AppName: getEnv("APP_NAME", "medirecord"),

		DatabaseDSN: getEnv("DB_DSN", ""),

		WhatsAppAPIURL:     getEnv("WHATSAPP_API_URL", "https://graph.facebook.com/v20.0"),
		WhatsAppToken:      getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneID:    getEnv("WHATSAPP_PHONE_ID", ""),
		WebhookVerifyToken: getEnv("WEBHOOK_VERIFY_TOKEN", "MEDIRECORD_WEBHOOK_TOKEN"),
		SimulateSends:      getBool("SIMULATE_SENDS", false),

		MessagePrefix:      getEnv("MESSAGE_PREFIX", "MediRecord:"),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "52"),
		Timezone:           getEnv("TZ_NAME", "America/Mexico_City"),

		Lookahead:        getMinutes("REMINDER_LOOKAHEAD_MINUTES", 15),
		DispatchInterval: getMinutes("DISPATCH_INTERVAL_MINUTES", 1),
		SendTimeout:      getSeconds("SEND_TIMEOUT_SECONDS", 10),

		AccountsURL: getEnv("ACCOUNTS_URL", ""),
	}
}

// Location resuelve la zona horaria configurada; cae a UTC si no existe.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func getMinutes(key string, defaultMinutes int) time.Duration {
	return time.Duration(getInt(key, defaultMinutes)) * time.Minute
}

func getSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getInt(key, defaultSeconds)) * time.Second
}

func getInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
