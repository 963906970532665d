package reminders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medirecord/internal/domain/medications"
	"medirecord/internal/middleware"
	"medirecord/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// RegisterWebhookRoutes monta el webhook de WhatsApp. Va fuera del
// middleware de auth: Meta no manda tokens de sesión, la verificación es el
// handshake con verifyToken. Un now nil usa el reloj del sistema.
func RegisterWebhookRoutes(r chi.Router, matcher *Matcher, verifyToken string, log logger.Logger, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	r.Get("/webhook/whatsapp", verifyWebhookHandler(verifyToken, log))
	r.Post("/webhook/whatsapp", inboundWebhookHandler(matcher, log, now))
}

// RegisterRoutes monta las rutas autenticadas del módulo.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/slots/{slotID}/intakes", recordIntakeHandler(svc))
	r.Get("/patients/{patientID}/intakes", historyHandler(svc))
	r.Get("/patients/{patientID}/stats", statsHandler(svc))
}

func verifyWebhookHandler(verifyToken string, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mode := q.Get("hub.mode")
		token := q.Get("hub.verify_token")
		challenge := q.Get("hub.challenge")

		if mode != "subscribe" || token != verifyToken {
			log.Warn("handshake de webhook rechazado", logger.Fields{"mode": mode})
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		// el challenge se devuelve tal cual, en texto plano
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
	}
}

// Forma del payload de la Cloud API. Lo que no usamos se ignora.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func inboundWebhookHandler(matcher *Matcher, log logger.Logger, nowFn func() time.Time) http.HandlerFunc {
	// Siempre 200: si el proveedor ve errores, reintenta y desactiva el
	// webhook. Los problemas de negocio se resuelven adentro.
	return func(w http.ResponseWriter, r *http.Request) {
		var payload webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			log.Warn("payload de webhook ilegible", logger.Fields{"error": err.Error()})
			writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
			return
		}

		now := nowFn()
		for _, entry := range payload.Entry {
			for _, change := range entry.Changes {
				for _, msg := range change.Value.Messages {
					if _, err := matcher.HandleInbound(r.Context(), msg.From, msg.Text.Body, now); err != nil {
						log.Error("mensaje entrante no procesado", logger.Fields{
							"from":  msg.From,
							"error": err.Error(),
						})
					}
				}
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

type intakeResponse struct {
	ID             string     `json:"id"`
	SlotID         string     `json:"slot_id"`
	MedicationID   string     `json:"medication_id"`
	PatientID      string     `json:"patient_id"`
	Status         string     `json:"status"`
	Day            string     `json:"day"`
	TakenAt        *time.Time `json:"taken_at,omitempty"`
	MedicationName string     `json:"medication_name,omitempty"`
	Dose           string     `json:"dose,omitempty"`
	SlotTime       string     `json:"slot_time,omitempty"`
}

func recordIntakeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rec, err := svc.RecordIntake(r.Context(), claims.UserID, chi.URLParam(r, "slotID"))
		if err != nil {
			writeReminderError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toIntakeResponse(rec))
	}
}

func historyHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		day := r.URL.Query().Get("date")
		if day != "" {
			if _, err := time.Parse(DayLayout, day); err != nil {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}

		views, err := svc.History(r.Context(), claims.UserID, chi.URLParam(r, "patientID"), day)
		if err != nil {
			writeReminderError(w, err)
			return
		}

		out := make([]intakeResponse, 0, len(views))
		for _, v := range views {
			resp := toIntakeResponse(v.Intake)
			resp.MedicationName = v.MedicationName
			resp.Dose = v.Dose
			resp.SlotTime = v.SlotTime
			out = append(out, resp)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type statsResponse struct {
	Medications  int `json:"medications"`
	TakenTotal   int `json:"taken_total"`
	TakenToday   int `json:"taken_today"`
	PendingToday int `json:"pending_today"`
}

func statsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		st, err := svc.StatsFor(r.Context(), claims.UserID, chi.URLParam(r, "patientID"))
		if err != nil {
			writeReminderError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statsResponse{
			Medications:  st.Medications,
			TakenTotal:   st.TakenTotal,
			TakenToday:   st.TakenToday,
			PendingToday: st.PendingToday,
		})
	}
}

func writeReminderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden), errors.Is(err, medications.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound), errors.Is(err, medications.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toIntakeResponse(rec IntakeRecord) intakeResponse {
	return intakeResponse{
		ID:           rec.ID,
		SlotID:       rec.SlotID,
		MedicationID: rec.MedicationID,
		PatientID:    rec.PatientID,
		Status:       string(rec.Status),
		Day:          rec.Day,
		TakenAt:      rec.TakenAt,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
