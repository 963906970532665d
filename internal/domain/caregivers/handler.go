package caregivers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medirecord/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/caregivers/links", func(cr chi.Router) {
		cr.Post("/", requestLinkHandler(svc))
		cr.Post("/{linkID}/confirm", confirmLinkHandler(svc))
		cr.Delete("/{linkID}", removeLinkHandler(svc))
	})

	// Vínculos del usuario autenticado, en ambas direcciones.
	r.Get("/me/caregivers", listMyCaregiversHandler(svc))
	r.Get("/me/patients", listMyPatientsHandler(svc))
}

type requestLinkRequest struct {
	CaregiverEmail string `json:"caregiver_email"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patient_id"`
	CaregiverID string     `json:"caregiver_id"`
	Confirmed   bool       `json:"confirmed"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

func requestLinkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req requestLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		l, err := svc.Request(r.Context(), claims.UserID, req.CaregiverEmail)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "caregiver not found", http.StatusNotFound)
			case errors.Is(err, ErrNotCaregiver):
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, ErrAlreadyLinked):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toLinkResponse(l))
	}
}

func confirmLinkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		l, err := svc.Confirm(r.Context(), chi.URLParam(r, "linkID"), claims.UserID)
		if err != nil {
			writeLinkError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLinkResponse(l))
	}
}

func removeLinkHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Remove(r.Context(), chi.URLParam(r, "linkID"), claims.UserID); err != nil {
			writeLinkError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listMyCaregiversHandler(svc *Service) http.HandlerFunc {
	// Vista de paciente: a quiénes invité / quiénes me cuidan.
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		links, err := svc.ListByPatient(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toLinkResponses(links))
	}
}

func listMyPatientsHandler(svc *Service) http.HandlerFunc {
	// Vista de cuidador: pacientes que me invitaron (incluye pendientes).
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		links, err := svc.ListByCaregiver(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toLinkResponses(links))
	}
}

func writeLinkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "link not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toLinkResponse(l Link) linkResponse {
	return linkResponse{
		ID:          l.ID,
		PatientID:   l.PatientID,
		CaregiverID: l.CaregiverID,
		Confirmed:   l.Confirmed,
		CreatedAt:   l.CreatedAt,
		ConfirmedAt: l.ConfirmedAt,
	}
}

func toLinkResponses(links []Link) []linkResponse {
	out := make([]linkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, toLinkResponse(l))
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
