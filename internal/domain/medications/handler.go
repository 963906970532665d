package medications

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
	r.Route("/patients/{patientID}/medications", func(pr chi.Router) {
		pr.Post("/", createMedicationHandler(svc))
		pr.Get("/", listMedicationsHandler(svc))
		pr.Get("/next-dose", nextDoseHandler(svc))
	})

	r.Route("/medications/{medicationID}", func(mr chi.Router) {
		mr.Get("/", getMedicationHandler(svc))
		mr.Patch("/", updateMedicationHandler(svc))
		mr.Delete("/", deleteMedicationHandler(svc))
		mr.Get("/slots", listSlotsHandler(svc))
	})

	r.Put("/slots/{slotID}/active", setSlotActiveHandler(svc))
}

type createMedicationRequest struct {
	Name         string   `json:"name"`
	Dose         string   `json:"dose"`
	Instructions string   `json:"instructions"`
	AutoSchedule bool     `json:"auto_schedule"`
	Times        []string `json:"times"` // "HH:MM", ignorado con auto_schedule
}

type updateMedicationRequest struct {
	Name         *string  `json:"name"`
	Dose         *string  `json:"dose"`
	Instructions *string  `json:"instructions"`
	Times        []string `json:"times"`
}

type medicationResponse struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	Name         string    `json:"name"`
	Dose         string    `json:"dose"`
	Instructions string    `json:"instructions"`
	AddedBy      string    `json:"added_by"`
	CreatedAt    time.Time `json:"created_at"`
}

type slotResponse struct {
	ID           string `json:"id"`
	MedicationID string `json:"medication_id"`
	Time         string `json:"time"`
	Recurrence   string `json:"recurrence"`
	Active       bool   `json:"active"`
}

type medicationWithSlotsResponse struct {
	Medication medicationResponse `json:"medication"`
	Slots      []slotResponse     `json:"slots"`
}

type nextDoseResponse struct {
	Medication medicationResponse `json:"medication"`
	Slot       slotResponse       `json:"slot"`
}

func createMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		m, slots, err := svc.Create(r.Context(), claims.UserID, patientID, CreateInput{
			Name:         req.Name,
			Dose:         req.Dose,
			Instructions: req.Instructions,
			AutoSchedule: req.AutoSchedule,
			Times:        req.Times,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrNoSchedule):
				// 422: instrucciones válidas pero sin horarios derivables;
				// el cliente debe reenviar con times manuales.
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, medicationWithSlotsResponse{
			Medication: toMedicationResponse(m),
			Slots:      toSlotResponses(slots),
		})
	}
}

func listMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByPatient(r.Context(), claims.UserID, chi.URLParam(r, "patientID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func nextDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		due, found, err := svc.NextDose(r.Context(), claims.UserID, chi.URLParam(r, "patientID"), time.Now())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !found {
			http.Error(w, "no scheduled doses", http.StatusNotFound)
			return
		}

		writeJSON(w, http.StatusOK, nextDoseResponse{
			Medication: toMedicationResponse(due.Medication),
			Slot:       toSlotResponse(due.Slot),
		})
	}
}

func getMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.GetByID(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func updateMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		var req updateMedicationRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"), UpdateInput{
			Name:         req.Name,
			Dose:         req.Dose,
			Instructions: req.Instructions,
			Times:        req.Times,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func deleteMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "medicationID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listSlotsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		slots, err := svc.ListSlots(r.Context(), claims.UserID, chi.URLParam(r, "medicationID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func setSlotActiveHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			Active bool `json:"active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		slot, err := svc.SetSlotActive(r.Context(), claims.UserID, chi.URLParam(r, "slotID"), req.Active)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "medication not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toMedicationResponse(m Medication) medicationResponse {
	return medicationResponse{
		ID:           m.ID,
		PatientID:    m.PatientID,
		Name:         m.Name,
		Dose:         m.Dose,
		Instructions: m.Instructions,
		AddedBy:      m.AddedBy,
		CreatedAt:    m.CreatedAt,
	}
}

func toSlotResponse(s ScheduleSlot) slotResponse {
	return slotResponse{
		ID:           s.ID,
		MedicationID: s.MedicationID,
		Time:         s.At.String(),
		Recurrence:   string(s.Recurrence),
		Active:       s.Active,
	}
}

func toSlotResponses(slots []ScheduleSlot) []slotResponse {
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
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
