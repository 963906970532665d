package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"medirecord/internal/domain/medications"
)

type medicationRepo struct {
	mu        sync.RWMutex
	medsByID  map[string]medications.Medication
	slotsByID map[string]medications.ScheduleSlot
}

func NewMedicationRepo() medications.Repository {
	return &medicationRepo{
		medsByID:  make(map[string]medications.Medication),
		slotsByID: make(map[string]medications.ScheduleSlot),
	}
}

func (r *medicationRepo) Create(ctx context.Context, m medications.Medication, slots []medications.ScheduleSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("medication id required")
	}
	if _, exists := r.medsByID[m.ID]; exists {
		return errors.New("medication already exists")
	}
	r.medsByID[m.ID] = m
	for _, s := range slots {
		r.slotsByID[s.ID] = s
	}
	return nil
}

func (r *medicationRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.medsByID[id]
	if !ok {
		return medications.Medication{}, medications.ErrNotFound
	}
	return m, nil
}

func (r *medicationRepo) ListByPatient(ctx context.Context, patientID string) ([]medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Medication, 0)
	for _, m := range r.medsByID {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *medicationRepo) Update(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.medsByID[m.ID]; !exists {
		return medications.ErrNotFound
	}
	r.medsByID[m.ID] = m
	return nil
}

func (r *medicationRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.medsByID[id]; !exists {
		return medications.ErrNotFound
	}
	delete(r.medsByID, id)
	for sid, s := range r.slotsByID {
		if s.MedicationID == id {
			delete(r.slotsByID, sid)
		}
	}
	return nil
}

func (r *medicationRepo) ListSlots(ctx context.Context, medicationID string) ([]medications.ScheduleSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.ScheduleSlot, 0)
	for _, s := range r.slotsByID {
		if s.MedicationID == medicationID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].At.MinuteOfDay() < out[j].At.MinuteOfDay()
	})
	return out, nil
}

func (r *medicationRepo) GetSlot(ctx context.Context, id string) (medications.ScheduleSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.slotsByID[id]
	if !ok {
		return medications.ScheduleSlot{}, medications.ErrNotFound
	}
	return s, nil
}

func (r *medicationRepo) ReplaceSlots(ctx context.Context, medicationID string, slots []medications.ScheduleSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sid, s := range r.slotsByID {
		if s.MedicationID == medicationID {
			delete(r.slotsByID, sid)
		}
	}
	for _, s := range slots {
		r.slotsByID[s.ID] = s
	}
	return nil
}

func (r *medicationRepo) SetSlotActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slotsByID[id]
	if !ok {
		return medications.ErrNotFound
	}
	s.Active = active
	r.slotsByID[id] = s
	return nil
}

func (r *medicationRepo) ListDueSlots(ctx context.Context, day time.Weekday, from, to medications.ClockTime) ([]medications.DueSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fromMin, toMin := from.MinuteOfDay(), to.MinuteOfDay()
	out := make([]medications.DueSlot, 0)
	for _, s := range r.slotsByID {
		if !s.Active || !recursOn(s.Recurrence, day) {
			continue
		}
		min := s.At.MinuteOfDay()
		if min < fromMin || min >= toMin {
			continue
		}
		out = append(out, medications.DueSlot{Slot: s, Medication: r.medsByID[s.MedicationID]})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Slot.At.MinuteOfDay() < out[j].Slot.At.MinuteOfDay()
	})
	return out, nil
}

func (r *medicationRepo) ListActiveSlotsByPatient(ctx context.Context, patientID string) ([]medications.DueSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.DueSlot, 0)
	for _, s := range r.slotsByID {
		if !s.Active {
			continue
		}
		m, ok := r.medsByID[s.MedicationID]
		if !ok || m.PatientID != patientID {
			continue
		}
		out = append(out, medications.DueSlot{Slot: s, Medication: m})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Slot.At.MinuteOfDay() < out[j].Slot.At.MinuteOfDay()
	})
	return out, nil
}

func recursOn(rec medications.Recurrence, day time.Weekday) bool {
	switch rec {
	case medications.RecurrenceWeekdays:
		return day != time.Saturday && day != time.Sunday
	default:
		return true
	}
}
