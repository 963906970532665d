package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"medirecord/internal/domain/reminders"
)

type reminderRepo struct {
	mu       sync.Mutex
	logsByID map[string]reminders.ReminderLog
	intakes  map[string]reminders.IntakeRecord
	// dispatched dedup por "slotID|day"
	dispatched map[string]struct{}
}

func NewReminderRepo() reminders.Repository {
	return &reminderRepo{
		logsByID:   make(map[string]reminders.ReminderLog),
		intakes:    make(map[string]reminders.IntakeRecord),
		dispatched: make(map[string]struct{}),
	}
}

func dispatchKey(slotID, day string) string {
	return slotID + "|" + day
}

func (r *reminderRepo) CreateDispatch(ctx context.Context, log reminders.ReminderLog, intake reminders.IntakeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(log.ID) == "" || strings.TrimSpace(intake.ID) == "" {
		return errors.New("dispatch ids required")
	}

	key := dispatchKey(log.SlotID, log.Day)
	if _, exists := r.dispatched[key]; exists {
		return reminders.ErrAlreadyDispatched
	}

	r.dispatched[key] = struct{}{}
	r.logsByID[log.ID] = log
	r.intakes[intake.ID] = intake
	return nil
}

func (r *reminderRepo) GetLogByID(ctx context.Context, id string) (reminders.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.logsByID[id]
	if !ok {
		return reminders.ReminderLog{}, reminders.ErrNotFound
	}
	return l, nil
}

func (r *reminderRepo) LatestSentByUser(ctx context.Context, userID, day string) (reminders.ReminderLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var winner reminders.ReminderLog
	has := false
	for _, l := range r.logsByID {
		if l.UserID != userID || l.Day != day || l.Status != reminders.LogStatusSent {
			continue
		}
		if !has || l.SentAt.After(winner.SentAt) {
			winner = l
			has = true
		}
	}
	if !has {
		return reminders.ReminderLog{}, reminders.ErrNotFound
	}
	return winner, nil
}

func (r *reminderRepo) Confirm(ctx context.Context, logID string, at time.Time) (reminders.ReminderLog, reminders.IntakeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.logsByID[logID]
	if !ok || l.Status != reminders.LogStatusSent {
		return reminders.ReminderLog{}, reminders.IntakeRecord{}, reminders.ErrNotFound
	}

	l.Status = reminders.LogStatusConfirmed
	l.ConfirmedAt = &at
	r.logsByID[logID] = l

	// toma pendiente más reciente del mismo (slot, día)
	var intake reminders.IntakeRecord
	hasIntake := false
	for _, rec := range r.intakes {
		if rec.SlotID != l.SlotID || rec.Day != l.Day || rec.Status != reminders.IntakeStatusPending {
			continue
		}
		if !hasIntake || rec.CreatedAt.After(intake.CreatedAt) {
			intake = rec
			hasIntake = true
		}
	}
	if hasIntake {
		intake.Status = reminders.IntakeStatusTaken
		intake.TakenAt = &at
		r.intakes[intake.ID] = intake
	}
	return l, intake, nil
}

func (r *reminderRepo) CreateIntake(ctx context.Context, intake reminders.IntakeRecord) (reminders.IntakeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// si ya hay una pendiente del mismo (slot, día), se marca en vez de duplicar
	for _, rec := range r.intakes {
		if rec.SlotID == intake.SlotID && rec.Day == intake.Day && rec.Status == reminders.IntakeStatusPending {
			rec.Status = intake.Status
			rec.TakenAt = intake.TakenAt
			r.intakes[rec.ID] = rec
			return rec, nil
		}
	}

	if strings.TrimSpace(intake.ID) == "" {
		return reminders.IntakeRecord{}, errors.New("intake id required")
	}
	r.intakes[intake.ID] = intake
	return intake, nil
}

func (r *reminderRepo) ListIntakesByPatient(ctx context.Context, patientID, day string) ([]reminders.IntakeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]reminders.IntakeRecord, 0)
	for _, rec := range r.intakes {
		if rec.PatientID == patientID && rec.Day == day {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *reminderRepo) CountTakenByPatient(ctx context.Context, patientID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, rec := range r.intakes {
		if rec.PatientID == patientID && rec.Status == reminders.IntakeStatusTaken {
			n++
		}
	}
	return n, nil
}
