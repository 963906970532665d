package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medirecord/internal/domain/caregivers"
)

type caregiverRepo struct {
	mu   sync.RWMutex
	byID map[string]caregivers.Link
}

func NewCaregiverRepo() caregivers.Repository {
	return &caregiverRepo{
		byID: make(map[string]caregivers.Link),
	}
}

func (r *caregiverRepo) Create(ctx context.Context, l caregivers.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(l.ID) == "" {
		return errors.New("link id required")
	}
	if _, exists := r.byID[l.ID]; exists {
		return errors.New("link already exists")
	}
	r.byID[l.ID] = l
	return nil
}

func (r *caregiverRepo) GetByID(ctx context.Context, id string) (caregivers.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byID[id]
	if !ok {
		return caregivers.Link{}, caregivers.ErrNotFound
	}
	return l, nil
}

func (r *caregiverRepo) GetByPair(ctx context.Context, patientID, caregiverID string) (caregivers.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.byID {
		if l.PatientID == patientID && l.CaregiverID == caregiverID {
			return l, nil
		}
	}
	return caregivers.Link{}, caregivers.ErrNotFound
}

func (r *caregiverRepo) Update(ctx context.Context, l caregivers.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[l.ID]; !exists {
		return caregivers.ErrNotFound
	}
	r.byID[l.ID] = l
	return nil
}

func (r *caregiverRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return caregivers.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *caregiverRepo) ListByPatient(ctx context.Context, patientID string) ([]caregivers.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]caregivers.Link, 0)
	for _, l := range r.byID {
		if l.PatientID == patientID {
			out = append(out, l)
		}
	}
	sortLinks(out)
	return out, nil
}

func (r *caregiverRepo) ListByCaregiver(ctx context.Context, caregiverID string) ([]caregivers.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]caregivers.Link, 0)
	for _, l := range r.byID {
		if l.CaregiverID == caregiverID {
			out = append(out, l)
		}
	}
	sortLinks(out)
	return out, nil
}

func sortLinks(links []caregivers.Link) {
	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
}
