package postgres

import (
	"context"
	"database/sql"
	"time"

	"medirecord/internal/domain/caregivers"
)

type CaregiversRepo struct {
	db *sql.DB
}

func NewCaregiversRepo(db *sql.DB) *CaregiversRepo {
	return &CaregiversRepo{db: db}
}

func (r *CaregiversRepo) Create(ctx context.Context, l caregivers.Link) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO caregiver_links (id, patient_id, caregiver_id, confirmed, created_at, confirmed_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		l.ID, l.PatientID, l.CaregiverID, l.Confirmed, l.CreatedAt, toNullTime(l.ConfirmedAt),
	)
	return err
}

func (r *CaregiversRepo) GetByID(ctx context.Context, id string) (caregivers.Link, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, caregiver_id, confirmed, created_at, confirmed_at
		FROM caregiver_links
		WHERE id = $1
	`, id)
	return scanLink(row)
}

func (r *CaregiversRepo) GetByPair(ctx context.Context, patientID, caregiverID string) (caregivers.Link, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, caregiver_id, confirmed, created_at, confirmed_at
		FROM caregiver_links
		WHERE patient_id = $1 AND caregiver_id = $2
	`, patientID, caregiverID)
	return scanLink(row)
}

func (r *CaregiversRepo) Update(ctx context.Context, l caregivers.Link) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE caregiver_links
		SET confirmed = $2, confirmed_at = $3
		WHERE id = $1
	`, l.ID, l.Confirmed, toNullTime(l.ConfirmedAt))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return caregivers.ErrNotFound
	}
	return nil
}

func (r *CaregiversRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM caregiver_links WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return caregivers.ErrNotFound
	}
	return nil
}

func (r *CaregiversRepo) ListByPatient(ctx context.Context, patientID string) ([]caregivers.Link, error) {
	return r.list(ctx, `WHERE patient_id = $1`, patientID)
}

func (r *CaregiversRepo) ListByCaregiver(ctx context.Context, caregiverID string) ([]caregivers.Link, error) {
	return r.list(ctx, `WHERE caregiver_id = $1`, caregiverID)
}

func (r *CaregiversRepo) list(ctx context.Context, where string, arg any) ([]caregivers.Link, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, caregiver_id, confirmed, created_at, confirmed_at
		FROM caregiver_links
	`+where+`
		ORDER BY created_at ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]caregivers.Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func scanLink(row rowScanner) (caregivers.Link, error) {
	var l caregivers.Link
	var confirmedAt sql.NullTime
	if err := row.Scan(&l.ID, &l.PatientID, &l.CaregiverID, &l.Confirmed, &l.CreatedAt, &confirmedAt); err != nil {
		if err == sql.ErrNoRows {
			return caregivers.Link{}, caregivers.ErrNotFound
		}
		return caregivers.Link{}, err
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		l.ConfirmedAt = &t
	}
	return l, nil
}

var _ caregivers.Repository = (*CaregiversRepo)(nil)
