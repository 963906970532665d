package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"medirecord/internal/domain/medications"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication, slots []medications.ScheduleSlot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO medications (id, patient_id, name, dose, instructions, added_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		m.ID, m.PatientID, m.Name, m.Dose, m.Instructions, m.AddedBy, m.CreatedAt,
	)
	if err != nil {
		return err
	}

	for _, s := range slots {
		if err := insertSlot(ctx, tx, s); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertSlot(ctx context.Context, tx *sql.Tx, s medications.ScheduleSlot) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO schedule_slots (id, medication_id, minute_of_day, recurrence, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		s.ID, s.MedicationID, s.At.MinuteOfDay(), string(s.Recurrence), s.Active, s.CreatedAt,
	)
	return err
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, name, dose, instructions, added_by, created_at
		FROM medications
		WHERE id = $1
	`, id)
	return scanMedication(row)
}

func (r *MedicationsRepo) ListByPatient(ctx context.Context, patientID string) ([]medications.Medication, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, name, dose, instructions, added_by, created_at
		FROM medications
		WHERE patient_id = $1
		ORDER BY created_at ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET name = $2, dose = $3, instructions = $4
		WHERE id = $1
	`, m.ID, m.Name, m.Dose, m.Instructions)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) Delete(ctx context.Context, id string) error {
	// schedule_slots cae por ON DELETE CASCADE
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) ListSlots(ctx context.Context, medicationID string) ([]medications.ScheduleSlot, error) {
	return r.querySlots(ctx, `
		SELECT id, medication_id, minute_of_day, recurrence, active, created_at
		FROM schedule_slots
		WHERE medication_id = $1
		ORDER BY minute_of_day ASC
	`, medicationID)
}

func (r *MedicationsRepo) GetSlot(ctx context.Context, id string) (medications.ScheduleSlot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, medication_id, minute_of_day, recurrence, active, created_at
		FROM schedule_slots
		WHERE id = $1
	`, id)

	s, err := scanSlot(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return medications.ScheduleSlot{}, medications.ErrNotFound
		}
		return medications.ScheduleSlot{}, err
	}
	return s, nil
}

func (r *MedicationsRepo) ReplaceSlots(ctx context.Context, medicationID string, slots []medications.ScheduleSlot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_slots WHERE medication_id = $1`, medicationID); err != nil {
		return err
	}
	for _, s := range slots {
		if err := insertSlot(ctx, tx, s); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *MedicationsRepo) SetSlotActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE schedule_slots SET active = $2 WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) ListDueSlots(ctx context.Context, day time.Weekday, from, to medications.ClockTime) ([]medications.DueSlot, error) {
	weekdayFilter := `s.recurrence IN ('diario', 'entre_semana')`
	if day == time.Saturday || day == time.Sunday {
		weekdayFilter = `s.recurrence = 'diario'`
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			s.id, s.medication_id, s.minute_of_day, s.recurrence, s.active, s.created_at,
			m.id, m.patient_id, m.name, m.dose, m.instructions, m.added_by, m.created_at
		FROM schedule_slots s
		JOIN medications m ON m.id = s.medication_id
		WHERE s.active
		  AND %s
		  AND s.minute_of_day >= $1
		  AND s.minute_of_day < $2
		ORDER BY s.minute_of_day ASC
	`, weekdayFilter), from.MinuteOfDay(), to.MinuteOfDay())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDueSlots(rows)
}

func (r *MedicationsRepo) ListActiveSlotsByPatient(ctx context.Context, patientID string) ([]medications.DueSlot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			s.id, s.medication_id, s.minute_of_day, s.recurrence, s.active, s.created_at,
			m.id, m.patient_id, m.name, m.dose, m.instructions, m.added_by, m.created_at
		FROM schedule_slots s
		JOIN medications m ON m.id = s.medication_id
		WHERE s.active AND m.patient_id = $1
		ORDER BY s.minute_of_day ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDueSlots(rows)
}

func (r *MedicationsRepo) querySlots(ctx context.Context, query string, args ...any) ([]medications.ScheduleSlot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medications.ScheduleSlot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ medications.Repository = (*MedicationsRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(row rowScanner) (medications.Medication, error) {
	var m medications.Medication
	if err := row.Scan(&m.ID, &m.PatientID, &m.Name, &m.Dose, &m.Instructions, &m.AddedBy, &m.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return medications.Medication{}, medications.ErrNotFound
		}
		return medications.Medication{}, err
	}
	return m, nil
}

func scanSlot(row rowScanner) (medications.ScheduleSlot, error) {
	var s medications.ScheduleSlot
	var minute int
	var rec string
	if err := row.Scan(&s.ID, &s.MedicationID, &minute, &rec, &s.Active, &s.CreatedAt); err != nil {
		return medications.ScheduleSlot{}, err
	}
	s.At = medications.ClockTime{Hour: minute / 60, Minute: minute % 60}
	s.Recurrence = medications.Recurrence(rec)
	return s, nil
}

func scanDueSlots(rows *sql.Rows) ([]medications.DueSlot, error) {
	out := make([]medications.DueSlot, 0)
	for rows.Next() {
		var s medications.ScheduleSlot
		var m medications.Medication
		var minute int
		var rec string
		if err := rows.Scan(
			&s.ID, &s.MedicationID, &minute, &rec, &s.Active, &s.CreatedAt,
			&m.ID, &m.PatientID, &m.Name, &m.Dose, &m.Instructions, &m.AddedBy, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		s.At = medications.ClockTime{Hour: minute / 60, Minute: minute % 60}
		s.Recurrence = medications.Recurrence(rec)
		out = append(out, medications.DueSlot{Slot: s, Medication: m})
	}
	return out, rows.Err()
}
