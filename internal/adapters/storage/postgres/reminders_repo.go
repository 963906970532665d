package postgres

import (
	"context"
	"database/sql"
	"time"

	"medirecord/internal/domain/reminders"
)

type RemindersRepo struct {
	db *sql.DB
}

func NewRemindersRepo(db *sql.DB) *RemindersRepo {
	return &RemindersRepo{db: db}
}

func (r *RemindersRepo) CreateDispatch(ctx context.Context, log reminders.ReminderLog, intake reminders.IntakeRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// ON CONFLICT apoya el índice único (slot_id, day): el primer tick gana
	res, err := tx.ExecContext(ctx, `
		INSERT INTO reminder_logs
			(id, slot_id, medication_id, user_id, message, token, status, day, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (slot_id, day) DO NOTHING
	`,
		log.ID, log.SlotID, log.MedicationID, log.UserID,
		log.Message, log.Token, string(log.Status), log.Day, log.SentAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return reminders.ErrAlreadyDispatched
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO intake_records
			(id, slot_id, medication_id, patient_id, status, day, taken_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		intake.ID, intake.SlotID, intake.MedicationID, intake.PatientID,
		string(intake.Status), intake.Day, toNullTime(intake.TakenAt), intake.CreatedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (r *RemindersRepo) GetLogByID(ctx context.Context, id string) (reminders.ReminderLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, slot_id, medication_id, user_id, message, token, status,
		       to_char(day, 'YYYY-MM-DD'), sent_at, confirmed_at
		FROM reminder_logs
		WHERE id = $1
	`, id)
	return scanLog(row)
}

func (r *RemindersRepo) LatestSentByUser(ctx context.Context, userID, day string) (reminders.ReminderLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, slot_id, medication_id, user_id, message, token, status,
		       to_char(day, 'YYYY-MM-DD'), sent_at, confirmed_at
		FROM reminder_logs
		WHERE user_id = $1 AND day = $2 AND status = 'enviado'
		ORDER BY sent_at DESC
		LIMIT 1
	`, userID, day)
	return scanLog(row)
}

func (r *RemindersRepo) Confirm(ctx context.Context, logID string, at time.Time) (reminders.ReminderLog, reminders.IntakeRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return reminders.ReminderLog{}, reminders.IntakeRecord{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE reminder_logs
		SET status = 'confirmado', confirmed_at = $2
		WHERE id = $1 AND status = 'enviado'
		RETURNING id, slot_id, medication_id, user_id, message, token, status,
		          to_char(day, 'YYYY-MM-DD'), sent_at, confirmed_at
	`, logID, at)

	log, err := scanLog(row)
	if err != nil {
		return reminders.ReminderLog{}, reminders.IntakeRecord{}, err
	}

	// toma pendiente más reciente del mismo (slot, día); puede no existir
	row = tx.QueryRowContext(ctx, `
		UPDATE intake_records
		SET status = 'tomado', taken_at = $3
		WHERE id = (
			SELECT id FROM intake_records
			WHERE slot_id = $1 AND day = $2 AND status = 'pendiente'
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING id, slot_id, medication_id, patient_id, status,
		          to_char(day, 'YYYY-MM-DD'), taken_at, created_at
	`, log.SlotID, log.Day, at)

	intake, err := scanIntake(row)
	if err != nil && err != sql.ErrNoRows {
		return reminders.ReminderLog{}, reminders.IntakeRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		return reminders.ReminderLog{}, reminders.IntakeRecord{}, err
	}
	return log, intake, nil
}

func (r *RemindersRepo) CreateIntake(ctx context.Context, intake reminders.IntakeRecord) (reminders.IntakeRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return reminders.IntakeRecord{}, err
	}
	defer tx.Rollback()

	// primero intenta promover una pendiente existente del (slot, día)
	row := tx.QueryRowContext(ctx, `
		UPDATE intake_records
		SET status = $3, taken_at = $4
		WHERE id = (
			SELECT id FROM intake_records
			WHERE slot_id = $1 AND day = $2 AND status = 'pendiente'
			ORDER BY created_at DESC
			LIMIT 1
		)
		RETURNING id, slot_id, medication_id, patient_id, status,
		          to_char(day, 'YYYY-MM-DD'), taken_at, created_at
	`, intake.SlotID, intake.Day, string(intake.Status), toNullTime(intake.TakenAt))

	existing, err := scanIntake(row)
	if err == nil {
		return existing, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return reminders.IntakeRecord{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO intake_records
			(id, slot_id, medication_id, patient_id, status, day, taken_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		intake.ID, intake.SlotID, intake.MedicationID, intake.PatientID,
		string(intake.Status), intake.Day, toNullTime(intake.TakenAt), intake.CreatedAt,
	)
	if err != nil {
		return reminders.IntakeRecord{}, err
	}
	return intake, tx.Commit()
}

func (r *RemindersRepo) ListIntakesByPatient(ctx context.Context, patientID, day string) ([]reminders.IntakeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, slot_id, medication_id, patient_id, status,
		       to_char(day, 'YYYY-MM-DD'), taken_at, created_at
		FROM intake_records
		WHERE patient_id = $1 AND day = $2
		ORDER BY created_at ASC
	`, patientID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]reminders.IntakeRecord, 0)
	for rows.Next() {
		rec, err := scanIntake(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RemindersRepo) CountTakenByPatient(ctx context.Context, patientID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM intake_records
		WHERE patient_id = $1 AND status = 'tomado'
	`, patientID).Scan(&n)
	return n, err
}

func scanLog(row rowScanner) (reminders.ReminderLog, error) {
	var l reminders.ReminderLog
	var status string
	var confirmedAt sql.NullTime
	if err := row.Scan(
		&l.ID, &l.SlotID, &l.MedicationID, &l.UserID,
		&l.Message, &l.Token, &status, &l.Day, &l.SentAt, &confirmedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return reminders.ReminderLog{}, reminders.ErrNotFound
		}
		return reminders.ReminderLog{}, err
	}
	l.Status = reminders.LogStatus(status)
	if confirmedAt.Valid {
		t := confirmedAt.Time
		l.ConfirmedAt = &t
	}
	return l, nil
}

func scanIntake(row rowScanner) (reminders.IntakeRecord, error) {
	var rec reminders.IntakeRecord
	var status string
	var takenAt sql.NullTime
	if err := row.Scan(
		&rec.ID, &rec.SlotID, &rec.MedicationID, &rec.PatientID,
		&status, &rec.Day, &takenAt, &rec.CreatedAt,
	); err != nil {
		return reminders.IntakeRecord{}, err
	}
	rec.Status = reminders.IntakeStatus(status)
	if takenAt.Valid {
		t := takenAt.Time
		rec.TakenAt = &t
	}
	return rec, nil
}

var _ reminders.Repository = (*RemindersRepo)(nil)
