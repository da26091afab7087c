package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
)

// GetSessions retrieves all sessions with dates in [startDate, endDate]
func (d *DB) GetSessions(ctx context.Context, startDate, endDate string) ([]model.Session, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, therapist_id, patient_id, session_spec_id,
		       COALESCE(room_id, ''), date, start_time, end_time, status, notes
		FROM sessions
		WHERE date >= $1 AND date <= $2
		ORDER BY date, start_time, therapist_id
	`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		var date time.Time
		var status string
		if err := rows.Scan(&s.ID, &s.TherapistID, &s.PatientID, &s.SessionSpecID,
			&s.RoomID, &date, &s.Slot.StartTime, &s.Slot.EndTime, &status, &s.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.Date = date.Format(model.DateLayout)
		s.Status = model.SessionStatus(status)
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// InsertSessions inserts committed sessions in one transaction
func (d *DB) InsertSessions(ctx context.Context, sessions []model.Session) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range sessions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sessions (id, therapist_id, patient_id, session_spec_id, room_id,
			                      date, start_time, end_time, status, notes)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
		`, s.ID, s.TherapistID, s.PatientID, s.SessionSpecID, s.RoomID,
			s.Date, s.Slot.StartTime, s.Slot.EndTime, string(s.Status), s.Notes); err != nil {
			return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sessions: %w", err)
	}
	return nil
}

// ReplaceSessions atomically swaps the sessions of a date range for the
// given set, used when a repaired week is saved
func (d *DB) ReplaceSessions(ctx context.Context, startDate, endDate string, sessions []model.Session) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM sessions WHERE date >= $1 AND date <= $2
	`, startDate, endDate); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	for _, s := range sessions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sessions (id, therapist_id, patient_id, session_spec_id, room_id,
			                      date, start_time, end_time, status, notes)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
		`, s.ID, s.TherapistID, s.PatientID, s.SessionSpecID, s.RoomID,
			s.Date, s.Slot.StartTime, s.Slot.EndTime, string(s.Status), s.Notes); err != nil {
			return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit replaced sessions: %w", err)
	}
	return nil
}
