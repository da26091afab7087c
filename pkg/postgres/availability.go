package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
)

// GetUnavailability retrieves staff day overrides with dates in
// [startDate, endDate]
func (d *DB) GetUnavailability(ctx context.Context, startDate, endDate string) ([]model.Unavailability, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT staff_id, date, available, start_time, end_time, reason
		FROM unavailability
		WHERE date >= $1 AND date <= $2
		ORDER BY date, staff_id
	`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query unavailability: %w", err)
	}
	defer rows.Close()

	var overrides []model.Unavailability
	for rows.Next() {
		var u model.Unavailability
		var date time.Time
		var start, end *string
		if err := rows.Scan(&u.StaffID, &date, &u.Available, &start, &end, &u.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan unavailability: %w", err)
		}
		u.Date = date.Format(model.DateLayout)
		if start != nil && end != nil {
			u.Hours = &model.TimeSlot{StartTime: *start, EndTime: *end}
		}
		overrides = append(overrides, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unavailability: %w", err)
	}

	return overrides, nil
}

// GetHolds retrieves slot holds with dates in [startDate, endDate].
// Released and converted holds are excluded; expiry is the caller's call.
func (d *DB) GetHolds(ctx context.Context, startDate, endDate string) ([]model.Hold, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, staff_id, date, start_time, end_time, expires_at, released, converted
		FROM holds
		WHERE date >= $1 AND date <= $2 AND NOT released AND NOT converted
		ORDER BY date, start_time
	`, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query holds: %w", err)
	}
	defer rows.Close()

	var holds []model.Hold
	for rows.Next() {
		var h model.Hold
		var date time.Time
		var expiresAt *time.Time
		if err := rows.Scan(&h.ID, &h.StaffID, &date, &h.Slot.StartTime, &h.Slot.EndTime,
			&expiresAt, &h.Released, &h.Converted); err != nil {
			return nil, fmt.Errorf("failed to scan hold: %w", err)
		}
		h.Date = date.Format(model.DateLayout)
		if expiresAt != nil {
			h.ExpiresAt = expiresAt.UTC().Format(time.RFC3339)
		}
		holds = append(holds, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holds: %w", err)
	}

	return holds, nil
}

// InsertHold records a temporary reservation of a staff time slot
func (d *DB) InsertHold(ctx context.Context, hold model.Hold) error {
	var expiresAt *time.Time
	if hold.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, hold.ExpiresAt)
		if err != nil {
			return fmt.Errorf("invalid hold expiry %q: %w", hold.ExpiresAt, err)
		}
		expiresAt = &parsed
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO holds (id, staff_id, date, start_time, end_time, expires_at, released, converted)
		VALUES ($1, $2, $3, $4, $5, $6, false, false)
	`, hold.ID, hold.StaffID, hold.Date, hold.Slot.StartTime, hold.Slot.EndTime, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert hold: %w", err)
	}
	return nil
}

// ReleaseHold marks a hold released so it stops blocking availability
func (d *DB) ReleaseHold(ctx context.Context, holdID string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE holds SET released = true WHERE id = $1 AND NOT converted
	`, holdID)
	if err != nil {
		return fmt.Errorf("failed to release hold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hold %s not found or already converted", holdID)
	}
	return nil
}
