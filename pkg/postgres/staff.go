package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
)

// GetStaff retrieves all staff members with their default weekly hours
func (d *DB) GetStaff(ctx context.Context) ([]model.Staff, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, first_name, last_name, gender, certifications, working_hours, status
		FROM staff
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}
	defer rows.Close()

	var staff []model.Staff
	for rows.Next() {
		var s model.Staff
		var status string
		var workingHours []byte
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Gender, &s.Certifications, &workingHours, &status); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w", err)
		}
		s.Status = model.StaffStatus(status)
		if len(workingHours) > 0 {
			if err := json.Unmarshal(workingHours, &s.WorkingHours); err != nil {
				return nil, fmt.Errorf("invalid working hours for staff %s: %w", s.ID, err)
			}
		}
		staff = append(staff, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staff: %w", err)
	}

	return staff, nil
}
