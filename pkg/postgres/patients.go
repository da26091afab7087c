package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
)

// GetPatients retrieves all patients with their session specs
func (d *DB) GetPatients(ctx context.Context) ([]model.Patient, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, first_name, last_name, gender
		FROM patients
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	var patients []model.Patient
	index := make(map[string]int)
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Gender); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		index[p.ID] = len(patients)
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}
	rows.Close()

	specRows, err := d.pool.Query(ctx, `
		SELECT id, patient_id, name, sessions_per_week, duration_minutes,
		       required_certifications, preferred_times, required_room_capabilities
		FROM session_specs
		ORDER BY patient_id, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query session specs: %w", err)
	}
	defer specRows.Close()

	for specRows.Next() {
		var spec model.SessionSpec
		var patientID string
		var preferredTimes []byte
		if err := specRows.Scan(&spec.ID, &patientID, &spec.Name, &spec.SessionsPerWeek,
			&spec.DurationMinutes, &spec.RequiredCertifications, &preferredTimes,
			&spec.RequiredRoomCapabilities); err != nil {
			return nil, fmt.Errorf("failed to scan session spec: %w", err)
		}
		if len(preferredTimes) > 0 {
			if err := json.Unmarshal(preferredTimes, &spec.PreferredTimes); err != nil {
				return nil, fmt.Errorf("invalid preferred times on spec %s: %w", spec.ID, err)
			}
		}

		i, known := index[patientID]
		if !known {
			continue // orphaned spec, skip rather than fail the whole read
		}
		patients[i].SessionSpecs = append(patients[i].SessionSpecs, spec)
	}
	if err := specRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session specs: %w", err)
	}

	return patients, nil
}
