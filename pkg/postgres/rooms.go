package postgres

import (
	"context"
	"fmt"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
)

// GetRooms retrieves all treatment rooms
func (d *DB) GetRooms(ctx context.Context) ([]model.Room, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, capabilities
		FROM rooms
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var r model.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Capabilities); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}

	return rooms, nil
}
