package proposer

import (
	"context"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/repair"
)

// Null is the proposer used when no API key is configured. Every call
// fails with ErrNotConfigured, which orchestrators treat as "fall back
// to deterministic behaviour".
type Null struct{}

func (Null) ProposeSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResponse, error) {
	return nil, ErrNotConfigured
}

func (Null) RepairSession(ctx context.Context, req SessionRepairRequest) (*SessionRepairResponse, error) {
	return nil, ErrNotConfigured
}

func (Null) ProposePatch(ctx context.Context, req repair.Request) (*repair.Response, error) {
	return nil, ErrNotConfigured
}
