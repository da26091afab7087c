package repair

import (
	"fmt"

	"github.com/google/uuid"
)

// Repair modes
const (
	ModeCopyRepair = "copy_repair"
	ModeWeekRepair = "week_repair"
)

// NewMeta stamps a repair exchange with a fresh request id
func NewMeta(mode, timezone string, iteration, maxPatchOps int) Meta {
	return Meta{
		RequestID:   uuid.New().String(),
		Mode:        mode,
		Timezone:    timezone,
		Iteration:   iteration,
		MaxPatchOps: maxPatchOps,
	}
}

// SlotID derives the canonical slot id for a day and time range
func SlotID(day, start, end string) string {
	return day + "_" + start + "-" + end
}

// ApplyPatch applies a governor-validated patch to the schedule and
// returns the edited copy. Callers must run ValidatePatch first; an op
// that no longer resolves is an error, not a silent skip.
func ApplyPatch(schedule []Session, patch []PatchOp) ([]Session, error) {
	edited := make([]Session, len(schedule))
	copy(edited, schedule)

	index := func(sid string) int {
		for i := range edited {
			if edited[i].SID == sid {
				return i
			}
		}
		return -1
	}

	for _, op := range patch {
		switch op.Op {
		case OpMove:
			i := index(op.SID)
			if i < 0 {
				return nil, fmt.Errorf("move: session %q not found", op.SID)
			}
			if op.SlotID != "" {
				edited[i].SlotID = op.SlotID
			}
			if op.TherapistID != "" {
				edited[i].TherapistID = op.TherapistID
			}
			if op.RoomID != "" {
				edited[i].RoomID = op.RoomID
			}

		case OpSwap:
			i, j := index(op.SID), index(op.WithSID)
			if i < 0 || j < 0 {
				return nil, fmt.Errorf("swap: session %q or %q not found", op.SID, op.WithSID)
			}
			edited[i].SlotID, edited[j].SlotID = edited[j].SlotID, edited[i].SlotID
			edited[i].RoomID, edited[j].RoomID = edited[j].RoomID, edited[i].RoomID

		case OpDelete:
			i := index(op.SID)
			if i < 0 {
				return nil, fmt.Errorf("delete: session %q not found", op.SID)
			}
			edited = append(edited[:i], edited[i+1:]...)

		case OpAdd:
			edited = append(edited, Session{
				SID:           uuid.New().String(),
				TherapistID:   op.TherapistID,
				PatientID:     op.PatientID,
				SessionSpecID: op.SessionSpecID,
				RoomID:        op.RoomID,
				SlotID:        op.SlotID,
			})

		default:
			return nil, fmt.Errorf("unknown op type %q", op.Op)
		}
	}

	return edited, nil
}
