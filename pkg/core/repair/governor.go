package repair

import (
	"fmt"
	"slices"
)

// GovernorResult reports whether a patch may be applied. A non-empty
// Errors list means the entire patch is discarded; the governor never
// partially applies a patch.
type GovernorResult struct {
	OK     bool
	Errors []string
}

// ValidatePatch checks every op of a returned patch against the request's
// search space: budget, id membership, lock flags, and the
// single-writer-per-session rule. All-or-nothing by design.
func ValidatePatch(req Request, patch []PatchOp) GovernorResult {
	var errs []string

	if req.Meta.MaxPatchOps > 0 && len(patch) > req.Meta.MaxPatchOps {
		errs = append(errs, fmt.Sprintf("patch has %d ops, budget is %d", len(patch), req.Meta.MaxPatchOps))
	}

	movable := make(map[string]MovableSession, len(req.SearchSpace.MovableSessions))
	for _, m := range req.SearchSpace.MovableSessions {
		movable[m.SID] = m
	}
	addable := make(map[string]AddableRequirement, len(req.SearchSpace.AddableRequirements))
	for _, a := range req.SearchSpace.AddableRequirements {
		addable[a.ID] = a
	}
	scheduled := make(map[string]bool, len(req.Schedule.Sessions))
	for _, s := range req.Schedule.Sessions {
		scheduled[s.SID] = true
	}

	touched := make(map[string]int)
	touch := func(sid string) {
		touched[sid]++
	}

	for i, op := range patch {
		where := fmt.Sprintf("op %d (%s)", i, op.Op)

		if op.Because == "" {
			errs = append(errs, fmt.Sprintf("%s: missing justification", where))
		}

		switch op.Op {
		case OpMove:
			m, ok := movable[op.SID]
			if !ok {
				errs = append(errs, fmt.Sprintf("%s: session %q is not movable", where, op.SID))
				break
			}
			if m.Lock {
				errs = append(errs, fmt.Sprintf("%s: session %q is locked", where, op.SID))
				break
			}
			touch(op.SID)
			if op.SlotID == "" && op.TherapistID == "" && op.RoomID == "" {
				errs = append(errs, fmt.Sprintf("%s: move names no destination", where))
			}
			errs = append(errs, checkDestinations(where, op, m.AllowedSlotIDs, m.AllowedStaffIDs, m.AllowedRoomIDs)...)

		case OpSwap:
			for _, sid := range []string{op.SID, op.WithSID} {
				m, ok := movable[sid]
				if !ok {
					errs = append(errs, fmt.Sprintf("%s: session %q is not movable", where, sid))
					continue
				}
				if m.Lock {
					errs = append(errs, fmt.Sprintf("%s: session %q is locked", where, sid))
					continue
				}
				touch(sid)
			}
			if op.SID == op.WithSID {
				errs = append(errs, fmt.Sprintf("%s: swap references the same session twice", where))
			}

		case OpDelete:
			if !scheduled[op.SID] {
				errs = append(errs, fmt.Sprintf("%s: session %q does not exist", where, op.SID))
				break
			}
			if m, ok := movable[op.SID]; ok && m.Lock {
				errs = append(errs, fmt.Sprintf("%s: session %q is locked", where, op.SID))
				break
			}
			touch(op.SID)

		case OpAdd:
			requirement, ok := addable[op.RequirementID]
			if !ok {
				errs = append(errs, fmt.Sprintf("%s: unknown requirement %q", where, op.RequirementID))
				break
			}
			// No id substitution: the op must target exactly the patient
			// and spec the requirement names
			if op.PatientID != requirement.PatientID || op.SessionSpecID != requirement.SessionSpecID {
				errs = append(errs, fmt.Sprintf("%s: patient/spec ids do not match requirement %q", where, op.RequirementID))
			}
			if op.SlotID == "" || op.TherapistID == "" {
				errs = append(errs, fmt.Sprintf("%s: add requires a slot and a therapist", where))
			}
			errs = append(errs, checkDestinations(where, op, requirement.AllowedSlotIDs, requirement.AllowedStaffIDs, requirement.AllowedRoomIDs)...)

		default:
			errs = append(errs, fmt.Sprintf("%s: unknown op type %q", where, op.Op))
		}
	}

	for sid, count := range touched {
		if count > 1 {
			errs = append(errs, fmt.Sprintf("session %q is targeted by %d ops, max is 1", sid, count))
		}
	}

	return GovernorResult{OK: len(errs) == 0, Errors: errs}
}

// checkDestinations verifies each given destination id is a member of the
// corresponding allowed set
func checkDestinations(where string, op PatchOp, slots, staff, rooms []string) []string {
	var errs []string
	if op.SlotID != "" && !slices.Contains(slots, op.SlotID) {
		errs = append(errs, fmt.Sprintf("%s: slot %q is not in the allowed set", where, op.SlotID))
	}
	if op.TherapistID != "" && !slices.Contains(staff, op.TherapistID) {
		errs = append(errs, fmt.Sprintf("%s: therapist %q is not in the allowed set", where, op.TherapistID))
	}
	if op.RoomID != "" && !slices.Contains(rooms, op.RoomID) {
		errs = append(errs, fmt.Sprintf("%s: room %q is not in the allowed set", where, op.RoomID))
	}
	return errs
}
