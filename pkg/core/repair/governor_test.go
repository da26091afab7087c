package repair

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() Request {
	return Request{
		Meta: Meta{
			RequestID:   "req-1",
			Mode:        ModeWeekRepair,
			Timezone:    "UTC",
			Iteration:   1,
			MaxPatchOps: 4,
		},
		Slots: []SlotDef{
			{ID: "slot-a", Day: "2025-01-06", Start: "09:00", End: "10:00"},
			{ID: "slot-b", Day: "2025-01-06", Start: "10:00", End: "11:00"},
			{ID: "slot-c", Day: "2025-01-07", Start: "09:00", End: "10:00"},
		},
		Schedule: Schedule{Sessions: []Session{
			{SID: "s1", TherapistID: "staff-1", PatientID: "patient-1", SessionSpecID: "spec-1", SlotID: "slot-a"},
			{SID: "s2", TherapistID: "staff-2", PatientID: "patient-2", SessionSpecID: "spec-2", SlotID: "slot-b"},
			{SID: "s3", TherapistID: "staff-1", PatientID: "patient-3", SessionSpecID: "spec-3", SlotID: "slot-c"},
		}},
		SearchSpace: SearchSpace{
			MovableSessions: []MovableSession{
				{SID: "s1", AllowedSlotIDs: []string{"slot-b", "slot-c"}, AllowedStaffIDs: []string{"staff-1", "staff-2"}, AllowedRoomIDs: []string{"room-1"}},
				{SID: "s2", AllowedSlotIDs: []string{"slot-a"}, AllowedStaffIDs: []string{"staff-2"}},
				{SID: "s3", Lock: true},
			},
			AddableRequirements: []AddableRequirement{
				{
					ID:              "need-1",
					PatientID:       "patient-4",
					SessionSpecID:   "spec-4",
					MissingCount:    1,
					AllowedSlotIDs:  []string{"slot-c"},
					AllowedStaffIDs: []string{"staff-2"},
					AllowedRoomIDs:  []string{"room-1"},
				},
			},
		},
	}
}

func hasError(result GovernorResult, substr string) bool {
	for _, e := range result.Errors {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidatePatch_ValidMove(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpMove, SID: "s1", SlotID: "slot-b", Because: "resolves therapist overlap"},
	})

	assert.True(t, result.OK)
	assert.Empty(t, result.Errors)
}

func TestValidatePatch_MoveToDisallowedSlot(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpMove, SID: "s1", SlotID: "slot-a", Because: "try original slot"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "not in the allowed set"))
}

func TestValidatePatch_MoveLockedSessionRejected(t *testing.T) {
	// A locked session is never movable, even to an otherwise fine slot
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpMove, SID: "s3", SlotID: "slot-a", Because: "free up tuesday"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "locked"))
}

func TestValidatePatch_MoveUnknownSession(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpMove, SID: "ghost", SlotID: "slot-b", Because: "x"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "not movable"))
}

func TestValidatePatch_MoveWithoutDestination(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpMove, SID: "s1", Because: "no-op move"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "no destination"))
}

func TestValidatePatch_ValidSwap(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpSwap, SID: "s1", WithSID: "s2", Because: "exchange morning slots"},
	})

	assert.True(t, result.OK)
}

func TestValidatePatch_SwapWithLockedRejected(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpSwap, SID: "s1", WithSID: "s3", Because: "swap with tuesday"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "locked"))
}

func TestValidatePatch_SwapSameSessionRejected(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpSwap, SID: "s1", WithSID: "s1", Because: "self swap"},
	})

	assert.False(t, result.OK)
}

func TestValidatePatch_ValidDelete(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpDelete, SID: "s2", Because: "uncovered certification"},
	})

	assert.True(t, result.OK)
}

func TestValidatePatch_DeleteUnknownSession(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpDelete, SID: "ghost", Because: "x"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "does not exist"))
}

func TestValidatePatch_DeleteLockedRejected(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpDelete, SID: "s3", Because: "remove it"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "locked"))
}

func TestValidatePatch_ValidAdd(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{
			Op:            OpAdd,
			RequirementID: "need-1",
			PatientID:     "patient-4",
			SessionSpecID: "spec-4",
			SlotID:        "slot-c",
			TherapistID:   "staff-2",
			Because:       "covers missing weekly session",
		},
	})

	assert.True(t, result.OK)
}

func TestValidatePatch_AddWithSubstitutedPatientRejected(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{
			Op:            OpAdd,
			RequirementID: "need-1",
			PatientID:     "patient-1", // not the requirement's patient
			SessionSpecID: "spec-4",
			SlotID:        "slot-c",
			TherapistID:   "staff-2",
			Because:       "sneaky substitution",
		},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "do not match requirement"))
}

func TestValidatePatch_AddOutsideAllowedSets(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{
			Op:            OpAdd,
			RequirementID: "need-1",
			PatientID:     "patient-4",
			SessionSpecID: "spec-4",
			SlotID:        "slot-a", // not allowed for this requirement
			TherapistID:   "staff-2",
			Because:       "x",
		},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "not in the allowed set"))
}

func TestValidatePatch_MissingJustificationRejected(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpMove, SID: "s1", SlotID: "slot-b"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "justification"))
}

func TestValidatePatch_BudgetExceeded(t *testing.T) {
	ops := []PatchOp{
		{Op: OpDelete, SID: "s1", Because: "a"},
		{Op: OpDelete, SID: "s2", Because: "b"},
	}
	req := testRequest()
	req.Meta.MaxPatchOps = 1

	result := ValidatePatch(req, ops)
	assert.False(t, result.OK)
	assert.True(t, hasError(result, "budget"))
}

func TestValidatePatch_DoubleTouchRejectsWholePatch(t *testing.T) {
	// Both ops are individually valid; touching s1 twice rejects everything
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: OpMove, SID: "s1", SlotID: "slot-b", Because: "first edit"},
		{Op: OpDelete, SID: "s1", Because: "second edit"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "max is 1"))
}

func TestValidatePatch_UnknownOpType(t *testing.T) {
	result := ValidatePatch(testRequest(), []PatchOp{
		{Op: "teleport", SID: "s1", Because: "x"},
	})

	assert.False(t, result.OK)
	assert.True(t, hasError(result, "unknown op type"))
}

func TestValidatePatch_EmptyPatchIsValid(t *testing.T) {
	result := ValidatePatch(testRequest(), nil)
	assert.True(t, result.OK)
}

func TestApplyPatch_MoveAndDelete(t *testing.T) {
	req := testRequest()

	edited, err := ApplyPatch(req.Schedule.Sessions, []PatchOp{
		{Op: OpMove, SID: "s1", SlotID: "slot-c", TherapistID: "staff-2", Because: "x"},
		{Op: OpDelete, SID: "s2", Because: "x"},
	})
	require.NoError(t, err)

	require.Len(t, edited, 2)
	assert.Equal(t, "slot-c", edited[0].SlotID)
	assert.Equal(t, "staff-2", edited[0].TherapistID)
	assert.Equal(t, "s3", edited[1].SID)
}

func TestApplyPatch_Swap(t *testing.T) {
	req := testRequest()

	edited, err := ApplyPatch(req.Schedule.Sessions, []PatchOp{
		{Op: OpSwap, SID: "s1", WithSID: "s2", Because: "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, "slot-b", edited[0].SlotID)
	assert.Equal(t, "slot-a", edited[1].SlotID)
}

func TestApplyPatch_Add(t *testing.T) {
	req := testRequest()

	edited, err := ApplyPatch(req.Schedule.Sessions, []PatchOp{
		{
			Op:            OpAdd,
			RequirementID: "need-1",
			PatientID:     "patient-4",
			SessionSpecID: "spec-4",
			SlotID:        "slot-c",
			TherapistID:   "staff-2",
			Because:       "x",
		},
	})
	require.NoError(t, err)

	require.Len(t, edited, 4)
	added := edited[3]
	assert.NotEmpty(t, added.SID)
	assert.Equal(t, "patient-4", added.PatientID)
	assert.Equal(t, "slot-c", added.SlotID)
}

func TestApplyPatch_DoesNotMutateInput(t *testing.T) {
	req := testRequest()
	original := req.Schedule.Sessions[0].SlotID

	_, err := ApplyPatch(req.Schedule.Sessions, []PatchOp{
		{Op: OpMove, SID: "s1", SlotID: "slot-b", Because: "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, original, req.Schedule.Sessions[0].SlotID)
}
