package schedule

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/rules"
)

func baseStaff() model.Staff {
	return model.Staff{
		ID:             "staff-1",
		FirstName:      "Dana",
		LastName:       "Reyes",
		Gender:         "Female",
		Certifications: []string{"speech", "aba"},
		Status:         model.StaffActive,
		WorkingHours: model.WeeklyHours{
			"monday":  {StartTime: "09:00", EndTime: "17:00"},
			"tuesday": {StartTime: "09:00", EndTime: "17:00"},
		},
	}
}

func basePatient() model.Patient {
	return model.Patient{
		ID:        "patient-1",
		FirstName: "Morgan",
		LastName:  "Webb",
		Gender:    "Female",
		SessionSpecs: []model.SessionSpec{
			{
				ID:                     "spec-1",
				Name:                   "Speech therapy",
				SessionsPerWeek:        2,
				DurationMinutes:        60,
				RequiredCertifications: []string{"speech"},
			},
		},
	}
}

// 2025-01-06 is a Monday
func session(start, end string) model.GeneratedSession {
	return model.GeneratedSession{
		TherapistID:   "staff-1",
		PatientID:     "patient-1",
		SessionSpecID: "spec-1",
		Date:          "2025-01-06",
		Slot:          model.TimeSlot{StartTime: start, EndTime: end},
	}
}

func baseInput(sessions ...model.GeneratedSession) Input {
	return Input{
		Sessions: sessions,
		Staff:    []model.Staff{baseStaff()},
		Patients: []model.Patient{basePatient()},
	}
}

func TestValidate_AcceptsValidSession(t *testing.T) {
	outcome := Validate(baseInput(session("09:00", "10:00")))

	assert.Len(t, outcome.Valid, 1)
	assert.Empty(t, outcome.Rejected)
}

func TestValidate_UnknownTherapistRejected(t *testing.T) {
	s := session("09:00", "10:00")
	s.TherapistID = "ghost"

	outcome := Validate(baseInput(s))
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "unknown therapist")
}

func TestValidate_UnknownPatientRejected(t *testing.T) {
	s := session("09:00", "10:00")
	s.PatientID = "ghost"

	outcome := Validate(baseInput(s))
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "unknown patient")
}

func TestValidate_MissingCertificationAlwaysRejected(t *testing.T) {
	in := baseInput(session("09:00", "10:00"))
	in.Staff[0].Certifications = []string{"aba"} // no "speech"

	outcome := Validate(in)
	require.Len(t, outcome.Rejected, 1)
	assert.Empty(t, outcome.Valid)

	assert.True(t, hasReason(outcome.Rejected[0].Reasons, "lacks required certification"),
		"expected certification rejection, got %v", outcome.Rejected[0].Reasons)
}

func hasReason(reasons []string, substr string) bool {
	for _, reason := range reasons {
		if strings.Contains(reason, substr) {
			return true
		}
	}
	return false
}

func TestValidate_OutsideWorkingHoursRejected(t *testing.T) {
	outcome := Validate(baseInput(session("08:00", "09:00")))

	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "outside")
}

func TestValidate_NoHoursRecordedWarnsNotRejects(t *testing.T) {
	// 2025-01-08 is a Wednesday; staff has no hours recorded for it
	s := session("09:00", "10:00")
	s.Date = "2025-01-08"

	outcome := Validate(baseInput(s))
	assert.Len(t, outcome.Valid, 1)
	assert.Empty(t, outcome.Rejected)

	require.NotEmpty(t, outcome.Warnings)
	assert.Equal(t, WarnNoHoursRecorded, outcome.Warnings[0].Code)
}

func TestValidate_FullDayUnavailabilityRejects(t *testing.T) {
	in := baseInput(session("09:00", "10:00"))
	in.Unavailability = []model.Unavailability{
		{StaffID: "staff-1", Date: "2025-01-06", Available: false, Reason: "sick leave"},
	}

	outcome := Validate(in)
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "unavailable")
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "sick leave")
}

func TestValidate_PartialDayOverrideWindow(t *testing.T) {
	override := model.TimeSlot{StartTime: "13:00", EndTime: "16:00"}
	in := baseInput(session("09:00", "10:00"), session("13:00", "14:00"))
	in.Unavailability = []model.Unavailability{
		{StaffID: "staff-1", Date: "2025-01-06", Available: true, Hours: &override},
	}

	outcome := Validate(in)

	// The 09:00 session falls outside the override window and is rejected;
	// the 13:00 session is inside it and accepted.
	require.Len(t, outcome.Rejected, 1)
	assert.Equal(t, "09:00", outcome.Rejected[0].Session.Slot.StartTime)
	require.Len(t, outcome.Valid, 1)
	assert.Equal(t, "13:00", outcome.Valid[0].Slot.StartTime)
}

func TestValidate_PatientOverlapFirstWins(t *testing.T) {
	outcome := Validate(baseInput(
		session("09:00", "10:00"),
		session("09:30", "10:30"),
	))

	require.Len(t, outcome.Valid, 1)
	assert.Equal(t, "09:00", outcome.Valid[0].Slot.StartTime)

	require.Len(t, outcome.Rejected, 1)
	assert.Equal(t, "09:30", outcome.Rejected[0].Session.Slot.StartTime)

	assert.True(t, hasReason(outcome.Rejected[0].Reasons, "patient Morgan Webb"),
		"expected patient overlap reason, got %v", outcome.Rejected[0].Reasons)
}

func TestValidate_StaffOverlapAcrossPatients(t *testing.T) {
	second := basePatient()
	second.ID = "patient-2"
	second.FirstName = "Riley"

	s2 := session("09:30", "10:30")
	s2.PatientID = "patient-2"

	in := baseInput(session("09:00", "10:00"), s2)
	in.Patients = append(in.Patients, second)

	outcome := Validate(in)
	require.Len(t, outcome.Rejected, 1)

	assert.True(t, hasReason(outcome.Rejected[0].Reasons, "therapist Dana Reyes"),
		"expected therapist overlap reason, got %v", outcome.Rejected[0].Reasons)
}

func TestValidate_RoomOverlapRejected(t *testing.T) {
	staff2 := baseStaff()
	staff2.ID = "staff-2"
	staff2.FirstName = "Eli"
	patient2 := basePatient()
	patient2.ID = "patient-2"

	s1 := session("09:00", "10:00")
	s1.RoomID = "room-1"
	s2 := session("09:30", "10:30")
	s2.TherapistID = "staff-2"
	s2.PatientID = "patient-2"
	s2.RoomID = "room-1"

	in := baseInput(s1, s2)
	in.Staff = append(in.Staff, staff2)
	in.Patients = append(in.Patients, patient2)
	in.Rooms = []model.Room{{ID: "room-1", Name: "Room One"}}

	outcome := Validate(in)
	require.Len(t, outcome.Valid, 1)
	require.Len(t, outcome.Rejected, 1)

	assert.True(t, hasReason(outcome.Rejected[0].Reasons, "room Room One"),
		"expected room overlap reason, got %v", outcome.Rejected[0].Reasons)
}

func TestValidate_RoomMissingCapabilityRejected(t *testing.T) {
	s := session("09:00", "10:00")
	s.RoomID = "room-1"

	in := baseInput(s)
	in.Patients[0].SessionSpecs[0].RequiredRoomCapabilities = []string{"hydrotherapy"}
	in.Rooms = []model.Room{{ID: "room-1", Name: "Room One", Capabilities: []string{"sensory"}}}

	outcome := Validate(in)
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "lacks required capability")
}

func TestValidate_NoRoomDespiteRequiredCapabilitiesWarns(t *testing.T) {
	in := baseInput(session("09:00", "10:00"))
	in.Patients[0].SessionSpecs[0].RequiredRoomCapabilities = []string{"hydrotherapy"}

	outcome := Validate(in)
	assert.Len(t, outcome.Valid, 1)

	found := false
	for _, w := range outcome.Warnings {
		if w.Code == WarnNoRoomAssigned {
			found = true
		}
	}
	assert.True(t, found, "expected no-room warning, got %v", outcome.Warnings)
}

func TestValidate_UnknownRoomRejected(t *testing.T) {
	s := session("09:00", "10:00")
	s.RoomID = "nope"

	outcome := Validate(baseInput(s))
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "unknown room")
}

func TestValidate_CoverageShortfallWarns(t *testing.T) {
	// Spec requires 2 weekly sessions; only 1 proposed
	outcome := Validate(baseInput(session("09:00", "10:00")))

	found := false
	for _, w := range outcome.Warnings {
		if w.Code == WarnCoverageShortfall {
			found = true
			assert.Contains(t, w.Message, "1 of 2")
		}
	}
	assert.True(t, found, "expected coverage warning, got %v", outcome.Warnings)
}

func TestValidate_CoverageMetNoWarning(t *testing.T) {
	s2 := session("11:00", "12:00")
	s2.Date = "2025-01-07"

	outcome := Validate(baseInput(session("09:00", "10:00"), s2))

	for _, w := range outcome.Warnings {
		assert.NotEqual(t, WarnCoverageShortfall, w.Code)
	}
}

func TestValidate_ClosureDateRejects(t *testing.T) {
	in := baseInput(session("09:00", "10:00"))
	in.Closures = map[string]bool{"2025-01-06": true}

	outcome := Validate(in)
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "closed")
}

func TestValidate_BusinessHoursConstrain(t *testing.T) {
	in := baseInput(session("16:00", "17:00"))
	in.BusinessHours = model.WeeklyHours{
		"monday": {StartTime: "08:00", EndTime: "16:30"},
	}

	outcome := Validate(in)
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "outside")
}

func TestValidate_GenderPairingRuleRejectsMismatch(t *testing.T) {
	in := baseInput(session("09:00", "10:00"))
	in.Staff[0].Gender = "Male"
	in.Rules = []rules.ResolvedRule{
		{ID: "rule-1", Kind: rules.KindGenderPairing},
	}

	outcome := Validate(in)
	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "gender pairing")
}

func TestValidate_GenderPairingRuleScopedToPatient(t *testing.T) {
	in := baseInput(session("09:00", "10:00"))
	in.Staff[0].Gender = "Male"
	in.Rules = []rules.ResolvedRule{
		{
			ID:   "rule-1",
			Kind: rules.KindGenderPairing,
			Bindings: []rules.Bound{
				{EntityID: "patient-other", EntityType: rules.EntityPatient},
			},
		},
	}

	outcome := Validate(in)
	assert.Len(t, outcome.Valid, 1)
	assert.Empty(t, outcome.Rejected)
}

func TestValidate_OutsidePreferredTimesWarns(t *testing.T) {
	in := baseInput(session("15:00", "16:00"))
	in.Patients[0].SessionSpecs[0].PreferredTimes = []model.TimeSlot{
		{StartTime: "09:00", EndTime: "12:00"},
	}

	outcome := Validate(in)
	assert.Len(t, outcome.Valid, 1)

	found := false
	for _, w := range outcome.Warnings {
		if w.Code == WarnOutsidePreferredTimes {
			found = true
		}
	}
	assert.True(t, found, "expected preferred-times warning, got %v", outcome.Warnings)
}

func TestValidate_InvalidSlotRejected(t *testing.T) {
	outcome := Validate(baseInput(session("10:00", "09:00")))

	require.Len(t, outcome.Rejected, 1)
	assert.Contains(t, outcome.Rejected[0].Reasons[0], "invalid time slot")
}

func TestValidate_ReasonsAccumulate(t *testing.T) {
	// Missing certification AND outside working hours: both reasons listed
	in := baseInput(session("07:00", "08:00"))
	in.Staff[0].Certifications = nil

	outcome := Validate(in)
	require.Len(t, outcome.Rejected, 1)
	assert.GreaterOrEqual(t, len(outcome.Rejected[0].Reasons), 2)
}
