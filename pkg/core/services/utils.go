package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/rules"
	"github.com/jc96818/sayitschedule-sub003/pkg/proposer"
)

// ScheduleStats summarizes a committed week for display
type ScheduleStats struct {
	TotalSessions     int
	PatientsScheduled int
	TherapistsUsed    int
}

// weekEndDate returns the date six days after weekStart, so a week is
// always the inclusive range [weekStart, weekStart+6]
func weekEndDate(weekStart string) (string, error) {
	start, err := time.Parse(model.DateLayout, weekStart)
	if err != nil {
		return "", fmt.Errorf("invalid week start %q: %w", weekStart, err)
	}
	return start.AddDate(0, 0, 6).Format(model.DateLayout), nil
}

// filterActiveStaff filters to staff available for scheduling
func filterActiveStaff(staff []model.Staff) []model.Staff {
	active := make([]model.Staff, 0, len(staff))
	for _, member := range staff {
		if member.Status == model.StaffActive {
			active = append(active, member)
		}
	}
	return active
}

// ruleEntities builds the name snapshot rules are resolved against
func ruleEntities(staff []model.Staff, patients []model.Patient, rooms []model.Room) rules.Entities {
	entities := rules.Entities{}
	for _, s := range staff {
		entities.Staff = append(entities.Staff, rules.NamedEntity{ID: s.ID, Name: s.Name()})
	}
	for _, p := range patients {
		entities.Patients = append(entities.Patients, rules.NamedEntity{ID: p.ID, Name: p.Name()})
	}
	for _, r := range rooms {
		entities.Rooms = append(entities.Rooms, rules.NamedEntity{ID: r.ID, Name: r.Name})
	}
	return entities
}

// hoursToStrings converts weekly hours to the proposer's "HH:mm-HH:mm"
// wire form
func hoursToStrings(hours model.WeeklyHours) map[string]string {
	out := make(map[string]string, len(hours))
	for day, slot := range hours {
		out[day] = slot.StartTime + "-" + slot.EndTime
	}
	return out
}

// convertToStaffSummaries converts staff to the proposer payload form
func convertToStaffSummaries(staff []model.Staff) []proposer.StaffSummary {
	result := make([]proposer.StaffSummary, len(staff))
	for i, member := range staff {
		result[i] = proposer.StaffSummary{
			ID:             member.ID,
			Gender:         member.Gender,
			Certifications: member.Certifications,
			WorkingHours:   hoursToStrings(member.WorkingHours),
		}
	}
	return result
}

// convertToPatientSummaries converts patients and their session specs to
// the proposer payload form
func convertToPatientSummaries(patients []model.Patient) []proposer.PatientSummary {
	result := make([]proposer.PatientSummary, len(patients))
	for i, patient := range patients {
		specs := make([]proposer.SpecSummary, len(patient.SessionSpecs))
		for j, spec := range patient.SessionSpecs {
			preferred := make([]string, len(spec.PreferredTimes))
			for k, window := range spec.PreferredTimes {
				preferred[k] = window.StartTime + "-" + window.EndTime
			}
			specs[j] = proposer.SpecSummary{
				ID:                       spec.ID,
				SessionsPerWeek:          spec.SessionsPerWeek,
				DurationMinutes:          spec.DurationMinutes,
				RequiredCertifications:   spec.RequiredCertifications,
				PreferredTimes:           preferred,
				RequiredRoomCapabilities: spec.RequiredRoomCapabilities,
			}
		}
		result[i] = proposer.PatientSummary{
			ID:     patient.ID,
			Gender: patient.Gender,
			Specs:  specs,
		}
	}
	return result
}

// convertToRoomSummaries converts rooms to the proposer payload form
func convertToRoomSummaries(rooms []model.Room) []proposer.RoomSummary {
	result := make([]proposer.RoomSummary, len(rooms))
	for i, room := range rooms {
		result[i] = proposer.RoomSummary{ID: room.ID, Capabilities: room.Capabilities}
	}
	return result
}

// resolvedRuleTexts lists rule texts for the proposer payload
func resolvedRuleTexts(resolved []rules.ResolvedRule) []string {
	texts := make([]string, len(resolved))
	for i, rule := range resolved {
		texts[i] = rule.Text
	}
	return texts
}

// commitSessions converts validated candidates into committed session
// records ready to persist
func commitSessions(valid []model.GeneratedSession) []model.Session {
	sessions := make([]model.Session, len(valid))
	for i, candidate := range valid {
		sessions[i] = model.Session{
			ID:            uuid.New().String(),
			TherapistID:   candidate.TherapistID,
			PatientID:     candidate.PatientID,
			SessionSpecID: candidate.SessionSpecID,
			RoomID:        candidate.RoomID,
			Date:          candidate.Date,
			Slot:          candidate.Slot,
			Status:        model.SessionScheduled,
			Notes:         candidate.Notes,
		}
	}
	return sessions
}

// sessionsToGenerated converts committed sessions back to candidate form
// for re-validation. Cancelled sessions are dropped.
func sessionsToGenerated(sessions []model.Session) []model.GeneratedSession {
	candidates := make([]model.GeneratedSession, 0, len(sessions))
	for _, s := range sessions {
		if s.Status == model.SessionCancelled {
			continue
		}
		candidates = append(candidates, model.GeneratedSession{
			TherapistID:   s.TherapistID,
			PatientID:     s.PatientID,
			SessionSpecID: s.SessionSpecID,
			RoomID:        s.RoomID,
			Date:          s.Date,
			Slot:          s.Slot,
			Notes:         s.Notes,
		})
	}
	return candidates
}

// computeStats summarizes the committed sessions
func computeStats(sessions []model.Session) ScheduleStats {
	patients := make(map[string]bool)
	therapists := make(map[string]bool)
	for _, s := range sessions {
		patients[s.PatientID] = true
		therapists[s.TherapistID] = true
	}
	return ScheduleStats{
		TotalSessions:     len(sessions),
		PatientsScheduled: len(patients),
		TherapistsUsed:    len(therapists),
	}
}
