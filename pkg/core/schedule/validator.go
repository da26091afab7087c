// Package schedule validates proposed therapy sessions against the
// authoritative entity snapshot. Validation is a single left-to-right pass
// over the candidates, so the first of two conflicting sessions wins;
// everything the engine accepts is guaranteed conflict-free.
package schedule

import (
	"fmt"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/interval"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/rules"
)

// Input carries the candidate sessions and the snapshot they are
// validated against. BusinessHours, Closures and Rules are optional; a nil
// value skips the corresponding checks.
type Input struct {
	Sessions       []model.GeneratedSession
	Staff          []model.Staff
	Patients       []model.Patient
	Rooms          []model.Room
	Unavailability []model.Unavailability
	BusinessHours  model.WeeklyHours
	Closures       map[string]bool
	Rules          []rules.ResolvedRule

	// ExistingSessions seeds the conflict indices with already-committed
	// sessions, so candidates are checked against the current schedule as
	// well as against each other. Cancelled sessions are ignored.
	ExistingSessions []model.Session
}

// Rejected pairs a rejected session with every reason it failed
type Rejected struct {
	Session model.GeneratedSession
	Reasons []string
}

// Warning is a non-blocking advisory surfaced alongside the outcome
type Warning struct {
	Code    string
	Message string
}

// Warning codes
const (
	WarnNoHoursRecorded       = "no_hours_recorded"
	WarnNoRoomAssigned        = "no_room_assigned"
	WarnCoverageShortfall     = "coverage_shortfall"
	WarnOutsidePreferredTimes = "outside_preferred_times"
)

// Outcome partitions a candidate batch into sessions ready to persist,
// rejected sessions with itemized reasons, and warnings
type Outcome struct {
	Valid    []model.GeneratedSession
	Rejected []Rejected
	Warnings []Warning
}

// busy is one accepted time range in a conflict-tracking index
type busy struct {
	date string
	r    interval.Range
	desc string
}

type validator struct {
	in          Input
	staffByID   map[string]model.Staff
	patientByID map[string]model.Patient
	roomByID    map[string]model.Room

	// Running conflict indices, keyed by entity id, holding ranges
	// accepted earlier in this pass
	staffBusy   map[string][]busy
	patientBusy map[string][]busy
	roomBusy    map[string][]busy

	outcome *Outcome
}

// Validate checks every candidate session and returns the partitioned
// outcome. The input snapshot is never mutated.
func Validate(in Input) *Outcome {
	v := &validator{
		in:          in,
		staffByID:   make(map[string]model.Staff, len(in.Staff)),
		patientByID: make(map[string]model.Patient, len(in.Patients)),
		roomByID:    make(map[string]model.Room, len(in.Rooms)),
		staffBusy:   make(map[string][]busy),
		patientBusy: make(map[string][]busy),
		roomBusy:    make(map[string][]busy),
		outcome:     &Outcome{},
	}
	for _, s := range in.Staff {
		v.staffByID[s.ID] = s
	}
	for _, p := range in.Patients {
		v.patientByID[p.ID] = p
	}
	for _, r := range in.Rooms {
		v.roomByID[r.ID] = r
	}

	for _, existing := range in.ExistingSessions {
		if existing.Status == model.SessionCancelled {
			continue
		}
		r, err := interval.ParseRange(existing.Slot.StartTime, existing.Slot.EndTime)
		if err != nil {
			continue
		}
		entry := busy{
			date: existing.Date,
			r:    r,
			desc: existing.Slot.StartTime + "-" + existing.Slot.EndTime,
		}
		v.staffBusy[existing.TherapistID] = append(v.staffBusy[existing.TherapistID], entry)
		v.patientBusy[existing.PatientID] = append(v.patientBusy[existing.PatientID], entry)
		if existing.RoomID != "" {
			v.roomBusy[existing.RoomID] = append(v.roomBusy[existing.RoomID], entry)
		}
	}

	for _, session := range in.Sessions {
		v.check(session)
	}

	v.checkCoverage()

	return v.outcome
}

func (v *validator) check(session model.GeneratedSession) {
	var reasons []string
	var warnings []Warning

	staff, staffOK := v.staffByID[session.TherapistID]
	if !staffOK {
		reasons = append(reasons, fmt.Sprintf("unknown therapist id %q", session.TherapistID))
	}
	patient, patientOK := v.patientByID[session.PatientID]
	if !patientOK {
		reasons = append(reasons, fmt.Sprintf("unknown patient id %q", session.PatientID))
	}
	if !staffOK || !patientOK {
		v.reject(session, reasons)
		return
	}

	r, err := interval.ParseRange(session.Slot.StartTime, session.Slot.EndTime)
	if err != nil {
		v.reject(session, []string{fmt.Sprintf("invalid time slot: %v", err)})
		return
	}

	spec := patient.Spec(session.SessionSpecID)
	if spec == nil {
		reasons = append(reasons, fmt.Sprintf("unknown session spec %q for patient %s", session.SessionSpecID, patient.Name()))
	} else {
		if !staff.HasCertifications(spec.RequiredCertifications) {
			for _, cert := range spec.RequiredCertifications {
				if !staff.HasCertifications([]string{cert}) {
					reasons = append(reasons, fmt.Sprintf("therapist %s lacks required certification %q", staff.Name(), cert))
				}
			}
		}
		if w, ok := v.preferredTimesWarning(session, patient, spec, r); ok {
			warnings = append(warnings, w)
		}
	}

	reasons = append(reasons, v.checkHours(session, staff, r, &warnings)...)
	reasons = append(reasons, v.checkGenderPairing(staff, patient)...)

	reasons = append(reasons, v.findOverlaps(v.staffBusy[session.TherapistID], session.Date, r,
		fmt.Sprintf("therapist %s", staff.Name()))...)
	reasons = append(reasons, v.findOverlaps(v.patientBusy[session.PatientID], session.Date, r,
		fmt.Sprintf("patient %s", patient.Name()))...)

	if session.RoomID != "" {
		room, roomOK := v.roomByID[session.RoomID]
		if !roomOK {
			reasons = append(reasons, fmt.Sprintf("unknown room id %q", session.RoomID))
		} else {
			reasons = append(reasons, v.findOverlaps(v.roomBusy[session.RoomID], session.Date, r,
				fmt.Sprintf("room %s", room.Name))...)
			if spec != nil {
				for _, cap := range spec.RequiredRoomCapabilities {
					if !room.HasCapabilities([]string{cap}) {
						reasons = append(reasons, fmt.Sprintf("room %s lacks required capability %q", room.Name, cap))
					}
				}
			}
		}
	} else if spec != nil && len(spec.RequiredRoomCapabilities) > 0 {
		warnings = append(warnings, Warning{
			Code: WarnNoRoomAssigned,
			Message: fmt.Sprintf("no room assigned for %s's %s on %s; spec requires capabilities %v",
				patient.Name(), spec.Name, session.Date, spec.RequiredRoomCapabilities),
		})
	}

	if len(reasons) > 0 {
		v.reject(session, reasons)
		return
	}

	v.accept(session, r)
	v.outcome.Warnings = append(v.outcome.Warnings, warnings...)
}

// checkHours verifies the session lies within the staff member's effective
// working hours for its date. Staff with no recorded hours for the day
// produce a warning instead of a rejection, tolerating ad hoc exceptions.
func (v *validator) checkHours(session model.GeneratedSession, staff model.Staff, r interval.Range, warnings *[]Warning) []string {
	if v.in.Closures[session.Date] {
		return []string{fmt.Sprintf("organization closed on %s", session.Date)}
	}

	dayName, err := model.DayName(session.Date)
	if err != nil {
		return []string{fmt.Sprintf("invalid date %q", session.Date)}
	}

	effective := interval.Range{Start: 0, End: 24 * 60}
	if v.in.BusinessHours != nil {
		businessSlot, open := v.in.BusinessHours[dayName]
		if !open {
			return []string{fmt.Sprintf("organization closed on %ss", dayName)}
		}
		business, err := interval.ParseRange(businessSlot.StartTime, businessSlot.EndTime)
		if err != nil {
			return []string{fmt.Sprintf("invalid business hours for %s", dayName)}
		}
		effective = business
	}

	override := findOverride(v.in.Unavailability, staff.ID, session.Date)
	if override != nil && !override.Available {
		reason := fmt.Sprintf("therapist %s unavailable on %s", staff.Name(), session.Date)
		if override.Reason != "" {
			reason += " (" + override.Reason + ")"
		}
		return []string{reason}
	}

	staffSlot, hasHours := staff.WorkingHours[dayName]
	if override != nil && override.Hours != nil {
		staffSlot = *override.Hours
		hasHours = true
	}
	if !hasHours {
		*warnings = append(*warnings, Warning{
			Code: WarnNoHoursRecorded,
			Message: fmt.Sprintf("therapist %s has no working hours recorded for %s; session on %s accepted as ad hoc",
				staff.Name(), dayName, session.Date),
		})
		return nil
	}

	hours, err := interval.ParseRange(staffSlot.StartTime, staffSlot.EndTime)
	if err != nil {
		return []string{fmt.Sprintf("invalid working hours for therapist %s on %s", staff.Name(), dayName)}
	}

	working, ok := interval.Intersect(effective, hours)
	if !ok || r.Start < working.Start || r.End > working.End {
		return []string{fmt.Sprintf("session %s-%s outside %s's working hours %s-%s on %s",
			session.Slot.StartTime, session.Slot.EndTime, staff.Name(),
			staffSlot.StartTime, staffSlot.EndTime, dayName)}
	}

	return nil
}

func (v *validator) checkGenderPairing(staff model.Staff, patient model.Patient) []string {
	for _, rule := range v.in.Rules {
		if rule.Kind != rules.KindGenderPairing || !rule.AppliesToPatient(patient.ID) {
			continue
		}
		if staff.Gender == "" || patient.Gender == "" {
			continue
		}
		if staff.Gender != patient.Gender {
			return []string{fmt.Sprintf("gender pairing rule requires a %s therapist for patient %s",
				patient.Gender, patient.Name())}
		}
	}
	return nil
}

func (v *validator) preferredTimesWarning(session model.GeneratedSession, patient model.Patient, spec *model.SessionSpec, r interval.Range) (Warning, bool) {
	if len(spec.PreferredTimes) == 0 {
		return Warning{}, false
	}

	for _, pref := range spec.PreferredTimes {
		window, err := interval.ParseRange(pref.StartTime, pref.EndTime)
		if err != nil {
			continue
		}
		if r.Start >= window.Start && r.End <= window.End {
			return Warning{}, false
		}
	}

	return Warning{
		Code: WarnOutsidePreferredTimes,
		Message: fmt.Sprintf("session %s-%s on %s for %s is outside the preferred times of %s",
			session.Slot.StartTime, session.Slot.EndTime, session.Date, patient.Name(), spec.Name),
	}, true
}

// findOverlaps checks the candidate range against an entity's accepted
// ranges for the same date
func (v *validator) findOverlaps(entries []busy, date string, r interval.Range, who string) []string {
	var reasons []string
	for _, b := range entries {
		if b.date != date {
			continue
		}
		if interval.Overlaps(r, b.r) {
			reasons = append(reasons, fmt.Sprintf("overlaps %s's session %s on %s", who, b.desc, date))
		}
	}
	return reasons
}

func (v *validator) accept(session model.GeneratedSession, r interval.Range) {
	entry := busy{
		date: session.Date,
		r:    r,
		desc: session.Slot.StartTime + "-" + session.Slot.EndTime,
	}
	v.staffBusy[session.TherapistID] = append(v.staffBusy[session.TherapistID], entry)
	v.patientBusy[session.PatientID] = append(v.patientBusy[session.PatientID], entry)
	if session.RoomID != "" {
		v.roomBusy[session.RoomID] = append(v.roomBusy[session.RoomID], entry)
	}
	v.outcome.Valid = append(v.outcome.Valid, session)
}

func (v *validator) reject(session model.GeneratedSession, reasons []string) {
	v.outcome.Rejected = append(v.outcome.Rejected, Rejected{Session: session, Reasons: reasons})
}

func findOverride(overrides []model.Unavailability, staffID, date string) *model.Unavailability {
	for i := range overrides {
		if overrides[i].StaffID == staffID && overrides[i].Date == date {
			return &overrides[i]
		}
	}
	return nil
}
