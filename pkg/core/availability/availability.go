// Package availability computes ground-truth free time for staff members:
// organization business hours intersected with staff default hours,
// adjusted by day-specific overrides, minus existing sessions and active
// holds. All computation is pure over the passed-in snapshot.
package availability

import (
	"fmt"
	"sort"
	"time"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/interval"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
)

// Snapshot is the read-only entity state availability is computed against
type Snapshot struct {
	// BusinessHours holds organization opening hours keyed by lowercase
	// day name. A missing day means the organization is closed that day.
	BusinessHours model.WeeklyHours

	// Closures contains dates ("2006-01-02") on which the organization is
	// closed regardless of business hours (e.g. public holidays).
	Closures map[string]bool

	Staff          []model.Staff
	Unavailability []model.Unavailability
	Sessions       []model.Session
	Holds          []model.Hold

	// Now anchors hold-expiry checks
	Now time.Time
}

// Query selects the staff, date range and slot shape to compute
type Query struct {
	StaffIDs        []string // empty selects all staff in the snapshot
	StartDate       string
	EndDate         string
	DurationMinutes int
	StepMinutes     int

	// ForPatientID additionally blocks that patient's own sessions, so
	// slots returned never double-book the patient
	ForPatientID string
}

// Slot is one bookable candidate slot
type Slot struct {
	Date      string
	StaffID   string
	StaffName string
	Slot      model.TimeSlot
}

// Result is the full availability answer with the query echoed back
type Result struct {
	Slots []Slot
	Query Query
}

// DayResult is the single-day diagnostic answer
type DayResult struct {
	Date         string
	StaffID      string
	WorkingHours *model.TimeSlot // nil when the staff member is off that day
	FreeRanges   []model.TimeSlot
	BlockedSlots []model.TimeSlot // merged sessions + holds, for diagnostics
	Slots        []Slot
}

// SlotCheck explains whether a specific slot is bookable and, if not, why
type SlotCheck struct {
	Available bool
	Reason    string
}

// Compute returns every bookable slot for the queried staff and date
// range, ordered by date, then start time, then staff name
func Compute(snap Snapshot, q Query) (*Result, error) {
	if q.DurationMinutes <= 0 || q.StepMinutes <= 0 {
		return nil, fmt.Errorf("duration and step must be positive, got %d/%d", q.DurationMinutes, q.StepMinutes)
	}

	dates, err := model.DatesBetween(q.StartDate, q.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid date range: %w", err)
	}

	staff, err := selectStaff(snap.Staff, q.StaffIDs)
	if err != nil {
		return nil, err
	}

	var slots []Slot
	for _, member := range staff {
		for _, date := range dates {
			working, ok, err := resolveWorkingHours(snap, member, date)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			blocked, err := blockedRanges(snap, member.ID, date, q.ForPatientID)
			if err != nil {
				return nil, err
			}

			free := interval.SubtractBlocked(working, blocked)
			for _, r := range interval.SliceIntoSlots(free, q.DurationMinutes, q.StepMinutes) {
				slots = append(slots, Slot{
					Date:      date,
					StaffID:   member.ID,
					StaffName: member.Name(),
					Slot:      toTimeSlot(r),
				})
			}
		}
	}

	// Deterministic ordering for display: date, start time, staff name
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		if slots[i].Slot.StartTime != slots[j].Slot.StartTime {
			return slots[i].Slot.StartTime < slots[j].Slot.StartTime
		}
		return slots[i].StaffName < slots[j].StaffName
	})

	return &Result{Slots: slots, Query: q}, nil
}

// Day runs the per-day computation for one staff member and additionally
// exposes the merged blocked-slot list for diagnostics
func Day(snap Snapshot, staffID, date string, duration, step int, forPatientID string) (*DayResult, error) {
	member, err := findStaff(snap.Staff, staffID)
	if err != nil {
		return nil, err
	}

	result := &DayResult{Date: date, StaffID: staffID}

	working, ok, err := resolveWorkingHours(snap, member, date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return result, nil
	}

	workingSlot := toTimeSlot(working)
	result.WorkingHours = &workingSlot

	blocked, err := blockedRanges(snap, staffID, date, forPatientID)
	if err != nil {
		return nil, err
	}
	for _, b := range interval.MergeOverlapping(blocked) {
		result.BlockedSlots = append(result.BlockedSlots, toTimeSlot(b))
	}

	free := interval.SubtractBlocked(working, blocked)
	for _, r := range free {
		result.FreeRanges = append(result.FreeRanges, toTimeSlot(r))
	}
	for _, r := range interval.SliceIntoSlots(free, duration, step) {
		result.Slots = append(result.Slots, Slot{
			Date:      date,
			StaffID:   staffID,
			StaffName: member.Name(),
			Slot:      toTimeSlot(r),
		})
	}

	return result, nil
}

// IsSlotAvailable checks one requested slot and returns a structured
// answer so the caller can surface why the slot failed
func IsSlotAvailable(snap Snapshot, staffID, date string, slot model.TimeSlot) (SlotCheck, error) {
	member, err := findStaff(snap.Staff, staffID)
	if err != nil {
		return SlotCheck{}, err
	}

	requested, err := interval.ParseRange(slot.StartTime, slot.EndTime)
	if err != nil {
		return SlotCheck{}, fmt.Errorf("invalid requested slot: %w", err)
	}

	if snap.Closures[date] {
		return SlotCheck{Reason: fmt.Sprintf("organization closed on %s", date)}, nil
	}

	dayName, err := model.DayName(date)
	if err != nil {
		return SlotCheck{}, err
	}
	if _, open := snap.BusinessHours[dayName]; !open {
		return SlotCheck{Reason: fmt.Sprintf("organization closed on %ss", dayName)}, nil
	}

	if override := findOverride(snap.Unavailability, staffID, date); override != nil && !override.Available {
		reason := fmt.Sprintf("%s unavailable on %s", member.Name(), date)
		if override.Reason != "" {
			reason += " (" + override.Reason + ")"
		}
		return SlotCheck{Reason: reason}, nil
	}

	working, ok, err := resolveWorkingHours(snap, member, date)
	if err != nil {
		return SlotCheck{}, err
	}
	if !ok {
		return SlotCheck{Reason: fmt.Sprintf("%s has no working hours on %s", member.Name(), date)}, nil
	}

	if requested.Start < working.Start || requested.End > working.End {
		return SlotCheck{Reason: fmt.Sprintf("slot %s-%s outside working hours %s-%s",
			slot.StartTime, slot.EndTime,
			interval.FormatClock(working.Start), interval.FormatClock(working.End))}, nil
	}

	sessionBlocks, holdBlocks, err := blockedRangesSplit(snap, staffID, date)
	if err != nil {
		return SlotCheck{}, err
	}
	for _, b := range sessionBlocks {
		if interval.Overlaps(requested, b) {
			return SlotCheck{Reason: fmt.Sprintf("conflicts with existing session %s-%s",
				interval.FormatClock(b.Start), interval.FormatClock(b.End))}, nil
		}
	}
	for _, b := range holdBlocks {
		if interval.Overlaps(requested, b) {
			return SlotCheck{Reason: fmt.Sprintf("conflicts with an active hold %s-%s",
				interval.FormatClock(b.Start), interval.FormatClock(b.End))}, nil
		}
	}

	return SlotCheck{Available: true}, nil
}

// resolveWorkingHours returns the effective working hours for a staff
// member on a date: business hours intersected with either the
// override hours or the staff default hours. ok=false means the staff
// member is off that day.
func resolveWorkingHours(snap Snapshot, member model.Staff, date string) (interval.Range, bool, error) {
	if snap.Closures[date] {
		return interval.Range{}, false, nil
	}

	dayName, err := model.DayName(date)
	if err != nil {
		return interval.Range{}, false, err
	}

	businessSlot, open := snap.BusinessHours[dayName]
	if !open {
		return interval.Range{}, false, nil
	}
	business, err := interval.ParseRange(businessSlot.StartTime, businessSlot.EndTime)
	if err != nil {
		return interval.Range{}, false, fmt.Errorf("invalid business hours for %s: %w", dayName, err)
	}

	staffSlot, hasDefault := member.WorkingHours[dayName]
	override := findOverride(snap.Unavailability, member.ID, date)
	if override != nil {
		if !override.Available {
			return interval.Range{}, false, nil
		}
		if override.Hours != nil {
			staffSlot = *override.Hours
			hasDefault = true
		}
	}
	if !hasDefault {
		return interval.Range{}, false, nil
	}

	staffHours, err := interval.ParseRange(staffSlot.StartTime, staffSlot.EndTime)
	if err != nil {
		return interval.Range{}, false, fmt.Errorf("invalid working hours for staff %s on %s: %w", member.ID, dayName, err)
	}

	working, ok := interval.Intersect(business, staffHours)
	if !ok {
		return interval.Range{}, false, nil
	}
	return working, true, nil
}

// blockedRanges collects blocking ranges for a staff member on a date:
// non-cancelled sessions, active holds, and (when forPatientID is set)
// that patient's sessions with any staff
func blockedRanges(snap Snapshot, staffID, date, forPatientID string) ([]interval.Range, error) {
	sessionBlocks, holdBlocks, err := blockedRangesSplit(snap, staffID, date)
	if err != nil {
		return nil, err
	}
	blocked := append(sessionBlocks, holdBlocks...)

	if forPatientID != "" {
		for _, s := range snap.Sessions {
			if s.PatientID != forPatientID || s.Date != date || s.Status == model.SessionCancelled {
				continue
			}
			if s.TherapistID == staffID {
				continue // already counted
			}
			r, err := interval.ParseRange(s.Slot.StartTime, s.Slot.EndTime)
			if err != nil {
				return nil, fmt.Errorf("invalid slot on session %s: %w", s.ID, err)
			}
			blocked = append(blocked, r)
		}
	}

	return blocked, nil
}

func blockedRangesSplit(snap Snapshot, staffID, date string) (sessions, holds []interval.Range, err error) {
	for _, s := range snap.Sessions {
		if s.TherapistID != staffID || s.Date != date || s.Status == model.SessionCancelled {
			continue
		}
		r, err := interval.ParseRange(s.Slot.StartTime, s.Slot.EndTime)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid slot on session %s: %w", s.ID, err)
		}
		sessions = append(sessions, r)
	}

	for _, h := range snap.Holds {
		if h.StaffID != staffID || h.Date != date || !h.IsActive(snap.Now) {
			continue
		}
		r, err := interval.ParseRange(h.Slot.StartTime, h.Slot.EndTime)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid slot on hold %s: %w", h.ID, err)
		}
		holds = append(holds, r)
	}

	return sessions, holds, nil
}

func selectStaff(all []model.Staff, ids []string) ([]model.Staff, error) {
	if len(ids) == 0 {
		return all, nil
	}

	byID := make(map[string]model.Staff, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}

	selected := make([]model.Staff, 0, len(ids))
	for _, id := range ids {
		member, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown staff id %q", id)
		}
		selected = append(selected, member)
	}
	return selected, nil
}

func findStaff(all []model.Staff, id string) (model.Staff, error) {
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Staff{}, fmt.Errorf("unknown staff id %q", id)
}

func findOverride(overrides []model.Unavailability, staffID, date string) *model.Unavailability {
	for i := range overrides {
		if overrides[i].StaffID == staffID && overrides[i].Date == date {
			return &overrides[i]
		}
	}
	return nil
}

func toTimeSlot(r interval.Range) model.TimeSlot {
	return model.TimeSlot{
		StartTime: interval.FormatClock(r.Start),
		EndTime:   interval.FormatClock(r.End),
	}
}
