package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/internal/config"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/availability"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/rules"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/schedule"
	"github.com/jc96818/sayitschedule-sub003/pkg/proposer"
)

// maxRepairCandidates caps the candidate slots offered per session repair
// so the proposer payload stays bounded
const maxRepairCandidates = 40

// RemovedSession is a copied session dropped from the target week, with
// the validation reasons and what was tried before dropping it
type RemovedSession struct {
	Session model.GeneratedSession
	Reasons []string
	Note    string
}

// CopyScheduleResult contains the copy outcome for the target week
type CopyScheduleResult struct {
	SourceWeekStart string
	TargetWeekStart string
	Sessions        []model.Session
	Repaired        []model.GeneratedSession
	Removed         []RemovedSession
	Warnings        []schedule.Warning
	Stats           ScheduleStats
}

// CopyScheduleStore defines the database operations needed for copying a schedule
type CopyScheduleStore interface {
	GetStaff(ctx context.Context) ([]model.Staff, error)
	GetPatients(ctx context.Context) ([]model.Patient, error)
	GetRooms(ctx context.Context) ([]model.Room, error)
	GetRules(ctx context.Context) ([]rules.Rule, error)
	GetUnavailability(ctx context.Context, startDate, endDate string) ([]model.Unavailability, error)
	GetSessions(ctx context.Context, startDate, endDate string) ([]model.Session, error)
	GetHolds(ctx context.Context, startDate, endDate string) ([]model.Hold, error)
	InsertSessions(ctx context.Context, sessions []model.Session) error
}

// CopySchedule copies a source week onto a target week, re-validates every
// copied session against the target week's state, and tries one proposer
// repair per violating session. Sessions that still fail are removed, never
// silently kept. If dryRun is true, sessions are not saved to the database.
func CopySchedule(
	ctx context.Context,
	database CopyScheduleStore,
	prop proposer.Proposer,
	cfg *config.Config,
	logger *zap.Logger,
	sourceWeekStart string,
	targetWeekStart string,
	dryRun bool,
) (*CopyScheduleResult, error) {
	logger.Debug("Starting copySchedule",
		zap.String("source_week", sourceWeekStart),
		zap.String("target_week", targetWeekStart),
		zap.Bool("dry_run", dryRun))

	offsetDays, err := weekOffsetDays(sourceWeekStart, targetWeekStart)
	if err != nil {
		return nil, err
	}
	sourceWeekEnd, err := weekEndDate(sourceWeekStart)
	if err != nil {
		return nil, err
	}
	targetWeekEnd, err := weekEndDate(targetWeekStart)
	if err != nil {
		return nil, err
	}

	// Step 1: DB queries - fetch entities, the source week and the target week
	allStaff, err := database.GetStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staff: %w", err)
	}
	patients, err := database.GetPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patients: %w", err)
	}
	rooms, err := database.GetRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rooms: %w", err)
	}
	allRules, err := database.GetRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}
	sourceSessions, err := database.GetSessions(ctx, sourceWeekStart, sourceWeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source week sessions: %w", err)
	}
	targetExisting, err := database.GetSessions(ctx, targetWeekStart, targetWeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target week sessions: %w", err)
	}
	unavailability, err := database.GetUnavailability(ctx, targetWeekStart, targetWeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unavailability: %w", err)
	}
	holds, err := database.GetHolds(ctx, targetWeekStart, targetWeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holds: %w", err)
	}

	activeStaff := filterActiveStaff(allStaff)
	if len(sourceSessions) == 0 {
		return nil, fmt.Errorf("no sessions found in source week %s - nothing to copy", sourceWeekStart)
	}
	logger.Debug("Fetched source week", zap.Int("sessions", len(sourceSessions)))

	// Step 2: Shift the source sessions onto the target dates
	candidates, err := shiftSessions(sourceSessions, offsetDays)
	if err != nil {
		return nil, err
	}

	// Step 3: Validate the shifted batch against the target week's state
	resolved, unresolvable := rules.ResolveAll(allRules, ruleEntities(activeStaff, patients, rooms))
	for _, rule := range unresolvable {
		logger.Warn("Rule has unresolvable mentions, excluded from validation",
			zap.String("rule_id", rule.ID))
	}

	closures, err := cfg.ClosureDates(targetWeekStart, targetWeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to expand closures: %w", err)
	}

	input := schedule.Input{
		Sessions:         candidates,
		Staff:            activeStaff,
		Patients:         patients,
		Rooms:            rooms,
		Unavailability:   unavailability,
		BusinessHours:    cfg.WeeklyBusinessHours(),
		Closures:         closures,
		Rules:            resolved,
		ExistingSessions: targetExisting,
	}
	outcome := schedule.Validate(input)

	logger.Info("Validated copied week",
		zap.Int("valid", len(outcome.Valid)),
		zap.Int("rejected", len(outcome.Rejected)))

	// Step 4: Try one proposer repair per rejected session, re-validating
	// each replacement against everything accepted so far
	committed := commitSessions(outcome.Valid)
	repaired := make([]model.GeneratedSession, 0)
	removed := make([]RemovedSession, 0)

	for _, rejected := range outcome.Rejected {
		replacement, note, err := repairOneSession(
			ctx, prop, cfg, logger,
			rejected, input, committed, holds,
			targetWeekStart, targetWeekEnd,
		)
		if err != nil {
			return nil, err
		}
		if replacement == nil {
			logger.Warn("Removing copied session",
				zap.String("patient_id", rejected.Session.PatientID),
				zap.String("date", rejected.Session.Date),
				zap.Strings("reasons", rejected.Reasons),
				zap.String("note", note))
			removed = append(removed, RemovedSession{
				Session: rejected.Session,
				Reasons: rejected.Reasons,
				Note:    note,
			})
			continue
		}

		logger.Info("Repaired copied session",
			zap.String("patient_id", replacement.PatientID),
			zap.String("date", replacement.Date),
			zap.String("start", replacement.Slot.StartTime))
		repaired = append(repaired, *replacement)
		committed = append(committed, commitSessions([]model.GeneratedSession{*replacement})...)
	}

	// Step 5: Commit the surviving sessions
	if dryRun {
		logger.Info("Dry run mode - sessions not saved")
	} else if len(committed) > 0 {
		logger.Info("Saving sessions to database", zap.Int("count", len(committed)))
		if err := database.InsertSessions(ctx, committed); err != nil {
			return nil, fmt.Errorf("failed to save sessions: %w", err)
		}
	} else {
		logger.Warn("No valid sessions to save")
	}

	return &CopyScheduleResult{
		SourceWeekStart: sourceWeekStart,
		TargetWeekStart: targetWeekStart,
		Sessions:        committed,
		Repaired:        repaired,
		Removed:         removed,
		Warnings:        outcome.Warnings,
		Stats:           computeStats(committed),
	}, nil
}

// repairOneSession asks the proposer for a replacement for one rejected
// session and re-validates it against the accepted set. A nil replacement
// with a note means the session must be removed.
func repairOneSession(
	ctx context.Context,
	prop proposer.Proposer,
	cfg *config.Config,
	logger *zap.Logger,
	rejected schedule.Rejected,
	input schedule.Input,
	committed []model.Session,
	holds []model.Hold,
	weekStart, weekEnd string,
) (*model.GeneratedSession, string, error) {
	patient := findPatient(input.Patients, rejected.Session.PatientID)
	if patient == nil {
		return nil, "patient no longer exists", nil
	}
	spec := patient.Spec(rejected.Session.SessionSpecID)
	if spec == nil {
		return nil, "session spec no longer exists", nil
	}

	// Offer only slots with staff holding the required certifications
	qualified := make([]string, 0, len(input.Staff))
	for _, member := range input.Staff {
		if member.HasCertifications(spec.RequiredCertifications) {
			qualified = append(qualified, member.ID)
		}
	}
	if len(qualified) == 0 {
		return nil, "no staff hold the required certifications", nil
	}

	snapshot := availability.Snapshot{
		BusinessHours:  input.BusinessHours,
		Closures:       input.Closures,
		Staff:          input.Staff,
		Unavailability: input.Unavailability,
		Sessions:       append(append([]model.Session{}, input.ExistingSessions...), committed...),
		Holds:          holds,
		Now:            time.Now(),
	}
	free, err := availability.Compute(snapshot, availability.Query{
		StaffIDs:        qualified,
		StartDate:       weekStart,
		EndDate:         weekEnd,
		DurationMinutes: spec.DurationMinutes,
		StepMinutes:     cfg.Scheduling.SlotStepMinutes,
		ForPatientID:    patient.ID,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to compute repair candidates: %w", err)
	}
	if len(free.Slots) == 0 {
		return nil, "no free slots available in the target week", nil
	}

	slots := free.Slots
	if len(slots) > maxRepairCandidates {
		slots = slots[:maxRepairCandidates]
	}
	candidates := make([]proposer.CandidateSlot, len(slots))
	for i, slot := range slots {
		candidates[i] = proposer.CandidateSlot{
			TherapistID: slot.StaffID,
			Date:        slot.Date,
			StartTime:   slot.Slot.StartTime,
			EndTime:     slot.Slot.EndTime,
		}
	}

	response, err := prop.RepairSession(ctx, proposer.SessionRepairRequest{
		PatientID:     patient.ID,
		SessionSpecID: spec.ID,
		Original: proposer.SessionProposal{
			TherapistID:   rejected.Session.TherapistID,
			PatientID:     rejected.Session.PatientID,
			SessionSpecID: rejected.Session.SessionSpecID,
			RoomID:        rejected.Session.RoomID,
			Date:          rejected.Session.Date,
			StartTime:     rejected.Session.Slot.StartTime,
			EndTime:       rejected.Session.Slot.EndTime,
		},
		Reasons:        rejected.Reasons,
		CandidateSlots: candidates,
	})
	if errors.Is(err, proposer.ErrNotConfigured) {
		return nil, "no proposer configured; session removed", nil
	}
	if err != nil {
		logger.Warn("Session repair call failed", zap.Error(err))
		return nil, fmt.Sprintf("repair call failed: %v", err), nil
	}
	if response.Session == nil {
		return nil, "proposer declined to repair", nil
	}

	// Re-validate the replacement against the current accepted set; a
	// repaired session gets exactly one try
	replacement := response.Session.ToModel()
	check := input
	check.Sessions = []model.GeneratedSession{replacement}
	check.ExistingSessions = append(append([]model.Session{}, input.ExistingSessions...), committed...)
	verdict := schedule.Validate(check)
	if len(verdict.Valid) != 1 {
		reasons := []string{"replacement invalid"}
		if len(verdict.Rejected) == 1 {
			reasons = verdict.Rejected[0].Reasons
		}
		return nil, fmt.Sprintf("repair attempt rejected: %v", reasons), nil
	}

	return &replacement, "", nil
}

// shiftSessions moves committed sessions by a whole number of days,
// dropping cancelled ones
func shiftSessions(sessions []model.Session, offsetDays int) ([]model.GeneratedSession, error) {
	shifted := make([]model.GeneratedSession, 0, len(sessions))
	for _, s := range sessions {
		if s.Status == model.SessionCancelled {
			continue
		}
		date, err := time.Parse(model.DateLayout, s.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date on session %s: %w", s.ID, err)
		}
		shifted = append(shifted, model.GeneratedSession{
			TherapistID:   s.TherapistID,
			PatientID:     s.PatientID,
			SessionSpecID: s.SessionSpecID,
			RoomID:        s.RoomID,
			Date:          date.AddDate(0, 0, offsetDays).Format(model.DateLayout),
			Slot:          s.Slot,
			Notes:         s.Notes,
		})
	}
	return shifted, nil
}

// weekOffsetDays returns the day offset between two week starts, which
// must be a whole number of weeks so weekdays line up
func weekOffsetDays(sourceWeekStart, targetWeekStart string) (int, error) {
	source, err := time.Parse(model.DateLayout, sourceWeekStart)
	if err != nil {
		return 0, fmt.Errorf("invalid source week start %q: %w", sourceWeekStart, err)
	}
	target, err := time.Parse(model.DateLayout, targetWeekStart)
	if err != nil {
		return 0, fmt.Errorf("invalid target week start %q: %w", targetWeekStart, err)
	}

	days := int(target.Sub(source).Hours() / 24)
	if days%7 != 0 {
		return 0, fmt.Errorf("weeks must start on the same weekday, got offset of %d days", days)
	}
	return days, nil
}

func findPatient(patients []model.Patient, id string) *model.Patient {
	for i := range patients {
		if patients[i].ID == id {
			return &patients[i]
		}
	}
	return nil
}
