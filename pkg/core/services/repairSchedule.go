package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/internal/config"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/availability"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/interval"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/repair"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/rules"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/schedule"
	"github.com/jc96818/sayitschedule-sub003/pkg/proposer"
)

// RepairScheduleResult contains the repair outcome for one week
type RepairScheduleResult struct {
	WeekStart         string
	WeekEnd           string
	InitialViolations []repair.Violation
	Iterations        int
	AppliedOps        int
	Sessions          []model.Session
	RemovedSessionIDs []string
	Resolved          bool
}

// RepairScheduleStore defines the database operations needed for repairing a schedule
type RepairScheduleStore interface {
	GetStaff(ctx context.Context) ([]model.Staff, error)
	GetPatients(ctx context.Context) ([]model.Patient, error)
	GetRooms(ctx context.Context) ([]model.Room, error)
	GetRules(ctx context.Context) ([]rules.Rule, error)
	GetUnavailability(ctx context.Context, startDate, endDate string) ([]model.Unavailability, error)
	GetSessions(ctx context.Context, startDate, endDate string) ([]model.Session, error)
	ReplaceSessions(ctx context.Context, startDate, endDate string, sessions []model.Session) error
}

// repairContext bundles the fixed state one repair run works against
type repairContext struct {
	cfg            *config.Config
	staff          []model.Staff
	patients       []model.Patient
	rooms          []model.Room
	resolved       []rules.ResolvedRule
	unavailability []model.Unavailability
	closures       map[string]bool
	weekStart      string
	weekEnd        string
	grid           []repair.SlotDef
	slotByID       map[string]repair.SlotDef
}

// RepairSchedule detects violations in a committed week and asks the
// proposer for bounded patches to fix them, validating every patch with
// the governor and re-validating the edited schedule before accepting it.
// Sessions still violating after the iteration budget are removed. If
// dryRun is true, the repaired week is not saved to the database.
func RepairSchedule(
	ctx context.Context,
	database RepairScheduleStore,
	prop proposer.Proposer,
	cfg *config.Config,
	logger *zap.Logger,
	weekStart string,
	dryRun bool,
) (*RepairScheduleResult, error) {
	logger.Debug("Starting repairSchedule",
		zap.String("week_start", weekStart),
		zap.Bool("dry_run", dryRun))

	weekEnd, err := weekEndDate(weekStart)
	if err != nil {
		return nil, err
	}

	// Step 1: DB queries - fetch entities and the committed week
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
	unavailability, err := database.GetUnavailability(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unavailability: %w", err)
	}
	weekSessions, err := database.GetSessions(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}

	activeStaff := filterActiveStaff(allStaff)
	current := make([]model.Session, 0, len(weekSessions))
	for _, s := range weekSessions {
		if s.Status != model.SessionCancelled {
			current = append(current, s)
		}
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("no sessions found in week %s - nothing to repair", weekStart)
	}

	resolved, unresolvable := rules.ResolveAll(allRules, ruleEntities(activeStaff, patients, rooms))
	for _, rule := range unresolvable {
		logger.Warn("Rule has unresolvable mentions, excluded from repair",
			zap.String("rule_id", rule.ID))
	}

	closures, err := cfg.ClosureDates(weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to expand closures: %w", err)
	}

	rc := &repairContext{
		cfg:            cfg,
		staff:          activeStaff,
		patients:       patients,
		rooms:          rooms,
		resolved:       resolved,
		unavailability: unavailability,
		closures:       closures,
		weekStart:      weekStart,
		weekEnd:        weekEnd,
	}
	if err := rc.buildSlotGrid(current); err != nil {
		return nil, err
	}

	// Step 2: Detect violations in the committed week
	violations := rc.detectViolations(current)
	result := &RepairScheduleResult{
		WeekStart:         weekStart,
		WeekEnd:           weekEnd,
		InitialViolations: violations,
	}
	if len(violations) == 0 {
		logger.Info("No violations found, week is clean")
		result.Sessions = current
		result.Resolved = true
		return result, nil
	}
	logger.Info("Detected violations", zap.Int("count", len(violations)))
	for _, violation := range violations {
		logger.Warn("Violation",
			zap.String("type", violation.Type),
			zap.Int("severity", violation.Severity),
			zap.String("message", violation.Message))
	}

	// Step 3: Iterate proposer patches under the governor
	resolvedAll := false
	for iteration := 1; iteration <= cfg.Repair.MaxIterations; iteration++ {
		result.Iterations = iteration

		request := repair.Request{
			Meta:        repair.NewMeta(repair.ModeWeekRepair, cfg.Timezone, iteration, cfg.Repair.MaxPatchOps),
			Slots:       rc.grid,
			Schedule:    repair.Schedule{Sessions: rc.toRepairSessions(current)},
			Violations:  violations,
			Rules:       rc.repairRules(),
			SearchSpace: rc.buildSearchSpace(current, violations),
			Objective: repair.Objective{
				Primary:      "resolve_all_violations",
				ScoringHints: []string{"prefer_moves_over_deletes", "minimize_ops"},
			},
		}

		logger.Info("Requesting repair patch",
			zap.Int("iteration", iteration),
			zap.String("request_id", request.Meta.RequestID))
		response, err := prop.ProposePatch(ctx, request)
		if errors.Is(err, proposer.ErrNotConfigured) {
			logger.Warn("No proposer configured, falling back to removal")
			break
		}
		if err != nil {
			logger.Warn("Patch proposal failed, falling back to removal", zap.Error(err))
			break
		}

		verdict := repair.ValidatePatch(request, response.Patch)
		if !verdict.OK {
			for _, governorError := range verdict.Errors {
				logger.Warn("Patch rejected by governor", zap.String("error", governorError))
			}
			continue
		}

		edited, err := repair.ApplyPatch(request.Schedule.Sessions, response.Patch)
		if err != nil {
			logger.Warn("Patch could not be applied", zap.Error(err))
			continue
		}
		candidate, err := rc.fromRepairSessions(edited, current)
		if err != nil {
			logger.Warn("Patch references unknown slots", zap.Error(err))
			continue
		}

		// A patch is only accepted when the edited week has strictly
		// fewer violations; a clean week ends the loop
		newViolations := rc.detectViolations(candidate)
		if len(newViolations) >= len(violations) {
			logger.Warn("Patch did not reduce violations, discarding",
				zap.Int("before", len(violations)),
				zap.Int("after", len(newViolations)))
			continue
		}

		logger.Info("Patch accepted",
			zap.Int("ops", len(response.Patch)),
			zap.Int("violations_before", len(violations)),
			zap.Int("violations_after", len(newViolations)))
		current = candidate
		violations = newViolations
		result.AppliedOps += len(response.Patch)

		if len(violations) == 0 {
			resolvedAll = true
			break
		}
	}

	// Step 4: Deterministic fallback - remove sessions still in violation
	if !resolvedAll && len(violations) > 0 {
		removing := make(map[string]bool)
		for _, violation := range violations {
			if violation.Severity != repair.SeverityCritical {
				continue
			}
			for _, sid := range violation.SessionIDs {
				removing[sid] = true
			}
		}

		kept := make([]model.Session, 0, len(current))
		for _, s := range current {
			if removing[s.ID] {
				logger.Warn("Removing session still in violation", zap.String("session_id", s.ID))
				result.RemovedSessionIDs = append(result.RemovedSessionIDs, s.ID)
				continue
			}
			kept = append(kept, s)
		}
		current = kept
		resolvedAll = len(rc.detectViolations(current)) == 0
	}

	// Step 5: Persist the repaired week
	if dryRun {
		logger.Info("Dry run mode - repaired week not saved")
	} else {
		logger.Info("Saving repaired week", zap.Int("sessions", len(current)))
		if err := database.ReplaceSessions(ctx, weekStart, weekEnd, current); err != nil {
			return nil, fmt.Errorf("failed to save repaired week: %w", err)
		}
	}

	result.Sessions = current
	result.Resolved = resolvedAll
	return result, nil
}

// buildSlotGrid slices every open business day of the week into
// non-overlapping slot buckets, then adds ad hoc buckets for sessions
// that sit off-grid so every committed session has a slot id
func (rc *repairContext) buildSlotGrid(current []model.Session) error {
	dates, err := model.DatesBetween(rc.weekStart, rc.weekEnd)
	if err != nil {
		return fmt.Errorf("invalid week range: %w", err)
	}

	rc.slotByID = make(map[string]repair.SlotDef)
	business := rc.cfg.WeeklyBusinessHours()
	duration := rc.cfg.Scheduling.SlotDurationMinutes

	for _, date := range dates {
		if rc.closures[date] {
			continue
		}
		dayName, err := model.DayName(date)
		if err != nil {
			return err
		}
		daySlot, open := business[dayName]
		if !open {
			continue
		}
		day, err := interval.ParseRange(daySlot.StartTime, daySlot.EndTime)
		if err != nil {
			return fmt.Errorf("invalid business hours for %s: %w", dayName, err)
		}
		for _, r := range interval.SliceIntoSlots([]interval.Range{day}, duration, duration) {
			rc.addSlot(date, interval.FormatClock(r.Start), interval.FormatClock(r.End))
		}
	}

	for _, s := range current {
		rc.addSlot(s.Date, s.Slot.StartTime, s.Slot.EndTime)
	}
	return nil
}

func (rc *repairContext) addSlot(date, start, end string) {
	id := repair.SlotID(date, start, end)
	if _, exists := rc.slotByID[id]; exists {
		return
	}
	def := repair.SlotDef{ID: id, Day: date, Start: start, End: end}
	rc.slotByID[id] = def
	rc.grid = append(rc.grid, def)
}

// toRepairSessions expresses committed sessions in slot terms
func (rc *repairContext) toRepairSessions(current []model.Session) []repair.Session {
	sessions := make([]repair.Session, len(current))
	for i, s := range current {
		sessions[i] = repair.Session{
			SID:           s.ID,
			TherapistID:   s.TherapistID,
			PatientID:     s.PatientID,
			SessionSpecID: s.SessionSpecID,
			RoomID:        s.RoomID,
			SlotID:        repair.SlotID(s.Date, s.Slot.StartTime, s.Slot.EndTime),
		}
	}
	return sessions
}

// fromRepairSessions converts an edited repair schedule back to committed
// sessions, resolving slot ids and carrying status and notes over from the
// pre-edit session when it survives
func (rc *repairContext) fromRepairSessions(edited []repair.Session, before []model.Session) ([]model.Session, error) {
	beforeByID := make(map[string]model.Session, len(before))
	for _, s := range before {
		beforeByID[s.ID] = s
	}

	sessions := make([]model.Session, len(edited))
	for i, e := range edited {
		def, ok := rc.slotByID[e.SlotID]
		if !ok {
			return nil, fmt.Errorf("unknown slot id %q on session %s", e.SlotID, e.SID)
		}

		converted := model.Session{
			ID:            e.SID,
			TherapistID:   e.TherapistID,
			PatientID:     e.PatientID,
			SessionSpecID: e.SessionSpecID,
			RoomID:        e.RoomID,
			Date:          def.Day,
			Slot:          model.TimeSlot{StartTime: def.Start, EndTime: def.End},
			Status:        model.SessionScheduled,
		}
		if prior, existed := beforeByID[e.SID]; existed {
			converted.Status = prior.Status
			converted.Notes = prior.Notes
		}
		sessions[i] = converted
	}
	return sessions, nil
}

// detectViolations validates each session against the rest of the week
// and reports hard failures as critical violations, plus coverage
// shortfalls as minor ones
func (rc *repairContext) detectViolations(current []model.Session) []repair.Violation {
	var violations []repair.Violation

	for i, s := range current {
		others := make([]model.Session, 0, len(current)-1)
		others = append(others, current[:i]...)
		others = append(others, current[i+1:]...)

		outcome := schedule.Validate(schedule.Input{
			Sessions:         sessionsToGenerated([]model.Session{s}),
			Staff:            rc.staff,
			Patients:         rc.patients,
			Rooms:            rc.rooms,
			Unavailability:   rc.unavailability,
			BusinessHours:    rc.cfg.WeeklyBusinessHours(),
			Closures:         rc.closures,
			Rules:            rc.resolved,
			ExistingSessions: others,
		})
		for _, rejected := range outcome.Rejected {
			violations = append(violations, repair.Violation{
				Type:       "hard_constraint",
				Severity:   repair.SeverityCritical,
				Message:    strings.Join(rejected.Reasons, "; "),
				SessionIDs: []string{s.ID},
			})
		}
	}

	violations = append(violations, rc.coverageViolations(current)...)
	return violations
}

// coverageViolations reports patients scheduled below their weekly target
func (rc *repairContext) coverageViolations(current []model.Session) []repair.Violation {
	counts := make(map[string]int)
	for _, s := range current {
		counts[s.PatientID+"/"+s.SessionSpecID]++
	}

	var violations []repair.Violation
	for _, patient := range rc.patients {
		for _, spec := range patient.SessionSpecs {
			if spec.SessionsPerWeek <= 0 {
				continue
			}
			scheduled := counts[patient.ID+"/"+spec.ID]
			if scheduled >= spec.SessionsPerWeek {
				continue
			}
			violations = append(violations, repair.Violation{
				Type:     "coverage_shortfall",
				Severity: repair.SeverityMinor,
				Message: fmt.Sprintf("%s scheduled %d of %d weekly sessions for %s",
					patient.Name(), scheduled, spec.SessionsPerWeek, spec.Name),
				EntityID: patient.ID,
			})
		}
	}
	return violations
}

// buildSearchSpace enumerates the legal moves: violating sessions become
// movable with availability-derived destination sets, everything else is
// locked, and coverage shortfalls become addable requirements
func (rc *repairContext) buildSearchSpace(current []model.Session, violations []repair.Violation) repair.SearchSpace {
	violating := make(map[string]bool)
	for _, violation := range violations {
		for _, sid := range violation.SessionIDs {
			violating[sid] = true
		}
	}

	space := repair.SearchSpace{}
	for _, s := range current {
		if !violating[s.ID] {
			space.MovableSessions = append(space.MovableSessions, repair.MovableSession{SID: s.ID, Lock: true})
			continue
		}

		spec := rc.findSpec(s.PatientID, s.SessionSpecID)
		qualified := rc.qualifiedStaff(spec)
		space.MovableSessions = append(space.MovableSessions, repair.MovableSession{
			SID:             s.ID,
			AllowedSlotIDs:  rc.freeSlotIDs(current, qualified, s.PatientID, s.ID),
			AllowedStaffIDs: qualified,
			AllowedRoomIDs:  rc.capableRooms(spec),
		})
	}

	for _, violation := range violations {
		if violation.Type != "coverage_shortfall" {
			continue
		}
		patient := findPatient(rc.patients, violation.EntityID)
		if patient == nil {
			continue
		}
		for _, spec := range patient.SessionSpecs {
			counts := 0
			for _, s := range current {
				if s.PatientID == patient.ID && s.SessionSpecID == spec.ID {
					counts++
				}
			}
			missing := spec.SessionsPerWeek - counts
			if missing <= 0 {
				continue
			}
			qualified := rc.qualifiedStaff(&spec)
			space.AddableRequirements = append(space.AddableRequirements, repair.AddableRequirement{
				ID:              "need_" + patient.ID + "_" + spec.ID,
				PatientID:       patient.ID,
				SessionSpecID:   spec.ID,
				MissingCount:    missing,
				AllowedSlotIDs:  rc.freeSlotIDs(current, qualified, patient.ID, ""),
				AllowedStaffIDs: qualified,
				AllowedRoomIDs:  rc.capableRooms(&spec),
			})
		}
	}

	return space
}

// freeSlotIDs returns the grid slot ids where at least one of the given
// staff is free, excluding the session being moved from the blocking set
func (rc *repairContext) freeSlotIDs(current []model.Session, staffIDs []string, patientID, excludeSessionID string) []string {
	if len(staffIDs) == 0 {
		return nil
	}

	blocking := make([]model.Session, 0, len(current))
	for _, s := range current {
		if s.ID != excludeSessionID {
			blocking = append(blocking, s)
		}
	}

	free, err := availability.Compute(availability.Snapshot{
		BusinessHours:  rc.cfg.WeeklyBusinessHours(),
		Closures:       rc.closures,
		Staff:          rc.staff,
		Unavailability: rc.unavailability,
		Sessions:       blocking,
		Now:            time.Now(),
	}, availability.Query{
		StaffIDs:        staffIDs,
		StartDate:       rc.weekStart,
		EndDate:         rc.weekEnd,
		DurationMinutes: rc.cfg.Scheduling.SlotDurationMinutes,
		StepMinutes:     rc.cfg.Scheduling.SlotDurationMinutes,
		ForPatientID:    patientID,
	})
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var ids []string
	for _, slot := range free.Slots {
		id := repair.SlotID(slot.Date, slot.Slot.StartTime, slot.Slot.EndTime)
		if seen[id] {
			continue
		}
		if _, onGrid := rc.slotByID[id]; !onGrid {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func (rc *repairContext) findSpec(patientID, specID string) *model.SessionSpec {
	patient := findPatient(rc.patients, patientID)
	if patient == nil {
		return nil
	}
	return patient.Spec(specID)
}

// qualifiedStaff lists staff holding the spec's required certifications
func (rc *repairContext) qualifiedStaff(spec *model.SessionSpec) []string {
	var required []string
	if spec != nil {
		required = spec.RequiredCertifications
	}
	var ids []string
	for _, member := range rc.staff {
		if member.HasCertifications(required) {
			ids = append(ids, member.ID)
		}
	}
	return ids
}

// capableRooms lists rooms providing the spec's required capabilities
func (rc *repairContext) capableRooms(spec *model.SessionSpec) []string {
	var required []string
	if spec != nil {
		required = spec.RequiredRoomCapabilities
	}
	var ids []string
	for _, room := range rc.rooms {
		if room.HasCapabilities(required) {
			ids = append(ids, room.ID)
		}
	}
	return ids
}

// repairRules renders the resolved rules for the proposer payload
func (rc *repairContext) repairRules() []repair.Rule {
	rendered := make([]repair.Rule, len(rc.resolved))
	for i, rule := range rc.resolved {
		rendered[i] = repair.Rule{ID: rule.ID, Text: rule.Text}
	}
	return rendered
}
