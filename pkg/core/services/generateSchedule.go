package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jc96818/sayitschedule-sub003/internal/config"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/rules"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/schedule"
	"github.com/jc96818/sayitschedule-sub003/pkg/proposer"
)

// GenerateScheduleResult contains the generation outcome for one week
type GenerateScheduleResult struct {
	WeekStart         string
	WeekEnd           string
	Sessions          []model.Session
	Rejected          []schedule.Rejected
	Warnings          []schedule.Warning
	UnresolvableRules []rules.Rule
	Stats             ScheduleStats
}

// GenerateScheduleStore defines the database operations needed for generating a schedule
type GenerateScheduleStore interface {
	GetStaff(ctx context.Context) ([]model.Staff, error)
	GetPatients(ctx context.Context) ([]model.Patient, error)
	GetRooms(ctx context.Context) ([]model.Room, error)
	GetRules(ctx context.Context) ([]rules.Rule, error)
	GetUnavailability(ctx context.Context, startDate, endDate string) ([]model.Unavailability, error)
	GetSessions(ctx context.Context, startDate, endDate string) ([]model.Session, error)
	InsertSessions(ctx context.Context, sessions []model.Session) error
}

// GenerateSchedule asks the proposer for a fresh week schedule, validates
// every proposed session, drops the rejects and commits the remainder.
// If dryRun is true, sessions are not saved to the database.
func GenerateSchedule(
	ctx context.Context,
	database GenerateScheduleStore,
	prop proposer.Proposer,
	cfg *config.Config,
	logger *zap.Logger,
	weekStart string,
	dryRun bool,
) (*GenerateScheduleResult, error) {
	logger.Debug("Starting generateSchedule",
		zap.String("week_start", weekStart),
		zap.Bool("dry_run", dryRun))

	weekEnd, err := weekEndDate(weekStart)
	if err != nil {
		return nil, err
	}

	// Step 1: DB queries - fetch entity state for the week in parallel
	logger.Debug("Fetching entities", zap.String("week_end", weekEnd))
	var (
		allStaff       []model.Staff
		patients       []model.Patient
		rooms          []model.Room
		allRules       []rules.Rule
		unavailability []model.Unavailability
		existing       []model.Session
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		allStaff, err = database.GetStaff(groupCtx)
		return err
	})
	group.Go(func() (err error) {
		patients, err = database.GetPatients(groupCtx)
		return err
	})
	group.Go(func() (err error) {
		rooms, err = database.GetRooms(groupCtx)
		return err
	})
	group.Go(func() (err error) {
		allRules, err = database.GetRules(groupCtx)
		return err
	})
	group.Go(func() (err error) {
		unavailability, err = database.GetUnavailability(groupCtx, weekStart, weekEnd)
		return err
	})
	group.Go(func() (err error) {
		existing, err = database.GetSessions(groupCtx, weekStart, weekEnd)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch scheduling entities: %w", err)
	}

	activeStaff := filterActiveStaff(allStaff)
	logger.Debug("Fetched entities",
		zap.Int("active_staff", len(activeStaff)),
		zap.Int("patients", len(patients)),
		zap.Int("rooms", len(rooms)),
		zap.Int("rules", len(allRules)),
		zap.Int("existing_sessions", len(existing)))

	if len(activeStaff) == 0 {
		return nil, fmt.Errorf("no active staff found - add staff before generating a schedule")
	}
	if len(patients) == 0 {
		return nil, fmt.Errorf("no patients found - add patients before generating a schedule")
	}

	// Step 2: Resolve rule mentions against current entities
	resolved, unresolvable := rules.ResolveAll(allRules, ruleEntities(activeStaff, patients, rooms))
	for _, rule := range unresolvable {
		logger.Warn("Rule has unresolvable mentions, excluded from generation",
			zap.String("rule_id", rule.ID),
			zap.String("text", rule.Text))
	}

	// Step 3: Ask the proposer for a candidate week
	closures, err := cfg.ClosureDates(weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to expand closures: %w", err)
	}

	request := proposer.ScheduleRequest{
		WeekStart:     weekStart,
		WeekEnd:       weekEnd,
		BusinessHours: hoursToStrings(cfg.WeeklyBusinessHours()),
		Staff:         convertToStaffSummaries(activeStaff),
		Patients:      convertToPatientSummaries(patients),
		Rooms:         convertToRoomSummaries(rooms),
		Rules:         resolvedRuleTexts(resolved),
	}

	logger.Info("Requesting schedule proposal", zap.String("week_start", weekStart))
	response, err := prop.ProposeSchedule(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("schedule proposal failed: %w", err)
	}
	logger.Info("Received schedule proposal",
		zap.Int("proposed_sessions", len(response.Sessions)),
		zap.Int("proposer_warnings", len(response.Warnings)))

	candidates := make([]model.GeneratedSession, len(response.Sessions))
	for i, proposal := range response.Sessions {
		candidates[i] = proposal.ToModel()
	}

	// Step 4: Validate every proposed session
	outcome := schedule.Validate(schedule.Input{
		Sessions:         candidates,
		Staff:            activeStaff,
		Patients:         patients,
		Rooms:            rooms,
		Unavailability:   unavailability,
		BusinessHours:    cfg.WeeklyBusinessHours(),
		Closures:         closures,
		Rules:            resolved,
		ExistingSessions: existing,
	})

	for _, rejected := range outcome.Rejected {
		logger.Warn("Proposed session rejected",
			zap.String("therapist_id", rejected.Session.TherapistID),
			zap.String("patient_id", rejected.Session.PatientID),
			zap.String("date", rejected.Session.Date),
			zap.Strings("reasons", rejected.Reasons))
	}
	for _, warning := range outcome.Warnings {
		logger.Warn("Schedule warning",
			zap.String("code", warning.Code),
			zap.String("message", warning.Message))
	}

	// Step 5: Commit the validated sessions
	sessions := commitSessions(outcome.Valid)
	if dryRun {
		logger.Info("Dry run mode - sessions not saved")
	} else if len(sessions) > 0 {
		logger.Info("Saving sessions to database", zap.Int("count", len(sessions)))
		if err := database.InsertSessions(ctx, sessions); err != nil {
			return nil, fmt.Errorf("failed to save sessions: %w", err)
		}
		logger.Info("Sessions saved", zap.Int("count", len(sessions)))
	} else {
		logger.Warn("No valid sessions to save")
	}

	return &GenerateScheduleResult{
		WeekStart:         weekStart,
		WeekEnd:           weekEnd,
		Sessions:          sessions,
		Rejected:          outcome.Rejected,
		Warnings:          outcome.Warnings,
		UnresolvableRules: unresolvable,
		Stats:             computeStats(sessions),
	}, nil
}
