package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/availability"
)

// AvailabilityCmd creates the availability command
func AvailabilityCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "List bookable slots for staff",
		Long:  "Compute bookable slots for the given staff and date range from business hours, working hours, overrides, sessions and holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			staffIDs, _ := cmd.Flags().GetStringSlice("staff")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			duration, _ := cmd.Flags().GetInt("duration")
			step, _ := cmd.Flags().GetInt("step")
			patientID, _ := cmd.Flags().GetString("patient")

			if duration == 0 {
				duration = app.Cfg.Scheduling.SlotDurationMinutes
			}
			if step == 0 {
				step = app.Cfg.Scheduling.SlotStepMinutes
			}

			app.Logger.Debug("availability command",
				zap.Strings("staff_ids", staffIDs),
				zap.String("from", from),
				zap.String("to", to),
				zap.Int("duration_minutes", duration),
				zap.Int("step_minutes", step))

			snap, err := loadSnapshot(app, from, to)
			if err != nil {
				return err
			}

			result, err := availability.Compute(*snap, availability.Query{
				StaffIDs:        staffIDs,
				StartDate:       from,
				EndDate:         to,
				DurationMinutes: duration,
				StepMinutes:     step,
				ForPatientID:    patientID,
			})
			if err != nil {
				return fmt.Errorf("availability computation failed: %w", err)
			}

			fmt.Printf("\n🕐 Available Slots (%s to %s, %dmin)\n\n", from, to, duration)
			if len(result.Slots) == 0 {
				fmt.Println("No available slots found.")
				return nil
			}

			currentDate := ""
			for _, slot := range result.Slots {
				if slot.Date != currentDate {
					currentDate = slot.Date
					fmt.Printf("%s:\n", currentDate)
				}
				fmt.Printf("  %s-%s  %s\n", slot.Slot.StartTime, slot.Slot.EndTime, slot.StaffName)
			}
			fmt.Printf("\n%d slots total\n", len(result.Slots))

			return nil
		},
	}

	cmd.Flags().StringSlice("staff", nil, "Staff IDs to query (default: all staff)")
	cmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "End date (YYYY-MM-DD)")
	cmd.Flags().Int("duration", 0, "Slot duration in minutes (default: configured slot duration)")
	cmd.Flags().Int("step", 0, "Slot step in minutes (default: configured slot step)")
	cmd.Flags().String("patient", "", "Also exclude slots conflicting with this patient's sessions")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

// loadSnapshot fetches the entity state availability is computed against
func loadSnapshot(app *AppContext, startDate, endDate string) (*availability.Snapshot, error) {
	staff, err := app.Database.GetStaff(app.Ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staff: %w", err)
	}
	unavailability, err := app.Database.GetUnavailability(app.Ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unavailability: %w", err)
	}
	sessions, err := app.Database.GetSessions(app.Ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	holds, err := app.Database.GetHolds(app.Ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holds: %w", err)
	}
	closures, err := app.Cfg.ClosureDates(startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to expand closures: %w", err)
	}

	return &availability.Snapshot{
		BusinessHours:  app.Cfg.WeeklyBusinessHours(),
		Closures:       closures,
		Staff:          staff,
		Unavailability: unavailability,
		Sessions:       sessions,
		Holds:          holds,
		Now:            time.Now(),
	}, nil
}
