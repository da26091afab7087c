package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/services"
)

// GenerateScheduleCmd creates the generateSchedule command
func GenerateScheduleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generateSchedule",
		Short: "Generate a fresh week schedule",
		Long:  "Ask the proposer for a fresh week schedule, validate every session and commit the valid ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			week, _ := cmd.Flags().GetString("week")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			app.Logger.Debug("generateSchedule command",
				zap.String("week", week),
				zap.Bool("dry_run", dryRun))

			result, err := services.GenerateSchedule(app.Ctx, app.Database, app.Proposer, app.Cfg, app.Logger, week, dryRun)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			fmt.Printf("\n📅 Schedule Generation Results\n\n")
			fmt.Printf("Week:       %s to %s\n", result.WeekStart, result.WeekEnd)
			if dryRun {
				fmt.Printf("Mode:       🧪 DRY RUN (not saved)\n")
			} else {
				fmt.Printf("Mode:       ✅ saved to database\n")
			}
			fmt.Printf("Sessions:   %d committed, %d rejected\n", len(result.Sessions), len(result.Rejected))
			fmt.Printf("Patients:   %d scheduled\n", result.Stats.PatientsScheduled)
			fmt.Printf("Therapists: %d used\n\n", result.Stats.TherapistsUsed)

			if len(result.Rejected) > 0 {
				fmt.Printf("❌ Rejected Sessions (%d):\n", len(result.Rejected))
				for _, rejected := range result.Rejected {
					fmt.Printf("  • %s %s-%s patient=%s therapist=%s\n",
						rejected.Session.Date,
						rejected.Session.Slot.StartTime,
						rejected.Session.Slot.EndTime,
						rejected.Session.PatientID,
						rejected.Session.TherapistID)
					for _, reason := range rejected.Reasons {
						fmt.Printf("      - %s\n", reason)
					}
				}
				fmt.Println()
			}

			if len(result.Warnings) > 0 {
				fmt.Printf("⚠️  Warnings (%d):\n", len(result.Warnings))
				for _, warning := range result.Warnings {
					fmt.Printf("  • [%s] %s\n", warning.Code, warning.Message)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().String("week", "", "Week start date (YYYY-MM-DD, a Monday)")
	cmd.Flags().Bool("dry-run", false, "Run without saving to database")
	cmd.MarkFlagRequired("week")

	return cmd
}
