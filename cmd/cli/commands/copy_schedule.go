package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/services"
)

// CopyScheduleCmd creates the copySchedule command
func CopyScheduleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copySchedule",
		Short: "Copy a week's schedule to another week",
		Long:  "Copy all sessions from a source week into a target week, repairing or removing sessions that no longer fit",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			app.Logger.Debug("copySchedule command",
				zap.String("from", from),
				zap.String("to", to),
				zap.Bool("dry_run", dryRun))

			result, err := services.CopySchedule(app.Ctx, app.Database, app.Proposer, app.Cfg, app.Logger, from, to, dryRun)
			if err != nil {
				return fmt.Errorf("copy failed: %w", err)
			}

			fmt.Printf("\n📋 Schedule Copy Results\n\n")
			fmt.Printf("Source:   week of %s\n", result.SourceWeekStart)
			fmt.Printf("Target:   week of %s\n", result.TargetWeekStart)
			if dryRun {
				fmt.Printf("Mode:     🧪 DRY RUN (not saved)\n")
			} else {
				fmt.Printf("Mode:     ✅ saved to database\n")
			}
			fmt.Printf("Sessions: %d copied, %d repaired, %d removed\n\n",
				len(result.Sessions), len(result.Repaired), len(result.Removed))

			if len(result.Repaired) > 0 {
				fmt.Printf("🔧 Repaired Sessions (%d):\n", len(result.Repaired))
				for _, s := range result.Repaired {
					fmt.Printf("  • %s %s-%s patient=%s therapist=%s\n",
						s.Date, s.Slot.StartTime, s.Slot.EndTime, s.PatientID, s.TherapistID)
				}
				fmt.Println()
			}

			if len(result.Removed) > 0 {
				fmt.Printf("🗑️  Removed Sessions (%d):\n", len(result.Removed))
				for _, removed := range result.Removed {
					fmt.Printf("  • %s %s-%s patient=%s: %s\n",
						removed.Session.Date,
						removed.Session.Slot.StartTime,
						removed.Session.Slot.EndTime,
						removed.Session.PatientID,
						removed.Note)
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

	cmd.Flags().String("from", "", "Source week start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Target week start date (YYYY-MM-DD)")
	cmd.Flags().Bool("dry-run", false, "Run without saving to database")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}
