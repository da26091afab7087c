package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/services"
)

// RepairScheduleCmd creates the repairSchedule command
func RepairScheduleCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repairSchedule",
		Short: "Repair constraint violations in a committed week",
		Long:  "Detect constraint violations in a committed week and repair them with governed proposer patches, removing unrepairable sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			week, _ := cmd.Flags().GetString("week")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			app.Logger.Debug("repairSchedule command",
				zap.String("week", week),
				zap.Bool("dry_run", dryRun))

			result, err := services.RepairSchedule(app.Ctx, app.Database, app.Proposer, app.Cfg, app.Logger, week, dryRun)
			if err != nil {
				return fmt.Errorf("repair failed: %w", err)
			}

			fmt.Printf("\n🔧 Schedule Repair Results\n\n")
			fmt.Printf("Week:       %s to %s\n", result.WeekStart, result.WeekEnd)
			if dryRun {
				fmt.Printf("Mode:       🧪 DRY RUN (not saved)\n")
			} else {
				fmt.Printf("Mode:       ✅ saved to database\n")
			}
			fmt.Printf("Violations: %d found\n", len(result.InitialViolations))
			fmt.Printf("Iterations: %d, %d patch ops applied\n", result.Iterations, result.AppliedOps)
			fmt.Printf("Sessions:   %d kept, %d removed\n", len(result.Sessions), len(result.RemovedSessionIDs))
			if result.Resolved {
				fmt.Printf("Status:     ✅ all violations resolved\n\n")
			} else {
				fmt.Printf("Status:     ⚠️  violations remain\n\n")
			}

			if len(result.InitialViolations) > 0 {
				fmt.Printf("Initial violations:\n")
				for _, v := range result.InitialViolations {
					fmt.Printf("  • [%s] %s\n", v.Type, v.Message)
				}
				fmt.Println()
			}

			if len(result.RemovedSessionIDs) > 0 {
				fmt.Printf("Removed session IDs:\n")
				for _, id := range result.RemovedSessionIDs {
					fmt.Printf("  • %s\n", id)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().String("week", "", "Week start date (YYYY-MM-DD)")
	cmd.Flags().Bool("dry-run", false, "Run without saving to database")
	cmd.MarkFlagRequired("week")

	return cmd
}
