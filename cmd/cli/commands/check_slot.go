package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/availability"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
)

// CheckSlotCmd creates the checkSlot command
func CheckSlotCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkSlot",
		Short: "Check whether a specific slot is bookable",
		Long:  "Check whether one staff time slot is bookable and optionally place a temporary hold on it",
		RunE: func(cmd *cobra.Command, args []string) error {
			staffID, _ := cmd.Flags().GetString("staff")
			date, _ := cmd.Flags().GetString("date")
			start, _ := cmd.Flags().GetString("start")
			end, _ := cmd.Flags().GetString("end")
			placeHold, _ := cmd.Flags().GetBool("hold")

			app.Logger.Debug("checkSlot command",
				zap.String("staff_id", staffID),
				zap.String("date", date),
				zap.String("start", start),
				zap.String("end", end),
				zap.Bool("hold", placeHold))

			snap, err := loadSnapshot(app, date, date)
			if err != nil {
				return err
			}

			slot := model.TimeSlot{StartTime: start, EndTime: end}
			check, err := availability.IsSlotAvailable(*snap, staffID, date, slot)
			if err != nil {
				return fmt.Errorf("slot check failed: %w", err)
			}

			if !check.Available {
				fmt.Printf("\n❌ Slot %s %s-%s is not available: %s\n", date, start, end, check.Reason)
				return nil
			}

			fmt.Printf("\n✅ Slot %s %s-%s is available for staff %s\n", date, start, end, staffID)

			if placeHold {
				expiryMinutes := app.Cfg.Scheduling.HoldExpiryMinutes
				if expiryMinutes <= 0 {
					expiryMinutes = 30
				}
				hold := model.Hold{
					ID:        uuid.New().String(),
					StaffID:   staffID,
					Date:      date,
					Slot:      slot,
					ExpiresAt: time.Now().Add(time.Duration(expiryMinutes) * time.Minute).UTC().Format(time.RFC3339),
				}
				if err := app.Database.InsertHold(app.Ctx, hold); err != nil {
					return fmt.Errorf("failed to place hold: %w", err)
				}
				fmt.Printf("🔒 Hold %s placed, expires %s\n", hold.ID, hold.ExpiresAt)
			}

			return nil
		},
	}

	cmd.Flags().String("staff", "", "Staff ID")
	cmd.Flags().String("date", "", "Date (YYYY-MM-DD)")
	cmd.Flags().String("start", "", "Slot start time (HH:mm)")
	cmd.Flags().String("end", "", "Slot end time (HH:mm)")
	cmd.Flags().Bool("hold", false, "Place a temporary hold on the slot if available")
	cmd.MarkFlagRequired("staff")
	cmd.MarkFlagRequired("date")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}
