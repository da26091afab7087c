package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ReleaseHoldCmd creates the releaseHold command
func ReleaseHoldCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "releaseHold",
		Short: "Release a slot hold",
		Long:  "Release a previously placed slot hold so the slot becomes bookable again",
		RunE: func(cmd *cobra.Command, args []string) error {
			holdID, _ := cmd.Flags().GetString("id")

			if err := app.Database.ReleaseHold(app.Ctx, holdID); err != nil {
				return fmt.Errorf("failed to release hold: %w", err)
			}

			fmt.Printf("\n🔓 Hold %s released\n", holdID)
			return nil
		},
	}

	cmd.Flags().String("id", "", "Hold ID")
	cmd.MarkFlagRequired("id")

	return cmd
}
