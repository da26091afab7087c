package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/rules"
)

// ResolveRulesCmd creates the resolveRules command
func ResolveRulesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolveRules",
		Short: "Bind rule mentions to entities",
		Long:  "Resolve free-text entity mentions in scheduling rules against current staff, patients and rooms, and persist the bindings",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			allRules, err := app.Database.GetRules(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch rules: %w", err)
			}
			staff, err := app.Database.GetStaff(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch staff: %w", err)
			}
			patients, err := app.Database.GetPatients(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch patients: %w", err)
			}
			rooms, err := app.Database.GetRooms(app.Ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch rooms: %w", err)
			}

			entities := rules.Entities{}
			for _, s := range staff {
				entities.Staff = append(entities.Staff, rules.NamedEntity{ID: s.ID, Name: s.Name()})
			}
			for _, p := range patients {
				entities.Patients = append(entities.Patients, rules.NamedEntity{ID: p.ID, Name: p.Name()})
			}
			for _, r := range rooms {
				entities.Rooms = append(entities.Rooms, rules.NamedEntity{ID: r.ID, Name: r.Name})
			}

			resolved, unresolvable := rules.ResolveAll(allRules, entities)
			app.Logger.Debug("rules resolved",
				zap.Int("resolved", len(resolved)),
				zap.Int("unresolvable", len(unresolvable)))

			if !dryRun {
				for _, rule := range resolved {
					if err := app.Database.UpdateRuleMentions(app.Ctx, rule.ID, rule.Bindings); err != nil {
						return fmt.Errorf("failed to save bindings for rule %s: %w", rule.ID, err)
					}
				}
			}

			fmt.Printf("\n📏 Rule Resolution Results\n\n")
			fmt.Printf("Resolved: %d of %d rules\n\n", len(resolved), len(allRules))
			for _, rule := range resolved {
				fmt.Printf("  ✅ %s: %q\n", rule.ID, rule.Text)
				for _, b := range rule.Bindings {
					fmt.Printf("      %q → %s %s\n", b.Text, b.EntityType, b.EntityID)
				}
			}
			if len(unresolvable) > 0 {
				fmt.Printf("\n❌ Unresolvable Rules (%d):\n", len(unresolvable))
				for _, rule := range unresolvable {
					fmt.Printf("  • %s: %q\n", rule.ID, rule.Text)
				}
				fmt.Println("\nFix entity names or rule text, then re-run.")
			}

			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Resolve without saving bindings")

	return cmd
}
