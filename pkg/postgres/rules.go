package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/rules"
)

// mentionRecord is the JSONB form of one rule mention. An empty entityId
// means the mention has not been bound to an entity yet.
type mentionRecord struct {
	Text       string `json:"text"`
	EntityID   string `json:"entityId,omitempty"`
	EntityType string `json:"entityType,omitempty"`
}

// GetRules retrieves all scheduling rules with their mentions
func (d *DB) GetRules(ctx context.Context) ([]rules.Rule, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, kind, text, mentions
		FROM rules
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var allRules []rules.Rule
	for rows.Next() {
		var rule rules.Rule
		var kind string
		var mentions []byte
		if err := rows.Scan(&rule.ID, &kind, &rule.Text, &mentions); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rule.Kind = rules.RuleKind(kind)

		if len(mentions) > 0 {
			var records []mentionRecord
			if err := json.Unmarshal(mentions, &records); err != nil {
				return nil, fmt.Errorf("invalid mentions on rule %s: %w", rule.ID, err)
			}
			for _, record := range records {
				if record.EntityID == "" {
					rule.Mentions = append(rule.Mentions, rules.Unbound{Text: record.Text})
					continue
				}
				rule.Mentions = append(rule.Mentions, rules.Bound{
					Text:       record.Text,
					EntityID:   record.EntityID,
					EntityType: rules.EntityType(record.EntityType),
				})
			}
		}

		allRules = append(allRules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return allRules, nil
}

// UpdateRuleMentions persists resolved bindings back onto a rule
func (d *DB) UpdateRuleMentions(ctx context.Context, ruleID string, bindings []rules.Bound) error {
	records := make([]mentionRecord, len(bindings))
	for i, binding := range bindings {
		records[i] = mentionRecord{
			Text:       binding.Text,
			EntityID:   binding.EntityID,
			EntityType: string(binding.EntityType),
		}
	}

	mentions, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal mentions: %w", err)
	}

	_, err = d.pool.Exec(ctx, `
		UPDATE rules SET mentions = $2 WHERE id = $1
	`, ruleID, mentions)
	if err != nil {
		return fmt.Errorf("failed to update rule mentions: %w", err)
	}
	return nil
}
