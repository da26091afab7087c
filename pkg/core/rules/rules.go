// Package rules models free-form scheduling rules whose text mentions
// entities by name. Every mention is an explicit Unbound/Bound variant;
// rule text may only be rendered into proposer prompts once all mentions
// are bound, so the proposer never sees unresolved names.
package rules

import "strings"

type EntityType string

const (
	EntityStaff   EntityType = "staff"
	EntityPatient EntityType = "patient"
	EntityRoom    EntityType = "room"
)

type RuleKind string

const (
	// KindGenderPairing requires same-gender staff/patient pairing for the
	// patients the rule is bound to (all patients when unbound to any)
	KindGenderPairing RuleKind = "gender_pairing"

	// KindCustom carries free-form guidance forwarded to the proposer
	KindCustom RuleKind = "custom"
)

// Mention is a single entity reference inside rule text. It is either
// Unbound (raw text awaiting resolution) or Bound (resolved to an entity).
type Mention interface {
	mentionText() string
}

// Unbound is a mention that has not been resolved to an entity yet
type Unbound struct {
	Text string
}

func (u Unbound) mentionText() string { return u.Text }

// Bound is a mention resolved to a concrete entity
type Bound struct {
	Text       string
	EntityID   string
	EntityType EntityType
}

func (b Bound) mentionText() string { return b.Text }

// Rule is a scheduling rule as authored: free text plus its mentions
type Rule struct {
	ID       string
	Kind     RuleKind
	Text     string
	Mentions []Mention
}

// ResolvedRule is a rule whose every mention is bound. Only resolved
// rules participate in validation or proposer prompts.
type ResolvedRule struct {
	ID       string
	Kind     RuleKind
	Text     string
	Bindings []Bound
}

// BoundPatientIDs returns the patient ids the rule is bound to
func (r ResolvedRule) BoundPatientIDs() []string {
	var ids []string
	for _, b := range r.Bindings {
		if b.EntityType == EntityPatient {
			ids = append(ids, b.EntityID)
		}
	}
	return ids
}

// AppliesToPatient reports whether the rule constrains the given patient.
// A rule bound to no patients applies to all of them.
func (r ResolvedRule) AppliesToPatient(patientID string) bool {
	bound := r.BoundPatientIDs()
	if len(bound) == 0 {
		return true
	}
	for _, id := range bound {
		if id == patientID {
			return true
		}
	}
	return false
}

// Entities is the name snapshot mentions are resolved against
type Entities struct {
	Staff    []NamedEntity
	Patients []NamedEntity
	Rooms    []NamedEntity
}

// NamedEntity pairs an entity id with its display name
type NamedEntity struct {
	ID   string
	Name string
}

// Resolve binds every mention of the rule against the entity snapshot.
// The second return lists mentions that could not be bound; the rule is
// resolved only when that list is empty.
func Resolve(rule Rule, entities Entities) (ResolvedRule, []Unbound) {
	resolved := ResolvedRule{ID: rule.ID, Kind: rule.Kind, Text: rule.Text}

	var unresolved []Unbound
	for _, m := range rule.Mentions {
		switch m := m.(type) {
		case Bound:
			// Already bound mentions pass through untouched
			resolved.Bindings = append(resolved.Bindings, m)
		case Unbound:
			b, ok := bindMention(m, entities)
			if !ok {
				unresolved = append(unresolved, m)
				continue
			}
			resolved.Bindings = append(resolved.Bindings, b)
		}
	}

	if len(unresolved) > 0 {
		return ResolvedRule{}, unresolved
	}
	return resolved, nil
}

// ResolveAll resolves every rule, partitioning into resolved rules and
// rules that still carry unbound mentions
func ResolveAll(allRules []Rule, entities Entities) (resolved []ResolvedRule, unresolvable []Rule) {
	for _, rule := range allRules {
		r, unbound := Resolve(rule, entities)
		if len(unbound) > 0 {
			unresolvable = append(unresolvable, rule)
			continue
		}
		resolved = append(resolved, r)
	}
	return resolved, unresolvable
}

// bindMention matches a mention against the snapshot, preferring an exact
// case-insensitive name match and falling back to a unique substring
// match. Ambiguous mentions stay unbound.
func bindMention(m Unbound, entities Entities) (Bound, bool) {
	needle := normalize(m.Text)
	if needle == "" {
		return Bound{}, false
	}

	sets := []struct {
		entityType EntityType
		entries    []NamedEntity
	}{
		{EntityStaff, entities.Staff},
		{EntityPatient, entities.Patients},
		{EntityRoom, entities.Rooms},
	}

	for _, set := range sets {
		for _, e := range set.entries {
			if normalize(e.Name) == needle {
				return Bound{Text: m.Text, EntityID: e.ID, EntityType: set.entityType}, true
			}
		}
	}

	// Substring fallback, accepted only when unambiguous across all sets
	var match Bound
	matches := 0
	for _, set := range sets {
		for _, e := range set.entries {
			if strings.Contains(normalize(e.Name), needle) {
				match = Bound{Text: m.Text, EntityID: e.ID, EntityType: set.entityType}
				matches++
			}
		}
	}
	if matches == 1 {
		return match, true
	}
	return Bound{}, false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
