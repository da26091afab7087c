// Package repair defines the request/response contract for incremental
// AI-proposed schedule edits and the governor that validates proposed
// patches against an explicitly enumerated search space. The proposer is
// untrusted: nothing it returns is applied without passing the governor.
package repair

// SlotDef is a named, reusable time bucket the repair protocol speaks in
type SlotDef struct {
	ID    string `json:"id"`
	Day   string `json:"day"` // "2006-01-02"
	Start string `json:"start"`
	End   string `json:"end"`
}

// Session is one committed session expressed in slot terms
type Session struct {
	SID           string `json:"sid"`
	TherapistID   string `json:"therapistId"`
	PatientID     string `json:"patientId"`
	SessionSpecID string `json:"sessionSpecId"`
	RoomID        string `json:"roomId,omitempty"`
	SlotID        string `json:"slotId"`
}

// Violation severities, highest first
const (
	SeverityCritical = 1
	SeverityMajor    = 2
	SeverityMinor    = 3
)

// Violation is a detected schedule problem the proposer is asked to fix.
// Violations are computed deterministically upstream; the governor never
// decides what is wrong.
type Violation struct {
	Type       string   `json:"type"`
	Severity   int      `json:"severity"`
	Message    string   `json:"message"`
	SessionIDs []string `json:"sessionIds,omitempty"`
	RuleID     string   `json:"ruleId,omitempty"`
	EntityID   string   `json:"entityId,omitempty"`
}

// Rule is a resolved scheduling rule rendered for the proposer
type Rule struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MovableSession enumerates the only legal destinations for one session.
// A locked session must not be touched by any patch op.
type MovableSession struct {
	SID             string   `json:"sid"`
	AllowedSlotIDs  []string `json:"allowedSlotIds"`
	AllowedStaffIDs []string `json:"allowedStaffIds"`
	AllowedRoomIDs  []string `json:"allowedRoomIds"`
	Lock            bool     `json:"lock"`
}

// AddableRequirement is a currently-unmet requirement the proposer may
// schedule, with its own allowed destination sets
type AddableRequirement struct {
	ID              string   `json:"id"`
	PatientID       string   `json:"patientId"`
	SessionSpecID   string   `json:"sessionSpecId"`
	MissingCount    int      `json:"missingCount"`
	AllowedSlotIDs  []string `json:"allowedSlotIds"`
	AllowedStaffIDs []string `json:"allowedStaffIds"`
	AllowedRoomIDs  []string `json:"allowedRoomIds"`
}

// SearchSpace is the complete enumeration of legal moves
type SearchSpace struct {
	MovableSessions     []MovableSession     `json:"movableSessions"`
	AddableRequirements []AddableRequirement `json:"addableRequirements"`
}

// Meta identifies one repair exchange
type Meta struct {
	RequestID   string `json:"requestId"`
	Mode        string `json:"mode"`
	Timezone    string `json:"timezone"`
	Iteration   int    `json:"iteration"`
	MaxPatchOps int    `json:"maxPatchOps"`
}

// Objective tells the proposer what to optimize for; it carries no
// authority over validation
type Objective struct {
	Primary      string   `json:"primary"`
	ScoringHints []string `json:"scoringHints,omitempty"`
}

// Schedule wraps the committed sessions
type Schedule struct {
	Sessions []Session `json:"sessions"`
}

// Request is the full repair request sent to the proposer
type Request struct {
	Meta        Meta        `json:"meta"`
	Slots       []SlotDef   `json:"slots"`
	Schedule    Schedule    `json:"schedule"`
	Violations  []Violation `json:"violations"`
	Rules       []Rule      `json:"rules"`
	SearchSpace SearchSpace `json:"searchSpace"`
	Objective   Objective   `json:"objective"`
}

// Patch op types
const (
	OpMove   = "move"
	OpSwap   = "swap"
	OpDelete = "delete"
	OpAdd    = "add"
)

// PatchOp is one proposed edit. Every id it references must come from the
// request's search space, and Because is a mandatory human-readable
// justification used for audit, never for logic.
type PatchOp struct {
	Op            string `json:"op"`
	SID           string `json:"sid,omitempty"`
	WithSID       string `json:"withSid,omitempty"`
	RequirementID string `json:"requirementId,omitempty"`
	PatientID     string `json:"patientId,omitempty"`
	SessionSpecID string `json:"sessionSpecId,omitempty"`
	SlotID        string `json:"slotId,omitempty"`
	TherapistID   string `json:"therapistId,omitempty"`
	RoomID        string `json:"roomId,omitempty"`
	Because       string `json:"because"`
}

// ExpectedImpact is the proposer's own (advisory) estimate of the patch
type ExpectedImpact struct {
	ViolationsResolved       []string `json:"violationsResolved,omitempty"`
	ViolationsIntroducedRisk []string `json:"violationsIntroducedRisk,omitempty"`
}

// Response is the proposer's answer to a repair request
type Response struct {
	Patch          []PatchOp       `json:"patch"`
	ExpectedImpact *ExpectedImpact `json:"expectedImpact,omitempty"`
	Notes          []string        `json:"notes,omitempty"`
}
