package model

type StaffStatus string

const (
	StaffActive   StaffStatus = "Active"
	StaffInactive StaffStatus = "Inactive"
)

func (s StaffStatus) IsValid() bool {
	return s == StaffActive || s == StaffInactive
}

type SessionStatus string

const (
	SessionScheduled SessionStatus = "Scheduled"
	SessionCompleted SessionStatus = "Completed"
	SessionCancelled SessionStatus = "Cancelled"
)

// TimeSlot is a same-day half-open time range. Times are minute-of-day
// strings in "HH:mm" form; a valid slot has StartTime < EndTime.
type TimeSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// WeeklyHours holds default working hours keyed by lowercase day name
// ("monday" .. "sunday"). A missing day means no hours recorded.
type WeeklyHours map[string]TimeSlot

// Staff represents a staff member available for scheduling
type Staff struct {
	ID             string
	FirstName      string
	LastName       string
	Gender         string
	Certifications []string
	WorkingHours   WeeklyHours
	Status         StaffStatus
}

// Name returns the staff member's display name
func (s Staff) Name() string {
	return s.FirstName + " " + s.LastName
}

// HasCertifications reports whether the staff member holds every
// certification in required
func (s Staff) HasCertifications(required []string) bool {
	for _, req := range required {
		found := false
		for _, cert := range s.Certifications {
			if cert == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SessionSpec is a patient's named recurring therapy requirement
type SessionSpec struct {
	ID                       string
	Name                     string
	SessionsPerWeek          int
	DurationMinutes          int
	RequiredCertifications   []string
	PreferredTimes           []TimeSlot
	RequiredRoomCapabilities []string
}

// Patient represents a patient needing recurring sessions. A patient may
// carry multiple concurrent session specs (e.g. two therapy types).
type Patient struct {
	ID           string
	FirstName    string
	LastName     string
	Gender       string
	SessionSpecs []SessionSpec
}

// Name returns the patient's display name
func (p Patient) Name() string {
	return p.FirstName + " " + p.LastName
}

// Spec returns the session spec with the given id, or nil if absent
func (p Patient) Spec(specID string) *SessionSpec {
	for i := range p.SessionSpecs {
		if p.SessionSpecs[i].ID == specID {
			return &p.SessionSpecs[i]
		}
	}
	return nil
}

// Room represents a treatment room with a set of capabilities
type Room struct {
	ID           string
	Name         string
	Capabilities []string
}

// HasCapabilities reports whether the room provides every capability in
// required
func (r Room) HasCapabilities(required []string) bool {
	for _, req := range required {
		found := false
		for _, cap := range r.Capabilities {
			if cap == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Unavailability overrides a staff member's default hours for one date.
// Available=false blocks the whole day. Available=true with Hours set
// replaces the default hours for that date only.
type Unavailability struct {
	StaffID   string
	Date      string // "2006-01-02"
	Available bool
	Hours     *TimeSlot
	Reason    string
}

// Session is a committed therapy session
type Session struct {
	ID            string
	TherapistID   string
	PatientID     string
	SessionSpecID string
	RoomID        string // empty if unassigned
	Date          string // "2006-01-02"
	Slot          TimeSlot
	Status        SessionStatus
	Notes         string
}

// GeneratedSession is a candidate session produced by the external
// proposer, not yet validated or persisted
type GeneratedSession struct {
	TherapistID   string
	PatientID     string
	SessionSpecID string
	RoomID        string // empty if unassigned
	Date          string // "2006-01-02"
	Slot          TimeSlot
	Notes         string
}

// Hold is a temporary reservation of a staff time slot prior to a session
// being confirmed. An active hold blocks availability like a session.
type Hold struct {
	ID        string
	StaffID   string
	Date      string // "2006-01-02"
	Slot      TimeSlot
	ExpiresAt string // RFC 3339; empty means no expiry
	Released  bool
	Converted bool
}
