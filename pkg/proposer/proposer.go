// Package proposer talks to the external generative proposer. Everything
// it returns is untrusted input: callers must run the session validator or
// the repair governor over every response before applying any of it.
package proposer

import (
	"context"
	"errors"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/repair"
)

// ErrNotConfigured is returned by the null proposer; orchestrators treat
// it as "fall back to deterministic behaviour"
var ErrNotConfigured = errors.New("proposer not configured")

// ErrBadShape marks a response missing the expected top-level structure.
// It is fatal for the call; retrying is the orchestrator's decision.
var ErrBadShape = errors.New("proposer response has unexpected shape")

// Proposer is the external schedule proposer
type Proposer interface {
	// ProposeSchedule asks for a fresh week schedule
	ProposeSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResponse, error)

	// RepairSession asks for a replacement for one rejected session
	RepairSession(ctx context.Context, req SessionRepairRequest) (*SessionRepairResponse, error)

	// ProposePatch asks for a bounded patch against a repair request
	ProposePatch(ctx context.Context, req repair.Request) (*repair.Response, error)
}

// StaffSummary names a staff member by id plus the minimal attributes the
// proposer needs. No speculative data is ever included.
type StaffSummary struct {
	ID             string            `json:"id"`
	Gender         string            `json:"gender,omitempty"`
	Certifications []string          `json:"certifications"`
	WorkingHours   map[string]string `json:"workingHours"` // day -> "09:00-17:00"
}

// SpecSummary is one session requirement of a patient
type SpecSummary struct {
	ID                       string   `json:"id"`
	SessionsPerWeek          int      `json:"sessionsPerWeek"`
	DurationMinutes          int      `json:"durationMinutes"`
	RequiredCertifications   []string `json:"requiredCertifications"`
	PreferredTimes           []string `json:"preferredTimes,omitempty"` // "09:00-12:00"
	RequiredRoomCapabilities []string `json:"requiredRoomCapabilities,omitempty"`
}

// PatientSummary names a patient by id plus their requirements
type PatientSummary struct {
	ID     string        `json:"id"`
	Gender string        `json:"gender,omitempty"`
	Specs  []SpecSummary `json:"specs"`
}

// RoomSummary names a room by id plus its capabilities
type RoomSummary struct {
	ID           string   `json:"id"`
	Capabilities []string `json:"capabilities"`
}

// ScheduleRequest is the fresh-generation request payload
type ScheduleRequest struct {
	WeekStart     string           `json:"weekStart"`
	WeekEnd       string           `json:"weekEnd"`
	BusinessHours map[string]string `json:"businessHours"` // day -> "08:00-18:00"
	Staff         []StaffSummary   `json:"staff"`
	Patients      []PatientSummary `json:"patients"`
	Rooms         []RoomSummary    `json:"rooms"`
	Rules         []string         `json:"rules,omitempty"` // resolved rule texts only
}

// SessionProposal is one proposed session on the wire
type SessionProposal struct {
	TherapistID   string `json:"therapistId"`
	PatientID     string `json:"patientId"`
	SessionSpecID string `json:"sessionSpecId"`
	RoomID        string `json:"roomId,omitempty"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Notes         string `json:"notes,omitempty"`
}

// ToModel converts a wire proposal into the engine's candidate record
func (p SessionProposal) ToModel() model.GeneratedSession {
	return model.GeneratedSession{
		TherapistID:   p.TherapistID,
		PatientID:     p.PatientID,
		SessionSpecID: p.SessionSpecID,
		RoomID:        p.RoomID,
		Date:          p.Date,
		Slot:          model.TimeSlot{StartTime: p.StartTime, EndTime: p.EndTime},
		Notes:         p.Notes,
	}
}

// ScheduleResponse is the single accepted response shape for fresh
// generation; a missing sessions array is a fatal call error
type ScheduleResponse struct {
	Sessions []SessionProposal `json:"sessions"`
	Warnings []string          `json:"warnings,omitempty"`
}

// CandidateSlot is one legal destination offered to the single-session
// repair call
type CandidateSlot struct {
	TherapistID string `json:"therapistId"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

// SessionRepairRequest scopes a repair to one rejected session
type SessionRepairRequest struct {
	PatientID      string          `json:"patientId"`
	SessionSpecID  string          `json:"sessionSpecId"`
	Original       SessionProposal `json:"original"`
	Reasons        []string        `json:"reasons"`
	CandidateSlots []CandidateSlot `json:"candidateSlots"`
}

// SessionRepairResponse carries the replacement, or a nil session when
// the proposer declines
type SessionRepairResponse struct {
	Session *SessionProposal `json:"session"`
	Notes   []string         `json:"notes,omitempty"`
}
