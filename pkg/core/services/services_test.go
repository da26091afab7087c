package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/jc96818/sayitschedule-sub003/internal/config"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/model"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/repair"
	"github.com/jc96818/sayitschedule-sub003/pkg/core/rules"
	"github.com/jc96818/sayitschedule-sub003/pkg/proposer"
)

// mockStore implements the service store interfaces for testing
type mockStore struct {
	staff          []model.Staff
	patients       []model.Patient
	rooms          []model.Room
	rules          []rules.Rule
	unavailability []model.Unavailability
	sessions       []model.Session
	holds          []model.Hold

	inserted      []model.Session
	replaced      []model.Session
	replacedRange []string

	getStaffErr       error
	getSessionsErr    error
	insertSessionsErr error
}

func (m *mockStore) GetStaff(ctx context.Context) ([]model.Staff, error) {
	if m.getStaffErr != nil {
		return nil, m.getStaffErr
	}
	return m.staff, nil
}

func (m *mockStore) GetPatients(ctx context.Context) ([]model.Patient, error) {
	return m.patients, nil
}

func (m *mockStore) GetRooms(ctx context.Context) ([]model.Room, error) {
	return m.rooms, nil
}

func (m *mockStore) GetRules(ctx context.Context) ([]rules.Rule, error) {
	return m.rules, nil
}

func (m *mockStore) GetUnavailability(ctx context.Context, startDate, endDate string) ([]model.Unavailability, error) {
	var matched []model.Unavailability
	for _, u := range m.unavailability {
		if u.Date >= startDate && u.Date <= endDate {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

func (m *mockStore) GetSessions(ctx context.Context, startDate, endDate string) ([]model.Session, error) {
	if m.getSessionsErr != nil {
		return nil, m.getSessionsErr
	}
	var matched []model.Session
	for _, s := range m.sessions {
		if s.Date >= startDate && s.Date <= endDate {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

func (m *mockStore) GetHolds(ctx context.Context, startDate, endDate string) ([]model.Hold, error) {
	var matched []model.Hold
	for _, h := range m.holds {
		if h.Date >= startDate && h.Date <= endDate {
			matched = append(matched, h)
		}
	}
	return matched, nil
}

func (m *mockStore) InsertSessions(ctx context.Context, sessions []model.Session) error {
	if m.insertSessionsErr != nil {
		return m.insertSessionsErr
	}
	m.inserted = append(m.inserted, sessions...)
	return nil
}

func (m *mockStore) ReplaceSessions(ctx context.Context, startDate, endDate string, sessions []model.Session) error {
	m.replaced = sessions
	m.replacedRange = []string{startDate, endDate}
	return nil
}

// mockProposer implements proposer.Proposer for testing. A nil response
// with no error behaves like the unconfigured proposer.
type mockProposer struct {
	scheduleResp *proposer.ScheduleResponse
	scheduleErr  error
	repairResp   *proposer.SessionRepairResponse
	repairErr    error
	patchResp    *repair.Response
	patchErr     error

	// patchFn, when set, lets a test derive the patch from the request
	patchFn func(req repair.Request) (*repair.Response, error)

	scheduleCalls int
	repairCalls   int
	patchCalls    int
	lastPatchReq  repair.Request
}

func (m *mockProposer) ProposeSchedule(ctx context.Context, req proposer.ScheduleRequest) (*proposer.ScheduleResponse, error) {
	m.scheduleCalls++
	if m.scheduleErr != nil {
		return nil, m.scheduleErr
	}
	if m.scheduleResp == nil {
		return nil, proposer.ErrNotConfigured
	}
	return m.scheduleResp, nil
}

func (m *mockProposer) RepairSession(ctx context.Context, req proposer.SessionRepairRequest) (*proposer.SessionRepairResponse, error) {
	m.repairCalls++
	if m.repairErr != nil {
		return nil, m.repairErr
	}
	if m.repairResp == nil {
		return nil, proposer.ErrNotConfigured
	}
	return m.repairResp, nil
}

func (m *mockProposer) ProposePatch(ctx context.Context, req repair.Request) (*repair.Response, error) {
	m.patchCalls++
	m.lastPatchReq = req
	if m.patchFn != nil {
		return m.patchFn(req)
	}
	if m.patchErr != nil {
		return nil, m.patchErr
	}
	if m.patchResp == nil {
		return nil, proposer.ErrNotConfigured
	}
	return m.patchResp, nil
}

func testConfig() *config.Config {
	return &config.Config{
		DatabaseURL: "postgres://localhost/test",
		Timezone:    "UTC",
		BusinessHours: []config.BusinessDay{
			{Day: "monday", Start: "08:00", End: "18:00"},
			{Day: "tuesday", Start: "08:00", End: "18:00"},
			{Day: "wednesday", Start: "08:00", End: "18:00"},
			{Day: "thursday", Start: "08:00", End: "18:00"},
			{Day: "friday", Start: "08:00", End: "18:00"},
		},
		Scheduling: config.SchedulingConfig{
			SlotDurationMinutes: 60,
			SlotStepMinutes:     30,
		},
		Repair: config.RepairConfig{
			MaxPatchOps:   10,
			MaxIterations: 3,
		},
	}
}

func testStaff() []model.Staff {
	weekdays := model.WeeklyHours{
		"monday":    {StartTime: "09:00", EndTime: "17:00"},
		"tuesday":   {StartTime: "09:00", EndTime: "17:00"},
		"wednesday": {StartTime: "09:00", EndTime: "17:00"},
		"thursday":  {StartTime: "09:00", EndTime: "17:00"},
		"friday":    {StartTime: "09:00", EndTime: "17:00"},
	}
	return []model.Staff{
		{
			ID:             "staff-1",
			FirstName:      "Dana",
			LastName:       "Reyes",
			Gender:         "Female",
			Certifications: []string{"speech"},
			WorkingHours:   weekdays,
			Status:         model.StaffActive,
		},
		{
			ID:             "staff-2",
			FirstName:      "Alex",
			LastName:       "Chen",
			Gender:         "Male",
			Certifications: []string{"speech", "aba"},
			WorkingHours:   weekdays,
			Status:         model.StaffActive,
		},
	}
}

func testPatients() []model.Patient {
	return []model.Patient{
		{
			ID:        "patient-1",
			FirstName: "Morgan",
			LastName:  "Webb",
			Gender:    "Female",
			SessionSpecs: []model.SessionSpec{
				{
					ID:                     "spec-1",
					Name:                   "Speech therapy",
					SessionsPerWeek:        1,
					DurationMinutes:        60,
					RequiredCertifications: []string{"speech"},
				},
			},
		},
		{
			ID:        "patient-2",
			FirstName: "Riley",
			LastName:  "Novak",
			Gender:    "Male",
			SessionSpecs: []model.SessionSpec{
				{
					ID:                     "spec-2",
					Name:                   "Speech therapy",
					SessionsPerWeek:        1,
					DurationMinutes:        60,
					RequiredCertifications: []string{"speech"},
				},
			},
		},
	}
}

func proposal(therapistID, patientID, specID, date, start, end string) proposer.SessionProposal {
	return proposer.SessionProposal{
		TherapistID:   therapistID,
		PatientID:     patientID,
		SessionSpecID: specID,
		Date:          date,
		StartTime:     start,
		EndTime:       end,
	}
}

func committedSession(id, therapistID, patientID, specID, date, start, end string) model.Session {
	return model.Session{
		ID:            id,
		TherapistID:   therapistID,
		PatientID:     patientID,
		SessionSpecID: specID,
		Date:          date,
		Slot:          model.TimeSlot{StartTime: start, EndTime: end},
		Status:        model.SessionScheduled,
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
