package proposer

import (
	"encoding/json"
	"fmt"

	"github.com/jc96818/sayitschedule-sub003/pkg/core/repair"
)

const scheduleSystemPrompt = `You are a therapy scheduling assistant. Your job is to build a weekly schedule of therapy sessions between staff and patients.

Rules:
- Reference staff, patients, session specs and rooms ONLY by the ids in the payload
- Every session must fit inside the named staff member's working hours and the business hours
- The assigned staff member must hold every certification the session spec requires
- No staff member, patient or room may have two overlapping sessions
- Schedule each spec's sessionsPerWeek count, spread across the week
- Prefer the spec's preferredTimes windows when given
- Assign a room with the required capabilities when the spec names any
- Honor every rule listed in the payload

Return valid JSON matching the required schema.`

func buildSchedulePrompt(req ScheduleRequest) (system, user string, err error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal schedule request: %w", err)
	}
	return scheduleSystemPrompt, string(payload), nil
}

const sessionRepairSystemPrompt = `You are a therapy scheduling assistant. One proposed session was rejected; pick a replacement for it.

Rules:
- Choose EXACTLY one of the candidateSlots, or return a null session if none fits
- Keep the same patientId and sessionSpecId as the original
- The reasons list explains why the original was rejected; do not repeat the mistake

Return valid JSON matching the required schema.`

func buildSessionRepairPrompt(req SessionRepairRequest) (system, user string, err error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal session repair request: %w", err)
	}
	return sessionRepairSystemPrompt, string(payload), nil
}

const patchSystemPrompt = `You are a therapy scheduling assistant. The schedule below has violations; propose a patch that fixes as many as possible.

Rules:
- Use only the ops move, swap, delete and add
- Every id you reference MUST come from the searchSpace allowed sets
- Never touch a session marked lock:true
- Never target the same session with more than one op
- Stay within meta.maxPatchOps ops
- Give every op a short "because" justification
- Fix the highest-severity violations first

Return valid JSON matching the required schema.`

func buildPatchPrompt(req repair.Request) (system, user string, err error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal repair request: %w", err)
	}
	return patchSystemPrompt, string(payload), nil
}
