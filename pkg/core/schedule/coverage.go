package schedule

import "fmt"

// checkCoverage compares accepted session counts against each patient
// spec's weekly requirement and warns on shortfalls. Coverage gaps never
// block the schedule; operators decide whether to accept them.
func (v *validator) checkCoverage() {
	counts := make(map[string]int)
	for _, s := range v.outcome.Valid {
		counts[s.PatientID+"/"+s.SessionSpecID]++
	}

	for _, patient := range v.in.Patients {
		for _, spec := range patient.SessionSpecs {
			if spec.SessionsPerWeek <= 0 {
				continue
			}
			scheduled := counts[patient.ID+"/"+spec.ID]
			if scheduled >= spec.SessionsPerWeek {
				continue
			}
			v.outcome.Warnings = append(v.outcome.Warnings, Warning{
				Code: WarnCoverageShortfall,
				Message: fmt.Sprintf("%s scheduled %d of %d weekly sessions for %s",
					patient.Name(), scheduled, spec.SessionsPerWeek, spec.Name),
			})
		}
	}
}
