package domain

// WizardStep is the client-side position in the AR analysis upload flow.
// Moving backwards never discards server-side artifacts; only this pointer
// changes.
type WizardStep int

const (
	StepIntake WizardStep = iota + 1
	StepPmReports
	StepReview
)

func (s WizardStep) String() string {
	switch s {
	case StepIntake:
		return "intake"
	case StepPmReports:
		return "pm-reports"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}
