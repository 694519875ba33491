package aranalysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rcm-tools/rcm-atlas/pkg/models/domain"
)

// Wizard holds the client-side state of the three-step AR analysis upload
// flow. Step transitions are explicit: a successful upload never advances
// the step by itself, and moving back only moves the pointer; artifacts
// already uploaded persist server-side.
type Wizard struct {
	api API

	mu         sync.Mutex
	step       domain.WizardStep
	sessionID  string
	validation *api.ArIntakeValidationResult
	validating bool
	pmUploaded bool
	session    *api.ArAnalysisSession
	started    bool
}

func NewWizard(a API) *Wizard {
	return &Wizard{api: a, step: domain.StepIntake}
}

// CreateSession uploads the intake file. First call creates the session;
// subsequent calls replace the intake on the existing session and produce a
// fresh validation result.
func (w *Wizard) CreateSession(ctx context.Context, practiceName, intakePath string) (*api.ArIntakeValidationResult, error) {
	w.mu.Lock()
	if w.validating {
		w.mu.Unlock()
		return nil, fmt.Errorf("intake validation already in progress")
	}
	w.validating = true
	sessionID := w.sessionID
	w.mu.Unlock()

	var validation *api.ArIntakeValidationResult
	var err error
	if sessionID == "" {
		var created *api.CreateSessionResult
		created, err = w.api.CreateSession(ctx, practiceName, intakePath)
		if err == nil {
			sessionID = created.SessionID
			validation = &created.ValidationResult
		}
	} else {
		validation, err = w.api.ReplaceIntake(ctx, sessionID, intakePath)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.validating = false
	if err != nil {
		return nil, err
	}
	w.sessionID = sessionID
	w.validation = validation
	return validation, nil
}

// CanProceedFromStep1 is true iff a session exists, its intake validation
// succeeded and no validation is in flight.
func (w *Wizard) CanProceedFromStep1() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessionID != "" && w.validation != nil && w.validation.Success && !w.validating
}

// UploadPmReports attaches PM source reports to the session and refreshes
// the session detail for the review step.
func (w *Wizard) UploadPmReports(ctx context.Context, paths ...string) error {
	w.mu.Lock()
	sessionID := w.sessionID
	w.mu.Unlock()
	if sessionID == "" {
		return fmt.Errorf("no session: upload an intake file first")
	}

	if err := w.api.UploadPmReports(ctx, sessionID, paths); err != nil {
		return err
	}

	session, err := w.api.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pmUploaded = true
	w.session = session
	return nil
}

func (w *Wizard) CanProceedFromStep2() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pmUploaded
}

// Next advances the step pointer, enforcing the gate of the current step.
func (w *Wizard) Next() error {
	w.mu.Lock()
	step := w.step
	w.mu.Unlock()

	switch step {
	case domain.StepIntake:
		if !w.CanProceedFromStep1() {
			return fmt.Errorf("intake must be uploaded and pass validation first")
		}
	case domain.StepPmReports:
		if !w.CanProceedFromStep2() {
			return fmt.Errorf("PM reports must be uploaded first")
		}
	case domain.StepReview:
		return fmt.Errorf("already on the final step")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.step++
	return nil
}

// Back moves the step pointer without discarding anything.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > domain.StepIntake {
		w.step--
	}
}

// StartAnalysis kicks off the server-side pipeline. The caller should
// follow up with a Watcher on the returned session ID.
func (w *Wizard) StartAnalysis(ctx context.Context) (string, error) {
	w.mu.Lock()
	sessionID := w.sessionID
	pmUploaded := w.pmUploaded
	started := w.started
	w.mu.Unlock()

	if sessionID == "" {
		return "", fmt.Errorf("no session to start")
	}
	if !pmUploaded {
		return "", fmt.Errorf("PM reports must be uploaded before starting")
	}
	if started {
		return "", fmt.Errorf("analysis already started")
	}

	if err := w.api.Start(ctx, sessionID); err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.started = true
	return sessionID, nil
}

func (w *Wizard) Step() domain.WizardStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) SessionID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessionID
}

func (w *Wizard) ValidationResult() *api.ArIntakeValidationResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validation
}

func (w *Wizard) Session() *api.ArAnalysisSession {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}
