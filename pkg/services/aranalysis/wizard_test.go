package aranalysis

import (
	"context"
	"io"
	"testing"

	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rcm-tools/rcm-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) CreateSession(ctx context.Context, practiceName, intakePath string) (*api.CreateSessionResult, error) {
	args := m.Called(ctx, practiceName, intakePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.CreateSessionResult), args.Error(1)
}

func (m *mockAPI) ReplaceIntake(ctx context.Context, sessionID, intakePath string) (*api.ArIntakeValidationResult, error) {
	args := m.Called(ctx, sessionID, intakePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ArIntakeValidationResult), args.Error(1)
}

func (m *mockAPI) UploadPmReports(ctx context.Context, sessionID string, paths []string) error {
	args := m.Called(ctx, sessionID, paths)
	return args.Error(0)
}

func (m *mockAPI) GetSession(ctx context.Context, sessionID string) (*api.ArAnalysisSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ArAnalysisSession), args.Error(1)
}

func (m *mockAPI) Start(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockAPI) GetStatus(ctx context.Context, sessionID string) (*api.ArAnalysisProcessingStatus, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ArAnalysisProcessingStatus), args.Error(1)
}

func (m *mockAPI) GetReport(ctx context.Context, sessionID string) (*api.ArAnalysisReport, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ArAnalysisReport), args.Error(1)
}

func (m *mockAPI) DownloadTemplate(ctx context.Context, w io.Writer) (string, error) {
	args := m.Called(ctx, w)
	return args.String(0), args.Error(1)
}

func (m *mockAPI) DownloadConflictFile(ctx context.Context, sessionID string, w io.Writer) (string, error) {
	args := m.Called(ctx, sessionID, w)
	return args.String(0), args.Error(1)
}

func (m *mockAPI) UploadConflictFile(ctx context.Context, sessionID, path string) error {
	args := m.Called(ctx, sessionID, path)
	return args.Error(0)
}

func passedValidation() api.ArIntakeValidationResult {
	return api.ArIntakeValidationResult{Success: true, ColumnValidatedCount: 10, RowValidatedCount: 200}
}

func failedValidation() api.ArIntakeValidationResult {
	return api.ArIntakeValidationResult{
		Success:      false,
		ColumnErrors: []api.ColumnError{{ColumnName: "DOS", Message: "missing"}},
	}
}

func TestWizard_FirstUploadCreates_SecondReplaces(t *testing.T) {
	ctx := context.Background()
	m := &mockAPI{}
	m.On("CreateSession", ctx, "Sunrise", "intake-v1.xlsx").
		Return(&api.CreateSessionResult{SessionID: "s-1", ValidationResult: failedValidation()}, nil).Once()
	fresh := passedValidation()
	m.On("ReplaceIntake", ctx, "s-1", "intake-v2.xlsx").Return(&fresh, nil).Once()

	w := NewWizard(m)

	v1, err := w.CreateSession(ctx, "Sunrise", "intake-v1.xlsx")
	require.NoError(t, err)
	assert.False(t, v1.Success)
	assert.Equal(t, "s-1", w.SessionID())
	assert.False(t, w.CanProceedFromStep1())

	v2, err := w.CreateSession(ctx, "Sunrise", "intake-v2.xlsx")
	require.NoError(t, err)
	assert.True(t, v2.Success)
	assert.True(t, w.CanProceedFromStep1())

	m.AssertExpectations(t)
}

func TestWizard_Next_GatedByValidation(t *testing.T) {
	ctx := context.Background()
	m := &mockAPI{}
	m.On("CreateSession", ctx, "Sunrise", "intake.xlsx").
		Return(&api.CreateSessionResult{SessionID: "s-1", ValidationResult: failedValidation()}, nil)

	w := NewWizard(m)
	require.Error(t, w.Next(), "no session yet")

	_, err := w.CreateSession(ctx, "Sunrise", "intake.xlsx")
	require.NoError(t, err)

	// A session ID alone is not enough; validation must have passed.
	assert.Error(t, w.Next())
	assert.Equal(t, domain.StepIntake, w.Step())
}

func TestWizard_FullHappyPath(t *testing.T) {
	ctx := context.Background()
	m := &mockAPI{}
	m.On("CreateSession", ctx, "Sunrise", "intake.xlsx").
		Return(&api.CreateSessionResult{SessionID: "s-1", ValidationResult: passedValidation()}, nil)
	m.On("UploadPmReports", ctx, "s-1", []string{"pm1.csv", "pm2.csv"}).Return(nil)
	m.On("GetSession", ctx, "s-1").
		Return(&api.ArAnalysisSession{ID: "s-1", SessionStatus: api.StatusPmUploaded}, nil)
	m.On("Start", ctx, "s-1").Return(nil).Once()

	w := NewWizard(m)

	_, err := w.CreateSession(ctx, "Sunrise", "intake.xlsx")
	require.NoError(t, err)
	require.NoError(t, w.Next())
	assert.Equal(t, domain.StepPmReports, w.Step())

	require.Error(t, w.Next(), "PM reports not uploaded yet")

	require.NoError(t, w.UploadPmReports(ctx, "pm1.csv", "pm2.csv"))
	require.NoError(t, w.Next())
	assert.Equal(t, domain.StepReview, w.Step())
	require.NotNil(t, w.Session())
	assert.Equal(t, api.StatusPmUploaded, w.Session().SessionStatus)

	sessionID, err := w.StartAnalysis(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s-1", sessionID)

	// Starting twice is refused without another backend call.
	_, err = w.StartAnalysis(ctx)
	require.Error(t, err)
	m.AssertExpectations(t)
}

func TestWizard_StartAnalysis_RequiresPmReports(t *testing.T) {
	ctx := context.Background()
	m := &mockAPI{}
	m.On("CreateSession", ctx, "Sunrise", "intake.xlsx").
		Return(&api.CreateSessionResult{SessionID: "s-1", ValidationResult: passedValidation()}, nil)

	w := NewWizard(m)
	_, err := w.CreateSession(ctx, "Sunrise", "intake.xlsx")
	require.NoError(t, err)

	_, err = w.StartAnalysis(ctx)
	require.Error(t, err)
	m.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestWizard_UploadPmReports_RequiresSession(t *testing.T) {
	w := NewWizard(&mockAPI{})
	require.Error(t, w.UploadPmReports(context.Background(), "pm.csv"))
}

func TestWizard_Back_OnlyMovesThePointer(t *testing.T) {
	ctx := context.Background()
	m := &mockAPI{}
	m.On("CreateSession", ctx, "Sunrise", "intake.xlsx").
		Return(&api.CreateSessionResult{SessionID: "s-1", ValidationResult: passedValidation()}, nil)

	w := NewWizard(m)
	_, err := w.CreateSession(ctx, "Sunrise", "intake.xlsx")
	require.NoError(t, err)
	require.NoError(t, w.Next())

	w.Back()
	assert.Equal(t, domain.StepIntake, w.Step())
	// Session and validation survive the step change.
	assert.Equal(t, "s-1", w.SessionID())
	assert.True(t, w.CanProceedFromStep1())

	w.Back()
	assert.Equal(t, domain.StepIntake, w.Step(), "cannot go below the first step")
}
