package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rcm-tools/rcm-atlas/pkg/models/store"
	"github.com/rcm-tools/rcm-atlas/pkg/runtime/terminal/export"
	"github.com/rcm-tools/rcm-atlas/pkg/services/aranalysis"
	sessionstore "github.com/rcm-tools/rcm-atlas/pkg/store/duckdb/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAnalysis struct {
	mock.Mock
}

func (m *mockAnalysis) CreateSession(ctx context.Context, practiceName, intakePath string) (*api.CreateSessionResult, error) {
	args := m.Called(ctx, practiceName, intakePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.CreateSessionResult), args.Error(1)
}

func (m *mockAnalysis) ReplaceIntake(ctx context.Context, sessionID, intakePath string) (*api.ArIntakeValidationResult, error) {
	args := m.Called(ctx, sessionID, intakePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ArIntakeValidationResult), args.Error(1)
}

func (m *mockAnalysis) UploadPmReports(ctx context.Context, sessionID string, paths []string) error {
	return m.Called(ctx, sessionID, paths).Error(0)
}

func (m *mockAnalysis) GetSession(ctx context.Context, sessionID string) (*api.ArAnalysisSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ArAnalysisSession), args.Error(1)
}

func (m *mockAnalysis) Start(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockAnalysis) GetStatus(ctx context.Context, sessionID string) (*api.ArAnalysisProcessingStatus, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ArAnalysisProcessingStatus), args.Error(1)
}

func (m *mockAnalysis) GetReport(ctx context.Context, sessionID string) (*api.ArAnalysisReport, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ArAnalysisReport), args.Error(1)
}

func (m *mockAnalysis) DownloadTemplate(ctx context.Context, w io.Writer) (string, error) {
	args := m.Called(ctx, w)
	return args.String(0), args.Error(1)
}

func (m *mockAnalysis) DownloadConflictFile(ctx context.Context, sessionID string, w io.Writer) (string, error) {
	args := m.Called(ctx, sessionID, w)
	return args.String(0), args.Error(1)
}

func (m *mockAnalysis) UploadConflictFile(ctx context.Context, sessionID, path string) error {
	return m.Called(ctx, sessionID, path).Error(0)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) RecordWatch(ctx context.Context, ws store.WatchedSession) error {
	return m.Called(ctx, ws).Error(0)
}

func (m *mockHistory) FinishWatch(ctx context.Context, sessionID, finalStatus string, at time.Time) error {
	return m.Called(ctx, sessionID, finalStatus, at).Error(0)
}

func (m *mockHistory) FinishWithReport(ctx context.Context, sessionID, finalStatus string, at time.Time, snap store.ReportSnapshot) error {
	return m.Called(ctx, sessionID, finalStatus, at, snap).Error(0)
}

func (m *mockHistory) ListWatches(ctx context.Context) ([]store.WatchedSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.WatchedSession), args.Error(1)
}

func (m *mockHistory) SaveReport(ctx context.Context, snap store.ReportSnapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *mockHistory) GetReport(ctx context.Context, sessionID string) (*store.ReportSnapshot, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.ReportSnapshot), args.Error(1)
}

func watchDeps(analysis *mockAnalysis, history *mockHistory) *Deps {
	return &Deps{
		Analysis: analysis,
		History:  func() (sessionstore.Store, error) { return history, nil },
	}
}

func fastWatchConfig() aranalysis.WatcherConfig {
	return aranalysis.WatcherConfig{
		Interval:    time.Millisecond,
		ErrorBudget: 2,
		MaxBackoff:  2 * time.Millisecond,
	}
}

func TestWatchSession_PollFailuresCloseHistoryRow(t *testing.T) {
	analysis := &mockAnalysis{}
	analysis.On("GetStatus", mock.Anything, "s-1").Return(nil, errors.New("backend down"))

	history := &mockHistory{}
	history.On("RecordWatch", mock.Anything, mock.MatchedBy(func(ws store.WatchedSession) bool {
		return ws.SessionID == "s-1" && ws.FinalStatus == string(api.StatusProcessing)
	})).Return(nil)
	history.On("FinishWatch", mock.Anything, "s-1", store.WatchAborted, mock.Anything).Return(nil)

	var out bytes.Buffer
	env := &Env{Output: &out}

	err := watchSession(context.Background(), env, watchDeps(analysis, history),
		"s-1", "Sunrise Health", fastWatchConfig())

	require.ErrorIs(t, err, aranalysis.ErrWatchFailed)
	history.AssertExpectations(t)
}

func TestWatchSession_CompletedCachesReport(t *testing.T) {
	analysis := &mockAnalysis{}
	analysis.On("GetStatus", mock.Anything, "s-1").Return(&api.ArAnalysisProcessingStatus{
		SessionStatus: api.StatusCompleted,
	}, nil)
	analysis.On("GetReport", mock.Anything, "s-1").Return(&api.ArAnalysisReport{
		SessionID:           "s-1",
		TotalClaimsAnalyzed: 7,
		GeneratedAt:         time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
	}, nil)

	history := &mockHistory{}
	history.On("RecordWatch", mock.Anything, mock.Anything).Return(nil)
	history.On("FinishWithReport", mock.Anything, "s-1", string(api.StatusCompleted),
		mock.Anything, mock.MatchedBy(func(snap store.ReportSnapshot) bool {
			return snap.SessionID == "s-1"
		})).Return(nil)

	var out bytes.Buffer
	env := &Env{Output: &out, Reporter: export.NewReporter(&out)}

	err := watchSession(context.Background(), env, watchDeps(analysis, history),
		"s-1", "Sunrise Health", fastWatchConfig())

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Session s-1")
	history.AssertExpectations(t)
}
