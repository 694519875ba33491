package aranalysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAPI returns one scripted status (or error) per GetStatus call,
// repeating the last entry when the script runs out.
type scriptedAPI struct {
	mockAPI
	script []scriptedPoll
	calls  int
}

type scriptedPoll struct {
	status *api.ArAnalysisProcessingStatus
	err    error
}

func (s *scriptedAPI) GetStatus(context.Context, string) (*api.ArAnalysisProcessingStatus, error) {
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	entry := s.script[idx]
	return entry.status, entry.err
}

func fastConfig() WatcherConfig {
	return WatcherConfig{
		Interval:    time.Millisecond,
		ErrorBudget: 3,
		MaxBackoff:  2 * time.Millisecond,
	}
}

func processing(stage string) scriptedPoll {
	return scriptedPoll{status: &api.ArAnalysisProcessingStatus{
		SessionStatus: api.StatusProcessing,
		CurrentStage:  stage,
	}}
}

func runWatcher(t *testing.T, a API, cfg WatcherConfig) (*Watcher, []StatusEvent) {
	w := NewWatcher(a, "s-1", cfg)
	go w.Run(context.Background())

	var events []StatusEvent
	for ev := range w.Events() {
		events = append(events, ev)
	}
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not finish")
	}
	return w, events
}

func TestWatcher_CompletesAfterTerminalStatus(t *testing.T) {
	a := &scriptedAPI{script: []scriptedPoll{
		processing("Parsing"),
		processing("Matching"),
		{status: &api.ArAnalysisProcessingStatus{SessionStatus: api.StatusCompleted}},
	}}

	w, events := runWatcher(t, a, fastConfig())

	require.NoError(t, w.Err())
	assert.Equal(t, api.StatusCompleted, w.FinalStatus())
	assert.Equal(t, 3, a.calls, "polling stops exactly at the terminal poll")
	require.Len(t, events, 3)
	assert.Equal(t, "Parsing", events[0].CurrentStage)
	assert.Equal(t, api.StatusCompleted, events[2].Status)
}

func TestWatcher_FailedStatus_ReportsAnalysisError(t *testing.T) {
	a := &scriptedAPI{script: []scriptedPoll{
		processing("Parsing"),
		{status: &api.ArAnalysisProcessingStatus{
			SessionStatus: api.StatusFailed,
			Message:       "intake rows unreadable",
		}},
	}}

	w, _ := runWatcher(t, a, fastConfig())

	require.ErrorIs(t, w.Err(), ErrAnalysisFailed)
	assert.Contains(t, w.Err().Error(), "intake rows unreadable")
	assert.Equal(t, api.StatusFailed, w.FinalStatus())
}

func TestWatcher_ErrorBudgetExhausted_GivesUp(t *testing.T) {
	boom := errors.New("backend unreachable")
	a := &scriptedAPI{script: []scriptedPoll{{err: boom}}}

	w, events := runWatcher(t, a, fastConfig())

	require.ErrorIs(t, w.Err(), ErrWatchFailed)
	assert.Equal(t, 3, a.calls)
	assert.Empty(t, events)
}

func TestWatcher_TransientFailure_RecoversWithinBudget(t *testing.T) {
	a := &scriptedAPI{script: []scriptedPoll{
		{err: errors.New("blip")},
		{err: errors.New("blip")},
		processing("Parsing"),
		{status: &api.ArAnalysisProcessingStatus{SessionStatus: api.StatusCompleted}},
	}}

	w, events := runWatcher(t, a, fastConfig())

	require.NoError(t, w.Err())
	assert.Equal(t, api.StatusCompleted, w.FinalStatus())
	require.Len(t, events, 2)
}

func TestWatcher_ConflictDetection(t *testing.T) {
	a := &scriptedAPI{script: []scriptedPoll{
		{status: &api.ArAnalysisProcessingStatus{SessionStatus: api.StatusConflictResolution}},
		{status: &api.ArAnalysisProcessingStatus{SessionStatus: api.StatusCompleted}},
	}}

	_, events := runWatcher(t, a, fastConfig())

	require.Len(t, events, 2)
	assert.True(t, events[0].Conflict)
	assert.False(t, events[1].Conflict)
}

func TestWatcher_CancelledContext_StopsPolling(t *testing.T) {
	a := &scriptedAPI{script: []scriptedPoll{processing("Parsing")}}

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(a, "s-1", fastConfig())
	go w.Run(ctx)

	// Let at least one poll land, then cancel.
	<-w.Events()
	cancel()

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
	assert.ErrorIs(t, w.Err(), context.Canceled)
}

func TestIsConflictStage(t *testing.T) {
	tests := []struct {
		name     string
		status   *api.ArAnalysisProcessingStatus
		conflict bool
	}{
		{
			name:     "nil status",
			status:   nil,
			conflict: false,
		},
		{
			name:     "conflict enum",
			status:   &api.ArAnalysisProcessingStatus{SessionStatus: api.StatusConflictResolution},
			conflict: true,
		},
		{
			name: "stage name mentions conflicts",
			status: &api.ArAnalysisProcessingStatus{
				SessionStatus: api.StatusProcessing,
				CurrentStage:  "Resolving Payer Conflicts",
			},
			conflict: true,
		},
		{
			name: "ordinary stage",
			status: &api.ArAnalysisProcessingStatus{
				SessionStatus: api.StatusProcessing,
				CurrentStage:  "Enrichment",
			},
			conflict: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.conflict, IsConflictStage(tt.status))
		})
	}
}

func TestSessionStatus_Terminal(t *testing.T) {
	assert.True(t, api.StatusCompleted.Terminal())
	assert.True(t, api.StatusFailed.Terminal())
	assert.False(t, api.StatusProcessing.Terminal())
	assert.False(t, api.StatusConflictResolution.Terminal())
}
