package aranalysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rcm-tools/rcm-atlas/pkg/models/api"
	"github.com/rs/zerolog"
)

// ErrWatchFailed means the status endpoint itself kept failing and the
// watch gave up. Distinct from ErrAnalysisFailed, where the backend
// reported a terminal Failed status.
var ErrWatchFailed = errors.New("status polling failed")

// ErrAnalysisFailed means the backend reported the session as Failed.
var ErrAnalysisFailed = errors.New("analysis failed")

// StatusEvent is one observed processing status.
type StatusEvent struct {
	Status       api.SessionStatus
	CurrentStage string
	Message      string
	Steps        []api.ProcessingStep
	// Conflict marks the conflict-resolution stage; the caller should
	// offer the conflict file download/upload affordance.
	Conflict bool
}

type WatcherConfig struct {
	// Interval between successful polls.
	Interval time.Duration
	// ErrorBudget is how many consecutive poll failures are tolerated
	// before the watch ends with ErrWatchFailed.
	ErrorBudget int
	// MaxBackoff caps the retry delay between failed polls.
	MaxBackoff time.Duration
}

func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Interval:    2 * time.Second,
		ErrorBudget: 5,
		MaxBackoff:  30 * time.Second,
	}
}

// Watcher polls the processing status of one session until a terminal
// state, context cancellation or an exhausted error budget. Polls are
// sequential: the next request is only scheduled after the previous one
// resolved, so slow responses never overlap.
type Watcher struct {
	api       API
	sessionID string
	cfg       WatcherConfig

	events chan StatusEvent
	kick   chan struct{}
	done   chan struct{}

	err   error
	final api.SessionStatus
}

func NewWatcher(a API, sessionID string, cfg WatcherConfig) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWatcherConfig().Interval
	}
	if cfg.ErrorBudget <= 0 {
		cfg.ErrorBudget = DefaultWatcherConfig().ErrorBudget
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultWatcherConfig().MaxBackoff
	}
	return &Watcher{
		api:       a,
		sessionID: sessionID,
		cfg:       cfg,
		events:    make(chan StatusEvent, 16),
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Events emits one StatusEvent per successful poll.
func (w *Watcher) Events() <-chan StatusEvent {
	return w.events
}

// Done closes after the watch ended; check Err and FinalStatus afterwards.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) Err() error {
	return w.err
}

func (w *Watcher) FinalStatus() api.SessionStatus {
	return w.final
}

// Poke requests an immediate poll, used after a corrected conflict file was
// uploaded. The watch keeps running either way.
func (w *Watcher) Poke() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Run blocks until the watch ends. It is the caller's goroutine decision,
// mirroring how the workflow runner is started by its controller.
func (w *Watcher) Run(ctx context.Context) {
	logger := zerolog.Ctx(ctx).With().Str("session_id", w.sessionID).Logger()

	defer close(w.done)
	defer close(w.events)

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = w.cfg.Interval
	retry.MaxInterval = w.cfg.MaxBackoff
	retry.MaxElapsedTime = 0

	failures := 0
	for {
		status, err := w.api.GetStatus(ctx, w.sessionID)
		if err != nil {
			if ctx.Err() != nil {
				w.err = ctx.Err()
				return
			}
			failures++
			logger.Warn().Err(err).Int("consecutive_failures", failures).Msg("status poll failed")
			if failures >= w.cfg.ErrorBudget {
				w.err = fmt.Errorf("%w after %d attempts: %v", ErrWatchFailed, failures, err)
				return
			}
			if !w.sleep(ctx, retry.NextBackOff()) {
				w.err = ctx.Err()
				return
			}
			continue
		}

		failures = 0
		retry.Reset()

		event := StatusEvent{
			Status:       status.SessionStatus,
			CurrentStage: status.CurrentStage,
			Message:      status.Message,
			Steps:        status.Steps,
			Conflict:     IsConflictStage(status),
		}
		select {
		case w.events <- event:
		default:
			// A slow consumer drops intermediate events; the terminal
			// outcome is carried by Err/FinalStatus regardless.
		}

		switch status.SessionStatus {
		case api.StatusCompleted:
			w.final = status.SessionStatus
			return
		case api.StatusFailed:
			w.final = status.SessionStatus
			msg := status.Message
			if msg == "" {
				msg = "no failure detail provided"
			}
			w.err = fmt.Errorf("%w: %s", ErrAnalysisFailed, msg)
			return
		}

		if !w.sleep(ctx, w.cfg.Interval) {
			w.err = ctx.Err()
			return
		}
	}
}

// sleep waits out the given delay, a kick or cancellation. Returns false on
// cancellation.
func (w *Watcher) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-w.kick:
		return true
	case <-timer.C:
		return true
	}
}

// IsConflictStage reports whether the status describes the
// conflict-resolution stage, either via the status enum or a stage name
// containing "conflict".
func IsConflictStage(status *api.ArAnalysisProcessingStatus) bool {
	if status == nil {
		return false
	}
	if status.SessionStatus == api.StatusConflictResolution {
		return true
	}
	return strings.Contains(strings.ToLower(status.CurrentStage), "conflict")
}
