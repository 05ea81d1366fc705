// Package sync implements the cross-device synchronizer. Each attached
// session view gets one background task that periodically pulls the
// authoritative record from the store and replaces the local snapshot
// wholesale. Merging happens server-side in the store's atomic mutations; the
// synchronizer only pulls, never pushes.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
	"github.com/aqyl-hub/aqyl-learning-hub/pkg/circuitbreaker"
)

// DefaultInterval is how often an attached session is refreshed.
const DefaultInterval = 30 * time.Second

// ErrAlreadyAttached is returned when attaching a session that already has a
// running sync task.
var ErrAlreadyAttached = errors.New("session already attached")

// ErrNotAttached is returned when reading a snapshot for a session that has
// no running sync task.
var ErrNotAttached = errors.New("session not attached")

// ══════════════════════════════════════════════════════════════════════════════
// SYNCHRONIZER
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Synchronizer.
type Config struct {
	// Interval between refresh ticks.
	Interval time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultSyncConfig returns sensible defaults.
func DefaultSyncConfig() Config {
	return Config{
		Interval: DefaultInterval,
	}
}

// Synchronizer keeps attached session snapshots converged with the store.
type Synchronizer struct {
	store     session.Store
	publisher shared.EventPublisher
	breaker   *circuitbreaker.CircuitBreaker
	interval  time.Duration
	logger    *slog.Logger

	mu    sync.RWMutex
	tasks map[shared.SessionID]*task
}

// task is one per-session refresh loop.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	snapshot *session.HubSession
}

// NewSynchronizer creates a new Synchronizer.
func NewSynchronizer(store session.Store, publisher shared.EventPublisher, config Config) *Synchronizer {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Synchronizer{
		store:     store,
		publisher: publisher,
		breaker: circuitbreaker.New("session-sync",
			circuitbreaker.WithFailureThreshold(5),
			circuitbreaker.WithTimeout(config.Interval),
			circuitbreaker.WithIsFailure(func(err error) bool {
				// Only infrastructure failures count against the breaker.
				return errors.Is(err, shared.ErrStoreUnavailable) ||
					errors.Is(err, shared.ErrTimeout)
			}),
		),
		interval: config.Interval,
		logger:   config.Logger,
		tasks:    make(map[shared.SessionID]*task),
	}
}

// Attach starts the refresh loop for a session view. The loop stops when ctx
// is cancelled or Detach is called, whichever comes first. The initial
// snapshot seeds the local view so reads work before the first tick.
func (s *Synchronizer) Attach(ctx context.Context, id shared.SessionID, initial *session.HubSession) error {
	if initial == nil {
		loaded, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		initial = loaded
	}

	s.mu.Lock()
	if _, exists := s.tasks[id]; exists {
		s.mu.Unlock()
		return ErrAlreadyAttached
	}

	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{
		cancel:   cancel,
		done:     make(chan struct{}),
		snapshot: initial.Clone(),
	}
	s.tasks[id] = t
	s.mu.Unlock()

	go s.run(taskCtx, id, t)

	s.logger.Debug("session attached", "session_id", id, "version", initial.Version)
	return nil
}

// Detach stops the refresh loop for a session view and waits for it to exit.
// Detaching an unattached session is a no-op.
func (s *Synchronizer) Detach(id shared.SessionID) {
	s.mu.Lock()
	t, exists := s.tasks[id]
	if exists {
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	if !exists {
		return
	}

	t.cancel()
	<-t.done
	s.logger.Debug("session detached", "session_id", id)
}

// Snapshot returns the current local view of an attached session. During
// store outages this is the last successfully synchronized state.
func (s *Synchronizer) Snapshot(id shared.SessionID) (*session.HubSession, error) {
	s.mu.RLock()
	t, exists := s.tasks[id]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrNotAttached
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot.Clone(), nil
}

// Attached reports whether a session has a running sync task.
func (s *Synchronizer) Attached(id shared.SessionID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.tasks[id]
	return exists
}

// Close detaches every session. Used on shutdown.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	tasks := make(map[shared.SessionID]*task, len(s.tasks))
	for id, t := range s.tasks {
		tasks[id] = t
	}
	s.tasks = make(map[shared.SessionID]*task)
	s.mu.Unlock()

	for id, t := range tasks {
		t.cancel()
		<-t.done
		s.logger.Debug("session detached", "session_id", id)
	}
}

// run is the per-session refresh loop. The ticker is stopped on every exit
// path.
func (s *Synchronizer) run(ctx context.Context, id shared.SessionID, t *task) {
	defer close(t.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx, id, t)
		}
	}
}

// refresh pulls the authoritative record and replaces the local snapshot
// wholesale. On any failure the previous snapshot is kept untouched.
func (s *Synchronizer) refresh(ctx context.Context, id shared.SessionID, t *task) {
	var fetched *session.HubSession

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		loaded, getErr := s.store.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		fetched = loaded
		return nil
	})
	if err != nil {
		s.logger.Warn("session refresh failed, keeping last known state",
			"session_id", id,
			"breaker_state", s.breaker.State(),
			"error", err,
		)
		return
	}

	t.mu.Lock()
	oldVersion := t.snapshot.Version
	if fetched.Version < oldVersion {
		// A lagging replica handed back an older record than the one already
		// held. Recover silently: keep the newer snapshot and wait for the
		// next tick.
		t.mu.Unlock()
		s.logger.Debug("session refresh discarded",
			"session_id", id,
			"snapshot_version", oldVersion,
			"fetched_version", fetched.Version,
			"reason", shared.ErrStaleRead,
		)
		return
	}
	t.snapshot = fetched.Clone()
	t.mu.Unlock()

	if fetched.Version != oldVersion && s.publisher != nil {
		if pubErr := s.publisher.Publish(shared.NewSessionRefreshedEvent(id, oldVersion, fetched.Version)); pubErr != nil {
			s.logger.Warn("event publish failed", "event_type", shared.EventSessionRefreshed, "error", pubErr)
		}
	}
}
