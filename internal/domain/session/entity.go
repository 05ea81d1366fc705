package session

import (
	"fmt"
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HUB SESSION
// ══════════════════════════════════════════════════════════════════════════════

// HubSession is the aggregate root tying a learner's progression together
// across all worlds. The durable copy in the session store is the single
// source of truth; in-memory copies held by devices are caches.
type HubSession struct {
	// ID is the server-issued session identifier.
	ID shared.SessionID `json:"id"`

	// AccessCode is the opaque learner-facing code bound 1:1 to this session.
	// Never serialized: the durable store persists it as its own column, and
	// cached or HTTP-served snapshots must not carry the credential.
	AccessCode shared.AccessCode `json:"-"`

	// TenantID identifies the owning organization.
	TenantID shared.TenantID `json:"tenant_id"`

	// CulturalContext selects the theming variant for the rendering layer.
	CulturalContext shared.CulturalContext `json:"cultural_context"`

	// Worlds holds one completion record per world.
	Worlds map[catalog.WorldIndex]*WorldCompletionStatus `json:"worlds"`

	// Progress is the derived hub-level aggregate, recomputed on every
	// mutation. Only the aggregation code in this package writes it.
	Progress HubProgressData `json:"progress"`

	// Version is incremented by the store on every mutate call. Used for
	// lost-update detection; the entity never changes it itself.
	Version int64 `json:"version"`

	// CreatedAt is when the session was first created.
	CreatedAt time.Time `json:"created_at"`

	// LastActivityAt is refreshed on every successful authentication and
	// mutation. External cleanup policies key off this.
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewSessionParams contains parameters for creating a new hub session.
type NewSessionParams struct {
	ID              shared.SessionID
	AccessCode      shared.AccessCode
	TenantID        shared.TenantID
	CulturalContext shared.CulturalContext
}

// NewHubSession creates a fresh session with every world initialized from the
// catalog: worlds without prerequisites start available, the rest locked.
func NewHubSession(params NewSessionParams, cat *catalog.Catalog) (*HubSession, error) {
	if !params.ID.IsValid() {
		return nil, shared.WrapError("session", "Create", shared.ErrInvalidID,
			"session id is not a valid UUID", nil)
	}
	if !params.AccessCode.IsValid() {
		return nil, shared.WrapError("session", "Create", shared.ErrInvalidInput,
			"access code is not usable", nil)
	}
	if !params.TenantID.IsValid() {
		return nil, shared.WrapError("session", "Create", shared.ErrInvalidInput,
			"tenant id must be 2-64 chars", nil)
	}
	if !params.CulturalContext.IsValid() {
		return nil, shared.WrapError("session", "Create", shared.ErrInvalidInput,
			"unknown cultural context", nil)
	}

	worlds := make(map[catalog.WorldIndex]*WorldCompletionStatus, cat.WorldCount())
	for _, idx := range cat.Indices() {
		worlds[idx] = newWorldStatus(idx, StatusLocked)
	}
	for _, idx := range cat.InitiallyAvailable() {
		worlds[idx].Status = StatusAvailable
	}

	now := time.Now().UTC()
	s := &HubSession{
		ID:              params.ID,
		AccessCode:      params.AccessCode,
		TenantID:        params.TenantID,
		CulturalContext: params.CulturalContext,
		Worlds:          worlds,
		Progress:        NewHubProgressData(),
		Version:         1,
		CreatedAt:       now,
		LastActivityAt:  now,
	}
	s.Progress.recompute(s.Worlds, cat.WorldCount())
	return s, nil
}

// Touch refreshes the activity timestamp. This is the liveness signal used by
// external session cleanup policies.
func (s *HubSession) Touch() {
	s.LastActivityAt = time.Now().UTC()
}

// World returns the completion record for the given index.
func (s *HubSession) World(index catalog.WorldIndex) (*WorldCompletionStatus, error) {
	w, ok := s.Worlds[index]
	if !ok {
		return nil, shared.ErrWorldNotFound
	}
	return w, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE MACHINE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// StartWorld moves an available world to in_progress.
// Starting a world that is already in progress is a no-op: a second device
// with a slightly stale view must not fail a world the learner is playing.
// Starting a locked world fails with ErrWorldLocked regardless of what any
// cached UI believed. Starting a completed world requires an explicit replay.
func (s *HubSession) StartWorld(index catalog.WorldIndex) error {
	w, err := s.World(index)
	if err != nil {
		return err
	}

	switch w.Status {
	case StatusAvailable:
		w.Status = StatusInProgress
	case StatusInProgress:
		// Already started from another device.
	case StatusLocked:
		return shared.ErrWorldLocked
	case StatusCompleted:
		return shared.WrapError("session", "StartWorld", shared.ErrStateTransition,
			fmt.Sprintf("world %d already completed, replay must be explicit", index), nil)
	}

	s.Touch()
	return nil
}

// ReplayWorld explicitly re-enters a completed world. Previously recorded
// achievements and competencies are monotonic and stay untouched; the
// retained score is governed by the max policy once the replay completes.
// The world keeps counting as completed for prerequisites and progress
// totals while the replay runs.
func (s *HubSession) ReplayWorld(index catalog.WorldIndex) error {
	w, err := s.World(index)
	if err != nil {
		return err
	}

	if w.Status != StatusCompleted {
		return shared.WrapError("session", "ReplayWorld", shared.ErrStateTransition,
			fmt.Sprintf("world %d is %s, only completed worlds can be replayed", index, w.Status), nil)
	}

	w.Status = StatusInProgress
	s.Progress.recompute(s.Worlds, len(s.Worlds))
	s.Touch()
	return nil
}

// CompletionOutcome describes the effect of one completion submission.
type CompletionOutcome struct {
	// WorldIndex is the completed world.
	WorldIndex catalog.WorldIndex

	// SubmittedScore is the score carried by this attempt.
	SubmittedScore int

	// RetainedScore is the score retained after the max policy.
	RetainedScore int

	// NewlyAvailable lists worlds unlocked by this completion, ascending.
	NewlyAvailable []catalog.WorldIndex

	// Progress is the hub aggregate after the completion.
	Progress HubProgressData
}

// CompleteWorld records a finished attempt for an in_progress world and
// recomputes downstream unlocks and the hub aggregate.
//
// A completion arriving for an already-completed world is accepted too: when
// two devices race, the second submission to reach the store still lands, the
// status stays completed and the retained score follows the max policy rather
// than last-write-wins.
func (s *HubSession) CompleteWorld(cat *catalog.Catalog, index catalog.WorldIndex, result WorldResult) (*CompletionOutcome, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	w, err := s.World(index)
	if err != nil {
		return nil, err
	}

	switch w.Status {
	case StatusInProgress, StatusCompleted:
		// Accepted; see the race note above.
	default:
		return nil, shared.WrapError("session", "CompleteWorld", shared.ErrWorldNotStarted,
			fmt.Sprintf("world %d is %s, expected in_progress", index, w.Status), nil)
	}

	w.Status = StatusCompleted
	w.applyResult(result)

	unlocked := s.recomputeUnlocks(cat)
	s.Progress.recompute(s.Worlds, cat.WorldCount())
	s.Touch()

	return &CompletionOutcome{
		WorldIndex:     index,
		SubmittedScore: result.Score,
		RetainedScore:  w.Score,
		NewlyAvailable: unlocked,
		Progress:       s.Progress,
	}, nil
}

// recomputeUnlocks walks every locked world and promotes those whose
// prerequisites are now all completed. Runs after every completion event, not
// only at session creation, because prerequisites can complete out of order
// across devices. Returns the newly available indices in ascending order.
func (s *HubSession) recomputeUnlocks(cat *catalog.Catalog) []catalog.WorldIndex {
	completed := make(map[catalog.WorldIndex]bool, len(s.Worlds))
	for idx, w := range s.Worlds {
		if w.IsCompleted() {
			completed[idx] = true
		}
	}

	var unlocked []catalog.WorldIndex
	for _, idx := range cat.Indices() {
		w := s.Worlds[idx]
		if w == nil || w.Status != StatusLocked {
			continue
		}
		def, ok := cat.Definition(idx)
		if !ok {
			continue
		}
		if def.RequiresAll(completed) {
			w.Status = StatusAvailable
			unlocked = append(unlocked, idx)
		}
	}
	return unlocked
}

// RecordAchievements merges newly unlocked hub achievements into the
// aggregate. The set only grows; re-recording an id is a no-op.
func (s *HubSession) RecordAchievements(ids []string) {
	if len(ids) == 0 {
		return
	}
	s.Progress.UnlockedAchievements = mergeStringSets(s.Progress.UnlockedAchievements, ids)
	s.Touch()
}

// Clone creates a deep copy of the session. Cached copies handed to callers
// are always clones so that no device mutates shared memory directly.
func (s *HubSession) Clone() *HubSession {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Worlds = make(map[catalog.WorldIndex]*WorldCompletionStatus, len(s.Worlds))
	for idx, w := range s.Worlds {
		clone.Worlds[idx] = w.Clone()
	}
	clone.Progress = s.Progress.Clone()
	return &clone
}

// String returns a short representation for logging. The access code is
// intentionally absent.
func (s *HubSession) String() string {
	return fmt.Sprintf("HubSession{ID: %s, Tenant: %s, Score: %d, Completed: %d/%d, Version: %d}",
		s.ID, s.TenantID, s.Progress.TotalScore, s.Progress.CompletedWorlds, len(s.Worlds), s.Version)
}
