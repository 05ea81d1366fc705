// Package session contains the hub session aggregate: per-world progression
// state, score aggregation, and the store contract that keeps multiple devices
// convergent. All conflict resolution (max-retained scores, monotonic
// achievements, prerequisite recomputation) lives here, behind the store's
// atomic mutate contract; clients never merge state themselves.
package session

import (
	"sort"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// WORLD STATUS
// ══════════════════════════════════════════════════════════════════════════════

// WorldStatus is the progression state of one world within a session.
type WorldStatus string

const (
	// StatusLocked - prerequisites not yet satisfied.
	StatusLocked WorldStatus = "locked"
	// StatusAvailable - unlocked but never started.
	StatusAvailable WorldStatus = "available"
	// StatusInProgress - explicitly started, not yet completed.
	StatusInProgress WorldStatus = "in_progress"
	// StatusCompleted - finished at least once.
	StatusCompleted WorldStatus = "completed"
)

// IsValid checks that the status is one of the defined values.
func (s WorldStatus) IsValid() bool {
	switch s {
	case StatusLocked, StatusAvailable, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the status may advance to the target.
// The only backward edge is completed -> in_progress, the explicit replay.
func (s WorldStatus) CanTransitionTo(target WorldStatus) bool {
	switch s {
	case StatusLocked:
		return target == StatusAvailable
	case StatusAvailable:
		return target == StatusInProgress
	case StatusInProgress:
		return target == StatusCompleted
	case StatusCompleted:
		return target == StatusInProgress
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WORLD COMPLETION STATUS
// ══════════════════════════════════════════════════════════════════════════════

// WorldCompletionStatus tracks one world's progression within a session.
// Invariant: while Status is locked, every other field stays at its zero value.
// Score and CompletionPercentage hold the maximum ever recorded across
// attempts; TimeSpentMs accumulates across attempts; Achievements and
// Competencies only grow.
type WorldCompletionStatus struct {
	WorldIndex           catalog.WorldIndex `json:"world_index"`
	Status               WorldStatus        `json:"status"`
	Score                int                `json:"score"`
	CompletionPercentage int                `json:"completion_percentage"`
	TimeSpentMs          int64              `json:"time_spent_ms"`
	Achievements         []string           `json:"achievements,omitempty"`
	Competencies         []string           `json:"competencies,omitempty"`
	Attempts             int                `json:"attempts"`
}

// newWorldStatus returns the zeroed record for a world in the given state.
func newWorldStatus(index catalog.WorldIndex, status WorldStatus) *WorldCompletionStatus {
	return &WorldCompletionStatus{
		WorldIndex: index,
		Status:     status,
	}
}

// IsCompleted reports whether the world has been completed at least once.
// A replay in progress still counts: Attempts only increments on completion,
// so an in_progress world with recorded attempts must have reached completed
// before, and completion stays sticky for prerequisites and progress totals.
func (w *WorldCompletionStatus) IsCompleted() bool {
	if w.Status == StatusCompleted {
		return true
	}
	return w.Status == StatusInProgress && w.Attempts > 0
}

// applyResult folds one attempt's result into the record under the retention
// policy: max score, max completion percentage, additive time, union sets.
func (w *WorldCompletionStatus) applyResult(result WorldResult) {
	if result.Score > w.Score {
		w.Score = result.Score
	}
	if result.CompletionPercentage > w.CompletionPercentage {
		w.CompletionPercentage = result.CompletionPercentage
	}
	w.TimeSpentMs += result.TimeSpentMs
	w.Achievements = mergeStringSets(w.Achievements, result.Achievements)
	w.Competencies = mergeStringSets(w.Competencies, result.Competencies)
	w.Attempts++
}

// Clone returns a deep copy of the record.
func (w *WorldCompletionStatus) Clone() *WorldCompletionStatus {
	if w == nil {
		return nil
	}
	clone := *w
	clone.Achievements = append([]string(nil), w.Achievements...)
	clone.Competencies = append([]string(nil), w.Competencies...)
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// WORLD RESULT
// ══════════════════════════════════════════════════════════════════════════════

// WorldResult is the payload carried by a "complete world" request. The
// grading that produced it belongs to the module content, not to the hub.
type WorldResult struct {
	Score                int      `json:"score"`
	CompletionPercentage int      `json:"completion_percentage"`
	TimeSpentMs          int64    `json:"time_spent_ms"`
	Achievements         []string `json:"achievements,omitempty"`
	Competencies         []string `json:"competencies,omitempty"`
}

// Validate checks the result payload.
func (r WorldResult) Validate() error {
	if r.Score < 0 {
		return shared.WrapError("session", "CompleteWorld", shared.ErrNegativeValue,
			"score cannot be negative", nil)
	}
	if r.CompletionPercentage < 0 || r.CompletionPercentage > 100 {
		return shared.WrapError("session", "CompleteWorld", shared.ErrValueOutOfRange,
			"completion percentage must be between 0 and 100", nil)
	}
	if r.TimeSpentMs < 0 {
		return shared.WrapError("session", "CompleteWorld", shared.ErrNegativeValue,
			"time spent cannot be negative", nil)
	}
	return nil
}

// mergeStringSets unions two string sets, keeping deterministic sorted order.
func mergeStringSets(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	set := make(map[string]bool, len(base)+len(extra))
	for _, s := range base {
		set[s] = true
	}
	for _, s := range extra {
		if s != "" {
			set[s] = true
		}
	}
	merged := make([]string, 0, len(set))
	for s := range set {
		merged = append(merged, s)
	}
	sort.Strings(merged)
	return merged
}
