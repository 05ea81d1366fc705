// Package achievement contains achievement definitions and the milestone
// engine that evaluates unlock predicates against aggregated hub progress.
// Definitions are external content; the engine only evaluates predicates and
// enforces at-most-once emission per (session, achievement) pair.
package achievement

import (
	"fmt"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// Predicate decides whether an achievement's unlock condition holds for the
// given session snapshot. Predicates must be pure: same snapshot, same answer.
type Predicate func(s *session.HubSession) bool

// Definition describes one achievement: a stable id, an unlock predicate, and
// locale-keyed display text resolved by the rendering collaborator.
type Definition struct {
	// ID is the stable achievement identifier, e.g. "first_world".
	ID string

	// Predicate is the unlock condition over aggregated progress.
	Predicate Predicate

	// Title is the locale-keyed display title.
	Title shared.LocalizedText

	// Description is the locale-keyed description.
	Description shared.LocalizedText
}

// Validate checks the definition.
func (d Definition) Validate() error {
	if d.ID == "" {
		return shared.WrapError("achievement", "Validate", shared.ErrEmptyValue,
			"achievement id is required", nil)
	}
	if d.Predicate == nil {
		return shared.ErrNilPredicate
	}
	if len(d.Title) == 0 {
		return shared.WrapError("achievement", "Validate", shared.ErrEmptyValue,
			fmt.Sprintf("achievement %s has no title", d.ID), nil)
	}
	return nil
}

// Content supplies achievement definitions. Implementations load them from
// shipped content files or return the built-in set.
type Content interface {
	// ListDefinitions returns every achievement definition.
	ListDefinitions() []Definition
}

// ══════════════════════════════════════════════════════════════════════════════
// PREDICATE CONSTRUCTORS
// Content files reference these by condition kind; they are also the
// vocabulary for the built-in set.
// ══════════════════════════════════════════════════════════════════════════════

// TotalScoreAtLeast unlocks once the hub total score reaches the threshold.
func TotalScoreAtLeast(threshold int) Predicate {
	return func(s *session.HubSession) bool {
		return s.Progress.TotalScore >= threshold
	}
}

// WorldsCompletedAtLeast unlocks once the given number of worlds is completed.
func WorldsCompletedAtLeast(count int) Predicate {
	return func(s *session.HubSession) bool {
		return s.Progress.CompletedWorlds >= count
	}
}

// AllWorldsCompleted unlocks once every world in the session is completed.
func AllWorldsCompleted() Predicate {
	return func(s *session.HubSession) bool {
		return len(s.Worlds) > 0 && s.Progress.CompletedWorlds == len(s.Worlds)
	}
}

// WorldCompleted unlocks once a specific world is completed.
func WorldCompleted(index catalog.WorldIndex) Predicate {
	return func(s *session.HubSession) bool {
		w, ok := s.Worlds[index]
		return ok && w.IsCompleted()
	}
}

// WorldScoreAtLeast unlocks once a specific world's retained score reaches
// the threshold.
func WorldScoreAtLeast(index catalog.WorldIndex, threshold int) Predicate {
	return func(s *session.HubSession) bool {
		w, ok := s.Worlds[index]
		return ok && w.Score >= threshold
	}
}

// TotalTimeAtLeastMs unlocks once accumulated time across all attempts
// reaches the threshold.
func TotalTimeAtLeastMs(thresholdMs int64) Predicate {
	return func(s *session.HubSession) bool {
		return s.Progress.TotalTimeSpentMs >= thresholdMs
	}
}

// ReplayedAnyWorld unlocks once any world has been attempted more than once.
func ReplayedAnyWorld() Predicate {
	return func(s *session.HubSession) bool {
		for _, w := range s.Worlds {
			if w.Attempts > 1 {
				return true
			}
		}
		return false
	}
}
