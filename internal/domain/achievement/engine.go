package achievement

import (
	"fmt"
	"sort"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/session"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONE ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine evaluates achievement predicates against a session snapshot and
// returns the newly unlocked ids. Evaluation is a pure function of the
// snapshot: the engine holds no per-session state. "Already unlocked" lives in
// HubProgressData.UnlockedAchievements, so evaluating the same snapshot twice
// returns an empty delta the second time, and evaluating an older snapshot
// after a newer one cannot re-unlock or revoke anything.
type Engine struct {
	definitions []Definition
}

// NewEngine creates an Engine over the given content.
func NewEngine(content Content) (*Engine, error) {
	defs := content.ListDefinitions()
	seen := make(map[string]bool, len(defs))
	validated := make([]Definition, 0, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if seen[def.ID] {
			return nil, shared.WrapError("achievement", "Load", shared.ErrDuplicateDefinition,
				fmt.Sprintf("achievement id %q defined twice", def.ID), nil)
		}
		seen[def.ID] = true
		validated = append(validated, def)
	}
	return &Engine{definitions: validated}, nil
}

// Evaluate returns the achievement ids whose predicates hold for the snapshot
// and that are not yet recorded as unlocked, sorted ascending for
// deterministic emission order. The caller persists the delta via
// HubSession.RecordAchievements; the engine itself has no side effects.
func (e *Engine) Evaluate(s *session.HubSession) []string {
	if s == nil {
		return nil
	}

	var delta []string
	for _, def := range e.definitions {
		if s.Progress.HasAchievement(def.ID) {
			continue
		}
		if def.Predicate(s) {
			delta = append(delta, def.ID)
		}
	}
	sort.Strings(delta)
	return delta
}

// Definition returns the definition for the given id.
func (e *Engine) Definition(id string) (Definition, bool) {
	for _, def := range e.definitions {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// Definitions returns all definitions the engine evaluates.
func (e *Engine) Definitions() []Definition {
	return append([]Definition(nil), e.definitions...)
}
