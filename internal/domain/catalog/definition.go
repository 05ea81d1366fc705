// Package catalog contains the static world catalog: immutable definitions of
// the gated learning modules ("worlds") and their prerequisite graph.
// Definitions are loaded once at startup and never mutated afterwards.
package catalog

import (
	"sort"
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// WorldIndex identifies a world within the hub (1-based).
type WorldIndex int

// IsValid checks that the index is positive.
func (w WorldIndex) IsValid() bool {
	return w > 0
}

// Int returns the underlying int value.
func (w WorldIndex) Int() int {
	return int(w)
}

// Difficulty rates a world from 1 (easiest) to 5 (hardest).
type Difficulty int

// IsValid checks that the difficulty is within 1-5.
func (d Difficulty) IsValid() bool {
	return d >= 1 && d <= 5
}

// ══════════════════════════════════════════════════════════════════════════════
// WORLD DEFINITION
// ══════════════════════════════════════════════════════════════════════════════

// WorldDefinition describes one world. Instances are immutable after load;
// callers receive copies with cloned collections.
type WorldDefinition struct {
	// Index is the 1-based position of the world.
	Index WorldIndex

	// Prerequisites lists the world indices that must all be completed before
	// this world becomes available. Empty means available from session start.
	Prerequisites []WorldIndex

	// Title is the locale-keyed display title.
	Title shared.LocalizedText

	// Description is the locale-keyed description.
	Description shared.LocalizedText

	// Difficulty rates the world from 1 to 5.
	Difficulty Difficulty

	// EstimatedDuration is the expected time to finish the world once.
	EstimatedDuration time.Duration
}

// Validate checks the definition in isolation. Graph-level checks (unknown or
// cyclic prerequisites) are done by the Catalog.
func (d WorldDefinition) Validate() error {
	if !d.Index.IsValid() {
		return shared.ErrInvalidWorldIndex
	}
	if !d.Difficulty.IsValid() {
		return shared.WrapError("catalog", "Validate", shared.ErrValueOutOfRange,
			"difficulty must be between 1 and 5", nil)
	}
	if len(d.Title) == 0 {
		return shared.WrapError("catalog", "Validate", shared.ErrEmptyValue,
			"world title must have at least one locale", nil)
	}
	if d.EstimatedDuration < 0 {
		return shared.WrapError("catalog", "Validate", shared.ErrNegativeValue,
			"estimated duration cannot be negative", nil)
	}
	seen := make(map[WorldIndex]bool, len(d.Prerequisites))
	for _, p := range d.Prerequisites {
		if !p.IsValid() || p == d.Index {
			return shared.ErrInvalidPrerequisite
		}
		if seen[p] {
			return shared.ErrInvalidPrerequisite
		}
		seen[p] = true
	}
	return nil
}

// RequiresAll reports whether every prerequisite index is present in the
// given completed set.
func (d WorldDefinition) RequiresAll(completed map[WorldIndex]bool) bool {
	for _, p := range d.Prerequisites {
		if !completed[p] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the definition.
func (d WorldDefinition) Clone() WorldDefinition {
	clone := d
	clone.Prerequisites = append([]WorldIndex(nil), d.Prerequisites...)
	clone.Title = d.Title.Clone()
	clone.Description = d.Description.Clone()
	return clone
}

// sortIndices sorts a slice of world indices ascending.
func sortIndices(indices []WorldIndex) {
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
}
