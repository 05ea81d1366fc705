package session

import (
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// HUB PROGRESS DATA
// ══════════════════════════════════════════════════════════════════════════════

// HubProgressData is the derived hub-level aggregate cached on the session.
// It is recomputed from the per-world records after every mutation; the
// aggregation code in this package is its only writer.
type HubProgressData struct {
	// TotalScore is the sum of each world's retained score. Worlds still
	// locked or available contribute zero.
	TotalScore int `json:"total_score"`

	// TotalTimeSpentMs sums time across all attempts of all worlds. Replays
	// accumulate time rather than resetting it: time spent is a usage
	// metric, not a best-effort metric.
	TotalTimeSpentMs int64 `json:"total_time_spent_ms"`

	// CompletedWorlds counts worlds currently in the completed state.
	CompletedWorlds int `json:"completed_worlds"`

	// CompletionPercentage is completed worlds over total worlds, 0-100,
	// independent of per-world scores.
	CompletionPercentage int `json:"completion_percentage"`

	// UnlockedAchievements is the hub-scoped, monotonically growing set of
	// unlocked achievement ids. Written via HubSession.RecordAchievements.
	UnlockedAchievements []string `json:"unlocked_achievements,omitempty"`
}

// NewHubProgressData returns a zeroed aggregate.
func NewHubProgressData() HubProgressData {
	return HubProgressData{}
}

// recompute rebuilds the derived fields from the per-world records.
// UnlockedAchievements is monotonic state, not derived, so it is preserved.
func (p *HubProgressData) recompute(worlds map[catalog.WorldIndex]*WorldCompletionStatus, worldCount int) {
	totalScore := 0
	var totalTime int64
	completed := 0
	for _, w := range worlds {
		totalScore += w.Score
		totalTime += w.TimeSpentMs
		if w.IsCompleted() {
			completed++
		}
	}

	p.TotalScore = totalScore
	p.TotalTimeSpentMs = totalTime
	p.CompletedWorlds = completed
	if worldCount > 0 {
		p.CompletionPercentage = completed * 100 / worldCount
	} else {
		p.CompletionPercentage = 0
	}
}

// HasAchievement reports whether the hub-scoped achievement is unlocked.
func (p HubProgressData) HasAchievement(id string) bool {
	for _, a := range p.UnlockedAchievements {
		if a == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the aggregate.
func (p HubProgressData) Clone() HubProgressData {
	clone := p
	clone.UnlockedAchievements = append([]string(nil), p.UnlockedAchievements...)
	return clone
}
