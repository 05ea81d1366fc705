package content

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/achievement"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT CONTENT LOADER
// ══════════════════════════════════════════════════════════════════════════════

// Condition kinds accepted in achievement content files. Each kind maps onto
// one of the predicate constructors in the achievement package.
const (
	conditionTotalScore      = "total_score_at_least"
	conditionWorldsCompleted = "worlds_completed_at_least"
	conditionAllWorlds       = "all_worlds_completed"
	conditionWorldCompleted  = "world_completed"
	conditionWorldScore      = "world_score_at_least"
	conditionTotalTime       = "total_time_at_least_ms"
	conditionReplayed        = "replayed_any_world"
)

// achievementsFile mirrors the YAML layout of an achievement content file.
type achievementsFile struct {
	Achievements []achievementEntry `yaml:"achievements"`
}

type achievementEntry struct {
	ID          string            `yaml:"id"`
	Title       map[string]string `yaml:"title"`
	Description map[string]string `yaml:"description"`
	Condition   conditionEntry    `yaml:"condition"`
}

type conditionEntry struct {
	Kind        string `yaml:"kind"`
	World       int    `yaml:"world"`
	Threshold   int    `yaml:"threshold"`
	ThresholdMs int64  `yaml:"threshold_ms"`
}

// FileContent is an achievement.Content backed by definitions parsed from a
// YAML file.
type FileContent struct {
	definitions []achievement.Definition
}

// ListDefinitions returns the parsed achievement definitions.
func (c *FileContent) ListDefinitions() []achievement.Definition {
	return c.definitions
}

// LoadAchievements parses achievement definitions from a YAML file.
func LoadAchievements(path string) (*FileContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.WrapError("content", "LoadAchievements", shared.ErrValidation,
			fmt.Sprintf("reading achievements file %s", path), err)
	}
	return ParseAchievements(data)
}

// ParseAchievements parses achievement definitions from YAML bytes.
func ParseAchievements(data []byte) (*FileContent, error) {
	var file achievementsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("content", "ParseAchievements", shared.ErrValidation,
			"parsing achievements yaml", err)
	}

	defs := make([]achievement.Definition, 0, len(file.Achievements))
	for _, entry := range file.Achievements {
		predicate, err := entry.Condition.toPredicate(entry.ID)
		if err != nil {
			return nil, err
		}

		def := achievement.Definition{
			ID:          entry.ID,
			Predicate:   predicate,
			Title:       toLocalizedText(entry.Title),
			Description: toLocalizedText(entry.Description),
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return &FileContent{definitions: defs}, nil
}

func (c conditionEntry) toPredicate(achievementID string) (achievement.Predicate, error) {
	switch c.Kind {
	case conditionTotalScore:
		return achievement.TotalScoreAtLeast(c.Threshold), nil
	case conditionWorldsCompleted:
		return achievement.WorldsCompletedAtLeast(c.Threshold), nil
	case conditionAllWorlds:
		return achievement.AllWorldsCompleted(), nil
	case conditionWorldCompleted:
		return achievement.WorldCompleted(catalog.WorldIndex(c.World)), nil
	case conditionWorldScore:
		return achievement.WorldScoreAtLeast(catalog.WorldIndex(c.World), c.Threshold), nil
	case conditionTotalTime:
		return achievement.TotalTimeAtLeastMs(c.ThresholdMs), nil
	case conditionReplayed:
		return achievement.ReplayedAnyWorld(), nil
	default:
		return nil, shared.WrapError("content", "ParseAchievements", shared.ErrValidation,
			fmt.Sprintf("achievement %s has unknown condition kind %q", achievementID, c.Kind), nil)
	}
}
