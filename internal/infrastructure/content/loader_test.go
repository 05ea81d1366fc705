package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/achievement"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/catalog"
	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

const catalogYAML = `
worlds:
  - index: 1
    title:
      kk: "Сандар әлемі"
      en: "World of Numbers"
    description:
      en: "Counting and comparing"
    difficulty: 1
    estimated_duration: 30m
  - index: 2
    prerequisites: [1]
    title:
      en: "World of Shapes"
    difficulty: 2
    estimated_duration: 45m
`

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)

	assert.Equal(t, 2, cat.WorldCount())
	assert.Equal(t, []catalog.WorldIndex{1}, cat.InitiallyAvailable())

	def, ok := cat.Definition(1)
	require.True(t, ok)
	assert.Equal(t, "Сандар әлемі", def.Title.Resolve(shared.LocaleKazakh))
	assert.Equal(t, "World of Numbers", def.Title.Resolve(shared.LocaleEnglish))

	def, ok = cat.Definition(2)
	require.True(t, ok)
	assert.Equal(t, []catalog.WorldIndex{1}, def.Prerequisites)
}

func TestParseCatalogErrors(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseCatalog([]byte("worlds: [broken"))
		assert.ErrorIs(t, err, shared.ErrCatalogInvalid)
	})

	t.Run("no worlds", func(t *testing.T) {
		_, err := ParseCatalog([]byte("worlds: []"))
		assert.ErrorIs(t, err, shared.ErrCatalogInvalid)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := ParseCatalog([]byte(`
worlds:
  - index: 1
    title:
      en: "X"
    difficulty: 1
    estimated_duration: half-an-hour
`))
		assert.ErrorIs(t, err, shared.ErrCatalogInvalid)
	})

	t.Run("unknown prerequisite", func(t *testing.T) {
		_, err := ParseCatalog([]byte(`
worlds:
  - index: 1
    prerequisites: [9]
    title:
      en: "X"
    difficulty: 1
`))
		assert.ErrorIs(t, err, shared.ErrInvalidPrerequisite)
	})
}

const achievementsYAML = `
achievements:
  - id: explorer
    title:
      kk: "Зерттеуші"
      en: "Explorer"
    condition:
      kind: worlds_completed_at_least
      threshold: 1
  - id: sharp_mind
    title:
      en: "Sharp Mind"
    condition:
      kind: world_score_at_least
      world: 2
      threshold: 90
  - id: marathoner
    title:
      en: "Marathoner"
    condition:
      kind: total_time_at_least_ms
      threshold_ms: 7200000
`

func TestParseAchievements(t *testing.T) {
	content, err := ParseAchievements([]byte(achievementsYAML))
	require.NoError(t, err)

	defs := content.ListDefinitions()
	require.Len(t, defs, 3)

	// Definitions parse into a working engine.
	engine, err := achievement.NewEngine(content)
	require.NoError(t, err)

	def, ok := engine.Definition("explorer")
	require.True(t, ok)
	assert.Equal(t, "Зерттеуші", def.Title.Resolve(shared.LocaleKazakh))
}

func TestParseAchievementsErrors(t *testing.T) {
	t.Run("unknown condition kind", func(t *testing.T) {
		_, err := ParseAchievements([]byte(`
achievements:
  - id: mystery
    title:
      en: "Mystery"
    condition:
      kind: aligned_stars
`))
		assert.Error(t, err)
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := ParseAchievements([]byte(`
achievements:
  - id: untitled
    condition:
      kind: all_worlds_completed
`))
		assert.Error(t, err)
	})
}
