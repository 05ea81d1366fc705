package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

func testDefinition(index int, prereqs ...int) WorldDefinition {
	p := make([]WorldIndex, 0, len(prereqs))
	for _, v := range prereqs {
		p = append(p, WorldIndex(v))
	}
	return WorldDefinition{
		Index:         WorldIndex(index),
		Prerequisites: p,
		Title:         shared.LocalizedText{shared.LocaleEnglish: "World"},
		Difficulty:    1,
	}
}

func TestDefaultCatalog(t *testing.T) {
	cat := Default()

	assert.Equal(t, DefaultWorldCount, cat.WorldCount())

	// Only the first world is reachable from a fresh session.
	assert.Equal(t, []WorldIndex{1}, cat.InitiallyAvailable())

	def, ok := cat.Definition(1)
	require.True(t, ok)
	assert.Empty(t, def.Prerequisites)

	// Every default world has a Kazakh title.
	for _, idx := range cat.Indices() {
		def, ok := cat.Definition(idx)
		require.True(t, ok)
		assert.NotEmpty(t, def.Title.Resolve(shared.LocaleKazakh), "world %d", idx)
	}
}

func TestCatalogValidation(t *testing.T) {
	t.Run("valid linear chain", func(t *testing.T) {
		cat, err := New([]WorldDefinition{
			testDefinition(1),
			testDefinition(2, 1),
			testDefinition(3, 2),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, cat.WorldCount())
	})

	t.Run("non-contiguous indices rejected", func(t *testing.T) {
		_, err := New([]WorldDefinition{
			testDefinition(1),
			testDefinition(3, 1),
		})
		assert.ErrorIs(t, err, shared.ErrCatalogInvalid)
	})

	t.Run("unknown prerequisite rejected", func(t *testing.T) {
		_, err := New([]WorldDefinition{
			testDefinition(1),
			testDefinition(2, 7),
		})
		assert.ErrorIs(t, err, shared.ErrInvalidPrerequisite)
	})

	t.Run("duplicate index rejected", func(t *testing.T) {
		_, err := New([]WorldDefinition{
			testDefinition(1),
			testDefinition(1),
		})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("cycle rejected", func(t *testing.T) {
		_, err := New([]WorldDefinition{
			testDefinition(1, 3),
			testDefinition(2, 1),
			testDefinition(3, 2),
		})
		assert.ErrorIs(t, err, shared.ErrCatalogInvalid)
	})

	t.Run("empty catalog rejected", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})
}

func TestDependentsOf(t *testing.T) {
	cat := Default()

	// Worlds 2 and 3 both require world 1.
	assert.Equal(t, []WorldIndex{2, 3}, cat.DependentsOf(1))

	// World 5 is the last one, nothing depends on it.
	assert.Empty(t, cat.DependentsOf(5))
}

func TestRequiresAll(t *testing.T) {
	def := testDefinition(4, 2, 3)

	assert.False(t, def.RequiresAll(map[WorldIndex]bool{2: true}))
	assert.False(t, def.RequiresAll(map[WorldIndex]bool{3: true}))
	assert.True(t, def.RequiresAll(map[WorldIndex]bool{2: true, 3: true}))
}

func TestDefinitionClone(t *testing.T) {
	def := testDefinition(2, 1)
	clone := def.Clone()

	clone.Prerequisites[0] = 99
	assert.Equal(t, WorldIndex(1), def.Prerequisites[0])
}
