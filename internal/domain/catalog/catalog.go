package catalog

import (
	"fmt"
	"time"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

// DefaultWorldCount is the number of worlds the shipped content defines.
const DefaultWorldCount = 5

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog is the read-only registry of world definitions. It is safe for
// concurrent use: all state is fixed at construction time.
type Catalog struct {
	worlds     map[WorldIndex]WorldDefinition
	dependents map[WorldIndex][]WorldIndex
	count      int
}

// New builds a Catalog from the given definitions and validates the whole
// prerequisite graph: indices must be contiguous from 1, prerequisites must
// reference known worlds, and the graph must be acyclic.
func New(defs []WorldDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, shared.WrapError("catalog", "Load", shared.ErrEmptyValue,
			"catalog must define at least one world", nil)
	}

	worlds := make(map[WorldIndex]WorldDefinition, len(defs))
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := worlds[def.Index]; exists {
			return nil, shared.WrapError("catalog", "Load", shared.ErrAlreadyExists,
				fmt.Sprintf("duplicate world index %d", def.Index), nil)
		}
		worlds[def.Index] = def.Clone()
	}

	// Indices must form 1..N without gaps.
	for i := 1; i <= len(worlds); i++ {
		if _, ok := worlds[WorldIndex(i)]; !ok {
			return nil, shared.WrapError("catalog", "Load", shared.ErrCatalogInvalid,
				fmt.Sprintf("world indices are not contiguous, missing %d", i), nil)
		}
	}

	// Prerequisites must reference known worlds.
	dependents := make(map[WorldIndex][]WorldIndex, len(worlds))
	for _, def := range worlds {
		for _, p := range def.Prerequisites {
			if _, ok := worlds[p]; !ok {
				return nil, shared.ErrInvalidPrerequisite
			}
			dependents[p] = append(dependents[p], def.Index)
		}
	}
	for _, deps := range dependents {
		sortIndices(deps)
	}

	c := &Catalog{
		worlds:     worlds,
		dependents: dependents,
		count:      len(worlds),
	}
	if err := c.checkAcyclic(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkAcyclic runs a depth-first search over the prerequisite graph.
func (c *Catalog) checkAcyclic() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[WorldIndex]int, c.count)

	var visit func(idx WorldIndex) error
	visit = func(idx WorldIndex) error {
		switch state[idx] {
		case visiting:
			return shared.WrapError("catalog", "Load", shared.ErrCatalogInvalid,
				fmt.Sprintf("prerequisite cycle through world %d", idx), nil)
		case done:
			return nil
		}
		state[idx] = visiting
		for _, p := range c.worlds[idx].Prerequisites {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[idx] = done
		return nil
	}

	for idx := range c.worlds {
		if err := visit(idx); err != nil {
			return err
		}
	}
	return nil
}

// Definition returns the world definition for the given index.
func (c *Catalog) Definition(index WorldIndex) (WorldDefinition, bool) {
	def, ok := c.worlds[index]
	if !ok {
		return WorldDefinition{}, false
	}
	return def.Clone(), true
}

// WorldCount returns the number of worlds in the catalog.
func (c *Catalog) WorldCount() int {
	return c.count
}

// Indices returns all world indices in ascending order.
func (c *Catalog) Indices() []WorldIndex {
	indices := make([]WorldIndex, 0, c.count)
	for i := 1; i <= c.count; i++ {
		indices = append(indices, WorldIndex(i))
	}
	return indices
}

// DependentsOf returns the worlds that list the given index as a prerequisite,
// in ascending order. Used for unlock recomputation after a completion.
func (c *Catalog) DependentsOf(index WorldIndex) []WorldIndex {
	return append([]WorldIndex(nil), c.dependents[index]...)
}

// InitiallyAvailable returns the worlds with no prerequisites. These start as
// available in every fresh session; everything else starts locked.
func (c *Catalog) InitiallyAvailable() []WorldIndex {
	var indices []WorldIndex
	for i := 1; i <= c.count; i++ {
		if len(c.worlds[WorldIndex(i)].Prerequisites) == 0 {
			indices = append(indices, WorldIndex(i))
		}
	}
	return indices
}

// ══════════════════════════════════════════════════════════════════════════════
// DEFAULT CONTENT
// ══════════════════════════════════════════════════════════════════════════════

// Default returns the shipped five-world catalog: a linear journey with one
// branching pair in the middle. Used when no content file is configured and
// by tests that need a realistic prerequisite graph.
func Default() *Catalog {
	defs := []WorldDefinition{
		{
			Index: 1,
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Дала әлемі",
				shared.LocaleRussian: "Мир степи",
				shared.LocaleEnglish: "World of the Steppe",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Негізгі ұғымдармен танысу",
				shared.LocaleRussian: "Знакомство с основными понятиями",
				shared.LocaleEnglish: "Introduction to the core concepts",
			},
			Difficulty:        1,
			EstimatedDuration: 20 * time.Minute,
		},
		{
			Index:         2,
			Prerequisites: []WorldIndex{1},
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Жібек жолы",
				shared.LocaleRussian: "Шёлковый путь",
				shared.LocaleEnglish: "The Silk Road",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Құжаттарды сұрыптау және талдау",
				shared.LocaleRussian: "Сортировка и разбор документов",
				shared.LocaleEnglish: "Sorting and analysing documents",
			},
			Difficulty:        2,
			EstimatedDuration: 25 * time.Minute,
		},
		{
			Index:         3,
			Prerequisites: []WorldIndex{1},
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Алтай тауы",
				shared.LocaleRussian: "Гора Алтай",
				shared.LocaleEnglish: "Altai Mountain",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Сұрақ-жауап сынағы",
				shared.LocaleRussian: "Испытание вопросами",
				shared.LocaleEnglish: "The question trial",
			},
			Difficulty:        3,
			EstimatedDuration: 25 * time.Minute,
		},
		{
			Index:         4,
			Prerequisites: []WorldIndex{2, 3},
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Көшпенділер мұрасы",
				shared.LocaleRussian: "Наследие кочевников",
				shared.LocaleEnglish: "Nomad Legacy",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Білімді біріктіру",
				shared.LocaleRussian: "Объединение знаний",
				shared.LocaleEnglish: "Bringing knowledge together",
			},
			Difficulty:        4,
			EstimatedDuration: 30 * time.Minute,
		},
		{
			Index:         5,
			Prerequisites: []WorldIndex{4},
			Title: shared.LocalizedText{
				shared.LocaleKazakh:  "Ұлы дала қорытындысы",
				shared.LocaleRussian: "Финал великой степи",
				shared.LocaleEnglish: "The Great Steppe Finale",
			},
			Description: shared.LocalizedText{
				shared.LocaleKazakh:  "Қорытынды сынақ",
				shared.LocaleRussian: "Финальное испытание",
				shared.LocaleEnglish: "The final trial",
			},
			Difficulty:        5,
			EstimatedDuration: 40 * time.Minute,
		},
	}

	c, err := New(defs)
	if err != nil {
		// Shipped content is validated by tests; reaching this is a build defect.
		panic(err)
	}
	return c
}
