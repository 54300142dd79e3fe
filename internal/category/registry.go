package category

import (
	"fmt"
	"sort"
	"strings"

	"ETFRanker/internal/domain"
	"ETFRanker/internal/ranking"
)

// Category binds an identifier to the recipe behind its ranked list and the
// editorial picks shown in its recommendation section.
type Category struct {
	ID       string
	Title    string
	Criteria ranking.FilterCriteria
	Picks    []domain.EditorialTemplate
}

// Registry keeps a mapping from category ids to their definitions.
// It is populated once by NewRegistry and never mutated afterwards.
type Registry struct {
	categories map[string]Category
	ids        []string
}

// NewRegistry validates every category up front so that a bad recipe fails the
// process at startup rather than a render.
func NewRegistry(categories ...Category) (*Registry, error) {
	reg := &Registry{categories: make(map[string]Category, len(categories))}

	for _, cat := range categories {
		id := strings.TrimSpace(cat.ID)
		if id == "" {
			return nil, domain.NewConfigurationError("category", "empty category id")
		}
		if _, exists := reg.categories[id]; exists {
			return nil, domain.NewConfigurationError(id, "category registered twice")
		}
		if err := cat.Criteria.Validate(); err != nil {
			return nil, fmt.Errorf("category %s: %w", id, err)
		}
		for i, pick := range cat.Picks {
			if strings.TrimSpace(pick.ID) == "" {
				return nil, domain.NewConfigurationError(id, "editorial pick #%d has no id", i+1)
			}
		}

		cat.ID = id
		cat.Criteria = cat.Criteria.Clone()
		cat.Picks = append([]domain.EditorialTemplate(nil), cat.Picks...)
		reg.categories[id] = cat
		reg.ids = append(reg.ids, id)
	}

	sort.Strings(reg.ids)
	return reg, nil
}

// Resolve returns the criteria for id or a ConfigurationError if it is absent.
func (r *Registry) Resolve(id string) (ranking.FilterCriteria, error) {
	cat, err := r.Category(id)
	if err != nil {
		return ranking.FilterCriteria{}, err
	}
	return cat.Criteria.Clone(), nil
}

// Picks returns a copy of the editorial templates registered for id.
func (r *Registry) Picks(id string) ([]domain.EditorialTemplate, error) {
	cat, err := r.Category(id)
	if err != nil {
		return nil, err
	}
	return append([]domain.EditorialTemplate(nil), cat.Picks...), nil
}

// Category returns the full definition for id.
func (r *Registry) Category(id string) (Category, error) {
	if r != nil {
		if cat, ok := r.categories[id]; ok {
			cat.Criteria = cat.Criteria.Clone()
			cat.Picks = append([]domain.EditorialTemplate(nil), cat.Picks...)
			return cat, nil
		}
	}
	return Category{}, domain.NewConfigurationError(id, "category is not registered")
}

// List returns the registered ids in lexical order.
func (r *Registry) List() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.ids...)
}
