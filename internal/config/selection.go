package config

import (
	"fmt"

	"github.com/kioskops/kioskctl/internal/catalog"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

// Resolve expands the selection against a catalog into setting ids in
// catalog declaration order, deduplicated. Ids, categories and the
// required flag are unioned. An empty selection selects the whole catalog.
// An id that does not exist in the catalog is a validation error, never
// silently dropped.
func (s Selection) Resolve(cat *catalog.Catalog) ([]string, error) {
	if len(s.IDs) == 0 && len(s.Categories) == 0 && !s.RequiredOnly {
		return cat.IDs(), nil
	}

	selected := make(map[string]struct{})

	if s.RequiredOnly {
		for _, def := range cat.Required() {
			selected[def.ID] = struct{}{}
		}
	}

	for _, name := range s.Categories {
		category := catalog.Category(name)
		if !category.IsValid() {
			return nil, kioskerrors.NewValidationError("selection.categories", fmt.Sprintf("unknown category %q", name), nil)
		}
		for _, def := range cat.ByCategory(category) {
			selected[def.ID] = struct{}{}
		}
	}

	for _, id := range s.IDs {
		if _, ok := cat.Lookup(id); !ok {
			return nil, kioskerrors.NewValidationError(id, fmt.Sprintf("unknown setting id %q", id), nil)
		}
		selected[id] = struct{}{}
	}

	ids := make([]string, 0, len(selected))
	for _, def := range cat.All() {
		if _, ok := selected[def.ID]; ok {
			ids = append(ids, def.ID)
		}
	}
	return ids, nil
}
