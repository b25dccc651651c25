package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kioskops/kioskctl/internal/catalog"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

func selectionCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	def := func(id string, category catalog.Category, required bool) catalog.Definition {
		return catalog.Definition{
			ID:          id,
			DisplayName: id,
			Category:    category,
			Required:    required,
			Apply:       catalog.Command("true"),
			Verify:      catalog.Unverifiable{Reason: "fixture"},
			Restore:     catalog.NotRestorable{},
		}
	}

	return catalog.MustNew([]catalog.Definition{
		def("no-sleep", catalog.CategoryPower, true),
		def("no-screensaver", catalog.CategoryPower, false),
		def("hide-dock", catalog.CategoryUI, false),
		def("no-bluetooth", catalog.CategoryNetwork, true),
	})
}

func TestResolveEmptySelectionIsWholeCatalog(t *testing.T) {
	t.Parallel()

	ids, err := Selection{}.Resolve(selectionCatalog(t))
	require.NoError(t, err)
	require.Equal(t, []string{"no-sleep", "no-screensaver", "hide-dock", "no-bluetooth"}, ids)
}

func TestResolveRequiredOnly(t *testing.T) {
	t.Parallel()

	ids, err := Selection{RequiredOnly: true}.Resolve(selectionCatalog(t))
	require.NoError(t, err)
	require.Equal(t, []string{"no-sleep", "no-bluetooth"}, ids)
}

func TestResolveCategories(t *testing.T) {
	t.Parallel()

	ids, err := Selection{Categories: []string{"power"}}.Resolve(selectionCatalog(t))
	require.NoError(t, err)
	require.Equal(t, []string{"no-sleep", "no-screensaver"}, ids)
}

func TestResolveExplicitIDs(t *testing.T) {
	t.Parallel()

	ids, err := Selection{IDs: []string{"hide-dock"}}.Resolve(selectionCatalog(t))
	require.NoError(t, err)
	require.Equal(t, []string{"hide-dock"}, ids)
}

func TestResolveUnionKeepsCatalogOrder(t *testing.T) {
	t.Parallel()

	// hide-dock is named explicitly and no-sleep arrives twice, through
	// both the category and the required flag.
	s := Selection{
		IDs:          []string{"hide-dock", "no-screensaver"},
		Categories:   []string{"power"},
		RequiredOnly: true,
	}

	ids, err := s.Resolve(selectionCatalog(t))
	require.NoError(t, err)
	require.Equal(t, []string{"no-sleep", "no-screensaver", "hide-dock", "no-bluetooth"}, ids)
}

func TestResolveUnknownID(t *testing.T) {
	t.Parallel()

	_, err := Selection{IDs: []string{"ghost"}}.Resolve(selectionCatalog(t))
	require.Error(t, err)

	var validationErr *kioskerrors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, "ghost", validationErr.Field)
}

func TestResolveUnknownCategory(t *testing.T) {
	t.Parallel()

	_, err := Selection{Categories: []string{"gaming"}}.Resolve(selectionCatalog(t))
	require.Error(t, err)

	var validationErr *kioskerrors.ValidationError
	require.True(t, errors.As(err, &validationErr))
}
