package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandElevated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		command Command
		want    bool
	}{
		{"sudo prefix", "sudo pmset -a sleep 0", true},
		{"plain defaults write", "defaults write com.apple.dock autohide -bool true", false},
		{"sudo mentioned mid-command", "echo sudo is not needed here", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.command.Elevated())
		})
	}
}

func testDefinition(id string, cat Category) Definition {
	return Definition{
		ID:          id,
		DisplayName: id,
		Category:    cat,
		Apply:       "true",
		Verify:      Unverifiable{Reason: "test entry"},
		Restore:     NotRestorable{},
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	_, err := New([]Definition{
		testDefinition("a", CategoryPower),
		testDefinition("a", CategoryUI),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestNewRejectsEmptyID(t *testing.T) {
	t.Parallel()

	_, err := New([]Definition{testDefinition("", CategoryPower)})
	require.Error(t, err)
}

func TestNewRejectsUnknownCategory(t *testing.T) {
	t.Parallel()

	_, err := New([]Definition{testDefinition("a", Category("audio"))})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown category")
}

func TestCatalogLookup(t *testing.T) {
	t.Parallel()

	c := MustNew([]Definition{
		testDefinition("a", CategoryPower),
		testDefinition("b", CategoryUI),
	})

	def, ok := c.Lookup("b")
	require.True(t, ok)
	require.Equal(t, "b", def.ID)

	_, ok = c.Lookup("missing")
	require.False(t, ok)
}

func TestCatalogPreservesDeclarationOrder(t *testing.T) {
	t.Parallel()

	c := MustNew([]Definition{
		testDefinition("c", CategoryGeneral),
		testDefinition("a", CategoryPower),
		testDefinition("b", CategoryUI),
	})

	require.Equal(t, []string{"c", "a", "b"}, c.IDs())
	require.Equal(t, 3, c.Len())
}

func TestCatalogRequired(t *testing.T) {
	t.Parallel()

	required := testDefinition("keep", CategoryPower)
	required.Required = true

	c := MustNew([]Definition{
		testDefinition("optional", CategoryPower),
		required,
	})

	defs := c.Required()
	require.Len(t, defs, 1)
	require.Equal(t, "keep", defs[0].ID)
}

func TestCatalogCategories(t *testing.T) {
	t.Parallel()

	c := MustNew([]Definition{
		testDefinition("a", CategoryUI),
		testDefinition("b", CategoryPower),
		testDefinition("c", CategoryUI),
		testDefinition("d", CategoryGeneral),
	})

	require.Equal(t, []Category{CategoryUI, CategoryPower, CategoryGeneral}, c.Categories())

	ui := c.ByCategory(CategoryUI)
	require.Len(t, ui, 2)
	require.Equal(t, "a", ui[0].ID)
	require.Equal(t, "c", ui[1].ID)
}
