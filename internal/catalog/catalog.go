// Package catalog holds the static table of kiosk settings. Each entry
// describes one OS configuration toggle: the command that applies it, how
// to verify it, and how to undo it. The table is data; all execution
// lives in the reconciler.
package catalog

import (
	"fmt"
	"strings"

	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

// Category groups settings for display and script sectioning.
type Category string

const (
	CategoryPower       Category = "power"
	CategoryUI          Category = "ui"
	CategoryPerformance Category = "performance"
	CategoryNetwork     Category = "network"
	CategorySecurity    Category = "security"
	CategoryGeneral     Category = "general"
)

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryPower, CategoryUI, CategoryPerformance, CategoryNetwork, CategorySecurity, CategoryGeneral:
		return true
	}
	return false
}

// Command is a single shell command string. Elevation is derived from the
// command text itself so the table cannot drift from reality.
type Command string

// Elevated reports whether running the command requires administrator
// privileges.
func (c Command) Elevated() bool {
	return strings.HasPrefix(string(c), "sudo ")
}

func (c Command) String() string {
	return string(c)
}

// Definition describes one setting. Definitions are immutable; the
// reconciler and script generator read them but never modify them.
type Definition struct {
	ID          string
	DisplayName string
	Description string
	Category    Category
	Required    bool
	Apply       Command
	Verify      VerifyRule
	Restore     RestoreRule
}

// ElevationRequired reports whether applying the setting needs
// administrator privileges.
func (d Definition) ElevationRequired() bool {
	return d.Apply.Elevated()
}

// Catalog is an ordered, id-indexed collection of definitions.
type Catalog struct {
	defs []Definition
	byID map[string]int
}

// New builds a catalog from defs, preserving order. Duplicate ids, empty
// ids and unknown categories are rejected.
func New(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]Definition, 0, len(defs)),
		byID: make(map[string]int, len(defs)),
	}

	for _, def := range defs {
		if def.ID == "" {
			return nil, kioskerrors.NewValidationError("catalog", "definition with empty id", nil)
		}
		if !def.Category.IsValid() {
			return nil, kioskerrors.NewValidationError(def.ID, fmt.Sprintf("unknown category %q", def.Category), nil)
		}
		if _, exists := c.byID[def.ID]; exists {
			return nil, kioskerrors.NewValidationError(def.ID, "duplicate setting id", nil)
		}
		c.byID[def.ID] = len(c.defs)
		c.defs = append(c.defs, def)
	}

	return c, nil
}

// MustNew is New for static tables; it panics on an invalid table.
func MustNew(defs []Definition) *Catalog {
	c, err := New(defs)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id string) (Definition, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[idx], true
}

// All returns every definition in declaration order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// IDs returns every setting id in declaration order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.defs))
	for i, def := range c.defs {
		ids[i] = def.ID
	}
	return ids
}

// Required returns the definitions marked required, in declaration order.
func (c *Catalog) Required() []Definition {
	var out []Definition
	for _, def := range c.defs {
		if def.Required {
			out = append(out, def)
		}
	}
	return out
}

// ByCategory returns the definitions in cat, in declaration order.
func (c *Catalog) ByCategory(cat Category) []Definition {
	var out []Definition
	for _, def := range c.defs {
		if def.Category == cat {
			out = append(out, def)
		}
	}
	return out
}

// Categories returns the categories present in the catalog, ordered by
// first appearance.
func (c *Catalog) Categories() []Category {
	seen := make(map[Category]bool)
	var out []Category
	for _, def := range c.defs {
		if !seen[def.Category] {
			seen[def.Category] = true
			out = append(out, def.Category)
		}
	}
	return out
}
