// Package script turns a selection of catalog settings into idempotent
// shell script text. Generation is pure text construction: the catalog is
// read, nothing is executed.
package script

import (
	"fmt"
	"strings"
	"time"

	"github.com/kioskops/kioskctl/internal/catalog"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

// Mode selects what the generated script does.
type Mode string

const (
	// ModeApply emits the apply command of every selected setting.
	ModeApply Mode = "apply"
	// ModeRestore emits restore commands; settings without one are listed
	// in a trailer instead of being dropped silently.
	ModeRestore Mode = "restore"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeApply || m == ModeRestore
}

const shebang = "#!/bin/bash"

// Spec describes one script to generate.
type Spec struct {
	SettingIDs          []string
	Mode                Mode
	IncludeVerification bool
}

// Generated is the result of one generation pass. Body is deterministic
// for a given catalog and spec; the timestamp lives out here so identical
// requests produce identical script text.
type Generated struct {
	Body              string
	SettingsCount     int
	CategoriesTouched []catalog.Category
	GeneratedAt       time.Time
}

// Generator renders scripts from a catalog.
type Generator struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewGenerator builds a Generator over cat.
func NewGenerator(cat *catalog.Catalog) *Generator {
	return &Generator{catalog: cat, now: time.Now}
}

// Generate renders the script described by spec. Unknown ids, an empty
// selection and an unknown mode are validation errors; nothing is ever
// dropped silently.
func (g *Generator) Generate(spec Spec) (Generated, error) {
	if !spec.Mode.IsValid() {
		return Generated{}, kioskerrors.NewValidationError("script", fmt.Sprintf("unknown mode %q", spec.Mode), nil)
	}
	if len(spec.SettingIDs) == 0 {
		return Generated{}, kioskerrors.NewValidationError("script", "empty setting selection", nil)
	}

	selected := make(map[string]bool, len(spec.SettingIDs))
	for _, id := range spec.SettingIDs {
		if _, ok := g.catalog.Lookup(id); !ok {
			return Generated{}, kioskerrors.NewValidationError(id, "unknown setting id", nil)
		}
		selected[id] = true
	}

	// The catalog's declaration order governs the settings, regardless of
	// selection order.
	var defs []catalog.Definition
	for _, def := range g.catalog.All() {
		if selected[def.ID] {
			defs = append(defs, def)
		}
	}

	// In restore mode, settings without a restore command leave the body
	// and land in the trailer instead.
	var notRestorable []string
	body := defs
	if spec.Mode == ModeRestore {
		body = make([]catalog.Definition, 0, len(defs))
		for _, def := range defs {
			if _, ok := def.Restore.(catalog.NotRestorable); ok {
				notRestorable = append(notRestorable, def.DisplayName)
				continue
			}
			body = append(body, def)
		}
	}

	// Group into category sections, ordered by first appearance.
	var categories []catalog.Category
	byCategory := make(map[catalog.Category][]catalog.Definition)
	for _, def := range body {
		if _, seen := byCategory[def.Category]; !seen {
			categories = append(categories, def.Category)
		}
		byCategory[def.Category] = append(byCategory[def.Category], def)
	}

	var b strings.Builder
	b.WriteString(shebang + "\n")
	b.WriteString(fmt.Sprintf("# Kiosk settings %s script\n", spec.Mode))
	b.WriteString("# Generated by kioskctl\n")

	for _, category := range categories {
		b.WriteString(fmt.Sprintf("\n# === %s ===\n", category))
		for _, def := range byCategory[category] {
			switch spec.Mode {
			case ModeApply:
				b.WriteString(def.Apply.String() + "\n")
				if check, ok := def.Verify.(catalog.CommandCheck); ok && spec.IncludeVerification {
					b.WriteString("#CHECK: " + check.Command.String() + "\n")
				}
			case ModeRestore:
				rule := def.Restore.(catalog.RestoreCommand)
				b.WriteString(rule.Command.String() + "\n")
			}
		}
	}

	if len(notRestorable) > 0 {
		b.WriteString("\n")
		for _, name := range notRestorable {
			b.WriteString("# NOT AUTO-RESTORABLE: " + name + "\n")
		}
	}

	return Generated{
		Body:              b.String(),
		SettingsCount:     len(defs),
		CategoriesTouched: categories,
		GeneratedAt:       g.now(),
	}, nil
}
