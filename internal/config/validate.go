package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kioskops/kioskctl/internal/catalog"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern     = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	settingIDPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
	agentLabelPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// validatorInstance configures and returns the shared validator used
// across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("setting_id", func(fl validator.FieldLevel) bool {
			return settingIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("agent_label", func(fl validator.FieldLevel) bool {
			return agentLabelPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidateProfile performs schema and cross-field validation. Catalog
// membership of selected ids is not checked here; Selection.Resolve does
// that against a concrete catalog.
func ValidateProfile(profile *Profile) error {
	if profile == nil {
		return kioskerrors.NewValidationError("profile", "profile is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(profile); err != nil {
		return convertValidationError(err)
	}

	for _, name := range profile.Selection.Categories {
		if !catalog.Category(name).IsValid() {
			return kioskerrors.NewValidationError("selection.categories", fmt.Sprintf("unknown category %q", name), nil)
		}
	}

	seenIDs := make(map[string]struct{}, len(profile.Selection.IDs))
	for _, id := range profile.Selection.IDs {
		if _, dup := seenIDs[id]; dup {
			return kioskerrors.NewValidationError("selection.ids", fmt.Sprintf("duplicate setting id %q", id), nil)
		}
		seenIDs[id] = struct{}{}
	}

	seenLabels := make(map[string]int, len(profile.Agents))
	for i, agent := range profile.Agents {
		if _, dup := seenLabels[agent.Label]; dup {
			return kioskerrors.NewValidationError(fieldForAgent(i, "label"), fmt.Sprintf("duplicate agent label %q", agent.Label), nil)
		}
		seenLabels[agent.Label] = i
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return kioskerrors.NewValidationError(field, msg, err)
	}

	return kioskerrors.NewValidationError("profile", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	var lowered []string
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForAgent(index int, field string) string {
	return fmt.Sprintf("agents[%d].%s", index, field)
}
