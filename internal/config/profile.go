// Package config loads the two configuration surfaces of the tool: kiosk
// profiles (YAML, declarative, validated) and the operator's tool settings
// (TOML, all-optional overrides).
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/kioskops/kioskctl/internal/launchd"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Profile is a declarative description of one kiosk: which settings to
// enforce, how to elevate, and which launch agents to install.
type Profile struct {
	Version     string    `yaml:"version" validate:"required,semver"`
	Name        string    `yaml:"name" validate:"required,min=1,max=100"`
	Description string    `yaml:"description,omitempty"`
	Selection   Selection `yaml:"selection,omitempty"`
	Elevation   Elevation `yaml:"elevation,omitempty"`
	Agents      []Agent   `yaml:"agents,omitempty" validate:"omitempty,dive"`
}

// Selection narrows the catalog to the settings a profile cares about.
// Ids, categories and the required flag are unioned; an entirely empty
// selection means the whole catalog.
type Selection struct {
	IDs          []string `yaml:"ids,omitempty" validate:"omitempty,dive,setting_id"`
	Categories   []string `yaml:"categories,omitempty"`
	RequiredOnly bool     `yaml:"required_only,omitempty"`
}

// Elevation picks how administrator access is obtained when a selected
// setting needs it.
type Elevation struct {
	Method string `yaml:"method,omitempty" validate:"omitempty,oneof=native password"`
}

// Agent describes one launch agent to install. Program may point at an
// .app bundle or directly at an executable.
type Agent struct {
	Label            string            `yaml:"label" validate:"required,agent_label"`
	Program          string            `yaml:"program" validate:"required"`
	Arguments        []string          `yaml:"arguments,omitempty"`
	KeepAlive        string            `yaml:"keep_alive,omitempty" validate:"omitempty,oneof=never always only-after-successful-exit"`
	RunAtLoad        *bool             `yaml:"run_at_load,omitempty"`
	ProcessType      string            `yaml:"process_type,omitempty" validate:"omitempty,oneof=Background Standard Interactive Adaptive"`
	Environment      map[string]string `yaml:"environment,omitempty"`
	WorkingDirectory string            `yaml:"working_directory,omitempty"`
}

// Descriptor builds the launch agent descriptor for this entry. The caller
// resolves Program to an executable path first, since profiles may name an
// .app bundle rather than the binary inside it.
func (a Agent) Descriptor(executable string) launchd.Descriptor {
	d := launchd.NewDescriptor(a.Label, executable, a.Arguments...)
	if a.KeepAlive != "" {
		d.KeepAlive = launchd.KeepAlivePolicy(a.KeepAlive)
	}
	if a.RunAtLoad != nil {
		d.RunAtLoad = *a.RunAtLoad
	}
	if a.ProcessType != "" {
		d.ProcessType = a.ProcessType
	}
	d.Environment = a.Environment
	d.WorkingDirectory = a.WorkingDirectory
	return d
}

// ParseProfile loads a profile from disk, validates it, and returns the
// resulting model.
func ParseProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kioskerrors.NewParseError(path, 0, err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, kioskerrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateProfile(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
