// Package launchd manages launch agent descriptors for watched kiosk
// applications: encoding them as property-list documents, writing them to
// the per-user agent directory and driving launchctl through the gateway.
package launchd

import (
	"fmt"
	"sort"

	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
	"github.com/kioskops/kioskctl/pkg/plist"
)

// DescriptorExtension is the fixed suffix of descriptor files.
const DescriptorExtension = ".plist"

// KeepAlivePolicy says when launchd should restart the agent's process.
type KeepAlivePolicy string

const (
	// KeepAliveNever leaves restarting entirely to the user; the KeepAlive
	// key is omitted from the descriptor.
	KeepAliveNever KeepAlivePolicy = "never"
	// KeepAliveAlways restarts the process whenever it exits.
	KeepAliveAlways KeepAlivePolicy = "always"
	// KeepAliveOnSuccessfulExit restarts only after a clean exit.
	KeepAliveOnSuccessfulExit KeepAlivePolicy = "only-after-successful-exit"
)

// IsValid reports whether p is a known policy. The zero value counts as
// KeepAliveNever.
func (p KeepAlivePolicy) IsValid() bool {
	switch p {
	case "", KeepAliveNever, KeepAliveAlways, KeepAliveOnSuccessfulExit:
		return true
	}
	return false
}

// Launchd process types.
const (
	ProcessTypeBackground  = "Background"
	ProcessTypeStandard    = "Standard"
	ProcessTypeInteractive = "Interactive"
	ProcessTypeAdaptive    = "Adaptive"
)

// Descriptor describes one launch agent. Label is the unique key; the
// descriptor file's basename is always Label + DescriptorExtension.
type Descriptor struct {
	Label            string
	ProgramPath      string
	Arguments        []string
	KeepAlive        KeepAlivePolicy
	ProcessType      string
	RunAtLoad        bool
	Environment      map[string]string
	WorkingDirectory string
}

// NewDescriptor builds a descriptor with kiosk defaults: a background
// process started at load that is not kept alive.
func NewDescriptor(label, programPath string, arguments ...string) Descriptor {
	return Descriptor{
		Label:       label,
		ProgramPath: programPath,
		Arguments:   arguments,
		KeepAlive:   KeepAliveNever,
		ProcessType: ProcessTypeBackground,
		RunAtLoad:   true,
	}
}

// Filename returns the descriptor file basename for the label.
func (d Descriptor) Filename() string {
	return d.Label + DescriptorExtension
}

// Validate checks the fields that encoding depends on.
func (d Descriptor) Validate() error {
	if d.Label == "" {
		return kioskerrors.NewValidationError("label", "must not be empty", nil)
	}
	if d.ProgramPath == "" {
		return kioskerrors.NewValidationError("programPath", "must not be empty", nil)
	}
	if !d.KeepAlive.IsValid() {
		return kioskerrors.NewValidationError("keepAlive", fmt.Sprintf("unknown policy %q", d.KeepAlive), nil)
	}
	switch d.ProcessType {
	case "", ProcessTypeBackground, ProcessTypeStandard, ProcessTypeInteractive, ProcessTypeAdaptive:
	default:
		return kioskerrors.NewValidationError("processType", fmt.Sprintf("unknown process type %q", d.ProcessType), nil)
	}
	return nil
}

// Encode renders the descriptor as a property-list document. Decoding the
// output recovers every field: ProgramArguments keeps its order and the
// environment dictionary is emitted with sorted keys so output is stable.
func (d Descriptor) Encode() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	args := make(plist.Array, 0, len(d.Arguments)+1)
	args = append(args, plist.String(d.ProgramPath))
	for _, arg := range d.Arguments {
		args = append(args, plist.String(arg))
	}

	processType := d.ProcessType
	if processType == "" {
		processType = ProcessTypeBackground
	}

	root := plist.NewDict()
	root.Set("Label", plist.String(d.Label))
	root.Set("ProgramArguments", args)
	root.Set("ProcessType", plist.String(processType))
	root.Set("RunAtLoad", plist.Bool(d.RunAtLoad))

	switch d.KeepAlive {
	case KeepAliveAlways:
		root.Set("KeepAlive", plist.Bool(true))
	case KeepAliveOnSuccessfulExit:
		keepAlive := plist.NewDict()
		keepAlive.Set("SuccessfulExit", plist.Bool(true))
		root.Set("KeepAlive", keepAlive)
	}

	if len(d.Environment) > 0 {
		names := make([]string, 0, len(d.Environment))
		for name := range d.Environment {
			names = append(names, name)
		}
		sort.Strings(names)

		env := plist.NewDict()
		for _, name := range names {
			env.Set(name, plist.String(d.Environment[name]))
		}
		root.Set("EnvironmentVariables", env)
	}

	if d.WorkingDirectory != "" {
		root.Set("WorkingDirectory", plist.String(d.WorkingDirectory))
	}

	return plist.Marshal(root)
}

// DecodeDescriptor parses a descriptor document produced by Encode (or by
// hand, as long as the required keys are present).
func DecodeDescriptor(data []byte) (Descriptor, error) {
	root, err := plist.Unmarshal(data)
	if err != nil {
		return Descriptor{}, kioskerrors.NewParseError("descriptor", 0, err)
	}

	var d Descriptor

	label, err := requireString(root, "Label")
	if err != nil {
		return Descriptor{}, err
	}
	d.Label = label

	argsValue, ok := root.Get("ProgramArguments")
	if !ok {
		return Descriptor{}, kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("missing ProgramArguments"))
	}
	args, ok := argsValue.(plist.Array)
	if !ok || len(args) == 0 {
		return Descriptor{}, kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("ProgramArguments must be a non-empty array"))
	}
	for i, item := range args {
		s, ok := item.(plist.String)
		if !ok {
			return Descriptor{}, kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("ProgramArguments[%d] is not a string", i))
		}
		if i == 0 {
			d.ProgramPath = string(s)
		} else {
			d.Arguments = append(d.Arguments, string(s))
		}
	}

	processType, err := requireString(root, "ProcessType")
	if err != nil {
		return Descriptor{}, err
	}
	d.ProcessType = processType

	runAtLoadValue, ok := root.Get("RunAtLoad")
	if !ok {
		return Descriptor{}, kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("missing RunAtLoad"))
	}
	runAtLoad, ok := runAtLoadValue.(plist.Bool)
	if !ok {
		return Descriptor{}, kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("RunAtLoad is not a boolean"))
	}
	d.RunAtLoad = bool(runAtLoad)

	d.KeepAlive = KeepAliveNever
	if keepAliveValue, ok := root.Get("KeepAlive"); ok {
		policy, err := decodeKeepAlive(keepAliveValue)
		if err != nil {
			return Descriptor{}, err
		}
		d.KeepAlive = policy
	}

	if envValue, ok := root.Get("EnvironmentVariables"); ok {
		envDict, ok := envValue.(*plist.Dict)
		if !ok {
			return Descriptor{}, kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("EnvironmentVariables is not a dictionary"))
		}
		d.Environment = make(map[string]string, envDict.Len())
		for _, name := range envDict.Keys() {
			v, _ := envDict.Get(name)
			s, ok := v.(plist.String)
			if !ok {
				return Descriptor{}, kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("environment variable %s is not a string", name))
			}
			d.Environment[name] = string(s)
		}
	}

	if wdValue, ok := root.Get("WorkingDirectory"); ok {
		wd, ok := wdValue.(plist.String)
		if !ok {
			return Descriptor{}, kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("WorkingDirectory is not a string"))
		}
		d.WorkingDirectory = string(wd)
	}

	return d, nil
}

func decodeKeepAlive(v plist.Value) (KeepAlivePolicy, error) {
	switch value := v.(type) {
	case plist.Bool:
		if bool(value) {
			return KeepAliveAlways, nil
		}
		return KeepAliveNever, nil
	case *plist.Dict:
		if flag, ok := value.Get("SuccessfulExit"); ok {
			if b, ok := flag.(plist.Bool); ok && bool(b) {
				return KeepAliveOnSuccessfulExit, nil
			}
		}
		return "", kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("unsupported KeepAlive dictionary"))
	}
	return "", kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("unsupported KeepAlive value"))
}

func requireString(d *plist.Dict, key string) (string, error) {
	v, ok := d.Get(key)
	if !ok {
		return "", kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("missing %s", key))
	}
	s, ok := v.(plist.String)
	if !ok {
		return "", kioskerrors.NewParseError("descriptor", 0, fmt.Errorf("%s is not a string", key))
	}
	return string(s), nil
}
