package catalog

import (
	"fmt"
	"strings"

	"github.com/kioskops/kioskctl/internal/model"
)

// VerifyRule describes how a setting's live state is checked. It is a
// closed set: CommandCheck runs a command and classifies its output,
// Unverifiable marks settings with no queryable state. A type switch over
// the two covers every case.
type VerifyRule interface {
	verifyRule()
}

// Unverifiable marks a setting whose state cannot be queried. Reason says
// why, for display.
type Unverifiable struct {
	Reason string
}

func (Unverifiable) verifyRule() {}

// CommandCheck verifies a setting by running Command and matching its
// result: Applied wins, then Unset, anything else is an error.
type CommandCheck struct {
	Command Command
	Applied Matcher
	Unset   Matcher
}

func (CommandCheck) verifyRule() {}

// Classify maps a check command's result to a classification. Pure: no
// process is involved, which keeps every catalog entry's matching logic
// testable in isolation.
func (c CommandCheck) Classify(exitCode int, stdout string) model.Classification {
	if c.Applied.Match(exitCode, stdout) {
		return model.ClassApplied
	}
	if c.Unset.Match(exitCode, stdout) {
		return model.ClassNotApplied
	}
	return model.ClassError
}

// Matcher is a predicate over a check command's exit code and stdout.
type Matcher struct {
	match func(exitCode int, stdout string) bool
	desc  string
}

// Match reports whether the result satisfies the predicate.
func (m Matcher) Match(exitCode int, stdout string) bool {
	if m.match == nil {
		return false
	}
	return m.match(exitCode, stdout)
}

func (m Matcher) String() string {
	return m.desc
}

// OutputIs matches a zero exit whose trimmed stdout equals want.
func OutputIs(want string) Matcher {
	return Matcher{
		match: func(exitCode int, stdout string) bool {
			return exitCode == 0 && strings.TrimSpace(stdout) == want
		},
		desc: fmt.Sprintf("output == %q", want),
	}
}

// OutputContains matches a zero exit whose stdout contains sub.
func OutputContains(sub string) Matcher {
	return Matcher{
		match: func(exitCode int, stdout string) bool {
			return exitCode == 0 && strings.Contains(stdout, sub)
		},
		desc: fmt.Sprintf("output contains %q", sub),
	}
}

// OutputDiffers matches a zero exit whose trimmed stdout is anything but
// want. Used for "key present with another value" unset predicates.
func OutputDiffers(want string) Matcher {
	return Matcher{
		match: func(exitCode int, stdout string) bool {
			return exitCode == 0 && strings.TrimSpace(stdout) != want
		},
		desc: fmt.Sprintf("output != %q", want),
	}
}

// CheckFails matches any non-zero exit. Reads of absent preference keys
// exit non-zero, which for most settings means "not configured yet".
func CheckFails() Matcher {
	return Matcher{
		match: func(exitCode int, stdout string) bool {
			return exitCode != 0
		},
		desc: "check exits non-zero",
	}
}

// AnyOf matches when any of ms matches.
func AnyOf(ms ...Matcher) Matcher {
	descs := make([]string, len(ms))
	for i, m := range ms {
		descs[i] = m.desc
	}
	return Matcher{
		match: func(exitCode int, stdout string) bool {
			for _, m := range ms {
				if m.Match(exitCode, stdout) {
					return true
				}
			}
			return false
		},
		desc: strings.Join(descs, " or "),
	}
}

// RestoreRule describes how a setting is undone. NotRestorable settings
// are listed in a restore script's trailer instead of its body.
type RestoreRule interface {
	restoreRule()
}

// NotRestorable marks a setting with no safe undo command.
type NotRestorable struct{}

func (NotRestorable) restoreRule() {}

// RestoreCommand undoes a setting by running Command, which must set an
// absolute value so restore scripts stay idempotent.
type RestoreCommand struct {
	Command Command
}

func (RestoreCommand) restoreRule() {}
