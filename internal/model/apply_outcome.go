package model

// ApplyOutcome captures the result of applying a single setting. Outcomes
// are ephemeral: reported to the caller and never persisted.
type ApplyOutcome struct {
	// SettingID is the catalog id of the applied setting.
	SettingID string

	// Succeeded is true when the apply command exited zero.
	Succeeded bool

	// Declined is true when the user refused the elevation request. A
	// declined outcome is distinct from a failed command: callers route it
	// to re-authentication, not to the execution-failure path.
	Declined bool

	// Message is a human-readable summary of what happened.
	Message string

	// RawOutput holds the apply command's stdout verbatim.
	RawOutput string

	// RawError holds the apply command's stderr verbatim.
	RawError string
}

// Failed reports whether the apply ran and did not succeed. Declined
// outcomes are not failures; the command was never attempted.
func (o ApplyOutcome) Failed() bool {
	return !o.Succeeded && !o.Declined
}
