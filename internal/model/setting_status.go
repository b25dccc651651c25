package model

import (
	"time"
)

// Classification is the result of comparing one setting's observed state
// against its desired state.
type Classification string

const (
	// ClassApplied means the live value matches the desired value.
	ClassApplied Classification = "applied"
	// ClassNotApplied means the live value matches the known-unset value.
	ClassNotApplied Classification = "not_applied"
	// ClassError means the verify command failed or produced output that
	// matched neither predicate.
	ClassError Classification = "error"
	// ClassUnverifiable means the setting has no verify command, or its
	// verify command needs elevation and no session is active. This is a
	// first-class state, not an error.
	ClassUnverifiable Classification = "unverifiable"
)

// IsValid reports whether the classification is one of the defined values.
func (c Classification) IsValid() bool {
	switch c {
	case ClassApplied, ClassNotApplied, ClassError, ClassUnverifiable:
		return true
	default:
		return false
	}
}

// SettingStatus captures one setting's classification from a verify pass.
type SettingStatus struct {
	SettingID      string
	Classification Classification
	RawObservation string
	ObservedAt     time.Time
}
