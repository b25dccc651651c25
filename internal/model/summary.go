package model

// VerifySummary aggregates per-setting statuses for a whole verification
// pass.
type VerifySummary struct {
	Total        int
	Applied      int
	NotApplied   int
	Errors       int
	Unverifiable int

	// Results holds the individual statuses in catalog order.
	Results []SettingStatus
}

// Add appends a status to the summary and bumps the matching counter.
func (s *VerifySummary) Add(status SettingStatus) {
	s.Total++
	s.Results = append(s.Results, status)

	switch status.Classification {
	case ClassApplied:
		s.Applied++
	case ClassNotApplied:
		s.NotApplied++
	case ClassError:
		s.Errors++
	case ClassUnverifiable:
		s.Unverifiable++
	}
}

// AllApplied reports whether every verifiable setting is already in its
// desired state. Unverifiable settings do not count against it.
func (s *VerifySummary) AllApplied() bool {
	return s.NotApplied == 0 && s.Errors == 0
}

// NeedsApply reports whether at least one setting verified as not applied.
func (s *VerifySummary) NeedsApply() bool {
	return s.NotApplied > 0
}

// ExitCode maps the summary onto a process exit code: 0 when everything
// verifiable is applied, 1 when drift was found, 2 when any check errored.
func (s *VerifySummary) ExitCode() int {
	if s.Errors > 0 {
		return 2
	}
	if s.NotApplied > 0 {
		return 1
	}
	return 0
}
