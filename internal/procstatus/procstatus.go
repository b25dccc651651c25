// Package procstatus parses the launchd process registry into structured
// rows and groups agent labels for display.
package procstatus

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kioskops/kioskctl/internal/gateway"
	"github.com/kioskops/kioskctl/internal/logger"
)

const listCommand = "launchctl list"

// ProcessStatus is one registry row. PID and LastExitCode are nil when the
// registry reports a dash in the corresponding column (agent loaded but not
// running, or never exited). The row is derived on every query and never
// persisted.
type ProcessStatus struct {
	Label        string
	PID          *int
	LastExitCode *int
	Runtime      *Runtime
}

// Runtime is live process information attached by Enrich.
type Runtime struct {
	CommandLine   string
	ResidentBytes uint64
	StartedAt     time.Time
}

// Correlator queries the process registry through the gateway.
type Correlator struct {
	gw  gateway.Gateway
	log *logger.Logger
}

// NewCorrelator builds a Correlator.
func NewCorrelator(gw gateway.Gateway, log *logger.Logger) *Correlator {
	return &Correlator{gw: gw, log: log}
}

// Query lists registry rows, optionally narrowed by a label glob
// (doublestar patterns, so "com.apple.**" works). Any failure to query or
// parse degrades to an empty result: status display must never take the
// tool down.
func (c *Correlator) Query(ctx context.Context, labelFilter string) []ProcessStatus {
	result, err := c.gw.Run(ctx, listCommand)
	if err != nil {
		c.log.WithFields(map[string]any{"error": err.Error()}).Debug("process registry query failed")
		return nil
	}
	if result.ExitCode != 0 {
		c.log.WithFields(map[string]any{"exit_code": result.ExitCode}).Debug("process registry query failed")
		return nil
	}
	return parseRegistry(result.Stdout, labelFilter)
}

// parseRegistry splits columnar registry output into rows. Lines with
// fewer than three columns are skipped, as is the banner line (its PID
// column is neither numeric nor a dash).
func parseRegistry(output, labelFilter string) []ProcessStatus {
	var statuses []ProcessStatus
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		pid, ok := parseColumn(fields[0])
		if !ok {
			continue
		}
		exitCode, ok := parseColumn(fields[1])
		if !ok {
			continue
		}
		label := fields[2]

		if labelFilter != "" {
			matched, err := doublestar.Match(labelFilter, label)
			if err != nil || !matched {
				continue
			}
		}

		statuses = append(statuses, ProcessStatus{Label: label, PID: pid, LastExitCode: exitCode})
	}
	return statuses
}

// parseColumn reads a nullable integer column: a dash means null, digits
// parse (exit codes can be negative), anything else marks the line as
// unparseable.
func parseColumn(token string) (*int, bool) {
	if token == "-" {
		return nil, true
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return nil, false
	}
	return &n, true
}

// ByLabel indexes rows for joining against descriptor labels.
func ByLabel(statuses []ProcessStatus) map[string]ProcessStatus {
	index := make(map[string]ProcessStatus, len(statuses))
	for _, status := range statuses {
		index[status.Label] = status
	}
	return index
}
