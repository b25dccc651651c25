// Package gateway is the single seam between kioskctl and the host shell.
// Every check, apply and launchctl invocation flows through a Gateway so
// tests can substitute a fake and observe exactly what would run.
package gateway

import "context"

// Result captures what a command run produced. A non-zero exit code is
// data, not an error: callers classify it.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Gateway runs a shell command and reports its outcome. Run returns a
// non-nil error only for infrastructure failures (shell missing, context
// cancelled); command failures surface through Result.ExitCode.
type Gateway interface {
	Run(ctx context.Context, command string) (Result, error)
}
