package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kioskops/kioskctl/internal/logger"
)

// Shell executes commands through a POSIX shell with -c.
type Shell struct {
	shellPath string
	log       *logger.Logger
}

var _ Gateway = (*Shell)(nil)

// NewShell builds a shell-backed gateway. An empty shellPath falls back to
// bash, then sh, from PATH.
func NewShell(shellPath string, log *logger.Logger) (*Shell, error) {
	resolved, err := resolveShell(shellPath)
	if err != nil {
		return nil, err
	}
	return &Shell{shellPath: resolved, log: log}, nil
}

// Run executes command through the shell. Stdout and stderr come back
// trimmed of surrounding whitespace.
func (s *Shell) Run(ctx context.Context, command string) (Result, error) {
	s.log.WithFields(map[string]any{"command": command}).Debug("running shell command")

	cmd := exec.CommandContext(ctx, s.shellPath, "-c", command)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()

	result := Result{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}

	return result, nil
}

func resolveShell(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if path, err := exec.LookPath("bash"); err == nil {
		return path, nil
	}

	if path, err := exec.LookPath("sh"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("no suitable shell found")
}
