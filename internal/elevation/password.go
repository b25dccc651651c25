package elevation

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// defaultSudoPath is where macOS installs sudo.
const defaultSudoPath = "/usr/bin/sudo"

// PasswordBroker validates an administrator password by priming sudo's
// credential cache. It deliberately bypasses the gateway: the credential
// travels over the child's stdin and must never cross a logged surface.
type PasswordBroker struct {
	// SudoPath overrides the sudo binary, mainly for tests.
	SudoPath string
}

var _ Broker = (*PasswordBroker)(nil)

func (b *PasswordBroker) RequestElevation(ctx context.Context, req Request) (Grant, error) {
	defer wipe(req.Credential)

	sudoPath := b.SudoPath
	if sudoPath == "" {
		sudoPath = defaultSudoPath
	}

	// -k forces revalidation so a stale cache cannot mask a bad password,
	// -S reads the password from stdin, -v only refreshes the cache.
	cmd := exec.CommandContext(ctx, sudoPath, "-k", "-S", "-v", "-p", "")

	input := make([]byte, 0, len(req.Credential)+1)
	input = append(input, req.Credential...)
	input = append(input, '\n')
	defer wipe(input)
	cmd.Stdin = bytes.NewReader(input)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return Grant{Granted: true}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		reason := "incorrect administrator password"
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			reason = msg
		}
		return Grant{Reason: reason}, nil
	}
	if ctx.Err() != nil {
		return Grant{}, ctx.Err()
	}
	return Grant{}, err
}
