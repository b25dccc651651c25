package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/kioskops/kioskctl/internal/elevation"
)

// promptElevator adapts the elevation manager to the reconciler. It owns
// the interactive side: prompting for a password when the method needs one
// and printing the near-expiry warning. The manager's session cache keeps
// repeated Ensure calls down to a single prompt.
type promptElevator struct {
	manager      *elevation.Manager
	method       elevation.Method
	stderr       io.Writer
	readPassword func() ([]byte, error)
}

func newPromptElevator(app *appContext, method elevation.Method) *promptElevator {
	var broker elevation.Broker
	if method == elevation.MethodPassword {
		broker = &elevation.PasswordBroker{}
	} else {
		broker = elevation.NewNativeBroker(app.gw)
	}

	manager := elevation.NewManager(broker, elevation.ManagerOptions{
		TTL: app.cfg.ElevationTTL,
		Log: app.log,
	})

	return &promptElevator{
		manager: manager,
		method:  method,
		stderr:  os.Stderr,
		readPassword: func() ([]byte, error) {
			return term.ReadPassword(int(os.Stdin.Fd()))
		},
	}
}

func (e *promptElevator) Ensure(ctx context.Context) (*elevation.Session, error) {
	if s := e.manager.Active(); s != nil {
		e.warnIfExpiring(s)
		return s, nil
	}

	req := elevation.Request{Method: e.method}
	if e.method == elevation.MethodPassword {
		fmt.Fprint(e.stderr, "Administrator password: ")
		credential, err := e.readPassword()
		fmt.Fprintln(e.stderr)
		if err != nil {
			return nil, err
		}
		req.Credential = credential
	}

	session, err := e.manager.Ensure(ctx, req)
	if err != nil {
		return nil, err
	}
	e.warnIfExpiring(session)
	return session, nil
}

func (e *promptElevator) Active() *elevation.Session {
	return e.manager.Active()
}

func (e *promptElevator) warnIfExpiring(s *elevation.Session) {
	if e.manager.ShouldWarn() {
		remaining := s.Remaining(time.Now()).Round(time.Minute)
		fmt.Fprintf(e.stderr, "Administrator session expires in %s.\n", remaining)
	}
}
