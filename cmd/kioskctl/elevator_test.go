package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kioskops/kioskctl/internal/elevation"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

type fakeBroker struct {
	grant         elevation.Grant
	err           error
	calls         int
	gotCredential string
}

func (b *fakeBroker) RequestElevation(ctx context.Context, req elevation.Request) (elevation.Grant, error) {
	b.calls++
	b.gotCredential = string(req.Credential)
	return b.grant, b.err
}

func TestPromptElevatorPasswordPromptsOnce(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{grant: elevation.Grant{Granted: true}}
	manager := elevation.NewManager(broker, elevation.ManagerOptions{})

	var stderr bytes.Buffer
	prompts := 0
	e := &promptElevator{
		manager: manager,
		method:  elevation.MethodPassword,
		stderr:  &stderr,
		readPassword: func() ([]byte, error) {
			prompts++
			return []byte("hunter2"), nil
		},
	}

	session, err := e.Ensure(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, 1, prompts)
	require.Equal(t, "hunter2", broker.gotCredential)
	require.Contains(t, stderr.String(), "Administrator password:")

	// The cached session answers the second call without prompting again.
	again, err := e.Ensure(context.Background())
	require.NoError(t, err)
	require.Equal(t, session, again)
	require.Equal(t, 1, prompts)
	require.Equal(t, 1, broker.calls)
}

func TestPromptElevatorNativeNeverReadsPassword(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{grant: elevation.Grant{Granted: true}}
	manager := elevation.NewManager(broker, elevation.ManagerOptions{})

	var stderr bytes.Buffer
	e := &promptElevator{
		manager: manager,
		method:  elevation.MethodNative,
		stderr:  &stderr,
		readPassword: func() ([]byte, error) {
			t.Fatal("native elevation must not read a password")
			return nil, nil
		},
	}

	session, err := e.Ensure(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Empty(t, stderr.String())
}

func TestPromptElevatorDeclined(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{grant: elevation.Grant{Reason: "user cancelled"}}
	manager := elevation.NewManager(broker, elevation.ManagerOptions{})

	e := &promptElevator{
		manager: manager,
		method:  elevation.MethodNative,
		stderr:  &bytes.Buffer{},
	}

	_, err := e.Ensure(context.Background())
	require.Error(t, err)

	var declinedErr *kioskerrors.ElevationDeclinedError
	require.ErrorAs(t, err, &declinedErr)
	require.Nil(t, e.Active())
}
