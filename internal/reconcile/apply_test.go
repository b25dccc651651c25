package reconcile

import (
	"context"
	"sync"
	"testing"

	"github.com/kioskops/kioskctl/internal/catalog"
	"github.com/kioskops/kioskctl/internal/gateway"
	"github.com/kioskops/kioskctl/internal/model"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
	"github.com/stretchr/testify/require"
)

func elevatedDefinition(id string) catalog.Definition {
	def := checkedDefinition(id, "check-"+id)
	def.Apply = catalog.Command("sudo apply-" + id)
	return def
}

func TestApplySucceeds(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: map[string]gateway.Result{
		"apply-s": {ExitCode: 0, Stdout: "done"},
	}}
	cat := catalog.MustNew([]catalog.Definition{checkedDefinition("s", "check-s")})
	rec := New(cat, gw, nil, Options{})

	outcome, err := rec.Apply(context.Background(), "s")
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)
	require.False(t, outcome.Declined)
	require.Equal(t, "done", outcome.RawOutput)
	// Apply never re-verifies on its own.
	require.Equal(t, []string{"apply-s"}, gw.recorded())
}

func TestApplyNonZeroExitIsFailedOutcomeNotError(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: map[string]gateway.Result{
		"apply-s": {ExitCode: 1, Stderr: "operation not permitted"},
	}}
	cat := catalog.MustNew([]catalog.Definition{checkedDefinition("s", "check-s")})
	rec := New(cat, gw, nil, Options{})

	outcome, err := rec.Apply(context.Background(), "s")
	require.NoError(t, err)
	require.False(t, outcome.Succeeded)
	require.False(t, outcome.Declined)
	require.True(t, outcome.Failed())
	require.Equal(t, "operation not permitted", outcome.RawError)
	require.Contains(t, outcome.Message, "exited 1")
}

func TestApplyUnknownID(t *testing.T) {
	t.Parallel()

	rec := New(catalog.MustNew(nil), &fakeGateway{}, nil, Options{})

	_, err := rec.Apply(context.Background(), "ghost")
	require.Error(t, err)

	var validation *kioskerrors.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestApplyElevatedObtainsSessionFirst(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: map[string]gateway.Result{
		"sudo apply-s": {ExitCode: 0},
	}}
	elev := &fakeElevator{}
	cat := catalog.MustNew([]catalog.Definition{elevatedDefinition("s")})
	rec := New(cat, gw, elev, Options{})

	outcome, err := rec.Apply(context.Background(), "s")
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)
	require.Equal(t, 1, elev.ensureCalls())
}

func TestApplyElevationDeclined(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	elev := &fakeElevator{err: kioskerrors.NewElevationDeclinedError("native", "user pressed cancel")}
	cat := catalog.MustNew([]catalog.Definition{elevatedDefinition("s")})
	rec := New(cat, gw, elev, Options{})

	outcome, err := rec.Apply(context.Background(), "s")
	require.NoError(t, err)
	require.True(t, outcome.Declined)
	require.False(t, outcome.Succeeded)
	require.False(t, outcome.Failed())
	require.Equal(t, "user pressed cancel", outcome.Message)
	require.Empty(t, gw.recorded())
}

func TestApplyWithoutElevatorDeclinesElevatedSetting(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	cat := catalog.MustNew([]catalog.Definition{elevatedDefinition("s")})
	rec := New(cat, gw, nil, Options{})

	outcome, err := rec.Apply(context.Background(), "s")
	require.NoError(t, err)
	require.True(t, outcome.Declined)
	require.Empty(t, gw.recorded())
}

func TestApplyManyReportsAllOutcomesPastFailure(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: map[string]gateway.Result{
		"apply-a": {ExitCode: 0},
		"apply-b": {ExitCode: 1, Stderr: "boom"},
		"apply-c": {ExitCode: 0},
	}}
	cat := catalog.MustNew([]catalog.Definition{
		checkedDefinition("a", "check-a"),
		checkedDefinition("b", "check-b"),
		checkedDefinition("c", "check-c"),
	})
	rec := New(cat, gw, nil, Options{})

	outcomes, err := rec.ApplyMany(context.Background(), []string{"a", "b", "c"}, false)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	require.True(t, outcomes[0].Succeeded)
	require.True(t, outcomes[1].Failed())
	require.True(t, outcomes[2].Succeeded)
}

func TestApplyManyStopOnFailure(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: map[string]gateway.Result{
		"apply-a": {ExitCode: 0},
		"apply-b": {ExitCode: 1},
		"apply-c": {ExitCode: 0},
	}}
	cat := catalog.MustNew([]catalog.Definition{
		checkedDefinition("a", "check-a"),
		checkedDefinition("b", "check-b"),
		checkedDefinition("c", "check-c"),
	})
	rec := New(cat, gw, nil, Options{})

	outcomes, err := rec.ApplyMany(context.Background(), []string{"a", "b", "c"}, true)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	require.True(t, outcomes[1].Failed())
	require.Equal(t, []string{"apply-a", "apply-b"}, gw.recorded())
}

func TestApplyManyRunsSequentiallyInGivenOrder(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	cat := catalog.MustNew([]catalog.Definition{
		checkedDefinition("a", "check-a"),
		checkedDefinition("b", "check-b"),
		checkedDefinition("c", "check-c"),
	})
	rec := New(cat, gw, nil, Options{})

	_, err := rec.ApplyMany(context.Background(), []string{"c", "a", "b"}, false)
	require.NoError(t, err)
	require.Equal(t, []string{"apply-c", "apply-a", "apply-b"}, gw.recorded())
}

func TestApplyManyRemembersDeclinedElevation(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	elev := &fakeElevator{err: kioskerrors.NewElevationDeclinedError("native", "cancelled")}
	cat := catalog.MustNew([]catalog.Definition{
		elevatedDefinition("e1"),
		checkedDefinition("plain", "check-plain"),
		elevatedDefinition("e2"),
	})
	rec := New(cat, gw, elev, Options{})

	outcomes, err := rec.ApplyMany(context.Background(), []string{"e1", "plain", "e2"}, false)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	require.True(t, outcomes[0].Declined)
	require.True(t, outcomes[1].Succeeded)
	require.True(t, outcomes[2].Declined)
	require.Equal(t, "elevation previously declined", outcomes[2].Message)

	// One prompt for the whole batch, and only the unelevated command ran.
	require.Equal(t, 1, elev.ensureCalls())
	require.Equal(t, []string{"apply-plain"}, gw.recorded())
}

func TestApplyManyUnknownIDRejectedUpfront(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	cat := catalog.MustNew([]catalog.Definition{checkedDefinition("a", "check-a")})
	rec := New(cat, gw, nil, Options{})

	_, err := rec.ApplyMany(context.Background(), []string{"a", "ghost"}, false)
	require.Error(t, err)
	require.Empty(t, gw.recorded())
}

func TestApplyManyCancelledContextStopsDispatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &fakeGateway{}
	cat := catalog.MustNew([]catalog.Definition{checkedDefinition("a", "check-a")})
	rec := New(cat, gw, nil, Options{})

	outcomes, err := rec.ApplyMany(ctx, []string{"a"}, false)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, outcomes)
	require.Empty(t, gw.recorded())
}

func TestApplyThenRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	const (
		checkCmd   = "defaults read com.example idle"
		applyCmd   = "defaults write com.example idle -int 0"
		restoreCmd = "defaults write com.example idle -int 300"
	)

	var mu sync.Mutex
	state := "300"

	gw := &fakeGateway{}
	gw.onRun = func(command string) (gateway.Result, error) {
		mu.Lock()
		defer mu.Unlock()

		switch command {
		case checkCmd:
			return gateway.Result{ExitCode: 0, Stdout: state}, nil
		case applyCmd:
			state = "0"
			return gateway.Result{ExitCode: 0}, nil
		case restoreCmd:
			state = "300"
			return gateway.Result{ExitCode: 0}, nil
		}
		return gateway.Result{ExitCode: 127, Stderr: "command not found"}, nil
	}

	def := catalog.Definition{
		ID:          "idle",
		DisplayName: "idle",
		Category:    catalog.CategoryPower,
		Apply:       catalog.Command(applyCmd),
		Verify: catalog.CommandCheck{
			Command: catalog.Command(checkCmd),
			Applied: catalog.OutputIs("0"),
			Unset:   catalog.AnyOf(catalog.OutputDiffers("0"), catalog.CheckFails()),
		},
		Restore: catalog.RestoreCommand{Command: catalog.Command(restoreCmd)},
	}
	rec := New(catalog.MustNew([]catalog.Definition{def}), gw, nil, Options{})

	ctx := context.Background()

	before, err := rec.Verify(ctx, "idle")
	require.NoError(t, err)
	require.Equal(t, model.ClassNotApplied, before.Classification)

	outcome, err := rec.Apply(ctx, "idle")
	require.NoError(t, err)
	require.True(t, outcome.Succeeded)

	applied, err := rec.Verify(ctx, "idle")
	require.NoError(t, err)
	require.Equal(t, model.ClassApplied, applied.Classification)

	// Run the restore command the way a generated restore script would.
	restoreResult, err := gw.Run(ctx, restoreCmd)
	require.NoError(t, err)
	require.Zero(t, restoreResult.ExitCode)

	after, err := rec.Verify(ctx, "idle")
	require.NoError(t, err)
	require.Equal(t, before.Classification, after.Classification)
}
