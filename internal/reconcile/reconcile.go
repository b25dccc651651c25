// Package reconcile compares the setting catalog against live system state
// and drives settings toward their desired values. Verification runs
// concurrently under a bounded worker count; application is strictly
// sequential because elevation state and setting interactions make order
// observable.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/kioskops/kioskctl/internal/catalog"
	"github.com/kioskops/kioskctl/internal/elevation"
	"github.com/kioskops/kioskctl/internal/gateway"
	"github.com/kioskops/kioskctl/internal/logger"
	"github.com/kioskops/kioskctl/internal/model"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

const defaultWorkers = 5

// Elevator supplies the administrator session for elevated commands.
// Ensure may prompt the user; Active never does. Verification only ever
// consults Active so a bulk pass cannot surprise the user with an OS
// dialog.
type Elevator interface {
	Ensure(ctx context.Context) (*elevation.Session, error)
	Active() *elevation.Session
}

// Options tunes a Reconciler. Zero values fall back to defaults.
type Options struct {
	Workers int
	Log     *logger.Logger
	Now     func() time.Time
}

// Reconciler classifies catalog entries against live state and applies
// them. All command execution goes through the gateway.
type Reconciler struct {
	catalog *catalog.Catalog
	gw      gateway.Gateway
	elev    Elevator
	log     *logger.Logger
	now     func() time.Time
	workers int
}

// New builds a Reconciler. elev may be nil for verify-only use; elevated
// checks then classify as unverifiable and elevated applies as declined.
func New(cat *catalog.Catalog, gw gateway.Gateway, elev Elevator, opts Options) *Reconciler {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		catalog: cat,
		gw:      gw,
		elev:    elev,
		log:     opts.Log,
		now:     now,
		workers: workers,
	}
}

// Verify classifies a single setting. Unknown ids are a validation error;
// everything else, including a failing check command, comes back as a
// classification on the status.
func (r *Reconciler) Verify(ctx context.Context, id string) (model.SettingStatus, error) {
	def, ok := r.catalog.Lookup(id)
	if !ok {
		return model.SettingStatus{}, kioskerrors.NewValidationError(id, "unknown setting id", nil)
	}
	return r.verifyDefinition(ctx, def), nil
}

// VerifyAll classifies every catalog entry, in catalog order. Entries are
// checked concurrently but results stay order-stable. Cancellation stops
// dispatching new checks promptly; already-dispatched commands always run
// to completion and the statuses gathered so far return with ctx's error.
func (r *Reconciler) VerifyAll(ctx context.Context) ([]model.SettingStatus, error) {
	return r.verifyDefinitions(ctx, r.catalog.All())
}

// VerifyMany classifies the named settings in the given order. Unknown ids
// fail validation before any check runs.
func (r *Reconciler) VerifyMany(ctx context.Context, ids []string) ([]model.SettingStatus, error) {
	defs, err := r.resolve(ids)
	if err != nil {
		return nil, err
	}
	return r.verifyDefinitions(ctx, defs)
}

func (r *Reconciler) verifyDefinitions(ctx context.Context, defs []catalog.Definition) ([]model.SettingStatus, error) {
	results := make([]model.SettingStatus, len(defs))
	skipped := make([]bool, len(defs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)

	for i, def := range defs {
		i, def := i, def
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				skipped[i] = true
				return
			}
			results[i] = r.verifyDefinition(ctx, def)
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		partial := make([]model.SettingStatus, 0, len(results))
		for i, status := range results {
			if !skipped[i] {
				partial = append(partial, status)
			}
		}
		return partial, err
	}
	return results, nil
}

// verifyDefinition classifies one definition. A failure here degrades to a
// per-entry error status, never an aborted batch.
func (r *Reconciler) verifyDefinition(ctx context.Context, def catalog.Definition) model.SettingStatus {
	status := model.SettingStatus{
		SettingID:  def.ID,
		ObservedAt: r.now(),
	}

	switch rule := def.Verify.(type) {
	case catalog.Unverifiable:
		status.Classification = model.ClassUnverifiable
		status.RawObservation = rule.Reason
		return status

	case catalog.CommandCheck:
		if rule.Command.Elevated() && r.activeSession() == nil {
			// Never run an elevated check without a session: a bulk
			// verify must not surprise the user with an OS prompt.
			status.Classification = model.ClassUnverifiable
			status.RawObservation = "requires administrator access"
			return status
		}

		// Once dispatched, a check always runs to completion, so
		// cancelling the pass can never interrupt a command midway.
		result, err := r.gw.Run(context.WithoutCancel(ctx), rule.Command.String())
		if err != nil {
			r.log.WithSetting(def.ID).Error(err, "check command could not run")
			status.Classification = model.ClassError
			status.RawObservation = err.Error()
			return status
		}

		status.Classification = rule.Classify(result.ExitCode, result.Stdout)
		status.RawObservation = result.Stdout
		if status.RawObservation == "" {
			status.RawObservation = result.Stderr
		}
		return status

	default:
		status.Classification = model.ClassError
		status.RawObservation = "unsupported verify rule"
		return status
	}
}

func (r *Reconciler) activeSession() *elevation.Session {
	if r.elev == nil {
		return nil
	}
	return r.elev.Active()
}

func (r *Reconciler) resolve(ids []string) ([]catalog.Definition, error) {
	defs := make([]catalog.Definition, 0, len(ids))
	for _, id := range ids {
		def, ok := r.catalog.Lookup(id)
		if !ok {
			return nil, kioskerrors.NewValidationError(id, "unknown setting id", nil)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
