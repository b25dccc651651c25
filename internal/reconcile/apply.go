package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/kioskops/kioskctl/internal/catalog"
	"github.com/kioskops/kioskctl/internal/model"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

// Apply drives a single setting to its desired state. Elevation is
// obtained first when the command needs it; a refusal comes back as a
// declined outcome, not an error. Apply never re-verifies afterwards.
func (r *Reconciler) Apply(ctx context.Context, id string) (model.ApplyOutcome, error) {
	def, ok := r.catalog.Lookup(id)
	if !ok {
		return model.ApplyOutcome{}, kioskerrors.NewValidationError(id, "unknown setting id", nil)
	}
	return r.applyDefinition(ctx, def)
}

// ApplyMany applies the named settings sequentially, in the given order.
// Failures are collected, not propagated, unless stopOnFailure is set.
// Once elevation has been declined, later elevated settings are marked
// declined without prompting again; unelevated settings still apply.
func (r *Reconciler) ApplyMany(ctx context.Context, ids []string, stopOnFailure bool) ([]model.ApplyOutcome, error) {
	defs, err := r.resolve(ids)
	if err != nil {
		return nil, err
	}

	outcomes := make([]model.ApplyOutcome, 0, len(defs))
	declined := false

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		if declined && def.ElevationRequired() {
			outcomes = append(outcomes, model.ApplyOutcome{
				SettingID: def.ID,
				Declined:  true,
				Message:   "elevation previously declined",
			})
			continue
		}

		outcome, _ := r.applyDefinition(ctx, def)
		outcomes = append(outcomes, outcome)

		if outcome.Declined {
			declined = true
		}
		if outcome.Failed() && stopOnFailure {
			return outcomes, nil
		}
	}

	return outcomes, nil
}

// applyDefinition runs one apply command and reports the outcome verbatim.
// The returned error marks infrastructure failures only; command failures
// and declined elevation are data on the outcome.
func (r *Reconciler) applyDefinition(ctx context.Context, def catalog.Definition) (model.ApplyOutcome, error) {
	log := r.log.WithSetting(def.ID)

	if def.ElevationRequired() {
		if r.elev == nil {
			return model.ApplyOutcome{
				SettingID: def.ID,
				Declined:  true,
				Message:   "no elevation path configured",
			}, nil
		}

		if _, err := r.elev.Ensure(ctx); err != nil {
			var declinedErr *kioskerrors.ElevationDeclinedError
			if errors.As(err, &declinedErr) {
				return model.ApplyOutcome{
					SettingID: def.ID,
					Declined:  true,
					Message:   declinedErr.Reason,
				}, nil
			}
			outcome := model.ApplyOutcome{SettingID: def.ID, Message: err.Error()}
			return outcome, kioskerrors.NewExecutionError(def.ID, "", err)
		}
	}

	// An apply command, once dispatched, always runs to completion;
	// killing it midway could leave the system half-mutated.
	result, err := r.gw.Run(context.WithoutCancel(ctx), def.Apply.String())
	if err != nil {
		log.Error(err, "apply command could not run")
		outcome := model.ApplyOutcome{SettingID: def.ID, Message: err.Error()}
		return outcome, kioskerrors.NewExecutionError(def.ID, "", err)
	}

	outcome := model.ApplyOutcome{
		SettingID: def.ID,
		Succeeded: result.ExitCode == 0,
		RawOutput: result.Stdout,
		RawError:  result.Stderr,
	}
	if outcome.Succeeded {
		outcome.Message = "applied"
		log.Debug("apply command succeeded")
	} else {
		outcome.Message = fmt.Sprintf("command exited %d", result.ExitCode)
		log.WithFields(map[string]any{"exit_code": result.ExitCode}).Warn("apply command failed")
	}
	return outcome, nil
}
