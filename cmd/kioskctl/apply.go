package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kioskops/kioskctl/internal/config"
	"github.com/kioskops/kioskctl/internal/elevation"
	"github.com/kioskops/kioskctl/internal/model"
	"github.com/kioskops/kioskctl/internal/reconcile"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

type applyOptions struct {
	ProfilePath   string
	StopOnFailure bool
	Method        string
	JSON          bool
	Verbose       bool
}

var applyCmdRunner = runApply

func newApplyCmd(root *rootFlags) *cobra.Command {
	opts := applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply [setting-id...]",
		Short: "Drive kiosk settings to their desired state",
		Long: `Apply runs each selected setting's apply command, in catalog order.
Settings that need administrator access trigger a single elevation request;
the granted session is reused for the rest of the run. Declining elevation
skips the remaining elevated settings but unelevated ones still apply.
Returns exit code 0 only when every selected setting succeeded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose
			return applyCmdRunner(root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.ProfilePath, "profile", "p", "", "Kiosk profile selecting the settings to apply")
	cmd.Flags().BoolVar(&opts.StopOnFailure, "stop-on-failure", false, "Stop at the first failed setting instead of continuing")
	cmd.Flags().StringVar(&opts.Method, "method", "", "Elevation method: native or password (default from profile, then native)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results in JSON format")

	return cmd
}

func runApply(root *rootFlags, opts applyOptions, args []string) error {
	app, err := buildAppContext(root, opts.JSON)
	if err != nil {
		return err
	}

	ids, profile, err := app.resolveSelection(args, opts.ProfilePath)
	if err != nil {
		return err
	}

	method, err := resolveMethod(opts.Method, profile)
	if err != nil {
		return err
	}

	elev := newPromptElevator(app, method)
	rec := reconcile.New(app.catalog, app.gw, elev, reconcile.Options{Log: app.log})

	app.log.WithFields(map[string]any{
		"settings": len(ids),
		"method":   string(method),
	}).Info("starting apply")

	outcomes, err := rec.ApplyMany(context.Background(), ids, opts.StopOnFailure)
	if err != nil {
		return err
	}

	if opts.JSON {
		printApplyJSON(outcomes)
	} else {
		printApplyTable(outcomes, app)
	}

	exitFunc(applyExitCode(outcomes))
	return nil
}

// resolveMethod picks the elevation method: the flag wins, then the
// profile's elevation section, then the OS dialog.
func resolveMethod(flag string, profile *config.Profile) (elevation.Method, error) {
	raw := flag
	if raw == "" && profile != nil {
		raw = profile.Elevation.Method
	}
	if raw == "" {
		return elevation.MethodNative, nil
	}

	method := elevation.Method(raw)
	if !method.IsValid() {
		return "", kioskerrors.NewValidationError("method", fmt.Sprintf("unknown elevation method %q", raw), nil)
	}
	return method, nil
}

// applyExitCode folds outcomes into a process exit code: zero only when
// every setting succeeded.
func applyExitCode(outcomes []model.ApplyOutcome) int {
	for _, outcome := range outcomes {
		if !outcome.Succeeded {
			return 1
		}
	}
	return 0
}

func printApplyTable(outcomes []model.ApplyOutcome, app *appContext) {
	fmt.Println(titleStyle.Render("Applying settings"))
	fmt.Println()

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "SETTING\tRESULT\tDETAIL")

	succeeded := 0
	for _, outcome := range outcomes {
		name := outcome.SettingID
		if def, ok := app.catalog.Lookup(outcome.SettingID); ok {
			name = def.DisplayName
		}

		detail := outcome.Message
		if outcome.Failed() && outcome.RawError != "" {
			detail = outcome.RawError
		}

		fmt.Fprintf(writer, "%s\t%s\t%s\n", name, styleOutcome(outcome), truncateString(detail, 48))
		if outcome.Succeeded {
			succeeded++
		}
	}
	writer.Flush()

	fmt.Println()
	fmt.Printf("Applied %d of %d settings.\n", succeeded, len(outcomes))
}

func printApplyJSON(outcomes []model.ApplyOutcome) {
	type jsonOutcome struct {
		SettingID string `json:"setting_id"`
		Result    string `json:"result"`
		Message   string `json:"message,omitempty"`
		Output    string `json:"output,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	type jsonOutput struct {
		Total     int           `json:"total"`
		Succeeded int           `json:"succeeded"`
		Declined  int           `json:"declined"`
		Failed    int           `json:"failed"`
		Outcomes  []jsonOutcome `json:"outcomes"`
	}

	output := jsonOutput{
		Total:    len(outcomes),
		Outcomes: make([]jsonOutcome, len(outcomes)),
	}
	for i, outcome := range outcomes {
		output.Outcomes[i] = jsonOutcome{
			SettingID: outcome.SettingID,
			Result:    outcomeLabel(outcome),
			Message:   outcome.Message,
			Output:    outcome.RawOutput,
			Error:     outcome.RawError,
		}
		switch {
		case outcome.Succeeded:
			output.Succeeded++
		case outcome.Declined:
			output.Declined++
		default:
			output.Failed++
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

func outcomeLabel(outcome model.ApplyOutcome) string {
	switch {
	case outcome.Succeeded:
		return "applied"
	case outcome.Declined:
		return "declined"
	default:
		return "failed"
	}
}

func styleOutcome(outcome model.ApplyOutcome) string {
	switch {
	case outcome.Succeeded:
		return appliedStyle.Render("applied")
	case outcome.Declined:
		return declinedStyle.Render("declined")
	default:
		return errorStyle.Render("failed")
	}
}
