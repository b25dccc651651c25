package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kioskops/kioskctl/internal/model"
	"github.com/kioskops/kioskctl/internal/reconcile"
)

type verifyOptions struct {
	ProfilePath string
	JSON        bool
	Workers     int
	Verbose     bool
}

var verifyCmdRunner = runVerify

func newVerifyCmd(root *rootFlags) *cobra.Command {
	opts := verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify [setting-id...]",
		Short: "Check which kiosk settings are applied without changing anything",
		Long: `Verify runs each setting's check command and classifies the result as
applied, not_applied, error or unverifiable. Nothing is modified and no
elevation prompt is ever triggered: checks that need administrator access
report unverifiable instead. Returns exit code 0 when every verifiable
setting is applied, 1 when drift was found, 2 when any check errored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Verbose = root.verbose
			return verifyCmdRunner(root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.ProfilePath, "profile", "p", "", "Kiosk profile narrowing the settings to check")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results in JSON format")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Concurrent checks (0 uses the configured default)")

	return cmd
}

func runVerify(root *rootFlags, opts verifyOptions, args []string) error {
	app, err := buildAppContext(root, opts.JSON)
	if err != nil {
		return err
	}

	ids, _, err := app.resolveSelection(args, opts.ProfilePath)
	if err != nil {
		return err
	}

	workers := opts.Workers
	if workers == 0 {
		workers = app.cfg.VerifyWorkers
	}

	// Verification never prompts, so no elevator is wired in: elevated
	// checks classify as unverifiable.
	rec := reconcile.New(app.catalog, app.gw, nil, reconcile.Options{Workers: workers, Log: app.log})

	app.log.WithFields(map[string]any{"settings": len(ids)}).Info("starting verification")

	results, err := rec.VerifyMany(context.Background(), ids)
	if err != nil {
		return err
	}

	summary := buildSummary(results)

	if opts.JSON {
		printVerifyJSON(summary)
	} else {
		printVerifyTable(summary, app)
	}

	exitFunc(summary.ExitCode())
	return nil
}

func buildSummary(results []model.SettingStatus) *model.VerifySummary {
	summary := &model.VerifySummary{}
	for _, status := range results {
		summary.Add(status)
	}
	return summary
}

func printVerifyTable(summary *model.VerifySummary, app *appContext) {
	fmt.Println(titleStyle.Render("Setting verification"))
	fmt.Println()

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "SETTING\tSTATUS\tOBSERVED")

	for _, result := range summary.Results {
		name := result.SettingID
		if def, ok := app.catalog.Lookup(result.SettingID); ok {
			name = def.DisplayName
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n",
			name,
			styleClassification(result.Classification),
			truncateString(result.RawObservation, 48),
		)
	}
	writer.Flush()

	fmt.Println()
	fmt.Printf("Total: %d  Applied: %d  Not applied: %d  Errors: %d  Unverifiable: %d\n",
		summary.Total, summary.Applied, summary.NotApplied, summary.Errors, summary.Unverifiable)

	if summary.AllApplied() {
		fmt.Println(appliedStyle.Render("Every verifiable setting is already applied."))
	} else if summary.NeedsApply() {
		fmt.Println(notAppliedStyle.Render("Drift found. Run 'kioskctl apply' to enforce the profile."))
	}
}

func printVerifyJSON(summary *model.VerifySummary) {
	type jsonResult struct {
		SettingID      string `json:"setting_id"`
		Classification string `json:"classification"`
		Observation    string `json:"observation,omitempty"`
		ObservedAt     string `json:"observed_at"`
	}

	type jsonOutput struct {
		Total        int          `json:"total"`
		Applied      int          `json:"applied"`
		NotApplied   int          `json:"not_applied"`
		Errors       int          `json:"errors"`
		Unverifiable int          `json:"unverifiable"`
		Results      []jsonResult `json:"results"`
	}

	output := jsonOutput{
		Total:        summary.Total,
		Applied:      summary.Applied,
		NotApplied:   summary.NotApplied,
		Errors:       summary.Errors,
		Unverifiable: summary.Unverifiable,
		Results:      make([]jsonResult, len(summary.Results)),
	}
	for i, result := range summary.Results {
		output.Results[i] = jsonResult{
			SettingID:      result.SettingID,
			Classification: string(result.Classification),
			Observation:    result.RawObservation,
			ObservedAt:     result.ObservedAt.Format(time.RFC3339),
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

func styleClassification(c model.Classification) string {
	switch c {
	case model.ClassApplied:
		return appliedStyle.Render("applied")
	case model.ClassNotApplied:
		return notAppliedStyle.Render("not applied")
	case model.ClassError:
		return errorStyle.Render("error")
	case model.ClassUnverifiable:
		return unverifiableStyle.Render("unverifiable")
	default:
		return string(c)
	}
}

func truncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
