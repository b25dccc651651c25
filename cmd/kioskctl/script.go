package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kioskops/kioskctl/internal/script"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

type scriptOptions struct {
	ProfilePath string
	Mode        string
	Check       bool
	OutPath     string
}

var scriptCmdRunner = runScript

func newScriptCmd(root *rootFlags) *cobra.Command {
	opts := scriptOptions{}

	cmd := &cobra.Command{
		Use:   "script [setting-id...]",
		Short: "Emit a standalone shell script for the selected settings",
		Long: `Script renders the selected settings as a bash script that runs without
kioskctl installed, for air-gapped machines or review before applying.
The script goes to stdout unless --out is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return scriptCmdRunner(root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.ProfilePath, "profile", "p", "", "Kiosk profile selecting the settings to include")
	cmd.Flags().StringVar(&opts.Mode, "mode", "apply", "Script direction: apply or restore")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "Append verification commands after each setting")
	cmd.Flags().StringVarP(&opts.OutPath, "out", "o", "", "Write the script to a file instead of stdout")

	return cmd
}

func runScript(root *rootFlags, opts scriptOptions, args []string) error {
	mode := script.Mode(opts.Mode)
	if !mode.IsValid() {
		return kioskerrors.NewValidationError("mode", fmt.Sprintf("unknown script mode %q", opts.Mode), nil)
	}

	app, err := buildAppContext(root, false)
	if err != nil {
		return err
	}

	ids, _, err := app.resolveSelection(args, opts.ProfilePath)
	if err != nil {
		return err
	}

	generated, err := script.NewGenerator(app.catalog).Generate(script.Spec{
		SettingIDs:          ids,
		Mode:                mode,
		IncludeVerification: opts.Check,
	})
	if err != nil {
		return err
	}

	if opts.OutPath != "" {
		if err := os.WriteFile(opts.OutPath, []byte(generated.Body), 0o755); err != nil {
			return err
		}
		app.log.WithFields(map[string]any{
			"path":     opts.OutPath,
			"settings": generated.SettingsCount,
		}).Info("script written")
		return nil
	}

	fmt.Print(generated.Body)
	return nil
}
