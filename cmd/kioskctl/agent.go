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

	"github.com/kioskops/kioskctl/internal/config"
	"github.com/kioskops/kioskctl/internal/launchd"
	"github.com/kioskops/kioskctl/internal/procstatus"
	kioskerrors "github.com/kioskops/kioskctl/pkg/errors"
)

func newAgentCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage kiosk launch agents",
		Long: `Agent installs, removes and lists the launchd agents that keep kiosk
processes running. Descriptors are written to the user's LaunchAgents
directory and loaded through launchctl.`,
	}

	cmd.AddCommand(newAgentInstallCmd(root))
	cmd.AddCommand(newAgentUninstallCmd(root))
	cmd.AddCommand(newAgentListCmd(root))
	cmd.AddCommand(newAgentStatusCmd(root))

	return cmd
}

type agentInstallOptions struct {
	ProfilePath string
	KeepAlive   string
	ProcessType string
	WorkingDir  string
}

var agentInstallCmdRunner = runAgentInstall

func newAgentInstallCmd(root *rootFlags) *cobra.Command {
	opts := agentInstallOptions{}

	cmd := &cobra.Command{
		Use:   "install [label program [arg...]]",
		Short: "Install a launch agent and load it",
		Long: `Install writes a launch agent descriptor and loads it through launchctl.
Agents come either from a profile's agents section (--profile) or from the
command line as a label, a program and optional arguments. A program ending
in .app is resolved to the bundle's executable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return agentInstallCmdRunner(root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.ProfilePath, "profile", "p", "", "Kiosk profile whose agents section to install")
	cmd.Flags().StringVar(&opts.KeepAlive, "keep-alive", "", "Restart policy: never, always or only-after-successful-exit")
	cmd.Flags().StringVar(&opts.ProcessType, "process-type", "", "launchd process type: Background, Standard, Interactive or Adaptive")
	cmd.Flags().StringVar(&opts.WorkingDir, "working-dir", "", "Working directory for the agent process")

	// Agent arguments often start with dashes; flag parsing stops at the
	// first positional so they pass through untouched.
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func runAgentInstall(root *rootFlags, opts agentInstallOptions, args []string) error {
	app, err := buildAppContext(root, false)
	if err != nil {
		return err
	}

	agents, err := collectAgents(opts, args)
	if err != nil {
		return err
	}

	dir, err := app.agentDir()
	if err != nil {
		return err
	}
	mgr := launchd.NewManager(dir, app.gw, app.log)

	for _, agent := range agents {
		executable, err := resolveProgram(agent.Program, app)
		if err != nil {
			return err
		}

		descriptor := agent.Descriptor(executable)
		if err := mgr.Install(context.Background(), descriptor); err != nil {
			return err
		}
		fmt.Printf("Installed %s\n", descriptor.Label)
	}

	return nil
}

// collectAgents turns the install invocation into agent entries: the
// profile's agents section, or a single entry built from the arguments.
func collectAgents(opts agentInstallOptions, args []string) ([]config.Agent, error) {
	if opts.ProfilePath != "" {
		if len(args) > 0 {
			return nil, kioskerrors.NewValidationError("args", "cannot combine --profile with a command-line agent", nil)
		}
		profile, err := config.ParseProfile(opts.ProfilePath)
		if err != nil {
			return nil, err
		}
		if len(profile.Agents) == 0 {
			return nil, kioskerrors.NewValidationError("agents", fmt.Sprintf("profile %q declares no agents", profile.Name), nil)
		}
		return profile.Agents, nil
	}

	if len(args) < 2 {
		return nil, kioskerrors.NewValidationError("args", "need a label and a program, or --profile", nil)
	}

	return []config.Agent{{
		Label:            args[0],
		Program:          args[1],
		Arguments:        args[2:],
		KeepAlive:        opts.KeepAlive,
		ProcessType:      opts.ProcessType,
		WorkingDirectory: opts.WorkingDir,
	}}, nil
}

// resolveProgram maps a profile program onto the executable launchd will
// run. Plain paths pass through; .app bundles resolve to the binary inside
// Contents/MacOS. Bundle metadata is logged when readable but identity
// fields are cosmetic, so a missing Info.plist does not block the install.
func resolveProgram(program string, app *appContext) (string, error) {
	if !strings.HasSuffix(program, launchd.BundleExtension) {
		return program, nil
	}

	executable, err := launchd.ResolveExecutable(program)
	if err != nil {
		return "", err
	}

	if meta, err := launchd.ReadBundleMetadata(program); err == nil {
		app.log.WithFields(map[string]any{
			"bundle_id": meta.BundleIdentifier,
			"version":   meta.Version,
		}).Debug("resolved application bundle")
	}

	return executable, nil
}

var agentUninstallCmdRunner = runAgentUninstall

func newAgentUninstallCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall <label>",
		Short: "Unload a launch agent and delete its descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return agentUninstallCmdRunner(root, args[0])
		},
	}

	return cmd
}

func runAgentUninstall(root *rootFlags, label string) error {
	app, err := buildAppContext(root, false)
	if err != nil {
		return err
	}

	dir, err := app.agentDir()
	if err != nil {
		return err
	}
	mgr := launchd.NewManager(dir, app.gw, app.log)

	if err := mgr.Uninstall(context.Background(), label); err != nil {
		return err
	}
	fmt.Printf("Uninstalled %s\n", label)
	return nil
}

type agentListOptions struct {
	JSON bool
}

var agentListCmdRunner = runAgentList

func newAgentListCmd(root *rootFlags) *cobra.Command {
	opts := agentListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed launch agent descriptors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return agentListCmdRunner(root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results in JSON format")

	return cmd
}

func runAgentList(root *rootFlags, opts agentListOptions) error {
	app, err := buildAppContext(root, opts.JSON)
	if err != nil {
		return err
	}

	dir, err := app.agentDir()
	if err != nil {
		return err
	}
	mgr := launchd.NewManager(dir, app.gw, app.log)

	records, err := mgr.List()
	if err != nil {
		return err
	}

	if opts.JSON {
		printAgentListJSON(dir, records)
		return nil
	}

	if len(records) == 0 {
		fmt.Printf("No launch agents in %s\n", dir)
		return nil
	}

	fmt.Println(titleStyle.Render("Launch agents"))
	fmt.Println()

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "FILENAME\tLABEL\tSIZE\tMODIFIED")
	for _, record := range records {
		if record.Err != nil {
			fmt.Fprintf(writer, "%s\t%s\t\t\n", record.Filename, errorStyle.Render("unreadable"))
			continue
		}
		fmt.Fprintf(writer, "%s\t%s\t%d B\t%s\n",
			record.Filename,
			record.Label,
			record.SizeBytes,
			formatRelativeTime(record.ModifiedAt),
		)
	}
	writer.Flush()

	return nil
}

func printAgentListJSON(dir string, records []launchd.Record) {
	type jsonRecord struct {
		Filename   string `json:"filename"`
		Label      string `json:"label,omitempty"`
		SizeBytes  int64  `json:"size_bytes"`
		ModifiedAt string `json:"modified_at"`
		Error      string `json:"error,omitempty"`
	}

	type jsonOutput struct {
		Directory string       `json:"directory"`
		Agents    []jsonRecord `json:"agents"`
	}

	output := jsonOutput{Directory: dir, Agents: make([]jsonRecord, len(records))}
	for i, record := range records {
		output.Agents[i] = jsonRecord{
			Filename:   record.Filename,
			Label:      record.Label,
			SizeBytes:  record.SizeBytes,
			ModifiedAt: record.ModifiedAt.Format(time.RFC3339),
		}
		if record.Err != nil {
			output.Agents[i].Error = record.Err.Error()
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

type agentStatusOptions struct {
	JSON bool
}

var agentStatusCmdRunner = runAgentStatus

func newAgentStatusCmd(root *rootFlags) *cobra.Command {
	opts := agentStatusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether installed agents are loaded and running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return agentStatusCmdRunner(root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results in JSON format")

	return cmd
}

func runAgentStatus(root *rootFlags, opts agentStatusOptions) error {
	app, err := buildAppContext(root, opts.JSON)
	if err != nil {
		return err
	}

	dir, err := app.agentDir()
	if err != nil {
		return err
	}
	mgr := launchd.NewManager(dir, app.gw, app.log)

	records, err := mgr.List()
	if err != nil {
		return err
	}

	registry := procstatus.NewCorrelator(app.gw, app.log).Query(context.Background(), "")
	rows := joinAgentStatus(records, procstatus.ByLabel(registry))

	if opts.JSON {
		printAgentStatusJSON(dir, rows)
		return nil
	}

	if len(rows) == 0 {
		fmt.Printf("No launch agents in %s\n", dir)
		return nil
	}

	fmt.Println(titleStyle.Render("Agent status"))
	fmt.Println()

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "LABEL\tLOADED\tPID\tLAST EXIT")
	for _, row := range rows {
		loaded := "no"
		if row.Loaded {
			loaded = "yes"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			row.Label, loaded, formatNullableInt(row.PID), formatNullableInt(row.LastExitCode))
	}
	writer.Flush()

	return nil
}

// agentStatusRow is one installed descriptor joined against the live
// process registry.
type agentStatusRow struct {
	Label        string
	Loaded       bool
	PID          *int
	LastExitCode *int
}

// joinAgentStatus matches descriptor labels against registry rows.
// Unreadable descriptors are skipped; an agent directory entry without a
// registry row is simply not loaded.
func joinAgentStatus(records []launchd.Record, registry map[string]procstatus.ProcessStatus) []agentStatusRow {
	rows := make([]agentStatusRow, 0, len(records))
	for _, record := range records {
		if record.Err != nil || record.Label == "" {
			continue
		}
		row := agentStatusRow{Label: record.Label}
		if status, ok := registry[record.Label]; ok {
			row.Loaded = true
			row.PID = status.PID
			row.LastExitCode = status.LastExitCode
		}
		rows = append(rows, row)
	}
	return rows
}

func printAgentStatusJSON(dir string, rows []agentStatusRow) {
	type jsonRow struct {
		Label        string `json:"label"`
		Loaded       bool   `json:"loaded"`
		PID          *int   `json:"pid"`
		LastExitCode *int   `json:"last_exit_code"`
	}

	type jsonOutput struct {
		Directory string    `json:"directory"`
		Agents    []jsonRow `json:"agents"`
	}

	output := jsonOutput{Directory: dir, Agents: make([]jsonRow, len(rows))}
	for i, row := range rows {
		output.Agents[i] = jsonRow(row)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

func formatRelativeTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}

	delta := time.Since(ts)
	if delta < time.Minute {
		return "just now"
	}
	if delta < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(delta.Minutes()))
	}
	if delta < 24*time.Hour {
		return fmt.Sprintf("%d hours ago", int(delta.Hours()))
	}

	return fmt.Sprintf("%d days ago", int(delta.Hours()/24))
}
