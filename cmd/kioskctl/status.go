package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kioskops/kioskctl/internal/launchd"
	"github.com/kioskops/kioskctl/internal/procstatus"
)

type statusOptions struct {
	JSON   bool
	Detail bool
}

var statusCmdRunner = runStatus

func newStatusCmd(root *rootFlags) *cobra.Command {
	opts := statusOptions{}

	cmd := &cobra.Command{
		Use:   "status [label-glob]",
		Short: "Show the launchd process registry, grouped for kiosk work",
		Long: `Status lists what launchd is running right now, joined against the
descriptors kioskctl manages. An optional glob narrows the labels, e.g.
"com.kioskops.*". The listing is a live snapshot and is never persisted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusCmdRunner(root, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output results in JSON format")
	cmd.Flags().BoolVar(&opts.Detail, "detail", false, "Attach live process details (memory, start time, command line)")

	return cmd
}

func runStatus(root *rootFlags, opts statusOptions, args []string) error {
	app, err := buildAppContext(root, opts.JSON)
	if err != nil {
		return err
	}

	filter := ""
	if len(args) == 1 {
		filter = args[0]
	}

	correlator := procstatus.NewCorrelator(app.gw, app.log)
	statuses := correlator.Query(context.Background(), filter)
	if opts.Detail {
		statuses = procstatus.Enrich(statuses)
	}

	managed := managedLabels(app)

	if opts.JSON {
		printStatusJSON(filter, statuses, managed)
	} else {
		printStatusTable(statuses, managed, opts.Detail)
	}

	return nil
}

// managedLabels collects the labels of descriptors in the agent directory.
// The join is cosmetic, so a directory that cannot be read just leaves
// every row unmanaged.
func managedLabels(app *appContext) map[string]bool {
	dir, err := app.agentDir()
	if err != nil {
		return nil
	}

	records, err := launchd.NewManager(dir, app.gw, app.log).List()
	if err != nil {
		app.log.WithFields(map[string]any{"error": err.Error()}).Debug("agent directory listing failed")
		return nil
	}

	labels := make(map[string]bool, len(records))
	for _, record := range records {
		if record.Err == nil && record.Label != "" {
			labels[record.Label] = true
		}
	}
	return labels
}

func printStatusTable(statuses []procstatus.ProcessStatus, managed map[string]bool, detail bool) {
	if len(statuses) == 0 {
		fmt.Println("No matching processes in the registry.")
		return
	}

	fmt.Println(titleStyle.Render("Process registry"))
	fmt.Println()

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if detail {
		fmt.Fprintln(writer, "LABEL\tPID\tLAST EXIT\tCATEGORY\tMANAGED\tMEMORY\tSTARTED")
	} else {
		fmt.Fprintln(writer, "LABEL\tPID\tLAST EXIT\tCATEGORY\tMANAGED")
	}

	counts := map[procstatus.Category]int{}
	for _, status := range statuses {
		category := procstatus.Categorize(status.Label)
		counts[category]++

		managedMark := "no"
		if managed[status.Label] {
			managedMark = "yes"
		}

		if detail {
			memory, started := "-", "-"
			if status.Runtime != nil {
				if status.Runtime.ResidentBytes > 0 {
					memory = formatBytes(status.Runtime.ResidentBytes)
				}
				if !status.Runtime.StartedAt.IsZero() {
					started = formatRelativeTime(status.Runtime.StartedAt)
				}
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				status.Label, formatNullableInt(status.PID), formatNullableInt(status.LastExitCode),
				string(category), managedMark, memory, started)
		} else {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
				status.Label, formatNullableInt(status.PID), formatNullableInt(status.LastExitCode),
				string(category), managedMark)
		}
	}
	writer.Flush()

	fmt.Println()
	fmt.Printf("%d processes (%d user, %d application, %d system)\n",
		len(statuses),
		counts[procstatus.CategoryUser],
		counts[procstatus.CategoryApplication],
		counts[procstatus.CategorySystem],
	)
}

func printStatusJSON(filter string, statuses []procstatus.ProcessStatus, managed map[string]bool) {
	type jsonRuntime struct {
		CommandLine   string `json:"command_line,omitempty"`
		ResidentBytes uint64 `json:"resident_bytes,omitempty"`
		StartedAt     string `json:"started_at,omitempty"`
	}

	type jsonProcess struct {
		Label        string       `json:"label"`
		PID          *int         `json:"pid"`
		LastExitCode *int         `json:"last_exit_code"`
		Category     string       `json:"category"`
		Managed      bool         `json:"managed"`
		Runtime      *jsonRuntime `json:"runtime,omitempty"`
	}

	type jsonOutput struct {
		Filter    string        `json:"filter,omitempty"`
		Total     int           `json:"total"`
		Processes []jsonProcess `json:"processes"`
	}

	output := jsonOutput{
		Filter:    filter,
		Total:     len(statuses),
		Processes: make([]jsonProcess, len(statuses)),
	}
	for i, status := range statuses {
		output.Processes[i] = jsonProcess{
			Label:        status.Label,
			PID:          status.PID,
			LastExitCode: status.LastExitCode,
			Category:     string(procstatus.Categorize(status.Label)),
			Managed:      managed[status.Label],
		}
		if status.Runtime != nil {
			rt := &jsonRuntime{
				CommandLine:   status.Runtime.CommandLine,
				ResidentBytes: status.Runtime.ResidentBytes,
			}
			if !status.Runtime.StartedAt.IsZero() {
				rt.StartedAt = status.Runtime.StartedAt.Format(time.RFC3339)
			}
			output.Processes[i].Runtime = rt
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

func formatNullableInt(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
