package procstatus

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Enrich attaches live process information to rows that have a PID.
// Processes that exited between the registry query and the lookup are
// skipped; individual probe failures leave the corresponding field at its
// zero value.
func Enrich(statuses []ProcessStatus) []ProcessStatus {
	for i := range statuses {
		if statuses[i].PID == nil {
			continue
		}

		proc, err := process.NewProcess(int32(*statuses[i].PID))
		if err != nil {
			continue
		}

		var rt Runtime
		if cmdline, err := proc.Cmdline(); err == nil {
			rt.CommandLine = cmdline
		}
		if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
			rt.ResidentBytes = mem.RSS
		}
		if created, err := proc.CreateTime(); err == nil {
			rt.StartedAt = time.UnixMilli(created)
		}
		statuses[i].Runtime = &rt
	}
	return statuses
}
