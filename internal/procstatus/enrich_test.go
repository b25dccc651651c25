package procstatus

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnrichAttachesRuntimeForLivePID(t *testing.T) {
	t.Parallel()

	self := os.Getpid()
	statuses := Enrich([]ProcessStatus{{Label: "com.example.self", PID: intPtr(self)}})

	require.Len(t, statuses, 1)
	require.NotNil(t, statuses[0].Runtime)
	require.NotEmpty(t, statuses[0].Runtime.CommandLine)
}

func TestEnrichSkipsRowsWithoutPID(t *testing.T) {
	t.Parallel()

	statuses := Enrich([]ProcessStatus{{Label: "com.example.idle"}})

	require.Len(t, statuses, 1)
	require.Nil(t, statuses[0].Runtime)
}

func TestEnrichSkipsVanishedProcess(t *testing.T) {
	t.Parallel()

	// PIDs are bounded well below this on any supported platform.
	statuses := Enrich([]ProcessStatus{{Label: "com.example.gone", PID: intPtr(1 << 30)}})

	require.Len(t, statuses, 1)
	require.Nil(t, statuses[0].Runtime)
}
