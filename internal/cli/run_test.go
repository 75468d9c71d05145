package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pumpsim/internal/testutil"
)

func TestRunPrintsTranscript(t *testing.T) {
	want, err := os.ReadFile(filepath.Join("..", "session", "testdata", "golden", "mixed_day.golden"))
	require.NoError(t, err)

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	out, _, err := execute(t, cmd, fixture("mixed_day"))
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestRunJSON(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	out, _, err := execute(t, cmd, "--session-id", "day1", fixture("temp_without_rate_change"))
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   RunOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "day1", resp.Data.SessionID)
	assert.Equal(t, "temp_without_rate_change", resp.Data.Name)
	assert.True(t, resp.Data.Complete)
	assert.Nil(t, resp.Data.Stored)
	require.NotEmpty(t, resp.Data.Records)

	for _, raw := range resp.Data.Records {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(raw, &rec))
		assert.NotEmpty(t, rec["type"])
		assert.NotEmpty(t, rec["time"])
	}
}

func TestRunUsesIDGenerator(t *testing.T) {
	opts := &RootOptions{Format: "json"}
	runOpts := &RunOptions{RootOptions: opts, IDGenerator: testutil.NewConstantIDGenerator("generated-1")}

	var outputs []string
	for i := 0; i < 2; i++ {
		cmd := NewRunCommand(opts)
		cmd.RunE = func(c *cobra.Command, args []string) error {
			return runSession(runOpts, args[0], c)
		}
		out, _, err := execute(t, cmd, fixture("temp_across_midnight"))
		require.NoError(t, err)
		assert.Contains(t, out, `"session_id":"generated-1"`)
		outputs = append(outputs, out)
	}
	assert.Equal(t, outputs[0], outputs[1], "identical runs give identical output")
}

func TestRunStoresRecords(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pumpsim.db")

	out, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--session-id", "day1", fixture("mixed_day"))
	require.NoError(t, err)
	assert.Contains(t, out, "Stored 8 new record(s)")
	assert.Contains(t, out, "as session day1")

	// Same session again: every record already exists.
	out, _, err = execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--session-id", "day1", fixture("mixed_day"))
	require.NoError(t, err)
	assert.Contains(t, out, "Stored 0 new record(s)")
}

func TestRunReconciliationFailure(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	out, _, err := execute(t, cmd, fixture("stop_without_start"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeReconcile, resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "events[2]")
}

func TestRunFailureDoesNotStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pumpsim.db")

	_, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, fixture("stop_without_start"))
	require.Error(t, err)

	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "database should not be created")
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetContext(ctx)
	out, _, err := execute(t, cmd, fixture("mixed_day"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E020]")
}

func TestRunNonExistentSession(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	_, _, err := execute(t, cmd, fixture("nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunVerboseLogsSimulatorDecisions(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text", Verbose: true})
	_, errOut, err := execute(t, cmd, fixture("mixed_day"))
	require.NoError(t, err)
	assert.Contains(t, errOut, "level=DEBUG")
	assert.Contains(t, errOut, "session=mixed_day")
}
