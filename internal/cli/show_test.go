package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pumpsim/internal/store"
)

// seedDB stores the given fixtures, using each fixture name as session id.
func seedDB(t *testing.T, fixtures ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pumpsim.db")
	for _, name := range fixtures {
		_, _, err := execute(t, NewRunCommand(&RootOptions{Format: "text"}),
			"--db", dbPath, "--session-id", name, fixture(name))
		require.NoError(t, err)
	}
	return dbPath
}

func TestShowListsSessions(t *testing.T) {
	dbPath := seedDB(t, "suspend_and_split", "mixed_day")

	out, _, err := execute(t, NewShowCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "suspend_and_split\t"))
	assert.Equal(t, "mixed_day\tmixed_day\ttandem12345", lines[1])
}

func TestShowEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, NewShowCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No sessions stored.\n", out)
}

func TestShowMissingDatabaseFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "absent.db")

	_, _, err := execute(t, NewShowCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, dbPath)
}

func TestShowRecords(t *testing.T) {
	dbPath := seedDB(t, "mixed_day")

	out, _, err := execute(t, NewShowCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--session", "mixed_day")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, "# mixed_day mixed_day (8 records)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0\t2014-09-25T01:00:00.000Z\tpumpSettings\t{"))
}

func TestShowRecordsJSONWithKindFilter(t *testing.T) {
	dbPath := seedDB(t, "mixed_day")

	out, _, err := execute(t, NewShowCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--session", "mixed_day", "--kind", "basal")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   ShowOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "mixed_day", resp.Data.Session.ID)
	require.Len(t, resp.Data.Records, 3)

	var first map[string]any
	require.NoError(t, json.Unmarshal(resp.Data.Records[0].Body, &first))
	assert.Equal(t, "basal", first["type"])
	assert.Equal(t, "scheduled", first["deliveryType"])
}

func TestShowUnknownSession(t *testing.T) {
	dbPath := seedDB(t, "mixed_day")

	out, _, err := execute(t, NewShowCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, "--session", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "session not found: missing")
}

func TestShowMissingDatabaseFlag(t *testing.T) {
	_, _, err := execute(t, NewShowCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}
