package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidSession(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	out, _, err := execute(t, cmd, fixture("mixed_day"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Session valid: mixed_day (9 events)")
}

func TestValidateValidSessionJSON(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	out, _, err := execute(t, cmd, fixture("mixed_day"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, "mixed_day", resp.Data.Name)
	assert.Equal(t, 9, resp.Data.Events)
}

func TestValidateVerboseLogsToStderr(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "json", Verbose: true})
	out, errOut, err := execute(t, cmd, fixture("mixed_day"))
	require.NoError(t, err)
	assert.Contains(t, errOut, `Loaded session "mixed_day"`)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "stdout must stay valid JSON")
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		code     string
		exitCode int
	}{
		{"not found", fixture("does_not_exist"), ErrCodeNotFound, ExitCommandError},
		{"unknown field", fixture("unknown_field"), ErrCodeParse, ExitFailure},
		{"schema violation", fixture("missing_time"), ErrCodeSchema, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewValidateCommand(&RootOptions{Format: "json"})
			out, _, err := execute(t, cmd, tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestValidateTextFailure(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	out, _, err := execute(t, cmd, fixture("missing_time"))
	require.Error(t, err)
	assert.Contains(t, out, "Error [E010]")
	assert.Contains(t, out, "session violates schema")
}

func TestValidateRequiresOneArg(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	_, _, err := execute(t, cmd)
	require.Error(t, err)
}
