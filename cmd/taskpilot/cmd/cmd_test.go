package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voluzi/taskpilot/pkg/sink"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	configPaths = nil
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestTopCommand(t *testing.T) {
	out, err := execute(t, "top", "--mock", "--window", "0", "--top", "3", "--format", "json")
	require.NoError(t, err)

	var report struct {
		Top []struct {
			PID  int32  `json:"pid"`
			Name string `json:"name"`
		} `json:"top"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Top, 3)
	assert.Equal(t, "runaway", report.Top[0].Name)
	assert.Equal(t, int32(100+demoProcesses-1), report.Top[0].PID)
}

func TestAnomaliesCommand_Synthetic(t *testing.T) {
	out, err := execute(t, "anomalies", "--mock", "--synthetic", "--seed", "42", "--format", "json")
	require.NoError(t, err)

	var report struct {
		Anomalies struct {
			Source  string            `json:"source"`
			Results []json.RawMessage `json:"results"`
		} `json:"anomalies"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "synthetic", report.Anomalies.Source)
	assert.Len(t, report.Anomalies.Results, 50)
}

func TestRunCommand_Prometheus(t *testing.T) {
	out, err := execute(t, "run", "--mock", "--window", "0", "--capacity", "4", "--seed", "1", "--format", "prometheus")
	require.NoError(t, err)

	assert.Contains(t, out, "taskpilot_host_cpu_percent")
	assert.Contains(t, out, `name="runaway"`)
	assert.Contains(t, out, "taskpilot_anomaly_score")
	assert.NotContains(t, out, "taskpilot_effect_delta")
}

func TestWatchCommand_UsesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collection:\n  capacity: 3\n"), 0o600))

	out, err := execute(t, "watch", "--mock", "--window", "0", "--config", path, "--format", "json")
	require.NoError(t, err)

	var report struct {
		Series []json.RawMessage `json:"series"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Series, 3)
}

func TestUnknownFormat(t *testing.T) {
	_, err := execute(t, "compare", "--mock", "--window", "0", "--wait", "0", "--format", "yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sink.ErrUnknownFormat))
}

func TestInvalidSeed(t *testing.T) {
	_, err := execute(t, "anomalies", "--mock", "--seed", "soon", "--format", "json")
	assert.Error(t, err)
}

func TestCompareCommand_WaitsForNewAction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	require.NoError(t, os.WriteFile(path, []byte(`{"action":"terminate","pid":1}`+"\n"), 0o600))

	go func() {
		time.Sleep(300 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return
		}
		defer f.Close()
		_, _ = f.WriteString(`{"action":"terminate","pid":42}` + "\n")
	}()

	out, err := execute(t, "compare", "--mock", "--window", "0", "--wait", "0", "--action-fifo", path, "--format", "json")
	require.NoError(t, err)

	var report struct {
		Comparison struct {
			Before struct {
				Tick int `json:"tick"`
			} `json:"before"`
			After struct {
				Tick int `json:"tick"`
			} `json:"after"`
			Action struct {
				PID int32 `json:"pid"`
			} `json:"action"`
		} `json:"comparison"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int32(42), report.Comparison.Action.PID)
	assert.Equal(t, 0, report.Comparison.Before.Tick)
	assert.Equal(t, 1, report.Comparison.After.Tick)
}
