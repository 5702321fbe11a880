package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const toggleScenario = `name: toggle
description: "A bound boolean cell follows Switch.set"
stores:
  - name: Switch
    cells:
      - name: on
        type: boolean
        initial: false
    bindings:
      - action: Switch.set
        cell: on
steps:
  - dispatch: { type: Switch.set, value: true }
    expect_change:
      Switch: { on: true }
assertions:
  - type: final_state
    store: Switch
    expect: { on: true }
`

const failingScenario = `name: failing
description: "Asserts a dispatch that never happens"
stores: []
steps:
  - dispatch: { type: Switch.set, value: true }
assertions:
  - type: trace_count
    action: Switch.set
    count: 2
`

// runTestCommand executes "test args..." and returns stdout.
func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := runTestCommand(t, "text", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ counter_clamp")
	assert.Contains(t, out, "✓ request_lifecycle")
	assert.Contains(t, out, "✓ strict_and_protected")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "failing.yaml", failingScenario)

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "2 occurrences of Switch.set")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "failing.yaml", failingScenario)
	writeScenario(t, dir, "toggle.yaml", toggleScenario)

	out, err := runTestCommand(t, "json", dir)
	require.Error(t, err)

	var response struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, 1, response.Data.Passed)
	assert.Equal(t, 1, response.Data.Failed)
	assert.Equal(t, 2, response.Data.Total)
	require.NotNil(t, response.Error)
	assert.Equal(t, ErrCodeTestFailed, response.Error.Code)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nstep: []\n")

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := writeScenario(t, dir, "toggle.yaml", toggleScenario)
	goldenPath := goldenFilePath(scenarioPath)

	out, err := runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ toggle (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name": "toggle"`)

	// Golden files are not picked up as scenarios.
	out, err = runTestCommand(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0o644))
	out, err = runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "toggle.yaml", toggleScenario)
	writeScenario(t, dir, "failing.yaml", failingScenario)

	out, err := runTestCommand(t, "text", dir, "--filter", "tog*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestHelpText(t *testing.T) {
	out, err := runTestCommand(t, "text", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "scenarios-dir")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()
	goldenDir := filepath.Join(tmpDir, "golden")
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(goldenDir, 0o755))
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	for _, name := range []string{"a.yaml", "b.yml", "c.cue", "ignore.txt", "subdir/d.yaml", "golden/a.golden", "golden/e.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), nil, 0o644))
	}

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "a.yaml"),
		filepath.Join(tmpDir, "b.yml"),
		filepath.Join(tmpDir, "c.cue"),
		filepath.Join(tmpDir, "subdir", "d.yaml"),
	}, files)
}

func TestFindScenarioFilesInvalidFilter(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.yaml"), nil, 0o644))

	_, err := findScenarioFiles(tmpDir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"/path/to/scenario.yaml", "/path/to/golden/scenario.golden"},
		{"/path/to/scenario.cue", "/path/to/golden/scenario.golden"},
		{"scenarios/test.yml", "scenarios/golden/test.golden"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, goldenFilePath(tc.input))
	}
}
