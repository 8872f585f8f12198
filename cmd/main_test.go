package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/omaciel/uplink/exitcodes"
	"github.com/omaciel/uplink/settings"
)

const validSettingsJSON = `{
  "pulp": {
    "auth": ["admin", "changeme"],
    "version": "2.13"
  },
  "systems": [
    {
      "hostname": "pulp.example.com",
      "roles": {
        "amqp broker": {"service": "qpidd"},
        "api": {"scheme": "https", "verify": true},
        "mongod": {},
        "pulp celerybeat": {},
        "pulp resource manager": {},
        "pulp workers": {},
        "shell": {"transport": "local"}
      }
    }
  ]
}`

// newSettingsApp builds an app exposing only the settings subcommands, with
// an ExitErrHandler that keeps errors in-process instead of calling os.Exit.
func newSettingsApp(out *bytes.Buffer) *cli.App {
	app := cli.NewApp()
	app.Name = "uplink"
	app.Writer = out
	app.Commands = []*cli.Command{settingsCommand()}
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func writeSettingsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(settings.EnvConfigFile, path)
	return path
}

func exitCodeOf(t *testing.T, err error) int {
	t.Helper()
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	return exitErr.ExitCode()
}

func TestSettingsShow(t *testing.T) {
	path := writeSettingsFile(t, validSettingsJSON)

	var out bytes.Buffer
	err := newSettingsApp(&out).Run([]string{"uplink", "settings", "show"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Showing settings file "+path)
	assert.Contains(t, out.String(), `"hostname": "pulp.example.com"`)
	assert.Contains(t, out.String(), `"version": "2.13"`)
}

func TestSettingsShow_NoFile(t *testing.T) {
	t.Setenv(settings.EnvConfigFile, filepath.Join(t.TempDir(), "missing.json"))

	var out bytes.Buffer
	err := newSettingsApp(&out).Run([]string{"uplink", "settings", "show"})
	require.Error(t, err)

	assert.Equal(t, exitcodes.RuntimeErr, exitCodeOf(t, err))
	assert.Contains(t, err.Error(),
		"there is no settings file. Use `uplink settings create` to create one.")
}

func TestSettingsPath(t *testing.T) {
	path := writeSettingsFile(t, validSettingsJSON)

	var out bytes.Buffer
	err := newSettingsApp(&out).Run([]string{"uplink", "settings", "path"})
	require.NoError(t, err)

	assert.Equal(t, path+"\n", out.String())
}

func TestSettingsValidate_Valid(t *testing.T) {
	path := writeSettingsFile(t, validSettingsJSON)

	var out bytes.Buffer
	err := newSettingsApp(&out).Run([]string{"uplink", "settings", "validate"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "No issues found with "+path)
}

func TestSettingsValidate_Invalid(t *testing.T) {
	writeSettingsFile(t, `{
  "pulp": {"auth": ["admin", ""]},
  "systems": [{"hostname": "", "roles": {"api": {}}}]
}`)

	var out bytes.Buffer
	err := newSettingsApp(&out).Run([]string{"uplink", "settings", "validate"})
	require.Error(t, err)

	assert.Equal(t, exitcodes.RuntimeErr, exitCodeOf(t, err))
	assert.Contains(t, out.String(), "issue(s) with")
	assert.Contains(t, out.String(), "'version' is a required property")
	assert.Contains(t, out.String(), "roles are missing")
}

func TestSettingsValidate_OldFormat(t *testing.T) {
	writeSettingsFile(t, `{
  "pulp": {
    "auth": ["admin", "admin"],
    "base_url": "https://pulp.example.com",
    "version": "2.12"
  }
}`)

	var out bytes.Buffer
	err := newSettingsApp(&out).Run([]string{"uplink", "settings", "validate"})
	require.Error(t, err)

	assert.Equal(t, exitcodes.RuntimeErr, exitCodeOf(t, err))
	assert.Contains(t, err.Error(), "old single-server format")
	assert.Contains(t, err.Error(), "uplink settings create")
}

func TestOldFormat(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected bool
	}{
		{
			name:     "old format has pulp but no systems",
			raw:      `{"pulp": {"auth": ["a", "b"], "version": "2.12"}}`,
			expected: true,
		},
		{
			name:     "current format",
			raw:      `{"pulp": {}, "systems": []}`,
			expected: false,
		},
		{
			name:     "unrelated document",
			raw:      `{"foo": 1}`,
			expected: false,
		},
		{
			name:     "not json",
			raw:      `plainly not json`,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, oldFormat([]byte(tt.raw)))
		})
	}
}

const listPlansYAML = `plans:
  - id: smoke
    description: Fast end-to-end checks
    tests:
      - name: TestServerStatus
        package: ./checks/status
    suites:
      repos:
        description: Repository lifecycle
        tests:
          - name: TestRepoCreate
            package: ./checks/repos
  - id: content
    description: Content workflows
    tests:
      - package: ./checks/sync
`

func newListApp(out *bytes.Buffer) *cli.App {
	app := cli.NewApp()
	app.Name = "uplink"
	app.Writer = out
	app.Commands = []*cli.Command{listCommand()}
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

// writeListFixtures lays out a plans file and a test directory whose
// ./checks/sync package holds two test functions for run-all discovery.
func writeListFixtures(t *testing.T) (plansFile, testDir string) {
	t.Helper()

	plansFile = filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(plansFile, []byte(listPlansYAML), 0o644))

	testDir = t.TempDir()
	syncDir := filepath.Join(testDir, "checks", "sync")
	require.NoError(t, os.MkdirAll(syncDir, 0o755))
	src := `package sync

import "testing"

func TestSyncRPM(t *testing.T) {}

func TestSyncISO(t *testing.T) {}
`
	require.NoError(t, os.WriteFile(filepath.Join(syncDir, "sync_test.go"), []byte(src), 0o644))
	return plansFile, testDir
}

func TestListCommand(t *testing.T) {
	plansFile, testDir := writeListFixtures(t)

	var out bytes.Buffer
	app := newListApp(&out)

	err := app.Run([]string{"uplink", "list", "--plans", plansFile, "--testdir", testDir})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "Plan: smoke")
	assert.Contains(t, got, "TestServerStatus (./checks/status)")
	assert.Contains(t, got, "repos: TestRepoCreate (./checks/repos)")
	assert.Contains(t, got, "Plan: content")
	assert.Contains(t, got, "TestSyncRPM (./checks/sync)")
	assert.Contains(t, got, "TestSyncISO (./checks/sync)")
	assert.Contains(t, got, "4 tests selected")
}

func TestListCommand_TargetPlan(t *testing.T) {
	plansFile, testDir := writeListFixtures(t)

	var out bytes.Buffer
	app := newListApp(&out)

	err := app.Run([]string{"uplink", "list", "--plans", plansFile, "--testdir", testDir, "--plan", "smoke"})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "Plan: smoke")
	assert.NotContains(t, got, "Plan: content")
	assert.NotContains(t, got, "TestSyncRPM")
	assert.Contains(t, got, "2 tests selected")
}

func TestListCommand_UnknownPlan(t *testing.T) {
	plansFile, testDir := writeListFixtures(t)

	var out bytes.Buffer
	app := newListApp(&out)

	err := app.Run([]string{"uplink", "list", "--plans", plansFile, "--testdir", testDir, "--plan", "nope"})
	require.Error(t, err)
	assert.Equal(t, exitcodes.RuntimeErr, exitCodeOf(t, err))
	assert.Contains(t, err.Error(), `no tests found for plan "nope"`)
}

func TestListCommand_MissingRequiredFlags(t *testing.T) {
	var out bytes.Buffer
	app := newListApp(&out)

	err := app.Run([]string{"uplink", "list"})
	require.Error(t, err)
	assert.Equal(t, exitcodes.RuntimeErr, exitCodeOf(t, err))
	assert.Contains(t, err.Error(), "missing required flags")
}
