package wizard

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaciel/uplink/settings"
)

// answer types text into the model and submits it with enter. An empty
// string submits the step's default.
func answer(t *testing.T, m Model, text string) Model {
	t.Helper()
	if text != "" {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
		m = updated.(Model)
	}
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model)
}

func TestWizardDefaultFlow(t *testing.T) {
	m := New("")
	for _, text := range []string{
		"",                 // username, defaults to admin
		"",                 // password, defaults to changeme
		"2.13",             // version
		"pulp.example.com", // hostname
		"",                 // plain http? no
		"",                 // verify https? no
		"",                 // qpid? yes
		"",                 // running locally? no
		"",                 // ssh username, defaults to root
	} {
		m = answer(t, m, text)
	}

	require.True(t, m.Done())
	require.False(t, m.Aborted())

	result := m.Result()
	assert.Equal(t, "root", result.SSHUser)

	s := result.Settings
	require.NoError(t, s.Validate())
	assert.Equal(t, []string{"admin", "changeme"}, s.Pulp.Auth)
	assert.Equal(t, "2.13", s.Pulp.Version)

	require.Len(t, s.Systems, 1)
	sys := s.Systems[0]
	assert.Equal(t, "pulp.example.com", sys.Hostname)
	assert.Len(t, sys.Roles, 9)
	assert.Equal(t, "qpidd", sys.Roles[settings.RoleAMQPBroker].Service)
	assert.Equal(t, settings.SchemeHTTPS, sys.Roles[settings.RoleAPI].Scheme)
	assert.False(t, sys.Roles[settings.RoleAPI].Verify.Enabled())
	assert.Equal(t, settings.TransportSSH, sys.Roles[settings.RoleShell].Transport)
}

func TestWizardPlainHTTPSkipsVerify(t *testing.T) {
	m := New("")
	m = answer(t, m, "admin")
	m = answer(t, m, "secret")
	m = answer(t, m, "2.12.2")
	m = answer(t, m, "pulp.example.com")
	m = answer(t, m, "y") // plain http
	require.Equal(t, stepBroker, m.step, "http must skip the verify questions")

	m = answer(t, m, "n") // rabbitmq
	m = answer(t, m, "y") // running locally
	require.True(t, m.Done())

	result := m.Result()
	assert.Empty(t, result.SSHUser)

	sys := result.Settings.Systems[0]
	api := sys.Roles[settings.RoleAPI]
	assert.Equal(t, settings.SchemeHTTP, api.Scheme)
	assert.False(t, api.Verify.Enabled())
	assert.Equal(t, "rabbitmq", sys.Roles[settings.RoleAMQPBroker].Service)
	assert.Equal(t, settings.TransportLocal, sys.Roles[settings.RoleShell].Transport)
}

func TestWizardCABundle(t *testing.T) {
	m := New("")
	m = answer(t, m, "")
	m = answer(t, m, "")
	m = answer(t, m, "2.13")
	m = answer(t, m, "pulp.example.com")
	m = answer(t, m, "n")               // https
	m = answer(t, m, "yes")             // verify
	m = answer(t, m, "/etc/pki/ca.pem") // bundle
	m = answer(t, m, "")
	m = answer(t, m, "y")
	require.True(t, m.Done())

	api := m.Result().Settings.Systems[0].Roles[settings.RoleAPI]
	assert.True(t, api.Verify.Enabled())
	assert.Equal(t, "/etc/pki/ca.pem", api.Verify.CABundle())
}

func TestWizardEmptyCABundleMeansSystemTrust(t *testing.T) {
	m := New("")
	m = answer(t, m, "")
	m = answer(t, m, "")
	m = answer(t, m, "2.13")
	m = answer(t, m, "pulp.example.com")
	m = answer(t, m, "")  // https
	m = answer(t, m, "y") // verify
	m = answer(t, m, "")  // system trust store

	api := m.answers.verify
	assert.True(t, api.Enabled())
	assert.Empty(t, api.CABundle())
}

func TestWizardRejectsInvalidAnswers(t *testing.T) {
	m := New("")
	m = answer(t, m, "")
	m = answer(t, m, "")

	m = answer(t, m, "not.a.version")
	assert.Equal(t, stepVersion, m.step)
	assert.Contains(t, m.errMsg, "not a valid version")
	assert.Contains(t, m.View(), "not a valid version")

	m = answer(t, m, "2.13")
	assert.Equal(t, stepHostname, m.step)
	assert.Empty(t, m.errMsg)

	m = answer(t, m, "pulp.example.com")
	m = answer(t, m, "maybe")
	assert.Equal(t, stepScheme, m.step)
	assert.Contains(t, m.errMsg, "answer y or n")
}

func TestWizardAbort(t *testing.T) {
	m := New("")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.True(t, m.Aborted())
	assert.False(t, m.Done())
}

func TestWizardOverwriteConfirm(t *testing.T) {
	t.Run("declining aborts", func(t *testing.T) {
		m := New("/home/user/.config/uplink/settings.json")
		assert.Contains(t, m.View(), "already exists")
		assert.Contains(t, m.View(), "/home/user/.config/uplink/settings.json")

		m = answer(t, m, "") // defaults to no
		assert.True(t, m.Aborted())
	})

	t.Run("accepting continues", func(t *testing.T) {
		m := New("/home/user/.config/uplink/settings.json")
		m = answer(t, m, "y")
		assert.False(t, m.Aborted())
		assert.Equal(t, stepUsername, m.step)
	})

	t.Run("no existing file skips the question", func(t *testing.T) {
		m := New("")
		assert.Equal(t, stepUsername, m.step)
	})
}

func TestWizardMasksPassword(t *testing.T) {
	m := New("")
	m = answer(t, m, "admin")
	m = answer(t, m, "hunter2")

	view := m.View()
	assert.NotContains(t, view, "hunter2")
	assert.Contains(t, view, strings.Repeat("*", len("hunter2")))
}

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		value   string
		def     bool
		want    bool
		wantErr bool
	}{
		{"", true, true, false},
		{"", false, false, false},
		{"y", false, true, false},
		{"Yes", false, true, false},
		{"N", true, false, false},
		{"no", true, false, false},
		{" y ", false, true, false},
		{"maybe", false, false, true},
	}

	for _, tt := range tests {
		got, err := parseYesNo(tt.value, tt.def)
		if tt.wantErr {
			require.Error(t, err, "value %q", tt.value)
			continue
		}
		require.NoError(t, err, "value %q", tt.value)
		assert.Equal(t, tt.want, got, "value %q", tt.value)
	}
}

func TestSSHConfigHint(t *testing.T) {
	hint := SSHConfigHint("pulp.example.com", "root")
	assert.Contains(t, hint, "Host pulp.example.com")
	assert.Contains(t, hint, "User root")
	assert.Contains(t, hint, "StrictHostKeyChecking no")
}
