package shell

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaciel/uplink/settings"
)

func testSettings(transport string) *settings.Settings {
	return &settings.Settings{
		Pulp: settings.Pulp{Auth: []string{"admin", "admin"}, Version: "2.13"},
		Systems: []settings.System{{
			Hostname: "pulp.example.com",
			Roles: map[string]settings.Role{
				settings.RoleShell: {Transport: transport},
			},
		}},
	}
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewClientTransport(t *testing.T) {
	tests := []struct {
		name      string
		transport string
		want      string
	}{
		{"explicit local", "local", settings.TransportLocal},
		{"explicit ssh", "ssh", settings.TransportSSH},
		{"unset falls back to ssh for a remote host", "", settings.TransportSSH},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(testSettings(tt.transport), nil, quietLog())
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Transport())
		})
	}
}

func TestNewClientNoShellSystem(t *testing.T) {
	s := &settings.Settings{
		Systems: []settings.System{{
			Hostname: "pulp.example.com",
			Roles:    map[string]settings.Role{settings.RoleAPI: {Scheme: "https"}},
		}},
	}
	_, err := NewClient(s, nil, quietLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shell")
}

func TestCommandArgs(t *testing.T) {
	args := []string{"systemctl", "restart", "httpd"}

	got := commandArgs(settings.TransportLocal, "pulp.example.com", args)
	assert.Equal(t, args, got)

	got = commandArgs(settings.TransportSSH, "pulp.example.com", args)
	assert.Equal(t, []string{"ssh", "pulp.example.com", "systemctl", "restart", "httpd"}, got)
}

func TestCodeHandler(t *testing.T) {
	proc := &CompletedProcess{Args: []string{"true"}, ReturnCode: 0}
	got, err := CodeHandler(proc)
	require.NoError(t, err)
	assert.Equal(t, proc, got)

	proc = &CompletedProcess{
		Args:       []string{"pulp-admin", "status"},
		ReturnCode: 2,
		Stdout:     "out",
		Stderr:     "err",
	}
	got, err = CodeHandler(proc)
	assert.Equal(t, proc, got)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Error(), "returned non-zero exit status 2")
	assert.Contains(t, exitErr.Error(), "stdout: out")
	assert.Contains(t, exitErr.Error(), "stderr: err")
}

func TestEchoHandler(t *testing.T) {
	proc := &CompletedProcess{ReturnCode: 127}
	got, err := EchoHandler(proc)
	require.NoError(t, err)
	assert.Equal(t, proc, got)
}

func TestClientRunLocal(t *testing.T) {
	c, err := NewClient(testSettings("local"), nil, quietLog())
	require.NoError(t, err)

	proc, err := c.Run(context.Background(), "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, 0, proc.ReturnCode)
	assert.Equal(t, "hello", proc.Stdout)
	assert.Empty(t, proc.Stderr)
}

func TestClientRunLocalFailure(t *testing.T) {
	c, err := NewClient(testSettings("local"), nil, quietLog())
	require.NoError(t, err)

	proc, err := c.Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, proc.ReturnCode)
	assert.Equal(t, "out\n", proc.Stdout)
	assert.Equal(t, "err\n", proc.Stderr)
}

func TestClientRunEchoHandlerKeepsFailure(t *testing.T) {
	c, err := NewClient(testSettings("local"), nil, quietLog())
	require.NoError(t, err)
	c.Handler = EchoHandler

	proc, err := c.Run(context.Background(), "sh", "-c", "exit 5")
	require.NoError(t, err)
	assert.Equal(t, 5, proc.ReturnCode)
}

func TestClientRunMissingBinary(t *testing.T) {
	c, err := NewClient(testSettings("local"), nil, quietLog())
	require.NoError(t, err)

	_, err = c.Run(context.Background(), "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	assert.NotErrorAs(t, err, new(*ExitError))
}
