// Package shell runs commands on a system of the deployment under test.
// The system's shell role decides whether commands execute locally or are
// carried over SSH to the target host.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/omaciel/uplink/settings"
)

// CompletedProcess holds everything known about a finished command.
type CompletedProcess struct {
	Args       []string
	ReturnCode int
	Stdout     string
	Stderr     string
}

// ExitError indicates a command finished with a non-zero return code.
type ExitError struct {
	Process *CompletedProcess
}

func (e *ExitError) Error() string {
	return fmt.Sprintf(
		"Command %v returned non-zero exit status %d.\n\nstdout: %s\n\nstderr: %s",
		e.Process.Args, e.Process.ReturnCode, e.Process.Stdout, e.Process.Stderr,
	)
}

// ResponseHandler decides what a client does with a finished process.
type ResponseHandler func(*CompletedProcess) (*CompletedProcess, error)

// CodeHandler returns an *ExitError when the return code is non-zero.
// This is the default handler.
func CodeHandler(proc *CompletedProcess) (*CompletedProcess, error) {
	if proc.ReturnCode != 0 {
		return proc, &ExitError{Process: proc}
	}
	return proc, nil
}

// EchoHandler hands the process back untouched, leaving return code
// handling to the caller.
func EchoHandler(proc *CompletedProcess) (*CompletedProcess, error) {
	return proc, nil
}

// Client runs commands on one system of the deployment.
type Client struct {
	// Handler is applied to every finished process. Defaults to CodeHandler.
	Handler ResponseHandler

	log       *slog.Logger
	transport string
	hostname  string
}

// NewClient builds a client for the given system. When system is nil the
// first system filling the shell role is used. A system without an explicit
// transport runs locally only if it is the machine uplink runs on.
func NewClient(s *settings.Settings, system *settings.System, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	if system == nil {
		var err error
		system, err = s.GetSystem(settings.RoleShell)
		if err != nil {
			return nil, err
		}
	}

	transport := system.Roles[settings.RoleShell].Transport
	if transport == "" {
		transport = settings.TransportSSH
		if host, err := os.Hostname(); err == nil && host == system.Hostname {
			transport = settings.TransportLocal
		}
	}

	return &Client{
		Handler:   CodeHandler,
		log:       log,
		transport: transport,
		hostname:  system.Hostname,
	}, nil
}

// Transport returns how the client reaches its system, local or ssh.
func (c *Client) Transport() string {
	return c.transport
}

// Run executes args on the client's system and applies the response handler
// to the outcome. Failures to start the command at all are returned as
// plain errors, not an *ExitError.
func (c *Client) Run(ctx context.Context, args ...string) (*CompletedProcess, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no command given")
	}

	cmdArgs := commandArgs(c.transport, c.hostname, args)
	cmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.log.Debug("Running command",
		"transport", c.transport,
		"host", c.hostname,
		"command", strings.Join(cmdArgs, " "))

	err := cmd.Run()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("running command %v: %w", args, err)
		}
		code = exitErr.ExitCode()
	}

	proc := &CompletedProcess{
		Args:       args,
		ReturnCode: code,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
	}
	return c.Handler(proc)
}

// commandArgs wraps args for the transport. SSH relies on the user's
// ~/.ssh/config for connection settings, as suggested during settings
// creation.
func commandArgs(transport, hostname string, args []string) []string {
	if transport == settings.TransportSSH {
		return append([]string{"ssh", hostname}, args...)
	}
	return args
}
