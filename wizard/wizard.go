// Package wizard implements the interactive prompt flow behind
// `uplink settings create`. It walks the operator through describing a
// deployment one question at a time and assembles a settings file that
// places every role on a single system.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/omaciel/uplink/settings"
)

// ErrAborted is returned when the operator cancels the flow.
var ErrAborted = errors.New("settings creation aborted")

type step int

const (
	stepOverwrite step = iota
	stepUsername
	stepPassword
	stepVersion
	stepHostname
	stepScheme
	stepVerify
	stepCABundle
	stepBroker
	stepTransport
	stepSSHUser
	stepDone
)

// answers accumulates the raw values collected so far.
type answers struct {
	username  string
	password  string
	version   string
	hostname  string
	scheme    string
	verify    *settings.Verify
	broker    string
	transport string
	sshUser   string
}

// Result is what the completed flow hands back to the caller.
type Result struct {
	// Settings holds a single system filling every role.
	Settings *settings.Settings
	// SSHUser is set when the ssh transport was chosen, so the caller can
	// print the ssh client configuration the operator still has to do.
	SSHUser string
}

// Model is the bubbletea model for the prompt flow.
type Model struct {
	step    step
	input   textinput.Model
	answers answers
	history []string
	errMsg  string
	aborted bool

	// existingPath is non-empty when a settings file was already found,
	// which adds a leading confirmation before anything is overwritten.
	existingPath string

	styles styles
}

type styles struct {
	title    lipgloss.Style
	answered lipgloss.Style
	errText  lipgloss.Style
	help     lipgloss.Style
}

// New returns a model positioned at the first question. When existingPath
// is non-empty the flow starts by confirming the overwrite.
func New(existingPath string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 156
	ti.Width = 50
	ti.Focus()

	m := Model{
		input:        ti,
		existingPath: existingPath,
		step:         stepUsername,
	}
	if existingPath != "" {
		m.step = stepOverwrite
	}
	m.styles.title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	m.styles.answered = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	m.styles.errText = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	m.styles.help = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	return m
}

// Run executes the prompt flow on the terminal and blocks until it
// finishes. Cancelling the flow yields ErrAborted.
func Run(ctx context.Context, existingPath string) (*Result, error) {
	program := tea.NewProgram(New(existingPath), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("running settings prompt: %w", err)
	}
	m, ok := final.(Model)
	if !ok || m.aborted {
		return nil, ErrAborted
	}
	return m.Result(), nil
}

// Result assembles the collected answers into settings. Only meaningful
// once the flow reached its final step.
func (m Model) Result() *Result {
	a := m.answers
	return &Result{
		SSHUser: a.sshUser,
		Settings: &settings.Settings{
			Pulp: settings.Pulp{
				Auth:    []string{a.username, a.password},
				Version: a.version,
			},
			Systems: []settings.System{{
				Hostname: a.hostname,
				Roles: map[string]settings.Role{
					settings.RoleAMQPBroker:      {Service: a.broker},
					settings.RoleAPI:             {Scheme: a.scheme, Verify: a.verify},
					settings.RoleMongod:          {},
					settings.RolePulpCelerybeat:  {},
					settings.RolePulpCLI:         {},
					settings.RolePulpResourceMgr: {},
					settings.RolePulpWorkers:     {},
					settings.RoleShell:           {Transport: a.transport},
					settings.RoleSquid:           {},
				},
			}},
		},
	}
}

// Done reports whether every question was answered.
func (m Model) Done() bool { return m.step == stepDone }

// Aborted reports whether the operator cancelled the flow.
func (m Model) Aborted() bool { return m.aborted }

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch keyMsg.String() {
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(keyMsg)
	return m, cmd
}

// submit validates the current answer, records it and advances the flow.
// Invalid answers keep the flow on the same question with an error line.
func (m Model) submit() (Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		value = m.defaultAnswer()
	}

	next, err := m.record(value)
	if err != nil {
		m.errMsg = err.Error()
		return m, nil
	}
	m.errMsg = ""
	m.rememberAnswer(value)

	m.step = next
	if m.aborted || m.step == stepDone {
		return m, tea.Quit
	}
	m.prepareInput()
	return m, nil
}

// record stores the answer for the current step and returns the next one.
func (m *Model) record(value string) (step, error) {
	switch m.step {
	case stepOverwrite:
		overwrite, err := parseYesNo(value, false)
		if err != nil {
			return m.step, err
		}
		if !overwrite {
			m.aborted = true
			return m.step, nil
		}
		return stepUsername, nil

	case stepUsername:
		m.answers.username = value
		return stepPassword, nil

	case stepPassword:
		m.answers.password = value
		return stepVersion, nil

	case stepVersion:
		if !settings.IsValidVersion(value) {
			return m.step, fmt.Errorf("%q is not a valid version", value)
		}
		m.answers.version = value
		return stepHostname, nil

	case stepHostname:
		if value == "" {
			return m.step, errors.New("a hostname is required")
		}
		m.answers.hostname = value
		return stepScheme, nil

	case stepScheme:
		plainHTTP, err := parseYesNo(value, false)
		if err != nil {
			return m.step, err
		}
		if plainHTTP {
			m.answers.scheme = settings.SchemeHTTP
			m.answers.verify = settings.VerifyBool(false)
			return stepBroker, nil
		}
		m.answers.scheme = settings.SchemeHTTPS
		return stepVerify, nil

	case stepVerify:
		verify, err := parseYesNo(value, false)
		if err != nil {
			return m.step, err
		}
		if !verify {
			m.answers.verify = settings.VerifyBool(false)
			return stepBroker, nil
		}
		return stepCABundle, nil

	case stepCABundle:
		if value == "" {
			m.answers.verify = settings.VerifyBool(true)
		} else {
			m.answers.verify = settings.VerifyBundle(value)
		}
		return stepBroker, nil

	case stepBroker:
		qpid, err := parseYesNo(value, true)
		if err != nil {
			return m.step, err
		}
		if qpid {
			m.answers.broker = "qpidd"
		} else {
			m.answers.broker = "rabbitmq"
		}
		return stepTransport, nil

	case stepTransport:
		local, err := parseYesNo(value, false)
		if err != nil {
			return m.step, err
		}
		if local {
			m.answers.transport = settings.TransportLocal
			return stepDone, nil
		}
		m.answers.transport = settings.TransportSSH
		return stepSSHUser, nil

	case stepSSHUser:
		m.answers.sshUser = value
		return stepDone, nil
	}
	return m.step, nil
}

// question returns the prompt text for the current step.
func (m Model) question() string {
	switch m.step {
	case stepOverwrite:
		return fmt.Sprintf("A settings file already exists at %s, continuing will override it. Continue? [y/N]", m.existingPath)
	case stepUsername:
		return "Pulp admin username [admin]"
	case stepPassword:
		return "Pulp admin password [changeme]"
	case stepVersion:
		return "Pulp version"
	case stepHostname:
		return "System hostname"
	case stepScheme:
		return "Is the API published over plain HTTP? [y/N]"
	case stepVerify:
		return "Verify HTTPS certificates? [y/N]"
	case stepCABundle:
		return "CA bundle path (empty for the system trust store)"
	case stepBroker:
		return "Is the message broker Qpid? [Y/n]"
	case stepTransport:
		return "Is uplink running on the system under test? [y/N]"
	case stepSSHUser:
		return "SSH username [root]"
	}
	return ""
}

// defaultAnswer returns what an empty answer means for the current step.
func (m Model) defaultAnswer() string {
	switch m.step {
	case stepUsername:
		return "admin"
	case stepPassword:
		return "changeme"
	case stepSSHUser:
		return "root"
	}
	return ""
}

// rememberAnswer records a finished question for the view, masking secrets.
func (m *Model) rememberAnswer(value string) {
	shown := value
	if m.step == stepPassword {
		shown = strings.Repeat("*", len(value))
	}
	m.history = append(m.history, fmt.Sprintf("%s %s", m.question(), shown))
}

// prepareInput resets the text input for the step the flow just moved to.
func (m *Model) prepareInput() {
	m.input.Reset()
	m.input.EchoMode = textinput.EchoNormal
	if m.step == stepPassword {
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '*'
	}
	m.input.Focus()
}

func (m Model) View() string {
	if m.step == stepDone || m.aborted {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.title.Render("uplink settings"))
	b.WriteString("\n\n")
	for _, line := range m.history {
		b.WriteString(m.styles.answered.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(m.question())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(m.styles.errText.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.help.Render("enter accept  esc cancel"))
	b.WriteString("\n")
	return b.String()
}

// SSHConfigHint renders the ssh client configuration the operator needs
// when commands reach the system over ssh.
func SSHConfigHint(hostname, sshUser string) string {
	return fmt.Sprintf(`Make sure to have the following lines on your ~/.ssh/config file:

  Host %s
      StrictHostKeyChecking no
      User %s
      UserKnownHostsFile /dev/null
      ControlMaster auto
      ControlPersist 10m
      ControlPath ~/.ssh/controlmasters/%%C
`, hostname, sshUser)
}

func parseYesNo(value string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("please answer y or n")
}
