// Package settings manages information about the deployment under test.
//
// uplink needs to know what systems it can talk to and how to talk to them:
// the protocol, hostname and credentials of the server API, which host runs
// the message broker, the database and the workers, and how CLI commands
// reach each host. All of that lives in a single JSON settings file which
// tests load once per process and treat as read-only. Any problem with the
// file is fatal.
package settings

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/semver"
)

// Roles a system can fill on a deployment.
const (
	RoleAMQPBroker      = "amqp broker"
	RoleAPI             = "api"
	RoleMongod          = "mongod"
	RolePulpCelerybeat  = "pulp celerybeat"
	RolePulpCLI         = "pulp cli"
	RolePulpResourceMgr = "pulp resource manager"
	RolePulpWorkers     = "pulp workers"
	RoleShell           = "shell"
	RoleSquid           = "squid"
)

// Shell transports.
const (
	TransportLocal = "local"
	TransportSSH   = "ssh"
)

// API schemes.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// RequiredRoles lists the roles that must be filled somewhere on a
// deployment for it to be testable.
var RequiredRoles = []string{
	RoleAMQPBroker,
	RoleAPI,
	RoleMongod,
	RolePulpCelerybeat,
	RolePulpResourceMgr,
	RolePulpWorkers,
	RoleShell,
}

// OptionalRoles lists the roles that may or may not be present.
var OptionalRoles = []string{
	RolePulpCLI,
	RoleSquid,
}

// AMQPServices lists the service names an "amqp broker" role may specify.
var AMQPServices = []string{"qpidd", "rabbitmq"}

// KnownRoles returns every recognized role name, sorted.
func KnownRoles() []string {
	roles := make([]string, 0, len(RequiredRoles)+len(OptionalRoles))
	roles = append(roles, RequiredRoles...)
	roles = append(roles, OptionalRoles...)
	sort.Strings(roles)
	return roles
}

// IsKnownRole returns true if name is a recognized role
func IsKnownRole(name string) bool {
	for _, role := range RequiredRoles {
		if name == role {
			return true
		}
	}
	for _, role := range OptionalRoles {
		if name == role {
			return true
		}
	}
	return false
}

// IsAMQPService returns true if name is a recognized AMQP broker service
func IsAMQPService(name string) bool {
	for _, service := range AMQPServices {
		if name == service {
			return true
		}
	}
	return false
}

// Settings describes a deployment under test: the server-wide attributes and
// every system that makes up the deployment, with the roles each one fills.
type Settings struct {
	Pulp    Pulp     `json:"pulp"`
	Systems []System `json:"systems"`
}

// Pulp holds the server-wide attributes of the deployment.
type Pulp struct {
	// Auth is the API credential pair, username then password.
	Auth []string `json:"auth"`
	// Version is the product version, such as "2.13" or "2.12.2".
	Version string `json:"version"`
}

// System is one host on the deployment and the roles it fills.
type System struct {
	Hostname string          `json:"hostname"`
	Roles    map[string]Role `json:"roles"`
}

// Role carries the per-role options a system may set. Only the fields
// meaningful for a given role are populated.
type Role struct {
	Service   string  `json:"service,omitempty"`   // amqp broker: qpidd or rabbitmq
	Scheme    string  `json:"scheme,omitempty"`    // api: http or https
	Verify    *Verify `json:"verify,omitempty"`    // api: certificate verification
	Transport string  `json:"transport,omitempty"` // shell: local or ssh
}

// Verify models the api role's "verify" value, which on the wire is either a
// boolean or a path to a CA bundle.
type Verify struct {
	Flag   bool
	Bundle string
}

// VerifyBool returns a Verify holding a plain boolean
func VerifyBool(v bool) *Verify {
	return &Verify{Flag: v}
}

// VerifyBundle returns a Verify holding a CA bundle path
func VerifyBundle(path string) *Verify {
	return &Verify{Flag: true, Bundle: path}
}

// Enabled reports whether certificate verification is on. A nil Verify means
// the default, which is to verify.
func (v *Verify) Enabled() bool {
	if v == nil {
		return true
	}
	return v.Flag || v.Bundle != ""
}

// CABundle returns the custom CA bundle path, or empty for the system trust store
func (v *Verify) CABundle() string {
	if v == nil {
		return ""
	}
	return v.Bundle
}

// MarshalJSON implements json.Marshaler
func (v Verify) MarshalJSON() ([]byte, error) {
	if v.Bundle != "" {
		return json.Marshal(v.Bundle)
	}
	return json.Marshal(v.Flag)
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Verify) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		v.Flag = flag
		v.Bundle = ""
		return nil
	}
	var bundle string
	if err := json.Unmarshal(data, &bundle); err == nil {
		v.Flag = true
		v.Bundle = bundle
		return nil
	}
	return fmt.Errorf("verify must be a boolean or a CA bundle path, got %s", string(data))
}

// Load reads, decodes and validates the settings file at path.
// A missing file yields a *NotFoundError and an invalid one a
// *ValidationError, so callers can fail fast before any test runs.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewNotFoundError(path)
		}
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("settings file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates raw settings file content
func Parse(data []byte) (*Settings, error) {
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadDefault resolves the settings file path and loads it
func LoadDefault() (*Settings, error) {
	path, err := Locate()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

var (
	defaultOnce     sync.Once
	defaultSettings *Settings
	defaultErr      error
)

// Get returns the process-wide settings, loading them on first use. Every
// later call returns the same value (or the same error), so a test process
// reads the settings file exactly once.
func Get() (*Settings, error) {
	defaultOnce.Do(func() {
		defaultSettings, defaultErr = LoadDefault()
	})
	return defaultSettings, defaultErr
}

// Save writes the settings to path as indented JSON, creating parent
// directories as needed. The file is written with owner-only permissions
// since it holds credentials.
func (s *Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating settings directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}

// GetSystems returns every system that fills the given role. Unknown role
// names yield an error rather than an empty result, to catch typos early.
func (s *Settings) GetSystems(role string) ([]System, error) {
	if !IsKnownRole(role) {
		return nil, fmt.Errorf("the given role, %s, is not recognized. Valid roles are: %s",
			role, strings.Join(KnownRoles(), ", "))
	}
	var systems []System
	for _, system := range s.Systems {
		if _, ok := system.Roles[role]; ok {
			systems = append(systems, system)
		}
	}
	return systems, nil
}

// GetSystem returns the first system that fills the given role
func (s *Settings) GetSystem(role string) (*System, error) {
	systems, err := s.GetSystems(role)
	if err != nil {
		return nil, err
	}
	if len(systems) == 0 {
		return nil, fmt.Errorf("no system fills the %q role", role)
	}
	return &systems[0], nil
}

// Credentials returns the API username and password
func (s *Settings) Credentials() (string, string) {
	if len(s.Pulp.Auth) < 2 {
		return "", ""
	}
	return s.Pulp.Auth[0], s.Pulp.Auth[1]
}

// Version returns the product version string
func (s *Settings) Version() string {
	return s.Pulp.Version
}

// VersionAtLeast reports whether the product version is at least min.
// Product versions are plain strings like "2.13"; both sides are
// canonicalized before a semantic comparison.
func (s *Settings) VersionAtLeast(min string) (bool, error) {
	current := canonicalVersion(s.Pulp.Version)
	if !semver.IsValid(current) {
		return false, fmt.Errorf("settings hold invalid version %q", s.Pulp.Version)
	}
	floor := canonicalVersion(min)
	if !semver.IsValid(floor) {
		return false, fmt.Errorf("invalid minimum version %q", min)
	}
	return semver.Compare(current, floor) >= 0, nil
}

// IsValidVersion returns true if v parses as a product version
func IsValidVersion(v string) bool {
	return semver.IsValid(canonicalVersion(v))
}

func canonicalVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// BaseURL generates the root URL for the API served by sys. When sys is nil
// the first system with the api role is used. The URL always carries a
// trailing slash.
func (s *Settings) BaseURL(sys *System) (string, error) {
	if sys == nil {
		var err error
		sys, err = s.GetSystem(RoleAPI)
		if err != nil {
			return "", err
		}
	}
	role, ok := sys.Roles[RoleAPI]
	if !ok {
		return "", fmt.Errorf("system %s does not fill the %q role", sys.Hostname, RoleAPI)
	}
	scheme := role.Scheme
	if scheme == "" {
		scheme = SchemeHTTPS
	}
	return fmt.Sprintf("%s://%s/", scheme, sys.Hostname), nil
}

// HTTPClient returns a client for talking to the API on sys, honoring the
// api role's verify setting: a false value disables certificate
// verification, a bundle path pins the trust anchors to that bundle, and
// anything else keeps the system defaults. When sys is nil the first system
// with the api role is used.
func (s *Settings) HTTPClient(sys *System) (*http.Client, error) {
	if sys == nil {
		var err error
		sys, err = s.GetSystem(RoleAPI)
		if err != nil {
			return nil, err
		}
	}
	role, ok := sys.Roles[RoleAPI]
	if !ok {
		return nil, fmt.Errorf("system %s does not fill the %q role", sys.Hostname, RoleAPI)
	}

	tlsConfig := &tls.Config{}
	switch {
	case !role.Verify.Enabled():
		tlsConfig.InsecureSkipVerify = true
	case role.Verify.CABundle() != "":
		caCert, err := os.ReadFile(role.Verify.CABundle())
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in CA bundle %s", role.Verify.CABundle())
		}
		tlsConfig.RootCAs = caCertPool
	}

	return &http.Client{
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
	}, nil
}

// ServicesForRoles returns the names of the host services backing the given
// roles on this system, sorted and deduplicated. With no arguments every
// role the system fills is considered. Roles with no backing service
// contribute nothing.
func (sys *System) ServicesForRoles(roles ...string) []string {
	if len(roles) == 0 {
		for role := range sys.Roles {
			roles = append(roles, role)
		}
	}

	set := make(map[string]struct{})
	for _, role := range roles {
		switch role {
		case RoleAMQPBroker:
			if r, ok := sys.Roles[RoleAMQPBroker]; ok && IsAMQPService(r.Service) {
				set[r.Service] = struct{}{}
			}
		case RoleAPI:
			set["httpd"] = struct{}{}
		case RolePulpCelerybeat, RolePulpResourceMgr, RolePulpWorkers:
			set[strings.ReplaceAll(role, " ", "_")] = struct{}{}
		case RoleMongod, RoleSquid:
			set[role] = struct{}{}
		}
	}

	services := make([]string, 0, len(set))
	for service := range set {
		services = append(services, service)
	}
	sort.Strings(services)
	return services
}

// BrokerService returns the AMQP broker service configured for this system
func (sys *System) BrokerService() (string, error) {
	role, ok := sys.Roles[RoleAMQPBroker]
	if !ok {
		return "", &NoKnownBrokerError{Hostname: sys.Hostname}
	}
	if !IsAMQPService(role.Service) {
		return "", &NoKnownBrokerError{Hostname: sys.Hostname, Service: role.Service}
	}
	return role.Service, nil
}
