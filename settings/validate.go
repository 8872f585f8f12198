package settings

import (
	"fmt"
	"strings"
)

// Validate checks the settings for structural problems. All checks run and
// every failure is collected, so the returned *ValidationError describes
// everything wrong with the file at once.
func (s *Settings) Validate() error {
	var messages []string

	messages = append(messages, s.Pulp.validate()...)

	if len(s.Systems) == 0 {
		messages = append(messages,
			"Failed to validate settings because no systems are defined. "+
				"Settings files following the old configuration format must be "+
				"updated to the systems with roles format.")
	}

	for i, system := range s.Systems {
		messages = append(messages, system.validate(fmt.Sprintf("settings['systems'][%d]", i))...)
	}

	// Every required role must be filled somewhere on the deployment
	if len(s.Systems) > 0 {
		if missing := s.missingRoles(); len(missing) > 0 {
			messages = append(messages, fmt.Sprintf(
				"The following roles are missing: %s", strings.Join(missing, ", ")))
		}
	}

	if len(messages) > 0 {
		return NewValidationError(messages)
	}
	return nil
}

func (p Pulp) validate() []string {
	var messages []string

	switch {
	case len(p.Auth) == 0:
		messages = append(messages,
			"Failed to validate settings['pulp'] because 'auth' is a required property.")
	case len(p.Auth) != 2:
		messages = append(messages, fmt.Sprintf(
			"Failed to validate settings['pulp']['auth'] because it must hold a "+
				"username and a password, got %d items.", len(p.Auth)))
	case p.Auth[0] == "" || p.Auth[1] == "":
		messages = append(messages,
			"Failed to validate settings['pulp']['auth'] because the username and "+
				"password may not be empty.")
	}

	if p.Version == "" {
		messages = append(messages,
			"Failed to validate settings['pulp'] because 'version' is a required property.")
	} else if !IsValidVersion(p.Version) {
		messages = append(messages, fmt.Sprintf(
			"Failed to validate settings['pulp']['version'] because %q is not a "+
				"valid version.", p.Version))
	}

	return messages
}

func (sys System) validate(path string) []string {
	var messages []string

	if sys.Hostname == "" {
		messages = append(messages, fmt.Sprintf(
			"Failed to validate %s because 'hostname' is a required property.", path))
	}

	if _, ok := sys.Roles[RoleShell]; !ok {
		messages = append(messages, fmt.Sprintf(
			"Failed to validate %s['roles'] because 'shell' is a required property.", path))
	}

	for name, role := range sys.Roles {
		if !IsKnownRole(name) {
			messages = append(messages, fmt.Sprintf(
				"Failed to validate %s['roles'] because additional properties are "+
					"not allowed (%q was unexpected).", path, name))
			continue
		}
		messages = append(messages, role.validate(fmt.Sprintf("%s['roles'][%q]", path, name), name)...)
	}

	return messages
}

func (r Role) validate(path, name string) []string {
	var messages []string

	switch name {
	case RoleAMQPBroker:
		if r.Service == "" {
			messages = append(messages, fmt.Sprintf(
				"Failed to validate %s because 'service' is a required property.", path))
		} else if !IsAMQPService(r.Service) {
			messages = append(messages, fmt.Sprintf(
				"Failed to validate %s because %q is not one of [%s].",
				path, r.Service, strings.Join(AMQPServices, ", ")))
		}
	case RoleAPI:
		if r.Scheme == "" {
			messages = append(messages, fmt.Sprintf(
				"Failed to validate %s because 'scheme' is a required property.", path))
		} else if r.Scheme != SchemeHTTP && r.Scheme != SchemeHTTPS {
			messages = append(messages, fmt.Sprintf(
				"Failed to validate %s because %q is not one of [http, https].",
				path, r.Scheme))
		}
	case RoleShell:
		if r.Transport != "" && r.Transport != TransportLocal && r.Transport != TransportSSH {
			messages = append(messages, fmt.Sprintf(
				"Failed to validate %s because %q is not one of [local, ssh].",
				path, r.Transport))
		}
	}

	return messages
}

func (s *Settings) missingRoles() []string {
	filled := make(map[string]bool)
	for _, system := range s.Systems {
		for role := range system.Roles {
			filled[role] = true
		}
	}

	var missing []string
	for _, role := range RequiredRoles {
		if !filled[role] {
			missing = append(missing, role)
		}
	}
	return missing
}
