package types

import "fmt"

// SuiteConfig groups related tests under a plan
type SuiteConfig struct {
	Description string       `yaml:"description"`
	Tests       []TestConfig `yaml:"tests"`
}

// PlanConfig represents a named collection of tests and suites
type PlanConfig struct {
	ID          string                 `yaml:"id"`
	Description string                 `yaml:"description"`
	Inherits    []string               `yaml:"inherits,omitempty"`
	Tests       []TestConfig           `yaml:"tests,omitempty"`
	Suites      map[string]SuiteConfig `yaml:"suites,omitempty"`
}

// ResolveInherited merges test configurations from parent plans into this plan.
//
// A plan can inherit tests and suites from the plans named in its 'Inherits'
// field, recursively: if plan C inherits from B and B inherits from A, C ends
// up with entries from both B and A. The merge rules are:
// - Suites: a parent suite is only taken when the child has no suite of that name
// - Tests: deduplicated by package:name key, child entries first
// - More distant ancestors are merged after closer ones
func (p *PlanConfig) ResolveInherited(plans map[string]PlanConfig) error {
	processed := make(map[string]bool)
	return p.resolveInheritedRecursive(plans, processed)
}

func (p *PlanConfig) resolveInheritedRecursive(plans map[string]PlanConfig, processed map[string]bool) error {
	if len(p.Inherits) == 0 {
		return nil
	}

	mergedSuites := make(map[string]SuiteConfig)
	var mergedTests []TestConfig
	seenTests := make(map[string]bool)

	// The child's own entries go in first so they take precedence
	for k, v := range p.Suites {
		mergedSuites[k] = v
	}
	for _, test := range p.Tests {
		key := test.Package
		if test.Name != "" {
			key += ":" + test.Name
		}
		if !seenTests[key] {
			mergedTests = append(mergedTests, test)
			seenTests[key] = true
		}
	}

	for _, inheritFrom := range p.Inherits {
		if processed[inheritFrom] {
			return fmt.Errorf("circular inheritance detected for plan %q", inheritFrom)
		}

		parent, ok := plans[inheritFrom]
		if !ok {
			return fmt.Errorf("plan %q inherits from non-existent plan %q", p.ID, inheritFrom)
		}

		processed[inheritFrom] = true

		if err := parent.resolveInheritedRecursive(plans, processed); err != nil {
			return fmt.Errorf("resolving inheritance for parent plan %q: %w", inheritFrom, err)
		}

		for k, v := range parent.Suites {
			if _, exists := mergedSuites[k]; !exists {
				mergedSuites[k] = v
			}
		}

		for _, test := range parent.Tests {
			key := test.Package
			if test.Name != "" {
				key += ":" + test.Name
			}
			if !seenTests[key] {
				mergedTests = append(mergedTests, test)
				seenTests[key] = true
			}
		}

		processed[inheritFrom] = false
	}

	p.Suites = mergedSuites
	p.Tests = mergedTests
	return nil
}
