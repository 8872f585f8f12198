// Package registry loads the plan file and turns it into runnable test
// metadata. A plan file groups tests into plans, optionally organized in
// suites, and plans can inherit the content of other plans.
package registry

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/omaciel/uplink/types"
)

// Registry manages test plans and their configurations
type Registry struct {
	config  Config
	entries []types.TestMetadata
	mu      sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log            *slog.Logger
	PlansFile      string
	DefaultTimeout time.Duration
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.PlansFile == "" {
		return nil, fmt.Errorf("plans file is required")
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	r := &Registry{
		config: cfg,
	}

	if err := r.loadPlans(cfg.PlansFile); err != nil {
		return nil, fmt.Errorf("failed to load plans: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "entries", len(r.entries))

	return r, nil
}

// loadPlans loads the plan file and resolves it into test metadata
func (r *Registry) loadPlans(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	plansConfig, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := r.validatePlanInheritance(plansConfig); err != nil {
		return fmt.Errorf("failed to resolve plan inheritance: %w", err)
	}

	entries, err := r.discoverTests(plansConfig)
	if err != nil {
		return fmt.Errorf("failed to discover tests: %w", err)
	}

	r.entries = entries

	return nil
}

// validatePlanInheritance checks plan inheritance resolution
func (r *Registry) validatePlanInheritance(config *types.PlansConfig) error {
	if config.Plans == nil {
		return nil
	}

	planMap := make(map[string]types.PlanConfig)
	for _, plan := range config.Plans {
		planMap[plan.ID] = plan
	}

	// Check for circular inheritance before resolving
	for _, plan := range config.Plans {
		if err := r.checkCircularInheritance(plan.ID, plan.Inherits, planMap, make(map[string]bool)); err != nil {
			return fmt.Errorf("circular inheritance detected: %w", err)
		}
	}

	for i := range config.Plans {
		if err := config.Plans[i].ResolveInherited(planMap); err != nil {
			return fmt.Errorf("invalid plan inheritance: %w", err)
		}
	}

	return nil
}

// checkCircularInheritance detects circular dependencies in plan inheritance
func (r *Registry) checkCircularInheritance(currentID string, inherits []string, planMap map[string]types.PlanConfig, visited map[string]bool) error {
	if visited[currentID] {
		return fmt.Errorf("circular inheritance detected at plan %s", currentID)
	}

	visited[currentID] = true
	defer delete(visited, currentID) // Clean up after checking this branch

	for _, inheritedID := range inherits {
		inherited, exists := planMap[inheritedID]
		if !exists {
			return fmt.Errorf("plan %s inherits from non-existent plan %s", currentID, inheritedID)
		}

		if err := r.checkCircularInheritance(inheritedID, inherited.Inherits, planMap, visited); err != nil {
			return err
		}
	}

	return nil
}

// GetTests returns every test entry resolved from the plan file
func (r *Registry) GetTests() []types.TestMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries
}

// GetTestsByPlan returns the test entries for a specific plan
func (r *Registry) GetTestsByPlan(planID string) []types.TestMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []types.TestMetadata
	for _, entry := range r.entries {
		if entry.Plan == planID {
			entries = append(entries, entry)
		}
	}
	return entries
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// loadConfig loads a plans config from a file
func loadConfig(path string) (*types.PlansConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plans file: %w", err)
	}

	var cfg types.PlansConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing plans file: %w", err)
	}

	return &cfg, nil
}

// discoverTests converts the resolved plan configs into test metadata
func (r *Registry) discoverTests(plansConfig *types.PlansConfig) ([]types.TestMetadata, error) {
	var entries []types.TestMetadata

	for i := range plansConfig.Plans {
		plan := &plansConfig.Plans[i]

		// Process direct plan tests
		tests, err := r.discoverTestsInConfig(plan.Tests, plan.ID, "")
		if err != nil {
			return nil, err
		}
		entries = append(entries, tests...)

		// Process suites
		for suiteID, suite := range plan.Suites {
			tests, err := r.discoverTestsInConfig(suite.Tests, plan.ID, suiteID)
			if err != nil {
				return nil, err
			}
			entries = append(entries, tests...)
		}
	}

	return entries, nil
}

func (r *Registry) discoverTestsInConfig(configs []types.TestConfig, planID string, suiteID string) ([]types.TestMetadata, error) {
	var tests []types.TestMetadata

	for _, cfg := range configs {
		var timeout time.Duration
		if cfg.Timeout != nil {
			timeout = *cfg.Timeout
		} else {
			timeout = r.config.DefaultTimeout
		}

		// If only package is specified (no name), treat it as "run all"
		if cfg.Name == "" {
			tests = append(tests, types.TestMetadata{
				ID:      cfg.Package, // Use package as ID for run-all cases
				Plan:    planID,
				Suite:   suiteID,
				Package: cfg.Package,
				RunAll:  true,
				Type:    types.TestTypeTest,
				Timeout: timeout,
			})
			continue
		}

		// Normal case with specific test name
		tests = append(tests, types.TestMetadata{
			ID:       cfg.Name,
			Plan:     planID,
			Suite:    suiteID,
			FuncName: cfg.Name,
			Package:  cfg.Package,
			Type:     types.TestTypeTest,
			Timeout:  timeout,
		})
	}

	return tests, nil
}
