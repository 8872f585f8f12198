// Package types contains shared types used across the uplink test harness
package types

import "time"

// TestType describes what kind of plan entry a piece of metadata refers to
type TestType string

// String implements the Stringer interface for TestType
func (t TestType) String() string {
	return string(t)
}

// TestType enum values
const (
	TestTypeTest  TestType = "test"
	TestTypeSuite TestType = "suite"
	TestTypePlan  TestType = "plan"
)

// PlansConfig represents the complete content of a plans file
type PlansConfig struct {
	Plans []PlanConfig `yaml:"plans"`
}

// TestMetadata identifies a single runnable entry selected from a plan
type TestMetadata struct {
	ID       string
	Type     TestType
	Plan     string
	Suite    string
	FuncName string
	Package  string
	Timeout  time.Duration
	RunAll   bool
}

// GetName returns a name for the entry based on available fields
func (m TestMetadata) GetName() string {
	if m.FuncName != "" {
		return m.FuncName
	}
	if m.Package != "" {
		return m.Package
	}
	return m.ID
}
