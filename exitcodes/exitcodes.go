// Package exitcodes defines the standard exit codes used by uplink.
package exitcodes

// Exit code constants used by uplink
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when every selected test passes
// * TestFailure (1): Used when one or more tests fail
// * RuntimeErr (2): Used for runtime errors such as bad settings, panics or timeouts
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors, including configuration problems
)
