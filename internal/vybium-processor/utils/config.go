package utils

import "fmt"

const (
	// MinMaxCycles is the smallest cycle budget a process accepts
	MinMaxCycles = 1 << 6
	// DefaultMaxCycles bounds execution when no budget is given
	DefaultMaxCycles = 1 << 29
	// DefaultExpectedCycles sizes the initial trace column allocation
	DefaultExpectedCycles = 1 << 12
)

// ExecutionOptions controls the resources a single execution may use
type ExecutionOptions struct {
	// MaxCycles is the hard cycle budget; exceeding it faults the process
	MaxCycles int

	// ExpectedCycles only sizes column pre-allocation
	ExpectedCycles int

	// TraceChecks runs the bus and range balance checks after the trace
	// is built.
	TraceChecks bool
}

// DefaultExecutionOptions returns the options used when none are given
func DefaultExecutionOptions() *ExecutionOptions {
	return &ExecutionOptions{
		MaxCycles:      DefaultMaxCycles,
		ExpectedCycles: DefaultExpectedCycles,
		TraceChecks:    false,
	}
}

// Validate checks if the options are usable
func (o *ExecutionOptions) Validate() error {
	if o.MaxCycles < MinMaxCycles {
		return fmt.Errorf("max cycles (%d) must be at least %d", o.MaxCycles, MinMaxCycles)
	}

	if o.ExpectedCycles <= 0 {
		return fmt.Errorf("expected cycles must be positive")
	}

	if o.ExpectedCycles > o.MaxCycles {
		return fmt.Errorf("expected cycles (%d) must not exceed max cycles (%d)",
			o.ExpectedCycles, o.MaxCycles)
	}

	return nil
}

// WithMaxCycles sets the cycle budget
func (o *ExecutionOptions) WithMaxCycles(n int) *ExecutionOptions {
	o.MaxCycles = n
	return o
}

// WithExpectedCycles sets the allocation hint
func (o *ExecutionOptions) WithExpectedCycles(n int) *ExecutionOptions {
	o.ExpectedCycles = n
	return o
}

// WithTraceChecks toggles the post-build balance checks
func (o *ExecutionOptions) WithTraceChecks(enabled bool) *ExecutionOptions {
	o.TraceChecks = enabled
	return o
}

// Clone creates a copy of the options
func (o *ExecutionOptions) Clone() *ExecutionOptions {
	return &ExecutionOptions{
		MaxCycles:      o.MaxCycles,
		ExpectedCycles: o.ExpectedCycles,
		TraceChecks:    o.TraceChecks,
	}
}
