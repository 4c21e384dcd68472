package utils

import "testing"

// TestDefaultExecutionOptions tests the DefaultExecutionOptions function
func TestDefaultExecutionOptions(t *testing.T) {
	opts := DefaultExecutionOptions()

	if opts == nil {
		t.Fatal("DefaultExecutionOptions() returned nil")
	}

	if opts.MaxCycles != DefaultMaxCycles {
		t.Errorf("MaxCycles = %d, want %d", opts.MaxCycles, DefaultMaxCycles)
	}

	if opts.TraceChecks {
		t.Error("TraceChecks should be off by default")
	}

	if err := opts.Validate(); err != nil {
		t.Errorf("DefaultExecutionOptions() should be valid: %v", err)
	}
}

// TestExecutionOptionsValidate tests the Validate method
func TestExecutionOptionsValidate(t *testing.T) {
	tests := []struct {
		name      string
		opts      *ExecutionOptions
		expectErr bool
	}{
		{
			name:      "valid defaults",
			opts:      DefaultExecutionOptions(),
			expectErr: false,
		},
		{
			name:      "budget at the minimum",
			opts:      &ExecutionOptions{MaxCycles: MinMaxCycles, ExpectedCycles: MinMaxCycles},
			expectErr: false,
		},
		{
			name:      "budget below the minimum",
			opts:      &ExecutionOptions{MaxCycles: MinMaxCycles - 1, ExpectedCycles: 1},
			expectErr: true,
		},
		{
			name:      "expected above max",
			opts:      &ExecutionOptions{MaxCycles: 1024, ExpectedCycles: 2048},
			expectErr: true,
		},
		{
			name:      "expected zero",
			opts:      &ExecutionOptions{MaxCycles: 1024, ExpectedCycles: 0},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.expectErr {
				t.Errorf("Validate() error = %v, expectErr %v", err, tt.expectErr)
			}
		})
	}
}

// TestExecutionOptionsBuilders tests the With* methods and Clone
func TestExecutionOptionsBuilders(t *testing.T) {
	opts := DefaultExecutionOptions().
		WithMaxCycles(4096).
		WithExpectedCycles(128).
		WithTraceChecks(true)

	if opts.MaxCycles != 4096 || opts.ExpectedCycles != 128 || !opts.TraceChecks {
		t.Errorf("builders did not apply: %+v", opts)
	}

	clone := opts.Clone()
	clone.MaxCycles = 64
	if opts.MaxCycles != 4096 {
		t.Error("Clone should not share state with the original")
	}
}
