package vybiumprocessor

import (
	"errors"
	"log/slog"

	"github.com/vybium/vybium-processor/internal/vybium-processor/advice"
	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
	"github.com/vybium/vybium-processor/internal/vybium-processor/utils"
	"github.com/vybium/vybium-processor/internal/vybium-processor/vm"
)

// Processor runs programs with a fixed set of options
type Processor interface {
	// Run executes a program and builds its trace
	Run(prog *Program, inputs StackInputs, provider AdviceProvider) (*Result, error)
}

// processorImpl is the internal implementation of Processor
type processorImpl struct {
	options *ExecutionOptions
	logger  *slog.Logger
}

// NewProcessor creates a processor. Nil options mean the defaults; a nil
// logger means the process-wide one.
func NewProcessor(options *ExecutionOptions, logger *slog.Logger) (Processor, error) {
	if options == nil {
		options = DefaultExecutionOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, &VMError{
			Code:    ErrInvalidConfig,
			Message: "invalid execution options",
			Cause:   err,
		}
	}
	return &processorImpl{options: options.Clone(), logger: logger}, nil
}

// Run executes a program on a fresh process and builds its trace
func (p *processorImpl) Run(prog *Program, inputs StackInputs, provider AdviceProvider) (*Result, error) {
	if prog == nil {
		return nil, &VMError{Code: ErrInvalidInput, Message: "program is nil"}
	}

	process, err := vm.NewProcess(inputs, provider, p.options.Clone())
	if err != nil {
		return nil, &VMError{Code: ErrInvalidConfig, Message: "failed to create process", Cause: err}
	}
	process.WithLogger(p.logger)

	outputs, err := process.Execute(prog)
	if err != nil {
		return nil, wrapExecutionError(err)
	}

	trace, err := process.BuildTrace()
	if err != nil {
		var ee *vm.ExecutionError
		if errors.As(err, &ee) {
			return nil, wrapExecutionError(err)
		}
		return nil, &VMError{Code: ErrTraceConsistency, Message: "trace checks failed", Cause: err}
	}

	return &Result{Trace: trace, Outputs: outputs, Cycles: process.Clk()}, nil
}

// Execute runs a program with the given options and returns its trace
func Execute(prog *Program, inputs StackInputs, provider AdviceProvider, options *ExecutionOptions) (*ExecutionTrace, error) {
	proc, err := NewProcessor(options, nil)
	if err != nil {
		return nil, err
	}
	res, err := proc.Run(prog, inputs, provider)
	if err != nil {
		return nil, err
	}
	return res.Trace, nil
}

// DecodeProgram parses a JSON program document
func DecodeProgram(data []byte) (*Program, error) {
	prog, err := program.DecodeProgramJSON(data)
	if err != nil {
		return nil, &VMError{Code: ErrInvalidInput, Message: "invalid program", Cause: err}
	}
	return prog, nil
}

// EncodeProgram renders a program as a JSON document with every digest
// filled in.
func EncodeProgram(prog *Program) ([]byte, error) {
	return program.EncodeProgramJSON(prog)
}

// NewStackInputs builds stack inputs; the last value ends up on top
func NewStackInputs(values []uint64) (StackInputs, error) {
	in, err := core.NewStackInputs(values)
	if err != nil {
		return StackInputs{}, &VMError{Code: ErrInvalidInput, Message: "invalid stack inputs", Cause: err}
	}
	return in, nil
}

// NewAdviceProvider builds an in-memory advice provider
func NewAdviceProvider(in AdviceInputs) (AdviceProvider, error) {
	p, err := advice.NewMemProvider(in)
	if err != nil {
		return nil, &VMError{Code: ErrInvalidInput, Message: "invalid advice inputs", Cause: err}
	}
	return p, nil
}

// DecodeAdvice parses a JSON advice document into an in-memory provider
func DecodeAdvice(data []byte) (AdviceProvider, error) {
	in, err := advice.DecodeInputsJSON(data)
	if err != nil {
		return nil, &VMError{Code: ErrInvalidInput, Message: "invalid advice document", Cause: err}
	}
	return NewAdviceProvider(in)
}

// DefaultExecutionOptions returns the default execution options
func DefaultExecutionOptions() *ExecutionOptions {
	return utils.DefaultExecutionOptions()
}
