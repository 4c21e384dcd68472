package vybiumprocessor

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/advice"
	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
	"github.com/vybium/vybium-processor/internal/vybium-processor/utils"
	"github.com/vybium/vybium-processor/internal/vybium-processor/vm"
)

// FieldElement is an element of the Goldilocks field
type FieldElement = field.Element

// Word is four field elements; digests are words
type Word = core.Word

// Program is a code-block tree with its kernel and procedure table
type Program = program.Program

// StackInputs are the initial stack values
type StackInputs = core.StackInputs

// StackOutputs are the stack values after execution, top first
type StackOutputs = core.StackOutputs

// AdviceInputs are the initial contents of an advice provider
type AdviceInputs = advice.Inputs

// AdviceProvider supplies non-deterministic inputs during execution
type AdviceProvider = advice.Provider

// ExecutionOptions bounds and tunes a single execution
type ExecutionOptions = utils.ExecutionOptions

// ExecutionTrace is the column-major trace of an execution
type ExecutionTrace = vm.ExecutionTrace

// ProgramInfo identifies the program a trace belongs to
type ProgramInfo = vm.ProgramInfo

// ErrorKind classifies an execution fault
type ErrorKind = vm.ErrorKind

// Result is the outcome of a successful execution
type Result struct {
	// Trace is the padded execution trace
	Trace *ExecutionTrace

	// Outputs are the final stack values
	Outputs StackOutputs

	// Cycles is the clock value at HALT
	Cycles uint64
}
