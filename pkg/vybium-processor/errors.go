package vybiumprocessor

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-processor/internal/vybium-processor/vm"
)

// ErrorCode represents a Vybium processor error code
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota

	// ErrInvalidConfig represents invalid execution options
	ErrInvalidConfig

	// ErrInvalidInput represents a malformed program, stack input or advice
	ErrInvalidInput

	// ErrVMExecution represents a fault raised by the program itself
	ErrVMExecution

	// ErrCycleBudget represents a program that ran out of cycles
	ErrCycleBudget

	// ErrAdvice represents advice the program needed but did not get
	ErrAdvice

	// ErrProgramIntegrity represents a block whose recorded digest or
	// target could not be verified
	ErrProgramIntegrity

	// ErrTraceConsistency represents a trace whose buses do not balance
	ErrTraceConsistency
)

var errorCodeNames = map[ErrorCode]string{
	ErrUnknown:          "unknown",
	ErrInvalidConfig:    "invalid config",
	ErrInvalidInput:     "invalid input",
	ErrVMExecution:      "execution fault",
	ErrCycleBudget:      "cycle budget",
	ErrAdvice:           "advice",
	ErrProgramIntegrity: "program integrity",
	ErrTraceConsistency: "trace consistency",
}

// String returns the name of the code
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code %d", int(c))
}

// VMError represents a Vybium processor error
type VMError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message
func (e *VMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vybium-processor error [%s]: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("vybium-processor error [%s]: %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *VMError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *VMError) Is(target error) bool {
	t, ok := target.(*VMError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Kind returns the execution fault kind behind e, if any
func (e *VMError) Kind() (ErrorKind, bool) {
	var ee *vm.ExecutionError
	if errors.As(e.Cause, &ee) {
		return ee.Kind, true
	}
	return 0, false
}

// codeForKind groups execution fault kinds under public codes
func codeForKind(kind ErrorKind) ErrorCode {
	switch kind {
	case vm.CycleBudgetExceeded:
		return ErrCycleBudget
	case vm.AdviceProviderMiss:
		return ErrAdvice
	case vm.HashMismatch, vm.CodeBlockNotFound, vm.SyscallTargetNotInKernel:
		return ErrProgramIntegrity
	case vm.ProcessNotReusable:
		return ErrInvalidConfig
	default:
		return ErrVMExecution
	}
}

// wrapExecutionError converts an error from the processor into a VMError
func wrapExecutionError(err error) error {
	if err == nil {
		return nil
	}
	var ee *vm.ExecutionError
	if errors.As(err, &ee) {
		return &VMError{Code: codeForKind(ee.Kind), Message: "execution failed", Cause: err}
	}
	return &VMError{Code: ErrUnknown, Message: "execution failed", Cause: err}
}
