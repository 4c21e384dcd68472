package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// ErrorKind classifies an execution fault. Every kind is fatal.
type ErrorKind int

const (
	StackUnderflow ErrorKind = iota + 1
	InvalidBranchCondition
	HashMismatch
	MemoryAddressOutOfRange
	DivisionByZero
	// InvalidFieldOperation is reserved. Inverting zero reports
	// DivisionByZero and no other operation can fail on field input.
	InvalidFieldOperation
	AssertionFailed
	AdviceProviderMiss
	CycleBudgetExceeded
	NotBinaryValue
	NotU32Value
	InvalidParameter
	InvalidFmpValue
	CodeBlockNotFound
	SyscallTargetNotInKernel
	InvalidStackDepthOnReturn
	RangeCheckFailed
	ProcessNotReusable
	MerklePathVerificationFailed
	CallerNotInSyscall
)

var errorKindNames = map[ErrorKind]string{
	StackUnderflow:               "stack underflow",
	InvalidBranchCondition:       "invalid branch condition",
	HashMismatch:                 "hash mismatch",
	MemoryAddressOutOfRange:      "memory address out of range",
	DivisionByZero:               "division by zero",
	InvalidFieldOperation:        "invalid field operation",
	AssertionFailed:              "assertion failed",
	AdviceProviderMiss:           "advice provider miss",
	CycleBudgetExceeded:          "cycle budget exceeded",
	NotBinaryValue:               "not a binary value",
	NotU32Value:                  "not a u32 value",
	InvalidParameter:             "invalid parameter",
	InvalidFmpValue:              "invalid fmp value",
	CodeBlockNotFound:            "code block not found",
	SyscallTargetNotInKernel:     "syscall target not in kernel",
	InvalidStackDepthOnReturn:    "invalid stack depth on return",
	RangeCheckFailed:             "range check failed",
	ProcessNotReusable:           "process not reusable",
	MerklePathVerificationFailed: "merkle path verification failed",
	CallerNotInSyscall:           "caller used outside a syscall",
}

// String returns a human-readable name for the kind
func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// ExecutionError is a fault raised while executing a program. It carries
// the cycle at which it happened and, for most kinds, the offending value.
type ExecutionError struct {
	Kind     ErrorKind
	Clk      uint64
	Value    field.Element
	HasValue bool
	Msg      string
	Cause    error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	s := fmt.Sprintf("%s at clk %d", e.Kind, e.Clk)
	if e.HasValue {
		s += fmt.Sprintf(" (value %d)", e.Value.Value())
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches any ExecutionError of the same kind
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrStackUnderflow               = &ExecutionError{Kind: StackUnderflow}
	ErrInvalidBranchCondition       = &ExecutionError{Kind: InvalidBranchCondition}
	ErrHashMismatch                 = &ExecutionError{Kind: HashMismatch}
	ErrMemoryAddressOutOfRange      = &ExecutionError{Kind: MemoryAddressOutOfRange}
	ErrDivisionByZero               = &ExecutionError{Kind: DivisionByZero}
	ErrInvalidFieldOperation        = &ExecutionError{Kind: InvalidFieldOperation}
	ErrAssertionFailed              = &ExecutionError{Kind: AssertionFailed}
	ErrAdviceProviderMiss           = &ExecutionError{Kind: AdviceProviderMiss}
	ErrCycleBudgetExceeded          = &ExecutionError{Kind: CycleBudgetExceeded}
	ErrNotBinaryValue               = &ExecutionError{Kind: NotBinaryValue}
	ErrNotU32Value                  = &ExecutionError{Kind: NotU32Value}
	ErrInvalidParameter             = &ExecutionError{Kind: InvalidParameter}
	ErrInvalidFmpValue              = &ExecutionError{Kind: InvalidFmpValue}
	ErrCodeBlockNotFound            = &ExecutionError{Kind: CodeBlockNotFound}
	ErrSyscallTargetNotInKernel     = &ExecutionError{Kind: SyscallTargetNotInKernel}
	ErrInvalidStackDepthOnReturn    = &ExecutionError{Kind: InvalidStackDepthOnReturn}
	ErrRangeCheckFailed             = &ExecutionError{Kind: RangeCheckFailed}
	ErrProcessNotReusable           = &ExecutionError{Kind: ProcessNotReusable}
	ErrMerklePathVerificationFailed = &ExecutionError{Kind: MerklePathVerificationFailed}
	ErrCallerNotInSyscall           = &ExecutionError{Kind: CallerNotInSyscall}
)

func newError(kind ErrorKind, clk uint64, format string, args ...any) *ExecutionError {
	return &ExecutionError{Kind: kind, Clk: clk, Msg: fmt.Sprintf(format, args...)}
}

func newValueError(kind ErrorKind, clk uint64, value field.Element, format string, args ...any) *ExecutionError {
	e := newError(kind, clk, format, args...)
	e.Value = value
	e.HasValue = true
	return e
}

func (e *ExecutionError) withCause(err error) *ExecutionError {
	e.Cause = err
	return e
}
