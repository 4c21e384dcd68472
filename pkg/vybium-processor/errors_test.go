package vybiumprocessor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vybium/vybium-processor/internal/vybium-processor/vm"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		kind vm.ErrorKind
		want ErrorCode
	}{
		{vm.CycleBudgetExceeded, ErrCycleBudget},
		{vm.AdviceProviderMiss, ErrAdvice},
		{vm.HashMismatch, ErrProgramIntegrity},
		{vm.CodeBlockNotFound, ErrProgramIntegrity},
		{vm.SyscallTargetNotInKernel, ErrProgramIntegrity},
		{vm.ProcessNotReusable, ErrInvalidConfig},
		{vm.DivisionByZero, ErrVMExecution},
		{vm.InvalidFieldOperation, ErrVMExecution},
		{vm.StackUnderflow, ErrVMExecution},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, codeForKind(tt.kind))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	t.Run("with cause", func(t *testing.T) {
		err := &VMError{Code: ErrInvalidInput, Message: "bad", Cause: errors.New("boom")}
		assert.Equal(t, "vybium-processor error [invalid input]: bad (caused by: boom)", err.Error())
	})

	t.Run("without cause", func(t *testing.T) {
		err := &VMError{Code: ErrAdvice, Message: "missing"}
		assert.Equal(t, "vybium-processor error [advice]: missing", err.Error())
	})

	t.Run("wrapping", func(t *testing.T) {
		cause := fmt.Errorf("outer: %w", vm.ErrDivisionByZero)
		err := wrapExecutionError(cause)
		assert.ErrorIs(t, err, &VMError{Code: ErrVMExecution})
		assert.ErrorIs(t, err, vm.ErrDivisionByZero)
		assert.NotErrorIs(t, err, &VMError{Code: ErrAdvice})

		plain := wrapExecutionError(errors.New("other"))
		assert.ErrorIs(t, plain, &VMError{Code: ErrUnknown})
		assert.NoError(t, wrapExecutionError(nil))
	})
}
