package vybiumprocessor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
	"github.com/vybium/vybium-processor/internal/vybium-processor/vm"
)

const addProgram = `{"root": {"kind": "span", "ops": ["push.5", "add", "swap", "drop"]}}`

func TestExecute(t *testing.T) {
	prog, err := DecodeProgram([]byte(addProgram))
	require.NoError(t, err)
	inputs, err := NewStackInputs([]uint64{2, 3})
	require.NoError(t, err)

	trace, err := Execute(prog, inputs, nil, DefaultExecutionOptions().WithTraceChecks(true))
	require.NoError(t, err)
	assert.Equal(t, []uint64{8, 0}, trace.StackOutputs().Uint64s(2))
	assert.Equal(t, prog.Hash(), trace.ProgramInfo().ProgramHash)
	assert.Zero(t, trace.NumRows()&(trace.NumRows()-1), "trace length is a power of two")
}

func TestProcessorRun(t *testing.T) {
	proc, err := NewProcessor(nil, nil)
	require.NoError(t, err)

	prog, err := DecodeProgram([]byte(`{"root": {"kind": "span", "ops": ["adv_pop", "adv_pop", "mul"]}}`))
	require.NoError(t, err)
	provider, err := DecodeAdvice([]byte(`{"stack": [6, 7]}`))
	require.NoError(t, err)

	res, err := proc.Run(prog, StackInputs{}, provider)
	require.NoError(t, err)
	assert.Equal(t, []uint64{42}, res.Outputs.Uint64s(1))
	// SPAN, three ops, END, HALT
	assert.Equal(t, uint64(5), res.Cycles)

	t.Run("processor is reusable", func(t *testing.T) {
		provider, err := DecodeAdvice([]byte(`{"stack": [2, 3]}`))
		require.NoError(t, err)
		res, err := proc.Run(prog, StackInputs{}, provider)
		require.NoError(t, err)
		assert.Equal(t, []uint64{6}, res.Outputs.Uint64s(1))
	})
}

func TestExecuteErrors(t *testing.T) {
	t.Run("invalid options", func(t *testing.T) {
		_, err := NewProcessor(DefaultExecutionOptions().WithMaxCycles(1), nil)
		assert.ErrorIs(t, err, &VMError{Code: ErrInvalidConfig})
	})

	t.Run("nil program", func(t *testing.T) {
		_, err := Execute(nil, StackInputs{}, nil, nil)
		assert.ErrorIs(t, err, &VMError{Code: ErrInvalidInput})
	})

	t.Run("bad document", func(t *testing.T) {
		_, err := DecodeProgram([]byte(`{"root": {"kind": "goto"}}`))
		assert.ErrorIs(t, err, &VMError{Code: ErrInvalidInput})
	})

	t.Run("too many inputs", func(t *testing.T) {
		_, err := NewStackInputs(make([]uint64, core.MinStackDepth+1))
		assert.ErrorIs(t, err, &VMError{Code: ErrInvalidInput})
		assert.ErrorIs(t, err, core.ErrTooManyStackInputs)
	})

	t.Run("advice miss", func(t *testing.T) {
		prog, err := DecodeProgram([]byte(`{"root": {"kind": "span", "ops": ["adv_pop"]}}`))
		require.NoError(t, err)
		_, err = Execute(prog, StackInputs{}, nil, nil)
		assert.ErrorIs(t, err, &VMError{Code: ErrAdvice})
		assert.ErrorIs(t, err, vm.ErrAdviceProviderMiss)
	})

	t.Run("forged digest", func(t *testing.T) {
		doc := `{"root": {"kind": "span", "ops": ["noop"], "digest": "` + core.NewWord(1, 2, 3, 4).Hex() + `"}}`
		prog, err := DecodeProgram([]byte(doc))
		require.NoError(t, err)
		_, err = Execute(prog, StackInputs{}, nil, nil)
		assert.ErrorIs(t, err, &VMError{Code: ErrProgramIntegrity})

		var vmErr *VMError
		require.True(t, errors.As(err, &vmErr))
		kind, ok := vmErr.Kind()
		require.True(t, ok)
		assert.Equal(t, vm.HashMismatch, kind)
	})

	t.Run("cycle budget", func(t *testing.T) {
		doc := `{"root": {"kind": "loop", "children": [{"kind": "span", "ops": ["push.1"]}]}}`
		prog, err := DecodeProgram([]byte(doc))
		require.NoError(t, err)
		inputs, err := NewStackInputs([]uint64{1})
		require.NoError(t, err)
		_, err = Execute(prog, inputs, nil, DefaultExecutionOptions().WithMaxCycles(64).WithExpectedCycles(64))
		assert.ErrorIs(t, err, &VMError{Code: ErrCycleBudget})
	})
}

func TestEncodeProgram(t *testing.T) {
	prog, err := DecodeProgram([]byte(addProgram))
	require.NoError(t, err)
	data, err := EncodeProgram(prog)
	require.NoError(t, err)

	again, err := DecodeProgram(data)
	require.NoError(t, err)
	assert.Equal(t, prog.Hash(), again.Hash())
}
