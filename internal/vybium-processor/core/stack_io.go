package core

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// MinStackDepth is the number of visible stack registers and the floor
// below which the stack never shrinks.
const MinStackDepth = 16

// ErrTooManyStackInputs is returned when more values than visible
// registers are supplied.
var ErrTooManyStackInputs = errors.New("too many stack inputs")

// StackInputs are the public values loaded into the visible registers
// before the first cycle. The last value ends up on top of the stack.
type StackInputs struct {
	values []field.Element
}

// NewStackInputs validates and wraps raw input values
func NewStackInputs(values []uint64) (StackInputs, error) {
	if len(values) > MinStackDepth {
		return StackInputs{}, fmt.Errorf("%w: got %d, at most %d", ErrTooManyStackInputs, len(values), MinStackDepth)
	}
	elements := make([]field.Element, len(values))
	for i, v := range values {
		if v >= field.P {
			return StackInputs{}, fmt.Errorf("stack input %d value %d is not a canonical field element", i, v)
		}
		elements[i] = field.New(v)
	}
	return StackInputs{values: elements}, nil
}

// Values returns the inputs in the order they were supplied
func (si StackInputs) Values() []field.Element {
	return append([]field.Element(nil), si.values...)
}

// InitialStack returns the visible registers, top first, zero-padded to 16
func (si StackInputs) InitialStack() [MinStackDepth]field.Element {
	var top [MinStackDepth]field.Element
	for i := range top {
		top[i] = field.Zero
	}
	for i, v := range si.values {
		top[len(si.values)-1-i] = v
	}
	return top
}

// StackOutputs are the stack contents after execution, top first
type StackOutputs struct {
	stack         []field.Element
	overflowAddrs []uint64
}

// NewStackOutputs wraps final stack values and, for entries beyond the
// visible registers, the overflow table addresses they were read from.
func NewStackOutputs(stack []field.Element, overflowAddrs []uint64) StackOutputs {
	return StackOutputs{
		stack:         append([]field.Element(nil), stack...),
		overflowAddrs: append([]uint64(nil), overflowAddrs...),
	}
}

// Stack returns every output value, top first
func (so StackOutputs) Stack() []field.Element {
	return append([]field.Element(nil), so.stack...)
}

// StackTruncated returns the top n values, or all of them if fewer exist
func (so StackOutputs) StackTruncated(n int) []field.Element {
	if n > len(so.stack) {
		n = len(so.stack)
	}
	return append([]field.Element(nil), so.stack[:n]...)
}

// OverflowAddrs returns the overflow table addresses of the values below
// the visible registers.
func (so StackOutputs) OverflowAddrs() []uint64 {
	return append([]uint64(nil), so.overflowAddrs...)
}

// Uint64s returns the top n values as integers
func (so StackOutputs) Uint64s(n int) []uint64 {
	top := so.StackTruncated(n)
	out := make([]uint64, len(top))
	for i, e := range top {
		out[i] = e.Value()
	}
	return out
}
