package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
)

// executeOp runs a single span operation against the current state. The
// decoder row for the cycle has already been recorded, so handlers may
// fill its helper registers.
func (p *Process) executeOp(op program.Operation) error {
	switch op.Code {
	// System
	case program.OpNoop:
		return nil
	case program.OpAssert:
		return p.opAssert()
	case program.OpFmpAdd:
		return p.opFmpAdd()
	case program.OpFmpUpdate:
		return p.opFmpUpdate()
	case program.OpSDepth:
		return p.opSDepth()
	case program.OpCaller:
		return p.opCaller()
	case program.OpClk:
		return p.opClk()

	// Field arithmetic
	case program.OpAdd:
		return p.opAdd()
	case program.OpNeg:
		return p.opNeg()
	case program.OpMul:
		return p.opMul()
	case program.OpInv:
		return p.opInv()
	case program.OpIncr:
		return p.opIncr()
	case program.OpAnd:
		return p.opAnd()
	case program.OpOr:
		return p.opOr()
	case program.OpNot:
		return p.opNot()
	case program.OpEq:
		return p.opEq()
	case program.OpEqz:
		return p.opEqz()

	// U32 arithmetic
	case program.OpU32Split:
		return p.opU32Split()
	case program.OpU32Add:
		return p.opU32Add()
	case program.OpU32Sub:
		return p.opU32Sub()
	case program.OpU32Mul:
		return p.opU32Mul()
	case program.OpU32Div:
		return p.opU32Div()
	case program.OpU32Assert2:
		return p.opU32Assert2()

	// Stack manipulation
	case program.OpPush:
		p.stack.Push(op.Imm)
		return nil
	case program.OpPad:
		p.stack.Push(field.Zero)
		return nil
	case program.OpDrop:
		p.stack.Drop()
		return nil
	case program.OpDropW:
		p.stack.DropW()
		return nil
	case program.OpDup:
		return p.opDup(op)
	case program.OpDupW:
		return p.opDupW(op)
	case program.OpSwap:
		p.stack.Swap(0, 1)
		return nil
	case program.OpSwapW:
		return p.opSwapW(op)
	case program.OpSwapDW:
		p.opSwapDW()
		return nil
	case program.OpMovUp:
		return p.opMovUp(op)
	case program.OpMovDn:
		return p.opMovDn(op)
	case program.OpCSwap:
		return p.opCSwap()
	case program.OpCSwapW:
		return p.opCSwapW()

	// Memory and advice
	case program.OpMLoad:
		return p.opMLoad()
	case program.OpMLoadW:
		return p.opMLoadW()
	case program.OpMStore:
		return p.opMStore()
	case program.OpMStoreW:
		return p.opMStoreW()
	case program.OpMStream:
		return p.opMStream()
	case program.OpAdvPop:
		return p.opAdvPop()
	case program.OpAdvPopW:
		return p.opAdvPopW()

	// Cryptographic
	case program.OpHPerm:
		return p.opHPerm()
	case program.OpMpVerify:
		return p.opMpVerify()
	case program.OpMrUpdate:
		return p.opMrUpdate()

	default:
		// NewSpan rejects control opcodes, so reaching this is a bug
		panic(fmt.Sprintf("operation %s cannot be executed inside a span", op.Code))
	}
}

// stackParam returns the index carried by a parameterised stack operation,
// which must lie in [lo, hi].
func (p *Process) stackParam(op program.Operation, lo, hi uint64) (int, error) {
	n := op.Imm.Value()
	if n < lo || n > hi {
		return 0, newValueError(InvalidParameter, p.system.Clk(), op.Imm,
			"%s expects an index in %d..%d", op.Code, lo, hi)
	}
	return int(n), nil
}

func isBinary(v field.Element) bool {
	return v.IsZero() || v.IsOne()
}

// invOrZero returns the inverse of v, or zero when v is zero
func invOrZero(v field.Element) field.Element {
	if v.IsZero() {
		return field.Zero
	}
	return v.Inverse()
}
