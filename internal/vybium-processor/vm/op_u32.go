package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/utils"
)

// ========== U32 operations ==========
//
// Every u32 operation decomposes its two 32-bit results into 16-bit limbs.
// The limbs are sent to the range checker and written to h2..h5.

const maxU32 = uint64(1)<<32 - 1

func (p *Process) u32Operand(i int) (uint64, error) {
	v := p.stack.Get(i)
	if v.Value() > maxU32 {
		return 0, newValueError(NotU32Value, p.system.Clk(), v, "operand s%d is not a u32 value", i)
	}
	return v.Value(), nil
}

// recordU32Limbs range-checks the limbs of lo and hi and places them in the
// helper registers followed by any extra helpers.
func (p *Process) recordU32Limbs(lo, hi uint64, extra ...field.Element) error {
	l0, l1 := utils.Limbs16(lo)
	h0, h1 := utils.Limbs16(hi)
	if err := p.rangeChecker.AddRangeChecks(l0, l1, h0, h1); err != nil {
		return newError(RangeCheckFailed, p.system.Clk(), "u32 limbs").withCause(err)
	}
	helpers := append([]field.Element{field.New(l0), field.New(l1), field.New(h0), field.New(h1)}, extra...)
	p.decoder.setUserOpHelpers(helpers...)
	return nil
}

// opU32Split replaces the top element a with [hi, lo] where a = hi*2^32 + lo.
// h6 proves the split is canonical: it is the inverse of hi - (2^32 - 1)
// and zero when hi saturates, in which case lo must be zero.
func (p *Process) opU32Split() error {
	hi, lo := utils.SplitU32(p.stack.Peek().Value())
	if err := p.recordU32Limbs(lo, hi, invOrZero(field.New(hi).Sub(field.New(maxU32)))); err != nil {
		return err
	}
	p.stack.Set(0, field.New(lo))
	p.stack.Push(field.New(hi))
	return nil
}

// opU32Add pops b and a and pushes (a + b) mod 2^32 followed by the carry
func (p *Process) opU32Add() error {
	b, err := p.u32Operand(0)
	if err != nil {
		return err
	}
	a, err := p.u32Operand(1)
	if err != nil {
		return err
	}
	carry, sum := utils.SplitU32(a + b)
	return p.writeU32Pair(carry, sum)
}

// opU32Sub pops b and a and pushes (a - b) mod 2^32 followed by the borrow
func (p *Process) opU32Sub() error {
	b, err := p.u32Operand(0)
	if err != nil {
		return err
	}
	a, err := p.u32Operand(1)
	if err != nil {
		return err
	}
	var borrow uint64
	if a < b {
		borrow = 1
	}
	diff := (a - b) & maxU32
	return p.writeU32Pair(borrow, diff)
}

// opU32Mul pops b and a and pushes the low then the high half of a*b
func (p *Process) opU32Mul() error {
	b, err := p.u32Operand(0)
	if err != nil {
		return err
	}
	a, err := p.u32Operand(1)
	if err != nil {
		return err
	}
	hi, lo := utils.SplitU32(a * b)
	return p.writeU32Pair(hi, lo)
}

// opU32Div pops b and a and pushes the quotient then the remainder of a/b.
// The limbs checked are those of a - q and b - r - 1, which bound q and r.
func (p *Process) opU32Div() error {
	b, err := p.u32Operand(0)
	if err != nil {
		return err
	}
	a, err := p.u32Operand(1)
	if err != nil {
		return err
	}
	if b == 0 {
		return newValueError(DivisionByZero, p.system.Clk(), field.Zero, "u32 division by zero")
	}
	q, r := a/b, a%b
	if err := p.recordU32Limbs(a-q, b-r-1); err != nil {
		return err
	}
	p.stack.Set(1, field.New(q))
	p.stack.Set(0, field.New(r))
	return nil
}

// opU32Assert2 checks that the top two elements are u32 values
func (p *Process) opU32Assert2() error {
	b, err := p.u32Operand(0)
	if err != nil {
		return err
	}
	a, err := p.u32Operand(1)
	if err != nil {
		return err
	}
	return p.recordU32Limbs(b, a)
}

// writeU32Pair overwrites s0 with hi and s1 with lo
func (p *Process) writeU32Pair(hi, lo uint64) error {
	if err := p.recordU32Limbs(lo, hi); err != nil {
		return err
	}
	p.stack.Set(1, field.New(lo))
	p.stack.Set(0, field.New(hi))
	return nil
}
