package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// ========== Field operations ==========

func (p *Process) opAdd() error {
	b := p.stack.Pop()
	p.stack.Set(0, p.stack.Peek().Add(b))
	return nil
}

func (p *Process) opNeg() error {
	p.stack.Set(0, p.stack.Peek().Neg())
	return nil
}

func (p *Process) opMul() error {
	b := p.stack.Pop()
	p.stack.Set(0, p.stack.Peek().Mul(b))
	return nil
}

func (p *Process) opInv() error {
	a := p.stack.Peek()
	if a.IsZero() {
		return newValueError(DivisionByZero, p.system.Clk(), a, "cannot invert zero")
	}
	p.stack.Set(0, a.Inverse())
	return nil
}

func (p *Process) opIncr() error {
	p.stack.Set(0, p.stack.Peek().Add(field.One))
	return nil
}

func (p *Process) binaryOperands() (field.Element, field.Element, error) {
	a, b := p.stack.Get(0), p.stack.Get(1)
	if !isBinary(a) {
		return a, b, newValueError(NotBinaryValue, p.system.Clk(), a, "operand s0 must be 0 or 1")
	}
	if !isBinary(b) {
		return a, b, newValueError(NotBinaryValue, p.system.Clk(), b, "operand s1 must be 0 or 1")
	}
	return a, b, nil
}

func (p *Process) opAnd() error {
	a, b, err := p.binaryOperands()
	if err != nil {
		return err
	}
	p.stack.Drop()
	p.stack.Set(0, a.Mul(b))
	return nil
}

func (p *Process) opOr() error {
	a, b, err := p.binaryOperands()
	if err != nil {
		return err
	}
	p.stack.Drop()
	p.stack.Set(0, boolElement(a.IsOne() || b.IsOne()))
	return nil
}

func (p *Process) opNot() error {
	a := p.stack.Peek()
	if !isBinary(a) {
		return newValueError(NotBinaryValue, p.system.Clk(), a, "operand s0 must be 0 or 1")
	}
	p.stack.Set(0, field.One.Sub(a))
	return nil
}

// opEq replaces the top two elements with 1 if they are equal. The helper
// register holds the inverse of their difference.
func (p *Process) opEq() error {
	a := p.stack.Pop()
	b := p.stack.Peek()
	p.decoder.setUserOpHelpers(invOrZero(a.Sub(b)))
	p.stack.Set(0, boolElement(a.Equal(b)))
	return nil
}

func (p *Process) opEqz() error {
	a := p.stack.Peek()
	p.decoder.setUserOpHelpers(invOrZero(a))
	p.stack.Set(0, boolElement(a.IsZero()))
	return nil
}
