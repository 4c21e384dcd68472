package vm

import (
	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
)

// ========== Stack operations ==========

func (p *Process) opDup(op program.Operation) error {
	n, err := p.stackParam(op, 0, StackTopSize-1)
	if err != nil {
		return err
	}
	p.stack.Dup(n)
	return nil
}

func (p *Process) opDupW(op program.Operation) error {
	n, err := p.stackParam(op, 0, 3)
	if err != nil {
		return err
	}
	p.stack.DupW(n)
	return nil
}

func (p *Process) opSwapW(op program.Operation) error {
	n, err := p.stackParam(op, 0, 3)
	if err != nil {
		return err
	}
	p.stack.SwapW(n)
	return nil
}

// opSwapDW exchanges words 0 and 1 with words 2 and 3
func (p *Process) opSwapDW() {
	for i := 0; i < 8; i++ {
		p.stack.Swap(i, i+8)
	}
}

func (p *Process) opMovUp(op program.Operation) error {
	n, err := p.stackParam(op, 2, StackTopSize-1)
	if err != nil {
		return err
	}
	p.stack.MoveUp(n)
	return nil
}

func (p *Process) opMovDn(op program.Operation) error {
	n, err := p.stackParam(op, 2, StackTopSize-1)
	if err != nil {
		return err
	}
	p.stack.MoveDown(n)
	return nil
}

// opCSwap pops c and swaps the next two elements when c is 1
func (p *Process) opCSwap() error {
	c := p.stack.Peek()
	if !isBinary(c) {
		return newValueError(NotBinaryValue, p.system.Clk(), c, "cswap condition must be 0 or 1")
	}
	p.stack.Drop()
	if c.IsOne() {
		p.stack.Swap(0, 1)
	}
	return nil
}

// opCSwapW pops c and swaps the next two words when c is 1
func (p *Process) opCSwapW() error {
	c := p.stack.Peek()
	if !isBinary(c) {
		return newValueError(NotBinaryValue, p.system.Clk(), c, "cswapw condition must be 0 or 1")
	}
	p.stack.Drop()
	if c.IsOne() {
		p.stack.SwapW(1)
	}
	return nil
}
