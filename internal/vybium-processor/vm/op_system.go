package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// ========== System operations ==========

func (p *Process) opAssert() error {
	if v := p.stack.Peek(); !v.IsOne() {
		return newValueError(AssertionFailed, p.system.Clk(), v, "assert expects 1 on top of the stack")
	}
	p.stack.Drop()
	return nil
}

func (p *Process) opFmpAdd() error {
	p.stack.Set(0, p.stack.Peek().Add(p.system.Fmp()))
	return nil
}

// opFmpUpdate moves the free memory pointer by the popped offset. The
// result has to stay inside the window of the current context.
func (p *Process) opFmpUpdate() error {
	offset := p.stack.Peek()
	fmp := p.system.Fmp().Add(offset)

	low := FMPMin
	if p.system.InSyscall() {
		low = SyscallFMPMin
	}
	if v := fmp.Value(); v < low || v >= FMPMax {
		return newValueError(InvalidFmpValue, p.system.Clk(), fmp, "fmp must stay in [%d, %d)", low, FMPMax)
	}
	p.stack.Drop()
	p.system.setFmp(fmp)
	return nil
}

func (p *Process) opSDepth() error {
	p.stack.Push(field.New(uint64(p.stack.Depth())))
	return nil
}

// opCaller overwrites the top word with the digest of the procedure that
// issued the current syscall.
func (p *Process) opCaller() error {
	if !p.system.InSyscall() {
		return newError(CallerNotInSyscall, p.system.Clk(), "caller is only available inside a syscall")
	}
	p.stack.SetWord(0, p.system.FnHash())
	return nil
}

func (p *Process) opClk() error {
	p.stack.Push(field.New(p.system.Clk()))
	return nil
}
