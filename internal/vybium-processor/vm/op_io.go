package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// ========== Memory and advice operations ==========

// memAddr reads a memory address from s_i
func (p *Process) memAddr(i int) (uint64, error) {
	v := p.stack.Get(i)
	if v.Value() > MaxMemoryAddr {
		return 0, newValueError(MemoryAddressOutOfRange, p.system.Clk(), v, "address exceeds %d", MaxMemoryAddr)
	}
	return v.Value(), nil
}

// opMLoad replaces the address on top with lane 0 of the word stored
// there. The other lanes go to the helper registers.
func (p *Process) opMLoad() error {
	addr, err := p.memAddr(0)
	if err != nil {
		return err
	}
	word := p.chiplets.Memory.Read(p.system.Ctx(), addr, p.system.Clk())
	p.requestMemory(true, addr, word)
	p.decoder.setUserOpHelpers(word[1], word[2], word[3])
	p.stack.Set(0, word[0])
	return nil
}

// opMLoadW pops the address and overwrites the next word with memory
func (p *Process) opMLoadW() error {
	addr, err := p.memAddr(0)
	if err != nil {
		return err
	}
	word := p.chiplets.Memory.Read(p.system.Ctx(), addr, p.system.Clk())
	p.requestMemory(true, addr, word)
	p.stack.Drop()
	p.stack.SetWord(0, word)
	return nil
}

// opMStore pops the address and writes the element below it to lane 0,
// keeping lanes 1..3 of the stored word.
func (p *Process) opMStore() error {
	addr, err := p.memAddr(0)
	if err != nil {
		return err
	}
	ctx := p.system.Ctx()
	word, _ := p.chiplets.Memory.GetWord(ctx, addr)
	word[0] = p.stack.Get(1)
	p.chiplets.Memory.Write(ctx, addr, p.system.Clk(), word)
	p.requestMemory(false, addr, word)
	p.decoder.setUserOpHelpers(word[1], word[2], word[3])
	p.stack.Drop()
	return nil
}

// opMStoreW pops the address and writes the next word, which stays on the
// stack.
func (p *Process) opMStoreW() error {
	addr, err := p.memAddr(0)
	if err != nil {
		return err
	}
	p.stack.Drop()
	word := p.stack.GetWord(0)
	p.chiplets.Memory.Write(p.system.Ctx(), addr, p.system.Clk(), word)
	p.requestMemory(false, addr, word)
	return nil
}

// opMStream loads the words at s12 and s12+1 into words 1 and 0 and
// advances s12 by two.
func (p *Process) opMStream() error {
	addr, err := p.memAddr(12)
	if err != nil {
		return err
	}
	if addr+1 > MaxMemoryAddr {
		return newValueError(MemoryAddressOutOfRange, p.system.Clk(), field.New(addr+1), "address exceeds %d", MaxMemoryAddr)
	}
	ctx, clk := p.system.Ctx(), p.system.Clk()
	first := p.chiplets.Memory.Read(ctx, addr, clk)
	second := p.chiplets.Memory.Read(ctx, addr+1, clk)
	p.requestMemory(true, addr, first)
	p.requestMemory(true, addr+1, second)

	p.stack.SetWord(1, first)
	p.stack.SetWord(0, second)
	p.stack.Set(12, field.New(addr+2))
	return nil
}

func (p *Process) requestMemory(isRead bool, addr uint64, word core.Word) {
	p.chiplets.Bus().Request(memoryMessage(isRead, p.system.Ctx(), addr, p.system.Clk(), word))
}

func (p *Process) opAdvPop() error {
	v, err := p.advice.PopStack()
	if err != nil {
		return newError(AdviceProviderMiss, p.system.Clk(), "adv_pop").withCause(err)
	}
	p.stack.Push(v)
	return nil
}

// opAdvPopW overwrites the top word with four advice elements
func (p *Process) opAdvPopW() error {
	w, err := p.advice.PopStackWord()
	if err != nil {
		return newError(AdviceProviderMiss, p.system.Clk(), "adv_popw").withCause(err)
	}
	p.stack.SetWord(0, w)
	return nil
}
