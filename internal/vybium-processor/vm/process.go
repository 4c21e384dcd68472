// Package vm implements the processor: the stack machine, the decoder that
// walks the code-block tree, the hasher, memory, range-check and kernel ROM
// chiplets, and the execution trace they produce together.
package vm

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/advice"
	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
	"github.com/vybium/vybium-processor/internal/vybium-processor/log"
	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
	"github.com/vybium/vybium-processor/internal/vybium-processor/utils"
)

// ErrNotHalted is returned when a trace is requested before a successful
// execution.
var ErrNotHalted = errors.New("process has not halted")

type processState int

const (
	stateUninitialized processState = iota
	stateRunning
	stateHalted
	stateFaulted
)

func (s processState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateRunning:
		return "running"
	case stateHalted:
		return "halted"
	case stateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Process executes a single program. It owns the system registers, the
// decoder, the stack and the chiplets, and is not reusable: a second call
// to Execute fails with ProcessNotReusable.
type Process struct {
	system       *System
	decoder      *Decoder
	stack        *Stack
	chiplets     *Chiplets
	rangeChecker *RangeChecker
	advice       advice.Provider
	options      *utils.ExecutionOptions

	logger      *slog.Logger
	decoderLog  *slog.Logger
	chipletsLog *slog.Logger
	adviceLog   *slog.Logger

	program *program.Program
	state   processState
	outputs core.StackOutputs
	trace   *ExecutionTrace
}

// NewProcess creates a process over the given inputs. A nil provider means
// empty advice and nil options mean the defaults.
func NewProcess(inputs core.StackInputs, provider advice.Provider, options *utils.ExecutionOptions) (*Process, error) {
	if options == nil {
		options = utils.DefaultExecutionOptions()
	}
	if err := options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid execution options: %w", err)
	}
	if provider == nil {
		mem, err := advice.NewMemProvider(advice.Inputs{})
		if err != nil {
			return nil, err
		}
		provider = mem
	}

	expected := options.ExpectedCycles
	p := &Process{
		system:       NewSystem(expected),
		decoder:      NewDecoder(expected),
		stack:        NewStack(inputs, expected),
		chiplets:     NewChiplets(program.Kernel{}),
		rangeChecker: NewRangeChecker(),
		advice:       provider,
		options:      options.Clone(),
		state:        stateUninitialized,
	}
	return p.WithLogger(nil), nil
}

// WithLogger sets the logger used for execution events. A nil logger
// means the root logger of the log package.
func (p *Process) WithLogger(l *slog.Logger) *Process {
	p.logger = log.Module(l, log.ProcessModule)
	p.decoderLog = log.Module(l, log.DecoderModule)
	p.chipletsLog = log.Module(l, log.ChipletsModule)
	p.adviceLog = log.Module(l, log.AdviceModule)
	return p
}

// Execute runs prog to completion and returns the final stack
func (p *Process) Execute(prog *program.Program) (core.StackOutputs, error) {
	if p.state != stateUninitialized {
		return core.StackOutputs{}, newError(ProcessNotReusable, p.system.Clk(), "process is %s", p.state)
	}
	if prog == nil {
		return core.StackOutputs{}, fmt.Errorf("program cannot be nil")
	}
	p.state = stateRunning
	p.program = prog
	p.chiplets = NewChiplets(prog.Kernel())

	p.logger.Debug("executing program", "hash", prog.Hash().Hex(), "kernel_procs", prog.Kernel().Len())
	if err := p.executeBlock(prog.Root(), 0, false); err != nil {
		p.state = stateFaulted
		p.logFault(err)
		return core.StackOutputs{}, err
	}

	p.decoder.halt(prog.Hash())
	p.outputs = p.stack.Outputs()
	p.state = stateHalted
	p.logger.Info("program halted", "cycles", p.system.Clk(), "stack_depth", p.stack.Depth())
	return p.outputs, nil
}

// BuildTrace assembles the execution trace of a halted process
func (p *Process) BuildTrace() (*ExecutionTrace, error) {
	if p.state != stateHalted {
		return nil, fmt.Errorf("%w: state is %s", ErrNotHalted, p.state)
	}
	if p.trace == nil {
		trace, err := buildTrace(p)
		if err != nil {
			return nil, fmt.Errorf("failed to build trace: %w", err)
		}
		p.trace = trace
		lengths := trace.Lengths()
		p.chipletsLog.Debug("built trace", "rows", lengths.Padded, "main", lengths.Main,
			"chiplets", lengths.Chiplets, "range", lengths.Range)
	}
	if p.options.TraceChecks {
		if err := p.trace.CheckBuses(); err != nil {
			return nil, err
		}
	}
	return p.trace, nil
}

// Clk returns the current clock cycle
func (p *Process) Clk() uint64 {
	return p.system.Clk()
}

// StackOutputs returns the final stack of a halted process
func (p *Process) StackOutputs() core.StackOutputs {
	return p.outputs
}

// Memory returns the memory chiplet
func (p *Process) Memory() *Memory {
	return p.chiplets.Memory
}

// Advice returns the advice provider
func (p *Process) Advice() advice.Provider {
	return p.advice
}

func (p *Process) logFault(err error) {
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		p.logger.Error("execution failed", "err", err)
		return
	}
	attrs := []any{"kind", ee.Kind.String(), "clk", ee.Clk}
	if ee.HasValue {
		attrs = append(attrs, "value", ee.Value.Value())
	}
	p.logger.Error("execution faulted", attrs...)
}

// ========== Cycle bookkeeping ==========

func (p *Process) checkBudget() error {
	if clk := p.system.Clk(); clk >= uint64(p.options.MaxCycles) {
		return newError(CycleBudgetExceeded, clk, "budget of %d cycles exhausted", p.options.MaxCycles)
	}
	return nil
}

func (p *Process) advanceClock() {
	p.system.AdvanceClock()
	p.stack.AdvanceClock(p.system.Clk())
}

// ========== Block execution ==========

func (p *Process) executeBlock(block *program.CodeBlock, parentAddr uint64, loopBody bool) error {
	resolved, ok := p.program.Resolve(block)
	if !ok {
		return newError(CodeBlockNotFound, p.system.Clk(), "no block with digest %s", block.Digest().Hex())
	}
	block = resolved

	var err error
	switch block.Kind() {
	case program.SpanBlock:
		err = p.executeSpan(block, parentAddr, loopBody)
	case program.JoinBlock:
		err = p.executeJoin(block, parentAddr, loopBody)
	case program.SplitBlock:
		err = p.executeSplit(block, parentAddr, loopBody)
	case program.LoopBlock:
		err = p.executeLoop(block, parentAddr, loopBody)
	case program.CallBlock, program.SysCallBlock:
		err = p.executeCall(block, parentAddr, loopBody)
	case program.DynBlock:
		err = p.executeDyn(block, parentAddr, loopBody)
	default:
		err = fmt.Errorf("cannot execute %s block", block.Kind())
	}
	return err
}

// hashControlBlock runs the hasher over a control block's inputs, sends
// the decoder's matching request and checks the digest.
func (p *Process) hashControlBlock(block *program.CodeBlock, first, second core.Word) (uint64, error) {
	domain := block.Kind().Opcode().Domain()
	addr, digest := p.chiplets.Hasher.HashControlBlock(first, second, domain)

	input := core.NewMergeState(first, second, domain)
	p.chiplets.Bus().Request(BusMessage{Label: LabelLinearHash, Addr: addr, Values: stateValues(&input)})
	return addr, p.verifyDigest(block, digest)
}

func (p *Process) verifyDigest(block *program.CodeBlock, computed core.Digest) error {
	if computed.Equal(block.Digest()) {
		return nil
	}
	return newError(HashMismatch, p.system.Clk(), "%s block recorded digest %s, hasher computed %s",
		block.Kind(), block.Digest().Hex(), computed.Hex())
}

func (p *Process) enterBlock(b blockInfo) {
	p.decoder.pushBlock(b)
	p.decoderLog.Debug("entered block", "kind", b.kind.String(), "addr", b.addr, "clk", p.system.Clk())
}

func (p *Process) executeJoin(block *program.CodeBlock, parentAddr uint64, loopBody bool) error {
	if err := p.checkBudget(); err != nil {
		return err
	}
	first, second := block.HasherInputs()
	addr, err := p.hashControlBlock(block, first, second)
	if err != nil {
		return err
	}
	p.decoder.startControl(program.OpJoin, addr, first, second)
	p.enterBlock(controlBlockInfo(block, addr, parentAddr, loopBody))
	p.advanceClock()

	if err := p.executeBlock(block.First(), addr, false); err != nil {
		return err
	}
	if err := p.executeBlock(block.Second(), addr, false); err != nil {
		return err
	}
	return p.endBlock()
}

func (p *Process) executeSplit(block *program.CodeBlock, parentAddr uint64, loopBody bool) error {
	if err := p.checkBudget(); err != nil {
		return err
	}
	cond := p.stack.Peek()
	if !isBinary(cond) {
		return newValueError(InvalidBranchCondition, p.system.Clk(), cond, "split condition must be 0 or 1")
	}
	first, second := block.HasherInputs()
	addr, err := p.hashControlBlock(block, first, second)
	if err != nil {
		return err
	}
	p.decoder.startControl(program.OpSplit, addr, first, second)
	p.enterBlock(controlBlockInfo(block, addr, parentAddr, loopBody))
	p.stack.Drop()
	p.advanceClock()

	branch := block.OnFalse()
	if cond.IsOne() {
		branch = block.OnTrue()
	}
	if err := p.executeBlock(branch, addr, false); err != nil {
		return err
	}
	return p.endBlock()
}

func (p *Process) executeLoop(block *program.CodeBlock, parentAddr uint64, loopBody bool) error {
	if err := p.checkBudget(); err != nil {
		return err
	}
	cond := p.stack.Peek()
	if !isBinary(cond) {
		return newValueError(InvalidBranchCondition, p.system.Clk(), cond, "loop condition must be 0 or 1")
	}
	first, second := block.HasherInputs()
	addr, err := p.hashControlBlock(block, first, second)
	if err != nil {
		return err
	}
	p.decoder.startControl(program.OpLoop, addr, first, second)
	info := controlBlockInfo(block, addr, parentAddr, loopBody)
	info.loopEntered = cond.IsOne()
	p.enterBlock(info)
	p.stack.Drop()
	p.advanceClock()

	if info.loopEntered {
		for {
			if err := p.executeBlock(block.Body(), addr, true); err != nil {
				return err
			}
			cond = p.stack.Peek()
			if !isBinary(cond) {
				return newValueError(InvalidBranchCondition, p.system.Clk(), cond, "loop condition must be 0 or 1")
			}
			if cond.IsZero() {
				break
			}
			if err := p.checkBudget(); err != nil {
				return err
			}
			p.decoder.repeat(addr, first)
			p.stack.Drop()
			p.advanceClock()
		}
	}
	return p.endBlock()
}

func (p *Process) executeCall(block *program.CodeBlock, parentAddr uint64, loopBody bool) error {
	if err := p.checkBudget(); err != nil {
		return err
	}
	callee := block.Callee()
	isSyscall := block.Kind() == program.SysCallBlock
	if isSyscall && !p.program.Kernel().Contains(callee.Digest()) {
		return newError(SyscallTargetNotInKernel, p.system.Clk(), "procedure %s", callee.Digest().Hex())
	}

	first, second := block.HasherInputs()
	addr, err := p.hashControlBlock(block, first, second)
	if err != nil {
		return err
	}
	op := program.OpCall
	if isSyscall {
		op = program.OpSysCall
		if err := p.chiplets.KernelROM.AccessProc(callee.Digest()); err != nil {
			return newError(SyscallTargetNotInKernel, p.system.Clk(), "kernel ROM").withCause(err)
		}
		p.chiplets.Bus().Request(kernelMessage(callee.Digest()))
	}
	p.decoder.startControl(op, addr, first, second)

	info := controlBlockInfo(block, addr, parentAddr, loopBody)
	info.call = p.saveContext()
	if isSyscall {
		p.system.startSyscall()
	} else {
		p.system.startCall(p.system.Clk()+1, callee.Digest())
	}
	p.enterBlock(info)
	p.advanceClock()

	if err := p.executeBlock(callee, addr, false); err != nil {
		return err
	}
	return p.endBlock()
}

func (p *Process) executeDyn(block *program.CodeBlock, parentAddr uint64, loopBody bool) error {
	if err := p.checkBudget(); err != nil {
		return err
	}
	target := p.stack.GetWord(0)
	callee, ok := p.program.Table().Get(target)
	if !ok {
		return newError(CodeBlockNotFound, p.system.Clk(), "dyn target %s", target.Hex())
	}

	first, second := block.HasherInputs()
	addr, err := p.hashControlBlock(block, first, second)
	if err != nil {
		return err
	}
	p.decoder.startControl(program.OpDyn, addr, target, core.ZeroWord())
	p.stack.DropW()

	info := controlBlockInfo(block, addr, parentAddr, loopBody)
	info.call = p.saveContext()
	p.system.startCall(p.system.Clk()+1, target)
	p.enterBlock(info)
	p.advanceClock()

	if err := p.executeBlock(callee, addr, false); err != nil {
		return err
	}
	return p.endBlock()
}

func (p *Process) saveContext() *callContext {
	c := &callContext{
		ctx:       p.system.Ctx(),
		fmp:       p.system.Fmp(),
		inSyscall: p.system.InSyscall(),
		fnHash:    p.system.FnHash(),
	}
	c.depth, c.overflowAddr = p.stack.StartContext()
	return c
}

func (p *Process) executeSpan(block *program.CodeBlock, parentAddr uint64, loopBody bool) error {
	if err := p.checkBudget(); err != nil {
		return err
	}
	batches := block.Batches()
	rates := make([][core.RateWidth]field.Element, len(batches))
	firstGroup := make([]int, len(batches))
	for i, b := range batches {
		rates[i] = b.Groups
		if i > 0 {
			firstGroup[i] = firstGroup[i-1] + batches[i-1].NumGroups
		}
	}
	totalGroups := block.NumGroups()

	addr, digest := p.chiplets.Hasher.HashSpan(block.NumOps(), rates)
	input := core.NewAbsorbState(field.New(uint64(block.NumOps())), rates[0])
	p.chiplets.Bus().Request(BusMessage{Label: LabelLinearHash, Addr: addr, Values: stateValues(&input)})
	if err := p.verifyDigest(block, digest); err != nil {
		return err
	}

	p.decoder.startSpan(addr, rates[0], totalGroups)
	p.enterBlock(blockInfo{
		kind:       program.SpanBlock,
		addr:       addr,
		parentAddr: parentAddr,
		digest:     block.Digest(),
		returnAddr: addr + uint64(core.CycleLength*len(batches)) - 1,
		isLoopBody: loopBody,
	})
	p.advanceClock()

	decorators := block.Decorators()
	next, batch := 0, 0
	for i := 0; i < block.NumOps(); i++ {
		placement := block.Placement(i)
		for batch < placement.Batch {
			if err := p.checkBudget(); err != nil {
				return err
			}
			batch++
			batchAddr := addr + uint64(core.CycleLength*batch)
			p.decoder.respan(batchAddr, rates[batch], totalGroups-firstGroup[batch])
			p.chiplets.Bus().Request(BusMessage{Label: LabelAbsorb, Addr: batchAddr - 1, Values: rateValues(rates[batch])})
			p.advanceClock()
		}
		batchAddr := addr + uint64(core.CycleLength*batch)

		for ; next < len(decorators) && decorators[next].OpIndex == i; next++ {
			if err := p.executeDecorator(decorators[next].Kind); err != nil {
				return err
			}
		}

		if err := p.checkBudget(); err != nil {
			return err
		}
		op := block.Op(i)
		p.decoder.userOp(op, batchAddr, parentAddr, placement, totalGroups-placement.Group)
		if err := p.executeOp(op); err != nil {
			return err
		}
		p.advanceClock()
	}
	return p.endBlock()
}

func (p *Process) endBlock() error {
	if err := p.checkBudget(); err != nil {
		return err
	}
	b := p.decoder.popBlock()
	p.decoder.end(b)
	p.chiplets.Bus().Request(BusMessage{Label: LabelReturnHash, Addr: b.returnAddr, Values: b.digest.Elements()})

	if b.kind == program.LoopBlock && b.loopEntered {
		p.stack.Drop()
	}
	if b.call != nil {
		if depth := p.stack.Depth(); depth != core.MinStackDepth {
			return newValueError(InvalidStackDepthOnReturn, p.system.Clk(), field.New(uint64(depth)),
				"%s returned with stack depth %d", b.kind, depth)
		}
		if !p.stack.RestoreContext(b.call.depth, b.call.overflowAddr) {
			return newError(StackUnderflow, p.system.Clk(), "caller stack of %s block could not be restored", b.kind)
		}
		p.system.restoreContext(*b.call)
	}
	p.decoderLog.Debug("exited block", "kind", b.kind.String(), "addr", b.addr, "parent", b.parentAddr, "clk", p.system.Clk())
	p.advanceClock()
	return nil
}

func controlBlockInfo(block *program.CodeBlock, addr, parentAddr uint64, loopBody bool) blockInfo {
	return blockInfo{
		kind:       block.Kind(),
		addr:       addr,
		parentAddr: parentAddr,
		digest:     block.Digest(),
		returnAddr: addr + core.CycleLength - 1,
		isLoopBody: loopBody,
	}
}
