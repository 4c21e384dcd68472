package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

const (
	// FMPMin is the free memory pointer of a fresh user context
	FMPMin = uint64(1) << 30
	// SyscallFMPMin is the free memory pointer inside a syscall
	SyscallFMPMin = uint64(1) << 31
	// FMPMax bounds the free memory pointer from above (exclusive)
	FMPMax = 3 * (uint64(1) << 30)
)

// System holds the clock, the free memory pointer, the memory context and
// the digest of the procedure being executed. One row is recorded per clock
// value, so row k holds the registers as they were at clk k.
type System struct {
	clk       uint64
	ctx       uint64
	fmp       field.Element
	inSyscall bool
	fnHash    core.Word

	clkCol       []field.Element
	fmpCol       []field.Element
	ctxCol       []field.Element
	inSyscallCol []field.Element
	fnHashCols   [core.WordSize][]field.Element
}

// NewSystem creates the system registers in the root context
func NewSystem(expectedCycles int) *System {
	s := &System{
		fmp:          field.New(FMPMin),
		fnHash:       core.ZeroWord(),
		clkCol:       make([]field.Element, 0, expectedCycles),
		fmpCol:       make([]field.Element, 0, expectedCycles),
		ctxCol:       make([]field.Element, 0, expectedCycles),
		inSyscallCol: make([]field.Element, 0, expectedCycles),
	}
	for i := range s.fnHashCols {
		s.fnHashCols[i] = make([]field.Element, 0, expectedCycles)
	}
	s.recordRow()
	return s
}

// Clk returns the current clock cycle
func (s *System) Clk() uint64 {
	return s.clk
}

// Ctx returns the current memory context
func (s *System) Ctx() uint64 {
	return s.ctx
}

// Fmp returns the free memory pointer
func (s *System) Fmp() field.Element {
	return s.fmp
}

// InSyscall reports whether a syscall is executing
func (s *System) InSyscall() bool {
	return s.inSyscall
}

// FnHash returns the digest of the procedure owning the current context
func (s *System) FnHash() core.Word {
	return s.fnHash
}

// AdvanceClock moves to the next cycle and records its row
func (s *System) AdvanceClock() {
	s.clk++
	s.recordRow()
}

func (s *System) setFmp(fmp field.Element) {
	s.fmp = fmp
}

func (s *System) startCall(ctx uint64, fnHash core.Word) {
	s.ctx = ctx
	s.fmp = field.New(FMPMin)
	s.inSyscall = false
	s.fnHash = fnHash
}

func (s *System) startSyscall() {
	s.ctx = 0
	s.fmp = field.New(SyscallFMPMin)
	s.inSyscall = true
}

func (s *System) restoreContext(c callContext) {
	s.ctx = c.ctx
	s.fmp = c.fmp
	s.inSyscall = c.inSyscall
	s.fnHash = c.fnHash
}

func (s *System) recordRow() {
	s.clkCol = append(s.clkCol, field.New(s.clk))
	s.fmpCol = append(s.fmpCol, s.fmp)
	s.ctxCol = append(s.ctxCol, field.New(s.ctx))
	s.inSyscallCol = append(s.inSyscallCol, boolElement(s.inSyscall))
	for i := range s.fnHashCols {
		s.fnHashCols[i] = append(s.fnHashCols[i], s.fnHash[i])
	}
}

// TraceLen returns the number of recorded rows
func (s *System) TraceLen() int {
	return len(s.clkCol)
}

// fillTrace copies the system columns into dst, repeating the last row
// with an increasing clock until dst is full.
func (s *System) fillTrace(dst [][]field.Element) {
	n := len(s.clkCol)
	cols := [][]field.Element{s.clkCol, s.fmpCol, s.ctxCol, s.inSyscallCol,
		s.fnHashCols[0], s.fnHashCols[1], s.fnHashCols[2], s.fnHashCols[3]}
	for c, col := range cols {
		copy(dst[SysTraceOffset+c], col)
		for r := n; r < len(dst[SysTraceOffset+c]); r++ {
			dst[SysTraceOffset+c][r] = col[n-1]
		}
	}
	clk := dst[ClkColIdx]
	for r := n; r < len(clk); r++ {
		clk[r] = field.New(uint64(r))
	}
}

func boolElement(b bool) field.Element {
	if b {
		return field.One
	}
	return field.Zero
}
