package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// OverflowRow is an entry of the overflow table. Rows form a linked list
// through Prev; the head's Addr is the overflow address b1.
type OverflowRow struct {
	Addr  uint64
	Clk   uint64
	Value field.Element
	Prev  uint64
}

// Stack is the operand stack: sixteen visible registers backed by an
// overflow table. Its depth never drops below sixteen; popping at that
// depth shifts a zero into s15.
type Stack struct {
	top      [StackTopSize]field.Element
	overflow []OverflowRow // active entries, the last one sits below s15
	hidden   [][]OverflowRow
	history  []OverflowRow
	clk      uint64

	cols [StackTraceWidth][]field.Element
}

// NewStack creates a stack holding the given inputs
func NewStack(inputs core.StackInputs, expectedCycles int) *Stack {
	s := &Stack{top: inputs.InitialStack()}
	for i := range s.cols {
		s.cols[i] = make([]field.Element, 0, expectedCycles)
	}
	s.recordRow()
	return s
}

// Depth returns the number of elements on the stack
func (s *Stack) Depth() int {
	return StackTopSize + len(s.overflow)
}

// OverflowAddr returns the address of the overflow table head, 0 if empty
func (s *Stack) OverflowAddr() uint64 {
	if len(s.overflow) == 0 {
		return 0
	}
	return s.overflow[len(s.overflow)-1].Addr
}

// Get returns s_i
func (s *Stack) Get(i int) field.Element {
	return s.top[i]
}

// Set overwrites s_i
func (s *Stack) Set(i int, v field.Element) {
	s.top[i] = v
}

// Peek returns the top element
func (s *Stack) Peek() field.Element {
	return s.top[0]
}

// GetWord returns the word at position n; lane 0 is the deepest element
func (s *Stack) GetWord(n int) core.Word {
	base := 4 * n
	return core.Word{s.top[base+3], s.top[base+2], s.top[base+1], s.top[base]}
}

// SetWord overwrites the word at position n
func (s *Stack) SetWord(n int, w core.Word) {
	base := 4 * n
	s.top[base], s.top[base+1], s.top[base+2], s.top[base+3] = w[3], w[2], w[1], w[0]
}

// Push places v on top, shifting every element one position deeper
func (s *Stack) Push(v field.Element) {
	s.insertAt(0, v)
}

// Pop removes and returns the top element
func (s *Stack) Pop() field.Element {
	v := s.top[0]
	s.removeAt(0)
	return v
}

// Drop removes the top element
func (s *Stack) Drop() {
	s.removeAt(0)
}

// DropW removes the top word
func (s *Stack) DropW() {
	for i := 0; i < core.WordSize; i++ {
		s.removeAt(0)
	}
}

// Dup pushes a copy of s_n
func (s *Stack) Dup(n int) {
	s.Push(s.top[n])
}

// DupW pushes a copy of word n
func (s *Stack) DupW(n int) {
	w := s.GetWord(n)
	for i := 0; i < core.WordSize; i++ {
		s.Push(w[i])
	}
}

// Swap exchanges s_i and s_j
func (s *Stack) Swap(i, j int) {
	s.top[i], s.top[j] = s.top[j], s.top[i]
}

// SwapW exchanges word 0 with word n
func (s *Stack) SwapW(n int) {
	for i := 0; i < core.WordSize; i++ {
		s.Swap(i, 4*n+i)
	}
}

// MoveUp moves s_n to the top
func (s *Stack) MoveUp(n int) {
	v := s.top[n]
	copy(s.top[1:n+1], s.top[:n])
	s.top[0] = v
}

// MoveDown moves the top element to position n
func (s *Stack) MoveDown(n int) {
	v := s.top[0]
	copy(s.top[:n], s.top[1:n+1])
	s.top[n] = v
}

// insertAt shifts s_i..s15 one position deeper; s15 spills into the
// overflow table.
func (s *Stack) insertAt(i int, v field.Element) {
	row := OverflowRow{
		Addr:  uint64(len(s.history)) + 1,
		Clk:   s.clk,
		Value: s.top[StackTopSize-1],
		Prev:  s.OverflowAddr(),
	}
	s.overflow = append(s.overflow, row)
	s.history = append(s.history, row)

	copy(s.top[i+1:], s.top[i:StackTopSize-1])
	s.top[i] = v
}

// removeAt drops s_i and shifts the deeper elements up; s15 is refilled
// from the overflow table, or with zero when it is empty.
func (s *Stack) removeAt(i int) {
	copy(s.top[i:], s.top[i+1:])
	if n := len(s.overflow); n > 0 {
		s.top[StackTopSize-1] = s.overflow[n-1].Value
		s.overflow = s.overflow[:n-1]
	} else {
		s.top[StackTopSize-1] = field.Zero
	}
}

// StartContext hides the overflow table from a called procedure and
// returns the depth and overflow address to restore on return.
func (s *Stack) StartContext() (int, uint64) {
	depth, addr := s.Depth(), s.OverflowAddr()
	s.hidden = append(s.hidden, s.overflow)
	s.overflow = nil
	return depth, addr
}

// RestoreContext brings back the overflow table hidden by StartContext.
// The called procedure must have left the stack at depth sixteen.
func (s *Stack) RestoreContext(depth int, addr uint64) bool {
	if len(s.overflow) != 0 || len(s.hidden) == 0 {
		return false
	}
	restored := s.hidden[len(s.hidden)-1]
	s.hidden = s.hidden[:len(s.hidden)-1]
	s.overflow = restored
	return s.Depth() == depth && s.OverflowAddr() == addr
}

// AdvanceClock records the state reached at clk
func (s *Stack) AdvanceClock(clk uint64) {
	s.clk = clk
	s.recordRow()
}

func (s *Stack) recordRow() {
	for i, v := range s.top {
		s.cols[i] = append(s.cols[i], v)
	}
	depth := s.Depth()
	s.cols[StackTopSize] = append(s.cols[StackTopSize], field.New(uint64(depth)))
	s.cols[StackTopSize+1] = append(s.cols[StackTopSize+1], field.New(s.OverflowAddr()))
	h0 := field.Zero
	if depth > StackTopSize {
		h0 = field.New(uint64(depth - StackTopSize)).Inverse()
	}
	s.cols[StackTopSize+2] = append(s.cols[StackTopSize+2], h0)
}

// OverflowHistory returns every overflow row ever created, in order
func (s *Stack) OverflowHistory() []OverflowRow {
	return append([]OverflowRow(nil), s.history...)
}

// Outputs returns the visible registers followed by the overflow values,
// top first.
func (s *Stack) Outputs() core.StackOutputs {
	values := make([]field.Element, 0, s.Depth())
	values = append(values, s.top[:]...)
	addrs := make([]uint64, 0, len(s.overflow))
	for i := len(s.overflow) - 1; i >= 0; i-- {
		values = append(values, s.overflow[i].Value)
		addrs = append(addrs, s.overflow[i].Addr)
	}
	return core.NewStackOutputs(values, addrs)
}

// TraceLen returns the number of recorded rows
func (s *Stack) TraceLen() int {
	return len(s.cols[0])
}

func (s *Stack) fillTrace(dst [][]field.Element) {
	n := len(s.cols[0])
	for c, col := range s.cols {
		out := dst[StackTraceOffset+c]
		copy(out, col)
		for r := n; r < len(out); r++ {
			out[r] = col[n-1]
		}
	}
}
