package vm

import (
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	godsutils "github.com/emirpasic/gods/utils"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// MaxMemoryAddr is the largest addressable word
const MaxMemoryAddr = uint64(1)<<32 - 1

type memoryAccess struct {
	clk    uint64
	isRead bool
	word   core.Word
}

type addrTrace struct {
	current  core.Word
	accesses []memoryAccess
}

// Memory is the memory chiplet: a word-addressed store per context that
// remembers every access. Contexts and addresses are kept in ordered maps
// so the trace comes out sorted by (ctx, addr, clk) without a final sort.
type Memory struct {
	contexts    *treemap.Map // ctx -> *treemap.Map of addr -> *addrTrace
	numAccesses int
}

// NewMemory creates an empty memory
func NewMemory() *Memory {
	return &Memory{contexts: treemap.NewWith(godsutils.UInt64Comparator)}
}

func (m *Memory) slot(ctx, addr uint64) *addrTrace {
	v, ok := m.contexts.Get(ctx)
	if !ok {
		v = treemap.NewWith(godsutils.UInt64Comparator)
		m.contexts.Put(ctx, v)
	}
	addrs := v.(*treemap.Map)
	t, ok := addrs.Get(addr)
	if !ok {
		t = &addrTrace{current: core.ZeroWord()}
		addrs.Put(addr, t)
	}
	return t.(*addrTrace)
}

// Read returns the word at addr in ctx. Untouched memory reads as zero.
func (m *Memory) Read(ctx, addr, clk uint64) core.Word {
	t := m.slot(ctx, addr)
	t.accesses = append(t.accesses, memoryAccess{clk: clk, isRead: true, word: t.current})
	m.numAccesses++
	return t.current
}

// Write stores a word at addr in ctx
func (m *Memory) Write(ctx, addr, clk uint64, word core.Word) {
	t := m.slot(ctx, addr)
	t.current = word
	t.accesses = append(t.accesses, memoryAccess{clk: clk, isRead: false, word: word})
	m.numAccesses++
}

// GetWord returns the current word at addr in ctx without recording an
// access.
func (m *Memory) GetWord(ctx, addr uint64) (core.Word, bool) {
	v, ok := m.contexts.Get(ctx)
	if !ok {
		return core.ZeroWord(), false
	}
	t, ok := v.(*treemap.Map).Get(addr)
	if !ok {
		return core.ZeroWord(), false
	}
	return t.(*addrTrace).current, true
}

// TraceLen returns the number of recorded accesses
func (m *Memory) TraceLen() int {
	return m.numAccesses
}

type memoryRow struct {
	ctx, addr uint64
	access    memoryAccess
}

// rows lists every access ordered by context, address and clock
func (m *Memory) rows() []memoryRow {
	out := make([]memoryRow, 0, m.numAccesses)
	ctxIt := m.contexts.Iterator()
	for ctxIt.Next() {
		ctx := ctxIt.Key().(uint64)
		addrIt := ctxIt.Value().(*treemap.Map).Iterator()
		for addrIt.Next() {
			addr := addrIt.Key().(uint64)
			for _, a := range addrIt.Value().(*addrTrace).accesses {
				out = append(out, memoryRow{ctx: ctx, addr: addr, access: a})
			}
		}
	}
	return out
}

// memoryDelta returns the gap between row i and the row before it: the context
// change, else the address change, else the clock change minus one.
func memoryDelta(rows []memoryRow, i int) (uint64, bool) {
	if i == 0 {
		return 0, false
	}
	r, prev := rows[i], rows[i-1]
	switch {
	case r.ctx != prev.ctx:
		return r.ctx - prev.ctx, true
	case r.addr != prev.addr:
		return r.addr - prev.addr, true
	default:
		return r.access.clk - prev.access.clk - 1, false
	}
}

// addRangeChecks sends the 16-bit limbs of every delta to the range
// checker. It runs before the trace is sized, since the lookups change the
// length of the range table.
func (m *Memory) addRangeChecks(rc *RangeChecker) error {
	rows := m.rows()
	for i, r := range rows {
		delta, _ := memoryDelta(rows, i)
		if err := rc.AddRangeChecks(delta&0xffff, delta>>16); err != nil {
			return fmt.Errorf("memory delta %d at ctx %d addr %d: %w", delta, r.ctx, r.addr, err)
		}
	}
	return nil
}

// fillTrace writes the memory rows starting at start. Each row answers one
// memory request on the bus.
func (m *Memory) fillTrace(dst [][]field.Element, start int, bus *ChipletsBus) {
	rows := m.rows()
	for i, r := range rows {
		delta, changed := memoryDelta(rows, i)
		deltaInv := field.Zero
		if changed {
			deltaInv = field.New(delta).Inverse()
		}

		row := start + i
		col := func(j int) []field.Element { return dst[ChipletsTraceOffset+j] }
		col(0)[row] = field.One
		col(1)[row] = field.Zero
		col(MemoryIsReadIdx)[row] = boolElement(r.access.isRead)
		col(MemoryCtxIdx)[row] = field.New(r.ctx)
		col(MemoryAddrIdx)[row] = field.New(r.addr)
		col(MemoryClkIdx)[row] = field.New(r.access.clk)
		for j, v := range r.access.word {
			col(MemoryValueIdx + j)[row] = v
		}
		col(MemoryD0Idx)[row] = field.New(delta & 0xffff)
		col(MemoryD1Idx)[row] = field.New(delta >> 16)
		col(MemoryDInvIdx)[row] = deltaInv

		bus.Respond(memoryMessage(r.access.isRead, r.ctx, r.addr, r.access.clk, r.access.word))
	}
}

func memoryMessage(isRead bool, ctx, addr, clk uint64, word core.Word) BusMessage {
	label := LabelMemoryWrite
	if isRead {
		label = LabelMemoryRead
	}
	values := append([]field.Element{field.New(ctx), field.New(addr), field.New(clk)}, word.Elements()...)
	return BusMessage{Label: label, Values: values}
}
