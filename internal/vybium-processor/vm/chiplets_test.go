package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
	"github.com/vybium/vybium-processor/internal/vybium-processor/utils"
)

func testAlphas(seed string) []field.Element {
	ch := utils.NewChannel()
	ch.Send([]byte(seed))
	return ch.ReceiveRandomElements(MaxMessageWidth)
}

func TestHasherAddresses(t *testing.T) {
	bus := NewChipletsBus()
	h := NewHasher(bus)

	var input core.HasherState
	for i := range input {
		input[i] = field.New(uint64(i))
	}
	addr, out := h.Permute(input)
	assert.Equal(t, uint64(1), addr)
	want := input
	core.Permute(&want)
	assert.Equal(t, want, out)

	left, right := core.NewWord(1, 2, 3, 4), core.NewWord(5, 6, 7, 8)
	domain := program.OpJoin.Domain()
	addr, digest := h.HashControlBlock(left, right, domain)
	assert.Equal(t, uint64(9), addr)
	assert.Equal(t, core.MergeInDomain(left, right, domain), digest)
	assert.Equal(t, 2*core.CycleLength, h.TraceLen())
}

func TestHasherSpan(t *testing.T) {
	h := NewHasher(NewChipletsBus())
	batches := core.ChunkElements(elements(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	require.Len(t, batches, 2)

	addr, digest := h.HashSpan(10, batches)
	assert.Equal(t, uint64(1), addr)
	assert.Equal(t, core.HashRateBlocks(field.New(10), batches), digest)
	assert.Equal(t, 2*core.CycleLength, h.TraceLen())
}

func TestHasherMerkle(t *testing.T) {
	leaves := []core.Word{core.NewWord(1, 0, 0, 0), core.NewWord(2, 0, 0, 0), core.NewWord(3, 0, 0, 0), core.NewWord(4, 0, 0, 0)}
	tree, err := core.NewMerkleTree(leaves)
	require.NoError(t, err)
	path, err := tree.GetPath(2, 1)
	require.NoError(t, err)

	h := NewHasher(NewChipletsBus())
	_, root := h.BuildMerkleRoot(leaves[1], path, 1)
	assert.Equal(t, tree.Root(), root)
	assert.Equal(t, 2*core.CycleLength, h.TraceLen())

	newLeaf := core.NewWord(9, 9, 9, 9)
	addr, oldRoot, newRoot := h.UpdateMerkleRoot(leaves[1], newLeaf, path, 1)
	assert.Equal(t, uint64(2*core.CycleLength+1), addr)
	assert.Equal(t, tree.Root(), oldRoot)
	require.NoError(t, tree.UpdateLeaf(1, newLeaf))
	assert.Equal(t, tree.Root(), newRoot)
	assert.Equal(t, 6*core.CycleLength, h.TraceLen())
}

func TestBusBalance(t *testing.T) {
	alphas := testAlphas("bus")
	a := BusMessage{Label: LabelMemoryRead, Addr: 3, Values: elements(1, 2)}
	b := BusMessage{Label: LabelKernelProc, Values: elements(4, 5, 6, 7)}

	bus := NewChipletsBus()
	bus.Request(a)
	bus.Request(b)
	bus.Respond(b)
	bus.Respond(a)
	assert.True(t, bus.Balanced(alphas), "order does not matter")

	bus.Request(a)
	assert.False(t, bus.Balanced(alphas))
	bus.Respond(BusMessage{Label: LabelMemoryWrite, Addr: 3, Values: elements(1, 2)})
	assert.False(t, bus.Balanced(alphas))
}

func TestMemoryOrdering(t *testing.T) {
	m := NewMemory()
	m.Write(1, 5, 10, core.NewWord(1, 0, 0, 0))
	m.Write(0, 7, 3, core.NewWord(2, 0, 0, 0))
	assert.Equal(t, core.NewWord(1, 0, 0, 0), m.Read(1, 5, 12))
	assert.Equal(t, core.ZeroWord(), m.Read(0, 2, 14))

	_, ok := m.GetWord(3, 3)
	assert.False(t, ok)
	assert.Equal(t, 4, m.TraceLen(), "GetWord records nothing")

	rows := m.rows()
	type key struct{ ctx, addr, clk uint64 }
	got := make([]key, len(rows))
	for i, r := range rows {
		got[i] = key{r.ctx, r.addr, r.access.clk}
	}
	assert.Equal(t, []key{{0, 2, 14}, {0, 7, 3}, {1, 5, 10}, {1, 5, 12}}, got)

	deltas := make([]uint64, len(rows))
	for i := range rows {
		deltas[i], _ = memoryDelta(rows, i)
	}
	// address step, context step, then the clock gap minus one
	assert.Equal(t, []uint64{0, 5, 1, 1}, deltas)

	rc := NewRangeChecker()
	require.NoError(t, m.addRangeChecks(rc))
	assert.Equal(t, []uint64{0, 0, 5, 0, 1, 0, 1, 0}, rc.Requests())
}

func TestRangeCheckerTable(t *testing.T) {
	rc := NewRangeChecker()
	require.NoError(t, rc.AddRangeChecks(0, 7, 7, 40000))
	assert.Error(t, rc.Check(RangeCheckLimit))
	assert.Equal(t, uint64(2), rc.Multiplicity(7))

	rows := rc.rows()
	require.NotEmpty(t, rows)
	assert.Equal(t, uint64(0), rows[0].value)
	assert.Equal(t, RangeCheckLimit-1, rows[len(rows)-1].value)

	var total uint64
	for i, r := range rows {
		total += r.multiplicity
		if i == 0 {
			continue
		}
		gap := r.value - rows[i-1].value
		assert.Contains(t, []uint64{1, 3, 9, 27, 81, 243, 729, 2187}, gap, "row %d", i)
	}
	assert.Equal(t, uint64(4), total)
	assert.Equal(t, len(rows), rc.TraceLen())
}

func TestRangeCheckerBalance(t *testing.T) {
	rc := NewRangeChecker()
	require.NoError(t, rc.AddRangeChecks(1, 2, 2, 65535, 300))

	n := utils.NextPowerOfTwo(rc.TraceLen())
	dst := make([][]field.Element, RangeTraceOffset+RangeTraceWidth)
	dst[RangeMultColIdx] = make([]field.Element, n)
	dst[RangeValueColIdx] = make([]field.Element, n)
	rc.fillTrace(dst)

	alpha := testAlphas("range")[0]
	assert.True(t, rangeBalanced(rc.Requests(), dst[RangeMultColIdx], dst[RangeValueColIdx], alpha))
	assert.False(t, rangeBalanced(append(rc.Requests(), 3), dst[RangeMultColIdx], dst[RangeValueColIdx], alpha))
}

func TestKernelROM(t *testing.T) {
	d1, d2 := core.NewWord(1, 0, 0, 0), core.NewWord(2, 0, 0, 0)
	kernel, err := program.NewKernel([]core.Digest{d1, d2})
	require.NoError(t, err)

	rom := NewKernelROM(kernel)
	assert.Equal(t, 2, rom.TraceLen())
	require.NoError(t, rom.AccessProc(d2))
	require.NoError(t, rom.AccessProc(d2))
	assert.Error(t, rom.AccessProc(core.NewWord(3, 0, 0, 0)))

	assert.Equal(t, 0, rom.Accesses(0))
	assert.Equal(t, 2, rom.Accesses(1))
	assert.Equal(t, 4, rom.TraceLen())
}
