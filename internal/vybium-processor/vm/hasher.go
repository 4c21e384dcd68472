package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// Hasher selector flavors. Rows 0..6 of a cycle carry the flavor of the
// computation; row 7 carries either an output flavor or, when the
// computation continues into another cycle, the flavor again.
var (
	selLinearHash  = [3]uint64{1, 0, 0}
	selMpVerify    = [3]uint64{1, 0, 1}
	selMrUpdateOld = [3]uint64{1, 1, 0}
	selMrUpdateNew = [3]uint64{1, 1, 1}
	selReturnHash  = [3]uint64{0, 0, 0}
	selReturnState = [3]uint64{0, 0, 1}
)

// Hasher is the hash chiplet. Every permutation it performs is recorded
// as one cycle of core.CycleLength rows: the input state followed by the
// state after each round. The address of a row is its index plus one.
type Hasher struct {
	selectors [3][]field.Element
	state     [core.StateWidth][]field.Element
	nodeIndex []field.Element

	bus *ChipletsBus
}

// NewHasher creates a hasher reporting its responses on bus
func NewHasher(bus *ChipletsBus) *Hasher {
	return &Hasher{bus: bus}
}

// TraceLen returns the number of rows recorded so far
func (h *Hasher) TraceLen() int {
	return len(h.nodeIndex)
}

func (h *Hasher) nextAddr() uint64 {
	return uint64(len(h.nodeIndex)) + 1
}

func (h *Hasher) appendRow(sel [3]uint64, state *core.HasherState, nodeIndex field.Element) {
	for i, s := range sel {
		h.selectors[i] = append(h.selectors[i], field.New(s))
	}
	for i, v := range state {
		h.state[i] = append(h.state[i], v)
	}
	h.nodeIndex = append(h.nodeIndex, nodeIndex)
}

// runCycle permutes state in place, recording the cycle's rows
func (h *Hasher) runCycle(state *core.HasherState, flavor, last [3]uint64, nodeIndex field.Element) {
	h.appendRow(flavor, state, nodeIndex)
	for r := 0; r < core.NumRounds; r++ {
		core.ApplyRound(state, r)
		sel := flavor
		if r == core.NumRounds-1 {
			sel = last
		}
		h.appendRow(sel, state, nodeIndex)
	}
}

// Permute applies the permutation to a full state and returns the address
// of the computation with the resulting state.
func (h *Hasher) Permute(input core.HasherState) (uint64, core.HasherState) {
	addr := h.nextAddr()
	state := input
	h.runCycle(&state, selLinearHash, selReturnState, field.Zero)

	h.bus.Respond(BusMessage{Label: LabelLinearHash, Addr: addr, Values: stateValues(&input)})
	h.bus.Respond(BusMessage{Label: LabelReturnState, Addr: addr + core.CycleLength - 1, Values: stateValues(&state)})
	return addr, state
}

// HashControlBlock merges the two hasher input words of a control block
// in the block's domain.
func (h *Hasher) HashControlBlock(left, right core.Word, domain field.Element) (uint64, core.Digest) {
	addr := h.nextAddr()
	input := core.NewMergeState(left, right, domain)
	state := input
	h.runCycle(&state, selLinearHash, selReturnHash, field.Zero)

	digest := state.Digest()
	h.bus.Respond(BusMessage{Label: LabelLinearHash, Addr: addr, Values: stateValues(&input)})
	h.bus.Respond(BusMessage{Label: LabelReturnHash, Addr: addr + core.CycleLength - 1, Values: digest.Elements()})
	return addr, digest
}

// HashSpan absorbs the op batches of a span, one cycle per batch
func (h *Hasher) HashSpan(numOps int, batches [][core.RateWidth]field.Element) (uint64, core.Digest) {
	addr := h.nextAddr()
	state := core.NewAbsorbState(field.New(uint64(numOps)), batches[0])
	h.bus.Respond(BusMessage{Label: LabelLinearHash, Addr: addr, Values: stateValues(&state)})

	for i := range batches {
		last := i == len(batches)-1
		out := selLinearHash
		if last {
			out = selReturnHash
		}
		h.runCycle(&state, selLinearHash, out, field.Zero)
		if !last {
			state.SetRate(batches[i+1])
			h.bus.Respond(BusMessage{Label: LabelAbsorb, Addr: h.nextAddr() - 1, Values: rateValues(batches[i+1])})
		}
	}

	digest := state.Digest()
	h.bus.Respond(BusMessage{Label: LabelReturnHash, Addr: h.nextAddr() - 1, Values: digest.Elements()})
	return addr, digest
}

// BuildMerkleRoot computes the root implied by value sitting at index
// under path. It takes one cycle per tree level.
func (h *Hasher) BuildMerkleRoot(value core.Word, path core.MerklePath, index uint64) (uint64, core.Digest) {
	addr := h.nextAddr()
	root := h.merkleCycles(selMpVerify, value, path, index)

	h.bus.Respond(BusMessage{Label: LabelMpVerify, Addr: addr, Values: merkleInput(index, value)})
	h.bus.Respond(BusMessage{Label: LabelReturnHash, Addr: h.nextAddr() - 1, Values: root.Elements()})
	return addr, root
}

// UpdateMerkleRoot computes the root under path before and after the node
// at index changes from oldValue to newValue.
func (h *Hasher) UpdateMerkleRoot(oldValue, newValue core.Word, path core.MerklePath, index uint64) (uint64, core.Digest, core.Digest) {
	addr := h.nextAddr()
	oldRoot := h.merkleCycles(selMrUpdateOld, oldValue, path, index)
	h.bus.Respond(BusMessage{Label: LabelMrUpdateOld, Addr: addr, Values: merkleInput(index, oldValue)})
	h.bus.Respond(BusMessage{Label: LabelReturnHash, Addr: h.nextAddr() - 1, Values: oldRoot.Elements()})

	newAddr := h.nextAddr()
	newRoot := h.merkleCycles(selMrUpdateNew, newValue, path, index)
	h.bus.Respond(BusMessage{Label: LabelMrUpdateNew, Addr: newAddr, Values: merkleInput(index, newValue)})
	h.bus.Respond(BusMessage{Label: LabelReturnHash, Addr: h.nextAddr() - 1, Values: newRoot.Elements()})
	return addr, oldRoot, newRoot
}

func (h *Hasher) merkleCycles(flavor [3]uint64, node core.Word, path core.MerklePath, index uint64) core.Digest {
	for level, sibling := range path {
		left, right := node, sibling
		if index&1 == 1 {
			left, right = sibling, node
		}
		state := core.NewMergeState(left, right, field.Zero)
		out := flavor
		if level == len(path)-1 {
			out = selReturnHash
		}
		h.runCycle(&state, flavor, out, field.New(index))
		node = state.Digest()
		index >>= 1
	}
	return node
}

func (h *Hasher) fillTrace(dst [][]field.Element, start int) {
	for r := range h.nodeIndex {
		row := start + r
		dst[ChipletsTraceOffset][row] = field.Zero
		for i := range h.selectors {
			dst[ChipletsTraceOffset+HasherSelectorOffset+i][row] = h.selectors[i][r]
		}
		for i := range h.state {
			dst[ChipletsTraceOffset+HasherStateOffset+i][row] = h.state[i][r]
		}
		dst[ChipletsTraceOffset+HasherNodeIndexIdx][row] = h.nodeIndex[r]
	}
}

func stateValues(state *core.HasherState) []field.Element {
	return append([]field.Element(nil), state[:]...)
}

func rateValues(rate [core.RateWidth]field.Element) []field.Element {
	return append([]field.Element(nil), rate[:]...)
}

func merkleInput(index uint64, value core.Word) []field.Element {
	return append([]field.Element{field.New(index)}, value.Elements()...)
}
