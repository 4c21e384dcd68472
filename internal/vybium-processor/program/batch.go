package program

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

const (
	// MaxOpsPerGroup is how many 7-bit opcodes fit in one group element
	MaxOpsPerGroup = 9
	// BatchSize is the number of groups absorbed per permutation
	BatchSize = core.RateWidth
	// MaxSpanOps bounds the length of a single span
	MaxSpanOps = 1 << 16
)

// OpBatch is up to eight op groups absorbed by a single permutation.
// Immediate values occupy their own groups right after the group holding
// the operation that uses them.
type OpBatch struct {
	Groups    [BatchSize]field.Element
	NumGroups int
}

// OpPlacement locates one operation of a span inside its batches
type OpPlacement struct {
	Batch        int           // batch index within the span
	Group        int           // group index counted across the whole span
	IndexInGroup int           // position of the opcode inside the group
	Remainder    field.Element // group value with this and earlier opcodes shifted out
}

func newOpBatch() OpBatch {
	var b OpBatch
	for i := range b.Groups {
		b.Groups[i] = field.Zero
	}
	return b
}

// batchOps packs operations into batches. The layout is a pure function of
// the operation list, so the span digest is too.
func batchOps(ops []Operation) ([]OpBatch, []OpPlacement) {
	batches := make([]OpBatch, 0, 1)
	placements := make([]OpPlacement, len(ops))

	cur := newOpBatch()
	groupBase := 0

	var (
		group      uint64
		groupOps   []int
		immediates []field.Element
	)

	flushGroup := func() {
		slot := cur.NumGroups
		cur.Groups[slot] = field.New(group)
		for k, idx := range groupOps {
			placements[idx] = OpPlacement{
				Batch:        len(batches),
				Group:        groupBase + slot,
				IndexInGroup: k,
				Remainder:    field.New(group >> (OpCodeBits * uint(k+1))),
			}
		}
		for j, imm := range immediates {
			cur.Groups[slot+1+j] = imm
		}
		cur.NumGroups += 1 + len(immediates)
		group = 0
		groupOps = groupOps[:0]
		immediates = immediates[:0]
	}

	flushBatch := func() {
		batches = append(batches, cur)
		groupBase += cur.NumGroups
		cur = newOpBatch()
	}

	for i, op := range ops {
		needImm := 0
		if op.HasImm() {
			needImm = 1
		}

		if len(groupOps) > 0 {
			need := cur.NumGroups + 1 + len(immediates) + needImm
			if len(groupOps) == MaxOpsPerGroup || need > BatchSize {
				flushGroup()
			}
		}
		if len(groupOps) == 0 && cur.NumGroups+1+needImm > BatchSize {
			flushBatch()
		}

		group |= uint64(op.Code) << (OpCodeBits * uint(len(groupOps)))
		groupOps = append(groupOps, i)
		if needImm == 1 {
			immediates = append(immediates, op.Imm)
		}
	}
	if len(groupOps) > 0 {
		flushGroup()
	}
	if cur.NumGroups > 0 {
		flushBatch()
	}
	return batches, placements
}

// spanDigest absorbs the batches with the operation count in capacity lane 0
func spanDigest(numOps int, batches []OpBatch) core.Digest {
	return core.HashRateBlocks(field.New(uint64(numOps)), batchBlocks(batches))
}

func batchBlocks(batches []OpBatch) [][core.RateWidth]field.Element {
	blocks := make([][core.RateWidth]field.Element, len(batches))
	for i, b := range batches {
		blocks[i] = b.Groups
	}
	return blocks
}
