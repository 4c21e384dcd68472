package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// ========== Cryptographic operations ==========

// opHPerm applies the hash permutation to the top twelve elements. Lane i
// of the state is s(11-i), so the capacity sits deepest and the digest
// lanes end up in s0..s3 reversed.
func (p *Process) opHPerm() error {
	var input core.HasherState
	for i := range input {
		input[i] = p.stack.Get(core.StateWidth - 1 - i)
	}
	addr, output := p.chiplets.Hasher.Permute(input)

	bus := p.chiplets.Bus()
	bus.Request(BusMessage{Label: LabelLinearHash, Addr: addr, Values: stateValues(&input)})
	bus.Request(BusMessage{Label: LabelReturnState, Addr: addr + core.CycleLength - 1, Values: stateValues(&output)})

	for i := range output {
		p.stack.Set(core.StateWidth-1-i, output[i])
	}
	p.decoder.setUserOpHelpers(field.New(addr))
	return nil
}

// merkleParams reads a tree depth from s_d and a node index from s_i
func (p *Process) merkleParams(d, i int) (int, uint64, error) {
	depth, index := p.stack.Get(d), p.stack.Get(i)
	if depth.Value() < 1 || depth.Value() > core.MaxMerkleDepth {
		return 0, 0, newValueError(InvalidParameter, p.system.Clk(), depth, "tree depth must be in 1..%d", core.MaxMerkleDepth)
	}
	if depth.Value() < 64 && index.Value()>>depth.Value() != 0 {
		return 0, 0, newValueError(InvalidParameter, p.system.Clk(), index, "node index out of range for depth %d", depth.Value())
	}
	return int(depth.Value()), index.Value(), nil
}

func (p *Process) merklePath(root core.Word, depth int, index uint64) (core.MerklePath, error) {
	path, err := p.advice.GetMerklePath(root, depth, index)
	if err != nil {
		return nil, newError(AdviceProviderMiss, p.system.Clk(), "merkle path of node %d at depth %d", index, depth).withCause(err)
	}
	return path, nil
}

// opMpVerify checks that the word on top is the node at depth s4 and index
// s5 of the tree whose root is word 2. The path comes from the advice
// provider and the stack is left unchanged.
func (p *Process) opMpVerify() error {
	depth, index, err := p.merkleParams(4, 5)
	if err != nil {
		return err
	}
	node, root := p.stack.GetWord(0), p.stack.GetWord(2)
	path, err := p.merklePath(root, depth, index)
	if err != nil {
		return err
	}

	addr, computed := p.chiplets.Hasher.BuildMerkleRoot(node, path, index)
	bus := p.chiplets.Bus()
	bus.Request(BusMessage{Label: LabelMpVerify, Addr: addr, Values: merkleInput(index, node)})
	bus.Request(BusMessage{Label: LabelReturnHash, Addr: addr + uint64(core.CycleLength*depth) - 1, Values: computed.Elements()})
	p.decoder.setUserOpHelpers(field.New(addr))

	if !computed.Equal(root) {
		return newError(MerklePathVerificationFailed, p.system.Clk(), "node %d at depth %d: expected root %s, computed %s",
			index, depth, root.Hex(), computed.Hex())
	}
	return nil
}

// opMrUpdate replaces the node at depth s4 and index s5 of the tree with
// root word 2. The old value is word 0 and the new value word 3. Word 0 is
// overwritten with the new root, and the advice provider keeps both trees.
func (p *Process) opMrUpdate() error {
	depth, index, err := p.merkleParams(4, 5)
	if err != nil {
		return err
	}
	oldNode, root, newNode := p.stack.GetWord(0), p.stack.GetWord(2), p.stack.GetWord(3)
	path, err := p.merklePath(root, depth, index)
	if err != nil {
		return err
	}

	addr, oldRoot, newRoot := p.chiplets.Hasher.UpdateMerkleRoot(oldNode, newNode, path, index)
	span := uint64(core.CycleLength * depth)
	bus := p.chiplets.Bus()
	bus.Request(BusMessage{Label: LabelMrUpdateOld, Addr: addr, Values: merkleInput(index, oldNode)})
	bus.Request(BusMessage{Label: LabelReturnHash, Addr: addr + span - 1, Values: oldRoot.Elements()})
	bus.Request(BusMessage{Label: LabelMrUpdateNew, Addr: addr + span, Values: merkleInput(index, newNode)})
	bus.Request(BusMessage{Label: LabelReturnHash, Addr: addr + 2*span - 1, Values: newRoot.Elements()})
	p.decoder.setUserOpHelpers(field.New(addr))

	if !oldRoot.Equal(root) {
		return newError(MerklePathVerificationFailed, p.system.Clk(), "node %d at depth %d: expected root %s, computed %s",
			index, depth, root.Hex(), oldRoot.Hex())
	}

	stored, _, err := p.advice.UpdateMerkleNode(root, depth, index, newNode)
	if err != nil {
		return newError(AdviceProviderMiss, p.system.Clk(), "update node %d at depth %d", index, depth).withCause(err)
	}
	if !stored.Equal(newRoot) {
		return newError(MerklePathVerificationFailed, p.system.Clk(), "advice store root %s differs from hasher root %s",
			stored.Hex(), newRoot.Hex())
	}
	p.stack.SetWord(0, newRoot)
	return nil
}
