package core

import (
	"fmt"
	"sync"
)

// MaxMerkleDepth bounds tree depth so indices fit in a uint64
const MaxMerkleDepth = 64

// MerklePath holds sibling nodes ordered from the leaf level up to the root
type MerklePath []Word

// ComputeRoot folds node up the path. Bit k of index selects whether the
// running node is the right (1) or left (0) child at level k.
func (p MerklePath) ComputeRoot(index uint64, node Word) (Word, error) {
	if len(p) > MaxMerkleDepth {
		return Word{}, fmt.Errorf("merkle path depth %d exceeds %d", len(p), MaxMerkleDepth)
	}
	if len(p) < MaxMerkleDepth && index>>uint(len(p)) != 0 {
		return Word{}, fmt.Errorf("index %d out of range for depth %d", index, len(p))
	}
	for _, sibling := range p {
		if index&1 == 0 {
			node = Merge(node, sibling)
		} else {
			node = Merge(sibling, node)
		}
		index >>= 1
	}
	return node, nil
}

// Verify checks that node sits at index under root
func (p MerklePath) Verify(index uint64, node, root Word) bool {
	computed, err := p.ComputeRoot(index, node)
	if err != nil {
		return false
	}
	return computed.Equal(root)
}

var (
	emptyRootsOnce sync.Once
	emptyRoots     [MaxMerkleDepth + 1]Word
)

// EmptySubtreeRoot returns the root of a depth-d tree whose leaves are all
// the zero word.
func EmptySubtreeRoot(depth int) Word {
	emptyRootsOnce.Do(func() {
		emptyRoots[0] = ZeroWord()
		for d := 1; d <= MaxMerkleDepth; d++ {
			emptyRoots[d] = Merge(emptyRoots[d-1], emptyRoots[d-1])
		}
	})
	return emptyRoots[depth]
}

// MerkleTree is a fully materialised binary tree stored as a 1-indexed
// heap: nodes[1] is the root and the leaves occupy nodes[n:2n].
type MerkleTree struct {
	nodes []Word
	depth int
}

// NewMerkleTree builds a tree over a power-of-two number of leaves
func NewMerkleTree(leaves []Word) (*MerkleTree, error) {
	n := len(leaves)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("merkle tree needs a power-of-two number of leaves (at least 2), got %d", n)
	}

	nodes := make([]Word, 2*n)
	copy(nodes[n:], leaves)
	for i := n - 1; i >= 1; i-- {
		nodes[i] = Merge(nodes[2*i], nodes[2*i+1])
	}

	depth := 0
	for m := n; m > 1; m >>= 1 {
		depth++
	}
	return &MerkleTree{nodes: nodes, depth: depth}, nil
}

// Root returns the tree root
func (mt *MerkleTree) Root() Word {
	return mt.nodes[1]
}

// Depth returns the number of levels below the root
func (mt *MerkleTree) Depth() int {
	return mt.depth
}

// Leaves returns a copy of the leaf level
func (mt *MerkleTree) Leaves() []Word {
	n := len(mt.nodes) / 2
	return append([]Word(nil), mt.nodes[n:]...)
}

// InnerNodes calls fn for every internal node with its two children
func (mt *MerkleTree) InnerNodes(fn func(parent, left, right Word)) {
	n := len(mt.nodes) / 2
	for i := 1; i < n; i++ {
		fn(mt.nodes[i], mt.nodes[2*i], mt.nodes[2*i+1])
	}
}

// GetNode returns the node at the given depth and index
func (mt *MerkleTree) GetNode(depth int, index uint64) (Word, error) {
	pos, err := mt.position(depth, index)
	if err != nil {
		return Word{}, err
	}
	return mt.nodes[pos], nil
}

// GetPath returns the authentication path of the node at depth and index
func (mt *MerkleTree) GetPath(depth int, index uint64) (MerklePath, error) {
	pos, err := mt.position(depth, index)
	if err != nil {
		return nil, err
	}
	path := make(MerklePath, 0, depth)
	for ; pos > 1; pos >>= 1 {
		path = append(path, mt.nodes[pos^1])
	}
	return path, nil
}

// UpdateLeaf replaces a leaf and recomputes the nodes above it
func (mt *MerkleTree) UpdateLeaf(index uint64, value Word) error {
	pos, err := mt.position(mt.depth, index)
	if err != nil {
		return err
	}
	mt.nodes[pos] = value
	for pos >>= 1; pos >= 1; pos >>= 1 {
		mt.nodes[pos] = Merge(mt.nodes[2*pos], mt.nodes[2*pos+1])
	}
	return nil
}

func (mt *MerkleTree) position(depth int, index uint64) (uint64, error) {
	if depth < 0 || depth > mt.depth {
		return 0, fmt.Errorf("depth %d out of range [0, %d]", depth, mt.depth)
	}
	if index >= uint64(1)<<uint(depth) {
		return 0, fmt.Errorf("index %d out of range for depth %d", index, depth)
	}
	return uint64(1)<<uint(depth) + index, nil
}
