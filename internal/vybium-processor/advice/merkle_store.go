package advice

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// ErrNodeNotFound is returned when a tree walk reaches a node the store
// does not know.
var ErrNodeNotFound = errors.New("merkle node not found")

// NodeStore persists internal Merkle nodes as parent -> (left, right)
type NodeStore interface {
	GetNode(parent core.Digest) (left, right core.Word, ok bool, err error)
	PutNode(parent core.Digest, left, right core.Word) error
}

// MemNodeStore keeps nodes in a map
type MemNodeStore struct {
	nodes map[core.Digest][2]core.Word
}

// NewMemNodeStore creates an empty in-memory node store
func NewMemNodeStore() *MemNodeStore {
	return &MemNodeStore{nodes: make(map[core.Digest][2]core.Word)}
}

// GetNode returns the children of parent
func (s *MemNodeStore) GetNode(parent core.Digest) (core.Word, core.Word, bool, error) {
	c, ok := s.nodes[parent]
	return c[0], c[1], ok, nil
}

// PutNode records the children of parent
func (s *MemNodeStore) PutNode(parent core.Digest, left, right core.Word) error {
	s.nodes[parent] = [2]core.Word{left, right}
	return nil
}

// Len returns the number of stored internal nodes
func (s *MemNodeStore) Len() int {
	return len(s.nodes)
}

var emptyHeights = func() map[core.Digest]int {
	m := make(map[core.Digest]int, core.MaxMerkleDepth)
	for h := 1; h <= core.MaxMerkleDepth; h++ {
		m[core.EmptySubtreeRoot(h)] = h
	}
	return m
}()

// MerkleStore answers node and path queries for any tree whose internal
// nodes it holds. Roots of all-zero subtrees resolve without being stored,
// so sparse trees only need their non-default nodes.
type MerkleStore struct {
	nodes NodeStore
}

// NewMerkleStore wraps a node store. A nil store means an in-memory one.
func NewMerkleStore(nodes NodeStore) *MerkleStore {
	if nodes == nil {
		nodes = NewMemNodeStore()
	}
	return &MerkleStore{nodes: nodes}
}

// AddTree inserts every internal node of a materialised tree
func (s *MerkleStore) AddTree(tree *core.MerkleTree) error {
	var err error
	tree.InnerNodes(func(parent, left, right core.Word) {
		if err == nil {
			err = s.nodes.PutNode(parent, left, right)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add tree %s: %w", tree.Root().Hex(), err)
	}
	return nil
}

// AddPath inserts the nodes linking node at index to the root the path
// implies, and returns that root.
func (s *MerkleStore) AddPath(index uint64, node core.Word, path core.MerklePath) (core.Word, error) {
	if _, err := path.ComputeRoot(index, node); err != nil {
		return core.Word{}, err
	}
	for _, sibling := range path {
		left, right := node, sibling
		if index&1 == 1 {
			left, right = sibling, node
		}
		node = core.Merge(left, right)
		if err := s.nodes.PutNode(node, left, right); err != nil {
			return core.Word{}, err
		}
		index >>= 1
	}
	return node, nil
}

func (s *MerkleStore) children(node core.Word) (core.Word, core.Word, error) {
	left, right, ok, err := s.nodes.GetNode(node)
	if err != nil {
		return core.Word{}, core.Word{}, err
	}
	if ok {
		return left, right, nil
	}
	if h, empty := emptyHeights[node]; empty {
		child := core.EmptySubtreeRoot(h - 1)
		return child, child, nil
	}
	return core.Word{}, core.Word{}, fmt.Errorf("%w: %s", ErrNodeNotFound, node.Hex())
}

// walk descends from root to the node at depth and index, collecting the
// siblings it passes. The returned path is ordered leaf to root.
func (s *MerkleStore) walk(root core.Word, depth int, index uint64) (core.Word, core.MerklePath, error) {
	if depth < 1 || depth > core.MaxMerkleDepth {
		return core.Word{}, nil, fmt.Errorf("depth %d out of range [1, %d]", depth, core.MaxMerkleDepth)
	}
	if depth < core.MaxMerkleDepth && index>>uint(depth) != 0 {
		return core.Word{}, nil, fmt.Errorf("index %d out of range for depth %d", index, depth)
	}

	path := make(core.MerklePath, depth)
	node := root
	for level := 0; level < depth; level++ {
		left, right, err := s.children(node)
		if err != nil {
			return core.Word{}, nil, err
		}
		bit := (index >> uint(depth-1-level)) & 1
		if bit == 0 {
			node, path[depth-1-level] = left, right
		} else {
			node, path[depth-1-level] = right, left
		}
	}
	return node, path, nil
}

// GetNode returns the node at depth and index of the tree rooted at root
func (s *MerkleStore) GetNode(root core.Word, depth int, index uint64) (core.Word, error) {
	node, _, err := s.walk(root, depth, index)
	return node, err
}

// GetPath returns the authentication path of the node at depth and index
func (s *MerkleStore) GetPath(root core.Word, depth int, index uint64) (core.MerklePath, error) {
	_, path, err := s.walk(root, depth, index)
	return path, err
}

// SetNode replaces the node at depth and index. The old tree stays
// reachable from its root; the new root and the unchanged path are returned.
func (s *MerkleStore) SetNode(root core.Word, depth int, index uint64, value core.Word) (core.Word, core.MerklePath, error) {
	_, path, err := s.walk(root, depth, index)
	if err != nil {
		return core.Word{}, nil, err
	}
	newRoot, err := s.AddPath(index, value, path)
	if err != nil {
		return core.Word{}, nil, err
	}
	return newRoot, path, nil
}
