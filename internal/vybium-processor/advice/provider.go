// Package advice supplies the non-deterministic inputs of an execution:
// an advice stack, a key-value advice map and a store of Merkle trees.
package advice

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

var (
	// ErrStackEmpty is returned when the advice stack runs out
	ErrStackEmpty = errors.New("advice stack is empty")
	// ErrMapKeyNotFound is returned when the advice map has no entry for a key
	ErrMapKeyNotFound = errors.New("advice map key not found")
)

// Provider is the source of advice consulted by the processor
type Provider interface {
	// PopStack removes the next element of the advice stack
	PopStack() (field.Element, error)
	// PopStackWord removes four elements; word[i] is the i-th one popped
	PopStackWord() (core.Word, error)
	// PushStack places values so that values[0] is popped first
	PushStack(values ...field.Element)

	GetMapValue(key core.Word) ([]field.Element, error)
	InsertMapValue(key core.Word, values []field.Element)

	GetTreeNode(root core.Word, depth int, index uint64) (core.Word, error)
	GetMerklePath(root core.Word, depth int, index uint64) (core.MerklePath, error)
	// UpdateMerkleNode sets a node and returns the new root together with
	// the authentication path, which is the same before and after.
	UpdateMerkleNode(root core.Word, depth int, index uint64, value core.Word) (core.Word, core.MerklePath, error)
}

// Inputs are the initial contents of a provider
type Inputs struct {
	// Stack lists advice values in pop order
	Stack []field.Element
	Map   map[core.Word][]field.Element
	Trees []*core.MerkleTree
}

// MemProvider keeps the advice stack and map in memory and resolves trees
// through a MerkleStore.
type MemProvider struct {
	stack  []field.Element // top of the stack is the last element
	values map[core.Word][]field.Element
	store  *MerkleStore
}

var _ Provider = (*MemProvider)(nil)

// NewMemProvider builds a provider whose trees live in memory
func NewMemProvider(in Inputs) (*MemProvider, error) {
	return NewProviderWithStore(in, NewMemNodeStore())
}

// NewProviderWithStore builds a provider over the given node store
func NewProviderWithStore(in Inputs, nodes NodeStore) (*MemProvider, error) {
	p := &MemProvider{
		values: make(map[core.Word][]field.Element, len(in.Map)),
		store:  NewMerkleStore(nodes),
	}
	p.PushStack(in.Stack...)
	for k, v := range in.Map {
		p.InsertMapValue(k, v)
	}
	for _, tree := range in.Trees {
		if err := p.store.AddTree(tree); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// PopStack removes the next element of the advice stack
func (p *MemProvider) PopStack() (field.Element, error) {
	if len(p.stack) == 0 {
		return field.Zero, ErrStackEmpty
	}
	v := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return v, nil
}

// PopStackWord removes four elements as a word
func (p *MemProvider) PopStackWord() (core.Word, error) {
	if len(p.stack) < core.WordSize {
		return core.Word{}, fmt.Errorf("%w: need %d elements, have %d", ErrStackEmpty, core.WordSize, len(p.stack))
	}
	var w core.Word
	for i := range w {
		w[i], _ = p.PopStack()
	}
	return w, nil
}

// PushStack places values so that values[0] is popped first
func (p *MemProvider) PushStack(values ...field.Element) {
	for i := len(values) - 1; i >= 0; i-- {
		p.stack = append(p.stack, values[i])
	}
}

// StackLen returns the number of elements left on the advice stack
func (p *MemProvider) StackLen() int {
	return len(p.stack)
}

// GetMapValue returns the values stored under key
func (p *MemProvider) GetMapValue(key core.Word) ([]field.Element, error) {
	v, ok := p.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMapKeyNotFound, key.Hex())
	}
	return append([]field.Element(nil), v...), nil
}

// InsertMapValue stores values under key, replacing any previous entry
func (p *MemProvider) InsertMapValue(key core.Word, values []field.Element) {
	p.values[key] = append([]field.Element(nil), values...)
}

// GetTreeNode returns the node at depth and index of the tree with root
func (p *MemProvider) GetTreeNode(root core.Word, depth int, index uint64) (core.Word, error) {
	return p.store.GetNode(root, depth, index)
}

// GetMerklePath returns the authentication path of a node
func (p *MemProvider) GetMerklePath(root core.Word, depth int, index uint64) (core.MerklePath, error) {
	return p.store.GetPath(root, depth, index)
}

// UpdateMerkleNode sets a node, keeping the old tree reachable
func (p *MemProvider) UpdateMerkleNode(root core.Word, depth int, index uint64, value core.Word) (core.Word, core.MerklePath, error) {
	return p.store.SetNode(root, depth, index, value)
}

// Store returns the underlying Merkle store
func (p *MemProvider) Store() *MerkleStore {
	return p.store
}
