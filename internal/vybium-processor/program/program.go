package program

import (
	"fmt"
	"sort"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// Kernel is the ordered set of procedures reachable through SysCall
type Kernel struct {
	procs []core.Digest
	index map[core.Digest]int
}

// NewKernel builds a kernel, rejecting duplicate procedures
func NewKernel(procs []core.Digest) (Kernel, error) {
	k := Kernel{
		procs: make([]core.Digest, 0, len(procs)),
		index: make(map[core.Digest]int, len(procs)),
	}
	for _, d := range procs {
		if _, dup := k.index[d]; dup {
			return Kernel{}, fmt.Errorf("duplicate kernel procedure %s", d.Hex())
		}
		k.index[d] = len(k.procs)
		k.procs = append(k.procs, d)
	}
	return k, nil
}

// Contains reports whether d is a kernel procedure
func (k Kernel) Contains(d core.Digest) bool {
	_, ok := k.index[d]
	return ok
}

// ProcIndex returns the position of a kernel procedure
func (k Kernel) ProcIndex(d core.Digest) (int, bool) {
	i, ok := k.index[d]
	return i, ok
}

// Procedures returns the procedure digests in kernel order
func (k Kernel) Procedures() []core.Digest {
	return append([]core.Digest(nil), k.procs...)
}

// Len returns the number of kernel procedures
func (k Kernel) Len() int {
	return len(k.procs)
}

// CodeBlockTable is an arena of blocks keyed by digest. Call, SysCall and
// Dyn targets resolve through it so that shared procedures are stored once.
type CodeBlockTable struct {
	blocks map[core.Digest]*CodeBlock
}

// NewCodeBlockTable creates an empty table
func NewCodeBlockTable() *CodeBlockTable {
	return &CodeBlockTable{blocks: make(map[core.Digest]*CodeBlock)}
}

// Insert stores a block under its digest. Proxies are ignored.
func (t *CodeBlockTable) Insert(block *CodeBlock) {
	if block == nil || block.kind == ProxyBlock {
		return
	}
	t.blocks[block.digest] = block
}

// Get looks up a block by digest
func (t *CodeBlockTable) Get(d core.Digest) (*CodeBlock, bool) {
	b, ok := t.blocks[d]
	return b, ok
}

// Blocks returns the stored blocks ordered by digest
func (t *CodeBlockTable) Blocks() []*CodeBlock {
	blocks := make([]*CodeBlock, 0, len(t.blocks))
	for _, b := range t.blocks {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].digest.Hex() < blocks[j].digest.Hex()
	})
	return blocks
}

// Len returns the number of stored blocks
func (t *CodeBlockTable) Len() int {
	return len(t.blocks)
}

// Program is a root block plus the kernel and the table of procedures
type Program struct {
	root   *CodeBlock
	kernel Kernel
	table  *CodeBlockTable
}

// NewProgram creates a program with an empty kernel
func NewProgram(root *CodeBlock) (*Program, error) {
	return NewProgramWithKernel(root, Kernel{}, nil)
}

// NewProgramWithKernel creates a program. Every Call and SysCall target
// found in the tree is added to the table so Dyn can reach it too.
func NewProgramWithKernel(root *CodeBlock, kernel Kernel, table *CodeBlockTable) (*Program, error) {
	if root == nil {
		return nil, ErrNilBlock
	}
	if root.kind == ProxyBlock {
		return nil, fmt.Errorf("program root cannot be a proxy")
	}
	if table == nil {
		table = NewCodeBlockTable()
	}
	registerCallees(root, table)
	return &Program{root: root, kernel: kernel, table: table}, nil
}

func registerCallees(block *CodeBlock, table *CodeBlockTable) {
	if block.kind == CallBlock || block.kind == SysCallBlock {
		table.Insert(block.children[0])
	}
	for _, child := range block.children {
		registerCallees(child, table)
	}
}

// Root returns the root block
func (p *Program) Root() *CodeBlock {
	return p.root
}

// Hash returns the program identity, the root digest
func (p *Program) Hash() core.Digest {
	return p.root.digest
}

// Kernel returns the kernel
func (p *Program) Kernel() Kernel {
	return p.kernel
}

// Table returns the code-block table
func (p *Program) Table() *CodeBlockTable {
	return p.table
}

// Resolve replaces a proxy with the stored block it stands for
func (p *Program) Resolve(block *CodeBlock) (*CodeBlock, bool) {
	if block.kind != ProxyBlock {
		return block, true
	}
	return p.table.Get(block.digest)
}
