package program

import (
	"errors"
	"fmt"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// BlockKind tags the variant of a CodeBlock
type BlockKind uint8

const (
	SpanBlock BlockKind = iota
	JoinBlock
	SplitBlock
	LoopBlock
	CallBlock
	SysCallBlock
	DynBlock
	// ProxyBlock stands in for a block known only by its digest
	ProxyBlock
)

// String returns the name of the block kind
func (k BlockKind) String() string {
	switch k {
	case SpanBlock:
		return "span"
	case JoinBlock:
		return "join"
	case SplitBlock:
		return "split"
	case LoopBlock:
		return "loop"
	case CallBlock:
		return "call"
	case SysCallBlock:
		return "syscall"
	case DynBlock:
		return "dyn"
	case ProxyBlock:
		return "proxy"
	default:
		return "unknown"
	}
}

// Opcode returns the control opcode that opens a block of this kind
func (k BlockKind) Opcode() OpCode {
	switch k {
	case SpanBlock:
		return OpSpan
	case JoinBlock:
		return OpJoin
	case SplitBlock:
		return OpSplit
	case LoopBlock:
		return OpLoop
	case CallBlock:
		return OpCall
	case SysCallBlock:
		return OpSysCall
	case DynBlock:
		return OpDyn
	default:
		return OpNoop
	}
}

var (
	// ErrEmptySpan is returned when a span has no operations
	ErrEmptySpan = errors.New("span must contain at least one operation")
	// ErrSpanTooLong is returned when a span exceeds MaxSpanOps
	ErrSpanTooLong = errors.New("span exceeds maximum length")
	// ErrNilBlock is returned when a child block is missing
	ErrNilBlock = errors.New("code block is nil")
)

// CodeBlock is a node of the program tree. The digest is computed once at
// construction and commits to the kind and to the children or operations.
type CodeBlock struct {
	kind     BlockKind
	digest   core.Digest
	children []*CodeBlock
	span     *spanBody
}

type spanBody struct {
	ops        []Operation
	decorators []Decorator
	batches    []OpBatch
	placements []OpPlacement
}

// NewSpan creates a span block
func NewSpan(ops []Operation) (*CodeBlock, error) {
	return NewSpanWithDecorators(ops, nil)
}

// NewSpanWithDecorators creates a span block whose decorators run before
// the operation they index.
func NewSpanWithDecorators(ops []Operation, decorators []Decorator) (*CodeBlock, error) {
	if len(ops) == 0 {
		return nil, ErrEmptySpan
	}
	if len(ops) > MaxSpanOps {
		return nil, fmt.Errorf("%w: %d operations, at most %d", ErrSpanTooLong, len(ops), MaxSpanOps)
	}
	for i, op := range ops {
		if _, err := op.Code.Info(); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		if op.Code.IsControl() {
			return nil, fmt.Errorf("operation %d: control operation %s cannot appear in a span", i, op.Code)
		}
	}
	prev := 0
	for _, d := range decorators {
		if d.OpIndex < prev || d.OpIndex >= len(ops) {
			return nil, fmt.Errorf("decorator %s at index %d is out of order or out of range", d.Kind, d.OpIndex)
		}
		prev = d.OpIndex
	}

	body := &spanBody{
		ops:        append([]Operation(nil), ops...),
		decorators: append([]Decorator(nil), decorators...),
	}
	body.batches, body.placements = batchOps(body.ops)
	return &CodeBlock{
		kind:   SpanBlock,
		digest: spanDigest(len(body.ops), body.batches),
		span:   body,
	}, nil
}

// NewJoin creates a block executing first then second
func NewJoin(first, second *CodeBlock) (*CodeBlock, error) {
	if first == nil || second == nil {
		return nil, ErrNilBlock
	}
	return newControlBlock(JoinBlock, first.digest, second.digest, first, second), nil
}

// NewSplit creates a block executing onTrue when the condition is 1 and
// onFalse when it is 0.
func NewSplit(onTrue, onFalse *CodeBlock) (*CodeBlock, error) {
	if onTrue == nil || onFalse == nil {
		return nil, ErrNilBlock
	}
	return newControlBlock(SplitBlock, onTrue.digest, onFalse.digest, onTrue, onFalse), nil
}

// NewLoop creates a block repeating body while the top of the stack is 1
func NewLoop(body *CodeBlock) (*CodeBlock, error) {
	if body == nil {
		return nil, ErrNilBlock
	}
	return newControlBlock(LoopBlock, body.digest, core.ZeroWord(), body), nil
}

// NewCall creates a block invoking callee in a fresh memory context
func NewCall(callee *CodeBlock) (*CodeBlock, error) {
	if callee == nil {
		return nil, ErrNilBlock
	}
	return newControlBlock(CallBlock, callee.digest, core.ZeroWord(), callee), nil
}

// NewSysCall creates a block invoking a kernel procedure in the root context
func NewSysCall(callee *CodeBlock) (*CodeBlock, error) {
	if callee == nil {
		return nil, ErrNilBlock
	}
	return newControlBlock(SysCallBlock, callee.digest, core.ZeroWord(), callee), nil
}

// NewDyn creates a block calling the procedure whose digest is on top of
// the stack when the block is entered.
func NewDyn() *CodeBlock {
	return newControlBlock(DynBlock, core.ZeroWord(), core.ZeroWord())
}

// NewProxy creates a placeholder for a block stored in a CodeBlockTable
func NewProxy(digest core.Digest) *CodeBlock {
	return &CodeBlock{kind: ProxyBlock, digest: digest}
}

func newControlBlock(kind BlockKind, left, right core.Word, children ...*CodeBlock) *CodeBlock {
	return &CodeBlock{
		kind:     kind,
		digest:   ControlBlockDigest(kind, left, right),
		children: children,
	}
}

// ControlBlockDigest is the digest of a non-span block over its two hasher
// input words.
func ControlBlockDigest(kind BlockKind, left, right core.Word) core.Digest {
	return core.MergeInDomain(left, right, kind.Opcode().Domain())
}

// HasherInputs returns the two words the hasher merges to verify the block
func (b *CodeBlock) HasherInputs() (core.Word, core.Word) {
	switch b.kind {
	case JoinBlock, SplitBlock:
		return b.children[0].digest, b.children[1].digest
	case LoopBlock, CallBlock, SysCallBlock:
		return b.children[0].digest, core.ZeroWord()
	default:
		return core.ZeroWord(), core.ZeroWord()
	}
}

// Kind returns the variant tag
func (b *CodeBlock) Kind() BlockKind {
	return b.kind
}

// Digest returns the recorded digest
func (b *CodeBlock) Digest() core.Digest {
	return b.digest
}

// First returns the first child of a join
func (b *CodeBlock) First() *CodeBlock {
	return b.child(JoinBlock, 0)
}

// Second returns the second child of a join
func (b *CodeBlock) Second() *CodeBlock {
	return b.child(JoinBlock, 1)
}

// OnTrue returns the branch of a split taken on 1
func (b *CodeBlock) OnTrue() *CodeBlock {
	return b.child(SplitBlock, 0)
}

// OnFalse returns the branch of a split taken on 0
func (b *CodeBlock) OnFalse() *CodeBlock {
	return b.child(SplitBlock, 1)
}

// Body returns the body of a loop
func (b *CodeBlock) Body() *CodeBlock {
	return b.child(LoopBlock, 0)
}

// Callee returns the target of a call or syscall
func (b *CodeBlock) Callee() *CodeBlock {
	if b.kind != CallBlock && b.kind != SysCallBlock {
		return nil
	}
	return b.children[0]
}

func (b *CodeBlock) child(kind BlockKind, i int) *CodeBlock {
	if b.kind != kind {
		return nil
	}
	return b.children[i]
}

// Children returns the direct children in execution order
func (b *CodeBlock) Children() []*CodeBlock {
	return append([]*CodeBlock(nil), b.children...)
}

// Ops returns the operations of a span
func (b *CodeBlock) Ops() []Operation {
	if b.span == nil {
		return nil
	}
	return append([]Operation(nil), b.span.ops...)
}

// NumOps returns the number of operations in a span
func (b *CodeBlock) NumOps() int {
	if b.span == nil {
		return 0
	}
	return len(b.span.ops)
}

// Op returns operation i of a span
func (b *CodeBlock) Op(i int) Operation {
	return b.span.ops[i]
}

// Decorators returns the decorators of a span ordered by op index
func (b *CodeBlock) Decorators() []Decorator {
	if b.span == nil {
		return nil
	}
	return append([]Decorator(nil), b.span.decorators...)
}

// Batches returns the op batches of a span
func (b *CodeBlock) Batches() []OpBatch {
	if b.span == nil {
		return nil
	}
	return append([]OpBatch(nil), b.span.batches...)
}

// Placement returns where operation i sits inside the span's batches
func (b *CodeBlock) Placement(i int) OpPlacement {
	return b.span.placements[i]
}

// NumGroups returns the total number of op groups across all batches
func (b *CodeBlock) NumGroups() int {
	if b.span == nil {
		return 0
	}
	n := 0
	for _, batch := range b.span.batches {
		n += batch.NumGroups
	}
	return n
}

// String returns a short description such as "join 0x1234..."
func (b *CodeBlock) String() string {
	return fmt.Sprintf("%s %s", b.kind, b.digest.Hex()[:18])
}

// withDigest returns a shallow copy carrying a recorded digest in place of
// the computed one. It models a commitment shipped alongside the program.
func (b *CodeBlock) withDigest(d core.Digest) *CodeBlock {
	c := *b
	c.digest = d
	return &c
}
