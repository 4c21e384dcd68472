package program

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

// BlockJSON is the document form of a code block. Ops use the String form
// of operations; strings starting with '#' are decorators attached to the
// operation that follows them.
type BlockJSON struct {
	Kind     string       `json:"kind"`
	Ops      []string     `json:"ops,omitempty"`
	Children []*BlockJSON `json:"children,omitempty"`
	Digest   string       `json:"digest,omitempty"`
}

// ProgramJSON is the document form of a program
type ProgramJSON struct {
	Root       *BlockJSON   `json:"root"`
	Kernel     []string     `json:"kernel,omitempty"`
	Procedures []*BlockJSON `json:"procedures,omitempty"`
}

// DecodeProgramJSON parses a program document. A digest given on a node is
// taken as that node's commitment; execution verifies it against the hasher.
func DecodeProgramJSON(data []byte) (*Program, error) {
	var doc ProgramJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("program has no root block")
	}

	root, err := DecodeBlock(doc.Root)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}

	procs := make([]core.Digest, len(doc.Kernel))
	for i, s := range doc.Kernel {
		if procs[i], err = core.ParseHexWord(s); err != nil {
			return nil, fmt.Errorf("kernel procedure %d: %w", i, err)
		}
	}
	kernel, err := NewKernel(procs)
	if err != nil {
		return nil, err
	}

	table := NewCodeBlockTable()
	for i, p := range doc.Procedures {
		block, err := DecodeBlock(p)
		if err != nil {
			return nil, fmt.Errorf("procedure %d: %w", i, err)
		}
		table.Insert(block)
	}
	return NewProgramWithKernel(root, kernel, table)
}

// DecodeBlock converts a block document into a CodeBlock
func DecodeBlock(doc *BlockJSON) (*CodeBlock, error) {
	if doc == nil {
		return nil, ErrNilBlock
	}

	children := make([]*CodeBlock, len(doc.Children))
	for i, c := range doc.Children {
		child, err := DecodeBlock(c)
		if err != nil {
			return nil, fmt.Errorf("%s child %d: %w", doc.Kind, i, err)
		}
		children[i] = child
	}

	var (
		block *CodeBlock
		err   error
	)
	switch doc.Kind {
	case "span":
		block, err = decodeSpan(doc.Ops)
	case "join":
		if err = expectChildren(doc, 2); err == nil {
			block, err = NewJoin(children[0], children[1])
		}
	case "split":
		if err = expectChildren(doc, 2); err == nil {
			block, err = NewSplit(children[0], children[1])
		}
	case "loop":
		if err = expectChildren(doc, 1); err == nil {
			block, err = NewLoop(children[0])
		}
	case "call":
		if err = expectChildren(doc, 1); err == nil {
			block, err = NewCall(children[0])
		}
	case "syscall":
		if err = expectChildren(doc, 1); err == nil {
			block, err = NewSysCall(children[0])
		}
	case "dyn":
		if err = expectChildren(doc, 0); err == nil {
			block = NewDyn()
		}
	case "proxy":
		if doc.Digest == "" {
			return nil, fmt.Errorf("proxy block requires a digest")
		}
		d, err := core.ParseHexWord(doc.Digest)
		if err != nil {
			return nil, err
		}
		return NewProxy(d), nil
	default:
		return nil, fmt.Errorf("unknown block kind %q", doc.Kind)
	}
	if err != nil {
		return nil, err
	}

	if doc.Digest != "" {
		recorded, err := core.ParseHexWord(doc.Digest)
		if err != nil {
			return nil, fmt.Errorf("%s digest: %w", doc.Kind, err)
		}
		if !recorded.Equal(block.digest) {
			block = block.withDigest(recorded)
		}
	}
	return block, nil
}

func expectChildren(doc *BlockJSON, n int) error {
	if len(doc.Children) != n {
		return fmt.Errorf("%s block needs %d children, got %d", doc.Kind, n, len(doc.Children))
	}
	return nil
}

func decodeSpan(items []string) (*CodeBlock, error) {
	ops := make([]Operation, 0, len(items))
	var decorators []Decorator
	for _, item := range items {
		if strings.HasPrefix(item, "#") {
			kind, err := ParseDecorator(item)
			if err != nil {
				return nil, err
			}
			decorators = append(decorators, Decorator{OpIndex: len(ops), Kind: kind})
			continue
		}
		op, err := ParseOperation(item)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return NewSpanWithDecorators(ops, decorators)
}

// EncodeProgramJSON renders a program document with every digest filled in.
// Table blocks that do not appear in the root tree are written as
// procedures so that proxies and Dyn targets still resolve once decoded.
func EncodeProgramJSON(p *Program) ([]byte, error) {
	doc := ProgramJSON{Root: EncodeBlock(p.root)}
	for _, d := range p.kernel.Procedures() {
		doc.Kernel = append(doc.Kernel, d.Hex())
	}

	inTree := make(map[core.Digest]bool)
	collectDigests(p.root, inTree)
	for _, b := range p.table.Blocks() {
		if !inTree[b.digest] {
			doc.Procedures = append(doc.Procedures, EncodeBlock(b))
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

func collectDigests(b *CodeBlock, seen map[core.Digest]bool) {
	if b.kind != ProxyBlock {
		seen[b.digest] = true
	}
	for _, c := range b.children {
		collectDigests(c, seen)
	}
}

// EncodeBlock converts a CodeBlock into its document form
func EncodeBlock(b *CodeBlock) *BlockJSON {
	doc := &BlockJSON{Kind: b.kind.String(), Digest: b.digest.Hex()}
	if b.span != nil {
		next := 0
		for i, op := range b.span.ops {
			for next < len(b.span.decorators) && b.span.decorators[next].OpIndex == i {
				doc.Ops = append(doc.Ops, b.span.decorators[next].Kind.String())
				next++
			}
			doc.Ops = append(doc.Ops, op.String())
		}
	}
	for _, c := range b.children {
		doc.Children = append(doc.Children, EncodeBlock(c))
	}
	return doc
}
