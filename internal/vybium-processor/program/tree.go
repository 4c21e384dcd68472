package program

import (
	"fmt"
	"strings"

	"github.com/xlab/treeprint"
)

// Tree renders the block and its descendants
func (b *CodeBlock) Tree() treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue(b.label())
	b.addChildren(tree)
	return tree
}

func (b *CodeBlock) addChildren(node treeprint.Tree) {
	for _, child := range b.children {
		if len(child.children) == 0 {
			node.AddNode(child.label())
			continue
		}
		child.addChildren(node.AddBranch(child.label()))
	}
}

func (b *CodeBlock) label() string {
	short := b.digest.Hex()[:18]
	if b.kind != SpanBlock {
		return fmt.Sprintf("%s %s", b.kind, short)
	}
	const maxShown = 8
	names := make([]string, 0, maxShown+1)
	for i, op := range b.span.ops {
		if i == maxShown {
			names = append(names, fmt.Sprintf("... (+%d)", len(b.span.ops)-maxShown))
			break
		}
		names = append(names, op.String())
	}
	return fmt.Sprintf("span %s [%s]", short, strings.Join(names, " "))
}
