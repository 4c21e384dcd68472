package vm

import (
	"fmt"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
)

// executeDecorator injects advice ahead of the next operation. Decorators
// take no cycle and leave no trace row.
func (p *Process) executeDecorator(kind program.DecoratorKind) error {
	switch kind {
	case program.AdvPushMapVal:
		key := p.stack.GetWord(0)
		values, err := p.advice.GetMapValue(key)
		if err != nil {
			return newError(AdviceProviderMiss, p.system.Clk(), "%s", kind).withCause(err)
		}
		p.advice.PushStack(values...)

	case program.AdvPushMerkleNode:
		depth, index, err := p.merkleParams(0, 1)
		if err != nil {
			return err
		}
		root := core.Word{p.stack.Get(5), p.stack.Get(4), p.stack.Get(3), p.stack.Get(2)}
		node, err := p.advice.GetTreeNode(root, depth, index)
		if err != nil {
			return newError(AdviceProviderMiss, p.system.Clk(), "%s", kind).withCause(err)
		}
		p.advice.PushStack(node.Elements()...)

	default:
		return fmt.Errorf("unknown decorator %s", kind)
	}
	p.adviceLog.Debug("ran decorator", "kind", kind.String(), "clk", p.system.Clk())
	return nil
}
