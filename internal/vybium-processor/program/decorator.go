package program

import "fmt"

// DecoratorKind identifies an advice injector
type DecoratorKind uint8

const (
	// AdvPushMapVal pushes the advice map entry keyed by the top stack
	// word onto the advice stack.
	AdvPushMapVal DecoratorKind = iota + 1

	// AdvPushMerkleNode reads [d, i, R] from the stack and pushes the node
	// at depth d, index i of tree R onto the advice stack.
	AdvPushMerkleNode
)

var decoratorNames = map[DecoratorKind]string{
	AdvPushMapVal:     "#adv.push_mapval",
	AdvPushMerkleNode: "#adv.push_mtnode",
}

// String returns the textual form of the decorator
func (k DecoratorKind) String() string {
	if name, ok := decoratorNames[k]; ok {
		return name
	}
	return fmt.Sprintf("#unknown(%d)", uint8(k))
}

// Decorator runs before the operation at OpIndex without taking a cycle
type Decorator struct {
	OpIndex int
	Kind    DecoratorKind
}

// ParseDecorator parses the String form of a decorator kind
func ParseDecorator(s string) (DecoratorKind, error) {
	for kind, name := range decoratorNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown decorator: %s", s)
}
