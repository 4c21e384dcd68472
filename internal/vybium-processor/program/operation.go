// Package program defines the operation set and the code-block tree the
// processor executes.
package program

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// OpCode identifies an operation. Opcodes fit in 7 bits so that nine of
// them pack into one op group.
type OpCode uint8

// OpCodeBits is the width of an opcode inside an op group
const OpCodeBits = 7

const (
	// ========== System ==========

	// OpNoop does nothing for one cycle
	OpNoop OpCode = 0
	// OpAssert pops the top element, which must be 1
	OpAssert OpCode = 1
	// OpFmpAdd adds the free memory pointer to the top element
	OpFmpAdd OpCode = 2
	// OpFmpUpdate pops the top element and adds it to the free memory pointer
	OpFmpUpdate OpCode = 3
	// OpSDepth pushes the current stack depth
	OpSDepth OpCode = 4
	// OpCaller overwrites the top word with the caller's procedure digest
	OpCaller OpCode = 5
	// OpClk pushes the current clock cycle
	OpClk OpCode = 6

	// ========== Field arithmetic ==========

	OpAdd  OpCode = 7
	OpNeg  OpCode = 8
	OpMul  OpCode = 9
	OpInv  OpCode = 10
	OpIncr OpCode = 11
	OpAnd  OpCode = 12
	OpOr   OpCode = 13
	OpNot  OpCode = 14
	OpEq   OpCode = 15
	OpEqz  OpCode = 16

	// ========== U32 arithmetic ==========

	OpU32Split   OpCode = 17
	OpU32Add     OpCode = 18
	OpU32Sub     OpCode = 19
	OpU32Mul     OpCode = 20
	OpU32Div     OpCode = 21
	OpU32Assert2 OpCode = 22

	// ========== Stack manipulation ==========

	OpPush   OpCode = 23
	OpPad    OpCode = 24
	OpDrop   OpCode = 25
	OpDropW  OpCode = 26
	OpDup    OpCode = 27
	OpDupW   OpCode = 28
	OpSwap   OpCode = 29
	OpSwapW  OpCode = 30
	OpSwapDW OpCode = 31
	OpMovUp  OpCode = 32
	OpMovDn  OpCode = 33
	OpCSwap  OpCode = 34
	OpCSwapW OpCode = 35

	// ========== Memory and advice ==========

	OpMLoad   OpCode = 36
	OpMLoadW  OpCode = 37
	OpMStore  OpCode = 38
	OpMStoreW OpCode = 39
	OpMStream OpCode = 40
	OpAdvPop  OpCode = 41
	OpAdvPopW OpCode = 42

	// ========== Cryptographic ==========

	OpHPerm    OpCode = 43
	OpMpVerify OpCode = 44
	OpMrUpdate OpCode = 45

	// ========== Control flow (decoder only) ==========

	OpSpan    OpCode = 80
	OpRespan  OpCode = 81
	OpJoin    OpCode = 82
	OpSplit   OpCode = 83
	OpLoop    OpCode = 84
	OpRepeat  OpCode = 85
	OpCall    OpCode = 86
	OpSysCall OpCode = 87
	OpDyn     OpCode = 88
	OpEnd     OpCode = 89
	OpHalt    OpCode = 90
)

// OpInfo provides metadata about an operation
type OpInfo struct {
	Code        OpCode
	Name        string
	Description string
	StackEffect int  // Net effect on stack depth
	HasImm      bool // Whether the operation carries an immediate value
	Control     bool // Whether only the decoder may emit it
}

// AllOperations describes every opcode
var AllOperations = map[OpCode]OpInfo{
	// System
	OpNoop:      {OpNoop, "noop", "No operation", 0, false, false},
	OpAssert:    {OpAssert, "assert", "Pop top, fail unless it is 1", -1, false, false},
	OpFmpAdd:    {OpFmpAdd, "fmpadd", "Add free memory pointer to top", 0, false, false},
	OpFmpUpdate: {OpFmpUpdate, "fmpupdate", "Pop top into free memory pointer", -1, false, false},
	OpSDepth:    {OpSDepth, "sdepth", "Push stack depth", 1, false, false},
	OpCaller:    {OpCaller, "caller", "Overwrite top word with caller digest", 0, false, false},
	OpClk:       {OpClk, "clk", "Push clock cycle", 1, false, false},

	// Field arithmetic
	OpAdd:  {OpAdd, "add", "Add top two elements", -1, false, false},
	OpNeg:  {OpNeg, "neg", "Negate top element", 0, false, false},
	OpMul:  {OpMul, "mul", "Multiply top two elements", -1, false, false},
	OpInv:  {OpInv, "inv", "Multiplicative inverse of top", 0, false, false},
	OpIncr: {OpIncr, "incr", "Increment top", 0, false, false},
	OpAnd:  {OpAnd, "and", "Boolean AND", -1, false, false},
	OpOr:   {OpOr, "or", "Boolean OR", -1, false, false},
	OpNot:  {OpNot, "not", "Boolean NOT", 0, false, false},
	OpEq:   {OpEq, "eq", "Equality of top two", -1, false, false},
	OpEqz:  {OpEqz, "eqz", "Top equals zero", 0, false, false},

	// U32 arithmetic
	OpU32Split:   {OpU32Split, "u32split", "Split top into high and low 32 bits", 1, false, false},
	OpU32Add:     {OpU32Add, "u32add", "Add with carry", 0, false, false},
	OpU32Sub:     {OpU32Sub, "u32sub", "Subtract with borrow", 0, false, false},
	OpU32Mul:     {OpU32Mul, "u32mul", "Multiply into high and low words", 0, false, false},
	OpU32Div:     {OpU32Div, "u32div", "Quotient and remainder", 0, false, false},
	OpU32Assert2: {OpU32Assert2, "u32assert2", "Assert top two are u32", 0, false, false},

	// Stack manipulation
	OpPush:   {OpPush, "push", "Push immediate", 1, true, false},
	OpPad:    {OpPad, "pad", "Push zero", 1, false, false},
	OpDrop:   {OpDrop, "drop", "Remove top", -1, false, false},
	OpDropW:  {OpDropW, "dropw", "Remove top word", -4, false, false},
	OpDup:    {OpDup, "dup", "Copy stack[n] to top", 1, true, false},
	OpDupW:   {OpDupW, "dupw", "Copy word n to top", 4, true, false},
	OpSwap:   {OpSwap, "swap", "Swap top two", 0, false, false},
	OpSwapW:  {OpSwapW, "swapw", "Swap word 0 with word n", 0, true, false},
	OpSwapDW: {OpSwapDW, "swapdw", "Swap words 0,1 with words 2,3", 0, false, false},
	OpMovUp:  {OpMovUp, "movup", "Move stack[n] to top", 0, true, false},
	OpMovDn:  {OpMovDn, "movdn", "Move top to stack[n]", 0, true, false},
	OpCSwap:  {OpCSwap, "cswap", "Conditionally swap top two", -1, false, false},
	OpCSwapW: {OpCSwapW, "cswapw", "Conditionally swap top two words", -1, false, false},

	// Memory and advice
	OpMLoad:   {OpMLoad, "mload", "Load element from memory", 0, false, false},
	OpMLoadW:  {OpMLoadW, "mloadw", "Load word from memory", -1, false, false},
	OpMStore:  {OpMStore, "mstore", "Store element to memory", -1, false, false},
	OpMStoreW: {OpMStoreW, "mstorew", "Store word to memory", -1, false, false},
	OpMStream: {OpMStream, "mstream", "Load two words at stack[12]", 0, false, false},
	OpAdvPop:  {OpAdvPop, "adv_pop", "Push from advice stack", 1, false, false},
	OpAdvPopW: {OpAdvPopW, "adv_popw", "Overwrite top word from advice stack", 0, false, false},

	// Cryptographic
	OpHPerm:    {OpHPerm, "hperm", "Permute top 12 elements", 0, false, false},
	OpMpVerify: {OpMpVerify, "mpverify", "Verify Merkle path from advice", 0, false, false},
	OpMrUpdate: {OpMrUpdate, "mrupdate", "Update Merkle leaf", 0, false, false},

	// Control flow
	OpSpan:    {OpSpan, "span", "Start span block", 0, false, true},
	OpRespan:  {OpRespan, "respan", "Start next op batch", 0, false, true},
	OpJoin:    {OpJoin, "join", "Start join block", 0, false, true},
	OpSplit:   {OpSplit, "split", "Start split block", -1, false, true},
	OpLoop:    {OpLoop, "loop", "Start loop block", -1, false, true},
	OpRepeat:  {OpRepeat, "repeat", "Repeat loop body", -1, false, true},
	OpCall:    {OpCall, "call", "Start call block", 0, false, true},
	OpSysCall: {OpSysCall, "syscall", "Start syscall block", 0, false, true},
	OpDyn:     {OpDyn, "dyn", "Start dynamic call", -4, false, true},
	OpEnd:     {OpEnd, "end", "End block", 0, false, true},
	OpHalt:    {OpHalt, "halt", "Halted padding row", 0, false, true},
}

var opsByName = func() map[string]OpCode {
	m := make(map[string]OpCode, len(AllOperations))
	for code, info := range AllOperations {
		m[info.Name] = code
	}
	return m
}()

// String returns the name of the opcode
func (c OpCode) String() string {
	if info, ok := AllOperations[c]; ok {
		return info.Name
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// Info returns metadata about the opcode
func (c OpCode) Info() (OpInfo, error) {
	info, ok := AllOperations[c]
	if !ok {
		return OpInfo{}, fmt.Errorf("unknown opcode: %d", uint8(c))
	}
	return info, nil
}

// HasImm reports whether the opcode carries an immediate
func (c OpCode) HasImm() bool {
	return AllOperations[c].HasImm
}

// IsControl reports whether the opcode is a decoder control marker
func (c OpCode) IsControl() bool {
	return AllOperations[c].Control
}

// Domain returns the hash domain separator of a control opcode
func (c OpCode) Domain() field.Element {
	return field.New(uint64(c))
}

// Operation is a single instruction with its optional immediate
type Operation struct {
	Code OpCode
	Imm  field.Element
}

// Op returns an operation without an immediate
func Op(code OpCode) Operation {
	return Operation{Code: code, Imm: field.Zero}
}

// Push returns a push of the given value
func Push(value uint64) Operation {
	return Operation{Code: OpPush, Imm: field.New(value)}
}

// PushElement returns a push of the given element
func PushElement(value field.Element) Operation {
	return Operation{Code: OpPush, Imm: value}
}

// WithParam returns a parameterised stack operation such as dup.3
func WithParam(code OpCode, n uint64) Operation {
	return Operation{Code: code, Imm: field.New(n)}
}

// HasImm reports whether the operation carries an immediate
func (op Operation) HasImm() bool {
	return op.Code.HasImm()
}

// String renders the operation as name or name.imm
func (op Operation) String() string {
	if op.HasImm() {
		return fmt.Sprintf("%s.%d", op.Code, op.Imm.Value())
	}
	return op.Code.String()
}

// ParseOperation parses the String form of a non-control operation
func ParseOperation(s string) (Operation, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(s), ".")
	code, ok := opsByName[name]
	if !ok {
		return Operation{}, fmt.Errorf("unknown operation: %s", s)
	}
	if code.IsControl() {
		return Operation{}, fmt.Errorf("control operation %s cannot appear in a span", name)
	}
	if code.HasImm() != hasArg {
		if hasArg {
			return Operation{}, fmt.Errorf("operation %s takes no immediate", name)
		}
		return Operation{}, fmt.Errorf("operation %s requires an immediate", name)
	}
	if !hasArg {
		return Op(code), nil
	}
	v, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return Operation{}, fmt.Errorf("invalid immediate in %s: %w", s, err)
	}
	if v >= field.P {
		return Operation{}, fmt.Errorf("immediate %d in %s is not a canonical field element", v, s)
	}
	return Operation{Code: code, Imm: field.New(v)}, nil
}
