package vm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
)

// callContext is the caller state saved when a call, dyn or syscall
// switches context, and restored at the matching END.
type callContext struct {
	ctx          uint64
	fmp          field.Element
	inSyscall    bool
	fnHash       core.Word
	depth        int
	overflowAddr uint64
}

// blockInfo is an entry of the decoder's block stack
type blockInfo struct {
	kind        program.BlockKind
	addr        uint64
	parentAddr  uint64
	digest      core.Digest
	returnAddr  uint64
	isLoopBody  bool
	loopEntered bool
	call        *callContext
}

// Decoder records one row per executed cycle. Control rows carry the
// hasher inputs of the block being entered, END rows the block digest and
// its flags, and operation rows the op-group state of the running span.
type Decoder struct {
	blocks []blockInfo
	cols   [DecoderTraceWidth][]field.Element
}

// NewDecoder creates an empty decoder
func NewDecoder(expectedCycles int) *Decoder {
	d := &Decoder{}
	for i := range d.cols {
		d.cols[i] = make([]field.Element, 0, expectedCycles)
	}
	return d
}

func (d *Decoder) pushBlock(b blockInfo) {
	d.blocks = append(d.blocks, b)
}

func (d *Decoder) popBlock() blockInfo {
	b := d.blocks[len(d.blocks)-1]
	d.blocks = d.blocks[:len(d.blocks)-1]
	return b
}

func (d *Decoder) appendRow(op program.OpCode, addr uint64, h [NumHelpers]field.Element, inSpan bool, groupCount, opIndex uint64) {
	c := 0
	d.cols[c] = append(d.cols[c], field.New(addr))
	c++
	for bit := 0; bit < NumOpBits; bit++ {
		d.cols[c] = append(d.cols[c], field.New(uint64(op>>bit)&1))
		c++
	}
	for _, v := range h {
		d.cols[c] = append(d.cols[c], v)
		c++
	}
	d.cols[c] = append(d.cols[c], boolElement(inSpan))
	d.cols[c+1] = append(d.cols[c+1], field.New(groupCount))
	d.cols[c+2] = append(d.cols[c+2], field.New(opIndex))
}

func zeroHelpers() [NumHelpers]field.Element {
	var h [NumHelpers]field.Element
	for i := range h {
		h[i] = field.Zero
	}
	return h
}

func wordHelpers(first, second core.Word) [NumHelpers]field.Element {
	var h [NumHelpers]field.Element
	copy(h[:4], first[:])
	copy(h[4:], second[:])
	return h
}

// startControl records the row opening a join, split, loop, call, syscall
// or dyn block; addr is the hasher address of the new block.
func (d *Decoder) startControl(op program.OpCode, addr uint64, first, second core.Word) {
	d.appendRow(op, addr, wordHelpers(first, second), false, 0, 0)
}

// startSpan records the SPAN row with the first batch of op groups
func (d *Decoder) startSpan(addr uint64, groups [program.BatchSize]field.Element, totalGroups int) {
	var h [NumHelpers]field.Element
	copy(h[:], groups[:])
	d.appendRow(program.OpSpan, addr, h, false, uint64(totalGroups), 0)
}

// respan records the row absorbing the next batch of a span
func (d *Decoder) respan(addr uint64, groups [program.BatchSize]field.Element, groupCount int) {
	var h [NumHelpers]field.Element
	copy(h[:], groups[:])
	d.appendRow(program.OpRespan, addr, h, false, uint64(groupCount), 0)
}

// userOp records the row of an operation inside a span. h0 holds the
// remaining opcodes of the group and h1 the address of the enclosing block.
func (d *Decoder) userOp(op program.Operation, addr, parentAddr uint64, placement program.OpPlacement, groupCount int) {
	h := zeroHelpers()
	h[0] = placement.Remainder
	h[1] = field.New(parentAddr)
	d.appendRow(op.Code, addr, h, true, uint64(groupCount), uint64(placement.IndexInGroup))
}

// setUserOpHelpers fills h2..h7 of the last recorded row
func (d *Decoder) setUserOpHelpers(values ...field.Element) {
	last := len(d.cols[0]) - 1
	for i, v := range values[:min(len(values), NumUserOpHelpers)] {
		d.cols[UserOpHelperOffset-DecoderTraceOffset+i][last] = v
	}
}

// repeat records the REPEAT row starting another loop iteration
func (d *Decoder) repeat(addr uint64, body core.Digest) {
	h := zeroHelpers()
	copy(h[:4], body[:])
	h[4] = field.One
	d.appendRow(program.OpRepeat, addr, h, false, 0, 0)
}

// end records the END row of a block
func (d *Decoder) end(b blockInfo) {
	var h [NumHelpers]field.Element
	copy(h[:4], b.digest[:])
	h[4] = boolElement(b.isLoopBody)
	h[5] = boolElement(b.kind == program.LoopBlock && b.loopEntered)
	h[6] = boolElement(b.kind == program.CallBlock || b.kind == program.DynBlock)
	h[7] = boolElement(b.kind == program.SysCallBlock)
	d.appendRow(program.OpEnd, b.addr, h, false, 0, 0)
}

// halt records the final HALT row carrying the program digest
func (d *Decoder) halt(programHash core.Digest) {
	h := zeroHelpers()
	copy(h[:4], programHash[:])
	d.appendRow(program.OpHalt, 0, h, false, 0, 0)
}

// TraceLen returns the number of recorded rows
func (d *Decoder) TraceLen() int {
	return len(d.cols[0])
}

// fillTrace copies the decoder columns and repeats the HALT row
func (d *Decoder) fillTrace(dst [][]field.Element) {
	n := len(d.cols[0])
	for c, col := range d.cols {
		out := dst[DecoderTraceOffset+c]
		copy(out, col)
		for r := n; r < len(out); r++ {
			out[r] = col[n-1]
		}
	}
}
