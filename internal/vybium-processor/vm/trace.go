package vm

import (
	"encoding/binary"
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
	"github.com/vybium/vybium-processor/internal/vybium-processor/program"
	"github.com/vybium/vybium-processor/internal/vybium-processor/utils"
)

// ProgramInfo identifies the program a trace was produced for
type ProgramInfo struct {
	ProgramHash core.Digest
	Kernel      program.Kernel
}

// TraceLenSummary records the unpadded length of each trace segment
type TraceLenSummary struct {
	Main     int
	Chiplets int
	Range    int
	Padded   int
}

// ExecutionTrace is the columnar record of one execution. Its row count is
// a power of two; rows past the last real cycle repeat the halted state.
type ExecutionTrace struct {
	columns [][]field.Element
	info    ProgramInfo
	outputs core.StackOutputs
	lengths TraceLenSummary

	bus           *ChipletsBus
	rangeRequests []uint64
	overflowRows  []OverflowRow
}

func buildTrace(p *Process) (*ExecutionTrace, error) {
	if err := p.chiplets.Memory.addRangeChecks(p.rangeChecker); err != nil {
		return nil, err
	}

	lengths := TraceLenSummary{
		Main:     p.decoder.TraceLen(),
		Chiplets: p.chiplets.TraceLen(),
		Range:    p.rangeChecker.TraceLen(),
	}
	if p.system.TraceLen() != lengths.Main || p.stack.TraceLen() != lengths.Main {
		return nil, fmt.Errorf("main trace segments disagree: system %d, decoder %d, stack %d",
			p.system.TraceLen(), lengths.Main, p.stack.TraceLen())
	}
	lengths.Padded = utils.NextPowerOfTwo(max(lengths.Main, lengths.Chiplets, lengths.Range) + NumRandRows)

	columns := make([][]field.Element, MainTraceWidth)
	for i := range columns {
		columns[i] = make([]field.Element, lengths.Padded)
		for r := range columns[i] {
			columns[i][r] = field.Zero
		}
	}

	p.system.fillTrace(columns)
	p.decoder.fillTrace(columns)
	p.stack.fillTrace(columns)
	p.chiplets.fillTrace(columns)
	p.rangeChecker.fillTrace(columns)

	return &ExecutionTrace{
		columns:       columns,
		info:          ProgramInfo{ProgramHash: p.program.Hash(), Kernel: p.program.Kernel()},
		outputs:       p.outputs,
		lengths:       lengths,
		bus:           p.chiplets.Bus(),
		rangeRequests: p.rangeChecker.Requests(),
		overflowRows:  p.stack.OverflowHistory(),
	}, nil
}

// NumRows returns the padded row count
func (t *ExecutionTrace) NumRows() int {
	return t.lengths.Padded
}

// Width returns the number of columns
func (t *ExecutionTrace) Width() int {
	return len(t.columns)
}

// Column returns column i
func (t *ExecutionTrace) Column(i int) []field.Element {
	return t.columns[i]
}

// Columns returns every column
func (t *ExecutionTrace) Columns() [][]field.Element {
	return t.columns
}

// Row copies row i across all columns
func (t *ExecutionTrace) Row(i int) []field.Element {
	row := make([]field.Element, len(t.columns))
	for c, col := range t.columns {
		row[c] = col[i]
	}
	return row
}

// ProgramInfo returns the program digest and kernel
func (t *ExecutionTrace) ProgramInfo() ProgramInfo {
	return t.info
}

// StackOutputs returns the final stack
func (t *ExecutionTrace) StackOutputs() core.StackOutputs {
	return t.outputs
}

// Lengths returns the unpadded segment lengths
func (t *ExecutionTrace) Lengths() TraceLenSummary {
	return t.lengths
}

// GetUserOpHelpersAt returns the helper registers h2..h7 at clk
func (t *ExecutionTrace) GetUserOpHelpersAt(clk uint64) []field.Element {
	out := make([]field.Element, NumUserOpHelpers)
	for i := range out {
		out[i] = t.columns[UserOpHelperOffset+i][clk]
	}
	return out
}

// ChipletsBus returns the chiplet lookup messages
func (t *ExecutionTrace) ChipletsBus() *ChipletsBus {
	return t.bus
}

// RangeChecks returns every value sent to the range checker
func (t *ExecutionTrace) RangeChecks() []uint64 {
	return append([]uint64(nil), t.rangeRequests...)
}

// OverflowRows returns every stack overflow row created during execution,
// in creation order. Rows spilled inside a call start a new chain at
// Prev 0.
func (t *ExecutionTrace) OverflowRows() []OverflowRow {
	return append([]OverflowRow(nil), t.overflowRows...)
}

// Fingerprint hashes every column, in order, with SHA3-256. Elements are
// written as 8-byte little-endian values.
func (t *ExecutionTrace) Fingerprint() [32]byte {
	h := sha3.New256()
	var buf [8]byte
	for _, col := range t.columns {
		for _, v := range col {
			binary.LittleEndian.PutUint64(buf[:], v.Value())
			h.Write(buf[:])
		}
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// CheckBuses verifies that the chiplet bus and the range-check lookups
// balance. The challenges are drawn from a transcript seeded with the
// trace fingerprint.
func (t *ExecutionTrace) CheckBuses() error {
	fp := t.Fingerprint()
	ch := utils.NewChannel()
	ch.Send(fp[:])

	alphas := ch.ReceiveRandomElements(MaxMessageWidth)
	if !t.bus.Balanced(alphas) {
		return fmt.Errorf("chiplets bus is not balanced: %d requests, %d responses",
			len(t.bus.Requests()), len(t.bus.Responses()))
	}
	alpha := ch.ReceiveRandomElement()
	if !rangeBalanced(t.rangeRequests, t.columns[RangeMultColIdx], t.columns[RangeValueColIdx], alpha) {
		return fmt.Errorf("range checker lookups are not balanced")
	}
	return nil
}
