package vm

// Column layout of the main trace. Groups are laid out left to right in
// the order system, decoder, stack, range checker, chiplets.
const (
	// System: clk, fmp, ctx, in_syscall, fn_hash[4]
	SysTraceOffset  = 0
	SysTraceWidth   = 8
	ClkColIdx       = SysTraceOffset
	FmpColIdx       = SysTraceOffset + 1
	CtxColIdx       = SysTraceOffset + 2
	InSyscallColIdx = SysTraceOffset + 3
	FnHashOffset    = SysTraceOffset + 4

	// Decoder: addr, op_bits[7], h[8], in_span, group_count, op_index
	DecoderTraceOffset = SysTraceOffset + SysTraceWidth
	DecoderTraceWidth  = 19
	DecoderAddrColIdx  = DecoderTraceOffset
	OpBitsOffset       = DecoderTraceOffset + 1
	NumOpBits          = 7
	HelperOffset       = OpBitsOffset + NumOpBits
	NumHelpers         = 8
	InSpanColIdx       = HelperOffset + NumHelpers
	GroupCountColIdx   = InSpanColIdx + 1
	OpIndexColIdx      = GroupCountColIdx + 1

	// First helper register available to user operations
	UserOpHelperOffset = HelperOffset + 2
	NumUserOpHelpers   = NumHelpers - 2

	// Stack: s[16], b0 (depth), b1 (overflow address), h0
	StackTraceOffset = DecoderTraceOffset + DecoderTraceWidth
	StackTraceWidth  = 19
	StackTopSize     = 16
	B0ColIdx         = StackTraceOffset + StackTopSize
	B1ColIdx         = B0ColIdx + 1
	StackH0ColIdx    = B1ColIdx + 1

	// Range checker: multiplicity, value
	RangeTraceOffset = StackTraceOffset + StackTraceWidth
	RangeTraceWidth  = 2
	RangeMultColIdx  = RangeTraceOffset
	RangeValueColIdx = RangeTraceOffset + 1

	// Chiplets: selector columns followed by the chiplet payload
	ChipletsTraceOffset = RangeTraceOffset + RangeTraceWidth
	ChipletsTraceWidth  = 17

	MainTraceWidth = ChipletsTraceOffset + ChipletsTraceWidth

	// NumRandRows is the number of rows reserved at the end of the trace
	NumRandRows = 1
)

// Offsets inside the chiplets segment. Column 0 separates the hasher (0)
// from the other chiplets (1).
const (
	// Hasher: [0, s0, s1, s2, state[12], node_index]
	HasherSelectorOffset = 1
	HasherStateOffset    = 4
	HasherNodeIndexIdx   = 16

	// Memory: [1, 0, is_read, 0, ctx, addr, clk, v[4], d0, d1, d_inv]
	MemoryIsReadIdx = 2
	MemoryCtxIdx    = 4
	MemoryAddrIdx   = 5
	MemoryClkIdx    = 6
	MemoryValueIdx  = 7
	MemoryD0Idx     = 11
	MemoryD1Idx     = 12
	MemoryDInvIdx   = 13

	// Kernel ROM: [1, 1, 0, first_row, idx, r[4]]
	KernelFirstRowIdx = 3
	KernelIdxIdx      = 4
	KernelRootIdx     = 5
)
