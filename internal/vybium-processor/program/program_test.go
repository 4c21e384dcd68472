package program

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

func mustSpan(t *testing.T, ops ...Operation) *CodeBlock {
	t.Helper()
	b, err := NewSpan(ops)
	require.NoError(t, err)
	return b
}

func TestOperationTable(t *testing.T) {
	for code, info := range AllOperations {
		assert.Equal(t, code, info.Code, "table entry for %s", info.Name)
		assert.Less(t, uint8(code), uint8(1<<OpCodeBits), "%s does not fit in 7 bits", info.Name)
	}
	assert.Equal(t, "mstorew", OpMStoreW.String())
	assert.Equal(t, "unknown(127)", OpCode(127).String())
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		in      string
		want    Operation
		wantErr bool
	}{
		{in: "add", want: Op(OpAdd)},
		{in: "push.42", want: Push(42)},
		{in: "dup.3", want: WithParam(OpDup, 3)},
		{in: "push", wantErr: true},
		{in: "add.1", wantErr: true},
		{in: "join", wantErr: true},
		{in: "frobnicate", wantErr: true},
		{in: "push.18446744069414584321", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperation(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestBatchOps(t *testing.T) {
	t.Run("nine ops per group", func(t *testing.T) {
		ops := make([]Operation, 10)
		for i := range ops {
			ops[i] = Op(OpAdd)
		}
		span := mustSpan(t, ops...)
		batches := span.Batches()
		require.Len(t, batches, 1)
		assert.Equal(t, 2, batches[0].NumGroups)
		assert.Equal(t, 0, span.Placement(8).Group)
		assert.Equal(t, 8, span.Placement(8).IndexInGroup)
		assert.Equal(t, 1, span.Placement(9).Group)
		assert.Equal(t, 0, span.Placement(9).IndexInGroup)
	})

	t.Run("immediates take their own group", func(t *testing.T) {
		span := mustSpan(t, Push(7), Op(OpAdd), Push(9))
		batch := span.Batches()[0]
		assert.Equal(t, 3, batch.NumGroups)
		assert.Equal(t, field.New(7), batch.Groups[1])
		assert.Equal(t, field.New(9), batch.Groups[2])

		g := uint64(OpPush) | uint64(OpAdd)<<7 | uint64(OpPush)<<14
		assert.Equal(t, field.New(g), batch.Groups[0])
		assert.Equal(t, field.New(g>>7), span.Placement(0).Remainder)
		assert.Equal(t, field.New(uint64(0)), span.Placement(2).Remainder)
	})

	t.Run("batches roll over", func(t *testing.T) {
		ops := make([]Operation, 0, 12)
		for i := 0; i < 12; i++ {
			ops = append(ops, Push(uint64(i)))
		}
		span := mustSpan(t, ops...)
		batches := span.Batches()
		require.Len(t, batches, 2)
		// one op group plus seven immediates fill the first batch
		assert.Equal(t, 8, batches[0].NumGroups)
		assert.Equal(t, 1, span.Placement(7).Batch)
		assert.Equal(t, 14, span.NumGroups())
	})
}

func TestSpanValidation(t *testing.T) {
	_, err := NewSpan(nil)
	assert.ErrorIs(t, err, ErrEmptySpan)

	_, err = NewSpan([]Operation{Op(OpJoin)})
	assert.Error(t, err)

	_, err = NewSpan(make([]Operation, MaxSpanOps+1))
	assert.ErrorIs(t, err, ErrSpanTooLong)

	_, err = NewSpanWithDecorators([]Operation{Op(OpAdd)}, []Decorator{{OpIndex: 1, Kind: AdvPushMapVal}})
	assert.Error(t, err)
}

func TestDigestDeterminism(t *testing.T) {
	a := mustSpan(t, Push(1), Op(OpAdd))
	b := mustSpan(t, Push(1), Op(OpAdd))
	assert.Equal(t, a.Digest(), b.Digest())

	c := mustSpan(t, Push(2), Op(OpAdd))
	assert.NotEqual(t, a.Digest(), c.Digest())

	trailingNoop := mustSpan(t, Push(1), Op(OpAdd), Op(OpNoop))
	assert.NotEqual(t, a.Digest(), trailingNoop.Digest())

	j1, err := NewJoin(a, c)
	require.NoError(t, err)
	j2, err := NewJoin(b, c)
	require.NoError(t, err)
	assert.Equal(t, j1.Digest(), j2.Digest())

	swapped, err := NewJoin(c, a)
	require.NoError(t, err)
	assert.NotEqual(t, j1.Digest(), swapped.Digest())

	split, err := NewSplit(a, c)
	require.NoError(t, err)
	assert.NotEqual(t, j1.Digest(), split.Digest(), "kinds are domain separated")

	call, err := NewCall(a)
	require.NoError(t, err)
	sys, err := NewSysCall(a)
	require.NoError(t, err)
	assert.NotEqual(t, call.Digest(), sys.Digest())
	assert.Equal(t, ControlBlockDigest(CallBlock, a.Digest(), core.ZeroWord()), call.Digest())
}

func TestProgramRegistersCallees(t *testing.T) {
	proc := mustSpan(t, Op(OpIncr))
	call, err := NewCall(proc)
	require.NoError(t, err)
	prog, err := NewProgram(call)
	require.NoError(t, err)

	got, ok := prog.Table().Get(proc.Digest())
	require.True(t, ok)
	assert.Same(t, proc, got)

	resolved, ok := prog.Resolve(NewProxy(proc.Digest()))
	require.True(t, ok)
	assert.Same(t, proc, resolved)

	_, ok = prog.Resolve(NewProxy(core.NewWord(1, 2, 3, 4)))
	assert.False(t, ok)

	_, err = NewProgram(NewProxy(proc.Digest()))
	assert.Error(t, err)
}

func TestKernel(t *testing.T) {
	d1 := core.NewWord(1, 0, 0, 0)
	d2 := core.NewWord(2, 0, 0, 0)
	k, err := NewKernel([]core.Digest{d1, d2})
	require.NoError(t, err)
	assert.True(t, k.Contains(d2))
	idx, ok := k.ProcIndex(d2)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.False(t, k.Contains(core.NewWord(3, 0, 0, 0)))

	_, err = NewKernel([]core.Digest{d1, d1})
	assert.Error(t, err)
}

func TestCodecRoundTrip(t *testing.T) {
	body, err := NewSpanWithDecorators(
		[]Operation{Push(3), Op(OpAdd), Op(OpAdvPop)},
		[]Decorator{{OpIndex: 2, Kind: AdvPushMapVal}},
	)
	require.NoError(t, err)
	loop, err := NewLoop(body)
	require.NoError(t, err)
	root, err := NewJoin(mustSpan(t, Op(OpPad)), loop)
	require.NoError(t, err)
	prog, err := NewProgram(root)
	require.NoError(t, err)

	data, err := EncodeProgramJSON(prog)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"#adv.push_mapval"`)

	decoded, err := DecodeProgramJSON(data)
	require.NoError(t, err)
	assert.Equal(t, prog.Hash(), decoded.Hash())
	assert.Equal(t, body.Decorators(), decoded.Root().Second().Body().Decorators())
	assert.Equal(t, 0, decoded.Table().Len())
}

func TestCodecKeepsTableBlocks(t *testing.T) {
	proc := mustSpan(t, Push(4), Op(OpDrop))
	dynTarget := mustSpan(t, Op(OpIncr))
	inline := mustSpan(t, Op(OpPad))
	inlineCall, err := NewCall(inline)
	require.NoError(t, err)
	proxyCall, err := NewCall(NewProxy(proc.Digest()))
	require.NoError(t, err)
	root, err := NewJoin(proxyCall, inlineCall)
	require.NoError(t, err)

	table := NewCodeBlockTable()
	table.Insert(proc)
	table.Insert(dynTarget)
	prog, err := NewProgramWithKernel(root, Kernel{}, table)
	require.NoError(t, err)
	require.Equal(t, 3, prog.Table().Len())

	data, err := EncodeProgramJSON(prog)
	require.NoError(t, err)
	var doc ProgramJSON
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Procedures, 2, "only blocks missing from the root tree are written")

	decoded, err := DecodeProgramJSON(data)
	require.NoError(t, err)
	assert.Equal(t, prog.Hash(), decoded.Hash())
	assert.Equal(t, prog.Table().Len(), decoded.Table().Len())

	callee, ok := decoded.Resolve(decoded.Root().First().Callee())
	require.True(t, ok)
	assert.Equal(t, proc.Digest(), callee.Digest())
	got, ok := decoded.Table().Get(dynTarget.Digest())
	require.True(t, ok)
	assert.Equal(t, []Operation{Op(OpIncr)}, got.Ops())

	again, err := EncodeProgramJSON(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestTableBlocksOrdered(t *testing.T) {
	table := NewCodeBlockTable()
	for i := uint64(0); i < 5; i++ {
		table.Insert(mustSpan(t, Push(i)))
	}
	blocks := table.Blocks()
	require.Len(t, blocks, 5)
	for i := 1; i < len(blocks); i++ {
		assert.Less(t, blocks[i-1].Digest().Hex(), blocks[i].Digest().Hex())
	}
}

func TestCodecRecordedDigest(t *testing.T) {
	doc := `{"root": {"kind": "span", "ops": ["push.1", "drop"], "digest": "` +
		core.NewWord(1, 2, 3, 4).Hex() + `"}}`
	prog, err := DecodeProgramJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, core.NewWord(1, 2, 3, 4), prog.Hash(), "recorded digest is kept for the processor to verify")
	assert.Equal(t, []Operation{Push(1), Op(OpDrop)}, prog.Root().Ops())
}

func TestCodecErrors(t *testing.T) {
	docs := map[string]string{
		"no root":            `{}`,
		"bad kind":           `{"root": {"kind": "goto"}}`,
		"join arity":         `{"root": {"kind": "join", "children": [{"kind": "span", "ops": ["add"]}]}}`,
		"proxy digest":       `{"root": {"kind": "call", "children": [{"kind": "proxy"}]}}`,
		"trailing decorator": `{"root": {"kind": "span", "ops": ["add", "#adv.push_mapval"]}}`,
		"bad kernel":         `{"root": {"kind": "span", "ops": ["add"]}, "kernel": ["zz"]}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeProgramJSON([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestTreeRendering(t *testing.T) {
	a := mustSpan(t, Push(1), Op(OpAdd))
	loop, err := NewLoop(a)
	require.NoError(t, err)
	root, err := NewJoin(mustSpan(t, Op(OpPad)), loop)
	require.NoError(t, err)

	out := root.Tree().String()
	assert.True(t, strings.HasPrefix(out, "join 0x"))
	assert.Contains(t, out, "loop 0x")
	assert.Contains(t, out, "[push.1 add]")
	assert.Contains(t, out, "[pad]")
}
