package advice

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

func testTree(t *testing.T, n int) *core.MerkleTree {
	t.Helper()
	leaves := make([]core.Word, n)
	for i := range leaves {
		leaves[i] = core.NewWord(uint64(i+1), uint64(10*i), 0, 7)
	}
	tree, err := core.NewMerkleTree(leaves)
	require.NoError(t, err)
	return tree
}

func TestAdviceStack(t *testing.T) {
	p, err := NewMemProvider(Inputs{Stack: []field.Element{field.New(1), field.New(2), field.New(3), field.New(4), field.New(5)}})
	require.NoError(t, err)

	v, err := p.PopStack()
	require.NoError(t, err)
	assert.Equal(t, field.New(1), v, "first listed value is popped first")

	w, err := p.PopStackWord()
	require.NoError(t, err)
	assert.Equal(t, core.NewWord(2, 3, 4, 5), w)

	_, err = p.PopStack()
	assert.ErrorIs(t, err, ErrStackEmpty)

	p.PushStack(field.New(8), field.New(9))
	v, _ = p.PopStack()
	assert.Equal(t, field.New(8), v)
	assert.Equal(t, 1, p.StackLen())

	_, err = p.PopStackWord()
	assert.ErrorIs(t, err, ErrStackEmpty)
}

func TestAdviceMap(t *testing.T) {
	key := core.NewWord(1, 2, 3, 4)
	p, err := NewMemProvider(Inputs{Map: map[core.Word][]field.Element{key: {field.New(9)}}})
	require.NoError(t, err)

	got, err := p.GetMapValue(key)
	require.NoError(t, err)
	assert.Equal(t, []field.Element{field.New(9)}, got)

	_, err = p.GetMapValue(core.NewWord(4, 3, 2, 1))
	assert.ErrorIs(t, err, ErrMapKeyNotFound)
}

func TestMerkleStoreQueries(t *testing.T) {
	tree := testTree(t, 8)
	p, err := NewMemProvider(Inputs{Trees: []*core.MerkleTree{tree}})
	require.NoError(t, err)

	for index := uint64(0); index < 8; index++ {
		node, err := p.GetTreeNode(tree.Root(), 3, index)
		require.NoError(t, err)
		want, _ := tree.GetNode(3, index)
		assert.Equal(t, want, node)

		path, err := p.GetMerklePath(tree.Root(), 3, index)
		require.NoError(t, err)
		assert.True(t, path.Verify(index, node, tree.Root()))
	}

	mid, err := p.GetTreeNode(tree.Root(), 2, 1)
	require.NoError(t, err)
	want, _ := tree.GetNode(2, 1)
	assert.Equal(t, want, mid)

	_, err = p.GetTreeNode(core.NewWord(5, 5, 5, 5), 3, 0)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = p.GetTreeNode(tree.Root(), 3, 8)
	assert.Error(t, err)
	_, err = p.GetTreeNode(tree.Root(), 0, 0)
	assert.Error(t, err)
}

func TestMerkleStoreUpdate(t *testing.T) {
	tree := testTree(t, 4)
	p, err := NewMemProvider(Inputs{Trees: []*core.MerkleTree{tree}})
	require.NoError(t, err)
	oldRoot := tree.Root()

	value := core.NewWord(42, 0, 0, 0)
	newRoot, path, err := p.UpdateMerkleNode(oldRoot, 2, 3, value)
	require.NoError(t, err)

	require.NoError(t, tree.UpdateLeaf(3, value))
	assert.Equal(t, tree.Root(), newRoot)
	assert.True(t, path.Verify(3, value, newRoot))

	got, err := p.GetTreeNode(newRoot, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	old, err := p.GetTreeNode(oldRoot, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, core.NewWord(4, 30, 0, 7), old, "old tree stays reachable")
}

func TestSparseTree(t *testing.T) {
	store := NewMerkleStore(nil)
	root := core.EmptySubtreeRoot(20)

	node, err := store.GetNode(root, 20, 12345)
	require.NoError(t, err)
	assert.True(t, node.IsZero())

	value := core.NewWord(1, 1, 1, 1)
	newRoot, _, err := store.SetNode(root, 20, 12345, value)
	require.NoError(t, err)

	got, err := store.GetNode(newRoot, 20, 12345)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	neighbour, err := store.GetNode(newRoot, 20, 12344)
	require.NoError(t, err)
	assert.True(t, neighbour.IsZero())
}

func TestLevelDBNodeStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nodes")
	tree := testTree(t, 8)

	db, err := NewLevelDBNodeStore(dir)
	require.NoError(t, err)
	p, err := NewProviderWithStore(Inputs{Trees: []*core.MerkleTree{tree}}, db)
	require.NoError(t, err)
	newRoot, _, err := p.UpdateMerkleNode(tree.Root(), 3, 5, core.NewWord(9, 9, 9, 9))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := NewLevelDBNodeStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	store := NewMerkleStore(reopened)
	got, err := store.GetNode(newRoot, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, core.NewWord(9, 9, 9, 9), got)

	orig, err := store.GetNode(tree.Root(), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, core.NewWord(3, 20, 0, 7), orig)
}

func TestLevelDBInMemory(t *testing.T) {
	db, err := NewLevelDBNodeStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, _, ok, err := db.GetNode(core.NewWord(1, 2, 3, 4))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeInputsJSON(t *testing.T) {
	key := core.NewWord(1, 0, 0, 0)
	leaf := core.NewWord(5, 0, 0, 0).Hex()
	doc := `{"stack": [3, 4], "map": [{"key": "` + key.Hex() + `", "values": [7]}],
		"trees": [["` + leaf + `", "` + leaf + `"]]}`

	in, err := DecodeInputsJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []field.Element{field.New(3), field.New(4)}, in.Stack)
	assert.Equal(t, []field.Element{field.New(7)}, in.Map[key])
	require.Len(t, in.Trees, 1)
	assert.Equal(t, 1, in.Trees[0].Depth())

	_, err = DecodeInputsJSON([]byte(`{"stack": [18446744069414584321]}`))
	assert.Error(t, err)
	_, err = DecodeInputsJSON([]byte(`{"trees": [["` + leaf + `"]]}`))
	assert.Error(t, err)
}
