package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-processor/internal/vybium-processor/core"
)

func TestParseStack(t *testing.T) {
	values, err := parseStack(" 1, 2,3 ")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, values)

	values, err = parseStack("")
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = parseStack("1,x")
	assert.Error(t, err)
}

func TestOpenAdvice(t *testing.T) {
	dir := t.TempDir()
	leaf := core.NewWord(1, 0, 0, 0)
	doc := `{"stack": [9], "trees": [["` + leaf.Hex() + `", "` + core.NewWord(2, 0, 0, 0).Hex() + `"]]}`
	path := filepath.Join(dir, "advice.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	t.Run("in memory", func(t *testing.T) {
		p, closeStore, err := openAdvice(path, "")
		require.NoError(t, err)
		defer closeStore()
		v, err := p.PopStack()
		require.NoError(t, err)
		assert.Equal(t, uint64(9), v.Value())
	})

	t.Run("leveldb store", func(t *testing.T) {
		p, closeStore, err := openAdvice(path, filepath.Join(dir, "nodes"))
		require.NoError(t, err)
		defer closeStore()

		tree, err := core.NewMerkleTree([]core.Word{leaf, core.NewWord(2, 0, 0, 0)})
		require.NoError(t, err)
		node, err := p.GetTreeNode(tree.Root(), 1, 0)
		require.NoError(t, err)
		assert.Equal(t, leaf, node)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := openAdvice(filepath.Join(dir, "nope.json"), "")
		assert.Error(t, err)
	})
}

func TestReadProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"root": {"kind": "span", "ops": ["push.1"]}}`), 0o600))
	prog, err := readProgram(path)
	require.NoError(t, err)
	assert.False(t, prog.Hash().IsZero())
}
