package tile_builder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadObj = `# exported quad
o ground
v 0 0 0
v 0 0 10
v 10 0 10
v 10 0.5 0  # trailing comment
vn 0 1 0
vt 0 0
f 1/1/1 2/1/1 3/1/1 4/1/1
`

func TestMeshLoaderObj(t *testing.T) {
	m := NewMeshLoaderObj()
	require.NoError(t, m.Load(strings.NewReader(quadObj)))
	assert.Equal(t, 4, m.GetVertCount())
	assert.Equal(t, 2, m.GetTriCount())
	assert.Equal(t, []int32{0, 1, 2, 0, 2, 3}, m.GetTris())
	assert.Equal(t, float32(0.5), m.GetVerts()[10])
}

func TestMeshLoaderObjNegativeIndices(t *testing.T) {
	m := NewMeshLoaderObj()
	m.SetScale(2)
	src := "v 0 0 0\nv 1 0 0\nv 1 0 1\nf -3 -2 -1\n"
	require.NoError(t, m.Load(strings.NewReader(src)))
	assert.Equal(t, []int32{0, 1, 2}, m.GetTris())
	assert.Equal(t, []float32{0, 0, 0, 2, 0, 0, 2, 0, 2}, m.GetVerts())
}

func TestMeshLoaderObjErrors(t *testing.T) {
	cases := map[string]struct {
		src  string
		line string
	}{
		"short vertex": {"v 1 2\n", "line 1"},
		"bad float":    {"v 0 0 0\nv 1 x 0\n", "line 2"},
		"out of range": {"v 0 0 0\nv 1 0 0\nv 1 0 1\n\nf 1 2 4\n", "line 5"},
		"zero index":   {"v 0 0 0\nv 1 0 0\nv 1 0 1\nf 0 1 2\n", "line 4"},
		"two vertices": {"v 0 0 0\nv 1 0 0\nf 1 2\n", "line 3"},
		"bad index":    {"v 0 0 0\nf a b c\n", "line 2"},
	}
	for name, c := range cases {
		err := NewMeshLoaderObj().Load(strings.NewReader(c.src))
		require.Error(t, err, name)
		assert.ErrorIs(t, err, common.ErrCorruptData, name)
		assert.Contains(t, err.Error(), c.line, name)
	}
}

func TestLoadObjFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "quad.obj")
	require.NoError(t, os.WriteFile(p, []byte(quadObj), 0o644))
	m, err := LoadObjFile(p)
	require.NoError(t, err)
	assert.Equal(t, p, m.GetFileName())
	assert.Equal(t, 2, m.GetTriCount())

	_, err = LoadObjFile(filepath.Join(t.TempDir(), "missing.obj"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
