package debug_utils

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/common/logger"
	"github.com/gorustyt/navtilecache/tile_builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFlat(t *testing.T) *tile_builder.NavCache {
	t.Helper()
	verts := []float32{0, 0, 0, 0, 0, 20, 20, 0, 20, 20, 0, 0}
	tris := []int32{0, 1, 2, 0, 2, 3}
	geom, err := tile_builder.NewInputGeom(verts, tris, nil, 256)
	require.NoError(t, err)

	cfg := tile_builder.DefaultConfig()
	cfg.CellSize = 0.5
	cfg.CellHeight = 0.25
	cfg.AgentHeight = 1
	cfg.AgentRadius = 0.5
	cfg.AgentMaxClimb = 0.5
	cfg.TileSize = 16
	cfg.ArenaSize = 8192
	cfg.Workers = 1
	nc, err := tile_builder.NewNavCache(geom, cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, nc.Build(context.Background()))
	return nc
}

func TestDumpNavMeshToObj(t *testing.T) {
	nc := buildFlat(t)
	var buf bytes.Buffer
	require.NoError(t, DuDumpNavMeshToObj(nc.GetNavMesh(), &buf))
	out := buf.String()
	assert.Contains(t, out, "o NavMesh\n")
	assert.Contains(t, out, "g tile_0_0_0\n")
	assert.Contains(t, out, "g tile_2_2_0\n")

	// The dump reads back as a mesh with valid indices.
	m := tile_builder.NewMeshLoaderObj()
	require.NoError(t, m.Load(strings.NewReader(out)))
	assert.Equal(t, strings.Count(out, "\nf "), m.GetTriCount())
	assert.Positive(t, m.GetTriCount())

	assert.ErrorIs(t, DuDumpNavMeshToObj(nil, &buf), common.ErrInvalidParam)
}

func TestDumpTileCacheLayers(t *testing.T) {
	nc := buildFlat(t)
	var buf bytes.Buffer
	require.NoError(t, DuDumpTileCacheLayers(nc.GetTileCache(), &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1+9)
	assert.True(t, strings.HasPrefix(lines[0], "# tx"))
	for _, l := range lines[1:] {
		assert.Len(t, strings.Split(l, "\t"), 8)
	}

	assert.ErrorIs(t, DuDumpTileCacheLayers(nil, &buf), common.ErrInvalidParam)
}

func TestLogBuildTimes(t *testing.T) {
	nc := buildFlat(t)
	ctx := nc.GetBuildContext()
	ctx.ResetLog()
	total := ctx.GetAccumulatedTime(tile_builder.TIMER_TOTAL)
	DuLogBuildTimes(ctx, total, tile_builder.TIMER_RASTERIZE, tile_builder.TIMER_BUILD_NAVMESH)

	msgs := ctx.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Build Times", msgs[0].Text)
	assert.Contains(t, msgs[1].Text, tile_builder.TIMER_RASTERIZE)
	assert.Contains(t, msgs[3].Text, "TOTAL")
}
