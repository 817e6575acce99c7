package debug_utils

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/common/logger"
	"github.com/gorustyt/navtilecache/detour"
	"github.com/gorustyt/navtilecache/detour_tile_cache"
)

// DuDumpNavMeshToObj writes every polygon of the navmesh as a Wavefront OBJ
// mesh, one group per tile layer. Polygons are fan triangulated.
func DuDumpNavMeshToObj(mesh *detour.DtNavMesh, w io.Writer) error {
	if mesh == nil {
		return fmt.Errorf("dump navmesh: no mesh: %w", common.ErrInvalidParam)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Recast Navmesh\n")
	fmt.Fprintf(bw, "o NavMesh\n")

	base := 1
	for i := 0; i < int(mesh.GetMaxTiles()); i++ {
		tile := mesh.GetTile(i)
		if tile == nil || tile.Header == nil {
			continue
		}
		h := tile.Header
		fmt.Fprintf(bw, "\ng tile_%d_%d_%d\n", h.X, h.Y, h.Layer)
		for v := 0; v < int(h.VertCount); v++ {
			fmt.Fprintf(bw, "v %f %f %f\n", tile.Verts[v*3], tile.Verts[v*3+1], tile.Verts[v*3+2])
		}
		for _, p := range tile.Polys {
			fmt.Fprintf(bw, "# area %d flags %#x\n", p.Area, p.Flags)
			for j := 2; j < int(p.VertCount); j++ {
				fmt.Fprintf(bw, "f %d %d %d\n",
					base+int(p.Verts[0]), base+int(p.Verts[j-1]), base+int(p.Verts[j]))
			}
		}
		base += int(h.VertCount)
	}
	return bw.Flush()
}

// DuDumpTileCacheLayers writes one line per compressed layer: location, grid
// size, height range, walkable cell count and compressed size.
func DuDumpTileCacheLayers(tc *detour_tile_cache.DtTileCache, w io.Writer) error {
	if tc == nil {
		return fmt.Errorf("dump tile cache: no tile cache: %w", common.ErrInvalidParam)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# tx\tty\tlayer\tsize\thmin\thmax\twalkable\tbytes\n")
	for i := 0; i < tc.GetTileCount(); i++ {
		tile := tc.GetTile(i)
		if tile.Header == nil {
			continue
		}
		layer, err := detour_tile_cache.DtDecompressTileCacheLayer(detour_tile_cache.HeapAlloc{}, tc.GetCompressor(), tile.Data)
		if err != nil {
			return fmt.Errorf("dump tile cache: tile %d: %w", i, err)
		}
		walkable := 0
		for _, a := range layer.Areas {
			if a != detour_tile_cache.DT_TILECACHE_NULL_AREA {
				walkable++
			}
		}
		h := tile.Header
		fmt.Fprintf(bw, "%d\t%d\t%d\t%dx%d\t%d\t%d\t%d\t%d\n",
			h.Tx, h.Ty, h.Tlayer, h.Width, h.Height, h.Hmin, h.Hmax, walkable, len(tile.Data))
	}
	return bw.Flush()
}

// DuLogBuildTimes reports the accumulated time of each label as a share of
// total.
func DuLogBuildTimes(ctx *logger.BuildContext, total time.Duration, labels ...string) {
	if total <= 0 {
		total = 1
	}
	pc := 100.0 / float64(total)
	ctx.Progress("Build Times")
	for _, label := range labels {
		t := ctx.GetAccumulatedTime(label)
		ctx.Progress("- %s:\t%.2fms\t(%.1f%%)", label, float64(t)/float64(time.Millisecond), float64(t)*pc)
	}
	ctx.Progress("=== TOTAL:\t%.2fms", float64(total)/float64(time.Millisecond))
}
