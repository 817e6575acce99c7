package tile_builder

import (
	"fmt"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/detour_tile_cache"
	"github.com/gorustyt/navtilecache/recast"
)

// TileRasterizer turns the part of the input mesh under one tile column into
// compressed heightfield layers. It is safe for concurrent use as long as
// every goroutine passes its own allocator.
type TileRasterizer struct {
	m_geom    *InputGeom
	m_cfg     recast.RcConfig // spans the whole mesh
	m_comp    detour_tile_cache.DtTileCacheCompressor
	m_builder recast.Builder
}

func NewTileRasterizer(geom *InputGeom, cfg recast.RcConfig, comp detour_tile_cache.DtTileCacheCompressor) *TileRasterizer {
	return &TileRasterizer{
		m_geom:    geom,
		m_cfg:     cfg,
		m_comp:    comp,
		m_builder: recast.DefaultBuilder{},
	}
}

// SetBuilder replaces the voxelization steps.
func (r *TileRasterizer) SetBuilder(b recast.Builder) {
	if b == nil {
		b = recast.DefaultBuilder{}
	}
	r.m_builder = b
}

// TileBounds returns the world bounds of tile (tx, ty), border excluded.
func (r *TileRasterizer) TileBounds(tx, ty int) (bmin, bmax common.Vec3) {
	tcs := float32(r.m_cfg.TileSize) * r.m_cfg.Cs
	bmin[0] = r.m_cfg.Bmin[0] + float32(tx)*tcs
	bmin[1] = r.m_cfg.Bmin[1]
	bmin[2] = r.m_cfg.Bmin[2] + float32(ty)*tcs
	bmax[0] = r.m_cfg.Bmin[0] + float32(tx+1)*tcs
	bmax[1] = r.m_cfg.Bmax[1]
	bmax[2] = r.m_cfg.Bmin[2] + float32(ty+1)*tcs
	return bmin, bmax
}

// RasterizeTileLayers builds every layer of tile (tx, ty). Scratch memory is
// taken from alloc, which is reset before returning. A column with more than
// MAX_LAYERS floors fails with common.ErrCapacityExceeded.
func (r *TileRasterizer) RasterizeTileLayers(tx, ty int, alloc *LinearAllocator) ([]TileCacheData, error) {
	if r.m_geom == nil {
		return nil, fmt.Errorf("rasterize: no input geometry: %w", common.ErrInvalidParam)
	}
	rc := NewRasterizationContext(alloc)
	defer rc.Release()

	verts := r.m_geom.GetVerts()
	triAreas := r.m_geom.GetTriAreas()
	chunkyMesh := r.m_geom.GetChunkyMesh()

	// Tile bounds.
	tcfg := r.m_cfg
	tcfg.Bmin, tcfg.Bmax = r.TileBounds(tx, ty)
	tcfg.Bmin[0] -= float32(tcfg.BorderSize) * tcfg.Cs
	tcfg.Bmin[2] -= float32(tcfg.BorderSize) * tcfg.Cs
	tcfg.Bmax[0] += float32(tcfg.BorderSize) * tcfg.Cs
	tcfg.Bmax[2] += float32(tcfg.BorderSize) * tcfg.Cs

	// Allocate voxel heightfield where we rasterize our input data to.
	rc.solid = recast.RcCreateHeightfield(tcfg.Width, tcfg.Height, tcfg.Bmin, tcfg.Bmax, tcfg.Cs, tcfg.Ch)

	// Allocate array that can hold triangle flags.
	if err := rc.allocTriAreas(chunkyMesh.MaxTrisPerChunk); err != nil {
		return nil, err
	}

	tbmin := [2]float32{tcfg.Bmin[0], tcfg.Bmin[2]}
	tbmax := [2]float32{tcfg.Bmax[0], tcfg.Bmax[2]}
	cid := chunkyMesh.GetChunksOverlappingRect(tbmin, tbmax)
	if len(cid) == 0 {
		return nil, nil // empty
	}

	for _, id := range cid {
		tris, triIds := chunkyMesh.ChunkTris(id)
		areas := rc.triareas[:len(triIds)]
		clear(areas)
		recast.RcMarkWalkableTriangles(tcfg.WalkableSlopeAngle, verts, tris, areas)
		if triAreas != nil {
			for i, ti := range triIds {
				if areas[i] == recast.RC_WALKABLE_AREA && triAreas[ti] != recast.RC_NULL_AREA {
					areas[i] = triAreas[ti]
				}
			}
		}
		if !r.m_builder.RasterizeTriangles(verts, tris, areas, rc.solid, tcfg.WalkableClimb) {
			return nil, fmt.Errorf("rasterize: tile (%d,%d) triangles: %w", tx, ty, common.ErrAlgorithmFailure)
		}
	}

	// Once all geometry is rasterized, we do initial pass of filtering to
	// remove unwanted overhangs caused by the conservative rasterization
	// as well as filter spans where the character cannot possibly stand.
	r.m_builder.FilterHeightfield(&tcfg, rc.solid)

	chf, ok := r.m_builder.BuildCompactHeightfield(tcfg.WalkableHeight, tcfg.WalkableClimb, rc.solid)
	if !ok {
		return nil, fmt.Errorf("rasterize: tile (%d,%d) compact data: %w", tx, ty, common.ErrAlgorithmFailure)
	}
	rc.chf = chf
	rc.freeSolid()

	// Erode the walkable area by agent radius.
	if !r.m_builder.ErodeWalkableArea(tcfg.WalkableRadius, rc.chf) {
		return nil, fmt.Errorf("rasterize: tile (%d,%d) erode: %w", tx, ty, common.ErrAlgorithmFailure)
	}

	// (Optional) Mark areas.
	for _, vol := range r.m_geom.ListVolumesOverlapping(tcfg.Bmin, tcfg.Bmax) {
		recast.RcMarkConvexPolyArea(vol.Verts, vol.Hmin, vol.Hmax, vol.Area, rc.chf)
	}

	lset, ok := r.m_builder.BuildHeightfieldLayers(rc.chf, tcfg.BorderSize, tcfg.WalkableHeight, tcfg.WalkableClimb)
	if !ok {
		return nil, fmt.Errorf("rasterize: tile (%d,%d) heightfield layers: %w", tx, ty, common.ErrAlgorithmFailure)
	}
	rc.lset = lset
	if n := lset.Nlayers(); n > MAX_LAYERS {
		return nil, fmt.Errorf("rasterize: tile (%d,%d) has %d layers, limit %d: %w",
			tx, ty, n, MAX_LAYERS, common.ErrCapacityExceeded)
	}

	for i, layer := range lset.Layers {
		// Store header
		header := detour_tile_cache.DtTileCacheLayerHeader{
			Magic:   detour_tile_cache.DT_TILECACHE_MAGIC,
			Version: detour_tile_cache.DT_TILECACHE_VERSION,

			// Tile layer location in the navmesh.
			Tx:     int32(tx),
			Ty:     int32(ty),
			Tlayer: int32(i),
			Bmin:   layer.Bmin,
			Bmax:   layer.Bmax,

			// Tile info.
			Width:  uint8(layer.Width),
			Height: uint8(layer.Height),
			Minx:   uint8(layer.Minx),
			Maxx:   uint8(layer.Maxx),
			Miny:   uint8(layer.Miny),
			Maxy:   uint8(layer.Maxy),
			Hmin:   uint16(layer.Hmin),
			Hmax:   uint16(layer.Hmax),
		}
		data, err := detour_tile_cache.DtBuildTileCacheLayer(r.m_comp, &header, layer.Heights, layer.Areas, layer.Cons)
		if err != nil {
			return nil, fmt.Errorf("rasterize: tile (%d,%d) layer %d: %w", tx, ty, i, err)
		}
		if err := rc.addTile(data); err != nil {
			return nil, err
		}
	}

	// Transfer ownership of tile data from build context to the caller.
	return rc.TakeTiles(), nil
}
