package tile_builder

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/common/logger"
	"github.com/gorustyt/navtilecache/detour"
	"github.com/gorustyt/navtilecache/detour_tile_cache"
	"github.com/gorustyt/navtilecache/recast"
	"github.com/sourcegraph/conc/pool"
	"github.com/zeebo/xxh3"
	"go.uber.org/multierr"
)

var errNotBuilt = fmt.Errorf("navcache: not built: %w", common.ErrInvalidParam)

// Build timer labels.
const (
	TIMER_TOTAL         = "Total"
	TIMER_RASTERIZE     = "Rasterize Tiles"
	TIMER_ADD_TILES     = "Add Tiles"
	TIMER_BUILD_NAVMESH = "Build Navmesh"
	TIMER_REBUILD_TILES = "Rebuild Tiles"
	TIMER_LOAD_TILE_SET = "Load Tile Set"
)

type tileLoc struct{ x, y int32 }

type tileJob struct {
	tx, ty int
	tiles  []TileCacheData
}

// Stats describes the last build.
type Stats struct {
	TilesWide      int           `json:"tiles_wide"`
	TilesHigh      int           `json:"tiles_high"`
	Layers         int           `json:"layers"`
	LayersPerTile  float32       `json:"layers_per_tile"`
	CompressedSize int           `json:"compressed_size"`
	RawSize        int           `json:"raw_size"`
	NavMeshTiles   int           `json:"navmesh_tiles"`
	Obstacles      int           `json:"obstacles"`
	Volumes        int           `json:"volumes"`
	BuildTime      time.Duration `json:"build_time"`
	RebuiltTiles   int           `json:"rebuilt_tiles"`
	ArenaPeak      int           `json:"arena_peak"`
}

// NavCache builds the compressed layers of an InputGeom in parallel, keeps
// them in a tile cache and maintains the navigation mesh built from it.
// All methods are safe for concurrent use; the tile cache and the navmesh
// are only touched with mu held.
type NavCache struct {
	mu sync.Mutex

	m_cfg       Config
	m_geom      *InputGeom
	m_comp      detour_tile_cache.DtTileCacheCompressor
	m_tmproc    *MeshProcess
	m_raster    *TileRasterizer
	m_tcparams  detour_tile_cache.DtTileCacheParams
	m_navParams detour.NavMeshParams
	m_tw, m_th  int

	m_tileCache *detour_tile_cache.DtTileCache
	m_navMesh   *detour.DtNavMesh
	m_digests   map[tileLoc][]uint64

	m_talloc *LinearAllocator   // runtime tile cache scratch
	m_arenas []*LinearAllocator // one per build worker
	m_allocs chan *LinearAllocator

	m_ctx   *logger.BuildContext
	m_stats Stats
}

func NewNavCache(geom *InputGeom, cfg Config, log *logger.Logger) (*NavCache, error) {
	if geom == nil {
		return nil, fmt.Errorf("navcache: no input geometry: %w", common.ErrInvalidParam)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	comp, err := detour_tile_cache.NewCompressor(cfg.Compressor)
	if err != nil {
		return nil, err
	}

	nc := &NavCache{
		m_cfg:    cfg,
		m_geom:   geom,
		m_comp:   comp,
		m_tmproc: NewMeshProcess(geom),
		m_talloc: NewLinearAllocator(cfg.ArenaSize),
		m_ctx:    logger.NewBuildContext(log),
	}

	// Init cache
	bmin := geom.GetMeshBoundsMin()
	bmax := geom.GetMeshBoundsMax()
	gw, gh := recast.RcCalcGridSize(bmin, bmax, cfg.CellSize)
	ts := cfg.TileSize
	nc.m_tw = max(1, (gw+ts-1)/ts)
	nc.m_th = max(1, (gh+ts-1)/ts)
	nc.m_raster = NewTileRasterizer(geom, cfg.RcConfig(bmin, bmax), comp)

	// Tile cache params.
	nc.m_tcparams = detour_tile_cache.DtTileCacheParams{
		Orig:                   bmin,
		Cs:                     cfg.CellSize,
		Ch:                     cfg.CellHeight,
		Width:                  int32(ts),
		Height:                 int32(ts),
		WalkableHeight:         cfg.AgentHeight,
		WalkableRadius:         cfg.AgentRadius,
		WalkableClimb:          cfg.AgentMaxClimb,
		MaxSimplificationError: cfg.EdgeMaxError,
		MaxTiles:               int32(nc.m_tw * nc.m_th * cfg.ExpectedLayersPerTile),
		MaxObstacles:           int32(cfg.MaxObstacles),
	}

	// Max tiles and max polys affect how the tile IDs are calculated.
	// There are 22 bits available for identifying a tile and a polygon.
	tileBits := min(common.Ilog2(common.NextPow2(uint32(nc.m_tw*nc.m_th*cfg.ExpectedLayersPerTile))), 14)
	polyBits := 22 - tileBits
	nc.m_navParams = detour.NavMeshParams{
		Orig:       bmin,
		TileWidth:  float32(ts) * cfg.CellSize,
		TileHeight: float32(ts) * cfg.CellSize,
		MaxTiles:   1 << tileBits,
		MaxPolys:   1 << polyBits,
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	nc.m_allocs = make(chan *LinearAllocator, workers)
	for i := 0; i < workers; i++ {
		a := NewLinearAllocator(cfg.ArenaSize)
		nc.m_arenas = append(nc.m_arenas, a)
		nc.m_allocs <- a
	}
	return nc, nil
}

func (nc *NavCache) GetGeom() *InputGeom                   { return nc.m_geom }
func (nc *NavCache) GetConfig() Config                     { return nc.m_cfg }
func (nc *NavCache) GetBuildContext() *logger.BuildContext { return nc.m_ctx }
func (nc *NavCache) GetGridSize() (tw, th int)             { return nc.m_tw, nc.m_th }

// SetBuilder replaces the voxelization steps used by later builds.
func (nc *NavCache) SetBuilder(b recast.Builder) {
	nc.mu.Lock()
	nc.m_raster.SetBuilder(b)
	nc.mu.Unlock()
}

// rasterizeTiles runs the jobs on the worker pool. Each goroutine borrows one
// arena for the duration of a tile.
func (nc *NavCache) rasterizeTiles(ctx context.Context, jobs []tileJob) error {
	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(cap(nc.m_allocs))
	for i := range jobs {
		job := &jobs[i]
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			alloc := <-nc.m_allocs
			defer func() { nc.m_allocs <- alloc }()
			tiles, err := nc.m_raster.RasterizeTileLayers(job.tx, job.ty, alloc)
			if err != nil {
				return err
			}
			job.tiles = tiles
			return nil
		})
	}
	return p.Wait()
}

func digestsOf(tiles []TileCacheData) []uint64 {
	res := make([]uint64, len(tiles))
	for i, t := range tiles {
		res[i] = t.Digest
	}
	return res
}

// Build rasterizes every tile, fills a fresh tile cache and builds the
// navigation mesh from it. Obstacles of a previous build are dropped. On
// error the previous state is kept.
func (nc *NavCache) Build(ctx context.Context) error {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	start := time.Now()
	nc.m_ctx.ResetTimers()
	nc.m_ctx.StartTimer(TIMER_TOTAL)
	defer nc.m_ctx.StopTimer(TIMER_TOTAL)
	nc.m_ctx.Progress("build: %d x %d tiles, %s compressor", nc.m_tw, nc.m_th, nc.m_cfg.Compressor)

	jobs := make([]tileJob, 0, nc.m_tw*nc.m_th)
	for y := 0; y < nc.m_th; y++ {
		for x := 0; x < nc.m_tw; x++ {
			jobs = append(jobs, tileJob{tx: x, ty: y})
		}
	}
	nc.m_ctx.StartTimer(TIMER_RASTERIZE)
	err := nc.rasterizeTiles(ctx, jobs)
	nc.m_ctx.StopTimer(TIMER_RASTERIZE)
	if err != nil {
		nc.m_ctx.Error("build: %v", err)
		return err
	}

	nc.m_ctx.StartTimer(TIMER_ADD_TILES)
	defer nc.m_ctx.StopTimer(TIMER_ADD_TILES)
	tc, err := detour_tile_cache.NewDtTileCache(&nc.m_tcparams, nc.m_talloc, nc.m_comp, nc.m_tmproc)
	if err != nil {
		nc.m_ctx.Error("build: could not init tile cache: %v", err)
		return err
	}
	navMesh, status := detour.NewDtNavMesh(&nc.m_navParams)
	if status.DtStatusFailed() {
		nc.m_ctx.Error("build: could not init navmesh")
		return status.Err()
	}

	digests := make(map[tileLoc][]uint64, len(jobs))
	for _, job := range jobs {
		for _, t := range job.tiles {
			if _, err := tc.AddTile(t.Data, detour_tile_cache.DT_COMPRESSEDTILE_FREE_DATA); err != nil {
				nc.m_ctx.Error("build: tile (%d,%d): %v", job.tx, job.ty, err)
				return fmt.Errorf("navcache: add tile (%d,%d): %w", job.tx, job.ty, err)
			}
		}
		if len(job.tiles) > 0 {
			digests[tileLoc{int32(job.tx), int32(job.ty)}] = digestsOf(job.tiles)
		}
	}

	nc.m_ctx.StopTimer(TIMER_ADD_TILES)

	// Build initial meshes
	nc.m_ctx.StartTimer(TIMER_BUILD_NAVMESH)
	defer nc.m_ctx.StopTimer(TIMER_BUILD_NAVMESH)
	for loc := range digests {
		if err := tc.BuildNavMeshTilesAt(loc.x, loc.y, navMesh); err != nil {
			nc.m_ctx.Error("build: navmesh tile (%d,%d): %v", loc.x, loc.y, err)
			return err
		}
	}

	nc.m_tileCache = tc
	nc.m_navMesh = navMesh
	nc.m_digests = digests
	nc.m_stats.BuildTime = time.Since(start)
	nc.m_stats.RebuiltTiles = 0
	nc.updateStats()
	nc.m_ctx.Progress("build: %d layers, %d navmesh tiles in %v",
		nc.m_stats.Layers, nc.m_stats.NavMeshTiles, nc.m_stats.BuildTime)
	return nil
}

// tileRange returns the tile coordinates overlapping the box, clamped to the
// grid. ok is false when the box misses the grid.
func (nc *NavCache) tileRange(bmin, bmax common.Vec3) (x0, y0, x1, y1 int, ok bool) {
	tcs := float64(nc.m_cfg.TileSize) * float64(nc.m_cfg.CellSize)
	orig := nc.m_tcparams.Orig
	x0 = int(math.Floor(float64(bmin[0]-orig[0]) / tcs))
	y0 = int(math.Floor(float64(bmin[2]-orig[2]) / tcs))
	x1 = int(math.Floor(float64(bmax[0]-orig[0]) / tcs))
	y1 = int(math.Floor(float64(bmax[2]-orig[2]) / tcs))
	if x1 < 0 || y1 < 0 || x0 >= nc.m_tw || y0 >= nc.m_th {
		return 0, 0, 0, 0, false
	}
	x0, y0 = max(x0, 0), max(y0, 0)
	x1, y1 = min(x1, nc.m_tw-1), min(y1, nc.m_th-1)
	return x0, y0, x1, y1, x0 <= x1 && y0 <= y1
}

// RebuildTiles rasterizes again every tile overlapping the box and replaces
// the layers whose content changed. It returns the number of tile locations
// replaced.
func (nc *NavCache) RebuildTiles(ctx context.Context, bmin, bmax common.Vec3) (int, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.rebuildTiles(ctx, bmin, bmax)
}

func (nc *NavCache) rebuildTiles(ctx context.Context, bmin, bmax common.Vec3) (int, error) {
	if nc.m_tileCache == nil {
		return 0, errNotBuilt
	}
	x0, y0, x1, y1, ok := nc.tileRange(bmin, bmax)
	if !ok {
		return 0, nil
	}
	start := time.Now()
	nc.m_ctx.StartTimer(TIMER_REBUILD_TILES)
	defer nc.m_ctx.StopTimer(TIMER_REBUILD_TILES)
	var jobs []tileJob
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			jobs = append(jobs, tileJob{tx: x, ty: y})
		}
	}
	if err := nc.rasterizeTiles(ctx, jobs); err != nil {
		nc.m_ctx.Error("rebuild: %v", err)
		return 0, err
	}

	rebuilt := 0
	for _, job := range jobs {
		loc := tileLoc{int32(job.tx), int32(job.ty)}
		digests := digestsOf(job.tiles)
		if slices.Equal(digests, nc.m_digests[loc]) {
			continue
		}
		datas := make([][]byte, len(job.tiles))
		for i, t := range job.tiles {
			datas[i] = t.Data
		}
		if _, err := nc.m_tileCache.ReplaceTilesAt(loc.x, loc.y, datas, detour_tile_cache.DT_COMPRESSEDTILE_FREE_DATA); err != nil {
			nc.m_ctx.Error("rebuild: tile (%d,%d): %v", loc.x, loc.y, err)
			return rebuilt, err
		}
		if len(digests) > 0 {
			nc.m_digests[loc] = digests
		} else {
			delete(nc.m_digests, loc)
		}

		// Layers that no longer exist.
		for _, tile := range nc.m_navMesh.GetTilesAt(loc.x, loc.y) {
			if int(tile.Header.Layer) >= len(datas) {
				nc.m_navMesh.RemoveTile(nc.m_navMesh.GetTileRef(tile))
			}
		}
		if err := nc.m_tileCache.BuildNavMeshTilesAt(loc.x, loc.y, nc.m_navMesh); err != nil {
			nc.m_ctx.Error("rebuild: navmesh tile (%d,%d): %v", loc.x, loc.y, err)
			return rebuilt, err
		}
		rebuilt++
	}
	nc.m_stats.RebuiltTiles += rebuilt
	nc.updateStats()
	nc.m_ctx.Progress("rebuild: %d of %d tiles changed in %v", rebuilt, len(jobs), time.Since(start))
	return rebuilt, nil
}

// AddConvexVolume registers the volume and rebuilds the tiles under it. The
// volume stays registered when the rebuild fails.
func (nc *NavCache) AddConvexVolume(ctx context.Context, vol ConvexVolume) (ConvexVolumeRef, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	ref, err := nc.m_geom.AddConvexVolume(vol)
	if err != nil {
		return 0, err
	}
	if nc.m_tileCache == nil {
		return ref, nil
	}
	bmin, bmax := vol.Bounds()
	_, err = nc.rebuildTiles(ctx, bmin, bmax)
	return ref, err
}

func (nc *NavCache) RemoveConvexVolume(ctx context.Context, ref ConvexVolumeRef) error {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	vol, _ := nc.m_geom.GetConvexVolume(ref)
	if err := nc.m_geom.RemoveConvexVolume(ref); err != nil {
		return err
	}
	if nc.m_tileCache == nil {
		return nil
	}
	bmin, bmax := vol.Bounds()
	_, err := nc.rebuildTiles(ctx, bmin, bmax)
	return err
}

// AddObstacle queues a cylinder obstacle. It takes effect on Update.
func (nc *NavCache) AddObstacle(pos common.Vec3, radius, height float32) (detour_tile_cache.DtObstacleRef, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.m_tileCache == nil {
		return 0, errNotBuilt
	}
	return nc.m_tileCache.AddObstacle(pos, radius, height)
}

func (nc *NavCache) AddBoxObstacle(bmin, bmax common.Vec3) (detour_tile_cache.DtObstacleRef, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.m_tileCache == nil {
		return 0, errNotBuilt
	}
	return nc.m_tileCache.AddBoxObstacle(bmin, bmax)
}

func (nc *NavCache) AddOrientedBoxObstacle(center, halfExtents common.Vec3, yRadians float32) (detour_tile_cache.DtObstacleRef, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.m_tileCache == nil {
		return 0, errNotBuilt
	}
	return nc.m_tileCache.AddOrientedBoxObstacle(center, halfExtents, yRadians)
}

func (nc *NavCache) AddConvexObstacle(verts []common.Vec3, hmin, hmax float32) (detour_tile_cache.DtObstacleRef, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.m_tileCache == nil {
		return 0, errNotBuilt
	}
	return nc.m_tileCache.AddConvexObstacle(verts, hmin, hmax)
}

func (nc *NavCache) RemoveObstacle(ref detour_tile_cache.DtObstacleRef) error {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.m_tileCache == nil {
		return errNotBuilt
	}
	return nc.m_tileCache.RemoveObstacle(ref)
}

// Update runs one step of obstacle processing. upToDate reports whether
// nothing is left to do.
func (nc *NavCache) Update() (upToDate bool, err error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.m_tileCache == nil {
		return true, nil
	}
	return nc.m_tileCache.Update(nc.m_navMesh)
}

// Flush calls Update until every queued obstacle change is applied. Tile
// build errors do not stop it; they are returned together.
func (nc *NavCache) Flush(ctx context.Context) error {
	var errs error
	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		upToDate, err := nc.Update()
		errs = multierr.Append(errs, err)
		if upToDate {
			return errs
		}
	}
}

// QueryFilter builds a filter from flag names of the geometry's flag table.
func (nc *NavCache) QueryFilter(include, exclude []string) (*detour.DtQueryFilter, error) {
	return nc.m_geom.QueryFilter(include, exclude)
}

// FindPolyAt returns the navmesh polygon under pos. A nil filter accepts
// every polygon.
func (nc *NavCache) FindPolyAt(pos common.Vec3, filter *detour.DtQueryFilter) (detour.PolyHit, bool) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.m_navMesh == nil {
		return detour.PolyHit{}, false
	}
	hit, status := nc.m_navMesh.FindPolyAt(pos, filter)
	return hit, status.DtStatusSucceed()
}

// Save writes the tile cache as a tile cache set.
func (nc *NavCache) Save(w io.Writer) error {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.m_tileCache == nil {
		return errNotBuilt
	}
	return detour_tile_cache.SaveTileCacheSet(w, &nc.m_navParams, nc.m_tileCache)
}

// Load replaces the tile cache with a saved set and rebuilds the navmesh
// from it. The set must have been saved with the same grid settings and the
// same compressor. Nothing changes unless the whole set loads.
func (nc *NavCache) Load(r io.Reader) error {
	nc.m_ctx.StartTimer(TIMER_LOAD_TILE_SET)
	defer nc.m_ctx.StopTimer(TIMER_LOAD_TILE_SET)
	set, err := detour_tile_cache.LoadTileCacheSet(r, nc.m_comp)
	if err != nil {
		nc.m_ctx.Error("load: %v", err)
		return err
	}

	nc.mu.Lock()
	defer nc.mu.Unlock()

	start := time.Now()
	saved := set.Header.CacheParams
	if saved.Orig != nc.m_tcparams.Orig || saved.Cs != nc.m_tcparams.Cs || saved.Ch != nc.m_tcparams.Ch ||
		saved.Width != nc.m_tcparams.Width || saved.Height != nc.m_tcparams.Height {
		return fmt.Errorf("navcache: set was saved with a different grid: %w", common.ErrInvalidParam)
	}
	tc, _, err := detour_tile_cache.NewDtTileCacheFromSet(set, nc.m_talloc, nc.m_comp, nc.m_tmproc)
	if err != nil {
		nc.m_ctx.Error("load: %v", err)
		return err
	}
	navMesh, status := detour.NewDtNavMesh(&set.Header.MeshParams)
	if status.DtStatusFailed() {
		return fmt.Errorf("navcache: navmesh params: %w", status.Err())
	}

	digests := make(map[tileLoc][]uint64)
	for _, t := range set.Tiles {
		loc := tileLoc{t.Header.Tx, t.Header.Ty}
		d := digests[loc]
		for int(t.Header.Tlayer) >= len(d) {
			d = append(d, 0)
		}
		d[t.Header.Tlayer] = xxh3.Hash(t.Data)
		digests[loc] = d
	}
	for loc := range digests {
		if err := tc.BuildNavMeshTilesAt(loc.x, loc.y, navMesh); err != nil {
			nc.m_ctx.Error("load: navmesh tile (%d,%d): %v", loc.x, loc.y, err)
			return err
		}
	}

	nc.m_tileCache = tc
	nc.m_navMesh = navMesh
	nc.m_navParams = set.Header.MeshParams
	nc.m_digests = digests
	nc.m_stats.BuildTime = time.Since(start)
	nc.m_stats.RebuiltTiles = 0
	nc.updateStats()
	nc.m_ctx.Progress("load: %d layers, %d navmesh tiles", nc.m_stats.Layers, nc.m_stats.NavMeshTiles)
	return nil
}

// GetTileCache exposes the runtime tile cache. Callers must not mutate it
// while other NavCache methods run.
func (nc *NavCache) GetTileCache() *detour_tile_cache.DtTileCache {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.m_tileCache
}

func (nc *NavCache) GetNavMesh() *detour.DtNavMesh {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.m_navMesh
}

func (nc *NavCache) updateStats() {
	s := &nc.m_stats
	s.TilesWide, s.TilesHigh = nc.m_tw, nc.m_th
	s.Layers, s.CompressedSize, s.RawSize, s.Obstacles = 0, 0, 0, 0
	for i := 0; i < nc.m_tileCache.GetTileCount(); i++ {
		tile := nc.m_tileCache.GetTile(i)
		if tile.Header == nil {
			continue
		}
		s.Layers++
		s.CompressedSize += len(tile.Data)
		s.RawSize += detour_tile_cache.DtTileCacheLayerHeaderSize + tile.Header.GridSize()*3
	}
	for i := 0; i < nc.m_tileCache.GetObstacleCount(); i++ {
		if nc.m_tileCache.GetObstacle(i).State != detour_tile_cache.DT_OBSTACLE_EMPTY {
			s.Obstacles++
		}
	}
	s.LayersPerTile = float32(s.Layers) / float32(nc.m_tw*nc.m_th)
	s.NavMeshTiles = nc.m_navMesh.TileCount()
	s.Volumes = nc.m_geom.GetConvexVolumeCount()
	s.ArenaPeak = nc.m_talloc.High()
	for _, a := range nc.m_arenas {
		s.ArenaPeak = max(s.ArenaPeak, a.High())
	}
}

// GetStats returns the statistics of the last build, load or rebuild.
func (nc *NavCache) GetStats() Stats {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.m_tileCache != nil {
		nc.updateStats()
	}
	return nc.m_stats
}

// Close releases codec resources.
func (nc *NavCache) Close() error {
	if c, ok := nc.m_comp.(*detour_tile_cache.ZstdCompressor); ok {
		c.Close()
	}
	return nil
}
