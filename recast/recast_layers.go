package recast

import (
	"sort"

	"github.com/gorustyt/navtilecache/common"
)

// Largest height above Hmin a layer cell can store; 0xff marks an empty cell.
const RC_MAX_LAYER_HEIGHT = 0xfe

// / Represents a set of heightfield layers.
// / @ingroup recast
type RcHeightfieldLayerSet struct {
	Layers []*RcHeightfieldLayer ///< The layers in the set.
}

// / The number of layers in the set.
func (lset *RcHeightfieldLayerSet) Nlayers() int {
	if lset == nil {
		return 0
	}
	return len(lset.Layers)
}

// / Represents a heightfield layer within a layer set.
// / @see RcHeightfieldLayerSet
type RcHeightfieldLayer struct {
	Bmin    common.Vec3 ///< The minimum bounds in world space. [(x, y, z)]
	Bmax    common.Vec3 ///< The maximum bounds in world space. [(x, y, z)]
	Cs      float32     ///< The size of each cell. (On the xz-plane.)
	Ch      float32     ///< The height of each cell. (The minimum increment along the y-axis.)
	Width   int         ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height  int         ///< The height of the heightfield. (Along the z-axis in cell units.)
	Minx    int         ///< The minimum x-bounds of usable data.
	Maxx    int         ///< The maximum x-bounds of usable data.
	Miny    int         ///< The minimum y-bounds of usable data. (Along the z-axis.)
	Maxy    int         ///< The maximum y-bounds of usable data. (Along the z-axis.)
	Hmin    int         ///< The minimum height bounds of usable data. (Along the y-axis.)
	Hmax    int         ///< The maximum height bounds of usable data. (Along the y-axis.)
	Heights []uint8     ///< The heightfield. [Size: width * height]
	Areas   []uint8     ///< Area ids. [Size: Same as #heights]
	Cons    []uint8     ///< Packed neighbor connection information. [Size: Same as #heights]
}

// / Builds a layer set from the compact heightfield.
// /
// / A layer holds, for every column inside the border, the k-th walkable floor
// / counted from the bottom, so a column with three walkable floors contributes
// / to layers 0, 1 and 2. Connection data packs the same-layer neighbour mask in
// / the high nibble and the portal mask (neighbour only reachable on another
// / layer) in the low nibble. Floors of the same index whose heights span more
// / than RC_MAX_LAYER_HEIGHT cells are split into several layers.
func RcBuildHeightfieldLayers(chf *RcCompactHeightfield, borderSize, walkableHeight, walkableClimb int, lset *RcHeightfieldLayerSet) bool {
	lset.Layers = lset.Layers[:0]
	w := chf.Width - borderSize*2
	h := chf.Height - borderSize*2
	if w <= 0 || h <= 0 {
		return true
	}

	// Floors of every interior column, bottom to top.
	floors := make([][]int, w*h) // compact span indices
	nlayers := 0
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			cell := chf.Cells[(x+borderSize)+(z+borderSize)*chf.Width]
			var col []int
			for i := cell.Index; i < cell.Index+cell.Count; i++ {
				if chf.Areas[i] == RC_NULL_AREA || chf.Spans[i].H < walkableHeight {
					continue
				}
				col = append(col, i)
			}
			floors[x+z*w] = col
			nlayers = max(nlayers, len(col))
		}
	}

	for k := 0; k < nlayers; k++ {
		var ys []int
		for _, col := range floors {
			if k < len(col) {
				ys = append(ys, chf.Spans[col[k]].Y)
			}
		}
		bands := layerHeightBands(ys)
		bandOf := func(col []int) int {
			if k >= len(col) {
				return -1
			}
			return sort.SearchInts(bands, chf.Spans[col[k]].Y+1) - 1
		}
		for b := range bands {
			lset.Layers = append(lset.Layers, buildLayer(chf, floors, k, b, bandOf, borderSize, walkableClimb))
		}
	}
	return true
}

// / Splits the floor heights of one floor index into bands that fit the 8 bit
// / layer height. Returns the lowest height of every band, ascending.
func layerHeightBands(ys []int) []int {
	sort.Ints(ys)
	var bands []int
	for _, y := range ys {
		if len(bands) == 0 || y-bands[len(bands)-1] > RC_MAX_LAYER_HEIGHT {
			bands = append(bands, y)
		}
	}
	return bands
}

func buildLayer(chf *RcCompactHeightfield, floors [][]int, k, band int, bandOf func(col []int) int,
	borderSize, walkableClimb int) *RcHeightfieldLayer {
	w := chf.Width - borderSize*2
	h := chf.Height - borderSize*2
	layer := &RcHeightfieldLayer{
		Width:   w,
		Height:  h,
		Cs:      chf.Cs,
		Ch:      chf.Ch,
		Minx:    w,
		Maxx:    0,
		Miny:    h,
		Maxy:    0,
		Hmin:    0xffff,
		Hmax:    0,
		Heights: make([]uint8, w*h),
		Areas:   make([]uint8, w*h),
		Cons:    make([]uint8, w*h),
	}
	for i := range layer.Heights {
		layer.Heights[i] = 0xff
	}
	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			col := floors[x+z*w]
			if bandOf(col) != band {
				continue
			}
			s := chf.Spans[col[k]]
			layer.Hmin = min(layer.Hmin, s.Y)
			layer.Hmax = max(layer.Hmax, s.Y)
			layer.Minx = min(layer.Minx, x)
			layer.Maxx = max(layer.Maxx, x)
			layer.Miny = min(layer.Miny, z)
			layer.Maxy = max(layer.Maxy, z)
		}
	}

	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			idx := x + z*w
			col := floors[idx]
			if bandOf(col) != band {
				continue
			}
			s := chf.Spans[col[k]]
			layer.Heights[idx] = uint8(s.Y - layer.Hmin)
			layer.Areas[idx] = chf.Areas[col[k]]

			var con, portal uint8
			for dir := 0; dir < 4; dir++ {
				nx := x + common.GetDirOffsetX(dir)
				nz := z + common.GetDirOffsetY(dir)
				if nx < 0 || nz < 0 || nx >= w || nz >= h {
					continue
				}
				ncol := floors[nx+nz*w]
				if bandOf(ncol) == band && common.Abs(chf.Spans[ncol[k]].Y-s.Y) <= walkableClimb {
					con |= 1 << dir
					continue
				}
				for _, ni := range ncol {
					if common.Abs(chf.Spans[ni].Y-s.Y) <= walkableClimb {
						portal |= 1 << dir
						break
					}
				}
			}
			layer.Cons[idx] = con<<4 | portal
		}
	}

	layer.Bmin = chf.Bmin
	layer.Bmax = chf.Bmax
	layer.Bmin[0] += float32(borderSize) * chf.Cs
	layer.Bmin[2] += float32(borderSize) * chf.Cs
	layer.Bmax[0] -= float32(borderSize) * chf.Cs
	layer.Bmax[2] -= float32(borderSize) * chf.Cs
	layer.Bmin[1] = chf.Bmin[1] + float32(layer.Hmin)*chf.Ch
	layer.Bmax[1] = chf.Bmin[1] + float32(layer.Hmax)*chf.Ch
	return layer
}
