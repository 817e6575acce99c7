package detour_tile_cache

import (
	"fmt"
	"math"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/detour"
)

type DtTileCachePolyMesh struct {
	Nvp    int
	Nverts int      ///< Number of vertices.
	Npolys int      ///< Number of polygons.
	Verts  []uint16 ///< Vertices of the mesh, 3 elements per vertex.
	Polys  []uint16 ///< Polygons of the mesh, nvp elements per polygon.
	Flags  []uint16 ///< Per polygon flags.
	Areas  []uint8  ///< Area ID of polygons.
}

// DtTileCacheMeshProcess adjusts polygon areas and flags before a tile is
// handed to the navigation mesh.
type DtTileCacheMeshProcess interface {
	Process(params *detour.DtNavMeshCreateParams, polyAreas []uint8, polyFlags []uint16)
}

// DtTileCacheMeshBuilder turns a decompressed layer into a polygon mesh.
type DtTileCacheMeshBuilder interface {
	BuildPolyMesh(layer *DtTileCacheLayer, walkableClimb int) (*DtTileCachePolyMesh, error)
}

// DefaultMeshBuilder groups cells into regions and covers every region with
// axis aligned quads.
type DefaultMeshBuilder struct{}

func (DefaultMeshBuilder) BuildPolyMesh(layer *DtTileCacheLayer, walkableClimb int) (*DtTileCachePolyMesh, error) {
	if err := DtBuildTileCacheRegions(layer, walkableClimb); err != nil {
		return nil, err
	}
	return DtBuildTileCachePolyMesh(layer, walkableClimb)
}

func layerConnected(layer *DtTileCacheLayer, idx, nidx, dir, walkableClimb int) bool {
	if layer.Cons[idx]>>4&(1<<dir) == 0 {
		return false
	}
	if layer.Areas[nidx] != layer.Areas[idx] {
		return false
	}
	return common.Abs(int(layer.Heights[nidx])-int(layer.Heights[idx])) <= walkableClimb
}

// DtBuildTileCacheRegions assigns a region id to every walkable cell. Cells
// share a region when they are connected and carry the same area.
func DtBuildTileCacheRegions(layer *DtTileCacheLayer, walkableClimb int) error {
	w := int(layer.Header.Width)
	h := int(layer.Header.Height)
	for i := range layer.Regs {
		layer.Regs[i] = 0xff
	}

	regId := 0
	stack := make([]int, 0, 64)
	for start := 0; start < w*h; start++ {
		if layer.Areas[start] == DT_TILECACHE_NULL_AREA || layer.Regs[start] != 0xff {
			continue
		}
		if regId >= 0xff {
			return fmt.Errorf("tile layer: too many regions: %w", common.ErrCapacityExceeded)
		}
		layer.Regs[start] = uint8(regId)
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x := idx % w
			z := idx / w
			for dir := 0; dir < 4; dir++ {
				nx := x + common.GetDirOffsetX(dir)
				nz := z + common.GetDirOffsetY(dir)
				if nx < 0 || nz < 0 || nx >= w || nz >= h {
					continue
				}
				nidx := nx + nz*w
				if layer.Regs[nidx] != 0xff || layer.Areas[nidx] == DT_TILECACHE_NULL_AREA {
					continue
				}
				if !layerConnected(layer, idx, nidx, dir, walkableClimb) {
					continue
				}
				layer.Regs[nidx] = uint8(regId)
				stack = append(stack, nidx)
			}
		}
		regId++
	}
	layer.RegCount = regId
	return nil
}

// DtBuildTileCachePolyMesh covers the regions of a layer with quads. Vertices
// are in cell units relative to the layer origin.
func DtBuildTileCachePolyMesh(layer *DtTileCacheLayer, walkableClimb int) (*DtTileCachePolyMesh, error) {
	const nvp = detour.DT_VERTS_PER_POLYGON
	w := int(layer.Header.Width)
	h := int(layer.Header.Height)
	mesh := &DtTileCachePolyMesh{Nvp: nvp}
	used := make([]bool, w*h)
	vertIndex := make(map[[3]uint16]uint16)

	addVert := func(x, y, z int) (uint16, error) {
		key := [3]uint16{uint16(x), uint16(y), uint16(z)}
		if i, ok := vertIndex[key]; ok {
			return i, nil
		}
		if mesh.Nverts >= DT_TILECACHE_NULL_IDX-1 {
			return 0, fmt.Errorf("tile mesh: too many vertices: %w", common.ErrCapacityExceeded)
		}
		i := uint16(mesh.Nverts)
		vertIndex[key] = i
		mesh.Verts = append(mesh.Verts, key[:]...)
		mesh.Nverts++
		return i, nil
	}
	open := func(idx, reg int) bool {
		return !used[idx] && layer.Areas[idx] != DT_TILECACHE_NULL_AREA && int(layer.Regs[idx]) == reg
	}

	for z := 0; z < h; z++ {
		for x := 0; x < w; x++ {
			idx := x + z*w
			reg := int(layer.Regs[idx])
			if reg == 0xff || !open(idx, reg) {
				continue
			}
			// Grow along +x.
			x1 := x
			for x1+1 < w && open(x1+1+z*w, reg) && layerConnected(layer, x1+z*w, x1+1+z*w, 2, walkableClimb) {
				x1++
			}
			// Grow along +z while the whole run continues.
			z1 := z
			for z1+1 < h {
				ok := true
				for xx := x; xx <= x1 && ok; xx++ {
					nidx := xx + (z1+1)*w
					ok = open(nidx, reg) && layerConnected(layer, xx+z1*w, nidx, 1, walkableClimb)
					if ok && xx > x {
						ok = layerConnected(layer, nidx-1, nidx, 2, walkableClimb)
					}
				}
				if !ok {
					break
				}
				z1++
			}
			for zz := z; zz <= z1; zz++ {
				for xx := x; xx <= x1; xx++ {
					used[xx+zz*w] = true
				}
			}

			corners := [4][3]int{
				{x, int(layer.Heights[x+z*w]), z},
				{x, int(layer.Heights[x+z1*w]), z1 + 1},
				{x1 + 1, int(layer.Heights[x1+z1*w]), z1 + 1},
				{x1 + 1, int(layer.Heights[x1+z*w]), z},
			}
			var poly [nvp]uint16
			for i := range poly {
				poly[i] = DT_TILECACHE_NULL_IDX
			}
			for i, c := range corners {
				vi, err := addVert(c[0], c[1], c[2])
				if err != nil {
					return nil, err
				}
				poly[i] = vi
			}
			mesh.Polys = append(mesh.Polys, poly[:]...)
			mesh.Areas = append(mesh.Areas, layer.Areas[idx])
			mesh.Flags = append(mesh.Flags, 0)
			mesh.Npolys++
		}
	}
	return mesh, nil
}

// DtMarkCylinderArea sets the area of every cell inside the cylinder.
func DtMarkCylinderArea(layer *DtTileCacheLayer, orig [3]float32, cs, ch float32,
	pos common.Vec3, radius, height float32, areaId uint8) {
	bmin := common.Vec3{pos[0] - radius, pos[1], pos[2] - radius}
	bmax := common.Vec3{pos[0] + radius, pos[1] + height, pos[2] + radius}
	r2 := common.Sqr(radius/cs + 0.5)

	w := int(layer.Header.Width)
	h := int(layer.Header.Height)
	ics := 1.0 / cs
	ich := 1.0 / ch

	px := (pos[0] - orig[0]) * ics
	pz := (pos[2] - orig[2]) * ics

	minx, miny, minz := cellFloor(bmin, orig, ics, ich)
	maxx, maxy, maxz := cellFloor(bmax, orig, ics, ich)
	minx, maxx, minz, maxz, ok := clampFootprint(minx, maxx, minz, maxz, w, h)
	if !ok {
		return
	}

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			dx := (float32(x) + 0.5) - px
			dz := (float32(z) + 0.5) - pz
			if dx*dx+dz*dz > r2 {
				continue
			}
			markCell(layer, x+z*w, miny, maxy, areaId)
		}
	}
}

// DtMarkBoxArea sets the area of every cell inside the axis aligned box.
func DtMarkBoxArea(layer *DtTileCacheLayer, orig [3]float32, cs, ch float32,
	bmin, bmax common.Vec3, areaId uint8) {
	w := int(layer.Header.Width)
	h := int(layer.Header.Height)
	ics := 1.0 / cs
	ich := 1.0 / ch

	minx, miny, minz := cellFloor(bmin, orig, ics, ich)
	maxx, maxy, maxz := cellFloor(bmax, orig, ics, ich)
	minx, maxx, minz, maxz, ok := clampFootprint(minx, maxx, minz, maxz, w, h)
	if !ok {
		return
	}

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			markCell(layer, x+z*w, miny, maxy, areaId)
		}
	}
}

// DtMarkOrientedBoxArea sets the area of every cell inside a box rotated
// around the y axis. rotAux holds the precomputed rotation terms.
func DtMarkOrientedBoxArea(layer *DtTileCacheLayer, orig [3]float32, cs, ch float32,
	center, halfExtents common.Vec3, rotAux [2]float32, areaId uint8) {
	w := int(layer.Header.Width)
	h := int(layer.Header.Height)
	ics := 1.0 / cs
	ich := 1.0 / ch

	cx := (center[0] - orig[0]) * ics
	cz := (center[2] - orig[2]) * ics

	maxr := 1.41 * max(halfExtents[0], halfExtents[2])
	minx := int(math.Floor(float64(cx - maxr*ics)))
	maxx := int(math.Floor(float64(cx + maxr*ics)))
	minz := int(math.Floor(float64(cz - maxr*ics)))
	maxz := int(math.Floor(float64(cz + maxr*ics)))
	miny := int(math.Floor(float64((center[1] - halfExtents[1] - orig[1]) * ich)))
	maxy := int(math.Floor(float64((center[1] + halfExtents[1] - orig[1]) * ich)))
	minx, maxx, minz, maxz, ok := clampFootprint(minx, maxx, minz, maxz, w, h)
	if !ok {
		return
	}

	xhalf := halfExtents[0]*ics + 0.5
	zhalf := halfExtents[2]*ics + 0.5
	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			x2 := 2.0 * (float32(x) - cx)
			z2 := 2.0 * (float32(z) - cz)
			xrot := rotAux[1]*x2 + rotAux[0]*z2
			if xrot > xhalf || xrot < -xhalf {
				continue
			}
			zrot := rotAux[1]*z2 - rotAux[0]*x2
			if zrot > zhalf || zrot < -zhalf {
				continue
			}
			markCell(layer, x+z*w, miny, maxy, areaId)
		}
	}
}

// DtMarkConvexArea sets the area of every cell whose centre lies inside the
// polygon footprint and whose height lies within hmin..hmax.
func DtMarkConvexArea(layer *DtTileCacheLayer, orig [3]float32, cs, ch float32,
	verts []common.Vec3, hmin, hmax float32, areaId uint8) {
	w := int(layer.Header.Width)
	h := int(layer.Header.Height)
	ics := 1.0 / cs
	ich := 1.0 / ch

	bmin, bmax := common.PolyBounds(verts)
	bmin[1], bmax[1] = hmin, hmax
	minx, miny, minz := cellFloor(bmin, orig, ics, ich)
	maxx, maxy, maxz := cellFloor(bmax, orig, ics, ich)
	minx, maxx, minz, maxz, ok := clampFootprint(minx, maxx, minz, maxz, w, h)
	if !ok {
		return
	}

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			p := common.Vec3{orig[0] + (float32(x)+0.5)*cs, 0, orig[2] + (float32(z)+0.5)*cs}
			if !common.PointInPoly(verts, p) {
				continue
			}
			markCell(layer, x+z*w, miny, maxy, areaId)
		}
	}
}

func cellFloor(p common.Vec3, orig [3]float32, ics, ich float32) (x, y, z int) {
	x = int(math.Floor(float64((p[0] - orig[0]) * ics)))
	y = int(math.Floor(float64((p[1] - orig[1]) * ich)))
	z = int(math.Floor(float64((p[2] - orig[2]) * ics)))
	return
}

func clampFootprint(minx, maxx, minz, maxz, w, h int) (int, int, int, int, bool) {
	if maxx < 0 || minx >= w || maxz < 0 || minz >= h {
		return 0, 0, 0, 0, false
	}
	return max(minx, 0), min(maxx, w-1), max(minz, 0), min(maxz, h-1), true
}

func markCell(layer *DtTileCacheLayer, idx, miny, maxy int, areaId uint8) {
	y := int(layer.Heights[idx])
	if y < miny || y > maxy {
		return
	}
	layer.Areas[idx] = areaId
}
