package recast

import (
	"github.com/gorustyt/navtilecache/common"
)

const (
	RC_NOT_CONNECTED = 0x3f
)

// / Provides information on the content of a cell column in a compact heightfield.
type RcCompactCell struct {
	Index int ///< Index to the first span in the column.
	Count int ///< Number of spans in the column.
}

// / Represents a span of unobstructed space within a compact heightfield.
type RcCompactSpan struct {
	Y   int ///< The lower extent of the span. (Measured from the heightfield's base.)
	Reg int ///< The id of the region the span belongs to. (Or zero if not in a region.)
	Con int ///< Packed neighbor connection data.
	H   int ///< The height of the span.  (Measured from #y.)
}

// / Sets the neighbor connection data for the specified direction.
func RcSetCon(span *RcCompactSpan, direction int, neighborIndex int) {
	shift := direction * 6
	con := span.Con
	span.Con = (con & ^(0x3f << shift)) | ((neighborIndex & 0x3f) << shift)
}

// / Gets neighbor connection data for the specified direction.
func RcGetCon(span *RcCompactSpan, direction int) int {
	shift := direction * 6
	return (span.Con >> shift) & 0x3f
}

// / A compact, static heightfield representing unobstructed space.
// / @ingroup recast
type RcCompactHeightfield struct {
	Width          int             ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height         int             ///< The height of the heightfield. (Along the z-axis in cell units.)
	SpanCount      int             ///< The number of spans in the heightfield.
	WalkableHeight int             ///< The walkable height used during the build of the field.  (See: RcConfig::walkableHeight)
	WalkableClimb  int             ///< The walkable climb used during the build of the field. (See: RcConfig::walkableClimb)
	BorderSize     int             ///< The AABB border size used during the build of the field. (See: RcConfig::borderSize)
	Bmin           common.Vec3     ///< The minimum bounds in world space. [(x, y, z)]
	Bmax           common.Vec3     ///< The maximum bounds in world space. [(x, y, z)]
	Cs             float32         ///< The size of each cell. (On the xz-plane.)
	Ch             float32         ///< The height of each cell. (The minimum increment along the y-axis.)
	Cells          []RcCompactCell ///< Array of cells. [Size: #width*#height]
	Spans          []RcCompactSpan ///< Array of spans. [Size: #spanCount]
	Areas          []uint8         ///< Array containing area id data. [Size: #spanCount]
}

// / Builds a compact heightfield representing open space, from a heightfield representing solid space.
// /
// / This is just the beginning of the process of fully building a compact heightfield.
// / Various filters may be applied, then the distance field and regions built.
func RcBuildCompactHeightfield(walkableHeight, walkableClimb int, heightfield *RcHeightfield, compactHeightfield *RcCompactHeightfield) bool {
	xSize := heightfield.Width
	zSize := heightfield.Height
	spanCount := heightfield.SpanCount()

	// Fill in header.
	compactHeightfield.Width = xSize
	compactHeightfield.Height = zSize
	compactHeightfield.SpanCount = spanCount
	compactHeightfield.WalkableHeight = walkableHeight
	compactHeightfield.WalkableClimb = walkableClimb
	compactHeightfield.Bmin = heightfield.Bmin
	compactHeightfield.Bmax = heightfield.Bmax
	compactHeightfield.Bmax[1] += float32(walkableHeight) * heightfield.Ch
	compactHeightfield.Cs = heightfield.Cs
	compactHeightfield.Ch = heightfield.Ch
	compactHeightfield.Cells = make([]RcCompactCell, xSize*zSize)
	compactHeightfield.Spans = make([]RcCompactSpan, spanCount)
	compactHeightfield.Areas = make([]uint8, spanCount)

	// Fill in cells and spans.
	currentCellIndex := 0
	for columnIndex, span := range heightfield.Spans {
		// If there are no spans at this cell, just leave the data to index=0, count=0.
		if span == nil {
			continue
		}
		cell := &compactHeightfield.Cells[columnIndex]
		cell.Index = currentCellIndex
		cell.Count = 0

		for ; span != nil; span = span.Next {
			if span.Area == RC_NULL_AREA {
				continue
			}
			bot := span.Smax
			top := spanMaxHeight
			if span.Next != nil {
				top = span.Next.Smin
			}
			compactHeightfield.Spans[currentCellIndex].Y = common.Clamp(bot, 0, 0xffff)
			compactHeightfield.Spans[currentCellIndex].H = common.Clamp(top-bot, 0, 0xff)
			compactHeightfield.Areas[currentCellIndex] = span.Area
			currentCellIndex++
			cell.Count++
		}
	}

	// Find neighbour connections.
	const maxLayers = RC_NOT_CONNECTED - 1
	zStride := xSize // for readability
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := compactHeightfield.Cells[x+z*zStride]
			for i := cell.Index; i < cell.Index+cell.Count; i++ {
				span := &compactHeightfield.Spans[i]

				for dir := 0; dir < 4; dir++ {
					RcSetCon(span, dir, RC_NOT_CONNECTED)
					neighborX := x + common.GetDirOffsetX(dir)
					neighborZ := z + common.GetDirOffsetY(dir)
					// First check that the neighbour cell is in bounds.
					if neighborX < 0 || neighborZ < 0 || neighborX >= xSize || neighborZ >= zSize {
						continue
					}

					// Iterate over all neighbour spans and check if any of the is
					// accessible from current cell.
					neighborCell := compactHeightfield.Cells[neighborX+neighborZ*zStride]
					for k := neighborCell.Index; k < neighborCell.Index+neighborCell.Count; k++ {
						neighborSpan := compactHeightfield.Spans[k]
						bot := max(span.Y, neighborSpan.Y)
						top := min(span.Y+span.H, neighborSpan.Y+neighborSpan.H)

						// Check that the gap between the spans is walkable,
						// and that the climb height between the gaps is not too high.
						if (top-bot) >= walkableHeight && common.Abs(neighborSpan.Y-span.Y) <= walkableClimb {
							// Mark direction as walkable.
							layerIndex := k - neighborCell.Index
							if layerIndex > maxLayers {
								return false
							}
							RcSetCon(span, dir, layerIndex)
							break
						}
					}
				}
			}
		}
	}
	return true
}

// / Erodes the walkable area within the heightfield by the specified radius.
func RcErodeWalkableArea(erosionRadius int, compactHeightfield *RcCompactHeightfield) bool {
	chf := compactHeightfield
	xSize := chf.Width
	zSize := chf.Height

	distanceToBoundary := make([]uint8, chf.SpanCount)
	for i := range distanceToBoundary {
		distanceToBoundary[i] = 0xff
	}
	// Mark boundary cells.
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				if chf.Areas[spanIndex] == RC_NULL_AREA {
					distanceToBoundary[spanIndex] = 0
					continue
				}
				span := &chf.Spans[spanIndex]

				// Check that there is a non-null adjacent span in each of the 4 cardinal directions.
				neighborCount := 0
				for direction := 0; direction < 4; direction++ {
					neighborConnection := RcGetCon(span, direction)
					if neighborConnection == RC_NOT_CONNECTED {
						break
					}
					neighborX := x + common.GetDirOffsetX(direction)
					neighborZ := z + common.GetDirOffsetY(direction)
					neighborSpanIndex := chf.Cells[neighborX+neighborZ*xSize].Index + neighborConnection
					if chf.Areas[neighborSpanIndex] == RC_NULL_AREA {
						break
					}
					neighborCount++
				}

				// At least one missing neighbour, so this is a boundary cell.
				if neighborCount != 4 {
					distanceToBoundary[spanIndex] = 0
				}
			}
		}
	}

	// relax updates the distance of spanIndex through the neighbour in dir
	// and the diagonal neighbour reached by turning to diagDir.
	relax := func(x, z, spanIndex, dir, diagDir int) {
		span := &chf.Spans[spanIndex]
		if RcGetCon(span, dir) == RC_NOT_CONNECTED {
			return
		}
		aX := x + common.GetDirOffsetX(dir)
		aY := z + common.GetDirOffsetY(dir)
		aIndex := chf.Cells[aX+aY*xSize].Index + RcGetCon(span, dir)
		aSpan := &chf.Spans[aIndex]
		newDistance := uint8(min(int(distanceToBoundary[aIndex])+2, 255))
		if newDistance < distanceToBoundary[spanIndex] {
			distanceToBoundary[spanIndex] = newDistance
		}
		if RcGetCon(aSpan, diagDir) == RC_NOT_CONNECTED {
			return
		}
		bX := aX + common.GetDirOffsetX(diagDir)
		bY := aY + common.GetDirOffsetY(diagDir)
		bIndex := chf.Cells[bX+bY*xSize].Index + RcGetCon(aSpan, diagDir)
		newDistance = uint8(min(int(distanceToBoundary[bIndex])+3, 255))
		if newDistance < distanceToBoundary[spanIndex] {
			distanceToBoundary[spanIndex] = newDistance
		}
	}

	// Pass 1
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				relax(x, z, spanIndex, 0, 3) // (-1,0) then (-1,-1)
				relax(x, z, spanIndex, 3, 2) // (0,-1) then (1,-1)
			}
		}
	}

	// Pass 2
	for z := zSize - 1; z >= 0; z-- {
		for x := xSize - 1; x >= 0; x-- {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				relax(x, z, spanIndex, 2, 1) // (1,0) then (1,1)
				relax(x, z, spanIndex, 1, 0) // (0,1) then (-1,1)
			}
		}
	}

	minBoundaryDistance := erosionRadius * 2
	for spanIndex := 0; spanIndex < chf.SpanCount; spanIndex++ {
		if int(distanceToBoundary[spanIndex]) < minBoundaryDistance {
			chf.Areas[spanIndex] = RC_NULL_AREA
		}
	}
	return true
}

// / Applies the area id to the all spans within the specified convex polygon.
// /
// / The y-values of the polygon vertices are ignored. So the polygon is effectively
// / projected onto the xz-plane, translated to @p minY, and extruded to @p maxY.
func RcMarkConvexPolyArea(verts []common.Vec3, minY, maxY float32, areaId uint8, compactHeightfield *RcCompactHeightfield) {
	chf := compactHeightfield
	xSize := chf.Width
	zSize := chf.Height

	// Compute the bounding box of the polygon
	bmin, bmax := common.PolyBounds(verts)
	bmin[1] = minY
	bmax[1] = maxY

	// Compute the grid footprint of the polygon
	minx := int((bmin[0] - chf.Bmin[0]) / chf.Cs)
	miny := int((bmin[1] - chf.Bmin[1]) / chf.Ch)
	minz := int((bmin[2] - chf.Bmin[2]) / chf.Cs)
	maxx := int((bmax[0] - chf.Bmin[0]) / chf.Cs)
	maxy := int((bmax[1] - chf.Bmin[1]) / chf.Ch)
	maxz := int((bmax[2] - chf.Bmin[2]) / chf.Cs)

	// Early-out if the polygon lies entirely outside the grid.
	if maxx < 0 || minx >= xSize || maxz < 0 || minz >= zSize {
		return
	}

	// Clamp the polygon footprint to the grid
	minx = max(minx, 0)
	maxx = min(maxx, xSize-1)
	minz = max(minz, 0)
	maxz = min(maxz, zSize-1)

	for z := minz; z <= maxz; z++ {
		for x := minx; x <= maxx; x++ {
			cell := chf.Cells[x+z*xSize]
			for spanIndex := cell.Index; spanIndex < cell.Index+cell.Count; spanIndex++ {
				// Skip if span is removed.
				if chf.Areas[spanIndex] == RC_NULL_AREA {
					continue
				}
				// Skip if y extents don't overlap.
				span := chf.Spans[spanIndex]
				if span.Y < miny || span.Y > maxy {
					continue
				}
				point := common.Vec3{
					chf.Bmin[0] + (float32(x)+0.5)*chf.Cs,
					0,
					chf.Bmin[2] + (float32(z)+0.5)*chf.Cs,
				}
				if common.PointInPoly(verts, point) {
					chf.Areas[spanIndex] = areaId
				}
			}
		}
	}
}
