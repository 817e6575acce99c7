package recast

import (
	"math"

	"github.com/gorustyt/navtilecache/common"
)

type rcAxis int

const (
	RC_AXIS_X rcAxis = 0
	RC_AXIS_Y rcAxis = 1
	RC_AXIS_Z rcAxis = 2
)

// /	Rasterize a single triangle to the heightfield.
// /
// / @param[in] 	v0					Triangle vertex 0
// / @param[in] 	v1					Triangle vertex 1
// / @param[in] 	v2					Triangle vertex 2
// / @param[in] 	areaID				The area ID to assign to the rasterized spans
// / @param[in] 	heightfield			Heightfield to rasterize into
// / @param[in] 	flagMergeThreshold	The threshold in which area flags will be merged
// / @returns true if the operation completes successfully.  false if there was an error adding spans to the heightfield.
func rasterizeTri(v0, v1, v2 common.Vec3, areaID uint8, heightfield *RcHeightfield, flagMergeThreshold int) bool {
	cellSize := heightfield.Cs
	inverseCellSize := 1.0 / heightfield.Cs
	inverseCellHeight := 1.0 / heightfield.Ch
	heightfieldBBMin := heightfield.Bmin
	heightfieldBBMax := heightfield.Bmax

	// Calculate the bounding box of the triangle.
	triBBMin, triBBMax := v0, v0
	common.Vmin(triBBMin[:], v1[:])
	common.Vmin(triBBMin[:], v2[:])
	common.Vmax(triBBMax[:], v1[:])
	common.Vmax(triBBMax[:], v2[:])

	// If the triangle does not touch the bounding box of the heightfield, skip the triangle.
	if !common.OverlapBounds(triBBMin[:], triBBMax[:], heightfieldBBMin[:], heightfieldBBMax[:]) {
		return true
	}

	w := heightfield.Width
	h := heightfield.Height
	by := heightfieldBBMax[1] - heightfieldBBMin[1]

	// Calculate the footprint of the triangle on the grid's z-axis
	z0 := int((triBBMin[2] - heightfieldBBMin[2]) * inverseCellSize)
	z1 := int((triBBMax[2] - heightfieldBBMin[2]) * inverseCellSize)

	// use -1 rather than 0 to cut the polygon properly at the start of the tile
	z0 = common.Clamp(z0, -1, h-1)
	z1 = common.Clamp(z1, 0, h-1)

	// Clip the triangle into all grid cells it touches.
	var buf [7 * 3 * 4]float32
	in := buf[0 : 7*3]
	inRow := buf[7*3 : 14*3]
	p1 := buf[14*3 : 21*3]
	p2 := buf[21*3 : 28*3]

	copy(in[0:], v0[:])
	copy(in[1*3:], v1[:])
	copy(in[2*3:], v2[:])
	nvRow := 0
	nvIn := 3

	for z := z0; z <= z1; z++ {
		// Clip polygon to row. Store the remaining polygon as well
		cellZ := heightfieldBBMin[2] + float32(z)*cellSize
		nvRow, nvIn = dividePoly(in, nvIn, inRow, p1, cellZ+cellSize, RC_AXIS_Z)
		in, p1 = p1, in

		if nvRow < 3 {
			continue
		}
		if z < 0 {
			continue
		}

		// find X-axis bounds of the row
		minX := inRow[0]
		maxX := inRow[0]
		for vert := 1; vert < nvRow; vert++ {
			minX = min(minX, inRow[vert*3])
			maxX = max(maxX, inRow[vert*3])
		}
		x0 := int((minX - heightfieldBBMin[0]) * inverseCellSize)
		x1 := int((maxX - heightfieldBBMin[0]) * inverseCellSize)
		if x1 < 0 || x0 >= w {
			continue
		}
		x0 = common.Clamp(x0, -1, w-1)
		x1 = common.Clamp(x1, 0, w-1)

		nv := 0
		nv2 := nvRow

		for x := x0; x <= x1; x++ {
			// Clip polygon to column. store the remaining polygon as well
			cx := heightfieldBBMin[0] + float32(x)*cellSize
			nv, nv2 = dividePoly(inRow, nv2, p1, p2, cx+cellSize, RC_AXIS_X)
			inRow, p2 = p2, inRow

			if nv < 3 {
				continue
			}
			if x < 0 {
				continue
			}

			// Calculate min and max of the span.
			spanMin := p1[1]
			spanMax := p1[1]
			for vert := 1; vert < nv; vert++ {
				spanMin = min(spanMin, p1[vert*3+1])
				spanMax = max(spanMax, p1[vert*3+1])
			}
			spanMin -= heightfieldBBMin[1]
			spanMax -= heightfieldBBMin[1]

			// Skip the span if it's completely outside the heightfield bounding box
			if spanMax < 0.0 {
				continue
			}
			if spanMin > by {
				continue
			}

			// Clamp the span to the heightfield bounding box.
			spanMin = max(spanMin, 0)
			spanMax = min(spanMax, by)

			// Snap the span to the heightfield height grid.
			spanMinCellIndex := common.Clamp(int(math.Floor(float64(spanMin*inverseCellHeight))), 0, RC_SPAN_MAX_HEIGHT)
			spanMaxCellIndex := common.Clamp(int(math.Ceil(float64(spanMax*inverseCellHeight))), spanMinCellIndex+1, RC_SPAN_MAX_HEIGHT)

			if !addSpan(heightfield, x, z, spanMinCellIndex, spanMaxCellIndex, areaID, flagMergeThreshold) {
				return false
			}
		}
	}

	return true
}

// / Rasterizes an indexed triangle mesh into the specified heightfield.
// /
// / Spans will only be added for triangles that overlap the heightfield grid.
func RcRasterizeTriangles(verts []float32, tris []int32, triAreaIDs []uint8, heightfield *RcHeightfield, flagMergeThreshold int) bool {
	numTris := len(tris) / 3
	if len(triAreaIDs) < numTris {
		return false
	}
	for triIndex := 0; triIndex < numTris; triIndex++ {
		v0 := common.ToVec3(verts, tris[triIndex*3+0])
		v1 := common.ToVec3(verts, tris[triIndex*3+1])
		v2 := common.ToVec3(verts, tris[triIndex*3+2])
		if !rasterizeTri(v0, v1, v2, triAreaIDs[triIndex], heightfield, flagMergeThreshold) {
			return false
		}
	}
	return true
}

// / Rasterizes a single triangle into the specified heightfield.
func RcRasterizeTriangle(v0, v1, v2 common.Vec3, areaID uint8, heightfield *RcHeightfield, flagMergeThreshold int) bool {
	return rasterizeTri(v0, v1, v2, areaID, heightfield, flagMergeThreshold)
}

// / Divides a convex polygon of max 12 vertices into two convex polygons
// / across a separating axis.
// /
// / @param[in]	inVerts			The input polygon vertices
// / @param[in]	inVertsCount	The number of input polygon vertices
// / @param[out]	outVerts1		Resulting polygon 1's vertices
// / @param[out]	outVerts2		Resulting polygon 2's vertices
// / @param[in]	axisOffset		THe offset along the specified axis
// / @param[in]	axis			The separating axis
// / @return The number of vertices of polygon 1 and polygon 2.
func dividePoly(inVerts []float32, inVertsCount int,
	outVerts1, outVerts2 []float32,
	axisOffset float32, axis rcAxis) (poly1Vert, poly2Vert int) {

	// How far positive or negative away from the separating axis is each vertex.
	var inVertAxisDelta [12]float32
	for inVert := 0; inVert < inVertsCount; inVert++ {
		inVertAxisDelta[inVert] = axisOffset - inVerts[inVert*3+int(axis)]
	}

	inVertA := 0
	inVertB := inVertsCount - 1
	for inVertA < inVertsCount {
		// If the two vertices are on the same side of the separating axis
		sameSide := (inVertAxisDelta[inVertA] >= 0) == (inVertAxisDelta[inVertB] >= 0)

		if !sameSide {
			s := inVertAxisDelta[inVertB] / (inVertAxisDelta[inVertB] - inVertAxisDelta[inVertA])
			outVerts1[poly1Vert*3+0] = inVerts[inVertB*3+0] + (inVerts[inVertA*3+0]-inVerts[inVertB*3+0])*s
			outVerts1[poly1Vert*3+1] = inVerts[inVertB*3+1] + (inVerts[inVertA*3+1]-inVerts[inVertB*3+1])*s
			outVerts1[poly1Vert*3+2] = inVerts[inVertB*3+2] + (inVerts[inVertA*3+2]-inVerts[inVertB*3+2])*s

			copy(common.GetVert3(outVerts2, poly2Vert), common.GetVert3(outVerts1, poly1Vert))
			poly1Vert++
			poly2Vert++

			// add the inVertA point to the right polygon. Do NOT add points that are on the dividing line
			// since these were already added above
			if inVertAxisDelta[inVertA] > 0 {
				copy(common.GetVert3(outVerts1, poly1Vert), common.GetVert3(inVerts, inVertA))
				poly1Vert++
			} else if inVertAxisDelta[inVertA] < 0 {
				copy(common.GetVert3(outVerts2, poly2Vert), common.GetVert3(inVerts, inVertA))
				poly2Vert++
			}
		} else {
			// add the inVertA point to the right polygon. Addition is done even for points on the dividing line
			if inVertAxisDelta[inVertA] >= 0 {
				copy(common.GetVert3(outVerts1, poly1Vert), common.GetVert3(inVerts, inVertA))
				poly1Vert++
				if inVertAxisDelta[inVertA] != 0 {
					inVertB = inVertA
					inVertA++
					continue
				}
			}

			copy(common.GetVert3(outVerts2, poly2Vert), common.GetVert3(inVerts, inVertA))
			poly2Vert++
		}
		inVertB = inVertA
		inVertA++
	}
	return poly1Vert, poly2Vert
}

// / Adds a span to the heightfield.  If the new span overlaps existing spans,
// / it will merge the new span with the existing ones.
// /
// / @param[in]	heightfield			Heightfield to add spans to
// / @param[in]	x					The new span's column cell x index
// / @param[in]	z					The new span's column cell z index
// / @param[in]	minValue			The new span's minimum cell index
// / @param[in]	maxValue			The new span's maximum cell index
// / @param[in]	areaID				The new span's area type ID
// / @param[in]	flagMergeThreshold	How close two spans maximum extents need to be to merge area type IDs
func addSpan(heightfield *RcHeightfield, x, z, minValue, maxValue int, areaID uint8, flagMergeThreshold int) bool {
	// Create the new span.
	newSpan := allocSpan(heightfield)
	if newSpan == nil {
		return false
	}
	newSpan.Smin = minValue
	newSpan.Smax = maxValue
	newSpan.Area = areaID
	newSpan.Next = nil

	columnIndex := x + z*heightfield.Width
	var previousSpan *RcSpan
	currentSpan := heightfield.Spans[columnIndex]

	// Insert the new span, possibly merging it with existing spans.
	for currentSpan != nil {
		if currentSpan.Smin > newSpan.Smax {
			// Current span is completely after the new span, break.
			break
		}

		if currentSpan.Smax < newSpan.Smin {
			// Current span is completely before the new span.  Keep going.
			previousSpan = currentSpan
			currentSpan = currentSpan.Next
			continue
		}
		// The new span overlaps with an existing span.  Merge them.
		newSpan.Smin = min(newSpan.Smin, currentSpan.Smin)
		newSpan.Smax = max(newSpan.Smax, currentSpan.Smax)

		// Merge flags.
		if common.Abs(newSpan.Smax-currentSpan.Smax) <= flagMergeThreshold {
			// Higher area ID numbers indicate higher resolution priority.
			newSpan.Area = max(newSpan.Area, currentSpan.Area)
		}

		// Remove the current span since it's now merged with newSpan.
		// Keep going because there might be other overlapping spans that also need to be merged.
		next := currentSpan.Next
		freeSpan(heightfield, currentSpan)
		if previousSpan != nil {
			previousSpan.Next = next
		} else {
			heightfield.Spans[columnIndex] = next
		}
		currentSpan = next
	}

	// Insert new span after prev
	if previousSpan != nil {
		newSpan.Next = previousSpan.Next
		previousSpan.Next = newSpan
	} else {
		// This span should go before the others in the list
		newSpan.Next = heightfield.Spans[columnIndex]
		heightfield.Spans[columnIndex] = newSpan
	}
	return true
}

// / Adds a span to the specified heightfield.
func RcAddSpan(heightfield *RcHeightfield, x, z, spanMin, spanMax int, areaID uint8, flagMergeThreshold int) bool {
	if x < 0 || z < 0 || x >= heightfield.Width || z >= heightfield.Height || spanMin >= spanMax {
		return false
	}
	return addSpan(heightfield, x, z, spanMin, spanMax, areaID, flagMergeThreshold)
}

// / Releases the memory used by the span back to the heightfield, so it can be re-used for new spans.
func freeSpan(heightfield *RcHeightfield, span *RcSpan) {
	if span == nil {
		return
	}
	// Add the span to the front of the free list.
	span.Next = heightfield.freelist
	heightfield.freelist = span
}

// / Allocates a new span in the heightfield.
// / Use a memory pool and free list to minimize actual allocations.
func allocSpan(heightfield *RcHeightfield) *RcSpan {
	// If necessary, allocate new page and update the freelist.
	if heightfield.freelist == nil {
		spanPool := &RcSpanPool{next: heightfield.pools}
		heightfield.pools = spanPool

		// Add new spans to the free list.
		for i := RC_SPANS_PER_POOL - 1; i >= 0; i-- {
			spanPool.items[i].Next = heightfield.freelist
			heightfield.freelist = &spanPool.items[i]
		}
	}

	// Pop item from the front of the free list.
	newSpan := heightfield.freelist
	heightfield.freelist = newSpan.Next
	return newSpan
}
