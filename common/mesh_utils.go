package common

// / Checks if a point is contained within a polygon on the xz-plane.
// /
// / @param[in]	verts		The polygon vertices
// / @param[in]	point		The point to check
// / @returns true if the point lies within the polygon, false otherwise.
func PointInPoly(verts []Vec3, point Vec3) bool {
	inPoly := false
	n := len(verts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi := verts[i]
		vj := verts[j]
		if (vi[2] > point[2]) == (vj[2] > point[2]) {
			continue
		}
		if point[0] >= (vj[0]-vi[0])*(point[2]-vi[2])/(vj[2]-vi[2])+vi[0] {
			continue
		}
		inPoly = !inPoly
	}
	return inPoly
}

// PolyBounds returns the bounds of a polygon footprint.
func PolyBounds(verts []Vec3) (bmin, bmax Vec3) {
	if len(verts) == 0 {
		return
	}
	bmin, bmax = verts[0], verts[0]
	for _, v := range verts[1:] {
		Vmin(bmin[:], v[:])
		Vmax(bmax[:], v[:])
	}
	return bmin, bmax
}
