package detour

import (
	"github.com/gorustyt/navtilecache/common/rw"
)

// NavMeshParamsSize is the encoded size of NavMeshParams.
const NavMeshParamsSize = 4*3 + 4 + 4 + 4 + 4

func (params *NavMeshParams) ToBin(w *rw.Writer) {
	w.WriteFloat32s(params.Orig[:])
	w.WriteFloat32(params.TileWidth)
	w.WriteFloat32(params.TileHeight)
	w.WriteInt32(params.MaxTiles)
	w.WriteInt32(params.MaxPolys)
}

func (params *NavMeshParams) FromBin(r *rw.Reader) {
	r.ReadFloat32s(params.Orig[:])
	params.TileWidth = r.ReadFloat32()
	params.TileHeight = r.ReadFloat32()
	params.MaxTiles = r.ReadInt32()
	params.MaxPolys = r.ReadInt32()
}
