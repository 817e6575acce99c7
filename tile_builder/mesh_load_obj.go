package tile_builder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gorustyt/navtilecache/common"
)

// MeshLoaderObj holds the vertices and triangles read from a Wavefront OBJ
// file. Only v and f records are used.
type MeshLoaderObj struct {
	m_filename string
	m_scale    float32
	m_verts    []float32
	m_tris     []int32
}

func NewMeshLoaderObj() *MeshLoaderObj {
	return &MeshLoaderObj{m_scale: 1}
}

func (m *MeshLoaderObj) GetVerts() []float32 { return m.m_verts }
func (m *MeshLoaderObj) GetTris() []int32    { return m.m_tris }
func (m *MeshLoaderObj) GetVertCount() int   { return len(m.m_verts) / 3 }
func (m *MeshLoaderObj) GetTriCount() int    { return len(m.m_tris) / 3 }
func (m *MeshLoaderObj) GetFileName() string { return m.m_filename }

func (m *MeshLoaderObj) SetScale(scale float32) { m.m_scale = scale }

// LoadObjFile reads an OBJ file from disk.
func LoadObjFile(p string) (*MeshLoaderObj, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m := NewMeshLoaderObj()
	if err := m.Load(f); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	m.m_filename = p
	return m, nil
}

// Load appends the geometry read from r. Parse errors carry the line number
// and wrap common.ErrCorruptData.
func (m *MeshLoaderObj) Load(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		row := strings.TrimSpace(sc.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		if err := m.parseRow(strings.Fields(row)); err != nil {
			return fmt.Errorf("obj line %d: %v: %w", lineNo, err, common.ErrCorruptData)
		}
	}
	return sc.Err()
}

func (m *MeshLoaderObj) parseRow(ss []string) error {
	switch ss[0] {
	case "v":
		return m.parseVertex(ss[1:])
	case "f":
		return m.parseFace(ss[1:])
	}
	// vn, vt, o, g, usemtl...
	return nil
}

func (m *MeshLoaderObj) parseVertex(ss []string) error {
	if len(ss) < 3 {
		return fmt.Errorf("vertex with %d components", len(ss))
	}
	var v [3]float32
	for i := range v {
		f, err := strconv.ParseFloat(ss[i], 32)
		if err != nil {
			return err
		}
		v[i] = float32(f)
	}
	m.addVertex(v[0], v[1], v[2])
	return nil
}

func (m *MeshLoaderObj) parseFace(ss []string) error {
	const maxFaceVerts = 32
	nverts := m.GetVertCount()
	data := make([]int32, 0, len(ss))
	for _, s := range ss {
		if len(data) >= maxFaceVerts {
			break
		}
		vs := strings.SplitN(s, "/", 2)
		vi, err := strconv.Atoi(vs[0])
		if err != nil {
			return err
		}
		if vi < 0 {
			vi += nverts
		} else {
			vi--
		}
		if vi < 0 || vi >= nverts {
			return fmt.Errorf("face references vertex %s of %d", vs[0], nverts)
		}
		data = append(data, int32(vi))
	}
	if len(data) < 3 {
		return fmt.Errorf("face with %d vertices", len(data))
	}
	// Fan triangulation.
	for i := 2; i < len(data); i++ {
		m.addTriangle(data[0], data[i-1], data[i])
	}
	return nil
}

func (m *MeshLoaderObj) addVertex(x, y, z float32) {
	m.m_verts = append(m.m_verts, x*m.m_scale, y*m.m_scale, z*m.m_scale)
}

func (m *MeshLoaderObj) addTriangle(a, b, c int32) {
	m.m_tris = append(m.m_tris, a, b, c)
}
