// Package scene holds 3-D objects as groups of triangular faces with a
// material arena, and writes them as glTF or Wavefront OBJ.
package scene

import (
	"fmt"
	"sort"

	"github.com/go-kit/log"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/o2graph-lang/o2graph/logutil"
)

// Material is a Phong material. Texture names an image added with
// AddTexture.
type Material struct {
	Name     string
	Ambient  [3]float64
	Diffuse  [3]float64
	Specular [3]float64
	Exponent float64
	Alpha    float64
	Texture  string
}

// Solid returns an opaque material of one diffuse color.
func Solid(name string, r, g, b float64) Material {
	return Material{
		Name:     name,
		Ambient:  [3]float64{r * 0.2, g * 0.2, b * 0.2},
		Diffuse:  [3]float64{r, g, b},
		Specular: [3]float64{0.1, 0.1, 0.1},
		Exponent: 10,
		Alpha:    1,
	}
}

// Face is a triangle of vertex indices into its group. An empty
// Material means the group default.
type Face struct {
	V        [3]int
	Material string
}

// Group is one object: a vertex list with optional per-vertex normals
// and texture coordinates, and faces over it.
type Group struct {
	Name      string
	Material  string
	Vertices  []r3.Vec
	Normals   []r3.Vec
	TexCoords [][2]float64
	Faces     []Face
}

// AddVertex appends a vertex with its normal and returns its index.
func (g *Group) AddVertex(v, n r3.Vec) int {
	g.Vertices = append(g.Vertices, v)
	g.Normals = append(g.Normals, n)
	return len(g.Vertices) - 1
}

// AddFace appends a triangle.
func (g *Group) AddFace(a, b, c int, material string) {
	g.Faces = append(g.Faces, Face{V: [3]int{a, b, c}, Material: material})
}

// materialOf resolves the material of face f.
func (g *Group) materialOf(f Face) string {
	if f.Material != "" {
		return f.Material
	}
	return g.Material
}

// Scene is the list of groups plus the material arena. Faces refer to
// materials by name only.
type Scene struct {
	Groups    []*Group
	materials map[string]Material
	textures  map[string][]byte
	logger    log.Logger
}

// New returns an empty scene.
func New(logger log.Logger) *Scene {
	return &Scene{
		materials: map[string]Material{},
		textures:  map[string][]byte{},
		logger:    logutil.With(logger, "scene"),
	}
}

// AddMaterial stores m, replacing a material of the same name.
func (s *Scene) AddMaterial(m Material) {
	if m.Alpha == 0 {
		m.Alpha = 1
	}
	s.materials[m.Name] = m
}

// Material looks up a material by name.
func (s *Scene) Material(name string) (Material, bool) {
	m, ok := s.materials[name]
	return m, ok
}

// Materials returns the materials sorted by name.
func (s *Scene) Materials() []Material {
	out := make([]Material, 0, len(s.materials))
	for _, m := range s.materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddTexture stores PNG data under a file name.
func (s *Scene) AddTexture(name string, png []byte) {
	s.textures[name] = png
}

// Add appends a group.
func (s *Scene) Add(g *Group) {
	s.Groups = append(s.Groups, g)
}

// Group returns the first group with the given name.
func (s *Scene) Group(name string) *Group {
	for _, g := range s.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Clear drops every group, material and texture.
func (s *Scene) Clear() {
	s.Groups = nil
	s.materials = map[string]Material{}
	s.textures = map[string][]byte{}
}

// Validate checks that every face index is in range, every material
// reference resolves, and normals and texture coordinates, when
// present, match the vertex count.
func (s *Scene) Validate() error {
	for gi, g := range s.Groups {
		n := len(g.Vertices)
		if len(g.Normals) != 0 && len(g.Normals) != n {
			return fmt.Errorf("group %d (%s): %d normals for %d vertices", gi, g.Name, len(g.Normals), n)
		}
		if len(g.TexCoords) != 0 && len(g.TexCoords) != n {
			return fmt.Errorf("group %d (%s): %d texture coordinates for %d vertices", gi, g.Name, len(g.TexCoords), n)
		}
		if g.Material != "" {
			if _, ok := s.materials[g.Material]; !ok {
				return fmt.Errorf("group %d (%s): unknown material %q", gi, g.Name, g.Material)
			}
		}
		for fi, f := range g.Faces {
			for _, v := range f.V {
				if v < 0 || v >= n {
					return fmt.Errorf("group %d (%s) face %d: vertex %d out of range [0,%d)", gi, g.Name, fi, v, n)
				}
			}
			if f.Material != "" {
				if _, ok := s.materials[f.Material]; !ok {
					return fmt.Errorf("group %d (%s) face %d: unknown material %q", gi, g.Name, fi, f.Material)
				}
			}
		}
	}
	for _, m := range s.materials {
		if m.Texture != "" {
			if _, ok := s.textures[m.Texture]; !ok {
				return fmt.Errorf("material %q: texture %q not added", m.Name, m.Texture)
			}
		}
	}
	return nil
}
