package scene

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/floats"
)

// glTF constants.
const (
	gltfFloat         = 5126
	gltfUnsignedShort = 5123
	gltfArrayBuffer   = 34962
	gltfElementBuffer = 34963
	gltfTriangles     = 4
)

type gltfDoc struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       int              `json:"scene"`
	Scenes      []gltfScene      `json:"scenes"`
	Nodes       []gltfNode       `json:"nodes"`
	Meshes      []gltfMesh       `json:"meshes"`
	Materials   []gltfMaterial   `json:"materials,omitempty"`
	Textures    []gltfTexture    `json:"textures,omitempty"`
	Images      []gltfImage      `json:"images,omitempty"`
	Samplers    []gltfSampler    `json:"samplers,omitempty"`
	Accessors   []gltfAccessor   `json:"accessors"`
	BufferViews []gltfBufferView `json:"bufferViews"`
	Buffers     []gltfBuffer     `json:"buffers"`
}

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type gltfScene struct {
	Nodes []int `json:"nodes"`
}

type gltfNode struct {
	Name string `json:"name,omitempty"`
	Mesh int    `json:"mesh"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
	Material   *int           `json:"material,omitempty"`
	Mode       int            `json:"mode"`
}

type gltfMaterial struct {
	Name        string  `json:"name"`
	PBR         gltfPBR `json:"pbrMetallicRoughness"`
	AlphaMode   string  `json:"alphaMode,omitempty"`
	DoubleSided bool    `json:"doubleSided"`
}

type gltfPBR struct {
	BaseColorFactor  [4]float64      `json:"baseColorFactor"`
	BaseColorTexture *gltfTextureRef `json:"baseColorTexture,omitempty"`
	MetallicFactor   float64         `json:"metallicFactor"`
	RoughnessFactor  float64         `json:"roughnessFactor"`
}

type gltfTextureRef struct {
	Index int `json:"index"`
}

type gltfTexture struct {
	Sampler int `json:"sampler"`
	Source  int `json:"source"`
}

type gltfImage struct {
	URI string `json:"uri"`
}

type gltfSampler struct {
	MagFilter int `json:"magFilter"`
	MinFilter int `json:"minFilter"`
}

type gltfAccessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float64 `json:"min,omitempty"`
	Max           []float64 `json:"max,omitempty"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target,omitempty"`
}

type gltfBuffer struct {
	URI        string `json:"uri"`
	ByteLength int    `json:"byteLength"`
}

// gltfBuilder lays every float view first and every index view after,
// so that views stay aligned without padding.
type gltfBuilder struct {
	doc              gltfDoc
	floatBuf, idxBuf bytes.Buffer
	idxViews         []int
}

func (b *gltfBuilder) floatView(data []float32, n int, typ string, minmax bool) int {
	off := b.floatBuf.Len()
	binary.Write(&b.floatBuf, binary.LittleEndian, data)
	b.doc.BufferViews = append(b.doc.BufferViews, gltfBufferView{ByteOffset: off, ByteLength: 4 * len(data), Target: gltfArrayBuffer})
	acc := gltfAccessor{
		BufferView:    len(b.doc.BufferViews) - 1,
		ComponentType: gltfFloat,
		Count:         len(data) / n,
		Type:          typ,
	}
	if minmax {
		acc.Min, acc.Max = extrema(data, n)
	}
	b.doc.Accessors = append(b.doc.Accessors, acc)
	return len(b.doc.Accessors) - 1
}

func (b *gltfBuilder) indexView(idx []uint16) int {
	off := b.idxBuf.Len()
	binary.Write(&b.idxBuf, binary.LittleEndian, idx)
	b.doc.BufferViews = append(b.doc.BufferViews, gltfBufferView{ByteOffset: off, ByteLength: 2 * len(idx), Target: gltfElementBuffer})
	view := len(b.doc.BufferViews) - 1
	b.idxViews = append(b.idxViews, view)
	b.doc.Accessors = append(b.doc.Accessors, gltfAccessor{
		BufferView:    view,
		ComponentType: gltfUnsignedShort,
		Count:         len(idx),
		Type:          "SCALAR",
	})
	return len(b.doc.Accessors) - 1
}

// extrema returns the per-component minimum and maximum of n-vectors
// packed in data, as written.
func extrema(data []float32, n int) (lo, hi []float64) {
	lo, hi = make([]float64, n), make([]float64, n)
	col := make([]float64, len(data)/n)
	for k := 0; k < n; k++ {
		for i := range col {
			col[i] = float64(data[i*n+k])
		}
		lo[k], hi[k] = floats.Min(col), floats.Max(col)
	}
	return lo, hi
}

func vec3s(g *Group, normals bool) []float32 {
	src := g.Vertices
	if normals {
		src = g.Normals
	}
	out := make([]float32, 0, 3*len(src))
	for _, v := range src {
		out = append(out, float32(v.X), float32(v.Y), float32(v.Z))
	}
	return out
}

// WriteGLTF writes prefix.gltf, prefix.bin and the textures next to
// them. Each group becomes one node and one mesh with a primitive per
// material.
func (s *Scene) WriteGLTF(prefix string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	dir, base := filepath.Dir(prefix), filepath.Base(prefix)
	b := &gltfBuilder{}
	b.doc.Asset = gltfAsset{Version: "2.0", Generator: "o2graph"}

	// Materials in name order, textures in the order first used.
	matIndex := map[string]int{}
	var texNames []string
	for i, m := range s.Materials() {
		matIndex[m.Name] = i
		gm := gltfMaterial{
			Name: m.Name,
			PBR: gltfPBR{
				BaseColorFactor: [4]float64{m.Diffuse[0], m.Diffuse[1], m.Diffuse[2], m.Alpha},
				MetallicFactor:  0,
				RoughnessFactor: math.Max(0, 1-m.Exponent/1000),
			},
			DoubleSided: true,
		}
		if m.Alpha < 1 {
			gm.AlphaMode = "BLEND"
		}
		if m.Texture != "" {
			gm.PBR.BaseColorTexture = &gltfTextureRef{Index: len(texNames)}
			texNames = append(texNames, m.Texture)
			b.doc.Textures = append(b.doc.Textures, gltfTexture{Sampler: 0, Source: len(b.doc.Images)})
			b.doc.Images = append(b.doc.Images, gltfImage{URI: m.Texture})
		}
		b.doc.Materials = append(b.doc.Materials, gm)
	}
	if len(texNames) > 0 {
		b.doc.Samplers = []gltfSampler{{MagFilter: 9729, MinFilter: 9987}}
	}

	type pending struct {
		mesh, prim int
		idx        []uint16
	}
	var indices []pending
	b.doc.Scenes = []gltfScene{{Nodes: []int{}}}
	for gi, g := range s.Groups {
		if len(g.Vertices) > math.MaxUint16+1 {
			return fmt.Errorf("gltf: group %q has %d vertices, more than 16-bit indices allow", g.Name, len(g.Vertices))
		}
		attrs := map[string]int{"POSITION": b.floatView(vec3s(g, false), 3, "VEC3", true)}
		if len(g.Normals) > 0 {
			attrs["NORMAL"] = b.floatView(vec3s(g, true), 3, "VEC3", true)
		}
		if len(g.TexCoords) > 0 {
			uv := make([]float32, 0, 2*len(g.TexCoords))
			for _, t := range g.TexCoords {
				uv = append(uv, float32(t[0]), float32(t[1]))
			}
			attrs["TEXCOORD_0"] = b.floatView(uv, 2, "VEC2", false)
		}

		byMat := map[string][]uint16{}
		var order []string
		for _, f := range g.Faces {
			m := g.materialOf(f)
			if _, seen := byMat[m]; !seen {
				order = append(order, m)
			}
			byMat[m] = append(byMat[m], uint16(f.V[0]), uint16(f.V[1]), uint16(f.V[2]))
		}
		sort.Strings(order)
		mesh := gltfMesh{Name: g.Name}
		for _, m := range order {
			p := gltfPrimitive{Attributes: attrs, Mode: gltfTriangles}
			if m != "" {
				mi := matIndex[m]
				p.Material = &mi
			}
			indices = append(indices, pending{mesh: gi, prim: len(mesh.Primitives), idx: byMat[m]})
			mesh.Primitives = append(mesh.Primitives, p)
		}
		b.doc.Meshes = append(b.doc.Meshes, mesh)
		b.doc.Nodes = append(b.doc.Nodes, gltfNode{Name: g.Name, Mesh: gi})
		b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, gi)
	}
	for _, p := range indices {
		b.doc.Meshes[p.mesh].Primitives[p.prim].Indices = b.indexView(p.idx)
	}
	floatLen := b.floatBuf.Len()
	for _, v := range b.idxViews {
		b.doc.BufferViews[v].ByteOffset += floatLen
	}
	bin := append(b.floatBuf.Bytes(), b.idxBuf.Bytes()...)
	b.doc.Buffers = []gltfBuffer{{URI: base + ".bin", ByteLength: len(bin)}}

	manifest, err := json.MarshalIndent(b.doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(prefix+".gltf", manifest, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(prefix+".bin", bin, 0o644); err != nil {
		return err
	}
	if err := s.writeTextures(dir, texNames); err != nil {
		return err
	}
	level.Info(s.logger).Log("msg", "wrote gltf", "prefix", prefix, "nodes", len(b.doc.Nodes), "bytes", len(bin))
	return nil
}

func (s *Scene) writeTextures(dir string, names []string) error {
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), s.textures[name], 0o644); err != nil {
			return err
		}
	}
	return nil
}
