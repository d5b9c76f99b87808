package scene

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot/palette/moreland"

	"github.com/o2graph-lang/o2graph/logutil"
)

func TestArrowValid(t *testing.T) {
	s := New(logutil.Discard)
	s.AddMaterial(Solid("red", 1, 0, 0))
	g, err := Arrow("a", r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}, ArrowOptions{Segments: 8, Material: "red"})
	if err != nil {
		t.Fatal(err)
	}
	s.Add(g)
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// shaft 2n, two caps of n+1, cone ring n plus tip.
	if got, want := len(g.Vertices), 2*8+2*9+8+1; got != want {
		t.Errorf("vertices = %d, want %d", got, want)
	}
	if got, want := len(g.Faces), 2*8+8+8+8; got != want {
		t.Errorf("faces = %d, want %d", got, want)
	}
	for i, n := range g.Normals {
		if math.Abs(r3.Norm(n)-1) > 1e-9 {
			t.Fatalf("normal %d not unit: %v", i, n)
		}
	}
	if _, err := Arrow("z", r3.Vec{X: 1}, r3.Vec{X: 1}, ArrowOptions{}); err == nil {
		t.Error("zero-length arrow should fail")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(s *Scene, g *Group)
		want string
	}{
		{"index", func(s *Scene, g *Group) { g.AddFace(0, 1, 7, "") }, "out of range"},
		{"material", func(s *Scene, g *Group) { g.AddFace(0, 1, 2, "nope") }, "unknown material"},
		{"normals", func(s *Scene, g *Group) { g.Normals = g.Normals[:1] }, "normals"},
		{"texture", func(s *Scene, g *Group) {
			m := Solid("tex", 1, 1, 1)
			m.Texture = "missing.png"
			s.AddMaterial(m)
		}, "not added"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil)
			g := &Group{Name: "tri"}
			g.AddVertex(r3.Vec{}, r3.Vec{Z: 1})
			g.AddVertex(r3.Vec{X: 1}, r3.Vec{Z: 1})
			g.AddVertex(r3.Vec{Y: 1}, r3.Vec{Z: 1})
			s.Add(g)
			tt.edit(s, g)
			err := s.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLimits(t *testing.T) {
	l := Limits{Lo: [3]float64{0, -1, 10}, Hi: [3]float64{2, 1, 20}}
	p := r3.Vec{X: 1, Y: 0.5, Z: 12}
	n := l.Normalize(p)
	if diff := cmp.Diff(r3.Vec{X: 0.5, Y: 0.75, Z: 0.2}, n, cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-12 })); diff != "" {
		t.Errorf("Normalize (-want +got):\n%s", diff)
	}
	if back := l.Denormalize(n); r3.Norm(r3.Sub(back, p)) > 1e-12 {
		t.Errorf("Denormalize = %v, want %v", back, p)
	}
	if (Limits{}).Valid() {
		t.Error("zero limits should not be valid")
	}
}

func grid(n int) (x, y, z []float64) {
	for i := 0; i < n; i++ {
		x = append(x, 2*float64(i)/float64(n-1))
		y = append(y, 2*float64(i)/float64(n-1))
	}
	for _, xi := range x {
		for _, yj := range y {
			z = append(z, math.Sin(xi)*math.Cos(yj))
		}
	}
	return x, y, z
}

func TestDensitySurfaceBins(t *testing.T) {
	s := New(nil)
	x, y, z := grid(21)
	g, err := DensitySurface(s, "den", x, y, z, Limits{}, moreland.ExtendedBlackBody(), 10)
	if err != nil {
		t.Fatal(err)
	}
	s.Add(g)
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if got, want := len(g.Faces), 2*20*20; got != want {
		t.Errorf("faces = %d, want %d", got, want)
	}
	if got := len(s.Materials()); got != 10 {
		t.Errorf("materials = %d, want 10", got)
	}
	for _, v := range g.Vertices {
		for _, c := range []float64{v.X, v.Y, v.Z} {
			if c < -1e-12 || c > 1+1e-12 {
				t.Fatalf("vertex %v outside the unit cube", v)
			}
		}
	}

	plain := New(nil)
	g, err = DensitySurface(plain, "den", x, y, z, Limits{}, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if g.Material != DefaultMaterial {
		t.Errorf("material = %q, want %q", g.Material, DefaultMaterial)
	}
	if _, err := DensitySurface(plain, "bad", x, y, z[1:], Limits{}, nil, 0); err == nil {
		t.Error("mismatched grid should fail")
	}
}

func TestRenderLabel(t *testing.T) {
	data, aspect, err := RenderLabel(`$\alpha$ axis`, 32)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	if got := float64(b.Dx()) / float64(b.Dy()); math.Abs(got-aspect) > 1e-12 {
		t.Errorf("aspect = %v, image is %v", aspect, got)
	}
	if plainLabel(`$\mathrm{x}_1$`) != "x_1" {
		t.Errorf("plainLabel = %q", plainLabel(`$\mathrm{x}_1$`))
	}
}

func axesScene(t *testing.T) *Scene {
	t.Helper()
	s := New(nil)
	if err := Axes(s, "x", "y", "z"); err != nil {
		t.Fatal(err)
	}
	x, y, z := grid(5)
	g, err := DensitySurface(s, "den", x, y, z, Limits{}, moreland.SmoothBlueRed(), 4)
	if err != nil {
		t.Fatal(err)
	}
	s.Add(g)
	return s
}

func TestWriteGLTF(t *testing.T) {
	s := axesScene(t)
	prefix := filepath.Join(t.TempDir(), "out")
	if err := s.WriteGLTF(prefix); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(prefix + ".gltf")
	if err != nil {
		t.Fatal(err)
	}
	var doc gltfDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if got, want := len(doc.Nodes), len(s.Groups); got != want {
		t.Errorf("nodes = %d, want one per group (%d)", got, want)
	}
	if got := len(doc.Scenes[0].Nodes); got != len(s.Groups) {
		t.Errorf("scene lists %d nodes", got)
	}

	bin, err := os.ReadFile(prefix + ".bin")
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, v := range doc.BufferViews {
		total += v.ByteLength
		if v.ByteOffset%4 != 0 && v.Target == gltfArrayBuffer {
			t.Errorf("float view at unaligned offset %d", v.ByteOffset)
		}
	}
	if total != len(bin) || doc.Buffers[0].ByteLength != len(bin) {
		t.Errorf("bin is %d bytes, views sum to %d, buffer says %d", len(bin), total, doc.Buffers[0].ByteLength)
	}

	// Position accessors carry exact float32 extrema.
	for _, m := range doc.Meshes {
		acc := doc.Accessors[m.Primitives[0].Attributes["POSITION"]]
		view := doc.BufferViews[acc.BufferView]
		vals := make([]float32, view.ByteLength/4)
		if err := binary.Read(bytes.NewReader(bin[view.ByteOffset:view.ByteOffset+view.ByteLength]), binary.LittleEndian, vals); err != nil {
			t.Fatal(err)
		}
		lo, hi := extrema(vals, 3)
		if diff := cmp.Diff(lo, acc.Min); diff != "" {
			t.Errorf("mesh %s min (-want +got):\n%s", m.Name, diff)
		}
		if diff := cmp.Diff(hi, acc.Max); diff != "" {
			t.Errorf("mesh %s max (-want +got):\n%s", m.Name, diff)
		}
		for _, p := range m.Primitives {
			idx := doc.Accessors[p.Indices]
			if idx.ComponentType != gltfUnsignedShort || idx.Count%3 != 0 {
				t.Errorf("mesh %s: bad index accessor %+v", m.Name, idx)
			}
		}
	}
	for _, img := range doc.Images {
		if _, err := os.Stat(filepath.Join(filepath.Dir(prefix), img.URI)); err != nil {
			t.Errorf("texture %s: %v", img.URI, err)
		}
	}
}

func TestWriteOBJ(t *testing.T) {
	s := axesScene(t)
	prefix := filepath.Join(t.TempDir(), "out")
	if err := s.WriteOBJ(prefix); err != nil {
		t.Fatal(err)
	}
	obj, err := os.ReadFile(prefix + ".obj")
	if err != nil {
		t.Fatal(err)
	}
	mtl, err := os.ReadFile(prefix + ".mtl")
	if err != nil {
		t.Fatal(err)
	}
	text := string(obj)
	if !strings.Contains(text, "mtllib out.mtl") {
		t.Error("missing mtllib")
	}
	var verts, groups, faces int
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "v "):
			verts++
		case strings.HasPrefix(line, "g "):
			groups++
		case strings.HasPrefix(line, "f "):
			faces++
		}
	}
	wantVerts, wantFaces := 0, 0
	for _, g := range s.Groups {
		wantVerts += len(g.Vertices)
		wantFaces += len(g.Faces)
	}
	if verts != wantVerts || faces != wantFaces || groups != len(s.Groups) {
		t.Errorf("obj has %d v, %d f, %d g; want %d, %d, %d", verts, faces, groups, wantVerts, wantFaces, len(s.Groups))
	}
	for _, m := range s.Materials() {
		if !strings.Contains(string(mtl), "newmtl "+m.Name+"\n") {
			t.Errorf("mtl lacks %s", m.Name)
		}
	}
	if !strings.Contains(string(mtl), "map_Kd x_axis_label.png") {
		t.Error("label texture not referenced")
	}
}
