package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log/level"
)

// WriteOBJ writes prefix.obj, its material library prefix.mtl and the
// textures next to them.
func (s *Scene) WriteOBJ(prefix string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	dir, base := filepath.Dir(prefix), filepath.Base(prefix)
	if err := s.writeMTL(prefix + ".mtl"); err != nil {
		return err
	}

	f, err := os.Create(prefix + ".obj")
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# o2graph\nmtllib %s.mtl\n", base)
	offset := 1
	var textures []string
	for _, g := range s.Groups {
		fmt.Fprintf(w, "g %s\n", g.Name)
		for _, v := range g.Vertices {
			fmt.Fprintf(w, "v %g %g %g\n", v.X, v.Y, v.Z)
		}
		for _, n := range g.Normals {
			fmt.Fprintf(w, "vn %g %g %g\n", n.X, n.Y, n.Z)
		}
		for _, t := range g.TexCoords {
			fmt.Fprintf(w, "vt %g %g\n", t[0], t[1])
		}
		current := "\x00"
		for _, face := range g.Faces {
			if m := g.materialOf(face); m != current {
				if m != "" {
					fmt.Fprintf(w, "usemtl %s\n", m)
				}
				current = m
			}
			fmt.Fprint(w, "f")
			for _, v := range face.V {
				fmt.Fprintf(w, " %s", objVertex(v+offset, len(g.TexCoords) > 0, len(g.Normals) > 0))
			}
			fmt.Fprintln(w)
		}
		offset += len(g.Vertices)
	}
	for _, m := range s.Materials() {
		if m.Texture != "" {
			textures = append(textures, m.Texture)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := s.writeTextures(dir, textures); err != nil {
		return err
	}
	level.Info(s.logger).Log("msg", "wrote obj", "prefix", prefix, "groups", len(s.Groups))
	return nil
}

// objVertex formats one face corner. Vertex, texture and normal
// indices coincide since the attributes are stored per vertex.
func objVertex(i int, uv, normal bool) string {
	switch {
	case uv && normal:
		return fmt.Sprintf("%d/%d/%d", i, i, i)
	case normal:
		return fmt.Sprintf("%d//%d", i, i)
	case uv:
		return fmt.Sprintf("%d/%d", i, i)
	}
	return fmt.Sprint(i)
}

func (s *Scene) writeMTL(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, m := range s.Materials() {
		fmt.Fprintf(w, "newmtl %s\n", m.Name)
		fmt.Fprintf(w, "Ka %g %g %g\n", m.Ambient[0], m.Ambient[1], m.Ambient[2])
		fmt.Fprintf(w, "Kd %g %g %g\n", m.Diffuse[0], m.Diffuse[1], m.Diffuse[2])
		fmt.Fprintf(w, "Ks %g %g %g\n", m.Specular[0], m.Specular[1], m.Specular[2])
		fmt.Fprintf(w, "Ns %g\n", m.Exponent)
		fmt.Fprintf(w, "d %g\n", m.Alpha)
		if m.Texture != "" {
			fmt.Fprintf(w, "map_Kd %s\n", m.Texture)
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
