package scene

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"os"
	"strings"
	"sync"

	"github.com/flopp/go-findfont"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// LabelFonts are the system fonts tried, in order, for label textures.
// Go Regular is used when none is found.
var LabelFonts = []string{"DejaVuSans.ttf", "LiberationSans-Regular.ttf", "Arial.ttf"}

var (
	labelFontOnce sync.Once
	labelFont     *opentype.Font
)

func loadLabelFont() *opentype.Font {
	labelFontOnce.Do(func() {
		for _, name := range LabelFonts {
			path, err := findfont.Find(name)
			if err != nil {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if f, err := opentype.Parse(data); err == nil {
				labelFont = f
				return
			}
		}
		labelFont, _ = opentype.Parse(goregular.TTF)
	})
	return labelFont
}

// plainLabel drops math-mode dollars and a leading backslash from
// TeX command names.
func plainLabel(s string) string {
	s = strings.ReplaceAll(s, "$", "")
	return strings.NewReplacer(`\mathrm`, "", `\rm`, "", "{", "", "}", "", `\`, "").Replace(s)
}

// RenderLabel draws s in black on white at size pixels and returns the
// PNG data with its width/height ratio.
func RenderLabel(s string, size float64) ([]byte, float64, error) {
	var face font.Face = basicfont.Face7x13
	if f := loadLabelFont(); f != nil {
		ff, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err == nil {
			face = ff
			defer ff.Close()
		}
	}
	s = plainLabel(s)
	m := face.Metrics()
	pad := int(size / 4)
	w := font.MeasureString(face, s).Ceil() + 2*pad
	h := (m.Ascent + m.Descent).Ceil() + 2*pad
	if w < h {
		w = h
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(pad, pad+m.Ascent.Ceil()),
	}
	d.DrawString(s)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), float64(w) / float64(h), nil
}
