package figure

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/o2graph-lang/o2graph/logutil"
)

// Movie describes one encoding run: numbered frames matching Pattern
// (an ffmpeg pattern such as "frame_%03d.png") into Out.
type Movie struct {
	Pattern string
	Out     string
	Filter  string
	Loop    bool
}

// Output returns Out with ".mp4" appended when it has no extension.
func (m Movie) Output() string {
	if filepath.Ext(m.Out) == "" {
		return m.Out + ".mp4"
	}
	return m.Out
}

// Args returns the encoder arguments: 10 frames per second, H.264 at
// crf 25 in yuv420p, overwriting the output.
func (m Movie) Args() []string {
	args := []string{"-y", "-r", "10"}
	if m.Loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", m.Pattern)
	if m.Filter != "" {
		args = append(args, "-vf", m.Filter)
	}
	return append(args, "-vcodec", "libx264", "-pix_fmt", "yuv420p", "-crf", "25", m.Output())
}

// Encoder runs ffmpeg.
type Encoder struct {
	// Path is the ffmpeg executable; "ffmpeg" when empty.
	Path   string
	Logger log.Logger
}

// Encode runs the encoder and checks that the output exists.
func (e Encoder) Encode(ctx context.Context, m Movie) error {
	path := e.Path
	if path == "" {
		path = "ffmpeg"
	}
	logger := logutil.With(e.Logger, "mp4")
	args := m.Args()
	level.Info(logger).Log("msg", "encoding", "cmd", path+" "+strings.Join(args, " "))

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout, cmd.Stderr = &out, &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mp4: %s: %w\n%s", path, err, strings.TrimSpace(out.String()))
	}
	st, err := os.Stat(m.Output())
	if err != nil {
		return fmt.Errorf("mp4: %w", err)
	}
	if st.Size() == 0 {
		return fmt.Errorf("mp4: %s is empty", m.Output())
	}
	return nil
}

// FrameFunc returns the grid of frame i.
type FrameFunc func(i int) (Grid, error)

// DenPlotAnim renders n density frames into a temporary directory and
// encodes them into out. With reverse set the frames run from n-1 down
// to 0. The color range is fixed over all frames. Frames are drawn on a
// scratch figure, so the current figure is left as it was. The frame
// directory is removed afterwards unless keep_frames is true.
func (f *Figure) DenPlotAnim(ctx context.Context, enc Encoder, n int, frame FrameFunc, reverse bool, out string, kw Kwargs) (err error) {
	kw = orEmpty(kw)
	if n < 1 {
		return fmt.Errorf("den-plot-anim: no frames")
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
		if reverse {
			order[i] = n - 1 - i
		}
	}

	grids := make([]Grid, n)
	var all []float64
	for k, i := range order {
		g, err := frame(i)
		if err != nil {
			return fmt.Errorf("den-plot-anim: frame %d: %w", i, err)
		}
		grids[k] = g
		all = append(all, gridXYZ{g: g, log: f.State.LogZ}.values()...)
	}
	lo, hi := rangeOf(all)
	kwz := withDefaults(kw, map[string]float64{"zmin": lo, "zmax": hi})

	dir, err := os.MkdirTemp("", "o2graph-anim-")
	if err != nil {
		return err
	}
	if kw.Bool("keep_frames", false) {
		defer func() {
			if err != nil {
				err = fmt.Errorf("%w (frames kept in %s)", err, dir)
			}
		}()
	} else {
		defer os.RemoveAll(dir)
	}

	scratch := &Figure{State: f.State, Viewer: f.Viewer, logger: f.logger}
	for k, g := range grids {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("den-plot-anim: %w", err)
		}
		scratch.Clear()
		if err := scratch.DenPlot(g, kwz); err != nil {
			return fmt.Errorf("den-plot-anim: frame %d: %w", k, err)
		}
		if err := scratch.Save(filepath.Join(dir, fmt.Sprintf("frame_%04d.png", k))); err != nil {
			return fmt.Errorf("den-plot-anim: %w", err)
		}
	}
	m := Movie{Pattern: filepath.Join(dir, "frame_%04d.png"), Out: out, Filter: kw.Str("vf", ""), Loop: kw.Bool("loop", false)}
	return enc.Encode(ctx, m)
}

func (a gridXYZ) values() []float64 {
	c, r := a.Dims()
	v := make([]float64, 0, c*r)
	for i := 0; i < c; i++ {
		for j := 0; j < r; j++ {
			v = append(v, a.Z(i, j))
		}
	}
	return v
}

// defaulted overlays float defaults under a Kwargs.
type defaulted struct {
	Kwargs
	defs map[string]float64
}

func withDefaults(kw Kwargs, defs map[string]float64) Kwargs {
	return defaulted{Kwargs: kw, defs: defs}
}

func (d defaulted) Has(k string) bool {
	_, ok := d.defs[k]
	return ok || d.Kwargs.Has(k)
}

func (d defaulted) Float(k string, def float64) float64 {
	if v, ok := d.defs[k]; ok && !d.Kwargs.Has(k) {
		return v
	}
	return d.Kwargs.Float(k, def)
}
