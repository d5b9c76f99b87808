package yt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/o2graph-lang/o2graph/calc"
	"github.com/o2graph-lang/o2graph/dispatch"
)

// StepKind is one camera motion.
type StepKind int

const (
	Yaw StepKind = iota
	Zoom
	Move
	Turn
)

var stepNames = [...]string{"yaw", "zoom", "move", "turn"}

func (k StepKind) String() string { return stepNames[k] }

// Step is one path entry spread over Frames frames. Yaw rotates the
// camera position by Amount radians about the north vector through the
// focus; Zoom divides the width by Amount; Move and Turn slide the
// position and the focus to Target.
type Step struct {
	Kind   StepKind
	Frames int
	Amount float64
	Target Point
}

func (s Step) String() string {
	switch s.Kind {
	case Move, Turn:
		return fmt.Sprintf("%s %d %s", s.Kind, s.Frames, s.Target)
	}
	return fmt.Sprintf("%s %d %g", s.Kind, s.Frames, s.Amount)
}

// ParsePath reads entries separated by ';', each "kind frames args":
//
//	yaw 20 3.14; zoom 10 2; move 30 [0.5,0.5,2] internal; turn 10 [1,2,3] user
func ParsePath(s string) ([]Step, error) {
	var steps []Step
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		st, err := parseStep(entry)
		if err != nil {
			return nil, fmt.Errorf("path entry %q: %w", entry, err)
		}
		steps = append(steps, st)
	}
	return steps, nil
}

func parseStep(entry string) (Step, error) {
	f, err := dispatch.Fields(entry)
	if err != nil {
		return Step{}, err
	}
	if len(f) < 3 {
		return Step{}, fmt.Errorf("expected kind, frame count and argument")
	}
	var st Step
	found := false
	for k, name := range stepNames {
		if f[0] == name {
			st.Kind, found = StepKind(k), true
		}
	}
	if !found {
		return st, fmt.Errorf("unknown path kind %q", f[0])
	}
	if st.Frames, err = strconv.Atoi(f[1]); err != nil || st.Frames < 1 {
		return st, fmt.Errorf("bad frame count %q", f[1])
	}
	rest := strings.Join(f[2:], " ")
	switch st.Kind {
	case Move, Turn:
		st.Target, err = ParsePoint(rest)
	case Zoom:
		st.Amount, err = calc.Float(rest)
		if err == nil && st.Amount <= 0 {
			err = fmt.Errorf("zoom factor must be positive")
		}
	default:
		st.Amount, err = calc.Float(rest)
	}
	return st, err
}

// FormatPath is the inverse of ParsePath.
func FormatPath(steps []Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

// view is the camera in internal coordinates.
type view struct {
	Position, Focus, North r3.Vec
	Width                  float64
}

// Frames returns the total number of frames of a path.
func Frames(steps []Step) int {
	n := 0
	for _, s := range steps {
		n += s.Frames
	}
	return n
}

// walk calls fn with the camera of every frame of the path. User
// targets are converted with c at every frame.
func walk(start view, steps []Step, c Coords, fn func(frame int, v view) error) error {
	v := start
	frame := 0
	for _, s := range steps {
		from := v
		for k := 1; k <= s.Frames; k++ {
			t := float64(k) / float64(s.Frames)
			switch s.Kind {
			case Yaw:
				rot := r3.NewRotation(s.Amount/float64(s.Frames), r3.Unit(v.North))
				v.Position = r3.Add(v.Focus, rot.Rotate(r3.Sub(v.Position, v.Focus)))
			case Zoom:
				v.Width = from.Width / math.Pow(s.Amount, t)
			case Move:
				v.Position = lerp(from.Position, s.Target.In(c), t)
			case Turn:
				v.Focus = lerp(from.Focus, s.Target.In(c), t)
			}
			if err := fn(frame, v); err != nil {
				return err
			}
			frame++
		}
	}
	return nil
}

func lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}
