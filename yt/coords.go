package yt

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/scene"
)

// Coords converts between the user system, in axis units, and the
// internal unit cube spanned by the axis limits.
type Coords struct {
	Lim scene.Limits
}

// unitCube stands in for limits that are not yet set.
var unitCube = scene.Limits{Hi: [3]float64{1, 1, 1}}

// NewCoords returns converters over lim, or over the unit cube when lim
// is degenerate.
func NewCoords(lim scene.Limits) Coords {
	if !lim.Valid() {
		lim = unitCube
	}
	return Coords{Lim: lim}
}

// Internal maps a user point into the unit cube.
func (c Coords) Internal(p r3.Vec) r3.Vec { return c.Lim.Normalize(p) }

// User maps an internal point back to axis units.
func (c Coords) User(p r3.Vec) r3.Vec { return c.Lim.Denormalize(p) }

// Scale converts a user length along each axis into internal units.
func (c Coords) Scale(d r3.Vec) r3.Vec {
	return r3.Vec{
		X: d.X / (c.Lim.Hi[0] - c.Lim.Lo[0]),
		Y: d.Y / (c.Lim.Hi[1] - c.Lim.Lo[1]),
		Z: d.Z / (c.Lim.Hi[2] - c.Lim.Lo[2]),
	}
}

// Point is a position tagged with its coordinate system. User points
// are converted with the limits in force when they are used.
type Point struct {
	V    r3.Vec
	User bool
}

// In returns p in internal coordinates.
func (p Point) In(c Coords) r3.Vec {
	if p.User {
		return c.Internal(p.V)
	}
	return p.V
}

func (p Point) String() string {
	sys := "internal"
	if p.User {
		sys = "user"
	}
	return fmt.Sprintf("[%g,%g,%g] %s", p.V.X, p.V.Y, p.V.Z, sys)
}

// ParsePoint reads "[x,y,z]" optionally followed by "internal" or
// "user"; the default system is internal.
func ParsePoint(s string) (Point, error) {
	s = strings.TrimSpace(s)
	var p Point
	if i := strings.LastIndexAny(s, " \t"); i >= 0 {
		switch strings.TrimSpace(s[i+1:]) {
		case "user":
			p.User = true
			s = s[:i]
		case "internal":
			s = s[:i]
		}
	}
	v, err := dispatch.ParseFloats(s)
	if err != nil {
		return p, err
	}
	if len(v) != 3 {
		return p, fmt.Errorf("expected three coordinates but got %d in %q", len(v), s)
	}
	p.V = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	return p, nil
}
