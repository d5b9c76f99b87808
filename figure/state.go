package figure

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/o2graph-lang/o2graph/dispatch"
)

// ErrUnknownParam is returned by State.Set and State.Get for names the
// figure does not own.
var ErrUnknownParam = errors.New("unknown parameter")

// Layout holds the fig_dict fields.
type Layout struct {
	SizeX, SizeY float64 // inches
	TicksIn      bool
	RtTicks      bool
	Left, Right  float64 // margins as fractions of the figure
	Top, Bottom  float64
	FontSize     float64
}

// DefaultLayout is the layout of a fresh State.
var DefaultLayout = Layout{
	SizeX: 6, SizeY: 6,
	Left: 0.14, Right: 0.04, Top: 0.04, Bottom: 0.12,
	FontSize: 16,
}

// State is the user-settable part of the figure: axis limits, scales
// and layout. Limits marked set always satisfy lo < hi.
type State struct {
	XLo, XHi, YLo, YHi, ZLo, ZHi float64
	XSet, YSet, ZSet             bool
	LogX, LogY, LogZ             bool
	Colbar                       bool
	Font                         float64
	UseTeX                       bool
	Verbose                      int
	Layout                       Layout
}

// NewState returns the defaults.
func NewState() *State {
	return &State{Font: 16, Layout: DefaultLayout}
}

// Params lists the names Set and Get accept.
func Params() []string {
	out := []string{
		"xlo", "xhi", "xset", "ylo", "yhi", "yset", "zlo", "zhi", "zset",
		"logx", "logy", "logz", "colbar", "font", "usetex", "verbose", "fig_dict",
	}
	sort.Strings(out)
	return out
}

// SetLimits sets one axis range and marks it set.
func (s *State) SetLimits(axis byte, lo, hi float64) error {
	if !(lo < hi) {
		return fmt.Errorf("%climits: lower limit %g not below upper limit %g", axis, lo, hi)
	}
	switch axis {
	case 'x':
		s.XLo, s.XHi, s.XSet = lo, hi, true
	case 'y':
		s.YLo, s.YHi, s.YSet = lo, hi, true
	case 'z':
		s.ZLo, s.ZHi, s.ZSet = lo, hi, true
	default:
		return fmt.Errorf("unknown axis %q", axis)
	}
	return nil
}

// Set parses value and assigns the named parameter. Setting one limit
// marks the axis set only when the pair stays ordered.
func (s *State) Set(name, value string) error {
	switch name {
	case "xlo", "xhi", "ylo", "yhi", "zlo", "zhi":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.setLimit(name, v)
	case "xset", "yset", "zset", "logx", "logy", "logz", "colbar", "usetex":
		b, err := dispatch.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if b && strings.HasSuffix(name, "set") {
			lo, hi := s.limits(name[0])
			if !(lo < hi) {
				return fmt.Errorf("%s: lower limit %g not below upper limit %g", name, lo, hi)
			}
		}
		*s.boolField(name) = b
	case "font":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("font: %w", err)
		}
		s.Font = v
	case "verbose":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("verbose: %w", err)
		}
		s.Verbose = v
	case "fig_dict":
		return s.Layout.Parse(value)
	default:
		return fmt.Errorf("%w %q", ErrUnknownParam, name)
	}
	return nil
}

func (s *State) setLimit(name string, v float64) {
	lo, hi, set := &s.XLo, &s.XHi, &s.XSet
	switch name[0] {
	case 'y':
		lo, hi, set = &s.YLo, &s.YHi, &s.YSet
	case 'z':
		lo, hi, set = &s.ZLo, &s.ZHi, &s.ZSet
	}
	if strings.HasSuffix(name, "lo") {
		*lo = v
	} else {
		*hi = v
	}
	*set = *lo < *hi
}

func (s *State) limits(axis byte) (lo, hi float64) {
	switch axis {
	case 'y':
		return s.YLo, s.YHi
	case 'z':
		return s.ZLo, s.ZHi
	}
	return s.XLo, s.XHi
}

func (s *State) boolField(name string) *bool {
	switch name {
	case "xset":
		return &s.XSet
	case "yset":
		return &s.YSet
	case "zset":
		return &s.ZSet
	case "logx":
		return &s.LogX
	case "logy":
		return &s.LogY
	case "logz":
		return &s.LogZ
	case "colbar":
		return &s.Colbar
	default:
		return &s.UseTeX
	}
}

// Get formats the named parameter.
func (s *State) Get(name string) (string, error) {
	g := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	switch name {
	case "xlo":
		return g(s.XLo), nil
	case "xhi":
		return g(s.XHi), nil
	case "ylo":
		return g(s.YLo), nil
	case "yhi":
		return g(s.YHi), nil
	case "zlo":
		return g(s.ZLo), nil
	case "zhi":
		return g(s.ZHi), nil
	case "xset", "yset", "zset", "logx", "logy", "logz", "colbar", "usetex":
		return strconv.FormatBool(*s.boolField(name)), nil
	case "font":
		return g(s.Font), nil
	case "verbose":
		return strconv.Itoa(s.Verbose), nil
	case "fig_dict":
		return s.Layout.String(), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownParam, name)
}

// Parse applies a "key=value,..." fig_dict string on top of l. On
// error l is left unchanged.
func (l *Layout) Parse(s string) error {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return nil
	}
	n, err := l.parse(s)
	if err != nil {
		return err
	}
	*l = n
	return nil
}

func (l Layout) parse(s string) (Layout, error) {
	for _, item := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			return l, fmt.Errorf("fig_dict: %q has no '='", item)
		}
		k, v = strings.TrimSpace(k), strings.Trim(strings.TrimSpace(v), `"'`)
		if k == "ticks_in" || k == "rt_ticks" {
			b, err := dispatch.ParseBool(v)
			if err != nil {
				return l, fmt.Errorf("fig_dict %s: %w", k, err)
			}
			if k == "ticks_in" {
				l.TicksIn = b
			} else {
				l.RtTicks = b
			}
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return l, fmt.Errorf("fig_dict %s: %w", k, err)
		}
		switch k {
		case "fig_size_x":
			l.SizeX = f
		case "fig_size_y":
			l.SizeY = f
		case "left_margin":
			l.Left = f
		case "right_margin":
			l.Right = f
		case "top_margin":
			l.Top = f
		case "bottom_margin":
			l.Bottom = f
		case "fontsize":
			l.FontSize = f
		default:
			return l, fmt.Errorf("fig_dict: unknown field %q", k)
		}
	}
	if l.SizeX <= 0 || l.SizeY <= 0 {
		return l, fmt.Errorf("fig_dict: figure size must be positive")
	}
	return l, nil
}

func (l Layout) String() string {
	g := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return strings.Join([]string{
		"fig_size_x=" + g(l.SizeX),
		"fig_size_y=" + g(l.SizeY),
		"ticks_in=" + strconv.FormatBool(l.TicksIn),
		"rt_ticks=" + strconv.FormatBool(l.RtTicks),
		"left_margin=" + g(l.Left),
		"right_margin=" + g(l.Right),
		"top_margin=" + g(l.Top),
		"bottom_margin=" + g(l.Bottom),
		"fontsize=" + g(l.FontSize),
	}, ",")
}
