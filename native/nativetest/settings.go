package nativetest

import "strings"

type settings struct {
	dataDir string
}

type units struct{}

// factors converts each unit to a base unit of its dimension.
var factors = map[string]struct {
	dim    string
	factor float64
}{
	"m":   {"length", 1},
	"cm":  {"length", 1e-2},
	"km":  {"length", 1e3},
	"fm":  {"length", 1e-15},
	"s":   {"time", 1},
	"ms":  {"time", 1e-3},
	"eV":  {"energy", 1},
	"keV": {"energy", 1e3},
	"MeV": {"energy", 1e6},
	"GeV": {"energy", 1e9},
	"kg":  {"mass", 1},
	"g":   {"mass", 1e-3},
}

func convert(from, to string, v float64) (float64, bool) {
	f, ok1 := factors[strings.TrimSpace(from)]
	t, ok2 := factors[strings.TrimSpace(to)]
	if !ok1 || !ok2 || f.dim != t.dim {
		return 0, false
	}
	return v * f.factor / t.factor, true
}

func (c *Core) registerSettings() {
	s := c.put(&settings{dataDir: "/usr/local/share/o2scl"})
	u := c.put(&units{})
	c.def("o2scl_get_o2scl_settings", func() uintptr { return s })
	c.def("o2scl_lib_settings_class_get_data_dir", func(p uintptr) uintptr {
		return c.newString(get[*settings](c, p).dataDir)
	})
	c.def("o2scl_lib_settings_class_set_data_dir", func(p uintptr, dir *byte) int32 {
		get[*settings](c, p).dataDir = goString(dir)
		return 0
	})
	c.def("o2scl_lib_settings_class_o2scl_version", func(p uintptr) uintptr { return c.newString(c.version) })
	c.def("o2scl_lib_settings_class_get_convert_units", func(p uintptr) uintptr { return u })
	c.def("o2scl_convert_units__convert_ret", func(p uintptr, from, to *byte, v float64, out *float64) int32 {
		r, ok := convert(goString(from), goString(to), v)
		if !ok {
			return 1
		}
		*out = r
		return 0
	})
}
