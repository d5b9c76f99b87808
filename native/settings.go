package native

import "fmt"

type settingsABI struct {
	Get          func() uintptr             `sym:"o2scl_get_o2scl_settings"`
	DataDir      func(uintptr) uintptr      `sym:"o2scl_lib_settings_class_get_data_dir"`
	SetDataDir   func(uintptr, *byte) int32 `sym:"o2scl_lib_settings_class_set_data_dir"`
	Version      func(uintptr) uintptr      `sym:"o2scl_lib_settings_class_o2scl_version"`
	ConvertUnits func(uintptr) uintptr      `sym:"o2scl_lib_settings_class_get_convert_units"`
	// out is a pointer-to-double out-parameter.
	Convert func(uintptr, *byte, *byte, float64, *float64) int32 `sym:"o2scl_convert_units__convert_ret"`
}

// Settings is a borrowed handle on the process-wide settings object of
// the native library.
type Settings struct {
	Handle
	abi *settingsABI
}

// GetSettings returns the settings singleton.
func GetSettings(lib *Lib) (*Settings, error) {
	a, err := abi[settingsABI](lib, "lib_settings_class")
	if err != nil {
		return nil, err
	}
	return &Settings{Handle: borrowed(lib, "lib_settings_class", a.Get(), Handle{}), abi: a}, nil
}

// DataDir returns the directory of the native data files.
func (s *Settings) DataDir() (string, error) {
	return takeString(s.lib, s.abi.DataDir(s.Ptr()))
}

// SetDataDir changes the data directory.
func (s *Settings) SetDataDir(dir string) error {
	return status("o2scl_lib_settings_class_set_data_dir", s.abi.SetDataDir(s.Ptr(), cstr(dir)))
}

// Version returns the version string of the native library.
func (s *Settings) Version() (string, error) {
	return takeString(s.lib, s.abi.Version(s.Ptr()))
}

// Convert converts val from one unit to another with the unit-conversion
// singleton.
func (s *Settings) Convert(from, to string, val float64) (float64, error) {
	cu := s.abi.ConvertUnits(s.Ptr())
	if cu == 0 {
		return 0, fmt.Errorf("native: no unit conversion object")
	}
	var out float64
	if err := status("o2scl_convert_units__convert_ret", s.abi.Convert(cu, cstr(from), cstr(to), val, &out)); err != nil {
		return 0, fmt.Errorf("convert %s to %s: %w", from, to, err)
	}
	return out, nil
}
