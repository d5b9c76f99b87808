// Package config reads the o2graph settings from the environment and
// an optional YAML file in the home directory.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/o2graph-lang/o2graph/dispatch"
	"github.com/o2graph-lang/o2graph/loader"
)

// Environment variables of the graph tool. The O2SCL_* ones are shared
// with the loader.
const (
	EnvDefaults = "O2GRAPH_DEFAULTS"
	EnvHistory  = "O2GRAPH_HISTORY"
	EnvViewer   = "O2GRAPH_VIEWER"
	EnvFFmpeg   = "O2GRAPH_FFMPEG"
)

// FileName is the config file looked up in the home directory.
const FileName = ".o2graph.yaml"

// Config is the merged configuration. Environment variables win over
// the file.
type Config struct {
	CppLib   string
	LibDir   string
	AddlLibs []string
	// Defaults are tokens run before the command line.
	Defaults []string
	// History is the REPL history database; empty disables it.
	History string
	Viewer  string
	FFmpeg  string
	Verbose int

	// File is the config file that was read, if any.
	File string
}

// Options control Load.
type Options struct {
	// Home is searched for FileName; os.UserHomeDir when empty.
	Home string
	// File, when set, is read instead of Home/FileName and must exist.
	File string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	bind := map[string]string{
		"cpp_lib":   loader.EnvCppLib,
		"lib_dir":   loader.EnvLibDir,
		"addl_libs": loader.EnvAddlLibs,
		"defaults":  EnvDefaults,
		"history":   EnvHistory,
		"viewer":    EnvViewer,
		"ffmpeg":    EnvFFmpeg,
	}
	for key, env := range bind {
		v.BindEnv(key, env)
	}
	v.SetDefault("history", "")
	v.SetDefault("ffmpeg", "ffmpeg")
	v.SetDefault("verbose", 0)
	return v
}

// Load merges the config file and the environment. A missing default
// file is not an error.
func Load(opts Options) (*Config, error) {
	v := newViper()
	home := opts.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else if home != "" {
		v.SetConfigFile(filepath.Join(home, FileName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, err
		}
	}

	c := &Config{
		CppLib:  v.GetString("cpp_lib"),
		LibDir:  v.GetString("lib_dir"),
		History: v.GetString("history"),
		Viewer:  v.GetString("viewer"),
		FFmpeg:  v.GetString("ffmpeg"),
		Verbose: v.GetInt("verbose"),
		File:    v.ConfigFileUsed(),
	}
	if _, err := os.Stat(c.File); err != nil {
		c.File = ""
	}
	c.AddlLibs = list(v.Get("addl_libs"))
	if s := v.GetString("defaults"); s != "" {
		toks, err := dispatch.Fields(s)
		if err != nil {
			return nil, err
		}
		c.Defaults = toks
	}
	if strings.HasPrefix(c.History, "~/") && home != "" {
		c.History = filepath.Join(home, c.History[2:])
	}
	return c, nil
}

// list accepts a YAML sequence or a comma separated string.
func list(val any) []string {
	var raw []string
	switch x := val.(type) {
	case nil:
		return nil
	case string:
		raw = strings.Split(x, ",")
	case []any:
		for _, e := range x {
			if s, ok := e.(string); ok {
				raw = append(raw, s)
			}
		}
	case []string:
		raw = x
	}
	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Loader returns the loader options for c.
func (c *Config) Loader() loader.Options {
	return loader.Options{
		CppRuntime: c.CppLib,
		LibDir:     c.LibDir,
		Extras:     c.AddlLibs,
		Verbose:    c.Verbose,
	}
}
