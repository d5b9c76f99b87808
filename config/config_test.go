package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o2graph-lang/o2graph/loader"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{loader.EnvCppLib, loader.EnvLibDir, loader.EnvAddlLibs, EnvDefaults, EnvHistory, EnvViewer, EnvFFmpeg} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	c, err := Load(Options{Home: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, c.File)
	assert.Empty(t, c.LibDir)
	assert.Equal(t, "ffmpeg", c.FFmpeg)
	assert.Nil(t, c.Defaults)
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	yaml := `cpp_lib: /opt/lib/libstdc++.so.6
lib_dir: /opt/o2scl/lib
addl_libs:
  - /opt/gsl/libgsl.so
  - /opt/gsl/libgslcblas.so
defaults: -set logx 1 -set fig_dict 'fontsize=12'
history: ~/.o2graph_history
verbose: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(home, FileName), []byte(yaml), 0o644))
	t.Setenv(loader.EnvLibDir, "/env/lib")

	c, err := Load(Options{Home: home})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, FileName), c.File)
	assert.Equal(t, "/env/lib", c.LibDir, "environment wins")
	assert.Equal(t, "/opt/lib/libstdc++.so.6", c.CppLib)
	assert.Equal(t, []string{"/opt/gsl/libgsl.so", "/opt/gsl/libgslcblas.so"}, c.AddlLibs)
	assert.Equal(t, []string{"-set", "logx", "1", "-set", "fig_dict", "'fontsize=12'"}, c.Defaults)
	assert.Equal(t, filepath.Join(home, ".o2graph_history"), c.History)

	lo := c.Loader()
	assert.Equal(t, "/env/lib", lo.LibDir)
	assert.Equal(t, 1, lo.Verbose)
	assert.Len(t, lo.Extras, 2)
}

func TestAddlLibsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(loader.EnvAddlLibs, "/a/liba.so, /b/libb.so,")
	c, err := Load(Options{Home: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/liba.so", "/b/libb.so"}, c.AddlLibs)
}

func TestExplicitFileMustExist(t *testing.T) {
	clearEnv(t)
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
