package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o2graph-lang/o2graph/config"
)

func TestParseGlobals(t *testing.T) {
	g, rest, err := parseGlobals([]string{
		"--o2scl-lib-dir=/opt/o2scl/lib", "--o2scl-addl-libs", "/a.so, /b.so",
		"--verbose=2", "-create", "table", "x", "grid:0,1,0.5",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"-create", "table", "x", "grid:0,1,0.5"}, rest)

	c := &config.Config{LibDir: "/from/env", CppLib: "/keep"}
	g.apply(c)
	assert.Equal(t, "/opt/o2scl/lib", c.LibDir)
	assert.Equal(t, "/keep", c.CppLib)
	assert.Equal(t, []string{"/a.so", "/b.so"}, c.AddlLibs)
	assert.Equal(t, 2, c.Verbose)
}

func TestParseGlobalsSingleDash(t *testing.T) {
	g, rest, err := parseGlobals([]string{
		"-o2scl-lib-dir", "/x", "-o2scl-cpp-lib=/usr/lib/libstdc++.so.6",
		"--o2scl-addl-libs", "/a.so", "-version", "-o2scl-lib-dir", "/late",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"-version", "-o2scl-lib-dir", "/late"}, rest)

	c := &config.Config{}
	g.apply(c)
	assert.Equal(t, "/x", c.LibDir)
	assert.Equal(t, "/usr/lib/libstdc++.so.6", c.CppLib)
	assert.Equal(t, []string{"/a.so"}, c.AddlLibs)

	// Other single-dash tokens start the command stream.
	_, rest, err = parseGlobals([]string{"-verbose", "2", "-create", "table"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-verbose", "2", "-create", "table"}, rest)

	_, _, err = parseGlobals([]string{"-o2scl-lib-dir"})
	assert.Error(t, err)
}

func TestParseGlobalsErrors(t *testing.T) {
	for _, args := range [][]string{{"--nosuch=1"}, {"--o2scl-lib-dir"}, {"--verbose=x"}} {
		_, _, err := parseGlobals(args)
		assert.Error(t, err, "%v", args)
	}
	_, rest, err := parseGlobals([]string{"--", "-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-1"}, rest)
}

func TestRunBadOption(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 1, run([]string{"--bogus=1"}, nil, &out, &errOut))
	assert.Contains(t, errOut.String(), "unknown option --bogus")
}
