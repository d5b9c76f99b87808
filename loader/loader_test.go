package loader

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func names(plan []target) []string {
	out := make([]string, len(plan))
	for i, t := range plan {
		out[i] = t.name
	}
	return out
}

func TestPlanOrderLinux(t *testing.T) {
	opts := Options{
		Extras: []string{"/opt/gsl/libgsl.so"},
		GOOS:   "linux",
		Getenv: envOf(nil),
	}
	got := names(opts.plan())
	want := []string{"C++ runtime", "libgsl.so", "libo2scl", "libo2scl_hdf"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("plan = %v, want %v", got, want)
	}
}

func TestPlanOrderDarwinAddsReadline(t *testing.T) {
	opts := Options{GOOS: "darwin", Getenv: envOf(nil)}
	plan := opts.plan()
	got := names(plan)
	want := []string{"C++ runtime", "readline", "libo2scl", "libo2scl_hdf"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("plan = %v, want %v", got, want)
	}
	if c := plan[2].candidates; c[len(c)-1] != "libo2scl.dylib" {
		t.Errorf("darwin soname: got %v", c)
	}
}

func TestPlanPriority(t *testing.T) {
	opts := Options{
		CppRuntime: "/explicit/libstdc++.so.6",
		LibDir:     "/explicit/lib",
		GOOS:       "linux",
		Getenv: envOf(map[string]string{
			EnvCppLib: "/env/libstdc++.so.6",
			EnvLibDir: "/env/lib",
		}),
	}
	plan := opts.plan()

	cpp := plan[0].candidates
	want := []string{"/explicit/libstdc++.so.6", "/env/libstdc++.so.6", "libstdc++.so.6"}
	if strings.Join(cpp, ",") != strings.Join(want, ",") {
		t.Errorf("cpp candidates = %v, want %v", cpp, want)
	}

	main := plan[1].candidates
	want = []string{"/explicit/lib/libo2scl.so", "/env/lib/libo2scl.so", "libo2scl.so"}
	if strings.Join(main, ",") != strings.Join(want, ",") {
		t.Errorf("main candidates = %v, want %v", main, want)
	}
}

func TestPlanExtrasFromEnv(t *testing.T) {
	opts := Options{
		GOOS:   "linux",
		Getenv: envOf(map[string]string{EnvAddlLibs: "/a/liba.so, /b/libb.so,"}),
	}
	got := names(opts.plan())
	want := []string{"C++ runtime", "liba.so", "libb.so", "libo2scl", "libo2scl_hdf"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("plan = %v, want %v", got, want)
	}
}

func TestOpenReportsLocations(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("location list is checked on linux only")
	}
	_, err := Open(Options{
		LibDir: "/nonexistent/o2scl",
		Getenv: envOf(nil),
	})
	if err == nil {
		t.Skip("an o2scl installation was found on the default search path")
	}
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if !strings.Contains(err.Error(), "/nonexistent/o2scl/") {
		t.Errorf("error should list tried locations, got %q", err.Error())
	}
}

func TestResolveMissingSymbol(t *testing.T) {
	lib := &Library{symbols: map[string]uintptr{}}
	_, err := lib.Resolve("o2scl_no_such_symbol")
	if !errors.Is(err, ErrMissingSymbol) {
		t.Fatalf("expected ErrMissingSymbol, got %v", err)
	}
	if !strings.Contains(err.Error(), "o2scl_no_such_symbol") {
		t.Errorf("error should name the symbol: %q", err.Error())
	}
	var fn func() int32
	if err := lib.Bind(&fn, "o2scl_no_such_symbol"); !errors.Is(err, ErrMissingSymbol) {
		t.Errorf("Bind: expected ErrMissingSymbol, got %v", err)
	}
}

func TestResolveLibc(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("libc soname is linux specific")
	}
	h, err := dlopen("libc.so.6")
	if err != nil {
		t.Skipf("libc.so.6 not loadable: %v", err)
	}
	lib := &Library{symbols: map[string]uintptr{}, loaded: []loaded{{name: "libc", path: "libc.so.6", handle: h}}}
	defer lib.Close()

	var strlen func(string) uint64
	if err := lib.Bind(&strlen, "strlen"); err != nil {
		t.Fatalf("Bind(strlen) failed: %v", err)
	}
	if n := strlen("o2graph"); n != 7 {
		t.Errorf("strlen = %d, want 7", n)
	}
	a1, _ := lib.Resolve("strlen")
	a2, _ := lib.Resolve("strlen")
	if a1 == 0 || a1 != a2 {
		t.Errorf("cached resolve mismatch: %x %x", a1, a2)
	}
}
