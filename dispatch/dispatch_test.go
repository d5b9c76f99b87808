package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/o2graph-lang/o2graph/loader"
	"github.com/o2graph-lang/o2graph/native"
)

// fakeProc records native calls and plays a tiny current-object model.
type fakeProc struct {
	typ     native.Type
	calls   [][]string
	aliases map[string][]string
	fail    map[string]error
}

func (p *fakeProc) Parse(args []string) error {
	p.calls = append(p.calls, append([]string(nil), args...))
	if err, ok := p.fail[args[0]]; ok {
		return err
	}
	if args[0] == "-create" && len(args) > 1 {
		p.typ = native.Type(args[1])
	}
	return nil
}

func (p *fakeProc) Type() native.Type { return p.typ }

func (p *fakeProc) ApplyAliases(args []string) []string {
	var out []string
	for _, a := range args {
		if rep, ok := p.aliases[a]; ok {
			out = append(out, rep...)
			continue
		}
		out = append(out, a)
	}
	return out
}

func newTestDispatcher(p *fakeProc) (*Dispatcher, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return New(p, Options{Out: &out, Err: &errOut}), &out, &errOut
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []Segment
	}{
		{"plain", []string{"-read", "f.o2", "-plot", "x", "y"},
			[]Segment{{"read", []string{"f.o2"}}, {"plot", []string{"x", "y"}}}},
		{"negative numbers are args", []string{"-xlimits", "-1", "2.5e-3", "-show"},
			[]Segment{{"xlimits", []string{"-1", "2.5e-3"}}, {"show", nil}}},
		{"annotation runs to end", []string{"-yt-ann", "-text", "0", "0", "hi", "end", "-show"},
			[]Segment{{"yt-ann", []string{"-text", "0", "0", "hi"}}, {"show", nil}}},
		{"empty annotation", []string{"-yt-ann", "end"}, []Segment{{"yt-ann", nil}}},
		{"double dash", []string{"--help"}, []Segment{{"help", nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplitErrors(t *testing.T) {
	_, err := Split([]string{"-yt-ann", "-text", "x"})
	assert.Error(t, err)
	_, err = Split([]string{"stray"})
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	got, err := Fields(`plot x y "color=red,label='a b'"`)
	require.NoError(t, err)
	assert.Equal(t, []string{"plot", "x", "y", `"color=red,label='a b'"`}, got)

	_, err = Fields(`text 'unterminated`)
	assert.Error(t, err)
}

func TestParseKwargs(t *testing.T) {
	recipe := Recipe{"lw": Float, "bins": Int, "fill": Bool}
	kw, err := ParseKwargs(` color = 'dark red', lw=2*1.5 ,bins=10,fill=yes,label="x=1, y"`, recipe)
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "lw", "bins", "fill", "label"}, kw.Keys())
	assert.Equal(t, "dark red", kw.Str("color", ""))
	assert.Equal(t, 3.0, kw.Float("lw", 0))
	assert.Equal(t, 10, kw.Int("bins", 0))
	assert.True(t, kw.Bool("fill", false))
	assert.Equal(t, "x=1, y", kw.Str("label", ""))
	assert.Equal(t, 7, kw.Int("missing", 7))

	_, err = ParseKwargs("bins=ten", recipe)
	assert.Error(t, err)
	_, err = ParseKwargs("novalue", recipe)
	assert.Error(t, err)
}

func TestKwargsEval(t *testing.T) {
	kw, err := ParseKwargs("x=sqrt(16)+1", nil)
	require.NoError(t, err)
	v, err := kw.Eval("x")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Empty(t, kw.Without("x").Keys())
}

func TestLookupPrecedence(t *testing.T) {
	tab := NewTable()
	h := func(tag string) Handler {
		return func(c *Call) error { fmt.Fprint(c.Out, tag); return nil }
	}
	tab.MustRegister(
		Entry{Name: "den-plot", Types: []native.Type{native.TypeTable3D, native.TypeHist2D}, MaxArgs: 2, Handler: h("t3d")},
		Entry{Name: "den-plot", Types: []native.Type{native.TypeTensorGrid}, MaxArgs: 2, Handler: h("tg")},
		Entry{Name: "plot", Types: []native.Type{native.TypeTable}, MaxArgs: 3, Handler: h("table")},
		Entry{Name: "plot", MaxArgs: 3, Handler: h("global")},
		Entry{Name: "clf", Handler: h("clf")},
	)

	e, err := tab.Lookup("plot", native.TypeTable)
	require.NoError(t, err)
	assert.Equal(t, []native.Type{native.TypeTable}, e.Types)

	e, err = tab.Lookup("plot", native.TypeHist)
	require.NoError(t, err)
	assert.True(t, e.Global())

	e, err = tab.Lookup("den-plot", native.TypeTensorGrid)
	require.NoError(t, err)
	assert.Equal(t, []native.Type{native.TypeTensorGrid}, e.Types)

	_, err = tab.Lookup("den-plot", native.TypeTable)
	var ut *UnknownCommandForTypeError
	require.ErrorAs(t, err, &ut)
	assert.Equal(t, []native.Type{native.TypeHist2D, native.TypeTable3D, native.TypeTensorGrid}, ut.Types)

	_, err = tab.Lookup("plto", native.TypeTable)
	var uc *UnknownCommandError
	require.ErrorAs(t, err, &uc)

	assert.Error(t, tab.Register(Entry{Name: "clf", Handler: h("again")}))
	assert.Error(t, tab.Register(Entry{Name: "plot", Types: []native.Type{native.TypeTable}, Handler: h("again")}))
	assert.NoError(t, tab.Register(Entry{Name: "plot", Types: []native.Type{native.TypeHist}, Handler: h("hist")}))

	assert.Equal(t, []string{"clf", "den-plot", "plot"}, tab.Names())
	assert.Equal(t, []string{"den-plot"}, tab.Complete("de"))
}

func TestSuggest(t *testing.T) {
	tab := NewTable()
	for _, n := range []string{"plot", "plot1", "plot-color", "scatter"} {
		tab.MustRegister(Entry{Name: n, Handler: func(*Call) error { return nil }})
	}
	assert.Equal(t, []string{"plot", "plot-color", "plot1"}, tab.Suggest("plo"))
	assert.Contains(t, tab.Suggest("scat"), "scatter")
}

func TestRunRoutesUnknownToNative(t *testing.T) {
	p := &fakeProc{}
	d, _, errOut := newTestDispatcher(p)
	require.NoError(t, d.Run([]string{"-create", "table", "x", "grid:0,10,1", "-function", "x*2", "y"}))
	want := [][]string{
		{"-create", "table", "x", "grid:0,10,1"},
		{"-function", "x*2", "y"},
	}
	if diff := cmp.Diff(want, p.calls); diff != "" {
		t.Errorf("native calls (-want +got):\n%s", diff)
	}
	assert.Empty(t, errOut.String())
}

func TestRunAppliesAliases(t *testing.T) {
	p := &fakeProc{aliases: map[string][]string{"-mk": {"-create", "table3d"}}}
	d, _, _ := newTestDispatcher(p)
	require.NoError(t, d.Run([]string{"-mk"}))
	assert.Equal(t, native.TypeTable3D, p.typ)
}

func TestRunScriptCommand(t *testing.T) {
	p := &fakeProc{typ: native.TypeTable}
	d, out, errOut := newTestDispatcher(p)
	var got *Call
	d.Table.MustRegister(Entry{
		Name: "plot", Types: []native.Type{native.TypeTable}, MinArgs: 2, MaxArgs: 2,
		Kwargs: Recipe{"lw": Float},
		Handler: func(c *Call) error {
			got = c
			return nil
		},
	})

	require.NoError(t, d.Run([]string{"-plot", "x", "y", "color=r,lw=2"}))
	require.NotNil(t, got)
	assert.Equal(t, []string{"x", "y"}, got.Args.Vals)
	assert.Equal(t, 2.0, got.Kwargs.Float("lw", 0))
	assert.Equal(t, native.TypeTable, got.Type)
	assert.Same(t, out, got.Out)
	assert.Empty(t, p.calls)

	// Argument count errors are reported and the run continues.
	require.NoError(t, d.Run([]string{"-plot", "x", "-type"}))
	assert.Contains(t, errOut.String(), `command "plot" (current type table): not enough parameters (1 given, 2 needed)`)
	assert.Equal(t, [][]string{{"-type"}}, p.calls)
	assert.Equal(t, 1, d.Failures())
}

func TestRunReportsAndContinues(t *testing.T) {
	nerr := &native.NativeError{Func: "-function", Code: 1}
	p := &fakeProc{typ: native.TypeTable, fail: map[string]error{"-function": nerr}}
	d, _, errOut := newTestDispatcher(p)
	d.Table.MustRegister(
		Entry{Name: "den-plot", Types: []native.Type{native.TypeTable3D}, Handler: func(*Call) error { return nil }},
		Entry{Name: "boom", Handler: func(*Call) error { panic(native.ErrClosed) }},
	)

	require.NoError(t, d.Run([]string{"-function", "bad", "-den-plot", "s", "-boom", "-type"}))
	msgs := errOut.String()
	assert.Contains(t, msgs, `command "function" (current type table)`)
	assert.Contains(t, msgs, `command "den-plot" is not defined for current type table`)
	assert.Contains(t, msgs, native.ErrClosed.Error())
	assert.Equal(t, 3, d.Failures())
	assert.NoError(t, d.LastNativeError(), "the final -type succeeded")
	assert.Equal(t, []string{"-type"}, p.calls[len(p.calls)-1])
}

func TestRunFatal(t *testing.T) {
	p := &fakeProc{}
	d, _, _ := newTestDispatcher(p)
	loadErr := &loader.LoadError{Library: "libo2scl", Err: errors.New("no such file")}
	d.Table.MustRegister(Entry{Name: "load", Handler: func(*Call) error { return loadErr }})
	err := d.Run([]string{"-load", "-type"})
	assert.ErrorIs(t, err, loader.ErrLoad)
	assert.Empty(t, p.calls, "commands after a fatal error do not run")
}

func TestHelpAndCommands(t *testing.T) {
	p := &fakeProc{typ: native.TypeTable}
	d, out, _ := newTestDispatcher(p)
	d.Table.MustRegister(
		Entry{Name: "plot", Types: []native.Type{native.TypeTable}, Short: "Plot two columns.", Usage: "plot <x> <y> [kwargs]",
			Kwargs: Recipe{"lw": Float, "color": String}, Handler: func(*Call) error { return nil }},
		Entry{Name: "den-plot", Types: []native.Type{native.TypeTable3D}, Short: "Density plot.", Handler: func(*Call) error { return nil }},
	)

	require.NoError(t, d.Run([]string{"-help", "plot"}))
	assert.Contains(t, out.String(), "Usage: plot <x> <y> [kwargs]")
	assert.Contains(t, out.String(), "Keywords: color, lw")

	out.Reset()
	require.NoError(t, d.Run([]string{"-help", "table3d", "den-plot"}))
	assert.Contains(t, out.String(), "Density plot.")

	out.Reset()
	require.NoError(t, d.Run([]string{"-help", "fig_dict"}))
	assert.Contains(t, out.String(), "fig_size_x")

	out.Reset()
	require.NoError(t, d.Run([]string{"-help", "interp"}))
	assert.Equal(t, []string{"-help", "interp"}, p.calls[len(p.calls)-1])

	out.Reset()
	require.NoError(t, d.Run([]string{"-commands"}))
	assert.Contains(t, out.String(), "plot")
	assert.NotContains(t, out.String(), "den-plot")

	out.Reset()
	require.NoError(t, d.Run([]string{"-commands", "all"}))
	assert.Contains(t, out.String(), "den-plot")
}

func TestREPLScanner(t *testing.T) {
	p := &fakeProc{}
	d, out, _ := newTestDispatcher(p)
	in := strings.NewReader("create table x grid:0,1,1\n\n  type\nquit\ntype\n")
	require.NoError(t, d.REPL(in, REPLOptions{Fd: -1}))
	assert.Equal(t, [][]string{{"-create", "table", "x", "grid:0,1,1"}, {"-type"}}, p.calls)
	assert.Contains(t, out.String(), "o2graph> ")
}

func TestREPLHistory(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "hist.db"))
	require.NoError(t, err)
	defer h.Close()

	p := &fakeProc{}
	d, _, _ := newTestDispatcher(p)
	require.NoError(t, d.REPL(strings.NewReader("type\nversion\n"), REPLOptions{Fd: -1, History: h}))
	_, err = h.Add("summary")
	require.NoError(t, err)

	lines, err := h.Lines(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"type", "version", "summary"}, lines)
	lines, err = h.Lines(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"version", "summary"}, lines)
}

func TestLineEditor(t *testing.T) {
	complete := func(line string, pos int) []Candidate {
		if strings.HasPrefix("plot", line) {
			return []Candidate{{Text: "plot"}}
		}
		return nil
	}
	var out bytes.Buffer
	in := strings.NewReader("pl\tx\x7fy\r" + "\x1b[A\r" + "abc\x17def\r")
	ed := NewLineEditor(in, &out, -1, complete)
	ed.SetHistory([]string{"old"})

	line, err := ed.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "plot y", line)
	ed.AddHistory(line)

	line, err = ed.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "plot y", line)

	line, err = ed.ReadLine("> ")
	require.NoError(t, err)
	assert.Equal(t, "def", line)
}

func TestCompletions(t *testing.T) {
	p := &fakeProc{}
	d, _, _ := newTestDispatcher(p)
	d.Table.MustRegister(Entry{Name: "plot", Short: "Plot.", Handler: func(*Call) error { return nil }})
	got := d.Completions("pl", 2)
	assert.Equal(t, []Candidate{{Text: "plot", Help: "Plot."}}, got)
	got = d.Completions("help ta", 7)
	var texts []string
	for _, c := range got {
		texts = append(texts, c.Text)
	}
	assert.Contains(t, texts, "table")
	assert.Contains(t, texts, "table3d")
}
