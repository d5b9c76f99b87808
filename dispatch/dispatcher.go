package dispatch

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/o2graph-lang/o2graph/loader"
	"github.com/o2graph-lang/o2graph/logutil"
	"github.com/o2graph-lang/o2graph/native"
)

// Processor is the native command processor that owns the current
// object. *native.Acol implements it.
type Processor interface {
	Parse(args []string) error
	Type() native.Type
	ApplyAliases(args []string) []string
}

// Options configures a Dispatcher.
type Options struct {
	// Out receives command output; Err receives error reports.
	// Both default to the process streams.
	Out, Err io.Writer
	Logger   log.Logger
}

// Dispatcher routes commands to script-layer handlers or to the
// native processor.
type Dispatcher struct {
	Table *Table

	proc   Processor
	out    io.Writer
	errOut io.Writer
	logger log.Logger

	lastNative error
	failures   int
}

// New returns a dispatcher over proc with the help and commands
// entries already registered.
func New(proc Processor, opts Options) *Dispatcher {
	d := &Dispatcher{
		Table:  NewTable(),
		proc:   proc,
		out:    opts.Out,
		errOut: opts.Err,
		logger: logutil.With(opts.Logger, "dispatch"),
	}
	if d.out == nil {
		d.out = os.Stdout
	}
	if d.errOut == nil {
		d.errOut = os.Stderr
	}
	d.registerHelp()
	return d
}

// Out returns the writer command output goes to.
func (d *Dispatcher) Out() io.Writer { return d.out }

// Processor returns the native processor.
func (d *Dispatcher) Processor() Processor { return d.proc }

// LastNativeError returns the error of the most recent native command,
// or nil if it succeeded.
func (d *Dispatcher) LastNativeError() error { return d.lastNative }

// Failures counts the commands reported as failed so far.
func (d *Dispatcher) Failures() int { return d.failures }

// Fatal reports whether err must end the run.
func Fatal(err error) bool {
	return errors.Is(err, ErrQuit) || errors.Is(err, loader.ErrLoad)
}

// Run expands aliases, splits tokens into commands and runs them in
// order. Non-fatal failures are reported and skipped; Run returns only
// fatal errors.
func (d *Dispatcher) Run(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	tokens = d.proc.ApplyAliases(tokens)
	segs, err := Split(tokens)
	if err != nil {
		d.report(&CommandError{Command: "", Type: d.proc.Type(), Err: err})
	}
	for _, seg := range segs {
		if err := d.Exec(seg); err != nil {
			if Fatal(err) {
				return err
			}
			d.report(err)
		}
	}
	return nil
}

// Exec runs one command. Panics raised by closed handles or index
// checks are returned as errors.
func (d *Dispatcher) Exec(seg Segment) (err error) {
	typ := d.proc.Type()
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				e = fmt.Errorf("%v", r)
			}
			err = &CommandError{Command: seg.Name, Type: typ, Err: e}
		}
	}()
	level.Debug(d.logger).Log("msg", "exec", "cmd", seg.Name, "type", typ, "args", len(seg.Args))

	ent, lerr := d.Table.Lookup(seg.Name, typ)
	var unknown *UnknownCommandError
	if errors.As(lerr, &unknown) {
		return d.native(seg, typ)
	}
	if lerr != nil {
		return &CommandError{Command: seg.Name, Type: typ, Err: lerr}
	}

	call, aerr := bindCall(ent, seg, typ, d.out)
	if aerr != nil {
		return &CommandError{Command: seg.Name, Type: typ, Err: aerr}
	}
	if herr := ent.Handler(call); herr != nil {
		if Fatal(herr) {
			return herr
		}
		return &CommandError{Command: seg.Name, Type: typ, Err: herr}
	}
	return nil
}

func (d *Dispatcher) native(seg Segment, typ native.Type) error {
	args := append([]string{"-" + seg.Name}, seg.Args...)
	err := d.proc.Parse(args)
	d.lastNative = err
	if err != nil {
		if Fatal(err) {
			return err
		}
		return &CommandError{Command: seg.Name, Type: typ, Err: err}
	}
	return nil
}

// Native sends args straight to the native processor, recording the
// outcome as the last native result.
func (d *Dispatcher) Native(args ...string) error {
	err := d.proc.Parse(args)
	d.lastNative = err
	return err
}

func bindCall(ent *Entry, seg Segment, typ native.Type, out io.Writer) (*Call, error) {
	pos := seg.Args
	var kw Kwargs
	if ent.Kwargs != nil && len(pos) > ent.MinArgs && LooksLikeKwargs(pos[len(pos)-1]) {
		var err error
		kw, err = ParseKwargs(pos[len(pos)-1], ent.Kwargs)
		if err != nil {
			return nil, &ArgumentError{Command: ent.Name, Msg: err.Error()}
		}
		pos = pos[:len(pos)-1]
	}
	if len(pos) < ent.MinArgs {
		return nil, notEnough(ent.Name, len(pos), ent.MinArgs)
	}
	if ent.MaxArgs >= 0 && len(pos) > ent.MaxArgs {
		return nil, tooMany(ent.Name, len(pos), ent.MaxArgs)
	}
	return &Call{
		Name:   ent.Name,
		Type:   typ,
		Args:   Args{Cmd: ent.Name, Vals: pos},
		Kwargs: kw,
		Out:    out,
	}, nil
}

func (d *Dispatcher) report(err error) {
	d.failures++
	level.Debug(d.logger).Log("msg", "command failed", "err", err)
	fmt.Fprintf(d.errOut, "o2graph: %v\n", err)
}
