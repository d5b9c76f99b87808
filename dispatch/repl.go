package dispatch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log/level"

	"github.com/o2graph-lang/o2graph/native"
)

// REPLOptions configures an interactive session.
type REPLOptions struct {
	Prompt string
	// History, when set, is loaded into the editor and receives every
	// non-empty line.
	History *History
	// Fd is the terminal file descriptor. With Fd >= 0 the raw-mode
	// line editor is used; otherwise lines are read with a scanner.
	Fd int
}

// RunLine runs one interactive line. The first token gets a leading
// dash; "quit" and "exit" return ErrQuit.
func (d *Dispatcher) RunLine(line string) error {
	toks, err := Fields(line)
	if err != nil {
		d.report(&CommandError{Type: d.proc.Type(), Err: err})
		return nil
	}
	if len(toks) == 0 {
		return nil
	}
	switch CommandName(toks[0]) {
	case "quit", "exit":
		return ErrQuit
	}
	if !strings.HasPrefix(toks[0], "-") {
		toks[0] = "-" + toks[0]
	}
	return d.Run(toks)
}

// REPL reads and runs lines from in until quit, exit or end of input.
// It returns nil on a normal end and the fatal error otherwise.
func (d *Dispatcher) REPL(in io.Reader, opts REPLOptions) error {
	if opts.Prompt == "" {
		opts.Prompt = "o2graph> "
	}
	next := d.scanner(in, opts.Prompt)
	if opts.Fd >= 0 {
		ed := NewLineEditor(in, d.out, opts.Fd, d.Completions)
		if opts.History != nil {
			if lines, err := opts.History.Lines(500); err == nil {
				ed.SetHistory(lines)
			} else {
				level.Warn(d.logger).Log("msg", "reading history", "err", err)
			}
		}
		next = func() (string, error) {
			for {
				line, err := ed.ReadLine(opts.Prompt)
				if errors.Is(err, ErrInterrupted) {
					continue
				}
				if err == nil {
					ed.AddHistory(line)
				}
				return line, err
			}
		}
	}

	for {
		line, err := next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if opts.History != nil && strings.TrimSpace(line) != "" {
			if _, err := opts.History.Add(line); err != nil {
				level.Warn(d.logger).Log("msg", "saving history", "err", err)
			}
		}
		if err := d.RunLine(line); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return err
		}
	}
}

func (d *Dispatcher) scanner(in io.Reader, prompt string) func() (string, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	return func() (string, error) {
		fmt.Fprint(d.out, prompt)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			fmt.Fprintln(d.out)
			return "", io.EOF
		}
		return sc.Text(), nil
	}
}

func nativeTypeNames() []string {
	out := make([]string, 0, len(native.Types))
	for _, t := range native.Types {
		if t != native.TypeNone {
			out = append(out, string(t))
		}
	}
	return out
}
