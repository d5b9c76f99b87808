package dispatch

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/o2graph-lang/o2graph/native"
)

//go:embed help.yaml
var helpYAML []byte

// Catalogue is the help text shipped with the binary.
type Catalogue struct {
	Intro  string            `yaml:"intro"`
	Topics map[string]string `yaml:"topics"`
}

var (
	catOnce sync.Once
	cat     Catalogue
	catErr  error
)

// Help returns the embedded help catalogue.
func Help() (Catalogue, error) {
	catOnce.Do(func() {
		catErr = yaml.Unmarshal(helpYAML, &cat)
	})
	return cat, catErr
}

func (d *Dispatcher) registerHelp() {
	d.Table.MustRegister(
		Entry{
			Name: "help", MinArgs: 0, MaxArgs: 2,
			Short:   "Show help on a command, a type's command or a topic.",
			Usage:   "help [topic | command | type command]",
			Handler: d.help,
		},
		Entry{
			Name: "commands", MinArgs: 0, MaxArgs: 1,
			Short:   "List the commands valid for the current type.",
			Usage:   "commands [all | type]",
			Handler: d.commands,
		},
	)
}

func (d *Dispatcher) help(c *Call) error {
	hc, err := Help()
	if err != nil {
		return fmt.Errorf("help catalogue: %w", err)
	}
	switch c.Args.Len() {
	case 0:
		fmt.Fprint(c.Out, hc.Intro)
		fmt.Fprintln(c.Out)
		fmt.Fprintf(c.Out, "Current type: %s\n", c.Type)
		d.listCommands(c.Out, d.Table.Commands(c.Type, false))
		return nil
	case 2:
		typ, ok := native.ParseType(c.Args.Str(0))
		if !ok {
			return Argf(c.Name, "unknown type %q", c.Args.Str(0))
		}
		name := c.Args.Str(1)
		if e, err := d.Table.Lookup(name, typ); err == nil {
			writeEntry(c.Out, e)
			return nil
		}
		return d.Native("-help", name)
	}

	topic := c.Args.Str(0)
	if e, err := d.Table.Lookup(topic, c.Type); err == nil {
		writeEntry(c.Out, e)
		return nil
	} else if d.Table.Has(topic) {
		fmt.Fprintf(c.Out, "%v\n", err)
		for _, e := range d.Table.Commands(c.Type, true) {
			if e.Name == topic {
				writeEntry(c.Out, e)
			}
		}
		return nil
	}
	if text, ok := hc.Topics[topic]; ok {
		fmt.Fprint(c.Out, text)
		return nil
	}
	return d.Native("-help", topic)
}

func writeEntry(w io.Writer, e *Entry) {
	usage := e.Usage
	if usage == "" {
		usage = e.Name
	}
	fmt.Fprintf(w, "Usage: %s\n", usage)
	if !e.Global() {
		types := make([]string, len(e.Types))
		for i, t := range e.Types {
			types[i] = string(t)
		}
		fmt.Fprintf(w, "Types: %s\n", strings.Join(types, ", "))
	}
	if e.Short != "" {
		fmt.Fprintf(w, "\n%s\n", e.Short)
	}
	if e.Long != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(e.Long, "\n"))
	}
	if len(e.Kwargs) > 0 {
		fmt.Fprintf(w, "\nKeywords: %s\n", strings.Join(e.Kwargs.Names(), ", "))
	}
}

func (d *Dispatcher) commands(c *Call) error {
	switch arg := c.Args.StrOr(0, ""); arg {
	case "":
		fmt.Fprintf(c.Out, "Commands for current type %s:\n", c.Type)
		d.listCommands(c.Out, d.Table.Commands(c.Type, false))
	case "all":
		fmt.Fprintln(c.Out, "All o2graph commands:")
		d.listCommands(c.Out, d.Table.Commands(c.Type, true))
	default:
		typ, ok := native.ParseType(arg)
		if !ok {
			return Argf(c.Name, "unknown type %q", arg)
		}
		fmt.Fprintf(c.Out, "Commands for type %s:\n", typ)
		d.listCommands(c.Out, d.Table.Commands(typ, false))
	}
	return d.Native(append([]string{"-commands"}, c.Args.Vals...)...)
}

func (d *Dispatcher) listCommands(w io.Writer, ents []*Entry) {
	width := 0
	for _, e := range ents {
		if len(e.Name) > width {
			width = len(e.Name)
		}
	}
	for _, e := range ents {
		fmt.Fprintf(w, "  %-*s  %s\n", width, e.Name, e.Short)
	}
}
