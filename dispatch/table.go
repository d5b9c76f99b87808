package dispatch

import (
	"fmt"
	"io"
	"sort"

	"github.com/derekparker/trie"
	"github.com/emirpasic/gods/maps/treemap"

	"github.com/o2graph-lang/o2graph/native"
)

// Call is what a handler receives.
type Call struct {
	Name   string
	Type   native.Type
	Args   Args
	Kwargs Kwargs
	Out    io.Writer
}

// Handler runs one script-layer command.
type Handler func(c *Call) error

// Entry describes one command. An entry with no Types is global.
type Entry struct {
	Name  string
	Types []native.Type
	// MinArgs and MaxArgs bound the positional arguments; MaxArgs < 0
	// means no upper bound.
	MinArgs, MaxArgs int
	// Kwargs, when non-nil, lets a trailing k=v,... argument be parsed
	// as keywords with this recipe.
	Kwargs  Recipe
	Short   string
	Long    string
	Usage   string
	Handler Handler
}

// Global reports whether the entry is valid for every type.
func (e *Entry) Global() bool { return len(e.Types) == 0 }

// Table holds the global and per-type command entries, ordered by name.
type Table struct {
	global *treemap.Map // name -> *Entry
	typed  *treemap.Map // name -> map[native.Type]*Entry
	names  *trie.Trie
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		global: treemap.NewWithStringComparator(),
		typed:  treemap.NewWithStringComparator(),
		names:  trie.New(),
	}
}

// Register adds e. Registering a name twice for the same scope fails.
func (t *Table) Register(e Entry) error {
	if e.Name == "" || e.Handler == nil {
		return fmt.Errorf("register %q: name and handler are required", e.Name)
	}
	ent := &e
	if e.Global() {
		if _, dup := t.global.Get(e.Name); dup {
			return fmt.Errorf("register %q: global command already defined", e.Name)
		}
		t.global.Put(e.Name, ent)
	} else {
		var byType map[native.Type]*Entry
		if v, ok := t.typed.Get(e.Name); ok {
			byType = v.(map[native.Type]*Entry)
		} else {
			byType = map[native.Type]*Entry{}
		}
		for _, typ := range e.Types {
			if _, dup := byType[typ]; dup {
				return fmt.Errorf("register %q: already defined for type %s", e.Name, typ)
			}
		}
		for _, typ := range e.Types {
			byType[typ] = ent
		}
		t.typed.Put(e.Name, byType)
	}
	t.names.Add(e.Name, nil)
	return nil
}

// MustRegister registers entries and panics on a duplicate.
func (t *Table) MustRegister(entries ...Entry) {
	for _, e := range entries {
		if err := t.Register(e); err != nil {
			panic(err)
		}
	}
}

// Lookup picks the entry for name given the current type: a type-scoped
// entry matching typ, else the global entry. A name known only for
// other types yields *UnknownCommandForTypeError; an unknown name
// yields *UnknownCommandError.
func (t *Table) Lookup(name string, typ native.Type) (*Entry, error) {
	v, hasTyped := t.typed.Get(name)
	if hasTyped {
		if e, ok := v.(map[native.Type]*Entry)[typ]; ok {
			return e, nil
		}
	}
	if e, ok := t.global.Get(name); ok {
		return e.(*Entry), nil
	}
	if hasTyped {
		return nil, &UnknownCommandForTypeError{Name: name, Type: typ, Types: typesOf(v.(map[native.Type]*Entry))}
	}
	return nil, &UnknownCommandError{Name: name, Suggestions: t.Suggest(name)}
}

func typesOf(m map[native.Type]*Entry) []native.Type {
	out := make([]native.Type, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether name is registered in any scope.
func (t *Table) Has(name string) bool {
	_, ok := t.names.Find(name)
	return ok
}

// Names returns every command name, sorted.
func (t *Table) Names() []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range []*treemap.Map{t.global, t.typed} {
		for _, k := range m.Keys() {
			if s := k.(string); !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Commands returns the entries valid for typ, sorted by name. With all
// set, entries of every type are included.
func (t *Table) Commands(typ native.Type, all bool) []*Entry {
	var out []*Entry
	seen := map[*Entry]bool{}
	add := func(e *Entry) {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	it := t.global.Iterator()
	for it.Next() {
		add(it.Value().(*Entry))
	}
	it = t.typed.Iterator()
	for it.Next() {
		for typ2, e := range it.Value().(map[native.Type]*Entry) {
			if all || typ2 == typ {
				add(e)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TypeCommands returns the entries scoped to exactly typ.
func (t *Table) TypeCommands(typ native.Type) []*Entry {
	var out []*Entry
	it := t.typed.Iterator()
	for it.Next() {
		if e, ok := it.Value().(map[native.Type]*Entry)[typ]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Complete returns the command names starting with prefix, sorted.
func (t *Table) Complete(prefix string) []string {
	out := t.names.PrefixSearch(prefix)
	sort.Strings(out)
	return out
}

// Suggest returns close matches for a misspelt command name.
func (t *Table) Suggest(name string) []string {
	if name == "" {
		return nil
	}
	out := t.names.PrefixSearch(name)
	if len(out) == 0 {
		out = t.names.FuzzySearch(name)
	}
	if len(out) == 0 && len(name) > 1 {
		out = t.names.PrefixSearch(name[:len(name)/2+1])
	}
	sort.Strings(out)
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}
