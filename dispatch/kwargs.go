package dispatch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/o2graph-lang/o2graph/calc"
)

// Kind is the coercion applied to a keyword value.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return "string"
	}
}

// Recipe maps keyword names to their coercion. Keys absent from a
// recipe are kept as strings.
type Recipe map[string]Kind

// Kwargs is a parsed "k1=v1,k2=v2" string.
type Kwargs struct {
	raw  map[string]string
	vals map[string]any
	keys []string
}

// LooksLikeKwargs reports whether s has a '=' outside quotes.
func LooksLikeKwargs(s string) bool {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '=':
			return i > 0
		}
	}
	return false
}

// splitTop splits s on sep outside quotes and brackets.
func splitTop(s string, sep byte) []string {
	var out []string
	var quote byte
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '(' || c == '{':
			depth++
		case c == ']' || c == ')' || c == '}':
			depth--
		case c == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

// ParseKwargs parses s with the per-key recipe. Keys and values are
// trimmed and one level of quotes is removed from values.
func ParseKwargs(s string, recipe Recipe) (Kwargs, error) {
	kw := Kwargs{raw: map[string]string{}, vals: map[string]any{}}
	if strings.TrimSpace(s) == "" {
		return kw, nil
	}
	for _, item := range splitTop(s, ',') {
		if strings.TrimSpace(item) == "" {
			continue
		}
		k, v, ok := strings.Cut(item, "=")
		if !ok {
			return kw, fmt.Errorf("keyword argument %q has no '='", strings.TrimSpace(item))
		}
		k = strings.TrimSpace(k)
		v = Unquote(strings.TrimSpace(v))
		if k == "" {
			return kw, fmt.Errorf("empty keyword in %q", s)
		}
		val, err := coerce(recipe[k], v)
		if err != nil {
			return kw, fmt.Errorf("keyword %s: %w", k, err)
		}
		if _, dup := kw.raw[k]; !dup {
			kw.keys = append(kw.keys, k)
		}
		kw.raw[k] = v
		kw.vals[k] = val
	}
	return kw, nil
}

func coerce(k Kind, v string) (any, error) {
	switch k {
	case Int:
		if n, err := strconv.Atoi(v); err == nil {
			return n, nil
		}
		return calc.Int(v)
	case Float:
		return calc.Float(v)
	case Bool:
		return ParseBool(v)
	default:
		return v, nil
	}
}

// Len returns the number of keywords.
func (kw Kwargs) Len() int { return len(kw.keys) }

// Keys returns the keywords in the order given.
func (kw Kwargs) Keys() []string { return append([]string(nil), kw.keys...) }

// Has reports whether key was given.
func (kw Kwargs) Has(key string) bool {
	_, ok := kw.raw[key]
	return ok
}

// Raw returns the unconverted value.
func (kw Kwargs) Raw(key string) (string, bool) {
	v, ok := kw.raw[key]
	return v, ok
}

// Value returns the coerced value.
func (kw Kwargs) Value(key string) (any, bool) {
	v, ok := kw.vals[key]
	return v, ok
}

// Str returns key as a string, or def.
func (kw Kwargs) Str(key, def string) string {
	if v, ok := kw.raw[key]; ok {
		return v
	}
	return def
}

// Float returns key as a float, or def. Values not coerced by the
// recipe are evaluated.
func (kw Kwargs) Float(key string, def float64) float64 {
	switch v := kw.vals[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	if f, err := kw.Eval(key); err == nil {
		return f
	}
	return def
}

// Int returns key as an int, or def.
func (kw Kwargs) Int(key string, def int) int {
	switch v := kw.vals[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	if raw, ok := kw.raw[key]; ok {
		if n, err := calc.Int(raw); err == nil {
			return n
		}
	}
	return def
}

// Bool returns key as a bool, or def.
func (kw Kwargs) Bool(key string, def bool) bool {
	switch v := kw.vals[key].(type) {
	case bool:
		return v
	}
	if raw, ok := kw.raw[key]; ok {
		if b, err := ParseBool(raw); err == nil {
			return b
		}
	}
	return def
}

// Eval evaluates the raw value of key as a numeric expression.
func (kw Kwargs) Eval(key string) (float64, error) {
	raw, ok := kw.raw[key]
	if !ok {
		return 0, fmt.Errorf("no keyword %q", key)
	}
	return calc.Float(raw)
}

// Without returns a copy without the given keys.
func (kw Kwargs) Without(keys ...string) Kwargs {
	out := Kwargs{raw: map[string]string{}, vals: map[string]any{}}
	skip := map[string]bool{}
	for _, k := range keys {
		skip[k] = true
	}
	for _, k := range kw.keys {
		if skip[k] {
			continue
		}
		out.keys = append(out.keys, k)
		out.raw[k], out.vals[k] = kw.raw[k], kw.vals[k]
	}
	return out
}

func (kw Kwargs) String() string {
	parts := make([]string, 0, len(kw.keys))
	for _, k := range kw.keys {
		parts = append(parts, k+"="+kw.raw[k])
	}
	return strings.Join(parts, ",")
}

// Names returns the recipe keys, sorted.
func (r Recipe) Names() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
