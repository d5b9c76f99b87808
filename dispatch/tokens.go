package dispatch

import (
	"fmt"
	"strconv"
	"strings"
)

// AnnotationCommand collects every following token, dashes included,
// up to the literal EndToken.
const (
	AnnotationCommand = "yt-ann"
	EndToken          = "end"
)

// Segment is one command and its arguments.
type Segment struct {
	Name string
	Args []string
}

func (s Segment) String() string {
	if len(s.Args) == 0 {
		return "-" + s.Name
	}
	return "-" + s.Name + " " + strings.Join(s.Args, " ")
}

// IsCommand reports whether tok starts a new command. Negative numbers
// such as "-1.5e3" are arguments.
func IsCommand(tok string) bool {
	if len(tok) < 2 || tok[0] != '-' {
		return false
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	return strings.TrimLeft(tok, "-") != ""
}

// CommandName strips the leading dashes of a command token.
func CommandName(tok string) string {
	return strings.TrimLeft(tok, "-")
}

// Split cuts a flat token list into commands. A command runs from a
// dash-initial token up to the next one, except the annotation command
// whose arguments run until the literal "end", which is consumed.
func Split(tokens []string) ([]Segment, error) {
	var segs []Segment
	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if !IsCommand(tok) {
			return segs, fmt.Errorf("expected a command at %q", tok)
		}
		seg := Segment{Name: CommandName(tok)}
		i++
		if seg.Name == AnnotationCommand {
			closed := false
			for i < len(tokens) {
				if tokens[i] == EndToken {
					closed = true
					i++
					break
				}
				seg.Args = append(seg.Args, tokens[i])
				i++
			}
			if !closed {
				return segs, fmt.Errorf("%s: missing %q", AnnotationCommand, EndToken)
			}
		} else {
			for i < len(tokens) && !IsCommand(tokens[i]) {
				seg.Args = append(seg.Args, tokens[i])
				i++
			}
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// Fields splits an interactive line on blanks. Single or double quotes
// group words and are kept, so that keyword strings such as
// title='a b' survive as one token.
func Fields(line string) ([]string, error) {
	var out []string
	var cur strings.Builder
	var quote rune
	inTok := false
	for _, r := range line {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			inTok = true
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inTok {
				out = append(out, cur.String())
				cur.Reset()
				inTok = false
			}
		default:
			inTok = true
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inTok {
		out = append(out, cur.String())
	}
	return out, nil
}

// Unquote removes one level of matching single or double quotes.
func Unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
