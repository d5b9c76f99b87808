package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/o2graph-lang/o2graph/native"
)

// ErrQuit ends a REPL or a script.
var ErrQuit = errors.New("quit")

// ArgumentError reports a wrong number or kind of arguments.
type ArgumentError struct {
	Command string
	Msg     string
}

func (e *ArgumentError) Error() string {
	return e.Msg
}

func notEnough(cmd string, have, want int) *ArgumentError {
	return &ArgumentError{Command: cmd, Msg: fmt.Sprintf("not enough parameters (%d given, %d needed)", have, want)}
}

func tooMany(cmd string, have, most int) *ArgumentError {
	return &ArgumentError{Command: cmd, Msg: fmt.Sprintf("too many parameters (%d given, at most %d)", have, most)}
}

// Argf builds an ArgumentError for cmd.
func Argf(cmd, format string, args ...any) *ArgumentError {
	return &ArgumentError{Command: cmd, Msg: fmt.Sprintf(format, args...)}
}

// UnknownCommandError reports a name that no table knows.
type UnknownCommandError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownCommandError) Error() string {
	msg := fmt.Sprintf("unknown command %q", e.Name)
	if len(e.Suggestions) > 0 {
		msg += "; did you mean " + strings.Join(e.Suggestions, ", ") + "?"
	}
	return msg
}

// UnknownCommandForTypeError reports a command that exists only for
// other current-object types.
type UnknownCommandForTypeError struct {
	Name  string
	Type  native.Type
	Types []native.Type
}

func (e *UnknownCommandForTypeError) Error() string {
	want := make([]string, len(e.Types))
	for i, t := range e.Types {
		want[i] = string(t)
	}
	return fmt.Sprintf("command %q is not defined for current type %s (valid for: %s)",
		e.Name, e.Type, strings.Join(want, ", "))
}

// CommandError attaches the command and current type to a failure.
type CommandError struct {
	Command string
	Type    native.Type
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q (current type %s): %v", e.Command, e.Type, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
