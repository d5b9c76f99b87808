package dispatch

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// ErrInterrupted is returned by ReadLine on Ctrl-C.
var ErrInterrupted = errors.New("interrupted")

// Candidate is one completion suggestion.
type Candidate struct {
	Text string
	Help string
}

// Completer returns the candidates for the word ending at pos.
type Completer func(line string, pos int) []Candidate

type keyResult struct {
	key string
	err error
}

// LineEditor is a small raw-mode line editor with a completion popup
// and history navigation.
type LineEditor struct {
	in       io.Reader
	out      io.Writer
	fd       int
	oldState *term.State
	complete Completer

	line   []rune
	cursor int

	completions    []Candidate
	selected       int
	showPopup      bool
	popupLineCount int

	history []string
	histPos int
	saved   []rune

	pendingInput []byte
	keyChan      chan keyResult
}

// NewLineEditor returns an editor reading keys from in and drawing on
// out. fd is the terminal put in raw mode; pass -1 when in is not a
// terminal.
func NewLineEditor(in io.Reader, out io.Writer, fd int, complete Completer) *LineEditor {
	return &LineEditor{in: in, out: out, fd: fd, complete: complete}
}

// SetHistory replaces the lines reachable with the up and down keys.
func (e *LineEditor) SetHistory(lines []string) {
	e.history = append([]string(nil), lines...)
}

// AddHistory appends a line to the in-memory history.
func (e *LineEditor) AddHistory(line string) {
	if line == "" || (len(e.history) > 0 && e.history[len(e.history)-1] == line) {
		return
	}
	e.history = append(e.history, line)
}

func (e *LineEditor) enterRawMode() error {
	if e.fd < 0 || !term.IsTerminal(e.fd) {
		return nil
	}
	oldState, err := term.MakeRaw(e.fd)
	if err != nil {
		return err
	}
	e.oldState = oldState
	return nil
}

func (e *LineEditor) exitRawMode() {
	if e.oldState != nil {
		term.Restore(e.fd, e.oldState)
		e.oldState = nil
	}
}

func (e *LineEditor) width() int {
	if e.fd >= 0 {
		if w, _, err := term.GetSize(e.fd); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

func (e *LineEditor) readByte() (byte, error) {
	if len(e.pendingInput) > 0 {
		b := e.pendingInput[0]
		e.pendingInput = e.pendingInput[1:]
		return b, nil
	}
	buf := make([]byte, 32)
	n, err := e.in.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}
	if n > 1 {
		e.pendingInput = append(e.pendingInput, buf[1:n]...)
	}
	return buf[0], nil
}

// skipToTerminator skips bytes up to a CSI terminator (0x40-0x7E).
func (e *LineEditor) skipToTerminator() {
	for {
		b, err := e.readByte()
		if err != nil || (b >= 0x40 && b <= 0x7E) {
			return
		}
	}
}

func (e *LineEditor) readKey() (string, error) {
	ch, err := e.readByte()
	if err != nil {
		return "", err
	}
	if ch == 0x1b {
		ch2, err := e.readByte()
		if err != nil || ch2 != '[' {
			return "escape", nil
		}
		ch3, err := e.readByte()
		if err != nil {
			return "escape", nil
		}
		switch ch3 {
		case 'A':
			return "up", nil
		case 'B':
			return "down", nil
		case 'C':
			return "right", nil
		case 'D':
			return "left", nil
		case 'H':
			return "home", nil
		case 'F':
			return "end", nil
		case 'Z':
			return "shift-tab", nil
		case '3':
			e.readByte() // ~
			return "delete", nil
		}
		if ch3 < 0x40 || ch3 > 0x7E {
			e.skipToTerminator()
		}
		return e.readKey()
	}
	switch ch {
	case 0x01:
		return "home", nil
	case 0x03:
		return "ctrl-c", nil
	case 0x04:
		return "ctrl-d", nil
	case 0x05:
		return "end", nil
	case 0x09:
		return "tab", nil
	case 0x0d, 0x0a:
		return "enter", nil
	case 0x7f, 0x08:
		return "backspace", nil
	case 0x15:
		return "ctrl-u", nil
	case 0x17:
		return "ctrl-w", nil
	}
	return string(ch), nil
}

func (e *LineEditor) render(prompt string) {
	if e.popupLineCount > 0 {
		e.clearPopup()
	}
	fmt.Fprint(e.out, "\r\033[K", prompt, string(e.line))
	if e.showPopup && len(e.completions) > 0 {
		e.renderPopup()
	}
	fmt.Fprintf(e.out, "\r\033[%dC", len(prompt)+e.cursor)
}

func (e *LineEditor) renderPopup() {
	n := min(len(e.completions), 10)
	maxLen := max(e.width()-2, 40)
	nameWidth := 8
	for _, c := range e.completions[:n] {
		nameWidth = max(nameWidth, len(c.Text)+2)
	}
	nameWidth = min(nameWidth, 30)

	e.popupLineCount = n
	for i, c := range e.completions[:n] {
		prefix := "  "
		if i == e.selected {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%-*s", prefix, nameWidth, c.Text)
		if room := maxLen - len(line) - 1; c.Help != "" && room > 10 {
			help := c.Help
			if len(help) > room {
				help = help[:room-3] + "..."
			}
			line += " " + help
		}
		if len(line) > maxLen {
			line = line[:maxLen]
		}
		if i == e.selected {
			fmt.Fprintf(e.out, "\n\r\033[K\033[7m%s\033[0m", line)
		} else {
			fmt.Fprintf(e.out, "\n\r\033[K\033[2m%s\033[0m", line)
		}
	}
	fmt.Fprintf(e.out, "\033[%dA\r", n)
}

func (e *LineEditor) clearPopup() {
	if e.popupLineCount == 0 {
		return
	}
	for i := 0; i < e.popupLineCount; i++ {
		fmt.Fprint(e.out, "\n\033[2K")
	}
	fmt.Fprintf(e.out, "\033[%dA\r", e.popupLineCount)
	e.popupLineCount = 0
}

func (e *LineEditor) hidePopup() {
	if e.showPopup || e.popupLineCount > 0 {
		e.clearPopup()
		e.showPopup = false
		e.completions = nil
	}
}

func (e *LineEditor) fetchCompletions() {
	e.completions = nil
	if e.complete != nil {
		e.completions = e.complete(string(e.line[:e.cursor]), e.cursor)
	}
	e.selected = 0
}

// applyCompletion replaces the word before the cursor.
func (e *LineEditor) applyCompletion() {
	if e.selected < 0 || e.selected >= len(e.completions) {
		return
	}
	text := []rune(e.completions[e.selected].Text)
	start := e.cursor
	for start > 0 && e.line[start-1] != ' ' && e.line[start-1] != '\t' {
		start--
	}
	nl := make([]rune, 0, len(e.line)+len(text)+1)
	nl = append(nl, e.line[:start]...)
	nl = append(nl, text...)
	nl = append(nl, ' ')
	nl = append(nl, e.line[e.cursor:]...)
	e.line = nl
	e.cursor = start + len(text) + 1
	e.showPopup = false
	e.completions = nil
}

func (e *LineEditor) recall(pos int) {
	if pos < 0 || pos > len(e.history) {
		return
	}
	if e.histPos == len(e.history) {
		e.saved = append([]rune(nil), e.line...)
	}
	e.histPos = pos
	if pos == len(e.history) {
		e.line = append([]rune(nil), e.saved...)
	} else {
		e.line = []rune(e.history[pos])
	}
	e.cursor = len(e.line)
}

func (e *LineEditor) startKeyReader() {
	if e.keyChan != nil {
		return
	}
	e.keyChan = make(chan keyResult, 16)
	go func() {
		for {
			key, err := e.readKey()
			e.keyChan <- keyResult{key, err}
			if err != nil {
				return
			}
		}
	}()
}

// ReadLine reads one line. It returns io.EOF on Ctrl-D at an empty
// line or at end of input, and ErrInterrupted on Ctrl-C.
func (e *LineEditor) ReadLine(prompt string) (string, error) {
	if err := e.enterRawMode(); err != nil {
		return "", err
	}
	defer e.exitRawMode()
	e.startKeyReader()

	e.line, e.cursor = nil, 0
	e.showPopup, e.completions, e.selected = false, nil, 0
	e.histPos = len(e.history)
	e.render(prompt)

	for {
		kr := <-e.keyChan
		if kr.err != nil {
			// Keep the error for the next call.
			e.keyChan = nil
			if kr.err == io.EOF && len(e.line) > 0 {
				fmt.Fprint(e.out, "\r\n")
				return string(e.line), nil
			}
			return "", kr.err
		}
		popup := e.showPopup && len(e.completions) > 0

		switch kr.key {
		case "enter":
			if popup {
				e.applyCompletion()
				break
			}
			e.clearPopup()
			fmt.Fprint(e.out, "\r\n")
			return string(e.line), nil
		case "ctrl-c":
			e.clearPopup()
			fmt.Fprint(e.out, "\r\n")
			return "", ErrInterrupted
		case "ctrl-d":
			if len(e.line) == 0 {
				e.clearPopup()
				fmt.Fprint(e.out, "\r\n")
				return "", io.EOF
			}
			if e.cursor < len(e.line) {
				e.line = append(e.line[:e.cursor], e.line[e.cursor+1:]...)
				e.hidePopup()
			}
		case "tab":
			if popup {
				e.selected = (e.selected + 1) % len(e.completions)
				break
			}
			e.fetchCompletions()
			if len(e.completions) == 1 {
				e.applyCompletion()
			} else {
				e.showPopup = len(e.completions) > 0
			}
		case "shift-tab":
			if popup {
				e.selected = (e.selected - 1 + len(e.completions)) % len(e.completions)
			}
		case "up":
			if popup {
				e.selected = (e.selected - 1 + len(e.completions)) % len(e.completions)
			} else {
				e.recall(e.histPos - 1)
			}
		case "down":
			if popup {
				e.selected = (e.selected + 1) % len(e.completions)
			} else {
				e.recall(e.histPos + 1)
			}
		case "left":
			if e.cursor > 0 {
				e.cursor--
			}
			e.hidePopup()
		case "right":
			if e.cursor < len(e.line) {
				e.cursor++
			}
			e.hidePopup()
		case "home":
			e.cursor = 0
			e.hidePopup()
		case "end":
			e.cursor = len(e.line)
			e.hidePopup()
		case "backspace":
			if e.cursor > 0 {
				e.line = append(e.line[:e.cursor-1], e.line[e.cursor:]...)
				e.cursor--
				e.hidePopup()
			}
		case "delete":
			if e.cursor < len(e.line) {
				e.line = append(e.line[:e.cursor], e.line[e.cursor+1:]...)
				e.hidePopup()
			}
		case "ctrl-u":
			e.line = e.line[e.cursor:]
			e.cursor = 0
			e.hidePopup()
		case "ctrl-w":
			n := e.cursor
			for n > 0 && e.line[n-1] == ' ' {
				n--
			}
			for n > 0 && e.line[n-1] != ' ' {
				n--
			}
			e.line = append(e.line[:n], e.line[e.cursor:]...)
			e.cursor = n
			e.hidePopup()
		case "escape":
			e.hidePopup()
		default:
			if len(kr.key) == 1 && kr.key[0] >= 32 && kr.key[0] < 127 {
				nl := make([]rune, len(e.line)+1)
				copy(nl, e.line[:e.cursor])
				nl[e.cursor] = rune(kr.key[0])
				copy(nl[e.cursor+1:], e.line[e.cursor:])
				e.line = nl
				e.cursor++
				e.hidePopup()
			}
		}
		e.render(prompt)
	}
}

// Completions offers command names for the first word, and command or
// type names after help and commands.
func (d *Dispatcher) Completions(line string, pos int) []Candidate {
	if pos > len(line) {
		pos = len(line)
	}
	words := strings.Fields(line[:pos])
	word := ""
	if len(words) > 0 && !strings.HasSuffix(line[:pos], " ") {
		word = words[len(words)-1]
		words = words[:len(words)-1]
	}
	dash := strings.HasPrefix(word, "-")
	word = strings.TrimLeft(word, "-")

	var out []Candidate
	switch {
	case len(words) == 0:
		for _, name := range d.Table.Complete(word) {
			out = append(out, Candidate{Text: name, Help: d.short(name)})
		}
	case len(words) == 1 && (words[0] == "help" || words[0] == "commands"):
		for _, name := range d.Table.Complete(word) {
			out = append(out, Candidate{Text: name, Help: d.short(name)})
		}
		for _, t := range nativeTypeNames() {
			if strings.HasPrefix(t, word) {
				out = append(out, Candidate{Text: t, Help: "type"})
			}
		}
	}
	if dash {
		for i := range out {
			out[i].Text = "-" + out[i].Text
		}
	}
	return out
}

func (d *Dispatcher) short(name string) string {
	if e, err := d.Table.Lookup(name, d.proc.Type()); err == nil {
		return e.Short
	}
	return ""
}
