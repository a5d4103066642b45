package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// detailWidth is the column at which Detail paragraphs are wrapped.
const detailWidth = 72

// colorsOff is set by DisableColors and by the NO_COLOR environment variable.
var colorsOff atomic.Bool

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		colorsOff.Store(true)
	}
}

// DisableColors turns off ANSI styling in formatted errors.
func DisableColors() { colorsOff.Store(true) }

// EnableColors turns ANSI styling back on.
func EnableColors() { colorsOff.Store(false) }

// style applies ANSI SGR sequences when enabled.
type style bool

func (s style) apply(sgr, text string) string {
	if !s {
		return text
	}
	return "\033[" + sgr + "m" + text + "\033[0m"
}

func (s style) heading(text string) string { return s.apply("1;31", text) }
func (s style) code(text string) string    { return s.apply("1;37", text) }
func (s style) place(text string) string   { return s.apply("36", text) }
func (s style) label(text string) string   { return s.apply("90", text) }

// Format returns the error as a multi-line block for terminal display.
func (e *Error) Format() string {
	return e.render(style(!colorsOff.Load()))
}

func (e *Error) render(st style) string {
	var b strings.Builder

	head := "ERROR"
	if e.Code != "" {
		head += " " + st.code(e.Code)
	}
	fmt.Fprintf(&b, "\n%s: %s\n", st.heading(head), e.Message)
	if e.Category != "" {
		fmt.Fprintf(&b, "  %s\n", st.label("("+string(e.Category)+")"))
	}
	b.WriteString("\n")

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", st.place(e.Location.String()))
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, detailWidth) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}

	for i, cause := range causes(e.Wrapped) {
		prefix := "Cause: "
		if i > 0 {
			prefix = "  via: "
		}
		fmt.Fprintf(&b, "  %s%s\n", st.label(prefix), cause)
	}
	if e.Wrapped != nil {
		b.WriteString("\n")
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s%s\n\n", st.place("Hint: "), e.Suggestion)
	}

	return b.String()
}

// FormatCompact returns the error on one line, prefixed by its location.
func (e *Error) FormatCompact() string {
	if e.Location == nil {
		return e.Error()
	}
	return e.Location.String() + ": " + e.Error()
}

// causes lists the messages of err and the errors it wraps, outermost
// first, skipping messages already contained in the previous one.
func causes(err error) []string {
	var out []string
	prev := ""
	for ; err != nil; err = stderrors.Unwrap(err) {
		msg := err.Error()
		if prev != "" && strings.Contains(prev, msg) {
			continue
		}
		out = append(out, msg)
		prev = msg
	}
	return out
}

// wrapText breaks text into lines of at most width columns. Explicit
// newlines start a new paragraph. Words longer than width get their own line.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// Fprint writes err to w. An *Error is printed as a block; colors are
// used only when w is a terminal.
func Fprint(w io.Writer, err error) {
	st := style(!colorsOff.Load() && isTerminal(w))

	var e *Error
	if stderrors.As(err, &e) {
		io.WriteString(w, e.render(st))
		return
	}
	fmt.Fprintf(w, "\n%s: %s\n\n", st.heading("ERROR"), err)
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
