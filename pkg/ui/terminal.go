package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Banner is printed at the start of an interactive run
const Banner = `
 ╦  ╦ ╦╔═╗╦╔╦╗  ╔═╗═╗ ╦╔═╗╔═╗╦═╗╔╦╗
 ║  ║ ║║  ║ ║║  ║╣ ╔╩╦╝╠═╝║ ║╠╦╝ ║
 ╩═╝╚═╝╚═╝╩═╩╝  ╚═╝╩ ╚═╩  ╚═╝╩╚═ ╩ `

// Options controls terminal output
type Options struct {
	Out     io.Writer
	Err     io.Writer
	Quiet   bool
	NoColor bool
}

type terminal struct {
	mu     sync.RWMutex
	out    io.Writer
	err    io.Writer
	quiet  bool
	styles styles
}

var console = newTerminal(Options{})

func newTerminal(opts Options) *terminal {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}

	renderer := lipgloss.NewRenderer(opts.Out)
	if opts.NoColor {
		renderer.SetColorProfile(termenv.Ascii)
	}

	return &terminal{
		out:    opts.Out,
		err:    opts.Err,
		quiet:  opts.Quiet,
		styles: newStyles(renderer),
	}
}

// Configure replaces the output settings used by every function in this package
func Configure(opts Options) {
	t := newTerminal(opts)
	console.mu.Lock()
	console.out, console.err, console.quiet, console.styles = t.out, t.err, t.quiet, t.styles
	console.mu.Unlock()
}

// SetQuietMode suppresses everything except errors
func SetQuietMode(quiet bool) {
	console.mu.Lock()
	console.quiet = quiet
	console.mu.Unlock()
}

// IsQuietMode reports whether non-error output is suppressed
func IsQuietMode() bool {
	console.mu.RLock()
	defer console.mu.RUnlock()
	return console.quiet
}

// snapshot returns the current writers and styles
func snapshot() (io.Writer, io.Writer, bool, styles) {
	console.mu.RLock()
	defer console.mu.RUnlock()
	return console.out, console.err, console.quiet, console.styles
}

// PrintBanner prints the application banner
func PrintBanner() {
	out, _, quiet, s := snapshot()
	if quiet {
		return
	}
	fmt.Fprintln(out, s.label.Render(Banner))
}

// PrintError prints an error message. Errors are printed even in quiet mode.
func PrintError(msg string, args ...interface{}) {
	_, errOut, _, s := snapshot()
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(errOut, s.failure.Render(msg))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	out, _, quiet, s := snapshot()
	if quiet {
		return
	}
	fmt.Fprintln(out, s.success.Render(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	out, _, quiet, s := snapshot()
	if quiet {
		return
	}
	fmt.Fprintf(out, "%s: %s\n", s.label.Render(label), s.value.Render(value))
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	out, _, quiet, s := snapshot()
	if quiet {
		return
	}
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(out, s.warning.Render(msg))
}

// PrintHighlight prints a highlighted message
func PrintHighlight(msg string) {
	out, _, quiet, s := snapshot()
	if quiet {
		return
	}
	fmt.Fprintln(out, s.highlight.Render(msg))
}
