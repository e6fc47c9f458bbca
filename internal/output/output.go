// Package output provides styled terminal output for the crucible CLI.
//
// Functions use lipgloss for styling but hide the details from callers:
//
//	output.Success("Architecture is valid")
//	output.Warn("Framework sox not found")
//	output.Step("modules/users.json")
package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// DefaultWidth is used when the terminal width cannot be detected
const DefaultWidth = 100

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	mu          sync.Mutex
	out         io.Writer = os.Stdout
	verboseMode bool
)

// SetVerbose enables or disables verbose output.
// This should be called by the CLI when the --verbose flag is set.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verboseMode = v
}

// SetOutput redirects all output. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

func printStyled(style lipgloss.Style, msg string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out, style.Render(msg))
}

// Success prints a success message with 🔥 emoji and green color
func Success(msg string) {
	printStyled(successStyle, "🔥 "+msg)
}

// Error prints an error message with ❌ emoji and red color
func Error(msg string) {
	printStyled(errorStyle, "❌ "+msg)
}

// Warn prints a warning with ⚠️ emoji and yellow color
func Warn(msg string) {
	printStyled(warnStyle, "⚠️  "+msg)
}

// Info prints an informational message with ℹ️ emoji and cyan color
func Info(msg string) {
	printStyled(infoStyle, "ℹ️  "+msg)
}

// Step prints an indented step message in gray.
//
// Example:
//
//	output.Info("Compliance frameworks:")
//	output.Step("hipaa (3 rules)")
func Step(msg string) {
	printStyled(stepStyle, "   "+msg)
}

// Verbose prints a debug message with 🔍 emoji only if verbose mode is enabled
func Verbose(msg string) {
	mu.Lock()
	enabled := verboseMode
	mu.Unlock()

	if enabled {
		printStyled(stepStyle, "🔍 "+msg)
	}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of the terminal on f, defaulting to
// DefaultWidth if unable to detect
func TerminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}
