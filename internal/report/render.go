package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// DefaultWidth is used when the output is not a terminal
const DefaultWidth = 100

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	validStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
)

// TextOptions controls text rendering
type TextOptions struct {
	Color bool
	Width int // Wrap column; DefaultWidth when <= 0
}

// RenderText writes a human readable report. Without color the output is
// plain and identical for identical reports.
func RenderText(w io.Writer, r *Report, opts TextOptions) error {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}

	var sb strings.Builder
	sections := []struct {
		marker string
		style  lipgloss.Style
		issues []Issue
	}{
		{"✗", errorStyle, r.Errors},
		{"⚠", warningStyle, r.Warnings},
		{"ℹ", infoStyle, r.Info},
	}

	for _, section := range sections {
		for _, issue := range section.issues {
			sb.WriteString(formatIssue(section.marker, section.style, issue, width, opts.Color))
			sb.WriteString("\n")
		}
	}

	if r.Total() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(summary(r, opts.Color))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func formatIssue(marker string, style lipgloss.Style, issue Issue, width int, color bool) string {
	rule := "[" + issue.RuleID + "]"
	head := marker
	if color {
		head = style.Render(marker)
		rule = ruleStyle.Render(rule)
	}

	body := issue.Message
	if issue.Location != "" {
		body = issue.Location + ": " + issue.Message
	}

	// Wrap the plain text, then indent continuation lines under the marker
	limit := max(width-len(issue.RuleID)-5, 20)
	wrapped := ansi.Wordwrap(body, limit, " ")
	lines := strings.Split(wrapped, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = "    " + lines[i]
	}
	return head + " " + rule + " " + strings.Join(lines, "\n")
}

func summary(r *Report, color bool) string {
	counts := fmt.Sprintf("%d %s, %d %s, %d info",
		len(r.Errors), plural(len(r.Errors), "error"),
		len(r.Warnings), plural(len(r.Warnings), "warning"),
		len(r.Info))

	if r.Valid {
		line := "✓ Valid (" + counts + ")"
		if color {
			return validStyle.Render(line)
		}
		return line
	}

	line := "✗ Invalid (" + counts + ")"
	if color {
		return errorStyle.Render(line)
	}
	return line
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// RenderJSON writes the report as indented JSON
func RenderJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
