package output

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// captureOutput captures everything printed during f
func captureOutput(f func()) string {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)

	f()
	return buf.String()
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name   string
		print  func(string)
		prefix string
	}{
		{"success", Success, "🔥"},
		{"error", Error, "❌"},
		{"warn", Warn, "⚠️"},
		{"info", Info, "ℹ️"},
		{"step", Step, "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := captureOutput(func() { tt.print("hello crucible") })
			assert.Contains(t, got, tt.prefix)
			assert.Contains(t, got, "hello crucible")
			assert.True(t, strings.HasSuffix(got, "\n"))
		})
	}
}

func TestVerbose(t *testing.T) {
	got := captureOutput(func() { Verbose("hidden") })
	assert.Empty(t, got)

	SetVerbose(true)
	defer SetVerbose(false)

	got = captureOutput(func() { Verbose("shown") })
	assert.Contains(t, got, "🔍")
	assert.Contains(t, got, "shown")
}

func TestTerminalWidth_FallsBackWhenNotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	assert.False(t, IsTerminal(f))
	assert.Equal(t, DefaultWidth, TerminalWidth(f))
}
