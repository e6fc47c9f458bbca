package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestProject represents a temporary crucible project for testing
type TestProject struct {
	Root string
	t    *testing.T
}

// NewTestProject creates a temporary project directory
func NewTestProject(t *testing.T) *TestProject {
	t.Helper()

	return &TestProject{
		Root: t.TempDir(),
		t:    t,
	}
}

// Path returns the absolute path of a slash-separated project path
func (p *TestProject) Path(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// WriteFile writes content to a path relative to the project root,
// creating parent directories. It fails the test on error.
func (p *TestProject) WriteFile(rel, content string) {
	p.t.Helper()

	path := p.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		p.t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		p.t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// WriteManifest writes manifest.json or manifest.yaml depending on content
func (p *TestProject) WriteManifest(content string) {
	p.t.Helper()
	p.WriteFile("manifest"+ext(content), content)
}

// WriteModule writes modules/<name>.json or .yaml depending on content
func (p *TestProject) WriteModule(name, content string) {
	p.t.Helper()
	p.WriteFile("modules/"+name+ext(content), content)
}

// WriteLayers writes the project's layer table
func (p *TestProject) WriteLayers(content string) {
	p.t.Helper()
	p.WriteFile("rules/layers"+ext(content), content)
}

// WriteFramework writes a compliance framework file
func (p *TestProject) WriteFramework(name, content string) {
	p.t.Helper()
	p.WriteFile("rules/compliance/"+name+ext(content), content)
}

// ReadFile reads a file from the project
func (p *TestProject) ReadFile(rel string) (string, error) {
	p.t.Helper()

	content, err := os.ReadFile(p.Path(rel))
	return string(content), err
}

// FileExists checks if a file exists in the project
func (p *TestProject) FileExists(rel string) bool {
	p.t.Helper()

	_, err := os.Stat(p.Path(rel))
	return err == nil
}

// ext guesses the file extension from the content: JSON documents start
// with a brace, everything else is written as YAML.
func ext(content string) string {
	if strings.HasPrefix(strings.TrimSpace(content), "{") {
		return ".json"
	}
	return ".yaml"
}
