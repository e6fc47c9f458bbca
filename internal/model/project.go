package model

import (
	"fmt"
	"sort"

	"github.com/simonhull/crucible/internal/report"
	"github.com/simonhull/crucible/internal/typeexpr"
)

// Manifest is project-level configuration
type Manifest struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Language    string `json:"language,omitempty" yaml:"language,omitempty"`
	Pattern     string `json:"pattern,omitempty" yaml:"pattern,omitempty"` // Layering preset: layered, clean, hexagonal
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Project is the validation unit. It is built once and never mutated by
// checkers, so it is safe to share between goroutines.
type Project struct {
	Manifest   Manifest
	Layers     LayerTable // nil when the project defines no layering
	Frameworks []*Framework

	// Diagnostics not attributable to a single module (duplicate module
	// names, invalid layer table entries, dropped compliance rules).
	Diagnostics []Diagnostic

	modules []*Module
	index   map[string]*Module
}

// ProjectOption configures NewProject
type ProjectOption func(*Project)

// WithLayers sets the layer table
func WithLayers(layers LayerTable) ProjectOption {
	return func(p *Project) {
		p.Layers = layers
	}
}

// WithFrameworks sets the compliance frameworks
func WithFrameworks(frameworks ...*Framework) ProjectOption {
	return func(p *Project) {
		p.Frameworks = append(p.Frameworks, frameworks...)
	}
}

// WithDiagnostics adds project-level diagnostics
func WithDiagnostics(diags ...Diagnostic) ProjectOption {
	return func(p *Project) {
		p.Diagnostics = append(p.Diagnostics, diags...)
	}
}

// NewProject builds a project from its modules. Modules are ordered by
// name; a module whose name repeats an earlier one is dropped with a
// diagnostic.
func NewProject(manifest Manifest, modules []*Module, opts ...ProjectOption) *Project {
	p := &Project{
		Manifest: manifest,
		index:    make(map[string]*Module, len(modules)),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, m := range modules {
		if m == nil {
			continue
		}
		if prev, dup := p.index[m.Name]; dup {
			p.Diagnostics = append(p.Diagnostics, Diagnostic{
				Rule:     report.RuleValidModuleStructure,
				Location: m.Name,
				Message:  fmt.Sprintf("duplicate module name %q (%s already defines it)", m.Name, sourceOf(prev)),
			})
			continue
		}
		p.index[m.Name] = m
		p.modules = append(p.modules, m)
	}

	sort.Slice(p.modules, func(i, j int) bool { return p.modules[i].Name < p.modules[j].Name })
	sort.SliceStable(p.Frameworks, func(i, j int) bool { return p.Frameworks[i].ID < p.Frameworks[j].ID })
	return p
}

func sourceOf(m *Module) string {
	if m.Source != "" {
		return m.Source
	}
	return "an earlier module"
}

// Modules returns modules sorted by name. Callers must not modify the slice.
func (p *Project) Modules() []*Module {
	return p.modules
}

// Module looks up a module by name
func (p *Project) Module(name string) (*Module, bool) {
	m, ok := p.index[name]
	return m, ok
}

// Framework looks up a compliance framework by id
func (p *Project) Framework(id string) (*Framework, bool) {
	for _, f := range p.Frameworks {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Scope returns the names visible from m: its own exports plus exports
// imported through its declared dependencies.
func (p *Project) Scope(m *Module) typeexpr.Scope {
	return &moduleScope{project: p, module: m}
}

type moduleScope struct {
	project *Project
	module  *Module
}

func (s *moduleScope) Module() string {
	return s.module.Name
}

func (s *moduleScope) Visible(name string) (string, bool) {
	if _, ok := s.module.Exports[name]; ok {
		return s.module.Name, true
	}

	for _, dep := range s.module.DependencyNames() {
		if !s.module.Dependencies[dep].Includes(name) {
			continue
		}
		target, ok := s.project.index[dep]
		if !ok {
			continue
		}
		if _, ok := target.Exports[name]; ok {
			return dep, true
		}
	}
	return "", false
}

func (s *moduleScope) Export(module, name string) (bool, bool) {
	target, ok := s.project.index[module]
	if !ok {
		return false, false
	}
	_, ok = target.Exports[name]
	return true, ok
}
