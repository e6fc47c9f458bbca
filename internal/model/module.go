package model

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/simonhull/crucible/internal/report"
)

// Import is the parsed import list of one declared dependency
type Import struct {
	Names []string // Sorted export names; empty when All is set
	All   bool     // "*" or an empty list imports the whole module
}

// ParseImport parses a comma-separated list of export names
func ParseImport(list string) Import {
	var names []string
	for _, part := range strings.Split(list, ",") {
		name := strings.TrimSpace(part)
		if name == "*" {
			return Import{All: true}
		}
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return Import{All: true}
	}
	sort.Strings(names)
	return Import{Names: names}
}

// Includes reports whether name is imported
func (i Import) Includes(name string) bool {
	return i.All || slices.Contains(i.Names, name)
}

// Diagnostic is a problem found while building the model. Diagnostics
// become issues in the report; Fatal ones degrade their module.
type Diagnostic struct {
	Rule     string
	Location string
	Message  string
	Fatal    bool
}

// Issue converts the diagnostic into an error-severity report issue
func (d Diagnostic) Issue() report.Issue {
	return report.Issue{
		RuleID:   d.Rule,
		Severity: report.SeverityError,
		Location: d.Location,
		Message:  d.Message,
	}
}

// Module is a named unit of exports and dependencies
type Module struct {
	Name         string
	Version      string
	Layer        string
	Description  string
	Source       string // File the module was read from, if any
	Exports      map[string]Export
	Dependencies map[string]Import
	Diagnostics  []Diagnostic

	// Degraded modules failed structural validation. They keep their graph
	// node but are skipped by the layer, type, call and usage checks.
	Degraded bool
}

// ExportNames returns export names in sorted order
func (m *Module) ExportNames() []string {
	return sortedKeys(m.Exports)
}

// DependencyNames returns declared dependency names in sorted order
func (m *Module) DependencyNames() []string {
	return sortedKeys(m.Dependencies)
}

// Location joins path segments under the module name
func (m *Module) Location(parts ...string) string {
	return strings.Join(append([]string{m.Name}, parts...), ".")
}

// MethodSite is a method together with its owning export
type MethodSite struct {
	Location string // module.Export.method
	Export   Export
	Method   *Method
}

// Methods returns every method of every method-bearing export, sorted by
// export then method name.
func (m *Module) Methods() []MethodSite {
	var sites []MethodSite
	for _, exportName := range m.ExportNames() {
		bearer, ok := m.Exports[exportName].(MethodBearer)
		if !ok {
			continue
		}
		methods := bearer.Methods()
		for _, name := range sortedKeys(methods) {
			sites = append(sites, MethodSite{
				Location: m.Location(exportName, name),
				Export:   bearer,
				Method:   methods[name],
			})
		}
	}
	return sites
}

// PropertySite is a property together with its owning export
type PropertySite struct {
	Location string // module.Export.property
	Export   Export
	Property *Property
}

// Properties returns every property of every data-bearing export
// (including event payloads), sorted by export then property name.
func (m *Module) Properties() []PropertySite {
	var sites []PropertySite
	for _, exportName := range m.ExportNames() {
		bearer, ok := m.Exports[exportName].(DataBearer)
		if !ok {
			continue
		}
		props := bearer.Properties()
		for _, name := range sortedKeys(props) {
			sites = append(sites, PropertySite{
				Location: m.Location(exportName, name),
				Export:   bearer,
				Property: props[name],
			})
		}
	}
	return sites
}

// TypeUse is one parsed type expression and where it appears
type TypeUse struct {
	Location string // Method or property path
	Context  string // e.g. "parameter id", "return type", "property email"
	Type     TypeRef
}

// TypeUses returns every successfully parsed type expression in the module
func (m *Module) TypeUses() []TypeUse {
	var uses []TypeUse
	add := func(location, context string, ref TypeRef) {
		if ref.Valid() {
			uses = append(uses, TypeUse{Location: location, Context: context, Type: ref})
		}
	}

	for _, site := range m.Methods() {
		for _, in := range site.Method.Inputs {
			add(site.Location, "parameter "+in.Name, in.Type)
		}
		if site.Method.Returns != nil {
			add(site.Location, "return type", *site.Method.Returns)
		}
		for _, t := range site.Method.Throws {
			add(site.Location, "throws", t)
		}
	}
	for _, site := range m.Properties() {
		add(site.Location, "property "+site.Property.Name, site.Property.Type)
	}
	return uses
}

// Calls returns every parsed call reference with the calling method's location
func (m *Module) Calls() []CallSite {
	var calls []CallSite
	for _, site := range m.Methods() {
		for _, call := range site.Method.Calls {
			calls = append(calls, CallSite{Location: site.Location, Call: call})
		}
	}
	return calls
}

// CallSite is a call reference and the method that makes it
type CallSite struct {
	Location string
	Call     CallRef
}

// Lookup finds the method a call reference targets. For two-segment
// references the export itself is the callee and must be callable: a
// function, class or trait.
func (m *Module) Lookup(ref CallRef) (export Export, method *Method, err error) {
	export, ok := m.Exports[ref.Export]
	if !ok {
		return nil, nil, fmt.Errorf("module %s does not export %s", m.Name, ref.Export)
	}

	bearer, ok := export.(MethodBearer)
	if ref.Method == "" {
		if !ok {
			return export, nil, fmt.Errorf("%s.%s is not callable (%s export)", m.Name, ref.Export, export.Kind())
		}
		return export, nil, nil
	}
	if !ok {
		return export, nil, fmt.Errorf("%s.%s is a %s and has no methods", m.Name, ref.Export, export.Kind())
	}
	method, ok = bearer.Methods()[ref.Method]
	if !ok {
		return export, nil, fmt.Errorf("%s.%s has no method %s", m.Name, ref.Export, ref.Method)
	}
	return export, method, nil
}

// AddDiagnostic records a diagnostic and degrades the module when fatal.
// It is meant for loaders, before the module is handed to NewProject.
func (m *Module) AddDiagnostic(d Diagnostic) {
	m.Diagnostics = append(m.Diagnostics, d)
	if d.Fatal {
		m.Degraded = true
	}
}
