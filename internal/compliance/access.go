package compliance

import (
	"sort"

	"github.com/simonhull/crucible/internal/model"
	"github.com/simonhull/crucible/internal/typeexpr"
)

// tagSet is a set of annotation tags
type tagSet map[string]struct{}

func (s tagSet) add(tags ...string) {
	for _, t := range tags {
		s[t] = struct{}{}
	}
}

func (s tagSet) merge(other tagSet) {
	for t := range other {
		s[t] = struct{}{}
	}
}

func (s tagSet) has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// intersect returns the members of tags present in s, sorted
func (s tagSet) intersect(tags []string) []string {
	var out []string
	for _, t := range tags {
		if s.has(t) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// missing returns the members of tags absent from s, in the given order
func (s tagSet) missing(tags []string) []string {
	var out []string
	for _, t := range tags {
		if !s.has(t) {
			out = append(out, t)
		}
	}
	return out
}

func tags(list ...[]string) tagSet {
	s := make(tagSet)
	for _, l := range list {
		s.add(l...)
	}
	return s
}

// methodKey identifies a method across the project
type methodKey struct {
	module string
	export string
	method string
}

// accessIndex answers which annotated data a method touches. Results are
// memoized for the lifetime of one evaluation.
type accessIndex struct {
	project *model.Project

	exportData map[string]tagSet    // module.Export → annotations of reachable data
	typeData   map[methodKey]tagSet // data reachable from inputs and return type
	callData   map[methodKey]tagSet // own annotations + type data, closed over calls
}

func newAccessIndex(p *model.Project) *accessIndex {
	return &accessIndex{
		project:    p,
		exportData: make(map[string]tagSet),
		typeData:   make(map[methodKey]tagSet),
		callData:   make(map[methodKey]tagSet),
	}
}

// TypeData returns annotations of every data-bearing export and property
// reachable from the method's parameter and return types.
func (a *accessIndex) TypeData(m *model.Module, site model.MethodSite) tagSet {
	key := keyOf(m, site)
	if data, ok := a.typeData[key]; ok {
		return data
	}

	data := make(tagSet)
	scope := a.project.Scope(m)
	visit := func(ref model.TypeRef) {
		if !ref.Valid() {
			return
		}
		for _, r := range typeexpr.Resolve(ref.Expr, scope).Refs {
			data.merge(a.dataOf(r.Target, r.Name, map[string]bool{}))
		}
	}
	for _, in := range site.Method.Inputs {
		visit(in.Type)
	}
	if site.Method.Returns != nil {
		visit(*site.Method.Returns)
	}

	a.typeData[key] = data
	return data
}

// dataOf collects annotations of a data-bearing export, its properties and
// every data-bearing export its property types reference.
func (a *accessIndex) dataOf(module, export string, visiting map[string]bool) tagSet {
	id := module + "." + export
	if data, ok := a.exportData[id]; ok {
		return data
	}
	if visiting[id] {
		return nil
	}
	visiting[id] = true
	defer delete(visiting, id)

	data := make(tagSet)
	m, ok := a.project.Module(module)
	if !ok {
		return data
	}
	bearer, ok := m.Exports[export].(model.DataBearer)
	if !ok {
		return data
	}

	data.add(bearer.Annotations()...)
	scope := a.project.Scope(m)
	props := bearer.Properties()
	for _, name := range sortedNames(props) {
		prop := props[name]
		data.add(prop.Annotations...)
		if !prop.Type.Valid() {
			continue
		}
		for _, r := range typeexpr.Resolve(prop.Type.Expr, scope).Refs {
			data.merge(a.dataOf(r.Target, r.Name, visiting))
		}
	}

	// Only cache complete results; a cycle leaves partial sets upstream
	if len(visiting) == 1 {
		a.exportData[id] = data
	}
	return data
}

// CallData returns the method's own annotations and type-reachable data,
// merged with the same set for every method it transitively calls. Call
// cycles are walked once.
func (a *accessIndex) CallData(m *model.Module, site model.MethodSite) tagSet {
	key := keyOf(m, site)
	if data, ok := a.callData[key]; ok {
		return data
	}

	data := make(tagSet)
	visited := make(map[methodKey]bool)
	stack := []callee{{m, site}}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		k := keyOf(c.module, c.site)
		if visited[k] {
			continue
		}
		visited[k] = true

		data.add(c.site.Method.Annotations...)
		data.merge(a.TypeData(c.module, c.site))
		for _, call := range c.site.Method.Calls {
			stack = append(stack, a.callees(call)...)
		}
	}

	a.callData[key] = data
	return data
}

func keyOf(m *model.Module, site model.MethodSite) methodKey {
	return methodKey{m.Name, site.Export.Name(), site.Method.Name}
}

type callee struct {
	module *model.Module
	site   model.MethodSite
}

// callees resolves a call reference to the methods it can reach. A
// two-segment reference to a method-bearing export reaches all its methods.
func (a *accessIndex) callees(call model.CallRef) []callee {
	target, ok := a.project.Module(call.Module)
	if !ok {
		return nil
	}
	export, method, err := target.Lookup(call)
	if err != nil {
		return nil
	}

	if method != nil {
		return []callee{{target, model.MethodSite{Location: target.Location(export.Name(), method.Name), Export: export, Method: method}}}
	}

	bearer, ok := export.(model.MethodBearer)
	if !ok {
		return nil
	}
	var out []callee
	methods := bearer.Methods()
	for _, name := range sortedNames(methods) {
		out = append(out, callee{target, model.MethodSite{Location: target.Location(export.Name(), name), Export: export, Method: methods[name]}})
	}
	return out
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
