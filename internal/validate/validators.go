package validate

import (
	"fmt"
	"strings"

	"github.com/simonhull/crucible/internal/graph"
	"github.com/simonhull/crucible/internal/model"
	"github.com/simonhull/crucible/internal/report"
	"github.com/simonhull/crucible/internal/typeexpr"
)

// StructureValidator surfaces diagnostics recorded while the model was built
type StructureValidator struct{}

func (v *StructureValidator) Name() string {
	return "StructureValidator"
}

func (v *StructureValidator) Validate(p *model.Project) []report.Issue {
	var issues []report.Issue
	for _, d := range p.Diagnostics {
		issues = append(issues, d.Issue())
	}
	for _, m := range p.Modules() {
		for _, d := range m.Diagnostics {
			issues = append(issues, d.Issue())
		}
	}
	return issues
}

// DependencyValidator reports dependencies on unknown modules and
// circular dependencies.
type DependencyValidator struct{}

func (v *DependencyValidator) Name() string {
	return "DependencyValidator"
}

func (v *DependencyValidator) Validate(p *model.Project) []report.Issue {
	g, dangling := graph.Build(p)

	var issues []report.Issue
	for _, d := range dangling {
		issues = append(issues, report.Errorf(report.RuleModuleNotFound,
			d.From+".dependencies."+d.To,
			"module %s depends on %s, which does not exist", d.From, d.To))
	}

	// One issue per cycle, not per edge
	for _, cycle := range g.Cycles {
		issues = append(issues, report.Errorf(report.RuleNoCircularDependencies,
			cycle[0],
			"circular dependency: %s", graph.FormatCycle(cycle)))
	}
	return issues
}

// LayerValidator checks every dependency edge against the layer table.
// Layering is opt-in: edges where either module has no layer are skipped.
type LayerValidator struct{}

func (v *LayerValidator) Name() string {
	return "LayerValidator"
}

func (v *LayerValidator) Validate(p *model.Project) []report.Issue {
	if p.Layers == nil {
		return nil
	}

	var issues []report.Issue
	for _, m := range checked(p) {
		if m.Layer == "" {
			continue
		}
		if !p.Layers.Defined(m.Layer) {
			issues = append(issues, report.Errorf(report.RuleLayerDefined, m.Name,
				"module %s declares layer %s, which is not defined (defined layers: %s)",
				m.Name, m.Layer, strings.Join(p.Layers.Names(), ", ")))
			continue
		}

		for _, dep := range m.DependencyNames() {
			target, ok := p.Module(dep)
			if !ok || target.Degraded || target.Layer == "" || !p.Layers.Defined(target.Layer) {
				continue
			}
			if p.Layers.Allows(m.Layer, target.Layer) {
				continue
			}

			allowed := p.Layers[m.Layer].CanDependOn
			allowedText := "no layers"
			if len(allowed) > 0 {
				allowedText = strings.Join(allowed, ", ")
			}
			issues = append(issues, report.Errorf(report.RuleRespectLayerBoundaries,
				m.Name+" → "+target.Name,
				"layer %s may not depend on layer %s (%s may depend on: %s)",
				m.Layer, target.Layer, m.Layer, allowedText))
		}
	}
	return issues
}

// TypeValidator resolves every type expression against its module's scope
type TypeValidator struct{}

func (v *TypeValidator) Name() string {
	return "TypeValidator"
}

func (v *TypeValidator) Validate(p *model.Project) []report.Issue {
	var issues []report.Issue
	for _, m := range checked(p) {
		scope := p.Scope(m)
		for _, use := range m.TypeUses() {
			res := typeexpr.Resolve(use.Type.Expr, scope)
			for _, problem := range res.Problems {
				if intoDegraded(p, m, problem) {
					continue
				}
				rule := report.RuleTypeNotFound
				if problem.Kind == typeexpr.ArityMismatch {
					rule = report.RuleValidTypeExpression
				}
				issues = append(issues, report.Errorf(rule, use.Location,
					"%s %q: %s", use.Context, use.Type.Raw, problem.Message))
			}
		}
	}
	return issues
}

// intoDegraded reports whether an unresolved reference may name an export
// a degraded module dropped: a qualified reference into that module, or an
// unqualified name imported from it.
func intoDegraded(p *model.Project, m *model.Module, problem typeexpr.Problem) bool {
	if problem.Kind != typeexpr.UnknownType {
		return false
	}
	if problem.Module != "" {
		target, ok := p.Module(problem.Module)
		return ok && target.Degraded
	}
	for _, dep := range m.DependencyNames() {
		target, ok := p.Module(dep)
		if ok && target.Degraded && m.Dependencies[dep].Includes(problem.Leaf) {
			return true
		}
	}
	return false
}

// CallValidator checks that every call reference targets an existing
// export or method, and that cross-module calls go through a declared
// dependency. The two failures are reported under different rules.
type CallValidator struct{}

func (v *CallValidator) Name() string {
	return "CallValidator"
}

func (v *CallValidator) Validate(p *model.Project) []report.Issue {
	var issues []report.Issue
	for _, m := range checked(p) {
		for _, site := range m.Calls() {
			issues = append(issues, v.checkCall(p, m, site)...)
		}
	}
	return issues
}

func (v *CallValidator) checkCall(p *model.Project, m *model.Module, site model.CallSite) []report.Issue {
	call := site.Call
	target, ok := p.Module(call.Module)
	if !ok {
		return []report.Issue{report.Errorf(report.RuleCallTargetNotFound, site.Location,
			"call %s: module %s does not exist", call, call.Module)}
	}

	var issues []report.Issue
	if !target.Degraded {
		if _, _, err := target.Lookup(call); err != nil {
			issues = append(issues, report.Errorf(report.RuleCallTargetNotFound, site.Location,
				"call %s: %v", call, err))
		}
	}

	if target.Name == m.Name {
		return issues
	}

	imp, declared := m.Dependencies[target.Name]
	switch {
	case !declared:
		issues = append(issues, report.Errorf(report.RuleUsedDependencies, site.Location,
			"call %s: module %s calls %s but does not declare it as a dependency", call, m.Name, target.Name))
	case !imp.Includes(call.Export):
		issues = append(issues, report.Errorf(report.RuleUsedDependencies, site.Location,
			"call %s: module %s does not import %s from %s", call, m.Name, call.Export, target.Name))
	}
	return issues
}

// UsageValidator cross-checks declared dependencies against actual use.
// Calls and type references both count as use. Undeclared use is reported
// per call site by CallValidator and per type by TypeValidator.
// Dependencies on degraded modules are not checked.
type UsageValidator struct{}

func (v *UsageValidator) Name() string {
	return "UsageValidator"
}

func (v *UsageValidator) Validate(p *model.Project) []report.Issue {
	var issues []report.Issue
	for _, m := range checked(p) {
		used := usedModules(p, m)

		for _, dep := range m.DependencyNames() {
			target, ok := p.Module(dep)
			if !ok {
				continue // reported as module-not-found
			}
			if target.Degraded {
				continue
			}
			location := m.Location("dependencies", dep)

			if !used[dep] {
				issues = append(issues, report.Warnf(report.RuleDeclaredDependencies, location,
					"module %s declares a dependency on %s but never references it", m.Name, dep))
			}

			for _, name := range m.Dependencies[dep].Names {
				if _, ok := target.Exports[name]; !ok {
					issues = append(issues, report.Errorf(report.RuleImportTargetNotFound, location,
						"module %s imports %s from %s, which does not export it", m.Name, name, dep))
				}
			}
		}
	}
	return issues
}

// usedModules returns the other modules m references through calls or types
func usedModules(p *model.Project, m *model.Module) map[string]bool {
	used := make(map[string]bool)
	for _, site := range m.Calls() {
		if site.Call.Module != m.Name {
			used[site.Call.Module] = true
		}
	}

	scope := p.Scope(m)
	for _, use := range m.TypeUses() {
		res := typeexpr.Resolve(use.Type.Expr, scope)
		for _, ref := range res.Refs {
			if ref.Target != m.Name {
				used[ref.Target] = true
			}
		}
		// Qualified references count even when the export is missing
		for _, ref := range typeexpr.References(use.Type.Expr) {
			if ref.Qualified() && ref.Module != m.Name {
				used[ref.Module] = true
			}
		}
	}
	return used
}

// describe is used in debug logging
func describe(issues []report.Issue) string {
	if len(issues) == 0 {
		return "no issues"
	}
	return fmt.Sprintf("%d issue(s)", len(issues))
}
