// Package compliance evaluates compliance frameworks against the annotated
// project model. Annotations and effects are opaque tags; the interpreter
// only matches them against rule predicates.
package compliance

import (
	"fmt"
	"strings"

	"github.com/simonhull/crucible/internal/logger"
	"github.com/simonhull/crucible/internal/model"
	"github.com/simonhull/crucible/internal/report"
)

// Interpreter runs compliance rules. It holds no per-run state and is safe
// to reuse.
type Interpreter struct {
	logger logger.Logger
}

// New creates an interpreter. A nil logger is replaced by a silent one.
func New(l logger.Logger) *Interpreter {
	if l == nil {
		l = logger.NewSilentLogger()
	}
	return &Interpreter{logger: l}
}

// Select returns the frameworks of p named by ids, or all of them when ids
// is empty. Unknown ids are returned separately.
func Select(p *model.Project, ids []string) (selected []*model.Framework, unknown []string) {
	if len(ids) == 0 {
		return p.Frameworks, nil
	}
	for _, id := range ids {
		f, ok := p.Framework(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		selected = append(selected, f)
	}
	return selected, unknown
}

// Evaluate runs every rule of every framework against every module,
// degraded ones included. Rules never short-circuit each other.
func (i *Interpreter) Evaluate(p *model.Project, frameworks []*model.Framework) []report.Issue {
	var issues []report.Issue
	index := newAccessIndex(p)

	for _, f := range frameworks {
		for _, rule := range f.Rules {
			ev := &evaluation{project: p, index: index, framework: f}
			rule.Accept(ev)

			i.logger.Debug("Evaluated compliance rule",
				logger.F("framework", f.ID),
				logger.F("rule", rule.ID),
				logger.F("kind", rule.Body.Kind()),
				logger.F("violations", len(ev.issues)))
			issues = append(issues, ev.issues...)
		}
	}
	return issues
}

// evaluation applies a single rule; it implements model.RuleVisitor
type evaluation struct {
	project   *model.Project
	index     *accessIndex
	framework *model.Framework
	issues    []report.Issue
}

func (e *evaluation) fail(rule *model.Rule, location, format string, args ...any) {
	e.issues = append(e.issues, report.Issue{
		RuleID:   rule.ID,
		Severity: rule.Severity,
		Location: location,
		Message:  fmt.Sprintf("%s %s: %s", e.framework.ID, rule.Body.Kind(), fmt.Sprintf(format, args...)),
	})
}

// VisitEffectCheck fails methods with a triggering effect that touch
// forbidden data, directly or through their calls.
func (e *evaluation) VisitEffectCheck(rule *model.Rule, body *model.EffectCheck) {
	for _, m := range e.project.Modules() {
		for _, site := range m.Methods() {
			triggered := tags(site.Method.Effects).intersect(body.WhenEffect)
			if len(triggered) == 0 {
				continue
			}

			data := e.index.CallData(m, site)
			for _, tag := range data.intersect(body.ForbiddenData) {
				e.fail(rule, site.Location, "method with effect %s accesses data tagged %s",
					strings.Join(triggered, ", "), tag)
			}
		}
	}
}

// VisitEffectRequirement fails methods annotated (directly or through their
// export) with a triggering tag that do not declare every required effect.
// Effects live on methods, so an export is evaluated through its methods
// and an export without methods is never matched.
func (e *evaluation) VisitEffectRequirement(rule *model.Rule, body *model.EffectRequirement) {
	for _, m := range e.project.Modules() {
		for _, site := range m.Methods() {
			annotations := tags(site.Method.Annotations, site.Export.Annotations())
			triggered := annotations.intersect(body.WhenAccessing)
			if len(triggered) == 0 {
				continue
			}

			for _, effect := range tags(site.Method.Effects).missing(body.RequiredEffects) {
				e.fail(rule, site.Location, "method tagged %s does not declare required effect %s",
					strings.Join(triggered, ", "), effect)
			}
		}
	}
}

// VisitStorageCheck fails properties carrying a triggering tag without
// every required annotation.
func (e *evaluation) VisitStorageCheck(rule *model.Rule, body *model.StorageCheck) {
	for _, m := range e.project.Modules() {
		for _, site := range m.Properties() {
			own := tags(site.Property.Annotations)
			triggered := own.intersect(body.WhenAccessing)
			if len(triggered) == 0 {
				continue
			}

			for _, tag := range own.missing(body.RequiredAnnotations) {
				e.fail(rule, site.Location, "property tagged %s is missing required annotation %s",
					strings.Join(triggered, ", "), tag)
			}
		}
	}
}

// VisitDataAccessCheck fails methods whose type-reachable data is sensitive
// unless they carry every required annotation.
func (e *evaluation) VisitDataAccessCheck(rule *model.Rule, body *model.DataAccessCheck) {
	for _, m := range e.project.Modules() {
		for _, site := range m.Methods() {
			sensitive := e.index.TypeData(m, site).intersect(body.SensitiveData)
			if len(sensitive) == 0 {
				continue
			}

			have := tags(site.Method.Annotations, site.Export.Annotations())
			for _, tag := range have.missing(body.RequiredAnnotations) {
				e.fail(rule, site.Location, "method accesses data tagged %s but is missing annotation %s",
					strings.Join(sensitive, ", "), tag)
			}
		}
	}
}
