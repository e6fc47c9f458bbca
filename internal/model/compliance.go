package model

import (
	"fmt"
	"strings"

	"github.com/simonhull/crucible/internal/report"
)

// RuleKind names one of the four compliance rule bodies
type RuleKind string

const (
	RuleEffectCheck       RuleKind = "effect_check"
	RuleEffectRequirement RuleKind = "effect_requirement"
	RuleStorageCheck      RuleKind = "storage_check"
	RuleDataAccessCheck   RuleKind = "data_access_check"
)

// Framework is an ordered set of compliance rules
type Framework struct {
	ID          string
	Name        string
	Description string
	Source      string
	Rules       []*Rule
}

// Rule is a single compliance rule with a typed body
type Rule struct {
	ID          string
	Severity    report.Severity
	Description string
	Body        RuleBody
}

// Accept dispatches the rule to the visitor method for its body
func (r *Rule) Accept(v RuleVisitor) {
	r.Body.accept(r, v)
}

// RuleBody is the closed set of rule variants. The unexported method keeps
// the set closed; RuleVisitor must handle every member.
type RuleBody interface {
	Kind() RuleKind
	accept(*Rule, RuleVisitor)
}

// RuleVisitor handles each rule kind. Adding a kind adds a method here, so
// every evaluator must be updated before it compiles again.
type RuleVisitor interface {
	VisitEffectCheck(*Rule, *EffectCheck)
	VisitEffectRequirement(*Rule, *EffectRequirement)
	VisitStorageCheck(*Rule, *StorageCheck)
	VisitDataAccessCheck(*Rule, *DataAccessCheck)
}

// EffectCheck fails a method with any WhenEffect effect that touches data
// tagged with any ForbiddenData annotation.
type EffectCheck struct {
	WhenEffect    []string
	ForbiddenData []string
}

// EffectRequirement fails a method or export annotated with any
// WhenAccessing tag unless its effects include every RequiredEffects entry.
type EffectRequirement struct {
	WhenAccessing   []string
	RequiredEffects []string
}

// StorageCheck fails a property annotated with any WhenAccessing tag unless
// it also carries every RequiredAnnotations tag.
type StorageCheck struct {
	WhenAccessing       []string
	RequiredAnnotations []string
}

// DataAccessCheck fails a method whose type-reachable data carries any
// SensitiveData tag unless the method carries every RequiredAnnotations tag.
type DataAccessCheck struct {
	SensitiveData       []string
	RequiredAnnotations []string
}

func (*EffectCheck) Kind() RuleKind       { return RuleEffectCheck }
func (*EffectRequirement) Kind() RuleKind { return RuleEffectRequirement }
func (*StorageCheck) Kind() RuleKind      { return RuleStorageCheck }
func (*DataAccessCheck) Kind() RuleKind   { return RuleDataAccessCheck }

func (b *EffectCheck) accept(r *Rule, v RuleVisitor)       { v.VisitEffectCheck(r, b) }
func (b *EffectRequirement) accept(r *Rule, v RuleVisitor) { v.VisitEffectRequirement(r, b) }
func (b *StorageCheck) accept(r *Rule, v RuleVisitor)      { v.VisitStorageCheck(r, b) }
func (b *DataAccessCheck) accept(r *Rule, v RuleVisitor)   { v.VisitDataAccessCheck(r, b) }

// RuleShape carries every kind-specific field. Only the fields belonging
// to the selected kind may be non-empty.
type RuleShape struct {
	WhenEffect          []string
	ForbiddenData       []string
	WhenAccessing       []string
	RequiredEffects     []string
	RequiredAnnotations []string
	SensitiveData       []string
}

// ruleFields lists the on-disk field names each kind requires
var ruleFields = map[RuleKind][]string{
	RuleEffectCheck:       {"when_effect", "forbidden_data"},
	RuleEffectRequirement: {"when_accessing", "required_effects"},
	RuleStorageCheck:      {"when_accessing", "required_annotations"},
	RuleDataAccessCheck:   {"sensitive_data", "required_annotations"},
}

func (s RuleShape) fields() map[string][]string {
	return map[string][]string{
		"when_effect":          s.WhenEffect,
		"forbidden_data":       s.ForbiddenData,
		"when_accessing":       s.WhenAccessing,
		"required_effects":     s.RequiredEffects,
		"required_annotations": s.RequiredAnnotations,
		"sensitive_data":       s.SensitiveData,
	}
}

// NewRuleBody builds the body for kind, requiring its own fields and
// rejecting any field that belongs to another kind.
func NewRuleBody(kind RuleKind, shape RuleShape) (RuleBody, error) {
	own, ok := ruleFields[kind]
	if !ok {
		return nil, fmt.Errorf("unknown rule type %q (must be effect_check, effect_requirement, storage_check, or data_access_check)", kind)
	}

	fields := shape.fields()
	for _, name := range sortedKeys(fields) {
		isOwn := name == own[0] || name == own[1]
		switch {
		case isOwn && len(fields[name]) == 0:
			return nil, fmt.Errorf("%s rule requires %s", kind, name)
		case !isOwn && len(fields[name]) > 0:
			return nil, fmt.Errorf("field %s is not allowed on %s rules", name, kind)
		}
	}

	switch kind {
	case RuleEffectCheck:
		return &EffectCheck{WhenEffect: shape.WhenEffect, ForbiddenData: shape.ForbiddenData}, nil
	case RuleEffectRequirement:
		return &EffectRequirement{WhenAccessing: shape.WhenAccessing, RequiredEffects: shape.RequiredEffects}, nil
	case RuleStorageCheck:
		return &StorageCheck{WhenAccessing: shape.WhenAccessing, RequiredAnnotations: shape.RequiredAnnotations}, nil
	default:
		return &DataAccessCheck{SensitiveData: shape.SensitiveData, RequiredAnnotations: shape.RequiredAnnotations}, nil
	}
}

// FrameworkDef is the on-disk shape of a compliance framework file
type FrameworkDef struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name,omitempty" yaml:"name,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string    `json:"version,omitempty" yaml:"version,omitempty"`
	Rules       []RuleDef `json:"rules" yaml:"rules"`
}

// RuleDef is the on-disk shape of a compliance rule
type RuleDef struct {
	ID                  string   `json:"id" yaml:"id"`
	Severity            string   `json:"severity,omitempty" yaml:"severity,omitempty"`
	Type                string   `json:"type" yaml:"type"`
	Description         string   `json:"description,omitempty" yaml:"description,omitempty"`
	WhenEffect          []string `json:"when_effect,omitempty" yaml:"when_effect,omitempty"`
	ForbiddenData       []string `json:"forbidden_data,omitempty" yaml:"forbidden_data,omitempty"`
	WhenAccessing       []string `json:"when_accessing,omitempty" yaml:"when_accessing,omitempty"`
	RequiredEffects     []string `json:"required_effects,omitempty" yaml:"required_effects,omitempty"`
	RequiredAnnotations []string `json:"required_annotations,omitempty" yaml:"required_annotations,omitempty"`
	SensitiveData       []string `json:"sensitive_data,omitempty" yaml:"sensitive_data,omitempty"`
}

// BuildFramework converts a decoded framework. Invalid rules are dropped
// with a diagnostic; the remaining rules keep their order. A framework
// without an id cannot be referenced and is rejected entirely.
func BuildFramework(def FrameworkDef, source string) (*Framework, []Diagnostic) {
	if strings.TrimSpace(def.ID) == "" {
		return nil, []Diagnostic{{
			Rule:     report.RuleValidComplianceRule,
			Location: source,
			Message:  "compliance framework id is required",
		}}
	}

	f := &Framework{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Source:      source,
	}

	var diags []Diagnostic
	seen := make(map[string]bool, len(def.Rules))
	for i, ruleDef := range def.Rules {
		location := fmt.Sprintf("%s.rules[%d]", def.ID, i)
		if ruleDef.ID != "" {
			location = def.ID + "." + ruleDef.ID
		}

		rule, err := buildRule(ruleDef)
		if err == nil && seen[rule.ID] {
			err = fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		if err != nil {
			diags = append(diags, Diagnostic{
				Rule:     report.RuleValidComplianceRule,
				Location: location,
				Message:  err.Error(),
			})
			continue
		}

		seen[rule.ID] = true
		f.Rules = append(f.Rules, rule)
	}

	return f, diags
}

func buildRule(def RuleDef) (*Rule, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("rule id is required")
	}

	severity := report.SeverityError
	if def.Severity != "" {
		parsed, err := report.ParseSeverity(def.Severity)
		if err != nil {
			return nil, err
		}
		if parsed == report.SeverityInfo {
			return nil, fmt.Errorf("compliance rules must be error or warning, got %q", def.Severity)
		}
		severity = parsed
	}

	body, err := NewRuleBody(RuleKind(def.Type), RuleShape{
		WhenEffect:          def.WhenEffect,
		ForbiddenData:       def.ForbiddenData,
		WhenAccessing:       def.WhenAccessing,
		RequiredEffects:     def.RequiredEffects,
		RequiredAnnotations: def.RequiredAnnotations,
		SensitiveData:       def.SensitiveData,
	})
	if err != nil {
		return nil, err
	}

	return &Rule{ID: def.ID, Severity: severity, Description: def.Description, Body: body}, nil
}
