package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/simonhull/crucible/internal/typeexpr"
)

// TypeRef is a type expression parsed once at the model boundary. Expr is
// nil when Raw failed to parse; checkers skip such references.
type TypeRef struct {
	Raw  string
	Expr typeexpr.Expr
}

// ParseTypeRef parses raw into a TypeRef
func ParseTypeRef(raw string) (TypeRef, error) {
	expr, err := typeexpr.Parse(raw)
	if err != nil {
		return TypeRef{Raw: raw}, err
	}
	return TypeRef{Raw: raw, Expr: expr}, nil
}

// Valid reports whether the expression parsed
func (t TypeRef) Valid() bool {
	return t.Expr != nil
}

// Parameter is a single method input
type Parameter struct {
	Name        string
	Type        TypeRef
	Optional    bool
	Description string
}

// Property is a field of a data-bearing export or an event payload
type Property struct {
	Name        string
	Type        TypeRef
	Required    bool
	Description string
	Annotations []string
}

// HasAnnotation reports whether the property carries tag
func (p *Property) HasAnnotation(tag string) bool {
	return slices.Contains(p.Annotations, tag)
}

// Method is a callable member of a class, function or trait export
type Method struct {
	Name        string
	Description string
	Inputs      []*Parameter
	Returns     *TypeRef // nil when no return type was declared
	Throws      []TypeRef
	Calls       []CallRef
	Effects     []string
	Annotations []string
	Async       bool
}

// HasEffect reports whether the method declares effect
func (m *Method) HasEffect(effect string) bool {
	return slices.Contains(m.Effects, effect)
}

// CallRef is a parsed call reference: module.Export.method or
// module.function. Method is empty for the two-segment form.
type CallRef struct {
	Module string
	Export string
	Method string
	Raw    string
}

// ParseCallRef splits a dotted call reference into its parts
func ParseCallRef(raw string) (CallRef, error) {
	trimmed := strings.TrimSpace(raw)
	parts := strings.Split(trimmed, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return CallRef{}, fmt.Errorf("call reference %q must be module.Export.method or module.function", raw)
	}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" || strings.ContainsAny(part, " \t") {
			return CallRef{}, fmt.Errorf("call reference %q has an empty or malformed segment", raw)
		}
	}

	ref := CallRef{Module: parts[0], Export: parts[1], Raw: trimmed}
	if len(parts) == 3 {
		ref.Method = parts[2]
	}
	return ref, nil
}

// String returns the canonical dotted form
func (c CallRef) String() string {
	if c.Method == "" {
		return c.Module + "." + c.Export
	}
	return c.Module + "." + c.Export + "." + c.Method
}
