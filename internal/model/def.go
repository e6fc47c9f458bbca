package model

import (
	"fmt"

	"github.com/simonhull/crucible/internal/report"
)

// ModuleDef is the on-disk shape of a module file, in JSON or YAML
type ModuleDef struct {
	Name         string               `json:"name" yaml:"name"`
	Version      string               `json:"version" yaml:"version"`
	Layer        string               `json:"layer,omitempty" yaml:"layer,omitempty"`
	Description  string               `json:"description,omitempty" yaml:"description,omitempty"`
	Exports      map[string]ExportDef `json:"exports,omitempty" yaml:"exports,omitempty"`
	Dependencies map[string]string    `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// ExportDef is the on-disk shape of an export. Type selects the kind.
type ExportDef struct {
	Type        string                 `json:"type" yaml:"type"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Annotations []string               `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Methods     map[string]MethodDef   `json:"methods,omitempty" yaml:"methods,omitempty"`
	Properties  map[string]PropertyDef `json:"properties,omitempty" yaml:"properties,omitempty"`
	Values      []string               `json:"values,omitempty" yaml:"values,omitempty"`
	Payload     map[string]PropertyDef `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// MethodDef is the on-disk shape of a method
type MethodDef struct {
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Inputs      []ParameterDef `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Returns     string         `json:"returns,omitempty" yaml:"returns,omitempty"`
	Throws      []string       `json:"throws,omitempty" yaml:"throws,omitempty"`
	Calls       []string       `json:"calls,omitempty" yaml:"calls,omitempty"`
	Effects     []string       `json:"effects,omitempty" yaml:"effects,omitempty"`
	Annotations []string       `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Async       bool           `json:"async,omitempty" yaml:"async,omitempty"`
}

// ParameterDef is the on-disk shape of a method input
type ParameterDef struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Optional    bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PropertyDef is the on-disk shape of a property. Required defaults to true.
type PropertyDef struct {
	Type        string   `json:"type" yaml:"type"`
	Required    *bool    `json:"required,omitempty" yaml:"required,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Annotations []string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// BuildModule converts a decoded definition into a Module. Type expressions
// and call references are parsed here, once; every problem becomes a
// diagnostic on the returned module rather than an error.
func BuildModule(def ModuleDef, source string) *Module {
	m := &Module{
		Name:         def.Name,
		Version:      def.Version,
		Layer:        def.Layer,
		Description:  def.Description,
		Source:       source,
		Exports:      make(map[string]Export, len(def.Exports)),
		Dependencies: make(map[string]Import, len(def.Dependencies)),
	}

	if def.Name == "" {
		m.AddDiagnostic(Diagnostic{
			Rule:     report.RuleValidModuleStructure,
			Location: source,
			Message:  "module name is required",
			Fatal:    true,
		})
	}

	for _, name := range sortedKeys(def.Dependencies) {
		m.Dependencies[name] = ParseImport(def.Dependencies[name])
	}

	for _, name := range sortedKeys(def.Exports) {
		export, err := buildExport(m, name, def.Exports[name])
		if err != nil {
			m.AddDiagnostic(Diagnostic{
				Rule:     report.RuleValidModuleStructure,
				Location: m.Location(name),
				Message:  err.Error(),
				Fatal:    true,
			})
			continue
		}
		m.Exports[name] = export
	}

	return m
}

func buildExport(m *Module, name string, def ExportDef) (Export, error) {
	if def.Type == "" {
		return nil, fmt.Errorf("export %s: type is required", name)
	}
	kind, err := ParseExportKind(def.Type)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", name, err)
	}

	shape := ExportShape{
		Description: def.Description,
		Annotations: def.Annotations,
		Values:      def.Values,
	}
	if def.Methods != nil {
		shape.Methods = make(map[string]*Method, len(def.Methods))
		for _, methodName := range sortedKeys(def.Methods) {
			shape.Methods[methodName] = buildMethod(m, m.Location(name, methodName), methodName, def.Methods[methodName])
		}
	}
	if def.Properties != nil {
		shape.Properties = buildProperties(m, name, def.Properties)
	}
	if def.Payload != nil {
		shape.Payload = buildProperties(m, name, def.Payload)
	}

	return NewExport(name, kind, shape)
}

func buildMethod(m *Module, location, name string, def MethodDef) *Method {
	method := &Method{
		Name:        name,
		Description: def.Description,
		Effects:     sortedCopy(def.Effects),
		Annotations: sortedCopy(def.Annotations),
		Async:       def.Async,
	}

	for i, in := range def.Inputs {
		paramName := in.Name
		if paramName == "" {
			paramName = fmt.Sprintf("#%d", i)
		}
		method.Inputs = append(method.Inputs, &Parameter{
			Name:        paramName,
			Type:        parseType(m, location, "parameter "+paramName, in.Type),
			Optional:    in.Optional,
			Description: in.Description,
		})
	}

	if def.Returns != "" {
		ret := parseType(m, location, "return type", def.Returns)
		method.Returns = &ret
	}

	for _, raw := range def.Throws {
		method.Throws = append(method.Throws, parseType(m, location, "throws", raw))
	}

	for _, raw := range def.Calls {
		ref, err := ParseCallRef(raw)
		if err != nil {
			m.AddDiagnostic(Diagnostic{
				Rule:     report.RuleValidCallReference,
				Location: location,
				Message:  err.Error(),
			})
			continue
		}
		method.Calls = append(method.Calls, ref)
	}

	return method
}

func buildProperties(m *Module, exportName string, defs map[string]PropertyDef) map[string]*Property {
	props := make(map[string]*Property, len(defs))
	for _, name := range sortedKeys(defs) {
		def := defs[name]
		required := true
		if def.Required != nil {
			required = *def.Required
		}
		props[name] = &Property{
			Name:        name,
			Type:        parseType(m, m.Location(exportName, name), "property "+name, def.Type),
			Required:    required,
			Description: def.Description,
			Annotations: sortedCopy(def.Annotations),
		}
	}
	return props
}

// parseType parses raw and records a diagnostic when it is malformed. The
// returned TypeRef has a nil Expr in that case.
func parseType(m *Module, location, context, raw string) TypeRef {
	ref, err := ParseTypeRef(raw)
	if err != nil {
		m.AddDiagnostic(Diagnostic{
			Rule:     report.RuleValidTypeExpression,
			Location: location,
			Message:  fmt.Sprintf("%s: %v", context, err),
		})
	}
	return ref
}
