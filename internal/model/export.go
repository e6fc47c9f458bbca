package model

import (
	"fmt"
	"sort"
)

// ExportKind identifies which shape an export carries
type ExportKind string

const (
	KindClass     ExportKind = "class"
	KindFunction  ExportKind = "function"
	KindTrait     ExportKind = "trait"
	KindInterface ExportKind = "interface"
	KindType      ExportKind = "type"
	KindEnum      ExportKind = "enum"
	KindEvent     ExportKind = "event"
)

// ExportKinds lists every valid kind in declaration order
var ExportKinds = []ExportKind{KindClass, KindFunction, KindTrait, KindInterface, KindType, KindEnum, KindEvent}

// ParseExportKind validates a kind string
func ParseExportKind(s string) (ExportKind, error) {
	for _, k := range ExportKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown export type %q (must be one of class, function, trait, interface, type, enum, event)", s)
}

// Export is a named artifact a module makes visible. The concrete types are
// *ClassExport, *FunctionExport, *TraitExport, *InterfaceExport,
// *TypeExport, *EnumExport and *EventExport.
type Export interface {
	Name() string
	Kind() ExportKind
	Description() string
	Annotations() []string
}

// MethodBearer is implemented by class, function and trait exports
type MethodBearer interface {
	Export
	Methods() map[string]*Method
}

// DataBearer is implemented by interface, type and event exports. Events
// expose their payload as properties.
type DataBearer interface {
	Export
	Properties() map[string]*Property
}

type exportBase struct {
	name        string
	description string
	annotations []string
}

func (b exportBase) Name() string          { return b.name }
func (b exportBase) Description() string   { return b.description }
func (b exportBase) Annotations() []string { return b.annotations }

type methodSet struct {
	methods map[string]*Method
}

func (s methodSet) Methods() map[string]*Method { return s.methods }

type propertySet struct {
	properties map[string]*Property
}

func (s propertySet) Properties() map[string]*Property { return s.properties }

// ClassExport is a class with methods
type ClassExport struct {
	exportBase
	methodSet
}

// FunctionExport is a free function, modelled as a method set
type FunctionExport struct {
	exportBase
	methodSet
}

// TraitExport is a trait or protocol with methods
type TraitExport struct {
	exportBase
	methodSet
}

// InterfaceExport is a data shape with properties
type InterfaceExport struct {
	exportBase
	propertySet
}

// TypeExport is a named data type with properties
type TypeExport struct {
	exportBase
	propertySet
}

// EnumExport is an ordered list of values
type EnumExport struct {
	exportBase
	values []string
}

// EventExport carries a payload
type EventExport struct {
	exportBase
	propertySet
}

func (*ClassExport) Kind() ExportKind     { return KindClass }
func (*FunctionExport) Kind() ExportKind  { return KindFunction }
func (*TraitExport) Kind() ExportKind     { return KindTrait }
func (*InterfaceExport) Kind() ExportKind { return KindInterface }
func (*TypeExport) Kind() ExportKind      { return KindType }
func (*EnumExport) Kind() ExportKind      { return KindEnum }
func (*EventExport) Kind() ExportKind     { return KindEvent }

// Values returns the enum values in declaration order
func (e *EnumExport) Values() []string { return e.values }

// Payload returns the event payload
func (e *EventExport) Payload() map[string]*Property { return e.properties }

// ExportShape carries every field any kind may use. A nil field is absent;
// a non-nil empty map or slice counts as present.
type ExportShape struct {
	Description string
	Annotations []string
	Methods     map[string]*Method
	Properties  map[string]*Property
	Values      []string
	Payload     map[string]*Property
}

// NewExport builds the variant for kind and rejects fields that belong to
// another kind.
func NewExport(name string, kind ExportKind, shape ExportShape) (Export, error) {
	if name == "" {
		return nil, fmt.Errorf("export name is required")
	}

	present := shape.present()
	allowed := map[ExportKind]string{
		KindClass:     "methods",
		KindFunction:  "methods",
		KindTrait:     "methods",
		KindInterface: "properties",
		KindType:      "properties",
		KindEnum:      "values",
		KindEvent:     "payload",
	}

	own, ok := allowed[kind]
	if !ok {
		return nil, fmt.Errorf("export %s: unknown export type %q", name, kind)
	}
	for _, field := range present {
		if field != own {
			return nil, fmt.Errorf("export %s: field %q is not allowed on %s exports (use %q)", name, field, kind, own)
		}
	}

	base := exportBase{
		name:        name,
		description: shape.Description,
		annotations: sortedCopy(shape.Annotations),
	}

	switch kind {
	case KindClass:
		return &ClassExport{exportBase: base, methodSet: methodSet{shape.Methods}}, nil
	case KindFunction:
		return &FunctionExport{exportBase: base, methodSet: methodSet{shape.Methods}}, nil
	case KindTrait:
		return &TraitExport{exportBase: base, methodSet: methodSet{shape.Methods}}, nil
	case KindInterface:
		return &InterfaceExport{exportBase: base, propertySet: propertySet{shape.Properties}}, nil
	case KindType:
		return &TypeExport{exportBase: base, propertySet: propertySet{shape.Properties}}, nil
	case KindEnum:
		return &EnumExport{exportBase: base, values: append([]string(nil), shape.Values...)}, nil
	default:
		return &EventExport{exportBase: base, propertySet: propertySet{shape.Payload}}, nil
	}
}

// present returns the names of shape fields that were supplied
func (s ExportShape) present() []string {
	var fields []string
	if s.Methods != nil {
		fields = append(fields, "methods")
	}
	if s.Properties != nil {
		fields = append(fields, "properties")
	}
	if s.Values != nil {
		fields = append(fields, "values")
	}
	if s.Payload != nil {
		fields = append(fields, "payload")
	}
	return fields
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
