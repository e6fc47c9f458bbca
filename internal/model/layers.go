package model

import (
	"fmt"
	"slices"

	"github.com/simonhull/crucible/internal/report"
)

// Layer is a named architectural tier
type Layer struct {
	Name        string
	CanDependOn []string // Sorted; a layer depends on itself only if listed
	Description string
}

// LayerTable maps layer name to its rules
type LayerTable map[string]Layer

// Defined reports whether name is a layer in the table
func (t LayerTable) Defined(name string) bool {
	_, ok := t[name]
	return ok
}

// Allows reports whether a module in layer from may depend on one in layer to
func (t LayerTable) Allows(from, to string) bool {
	layer, ok := t[from]
	if !ok {
		return false
	}
	return slices.Contains(layer.CanDependOn, to)
}

// Names returns layer names in sorted order
func (t LayerTable) Names() []string {
	return sortedKeys(t)
}

// LayersDef is the on-disk shape of rules/layers.*
type LayersDef struct {
	Layers map[string]LayerDef `json:"layers" yaml:"layers"`
}

// LayerDef is the on-disk shape of a single layer
type LayerDef struct {
	CanDependOn []string `json:"can_depend_on" yaml:"can_depend_on"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// BuildLayerTable converts a decoded layers file. References to layers the
// table does not define are reported and dropped.
func BuildLayerTable(def LayersDef) (LayerTable, []Diagnostic) {
	table := make(LayerTable, len(def.Layers))
	var diags []Diagnostic

	for _, name := range sortedKeys(def.Layers) {
		layerDef := def.Layers[name]
		var allowed []string
		for _, target := range layerDef.CanDependOn {
			if _, ok := def.Layers[target]; !ok {
				diags = append(diags, Diagnostic{
					Rule:     report.RuleLayerDefined,
					Location: fmt.Sprintf("layers.%s.can_depend_on", name),
					Message:  fmt.Sprintf("layer %s may depend on %s, which is not a defined layer", name, target),
				})
				continue
			}
			if !slices.Contains(allowed, target) {
				allowed = append(allowed, target)
			}
		}
		slices.Sort(allowed)
		table[name] = Layer{Name: name, CanDependOn: allowed, Description: layerDef.Description}
	}

	return table, diags
}

// presets are the built-in layer tables selectable through manifest.pattern
var presets = map[string]map[string][]string{
	"layered": {
		"presentation":   {"presentation", "application"},
		"application":    {"application", "domain"},
		"domain":         {"domain"},
		"infrastructure": {"infrastructure", "application", "domain"},
	},
	"clean": {
		"entities":           {"entities"},
		"use-cases":          {"use-cases", "entities"},
		"interface-adapters": {"interface-adapters", "use-cases", "entities"},
		"frameworks":         {"frameworks", "interface-adapters", "use-cases", "entities"},
	},
	"hexagonal": {
		"domain":      {"domain"},
		"application": {"application", "domain"},
		"ports":       {"ports", "domain"},
		"adapters":    {"adapters", "ports", "application", "domain"},
	},
}

// PresetLayers returns the built-in table for pattern, if there is one
func PresetLayers(pattern string) (LayerTable, bool) {
	preset, ok := presets[pattern]
	if !ok {
		return nil, false
	}

	table := make(LayerTable, len(preset))
	for name, allowed := range preset {
		sorted := append([]string(nil), allowed...)
		slices.Sort(sorted)
		table[name] = Layer{Name: name, CanDependOn: sorted, Description: pattern + " preset"}
	}
	return table, true
}

// PresetNames returns the names of the built-in layer presets
func PresetNames() []string {
	return sortedKeys(presets)
}
