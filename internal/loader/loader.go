package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/simonhull/crucible/internal/filesystem"
	"github.com/simonhull/crucible/internal/logger"
	"github.com/simonhull/crucible/internal/model"
	"github.com/simonhull/crucible/internal/report"
)

// ErrManifestNotFound is returned when the project root has no manifest
var ErrManifestNotFound = errors.New("manifest not found")

// DefaultPatterns locate module files relative to the project root
var DefaultPatterns = []string{
	"modules/**/*.json",
	"modules/**/*.yaml",
	"modules/**/*.yml",
}

// ComplianceGlob locates compliance framework files
const ComplianceGlob = "rules/compliance/*.{json,yaml,yml}"

var (
	manifestNames = []string{"manifest.json", "manifest.yaml", "manifest.yml"}
	layersNames   = []string{"rules/layers.json", "rules/layers.yaml", "rules/layers.yml"}
)

// Loader reads a project directory into a model.Project
type Loader struct {
	logger   logger.Logger
	patterns []string
}

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the loader's logger
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithPatterns replaces the module discovery patterns. An empty list keeps
// the defaults.
func WithPatterns(patterns ...string) Option {
	return func(ld *Loader) {
		if len(patterns) > 0 {
			ld.patterns = patterns
		}
	}
}

// New creates a Loader
func New(opts ...Option) *Loader {
	ld := &Loader{
		logger:   logger.NewSilentLogger(),
		patterns: DefaultPatterns,
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Patterns returns the module discovery patterns in use
func (ld *Loader) Patterns() []string {
	return ld.patterns
}

// Load reads the project rooted at root. Only an unreadable root or a
// missing or malformed manifest is an error; every other problem becomes a
// diagnostic on the returned project.
func (ld *Loader) Load(root string) (*model.Project, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path %s is not a directory", root)
	}

	ld.logger.Debug("Loading project", logger.F("root", root))

	manifest, diags, err := ld.loadManifest(root)
	if err != nil {
		return nil, err
	}

	modules, err := ld.loadModules(root)
	if err != nil {
		return nil, err
	}

	layers, layerDiags := ld.loadLayers(root, manifest.Pattern)
	diags = append(diags, layerDiags...)

	frameworks, frameworkDiags, err := ld.loadFrameworks(root)
	if err != nil {
		return nil, err
	}
	diags = append(diags, frameworkDiags...)

	project := model.NewProject(manifest, modules,
		model.WithLayers(layers),
		model.WithFrameworks(frameworks...),
		model.WithDiagnostics(diags...),
	)

	ld.logger.Debug("Loaded project",
		logger.F("modules", len(project.Modules())),
		logger.F("frameworks", len(project.Frameworks)),
		logger.F("layers", len(project.Layers)),
	)
	return project, nil
}

func (ld *Loader) loadManifest(root string) (model.Manifest, []model.Diagnostic, error) {
	var manifest model.Manifest

	name, data, ok, err := readFirst(root, manifestNames)
	if err != nil {
		return manifest, nil, err
	}
	if !ok {
		return manifest, nil, fmt.Errorf("%w in %s (expected one of %v)", ErrManifestNotFound, root, manifestNames)
	}

	if err := decodeStrict(name, data, &manifest); err != nil {
		return manifest, nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	var diags []model.Diagnostic
	if manifest.Name == "" {
		diags = append(diags, model.Diagnostic{
			Rule:     report.RuleValidModuleStructure,
			Location: name,
			Message:  "manifest name is required",
		})
	}
	if manifest.Pattern != "" {
		if _, ok := model.PresetLayers(manifest.Pattern); !ok {
			ld.logger.Warn("Unknown layer pattern", logger.F("pattern", manifest.Pattern), logger.F("presets", model.PresetNames()))
		}
	}
	return manifest, diags, nil
}

func (ld *Loader) loadModules(root string) ([]*model.Module, error) {
	files, err := filesystem.Files(root, ld.patterns, filesystem.WalkOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to discover modules: %w", err)
	}

	modules := make([]*model.Module, 0, len(files))
	for _, rel := range files {
		ld.logger.Debug("Reading module", logger.F("file", rel))

		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("failed to read module %s: %w", rel, err)
		}

		m := ld.buildModule(rel, data)
		if m.Degraded {
			ld.logger.Warn("Module degraded", logger.F("module", m.Name), logger.F("file", rel))
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// buildModule decodes one module file. A file that fails strict decoding is
// decoded again leniently so the module keeps its name and graph node, and
// is marked degraded.
func (ld *Loader) buildModule(rel string, data []byte) *model.Module {
	var def model.ModuleDef
	strictErr := decodeStrict(rel, data, &def)
	if strictErr != nil {
		def = model.ModuleDef{}
		decodeLenient(rel, data, &def)
		if def.Name == "" {
			def.Name = stem(rel)
		}
	}

	m := model.BuildModule(def, rel)
	if m.Name == "" {
		m.Name = stem(rel)
	}
	if strictErr != nil {
		m.AddDiagnostic(model.Diagnostic{
			Rule:     report.RuleValidModuleStructure,
			Location: m.Name,
			Message:  fmt.Sprintf("%s: %v", rel, strictErr),
			Fatal:    true,
		})
	}
	return m
}

func (ld *Loader) loadLayers(root, pattern string) (model.LayerTable, []model.Diagnostic) {
	name, data, ok, err := readFirst(root, layersNames)
	if err != nil {
		return nil, []model.Diagnostic{{
			Rule:     report.RuleLayerDefined,
			Location: "rules/layers",
			Message:  err.Error(),
		}}
	}

	if !ok {
		table, found := model.PresetLayers(pattern)
		if found {
			ld.logger.Debug("Using layer preset", logger.F("pattern", pattern))
		}
		return table, nil
	}

	ld.logger.Debug("Reading layers", logger.F("file", name))
	var def model.LayersDef
	if err := decodeStrict(name, data, &def); err != nil {
		return nil, []model.Diagnostic{{
			Rule:     report.RuleLayerDefined,
			Location: name,
			Message:  fmt.Sprintf("cannot read layer table: %v", err),
		}}
	}
	return model.BuildLayerTable(def)
}

func (ld *Loader) loadFrameworks(root string) ([]*model.Framework, []model.Diagnostic, error) {
	files, err := filesystem.Files(root, []string{ComplianceGlob}, filesystem.WalkOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover compliance rules: %w", err)
	}

	var (
		frameworks []*model.Framework
		diags      []model.Diagnostic
		seen       = make(map[string]string)
	)
	for _, rel := range files {
		ld.logger.Debug("Reading compliance framework", logger.F("file", rel))

		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}

		var def model.FrameworkDef
		if err := decodeStrict(rel, data, &def); err != nil {
			diags = append(diags, model.Diagnostic{
				Rule:     report.RuleValidComplianceRule,
				Location: rel,
				Message:  err.Error(),
			})
			continue
		}

		framework, fwDiags := model.BuildFramework(def, rel)
		diags = append(diags, fwDiags...)
		if framework == nil {
			continue
		}
		if prev, dup := seen[framework.ID]; dup {
			diags = append(diags, model.Diagnostic{
				Rule:     report.RuleValidComplianceRule,
				Location: rel,
				Message:  fmt.Sprintf("duplicate compliance framework id %q (%s already defines it)", framework.ID, prev),
			})
			continue
		}
		seen[framework.ID] = rel
		frameworks = append(frameworks, framework)
	}
	return frameworks, diags, nil
}

// readFirst reads the first of names that exists under root
func readFirst(root string, names []string) (string, []byte, bool, error) {
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
		if err == nil {
			return name, data, true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return name, nil, false, fmt.Errorf("failed to read %s: %w", name, err)
		}
	}
	return "", nil, false, nil
}
