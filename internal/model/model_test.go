package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/crucible/internal/report"
)

func boolPtr(b bool) *bool { return &b }

func TestNewExport_BuildsKindVariant(t *testing.T) {
	tests := []struct {
		kind  ExportKind
		shape ExportShape
		want  any
	}{
		{KindClass, ExportShape{Methods: map[string]*Method{}}, &ClassExport{}},
		{KindFunction, ExportShape{Methods: map[string]*Method{}}, &FunctionExport{}},
		{KindTrait, ExportShape{}, &TraitExport{}},
		{KindInterface, ExportShape{Properties: map[string]*Property{}}, &InterfaceExport{}},
		{KindType, ExportShape{}, &TypeExport{}},
		{KindEnum, ExportShape{Values: []string{"a", "b"}}, &EnumExport{}},
		{KindEvent, ExportShape{Payload: map[string]*Property{}}, &EventExport{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			export, err := NewExport("Thing", tt.kind, tt.shape)
			require.NoError(t, err)
			assert.IsType(t, tt.want, export)
			assert.Equal(t, tt.kind, export.Kind())
			assert.Equal(t, "Thing", export.Name())
		})
	}
}

func TestNewExport_RejectsCrossKindFields(t *testing.T) {
	tests := []struct {
		name  string
		kind  ExportKind
		shape ExportShape
		field string
	}{
		{"properties on event", KindEvent, ExportShape{Properties: map[string]*Property{}}, "properties"},
		{"methods on interface", KindInterface, ExportShape{Methods: map[string]*Method{}}, "methods"},
		{"values on class", KindClass, ExportShape{Values: []string{"x"}}, "values"},
		{"payload on enum", KindEnum, ExportShape{Payload: map[string]*Property{}}, "payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExport("Thing", tt.kind, tt.shape)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	_, err := NewExport("Thing", ExportKind("struct"), ExportShape{})
	assert.Error(t, err)
}

func TestParseCallRef(t *testing.T) {
	ref, err := ParseCallRef("billing.Invoice.send")
	require.NoError(t, err)
	assert.Equal(t, CallRef{Module: "billing", Export: "Invoice", Method: "send", Raw: "billing.Invoice.send"}, ref)

	ref, err = ParseCallRef("util.slugify")
	require.NoError(t, err)
	assert.Equal(t, "util", ref.Module)
	assert.Equal(t, "slugify", ref.Export)
	assert.Empty(t, ref.Method)
	assert.Equal(t, "util.slugify", ref.String())

	for _, bad := range []string{"", "single", "a.b.c.d", "a..c", ".b", "a. b"} {
		_, err := ParseCallRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseImport(t *testing.T) {
	assert.Equal(t, Import{Names: []string{"Order", "User"}}, ParseImport(" User, Order,User "))
	assert.Equal(t, Import{All: true}, ParseImport("*"))
	assert.Equal(t, Import{All: true}, ParseImport(""))
	assert.True(t, ParseImport("A").Includes("A"))
	assert.False(t, ParseImport("A").Includes("B"))
	assert.True(t, ParseImport("*").Includes("B"))
}

func TestBuildModule(t *testing.T) {
	def := ModuleDef{
		Name:    "users",
		Version: "1.0.0",
		Layer:   "domain",
		Exports: map[string]ExportDef{
			"User": {
				Type:        "interface",
				Annotations: []string{"@pii"},
				Properties: map[string]PropertyDef{
					"email":    {Type: "string", Annotations: []string{"@pii"}},
					"nickname": {Type: "string", Required: boolPtr(false)},
				},
			},
			"UserService": {
				Type: "class",
				Methods: map[string]MethodDef{
					"find": {
						Inputs:  []ParameterDef{{Name: "id", Type: "string"}},
						Returns: "Promise<User | null>",
						Calls:   []string{"db.Store.get"},
						Effects: []string{"db.read"},
						Async:   true,
					},
				},
			},
		},
		Dependencies: map[string]string{"db": "Store"},
	}

	m := BuildModule(def, "modules/users.json")
	require.Empty(t, m.Diagnostics)
	assert.False(t, m.Degraded)
	assert.Equal(t, []string{"User", "UserService"}, m.ExportNames())
	assert.Equal(t, []string{"db"}, m.DependencyNames())

	sites := m.Methods()
	require.Len(t, sites, 1)
	assert.Equal(t, "users.UserService.find", sites[0].Location)
	assert.Equal(t, "Promise<User | null>", sites[0].Method.Returns.Expr.String())
	assert.Equal(t, []CallRef{{Module: "db", Export: "Store", Method: "get", Raw: "db.Store.get"}}, sites[0].Method.Calls)

	props := m.Properties()
	require.Len(t, props, 2)
	assert.Equal(t, "users.User.email", props[0].Location)
	assert.True(t, props[0].Property.Required)
	assert.False(t, props[1].Property.Required)

	assert.Len(t, m.TypeUses(), 4)
	assert.Len(t, m.Calls(), 1)
}

func TestBuildModule_Diagnostics(t *testing.T) {
	def := ModuleDef{
		Name: "broken",
		Exports: map[string]ExportDef{
			"Created": {Type: "event", Properties: map[string]PropertyDef{"id": {Type: "string"}}},
			"Svc": {Type: "class", Methods: map[string]MethodDef{
				"run": {Returns: "Promise<", Calls: []string{"nodots"}},
			}},
		},
	}

	m := BuildModule(def, "")
	assert.True(t, m.Degraded)

	rules := map[string]int{}
	for _, d := range m.Diagnostics {
		rules[d.Rule]++
	}
	assert.Equal(t, map[string]int{
		report.RuleValidModuleStructure: 1,
		report.RuleValidTypeExpression:  1,
		report.RuleValidCallReference:   1,
	}, rules)

	_, hasEvent := m.Exports["Created"]
	assert.False(t, hasEvent, "cross-kind export must not be kept")
	assert.Empty(t, m.TypeUses(), "unparseable types are skipped")
}

func TestModule_Lookup(t *testing.T) {
	m := BuildModule(ModuleDef{
		Name: "db",
		Exports: map[string]ExportDef{
			"Store":  {Type: "class", Methods: map[string]MethodDef{"get": {}}},
			"Record": {Type: "type", Properties: map[string]PropertyDef{"id": {Type: "string"}}},
			"query":  {Type: "function", Methods: map[string]MethodDef{"call": {}}},
		},
	}, "")

	_, method, err := m.Lookup(CallRef{Module: "db", Export: "Store", Method: "get"})
	require.NoError(t, err)
	assert.NotNil(t, method)

	_, _, err = m.Lookup(CallRef{Module: "db", Export: "query"})
	assert.NoError(t, err)

	_, _, err = m.Lookup(CallRef{Module: "db", Export: "Record"})
	assert.ErrorContains(t, err, "db.Record is not callable (type export)")

	_, _, err = m.Lookup(CallRef{Module: "db", Export: "Store", Method: "put"})
	assert.ErrorContains(t, err, "no method put")

	_, _, err = m.Lookup(CallRef{Module: "db", Export: "Record", Method: "get"})
	assert.ErrorContains(t, err, "has no methods")

	_, _, err = m.Lookup(CallRef{Module: "db", Export: "Missing", Method: "get"})
	assert.ErrorContains(t, err, "does not export Missing")
}

func TestNewProject_SortsAndRejectsDuplicates(t *testing.T) {
	b := BuildModule(ModuleDef{Name: "b"}, "modules/b.json")
	a := BuildModule(ModuleDef{Name: "a"}, "modules/a.json")
	dup := BuildModule(ModuleDef{Name: "a"}, "modules/a2.json")

	p := NewProject(Manifest{Name: "demo"}, []*Module{b, a, dup})
	require.Len(t, p.Modules(), 2)
	assert.Equal(t, "a", p.Modules()[0].Name)
	assert.Equal(t, "b", p.Modules()[1].Name)

	got, ok := p.Module("a")
	require.True(t, ok)
	assert.Equal(t, "modules/a.json", got.Source)

	require.Len(t, p.Diagnostics, 1)
	assert.Contains(t, p.Diagnostics[0].Message, "modules/a.json")
}

func TestProject_Scope(t *testing.T) {
	users := BuildModule(ModuleDef{Name: "users", Exports: map[string]ExportDef{
		"User": {Type: "interface"},
		"Role": {Type: "enum", Values: []string{"admin"}},
	}}, "")
	app := BuildModule(ModuleDef{
		Name:         "app",
		Exports:      map[string]ExportDef{"User": {Type: "type"}, "Order": {Type: "type"}},
		Dependencies: map[string]string{"users": "Role"},
	}, "")
	p := NewProject(Manifest{}, []*Module{users, app})

	scope := p.Scope(app)
	assert.Equal(t, "app", scope.Module())

	module, ok := scope.Visible("User")
	require.True(t, ok)
	assert.Equal(t, "app", module, "local exports shadow imports")

	module, ok = scope.Visible("Role")
	require.True(t, ok)
	assert.Equal(t, "users", module)

	_, ok = scope.Visible("Missing")
	assert.False(t, ok)

	moduleExists, exportExists := scope.Export("users", "User")
	assert.True(t, moduleExists)
	assert.True(t, exportExists)

	moduleExists, _ = scope.Export("ghost", "User")
	assert.False(t, moduleExists)
}

func TestLayerTable(t *testing.T) {
	table, diags := BuildLayerTable(LayersDef{Layers: map[string]LayerDef{
		"application": {CanDependOn: []string{"domain", "application", "domain"}},
		"domain":      {CanDependOn: []string{"ghost"}},
	}})

	require.Len(t, diags, 1)
	assert.Equal(t, report.RuleLayerDefined, diags[0].Rule)
	assert.Equal(t, []string{"application", "domain"}, table["application"].CanDependOn)
	assert.True(t, table.Allows("application", "domain"))
	assert.False(t, table.Allows("domain", "domain"), "self dependency is never implicit")
	assert.False(t, table.Allows("ghost", "domain"))
	assert.True(t, table.Defined("domain"))
	assert.Equal(t, []string{"application", "domain"}, table.Names())
}

func TestPresetLayers(t *testing.T) {
	for _, name := range PresetNames() {
		table, ok := PresetLayers(name)
		require.True(t, ok, name)
		for _, layer := range table {
			for _, target := range layer.CanDependOn {
				assert.True(t, table.Defined(target), "%s preset: %s -> %s", name, layer.Name, target)
			}
		}
	}

	_, ok := PresetLayers("microkernel")
	assert.False(t, ok)
}

type kindRecorder struct {
	kinds []RuleKind
}

func (r *kindRecorder) VisitEffectCheck(_ *Rule, b *EffectCheck) { r.kinds = append(r.kinds, b.Kind()) }
func (r *kindRecorder) VisitEffectRequirement(_ *Rule, b *EffectRequirement) {
	r.kinds = append(r.kinds, b.Kind())
}
func (r *kindRecorder) VisitStorageCheck(_ *Rule, b *StorageCheck) { r.kinds = append(r.kinds, b.Kind()) }
func (r *kindRecorder) VisitDataAccessCheck(_ *Rule, b *DataAccessCheck) {
	r.kinds = append(r.kinds, b.Kind())
}

func TestBuildFramework(t *testing.T) {
	def := FrameworkDef{
		ID: "hipaa",
		Rules: []RuleDef{
			{ID: "no-log-phi", Type: "effect_check", Severity: "error", WhenEffect: []string{"log.write"}, ForbiddenData: []string{"@phi"}},
			{ID: "audit-phi", Type: "effect_requirement", Severity: "warning", WhenAccessing: []string{"@phi"}, RequiredEffects: []string{"audit.log"}},
			{ID: "encrypt-phi", Type: "storage_check", WhenAccessing: []string{"@phi"}, RequiredAnnotations: []string{"@encrypted"}},
			{ID: "auth-phi", Type: "data_access_check", SensitiveData: []string{"@phi"}, RequiredAnnotations: []string{"@requires-auth"}},
			{ID: "bad-kind", Type: "field_subset"},
			{ID: "cross", Type: "storage_check", WhenAccessing: []string{"@phi"}, RequiredAnnotations: []string{"@x"}, WhenEffect: []string{"y"}},
			{ID: "missing", Type: "effect_check", WhenEffect: []string{"y"}},
			{ID: "info", Type: "storage_check", Severity: "info", WhenAccessing: []string{"a"}, RequiredAnnotations: []string{"b"}},
			{ID: "no-log-phi", Type: "effect_check", WhenEffect: []string{"x"}, ForbiddenData: []string{"y"}},
		},
	}

	f, diags := BuildFramework(def, "rules/compliance/hipaa.json")
	require.NotNil(t, f)
	require.Len(t, f.Rules, 4)
	assert.Len(t, diags, 5)
	for _, d := range diags {
		assert.Equal(t, report.RuleValidComplianceRule, d.Rule)
	}
	assert.Equal(t, report.SeverityError, f.Rules[2].Severity, "severity defaults to error")
	assert.Equal(t, report.SeverityWarning, f.Rules[1].Severity)

	rec := &kindRecorder{}
	for _, rule := range f.Rules {
		rule.Accept(rec)
	}
	assert.Equal(t, []RuleKind{RuleEffectCheck, RuleEffectRequirement, RuleStorageCheck, RuleDataAccessCheck}, rec.kinds)
}

func TestBuildFramework_RequiresID(t *testing.T) {
	f, diags := BuildFramework(FrameworkDef{}, "rules/compliance/x.yaml")
	assert.Nil(t, f)
	require.Len(t, diags, 1)
	assert.Equal(t, "rules/compliance/x.yaml", diags[0].Location)
}
