package loader_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/crucible/internal/loader"
	"github.com/simonhull/crucible/internal/model"
	"github.com/simonhull/crucible/internal/report"
	"github.com/simonhull/crucible/internal/testing/testutil"
)

const usersJSON = `{"name":"users","version":"1.0.0","layer":"domain",
 "exports":{
   "User":{"type":"interface","annotations":["@pii"],
           "properties":{"email":{"type":"string","annotations":["@pii"]},
                         "nickname":{"type":"string","required":false}}},
   "UserService":{"type":"class","methods":{"find":{
       "inputs":[{"name":"id","type":"string"}],
       "returns":"Promise<User | null>",
       "calls":["db.Store.get"],
       "effects":["db.read"], "annotations":["@requires-auth"], "async":true}}},
   "Status":{"type":"enum","values":["active","disabled"]},
   "UserCreated":{"type":"event","payload":{"id":{"type":"string"}}}},
 "dependencies":{"db":"Store"}}`

const dbYAML = `name: db
version: 1.0.0
layer: infrastructure
exports:
  Store:
    type: class
    methods:
      get:
        inputs:
          - name: key
            type: string
        returns: string
`

func newProject(t *testing.T) *testutil.TestProject {
	t.Helper()
	p := testutil.NewTestProject(t)
	p.WriteManifest(`{"name":"shop","version":"1.0.0"}`)
	return p
}

func TestLoad_ReadsJSONAndYAMLModules(t *testing.T) {
	p := newProject(t)
	p.WriteModule("users", usersJSON)
	p.WriteModule("infra/db", dbYAML)

	project, err := loader.New().Load(p.Root)
	require.NoError(t, err)

	assert.Equal(t, "shop", project.Manifest.Name)
	require.Len(t, project.Modules(), 2)
	assert.Empty(t, project.Diagnostics)

	users, ok := project.Module("users")
	require.True(t, ok)
	assert.Equal(t, "modules/users.json", users.Source)
	assert.False(t, users.Degraded)
	assert.Empty(t, users.Diagnostics)
	assert.Equal(t, []string{"Status", "User", "UserCreated", "UserService"}, users.ExportNames())
	assert.Equal(t, []string{"Store"}, users.Dependencies["db"].Names)

	user, ok := users.Exports["User"].(*model.InterfaceExport)
	require.True(t, ok)
	assert.False(t, user.Properties()["nickname"].Required)
	assert.True(t, user.Properties()["email"].Required)

	db, ok := project.Module("db")
	require.True(t, ok)
	assert.Equal(t, "modules/infra/db.yaml", db.Source)
	assert.Equal(t, "infrastructure", db.Layer)
}

func TestLoad_MissingManifest(t *testing.T) {
	p := testutil.NewTestProject(t)
	p.WriteModule("users", usersJSON)

	_, err := loader.New().Load(p.Root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, loader.ErrManifestNotFound))
}

func TestLoad_MalformedManifest(t *testing.T) {
	p := testutil.NewTestProject(t)
	p.WriteFile("manifest.yaml", "name: shop\nlanguage: go\nowner: nobody\n")

	_, err := loader.New().Load(p.Root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest.yaml")
}

func TestLoad_ManifestWithoutName(t *testing.T) {
	p := testutil.NewTestProject(t)
	p.WriteManifest(`{"version":"1.0.0"}`)

	project, err := loader.New().Load(p.Root)
	require.NoError(t, err)
	require.Len(t, project.Diagnostics, 1)
	assert.Equal(t, report.RuleValidModuleStructure, project.Diagnostics[0].Rule)
}

func TestLoad_RootErrors(t *testing.T) {
	p := newProject(t)

	_, err := loader.New().Load(filepath.Join(p.Root, "missing"))
	assert.Error(t, err)

	_, err = loader.New().Load(p.Path("manifest.json"))
	assert.Error(t, err)
}

func TestLoad_NoModulesDirectory(t *testing.T) {
	p := newProject(t)

	project, err := loader.New().Load(p.Root)
	require.NoError(t, err)
	assert.Empty(t, project.Modules())
	assert.Nil(t, project.Layers)
}

func TestLoad_DegradedModules(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantName string
	}{
		{
			name:     "unknown field keeps the declared name",
			file:     "modules/orders.json",
			content:  `{"name":"purchase-orders","version":"1.0.0","exprots":{}}`,
			wantName: "purchase-orders",
		},
		{
			name:     "unknown nested field",
			file:     "modules/orders.yaml",
			content:  "name: orders\nexports:\n  Order:\n    type: class\n    method: {}\n",
			wantName: "orders",
		},
		{
			name:     "syntax error falls back to the file name",
			file:     "modules/orders.json",
			content:  `{"name": "orders",`,
			wantName: "orders",
		},
		{
			name:     "empty file",
			file:     "modules/orders.yml",
			content:  "# nothing here\n",
			wantName: "orders",
		},
		{
			name:     "wrong shape",
			file:     "modules/orders.json",
			content:  `{"name":"orders","exports":["Order"]}`,
			wantName: "orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProject(t)
			p.WriteFile(tt.file, tt.content)

			project, err := loader.New().Load(p.Root)
			require.NoError(t, err)
			require.Len(t, project.Modules(), 1)

			m := project.Modules()[0]
			assert.Equal(t, tt.wantName, m.Name)
			assert.True(t, m.Degraded)
			require.NotEmpty(t, m.Diagnostics)

			last := m.Diagnostics[len(m.Diagnostics)-1]
			assert.Equal(t, report.RuleValidModuleStructure, last.Rule)
			assert.Equal(t, tt.wantName, last.Location)
			assert.True(t, last.Fatal)
			assert.Contains(t, last.Message, tt.file)
		})
	}
}

func TestLoad_ModuleWithoutNameUsesFileName(t *testing.T) {
	p := newProject(t)
	p.WriteModule("orders", `{"version":"1.0.0"}`)

	project, err := loader.New().Load(p.Root)
	require.NoError(t, err)

	m, ok := project.Module("orders")
	require.True(t, ok)
	assert.True(t, m.Degraded)
	assert.Equal(t, "modules/orders.json", m.Diagnostics[0].Location)
}

func TestLoad_DuplicateModuleNames(t *testing.T) {
	p := newProject(t)
	p.WriteModule("a/users", usersJSON)
	p.WriteModule("b/users", usersJSON)

	project, err := loader.New().Load(p.Root)
	require.NoError(t, err)

	require.Len(t, project.Modules(), 1)
	assert.Equal(t, "modules/a/users.json", project.Modules()[0].Source)
	require.Len(t, project.Diagnostics, 1)
	assert.Contains(t, project.Diagnostics[0].Message, "modules/a/users.json")
}

func TestLoad_Layers(t *testing.T) {
	t.Run("layers file", func(t *testing.T) {
		p := newProject(t)
		p.WriteLayers("layers:\n  domain:\n    can_depend_on: [domain]\n  api:\n    can_depend_on: [domain, storage]\n")

		project, err := loader.New().Load(p.Root)
		require.NoError(t, err)
		assert.Equal(t, []string{"api", "domain"}, project.Layers.Names())
		assert.True(t, project.Layers.Allows("api", "domain"))
		require.Len(t, project.Diagnostics, 1)
		assert.Equal(t, report.RuleLayerDefined, project.Diagnostics[0].Rule)
		assert.Equal(t, "layers.api.can_depend_on", project.Diagnostics[0].Location)
	})

	t.Run("preset from manifest pattern", func(t *testing.T) {
		p := testutil.NewTestProject(t)
		p.WriteManifest("name: shop\npattern: hexagonal\n")

		project, err := loader.New().Load(p.Root)
		require.NoError(t, err)
		assert.Equal(t, []string{"adapters", "application", "domain", "ports"}, project.Layers.Names())
		assert.True(t, project.Layers.Allows("adapters", "ports"))
		assert.False(t, project.Layers.Allows("domain", "adapters"))
	})

	t.Run("layers file wins over preset", func(t *testing.T) {
		p := testutil.NewTestProject(t)
		p.WriteManifest("name: shop\npattern: layered\n")
		p.WriteLayers(`{"layers":{"core":{"can_depend_on":[]}}}`)

		project, err := loader.New().Load(p.Root)
		require.NoError(t, err)
		assert.Equal(t, []string{"core"}, project.Layers.Names())
	})

	t.Run("malformed layers file", func(t *testing.T) {
		p := newProject(t)
		p.WriteLayers("layers:\n  domain:\n    depends_on: [domain]\n")

		project, err := loader.New().Load(p.Root)
		require.NoError(t, err)
		assert.Nil(t, project.Layers)
		require.Len(t, project.Diagnostics, 1)
		assert.Equal(t, report.RuleLayerDefined, project.Diagnostics[0].Rule)
		assert.Equal(t, "rules/layers.yaml", project.Diagnostics[0].Location)
	})
}

func TestLoad_Frameworks(t *testing.T) {
	p := newProject(t)
	p.WriteFramework("hipaa", `id: hipaa
name: HIPAA
rules:
  - id: no-phi-logging
    type: effect_check
    when_effect: [log.write]
    forbidden_data: ["@phi"]
  - id: broken
    type: storage_check
    when_accessing: ["@phi"]
`)
	p.WriteFramework("gdpr", `{"id":"gdpr","rules":[{"id":"consent","severity":"warning","type":"data_access_check","sensitive_data":["@pii"],"required_annotations":["@consent"]}]}`)
	p.WriteFramework("other", `{"id":"gdpr","rules":[]}`)
	p.WriteFramework("garbage", "id: x\nrulez: []\n")

	project, err := loader.New().Load(p.Root)
	require.NoError(t, err)

	require.Len(t, project.Frameworks, 2)
	assert.Equal(t, "gdpr", project.Frameworks[0].ID)
	assert.Equal(t, "hipaa", project.Frameworks[1].ID)

	hipaa, ok := project.Framework("hipaa")
	require.True(t, ok)
	require.Len(t, hipaa.Rules, 1)
	assert.Equal(t, model.RuleEffectCheck, hipaa.Rules[0].Body.Kind())

	gdpr, _ := project.Framework("gdpr")
	assert.Equal(t, report.SeverityWarning, gdpr.Rules[0].Severity)

	locations := make([]string, 0, len(project.Diagnostics))
	for _, d := range project.Diagnostics {
		assert.Equal(t, report.RuleValidComplianceRule, d.Rule)
		locations = append(locations, d.Location)
	}
	assert.ElementsMatch(t, []string{
		"rules/compliance/garbage.yaml",
		"rules/compliance/other.json",
		"hipaa.broken",
	}, locations)
}

func TestLoad_CustomPatterns(t *testing.T) {
	p := newProject(t)
	p.WriteFile("arch/users.json", usersJSON)
	p.WriteModule("db", dbYAML)

	ld := loader.New(loader.WithPatterns("arch/*.json"))
	assert.Equal(t, []string{"arch/*.json"}, ld.Patterns())

	project, err := ld.Load(p.Root)
	require.NoError(t, err)
	require.Len(t, project.Modules(), 1)
	assert.Equal(t, "users", project.Modules()[0].Name)
}

func TestLoad_InvalidPattern(t *testing.T) {
	p := newProject(t)

	_, err := loader.New(loader.WithPatterns("modules/[")).Load(p.Root)
	assert.Error(t, err)
}
