package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simonhull/crucible/internal/graph"
	"github.com/simonhull/crucible/internal/loader"
	"github.com/simonhull/crucible/internal/model"
)

// RulesCmd lists the layer table and compliance frameworks a project loads
func RulesCmd() *cobra.Command {
	var path, format string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List modules, layer rules and compliance frameworks",
		Long: `Show the module dependency graph, the layer table (from rules/layers.* or
the manifest pattern preset) and every compliance framework found under
rules/compliance/.

Example:
  crucible rules --path ./architecture`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, path)
			if err != nil {
				return err
			}
			log, err := newLogger(cmd, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			project, err := loader.New(loader.WithLogger(log), loader.WithPatterns(cfg.Modules.Patterns...)).Load(path)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return printRulesJSON(cmd.OutOrStdout(), project)
			case "text":
				printRulesText(cmd.OutOrStdout(), project)
				return nil
			default:
				return fmt.Errorf("invalid format %q (must be text or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", ".", "Project directory")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")

	return cmd
}

func printRulesText(w io.Writer, p *model.Project) {
	g, _ := graph.Build(p)
	stats := g.Stats
	fmt.Fprintf(w, "Modules: %d (%d %s, %d %s, max depth %d)\n",
		stats.Modules, stats.Edges, plural(stats.Edges, "dependency", "dependencies"),
		stats.Cycles, plural(stats.Cycles, "cycle", "cycles"), stats.MaxDepth)
	for _, node := range g.Nodes {
		line := fmt.Sprintf("  %s", node.Name)
		if node.Layer != "" {
			line += fmt.Sprintf(" [%s]", node.Layer)
		}
		line += fmt.Sprintf(" imports %d, used by %d, depth %d", node.ImportCount, node.DependentCount, node.Depth)
		if node.Degraded {
			line += " (degraded)"
		}
		fmt.Fprintln(w, line)
	}
	for _, cycle := range g.Cycles {
		fmt.Fprintf(w, "  cycle: %s\n", graph.FormatCycle(cycle))
	}

	fmt.Fprintln(w)
	if len(p.Layers) == 0 {
		fmt.Fprintln(w, "Layers: none (layer checks are skipped)")
	} else {
		fmt.Fprintln(w, "Layers:")
		for _, name := range p.Layers.Names() {
			allowed := p.Layers[name].CanDependOn
			deps := "nothing"
			if len(allowed) > 0 {
				deps = strings.Join(allowed, ", ")
			}
			fmt.Fprintf(w, "  %s → %s\n", name, deps)
		}
	}

	fmt.Fprintln(w)
	if len(p.Frameworks) == 0 {
		fmt.Fprintln(w, "Compliance frameworks: none")
		return
	}
	fmt.Fprintln(w, "Compliance frameworks:")
	for _, f := range p.Frameworks {
		title := f.ID
		if f.Name != "" {
			title = fmt.Sprintf("%s (%s)", f.ID, f.Name)
		}
		fmt.Fprintf(w, "  %s\n", title)
		for _, rule := range f.Rules {
			fmt.Fprintf(w, "    %-30s %-20s %s\n", rule.ID, rule.Body.Kind(), rule.Severity)
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

type rulesJSON struct {
	Graph      graphJSON           `json:"graph"`
	Layers     map[string][]string `json:"layers"`
	Frameworks []frameworkJSON     `json:"frameworks"`
}

type graphJSON struct {
	Modules  int        `json:"modules"`
	Edges    int        `json:"edges"`
	MaxDepth int        `json:"max_depth"`
	Cycles   [][]string `json:"cycles"`
}

type frameworkJSON struct {
	ID    string     `json:"id"`
	Name  string     `json:"name,omitempty"`
	Rules []ruleJSON `json:"rules"`
}

type ruleJSON struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
}

func printRulesJSON(w io.Writer, p *model.Project) error {
	g, _ := graph.Build(p)
	out := rulesJSON{
		Graph: graphJSON{
			Modules:  g.Stats.Modules,
			Edges:    g.Stats.Edges,
			MaxDepth: g.Stats.MaxDepth,
			Cycles:   append([][]string{}, g.Cycles...),
		},
		Layers:     make(map[string][]string, len(p.Layers)),
		Frameworks: []frameworkJSON{},
	}
	for name, layer := range p.Layers {
		out.Layers[name] = append([]string{}, layer.CanDependOn...)
	}
	for _, f := range p.Frameworks {
		fj := frameworkJSON{ID: f.ID, Name: f.Name, Rules: []ruleJSON{}}
		for _, rule := range f.Rules {
			fj.Rules = append(fj.Rules, ruleJSON{ID: rule.ID, Type: string(rule.Body.Kind()), Severity: string(rule.Severity)})
		}
		out.Frameworks = append(out.Frameworks, fj)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
