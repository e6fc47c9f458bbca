package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/simonhull/crucible/internal/compliance"
	"github.com/simonhull/crucible/internal/config"
	"github.com/simonhull/crucible/internal/loader"
	"github.com/simonhull/crucible/internal/logger"
	"github.com/simonhull/crucible/internal/metrics"
	"github.com/simonhull/crucible/internal/output"
	"github.com/simonhull/crucible/internal/report"
	"github.com/simonhull/crucible/internal/validate"
	"github.com/simonhull/crucible/internal/watch"
)

// projectFiles are watched in addition to the module patterns
var projectFiles = []string{
	"manifest.{json,yaml,yml}",
	"crucible.{yaml,yml}",
	"rules/**/*.{json,yaml,yml}",
}

// ValidateCmd creates the 'validate' command
func ValidateCmd() *cobra.Command {
	var (
		path        string
		format      string
		metricsFile string
		frameworks  []string
		strict      bool
		noColor     bool
		watchMode   bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a project's architecture model",
		Long: `Load the project at --path and run every structural check and compliance
framework against it. All problems are reported at once.

The command exits non-zero when the report is invalid: any error, or any
warning with --strict.

Examples:
  crucible validate
  crucible validate --path ./architecture --strict
  crucible validate --framework hipaa --framework gdpr
  crucible validate --format json > report.json
  crucible validate --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, path)
			if err != nil {
				return err
			}

			// Flags override config
			flags := cmd.Flags()
			if flags.Changed("strict") {
				cfg.Strict = strict
			}
			if flags.Changed("format") {
				cfg.Format = format
			}
			if flags.Changed("framework") {
				cfg.Compliance.Frameworks = frameworks
			}
			if flags.Changed("metrics-file") {
				cfg.Metrics.Textfile = metricsFile
			}
			if noColor {
				cfg.Color = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := newLogger(cmd, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			r := newRunner(path, cfg, log, cmd.OutOrStdout())
			if watchMode {
				return r.watch(cmd.Context())
			}

			rep, err := r.run()
			if err != nil {
				return err
			}
			if !rep.Valid {
				return ErrValidationFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", ".", "Project directory")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&frameworks, "framework", nil, "Compliance framework to run (repeatable; default: all)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Re-validate whenever a project file changes")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each run")

	return cmd
}

// runner performs validation runs for one invocation of the command
type runner struct {
	path     string
	cfg      *config.Config
	logger   logger.Logger
	out      io.Writer
	engine   *validate.Engine
	recorder *metrics.Recorder
}

func newRunner(path string, cfg *config.Config, l logger.Logger, out io.Writer) *runner {
	return &runner{
		path:     path,
		cfg:      cfg,
		logger:   l,
		out:      out,
		engine:   validate.NewEngine(validate.WithLogger(l)),
		recorder: metrics.NewRecorder(),
	}
}

// run loads the project, validates it and prints the report
func (r *runner) run() (*report.Report, error) {
	start := time.Now()

	ld := loader.New(loader.WithLogger(r.logger), loader.WithPatterns(r.cfg.Modules.Patterns...))
	project, err := ld.Load(r.path)
	if err != nil {
		return nil, err
	}

	if _, unknown := compliance.Select(project, r.cfg.Compliance.Frameworks); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown compliance framework: %s", strings.Join(unknown, ", "))
	}

	rep := r.engine.Validate(project, validate.Options{
		Strict:     r.cfg.Strict,
		Frameworks: r.cfg.Compliance.Frameworks,
	})

	if err := r.render(rep); err != nil {
		return nil, err
	}

	r.recorder.Observe(rep, time.Since(start))
	if r.cfg.Metrics.Textfile != "" {
		if err := r.recorder.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
			return nil, err
		}
		r.logger.Debug("Wrote metrics", logger.F("path", r.cfg.Metrics.Textfile))
	}
	return rep, nil
}

func (r *runner) render(rep *report.Report) error {
	if r.cfg.Format == "json" {
		return report.RenderJSON(r.out, rep)
	}

	opts := report.TextOptions{Width: report.DefaultWidth}
	if f, ok := r.out.(*os.File); ok && output.IsTerminal(f) {
		opts.Color = r.cfg.Color
		opts.Width = output.TerminalWidth(f)
	}
	return report.RenderText(r.out, rep, opts)
}

// watch validates once, then again after every change until interrupted
func (r *runner) watch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	patterns := append(append([]string(nil), r.cfg.Modules.Patterns...), projectFiles...)
	w, err := watch.New(watch.Config{
		Root:     r.path,
		Patterns: patterns,
		Debounce: r.cfg.Watch.Debounce,
		Logger:   r.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			output.Info(fmt.Sprintf("Changed: %s", strings.Join(changed, ", ")))
			r.runAndReport()
			return nil
		},
	})
	if err != nil {
		return err
	}

	r.runAndReport()
	output.Info(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", r.path))
	return w.Run(ctx)
}

// runAndReport is a run whose errors are shown instead of returned, so
// watch mode survives a broken manifest or config
func (r *runner) runAndReport() {
	rep, err := r.run()
	switch {
	case err != nil:
		output.Error(err.Error())
	case rep.Valid:
		output.Success("Architecture is valid")
	default:
		output.Error("Architecture is invalid")
	}
}
