package validate

import (
	"sync"
	"time"

	"github.com/simonhull/crucible/internal/compliance"
	"github.com/simonhull/crucible/internal/logger"
	"github.com/simonhull/crucible/internal/model"
	"github.com/simonhull/crucible/internal/report"
)

// Options controls a single validation run
type Options struct {
	Strict     bool     // Warnings also make the report invalid
	Frameworks []string // Compliance frameworks to run; empty runs all
}

// Engine validates projects. It holds no per-run state.
type Engine struct {
	pipeline    *Pipeline
	interpreter *compliance.Interpreter
	logger      logger.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithPipeline replaces the default structural checkers
func WithPipeline(p *Pipeline) Option {
	return func(e *Engine) {
		e.pipeline = p
	}
}

// NewEngine creates an engine with the default pipeline
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		pipeline: DefaultPipeline(),
		logger:   logger.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.interpreter = compliance.New(e.logger)
	return e
}

// checkerResult holds the issues of one validator
type checkerResult struct {
	name    string
	issues  []report.Issue
	elapsed time.Duration
}

// Validate runs every structural checker concurrently, then the compliance
// frameworks, and merges everything into one deterministic report. Checkers
// always run to completion; nothing is fail-fast.
func (e *Engine) Validate(p *model.Project, opts Options) *report.Report {
	start := time.Now()
	builder := report.NewBuilder()

	validators := e.pipeline.Validators()
	results := make(chan checkerResult, len(validators))
	var wg sync.WaitGroup

	for _, v := range validators {
		wg.Add(1)
		go func(v Validator) {
			defer wg.Done()
			began := time.Now()
			issues := v.Validate(p)
			results <- checkerResult{name: v.Name(), issues: issues, elapsed: time.Since(began)}
		}(v)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		builder.Add(result.issues...)
		e.logger.Debug("Checker finished",
			logger.F("checker", result.name),
			logger.F("result", describe(result.issues)),
			logger.F("elapsed", result.elapsed))
	}

	frameworks, unknown := compliance.Select(p, opts.Frameworks)
	for _, id := range unknown {
		e.logger.Warn("Compliance framework not found", logger.F("framework", id))
	}
	if len(frameworks) > 0 {
		builder.Add(e.interpreter.Evaluate(p, frameworks)...)
	}

	rep := builder.Build(opts.Strict)
	e.logger.Debug("Validation complete",
		logger.F("modules", len(p.Modules())),
		logger.F("frameworks", len(frameworks)),
		logger.F("errors", len(rep.Errors)),
		logger.F("warnings", len(rep.Warnings)),
		logger.F("valid", rep.Valid),
		logger.F("elapsed", time.Since(start)))

	return rep
}
