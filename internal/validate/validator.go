// Package validate runs the structural checks over a project model and
// merges their findings, together with compliance results, into a report.
package validate

import (
	"github.com/simonhull/crucible/internal/model"
	"github.com/simonhull/crucible/internal/report"
)

// Validator is the interface all structural checkers implement. Validate
// must only read the project; the engine runs validators concurrently.
type Validator interface {
	Name() string
	Validate(p *model.Project) []report.Issue
}

// Pipeline holds the validators a run executes
type Pipeline struct {
	validators []Validator
}

// NewPipeline creates a pipeline from the given validators
func NewPipeline(validators ...Validator) *Pipeline {
	return &Pipeline{validators: validators}
}

// DefaultPipeline creates a pipeline with every structural checker
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		&StructureValidator{},
		&DependencyValidator{},
		&LayerValidator{},
		&TypeValidator{},
		&CallValidator{},
		&UsageValidator{},
	)
}

// AddValidator adds a custom validator
func (p *Pipeline) AddValidator(v Validator) {
	p.validators = append(p.validators, v)
}

// Validators returns the validators in registration order
func (p *Pipeline) Validators() []Validator {
	return p.validators
}

// checked returns the modules structural checks apply to
func checked(p *model.Project) []*model.Module {
	modules := make([]*model.Module, 0, len(p.Modules()))
	for _, m := range p.Modules() {
		if !m.Degraded {
			modules = append(modules, m)
		}
	}
	return modules
}
