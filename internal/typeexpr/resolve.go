package typeexpr

import (
	"fmt"
)

// Scope is the set of names visible from a single module. Implementations
// are built per module from its own exports plus the exports it imports
// through declared dependencies; there is no global type table.
type Scope interface {
	// Module returns the name of the module the scope belongs to
	Module() string

	// Visible resolves an unqualified name. The module's own exports win,
	// then names imported through declared dependencies.
	Visible(name string) (module string, ok bool)

	// Export reports whether module exists and whether it exports name
	Export(module, name string) (moduleExists, exportExists bool)
}

// ProblemKind classifies a resolution failure
type ProblemKind int

const (
	// UnknownType is a reference to an export that does not exist or is not visible
	UnknownType ProblemKind = iota
	// UnknownModule is a qualified reference to a module that does not exist
	UnknownModule
	// UnknownContainer is a generic whose base is not a built-in container
	UnknownContainer
	// ArityMismatch is a container applied to the wrong number of arguments
	ArityMismatch
)

func (k ProblemKind) String() string {
	switch k {
	case UnknownType:
		return "unknown type"
	case UnknownModule:
		return "unknown module"
	case UnknownContainer:
		return "unknown container"
	case ArityMismatch:
		return "arity mismatch"
	default:
		return "unknown problem"
	}
}

// Problem is a single leaf of an expression that failed to resolve
type Problem struct {
	Kind    ProblemKind
	Leaf    string // The offending name as written
	Module  string // Module named by a qualified leaf; empty otherwise
	Message string
}

// ResolvedRef is a reference leaf together with the module that exports it
type ResolvedRef struct {
	Reference
	Target string // Module that owns the export
}

// Local reports whether the reference resolved inside the scope's own module
func (r ResolvedRef) Local(scope Scope) bool {
	return r.Target == scope.Module()
}

// Resolution is the outcome of resolving one expression
type Resolution struct {
	Refs     []ResolvedRef
	Problems []Problem
}

// OK reports whether every leaf resolved
func (r Resolution) OK() bool {
	return len(r.Problems) == 0
}

// Resolve checks every leaf of e against scope. Problems are reported once
// per offending leaf, in source order.
func Resolve(e Expr, scope Scope) Resolution {
	var res Resolution

	Walk(e, func(n Expr) bool {
		switch node := n.(type) {
		case Reference:
			resolveReference(node, scope, &res)
		case Generic:
			resolveGeneric(node, &res)
		}
		return true
	})

	return res
}

func resolveReference(ref Reference, scope Scope, res *Resolution) {
	if !ref.Qualified() {
		if info, ok := Registry[ref.Name]; ok && info.Container {
			res.Problems = append(res.Problems, Problem{
				Kind:    ArityMismatch,
				Leaf:    ref.Name,
				Message: fmt.Sprintf("container %s requires %s", ref.Name, arityText(info)),
			})
			return
		}

		target, ok := scope.Visible(ref.Name)
		if !ok {
			res.Problems = append(res.Problems, Problem{
				Kind:    UnknownType,
				Leaf:    ref.Name,
				Message: fmt.Sprintf("type %s is not exported by %s or imported through its dependencies", ref.Name, scope.Module()),
			})
			return
		}
		res.Refs = append(res.Refs, ResolvedRef{Reference: ref, Target: target})
		return
	}

	moduleExists, exportExists := scope.Export(ref.Module, ref.Name)
	switch {
	case !moduleExists:
		res.Problems = append(res.Problems, Problem{
			Kind:    UnknownModule,
			Leaf:    ref.String(),
			Module:  ref.Module,
			Message: fmt.Sprintf("module %s does not exist", ref.Module),
		})
	case !exportExists:
		res.Problems = append(res.Problems, Problem{
			Kind:    UnknownType,
			Leaf:    ref.String(),
			Module:  ref.Module,
			Message: fmt.Sprintf("module %s does not export %s", ref.Module, ref.Name),
		})
	default:
		res.Refs = append(res.Refs, ResolvedRef{Reference: ref, Target: ref.Module})
	}
}

func resolveGeneric(g Generic, res *Resolution) {
	info, ok := Registry[g.Base]
	if !ok || !info.Container {
		res.Problems = append(res.Problems, Problem{
			Kind:    UnknownContainer,
			Leaf:    g.Base,
			Message: fmt.Sprintf("%s is not a known container type", g.Base),
		})
		return
	}

	if n := len(g.Args); n < info.MinArgs || n > info.MaxArgs {
		res.Problems = append(res.Problems, Problem{
			Kind:    ArityMismatch,
			Leaf:    g.Base,
			Message: fmt.Sprintf("container %s requires %s, got %d", g.Base, arityText(info), n),
		})
	}
}

func arityText(info TypeInfo) string {
	plural := func(n int) string {
		if n == 1 {
			return "1 type argument"
		}
		return fmt.Sprintf("%d type arguments", n)
	}
	if info.MinArgs == info.MaxArgs {
		return plural(info.MinArgs)
	}
	return fmt.Sprintf("%d to %s", info.MinArgs, plural(info.MaxArgs))
}
