package typeexpr

import (
	"strings"
)

// Expr is a parsed type expression. The concrete types are Primitive,
// Reference, Generic, Union and Function.
type Expr interface {
	// String renders the expression in canonical form
	String() string
	isExpr()
}

// Primitive is a built-in scalar such as string or i64
type Primitive struct {
	Name string
}

// Reference names an export, optionally qualified by its module
type Reference struct {
	Module string // Empty when unqualified
	Name   string
}

// Generic is a container applied to type arguments (Map<K, V>)
type Generic struct {
	Base string
	Args []Expr
}

// Union is a set of alternatives split on top-level "|"
type Union struct {
	Members []Expr
}

// Function is an arrow function type ((x: T) => R)
type Function struct {
	Params []Param
	Return Expr
}

// Param is a single function type parameter. Name is empty for
// positional parameters written as bare types.
type Param struct {
	Name     string
	Optional bool
	Type     Expr
}

func (Primitive) isExpr() {}
func (Reference) isExpr() {}
func (Generic) isExpr()   {}
func (Union) isExpr()     {}
func (Function) isExpr()  {}

func (p Primitive) String() string { return p.Name }

func (r Reference) String() string {
	if r.Module != "" {
		return r.Module + "." + r.Name
	}
	return r.Name
}

// Qualified reports whether the reference names its module explicitly
func (r Reference) Qualified() bool {
	return r.Module != ""
}

func (g Generic) String() string {
	args := make([]string, len(g.Args))
	for i, arg := range g.Args {
		args[i] = arg.String()
	}
	return g.Base + "<" + strings.Join(args, ", ") + ">"
}

func (u Union) String() string {
	members := make([]string, len(u.Members))
	for i, m := range u.Members {
		// Function members need parentheses or the arrow swallows the union
		if _, ok := m.(Function); ok {
			members[i] = "(" + m.String() + ")"
			continue
		}
		members[i] = m.String()
	}
	return strings.Join(members, " | ")
}

func (f Function) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		switch {
		case p.Name == "":
			params[i] = p.Type.String()
		case p.Optional:
			params[i] = p.Name + "?: " + p.Type.String()
		default:
			params[i] = p.Name + ": " + p.Type.String()
		}
	}
	return "(" + strings.Join(params, ", ") + ") => " + f.Return.String()
}

// Walk visits e and every nested expression in depth-first order.
// Returning false from fn stops descent into the current node's children.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case Generic:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case Union:
		for _, m := range n.Members {
			Walk(m, fn)
		}
	case Function:
		for _, p := range n.Params {
			Walk(p.Type, fn)
		}
		Walk(n.Return, fn)
	}
}

// References returns every Reference leaf in e, in source order
func References(e Expr) []Reference {
	var refs []Reference
	Walk(e, func(n Expr) bool {
		if ref, ok := n.(Reference); ok {
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}
