// Package typeexpr parses and resolves the type expressions used by module
// exports, parameters and properties.
//
// The vocabulary is closed: primitives, a fixed set of generic
// containers, unions, arrow function types and references to exports of the
// current or another module. The resolver only confirms that every name an
// expression mentions exists and is shaped consistently; it does not infer
// types.
//
// # Grammar
//
//	expr     = member { "|" member }
//	member   = primary { "[" "]" }
//	primary  = "(" [ params ] ")" "=>" expr
//	         | "(" expr ")"
//	         | name [ "<" expr { "," expr } ">" ]
//	params   = param { "," param }
//	param    = ident [ "?" ] ":" expr | expr
//	name     = ident [ "." ident ]
//
// T[] is sugar for Array<T>.
package typeexpr
