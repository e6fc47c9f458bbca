package typeexpr_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/crucible/internal/typeexpr"
)

func TestParse_Primitives(t *testing.T) {
	for _, name := range []string{"string", "number", "boolean", "void", "null", "Date", "i64", "String"} {
		t.Run(name, func(t *testing.T) {
			expr, err := typeexpr.Parse(name)
			require.NoError(t, err)
			assert.Equal(t, typeexpr.Primitive{Name: name}, expr)
		})
	}
}

func TestParse_References(t *testing.T) {
	expr, err := typeexpr.Parse("User")
	require.NoError(t, err)
	assert.Equal(t, typeexpr.Reference{Name: "User"}, expr)

	expr, err = typeexpr.Parse("users.User")
	require.NoError(t, err)
	assert.Equal(t, typeexpr.Reference{Module: "users", Name: "User"}, expr)
}

func TestParse_NestedGenericHasSingleLeaf(t *testing.T) {
	expr, err := typeexpr.Parse("Promise<Array<User>>")
	require.NoError(t, err)

	assert.Equal(t, typeexpr.Generic{
		Base: "Promise",
		Args: []typeexpr.Expr{
			typeexpr.Generic{Base: "Array", Args: []typeexpr.Expr{typeexpr.Reference{Name: "User"}}},
		},
	}, expr)
	assert.Equal(t, []typeexpr.Reference{{Name: "User"}}, typeexpr.References(expr))
}

func TestParse_UnionOfPrimitives(t *testing.T) {
	expr, err := typeexpr.Parse("string | number")
	require.NoError(t, err)

	union, ok := expr.(typeexpr.Union)
	require.True(t, ok, "expected union, got %T", expr)
	assert.Equal(t, []typeexpr.Expr{
		typeexpr.Primitive{Name: "string"},
		typeexpr.Primitive{Name: "number"},
	}, union.Members)
}

func TestParse_UnionInsideGenericArgument(t *testing.T) {
	expr, err := typeexpr.Parse("Map<string, User | null>")
	require.NoError(t, err)

	generic, ok := expr.(typeexpr.Generic)
	require.True(t, ok, "expected generic, got %T", expr)
	assert.Equal(t, "Map", generic.Base)
	require.Len(t, generic.Args, 2)
	assert.Equal(t, typeexpr.Primitive{Name: "string"}, generic.Args[0])
	assert.Equal(t, typeexpr.Union{Members: []typeexpr.Expr{
		typeexpr.Reference{Name: "User"},
		typeexpr.Primitive{Name: "null"},
	}}, generic.Args[1])
}

func TestParse_UnionDoesNotSplitInsideAngleBrackets(t *testing.T) {
	expr, err := typeexpr.Parse("Promise<A | B>")
	require.NoError(t, err)

	generic, ok := expr.(typeexpr.Generic)
	require.True(t, ok)
	require.Len(t, generic.Args, 1)
	assert.IsType(t, typeexpr.Union{}, generic.Args[0])
}

func TestParse_ArraySugar(t *testing.T) {
	sugar, err := typeexpr.Parse("User[]")
	require.NoError(t, err)
	explicit, err := typeexpr.Parse("Array<User>")
	require.NoError(t, err)
	assert.Equal(t, explicit, sugar)

	nested, err := typeexpr.Parse("string[][]")
	require.NoError(t, err)
	assert.Equal(t, "Array<Array<string>>", nested.String())
}

func TestParse_Functions(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"() => void", "() => void"},
		{"(x: string) => number", "(x: string) => number"},
		{"(id: string, opts?: Options) => Promise<User>", "(id: string, opts?: Options) => Promise<User>"},
		{"(string, number) => boolean", "(string, number) => boolean"},
		{"(cb: (err: Error) => void) => void", "(cb: (err: Error) => void) => void"},
		{"((x: A) => B) | null", "((x: A) => B) | null"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, err := typeexpr.Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, expr.String())
		})
	}
}

func TestParse_Grouping(t *testing.T) {
	expr, err := typeexpr.Parse("(User | null)[]")
	require.NoError(t, err)
	assert.Equal(t, "Array<User | null>", expr.String())
}

func TestParse_CanonicalFormReparses(t *testing.T) {
	inputs := []string{
		"Map<string,Array<users.User|null>>",
		"Result<  Vec<u8>, Error >",
		"(a: A, b?: B) => Promise<void> | null",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := typeexpr.Parse(input)
			require.NoError(t, err)
			second, err := typeexpr.Parse(first.String())
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"unclosed generic", "Promise<User"},
		{"extra closing", "Promise<User>>"},
		{"empty arguments", "Map<>"},
		{"dangling pipe", "string |"},
		{"leading pipe", "| string"},
		{"bad character", "User#"},
		{"lone equals", "a = b"},
		{"unclosed paren", "(string"},
		{"missing arrow", "(x: string) number"},
		{"too many qualifiers", "a.b.C"},
		{"unclosed bracket", "User["},
		{"trailing comma", "Map<string,>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := typeexpr.Parse(tt.input)
			require.Error(t, err)

			var syntaxErr *typeexpr.SyntaxError
			assert.ErrorAs(t, err, &syntaxErr)
		})
	}
}

func TestParse_RejectsPathologicalNesting(t *testing.T) {
	depth := typeexpr.MaxDepth + 10
	input := strings.Repeat("Array<", depth) + "string" + strings.Repeat(">", depth)

	_, err := typeexpr.Parse(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum depth")

	ok := strings.Repeat("Array<", 8) + "string" + strings.Repeat(">", 8)
	_, err = typeexpr.Parse(ok)
	assert.NoError(t, err)
}

func TestParse_ArraySugarCountsTowardsDepth(t *testing.T) {
	_, err := typeexpr.Parse("string" + strings.Repeat("[]", 200))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum depth")

	_, err = typeexpr.Parse(strings.Repeat("Array<", 20) + "string" + strings.Repeat("[]", 20) + strings.Repeat(">", 20))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum depth")

	expr, err := typeexpr.Parse("string" + strings.Repeat("[]", 8))
	require.NoError(t, err)
	assert.Equal(t, "Array", expr.(typeexpr.Generic).Base)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { typeexpr.MustParse("Map<") })
	assert.NotPanics(t, func() { typeexpr.MustParse("Map<string, number>") })
}
