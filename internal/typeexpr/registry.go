package typeexpr

import (
	"sort"
)

// TypeInfo contains metadata about a built-in type name
type TypeInfo struct {
	Name      string // Name as written in a type expression
	Container bool   // Takes type arguments (Array<T>, Map<K,V>)
	MinArgs   int    // Minimum argument count for containers
	MaxArgs   int    // Maximum argument count for containers
	Language  string // "typescript", "rust", or "" when shared
}

// Registry contains every built-in name the resolver accepts without lookup.
// Anything not listed here must resolve to a module export.
var Registry = map[string]TypeInfo{
	// Shared and TypeScript primitives
	"string":     {Name: "string", Language: "typescript"},
	"number":     {Name: "number", Language: "typescript"},
	"boolean":    {Name: "boolean", Language: "typescript"},
	"void":       {Name: "void"},
	"null":       {Name: "null", Language: "typescript"},
	"undefined":  {Name: "undefined", Language: "typescript"},
	"any":        {Name: "any", Language: "typescript"},
	"unknown":    {Name: "unknown", Language: "typescript"},
	"never":      {Name: "never", Language: "typescript"},
	"object":     {Name: "object", Language: "typescript"},
	"bigint":     {Name: "bigint", Language: "typescript"},
	"Date":       {Name: "Date", Language: "typescript"},
	"Error":      {Name: "Error", Language: "typescript"},
	"Buffer":     {Name: "Buffer", Language: "typescript"},
	"Uint8Array": {Name: "Uint8Array", Language: "typescript"},

	// Rust primitives
	"String": {Name: "String", Language: "rust"},
	"str":    {Name: "str", Language: "rust"},
	"bool":   {Name: "bool", Language: "rust"},
	"char":   {Name: "char", Language: "rust"},
	"i8":     {Name: "i8", Language: "rust"},
	"i16":    {Name: "i16", Language: "rust"},
	"i32":    {Name: "i32", Language: "rust"},
	"i64":    {Name: "i64", Language: "rust"},
	"i128":   {Name: "i128", Language: "rust"},
	"isize":  {Name: "isize", Language: "rust"},
	"u8":     {Name: "u8", Language: "rust"},
	"u16":    {Name: "u16", Language: "rust"},
	"u32":    {Name: "u32", Language: "rust"},
	"u64":    {Name: "u64", Language: "rust"},
	"u128":   {Name: "u128", Language: "rust"},
	"usize":  {Name: "usize", Language: "rust"},
	"f32":    {Name: "f32", Language: "rust"},
	"f64":    {Name: "f64", Language: "rust"},

	// Containers
	"Array":    {Name: "Array", Container: true, MinArgs: 1, MaxArgs: 1, Language: "typescript"},
	"Map":      {Name: "Map", Container: true, MinArgs: 2, MaxArgs: 2, Language: "typescript"},
	"Promise":  {Name: "Promise", Container: true, MinArgs: 1, MaxArgs: 1, Language: "typescript"},
	"Result":   {Name: "Result", Container: true, MinArgs: 1, MaxArgs: 2},
	"Optional": {Name: "Optional", Container: true, MinArgs: 1, MaxArgs: 1, Language: "typescript"},
	"Vec":      {Name: "Vec", Container: true, MinArgs: 1, MaxArgs: 1, Language: "rust"},
	"HashMap":  {Name: "HashMap", Container: true, MinArgs: 2, MaxArgs: 2, Language: "rust"},
	"Option":   {Name: "Option", Container: true, MinArgs: 1, MaxArgs: 1, Language: "rust"},
}

// IsPrimitive reports whether name is a built-in non-container type
func IsPrimitive(name string) bool {
	info, ok := Registry[name]
	return ok && !info.Container
}

// IsContainer reports whether name is a built-in generic container
func IsContainer(name string) bool {
	info, ok := Registry[name]
	return ok && info.Container
}

// Containers returns the sorted list of container names
func Containers() []string {
	names := make([]string, 0, 8)
	for name, info := range Registry {
		if info.Container {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Primitives returns the sorted list of primitive names
func Primitives() []string {
	names := make([]string, 0, len(Registry))
	for name, info := range Registry {
		if !info.Container {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
