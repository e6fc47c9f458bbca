// Package model is the in-memory representation of an architecture project:
// modules, their typed exports, dependencies, the layer table and the
// compliance frameworks evaluated against it.
//
// Everything string-encoded on disk (type expressions, call references,
// import lists, rule kinds) is parsed once here. Checkers only read the
// resulting structures; a Project is never mutated after NewProject returns.
//
// Problems found while building the model are recorded as Diagnostics
// instead of being returned as errors, so a single malformed module degrades
// rather than aborts the run.
package model
