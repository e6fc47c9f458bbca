// Package crucible holds build-level metadata for the crucible CLI.
package crucible

// Version is the current crucible release.
const Version = "0.1.0"
