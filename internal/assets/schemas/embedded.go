// Package schemasassets provides embedded JSON schemas for standalone binary behavior.
//
// Schemas are embedded at compile time to ensure the CLI and library work
// correctly regardless of the working directory or installation location.
package schemasassets

import _ "embed"

// SuiteManifestSchema is the embedded suite-manifest JSON schema.
//
// This allows manifest validation to work in installed binaries and library
// consumers without requiring the schema files to be present on disk.
//
//go:embed suite-manifest.schema.json
var SuiteManifestSchema []byte

// SolutionSchema is the embedded solution JSON schema.
//
// Used by the solution lint command and the HTTP evaluate endpoint to
// report precise diagnostics for malformed solution documents.
//
//go:embed solution.schema.json
var SolutionSchema []byte
