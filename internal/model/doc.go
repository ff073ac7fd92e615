// Package model defines the domain types and value objects for the
// effmap-pack CLI.
//
// This package contains pure data structures with no external dependencies
// beyond struct tags: BuildConfig and its nested sections, the results of
// each pipeline step, and the aggregate BuildResult printed at the end of
// a build.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
