// Package config defines the machine provider configuration: every
// recognized option with its default, struct-tag validation, and loaders
// for YAML, CUE, and Starlark sources. A loaded Config is a plain
// parameter struct; the caller hands it to machine.Run.
package config
