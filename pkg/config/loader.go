package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Load reads, defaults, and validates a configuration file. The format is
// chosen by extension: .yaml/.yml, .cue, or .star.
func Load(ctx context.Context, path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfg, err = parseYAML(content)
	case ".cue":
		cfg, err = parseCUE(path, content)
	case ".star":
		cfg, err = parseStarlark(ctx, path, content)
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .yaml, .cue, or .star)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseYAML decodes a YAML document into a Config, rejecting unknown
// fields.
func parseYAML(content []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(content)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML config: %w", err)
	}
	return &cfg, nil
}

// parseCUE compiles the file, unifies it with the embedded #Machine
// schema, and decodes the concrete result.
func parseCUE(path string, content []byte) (*Config, error) {
	cctx := cuecontext.New()

	schema := cctx.CompileString(machineSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling machine schema: %w", err)
	}

	val := cctx.CompileString(string(content), cue.Filename(path))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("parsing CUE config: %s", cueerrors.Details(err, nil))
	}

	unified := schema.LookupPath(cue.ParsePath("#Machine")).Unify(val)
	if err := unified.Err(); err != nil {
		return nil, fmt.Errorf("validating CUE config: %s", cueerrors.Details(err, nil))
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating CUE config: %s", cueerrors.Details(err, nil))
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding CUE config: %w", err)
	}
	return &cfg, nil
}
