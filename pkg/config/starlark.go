package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.starlark.net/starlark"
)

// starlarkTimeout bounds config script execution.
const starlarkTimeout = 30 * time.Second

// parseStarlark executes the script and decodes the global "machine" dict
// into a Config. Scripts are pure config generators: print is suppressed
// and no filesystem or network builtins are exposed.
func parseStarlark(ctx context.Context, path string, content []byte) (*Config, error) {
	evalCtx, cancel := context.WithTimeout(ctx, starlarkTimeout)
	defer cancel()

	type evalResult struct {
		globals starlark.StringDict
		err     error
	}
	resultCh := make(chan evalResult, 1)

	go func() {
		thread := &starlark.Thread{
			Name:  "machine-sdc",
			Print: func(_ *starlark.Thread, _ string) {},
		}
		globals, err := starlark.ExecFile(thread, path, content, nil)
		resultCh <- evalResult{globals: globals, err: err}
	}()

	var globals starlark.StringDict
	select {
	case <-evalCtx.Done():
		return nil, fmt.Errorf("starlark config execution timed out after %s", starlarkTimeout)
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("starlark config execution failed: %w", res.err)
		}
		globals = res.globals
	}

	machineVal, ok := globals["machine"]
	if !ok {
		return nil, fmt.Errorf("starlark config must define a global %q dict", "machine")
	}

	goVal, err := fromStarlarkValue(machineVal)
	if err != nil {
		return nil, fmt.Errorf("converting starlark config: %w", err)
	}

	encoded, err := json.Marshal(goVal)
	if err != nil {
		return nil, fmt.Errorf("encoding starlark config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(encoded, &cfg); err != nil {
		return nil, fmt.Errorf("decoding starlark config: %w", err)
	}
	return &cfg, nil
}

// fromStarlarkValue converts a Starlark value to its Go equivalent.
func fromStarlarkValue(v starlark.Value) (interface{}, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", val.String())
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		out := make([]interface{}, 0, val.Len())
		iter := val.Iterate()
		defer iter.Done()
		var item starlark.Value
		for iter.Next(&item) {
			goItem, err := fromStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, goItem)
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]interface{}, val.Len())
		for _, key := range val.Keys() {
			keyStr, ok := key.(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key %s is not a string", key.String())
			}
			item, _, err := val.Get(key)
			if err != nil {
				return nil, err
			}
			goItem, err := fromStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			out[string(keyStr)] = goItem
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type %s", v.Type())
	}
}
