package agentdrive

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidateEnv checks environment-variable overrides for values that cannot
// be passed safely to a subprocess: empty names, names containing '=' or
// null bytes, and values containing null bytes.
func ValidateEnv(env map[string]string) error {
	for k, v := range env {
		if k == "" {
			return errors.New("env: empty variable name")
		}
		if strings.ContainsAny(k, "=\x00") {
			return fmt.Errorf("env: invalid variable name %q", k)
		}
		if strings.ContainsRune(v, '\x00') {
			return fmt.Errorf("env: variable %s: value contains null bytes", k)
		}
	}
	return nil
}

// MergeEnv overlays overrides onto a base environment in "KEY=VALUE" form
// (as produced by os.Environ). Base entries whose name appears in overrides
// are dropped; override entries are appended in sorted order so the result
// is deterministic. An empty overrides map returns base unchanged.
//
// Callers should run ValidateEnv on overrides first; MergeEnv does not
// validate.
func MergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	merged := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		name, _, ok := strings.Cut(entry, "=")
		if ok {
			if _, overridden := overrides[name]; overridden {
				continue
			}
		}
		merged = append(merged, entry)
	}

	names := make([]string, 0, len(overrides))
	for k := range overrides {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		merged = append(merged, k+"="+overrides[k])
	}
	return merged
}
