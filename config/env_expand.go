package config

import (
	"os"
	"regexp"
)

var envDefaultPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-|-)([^}]*)\}`)

// ExpandEnv replaces ${VAR:-fallback}, ${VAR-fallback}, ${VAR} and $VAR
// using lookup. Unset variables without a fallback become empty.
func ExpandEnv(value string, lookup func(string) string) string {
	if value == "" {
		return value
	}
	if lookup == nil {
		lookup = os.Getenv
	}

	expanded := envDefaultPattern.ReplaceAllStringFunc(value, func(match string) string {
		parts := envDefaultPattern.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		if val := lookup(parts[1]); val != "" {
			return val
		}
		return parts[3]
	})

	return os.Expand(expanded, lookup)
}
