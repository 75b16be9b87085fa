package resolver

import "regexp"

var (
	// placeholderPattern matches legacy {key} tokens. Nested or empty
	// braces are not placeholders.
	placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

	// envPattern matches $VAR and ${VAR} references.
	envPattern = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}|\$[A-Za-z_][A-Za-z0-9_]*`)
)

// PlaceholderKeys returns the legacy {key} names referenced by s, in
// order of appearance. Used by the validator for its eager config check.
func PlaceholderKeys(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, m[1])
	}
	return keys
}
