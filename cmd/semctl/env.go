package main

import "strings"

// newEnvReplacer maps flag names such as "no-colour" to SEMCTL_NO_COLOUR.
func newEnvReplacer() *strings.Replacer {
	return strings.NewReplacer("-", "_")
}
